// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/database/plugin"
	"github.com/blinklabs-io/taleledger/database/types"
)

// MetadataStore is the queryable index kept alongside the blob store
type MetadataStore interface {
	plugin.Plugin
	Close() error
	Transaction() types.Txn

	// Record index
	SetRecordIndex(*models.RecordIndex, types.Txn) error
	DeleteRecordIndex([]byte, types.Txn) error
	ClearRecordIndexes(types.Txn) error
	GetRecordIndexes(string, []byte, types.Txn) ([]models.RecordIndex, error)
	GetChildRecordIndexes([]byte, types.Txn) ([]models.RecordIndex, error)

	// Votes
	SetVoteIndex(*models.VoteIndex, types.Txn) error
	ClearVoteIndexes(types.Txn) error
	GetVoteIndex([]byte, types.Txn) (*models.VoteIndex, error)
	GetVoteIndexes(models.VoteFilter, types.Txn) ([]models.VoteIndex, int64, error)
	AddBallot(*models.Ballot, types.Txn) error
	GetBallots([]byte, types.Txn) ([]models.Ballot, error)
}

// New opens the metadata store registered under pluginName
func New(pluginName string, env plugin.Env) (MetadataStore, error) {
	p, err := plugin.Open(plugin.PluginTypeMetadata, pluginName, env)
	if err != nil {
		return nil, err
	}
	store, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return store, nil
}
