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

package api

import (
	"context"

	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/governance"
	"github.com/blinklabs-io/taleledger/ledger"
)

// VoteEngine is the voting engine served by the API
type VoteEngine interface {
	CreateVote(
		ctx context.Context,
		signers ledger.SignerSet,
		creator ledger.Address,
		params governance.CreateVoteParams,
	) (ledger.Address, error)
	CastVote(
		ctx context.Context,
		signers ledger.SignerSet,
		params governance.CastVoteParams,
	) (*governance.VoteRecord, error)
	FinalizeVote(
		ctx context.Context,
		signers ledger.SignerSet,
		vote ledger.Address,
		caller ledger.Address,
	) (*governance.Vote, error)
	GetResults(ctx context.Context, vote ledger.Address) (*governance.Results, error)
	GetVote(ctx context.Context, vote ledger.Address) (*governance.Vote, error)
	ListVotes(
		ctx context.Context,
		signers ledger.SignerSet,
		owner ledger.Address,
		params governance.ListVotesParams,
	) (*governance.VoteList, error)
	QueryVotes(ctx context.Context, filter models.VoteFilter) ([]models.VoteIndex, int64, error)
	Ballots(ctx context.Context, vote ledger.Address) ([]models.Ballot, error)
	GetVoteRecord(ctx context.Context, vote ledger.Address, voter ledger.Address) (*governance.VoteRecord, error)
}
