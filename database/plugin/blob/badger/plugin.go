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
package badger

import (
	"sync"

	"github.com/blinklabs-io/taleledger/database/plugin"
)

// Defaults sized for a record store rather than a chain database
const (
	DefaultBlockCacheSize   = 134217728 // 128MB
	DefaultIndexCacheSize   = 67108864  // 64MB
	DefaultValueLogFileSize = 268435456 // 256MB
	DefaultMemTableSize     = 67108864  // 64MB
	// Records and balances are small enough to live in the LSM tree
	DefaultValueThreshold = 4096
)

var (
	tuning = Config{
		BlockCacheSize: DefaultBlockCacheSize,
		IndexCacheSize: DefaultIndexCacheSize,
		ValueThreshold: DefaultValueThreshold,
		GcEnabled:      true,
	}
	tuningMutex sync.RWMutex
)

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB store for record bytes and deposit balances",
			NewFromOptionsFunc: newFromEnv,
			Options: []plugin.PluginOption{
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "block cache size in bytes",
					DefaultValue: uint64(DefaultBlockCacheSize),
					Dest:         &(tuning.BlockCacheSize),
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "index cache size in bytes",
					DefaultValue: uint64(DefaultIndexCacheSize),
					Dest:         &(tuning.IndexCacheSize),
				},
				{
					Name:         "value-threshold",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "values larger than this go to the value log",
					DefaultValue: uint64(DefaultValueThreshold),
					Dest:         &(tuning.ValueThreshold),
				},
				{
					Name:         "gc",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "run value log garbage collection",
					DefaultValue: true,
					Dest:         &(tuning.GcEnabled),
				},
				{
					Name:         "sync-writes",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "fsync every commit",
					DefaultValue: false,
					Dest:         &(tuning.SyncWrites),
				},
			},
		},
	)
}

func newFromEnv(env plugin.Env) (plugin.Plugin, error) {
	tuningMutex.RLock()
	cfg := tuning
	tuningMutex.RUnlock()
	cfg.DataDir = env.DataDir
	cfg.Logger = env.Logger
	cfg.PromRegistry = env.PromRegistry
	return New(cfg)
}
