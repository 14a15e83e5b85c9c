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
package sqlite

import (
	"sync"

	"github.com/blinklabs-io/taleledger/database/plugin"
)

const (
	// DefaultCacheSizeKB is the page cache given to an on-disk index
	DefaultCacheSizeKB = 50000
	// DefaultBusyTimeoutMs bounds how long a writer waits on the file lock
	DefaultBusyTimeoutMs = 5000
)

var (
	tuning struct {
		cacheSizeKB   uint64
		busyTimeoutMs uint64
	}
	tuningMutex sync.RWMutex
)

func init() {
	tuning.cacheSizeKB = DefaultCacheSizeKB
	tuning.busyTimeoutMs = DefaultBusyTimeoutMs
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite index of records, votes and ballots",
			NewFromOptionsFunc: newFromEnv,
			Options: []plugin.PluginOption{
				{
					Name:         "cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "page cache size in KiB",
					DefaultValue: uint64(DefaultCacheSizeKB),
					Dest:         &(tuning.cacheSizeKB),
				},
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "milliseconds to wait for a locked database",
					DefaultValue: uint64(DefaultBusyTimeoutMs),
					Dest:         &(tuning.busyTimeoutMs),
				},
			},
		},
	)
}

func newFromEnv(env plugin.Env) (plugin.Plugin, error) {
	tuningMutex.RLock()
	cfg := Config{
		DataDir:       env.DataDir,
		Logger:        env.Logger,
		PromRegistry:  env.PromRegistry,
		CacheSizeKB:   tuning.cacheSizeKB,
		BusyTimeoutMs: tuning.busyTimeoutMs,
	}
	tuningMutex.RUnlock()
	return New(cfg)
}
