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
package plugin

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Plugin is a storage backend managed through the registry
type Plugin interface {
	Start() error
	Stop() error
}

// Env is what every backend shares with the node: where to keep its files,
// where to log and where to register metrics. Backend specific tuning comes
// from the registered options instead.
type Env struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	// DataDir is empty for an in-memory store
	DataDir string
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return e.Logger
}

// Open builds the named plugin from its current options and starts it
func Open(pluginType PluginType, pluginName string, env Env) (Plugin, error) {
	env.Logger = env.logger()
	p, err := GetPlugin(pluginType, pluginName, env)
	if err != nil {
		return nil, err
	}
	if err := p.Start(); err != nil {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	env.Logger.Debug(
		"storage plugin started",
		"component", "database",
		"type", PluginTypeName(pluginType),
		"plugin", pluginName,
	)
	return p, nil
}

// SetPluginOption sets a named option of a registered plugin. Options are
// read when the plugin is built, so this has no effect on stores that are
// already open.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	entry := findEntry(pluginType, pluginName)
	if entry == nil {
		return fmt.Errorf(
			"plugin %s of type %s not found",
			pluginName,
			PluginTypeName(pluginType),
		)
	}
	for _, opt := range entry.Options {
		if opt.Name == optionName {
			return opt.set(value)
		}
	}
	return fmt.Errorf(
		"%s plugin %s has no option %q",
		PluginTypeName(pluginType),
		pluginName,
		optionName,
	)
}
