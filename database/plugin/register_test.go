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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/taleledger/database/plugin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlugin struct {
	env     plugin.Env
	label   string
	started bool
	stopped bool
	failing error
}

func (m *mockPlugin) Start() error {
	if m.failing != nil {
		return m.failing
	}
	m.started = true
	return nil
}

func (m *mockPlugin) Stop() error {
	m.stopped = true
	return nil
}

func TestRegisterAndGetPlugin(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: pluginName,
		NewFromOptionsFunc: func(env plugin.Env) (plugin.Plugin, error) {
			return &mockPlugin{env: env}, nil
		},
	})
	p, err := plugin.GetPlugin(plugin.PluginTypeBlob, pluginName, plugin.Env{DataDir: "/data"})
	require.NoError(t, err)
	require.IsType(t, &mockPlugin{}, p)
	assert.Equal(t, "/data", p.(*mockPlugin).env.DataDir)
	assert.False(t, p.(*mockPlugin).started)

	_, err = plugin.GetPlugin(plugin.PluginTypeBlob, "non-existent-"+t.Name(), plugin.Env{})
	assert.ErrorContains(t, err, "not found")
	_, err = plugin.GetPlugin(plugin.PluginTypeMetadata, pluginName, plugin.Env{})
	assert.Error(t, err)
	found := false
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if entry.Name == pluginName {
			found = true
		}
	}
	assert.True(t, found, "plugin not in GetPlugins list")
}

func TestOpen(t *testing.T) {
	pluginName := "open-plugin-" + t.Name()
	startErr := errors.New("disk full")
	var last *mockPlugin
	fail := false
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeMetadata,
		Name: pluginName,
		NewFromOptionsFunc: func(env plugin.Env) (plugin.Plugin, error) {
			last = &mockPlugin{env: env}
			if fail {
				last.failing = startErr
			}
			return last, nil
		},
	})
	p, err := plugin.Open(plugin.PluginTypeMetadata, pluginName, plugin.Env{})
	require.NoError(t, err)
	assert.True(t, p.(*mockPlugin).started)
	// Open fills in a logger so plugins never see a nil one
	assert.NotNil(t, p.(*mockPlugin).env.Logger)

	fail = true
	_, err = plugin.Open(plugin.PluginTypeMetadata, pluginName, plugin.Env{})
	require.ErrorIs(t, err, startErr)
	assert.True(t, last.stopped)

	_, err = plugin.Open(plugin.PluginTypeMetadata, "missing-"+t.Name(), plugin.Env{})
	assert.ErrorContains(t, err, "metadata plugin")
}

func TestSetPluginOptionAndFlags(t *testing.T) {
	var label string
	pluginName := "opt-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeMetadata,
		Name: pluginName,
		NewFromOptionsFunc: func(plugin.Env) (plugin.Plugin, error) {
			return &mockPlugin{label: label}, nil
		},
		Options: []plugin.PluginOption{
			{
				Name:         "label",
				Type:         plugin.PluginOptionTypeString,
				Description:  "label",
				DefaultValue: "default",
				Dest:         &label,
			},
		},
	})
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	require.NoError(t, fs.Parse([]string{"--metadata-" + pluginName + "-label", "from-flag"}))
	assert.Equal(t, "from-flag", label)

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "label", ""))
	p, err := plugin.GetPlugin(plugin.PluginTypeMetadata, pluginName, plugin.Env{})
	require.NoError(t, err)
	assert.Empty(t, p.(*mockPlugin).label)

	assert.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "label", 5))
	assert.ErrorContains(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "unknown", 5), "no option")
	assert.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "label", ""))
}
