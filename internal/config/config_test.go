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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/taleledger/database/plugin"
	_ "github.com/blinklabs-io/taleledger/database/plugin/blob/badger"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taleledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, `
databasePath: "/var/lib/taleledger"
programId: "11111111111111111111111111111112"
depositBase: 10
depositPerByte: 2
apiListenAddress: "127.0.0.1:8080"
tracing: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	expected := DefaultConfig()
	expected.DatabasePath = "/var/lib/taleledger"
	expected.ProgramId = "11111111111111111111111111111112"
	expected.DepositBase = 10
	expected.DepositPerByte = 2
	expected.ApiListenAddress = "127.0.0.1:8080"
	expected.Tracing = true
	assert.Equal(t, expected, cfg)
	assert.Equal(t, uint64(10), cfg.DepositSchedule().Base)
	program, err := cfg.ProgramAddress()
	require.NoError(t, err)
	assert.Equal(t, cfg.ProgramId, program.String())
}

func TestLoadConfigSection(t *testing.T) {
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc", true)
	})
	path := writeConfigFile(t, `
config:
  metricsListenAddress: ":9100"
  depositPerByte: 3
blob:
  badger:
    gc: false
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	expected := DefaultConfig()
	expected.MetricsListenAddress = ":9100"
	expected.DepositPerByte = 3
	// keys missing from the section keep their defaults
	assert.Equal(t, expected, cfg)
	assert.Equal(t, DefaultBlobPlugin, cfg.BlobPlugin)
	assert.Equal(t, uint64(ledger.DefaultDepositBase), cfg.DepositBase)
}

func TestLoadUnknownPluginOption(t *testing.T) {
	path := writeConfigFile(t, `
blob:
  badger:
    data-dir: "/tmp/elsewhere"
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "data-dir")
}

func TestLoadUnknownPlugin(t *testing.T) {
	path := writeConfigFile(t, `
metadata:
  postgres:
    host: "db"
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `apiListenAddress: ":4000"`)
	t.Setenv("TALELEDGER_API_LISTEN_ADDRESS", ":5000")
	t.Setenv("TALELEDGER_DEPOSIT_PER_BYTE", "7")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.ApiListenAddress)
	assert.Equal(t, uint64(7), cfg.DepositPerByte)
}

func TestValidate(t *testing.T) {
	testDefs := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad program id", func(c *Config) { c.ProgramId = "0OIl" }},
		{"bad timeout", func(c *Config) { c.ShutdownTimeout = "soon" }},
		{"negative timeout", func(c *Config) { c.ShutdownTimeout = "-1s" }},
		{"no blob plugin", func(c *Config) { c.BlobPlugin = "" }},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			cfg := DefaultConfig()
			testDef.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
