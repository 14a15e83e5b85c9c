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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/taleledger/database/plugin"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "taleledger.config"

const (
	DefaultShutdownTimeout      = "30s"
	DefaultBlobPlugin           = "badger"
	DefaultMetadataPlugin       = "sqlite"
	DefaultDatabasePath         = ".taleledger"
	DefaultApiListenAddress     = ":3000"
	DefaultMetricsListenAddress = ":12798"
)

// ErrPluginListRequested is returned when the user asks for the plugin list
// instead of a plugin name
var ErrPluginListRequested = errors.New("plugin list requested")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// tempConfig is the on-disk layout. Plugin sections are keyed by plugin name
// and hold that plugin's options.
type tempConfig struct {
	Config   yaml.Node                 `yaml:"config,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DatabasePath         string `yaml:"databasePath"         split_words:"true"`
	BlobPlugin           string `yaml:"blobPlugin"           split_words:"true"`
	MetadataPlugin       string `yaml:"metadataPlugin"       split_words:"true"`
	ProgramId            string `yaml:"programId"            split_words:"true"`
	DepositBase          uint64 `yaml:"depositBase"          split_words:"true"`
	DepositPerByte       uint64 `yaml:"depositPerByte"       split_words:"true"`
	ApiListenAddress     string `yaml:"apiListenAddress"     split_words:"true"`
	MetricsListenAddress string `yaml:"metricsListenAddress" split_words:"true"`
	Tracing              bool   `yaml:"tracing"`
	TracingStdout        bool   `yaml:"tracingStdout"        split_words:"true"`
	ShutdownTimeout      string `yaml:"shutdownTimeout"      split_words:"true"`
	KeyFile              string `yaml:"keyFile"              split_words:"true"`
}

// DefaultConfig returns a config populated with default values
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:         DefaultDatabasePath,
		BlobPlugin:           DefaultBlobPlugin,
		MetadataPlugin:       DefaultMetadataPlugin,
		DepositBase:          ledger.DefaultDepositBase,
		DepositPerByte:       ledger.DefaultDepositPerByte,
		ApiListenAddress:     DefaultApiListenAddress,
		MetricsListenAddress: DefaultMetricsListenAddress,
		ShutdownTimeout:      DefaultShutdownTimeout,
	}
}

// ProgramAddress parses the configured program ID. An empty value yields the
// zero address.
func (c *Config) ProgramAddress() (ledger.Address, error) {
	if c.ProgramId == "" {
		return ledger.ZeroAddress, nil
	}
	ret, err := ledger.ParseAddress(c.ProgramId)
	if err != nil {
		return ledger.ZeroAddress, fmt.Errorf("invalid programId: %w", err)
	}
	return ret, nil
}

func (c *Config) DepositSchedule() ledger.DepositSchedule {
	return ledger.DepositSchedule{
		Base:    c.DepositBase,
		PerByte: c.DepositPerByte,
	}
}

// ShutdownTimeoutDuration parses ShutdownTimeout, falling back to the default
// when it is empty
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	value := c.ShutdownTimeout
	if value == "" {
		value = DefaultShutdownTimeout
	}
	ret, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", value, err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("shutdownTimeout must be positive, got %s", ret)
	}
	return ret, nil
}

// Validate checks the values that can be checked without opening anything
func (c *Config) Validate() error {
	if _, err := c.ProgramAddress(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if c.BlobPlugin == "" || c.MetadataPlugin == "" {
		return errors.New("blob and metadata plugins must be set")
	}
	return nil
}

// defaultConfigFile looks for a config file in the usual places
func defaultConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".taleledger", "taleledger.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/taleledger/taleledger.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig builds the config from defaults, the YAML file (if any) and
// TALELEDGER_* environment variables, in that order of precedence
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = defaultConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		// Decode straight into cfg so keys absent from the file keep their
		// defaults
		if tempCfg.Config.Kind != 0 {
			if err := tempCfg.Config.Decode(cfg); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(buf, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
		if err := applyPluginConfig(plugin.PluginTypeBlob, tempCfg.Blob); err != nil {
			return nil, err
		}
		if err := applyPluginConfig(plugin.PluginTypeMetadata, tempCfg.Metadata); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("taleledger", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyPluginConfig(pluginType plugin.PluginType, sections map[string]map[string]any) error {
	for pluginName, options := range sections {
		for name, value := range options {
			if err := plugin.SetPluginOption(pluginType, pluginName, name, value); err != nil {
				return fmt.Errorf(
					"error processing %s plugin config: %w",
					plugin.PluginTypeName(pluginType),
					err,
				)
			}
		}
	}
	return nil
}
