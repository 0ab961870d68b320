// Package config loads the process configuration: built-in defaults, then an
// optional YAML file, then SIMKERNEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/observability/trace"
	"github.com/zeusync/simkernel/internal/core/router"
	"github.com/zeusync/simkernel/internal/core/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIMKERNEL_"

type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Rules   RulesConfig   `yaml:"rules" envPrefix:"RULES_"`
	Router  router.Config `yaml:"router" envPrefix:"ROUTER_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Tracing trace.Config  `yaml:"tracing" envPrefix:"TRACING_"`
}

type LogConfig struct {
	Level    log.Level `yaml:"level" env:"LEVEL"`
	Encoding string    `yaml:"encoding" env:"ENCODING"`
}

// RulesConfig names the optional ruleset file and Lua script directory loaded
// on top of the built-in types.
type RulesConfig struct {
	Ruleset string `yaml:"ruleset" env:"RULESET"`
	Scripts string `yaml:"scripts" env:"SCRIPTS"`
}

// StorageConfig enables persistence when Path is set.
type StorageConfig struct {
	Path      string                  `yaml:"path" env:"PATH"`
	Persister storage.PersisterConfig `yaml:"persister" envPrefix:"PERSISTER_"`
}

func Default() Config {
	return Config{
		Log:     LogConfig{Level: log.LevelInfo, Encoding: "json"},
		Router:  router.DefaultConfig(),
		Storage: StorageConfig{Persister: storage.DefaultPersisterConfig()},
		Tracing: trace.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file at path when path
// is not empty, and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Log.Encoding {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log encoding %q must be json or console", c.Log.Encoding))
	}
	if err := c.Router.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.Path != "" {
		if err := c.Storage.Persister.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
