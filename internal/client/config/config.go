// Package config loads the client configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/models"
)

// Переменные окружения, перекрывающие файл конфигурации
const (
	EnvServer  = "FIELDSYNC_SERVER"
	EnvDataDir = "FIELDSYNC_DATA_DIR"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the client configuration.
type Config struct {
	Entities       map[string]api.Endpoint `yaml:"entities"`
	Server         string                  `yaml:"server"`
	DataDir        string                  `yaml:"data_dir"`
	Debounce       time.Duration           `yaml:"debounce"`
	TombstoneTTL   time.Duration           `yaml:"tombstone_ttl"`
	RequestTimeout time.Duration           `yaml:"request_timeout"`
	PullRetries    uint64                  `yaml:"pull_retries"`
	AutoSync       bool                    `yaml:"auto_sync"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := ".fieldsync"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".fieldsync")
	}

	return &Config{
		Server:         "http://localhost:8080",
		DataDir:        dataDir,
		Debounce:       2 * time.Second,
		TombstoneTTL:   24 * time.Hour,
		RequestTimeout: 30 * time.Second,
		PullRetries:    3,
		AutoSync:       true,
	}
}

// Load reads the YAML file at path over the defaults and applies environment overrides.
// A missing file is not an error: the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvServer); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("%w: server is required", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalidConfig)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("%w: debounce must be positive", ErrInvalidConfig)
	}
	if c.TombstoneTTL <= 0 {
		return fmt.Errorf("%w: tombstone_ttl must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}

	for name, ep := range c.Entities {
		t, err := models.ParseEntityType(name)
		if err != nil {
			return fmt.Errorf("%w: entities: %w", ErrInvalidConfig, err)
		}
		if ep.Path == "" {
			return fmt.Errorf("%w: entities.%s: endpoint is required", ErrInvalidConfig, t)
		}
	}
	return nil
}

// Endpoints returns the endpoint overrides keyed by entity type.
// Types not configured keep their default endpoint; aliases default when omitted.
func (c *Config) Endpoints() map[models.EntityType]api.Endpoint {
	defaults := api.DefaultEndpoints()
	out := make(map[models.EntityType]api.Endpoint, len(c.Entities))
	for name, ep := range c.Entities {
		t, err := models.ParseEntityType(name)
		if err != nil {
			continue
		}
		if len(ep.IDAliases) == 0 {
			ep.IDAliases = defaults[t].IDAliases
		}
		out[t] = ep
	}
	return out
}

// IDAliases returns the id aliases of every entity type, defaults merged with overrides.
func (c *Config) IDAliases() map[models.EntityType][]string {
	out := make(map[models.EntityType][]string)
	for t, ep := range api.DefaultEndpoints() {
		out[t] = ep.IDAliases
	}
	for t, ep := range c.Endpoints() {
		out[t] = ep.IDAliases
	}
	return out
}
