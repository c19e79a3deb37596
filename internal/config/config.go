// Package config loads the folio CLI configuration file.
//
// The format follows the extension: .yaml/.yml, .toml or .json (comments and trailing
// commas allowed). Durations are strings such as "30s".
package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "folio.yaml"

// Store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the CLI configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Path   string      `mapstructure:"path"`
	Format string      `mapstructure:"format"`
	Redis  RedisConfig `mapstructure:"redis"`

	// EncryptionKey, when set, encrypts stored documents with AES-256-GCM. It is the
	// base64 encoding of 32 bytes. FallbackKeys still decrypt documents written before
	// a key rotation.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
}

// Keys decodes the encryption keys. The active key is nil when encryption is off.
func (c StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(c.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// RedisConfig configures the Redis store and the distributed locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// HTTPConfig configures `folio serve`.
type HTTPConfig struct {
	Port    int  `mapstructure:"port"`
	Metrics bool `mapstructure:"metrics"`
}

// History modes.
const (
	HistoryCommands  = "commands"
	HistorySnapshots = "snapshots"
)

// HistoryConfig configures undo history. Mode selects command inverses or whole
// document snapshots.
type HistoryConfig struct {
	Limit int    `mapstructure:"limit"`
	Mode  string `mapstructure:"mode"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: StoreFile,
			Path:   ".folio/documents",
			Format: "json",
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				LockTTL: 30 * time.Second,
			},
		},
		HTTP:    HTTPConfig{Port: 8080, Metrics: true},
		History: HistoryConfig{Limit: 100, Mode: HistoryCommands},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path tries DefaultFile and falls back to
// the defaults when it does not exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	raw, err := parse(data, filepath.Ext(path))
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that have a closed set of choices.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Store.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown store format %q", c.Store.Format)
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	switch c.History.Mode {
	case HistoryCommands, HistorySnapshots:
	default:
		return fmt.Errorf("unknown history mode %q", c.History.Mode)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative")
	}
	return nil
}

func parse(data []byte, ext string) (map[string]any, error) {
	raw := map[string]any{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			return nil, err
		}
	case ".json":
		standardized, err := hujson.Standardize(bytes.Clone(data))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(standardized, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
	return raw, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
