// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads the gatehouse configuration: built-in defaults,
// then an optional yaml file, then command-line flags, each layer
// overriding the previous one.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Auth is the authentication policy.
type Auth struct {
	Required         bool          `koanf:"required"`
	Timeout          time.Duration `koanf:"timeout"`
	ReminderInterval time.Duration `koanf:"reminderInterval"`
}

// Gate tunes the restriction gate.
type Gate struct {
	// ReminderDebounce caps blocked-action reminders to one per window.
	ReminderDebounce time.Duration `koanf:"reminderDebounce"`
}

// Teleports controls post-login placement.
type Teleports struct {
	SavePosition bool `koanf:"savePosition"`
	ToSpawn      bool `koanf:"toSpawn"`
}

// Proxy configures cross-server handoff.
type Proxy struct {
	Enabled     bool   `koanf:"enabled"`
	SpawnServer string `koanf:"spawnServer"`
	Channel     string `koanf:"channel"`
	URL         string `koanf:"url"`
}

// IPRecords configures address-based auto-login after a quick rejoin.
type IPRecords struct {
	Enabled bool          `koanf:"enabled"`
	Delay   time.Duration `koanf:"delay"`
}

// Database selects and configures the credential backend.
type Database struct {
	Type string `koanf:"type"`
	Path string `koanf:"path"`
	URL  string `koanf:"url"`
}

// Messages points at the message catalog override file.
type Messages struct {
	File string `koanf:"file"`
}

// Locations points at the saved-locations file.
type Locations struct {
	File string `koanf:"file"`
}

// Config is the full gatehouse configuration.
type Config struct {
	Auth           Auth      `koanf:"auth"`
	Gate           Gate      `koanf:"gate"`
	Teleports      Teleports `koanf:"teleports"`
	LoginBroadcast bool      `koanf:"loginBroadcast"`
	Proxy          Proxy     `koanf:"proxy"`
	IPRecords      IPRecords `koanf:"ipRecords"`
	Database       Database  `koanf:"database"`
	Messages       Messages  `koanf:"messages"`
	Locations      Locations `koanf:"locations"`
	CheckUpdates   bool      `koanf:"checkUpdates"`
	MetricsAddr    string    `koanf:"metricsAddr"`
	LogFormat      string    `koanf:"logFormat"`
}

var defaults = map[string]interface{}{
	"auth.required":         true,
	"auth.timeout":          "60s",
	"auth.reminderInterval": "10s",
	"gate.reminderDebounce": "3s",
	"teleports.savePosition": false,
	"teleports.toSpawn":      true,
	"loginBroadcast":         true,
	"proxy.enabled":          false,
	"proxy.spawnServer":      "",
	"proxy.channel":          "gatehouse:handoff",
	"proxy.url":              "",
	"ipRecords.enabled":      false,
	"ipRecords.delay":        "10s",
	"database.type":          "file",
	"database.path":          "accounts.yml",
	"database.url":           "",
	"messages.file":          "messages.yml",
	"locations.file":         "locations.yml",
	"checkUpdates":           true,
	"metricsAddr":            "127.0.0.1:9100",
	"logFormat":              "json",
}

// flagKeys maps CLI flag names to config keys. Flags not listed here
// map to themselves.
var flagKeys = map[string]string{
	"metrics-addr":  "metricsAddr",
	"log-format":    "logFormat",
	"database-type": "database.type",
	"database-path": "database.path",
	"database-url":  "database.url",
}

// Load builds a Config. path may be empty (defaults + flags only); a
// missing file at an explicitly given path is an error. flags may be
// nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, oops.Code("CONFIG_DEFAULTS_FAILED").Wrap(err)
	}

	if path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			code := "CONFIG_LOAD_FAILED"
			if errors.Is(statErr, fs.ErrNotExist) {
				code = "CONFIG_NOT_FOUND"
			}
			return nil, oops.Code(code).With("path", path).Wrap(statErr)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key := flagKeys[f.Name]
			if key == "" {
				key = f.Name
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "file":
		if c.Database.Path == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database.path is required for the file backend")
		}
	case "postgres", "redis":
		if c.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database.url is required for the %s backend", c.Database.Type)
		}
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("database.type must be file, postgres, or redis, got %q", c.Database.Type)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("logFormat must be json or text, got %q", c.LogFormat)
	}

	if c.Auth.Required {
		if c.Auth.Timeout <= 0 {
			return oops.Code("CONFIG_INVALID").Errorf("auth.timeout must be positive")
		}
		if c.Auth.ReminderInterval <= 0 {
			return oops.Code("CONFIG_INVALID").Errorf("auth.reminderInterval must be positive")
		}
	}

	if c.Gate.ReminderDebounce < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("gate.reminderDebounce must not be negative")
	}

	if c.Proxy.Enabled {
		if c.Proxy.SpawnServer == "" {
			return oops.Code("CONFIG_INVALID").Errorf("proxy.spawnServer is required when the proxy is enabled")
		}
		if c.Proxy.URL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("proxy.url is required when the proxy is enabled")
		}
	}

	if c.IPRecords.Enabled && c.IPRecords.Delay <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("ipRecords.delay must be positive")
	}

	return nil
}
