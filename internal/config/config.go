// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ffutop/savestate/internal/persistence"
)

// Config defines the global configuration structure
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Save        SaveConfig        `mapstructure:"save"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	API         APIConfig         `mapstructure:"api"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// SaveConfig defines how saves are captured, encoded and restored
type SaveConfig struct {
	MaxSaves          int              `mapstructure:"max_saves"`   // 0 means unlimited; the autosave never counts
	Format            string           `mapstructure:"format"`      // "json", "yaml", "binary"
	Compression       string           `mapstructure:"compression"` // "none", "gzip", "zstd", "snappy"
	Threading         bool             `mapstructure:"threading"`   // Encode and write on the background writer
	WriteRetries      int              `mapstructure:"write_retries"`
	RetryInterval     time.Duration    `mapstructure:"retry_interval"`
	AlwaysReloadScene bool             `mapstructure:"always_reload_scene"`
	LabelWithDate     bool             `mapstructure:"label_with_date"`
	Screenshots       ScreenshotConfig `mapstructure:"screenshots"`
}

// ScreenshotConfig defines when a screenshot is stored with a save
type ScreenshotConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Autosave bool `mapstructure:"autosave"`
}

// StorageConfig defines the storage backend
type StorageConfig struct {
	Type   string    `mapstructure:"type"`   // "memory", "file", "mmap", "sql"
	Path   string    `mapstructure:"path"`   // Directory for "file/mmap" type
	Prefix string    `mapstructure:"prefix"` // Save file name prefix
	SQL    SQLConfig `mapstructure:"sql"`
}

// SQLConfig defines database settings for the "sql" storage type
type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// PreferencesConfig defines where slot labels and recent slots are kept
type PreferencesConfig struct {
	Path string `mapstructure:"path"` // Empty keeps preferences in memory
}

// APIConfig defines the inspection HTTP server
type APIConfig struct {
	Address string `mapstructure:"address"`
}

// Options converts the storage settings for persistence.Open.
func (s StorageConfig) Options() persistence.Options {
	return persistence.Options{
		Type:      s.Type,
		Path:      s.Path,
		Prefix:    s.Prefix,
		SQLDriver: s.SQL.Driver,
		SQLDSN:    s.SQL.DSN,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("save.max_saves", 5)
	v.SetDefault("save.format", "json")
	v.SetDefault("save.compression", "none")
	v.SetDefault("save.threading", false)
	v.SetDefault("save.write_retries", 3)
	v.SetDefault("save.retry_interval", 50*time.Millisecond)
	v.SetDefault("save.always_reload_scene", false)
	v.SetDefault("save.label_with_date", false)
	v.SetDefault("save.screenshots.enabled", false)
	v.SetDefault("save.screenshots.autosave", false)
	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.path", "./saves")
	v.SetDefault("storage.prefix", persistence.DefaultPrefix)
	v.SetDefault("storage.sql.driver", persistence.DefaultSQLDriver)
	v.SetDefault("storage.sql.dsn", "")
	v.SetDefault("preferences.path", "./saves/preferences.yaml")
	v.SetDefault("api.address", "127.0.0.1:8089")
}

// LoadConfig loads configuration from file. With no file given, the default
// search paths are tried and a missing file falls back to defaults.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/savestate/")
		v.AddConfigPath("$HOME/.savestate")
		v.AddConfigPath(".")
	}

	setDefaults(v)
	v.SetEnvPrefix("SAVESTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixup(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults alone always decode.
	_ = v.Unmarshal(&config)
	fixup(&config)
	return &config
}

func fixup(c *Config) {
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Save.Format = strings.ToLower(c.Save.Format)
	c.Save.Compression = strings.ToLower(c.Save.Compression)
	c.Storage.Type = strings.ToLower(c.Storage.Type)
	if c.Save.WriteRetries < 0 {
		c.Save.WriteRetries = 0
	}
}

// Validate rejects unknown names before any component is built.
func (c *Config) Validate() error {
	check := func(field, value string, allowed ...string) error {
		for _, a := range allowed {
			if value == a {
				return nil
			}
		}
		return fmt.Errorf("invalid %s %q (want one of %s)", field, value, strings.Join(allowed, ", "))
	}
	if err := check("log.level", c.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := check("save.format", c.Save.Format, "json", "yaml", "binary"); err != nil {
		return err
	}
	if err := check("save.compression", c.Save.Compression, "none", "gzip", "zstd", "snappy"); err != nil {
		return err
	}
	if err := check("storage.type", c.Storage.Type, "memory", "file", "mmap", "sql"); err != nil {
		return err
	}
	if c.Save.MaxSaves < 0 {
		return fmt.Errorf("invalid save.max_saves %d", c.Save.MaxSaves)
	}
	if c.Storage.Type == "sql" && c.Storage.SQL.DSN == "" {
		return errors.New("storage.sql.dsn is required for sql storage")
	}
	return nil
}
