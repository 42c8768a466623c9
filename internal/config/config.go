// Package config provides configuration for the recordd demo server.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither file nor environment provide a value.
const (
	DefaultListen   = ":8484"
	DefaultLogLevel = "info"
	DefaultDriver   = "sqlite"
	DefaultDSN      = "recordd.db"
)

// Database holds connection settings for the demo server.
type Database struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

// Config holds the demo server configuration.
type Config struct {
	Listen   string   `yaml:"listen"`
	LogLevel string   `yaml:"log_level"`
	APIToken string   `yaml:"api_token"`
	Database Database `yaml:"database"`
}

// Load reads the config file at path (a missing file is fine, defaults apply)
// and then applies RECORDD_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Listen:   DefaultListen,
		LogLevel: DefaultLogLevel,
		Database: Database{Driver: DefaultDriver, DSN: DefaultDSN},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file: defaults plus env.
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RECORDD_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("RECORDD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RECORDD_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("RECORDD_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("RECORDD_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("RECORDD_DB_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Database.MaxConns = n
		}
	}
}

// Watch reloads the config file on changes and calls onChange with the new
// configuration. It blocks until ctx is done. Parse failures keep the old
// config.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and config tools replace
	// files via rename, which would drop a file-level watch after the first
	// reload.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Config reload failed, keeping previous")
				continue
			}
			log.Info().Str("path", path).Msg("Config reloaded")
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}
