// Package config loads the CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "layersync.toml"

// Config holds CLI settings.
type Config struct {
	// Database is the SQLite file used by trace and snapshot commands.
	Database string

	// LogLevel is the level logging starts at before --verbose.
	LogLevel slog.Level

	// SynchronizedProperties are the keys records keep equal with their
	// entities.
	SynchronizedProperties []string

	// SessionPrefix is prepended to scenario names to form trace session
	// names.
	SessionPrefix string
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Database:               "layersync.db",
		LogLevel:               slog.LevelInfo,
		SynchronizedProperties: append([]string(nil), record.DefaultSynchronizedProperties...),
		SessionPrefix:          "",
	}
}

type fileConfig struct {
	Database               string   `toml:"database"`
	LogLevel               string   `toml:"log_level"`
	SynchronizedProperties []string `toml:"synchronized_properties"`
	SessionPrefix          string   `toml:"session_prefix"`
}

// Load reads path over the defaults. Only keys present in the file
// override a default. A missing file is not an error unless required.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("database") {
		if db := strings.TrimSpace(raw.Database); db != "" {
			cfg.Database = db
		}
	}

	if meta.IsDefined("log_level") {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("synchronized_properties") {
		keys, err := normalizeKeys(raw.SynchronizedProperties)
		if err != nil {
			return Config{}, err
		}
		cfg.SynchronizedProperties = keys
	}

	if meta.IsDefined("session_prefix") {
		cfg.SessionPrefix = strings.TrimSpace(raw.SessionPrefix)
	}

	return cfg, nil
}

// Session names the trace session of a scenario run.
func (c Config) Session(scenario string) string {
	return c.SessionPrefix + scenario
}

// normalizeKeys trims and de-duplicates property keys. The record's own
// derived fields cannot be synchronized.
func normalizeKeys(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, key := range in {
		k := strings.TrimSpace(key)
		if k == "" || seen[k] {
			continue
		}
		switch k {
		case record.FieldText, record.FieldQtip, record.FieldIsGroup, ir.KeyName:
			return nil, fmt.Errorf("synchronized_properties: %q cannot be synchronized", k)
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}
