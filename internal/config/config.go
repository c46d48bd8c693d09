// Package config loads the YAML configuration of the symten command.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root of symten.yaml.
type Config struct {
	SVD SVDConfig `yaml:"svd"`
	Log LogConfig `yaml:"log"`
	IO  IOConfig  `yaml:"io"`
}

// SVDConfig holds decomposition defaults.
type SVDConfig struct {
	// KeepDim caps the number of singular values kept across all sectors.
	// Zero keeps everything.
	KeepDim int `yaml:"keepdim"`
	// Err drops singular values below it.
	Err float64 `yaml:"err"`
	// Workers bounds concurrent sector factorizations; 0 means one per CPU.
	Workers int `yaml:"workers"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// IOConfig controls file handling.
type IOConfig struct {
	VerifyChecksum bool `yaml:"verify_checksum"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SVD: SVDConfig{KeepDim: 0, Err: 0, Workers: 0},
		Log: LogConfig{Level: "info", Format: "text"},
		IO:  IOConfig{VerifyChecksum: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	//nolint:gosec // G304: path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.SVD.KeepDim < 0 {
		errs = append(errs, fmt.Errorf("svd.keepdim must not be negative, got %d", c.SVD.KeepDim))
	}
	if c.SVD.Err < 0 {
		errs = append(errs, fmt.Errorf("svd.err must not be negative, got %g", c.SVD.Err))
	}
	if c.SVD.Workers < 0 {
		errs = append(errs, fmt.Errorf("svd.workers must not be negative, got %d", c.SVD.Workers))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level: unknown level %q", s)
	}
	return l, nil
}

// Logger builds a logger writing to w as configured. The config must be
// valid.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
