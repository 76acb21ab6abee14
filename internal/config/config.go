// Package config loads the costbook configuration file.
//
// The file is YAML; unknown keys are rejected so typos surface instead of
// being silently ignored. Missing keys keep their defaults. A missing file
// is not an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/costbook/internal/recipe"
)

// Defaults.
const (
	DefaultRowsFile     = "costbook.db"
	DefaultProfilesFile = "profiles.sqlite"
	DefaultDebounce     = 400 * time.Millisecond
	DefaultLogLevel     = "info"
	FileName            = "config.yaml"
)

// Config is the resolved configuration.
type Config struct {
	DataDir          string        `yaml:"dataDir" validate:"required"`
	RowsFile         string        `yaml:"rowsFile" validate:"required"`
	ProfilesFile     string        `yaml:"profilesFile" validate:"required"`
	Debounce         time.Duration `yaml:"debounce" validate:"min=0,max=1m"`
	DefaultMarginPct float64       `yaml:"defaultMarginPct" validate:"gte=0,lte=1000"`
	LogLevel         string        `yaml:"logLevel" validate:"oneof=debug info warn error"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir:          DefaultDataDir(),
		RowsFile:         DefaultRowsFile,
		ProfilesFile:     DefaultProfilesFile,
		Debounce:         DefaultDebounce,
		DefaultMarginPct: recipe.DefaultMarginPct,
		LogLevel:         DefaultLogLevel,
	}
}

// DefaultDataDir is <user config dir>/costbook, or .costbook in the working
// directory when the user config dir is unknown.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".costbook"
	}
	return filepath.Join(dir, "costbook")
}

// DefaultPath is the config file inside the default data dir.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), FileName)
}

// Load reads path over the defaults and validates the result. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// RowsPath is the bbolt file holding rows, cache, settings and metadata.
func (c *Config) RowsPath() string {
	return filepath.Join(c.DataDir, c.RowsFile)
}

// ProfilesPath is the SQLite profile store file.
func (c *Config) ProfilesPath() string {
	return filepath.Join(c.DataDir, c.ProfilesFile)
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
