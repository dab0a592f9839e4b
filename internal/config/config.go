package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"depflow/internal/snapshot"
)

// ErrInvalidOption is returned by Validate.
var ErrInvalidOption = errors.New("invalid option")

type Config struct {
	Server struct {
		Host          string `yaml:"host"`
		Port          int    `yaml:"port"`
		AllowedOrigin string `yaml:"allowed_origin"`
	} `yaml:"server"`
	Snapshot string           `yaml:"snapshot"` // file served at start-up
	Display  snapshot.Options `yaml:"display"`
	Watch    struct {
		Enabled  bool          `yaml:"enabled"`
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"watch"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Scan struct {
		Ignore    []string `yaml:"ignore"`
		Languages []string `yaml:"languages"`
	} `yaml:"scan"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 3001
	cfg.Server.AllowedOrigin = "*"
	cfg.Display = snapshot.DefaultOptions()
	cfg.Watch.Enabled = true
	cfg.Watch.Debounce = 100 * time.Millisecond
	cfg.Cache.Size = snapshot.DefaultCacheSize
	cfg.Scan.Languages = []string{"go", "javascript", "typescript"}
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads .env, then the YAML file at path if it exists, then the
// DEPFLOW_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DEPFLOW_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: DEPFLOW_PORT=%q", ErrInvalidOption, v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DEPFLOW_COLLAPSE"); v != "" {
		collapse, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: DEPFLOW_COLLAPSE=%q", ErrInvalidOption, v)
		}
		c.Display.Collapse = collapse
	}
	if v := os.Getenv("DEPFLOW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DEPFLOW_SNAPSHOT"); v != "" {
		c.Snapshot = v
	}
	return nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidOption, c.Server.Port)
	}
	if c.Display.Padding < 0 {
		return fmt.Errorf("%w: padding %v", ErrInvalidOption, c.Display.Padding)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("%w: cache size %d", ErrInvalidOption, c.Cache.Size)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: debounce %v", ErrInvalidOption, c.Watch.Debounce)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Addr is the listen address of the server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidOption, s)
}

// NewLogger builds the text logger every command writes diagnostics to.
func NewLogger(level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}
