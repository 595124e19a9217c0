// Package config loads tapsource settings from defaults, an optional config
// file and TAPSOURCE_* environment variables, in increasing precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "tapsource"
	// EnvPrefix prefixes environment overrides, e.g. TAPSOURCE_MERGE=true.
	EnvPrefix = "TAPSOURCE"
)

type (
	// Config is the resolved configuration.
	Config struct {
		// Merge interleaves child stderr into the streamed lines.
		Merge bool `mapstructure:"merge"`
		// CloseGrace bounds how long closing an abandoned stream waits before killing the child.
		CloseGrace time.Duration `mapstructure:"close_grace"`
		// LogLevel is one of debug, info, warn, error, fatal.
		LogLevel   string          `mapstructure:"log_level"`
		Executable ExtensionConfig `mapstructure:"executable"`
		File       ExtensionConfig `mapstructure:"file"`
	}

	// ExtensionConfig lists the file extensions a detector claims.
	ExtensionConfig struct {
		Extensions []string `mapstructure:"extensions"`
	}

	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific config file when set.
		ConfigFilePath string
		// SearchPaths are directories searched for tapsource.{yaml,toml,json}
		// when ConfigFilePath is empty. Nil searches the working directory.
		SearchPaths []string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	viperProvider struct{}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Merge:      false,
		CloseGrace: 5 * time.Second,
		LogLevel:   "info",
		Executable: ExtensionConfig{Extensions: []string{".sh", ".bat"}},
		File:       ExtensionConfig{Extensions: []string{".tap"}},
	}
}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &viperProvider{}
}

// Load reads configuration from the requested source.
func (p *viperProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("merge", defaults.Merge)
	v.SetDefault("close_grace", defaults.CloseGrace)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("executable.extensions", defaults.Executable.Extensions)
	v.SetDefault("file.extensions", defaults.File.Extensions)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		v.SetConfigName(AppName)
		paths := opts.SearchPaths
		if paths == nil {
			paths = []string{"."}
		}
		for _, path := range paths {
			v.AddConfigPath(path)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			// No config file; defaults and environment apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that cannot be applied.
func (c *Config) Validate() error {
	if c.CloseGrace < 0 {
		return fmt.Errorf("close_grace must not be negative, got %s", c.CloseGrace)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}
