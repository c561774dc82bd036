// Package config loads the video-summary configuration from defaults, an optional config file, the environment, and
// command-line overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/video-summary/summary"
)

const (
	AppName   = "video-summary"
	EnvPrefix = "VIDEO_SUMMARY"

	DefaultBaseURL = "https://yakovlitvin.pro/8fy"
)

const (
	KeyBaseURL    = "base_url"
	KeyTimeout    = "timeout"
	KeyStream     = "stream"
	KeyChunkSize  = "chunk_size"
	KeyStrictUTF8 = "strict_utf8"
	KeyRetries    = "retries"
	KeyTitle      = "title"
	KeyLogLevel   = "log_level"
)

type Config struct {
	// Origin of the summary service, summaries are at {BaseURL}/summary/{id}.
	BaseURL string `mapstructure:"base_url"`
	// Deadline for each fetch, or 0 for none.
	Timeout time.Duration `mapstructure:"timeout"`
	// Deliver the summary as it arrives, instead of all at once.
	Stream     bool `mapstructure:"stream"`
	ChunkSize  int  `mapstructure:"chunk_size"`
	StrictUTF8 bool `mapstructure:"strict_utf8"`
	// Retries of transient failures.
	Retries int `mapstructure:"retries"`
	// Look up the video title before fetching the summary.
	Title    bool   `mapstructure:"title"`
	LogLevel string `mapstructure:"log_level"`

	// The config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyStream, true)
	v.SetDefault(KeyChunkSize, summary.DefaultChunkSize)
	v.SetDefault(KeyStrictUTF8, false)
	v.SetDefault(KeyRetries, 0)
	v.SetDefault(KeyTitle, false)
	v.SetDefault(KeyLogLevel, "info")
}

// Load reads the configuration. If path is empty, config.{yaml,toml,json} is looked for in the user's config
// directory, and it's fine for there to be none; otherwise the file at path must exist. Values in overrides take
// precedence over everything else.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(dir, AppName))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%s is required", KeyBaseURL)
	case err != nil:
		return fmt.Errorf("invalid %s: %w", KeyBaseURL, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("invalid %s %q: scheme must be http or https", KeyBaseURL, c.BaseURL)
	case u.Host == "":
		return fmt.Errorf("invalid %s %q: missing host", KeyBaseURL, c.BaseURL)
	case c.Timeout < 0:
		return fmt.Errorf("invalid %s %v: must not be negative", KeyTimeout, c.Timeout)
	case c.ChunkSize <= 0:
		return fmt.Errorf("invalid %s %d: must be positive", KeyChunkSize, c.ChunkSize)
	case c.Retries < 0:
		return fmt.Errorf("invalid %s %d: must not be negative", KeyRetries, c.Retries)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}
	return nil
}

// Level returns LogLevel as a zap level.
func (c *Config) Level() (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// FetcherOptions returns the summary.Fetcher options described by the configuration.
func (c *Config) FetcherOptions() []summary.Option {
	return []summary.Option{
		summary.WithStreaming(c.Stream),
		summary.WithChunkSize(c.ChunkSize),
		summary.WithStrictDecoding(c.StrictUTF8),
		summary.WithTimeout(c.Timeout),
	}
}
