package dupehash

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// DefaultEnvPrefix is the environment prefix LoadConfig uses when none is
// given, e.g. DUPEHASH_MEMORY_LIMIT_BYTES.
const DefaultEnvPrefix = "DUPEHASH"

// Config holds engine settings that can be loaded from the environment.
type Config struct {
	// MemoryLimitBytes caps memory held by results. 0 means unlimited.
	MemoryLimitBytes int64 `envconfig:"MEMORY_LIMIT_BYTES" default:"0"`

	// Workers is the parallelism for batch encode and pair search.
	Workers int `envconfig:"WORKERS" default:"1"`

	// LogLevel is debug, info, warn or error. Empty disables logging.
	LogLevel string `envconfig:"LOG_LEVEL"`

	// LogFormat is text or json.
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig reads Config from environment variables under prefix.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if c.MemoryLimitBytes < 0 {
		return fmt.Errorf("%w: memory limit %d", ErrInvalidInput, c.MemoryLimitBytes)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidInput, c.Workers)
	}
	if _, err := c.Logger(); err != nil {
		return err
	}
	return nil
}

// Logger builds the logger described by LogLevel and LogFormat.
func (c Config) Logger() (*Logger, error) {
	if c.LogLevel == "" {
		return NoopLogger(), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("%w: log level %q", ErrInvalidInput, c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return NewTextLogger(level), nil
	case "json":
		return NewJSONLogger(level), nil
	default:
		return nil, fmt.Errorf("%w: log format %q", ErrInvalidInput, c.LogFormat)
	}
}
