// Package config holds the wasmload configuration file format.
package config

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/logger"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes bounds a fetched module.
	DefaultMaxBytes = Size(engine.DefaultMaxModuleBytes)
)

// Config represents the configuration format for the wasmload binary.
type Config struct {
	Fetch  Fetch         `toml:"fetch"`
	Engine Engine        `toml:"engine"`
	Log    logger.Config `toml:"log"`
}

// Fetch configures where modules come from.
type Fetch struct {
	BaseURL   string   `toml:"base-url"`
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user-agent"`
	MaxBytes  Size     `toml:"max-bytes"`
	// Root serves bare and file: paths from a local directory.
	Root string `toml:"root"`
}

// Engine configures the wazero runtime.
type Engine struct {
	MemoryLimitPages    uint32 `toml:"memory-limit-pages"`
	CompilationCacheDir string `toml:"compilation-cache-dir"`
	Threads             bool   `toml:"threads"`
	CloseOnContextDone  bool   `toml:"close-on-context-done"`
}

// New returns an instance of Config with reasonable defaults.
func New() *Config {
	return &Config{
		Fetch: Fetch{
			Timeout:  Duration(DefaultTimeout),
			MaxBytes: DefaultMaxBytes,
		},
		Log: logger.NewConfig(),
	}
}

// Load parses the configuration file at path on top of the defaults.
func Load(path string) (*Config, error) {
	c := New()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode "+path)
	}
	return c, nil
}

// Parse parses a configuration string on top of the defaults.
func Parse(s string) (*Config, error) {
	c := New()
	if _, err := toml.Decode(s, c); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode config")
	}
	return c, nil
}

// Write encodes the config as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.Fetch.BaseURL != "" {
		u, err := url.Parse(c.Fetch.BaseURL)
		if err != nil || !u.IsAbs() {
			return errors.InvalidInput(errors.PhaseConfig, "fetch.base-url must be an absolute URL")
		}
	}
	if c.Fetch.Timeout < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "fetch.timeout must not be negative")
	}
	if c.Fetch.MaxBytes <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "fetch.max-bytes must be positive")
	}
	if c.Engine.MemoryLimitPages > 65536 {
		return errors.InvalidInput(errors.PhaseConfig, "engine.memory-limit-pages must be at most 65536")
	}
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log")
	}
	return nil
}

// EngineConfig converts the engine section for engine.NewWithConfig.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{
		CompilationCacheDir: c.Engine.CompilationCacheDir,
		MaxModuleBytes:      int64(c.Fetch.MaxBytes),
		MemoryLimitPages:    c.Engine.MemoryLimitPages,
		EnableThreads:       c.Engine.Threads,
		CloseOnContextDone:  c.Engine.CloseOnContextDone,
	}
}

// Duration is a TOML wrapper type for time.Duration.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText parses a TOML value into a duration value.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return nil
	}
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText converts a duration to a string for encoding toml.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Size is a byte count. Text values may carry a "k", "m" or "g" suffix.
type Size int64

// UnmarshalText parses a byte size from text.
func (s *Size) UnmarshalText(text []byte) error {
	str := strings.ToLower(strings.TrimSpace(string(text)))
	if str == "" {
		return nil
	}

	mult := int64(1)
	switch str[len(str)-1] {
	case 'k':
		mult = 1 << 10
	case 'm':
		mult = 1 << 20
	case 'g':
		mult = 1 << 30
	}
	if mult != 1 {
		str = str[:len(str)-1]
	}

	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid size %q", text)
	}
	if n > (1<<63-1)/mult {
		return fmt.Errorf("size %q overflows", text)
	}
	*s = Size(n * mult)
	return nil
}

// MarshalText writes the size as a plain byte count.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(s), 10)), nil
}
