package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/logging"
	"ccsim/pkg/scheduler"
)

// Config is the process-wide configuration. It carries settings only; no
// transaction state lives here.
type Config struct {
	// Algorithm is the protocol used when a caller does not choose one.
	Algorithm string `yaml:"algorithm"`

	Simulation scheduler.Options `yaml:"simulation"`
	Server     ServerConfig      `yaml:"server"`
	Batch      BatchConfig       `yaml:"batch"`
	Logging    logging.Config    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Address to bind to (default: "127.0.0.1")
	Address string `yaml:"address"`
	// Port to listen on (default: 5000, the port the browser client expects)
	Port int `yaml:"port"`
	// ReadTimeout for requests
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout for responses
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxRequestSize in bytes (default: 1MB)
	MaxRequestSize int64 `yaml:"max_request_size"`
	// EnableCORS allows the browser client to call the API from another origin
	EnableCORS bool `yaml:"enable_cors"`
	// EnableMetrics exposes Prometheus metrics on /metrics
	EnableMetrics bool `yaml:"enable_metrics"`
}

// BatchConfig controls -batch runs.
type BatchConfig struct {
	// Parallelism caps concurrent simulations; 0 means no limit.
	Parallelism int `yaml:"parallelism"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Algorithm:  string(scheduler.TwoPhaseLocking),
		Simulation: scheduler.DefaultOptions(),
		Server: ServerConfig{
			Address:        "127.0.0.1",
			Port:           5000,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxRequestSize: 1 << 20,
			EnableCORS:     true,
			EnableMetrics:  true,
		},
		Batch: BatchConfig{
			Parallelism: 4,
		},
		Logging: logging.Config{
			Level:  logging.LevelInfo,
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values; unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeInvalidConfig, "Load", "Config")
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, dberr.New(dberr.ErrCategoryUser, dberr.CodeInvalidConfig, "invalid configuration file").
			WithDetail("%v", err).
			At("Parse", "Config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the YAML decoder cannot.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return dberr.New(dberr.ErrCategoryUser, dberr.CodeInvalidConfig, "invalid configuration").
			WithDetail(format, args...).
			At("Validate", "Config")
	}

	if _, err := scheduler.ParseAlgorithm(c.Algorithm); err != nil {
		return invalid("%v", err)
	}
	if c.Simulation.MaxDeadlockRestarts < 0 {
		return invalid("simulation.max_deadlock_restarts must not be negative, got %d", c.Simulation.MaxDeadlockRestarts)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxRequestSize <= 0 {
		return invalid("server.max_request_size must be positive")
	}
	if c.Batch.Parallelism < 0 {
		return invalid("batch.parallelism must not be negative, got %d", c.Batch.Parallelism)
	}
	return nil
}

// DefaultAlgorithm returns the validated default algorithm.
func (c *Config) DefaultAlgorithm() scheduler.Algorithm {
	alg, err := scheduler.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return scheduler.TwoPhaseLocking
	}
	return alg
}

// Marshal renders the configuration as YAML, e.g. for -print-config.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
