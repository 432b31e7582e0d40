// Package config loads tallykeep settings from defaults, a YAML file, a
// .env file and TALLYKEEP_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tallykeep/internal/cloudkv"
	"github.com/roach88/tallykeep/internal/logger"
	"github.com/roach88/tallykeep/internal/model"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TALLYKEEP_"

type Config struct {
	// Storage
	DatabasePath      string        `yaml:"database_path" validate:"required"`
	ReplicaPath       string        `yaml:"replica_path" validate:"required_unless=ReplicaInMemory true"`
	ReplicaInMemory   bool          `yaml:"replica_in_memory"`
	ReplicaRetention  int           `yaml:"replica_retention" validate:"gte=0"`
	ReplicaGCInterval time.Duration `yaml:"replica_gc_interval" validate:"gte=0"`

	// Sync
	AutoBackupInterval time.Duration `yaml:"autobackup_interval" validate:"gte=1s"`

	// Export
	ExportedBy string `yaml:"exported_by" validate:"required,max=64"`

	// Metrics
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	// Logging
	LogLevel      string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat     string `yaml:"log_format" validate:"oneof=console json"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`
}

var configValidate = validator.New()

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		DatabasePath:       "tallykeep.db",
		ReplicaPath:        "tallykeep-replica",
		ReplicaRetention:   20,
		ReplicaGCInterval:  5 * time.Minute,
		AutoBackupInterval: 5 * time.Minute,
		ExportedBy:         model.ExportedBy,
		LogLevel:           "info",
		LogFormat:          "console",
		LogTimeFormat:      time.RFC3339,
		LogOutput:          "stderr",
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it, but a named file that does not exist is an error. A .env
// file in the working directory is loaded when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DB":              &c.DatabasePath,
		"REPLICA_PATH":    &c.ReplicaPath,
		"EXPORTED_BY":     &c.ExportedBy,
		"METRICS_ADDR":    &c.MetricsAddr,
		"LOG_LEVEL":       &c.LogLevel,
		"LOG_FORMAT":      &c.LogFormat,
		"LOG_TIME_FORMAT": &c.LogTimeFormat,
		"LOG_OUTPUT":      &c.LogOutput,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"AUTOBACKUP_INTERVAL": &c.AutoBackupInterval,
		"REPLICA_GC_INTERVAL": &c.ReplicaGCInterval,
	}
	for name, dst := range durations {
		if v, ok := lookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}

	if v, ok := lookupEnv("REPLICA_RETENTION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREPLICA_RETENTION: %w", EnvPrefix, err)
		}
		c.ReplicaRetention = n
	}
	if v, ok := lookupEnv("REPLICA_IN_MEMORY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sREPLICA_IN_MEMORY: %w", EnvPrefix, err)
		}
		c.ReplicaInMemory = b
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetReplicaConfig returns the cloud tier configuration.
func (c *Config) GetReplicaConfig() cloudkv.Config {
	if c.ReplicaInMemory {
		return cloudkv.InMemoryConfig()
	}
	cfg := cloudkv.DefaultConfig(c.ReplicaPath)
	cfg.GCInterval = c.ReplicaGCInterval
	return cfg
}
