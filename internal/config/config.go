// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

// Package config loads Siphon's configuration via Koanf v2 with layered
// sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. SIPHON_-prefixed environment variables
//
// Examples:
//
//	SIPHON_S3_REGION=eu-central-1        -> s3.region
//	SIPHON_DATABASE_PATH=/data/out.db    -> database.path
//	SIPHON_IMPORT_CONCURRENCY=4          -> import.concurrency
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"siphon.yaml",
	"siphon.yml",
	"/etc/siphon/config.yaml",
	"/etc/siphon/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "SIPHON_CONFIG"

// envPrefix namespaces Siphon's environment variables.
const envPrefix = "SIPHON_"

// Config is the root configuration.
type Config struct {
	S3       S3Config       `koanf:"s3"`
	Database DatabaseConfig `koanf:"database"`
	Import   ImportConfig   `koanf:"import"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// S3Config holds object-store connection settings.
type S3Config struct {
	// Bucket overrides the per-file-kind default bucket when set.
	Bucket string `koanf:"bucket"`

	// Prefix overrides the per-file-kind default key prefix when set.
	Prefix string `koanf:"prefix"`

	// Region is the AWS region.
	Region string `koanf:"region"`

	// Endpoint points at a non-AWS S3-compatible store when set.
	Endpoint string `koanf:"endpoint"`

	// ForcePathStyle uses path-style bucket addressing (MinIO et al).
	ForcePathStyle bool `koanf:"force_path_style"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// ImportConfig holds scheduler settings.
type ImportConfig struct {
	// Concurrency caps the number of files in flight simultaneously.
	Concurrency int `koanf:"concurrency"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		S3: S3Config{
			Region: "us-west-2",
		},
		Database: DatabaseConfig{
			Path:      "siphon.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Import: ImportConfig{
			Concurrency: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, file, and environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Import.Concurrency < 1 {
		return fmt.Errorf("import.concurrency must be at least 1, got %d", c.Import.Concurrency)
	}
	if c.S3.Region == "" && c.S3.Endpoint == "" {
		return fmt.Errorf("s3.region or s3.endpoint must be set")
	}
	return nil
}

// findConfigFile returns the first config file that exists, honoring the
// SIPHON_CONFIG override, or empty string when none is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps SIPHON_SECTION_SOME_KEY to section.some_key. Only the
// first underscore separates the section; the rest of the name is the key.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(key, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}
