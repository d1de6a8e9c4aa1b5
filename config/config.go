//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoETL.
//
// GoETL is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoETL is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoETL. If not, see https://www.gnu.org/licenses/.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/aaronlmathis/goetl-obfuscator/location"
)

var (
	// ErrConfigNotFound indicates the configuration file was not found
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrInvalidValue indicates a field has an invalid value
	ErrInvalidValue = errors.New("invalid field value")
)

// Config is the obfuscator configuration, read from YAML and the environment.
type Config struct {
	AWS     AWSConfig     `yaml:"aws"`
	Output  OutputConfig  `yaml:"output"`
	Limits  LimitsConfig  `yaml:"limits"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AWSConfig selects the S3 endpoint and credentials source.
type AWSConfig struct {
	Region    string `yaml:"region,omitempty"`
	Profile   string `yaml:"profile,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"` // S3-compatible endpoint, e.g. a local MinIO
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// OutputConfig controls where the obfuscated file goes.
type OutputConfig struct {
	Prefix string `yaml:"prefix"` // prepended to the source key
	Store  bool   `yaml:"store"`  // write the result back to the bucket
	Stdout bool   `yaml:"stdout"` // write the result to standard output
}

// LimitsConfig bounds resource use.
type LimitsConfig struct {
	MaxObjectSize datasize.ByteSize `yaml:"max_object_size"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig configures the metrics dump written after a run.
type MetricsConfig struct {
	File string `yaml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Prefix: location.DefaultOutputPrefix,
			Store:  true,
		},
		Limits: LimitsConfig{
			MaxObjectSize: 512 * datasize.MB,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidYAML, path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
//
//	AWS_REGION, AWS_PROFILE, OBFUSCATOR_S3_ENDPOINT, OBFUSCATOR_S3_PATH_STYLE,
//	OBFUSCATOR_OUTPUT_PREFIX, OBFUSCATOR_MAX_OBJECT_SIZE, LOG_LEVEL
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		c.AWS.Profile = v
	}
	if v := os.Getenv("OBFUSCATOR_S3_ENDPOINT"); v != "" {
		c.AWS.Endpoint = v
	}
	if v := os.Getenv("OBFUSCATOR_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: OBFUSCATOR_S3_PATH_STYLE=%q", ErrInvalidValue, v)
		}
		c.AWS.PathStyle = b
	}
	if v, ok := os.LookupEnv("OBFUSCATOR_OUTPUT_PREFIX"); ok {
		c.Output.Prefix = v
	}
	if v := os.Getenv("OBFUSCATOR_MAX_OBJECT_SIZE"); v != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%w: OBFUSCATOR_MAX_OBJECT_SIZE=%q", ErrInvalidValue, v)
		}
		c.Limits.MaxObjectSize = size
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if !c.Output.Store && !c.Output.Stdout {
		return fmt.Errorf("%w: output.store and output.stdout are both disabled", ErrInvalidValue)
	}
	if c.Output.Store && strings.TrimSpace(c.Output.Prefix) == "" {
		// An empty prefix would overwrite the source object.
		return fmt.Errorf("%w: output.prefix must not be empty", ErrInvalidValue)
	}
	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		return fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level)
	}
	return nil
}
