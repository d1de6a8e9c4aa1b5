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
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obfuscator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "obfuscated/", cfg.Output.Prefix)
	assert.True(t, cfg.Output.Store)
	assert.False(t, cfg.Output.Stdout)
	assert.Equal(t, 512*datasize.MB, cfg.Limits.MaxObjectSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: eu-west-2
  endpoint: http://localhost:9000
  path_style: true
output:
  prefix: masked/
  store: false
  stdout: true
limits:
  max_object_size: 10MB
log:
  level: debug
  json: true
metrics:
  file: /tmp/obfuscator.prom
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-2", cfg.AWS.Region)
	assert.Equal(t, "http://localhost:9000", cfg.AWS.Endpoint)
	assert.True(t, cfg.AWS.PathStyle)
	assert.Equal(t, "masked/", cfg.Output.Prefix)
	assert.False(t, cfg.Output.Store)
	assert.True(t, cfg.Output.Stdout)
	assert.Equal(t, 10*datasize.MB, cfg.Limits.MaxObjectSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "/tmp/obfuscator.prom", cfg.Metrics.File)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "aws:\n  region: us-east-1\n"))
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "obfuscated/", cfg.Output.Prefix)
	assert.True(t, cfg.Output.Store)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = Load(writeConfig(t, "aws: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("OBFUSCATOR_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("OBFUSCATOR_S3_PATH_STYLE", "true")
	t.Setenv("OBFUSCATOR_OUTPUT_PREFIX", "redacted/")
	t.Setenv("OBFUSCATOR_MAX_OBJECT_SIZE", "2GB")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "http://minio:9000", cfg.AWS.Endpoint)
	assert.True(t, cfg.AWS.PathStyle)
	assert.Equal(t, "redacted/", cfg.Output.Prefix)
	assert.Equal(t, 2*datasize.GB, cfg.Limits.MaxObjectSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	t.Setenv("OBFUSCATOR_S3_PATH_STYLE", "sometimes")
	assert.ErrorIs(t, Default().ApplyEnv(), ErrInvalidValue)

	t.Setenv("OBFUSCATOR_S3_PATH_STYLE", "")
	t.Setenv("OBFUSCATOR_MAX_OBJECT_SIZE", "lots")
	assert.ErrorIs(t, Default().ApplyEnv(), ErrInvalidValue)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"no_output":    func(c *Config) { c.Output.Store = false; c.Output.Stdout = false },
		"empty_prefix": func(c *Config) { c.Output.Prefix = "" },
		"bad_level":    func(c *Config) { c.Log.Level = "loud" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
		})
	}

	// An empty prefix is fine when nothing is written back
	cfg := Default()
	cfg.Output.Prefix = ""
	cfg.Output.Store = false
	cfg.Output.Stdout = true
	assert.NoError(t, cfg.Validate())
}
