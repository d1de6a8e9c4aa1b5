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

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goetl-obfuscator/config"
	"github.com/aaronlmathis/goetl-obfuscator/core"
	"github.com/aaronlmathis/goetl-obfuscator/version"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func (m *memStore) Fetch(ctx context.Context, bucket, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[bucket+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return body, nil
}

func (m *memStore) Store(ctx context.Context, bucket, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = string(body)
	return nil
}

type testRun struct {
	cmd   *RunCommand
	ui    *cli.MockUi
	store *memStore
	out   *bytes.Buffer
	logs  *bytes.Buffer
}

func newTestRun(request string) *testRun {
	st := &memStore{objects: map[string]string{
		"my_ingestion_bucket/new_data/file1.csv": "name,email_address,message\nAnn,ann@example.com,hello\n",
	}}
	ui := cli.NewMockUi()
	tr := &testRun{ui: ui, store: st, out: &bytes.Buffer{}, logs: &bytes.Buffer{}}

	tr.cmd = NewRunCommand(ui)
	tr.cmd.newStore = func(*config.Config, hclog.Logger) (core.ObjectStore, error) { return st, nil }
	tr.cmd.stdin = strings.NewReader(request)
	tr.cmd.out = tr.out
	tr.cmd.logOutput = tr.logs
	return tr
}

const validRequest = `{"file_to_obfuscate": "s3://my_ingestion_bucket/new_data/file1.csv", "pii_fields": ["name", "email_address"]}`

func TestRunCommand_Store(t *testing.T) {
	tr := newTestRun(validRequest)

	rc := tr.cmd.Run(nil)
	require.Equal(t, Success, rc, tr.logs.String())

	assert.Equal(t, "name,email_address,message\n***,***,hello\n", tr.store.objects["my_ingestion_bucket/obfuscated/new_data/file1.csv"])
	assert.Empty(t, tr.out.String())
	assert.Contains(t, tr.logs.String(), "obfuscated object stored")
}

func TestRunCommand_StdoutOnly(t *testing.T) {
	tr := newTestRun(validRequest)

	rc := tr.cmd.Run([]string{"-store=false", "-stdout"})
	require.Equal(t, Success, rc, tr.logs.String())

	assert.Equal(t, "name,email_address,message\n***,***,hello\n", tr.out.String())
	_, stored := tr.store.objects["my_ingestion_bucket/obfuscated/new_data/file1.csv"]
	assert.False(t, stored)
}

func TestRunCommand_RequestFileAndPrefix(t *testing.T) {
	dir := t.TempDir()
	requestPath := filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(requestPath, []byte(validRequest), 0o600))

	tr := newTestRun("")
	rc := tr.cmd.Run([]string{"-request", requestPath, "-prefix", "masked/"})
	require.Equal(t, Success, rc, tr.logs.String())

	assert.Contains(t, tr.store.objects, "my_ingestion_bucket/masked/new_data/file1.csv")
}

func TestRunCommand_ConfigFileAndMetrics(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics.prom")
	configPath := filepath.Join(dir, "obfuscator.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"output:\n  store: true\n  stdout: true\nmetrics:\n  file: "+metricsPath+"\n"), 0o600))

	tr := newTestRun(validRequest)
	rc := tr.cmd.Run([]string{"-config", configPath})
	require.Equal(t, Success, rc, tr.logs.String())

	assert.NotEmpty(t, tr.out.String())
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `obfuscator_runs_total{status="success"} 1`)
	assert.Contains(t, string(data), `obfuscator_fields_redacted_total{field="email_address"} 1`)
}

func TestRunCommand_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("OBFUSCATOR_OUTPUT_PREFIX=from-env/\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("OBFUSCATOR_OUTPUT_PREFIX") })

	tr := newTestRun(validRequest)
	rc := tr.cmd.Run([]string{"-env-file", envPath})
	require.Equal(t, Success, rc, tr.logs.String())

	assert.Contains(t, tr.store.objects, "my_ingestion_bucket/from-env/new_data/file1.csv")
}

func TestRunCommand_ReturnCodes(t *testing.T) {
	tests := []struct {
		name    string
		request string
		args    []string
		setup   func(*testRun)
		expect  int
	}{
		{
			name:    "unknown flag",
			request: validRequest,
			args:    []string{"-bogus"},
			expect:  FlagParseError,
		},
		{
			name:    "missing config file",
			request: validRequest,
			args:    []string{"-config", "/does/not/exist.yaml"},
			expect:  ConfigError,
		},
		{
			name:    "missing env file",
			request: validRequest,
			args:    []string{"-env-file", "/does/not/exist.env"},
			expect:  ConfigError,
		},
		{
			name:    "no output selected",
			request: validRequest,
			args:    []string{"-store=false"},
			expect:  ConfigError,
		},
		{
			name:    "missing request file",
			request: "",
			args:    []string{"-request", "/does/not/exist.json"},
			expect:  RequestError,
		},
		{
			name:    "missing file_to_obfuscate",
			request: `{"pii_fields": ["name"]}`,
			expect:  RequestError,
		},
		{
			name:    "missing pii_fields",
			request: `{"file_to_obfuscate": "s3://my_ingestion_bucket/new_data/file1.csv"}`,
			expect:  RequestError,
		},
		{
			name:    "not an s3 address",
			request: `{"file_to_obfuscate": "gs://bucket/file.csv", "pii_fields": ["name"]}`,
			expect:  RequestError,
		},
		{
			name:    "missing object",
			request: `{"file_to_obfuscate": "s3://my_ingestion_bucket/other.csv", "pii_fields": ["name"]}`,
			expect:  RunError,
		},
		{
			name:    "malformed csv",
			request: `{"file_to_obfuscate": "s3://my_ingestion_bucket/bad.csv", "pii_fields": ["name"]}`,
			setup: func(tr *testRun) {
				tr.store.objects["my_ingestion_bucket/bad.csv"] = "name\n\"Ann\n"
			},
			expect: RunError,
		},
		{
			name:    "store setup failure",
			request: validRequest,
			setup: func(tr *testRun) {
				tr.cmd.newStore = func(*config.Config, hclog.Logger) (core.ObjectStore, error) {
					return nil, errors.New("no credentials")
				}
			},
			expect: SetupError,
		},
		{
			name:    "metrics file not writable",
			request: validRequest,
			args:    []string{"-metrics-file", "/does/not/exist/metrics.prom"},
			expect:  OutputError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestRun(tc.request)
			if tc.setup != nil {
				tc.setup(tr)
			}
			assert.Equal(t, tc.expect, tr.cmd.Run(tc.args))
		})
	}
}

func TestRunCommand_FlagErrorShowsHelp(t *testing.T) {
	tr := newTestRun(validRequest)
	assert.Equal(t, FlagParseError, tr.cmd.Run([]string{"-bogus"}))
	assert.Contains(t, tr.ui.ErrorWriter.String(), "Usage: obfuscator run [options]")
}

func TestRunCommand_Help(t *testing.T) {
	help := NewRunCommand(cli.NewMockUi()).Help()
	assert.Contains(t, help, "Command Options")
	assert.Contains(t, help, "-request=-")
	assert.Contains(t, help, "-metrics-file")
}

func TestVersionCommand(t *testing.T) {
	ui := cli.NewMockUi()
	c := NewVersionCommand(ui)
	assert.Equal(t, Success, c.Run(nil))
	assert.True(t, strings.HasPrefix(ui.OutputWriter.String(), "obfuscator v"))
}

func TestVersionCommand_JSON(t *testing.T) {
	ui := cli.NewMockUi()
	c := NewVersionCommand(ui)
	require.Equal(t, Success, c.Run([]string{"-json"}))

	var got version.Version
	require.NoError(t, json.Unmarshal([]byte(ui.OutputWriter.String()), &got))
	assert.Equal(t, version.GetVersion(), got)
}

func TestVersionCommand_BadFlag(t *testing.T) {
	ui := cli.NewMockUi()
	assert.Equal(t, FlagParseError, NewVersionCommand(ui).Run([]string{"-bogus"}))
	assert.Contains(t, ui.ErrorWriter.String(), "-json")
}

func TestRunErrorCode(t *testing.T) {
	assert.Equal(t, RequestError, runErrorCode(core.NewError(core.KindMissingFieldList, "decode_request", nil)))
	assert.Equal(t, RunError, runErrorCode(core.NewError(core.KindFormat, "parse_csv", nil)))
	assert.Equal(t, RunError, runErrorCode(errors.New("access denied")))
}
