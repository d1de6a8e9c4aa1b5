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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/mitchellh/cli"
	"github.com/prometheus/client_golang/prometheus"

	obfuscator "github.com/aaronlmathis/goetl-obfuscator"
	"github.com/aaronlmathis/goetl-obfuscator/config"
	"github.com/aaronlmathis/goetl-obfuscator/core"
	"github.com/aaronlmathis/goetl-obfuscator/metrics"
	"github.com/aaronlmathis/goetl-obfuscator/store"
)

var _ cli.Command = &RunCommand{}

// StoreFactory creates the object store used by a run.
type StoreFactory func(cfg *config.Config, logger hclog.Logger) (core.ObjectStore, error)

type RunCommand struct {
	ui    cli.Ui
	flags *flag.FlagSet

	// Path to the YAML configuration file
	config string

	// Path to a .env file; ".env" in the working directory is tried when empty
	envFile string

	// Path to the JSON request, "-" for standard input
	request string

	// Output overrides, applied only when given on the command line
	store       bool
	stdout      bool
	prefix      string
	metricsFile string

	newStore  StoreFactory
	stdin     io.Reader
	out       io.Writer
	logOutput io.Writer
}

func (c *RunCommand) init() {
	const (
		configUsageText      = "Path to YAML configuration file"
		envFileUsageText     = "Path to a .env file to load into the environment before reading configuration"
		requestUsageText     = "Path to the JSON request file; '-' reads the request from standard input"
		storeUsageText       = "Write the obfuscated file back to the bucket under the output prefix"
		stdoutUsageText      = "Write the obfuscated file to standard output"
		prefixUsageText      = "Prefix prepended to the source key to form the destination key"
		metricsFileUsageText = "Path of a file to write run metrics to, in the Prometheus text format"
	)

	// flag.ContinueOnError allows flag.Parse to return an error if one comes up, rather than doing an `os.Exit(2)`
	// on its own.
	c.flags = flag.NewFlagSet("run", flag.ContinueOnError)

	c.flags.StringVar(&c.config, "config", "", configUsageText)
	c.flags.StringVar(&c.envFile, "env-file", "", envFileUsageText)
	c.flags.StringVar(&c.request, "request", "-", requestUsageText)
	c.flags.BoolVar(&c.store, "store", true, storeUsageText)
	c.flags.BoolVar(&c.stdout, "stdout", false, stdoutUsageText)
	c.flags.StringVar(&c.prefix, "prefix", "", prefixUsageText)
	c.flags.StringVar(&c.metricsFile, "metrics-file", "", metricsFileUsageText)

	// Hide Go's own usage output so that Help is printed instead.
	c.flags.SetOutput(io.Discard)
}

// NewRunCommand produces a new *RunCommand reading from standard input and writing to standard output,
// backed by S3.
func NewRunCommand(ui cli.Ui) *RunCommand {
	c := &RunCommand{
		ui:        ui,
		newStore:  NewS3Store,
		stdin:     os.Stdin,
		out:       os.Stdout,
		logOutput: os.Stderr,
	}
	c.init()
	return c
}

// RunCommandFactory provides a cli.CommandFactory that will produce an appropriately-initiated *command.
func RunCommandFactory(ui cli.Ui) cli.CommandFactory {
	return func() (cli.Command, error) {
		return NewRunCommand(ui), nil
	}
}

// Help provides help text to users who pass in the --help flag or who enter invalid options.
func (c *RunCommand) Help() string {
	helpText := `Usage: obfuscator run [options]

Obfuscates the personally identifiable fields of one CSV file in S3. The request
is a JSON document naming the file and the fields:

  {"file_to_obfuscate": "s3://bucket/path/file.csv", "pii_fields": ["name"]}

The obfuscated copy is stored as s3://bucket/obfuscated/path/file.csv and/or
written to standard output.
`

	return Usage(helpText, c.flags)
}

// Synopsis provides a brief description of the command, for inclusion in the application's primary --help.
func (c *RunCommand) Synopsis() string {
	return "Obfuscate PII fields in a CSV file held in S3"
}

// Run executes the command.
func (c *RunCommand) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		c.ui.Warn(err.Error())
		c.ui.Warn(c.Help())
		return FlagParseError
	}

	if err := c.loadEnv(); err != nil {
		c.ui.Error(fmt.Sprintf("Failed to load environment file: %s", err))
		return ConfigError
	}

	cfg, err := c.loadConfig()
	if err != nil {
		c.ui.Error(fmt.Sprintf("Failed to load configuration: %s", err))
		return ConfigError
	}

	l := configureLogging("obfuscator", cfg.Log, c.logOutput)
	l.Debug("configuration loaded", "config", c.config, "store", cfg.Output.Store, "stdout", cfg.Output.Stdout)

	payload, err := c.readRequest()
	if err != nil {
		l.Error("Failed to read request", "request", c.request, "error", err)
		return RequestError
	}

	objects, err := c.newStore(cfg, l.Named("store"))
	if err != nil {
		l.Error("Failed to create object store", "error", err)
		return SetupError
	}

	collector, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		l.Error("Failed to register metrics", "error", err)
		return SetupError
	}

	o := obfuscator.New(objects,
		obfuscator.WithLogger(l),
		obfuscator.WithMetrics(collector),
		obfuscator.WithOutputPrefix(cfg.Output.Prefix),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rc := Success
	var body *bytes.Reader
	if cfg.Output.Store {
		var result *obfuscator.Result
		if result, err = o.ObfuscateAndStore(ctx, payload); err == nil {
			body = result.Body
		}
	} else {
		body, err = o.Obfuscate(ctx, payload)
	}

	if err != nil {
		rc = runErrorCode(err)
	} else if cfg.Output.Stdout {
		if _, err := io.Copy(c.out, body); err != nil {
			l.Error("Failed to write obfuscated file", "error", err)
			rc = OutputError
		}
	}

	if cfg.Metrics.File != "" {
		if err := writeMetrics(cfg.Metrics.File, collector); err != nil {
			l.Error("Failed to write metrics", "path", cfg.Metrics.File, "error", err)
			if rc == Success {
				rc = OutputError
			}
		}
	}

	return rc
}

// loadEnv loads the -env-file, or an optional .env in the working directory.
func (c *RunCommand) loadEnv() error {
	if c.envFile != "" {
		return godotenv.Load(c.envFile)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// loadConfig builds the configuration from defaults, the YAML file, the environment and
// the flags given on the command line, in increasing order of precedence.
func (c *RunCommand) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if c.config != "" {
		var err error
		if cfg, err = config.Load(c.config); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	c.flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store":
			cfg.Output.Store = c.store
		case "stdout":
			cfg.Output.Stdout = c.stdout
		case "prefix":
			cfg.Output.Prefix = c.prefix
		case "metrics-file":
			cfg.Metrics.File = c.metricsFile
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *RunCommand) readRequest() ([]byte, error) {
	if c.request == "" || c.request == "-" {
		return io.ReadAll(c.stdin)
	}
	return os.ReadFile(c.request)
}

// runErrorCode maps a request failure to a return code.
func runErrorCode(err error) int {
	switch core.KindOf(err) {
	case core.KindMissingSourceLocation, core.KindMissingFieldList, core.KindInvalidSourceLocation:
		return RequestError
	default:
		return RunError
	}
}

func writeMetrics(path string, collector *metrics.Collector) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := collector.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// NewS3Store creates the S3-backed object store described by cfg.
func NewS3Store(cfg *config.Config, logger hclog.Logger) (core.ObjectStore, error) {
	opts := []store.StoreOptionS3{
		store.WithS3MaxObjectSize(cfg.Limits.MaxObjectSize),
		store.WithS3Logger(logger),
	}
	if cfg.AWS.Region != "" {
		opts = append(opts, store.WithS3Region(cfg.AWS.Region))
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, store.WithS3Profile(cfg.AWS.Profile))
	}
	if cfg.AWS.Endpoint != "" {
		opts = append(opts, store.WithS3Endpoint(cfg.AWS.Endpoint))
	}
	if cfg.AWS.PathStyle {
		opts = append(opts, store.WithS3PathStyle(true))
	}
	return store.NewS3Store(opts...)
}

// configureLogging takes a logger name and the log configuration (which already carries any
// LOG_LEVEL override), sets the default logger, and returns a configured and usable logger.
func configureLogging(loggerName string, cfg config.LogConfig, output io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	appLogger := hclog.New(&hclog.LoggerOptions{
		Name:       loggerName,
		Level:      level,
		Output:     output,
		JSONFormat: cfg.JSON,
		Color:      hclog.AutoColor,
	})
	hclog.SetDefault(appLogger)
	return appLogger
}
