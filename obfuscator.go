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

package obfuscator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/aaronlmathis/goetl-obfuscator/core"
	"github.com/aaronlmathis/goetl-obfuscator/location"
	"github.com/aaronlmathis/goetl-obfuscator/metrics"
	"github.com/aaronlmathis/goetl-obfuscator/readers"
	"github.com/aaronlmathis/goetl-obfuscator/transform"
	"github.com/aaronlmathis/goetl-obfuscator/writers"
)

// Package obfuscator masks personally identifiable fields in CSV files held in S3.
//
// A request names one object and the fields to mask:
//
//	{
//	    "file_to_obfuscate": "s3://my_ingestion_bucket/new_data/file1.csv",
//	    "pii_fields": ["name", "email_address"]
//	}
//
// The object is fetched, every value of the named fields is replaced with "***",
// and the result is returned as CSV with the same header and row order. When
// stored, the result goes to the same bucket under the "obfuscated/" prefix, here
// s3://my_ingestion_bucket/obfuscated/new_data/file1.csv.

// Request is a decoded obfuscation request.
type Request struct {
	FileToObfuscate string   `json:"file_to_obfuscate"`
	PIIFields       []string `json:"pii_fields"`
}

// Result describes one processed request.
type Result struct {
	Source      location.Location
	Destination location.Location
	Body        *bytes.Reader // obfuscated CSV, positioned at the start
	Report      transform.Report
}

// Option is a functional option for New.
type Option func(*Obfuscator)

// WithLogger sets the logger for diagnostics. Defaults to a null logger.
func WithLogger(logger hclog.Logger) Option {
	return func(o *Obfuscator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records request metrics on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *Obfuscator) {
		o.metrics = collector
	}
}

// WithOutputPrefix sets the prefix of the destination key. Defaults to "obfuscated/".
func WithOutputPrefix(prefix string) Option {
	return func(o *Obfuscator) {
		o.prefix = prefix
	}
}

// WithCSVReaderOptions passes options to the CSV reader used for source objects.
func WithCSVReaderOptions(opts ...readers.ReaderOptionCSV) Option {
	return func(o *Obfuscator) {
		o.readerOpts = append(o.readerOpts, opts...)
	}
}

// WithCSVWriterOptions passes options to the CSV writer used for the output.
func WithCSVWriterOptions(opts ...writers.WriterOptionCSV) Option {
	return func(o *Obfuscator) {
		o.writerOpts = append(o.writerOpts, opts...)
	}
}

// Obfuscator processes obfuscation requests against an object store.
// It holds no per-request state and is safe for concurrent use.
type Obfuscator struct {
	store      core.ObjectStore
	logger     hclog.Logger
	metrics    *metrics.Collector
	prefix     string
	readerOpts []readers.ReaderOptionCSV
	writerOpts []writers.WriterOptionCSV
}

// New creates an Obfuscator that reads and writes objects through store.
func New(store core.ObjectStore, opts ...Option) *Obfuscator {
	o := &Obfuscator{
		store:  store,
		logger: hclog.NewNullLogger(),
		prefix: location.DefaultOutputPrefix,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DecodeRequest decodes a JSON request. A missing file_to_obfuscate is reported
// before a missing pii_fields; both are logged before being returned.
func (o *Obfuscator) DecodeRequest(payload []byte) (Request, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		o.logger.Error("Unable to process. Request is not a JSON object", "error", err)
		return Request{}, fmt.Errorf("decode request: %w", err)
	}

	if _, ok := raw["file_to_obfuscate"]; !ok {
		o.logger.Error("Unable to process. Please provide file_to_obfuscate")
		return Request{}, core.NewError(core.KindMissingSourceLocation, "decode_request", nil)
	}
	if _, ok := raw["pii_fields"]; !ok {
		o.logger.Error("Unable to process. Please provide pii_fields")
		return Request{}, core.NewError(core.KindMissingFieldList, "decode_request", nil)
	}

	var req Request
	if err := json.Unmarshal(raw["file_to_obfuscate"], &req.FileToObfuscate); err != nil {
		o.logger.Error("Unable to process. file_to_obfuscate should be a string", "error", err)
		return Request{}, fmt.Errorf("decode file_to_obfuscate: %w", err)
	}
	if err := json.Unmarshal(raw["pii_fields"], &req.PIIFields); err != nil {
		o.logger.Error("Unable to process. pii_fields should be a list of strings", "error", err)
		return Request{}, fmt.Errorf("decode pii_fields: %w", err)
	}

	return req, nil
}

// Obfuscate processes the JSON request in payload and returns the obfuscated CSV.
// Nothing is written to the store.
func (o *Obfuscator) Obfuscate(ctx context.Context, payload []byte) (*bytes.Reader, error) {
	result, err := o.handle(ctx, payload, false)
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

// ObfuscateAndStore processes the JSON request in payload and writes the obfuscated
// CSV to the destination location. Nothing is written when any step fails.
func (o *Obfuscator) ObfuscateAndStore(ctx context.Context, payload []byte) (*Result, error) {
	return o.handle(ctx, payload, true)
}

func (o *Obfuscator) handle(ctx context.Context, payload []byte, persist bool) (result *Result, err error) {
	start := time.Now()
	defer func() {
		o.metrics.ObserveRun(err, time.Since(start))
	}()

	req, err := o.DecodeRequest(payload)
	if err != nil {
		return nil, err
	}

	result, err = o.Process(ctx, req)
	if err != nil {
		return nil, err
	}

	if persist {
		if err := o.Store(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Process fetches the object named by req, masks the requested fields and
// returns the result. The destination is computed but not written.
func (o *Obfuscator) Process(ctx context.Context, req Request) (*Result, error) {
	src, err := location.Parse(req.FileToObfuscate)
	if err != nil {
		o.logger.Error("Unable to process. Invalid file_to_obfuscate", "address", req.FileToObfuscate, "error", err)
		return nil, err
	}
	logger := o.logger.With("bucket", src.Bucket, "key", src.Key)

	body, err := o.store.Fetch(ctx, src.Bucket, src.Key)
	if err != nil {
		logger.Error("unable to fetch object", "error", err)
		return nil, err
	}

	source, err := readers.NewCSVReader(io.NopCloser(strings.NewReader(body)), o.readerOpts...)
	if err != nil {
		err = classify("parse_csv", err)
		logger.Error("unable to parse object", "error", err)
		return nil, err
	}

	buf := &bytes.Buffer{}
	sink, err := writers.NewCSVWriter(writers.NopWriteCloser(buf), o.writerOpts...)
	if err != nil {
		source.Close()
		logger.Error("unable to create CSV writer", "error", err)
		return nil, err
	}

	redactor := transform.NewRedactor(req.PIIFields, transform.WithLogger(logger))

	pipeline, err := NewPipeline().
		From(source).
		Transform(redactor).
		To(sink).
		Build()
	if err != nil {
		logger.Error("unable to build pipeline", "error", err)
		return nil, err
	}

	if err := pipeline.Execute(ctx); err != nil {
		err = classify(opFor(err), err)
		logger.Error("unable to obfuscate object", "error", err)
		return nil, err
	}

	report := redactor.Report()
	stats := pipeline.Stats()
	o.metrics.AddRows(stats.RecordsRead)
	for _, field := range report.Redacted {
		o.metrics.AddRedacted(field, report.Rows)
	}
	logger.Debug("object processed", "rows", stats.RecordsRead, "cells", report.Cells, "duration", stats.Duration)

	return &Result{
		Source:      src,
		Destination: src.WithPrefix(o.prefix),
		Body:        bytes.NewReader(buf.Bytes()),
		Report:      report,
	}, nil
}

// Store writes result.Body to result.Destination. The body reader is left at
// the position it had on entry.
func (o *Obfuscator) Store(ctx context.Context, result *Result) error {
	dst := result.Destination
	body := make([]byte, result.Body.Len())
	if _, err := result.Body.ReadAt(body, result.Body.Size()-int64(result.Body.Len())); err != nil && !errors.Is(err, io.EOF) {
		o.logger.Error("unable to read obfuscated body", "error", err)
		return err
	}

	if err := o.store.Store(ctx, dst.Bucket, dst.Key, body); err != nil {
		o.logger.Error("unable to store obfuscated object", "destination", dst.String(), "error", err)
		return err
	}

	o.logger.Info("obfuscated object stored", "source", result.Source.String(), "destination", dst.String())
	return nil
}

// classify marks CSV reader and writer failures as format errors.
// Cancellation and other errors are returned unchanged.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var readErr *readers.CSVReaderError
	var writeErr *writers.CSVWriterError
	if errors.As(err, &readErr) || errors.As(err, &writeErr) {
		return core.NewError(core.KindFormat, op, err)
	}
	return err
}

func opFor(err error) string {
	var perr *PipelineError
	if errors.As(err, &perr) && perr.Stage == StageWrite {
		return "serialize_csv"
	}
	return "parse_csv"
}
