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

package readers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aaronlmathis/goetl-obfuscator/core"
)

// CSVReaderError wraps CSV-specific read errors with context.
type CSVReaderError struct {
	Op  string
	Err error
}

func (e *CSVReaderError) Error() string {
	return fmt.Sprintf("csv reader %s: %v", e.Op, e.Err)
}

func (e *CSVReaderError) Unwrap() error {
	return e.Err
}

// CSVReaderStats counts what a CSVReader has parsed.
type CSVReaderStats struct {
	RecordsRead     int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64 // per column, cells missing from short rows
}

// CSVReaderOptions configures CSV parsing.
type CSVReaderOptions struct {
	Comma            rune
	LazyQuotes       bool
	TrimLeadingSpace bool
}

// ReaderOptionCSV is a functional option.
type ReaderOptionCSV func(*CSVReaderOptions)

// WithCSVComma sets the field delimiter.
func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVTrimSpace(trim bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.TrimLeadingSpace = trim }
}

// WithCSVLazyQuotes accepts bare quotes inside unquoted fields.
func WithCSVLazyQuotes(lazy bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.LazyQuotes = lazy }
}

// CSVReader implements core.DataSource over CSV text whose first line names the
// columns. Cells are kept as text so writing a record back reproduces them.
//
// Rows shorter than the header are accepted and their missing cells become Null
// fields. Rows longer than the header are rejected. Blank lines are skipped.
type CSVReader struct {
	rows    *csv.Reader
	closer  io.Closer
	columns []string
	stats   CSVReaderStats
}

// NewCSVReader creates a CSV reader and consumes the header line.
// An empty input yields a reader with no columns that returns io.EOF on the first Read.
func NewCSVReader(r io.ReadCloser, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{Comma: ','}
	for _, opt := range options {
		opt(&opts)
	}

	rows := csv.NewReader(r)
	rows.Comma = opts.Comma
	rows.LazyQuotes = opts.LazyQuotes
	rows.TrimLeadingSpace = opts.TrimLeadingSpace
	rows.FieldsPerRecord = -1

	columns, err := rows.Read()
	switch {
	case errors.Is(err, io.EOF):
		columns = nil
	case err != nil:
		return nil, &CSVReaderError{Op: "read_headers", Err: err}
	}

	return &CSVReader{
		rows:    rows,
		closer:  r,
		columns: columns,
		stats:   CSVReaderStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Headers returns the column names from the header line.
func (c *CSVReader) Headers() []string {
	return append([]string(nil), c.columns...)
}

// Read implements core.DataSource. It returns io.EOF once the input is exhausted.
func (c *CSVReader) Read(ctx context.Context) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CSVReaderError{Op: "read", Err: err}
	}
	if c.columns == nil {
		return nil, io.EOF
	}

	start := time.Now()
	row, err := c.rows.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &CSVReaderError{Op: "read_record", Err: err}
	}
	if err := c.checkWidth(row); err != nil {
		return nil, &CSVReaderError{Op: "read_record", Err: err}
	}

	for _, missing := range c.columns[len(row):] {
		c.stats.NullValueCounts[missing]++
	}
	c.stats.RecordsRead++
	c.stats.LastReadTime = time.Now()
	c.stats.ReadDuration += time.Since(start)

	return core.NewRecord(c.columns, row), nil
}

func (c *CSVReader) checkWidth(row []string) error {
	if len(row) <= len(c.columns) {
		return nil
	}
	line, _ := c.rows.FieldPos(0)
	return fmt.Errorf("line %d has %d fields, header has %d", line, len(row), len(c.columns))
}

// Close implements core.DataSource.
func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Stats returns read statistics.
func (c *CSVReader) Stats() CSVReaderStats {
	out := c.stats
	out.NullValueCounts = make(map[string]int64, len(c.stats.NullValueCounts))
	for col, n := range c.stats.NullValueCounts {
		out.NullValueCounts[col] = n
	}
	return out
}

// ReadAll drains source into a Dataset in source order.
// The returned dataset is never nil.
func ReadAll(ctx context.Context, source core.DataSource) (core.Dataset, error) {
	dataset := core.Dataset{}
	for {
		record, err := source.Read(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return dataset, nil
		case err != nil:
			return nil, err
		}
		dataset = append(dataset, record)
	}
}

// ParseCSV parses the full text of a CSV file into a Dataset.
// The first line names the fields; every following line is one record.
func ParseCSV(ctx context.Context, body string, options ...ReaderOptionCSV) (core.Dataset, error) {
	reader, err := NewCSVReader(io.NopCloser(strings.NewReader(body)), options...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return ReadAll(ctx, reader)
}
