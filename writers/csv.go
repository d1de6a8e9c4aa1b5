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

package writers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aaronlmathis/goetl-obfuscator/core"
)

// errWriterFailed is returned by every Write after a failed batch.
var errWriterFailed = errors.New("writer is in error state")

// CSVWriterError wraps CSV-specific write errors with context.
type CSVWriterError struct {
	Op  string
	Err error
}

func (e *CSVWriterError) Error() string {
	return fmt.Sprintf("csv writer %s: %v", e.Op, e.Err)
}

func (e *CSVWriterError) Unwrap() error {
	return e.Err
}

// CSVWriterStats counts what a CSVWriter has produced.
type CSVWriterStats struct {
	RecordsWritten  int64
	FlushCount      int64 // batches handed to the underlying writer
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64 // per column, fields written empty because they were Null
}

// CSVWriterOptions configures CSV output.
type CSVWriterOptions struct {
	Comma       rune
	UseCRLF     bool
	WriteHeader bool
	Headers     []string // column order; empty means the first record's order
	BatchSize   int      // rows held before writing through; 0 holds rows until Flush
}

// WriterOptionCSV is a functional option.
type WriterOptionCSV func(*CSVWriterOptions)

// WithHeaders fixes the column order instead of taking it from the first record.
func WithHeaders(headers []string) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Headers = append([]string(nil), headers...)
	}
}

// WithComma sets the field delimiter.
func WithComma(delim rune) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Comma = delim
	}
}

// WithWriteHeader controls whether the header line is written.
func WithWriteHeader(write bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.WriteHeader = write
	}
}

func WithCSVBatchSize(size int) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.BatchSize = size
	}
}

// WithUseCRLF ends lines with \r\n instead of \n.
func WithUseCRLF(useCRLF bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.UseCRLF = useCRLF
	}
}

// CSVWriter implements core.DataSink for CSV output.
//
// Records are laid out by column name, so records whose fields come in a different
// order still land in the right columns. Null fields and columns a record lacks are
// written as empty cells. A CSVWriter is safe for concurrent use.
type CSVWriter struct {
	mu      sync.Mutex
	csv     *csv.Writer
	out     io.Writer
	closer  io.Closer
	opts    CSVWriterOptions
	columns []string
	pending [][]string
	started bool // header decided (and written when enabled)
	failed  bool
	stats   CSVWriterStats
}

// NewCSVWriter creates a CSV writer on w.
func NewCSVWriter(w io.WriteCloser, opts ...WriterOptionCSV) (*CSVWriter, error) {
	options := CSVWriterOptions{
		Comma:       ',',
		WriteHeader: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cw := csv.NewWriter(w)
	cw.Comma = options.Comma
	cw.UseCRLF = options.UseCRLF

	return &CSVWriter{
		csv:     cw,
		out:     w,
		closer:  w,
		opts:    options,
		columns: append([]string(nil), options.Headers...),
		stats:   CSVWriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements core.DataSink. The first record fixes the columns unless
// WithHeaders was given.
func (c *CSVWriter) Write(ctx context.Context, record core.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed {
		return &CSVWriterError{Op: "write", Err: errWriterFailed}
	}
	if err := ctx.Err(); err != nil {
		return &CSVWriterError{Op: "write", Err: err}
	}

	if !c.started {
		if len(c.columns) == 0 {
			c.columns = record.Keys()
		}
		if c.opts.WriteHeader {
			if err := c.writeRow(c.columns); err != nil {
				c.failed = true
				return &CSVWriterError{Op: "write_header", Err: err}
			}
		}
		c.started = true
	}

	c.pending = append(c.pending, c.row(record))
	c.stats.RecordsWritten++

	if c.opts.BatchSize > 0 && len(c.pending) >= c.opts.BatchSize {
		if err := c.writePending(); err != nil {
			c.failed = true
			return &CSVWriterError{Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// Flush implements core.DataSink.
func (c *CSVWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writePending(); err != nil {
		return &CSVWriterError{Op: "flush", Err: err}
	}
	// The header alone may still sit in the csv buffer.
	c.csv.Flush()
	if err := c.csv.Error(); err != nil {
		return &CSVWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (c *CSVWriter) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	if c.closer == nil {
		return nil
	}
	if err := c.closer.Close(); err != nil {
		return &CSVWriterError{Op: "close", Err: err}
	}
	return nil
}

// Headers returns the column order, which is empty until the first Write
// when WithHeaders was not given.
func (c *CSVWriter) Headers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.columns...)
}

// row lays record out in column order. Must hold mutex.
func (c *CSVWriter) row(record core.Record) []string {
	row := make([]string, len(c.columns))
	for i, name := range c.columns {
		f, ok := fieldAt(record, i, name)
		if !ok {
			continue
		}
		if f.Null {
			c.stats.NullValueCounts[name]++
			continue
		}
		row[i] = f.Value
	}
	return row
}

// writePending hands buffered rows to the csv writer and flushes it. Must hold mutex.
func (c *CSVWriter) writePending() error {
	if len(c.pending) == 0 {
		return nil
	}
	start := time.Now()

	for _, row := range c.pending {
		if err := c.writeRow(row); err != nil {
			return fmt.Errorf("write %d rows: %w", len(c.pending), err)
		}
	}
	c.csv.Flush()
	if err := c.csv.Error(); err != nil {
		return fmt.Errorf("write %d rows: %w", len(c.pending), err)
	}

	c.stats.FlushCount++
	c.stats.LastFlushTime = time.Now()
	c.stats.FlushDuration += time.Since(start)
	c.pending = c.pending[:0]
	return nil
}

// writeRow writes one row. encoding/csv renders a lone empty field as a blank
// line, which readers skip, so that row is written as "" instead. Must hold mutex.
func (c *CSVWriter) writeRow(row []string) error {
	if len(row) != 1 || row[0] != "" {
		return c.csv.Write(row)
	}
	c.csv.Flush()
	if err := c.csv.Error(); err != nil {
		return err
	}
	eol := "\n"
	if c.opts.UseCRLF {
		eol = "\r\n"
	}
	_, err := io.WriteString(c.out, `""`+eol)
	return err
}

// fieldAt finds column name in record, trying position i first since records
// usually share the header order.
func fieldAt(record core.Record, i int, name string) (core.Field, bool) {
	if i < len(record) && record[i].Name == name {
		return record[i], true
	}
	return record.Get(name)
}

// Stats returns write statistics.
func (c *CSVWriter) Stats() CSVWriterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.NullValueCounts = make(map[string]int64, len(c.stats.NullValueCounts))
	for k, v := range c.stats.NullValueCounts {
		stats.NullValueCounts[k] = v
	}
	return stats
}

// WriteAll writes every record of dataset to sink and flushes it.
func WriteAll(ctx context.Context, sink core.DataSink, dataset core.Dataset) error {
	for _, record := range dataset {
		if err := sink.Write(ctx, record); err != nil {
			return err
		}
	}
	return sink.Flush()
}

// SerializeCSV renders dataset as CSV text: a header line taken from the first
// record's keys, then one line per record in the same column order.
// The returned reader is positioned at the start of the content.
// An empty dataset yields empty content with no header.
func SerializeCSV(ctx context.Context, dataset core.Dataset, opts ...WriterOptionCSV) (*bytes.Reader, error) {
	buf := &bytes.Buffer{}
	writer, err := NewCSVWriter(NopWriteCloser(buf), opts...)
	if err != nil {
		return nil, err
	}
	if err := WriteAll(ctx, writer, dataset); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}

// NopWriteCloser returns an io.WriteCloser with a no-op Close method wrapping w,
// so a CSVWriter can target an in-memory buffer.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return nopWriteCloser{w}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
