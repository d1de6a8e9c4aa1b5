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

package transform

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/aaronlmathis/goetl-obfuscator/core"
)

// Package transform provides the field redaction used by the obfuscator.
//
// Redaction replaces the value of every targeted field with core.RedactionMarker.
// Redactor works on a whole core.Dataset and reports what it did.

// Report describes the outcome of one redaction.
type Report struct {
	Rows     int      // records in the dataset
	Redacted []string // target fields present in the schema, in request order
	Missing  []string // target fields absent from the schema, in request order
	Cells    int64    // values replaced with the marker
}

// Changed reports whether any field was redacted.
func (r Report) Changed() bool {
	return len(r.Redacted) > 0
}

// RedactorOption is a functional option.
type RedactorOption func(*Redactor)

// WithLogger sets the logger that receives redaction diagnostics.
func WithLogger(logger hclog.Logger) RedactorOption {
	return func(r *Redactor) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Redactor masks a set of fields across a dataset. It implements core.DatasetTransformer.
// The schema is taken from the first record; target names not in it are reported and ignored.
type Redactor struct {
	fields []string
	logger hclog.Logger
	report Report
}

// NewRedactor creates a Redactor for the given field names. Duplicates are harmless.
func NewRedactor(fields []string, opts ...RedactorOption) *Redactor {
	r := &Redactor{
		fields: uniq(fields),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report returns the outcome of the last TransformDataset call.
func (r *Redactor) Report() Report {
	return r.report
}

// TransformDataset returns a new dataset in which every value of a targeted field is the marker.
//
// An empty dataset is returned as an empty dataset. When none of the targets are in the
// schema the input dataset itself is returned. The input is never modified.
func (r *Redactor) TransformDataset(ctx context.Context, dataset core.Dataset) (core.Dataset, error) {
	r.report = Report{Rows: len(dataset)}

	if len(dataset) == 0 {
		r.logger.Warn("no data to obfuscate")
		return core.Dataset{}, nil
	}

	found, missing := partition(dataset[0], r.fields)
	r.report.Redacted = found
	r.report.Missing = missing

	if len(missing) > 0 {
		r.logger.Warn("fields not found in data", "fields", missing)
	}
	if len(found) == 0 {
		r.logger.Warn("no fields found to obfuscate")
		return dataset, nil
	}

	targets := make(map[string]struct{}, len(found))
	for _, name := range found {
		targets[name] = struct{}{}
	}

	out := make(core.Dataset, len(dataset))
	for i, record := range dataset {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		masked, n := mask(record, targets)
		out[i] = masked
		r.report.Cells += n
	}

	r.logger.Info("fields have been successfully obfuscated", "fields", found, "rows", len(out))
	return out, nil
}

// Redact masks fields across dataset and returns the new dataset with its report.
// Diagnostics go to logger, which may be nil.
func Redact(dataset core.Dataset, fields []string, logger hclog.Logger) (core.Dataset, Report) {
	r := NewRedactor(fields, WithLogger(logger))
	// Without a cancellable context TransformDataset cannot fail.
	out, _ := r.TransformDataset(context.Background(), dataset)
	return out, r.Report()
}

// mask returns a copy of record with targeted values replaced, and the number replaced.
func mask(record core.Record, targets map[string]struct{}) (core.Record, int64) {
	result := make(core.Record, len(record))
	var n int64
	for i, f := range record {
		if _, ok := targets[f.Name]; ok {
			result[i] = core.Field{Name: f.Name, Value: core.RedactionMarker}
			n++
			continue
		}
		result[i] = f
	}
	return result, n
}

// partition splits fields into those present in record and those absent, keeping their order.
func partition(record core.Record, fields []string) (found, missing []string) {
	for _, field := range fields {
		if record.Has(field) {
			found = append(found, field)
		} else {
			missing = append(missing, field)
		}
	}
	return found, missing
}

func uniq(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
