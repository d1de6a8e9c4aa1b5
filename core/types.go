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

package core

import (
	"context"
	"fmt"
)

// Package core defines the shared types for the GoETL obfuscator.
//
// Records are ordered: the field order of a record is the column order of the
// file it was read from, and it is the order used when the record is written back.
//
// This file contains the record types and function adapters.

// RedactionMarker is the literal written in place of every redacted value.
const RedactionMarker = "***"

// Field is a single named value of a Record.
// Null is set when the value was absent from the source row (a short row);
// an empty cell is an empty Value with Null unset.
type Field struct {
	Name  string
	Value string
	Null  bool
}

// Record represents a single data row as an ordered list of fields.
type Record []Field

// NewRecord builds a record from a header and the cells of one row.
// Cells missing at the end of the row become Null fields.
func NewRecord(names []string, values []string) Record {
	record := make(Record, len(names))
	for i, name := range names {
		if i < len(values) {
			record[i] = Field{Name: name, Value: values[i]}
		} else {
			record[i] = Field{Name: name, Null: true}
		}
	}
	return record
}

// RecordOf builds a record from alternating name, value pairs.
// It panics on an odd number of arguments.
func RecordOf(pairs ...string) Record {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("core.RecordOf: odd number of arguments (%d)", len(pairs)))
	}
	record := make(Record, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		record = append(record, Field{Name: pairs[i], Value: pairs[i+1]})
	}
	return record
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// Get returns the field with the given name.
func (r Record) Get(name string) (Field, bool) {
	for _, f := range r {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether the record has a field with the given name.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Clone returns a copy of the record that shares no storage with r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Dataset is the ordered, in-memory collection of records for one file.
type Dataset []Record

// Schema returns the field names of the first record, or nil for an empty dataset.
func (d Dataset) Schema() []string {
	if len(d) == 0 {
		return nil
	}
	return d[0].Keys()
}

// DatasetTransformFunc is a function adapter for the DatasetTransformer interface.
type DatasetTransformFunc func(ctx context.Context, dataset Dataset) (Dataset, error)

// TransformDataset implements the DatasetTransformer interface for DatasetTransformFunc.
func (f DatasetTransformFunc) TransformDataset(ctx context.Context, dataset Dataset) (Dataset, error) {
	return f(ctx, dataset)
}
