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
)

// Package core defines the core interfaces for the GoETL obfuscator.
//
// This file contains the primary interfaces for data sources, sinks, transformation and object storage.

// DataSource defines the interface for data extraction.
// Implementations stream records from a source (e.g., a CSV object body).
type DataSource interface {
	// Read returns the next record or io.EOF when no more records are available.
	Read(ctx context.Context) (Record, error)
	// Close releases any resources held by the data source.
	Close() error
}

// DataSink defines the interface for data loading.
// Implementations write records to a destination (e.g., a CSV buffer).
type DataSink interface {
	// Write outputs a single record to the sink.
	Write(ctx context.Context, record Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// DatasetTransformer transforms a whole dataset at once.
// Used for transformations that need to see the dataset as a unit, such as
// redaction, which inspects the schema of the first record before touching any row.
type DatasetTransformer interface {
	// TransformDataset returns the transformed dataset. Implementations must not mutate the input.
	TransformDataset(ctx context.Context, dataset Dataset) (Dataset, error)
}

// ObjectStore fetches and stores whole objects by bucket and key.
type ObjectStore interface {
	// Fetch returns the body of the object as text.
	Fetch(ctx context.Context, bucket, key string) (string, error)
	// Store writes body to the object, replacing it if it exists.
	Store(ctx context.Context, bucket, key string, body []byte) error
}
