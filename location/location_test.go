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

package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/goetl-obfuscator/core"
)

func TestParse(t *testing.T) {
	loc, err := Parse("s3://my_ingestion_bucket/new_data/file1.csv")
	require.NoError(t, err)

	assert.Equal(t, "my_ingestion_bucket", loc.Bucket)
	assert.Equal(t, "new_data/file1.csv", loc.Key)
	assert.Equal(t, "csv", loc.Extension)
	assert.Equal(t, "s3://my_ingestion_bucket/new_data/file1.csv", loc.String())
}

func TestParse_ExtensionIsCaseInsensitive(t *testing.T) {
	loc, err := Parse("s3://bucket/UPPER.CSV")
	require.NoError(t, err)
	assert.Equal(t, "csv", loc.Extension)
	assert.Equal(t, "UPPER.CSV", loc.Key)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		address string
		message string
	}{
		{"no_scheme", "my_ingestion_bucket/new_data/file1.csv", "should start with s3://"},
		{"other_scheme", "gs://bucket/file.csv", "should start with s3://"},
		{"no_key", "s3://my_ingestion_bucket", "no key"},
		{"trailing_slash", "s3://my_ingestion_bucket/", "no key"},
		{"no_bucket", "s3:///file.csv", "no bucket"},
		{"unsupported_extension", "s3://my_ingestion_bucket/new_data/file1.txt", `extension "txt"`},
		{"no_extension", "s3://bucket/new_data/file1", `extension ""`},
		{"dot_in_directory_only", "s3://bucket/data.csv/file", `extension ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.address)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidSourceLocation)
			assert.Equal(t, core.KindInvalidSourceLocation, core.KindOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDestination(t *testing.T) {
	loc, err := Parse("s3://my_ingestion_bucket/new_data/file1.csv")
	require.NoError(t, err)

	dest := loc.WithPrefix(DefaultOutputPrefix)
	assert.Equal(t, "s3://my_ingestion_bucket/obfuscated/new_data/file1.csv", dest.String())
	assert.Equal(t, "new_data/file1.csv", loc.Key, "source location is unchanged")
	assert.Equal(t, "obfuscated/students.csv", DestinationKey(DefaultOutputPrefix, "students.csv"))
}
