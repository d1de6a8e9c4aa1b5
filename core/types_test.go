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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_ShortRowIsNull(t *testing.T) {
	record := NewRecord([]string{"name", "email", "message"}, []string{"Ann"})

	require.Len(t, record, 3)
	assert.Equal(t, Field{Name: "name", Value: "Ann"}, record[0])
	assert.Equal(t, Field{Name: "email", Null: true}, record[1])
	assert.Equal(t, Field{Name: "message", Null: true}, record[2])
}

func TestRecord_KeysPreserveOrder(t *testing.T) {
	record := RecordOf("zeta", "1", "alpha", "2", "mid", "3")
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, record.Keys())
}

func TestRecord_Get(t *testing.T) {
	record := RecordOf("name", "Ann", "email", "")

	f, ok := record.Get("email")
	assert.True(t, ok)
	assert.Equal(t, "", f.Value)
	assert.False(t, f.Null)

	_, ok = record.Get("phone")
	assert.False(t, ok)
	assert.True(t, record.Has("name"))
	assert.False(t, record.Has("phone"))
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	original := RecordOf("name", "Ann")
	clone := original.Clone()
	clone[0].Value = RedactionMarker

	assert.Equal(t, "Ann", original[0].Value)
	assert.Nil(t, Record(nil).Clone())
}

func TestRecordOf_OddArgumentsPanics(t *testing.T) {
	assert.Panics(t, func() { RecordOf("name") })
}

func TestDataset_Schema(t *testing.T) {
	assert.Nil(t, Dataset{}.Schema())

	ds := Dataset{RecordOf("a", "1", "b", "2")}
	assert.Equal(t, []string{"a", "b"}, ds.Schema())
}

func TestError_IsMatchesKind(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindMissingSourceLocation, ErrMissingSourceLocation},
		{KindMissingFieldList, ErrMissingFieldList},
		{KindInvalidSourceLocation, ErrInvalidSourceLocation},
		{KindFormat, ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewError(tt.kind, "op", errors.New("cause")))

			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))
			for _, other := range tests {
				if other.kind != tt.kind {
					assert.NotErrorIs(t, err, other.sentinel)
				}
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New("bad quote")
	err := NewError(KindFormat, "parse_csv", cause)

	assert.Equal(t, "parse_csv: format error: bad quote", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "decode_request: missing field list", NewError(KindMissingFieldList, "decode_request", nil).Error())
	assert.Equal(t, ErrorKind(0), KindOf(cause))
}
