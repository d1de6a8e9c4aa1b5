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
)

// ErrorKind classifies the errors that end an obfuscation request.
// None of them are retried.
type ErrorKind int

const (
	// KindMissingSourceLocation means the request has no file_to_obfuscate.
	KindMissingSourceLocation ErrorKind = iota + 1
	// KindMissingFieldList means the request has no pii_fields.
	KindMissingFieldList
	// KindInvalidSourceLocation means the address is not a supported s3:// object.
	KindInvalidSourceLocation
	// KindFormat means the object body or the output could not be handled as CSV.
	KindFormat
)

var (
	// ErrMissingSourceLocation matches errors of kind KindMissingSourceLocation.
	ErrMissingSourceLocation = errors.New("missing source location")
	// ErrMissingFieldList matches errors of kind KindMissingFieldList.
	ErrMissingFieldList = errors.New("missing field list")
	// ErrInvalidSourceLocation matches errors of kind KindInvalidSourceLocation.
	ErrInvalidSourceLocation = errors.New("invalid source location")
	// ErrFormat matches errors of kind KindFormat.
	ErrFormat = errors.New("format error")
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindMissingSourceLocation:
		return "MissingSourceLocation"
	case KindMissingFieldList:
		return "MissingFieldList"
	case KindInvalidSourceLocation:
		return "InvalidSourceLocation"
	case KindFormat:
		return "Format"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMissingSourceLocation:
		return ErrMissingSourceLocation
	case KindMissingFieldList:
		return ErrMissingFieldList
	case KindInvalidSourceLocation:
		return ErrInvalidSourceLocation
	case KindFormat:
		return ErrFormat
	default:
		return nil
	}
}

// Error is a classified obfuscation error.
// errors.Is(err, ErrInvalidSourceLocation) and friends match on Kind.
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed (e.g., "decode_request", "parse_location", "parse_csv")
	Err  error  // underlying error, may be nil
}

// NewError returns an *Error of the given kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain, or 0 if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
