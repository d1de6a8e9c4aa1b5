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
	"fmt"
	"strings"

	"github.com/aaronlmathis/goetl-obfuscator/core"
)

// Package location parses s3:// object addresses.

// Scheme is the only address scheme accepted.
const Scheme = "s3://"

// DefaultOutputPrefix is prepended to a source key to form the key of the obfuscated copy.
const DefaultOutputPrefix = "obfuscated/"

// SupportedExtensions lists the file extensions that can be obfuscated.
var SupportedExtensions = []string{"csv"}

// Location identifies one object in a bucket.
type Location struct {
	Bucket    string
	Key       string
	Extension string // lower-cased, without the dot
}

// String returns the s3:// address of the location.
func (l Location) String() string {
	return Scheme + l.Bucket + "/" + l.Key
}

// WithPrefix returns the location of the same object under prefix in the same bucket.
func (l Location) WithPrefix(prefix string) Location {
	l.Key = DestinationKey(prefix, l.Key)
	return l
}

// DestinationKey returns prefix followed by key; the rest of the path is kept as is.
func DestinationKey(prefix, key string) string {
	return prefix + key
}

// Parse splits an address of the form s3://bucket/path/to/file.csv into its bucket,
// key and extension. Every rejection is a *core.Error of kind KindInvalidSourceLocation.
func Parse(address string) (Location, error) {
	if !strings.HasPrefix(address, Scheme) {
		return Location{}, invalid(address, fmt.Sprintf("address should start with %s", Scheme))
	}

	rest := address[len(Scheme):]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return Location{}, invalid(address, "address has no key")
	}
	if bucket == "" {
		return Location{}, invalid(address, "address has no bucket")
	}

	ext := extension(key)
	if !supported(ext) {
		return Location{}, invalid(address, fmt.Sprintf("files with the extension %q are currently not supported", ext))
	}

	return Location{Bucket: bucket, Key: key, Extension: ext}, nil
}

// extension returns the lower-cased text after the last dot of the final path element.
func extension(key string) string {
	base := key[strings.LastIndex(key, "/")+1:]
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return ""
	}
	return strings.ToLower(base[dot+1:])
}

func supported(ext string) bool {
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

func invalid(address, reason string) error {
	return core.NewError(core.KindInvalidSourceLocation, "parse_location", fmt.Errorf("%s: %q", reason, address))
}
