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

// Package version reports the build of the obfuscator binary.
//
// Release builds stamp the build metadata through the linker:
//
//	go build -ldflags "\
//	  -X github.com/aaronlmathis/goetl-obfuscator/version.prerelease= \
//	  -X github.com/aaronlmathis/goetl-obfuscator/version.gitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/aaronlmathis/goetl-obfuscator/version.buildDate=$(date -u +%Y-%m-%d)" \
//	  ./cmd/obfuscator
//
// An unstamped build falls back to the VCS revision the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime/debug"
)

const slug = "obfuscator v"

// Set with -ldflags -X; see the package documentation.
var (
	version    = "0.1.0" // <MAJOR>.<MINOR>.<PATCH>
	prerelease = "dev"   // empty for a final release
	metadata   string    // free-form build metadata, e.g. the target platform
	gitCommit  string
	buildDate  string
)

// Version describes one build. The JSON form is printed by "obfuscator version -json".
type Version struct {
	Version    string `json:"version,omitempty"`
	Prerelease string `json:"prerelease,omitempty"`
	Metadata   string `json:"build_metadata,omitempty"`
	Revision   string `json:"revision,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

// GetVersion returns the running build. Revision comes from gitCommit, or from
// the embedded VCS stamp when the binary was not built with -ldflags.
func GetVersion() Version {
	rev := gitCommit
	if rev == "" {
		rev = vcsRevision(debug.ReadBuildInfo)
	}
	return Version{
		Version:    version,
		Prerelease: prerelease,
		Metadata:   metadata,
		Revision:   rev,
		BuildDate:  buildDate,
	}
}

// vcsRevision returns the first 12 characters of the embedded vcs.revision,
// with "-dirty" appended for modified trees.
func vcsRevision(read func() (*debug.BuildInfo, bool)) string {
	info, ok := read()
	if !ok {
		return ""
	}
	var rev, dirty string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if rev == "" {
		return ""
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return rev + dirty
}

// SemanticVersion renders MAJOR.MINOR.PATCH[-prerelease][+metadata].
func (v Version) SemanticVersion() string {
	sv := v.Version
	if v.Prerelease != "" {
		sv += "-" + v.Prerelease
	}
	if v.Metadata != "" {
		sv += "+" + v.Metadata
	}
	return sv
}

// FullVersionNumber renders e.g. "obfuscator v0.1.0-dev (abc123), built 2025-06-01".
// The revision is only included when rev is true.
func (v Version) FullVersionNumber(rev bool) string {
	s := slug + v.SemanticVersion()
	if rev && v.Revision != "" {
		s += fmt.Sprintf(" (%s)", v.Revision)
	}
	if v.BuildDate != "" {
		s += ", built " + v.BuildDate
	}
	return s
}
