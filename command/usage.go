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

package command

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/kr/text"
)

// maxLineLength is the maximum width of any line.
const maxLineLength int = 72

// Usage renders txt followed by a description of every flag in flags.
func Usage(txt string, flags *flag.FlagSet) string {
	out := new(bytes.Buffer)

	out.WriteString(strings.TrimSpace(txt))
	out.WriteString("\n\n")

	if flags != nil {
		_, _ = fmt.Fprintf(out, "Command Options\n\n")
		flags.VisitAll(func(f *flag.Flag) {
			printFlag(out, f)
		})
	}

	return strings.TrimRight(out.String(), "\n")
}

// printFlag prints a single flag to the given writer.
func printFlag(w io.Writer, f *flag.Flag) {
	if f.DefValue != "" && f.DefValue != "false" {
		_, _ = fmt.Fprintf(w, "  -%s=%s\n", f.Name, f.DefValue)
	} else {
		_, _ = fmt.Fprintf(w, "  -%s\n", f.Name)
	}

	_, _ = fmt.Fprintf(w, "%s\n\n", wrapAtLength(f.Usage, 5))
}

// wrapAtLength wraps s at maxLineLength, taking the left padding into account.
func wrapAtLength(s string, pad int) string {
	wrapped := text.Wrap(s, maxLineLength-pad)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.Repeat(" ", pad) + line
	}
	return strings.Join(lines, "\n")
}
