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
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/mitchellh/cli"

	"github.com/aaronlmathis/goetl-obfuscator/version"
)

var _ cli.Command = &VersionCommand{}

// VersionCommand prints the build of the running binary, as text or as JSON for
// deployment tooling that records which obfuscator processed a file.
type VersionCommand struct {
	ui     cli.Ui
	flags  *flag.FlagSet
	asJSON bool
}

func NewVersionCommand(ui cli.Ui) *VersionCommand {
	c := &VersionCommand{ui: ui}
	c.flags = flag.NewFlagSet("version", flag.ContinueOnError)
	c.flags.BoolVar(&c.asJSON, "json", false, "Print the version, revision and build date as a JSON object")
	c.flags.SetOutput(io.Discard)
	return c
}

// VersionCommandFactory provides a cli.CommandFactory for the version command.
func VersionCommandFactory(ui cli.Ui) cli.CommandFactory {
	return func() (cli.Command, error) {
		return NewVersionCommand(ui), nil
	}
}

func (c *VersionCommand) Help() string {
	return Usage(`Usage: obfuscator version [options]

Prints the version of this binary. Release builds also carry the git revision
and build date; see the version package for the ldflags that set them.`, c.flags)
}

func (c *VersionCommand) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		c.ui.Warn(err.Error())
		c.ui.Warn(c.Help())
		return FlagParseError
	}

	v := version.GetVersion()
	if !c.asJSON {
		c.ui.Output(v.FullVersionNumber(true))
		return Success
	}

	out, err := json.Marshal(v)
	if err != nil {
		c.ui.Error(fmt.Sprintf("Failed to encode version: %s", err))
		return OutputError
	}
	c.ui.Output(string(out))
	return Success
}

func (c *VersionCommand) Synopsis() string {
	return "Print the obfuscator version and build information"
}
