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

// Success indicates a successful command execution.
const Success int = 0

// The following error group is intended for issues within the command's execution.
const (
	// FlagParseError indicates that a command was unable to successfully parse the flags/arguments provided to it.
	FlagParseError int = iota + 16

	// ConfigError indicates that the configuration file, .env file or environment could not be used.
	ConfigError

	// RequestError indicates that the obfuscation request could not be read, was incomplete or named an invalid location.
	RequestError

	// RunError indicates that fetching, parsing, obfuscating or storing the object failed.
	RunError

	// OutputError indicates an error writing the obfuscated file or the metrics to their local destinations.
	OutputError

	// SetupError is returned when the object store client cannot be created.
	SetupError
)
