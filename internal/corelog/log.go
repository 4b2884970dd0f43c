// log.go - process-wide logging backend configuration.
// Copyright (C) 2026  Decoder Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package corelog configures the single process-wide op/go-logging
// backend and hands out per-component loggers from it, the role
// katzenpost's core/log.Backend plays for every component that takes a
// *logging.Logger in its constructor.
package corelog

import (
	"fmt"
	"io"
	"os"

	logging "gopkg.in/op/go-logging.v1"
)

// Backend owns the single process-wide logging.Backend and mints
// per-component *logging.Logger values from it.
type Backend struct {
	level logging.Level
}

// New configures the process-wide backend to write to w at the given
// level ("DEBUG", "INFO", "NOTICE", "WARNING", "ERROR", "CRITICAL") and
// returns a Backend for minting component loggers.
func New(w io.Writer, level string) (*Backend, error) {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("corelog: invalid log level %q: %w", level, err)
	}

	format := logging.MustStringFormatter(
		`%{time:2006-01-02 15:04:05.000} %{level:.4s} %{module}: %{message}`,
	)
	backend := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)

	return &Backend{level: lvl}, nil
}

// NewStderr is the common case: log to stderr at the given level.
func NewStderr(level string) (*Backend, error) {
	return New(os.Stderr, level)
}

// GetLogger returns a logger for the named component.
func (b *Backend) GetLogger(name string) *logging.Logger {
	return logging.MustGetLogger(name)
}
