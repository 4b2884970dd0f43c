// config.go - decoder provisioning/config file.
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

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the decoder process's runtime configuration. The board this
// replaces has no runtime configuration at all, but a hosted process
// still needs to be told which serial device or flash-image file to use,
// so this is kept deliberately small: nothing here changes cryptographic
// behavior.
type Config struct {
	// SerialDevice is the host-link UART device node, e.g. /dev/ttyUSB0.
	// Mutually exclusive with a test harness that wires its own
	// Transport directly.
	SerialDevice string `toml:"serial_device"`
	// FlashImage is the path to the file backing the persistence layer.
	FlashImage string `toml:"flash_image"`
	// LogLevel is one of DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL.
	LogLevel string `toml:"log_level"`
	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint, e.g. ":9100". Empty disables it.
	MetricsAddr string `toml:"metrics_addr"`
}

// LoadConfig reads and validates a decoder config file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decoder: load config %s: %w", path, err)
	}
	if cfg.SerialDevice == "" {
		return nil, fmt.Errorf("decoder: config %s: serial_device is required", path)
	}
	if cfg.FlashImage == "" {
		return nil, fmt.Errorf("decoder: config %s: flash_image is required", path)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "NOTICE"
	}
	return &cfg, nil
}
