// serial_transport.go - real UART transport backing.
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

package link

import (
	"fmt"

	serial "github.com/daedaluz/goserial"
)

// OpenSerialTransport opens devicePath (e.g. "/dev/ttyUSB0") at the
// host link's fixed 115200 8N1 configuration and returns it as a
// Transport.
func OpenSerialTransport(devicePath string) (Transport, error) {
	port, err := serial.Open(devicePath, serial.NewOptions())
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", devicePath, err)
	}

	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("link: get termios for %s: %w", devicePath, err)
	}

	attrs.MakeRaw()
	attrs.SetSpeed(serial.B115200)
	// 8N1: no parity, one stop bit, 8 data bits; MakeRaw already clears
	// PARENB/CSTOPB and sets CS8 per the library's documented behavior.

	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("link: set termios for %s: %w", devicePath, err)
	}

	return port, nil
}
