// transport.go - byte transport abstraction for the host-link protocol.
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

// Package link implements the framed, ACK-gated host-link protocol: magic
// byte + command + length headers, 256-byte chunked flow control, and the
// six wire command types (L/S/D/A/E/G).
package link

import "io"

// Transport is the single byte-oriented channel the protocol engine
// drives. A real serial port, a TCP connection, or an in-memory pipe all
// satisfy it equally; the engine never assumes anything about the
// transport beyond ordered, reliable byte delivery, which is all the
// board's UART ever promised either.
type Transport interface {
	io.Reader
	io.Writer
}
