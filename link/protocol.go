// protocol.go - framed, ACK-gated host-link protocol engine.
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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/duskrelay/decoder/subscription"
	logging "gopkg.in/op/go-logging.v1"
)

// Command bytes, exactly as they appear on the wire.
const (
	CmdList      byte = 'L'
	CmdSubscribe byte = 'S'
	CmdDecode    byte = 'D'
	CmdAck       byte = 'A'
	CmdError     byte = 'E'
	CmdDebug     byte = 'G'
)

// Magic is the framing byte that begins every message.
const Magic byte = '%'

// ChunkSize is the flow-control boundary: every 256 bytes of a payload
// transfer is acknowledged independently of the header ACK.
const ChunkSize = 256

// SubscriptionMessageSize is the fixed declared length of a Subscribe
// request body: nonce(24) + tag(16) + signature(64) + AEAD ciphertext of
// channel(4) + start(8) + end(8) + channel_key(32).
const SubscriptionMessageSize = 24 + 16 + 64 + 4 + 8 + 8 + 32

// decodeFixedOverhead is the portion of a Decode request body that is not
// the frame itself: channel(4) + nonce(24) + tag(16) + signature(64) +
// timestamp(8).
const decodeFixedOverhead = 4 + 24 + 16 + 64 + 8

// MaxFrameBody is the largest frame body a Decode response may carry.
const MaxFrameBody = 64

// Header is the parsed form of a wire message's fixed preamble.
type Header struct {
	Command byte
	Size    uint16
}

// Engine drives the framed protocol over a Transport: header parsing,
// per-header ACKs, and 256-byte chunked payload transfer in both
// directions.
type Engine struct {
	r   *bufio.Reader
	w   io.Writer
	log *logging.Logger
}

// NewEngine wraps transport in a protocol Engine.
func NewEngine(transport Transport, log *logging.Logger) *Engine {
	return &Engine{r: bufio.NewReader(transport), w: transport, log: log}
}

func (e *Engine) readByte() (byte, error) {
	return e.r.ReadByte()
}

func (e *Engine) writeByte(b byte) error {
	_, err := e.w.Write([]byte{b})
	return err
}

// readUntilMagic consumes bytes until it sees Magic, silently discarding
// anything before it — including, notably, the never-explicitly-consumed
// trailing length field of an ACK header (see ReadAck).
func (e *Engine) readUntilMagic() error {
	for {
		b, err := e.readByte()
		if err != nil {
			return err
		}
		if b == Magic {
			return nil
		}
	}
}

// ReadHeader reads a request header (magic, command, little-endian
// length) and acknowledges it. The command byte is returned unvalidated;
// callers check it against the commands they accept and raise
// ErrInvalidCommand themselves, since the header ACK acknowledges framing
// receipt only, not command validity.
func (e *Engine) ReadHeader() (Header, error) {
	if err := e.readUntilMagic(); err != nil {
		return Header{}, fmt.Errorf("link: read header magic: %w", err)
	}
	cmd, err := e.readByte()
	if err != nil {
		return Header{}, fmt.Errorf("link: read command byte: %w", err)
	}
	var sizeBuf [2]byte
	if _, err := io.ReadFull(e.r, sizeBuf[:]); err != nil {
		return Header{}, fmt.Errorf("link: read length: %w", err)
	}

	if err := e.WriteAck(); err != nil {
		return Header{}, err
	}

	return Header{Command: cmd, Size: binary.LittleEndian.Uint16(sizeBuf[:])}, nil
}

// WriteHeader writes a response/request header and waits for the peer's
// ACK of it.
func (e *Engine) WriteHeader(cmd byte, size uint16) error {
	var buf [4]byte
	buf[0] = Magic
	buf[1] = cmd
	binary.LittleEndian.PutUint16(buf[2:], size)
	if _, err := e.w.Write(buf[:]); err != nil {
		return fmt.Errorf("link: write header: %w", err)
	}
	return e.ReadAck()
}

// ReadAck waits for an ACK header. Per the wire format an ACK is
// magic+'A'+a 2-byte zero length, but the length field is never read
// here: it is harmlessly absorbed by the next readUntilMagic call,
// exactly as stray bytes before a magic byte always are.
func (e *Engine) ReadAck() error {
	if err := e.readUntilMagic(); err != nil {
		return fmt.Errorf("link: read ack: %w", err)
	}
	b, err := e.readByte()
	if err != nil {
		return fmt.Errorf("link: read ack: %w", err)
	}
	if b != CmdAck {
		return ErrExpectedAckButGotOther
	}
	return nil
}

// WriteAck sends an ACK header.
func (e *Engine) WriteAck() error {
	var buf [4]byte
	buf[0] = Magic
	buf[1] = CmdAck
	_, err := e.w.Write(buf[:])
	return err
}

// ReadPayload reads exactly n bytes, sending an ACK after every 256-byte
// chunk (including a final partial chunk) and one further terminal ACK,
// so the total ACK count is ceil(n/256)+1 — with n==0 collapsing to
// exactly the terminal ACK.
func (e *Engine) ReadPayload(n int) ([]byte, error) {
	buf := make([]byte, n)
	for offset := 0; offset < n; {
		chunk := ChunkSize
		if remaining := n - offset; remaining < chunk {
			chunk = remaining
		}
		if _, err := io.ReadFull(e.r, buf[offset:offset+chunk]); err != nil {
			return nil, fmt.Errorf("link: read payload: %w", err)
		}
		offset += chunk
		if err := e.WriteAck(); err != nil {
			return nil, err
		}
	}
	if err := e.WriteAck(); err != nil {
		return nil, err
	}
	return buf, nil
}

// WritePayload writes buf, waiting for an ACK after every 256-byte chunk
// (including a final partial chunk) and one further terminal ACK; see
// ReadPayload for the matching count.
func (e *Engine) WritePayload(buf []byte) error {
	for offset := 0; offset < len(buf); {
		chunk := ChunkSize
		if remaining := len(buf) - offset; remaining < chunk {
			chunk = remaining
		}
		if _, err := e.w.Write(buf[offset : offset+chunk]); err != nil {
			return fmt.Errorf("link: write payload: %w", err)
		}
		offset += chunk
		if err := e.ReadAck(); err != nil {
			return err
		}
	}
	return e.ReadAck()
}

// WriteResponse writes a response header for cmd with payload's length,
// waits for the header ACK, then transfers payload as a chunked body.
func (e *Engine) WriteResponse(cmd byte, payload []byte) error {
	if err := e.WriteHeader(cmd, uint16(len(payload))); err != nil {
		return err
	}
	return e.WritePayload(payload)
}

// WriteDebug sends a 'G' debug message with no ACK handshake at all:
// debug messages are device-to-host only and unacknowledged.
func (e *Engine) WriteDebug(message string) error {
	var buf [4]byte
	buf[0] = Magic
	buf[1] = CmdDebug
	binary.LittleEndian.PutUint16(buf[2:], uint16(len(message)))
	if _, err := e.w.Write(buf[:]); err != nil {
		return fmt.Errorf("link: write debug header: %w", err)
	}
	_, err := io.WriteString(e.w, message)
	return err
}

// WriteError sends the fixed error message for err as an 'E' response.
func (e *Engine) WriteError(err error) error {
	msg := ErrorMessage(err)
	e.log.Debugf("sending error response: %s", msg)
	return e.WriteResponse(CmdError, []byte(msg))
}

// ReadSubscribeBody reads a Subscribe request's fixed-size body and
// splits it into its nonce/tag/signature/ciphertext fields, without
// decrypting — decryption needs the decoder key, which this package does
// not hold.
func (e *Engine) ReadSubscribeBody() (nonce [24]byte, tag [16]byte, sig [64]byte, ciphertext []byte, err error) {
	body, err := e.ReadPayload(SubscriptionMessageSize)
	if err != nil {
		return nonce, tag, sig, nil, err
	}
	copy(nonce[:], body[0:24])
	copy(tag[:], body[24:40])
	copy(sig[:], body[40:104])
	ciphertext = body[104:]
	return nonce, tag, sig, ciphertext, nil
}

// ReadDecodeBody reads a Decode request's body given the header's
// declared size, validating the inner frame length before returning its
// fields.
func (e *Engine) ReadDecodeBody(size uint16) (channelID uint32, nonce [24]byte, tag [16]byte, sig [64]byte, payload []byte, err error) {
	if int(size) < decodeFixedOverhead {
		return 0, nonce, tag, sig, nil, ErrFrameTooLarge
	}
	frameLength := int(size) - decodeFixedOverhead
	if frameLength > MaxFrameBody {
		return 0, nonce, tag, sig, nil, ErrFrameTooLarge
	}

	body, err := e.ReadPayload(int(size))
	if err != nil {
		return 0, nonce, tag, sig, nil, err
	}

	channelID = binary.LittleEndian.Uint32(body[0:4])
	copy(nonce[:], body[4:28])
	copy(tag[:], body[28:44])
	copy(sig[:], body[44:108])
	payload = body[108:] // timestamp(8) || frame-body

	return channelID, nonce, tag, sig, payload, nil
}

// marshalList renders subscriptions as the List response's wire payload:
// a little-endian u32 count followed by count×(channel u32, start u64,
// end u64). The channel key is never included.
func marshalList(subs []subscription.Subscription) []byte {
	buf := make([]byte, 4+len(subs)*(4+8+8))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(subs)))
	off := 4
	for _, s := range subs {
		binary.LittleEndian.PutUint32(buf[off:off+4], s.ChannelID)
		binary.LittleEndian.PutUint64(buf[off+4:off+12], s.StartTime)
		binary.LittleEndian.PutUint64(buf[off+12:off+20], s.EndTime)
		off += 20
	}
	return buf
}

// WriteList sends the List response for subs.
func (e *Engine) WriteList(subs []subscription.Subscription) error {
	return e.WriteResponse(CmdList, marshalList(subs))
}
