// decoder.go - subscription-gated frame decoding.
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

package subscription

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/duskrelay/decoder/crypto"
)

var (
	// ErrNoSubscription is returned when a non-zero channel has no
	// matching table entry.
	ErrNoSubscription = errors.New("subscription: no subscription for channel")
	// ErrFailedDecryption is returned when AEAD decryption or signature
	// verification fails for a frame or subscribe payload.
	ErrFailedDecryption = errors.New("subscription: failed to decrypt payload")
	// ErrSubscriptionTimeMismatch is returned when a frame's timestamp
	// falls outside its subscription's [start, end] window.
	ErrSubscriptionTimeMismatch = errors.New("subscription: frame timestamp outside subscription window")
	// ErrFrameOutOfOrder is returned when a frame's timestamp is strictly
	// less than the highest timestamp already decoded this boot.
	ErrFrameOutOfOrder = errors.New("subscription: frame timestamp is in the past")
)

// Decoder ties the subscription table to the monotonic per-boot replay
// state and the channel-0 emergency key, and performs the decrypt-then-
// verify-then-gate sequence for incoming frames.
type Decoder struct {
	table        *Table
	channel0Key  crypto.Key
	lastTimestamp uint64
	haveLast      bool
}

// NewDecoder returns a Decoder backed by table, using channel0Key for the
// always-valid emergency channel.
func NewDecoder(table *Table, channel0Key crypto.Key) *Decoder {
	return &Decoder{table: table, channel0Key: channel0Key}
}

// resolve returns the validity window and key for channelID: the fixed
// (0, max, channel0Key) triple for the emergency channel, or the looked-up
// subscription for any other channel.
func (d *Decoder) resolve(channelID uint32) (start, end uint64, key crypto.Key, err error) {
	if channelID == EmergencyChannelID {
		return 0, math.MaxUint64, d.channel0Key, nil
	}
	sub, ok := d.table.Lookup(channelID)
	if !ok {
		return 0, 0, crypto.Key{}, ErrNoSubscription
	}
	return sub.StartTime, sub.EndTime, sub.ChannelKey, nil
}

// Decode performs the seven-step decode procedure: resolve the channel's
// key and window, decrypt-then-verify the payload in place, parse its
// leading 8-byte little-endian timestamp, enforce the subscription window
// and monotonic replay ordering, then return the frame body that follows
// the timestamp. On any failure the returned error identifies which step
// failed; payload contents are undefined on a decryption failure.
func (d *Decoder) Decode(channelID uint32, nonce crypto.Nonce, tag crypto.Tag, sig crypto.Signature, payload []byte) ([]byte, error) {
	start, end, key, err := d.resolve(channelID)
	if err != nil {
		return nil, err
	}

	if err := crypto.FrameDecrypt(key, nonce, tag, sig, payload); err != nil {
		return nil, ErrFailedDecryption
	}

	if len(payload) < 8 {
		return nil, ErrSubscriptionTimeMismatch
	}
	timestamp := binary.LittleEndian.Uint64(payload[:8])

	if timestamp < start || timestamp > end {
		return nil, ErrSubscriptionTimeMismatch
	}

	if d.haveLast && d.lastTimestamp > timestamp {
		return nil, ErrFrameOutOfOrder
	}

	d.lastTimestamp = timestamp
	d.haveLast = true

	return payload[8:], nil
}
