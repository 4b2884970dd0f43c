// encoding.go - fixed binary layout for persisting a subscription table.
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
	"fmt"

	"github.com/duskrelay/decoder/crypto"
)

// entrySize is the on-disk size of one subscription record: channel_id
// (4) + start_time (8) + end_time (8) + channel_key (32).
const entrySize = 4 + 8 + 8 + crypto.KeySize

// MarshalBinary encodes the occupied slots as a count-prefixed, fixed-width
// little-endian record list. This is the plaintext that the persistence
// layer encrypts; it is never sent on the wire in this form (the List
// wire response omits channel_key).
func (t *Table) MarshalBinary() ([]byte, error) {
	subs := t.List()
	buf := make([]byte, 4+len(subs)*entrySize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(subs)))

	off := 4
	for _, s := range subs {
		binary.LittleEndian.PutUint32(buf[off:off+4], s.ChannelID)
		binary.LittleEndian.PutUint64(buf[off+4:off+12], s.StartTime)
		binary.LittleEndian.PutUint64(buf[off+12:off+20], s.EndTime)
		copy(buf[off+20:off+20+crypto.KeySize], s.ChannelKey[:])
		off += entrySize
	}
	return buf, nil
}

// UnmarshalBinary decodes a blob produced by MarshalBinary and replaces
// the table's contents. An empty blob (the zero-length image from a fresh
// or tampered-and-degraded boot) yields an empty table, not an error.
func (t *Table) UnmarshalBinary(data []byte) error {
	t.Reset()

	if len(data) == 0 {
		return nil
	}
	if len(data) < 4 {
		return fmt.Errorf("subscription: persisted blob too short for count field")
	}

	count := binary.LittleEndian.Uint32(data[0:4])
	want := 4 + int(count)*entrySize
	if len(data) != want {
		return fmt.Errorf("subscription: persisted blob length %d does not match count %d", len(data), count)
	}
	if count > MaxSubscriptions {
		return fmt.Errorf("subscription: persisted blob claims %d subscriptions, max is %d", count, MaxSubscriptions)
	}

	off := 4
	for i := uint32(0); i < count; i++ {
		var sub Subscription
		sub.ChannelID = binary.LittleEndian.Uint32(data[off : off+4])
		sub.StartTime = binary.LittleEndian.Uint64(data[off+4 : off+12])
		sub.EndTime = binary.LittleEndian.Uint64(data[off+12 : off+20])
		copy(sub.ChannelKey[:], data[off+20:off+20+crypto.KeySize])
		off += entrySize

		t.slots[i] = &sub
	}
	return nil
}
