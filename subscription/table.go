// table.go - fixed-capacity subscription table.
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

// Package subscription implements the decoder's fixed-capacity channel
// subscription table and the frame-decode procedure that consults it.
package subscription

import (
	"errors"

	"github.com/duskrelay/decoder/crypto"
)

// MaxSubscriptions is the table's fixed capacity. There is no growth path;
// a ninth distinct channel is always rejected.
const MaxSubscriptions = 8

// EmergencyChannelID is always considered valid for decoding regardless of
// table contents, and can never itself be registered.
const EmergencyChannelID = 0

var (
	// ErrNoMoreSubscriptionSpace is returned by Register when the table is
	// full and the channel being registered is not already present.
	ErrNoMoreSubscriptionSpace = errors.New("subscription: no more subscription space")
	// ErrInvalidChannel is returned by Register for the reserved emergency
	// channel, which can never occupy a table slot.
	ErrInvalidChannel = errors.New("subscription: channel 0 cannot be subscribed")
)

// Subscription is one entitlement: a channel, a validity window, and the
// per-channel key used to decrypt its frames.
type Subscription struct {
	ChannelID  uint32
	StartTime  uint64
	EndTime    uint64
	ChannelKey crypto.Key
}

// Table is the in-RAM view of the decoder's subscriptions, backed by a
// fixed-size slot array: slots are never reordered or compacted, only
// occupied or empty.
type Table struct {
	slots [MaxSubscriptions]*Subscription
}

// NewTable returns an empty subscription table.
func NewTable() *Table {
	return &Table{}
}

// Register inserts or replaces a subscription. If a subscription for
// sub.ChannelID already exists, it is replaced in place (same slot); only a
// genuinely new channel ID consumes a free slot.
func (t *Table) Register(sub Subscription) error {
	if sub.ChannelID == EmergencyChannelID {
		return ErrInvalidChannel
	}

	for i, s := range t.slots {
		if s != nil && s.ChannelID == sub.ChannelID {
			cp := sub
			t.slots[i] = &cp
			return nil
		}
	}

	for i, s := range t.slots {
		if s == nil {
			cp := sub
			t.slots[i] = &cp
			return nil
		}
	}

	return ErrNoMoreSubscriptionSpace
}

// Lookup returns the subscription for channelID, if one is registered.
func (t *Table) Lookup(channelID uint32) (Subscription, bool) {
	for _, s := range t.slots {
		if s != nil && s.ChannelID == channelID {
			return *s, true
		}
	}
	return Subscription{}, false
}

// List returns all occupied subscriptions, in slot order. The returned
// slice is a fresh copy; callers may not mutate the table through it.
func (t *Table) List() []Subscription {
	out := make([]Subscription, 0, MaxSubscriptions)
	for _, s := range t.slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// Reset clears every slot, wiping each subscription's channel key first.
func (t *Table) Reset() {
	for i, s := range t.slots {
		if s != nil {
			crypto.Zeroize(s.ChannelKey[:])
			t.slots[i] = nil
		}
	}
}
