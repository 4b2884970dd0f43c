// registry.go - host-side provisioning registry.
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
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/duskrelay/decoder/crypto"
)

var subscriptionsBucket = []byte("subscriptions")

// SubscriptionRecord is the head-end's own bookkeeping entry for a
// subscription it has issued to a decoder: this is entirely separate
// from the decoder's own on-device flash image, and exists only so an
// operator can re-derive or audit what was sent without re-deriving key
// material by hand.
type SubscriptionRecord struct {
	DecoderID  string
	ChannelID  uint32
	StartTime  uint64
	EndTime    uint64
	ChannelKey crypto.Key
	IssuedAt   time.Time
}

// Registry is a small bbolt-backed log of issued subscriptions, keyed by
// decoder ID. Records are CBOR-encoded; this encoding is local to the
// registry and unrelated to the fixed binary host-link wire format.
type Registry struct {
	db *bbolt.DB
}

// OpenRegistry opens (creating if necessary) the registry database at path.
func OpenRegistry(path string) (*Registry, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("hosttool: open registry %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(subscriptionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hosttool: init registry buckets: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close releases the underlying database file.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Record stores rec under its (decoder, channel) key, so a later record
// for the same pair overwrites the earlier one rather than accumulating
// duplicates.
func (r *Registry) Record(rec SubscriptionRecord) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(subscriptionsBucket)
		key := recordKey(rec.DecoderID, rec.ChannelID)
		buf, err := cbor.Marshal(rec)
		if err != nil {
			return fmt.Errorf("hosttool: encode record: %w", err)
		}
		return b.Put(key, buf)
	})
}

// ListForDecoder returns every subscription recorded for decoderID.
func (r *Registry) ListForDecoder(decoderID string) ([]SubscriptionRecord, error) {
	var out []SubscriptionRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(subscriptionsBucket)
		prefix := []byte(decoderID + "/")
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var rec SubscriptionRecord
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("hosttool: decode record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func recordKey(decoderID string, channelID uint32) []byte {
	return []byte(fmt.Sprintf("%s/%010d", decoderID, channelID))
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
