// wire.go - host-side construction of Subscribe/Decode request bodies.
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
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"

	"github.com/duskrelay/decoder/crypto"
	"github.com/duskrelay/decoder/link"
)

// buildSubscribeBody builds a full Subscribe request body: nonce || tag
// || signature || AEAD ciphertext of (channel || start || end ||
// channelKey). The signature is computed over the plaintext before
// encryption mutates it in place, matching the order FrameDecrypt expects
// on the decoder side.
func buildSubscribeBody(signingKey ed25519.PrivateKey, decoderKey crypto.Key, channel uint32, start, end uint64, channelKey crypto.Key) ([]byte, error) {
	plain := make([]byte, 4+8+8+crypto.KeySize)
	binary.LittleEndian.PutUint32(plain[0:4], channel)
	binary.LittleEndian.PutUint64(plain[4:12], start)
	binary.LittleEndian.PutUint64(plain[12:20], end)
	copy(plain[20:], channelKey[:])

	sig := ed25519.Sign(signingKey, plain)

	var nonce crypto.Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	tag, err := crypto.AEADEncryptInPlace(decoderKey, nonce, plain)
	if err != nil {
		return nil, err
	}

	body := make([]byte, 0, link.SubscriptionMessageSize)
	body = append(body, nonce[:]...)
	body = append(body, tag[:]...)
	body = append(body, sig...)
	body = append(body, plain...)
	return body, nil
}

// buildDecodeBody builds a full Decode request body for channel: channel
// (sent separately as the leading 4 bytes so the decoder can resolve the
// key before decrypting) || nonce || tag || signature || ciphertext of
// (timestamp || frame). frame must be at most link.MaxFrameBody bytes.
func buildDecodeBody(signingKey ed25519.PrivateKey, channelKey crypto.Key, channel uint32, timestamp uint64, frame []byte) ([]byte, error) {
	plain := make([]byte, 8+len(frame))
	binary.LittleEndian.PutUint64(plain[0:8], timestamp)
	copy(plain[8:], frame)

	sig := ed25519.Sign(signingKey, plain)

	var nonce crypto.Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	tag, err := crypto.AEADEncryptInPlace(channelKey, nonce, plain)
	if err != nil {
		return nil, err
	}

	body := make([]byte, 4, 4+24+16+64+len(plain))
	binary.LittleEndian.PutUint32(body[0:4], channel)
	body = append(body, nonce[:]...)
	body = append(body, tag[:]...)
	body = append(body, sig...)
	body = append(body, plain...)
	return body, nil
}
