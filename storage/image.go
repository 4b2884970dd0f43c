// image.go - authenticated-encrypted subscription table image.
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

package storage

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/duskrelay/decoder/crypto"
	"gopkg.in/op/go-logging.v1"
)

// StorageMax is the maximum size in bytes of the encrypted subscription
// table blob.
const StorageMax = 1024

const (
	offsetMagic  = 0
	offsetLength = 4
	offsetNonce  = 8
	offsetTag    = offsetNonce + crypto.NonceSize
	offsetData   = offsetTag + crypto.TagSize
)

// HeaderSize is the number of page bytes preceding the ciphertext: magic
// word, length word, nonce, and tag.
const HeaderSize = offsetData

// MagicWord marks the page as holding a valid, completely-written image.
const MagicWord uint32 = 0x4D696B75

// PersistentImage owns the reserved flash page exclusively and mediates
// every read/write of the encrypted subscription table blob through it.
type PersistentImage struct {
	flash FlashController
	key   crypto.Key
	log   *logging.Logger
}

// NewPersistentImage returns a PersistentImage over flash, encrypting with
// key.
func NewPersistentImage(flash FlashController, key crypto.Key, log *logging.Logger) *PersistentImage {
	return &PersistentImage{flash: flash, key: key, log: log}
}

// Boot reads the page at process start. If the magic word is absent, the
// page is treated as uninitialized: it is erased and a valid zero-length
// image is written immediately (this is not subject to the magic-last
// write ordering below, since there is no prior valid state to protect).
// If the magic word is present but the payload fails to decrypt, the
// failure is NOT surfaced: the page is treated as tampered, the RAM view
// is zeroized, and an empty blob is returned, per the persistence layer's
// silent-degrade policy.
func (p *PersistentImage) Boot() ([]byte, error) {
	var magicBuf [4]byte
	if err := p.flash.ReadAt(offsetMagic, magicBuf[:]); err != nil {
		return nil, fmt.Errorf("storage: read magic: %w", err)
	}

	if binary.LittleEndian.Uint32(magicBuf[:]) != MagicWord {
		p.log.Noticef("storage: flash page uninitialized, resetting")
		if err := p.reset(); err != nil {
			return nil, err
		}
		return []byte{}, nil
	}

	return p.load()
}

// reset erases the page and writes a valid, empty image in one step. It
// is only ever called when no prior valid image exists to protect, so
// there is no ordering hazard: any interruption just leaves the page in
// the same "uninitialized" state it started in.
func (p *PersistentImage) reset() error {
	if err := p.flash.ErasePage(); err != nil {
		return fmt.Errorf("storage: erase on reset: %w", err)
	}

	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[offsetMagic:], MagicWord)
	binary.LittleEndian.PutUint32(header[offsetLength:], 0)
	// Nonce and tag stay zero: length 0 means they are never consulted.
	if err := p.flash.WriteAt(0, header[:]); err != nil {
		return fmt.Errorf("storage: write reset header: %w", err)
	}
	return nil
}

func (p *PersistentImage) load() ([]byte, error) {
	var lengthBuf [4]byte
	if err := p.flash.ReadAt(offsetLength, lengthBuf[:]); err != nil {
		return nil, fmt.Errorf("storage: read length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lengthBuf[:])
	if length > StorageMax {
		p.log.Warningf("storage: flash length %d exceeds StorageMax, treating as tampered", length)
		return []byte{}, nil
	}
	if length == 0 {
		// A zero-length image has no ciphertext to authenticate.
		return []byte{}, nil
	}

	var nonce crypto.Nonce
	if err := p.flash.ReadAt(offsetNonce, nonce[:]); err != nil {
		return nil, fmt.Errorf("storage: read nonce: %w", err)
	}
	var tag crypto.Tag
	if err := p.flash.ReadAt(offsetTag, tag[:]); err != nil {
		return nil, fmt.Errorf("storage: read tag: %w", err)
	}

	buf := make([]byte, length)
	if length > 0 {
		if err := p.flash.ReadAt(offsetData, buf); err != nil {
			return nil, fmt.Errorf("storage: read ciphertext: %w", err)
		}
	}

	if err := crypto.AEADDecryptInPlace(p.key, nonce, tag, buf); err != nil {
		p.log.Warningf("storage: flash image failed to authenticate, degrading to empty table")
		crypto.Zeroize(buf)
		return []byte{}, nil
	}

	return buf, nil
}

// Flush encrypts plaintext under a freshly randomized nonce and writes it
// to the page. Writes happen strictly in this order: erase, then the
// length+nonce+tag header, then the ciphertext, then finally the magic
// word — so a power loss at any point before the magic word is written
// leaves the page reading back as uninitialized (the safe, recoverable
// state) rather than as a partially-written, attacker-influenced image.
func (p *PersistentImage) Flush(plaintext []byte) error {
	if len(plaintext) > StorageMax {
		return fmt.Errorf("storage: plaintext of %d bytes exceeds StorageMax %d", len(plaintext), StorageMax)
	}

	var nonce crypto.Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("storage: generate nonce: %w", err)
	}

	buf := append([]byte(nil), plaintext...)
	tag, err := crypto.AEADEncryptInPlace(p.key, nonce, buf)
	if err != nil {
		return fmt.Errorf("storage: encrypt: %w", err)
	}
	defer crypto.Zeroize(buf)

	if err := p.flash.ErasePage(); err != nil {
		return fmt.Errorf("storage: erase: %w", err)
	}

	var lengthNonceTag [HeaderSize - 4]byte
	binary.LittleEndian.PutUint32(lengthNonceTag[:4], uint32(len(buf)))
	copy(lengthNonceTag[4:4+crypto.NonceSize], nonce[:])
	copy(lengthNonceTag[4+crypto.NonceSize:], tag[:])
	if err := p.flash.WriteAt(offsetLength, lengthNonceTag[:]); err != nil {
		return fmt.Errorf("storage: write header: %w", err)
	}

	if len(buf) > 0 {
		if err := p.flash.WriteAt(offsetData, buf); err != nil {
			return fmt.Errorf("storage: write ciphertext: %w", err)
		}
	}

	var magicBuf [4]byte
	binary.LittleEndian.PutUint32(magicBuf[:], MagicWord)
	if err := p.flash.WriteAt(offsetMagic, magicBuf[:]); err != nil {
		return fmt.Errorf("storage: write magic: %w", err)
	}

	return nil
}
