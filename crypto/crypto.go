// crypto.go - AEAD and signature primitives for the decoder.
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

// Package crypto implements the fixed cryptographic primitives the decoder
// is built on: XChaCha20-Poly1305 AEAD for frame and persistence
// confidentiality/integrity, and strict Ed25519 verification for broadcast
// frame authenticity. No algorithm negotiation exists; everything here is
// fixed at build time per the deployment's embedded key material.
package crypto

import (
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the length in bytes of an XChaCha20-Poly1305 key.
	KeySize = 32
	// NonceSize is the length in bytes of an XChaCha20-Poly1305 nonce.
	NonceSize = 24
	// TagSize is the length in bytes of a Poly1305 authentication tag.
	TagSize = 16
	// SignatureSize is the length in bytes of a detached Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
	// PublicKeySize is the length in bytes of a compressed Ed25519 public key.
	PublicKeySize = ed25519.PublicKeySize

	// HeaderSize is the length of the nonce+tag+signature crypto header
	// that precedes an AEAD ciphertext on the wire.
	HeaderSize = NonceSize + TagSize + SignatureSize
)

// Key is a symmetric AEAD key.
type Key [KeySize]byte

// Nonce is an XChaCha20-Poly1305 nonce. Callers must never reuse a nonce
// under the same key.
type Nonce [NonceSize]byte

// Tag is a detached Poly1305 authentication tag.
type Tag [TagSize]byte

// Signature is a detached Ed25519 signature.
type Signature [SignatureSize]byte

// PublicKey is a compressed Ed25519 public key.
type PublicKey [PublicKeySize]byte

var (
	// ErrAuthentication is returned when AEAD decryption fails to
	// authenticate the ciphertext. Buffer contents are undefined after
	// this error and must not be used.
	ErrAuthentication = errors.New("crypto: AEAD authentication failed")
	// ErrSignature is returned when Ed25519 verification fails.
	ErrSignature = errors.New("crypto: signature verification failed")
	// ErrWeakPublicKey is returned when a public key is the identity or
	// has small order, and therefore cannot be asserted non-malleable.
	ErrWeakPublicKey = errors.New("crypto: public key has small order")
)

// aead builds a cipher.AEAD for the given key. The only failure mode is a
// malformed key, which cannot happen given the fixed-size Key type.
func aead(key Key) cipher.AEAD {
	c, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		panic(fmt.Sprintf("crypto: BUG: invalid XChaCha20-Poly1305 key length: %v", err))
	}
	return c
}

// AEADDecryptInPlace decrypts buf in place given key, nonce, and a detached
// tag, mirroring the AEAD library's combined decrypt with the tag supplied
// separately rather than appended. On failure buf's contents are undefined.
func AEADDecryptInPlace(key Key, nonce Nonce, tag Tag, buf []byte) error {
	sealed := make([]byte, 0, len(buf)+TagSize)
	sealed = append(sealed, buf...)
	sealed = append(sealed, tag[:]...)

	plain, err := aead(key).Open(sealed[:0], nonce[:], sealed, nil)
	if err != nil {
		return ErrAuthentication
	}
	copy(buf, plain)
	return nil
}

// AEADEncryptInPlace seals buf in place under a freshly supplied nonce and
// returns the detached authentication tag. The nonce must never be reused
// for a given key.
func AEADEncryptInPlace(key Key, nonce Nonce, buf []byte) (Tag, error) {
	sealed := aead(key).Seal(nil, nonce[:], buf, nil)
	if len(sealed) != len(buf)+TagSize {
		return Tag{}, fmt.Errorf("crypto: BUG: unexpected seal output length %d", len(sealed))
	}
	copy(buf, sealed[:len(buf)])
	var tag Tag
	copy(tag[:], sealed[len(buf):])
	return tag, nil
}

var (
	verifyingKeyOnce sync.Once
	verifyingKey     ed25519.PublicKey
	verifyingKeyErr  error
)

// Bootstrap materializes the embedded verifying key once, ahead of the
// first frame, so that the hot path never pays key-parsing cost. Calling
// it more than once is safe: only the first call takes effect. If it has
// never succeeded, VerifySignature returns an error.
func Bootstrap(pub PublicKey) error {
	verifyingKeyOnce.Do(func() {
		if IsWeakPublicKey(pub) {
			verifyingKeyErr = ErrWeakPublicKey
			return
		}
		verifyingKey = append(ed25519.PublicKey(nil), pub[:]...)
	})
	return verifyingKeyErr
}

// VerifySignature checks a detached Ed25519 signature over message using
// the bootstrapped verifying key. Bootstrap must have been called
// successfully first; this keeps parsing/weak-key checks off the hot path.
func VerifySignature(message []byte, sig Signature) error {
	if verifyingKey == nil {
		return fmt.Errorf("crypto: verifying key not bootstrapped: %w", verifyingKeyErr)
	}
	if !ed25519.Verify(verifyingKey, message, sig[:]) {
		return ErrSignature
	}
	return nil
}

// FrameDecrypt performs the decoder's fixed decrypt-then-verify sequence:
// AEAD-decrypt buf in place, then verify the Ed25519 signature over the
// resulting plaintext. This order is a protocol commitment, not an
// implementation detail; reversing it would change what an attacker can
// observe before authenticity is established.
func FrameDecrypt(key Key, nonce Nonce, tag Tag, sig Signature, buf []byte) error {
	if err := AEADDecryptInPlace(key, nonce, tag, buf); err != nil {
		return err
	}
	if err := VerifySignature(buf, sig); err != nil {
		return err
	}
	return nil
}

// Zeroize wipes buf, whatever its length. Used on persistence RAM buffers after
// every flush and after any failed decrypt, per the persistence layer's
// recovery policy.
func Zeroize(buf []byte) {
	memguard.WipeBytes(buf)
}

// DeriveDecoderKey derives a per-decoder symmetric key via HKDF-SHA256,
// the Go analog of the build-time `hkdf.expand(info, ...)` step that binds
// a decoder's key to its identity.
func DeriveDecoderKey(deploymentKey, salt, decoderID []byte) (Key, error) {
	r := hkdf.New(sha256.New, deploymentKey, salt, decoderID)
	var key Key
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return Key{}, fmt.Errorf("crypto: HKDF expand: %w", err)
	}
	return key, nil
}
