package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) Key {
	var k Key
	_, err := rand.Read(k[:])
	require.NoError(t, err)
	return k
}

func randomNonce(t *testing.T) Nonce {
	var n Nonce
	_, err := rand.Read(n[:])
	require.NoError(t, err)
	return n
}

func TestAEADRoundTrip(t *testing.T) {
	key := randomKey(t)
	nonce := randomNonce(t)
	plaintext := []byte("CHANNEL3:subscription payload bytes go here")
	buf := append([]byte(nil), plaintext...)

	tag, err := AEADEncryptInPlace(key, nonce, buf)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, buf, "ciphertext must not equal plaintext")

	err = AEADDecryptInPlace(key, nonce, tag, buf)
	require.NoError(t, err)
	require.Equal(t, plaintext, buf)
}

func TestAEADDecryptRejectsTamperedTag(t *testing.T) {
	key := randomKey(t)
	nonce := randomNonce(t)
	buf := []byte("payload")
	tag, err := AEADEncryptInPlace(key, nonce, buf)
	require.NoError(t, err)

	tag[0] ^= 0xFF
	err = AEADDecryptInPlace(key, nonce, tag, buf)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestAEADDecryptRejectsWrongKey(t *testing.T) {
	key := randomKey(t)
	nonce := randomNonce(t)
	buf := []byte("payload")
	tag, err := AEADEncryptInPlace(key, nonce, buf)
	require.NoError(t, err)

	other := randomKey(t)
	err = AEADDecryptInPlace(other, nonce, tag, buf)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	resetVerifyingKey(t)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var pk PublicKey
	copy(pk[:], pub)
	require.NoError(t, Bootstrap(pk))

	msg := []byte("frame body")
	raw := ed25519.Sign(priv, msg)
	var sig Signature
	copy(sig[:], raw)

	require.NoError(t, VerifySignature(msg, sig))

	msg[0] ^= 0xFF
	require.ErrorIs(t, VerifySignature(msg, sig), ErrSignature)
}

func TestBootstrapRejectsIdentityPoint(t *testing.T) {
	resetVerifyingKey(t)
	var identity PublicKey
	// The all-zero-except-first-byte encoding below is the canonical
	// compressed encoding of the identity point (y=1, x=0).
	identity[0] = 1
	require.ErrorIs(t, Bootstrap(identity), ErrWeakPublicKey)
}

func TestFrameDecryptOrdering(t *testing.T) {
	resetVerifyingKey(t)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var pk PublicKey
	copy(pk[:], pub)
	require.NoError(t, Bootstrap(pk))

	key := randomKey(t)
	nonce := randomNonce(t)
	plaintext := []byte("broadcast decode frame")
	raw := ed25519.Sign(priv, plaintext)
	var sig Signature
	copy(sig[:], raw)

	buf := append([]byte(nil), plaintext...)
	tag, err := AEADEncryptInPlace(key, nonce, buf)
	require.NoError(t, err)

	require.NoError(t, FrameDecrypt(key, nonce, tag, sig, buf))
	require.Equal(t, plaintext, buf)

	tag[0] ^= 0xFF
	buf2 := append([]byte(nil), plaintext...)
	tag2, err := AEADEncryptInPlace(key, nonce, buf2)
	require.NoError(t, err)
	tag2[0] ^= 0xFF
	err = FrameDecrypt(key, nonce, tag2, sig, buf2)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestDeriveDecoderKeyDeterministic(t *testing.T) {
	deploymentKey := []byte("0123456789abcdef0123456789abcdef")
	salt := []byte("fixed-deployment-salt")
	id1 := []byte("decoder-0001")
	id2 := []byte("decoder-0002")

	k1, err := DeriveDecoderKey(deploymentKey, salt, id1)
	require.NoError(t, err)
	k1b, err := DeriveDecoderKey(deploymentKey, salt, id1)
	require.NoError(t, err)
	require.Equal(t, k1, k1b, "derivation must be deterministic for a given identity")

	k2, err := DeriveDecoderKey(deploymentKey, salt, id2)
	require.NoError(t, err)
	require.NotEqual(t, k1, k2, "distinct decoder identities must derive distinct keys")
}

// resetVerifyingKey clears the package-level bootstrap state between tests
// that each need their own verifying key. Not something production code
// ever needs: Bootstrap is meant to run exactly once per process lifetime.
func resetVerifyingKey(t *testing.T) {
	t.Helper()
	verifyingKeyOnce = sync.Once{}
	verifyingKey = nil
	verifyingKeyErr = nil
}
