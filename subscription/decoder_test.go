package subscription

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/duskrelay/decoder/crypto"
	"github.com/stretchr/testify/require"
)

type sealedFrame struct {
	nonce crypto.Nonce
	tag   crypto.Tag
	sig   crypto.Signature
	buf   []byte
}

func sealFrame(t *testing.T, priv ed25519.PrivateKey, key crypto.Key, timestamp uint64, body []byte) sealedFrame {
	t.Helper()
	plain := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint64(plain[:8], timestamp)
	copy(plain[8:], body)

	raw := ed25519.Sign(priv, plain)
	var sig crypto.Signature
	copy(sig[:], raw)

	var nonce crypto.Nonce
	_, err := rand.Read(nonce[:])
	require.NoError(t, err)

	tag, err := crypto.AEADEncryptInPlace(key, nonce, plain)
	require.NoError(t, err)

	return sealedFrame{nonce: nonce, tag: tag, sig: sig, buf: plain}
}

// testSigningPub/testSigningPriv are shared across every test in this
// file: crypto.Bootstrap is process-wide and one-shot, so generating a
// fresh keypair per test and bootstrapping it would only take effect for
// whichever test happens to run first.
var testSigningPub, testSigningPriv, testSigningKeyErr = ed25519.GenerateKey(nil)

func init() {
	if testSigningKeyErr != nil {
		panic(testSigningKeyErr)
	}
	var pk crypto.PublicKey
	copy(pk[:], testSigningPub)
	if err := crypto.Bootstrap(pk); err != nil {
		panic(err)
	}
}

func newTestDecoder(t *testing.T) (*Decoder, ed25519.PrivateKey, crypto.Key) {
	t.Helper()

	var channel0Key crypto.Key
	_, err := rand.Read(channel0Key[:])
	require.NoError(t, err)

	return NewDecoder(NewTable(), channel0Key), testSigningPriv, channel0Key
}

func TestDecodeChannelZeroAlwaysValid(t *testing.T) {
	d, priv, key := newTestDecoder(t)
	f := sealFrame(t, priv, key, 0, []byte("hello"))

	body, err := d.Decode(EmergencyChannelID, f.nonce, f.tag, f.sig, f.buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), body)
}

func TestDecodeNoSubscription(t *testing.T) {
	d, priv, _ := newTestDecoder(t)
	var key crypto.Key
	f := sealFrame(t, priv, key, 0, []byte("x"))

	_, err := d.Decode(7, f.nonce, f.tag, f.sig, f.buf)
	require.ErrorIs(t, err, ErrNoSubscription)
}

func TestDecodeWindowMismatch(t *testing.T) {
	d, priv, _ := newTestDecoder(t)
	var key crypto.Key
	key[0] = 1
	require.NoError(t, d.table.Register(Subscription{ChannelID: 7, StartTime: 100, EndTime: 200, ChannelKey: key}))

	f := sealFrame(t, priv, key, 50, []byte("x"))
	_, err := d.Decode(7, f.nonce, f.tag, f.sig, f.buf)
	require.ErrorIs(t, err, ErrSubscriptionTimeMismatch)
}

func TestDecodeReplayRejection(t *testing.T) {
	d, priv, _ := newTestDecoder(t)
	var key crypto.Key
	key[0] = 1
	require.NoError(t, d.table.Register(Subscription{ChannelID: 7, StartTime: 0, EndTime: 1_000_000, ChannelKey: key}))

	first := sealFrame(t, priv, key, 1_000_000, []byte("a"))
	_, err := d.Decode(7, first.nonce, first.tag, first.sig, first.buf)
	require.NoError(t, err)

	second := sealFrame(t, priv, key, 999_999, []byte("b"))
	_, err = d.Decode(7, second.nonce, second.tag, second.sig, second.buf)
	require.ErrorIs(t, err, ErrFrameOutOfOrder)
}

func TestDecodeEqualTimestampAccepted(t *testing.T) {
	d, priv, _ := newTestDecoder(t)
	var key crypto.Key
	key[0] = 1
	require.NoError(t, d.table.Register(Subscription{ChannelID: 7, StartTime: 0, EndTime: 1_000_000, ChannelKey: key}))

	first := sealFrame(t, priv, key, 500, []byte("a"))
	_, err := d.Decode(7, first.nonce, first.tag, first.sig, first.buf)
	require.NoError(t, err)

	second := sealFrame(t, priv, key, 500, []byte("b"))
	_, err = d.Decode(7, second.nonce, second.tag, second.sig, second.buf)
	require.NoError(t, err, "equal timestamps must be accepted, not treated as replay")
}

func TestDecodeForgedSignatureFails(t *testing.T) {
	d, priv, _ := newTestDecoder(t)
	var key crypto.Key
	key[0] = 1
	require.NoError(t, d.table.Register(Subscription{ChannelID: 7, StartTime: 0, EndTime: 1_000_000, ChannelKey: key}))

	f := sealFrame(t, priv, key, 10, []byte("a"))
	f.sig[63] ^= 0xFF

	_, err := d.Decode(7, f.nonce, f.tag, f.sig, f.buf)
	require.ErrorIs(t, err, ErrFailedDecryption)
}
