package subscription

import (
	"testing"

	"github.com/duskrelay/decoder/crypto"
	"github.com/stretchr/testify/require"
)

func TestRegisterFillsEmptySlots(t *testing.T) {
	tbl := NewTable()
	for i := uint32(1); i <= MaxSubscriptions; i++ {
		err := tbl.Register(Subscription{ChannelID: i, StartTime: 0, EndTime: 100})
		require.NoError(t, err)
	}
	require.Len(t, tbl.List(), MaxSubscriptions)
}

func TestRegisterNinthDistinctChannelFails(t *testing.T) {
	tbl := NewTable()
	for i := uint32(1); i <= MaxSubscriptions; i++ {
		require.NoError(t, tbl.Register(Subscription{ChannelID: i}))
	}
	err := tbl.Register(Subscription{ChannelID: MaxSubscriptions + 1})
	require.ErrorIs(t, err, ErrNoMoreSubscriptionSpace)
}

func TestRegisterExistingChannelUpdatesInPlace(t *testing.T) {
	tbl := NewTable()
	for i := uint32(1); i <= MaxSubscriptions; i++ {
		require.NoError(t, tbl.Register(Subscription{ChannelID: i, EndTime: 1}))
	}
	// Table is full, but re-registering channel 3 must still succeed.
	err := tbl.Register(Subscription{ChannelID: 3, EndTime: 999})
	require.NoError(t, err)

	sub, ok := tbl.Lookup(3)
	require.True(t, ok)
	require.Equal(t, uint64(999), sub.EndTime)
	require.Len(t, tbl.List(), MaxSubscriptions)
}

func TestRegisterChannelZeroRejected(t *testing.T) {
	tbl := NewTable()
	err := tbl.Register(Subscription{ChannelID: 0})
	require.ErrorIs(t, err, ErrInvalidChannel)
	require.Empty(t, tbl.List())
}

func TestLookupMissingChannel(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Lookup(42)
	require.False(t, ok)
}

func TestResetZeroizesSlots(t *testing.T) {
	tbl := NewTable()
	var key crypto.Key
	key[0] = 0xAB
	require.NoError(t, tbl.Register(Subscription{ChannelID: 1, ChannelKey: key}))
	slot := tbl.slots[0]
	tbl.Reset()
	require.Equal(t, crypto.Key{}, slot.ChannelKey, "Reset must wipe the slot's channel key")
	require.Empty(t, tbl.List())
	_, ok := tbl.Lookup(1)
	require.False(t, ok)
}
