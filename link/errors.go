// errors.go - wire-level error taxonomy and fixed error messages.
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

package link

import (
	"errors"

	"github.com/duskrelay/decoder/storage"
	"github.com/duskrelay/decoder/subscription"
)

var (
	// ErrExpectedAckButGotOther is returned when a non-'A' byte follows
	// the magic byte during an ACK wait.
	ErrExpectedAckButGotOther = errors.New("link: expected ACK but got a different byte")
	// ErrFrameTooLarge is returned when a Decode frame body would exceed
	// 64 bytes.
	ErrFrameTooLarge = errors.New("link: frame body exceeds maximum size")
	// ErrPacketWrongSize is returned when a fixed-size command declares a
	// length that does not match its expected size.
	ErrPacketWrongSize = errors.New("link: packet has the wrong declared size for its command")
	// ErrInvalidCommand is returned when a header's command byte is not
	// one of L, S, D.
	ErrInvalidCommand = errors.New("link: unrecognized command byte")
)

// messages is the fixed, static error-message table: every wire error
// maps to one constant string, never one built at runtime from
// request-dependent data, since that would be both a heap dependency and
// an information leak on the error path.
var messages = []struct {
	err     error
	message string
}{
	{ErrExpectedAckButGotOther, "Expected ACK but got unexpected byte"},
	{subscription.ErrNoMoreSubscriptionSpace, "Attempted to add a subscription, but subscription space is full"},
	{ErrFrameTooLarge, "Was asked to decode a frame which is larger than 64 bytes"},
	{subscription.ErrNoSubscription, "Was asked to decode a frame for channel that we have no subscription for"},
	{subscription.ErrSubscriptionTimeMismatch, "Was asked to decode a frame with timestamp that's invalid for our subscription."},
	{subscription.ErrFailedDecryption, "Failed to decrypt an encrypted payload. This can mean that you used a subscription for a different decoder, or that your message was corrupted or tampered with."},
	{subscription.ErrFrameOutOfOrder, "Was asked to decode a frame with timestamp in the past"},
	{ErrPacketWrongSize, "Received a packet which has a constant expected size with an invalid size for the packet type"},
	{ErrInvalidCommand, "Received a command with a type byte that is not L, S, or D"},
	{storage.ErrSavingFailed, "Failed to save subscriptions to flash"},
	{subscription.ErrInvalidChannel, "Channel 0 is reserved and cannot be subscribed"},
}

const unknownErrorMessage = "An internal error occurred"

// ErrorMessage maps any error this system produces to its fixed wire
// message. Errors are matched with errors.Is so that wrapped errors
// (e.g. a storage error wrapped in a SavingFailed sentinel) still resolve
// to the correct static string. An error with no match falls back to a
// single generic string rather than ever formatting err's own text onto
// the wire.
func ErrorMessage(err error) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return unknownErrorMessage
}
