// dispatcher.go - command routing and the transaction-error timing floor.
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

// Package command wires the crypto, subscription, storage, link, clock,
// and status packages together into the main per-request loop: read a
// header, start the clock, route by command byte, and on any failure
// hold the response until the transaction's timing floor has elapsed.
package command

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/duskrelay/decoder/clock"
	"github.com/duskrelay/decoder/crypto"
	"github.com/duskrelay/decoder/link"
	"github.com/duskrelay/decoder/status"
	"github.com/duskrelay/decoder/storage"
	"github.com/duskrelay/decoder/subscription"
	logging "gopkg.in/op/go-logging.v1"
)

// Dispatcher holds every component one iteration of the main loop needs.
type Dispatcher struct {
	engine     *link.Engine
	table      *subscription.Table
	decoder    *subscription.Decoder
	decoderKey crypto.Key
	persist    Persister
	clock      *clock.TransactionClock
	led        status.Indicator
	metrics    *status.Metrics
	log        *logging.Logger
}

// Persister is the subset of storage.PersistentImage the dispatcher needs:
// flushing the subscription table after every mutation.
type Persister interface {
	Flush(plaintext []byte) error
}

// New returns a Dispatcher wired to the given components. decoderKey is the
// build-time DECODER_KEY used to authenticate Subscribe request bodies,
// distinct from the channel-0 emergency key the Decoder already holds.
func New(engine *link.Engine, table *subscription.Table, decoder *subscription.Decoder, decoderKey crypto.Key, persist Persister, led status.Indicator, metrics *status.Metrics, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		engine:     engine,
		table:      table,
		decoder:    decoder,
		decoderKey: decoderKey,
		persist:    persist,
		clock:      clock.New(),
		led:        led,
		metrics:    metrics,
		log:        log,
	}
}

// RunOne handles exactly one request: read its header, start the
// transaction clock, route to the matching handler, and on any failure
// block until the 5-second timing floor has elapsed before writing the
// fixed error response. A successful response is written as soon as it
// is ready, with no floor applied.
func (d *Dispatcher) RunOne() error {
	hdr, err := d.engine.ReadHeader()
	if err != nil {
		return fmt.Errorf("command: read header: %w", err)
	}
	d.clock.Start()
	began := time.Now()

	cmdLabel := string(hdr.Command)
	handlerErr := d.route(hdr)

	if handlerErr != nil {
		d.log.Errorf("command %q failed: %v", cmdLabel, handlerErr)
		d.clock.WaitForFloor()
		d.metrics.RecordCommand(cmdLabel, true, time.Since(began).Seconds())
		if writeErr := d.engine.WriteError(handlerErr); writeErr != nil {
			return fmt.Errorf("command: write error response: %w", writeErr)
		}
		return nil
	}

	d.metrics.RecordCommand(cmdLabel, false, time.Since(began).Seconds())
	return nil
}

func (d *Dispatcher) route(hdr link.Header) error {
	switch hdr.Command {
	case link.CmdList:
		d.led.Set(status.Cyan)
		return d.handleList(hdr)
	case link.CmdSubscribe:
		d.led.Set(status.Yellow)
		return d.handleSubscribe(hdr)
	case link.CmdDecode:
		d.led.Set(status.Magenta)
		return d.handleDecode(hdr)
	default:
		return link.ErrInvalidCommand
	}
}

func (d *Dispatcher) handleList(hdr link.Header) error {
	if hdr.Size != 0 {
		return link.ErrPacketWrongSize
	}
	return d.engine.WriteList(d.table.List())
}

func (d *Dispatcher) handleSubscribe(hdr link.Header) error {
	if hdr.Size != link.SubscriptionMessageSize {
		return link.ErrPacketWrongSize
	}

	nonce, tag, sig, ciphertext, err := d.engine.ReadSubscribeBody()
	if err != nil {
		return err
	}

	buf := make([]byte, len(ciphertext))
	copy(buf, ciphertext)
	if err := crypto.FrameDecrypt(d.decoderKey, crypto.Nonce(nonce), crypto.Tag(tag), crypto.Signature(sig), buf); err != nil {
		return subscription.ErrFailedDecryption
	}

	if len(buf) != 4+8+8+crypto.KeySize {
		return link.ErrPacketWrongSize
	}
	sub := subscription.Subscription{
		ChannelID: binary.LittleEndian.Uint32(buf[0:4]),
		StartTime: binary.LittleEndian.Uint64(buf[4:12]),
		EndTime:   binary.LittleEndian.Uint64(buf[12:20]),
	}
	copy(sub.ChannelKey[:], buf[20:20+crypto.KeySize])

	if err := d.table.Register(sub); err != nil {
		return err
	}
	if err := d.flushTable(); err != nil {
		return err
	}

	return d.engine.WriteResponse(link.CmdSubscribe, nil)
}

func (d *Dispatcher) handleDecode(hdr link.Header) error {
	channelID, nonce, tag, sig, payload, err := d.engine.ReadDecodeBody(hdr.Size)
	if err != nil {
		return err
	}

	body, err := d.decoder.Decode(channelID, crypto.Nonce(nonce), crypto.Tag(tag), crypto.Signature(sig), payload)
	if err != nil {
		return err
	}

	return d.engine.WriteResponse(link.CmdDecode, body)
}

func (d *Dispatcher) flushTable() error {
	blob, err := d.table.MarshalBinary()
	if err != nil {
		return err
	}
	if err := d.persist.Flush(blob); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrSavingFailed, err)
	}
	d.metrics.SetSubscriptionSlotsUsed(len(d.table.List()))
	return nil
}
