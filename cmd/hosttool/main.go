// main.go - head-end host tool entrypoint.
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

// Command hosttool is the head-end operator's counterpart to cmd/decoder:
// it speaks the same framed host-link protocol from the other side, to
// list, subscribe, and send test frames to a decoder over its serial
// port (or, for bench testing, a plain TCP connection), and keeps its
// own local log of what it has issued.
package main

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/duskrelay/decoder/crypto"
	"github.com/duskrelay/decoder/internal/corelog"
	"github.com/duskrelay/decoder/link"
	logging "gopkg.in/op/go-logging.v1"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(os.Args[2:])
	case "subscribe":
		err = runSubscribe(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "hosttool:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hosttool <list|subscribe|decode> [flags]")
}

// dialFlags are the connection flags shared by every subcommand: either
// --device (a serial port) or --addr (a TCP address for bench testing
// against a software decoder).
type dialFlags struct {
	device string
	addr   string
}

func (d *dialFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.device, "device", "", "serial device, e.g. /dev/ttyUSB0")
	fs.StringVar(&d.addr, "addr", "", "TCP address of a bench decoder, e.g. localhost:7700")
}

func (d *dialFlags) open() (link.Transport, error) {
	switch {
	case d.device != "":
		return link.OpenSerialTransport(d.device)
	case d.addr != "":
		conn, err := net.Dial("tcp", d.addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", d.addr, err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("one of -device or -addr is required")
	}
}

func closeTransport(t link.Transport) {
	if c, ok := t.(io.Closer); ok {
		c.Close()
	}
}

func toolLogger() *logging.Logger {
	backend, err := corelog.NewStderr("NOTICE")
	if err != nil {
		panic(err)
	}
	return backend.GetLogger("hosttool")
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var d dialFlags
	d.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	transport, err := d.open()
	if err != nil {
		return err
	}
	defer closeTransport(transport)

	e := link.NewEngine(transport, toolLogger())
	// A List request is header-only: the decoder goes straight from the
	// header ACK to its response, with no empty-body transfer in between.
	if err := e.WriteHeader(link.CmdList, 0); err != nil {
		return err
	}

	hdr, err := e.ReadHeader()
	if err != nil {
		return err
	}
	body, err := e.ReadPayload(int(hdr.Size))
	if err != nil {
		return err
	}
	return printListResponse(hdr, body)
}

func printListResponse(hdr link.Header, body []byte) error {
	if hdr.Command == link.CmdError {
		return fmt.Errorf("decoder error: %s", string(body))
	}
	if len(body) < 4 {
		return fmt.Errorf("malformed list response: %d bytes", len(body))
	}
	count := binary.LittleEndian.Uint32(body[0:4])
	off := 4
	fmt.Printf("%d active subscriptions\n", count)
	for i := uint32(0); i < count; i++ {
		if off+20 > len(body) {
			return fmt.Errorf("malformed list response: truncated entry %d", i)
		}
		channel := binary.LittleEndian.Uint32(body[off : off+4])
		start := binary.LittleEndian.Uint64(body[off+4 : off+12])
		end := binary.LittleEndian.Uint64(body[off+12 : off+20])
		fmt.Printf("  channel=%d start=%d end=%d\n", channel, start, end)
		off += 20
	}
	return nil
}

func runSubscribe(args []string) error {
	fs := flag.NewFlagSet("subscribe", flag.ExitOnError)
	var d dialFlags
	d.register(fs)
	decoderID := fs.String("decoder-id", "", "decoder identity, for the local registry log")
	decoderKeyHex := fs.String("decoder-key", "", "hex DECODER_KEY for this decoder")
	signingSeedHex := fs.String("signing-key", "", "hex Ed25519 signing seed")
	channel := fs.Uint("channel", 0, "channel ID to subscribe to")
	start := fs.Uint64("start", 0, "subscription window start timestamp")
	end := fs.Uint64("end", 0, "subscription window end timestamp")
	channelKeyHex := fs.String("channel-key", "", "hex channel key to grant")
	registryPath := fs.String("registry", "hosttool.db", "local provisioning registry path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decoderKey, err := parseKey(*decoderKeyHex, "decoder-key")
	if err != nil {
		return err
	}
	channelKey, err := parseKey(*channelKeyHex, "channel-key")
	if err != nil {
		return err
	}
	signingKey, err := parseSigningSeed(*signingSeedHex)
	if err != nil {
		return err
	}

	body, err := buildSubscribeBody(signingKey, decoderKey, uint32(*channel), *start, *end, channelKey)
	if err != nil {
		return fmt.Errorf("build subscribe body: %w", err)
	}

	transport, err := d.open()
	if err != nil {
		return err
	}
	defer closeTransport(transport)

	e := link.NewEngine(transport, toolLogger())
	if err := e.WriteHeader(link.CmdSubscribe, uint16(len(body))); err != nil {
		return err
	}
	if err := e.WritePayload(body); err != nil {
		return err
	}

	hdr, err := e.ReadHeader()
	if err != nil {
		return err
	}
	resp, err := e.ReadPayload(int(hdr.Size))
	if err != nil {
		return err
	}
	if hdr.Command == link.CmdError {
		return fmt.Errorf("decoder error: %s", string(resp))
	}

	if *decoderID != "" {
		reg, err := OpenRegistry(*registryPath)
		if err != nil {
			return fmt.Errorf("open registry (subscription succeeded but was not logged): %w", err)
		}
		defer reg.Close()
		err = reg.Record(SubscriptionRecord{
			DecoderID:  *decoderID,
			ChannelID:  uint32(*channel),
			StartTime:  *start,
			EndTime:    *end,
			ChannelKey: channelKey,
			IssuedAt:   time.Now(),
		})
		if err != nil {
			return fmt.Errorf("record subscription (subscription succeeded but was not logged): %w", err)
		}
	}

	fmt.Println("subscribed")
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var d dialFlags
	d.register(fs)
	signingSeedHex := fs.String("signing-key", "", "hex Ed25519 signing seed")
	channel := fs.Uint("channel", 0, "channel ID to send the frame on")
	channelKeyHex := fs.String("channel-key", "", "hex channel key the frame is encrypted under")
	timestamp := fs.Uint64("timestamp", 0, "frame timestamp")
	frameHex := fs.String("frame", "", "hex frame body, at most link.MaxFrameBody bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	channelKey, err := parseKey(*channelKeyHex, "channel-key")
	if err != nil {
		return err
	}
	signingKey, err := parseSigningSeed(*signingSeedHex)
	if err != nil {
		return err
	}
	frame, err := hex.DecodeString(*frameHex)
	if err != nil {
		return fmt.Errorf("frame: %w", err)
	}

	body, err := buildDecodeBody(signingKey, channelKey, uint32(*channel), *timestamp, frame)
	if err != nil {
		return fmt.Errorf("build decode body: %w", err)
	}

	transport, err := d.open()
	if err != nil {
		return err
	}
	defer closeTransport(transport)

	e := link.NewEngine(transport, toolLogger())
	if err := e.WriteHeader(link.CmdDecode, uint16(len(body))); err != nil {
		return err
	}
	if err := e.WritePayload(body); err != nil {
		return err
	}

	hdr, err := e.ReadHeader()
	if err != nil {
		return err
	}
	resp, err := e.ReadPayload(int(hdr.Size))
	if err != nil {
		return err
	}
	if hdr.Command == link.CmdError {
		return fmt.Errorf("decoder error: %s", string(resp))
	}
	fmt.Printf("decoded frame: %s\n", hex.EncodeToString(resp))
	return nil
}

func parseKey(s, field string) (crypto.Key, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return crypto.Key{}, fmt.Errorf("%s: %w", field, err)
	}
	if len(raw) != crypto.KeySize {
		return crypto.Key{}, fmt.Errorf("%s: want %d bytes, got %d", field, crypto.KeySize, len(raw))
	}
	var key crypto.Key
	copy(key[:], raw)
	return key, nil
}

func parseSigningSeed(s string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("signing-key: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing-key: want %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	return ed25519.NewKeyFromSeed(raw), nil
}
