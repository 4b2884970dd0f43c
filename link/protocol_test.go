package link

import (
	"encoding/binary"
	"io"
	"net"
	"testing"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/stretchr/testify/require"
)

func testLog() *logging.Logger {
	logging.SetBackend(logging.NewLogBackend(io.Discard, "", 0))
	return logging.MustGetLogger("link_test")
}

// readRawAck reads one 4-byte ACK header directly off conn, bypassing the
// Engine, so the test can count how many the device actually sent.
func readRawAck(t *testing.T, conn net.Conn) {
	t.Helper()
	var buf [4]byte
	_, err := io.ReadFull(conn, buf[:])
	require.NoError(t, err)
	require.Equal(t, Magic, buf[0])
	require.Equal(t, CmdAck, buf[1])
}

func writeRawAck(t *testing.T, conn net.Conn) {
	t.Helper()
	var buf [4]byte
	buf[0] = Magic
	buf[1] = CmdAck
	_, err := conn.Write(buf[:])
	require.NoError(t, err)
}

// expectedAckCount is the ACK count for a payload of n bytes: one ACK per
// 256-byte chunk (including a trailing partial chunk) plus one terminal
// ACK.
func expectedAckCount(n int) int {
	if n == 0 {
		return 1
	}
	return (n+ChunkSize-1)/ChunkSize + 1
}

func TestChunkingAckCounts(t *testing.T) {
	sizes := []int{0, 255, 256, 257, 512, 1024}
	for _, n := range sizes {
		n := n
		t.Run("", func(t *testing.T) {
			deviceConn, hostConn := net.Pipe()
			defer deviceConn.Close()
			defer hostConn.Close()

			payload := make([]byte, n)
			for i := range payload {
				payload[i] = byte(i)
			}

			done := make(chan struct{})
			var gotAcks int
			go func() {
				defer close(done)
				for offset := 0; offset < n; {
					chunk := ChunkSize
					if remaining := n - offset; remaining < chunk {
						chunk = remaining
					}
					if _, err := hostConn.Write(payload[offset : offset+chunk]); err != nil {
						return
					}
					offset += chunk
					var buf [4]byte
					if _, err := io.ReadFull(hostConn, buf[:]); err != nil {
						return
					}
					if buf[0] == Magic && buf[1] == CmdAck {
						gotAcks++
					}
				}
				var buf [4]byte
				if _, err := io.ReadFull(hostConn, buf[:]); err != nil {
					return
				}
				if buf[0] == Magic && buf[1] == CmdAck {
					gotAcks++
				}
			}()

			engine := NewEngine(deviceConn, testLog())
			read, err := engine.ReadPayload(n)
			require.NoError(t, err)
			require.Equal(t, payload, read)

			<-done
			require.Equal(t, expectedAckCount(n), gotAcks)
		})
	}
}

func TestReadHeaderParsesAndAcks(t *testing.T) {
	deviceConn, hostConn := net.Pipe()
	defer deviceConn.Close()
	defer hostConn.Close()

	go func() {
		var buf [4]byte
		buf[0] = Magic
		buf[1] = CmdList
		binary.LittleEndian.PutUint16(buf[2:], 0)
		_, _ = hostConn.Write(buf[:])
		readRawAck(t, hostConn)
	}()

	engine := NewEngine(deviceConn, testLog())
	hdr, err := engine.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, CmdList, hdr.Command)
	require.EqualValues(t, 0, hdr.Size)
}

func TestWriteListRoundTrip(t *testing.T) {
	deviceConn, hostConn := net.Pipe()
	defer deviceConn.Close()
	defer hostConn.Close()

	go func() {
		// header ACK
		var hdr [4]byte
		_, _ = io.ReadFull(hostConn, hdr[:])
		writeRawAck(t, hostConn)

		// drain the body, ack its single chunk, then send the terminal ack
		size := binary.LittleEndian.Uint16(hdr[2:])
		body := make([]byte, size)
		_, _ = io.ReadFull(hostConn, body)
		writeRawAck(t, hostConn)
		writeRawAck(t, hostConn)
	}()

	engine := NewEngine(deviceConn, testLog())
	err := engine.WriteList(nil)
	require.NoError(t, err)
}

func TestWriteErrorUsesFixedMessage(t *testing.T) {
	deviceConn, hostConn := net.Pipe()
	defer deviceConn.Close()
	defer hostConn.Close()

	received := make(chan string, 1)
	go func() {
		var hdr [4]byte
		_, _ = io.ReadFull(hostConn, hdr[:])
		writeRawAck(t, hostConn)
		size := binary.LittleEndian.Uint16(hdr[2:])
		body := make([]byte, size)
		_, _ = io.ReadFull(hostConn, body)
		writeRawAck(t, hostConn)
		writeRawAck(t, hostConn)
		received <- string(body)
	}()

	engine := NewEngine(deviceConn, testLog())
	require.NoError(t, engine.WriteError(ErrInvalidCommand))
	require.Equal(t, "Received a command with a type byte that is not L, S, or D", <-received)
}
