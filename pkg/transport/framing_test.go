package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/pomegranate-proto/pomegranate-go/pkg/log"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{
			name:    "small message",
			payload: []byte("hello"),
		},
		{
			name:    "medium message",
			payload: bytes.Repeat([]byte("x"), 1000),
		},
		{
			name:    "single byte",
			payload: []byte{0x42},
		},
		{
			name:    "binary data",
			payload: []byte{0x00, 0xFF, 0x7F, 0x80},
		},
		{
			name:    "empty message",
			payload: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			writer := NewFrameWriter(buf)
			if err := writer.Send(tt.payload); err != nil {
				t.Fatalf("Send failed: %v", err)
			}

			expectedSize := LengthPrefixSize + len(tt.payload)
			if buf.Len() != expectedSize {
				t.Errorf("frame size = %d, want %d", buf.Len(), expectedSize)
			}

			reader := NewFrameReader(buf)
			got, err := reader.Receive()
			if err != nil {
				t.Fatalf("Receive failed: %v", err)
			}

			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestFrameLengthPrefixEncoding(t *testing.T) {
	buf := new(bytes.Buffer)

	writer := NewFrameWriter(buf)
	if err := writer.Send([]byte("abc")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// 8-byte big-endian length, then the payload, nothing else
	want := append([]byte{0, 0, 0, 0, 0, 0, 0, 3}, []byte("abc")...)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wire bytes = %x, want %x", buf.Bytes(), want)
	}
}

func TestFrameWriterMessageTooLarge(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriterWithMaxSize(buf, 100)

	err := writer.Send(bytes.Repeat([]byte("x"), 101))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("rejected frame must not reach the stream, wrote %d bytes", buf.Len())
	}
}

func TestFrameReaderMessageTooLarge(t *testing.T) {
	buf := new(bytes.Buffer)

	// Write a frame with length > max
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint64(lengthBuf[:], 1000)
	buf.Write(lengthBuf[:])
	buf.Write(bytes.Repeat([]byte("x"), 1000))

	// The declared length is rejected before the payload buffer is allocated
	reader := NewFrameReaderWithMaxSize(buf, 100)
	_, err := reader.Receive()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestFrameReaderUnboundedByDefault(t *testing.T) {
	buf := new(bytes.Buffer)
	payload := bytes.Repeat([]byte("y"), 5*DefaultMaxFrameSize/4)

	writer := NewFrameWriter(buf)
	if err := writer.Send(payload); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	reader := NewFrameReader(buf)
	got, err := reader.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload mismatch")
	}
}

func TestFrameReaderEOF(t *testing.T) {
	reader := NewFrameReader(new(bytes.Buffer))

	// Clean end of stream on the frame boundary is io.EOF
	_, err := reader.Receive()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	t.Run("inside length prefix", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0, 0, 0})

		reader := NewFrameReader(buf)
		_, err := reader.Receive()
		if !errors.Is(err, ErrFrameTruncated) {
			t.Errorf("expected ErrFrameTruncated, got %v", err)
		}
	})

	t.Run("inside payload", func(t *testing.T) {
		buf := new(bytes.Buffer)
		var lengthBuf [LengthPrefixSize]byte
		binary.BigEndian.PutUint64(lengthBuf[:], 10)
		buf.Write(lengthBuf[:])
		buf.Write([]byte("short"))

		reader := NewFrameReader(buf)
		_, err := reader.Receive()
		if !errors.Is(err, ErrFrameTruncated) {
			t.Errorf("expected ErrFrameTruncated, got %v", err)
		}
	})
}

func TestFrameReaderMultipleFrames(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf)

	payloads := [][]byte{
		[]byte("first"),
		[]byte("second"),
		{},
		[]byte("fourth"),
	}
	for _, p := range payloads {
		if err := writer.Send(p); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	// Each Receive returns exactly one frame's payload, in order
	reader := NewFrameReader(buf)
	for i, want := range payloads {
		got, err := reader.Receive()
		if err != nil {
			t.Fatalf("Receive %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}

	if _, err := reader.Receive(); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestFramerPipe(t *testing.T) {
	a, b := NewPipe()

	go func() {
		a.Send([]byte("ping"))
	}()

	got, err := b.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(got) != "ping" {
		t.Errorf("got %q, want %q", got, "ping")
	}

	go func() {
		b.Send([]byte("pong"))
	}()

	got, err = a.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(got) != "pong" {
		t.Errorf("got %q, want %q", got, "pong")
	}
}

type captureLogger struct {
	events []log.Event
}

func (c *captureLogger) Log(event log.Event) {
	c.events = append(c.events, event)
}

func TestFramingLogEvents(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := &captureLogger{}

	writer := NewFrameWriter(buf)
	writer.SetLogger(logger, "conn-1")
	if err := writer.Send([]byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	reader := NewFrameReader(buf)
	reader.SetLogger(logger, "conn-1")
	if _, err := reader.Receive(); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	if len(logger.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(logger.events))
	}

	out, in := logger.events[0], logger.events[1]
	if out.Direction != log.DirectionOut || in.Direction != log.DirectionIn {
		t.Error("event directions wrong")
	}
	for _, ev := range logger.events {
		if ev.ConnectionID != "conn-1" {
			t.Errorf("connection ID = %q, want conn-1", ev.ConnectionID)
		}
		if ev.Frame == nil {
			t.Fatal("expected frame event payload")
		}
		if ev.Frame.Size != FrameSize(5) {
			t.Errorf("frame size = %d, want %d", ev.Frame.Size, FrameSize(5))
		}
	}
}
