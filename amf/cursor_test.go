package amf

import (
	"errors"
	"testing"
)

func TestCursorReadU8(t *testing.T) {
	c := newCursor([]byte{0x01, 0x02})
	for i, want := range []byte{0x01, 0x02} {
		got, err := c.readU8()
		if err != nil {
			t.Fatalf("readU8 #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("readU8 #%d: got 0x%02x want 0x%02x", i, got, want)
		}
	}
	if _, err := c.readU8(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF past end, got %v", err)
	}
}

func TestCursorReadBytes(t *testing.T) {
	c := newCursor([]byte{0xAA, 0xBB, 0xCC})
	b, err := c.readBytes(2)
	if err != nil {
		t.Fatalf("readBytes: %v", err)
	}
	if len(b) != 2 || b[0] != 0xAA || b[1] != 0xBB {
		t.Fatalf("unexpected bytes %x", b)
	}
	// The copy must be detached from the underlying buffer.
	b[0] = 0x00
	if c.data[0] != 0xAA {
		t.Fatalf("readBytes aliases the input buffer")
	}
	if _, err := c.readBytes(2); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF for over-long read, got %v", err)
	}
	if _, err := c.readBytes(1); err != nil {
		t.Fatalf("remaining byte should still be readable: %v", err)
	}
}

func TestCursorBigEndianReads(t *testing.T) {
	c := newCursor([]byte{
		0x12, 0x34, // u16
		0x00, 0x01, 0x02, 0x03, // u32
		0x3F, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // f64 1.0
	})
	if v, err := c.readU16(); err != nil || v != 0x1234 {
		t.Fatalf("readU16: got %#x err=%v", v, err)
	}
	if v, err := c.readU32(); err != nil || v != 0x00010203 {
		t.Fatalf("readU32: got %#x err=%v", v, err)
	}
	if v, err := c.readF64(); err != nil || v != 1.0 {
		t.Fatalf("readF64: got %v err=%v", v, err)
	}
	if c.remaining() != 0 {
		t.Fatalf("expected empty cursor, %d bytes left", c.remaining())
	}
}

func TestCursorShortMultiByteReads(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		read func(*cursor) error
	}{
		{"u16", []byte{0x01}, func(c *cursor) error { _, err := c.readU16(); return err }},
		{"u32", []byte{0x01, 0x02, 0x03}, func(c *cursor) error { _, err := c.readU32(); return err }},
		{"f64", []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}, func(c *cursor) error { _, err := c.readF64(); return err }},
	} {
		if err := tc.read(newCursor(tc.data)); !errors.Is(err, ErrUnexpectedEOF) {
			t.Fatalf("%s: expected ErrUnexpectedEOF, got %v", tc.name, err)
		}
	}
}

func TestCursorReadBool(t *testing.T) {
	c := newCursor([]byte{0x01, 0x00, 0x02})
	for i, want := range []bool{true, false, false} { // only 0x01 is true
		got, err := c.readBool()
		if err != nil {
			t.Fatalf("readBool #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("readBool #%d: got %v want %v", i, got, want)
		}
	}
}
