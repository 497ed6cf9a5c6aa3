package amf

import (
	"encoding/binary"
	"log/slog"
	"math"
	"testing"
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	return NewDecoder(WithLogger(slog.New(slog.DiscardHandler)))
}

// u29enc produces the canonical variable-length encoding of a 29-bit value.
func u29enc(v uint32) []byte {
	v &= 0x1FFFFFFF
	switch {
	case v < 0x80:
		return []byte{byte(v)}
	case v < 0x4000:
		return []byte{byte(v>>7) | 0x80, byte(v & 0x7F)}
	case v < 0x200000:
		return []byte{byte(v>>14) | 0x80, byte(v>>7&0x7F) | 0x80, byte(v & 0x7F)}
	default:
		return []byte{byte(v>>22) | 0x80, byte(v>>15&0x7F) | 0x80, byte(v>>8&0x7F) | 0x80, byte(v)}
	}
}

func f64be(f float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	return b[:]
}

// amf3str builds an inline AMF3 string payload (tag + bytes, no marker).
func amf3str(s string) []byte {
	out := u29enc(uint32(len(s))<<1 | 1)
	return append(out, s...)
}

// amf0str builds a u16-length-prefixed AMF0 string payload (no marker).
func amf0str(s string) []byte {
	out := []byte{byte(len(s) >> 8), byte(len(s))}
	return append(out, s...)
}

func cat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
