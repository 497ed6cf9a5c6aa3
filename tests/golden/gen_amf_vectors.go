//go:build amfgen

// Generation script for sample invocation-response payloads.
// Run: go run -tags amfgen tests/golden/gen_amf_vectors.go
// Produces the following files in tests/golden/:
//   - envelope_nulls.bin        version byte + four AMF0 nulls
//   - envelope_number.bin       result=1.0, rest null
//   - envelope_amf3_integer.bin invokeId switched to AMF3, integer 128
//   - envelope_typed_object.bin data carries an AMF3 typed object with a
//     string back-reference
//
// Useful as cmd/amf-dump smoke inputs and for eyeballing wire layouts.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

func f64be(f float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	return b[:]
}

func amf3str(s string) []byte {
	out := []byte{byte(len(s)<<1 | 1)} // single-byte U29 is enough for samples
	return append(out, s...)
}

func cat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func main() {
	vectors := map[string][]byte{
		"envelope_nulls.bin":  {0x00, 0x05, 0x05, 0x05, 0x05},
		"envelope_number.bin": cat([]byte{0x00, 0x00}, f64be(1.0), []byte{0x05, 0x05, 0x05}),
		"envelope_amf3_integer.bin": {
			0x00, 0x05, // result null
			0x11, 0x04, 0x81, 0x00, // invokeId: AMF3 integer 128
			0x05, 0x05,
		},
		"envelope_typed_object.bin": cat(
			[]byte{0x00, 0x05, 0x05, 0x05},
			[]byte{0x11, 0x0A, 0x13}, amf3str("C"), amf3str("p"),
			[]byte{0x06, 0x00}, // property value back-references "C"
		),
	}

	dir := filepath.Join("tests", "golden")
	for name, data := range vectors {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%d bytes)\n", path, len(data))
	}
}
