package amf

// Error taxonomy for the decoder. Every failure is fatal to the current
// decode and is wrapped in a *DecodeError carrying the operation path
// (e.g. "decode.amf3.array.key") so callers can log where in the
// grammar the input went wrong. The concrete cause is reachable through
// errors.Is / errors.As.

import (
	"errors"
	"fmt"
)

// ErrUnexpectedEOF reports a read past the end of the input buffer.
var ErrUnexpectedEOF = errors.New("unexpected end of buffer")

// ErrAssociativeArray reports an AMF3 array with a non-empty string key.
// Associative arrays are not implemented.
var ErrAssociativeArray = errors.New("associative amf3 arrays not supported")

// DecodeError wraps a failure with the high-level operation that hit it.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("amf decode error: %s", e.Op)
	}
	return fmt.Sprintf("amf decode error: %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// errOp wraps err with an operation path unless it is already a
// *DecodeError, so the path applied nearest the failure wins and nesting
// stays flat.
func errOp(op string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Op: op, Err: err}
}

// UnknownMarkerError reports a type tag the dialect does not define.
type UnknownMarkerError struct {
	Dialect string // "amf0" or "amf3"
	Marker  byte
}

func (e *UnknownMarkerError) Error() string {
	return fmt.Sprintf("%s: unknown marker 0x%02x", e.Dialect, e.Marker)
}

// UnsupportedTypeError reports a marker that is recognized but deliberately
// unimplemented (AMF3 XML/dictionary/vectors, AMF0 mixed-array/recordset/
// XML/long-string/movieclip/undefined).
type UnsupportedTypeError struct {
	Dialect string
	Name    string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: unsupported type %s", e.Dialect, e.Name)
}

// MalformedUTF8Error reports a modified-UTF-8 violation at a byte offset
// within the string payload.
type MalformedUTF8Error struct {
	Offset int
}

func (e *MalformedUTF8Error) Error() string {
	return fmt.Sprintf("malformed modified-utf8 sequence at offset %d", e.Offset)
}

// UnknownExternalizableError reports an externalizable class with no
// registered handler. Raw holds the unconsumed remainder of the buffer for
// diagnosis.
type UnknownExternalizableError struct {
	ClassName string
	Raw       []byte
}

func (e *UnknownExternalizableError) Error() string {
	return fmt.Sprintf("unknown externalizable class %q (remaining %x)", e.ClassName, e.Raw)
}

// TrailingBytesError reports that the envelope did not consume the whole
// buffer.
type TrailingBytesError struct {
	Pos int
	Len int
	Raw []byte
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("trailing bytes after decode: pos %d of %d (remaining %x)", e.Pos, e.Len, e.Raw)
}

// ReferenceError reports a back-reference outside the populated portion of
// a reference table. A forward reference is always malformed input.
type ReferenceError struct {
	Table string // "amf3.string", "amf3.object", "amf3.class", "amf0.object"
	Index int
	Size  int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s reference %d out of range (table size %d)", e.Table, e.Index, e.Size)
}
