// Package amf decodes Action Message Format (AMF) invocation responses as
// produced by the RTMP messaging stack, covering the legacy AMF0 dialect,
// the AMF3 dialect reachable through the 0x11 switch marker, and a small
// set of Flex/Flash externalizable classes (DSA, DSK, ArrayCollection)
// plus JSON-wrapped platform notification classes.
//
// Decoded values map to Go types as follows: Null -> nil, Boolean -> bool,
// Number -> float64, AMF3 Integer -> int32 (sign-extended from 29 bits),
// String -> string, ByteArray -> []byte, Date -> time.Time, dense Array ->
// []any, objects -> *TypedObject. The AMF3 undefined marker decodes to the
// Undefined token string.
//
// AMF3 strings are modified UTF-8 (Java style), not strict UTF-8: a
// surrogate pair arrives as two 3-byte sequences and is recombined into
// one code point, NUL may be encoded as C0 80, and 4-byte sequences are
// rejected.
package amf

import (
	"fmt"
	"log/slog"

	"github.com/alxayo/go-flexamf/internal/logger"
)

// Decoder parses one AMF payload at a time. The reference tables are
// per-decoder mutable state, cleared at the start of every Decode; a single
// instance must not be shared by concurrent decodes.
type Decoder struct {
	log *slog.Logger
	cur *cursor

	// AMF3 reference tables, insertion-ordered, reset per decode.
	stringTable []string
	objectTable []any
	classTable  []*ClassDefinition
	// AMF0 object reference table.
	amf0Objects []any
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger injects the logger used for decode tracing. Tracing has no
// functional effect; the default is the process logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) { d.log = l }
}

// NewDecoder returns a Decoder ready for use.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Logger().With("component", "amf")
	}
	return d
}

// reset points the decoder at a fresh buffer and empties all reference
// tables. Back-references never survive across top-level decodes.
func (d *Decoder) reset(data []byte) {
	d.cur = newCursor(data)
	d.stringTable = d.stringTable[:0]
	d.objectTable = d.objectTable[:0]
	d.classTable = d.classTable[:0]
	d.amf0Objects = d.amf0Objects[:0]
}

// Decode parses a complete invocation response from data into out and
// returns out. The payload is an optional 0x00 version byte followed by
// four AMF0 values bound to the fields result, invokeId, serviceCall and
// data. The whole buffer must be consumed; leftovers fail with
// *TrailingBytesError. No partial result is produced on error.
func (d *Decoder) Decode(data []byte, out *TypedObject) (*TypedObject, error) {
	if out == nil {
		out = NewTypedObject("")
	}
	d.reset(data)

	hasVersion := len(data) > 0 && data[0] == 0x00
	if hasVersion {
		d.cur.pos++
	}

	fields := [...]string{"result", "invokeId", "serviceCall", "data"}
	var values [len(fields)]any
	for i, field := range fields {
		v, err := d.decodeAMF0()
		if err != nil {
			return nil, errOp("decode.envelope."+field, err)
		}
		values[i] = v
	}

	if d.cur.remaining() != 0 {
		return nil, errOp("decode.envelope.trailing", &TrailingBytesError{
			Pos: d.cur.pos,
			Len: len(data),
			Raw: data[d.cur.pos:],
		})
	}

	if hasVersion {
		out.Set("version", 0)
	}
	for i, field := range fields {
		out.Set(field, values[i])
	}
	return out, nil
}

// render formats a value for trace logging only.
func render(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%v", v)
}

// Reference table accessors. Stores log the index a value landed on;
// fetches range-check so a forward reference fails instead of panicking.

func (d *Decoder) storeString(s string) {
	d.stringTable = append(d.stringTable, s)
	d.log.Debug("string table store", "index", len(d.stringTable)-1, "value", s)
}

func (d *Decoder) fetchString(idx int) (string, error) {
	if idx < 0 || idx >= len(d.stringTable) {
		return "", &ReferenceError{Table: "amf3.string", Index: idx, Size: len(d.stringTable)}
	}
	s := d.stringTable[idx]
	d.log.Debug("string table fetch", "index", idx, "value", s)
	return s, nil
}

// storeObject appends v and returns its slot so the placeholder can be
// replaced in place once an externalizable handler returns.
func (d *Decoder) storeObject(v any) int {
	d.objectTable = append(d.objectTable, v)
	idx := len(d.objectTable) - 1
	d.log.Debug("object table store", "index", idx, "value", render(v))
	return idx
}

func (d *Decoder) fetchObject(idx int) (any, error) {
	if idx < 0 || idx >= len(d.objectTable) {
		return nil, &ReferenceError{Table: "amf3.object", Index: idx, Size: len(d.objectTable)}
	}
	v := d.objectTable[idx]
	d.log.Debug("object table fetch", "index", idx, "value", render(v))
	return v, nil
}

func (d *Decoder) storeClass(def *ClassDefinition) {
	d.classTable = append(d.classTable, def)
	d.log.Debug("class table store", "index", len(d.classTable)-1, "class", def.ClassName)
}

func (d *Decoder) fetchClass(idx int) (*ClassDefinition, error) {
	if idx < 0 || idx >= len(d.classTable) {
		return nil, &ReferenceError{Table: "amf3.class", Index: idx, Size: len(d.classTable)}
	}
	def := d.classTable[idx]
	d.log.Debug("class table fetch", "index", idx, "class", def.ClassName)
	return def, nil
}

func (d *Decoder) storeAMF0Object(v any) {
	d.amf0Objects = append(d.amf0Objects, v)
	d.log.Debug("amf0 object table store", "index", len(d.amf0Objects)-1, "value", render(v))
}

func (d *Decoder) fetchAMF0Object(idx int) (any, error) {
	if idx < 0 || idx >= len(d.amf0Objects) {
		return nil, &ReferenceError{Table: "amf0.object", Index: idx, Size: len(d.amf0Objects)}
	}
	v := d.amf0Objects[idx]
	d.log.Debug("amf0 object table fetch", "index", idx, "value", render(v))
	return v, nil
}
