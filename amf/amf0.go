package amf

// AMF0 decoding. One marker byte dispatches each value; complex values
// (anonymous objects, typed objects, strict arrays) are entered into the
// AMF0 reference table before their bodies are read so a 0x07 reference
// can point at an enclosing value. The 0x11 marker hands the remainder of
// the current value off to the AMF3 decoder.

import (
	"fmt"
	"time"
)

// AMF0 type markers.
const (
	amf0NumberMarker      = 0x00
	amf0BooleanMarker     = 0x01
	amf0StringMarker      = 0x02
	amf0ObjectMarker      = 0x03
	amf0MovieClipMarker   = 0x04 // unsupported
	amf0NullMarker        = 0x05
	amf0UndefinedMarker   = 0x06 // unsupported
	amf0ReferenceMarker   = 0x07
	amf0EcmaArrayMarker   = 0x08 // unsupported
	amf0ObjectEndMarker   = 0x09
	amf0StrictArrayMarker = 0x0A
	amf0DateMarker        = 0x0B
	amf0LongStringMarker  = 0x0C // unsupported
	amf0UnsupportedMarker = 0x0D // unsupported
	amf0RecordsetMarker   = 0x0E // unsupported
	amf0XMLDocumentMarker = 0x0F // unsupported
	amf0TypedObjectMarker = 0x10
	amf0AVMPlusMarker     = 0x11
)

// amf0Unsupported maps recognized-but-unimplemented markers to their names.
var amf0Unsupported = map[byte]string{
	amf0MovieClipMarker:   "movieclip",
	amf0UndefinedMarker:   "undefined",
	amf0EcmaArrayMarker:   "mixed array",
	amf0LongStringMarker:  "long string",
	amf0UnsupportedMarker: "unsupported",
	amf0RecordsetMarker:   "recordset",
	amf0XMLDocumentMarker: "xml document",
}

// decodeAMF0 reads one AMF0 value, marker byte included.
func (d *Decoder) decodeAMF0() (any, error) {
	marker, err := d.cur.readU8()
	if err != nil {
		return nil, errOp("decode.amf0.marker", err)
	}
	switch marker {
	case amf0NumberMarker:
		v, err := d.cur.readF64()
		if err != nil {
			return nil, errOp("decode.amf0.number", err)
		}
		d.log.Debug("amf0 value", "type", "number", "value", v)
		return v, nil

	case amf0BooleanMarker:
		v, err := d.cur.readBool()
		if err != nil {
			return nil, errOp("decode.amf0.boolean", err)
		}
		d.log.Debug("amf0 value", "type", "boolean", "value", v)
		return v, nil

	case amf0StringMarker:
		s, err := d.readAMF0String()
		if err != nil {
			return nil, errOp("decode.amf0.string", err)
		}
		d.log.Debug("amf0 value", "type", "string", "value", s)
		return s, nil

	case amf0ObjectMarker:
		obj := NewTypedObject("")
		d.storeAMF0Object(obj)
		if err := d.decodeAMF0ObjectBody(obj); err != nil {
			return nil, errOp("decode.amf0.object", err)
		}
		d.log.Debug("amf0 value", "type", "object", "value", render(obj))
		return obj, nil

	case amf0NullMarker:
		d.log.Debug("amf0 value", "type", "null", "value", "nil")
		return nil, nil

	case amf0ReferenceMarker:
		idx, err := d.cur.readU16()
		if err != nil {
			return nil, errOp("decode.amf0.reference", err)
		}
		v, err := d.fetchAMF0Object(int(idx))
		if err != nil {
			return nil, errOp("decode.amf0.reference", err)
		}
		return v, nil

	case amf0ObjectEndMarker:
		return objectEnd{}, nil

	case amf0StrictArrayMarker:
		count, err := d.cur.readU32()
		if err != nil {
			return nil, errOp("decode.amf0.array.count", err)
		}
		// Each element is at least a marker byte; a count beyond the
		// remaining buffer cannot be satisfied.
		if int(count) > d.cur.remaining() {
			return nil, errOp("decode.amf0.array.count", ErrUnexpectedEOF)
		}
		arr := make([]any, count)
		d.storeAMF0Object(arr)
		for i := range arr {
			v, err := d.decodeAMF0()
			if err != nil {
				return nil, errOp(fmt.Sprintf("decode.amf0.array.element.%d", i), err)
			}
			arr[i] = v
		}
		d.log.Debug("amf0 value", "type", "array", "length", len(arr))
		return arr, nil

	case amf0DateMarker:
		ms, err := d.cur.readF64()
		if err != nil {
			return nil, errOp("decode.amf0.date.millis", err)
		}
		off, err := d.cur.readU16()
		if err != nil {
			return nil, errOp("decode.amf0.date.offset", err)
		}
		// The trailing i16 is the zone offset in minutes.
		zone := time.FixedZone("", int(int16(off))*60)
		t := time.UnixMilli(int64(ms)).In(zone)
		d.log.Debug("amf0 value", "type", "date", "value", t)
		return t, nil

	case amf0TypedObjectMarker:
		name, err := d.readAMF0String()
		if err != nil {
			return nil, errOp("decode.amf0.typedobject.class", err)
		}
		obj := NewTypedObject(name)
		d.storeAMF0Object(obj)
		if err := d.decodeAMF0ObjectBody(obj); err != nil {
			return nil, errOp("decode.amf0.typedobject", err)
		}
		d.log.Debug("amf0 value", "type", "typed object", "value", render(obj))
		return obj, nil

	case amf0AVMPlusMarker:
		return d.decodeAMF3()

	default:
		if name, ok := amf0Unsupported[marker]; ok {
			return nil, errOp("decode.amf0.dispatch", &UnsupportedTypeError{Dialect: "amf0", Name: name})
		}
		return nil, errOp("decode.amf0.dispatch", &UnknownMarkerError{Dialect: "amf0", Marker: marker})
	}
}

// readAMF0String reads a u16 big-endian length followed by that many UTF-8
// bytes. Used for string values, object keys and typed-object class names.
func (d *Decoder) readAMF0String() (string, error) {
	n, err := d.cur.readU16()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := d.cur.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeAMF0ObjectBody reads (key, value) pairs until the value decodes to
// the object-end sentinel. The canonical terminator is an empty key (two
// zero length bytes) followed by the 0x09 marker; the sentinel pair is not
// stored.
func (d *Decoder) decodeAMF0ObjectBody(obj *TypedObject) error {
	for {
		key, err := d.readAMF0String()
		if err != nil {
			return errOp("decode.amf0.object.key", err)
		}
		v, err := d.decodeAMF0()
		if err != nil {
			return errOp(fmt.Sprintf("decode.amf0.object.value.%s", key), err)
		}
		if _, done := v.(objectEnd); done {
			return nil
		}
		obj.Set(key, v)
	}
}
