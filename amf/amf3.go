package amf

// AMF3 decoding. AMF3 prefixes most values with a U29 tag whose low bit
// selects inline (1) or back-reference (0); strings, objects/arrays/dates/
// byte arrays and class traits each reference their own table. Complex
// values are stored in the object table before their bodies are read so an
// object can reference itself or an ancestor.

import (
	"fmt"
	"time"
	"unicode/utf16"
)

// AMF3 type markers.
const (
	amf3UndefinedMarker  = 0x00
	amf3NullMarker       = 0x01
	amf3FalseMarker      = 0x02
	amf3TrueMarker       = 0x03
	amf3IntegerMarker    = 0x04
	amf3DoubleMarker     = 0x05
	amf3StringMarker     = 0x06
	amf3XMLDocMarker     = 0x07 // unsupported
	amf3DateMarker       = 0x08
	amf3ArrayMarker      = 0x09
	amf3ObjectMarker     = 0x0A
	amf3XMLMarker        = 0x0B // unsupported
	amf3ByteArrayMarker  = 0x0C
	amf3VectorIntMarker  = 0x0D // unsupported
	amf3VectorUintMarker = 0x0E // unsupported
	amf3VectorDblMarker  = 0x0F // unsupported
	amf3VectorObjMarker  = 0x10 // unsupported
	amf3DictionaryMarker = 0x11 // unsupported
)

var amf3Unsupported = map[byte]string{
	amf3XMLDocMarker:     "xml document",
	amf3XMLMarker:        "xml",
	amf3VectorIntMarker:  "vector<int>",
	amf3VectorUintMarker: "vector<uint>",
	amf3VectorDblMarker:  "vector<double>",
	amf3VectorObjMarker:  "vector<object>",
	amf3DictionaryMarker: "dictionary",
}

// readU29 decodes the AMF3 variable-length integer: up to three bytes
// carry 7 payload bits each behind a continuation high bit; a fourth byte,
// when reached, contributes all 8 bits for a 29-bit maximum.
func (d *Decoder) readU29() (uint32, error) {
	var v uint32
	for i := 0; i < 3; i++ {
		b, err := d.cur.readU8()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			return v<<7 | uint32(b), nil
		}
		v = v<<7 | uint32(b&0x7F)
	}
	b, err := d.cur.readU8()
	if err != nil {
		return 0, err
	}
	return v<<8 | uint32(b), nil
}

// readAMF3Integer reads a U29 and sign-extends bit 28 into a two's
// complement int32.
func (d *Decoder) readAMF3Integer() (int32, error) {
	v, err := d.readU29()
	if err != nil {
		return 0, err
	}
	if v&0x10000000 != 0 {
		v |= 0xE0000000
	}
	return int32(v), nil
}

// readAMF3String reads a U29-tagged string: reference when the low bit is
// clear, otherwise an inline modified-UTF-8 payload of tag>>1 bytes. The
// empty string is never entered into the string table.
func (d *Decoder) readAMF3String() (string, error) {
	tag, err := d.readU29()
	if err != nil {
		return "", err
	}
	if tag&1 == 0 {
		return d.fetchString(int(tag >> 1))
	}
	n := int(tag >> 1)
	if n == 0 {
		return "", nil
	}
	b, err := d.cur.readBytes(n)
	if err != nil {
		return "", err
	}
	s, err := decodeModifiedUTF8(b)
	if err != nil {
		return "", err
	}
	d.storeString(s)
	return s, nil
}

// decodeModifiedUTF8 decodes Java-style modified UTF-8 into a Go string.
// Sequences are at most three bytes; each decodes to one UTF-16 code unit,
// so a surrogate pair arrives as two sequences and is recombined here.
// Four-byte UTF-8 and stray continuation bytes are rejected with the
// offset of the offending byte; a bad or missing continuation byte is
// reported at the offset just after the sequence's lead byte.
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", &MalformedUTF8Error{Offset: i + 1}
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", &MalformedUTF8Error{Offset: i + 1}
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", &MalformedUTF8Error{Offset: i}
		}
	}
	return string(utf16.Decode(units)), nil
}

// decodeAMF3 reads one AMF3 value, marker byte included.
func (d *Decoder) decodeAMF3() (any, error) {
	marker, err := d.cur.readU8()
	if err != nil {
		return nil, errOp("decode.amf3.marker", err)
	}
	switch marker {
	case amf3UndefinedMarker:
		d.log.Debug("amf3 value", "type", "undefined", "value", Undefined)
		return Undefined, nil

	case amf3NullMarker:
		d.log.Debug("amf3 value", "type", "null", "value", "nil")
		return nil, nil

	case amf3FalseMarker:
		d.log.Debug("amf3 value", "type", "boolean", "value", false)
		return false, nil

	case amf3TrueMarker:
		d.log.Debug("amf3 value", "type", "boolean", "value", true)
		return true, nil

	case amf3IntegerMarker:
		v, err := d.readAMF3Integer()
		if err != nil {
			return nil, errOp("decode.amf3.integer", err)
		}
		d.log.Debug("amf3 value", "type", "integer", "value", v)
		return v, nil

	case amf3DoubleMarker:
		v, err := d.cur.readF64()
		if err != nil {
			return nil, errOp("decode.amf3.double", err)
		}
		d.log.Debug("amf3 value", "type", "double", "value", v)
		return v, nil

	case amf3StringMarker:
		s, err := d.readAMF3String()
		if err != nil {
			return nil, errOp("decode.amf3.string", err)
		}
		d.log.Debug("amf3 value", "type", "string", "value", s)
		return s, nil

	case amf3DateMarker:
		return d.decodeAMF3Date()

	case amf3ArrayMarker:
		return d.decodeAMF3Array()

	case amf3ObjectMarker:
		return d.decodeAMF3Object()

	case amf3ByteArrayMarker:
		return d.decodeAMF3ByteArray()

	default:
		if name, ok := amf3Unsupported[marker]; ok {
			return nil, errOp("decode.amf3.dispatch", &UnsupportedTypeError{Dialect: "amf3", Name: name})
		}
		return nil, errOp("decode.amf3.dispatch", &UnknownMarkerError{Dialect: "amf3", Marker: marker})
	}
}

// decodeAMF3Date reads a U29-tagged date. Dates cannot self-reference, so
// the constructed value is stored right after its payload is read. The
// zone is always UTC.
func (d *Decoder) decodeAMF3Date() (any, error) {
	tag, err := d.readU29()
	if err != nil {
		return nil, errOp("decode.amf3.date.tag", err)
	}
	if tag&1 == 0 {
		v, err := d.fetchObject(int(tag >> 1))
		if err != nil {
			return nil, errOp("decode.amf3.date.reference", err)
		}
		return v, nil
	}
	ms, err := d.cur.readF64()
	if err != nil {
		return nil, errOp("decode.amf3.date.millis", err)
	}
	t := time.UnixMilli(int64(ms)).UTC()
	d.storeObject(t)
	d.log.Debug("amf3 value", "type", "date", "value", t)
	return t, nil
}

// decodeAMF3Array reads a U29-tagged dense array. A non-empty leading key
// would start an associative section, which is not implemented.
func (d *Decoder) decodeAMF3Array() (any, error) {
	tag, err := d.readU29()
	if err != nil {
		return nil, errOp("decode.amf3.array.tag", err)
	}
	if tag&1 == 0 {
		v, err := d.fetchObject(int(tag >> 1))
		if err != nil {
			return nil, errOp("decode.amf3.array.reference", err)
		}
		arr, ok := v.([]any)
		if !ok {
			return nil, errOp("decode.amf3.array.reference", fmt.Errorf("referenced value %s is not an array", render(v)))
		}
		return arr, nil
	}
	size := int(tag >> 1)
	key, err := d.readAMF3String()
	if err != nil {
		return nil, errOp("decode.amf3.array.key", err)
	}
	if key != "" {
		return nil, errOp("decode.amf3.array.key", ErrAssociativeArray)
	}
	// Each element is at least a marker byte.
	if size > d.cur.remaining() {
		return nil, errOp("decode.amf3.array.size", ErrUnexpectedEOF)
	}
	arr := make([]any, size)
	d.storeObject(arr)
	for i := range arr {
		v, err := d.decodeAMF3()
		if err != nil {
			return nil, errOp(fmt.Sprintf("decode.amf3.array.element.%d", i), err)
		}
		arr[i] = v
	}
	d.log.Debug("amf3 value", "type", "array", "length", len(arr))
	return arr, nil
}

// decodeAMF3ByteArray reads a U29-tagged byte blob.
func (d *Decoder) decodeAMF3ByteArray() (any, error) {
	tag, err := d.readU29()
	if err != nil {
		return nil, errOp("decode.amf3.bytearray.tag", err)
	}
	if tag&1 == 0 {
		v, err := d.fetchObject(int(tag >> 1))
		if err != nil {
			return nil, errOp("decode.amf3.bytearray.reference", err)
		}
		b, ok := v.([]byte)
		if !ok {
			return nil, errOp("decode.amf3.bytearray.reference", fmt.Errorf("referenced value %s is not a byte array", render(v)))
		}
		return b, nil
	}
	b, err := d.cur.readBytes(int(tag >> 1))
	if err != nil {
		return nil, errOp("decode.amf3.bytearray.read", err)
	}
	d.storeObject(b)
	d.log.Debug("amf3 value", "type", "bytearray", "length", len(b))
	return b, nil
}

// decodeAMF3Object reads a U29-tagged object: traits (inline or by class
// reference), then either an externalizable body dispatched by class name
// or the sealed property list plus an optional dynamic section. The
// placeholder TypedObject is entered into the object table before any body
// reads so cycles resolve; when an externalizable handler produces a
// different value the table slot is updated in place.
func (d *Decoder) decodeAMF3Object() (any, error) {
	tag, err := d.readU29()
	if err != nil {
		return nil, errOp("decode.amf3.object.tag", err)
	}
	if tag&1 == 0 {
		v, err := d.fetchObject(int(tag >> 1))
		if err != nil {
			return nil, errOp("decode.amf3.object.reference", err)
		}
		return v, nil
	}

	var def *ClassDefinition
	if tag&2 == 0 {
		def, err = d.fetchClass(int(tag >> 2))
		if err != nil {
			return nil, errOp("decode.amf3.object.traits.reference", err)
		}
	} else {
		def = &ClassDefinition{
			Externalizable: (tag>>2)&1 == 1,
			Encoding:       uint8((tag >> 2) & 0x03),
		}
		def.Dynamic = def.Encoding == 2
		name, err := d.readAMF3String()
		if err != nil {
			return nil, errOp("decode.amf3.object.traits.class", err)
		}
		def.ClassName = name
		count := int(tag >> 4)
		if count > d.cur.remaining() {
			return nil, errOp("decode.amf3.object.traits.count", ErrUnexpectedEOF)
		}
		for i := 0; i < count; i++ {
			prop, err := d.readAMF3String()
			if err != nil {
				return nil, errOp(fmt.Sprintf("decode.amf3.object.traits.property.%d", i), err)
			}
			def.Properties = append(def.Properties, prop)
		}
		d.storeClass(def)
	}

	obj := NewTypedObject(def.ClassName)
	slot := d.storeObject(obj)

	if def.Externalizable {
		v, err := d.decodeExternalizable(def.ClassName, obj)
		if err != nil {
			return nil, errOp("decode.amf3.object.externalizable", err)
		}
		d.objectTable[slot] = v
		d.log.Debug("amf3 value", "type", "externalizable", "class", def.ClassName)
		return v, nil
	}

	for _, name := range def.Properties {
		v, err := d.decodeAMF3()
		if err != nil {
			return nil, errOp(fmt.Sprintf("decode.amf3.object.property.%s", name), err)
		}
		obj.Set(name, v)
	}
	if def.Dynamic {
		for {
			key, err := d.readAMF3String()
			if err != nil {
				return nil, errOp("decode.amf3.object.dynamic.key", err)
			}
			if key == "" {
				break
			}
			v, err := d.decodeAMF3()
			if err != nil {
				return nil, errOp(fmt.Sprintf("decode.amf3.object.dynamic.value.%s", key), err)
			}
			obj.Set(key, v)
		}
	}
	d.log.Debug("amf3 value", "type", "object", "class", def.ClassName, "value", render(obj))
	return obj, nil
}
