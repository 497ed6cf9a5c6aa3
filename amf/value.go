package amf

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Undefined is the token produced for the AMF3 undefined marker (0x00).
// AMF0 undefined (0x06) is not supported and fails the decode instead.
const Undefined = "AMF3_UNDEFINED"

// objectEnd is the internal sentinel produced by the AMF0 object-end marker
// (0x09). It terminates an object body and never escapes to callers.
type objectEnd struct{}

// TypedObject is an ordered key/value mapping tagged with a class name.
// Field order is the order properties were declared on the wire; downstream
// consumers rely on it. ClassName is empty for anonymous AMF0 objects.
type TypedObject struct {
	ClassName string

	keys   []string
	fields map[string]any
}

// NewTypedObject returns an empty object tagged with className.
func NewTypedObject(className string) *TypedObject {
	return &TypedObject{
		ClassName: className,
		fields:    make(map[string]any),
	}
}

// Set binds key to value, preserving first-insertion order. Setting an
// existing key overwrites the value without moving the key.
func (o *TypedObject) Set(key string, value any) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = value
}

// Get returns the value bound to key and whether the key is present.
func (o *TypedObject) Get(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Keys returns the field names in insertion order. The returned slice is a
// copy; mutating it does not affect the object.
func (o *TypedObject) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of fields.
func (o *TypedObject) Len() int { return len(o.keys) }

// MarshalJSON renders the object with fields in insertion order. The class
// name is emitted under "__class" when non-empty so the tag survives the
// round trip into tooling output.
func (o *TypedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeField := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(vb)
		return nil
	}
	if o.ClassName != "" {
		if err := writeField("__class", o.ClassName); err != nil {
			return nil, err
		}
	}
	for _, k := range o.keys {
		if err := writeField(k, o.fields[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *TypedObject) String() string {
	if o.ClassName == "" {
		return fmt.Sprintf("TypedObject(%d fields)", len(o.keys))
	}
	return fmt.Sprintf("TypedObject(%s, %d fields)", o.ClassName, len(o.keys))
}

// ClassDefinition is a decoded AMF3 traits record: the class name, how the
// body is encoded, and the ordered sealed property names.
type ClassDefinition struct {
	ClassName      string
	Externalizable bool
	Dynamic        bool
	Encoding       uint8
	Properties     []string
}
