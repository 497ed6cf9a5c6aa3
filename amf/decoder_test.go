package amf

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVersionAndFourNulls(t *testing.T) {
	d := newTestDecoder(t)
	out, err := d.Decode([]byte{0x00, 0x05, 0x05, 0x05, 0x05}, NewTypedObject(""))
	require.NoError(t, err)

	version, ok := out.Get("version")
	require.True(t, ok)
	assert.Equal(t, 0, version)
	for _, field := range []string{"result", "invokeId", "serviceCall", "data"} {
		v, ok := out.Get(field)
		require.True(t, ok, "missing field %s", field)
		assert.Nil(t, v, field)
	}
	assert.Equal(t, 5, out.Len())
}

func TestDecodeWithoutVersionByte(t *testing.T) {
	d := newTestDecoder(t)
	out, err := d.Decode([]byte{0x05, 0x05, 0x05, 0x05}, nil)
	require.NoError(t, err)
	_, ok := out.Get("version")
	assert.False(t, ok, "no version byte, no version field")
	assert.Equal(t, 4, out.Len())
}

func TestDecodeNumberResult(t *testing.T) {
	data := cat([]byte{0x00, amf0NumberMarker}, f64be(1.0), []byte{0x05, 0x05, 0x05})
	d := newTestDecoder(t)
	out, err := d.Decode(data, nil)
	require.NoError(t, err)
	result, _ := out.Get("result")
	assert.Equal(t, 1.0, result)
}

func TestDecodeBooleanAndString(t *testing.T) {
	data := cat(
		[]byte{0x00, amf0BooleanMarker, 0x01},
		[]byte{amf0StringMarker}, amf0str("foo"),
		[]byte{0x05, 0x05},
	)
	d := newTestDecoder(t)
	out, err := d.Decode(data, nil)
	require.NoError(t, err)
	result, _ := out.Get("result")
	assert.Equal(t, true, result)
	invokeID, _ := out.Get("invokeId")
	assert.Equal(t, "foo", invokeID)
}

func TestDecodeAMF3Switch(t *testing.T) {
	// invokeId carried as an AMF3 integer behind the 0x11 marker:
	// U29 0x81 0x00 is 128.
	data := []byte{0x00, 0x05, amf0AVMPlusMarker, amf3IntegerMarker, 0x81, 0x00, 0x05, 0x05}
	d := newTestDecoder(t)
	out, err := d.Decode(data, nil)
	require.NoError(t, err)
	result, _ := out.Get("result")
	assert.Nil(t, result)
	invokeID, _ := out.Get("invokeId")
	assert.Equal(t, int32(128), invokeID)
}

func TestDecodeTrailingBytes(t *testing.T) {
	d := newTestDecoder(t)
	_, err := d.Decode([]byte{0x00, 0x05, 0x05, 0x05, 0x05, 0x05}, nil)
	var te *TrailingBytesError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 5, te.Pos)
	assert.Equal(t, 6, te.Len)
	assert.Equal(t, []byte{0x05}, te.Raw)
}

func TestDecodeEmptyBuffer(t *testing.T) {
	d := newTestDecoder(t)
	_, err := d.Decode(nil, nil)
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestDecodeRepeatedIsIdempotent(t *testing.T) {
	// AMF3-heavy payload so a stale reference table would skew the second
	// run: a typed object with one sealed property plus a string reuse.
	data := cat(
		[]byte{0x00, 0x05, 0x05, 0x05},
		[]byte{amf0AVMPlusMarker, amf3ObjectMarker, 0x13}, amf3str("C"), amf3str("p"),
		[]byte{amf3StringMarker, 0x00}, // property value references the class name string
	)
	d := newTestDecoder(t)
	first, err := d.Decode(data, nil)
	require.NoError(t, err)
	second, err := d.Decode(data, nil)
	require.NoError(t, err)

	fj, err := json.Marshal(first)
	require.NoError(t, err)
	sj, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(fj), string(sj))

	obj, _ := second.Get("data")
	p, _ := obj.(*TypedObject).Get("p")
	assert.Equal(t, "C", p)
}

func TestDecodeErrorsCarryOpPaths(t *testing.T) {
	d := newTestDecoder(t)
	_, err := d.Decode([]byte{0x00, 0x08}, nil)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	var ue *UnsupportedTypeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "mixed array", ue.Name)
}

func TestDecodeAllocatesOutputWhenNil(t *testing.T) {
	d := newTestDecoder(t)
	out, err := d.Decode([]byte{0x00, 0x05, 0x05, 0x05, 0x05}, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
}
