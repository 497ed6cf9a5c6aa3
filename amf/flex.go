package amf

// Externalizable class handlers. Flex data-service messages (DSA, DSK)
// self-describe their bodies with flag bitfields: each flag block is a run
// of bytes chained by the 0x80 continuation bit, and every recognized set
// bit consumes one AMF3 value. Unrecognized set bits in positions 0..5
// still consume a value, which is discarded; an unrecognized bit 6
// consumes nothing.
// ArrayCollection wraps a single dense array. A fixed set of platform
// notification classes carries a length-prefixed JSON blob instead of AMF.

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ArrayCollectionClass is the Flex wrapper class around a dense array.
const ArrayCollectionClass = "flex.messaging.io.ArrayCollection"

// jsonWrappedClasses carry a u32 length plus a JSON document as their
// externalizable body.
var jsonWrappedClasses = map[string]bool{
	"com.riotgames.platform.systemstate.ClientSystemStatesNotification": true,
	"com.riotgames.platform.broadcast.BroadcastNotification":             true,
	"com.riotgames.platform.summoner.SummonerCatalog":                    true,
	"com.riotgames.platform.game.GameTypeConfigDTO":                      true,
}

// decodeExternalizable dispatches an externalizable body by class name.
// obj is the placeholder already entered into the object table; handlers
// either fill it in place or return a replacement value.
func (d *Decoder) decodeExternalizable(className string, obj *TypedObject) (any, error) {
	switch {
	case className == "DSA":
		return d.decodeDSA(obj)
	case className == "DSK":
		return d.decodeDSK(obj)
	case className == ArrayCollectionClass:
		return d.decodeArrayCollection(obj)
	case jsonWrappedClasses[className]:
		return d.decodeJSONClass(obj)
	default:
		return nil, &UnknownExternalizableError{
			ClassName: className,
			Raw:       d.cur.data[d.cur.pos:],
		}
	}
}

// decodeArrayCollection wraps the next AMF3 value (a dense array) in the
// placeholder object under a single field.
func (d *Decoder) decodeArrayCollection(obj *TypedObject) (any, error) {
	v, err := d.decodeAMF3()
	if err != nil {
		return nil, errOp("decode.flex.arraycollection", err)
	}
	obj.Set("array", v)
	return obj, nil
}

// decodeJSONClass reads a u32 big-endian byte length and that many bytes
// of UTF-8 JSON, parsed into the placeholder object. Parsed JSON objects
// become TypedObjects with keys in sorted order.
func (d *Decoder) decodeJSONClass(obj *TypedObject) (any, error) {
	n, err := d.cur.readU32()
	if err != nil {
		return nil, errOp("decode.flex.json.length", err)
	}
	raw, err := d.cur.readBytes(int(n))
	if err != nil {
		return nil, errOp("decode.flex.json.read", err)
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errOp("decode.flex.json.parse", err)
	}
	if m, ok := parsed.(map[string]any); ok {
		fillFromJSONMap(obj, m)
		return obj, nil
	}
	obj.Set("value", jsonToValue(parsed))
	return obj, nil
}

func fillFromJSONMap(obj *TypedObject, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		obj.Set(k, jsonToValue(m[k]))
	}
}

func jsonToValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		obj := NewTypedObject("")
		fillFromJSONMap(obj, vv)
		return obj
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = jsonToValue(e)
		}
		return out
	default:
		return v
	}
}

// readFlags reads one flag block: bytes chained while the 0x80 continuation
// bit is set. Bit 7 of each byte is the chain marker, never a field.
func (d *Decoder) readFlags() ([]byte, error) {
	var flags []byte
	for {
		b, err := d.cur.readU8()
		if err != nil {
			return nil, err
		}
		flags = append(flags, b)
		if b&0x80 == 0 {
			return flags, nil
		}
	}
}

// discardFlagBits consumes one AMF3 value for every set bit of flag in
// positions from..5 and drops it. Such bits belong to protocol extensions
// this decoder does not model.
func (d *Decoder) discardFlagBits(flag byte, from int) error {
	for bit := from; bit < 6; bit++ {
		if flag&(1<<bit) == 0 {
			continue
		}
		v, err := d.decodeAMF3()
		if err != nil {
			return err
		}
		d.log.Info("discarding unknown flag field", "bit", bit, "value", render(v))
	}
	return nil
}

// dsaBlock1Fields maps the bits of the first flag byte of a DSA message,
// lowest bit first.
var dsaBlock1Fields = [...]string{
	"body", "clientId", "destination", "headers", "messageId", "timeStamp", "timeToLive",
}

// decodeDSA fills obj with a Flex AsyncMessage body: two flag blocks, the
// first carrying the message fields and the UUID overrides, the second the
// correlation id.
func (d *Decoder) decodeDSA(obj *TypedObject) (any, error) {
	flags, err := d.readFlags()
	if err != nil {
		return nil, errOp("decode.flex.dsa.flags", err)
	}
	for i, flag := range flags {
		consumed := 0
		switch i {
		case 0:
			for bit, name := range dsaBlock1Fields {
				if flag&(1<<bit) == 0 {
					continue
				}
				v, err := d.decodeAMF3()
				if err != nil {
					return nil, errOp("decode.flex.dsa."+name, err)
				}
				obj.Set(name, v)
			}
			consumed = 7
		case 1:
			if flag&0x01 != 0 {
				id, err := d.readUUIDValue()
				if err != nil {
					return nil, errOp("decode.flex.dsa.clientId", err)
				}
				obj.Set("clientId", id)
			}
			if flag&0x02 != 0 {
				id, err := d.readUUIDValue()
				if err != nil {
					return nil, errOp("decode.flex.dsa.messageId", err)
				}
				obj.Set("messageId", id)
			}
			consumed = 2
		}
		if err := d.discardFlagBits(flag, consumed); err != nil {
			return nil, errOp("decode.flex.dsa.discard", err)
		}
	}

	flags, err = d.readFlags()
	if err != nil {
		return nil, errOp("decode.flex.dsa.flags2", err)
	}
	for i, flag := range flags {
		consumed := 0
		if i == 0 {
			if flag&0x01 != 0 {
				v, err := d.decodeAMF3()
				if err != nil {
					return nil, errOp("decode.flex.dsa.correlationId", err)
				}
				obj.Set("correlationId", v)
			}
			if flag&0x02 != 0 {
				b, err := d.cur.readU8()
				if err != nil {
					return nil, errOp("decode.flex.dsa.correlationId.skip", err)
				}
				d.log.Info("discarding byte before correlation id", "value", b)
				id, err := d.readUUIDValue()
				if err != nil {
					return nil, errOp("decode.flex.dsa.correlationId", err)
				}
				obj.Set("correlationId", id)
			}
			consumed = 2
		}
		if err := d.discardFlagBits(flag, consumed); err != nil {
			return nil, errOp("decode.flex.dsa.discard", err)
		}
	}
	return obj, nil
}

// decodeDSK fills obj with a Flex AcknowledgeMessage: the full DSA layout
// followed by one more flag block whose fields are all dropped.
func (d *Decoder) decodeDSK(obj *TypedObject) (any, error) {
	if _, err := d.decodeDSA(obj); err != nil {
		return nil, err
	}
	flags, err := d.readFlags()
	if err != nil {
		return nil, errOp("decode.flex.dsk.flags", err)
	}
	for _, flag := range flags {
		if err := d.discardFlagBits(flag, 0); err != nil {
			return nil, errOp("decode.flex.dsk.discard", err)
		}
	}
	return obj, nil
}

// readUUIDValue decodes one AMF3 value, expects a 16-byte ByteArray and
// renders it as the canonical dashed lowercase hex UUID string.
func (d *Decoder) readUUIDValue() (string, error) {
	v, err := d.decodeAMF3()
	if err != nil {
		return "", err
	}
	b, ok := v.([]byte)
	if !ok {
		return "", fmt.Errorf("expected byte array for uuid, got %s", render(v))
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		return "", fmt.Errorf("uuid from %d bytes: %w", len(b), err)
	}
	return u.String(), nil
}
