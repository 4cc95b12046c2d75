// Package codec packs and unpacks leaf Values to/from storage bytes (spec
// §4.4). It is pure and allocation-only, keeping to a "no methods, no
// language-specific dependencies" discipline for its contracts — applied
// here to a byte-level concern instead of an AST-shape one.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/termfx/fql/internal/keyval"
)

// Endianness selects the byte order used for fixed-width numeric and float
// encodings. The tuple layer (nested Tuple values) and UTF-8/raw-byte
// payloads are endianness-independent and unaffected by this setting.
type Endianness int

const (
	Big Endianness = iota
	Little
)

func (e Endianness) order() binary.ByteOrder {
	if e == Little {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// TupleCodec packs/unpacks a Tuple to/from bytes. Supplied by the tuple
// layer (spec §6 external contract); codec.Pack delegates to it only for
// the Tuple variant.
type TupleCodec interface {
	Pack(keyval.Tuple) ([]byte, error)
	Unpack([]byte) (keyval.Tuple, error)
}

// Pack serializes a single Value under the given endianness. Variable and
// Clear are not serializable storage values and always fail with
// CannotSerialize (spec §4.4 table).
func Pack(v keyval.Value, e Endianness, tc TupleCodec) ([]byte, error) {
	if v.IsClear {
		return nil, cannotSerialize("Clear")
	}
	return packElement(v.TupElement, e, tc)
}

func packElement(el keyval.TupElement, e Endianness, tc TupleCodec) ([]byte, error) {
	order := e.order()
	switch el.Kind {
	case keyval.EKNil:
		return []byte{}, nil
	case keyval.EKBool:
		if el.Bool {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil
	case keyval.EKInt:
		buf := make([]byte, 8)
		order.PutUint64(buf, uint64(el.Int))
		return buf, nil
	case keyval.EKUint:
		buf := make([]byte, 8)
		order.PutUint64(buf, el.Uint)
		return buf, nil
	case keyval.EKFloat:
		buf := make([]byte, 8)
		order.PutUint64(buf, math.Float64bits(el.Float))
		return buf, nil
	case keyval.EKString:
		return []byte(el.String), nil
	case keyval.EKBytes:
		out := make([]byte, len(el.Bytes))
		copy(out, el.Bytes)
		return out, nil
	case keyval.EKUuid:
		b, _ := el.Uuid.MarshalBinary()
		return b, nil
	case keyval.EKVStamp:
		buf := make([]byte, 12)
		copy(buf[:10], el.VStamp.TxVersion[:])
		binary.LittleEndian.PutUint16(buf[10:], el.VStamp.UserVersion)
		return buf, nil
	case keyval.EKVStampFuture:
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint16(buf[10:12], el.VFuture.UserVersion)
		// The position of this future within the packed bytes is filled in
		// by the tuple layer at pack time (spec §4.4); codec.Pack only
		// emits the fixed zeros+user-version template.
		return buf, nil
	case keyval.EKTuple:
		if tc == nil {
			return nil, fmt.Errorf("codec: nested tuple encountered with no TupleCodec configured")
		}
		return tc.Pack(el.Tuple)
	case keyval.EKVariable:
		return nil, cannotSerialize("Variable")
	case keyval.EKMaybeMore:
		return nil, cannotSerialize("MaybeMore")
	default:
		return nil, fmt.Errorf("codec: unknown element kind %d", el.Kind)
	}
}

// Unpack deserializes bytes into a Value of the declared type. ValueType Any
// unpacks as raw Bytes, leaving interpretation to the caller.
func Unpack(data []byte, t keyval.ValueType, e Endianness, tc TupleCodec) (keyval.Value, error) {
	order := e.order()
	switch t {
	case keyval.TAny:
		return keyval.NewValue(keyval.NewBytes(cloneBytes(data))), nil

	case keyval.TBool:
		if err := expectLen(data, 1); err != nil {
			return keyval.Value{}, err
		}
		return keyval.NewValue(keyval.NewBool(data[0] != 0)), nil

	case keyval.TInt:
		if err := expectLen(data, 8); err != nil {
			return keyval.Value{}, err
		}
		return keyval.NewValue(keyval.NewInt(int64(order.Uint64(data)))), nil

	case keyval.TUint:
		if err := expectLen(data, 8); err != nil {
			return keyval.Value{}, err
		}
		return keyval.NewValue(keyval.NewUint(order.Uint64(data))), nil

	case keyval.TFloat:
		if err := expectLen(data, 8); err != nil {
			return keyval.Value{}, err
		}
		return keyval.NewValue(keyval.NewFloat(math.Float64frombits(order.Uint64(data)))), nil

	case keyval.TString:
		if !utf8Valid(data) {
			return keyval.Value{}, invalidEncoding("invalid UTF-8")
		}
		return keyval.NewValue(keyval.NewString(string(data))), nil

	case keyval.TBytes:
		return keyval.NewValue(keyval.NewBytes(cloneBytes(data))), nil

	case keyval.TUuid:
		if err := expectLen(data, 16); err != nil {
			return keyval.Value{}, err
		}
		id, err := uuidFromBytes(data)
		if err != nil {
			return keyval.Value{}, invalidEncoding(err.Error())
		}
		return keyval.NewValue(keyval.NewUuid(id)), nil

	case keyval.TVStamp:
		if err := expectLen(data, 12); err != nil {
			return keyval.Value{}, err
		}
		var vs keyval.VStamp
		copy(vs.TxVersion[:], data[:10])
		vs.UserVersion = binary.LittleEndian.Uint16(data[10:12])
		return keyval.NewValue(keyval.NewVStamp(vs)), nil

	case keyval.TTuple:
		if tc == nil {
			return keyval.Value{}, fmt.Errorf("codec: nested tuple encountered with no TupleCodec configured")
		}
		tup, err := tc.Unpack(data)
		if err != nil {
			return keyval.Value{}, err
		}
		return keyval.NewValue(keyval.NewTuple(tup)), nil

	default:
		return keyval.Value{}, fmt.Errorf("codec: unsupported unpack type %q", t)
	}
}

func expectLen(data []byte, want int) error {
	if len(data) != want {
		return keyval.QueryError{
			Code:    keyval.ErrInvalidLength,
			Message: fmt.Sprintf("invalid length: expected %d, got %d", want, len(data)),
		}
	}
	return nil
}

func cannotSerialize(what string) error {
	return keyval.QueryError{Code: keyval.ErrCannotSerialize, Message: "cannot serialize " + what}
}

func invalidEncoding(msg string) error {
	return keyval.QueryError{Code: keyval.ErrInvalidEncoding, Message: msg}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
