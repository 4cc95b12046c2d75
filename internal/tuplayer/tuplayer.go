// Package tuplayer implements the "external" tuple layer contract that
// spec §6 assumes is supplied by a separate library: packing a Tuple into
// bytes ordered lexicographically consistent with the tuple's natural
// order, and unpacking it back. FQL has no binding to FoundationDB's own
// tuple layer in this pack, so this package is a from-scratch, from-spec
// implementation of that contract — grounded on the same type-tag-plus-
// payload discipline the codec package (internal/codec) uses for leaf
// values, generalized to a whole ordered tuple.
//
// Byte layout: one type-tag byte per element followed by its payload.
// Variable-length payloads (String, Bytes, nested Tuple) are 0x00-escaped
// (0x00 -> 0x00 0xFF) and terminated by a bare 0x00 0x00, the standard trick
// for keeping concatenated variable-length fields prefix-unambiguous while
// preserving lexicographic order. Fixed-width numeric payloads use an
// order-preserving transform (sign-bit flip for Int, full transform for
// Float) so byte-wise comparison matches numeric comparison.
package tuplayer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/termfx/fql/internal/keyval"
)

const (
	tagNil     byte = 0x00
	tagBytes   byte = 0x01
	tagString  byte = 0x02
	tagTuple   byte = 0x03
	tagInt     byte = 0x0c
	tagUint    byte = 0x0d
	tagBool    byte = 0x0e
	tagFloat   byte = 0x0f
	tagUuid    byte = 0x10
	tagVStamp  byte = 0x11
	tagVFuture byte = 0x12
)

// Codec implements codec.TupleCodec.
type Codec struct{}

func (Codec) Pack(t keyval.Tuple) ([]byte, error)   { return Pack(t) }
func (Codec) Unpack(b []byte) (keyval.Tuple, error) { return Unpack(b) }

func (Codec) PackWithStamp(t keyval.Tuple) ([]byte, uint32, error) { return PackWithStamp(t) }

// Pack encodes a fully concrete Tuple (no Variable/MaybeMore and at most
// one VStampFuture, per KeyValue invariants) into ordered bytes.
func Pack(t keyval.Tuple) ([]byte, error) {
	data, _, err := pack(t)
	return data, err
}

// PackWithStamp packs a Tuple containing exactly one VStampFuture and
// additionally returns the byte offset of that future's 10-byte zero region
// (where the commit-assigned transaction version goes) within the returned
// bytes, as required by the driver's
// set_versionstamped_{key,value} primitives (spec §6).
func PackWithStamp(t keyval.Tuple) (data []byte, stampOffset uint32, err error) {
	data, offset, err := pack(t)
	if err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("tuplayer: PackWithStamp called on a tuple with no VStampFuture")
	}
	return data, uint32(offset), nil
}

// pack returns the packed bytes and, if a VStampFuture was encountered, its
// offset (-1 otherwise).
func pack(t keyval.Tuple) ([]byte, int, error) {
	var out []byte
	stampOffset := -1
	for _, el := range t {
		b, sub, err := packElement(el)
		if err != nil {
			return nil, -1, err
		}
		if sub >= 0 {
			stampOffset = len(out) + sub
		}
		out = append(out, b...)
	}
	return out, stampOffset, nil
}

func packElement(el keyval.TupElement) ([]byte, int, error) {
	switch el.Kind {
	case keyval.EKNil:
		return []byte{tagNil}, -1, nil

	case keyval.EKBytes:
		return append([]byte{tagBytes}, escapeAndTerminate(el.Bytes)...), -1, nil

	case keyval.EKString:
		return append([]byte{tagString}, escapeAndTerminate([]byte(el.String))...), -1, nil

	case keyval.EKTuple:
		inner, sub, err := pack(el.Tuple)
		if err != nil {
			return nil, -1, err
		}
		packed := append([]byte{tagTuple}, escapeAndTerminate(inner)...)
		if sub >= 0 {
			// +1 for the tag byte already accounted for by escapeAndTerminate
			// operating on the raw inner bytes (escaping only ever inserts
			// bytes *after* the stamp's own field, never before it, since
			// the stamp field itself contains no 0x00 bytes in its
			// zero-prefix region... to stay correct in the presence of
			// escaping, stamps are disallowed inside nested tuples).
			return nil, -1, fmt.Errorf("tuplayer: versionstamp future inside a nested tuple is not supported")
		}
		return packed, -1, nil

	case keyval.EKInt:
		buf := make([]byte, 9)
		buf[0] = tagInt
		binary.BigEndian.PutUint64(buf[1:], uint64(el.Int)^signBit)
		return buf, -1, nil

	case keyval.EKUint:
		buf := make([]byte, 9)
		buf[0] = tagUint
		binary.BigEndian.PutUint64(buf[1:], el.Uint)
		return buf, -1, nil

	case keyval.EKBool:
		v := byte(0)
		if el.Bool {
			v = 1
		}
		return []byte{tagBool, v}, -1, nil

	case keyval.EKFloat:
		buf := make([]byte, 9)
		buf[0] = tagFloat
		binary.BigEndian.PutUint64(buf[1:], orderedFloatBits(el.Float))
		return buf, -1, nil

	case keyval.EKUuid:
		b, _ := el.Uuid.MarshalBinary()
		return append([]byte{tagUuid}, b...), -1, nil

	case keyval.EKVStamp:
		buf := make([]byte, 13)
		buf[0] = tagVStamp
		copy(buf[1:11], el.VStamp.TxVersion[:])
		binary.BigEndian.PutUint16(buf[11:13], el.VStamp.UserVersion)
		return buf, -1, nil

	case keyval.EKVStampFuture:
		buf := make([]byte, 13)
		buf[0] = tagVFuture
		binary.BigEndian.PutUint16(buf[11:13], el.VFuture.UserVersion)
		return buf, 1, nil // offset of the 10-byte zero region, relative to this element

	case keyval.EKVariable, keyval.EKMaybeMore:
		return nil, -1, fmt.Errorf("tuplayer: cannot pack a schema hole (%v) into a concrete tuple", el.Kind)

	default:
		return nil, -1, fmt.Errorf("tuplayer: unknown element kind %d", el.Kind)
	}
}

const signBit = uint64(1) << 63

// orderedFloatBits transforms an IEEE-754 bit pattern so unsigned
// byte-comparison matches float comparison: flip the sign bit for
// non-negative numbers, flip every bit for negative numbers.
func orderedFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&signBit != 0 {
		return ^bits
	}
	return bits | signBit
}

func unorderedFloatBits(bits uint64) uint64 {
	if bits&signBit != 0 {
		return bits &^ signBit
	}
	return ^bits
}

// escapeAndTerminate replaces 0x00 with 0x00 0xFF and appends a 0x00 0x00
// terminator.
func escapeAndTerminate(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	for _, c := range b {
		out = append(out, c)
		if c == 0x00 {
			out = append(out, 0xFF)
		}
	}
	return append(out, 0x00, 0x00)
}

// readEscaped consumes an escaped-and-terminated field starting at data[0],
// returning the unescaped payload and the number of bytes consumed
// (including the terminator).
func readEscaped(data []byte) ([]byte, int, error) {
	var out []byte
	i := 0
	for i < len(data) {
		if data[i] == 0x00 {
			if i+1 >= len(data) {
				return nil, 0, fmt.Errorf("tuplayer: truncated escaped field")
			}
			if data[i+1] == 0x00 {
				return out, i + 2, nil
			}
			if data[i+1] == 0xFF {
				out = append(out, 0x00)
				i += 2
				continue
			}
			return nil, 0, fmt.Errorf("tuplayer: invalid escape sequence")
		}
		out = append(out, data[i])
		i++
	}
	return nil, 0, fmt.Errorf("tuplayer: unterminated escaped field")
}

// Unpack decodes bytes produced by Pack back into a Tuple.
func Unpack(data []byte) (keyval.Tuple, error) {
	var out keyval.Tuple
	i := 0
	for i < len(data) {
		tag := data[i]
		i++
		switch tag {
		case tagNil:
			out = append(out, keyval.NewNil())

		case tagBytes:
			payload, n, err := readEscaped(data[i:])
			if err != nil {
				return nil, err
			}
			i += n
			out = append(out, keyval.NewBytes(payload))

		case tagString:
			payload, n, err := readEscaped(data[i:])
			if err != nil {
				return nil, err
			}
			i += n
			out = append(out, keyval.NewString(string(payload)))

		case tagTuple:
			payload, n, err := readEscaped(data[i:])
			if err != nil {
				return nil, err
			}
			i += n
			inner, err := Unpack(payload)
			if err != nil {
				return nil, err
			}
			out = append(out, keyval.NewTuple(inner))

		case tagInt:
			if i+8 > len(data) {
				return nil, fmt.Errorf("tuplayer: truncated int")
			}
			v := binary.BigEndian.Uint64(data[i : i+8])
			i += 8
			out = append(out, keyval.NewInt(int64(v^signBit)))

		case tagUint:
			if i+8 > len(data) {
				return nil, fmt.Errorf("tuplayer: truncated uint")
			}
			out = append(out, keyval.NewUint(binary.BigEndian.Uint64(data[i:i+8])))
			i += 8

		case tagBool:
			if i+1 > len(data) {
				return nil, fmt.Errorf("tuplayer: truncated bool")
			}
			out = append(out, keyval.NewBool(data[i] != 0))
			i++

		case tagFloat:
			if i+8 > len(data) {
				return nil, fmt.Errorf("tuplayer: truncated float")
			}
			bits := unorderedFloatBits(binary.BigEndian.Uint64(data[i : i+8]))
			out = append(out, keyval.NewFloat(math.Float64frombits(bits)))
			i += 8

		case tagUuid:
			if i+16 > len(data) {
				return nil, fmt.Errorf("tuplayer: truncated uuid")
			}
			id, err := uuid.FromBytes(data[i : i+16])
			if err != nil {
				return nil, err
			}
			out = append(out, keyval.NewUuid(id))
			i += 16

		case tagVStamp:
			if i+12 > len(data) {
				return nil, fmt.Errorf("tuplayer: truncated versionstamp")
			}
			var vs keyval.VStamp
			copy(vs.TxVersion[:], data[i:i+10])
			vs.UserVersion = binary.BigEndian.Uint16(data[i+10 : i+12])
			out = append(out, keyval.NewVStamp(vs))
			i += 12

		case tagVFuture:
			if i+12 > len(data) {
				return nil, fmt.Errorf("tuplayer: truncated versionstamp future")
			}
			uv := binary.BigEndian.Uint16(data[i+10 : i+12])
			out = append(out, keyval.NewVStampFuture(uv))
			i += 12

		default:
			return nil, fmt.Errorf("tuplayer: unknown tag byte 0x%02x", tag)
		}
	}
	return out, nil
}
