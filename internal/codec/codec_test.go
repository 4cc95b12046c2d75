package codec

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/fql/internal/keyval"
)

// fakeTupleCodec is a minimal TupleCodec stand-in for tests that don't
// exercise nested tuples through the real tuple layer.
type fakeTupleCodec struct{}

func (fakeTupleCodec) Pack(t keyval.Tuple) ([]byte, error)   { return []byte{byte(len(t))}, nil }
func (fakeTupleCodec) Unpack(b []byte) (keyval.Tuple, error) { return make(keyval.Tuple, int(b[0])), nil }

func roundTrip(t *testing.T, v keyval.TupElement, typ keyval.ValueType, e Endianness) keyval.Value {
	t.Helper()
	packed, err := Pack(keyval.NewValue(v), e, fakeTupleCodec{})
	require.NoError(t, err)
	unpacked, err := Unpack(packed, typ, e, fakeTupleCodec{})
	require.NoError(t, err)
	return unpacked
}

func TestRoundTrip_Bool(t *testing.T) {
	for _, e := range []Endianness{Big, Little} {
		got := roundTrip(t, keyval.NewBool(true), keyval.TBool, e)
		assert.Equal(t, true, got.Bool)
	}
}

func TestRoundTrip_Int(t *testing.T) {
	for _, e := range []Endianness{Big, Little} {
		got := roundTrip(t, keyval.NewInt(-42), keyval.TInt, e)
		assert.Equal(t, int64(-42), got.Int)
	}
}

func TestRoundTrip_Uint(t *testing.T) {
	for _, e := range []Endianness{Big, Little} {
		got := roundTrip(t, keyval.NewUint(1<<63), keyval.TUint, e)
		assert.Equal(t, uint64(1<<63), got.Uint)
	}
}

func TestRoundTrip_Float(t *testing.T) {
	for _, e := range []Endianness{Big, Little} {
		got := roundTrip(t, keyval.NewFloat(3.14159), keyval.TFloat, e)
		assert.Equal(t, 3.14159, got.Float)
	}
}

func TestRoundTrip_FloatNaNPayload(t *testing.T) {
	nan := math.Float64frombits(0x7FF8000000000123)
	got := roundTrip(t, keyval.NewFloat(nan), keyval.TFloat, Big)
	assert.Equal(t, math.Float64bits(nan), math.Float64bits(got.Float))
}

func TestRoundTrip_String(t *testing.T) {
	got := roundTrip(t, keyval.NewString("héllo"), keyval.TString, Big)
	assert.Equal(t, "héllo", got.String)
}

func TestRoundTrip_Bytes(t *testing.T) {
	got := roundTrip(t, keyval.NewBytes([]byte{0xDE, 0xAD, 0xBE, 0xEF}), keyval.TBytes, Big)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, got.Bytes)
}

func TestRoundTrip_Uuid(t *testing.T) {
	id := uuid.New()
	got := roundTrip(t, keyval.NewUuid(id), keyval.TUuid, Big)
	assert.Equal(t, id, got.Uuid)
}

func TestRoundTrip_VStamp(t *testing.T) {
	var vs keyval.VStamp
	copy(vs.TxVersion[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	vs.UserVersion = 7
	got := roundTrip(t, keyval.NewVStamp(vs), keyval.TVStamp, Big)
	assert.Equal(t, vs, got.VStamp)
}

func TestEndiannessIndependence(t *testing.T) {
	big, err := Pack(keyval.NewValue(keyval.NewInt(0x0102030405060708)), Big, nil)
	require.NoError(t, err)
	little, err := Pack(keyval.NewValue(keyval.NewInt(0x0102030405060708)), Little, nil)
	require.NoError(t, err)
	require.Len(t, big, 8)
	require.Len(t, little, 8)
	for i := range big {
		assert.Equal(t, big[i], little[len(little)-1-i])
	}
}

func TestEndiannessIndependence_ZeroIsIdentical(t *testing.T) {
	big, _ := Pack(keyval.NewValue(keyval.NewInt(0)), Big, nil)
	little, _ := Pack(keyval.NewValue(keyval.NewInt(0)), Little, nil)
	assert.Equal(t, big, little)
}

func TestPack_RefusesVariable(t *testing.T) {
	_, err := Pack(keyval.NewValue(keyval.NewVariable()), Big, nil)
	require.Error(t, err)
	qe, ok := err.(keyval.QueryError)
	require.True(t, ok)
	assert.Equal(t, keyval.ErrCannotSerialize, qe.Code)
}

func TestPack_RefusesClear(t *testing.T) {
	_, err := Pack(keyval.NewClear(), Big, nil)
	require.Error(t, err)
	qe, ok := err.(keyval.QueryError)
	require.True(t, ok)
	assert.Equal(t, keyval.ErrCannotSerialize, qe.Code)
}

func TestUnpack_InvalidLength(t *testing.T) {
	_, err := Unpack(make([]byte, 7), keyval.TInt, Big, nil)
	require.Error(t, err)
	qe, ok := err.(keyval.QueryError)
	require.True(t, ok)
	assert.Equal(t, keyval.ErrInvalidLength, qe.Code)
}

func TestUnpack_InvalidUTF8(t *testing.T) {
	_, err := Unpack([]byte{0xff, 0xfe}, keyval.TString, Big, nil)
	require.Error(t, err)
	qe, ok := err.(keyval.QueryError)
	require.True(t, ok)
	assert.Equal(t, keyval.ErrInvalidEncoding, qe.Code)
}

func TestUnpack_AnyIsRawBytes(t *testing.T) {
	got, err := Unpack([]byte{1, 2, 3}, keyval.TAny, Big, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Bytes)
}

func TestPack_Nil(t *testing.T) {
	b, err := Pack(keyval.NewValue(keyval.NewNil()), Big, nil)
	require.NoError(t, err)
	assert.Empty(t, b)
}
