package tuplayer

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/fql/internal/keyval"
)

func TestPackUnpack_RoundTrip(t *testing.T) {
	id := uuid.New()
	tup := keyval.Tuple{
		keyval.NewNil(),
		keyval.NewInt(-7),
		keyval.NewUint(9000),
		keyval.NewBool(true),
		keyval.NewFloat(2.5),
		keyval.NewString("hello\x00world"),
		keyval.NewBytes([]byte{0x00, 0xFF, 0x01}),
		keyval.NewUuid(id),
		keyval.NewTuple(keyval.Tuple{keyval.NewInt(1), keyval.NewString("nested")}),
	}
	packed, err := Pack(tup)
	require.NoError(t, err)
	got, err := Unpack(packed)
	require.NoError(t, err)
	require.Len(t, got, len(tup))
	assert.Equal(t, tup, got)
}

func TestPack_OrderPreservesIntOrdering(t *testing.T) {
	lo, _ := Pack(keyval.Tuple{keyval.NewInt(-5)})
	hi, _ := Pack(keyval.Tuple{keyval.NewInt(5)})
	assert.Equal(t, -1, bytes.Compare(lo, hi))
}

func TestPack_OrderPreservesStringPrefixOrdering(t *testing.T) {
	a, _ := Pack(keyval.Tuple{keyval.NewString("apple")})
	b, _ := Pack(keyval.Tuple{keyval.NewString("banana")})
	assert.Equal(t, -1, bytes.Compare(a, b))
}

func TestPackWithStamp_ReturnsOffset(t *testing.T) {
	tup := keyval.Tuple{keyval.NewString("idx"), keyval.NewVStampFuture(3)}
	data, offset, err := PackWithStamp(tup)
	require.NoError(t, err)
	// The 10-byte zero region starts right after the tagVFuture byte.
	zeroRegion := data[offset : offset+10]
	for _, b := range zeroRegion {
		assert.Equal(t, byte(0), b)
	}
}

func TestPack_RejectsVariable(t *testing.T) {
	_, err := Pack(keyval.Tuple{keyval.NewVariable()})
	assert.Error(t, err)
}

func TestPack_RejectsMaybeMore(t *testing.T) {
	_, err := Pack(keyval.Tuple{keyval.NewInt(1), keyval.NewMaybeMore()})
	assert.Error(t, err)
}
