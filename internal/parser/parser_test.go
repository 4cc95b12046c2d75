package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/fql/internal/keyval"
)

func TestParse_ConstantWrite(t *testing.T) {
	q, err := Parse(`/users(42)="alice"`)
	require.NoError(t, err)
	require.Equal(t, keyval.QKeyValue, q.Kind)
	assert.Equal(t, keyval.NewDirString("users"), q.KeyValue.Key.Directory[0])
	assert.Equal(t, keyval.NewInt(42), q.KeyValue.Key.Tuple[0])
	assert.Equal(t, "alice", q.KeyValue.Value.String)
}

func TestParse_KeyShorthandNoValue(t *testing.T) {
	q, err := Parse(`/users(42)`)
	require.NoError(t, err)
	assert.Equal(t, keyval.QKey, q.Kind)
	assert.Equal(t, keyval.NewInt(42), q.Key.Tuple[0])
}

func TestParse_DirectoryOnly(t *testing.T) {
	q, err := Parse(`/users/profiles`)
	require.NoError(t, err)
	assert.Equal(t, keyval.QDirectory, q.Kind)
	assert.Len(t, q.Directory, 2)
}

func TestParse_VariableWithTypes(t *testing.T) {
	q, err := Parse(`/users(<int|string>)=<>`)
	require.NoError(t, err)
	el := q.KeyValue.Key.Tuple[0]
	require.Equal(t, keyval.EKVariable, el.Kind)
	assert.Equal(t, []keyval.ValueType{keyval.TInt, keyval.TString}, el.Variable.Types)
	assert.True(t, q.KeyValue.Value.Variable.Admits(keyval.TBool))
}

func TestParse_MaybeMoreTail(t *testing.T) {
	q, err := Parse(`/users(42,...)=<>`)
	require.NoError(t, err)
	tup := q.KeyValue.Key.Tuple
	assert.Equal(t, keyval.EKMaybeMore, tup[len(tup)-1].Kind)
}

func TestParse_MaybeMoreInValuePositionRejected(t *testing.T) {
	_, err := Parse(`/users(1)=...`)
	require.Error(t, err)
}

func TestParse_Clear(t *testing.T) {
	q, err := Parse(`/users(1)=clear`)
	require.NoError(t, err)
	assert.True(t, q.KeyValue.Value.IsClear)
}

func TestParse_NestedTuple(t *testing.T) {
	q, err := Parse(`/idx((1,2),3)=nil`)
	require.NoError(t, err)
	tup := q.KeyValue.Key.Tuple
	require.Equal(t, keyval.EKTuple, tup[0].Kind)
	assert.Equal(t, keyval.NewInt(1), tup[0].Tuple[0])
}

func TestParse_BytesLiteral(t *testing.T) {
	q, err := Parse(`/b(0xDEADBEEF)=nil`)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, q.KeyValue.Key.Tuple[0].Bytes)
}

func TestParse_UintSuffix(t *testing.T) {
	q, err := Parse(`/b(9u)=nil`)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), q.KeyValue.Key.Tuple[0].Uint)
}

func TestParse_VStampFutureLiteral(t *testing.T) {
	q, err := Parse(`/log(#3)=42`)
	require.NoError(t, err)
	el := q.KeyValue.Key.Tuple[0]
	require.Equal(t, keyval.EKVStampFuture, el.Kind)
	assert.Equal(t, uint16(3), el.VFuture.UserVersion)
}

func TestParse_ConcreteVStampLiteral(t *testing.T) {
	hex24 := "0102030405060708090a0bcd"
	q, err := Parse(`/log(#stamp:` + hex24 + `)=42`)
	require.NoError(t, err)
	el := q.KeyValue.Key.Tuple[0]
	require.Equal(t, keyval.EKVStamp, el.Kind)
	assert.Equal(t, [10]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, el.VStamp.TxVersion)
	assert.Equal(t, uint16(0x0bcd), el.VStamp.UserVersion)
}

func TestParse_ConcreteVStampRejectsWrongLength(t *testing.T) {
	_, err := Parse(`/log(#stamp:abcd)=42`)
	require.Error(t, err)
}

func TestParse_InvalidQueryReturnsParseError(t *testing.T) {
	_, err := Parse(`/users(1`)
	require.Error(t, err)
	qe, ok := err.(keyval.QueryError)
	require.True(t, ok)
	assert.Equal(t, keyval.ErrParseQuery, qe.Code)
}

func TestFormat_RoundTripsConstant(t *testing.T) {
	src := `/users(42)="alice"`
	q, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, Format(q))
}

func TestFormat_RoundTripsVariable(t *testing.T) {
	src := `/users(<int>)=<string>`
	q, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, Format(q))
}

func TestFormat_RoundTripsMaybeMore(t *testing.T) {
	src := `/users(42,...)=<>`
	q, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, Format(q))
}

func TestFormat_RoundTripsClear(t *testing.T) {
	src := `/users(1)=clear`
	q, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, Format(q))
}

func TestFormat_RoundTripsConcreteVStamp(t *testing.T) {
	src := `/log(#stamp:0102030405060708090a0bcd)=42`
	q, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, Format(q))
}

func TestFormat_RoundTripsDirectoryOnly(t *testing.T) {
	src := `/users/profiles`
	q, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, Format(q))
}
