package keyval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirPath(segs ...string) Directory {
	d := make(Directory, len(segs))
	for i, s := range segs {
		d[i] = NewDirString(s)
	}
	return d
}

func TestClassify_Constant(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("users"), Tuple: Tuple{NewInt(42)}},
		Value: NewValue(NewString("test")),
	}
	got := Classify(kv)
	assert.Equal(t, Constant, got.Class)
}

func TestClassify_Clear(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("users"), Tuple: Tuple{NewInt(42)}},
		Value: NewClear(),
	}
	got := Classify(kv)
	assert.Equal(t, Clear, got.Class)
}

func TestClassify_ReadSingle(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("users"), Tuple: Tuple{NewInt(42)}},
		Value: NewValue(NewVariable()),
	}
	got := Classify(kv)
	assert.Equal(t, ReadSingle, got.Class)
}

func TestClassify_ReadRange(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("users"), Tuple: Tuple{NewInt(42), NewMaybeMore()}},
		Value: NewValue(NewVariable()),
	}
	got := Classify(kv)
	assert.Equal(t, ReadRange, got.Class)
}

func TestClassify_VStampKey(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("idx"), Tuple: Tuple{NewVStampFuture(0)}},
		Value: NewValue(NewInt(42)),
	}
	got := Classify(kv)
	assert.Equal(t, VStampKey, got.Class)
}

func TestClassify_VStampVal(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("idx"), Tuple: Tuple{NewInt(1)}},
		Value: NewValue(NewVStampFuture(0)),
	}
	got := Classify(kv)
	assert.Equal(t, VStampVal, got.Class)
}

func TestClassify_InvalidVStampAndVariable(t *testing.T) {
	kv := KeyValue{
		Key: Key{
			Directory: dirPath("idx"),
			Tuple:     Tuple{NewVStampFuture(0), NewVariable()},
		},
		Value: NewValue(NewNil()),
	}
	// Replace the Nil placeholder with a concrete value so only the
	// vstamp+variable mix trips Invalid, not the nil rule.
	kv.Value = NewValue(NewInt(1))
	got := Classify(kv)
	require.Equal(t, Invalid, got.Class)
	assert.Equal(t, "vstamps:1,var", got.Reason)
}

func TestClassify_InvalidNil(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("idx"), Tuple: Tuple{NewNil()}},
		Value: NewValue(NewInt(1)),
	}
	got := Classify(kv)
	require.Equal(t, Invalid, got.Class)
	assert.Equal(t, "nil", got.Reason)
}

func TestClassify_InvalidTooManyVStamps(t *testing.T) {
	kv := KeyValue{
		Key:   Key{Directory: dirPath("idx"), Tuple: Tuple{NewVStampFuture(0)}},
		Value: NewValue(NewVStampFuture(1)),
	}
	got := Classify(kv)
	require.Equal(t, Invalid, got.Class)
	assert.Equal(t, "vstamps:2", got.Reason)
}

func TestClassifyQuery_KeyShorthand(t *testing.T) {
	q := Query{Kind: QKey, Key: Key{Directory: dirPath("users"), Tuple: Tuple{NewInt(1)}}}
	got := ClassifyQuery(q)
	assert.Equal(t, ReadSingle, got.Class)
}

func TestSynthesize_NestedTuple(t *testing.T) {
	tup := Tuple{NewInt(1), NewTuple(Tuple{NewVariable()})}
	attr := SynthesizeTuple(tup)
	assert.True(t, attr.HasVariable)
	assert.Equal(t, 0, attr.VStampFutures)
}
