package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/fql/internal/driver"
	"github.com/termfx/fql/internal/keyval"
)

func TestIsTemporary_UnwrapsThroughWrapping(t *testing.T) {
	raw := driver.Temp(errors.New("conflict"))
	wrapped := fmt.Errorf("commit: %w", raw)
	assert.True(t, isTemporary(wrapped))
	assert.False(t, isTemporary(errors.New("permanent boom")))
}

func TestExecute_RetriesTransientCommitConflict(t *testing.T) {
	e, d := newTestEngine()
	d.FailNextCommits(2) // fewer than cfg.MaxRetries (3), so the write should still succeed

	writeQ := keyval.Query{Kind: keyval.QKeyValue, KeyValue: keyval.KeyValue{
		Key:   keyval.Key{Directory: dirOf("log"), Tuple: keyval.Tuple{keyval.NewInt(1)}},
		Value: keyval.NewValue(keyval.NewString("ok")),
	}}
	res, err := e.Execute(context.Background(), writeQ)
	require.NoError(t, err)
	assert.Equal(t, RWritten, res.Kind)
}

func TestExecute_ExhaustsRetriesOnPersistentConflict(t *testing.T) {
	e, d := newTestEngine()
	d.FailNextCommits(100) // more than cfg.MaxRetries, so every attempt fails

	writeQ := keyval.Query{Kind: keyval.QKeyValue, KeyValue: keyval.KeyValue{
		Key:   keyval.Key{Directory: dirOf("log"), Tuple: keyval.Tuple{keyval.NewInt(2)}},
		Value: keyval.NewValue(keyval.NewString("never")),
	}}
	_, err := e.Execute(context.Background(), writeQ)
	require.Error(t, err)
}
