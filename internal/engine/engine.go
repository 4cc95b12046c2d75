// Package engine is the dispatch façade of spec §4.5: it classifies a
// Query, routes it to the matching storage-driver primitive, and for range
// reads streams matched pairs back lazily. It is the only package that
// imports both keyval/matcher/codec (the pure core) and driver (the
// storage boundary) — the sole bridge between the pure AST/matcher layer
// and the storage layer.
package engine

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/termfx/fql/internal/codec"
	"github.com/termfx/fql/internal/driver"
	"github.com/termfx/fql/internal/keyval"
	"github.com/termfx/fql/internal/matcher"
)

// StampCodec is the subset of the tuple layer contract the VStampKey path
// needs: packing a tuple while also reporting the byte offset of its
// VStampFuture, so the driver's set_versionstamped_key primitive knows
// where to write the commit-assigned version. Supplied by tuplayer.Codec.
type StampCodec interface {
	codec.TupleCodec
	PackWithStamp(t keyval.Tuple) (data []byte, stampOffset uint32, err error)
}

// Engine dispatches classified queries against one Driver.
type Engine struct {
	drv driver.Driver
	cfg Config
}

// New builds an Engine over drv with cfg.
func New(drv driver.Driver, cfg Config) *Engine {
	return &Engine{drv: drv, cfg: cfg}
}

// Execute classifies q and dispatches it. The returned Result's Kind tells
// the caller which field(s) to read.
func (e *Engine) Execute(ctx context.Context, q keyval.Query) (Result, error) {
	ctx, cancel := e.withDeadline(ctx)
	streaming := false
	defer func() {
		// A ReadRange stream outlives this call; its goroutine releases the
		// deadline context when the scan ends.
		if !streaming {
			cancel()
		}
	}()

	if q.Kind == keyval.QDirectory {
		return e.executeDirectory(ctx, q.Directory)
	}

	kv := q.AsKeyValue()
	class := keyval.Classify(kv)
	switch class.Class {
	case keyval.Invalid:
		return Result{}, keyval.New(keyval.ErrInvalidQuery, class.Reason)
	case keyval.Constant:
		return e.executeConstant(ctx, kv)
	case keyval.Clear:
		return e.executeClear(ctx, kv)
	case keyval.VStampKey:
		return e.executeVStampKey(ctx, kv)
	case keyval.VStampVal:
		return e.executeVStampVal(ctx, kv)
	case keyval.ReadSingle:
		return e.executeReadSingle(ctx, kv)
	case keyval.ReadRange:
		res, err := e.executeReadRange(ctx, kv, cancel)
		streaming = err == nil
		return res, err
	default:
		return Result{}, keyval.New(keyval.ErrInvalidQuery, "unreachable class "+string(class.Class))
	}
}

func (e *Engine) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

func (e *Engine) packKey(kv keyval.KeyValue) ([]byte, error) {
	elements := flatten(kv.Key)
	b, err := e.cfg.Tuples.Pack(elements)
	if err != nil {
		return nil, keyval.Wrap(keyval.ErrCannotSerialize, "pack key", err)
	}
	return b, nil
}

func (e *Engine) packValue(v keyval.Value) ([]byte, error) {
	b, err := codec.Pack(v, e.cfg.Endianness, e.cfg.Tuples)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Engine) executeConstant(ctx context.Context, kv keyval.KeyValue) (Result, error) {
	keyBytes, err := e.packKey(kv)
	if err != nil {
		return Result{}, err
	}
	valBytes, err := e.packValue(kv.Value)
	if err != nil {
		return Result{}, err
	}
	err = e.inTransaction(ctx, func(tx driver.Transaction) error {
		return tx.Set(ctx, keyBytes, valBytes)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: RWritten}, nil
}

func (e *Engine) executeClear(ctx context.Context, kv keyval.KeyValue) (Result, error) {
	keyBytes, err := e.packKey(kv)
	if err != nil {
		return Result{}, err
	}
	err = e.inTransaction(ctx, func(tx driver.Transaction) error {
		return tx.Clear(ctx, keyBytes)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: RCleared}, nil
}

func (e *Engine) executeVStampKey(ctx context.Context, kv keyval.KeyValue) (Result, error) {
	sc, ok := e.cfg.Tuples.(StampCodec)
	if !ok {
		return Result{}, keyval.New(keyval.ErrCannotSerialize, "configured tuple codec does not support versionstamped keys")
	}
	elements := flatten(kv.Key)
	template, offset, err := sc.PackWithStamp(elements)
	if err != nil {
		return Result{}, keyval.Wrap(keyval.ErrCannotSerialize, "pack versionstamped key", err)
	}
	valBytes, err := e.packValue(kv.Value)
	if err != nil {
		return Result{}, err
	}
	err = e.inTransaction(ctx, func(tx driver.Transaction) error {
		return tx.SetVersionstampedKey(ctx, template, offset, valBytes)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: RStamped}, nil
}

func (e *Engine) executeVStampVal(ctx context.Context, kv keyval.KeyValue) (Result, error) {
	keyBytes, err := e.packKey(kv)
	if err != nil {
		return Result{}, err
	}
	// The VStampFuture lives directly in the value (not nested in a tuple),
	// so codec.Pack's fixed 16-byte template already has its zero region
	// starting at offset 0.
	template, err := e.packValue(kv.Value)
	if err != nil {
		return Result{}, err
	}
	err = e.inTransaction(ctx, func(tx driver.Transaction) error {
		return tx.SetVersionstampedValue(ctx, keyBytes, template, 0)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: RStamped}, nil
}

func (e *Engine) executeReadSingle(ctx context.Context, kv keyval.KeyValue) (Result, error) {
	keyBytes, err := e.packKey(kv)
	if err != nil {
		return Result{}, err
	}
	var raw []byte
	var found bool
	err = e.inTransaction(ctx, func(tx driver.Transaction) error {
		v, ok, gerr := tx.Get(ctx, keyBytes)
		raw, found = v, ok
		return gerr
	})
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{Kind: RSingle, Pair: nil}, nil
	}
	val, err := codec.Unpack(raw, valueType(kv.Value), e.cfg.Endianness, e.cfg.Tuples)
	if err != nil {
		return Result{}, keyval.Wrap(keyval.ErrExecutionFailed, "unpack value", err)
	}
	pair := keyval.KeyValue{Key: kv.Key, Value: val}
	return Result{Kind: RSingle, Pair: &pair}, nil
}

func (e *Engine) executeReadRange(ctx context.Context, kv keyval.KeyValue, release context.CancelFunc) (Result, error) {
	schema := flatten(kv.Key)
	prefixElems := concretePrefix(schema)
	prefixBytes, err := e.cfg.Tuples.Pack(prefixElems)
	if err != nil {
		return Result{}, keyval.Wrap(keyval.ErrCannotSerialize, "pack range prefix", err)
	}
	endBytes := strinc(prefixBytes)

	tx, err := e.drv.CreateTransaction(ctx)
	if err != nil {
		return Result{}, keyval.Wrap(keyval.ErrTransaction, "create transaction", err)
	}

	out := make(chan Item)
	go func() {
		defer release()
		defer close(out)
		defer tx.Rollback(ctx)
		dirLen := len(kv.Key.Directory)
		valType := valueType(kv.Value)
		for ri := range tx.GetRange(ctx, prefixBytes, endBytes) {
			if ri.Err != nil {
				out <- Item{Err: keyval.Wrap(keyval.ErrExecutionFailed, "range scan", ri.Err)}
				return
			}
			elements, err := e.cfg.Tuples.Unpack(ri.Pair.Key)
			if err != nil {
				out <- Item{Err: keyval.Wrap(keyval.ErrExecutionFailed, "unpack key", err)}
				return
			}
			if _, ok := matcher.Compare(schema, elements); !ok {
				continue // over-read from the prefix scan; not a schema match
			}
			val, err := codec.Unpack(ri.Pair.Value, valType, e.cfg.Endianness, e.cfg.Tuples)
			if err != nil {
				out <- Item{Err: keyval.Wrap(keyval.ErrExecutionFailed, "unpack value", err)}
				return
			}
			key := splitFlat(dirLen, elements)
			select {
			case out <- Item{Pair: keyval.KeyValue{Key: key, Value: val}}:
			case <-ctx.Done():
				out <- Item{Err: keyval.Wrap(keyval.ErrCanceled, "range scan canceled", ctx.Err())}
				return
			}
		}
	}()

	return Result{Kind: RStream, Items: out}, nil
}

// executeDirectory lists the children of dir's longest concrete (DEString)
// prefix. A trailing Variable segment doesn't name a literal child, so its
// candidates are filtered through doublestar's glob matcher rather than a
// hand-rolled prefix check, matching a directory segment's shape
// (currently only "*", since FQL's grammar has no literal glob syntax —
// see the scanner's reserved '*' rune) against each child name.
func (e *Engine) executeDirectory(ctx context.Context, dir keyval.Directory) (Result, error) {
	var prefix []string
	var pattern string
	for _, d := range dir {
		if d.Kind != keyval.DEString {
			pattern = directoryGlob(d)
			break
		}
		prefix = append(prefix, d.String)
	}
	children, err := e.drv.ListDirectory(ctx, prefix)
	if err != nil {
		return Result{}, keyval.Wrap(keyval.ErrTransaction, "list directory", err)
	}
	if pattern == "" {
		return Result{Kind: RListing, Listing: children}, nil
	}

	matched := make([]string, 0, len(children))
	for _, c := range children {
		ok, err := doublestar.Match(pattern, c)
		if err != nil {
			return Result{}, keyval.Wrap(keyval.ErrInvalidQuery, "directory glob", err)
		}
		if ok {
			matched = append(matched, c)
		}
	}
	return Result{Kind: RListing, Listing: matched}, nil
}

// directoryGlob turns a trailing Variable directory segment into a
// doublestar pattern. An unconstrained variable accepts any child name;
// a type-constrained one still accepts any name syntactically (types
// apply to tuple elements, not directory segments) so both resolve to "*".
func directoryGlob(d keyval.DirElement) string {
	if d.Kind != keyval.DEVariable {
		return ""
	}
	return "*"
}

// inTransaction runs fn within a fresh transaction, committing on success
// and rolling back otherwise, with the whole attempt retried per
// withRetry/Config on a Temporary commit error. A Temporary error out of
// fn or Commit is returned as-is rather than folded into a QueryError, so
// withRetry's isTemporary check downstream still sees it; only a
// permanent failure gets the QueryError treatment here.
func (e *Engine) inTransaction(ctx context.Context, fn func(driver.Transaction) error) error {
	return withRetry(ctx, e.cfg, func() error {
		tx, err := e.drv.CreateTransaction(ctx)
		if err != nil {
			return keyval.Wrap(keyval.ErrTransaction, "create transaction", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback(ctx)
			if isTemporary(err) {
				return err
			}
			return keyval.Wrap(keyval.ErrTransaction, "operation failed", err)
		}
		if err := tx.Commit(ctx); err != nil {
			tx.Rollback(ctx)
			return err
		}
		return nil
	})
}

// valueType recovers the ValueType a ReadSingle/ReadRange schema's value
// Variable constrains results to, defaulting to Any when unconstrained or
// when multiple types are admitted (the codec needs exactly one type to
// unpack against; a multi-type Variable can only be validated, not
// unpacked, without additional wire-level type tagging, which spec §4.4
// leaves to the tuple layer's Tuple case only).
func valueType(v keyval.Value) keyval.ValueType {
	if v.Kind != keyval.EKVariable || len(v.Variable.Types) != 1 {
		return keyval.TAny
	}
	return v.Variable.Types[0]
}
