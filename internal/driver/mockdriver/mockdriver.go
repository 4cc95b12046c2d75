// Package mockdriver is a pure in-process implementation of the
// driver.Driver contract backed by a map, with keys sorted at range-scan
// time. It exists for fast, dependency-free engine unit tests, and cmd/fql
// also uses it for the default "sqlite::memory:" DSN; every other DSN is
// opened through internal/driver/sqlstore.
package mockdriver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/termfx/fql/internal/driver"
)

// Driver is a thread-safe, ordered in-memory key-value store.
type Driver struct {
	mu   sync.RWMutex
	data map[string][]byte
	dirs map[string][]string

	// failCommits, when > 0, makes that many subsequent Commit calls fail
	// with a driver.Temp error before succeeding — a test hook for
	// exercising engine.withRetry against a backend that reports transient
	// commit conflicts, since the map-backed store has no real contention
	// of its own to trigger one.
	failCommits int
}

// New returns an empty Driver.
func New() *Driver {
	return &Driver{data: make(map[string][]byte), dirs: make(map[string][]string)}
}

// Seed pre-populates the store; intended for test setup.
func (d *Driver) Seed(key, value []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[string(key)] = append([]byte(nil), value...)
}

// FailNextCommits makes the next n Commit calls return a driver.Temp error
// before Commit starts succeeding again, for tests of retry behavior.
func (d *Driver) FailNextCommits(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failCommits = n
}

// SeedDirectory registers a listing of child names for a directory prefix
// path, used by ListDirectory.
func (d *Driver) SeedDirectory(prefix []string, children []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirs[dirKey(prefix)] = children
}

func dirKey(prefix []string) string {
	key := ""
	for _, p := range prefix {
		key += "/" + p
	}
	return key
}

func (d *Driver) CreateTransaction(ctx context.Context) (driver.Transaction, error) {
	return &txn{d: d}, nil
}

func (d *Driver) ListDirectory(ctx context.Context, prefix []string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.dirs[dirKey(prefix)]...), nil
}

func (d *Driver) Close() error { return nil }

// txn is a transaction view over the Driver's map. Mutations are applied
// directly (no isolation/rollback buffering) since the mock exists only to
// exercise classification + codec + matcher wiring in engine tests, not
// transactional semantics.
type txn struct {
	d *Driver
}

func (t *txn) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	t.d.mu.RLock()
	defer t.d.mu.RUnlock()
	v, ok := t.d.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *txn) Set(ctx context.Context, key, value []byte) error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (t *txn) Clear(ctx context.Context, key []byte) error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	delete(t.d.data, string(key))
	return nil
}

func (t *txn) GetRange(ctx context.Context, begin, end []byte) <-chan driver.RangeItem {
	out := make(chan driver.RangeItem)
	go func() {
		defer close(out)
		t.d.mu.RLock()
		keys := make([]string, 0, len(t.d.data))
		for k := range t.d.data {
			if k < string(begin) {
				continue
			}
			if end != nil && k >= string(end) {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		snapshot := make(map[string][]byte, len(keys))
		for _, k := range keys {
			snapshot[k] = append([]byte(nil), t.d.data[k]...)
		}
		t.d.mu.RUnlock()

		for _, k := range keys {
			select {
			case <-ctx.Done():
				out <- driver.RangeItem{Err: ctx.Err()}
				return
			case out <- driver.RangeItem{Pair: driver.Pair{Key: []byte(k), Value: snapshot[k]}}:
			}
		}
	}()
	return out
}

func (t *txn) SetVersionstampedKey(ctx context.Context, keyTemplate []byte, stampOffset uint32, value []byte) error {
	key := fillStamp(keyTemplate, stampOffset, fakeTxVersion())
	return t.Set(ctx, key, value)
}

func (t *txn) SetVersionstampedValue(ctx context.Context, key []byte, valueTemplate []byte, stampOffset uint32) error {
	value := fillStamp(valueTemplate, stampOffset, fakeTxVersion())
	return t.Set(ctx, key, value)
}

func (t *txn) Commit(ctx context.Context) error {
	t.d.mu.Lock()
	if t.d.failCommits > 0 {
		t.d.failCommits--
		t.d.mu.Unlock()
		return driver.Temp(fmt.Errorf("mockdriver: simulated commit conflict"))
	}
	t.d.mu.Unlock()
	return nil
}

func (t *txn) Rollback(ctx context.Context) error { return nil }

// fillStamp overwrites the 10-byte zero region at offset with a
// deterministic stand-in "transaction version" — a real store assigns this
// at commit time from the cluster's commit sequence; the mock has no
// commit sequence to draw from, so it fabricates one from a counter.
func fillStamp(template []byte, offset uint32, txVersion [10]byte) []byte {
	out := append([]byte(nil), template...)
	copy(out[offset:offset+10], txVersion[:])
	return out
}

var stampCounter uint64

func fakeTxVersion() [10]byte {
	stampCounter++
	var v [10]byte
	n := stampCounter
	for i := 9; i >= 0 && n > 0; i-- {
		v[i] = byte(n)
		n >>= 8
	}
	return v
}
