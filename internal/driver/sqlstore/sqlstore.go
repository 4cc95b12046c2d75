// Package sqlstore is a gorm-backed driver.Driver implementation. It stores
// keys and values as opaque ordered byte blobs in a single table, and
// supports three dialects selected from a DSN: sqlite (file or ":memory:",
// via glebarez/sqlite — the pure-Go driver the rest of this module already
// depends on), libsql (turso/sqlite over HTTP or embedded replica, via
// tursodatabase/libsql-client-go), and postgres (via gorm.io/driver/postgres).
// The dialect is selected the same way as a connection string prefix in a
// typical multi-backend gorm setup: inspect the scheme, open the matching
// driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	glebarez "github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/postgres"
	gsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/termfx/fql/internal/driver"
)

// keyRow is the single table every dialect shares.
type keyRow struct {
	K []byte `gorm:"primaryKey;column:k"`
	V []byte `gorm:"column:v"`
}

func (keyRow) TableName() string { return "fql_kv" }

// seqRow backs the monotonic counter stampFrom draws commit-ordered
// versionstamps from.
type seqRow struct {
	Seq int64 `gorm:"primaryKey;autoIncrement;column:seq"`
}

func (seqRow) TableName() string { return "fql_seq" }

// Open selects a dialect from the DSN's scheme and returns a ready Driver.
//
//	sqlite::memory:            in-process, wiped on Close
//	sqlite:/path/to/file.db    on-disk sqlite
//	libsql://host?authToken=…  turso / remote libsql
//	postgres://…               postgres
func Open(dsn string) (*Driver, error) {
	gdb, err := openDialect(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %q: %w", dsn, err)
	}
	if err := gdb.AutoMigrate(&keyRow{}, &seqRow{}); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return &Driver{db: gdb}, nil
}

func openDialect(dsn string) (*gorm.DB, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		return gorm.Open(glebarez.Open(path), &gorm.Config{})
	case strings.HasPrefix(dsn, "libsql:"):
		sqlDB, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
		return gorm.Open(gsqlite.Dialector{Conn: sqlDB}, &gorm.Config{})
	case strings.HasPrefix(dsn, "postgres:") || strings.HasPrefix(dsn, "postgresql:"):
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unrecognized DSN scheme (want sqlite:, libsql:, or postgres:): %q", dsn)
	}
}

// Driver is the gorm-backed driver.Driver.
type Driver struct {
	mu sync.Mutex // serializes transaction starts; gorm's *sql.DB handles its own pool
	db *gorm.DB
}

func (d *Driver) CreateTransaction(ctx context.Context) (driver.Transaction, error) {
	d.mu.Lock()
	tx := d.db.WithContext(ctx).Begin()
	d.mu.Unlock()
	if tx.Error != nil {
		return nil, fmt.Errorf("sqlstore: begin: %w", tx.Error)
	}
	return &txn{tx: tx}, nil
}

// ListDirectory scans distinct key prefixes one segment below the given
// path. Directories aren't modeled as rows of their own; they're derived
// from key prefixes rather than kept in a separate directory table.
func (d *Driver) ListDirectory(ctx context.Context, prefix []string) ([]string, error) {
	var rows []keyRow
	if err := d.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list directory: %w", err)
	}
	p := joinPrefix(prefix)
	seen := make(map[string]struct{})
	for _, r := range rows {
		k := string(r.K)
		if !strings.HasPrefix(k, p) {
			continue
		}
		rest := k[len(p):]
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			seen[rest[:idx]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func joinPrefix(prefix []string) string {
	var b strings.Builder
	for _, p := range prefix {
		b.WriteByte('/')
		b.WriteString(p)
	}
	b.WriteByte('/')
	return b.String()
}

func (d *Driver) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type txn struct {
	tx *gorm.DB
}

func (t *txn) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var row keyRow
	err := t.tx.WithContext(ctx).Where("k = ?", key).Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: get: %w", err)
	}
	return row.V, true, nil
}

func (t *txn) Set(ctx context.Context, key, value []byte) error {
	row := keyRow{K: key, V: value}
	err := t.tx.WithContext(ctx).Save(&row).Error
	if err != nil {
		return classifyConflict(fmt.Errorf("sqlstore: set: %w", err))
	}
	return nil
}

func (t *txn) Clear(ctx context.Context, key []byte) error {
	if err := t.tx.WithContext(ctx).Delete(&keyRow{}, "k = ?", key).Error; err != nil {
		return classifyConflict(fmt.Errorf("sqlstore: clear: %w", err))
	}
	return nil
}

// classifyConflict wraps err as a driver.Temp error when it represents a
// retryable storage conflict — a SQLite "database is locked"/SQLITE_BUSY
// contention error, or a Postgres serialization_failure (40001) /
// deadlock_detected (40P01) — and as driver.Permanent otherwise, per spec
// §7's "transient errors are retried, permanent errors surface to the
// caller."
func classifyConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return driver.Temp(err)
		}
		return driver.Permanent(err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "busy") {
		return driver.Temp(err)
	}
	return driver.Permanent(err)
}

func (t *txn) GetRange(ctx context.Context, begin, end []byte) <-chan driver.RangeItem {
	out := make(chan driver.RangeItem)
	go func() {
		defer close(out)
		var rows []keyRow
		q := t.tx.WithContext(ctx).Where("k >= ?", begin)
		if end != nil {
			q = q.Where("k < ?", end)
		}
		err := q.
			Order("k ASC").
			FindInBatches(&rows, 256, func(tx *gorm.DB, batch int) error {
				for _, r := range rows {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case out <- driver.RangeItem{Pair: driver.Pair{Key: r.K, Value: r.V}}:
					}
				}
				return nil
			}).Error
		if err != nil {
			out <- driver.RangeItem{Err: fmt.Errorf("sqlstore: range: %w", err)}
		}
	}()
	return out
}

func (t *txn) SetVersionstampedKey(ctx context.Context, keyTemplate []byte, stampOffset uint32, value []byte) error {
	key, err := t.stampFrom(keyTemplate, stampOffset)
	if err != nil {
		return err
	}
	return t.Set(ctx, key, value)
}

func (t *txn) SetVersionstampedValue(ctx context.Context, key []byte, valueTemplate []byte, stampOffset uint32) error {
	value, err := t.stampFrom(valueTemplate, stampOffset)
	if err != nil {
		return err
	}
	return t.Set(ctx, key, value)
}

// stampFrom fills the 10-byte zero region at offset with a commit-ordered
// sequence number drawn from a per-table monotonic counter row, the closest
// a SQL backend gets to FoundationDB's real commit-version stamping.
func (t *txn) stampFrom(template []byte, offset uint32) ([]byte, error) {
	var seq struct{ Next int64 }
	err := t.tx.Raw(`SELECT COALESCE(MAX(seq), 0) + 1 AS next FROM fql_seq`).Scan(&seq).Error
	if err != nil {
		seq.Next = 1
	}
	t.tx.Exec(`INSERT INTO fql_seq (seq) VALUES (?)`, seq.Next)
	out := append([]byte(nil), template...)
	var txVersion [10]byte
	n := seq.Next
	for i := 9; i >= 0 && n > 0; i-- {
		txVersion[i] = byte(n)
		n >>= 8
	}
	copy(out[offset:offset+10], txVersion[:])
	return out, nil
}

func (t *txn) Commit(ctx context.Context) error {
	if err := t.tx.WithContext(ctx).Commit().Error; err != nil {
		return classifyConflict(fmt.Errorf("sqlstore: commit: %w", err))
	}
	return nil
}

func (t *txn) Rollback(ctx context.Context) error { return t.tx.WithContext(ctx).Rollback().Error }
