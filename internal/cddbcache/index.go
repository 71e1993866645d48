package cddbcache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cddb/internal/disc"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. An index with another
// version is rejected; `cddb cache reindex` rebuilds it from the files.
const schemaVersion = 1

// IndexFileName is the index database created inside the cache directory.
const IndexFileName = "index.db"

// ErrSchemaMismatch indicates the index was written by an incompatible version.
var ErrSchemaMismatch = errors.New("index schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Index is a SQLite table of disc ID to category, used by query lookups so
// they do not have to probe every category directory.
type Index struct {
	db   *sql.DB
	path string
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	idx := &Index{db: db, path: path}
	if err := idx.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (x *Index) initSchema(ctx context.Context) error {
	var tableExists int
	err := x.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return x.createSchema(ctx)
	}

	var version int
	if err := x.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: index has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, x.path)
	}
	return nil
}

func (x *Index) createSchema(ctx context.Context) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.path
}

// Lookup returns the most recently recorded category for id.
func (x *Index) Lookup(ctx context.Context, id uint32) (disc.Category, bool, error) {
	var name string
	err := retryOnBusy(ctx, func() error {
		return x.db.QueryRowContext(ctx,
			"SELECT category FROM entries WHERE disc_id = ? ORDER BY updated_at DESC LIMIT 1",
			int64(id),
		).Scan(&name)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return disc.CategoryInvalid, false, nil
	}
	if err != nil {
		return disc.CategoryInvalid, false, fmt.Errorf("lookup %08x: %w", id, err)
	}
	c := disc.ParseCategory(name)
	return c, c.Valid(), nil
}

// Record upserts the (id, category) pair with the current time.
func (x *Index) Record(ctx context.Context, id uint32, c disc.Category) error {
	if !c.Valid() {
		return fmt.Errorf("record %08x: invalid category", id)
	}
	return x.exec(ctx,
		`INSERT INTO entries (disc_id, category, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (disc_id, category) DO UPDATE SET updated_at = excluded.updated_at`,
		int64(id), c.String(), time.Now().UnixNano())
}

// Forget removes the (id, category) pair.
func (x *Index) Forget(ctx context.Context, id uint32, c disc.Category) error {
	return x.exec(ctx, "DELETE FROM entries WHERE disc_id = ? AND category = ?", int64(id), c.String())
}

// Reset deletes every row.
func (x *Index) Reset(ctx context.Context) error {
	return x.exec(ctx, "DELETE FROM entries")
}

// Count returns the number of recorded pairs.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := retryOnBusy(ctx, func() error {
		return x.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM entries").Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

func (x *Index) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := x.db.ExecContext(ctx, query, args...)
		return err
	})
}
