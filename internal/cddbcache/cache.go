package cddbcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"cddb/internal/disc"
	"cddb/internal/fileutil"
	"cddb/internal/logging"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
	lockName = ".lock"

	// DefaultLockTimeout bounds the wait for the cache directory lock.
	DefaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

var (
	// ErrNoIndex is returned by Reindex when the cache was opened without one.
	ErrNoIndex = errors.New("cache index not enabled")
	// ErrLocked is returned by Create when another writer keeps the cache
	// directory locked past the lock timeout.
	ErrLocked = errors.New("cache directory locked by another writer")
)

// Options configures New.
type Options struct {
	// Dir is the cache root. Records live at <Dir>/<category>/<discid>.
	Dir string
	// Index enables the SQLite disc ID index at <Dir>/index.db.
	Index bool
	// LockTimeout bounds how long Create waits for another writer. Zero
	// means DefaultLockTimeout.
	LockTimeout time.Duration
	Logger      *slog.Logger
}

// Cache is the on-disk record store. It is owned by a single session and is
// not safe for concurrent use; the file lock only guards against other
// processes writing the same directory.
type Cache struct {
	dir    string
	logger *slog.Logger
	table  categoryTable
	index  *Index
	lock   *flock.Flock
	wait   time.Duration
}

// Entry describes one cached record file.
type Entry struct {
	Category disc.Category
	DiscID   uint32
	Path     string
	Size     int64
	ModTime  time.Time
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries     int
	Bytes       int64
	PerCategory map[disc.Category]int
	Newest      time.Time
	Indexed     int
}

// New prepares a cache rooted at opts.Dir. The directory is created lazily
// on the first write unless the index is enabled. An index that cannot be
// opened is logged and skipped.
func New(ctx context.Context, opts Options) (*Cache, error) {
	if opts.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "cddbcache")

	c := &Cache{
		dir:    opts.Dir,
		logger: logger,
		table:  newCategoryTable(),
		lock:   flock.New(filepath.Join(opts.Dir, lockName)),
		wait:   opts.LockTimeout,
	}
	if c.wait <= 0 {
		c.wait = DefaultLockTimeout
	}

	if opts.Index {
		if err := os.MkdirAll(opts.Dir, dirMode); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		idx, err := OpenIndex(ctx, filepath.Join(opts.Dir, IndexFileName))
		if err != nil {
			logging.WarnWithContext(logger, "cache index unavailable", "cache_index_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run `cddb cache reindex` or delete the index file"),
				logging.String(logging.FieldImpact, "query lookups probe every category directory"))
		} else {
			c.index = idx
		}
	}
	return c, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// Indexed reports whether the SQLite index is in use.
func (c *Cache) Indexed() bool {
	return c.index != nil
}

// Path returns the record path for (category, id).
func (c *Cache) Path(category disc.Category, id uint32) string {
	return filepath.Join(c.dir, category.String(), fmt.Sprintf("%08x", id))
}

// Exists reports whether a regular record file exists for (category, id).
func (c *Cache) Exists(category disc.Category, id uint32) bool {
	if !category.Valid() {
		return false
	}
	info, err := os.Stat(c.Path(category, id))
	return err == nil && info.Mode().IsRegular()
}

// Open opens the record for reading. A missing record yields an error
// matching fs.ErrNotExist.
func (c *Cache) Open(category disc.Category, id uint32) (*os.File, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("open %08x: invalid category: %w", id, fs.ErrNotExist)
	}
	return os.Open(c.Path(category, id))
}

// Mkdir creates the category directory for a record.
func (c *Cache) Mkdir(category disc.Category) error {
	if !category.Valid() {
		return fmt.Errorf("mkdir: invalid category %d", int(category))
	}
	if err := os.MkdirAll(filepath.Join(c.dir, category.String()), dirMode); err != nil {
		return fmt.Errorf("create category directory: %w", err)
	}
	return nil
}

// LookupCategory finds the category a cached record for id lives in. The
// memory table is tried first, then the index, then every category
// directory in protocol order. Hits are remembered.
func (c *Cache) LookupCategory(ctx context.Context, id uint32) (disc.Category, bool) {
	if cat, ok := c.table.get(id); ok && c.Exists(cat, id) {
		c.logger.Debug("cache lookup hit", logging.String(logging.FieldDiscID, fmt.Sprintf("%08x", id)),
			logging.String(logging.FieldCategory, cat.String()), logging.String("source", "memory"))
		return cat, true
	}

	if c.index != nil {
		cat, ok, err := c.index.Lookup(ctx, id)
		switch {
		case err != nil:
			c.logger.Debug("cache index lookup failed", logging.Error(err))
		case ok && c.Exists(cat, id):
			c.table.set(id, cat)
			return cat, true
		case ok:
			_ = c.index.Forget(ctx, id, cat)
		}
	}

	for _, cat := range disc.Categories() {
		if c.Exists(cat, id) {
			c.Remember(ctx, id, cat)
			return cat, true
		}
	}
	return disc.CategoryInvalid, false
}

// Remember records that id resolved to category.
func (c *Cache) Remember(ctx context.Context, id uint32, category disc.Category) {
	if !category.Valid() {
		return
	}
	c.table.set(id, category)
	if c.index == nil {
		return
	}
	if err := c.index.Record(ctx, id, category); err != nil {
		c.logger.Debug("cache index record failed", logging.Error(err))
	}
}

// Writer receives a record and publishes it atomically on Commit. The cache
// directory lock is held from Create until Commit or Abort.
type Writer struct {
	c        *Cache
	category disc.Category
	id       uint32
	file     *fileutil.AtomicFile
	err      error
	done     bool
}

// Create starts writing the record for (category, id). It waits for the
// directory lock until ctx ends or the lock timeout passes.
func (c *Cache) Create(ctx context.Context, category disc.Category, id uint32) (*Writer, error) {
	if err := c.Mkdir(category); err != nil {
		return nil, err
	}
	lockCtx, cancel := context.WithTimeout(ctx, c.wait)
	defer cancel()
	locked, err := c.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("lock cache directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: %w", c.lock.Path(), ErrLocked)
	}
	file, err := fileutil.CreateAtomic(c.Path(category, id), fileMode)
	if err != nil {
		_ = c.lock.Unlock()
		return nil, err
	}
	return &Writer{c: c, category: category, id: id, file: file}, nil
}

// Write appends p. The first failure sticks and is returned by Commit.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.file.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

// Path returns the destination path.
func (w *Writer) Path() string {
	return w.file.Path()
}

// Commit publishes the record.
func (w *Writer) Commit(ctx context.Context) error {
	if w.done {
		return os.ErrClosed
	}
	if w.err != nil {
		err := w.err
		_ = w.Abort()
		return fmt.Errorf("write cache record: %w", err)
	}
	w.done = true
	defer func() { _ = w.c.lock.Unlock() }()
	if err := w.file.Commit(); err != nil {
		return err
	}
	w.c.Remember(ctx, w.id, w.category)
	w.c.logger.Debug("cached record",
		logging.String(logging.FieldDiscID, fmt.Sprintf("%08x", w.id)),
		logging.String(logging.FieldCategory, w.category.String()))
	return nil
}

// Abort discards the record. It is a no-op after Commit.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	err := w.file.Abort()
	_ = w.c.lock.Unlock()
	return err
}

// Store writes a complete record.
func (c *Cache) Store(ctx context.Context, category disc.Category, id uint32, data []byte) error {
	w, err := c.Create(ctx, category, id)
	if err != nil {
		return err
	}
	defer w.Abort() //nolint:errcheck
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write cache record: %w", err)
	}
	return w.Commit(ctx)
}

// List returns every record, ordered by category then disc ID. A missing
// cache directory is an empty cache.
func (c *Cache) List() ([]Entry, error) {
	var entries []Entry
	for _, cat := range disc.Categories() {
		dir := filepath.Join(c.dir, cat.String())
		items, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, item := range items {
			id, ok := parseRecordName(item.Name())
			if !ok || !item.Type().IsRegular() {
				continue
			}
			info, err := item.Info()
			if err != nil {
				continue
			}
			entries = append(entries, Entry{
				Category: cat,
				DiscID:   id,
				Path:     filepath.Join(dir, item.Name()),
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].DiscID < entries[j].DiscID
	})
	return entries, nil
}

func parseRecordName(name string) (uint32, bool) {
	if len(name) != 8 {
		return 0, false
	}
	id, err := strconv.ParseUint(name, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// Remove deletes one record.
func (c *Cache) Remove(ctx context.Context, category disc.Category, id uint32) error {
	if !category.Valid() {
		return fmt.Errorf("remove %08x: invalid category", id)
	}
	if err := os.Remove(c.Path(category, id)); err != nil {
		return fmt.Errorf("remove %s/%08x: %w", category, id, err)
	}
	if cat, ok := c.table.get(id); ok && cat == category {
		c.table.forget(id)
	}
	if c.index != nil {
		if err := c.index.Forget(ctx, id, category); err != nil {
			c.logger.Debug("cache index forget failed", logging.Error(err))
		}
	}
	return nil
}

// Clear deletes every record and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	entries, err := c.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, entry := range entries {
		if err := os.Remove(entry.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	c.table.reset()
	if c.index != nil {
		if err := c.index.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// Stats walks the cache and summarizes it.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	entries, err := c.List()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{PerCategory: make(map[disc.Category]int)}
	for _, entry := range entries {
		stats.Entries++
		stats.Bytes += entry.Size
		stats.PerCategory[entry.Category]++
		if entry.ModTime.After(stats.Newest) {
			stats.Newest = entry.ModTime
		}
	}
	if c.index != nil {
		n, err := c.index.Count(ctx)
		if err != nil {
			return stats, err
		}
		stats.Indexed = n
	}
	return stats, nil
}

// Writable verifies the cache root exists and is accessible for reading,
// writing and traversal.
func (c *Cache) Writable() error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.dir)
	}
	if err := unix.Access(c.dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("%s: insufficient permissions: %w", c.dir, err)
	}
	return nil
}

// Reindex rebuilds the index from the record files.
func (c *Cache) Reindex(ctx context.Context) (int, error) {
	if c.index == nil {
		return 0, ErrNoIndex
	}
	entries, err := c.List()
	if err != nil {
		return 0, err
	}
	if err := c.index.Reset(ctx); err != nil {
		return 0, err
	}
	c.table.reset()
	for _, entry := range entries {
		if err := c.index.Record(ctx, entry.DiscID, entry.Category); err != nil {
			return 0, err
		}
	}
	c.logger.Info("cache index rebuilt", logging.Int("entries", len(entries)))
	return len(entries), nil
}

// Close releases the index.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	err := c.index.Close()
	c.index = nil
	return err
}
