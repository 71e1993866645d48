package cddb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"cddb/internal/cddbcache"
	"cddb/internal/disc"
	"cddb/internal/logging"
	"cddb/internal/transport"
	"cddb/internal/xmcd"
)

// Read fetches the full record for d's category and disc ID into d. The
// cache is consulted first unless it is off; a record fetched from the
// server is mirrored into the cache while it is parsed.
func (s *Session) Read(ctx context.Context, d *disc.Disc) error {
	const op = "read"
	if d == nil || !d.Category.Valid() || d.ID == 0 {
		return s.fail(op, CodeDataMissing, errors.New("category and disc id are required"))
	}
	logger := s.discLogger(d)

	if s.cache != nil {
		ok, err := s.readCached(d)
		if ok {
			logger.Debug("record read from cache")
			s.errno = CodeOK
			return nil
		}
		if err != nil {
			logging.WarnWithContext(logger, "cached record unusable", "cache_read_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the entry with `cddb cache remove`"),
				logging.String(logging.FieldImpact, "record fetched from the server instead"))
		}
	}
	if s.opts.CacheMode == cddbcache.ModeOnly {
		return s.fail(op, CodeDiscNotFound, errors.New("not in cache"))
	}

	if err := s.connect(ctx); err != nil {
		return err
	}
	defer s.finish()

	if err := s.sendCommand(op, cmdRead, d.Category.String(), d.ID); err != nil {
		return err
	}
	code, msg, err := s.readResponse(op)
	if err != nil {
		return err
	}
	switch code {
	case 210:
	case 401:
		return s.fail(op, CodeDiscNotFound, errors.New(msg))
	case 402, 403:
		return s.fail(op, CodeServerError, errors.New(msg))
	case 409, 530:
		return s.failDisconnect(op, CodeNotConnected, errors.New(msg))
	default:
		return s.fail(op, CodeUnknown, fmt.Errorf("unexpected response %d %s", code, msg))
	}

	return s.parseRecord(ctx, op, d)
}

// readCached parses the cached record for d, if there is one. A missing
// record is not an error. d is only changed when the record parses.
func (s *Session) readCached(d *disc.Disc) (bool, error) {
	f, err := s.cache.Open(d.Category, d.ID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	scratch := d.Clone()
	if err := xmcd.Parse(transport.NewReader(f), scratch, xmcd.WithLogger(s.logger)); err != nil {
		return false, fmt.Errorf("%s: %w", f.Name(), err)
	}
	d.Replace(scratch)
	return true, nil
}

// parseRecord parses the server's record body into d, mirroring it into
// the cache when caching is on. The cache entry is only published when
// the whole record parsed.
func (s *Session) parseRecord(ctx context.Context, op string, d *disc.Disc) error {
	opts := []xmcd.Option{
		xmcd.WithDecoder(s.codec.Decode),
		xmcd.WithLogger(s.logger),
	}

	var entry *cddbcache.Writer
	if s.opts.CacheMode == cddbcache.ModeOn {
		w, err := s.cache.Create(ctx, d.Category, d.ID)
		if err != nil {
			logging.WarnWithContext(s.discLogger(d), "cache write-through unavailable", "cache_create_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache directory permissions"),
				logging.String(logging.FieldImpact, "record is not cached"))
		} else {
			entry = w
			defer entry.Abort() //nolint:errcheck
			opts = append(opts, xmcd.WithMirror(entry))
		}
	}

	// the rest of the body is unread after a parse error
	if err := xmcd.Parse(wireReader{s.wire}, d, opts...); err != nil {
		return s.failDisconnect(op, classify(err, CodeUnexpectedEOF), err)
	}

	if entry != nil {
		if err := entry.Commit(ctx); err != nil {
			logging.WarnWithContext(s.discLogger(d), "cache write-through failed", "cache_commit_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions of the cache directory"),
				logging.String(logging.FieldImpact, "record is not cached"))
		}
	}
	s.errno = CodeOK
	return nil
}

func (s *Session) discLogger(d *disc.Disc) *slog.Logger {
	return s.logger.With(
		logging.String(logging.FieldDiscID, d.DiscIDString()),
		logging.String(logging.FieldCategory, d.Category.String()))
}
