package cddb

import (
	"context"
	"errors"
	"fmt"

	"cddb/internal/cddbcache"
	"cddb/internal/disc"
	"cddb/internal/logging"
	"cddb/internal/xmcd"
)

// Write submits d to the server. The record is stored in the cache first
// when the cache is enabled; a cache-only session stops there.
func (s *Session) Write(ctx context.Context, d *disc.Disc) error {
	const op = "write"
	if err := checkSubmittable(d); err != nil {
		return s.fail(op, CodeDataMissing, err)
	}

	record := xmcd.Format(d, xmcd.Submitter{Name: s.opts.ClientName, Version: s.opts.ClientVersion})
	logger := s.discLogger(d)

	if s.cache != nil {
		if err := s.cache.Store(ctx, d.Category, d.ID, record); err != nil {
			logging.WarnWithContext(logger, "caching submitted record failed", "cache_store_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache directory permissions"),
				logging.String(logging.FieldImpact, "submitted record is not cached locally"))
		}
	}
	if s.opts.CacheMode == cddbcache.ModeOnly {
		logger.Debug("record stored locally only")
		s.errno = CodeOK
		return nil
	}

	payload := []byte(s.codec.Encode(string(record)))

	if err := s.connect(ctx); err != nil {
		return err
	}
	defer s.finish()

	if err := s.wire.beginSubmit(d.Category.String(), d.ID, len(payload)); err != nil {
		return s.failDisconnect(op, classify(err, CodeNotConnected), err)
	}
	if s.wire.acknowledgesSubmit() {
		code, msg, err := s.readResponse(op)
		if err != nil {
			return err
		}
		switch code {
		case 320:
		case 401, 402, 501:
			return s.fail(op, CodePermissionDenied, errors.New(msg))
		case 409, 530:
			return s.failDisconnect(op, CodeNotConnected, errors.New(msg))
		default:
			return s.fail(op, CodeUnknown, fmt.Errorf("unexpected response %d %s", code, msg))
		}
	}

	logger.Debug("sending record", logging.Int("bytes", len(payload)))
	if err := s.wire.sendPayload(payload); err != nil {
		return s.failDisconnect(op, classify(err, CodeNotConnected), err)
	}

	code, msg, err := s.readResponse(op)
	if err != nil {
		return err
	}
	switch code {
	case 200:
		logger.Info("record accepted")
		s.errno = CodeOK
		return nil
	case 401, 500, 501:
		return s.fail(op, CodeRejected, errors.New(msg))
	case 530:
		return s.failDisconnect(op, CodeNotConnected, errors.New(msg))
	default:
		return s.fail(op, CodeUnknown, fmt.Errorf("unexpected response %d %s", code, msg))
	}
}

func checkSubmittable(d *disc.Disc) error {
	switch {
	case d == nil:
		return errors.New("no disc")
	case d.ID == 0:
		return errors.New("disc id is required")
	case !d.Category.Valid():
		return errors.New("category is required")
	case d.Length == 0:
		return errors.New("disc length is required")
	case d.TrackCount() == 0:
		return errors.New("tracks are required")
	case d.Artist == "" || d.Title == "":
		return errors.New("disc artist and title are required")
	}
	for _, t := range d.Tracks() {
		if t.FrameOffset == -1 {
			return fmt.Errorf("track %d has no frame offset", t.Number())
		}
		if t.Title == "" {
			return fmt.Errorf("track %d has no title", t.Number())
		}
	}
	return nil
}
