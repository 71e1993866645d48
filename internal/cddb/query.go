package cddb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cddb/internal/cddbcache"
	"cddb/internal/disc"
	"cddb/internal/logging"
	"cddb/internal/xmcd"
)

// Query looks up the discs matching d's disc ID, track offsets and length
// and returns the number of matches. On a match d is updated with the
// first one; further matches are fetched with NextMatch. No match returns
// 0 and leaves d untouched.
//
// With the cache enabled a cached record for the disc ID is a single
// exact match and its full record is read into d.
func (s *Session) Query(ctx context.Context, d *disc.Disc) (int, error) {
	const op = "query"
	s.clearMatches()

	if d == nil || d.ID == 0 || d.Length == 0 || d.TrackCount() == 0 {
		return 0, s.fail(op, CodeDataMissing, errors.New("disc id, length and tracks are required"))
	}
	offsets := make([]string, 0, d.TrackCount())
	for _, t := range d.Tracks() {
		if t.FrameOffset == -1 {
			return 0, s.fail(op, CodeDataMissing, fmt.Errorf("track %d has no frame offset", t.Number()))
		}
		offsets = append(offsets, strconv.Itoa(t.FrameOffset))
	}

	if s.cache != nil {
		if n, ok := s.queryCached(ctx, d); ok {
			return n, nil
		}
	}
	if s.opts.CacheMode == cddbcache.ModeOnly {
		return 0, s.fail(op, CodeDiscNotFound, errors.New("not in cache"))
	}

	if err := s.connect(ctx); err != nil {
		return 0, err
	}
	defer s.finish()

	if err := s.sendCommand(op, cmdQuery, d.ID, d.TrackCount(), strings.Join(offsets, " "), d.Length); err != nil {
		return 0, err
	}
	code, msg, err := s.readResponse(op)
	if err != nil {
		return 0, err
	}

	switch code {
	case 200:
		match := d.Clone()
		if err := xmcd.ParseMatch(msg, match); err != nil {
			return 0, s.fail(op, CodeInvalidResponse, err)
		}
		s.matches = []*disc.Disc{match}
	case 211:
		lines, err := s.readList(op)
		if err != nil {
			return 0, err
		}
		for _, line := range lines {
			match := d.Clone()
			if err := xmcd.ParseMatch(line, match); err != nil {
				s.clearMatches()
				return 0, s.fail(op, CodeInvalidResponse, err)
			}
			s.matches = append(s.matches, match)
		}
		if len(s.matches) == 0 {
			return 0, s.fail(op, CodeInvalidResponse, errors.New("empty match list"))
		}
	case 202:
		s.logger.Debug("no match", logging.String(logging.FieldDiscID, d.DiscIDString()))
		s.errno = CodeOK
		return 0, nil
	case 403:
		return 0, s.fail(op, CodeServerError, errors.New(msg))
	case 409, 530:
		return 0, s.failDisconnect(op, CodeNotConnected, errors.New(msg))
	default:
		return 0, s.fail(op, CodeUnknown, fmt.Errorf("unexpected response %d %s", code, msg))
	}

	d.CopyFrom(s.matches[0])
	s.matchIdx = 1
	s.logger.Debug("query matched",
		logging.String(logging.FieldDiscID, d.DiscIDString()),
		logging.Int("matches", len(s.matches)))
	s.errno = CodeOK
	return len(s.matches), nil
}

// queryCached resolves the category of d's disc ID from the cache and
// reads the cached record into d.
func (s *Session) queryCached(ctx context.Context, d *disc.Disc) (int, bool) {
	category, ok := s.cache.LookupCategory(ctx, d.ID)
	if !ok {
		return 0, false
	}
	match := d.Clone()
	match.Category = category
	if ok, err := s.readCached(match); !ok {
		if err != nil {
			logging.WarnWithContext(s.discLogger(match), "cached record unusable", "cache_read_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the entry with `cddb cache remove`"),
				logging.String(logging.FieldImpact, "query sent to the server instead"))
		}
		return 0, false
	}
	s.matches = []*disc.Disc{match}
	s.matchIdx = 1
	d.CopyFrom(match)
	s.logger.Debug("query answered from cache", logging.String(logging.FieldDiscID, d.DiscIDString()))
	s.errno = CodeOK
	return 1, true
}

// NextMatch copies the next query match into d. It fails with
// ErrDiscNotFound once the matches are exhausted.
func (s *Session) NextMatch(d *disc.Disc) error {
	if s.matchIdx >= len(s.matches) {
		return s.fail("query", CodeDiscNotFound, errors.New("no more matches"))
	}
	d.CopyFrom(s.matches[s.matchIdx])
	s.matchIdx++
	s.errno = CodeOK
	return nil
}

// Matches returns copies of all matches of the last query.
func (s *Session) Matches() []*disc.Disc {
	out := make([]*disc.Disc, len(s.matches))
	for i, m := range s.matches {
		out[i] = m.Clone()
	}
	return out
}

func (s *Session) clearMatches() {
	s.matches = nil
	s.matchIdx = 0
}
