package xmcd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"cddb/internal/disc"
	"cddb/internal/logging"
)

var (
	// ErrTrackNotFound is returned when a TTITLE line names a track the disc
	// does not have.
	ErrTrackNotFound = errors.New("track not found")
	// ErrIncompleteRecord is returned when the stream ends before the track
	// titles have been read.
	ErrIncompleteRecord = errors.New("incomplete record")
)

// LineReader yields lines without their terminators and io.EOF at the end.
type LineReader interface {
	ReadLine() (string, error)
}

// Terminator is the line that ends a multi-line server response.
const Terminator = "."

var (
	reTrackOffsets = regexp.MustCompile(`^#[[:blank:]]*Track frame offsets:[[:blank:]]*$`)
	reTrackOffset  = regexp.MustCompile(`^#[[:blank:]]*([0-9]+)[[:blank:]]*$`)
	reDiscLength   = regexp.MustCompile(`^#[[:blank:]]*Disc length:[[:blank:]]*([0-9]+)[[:blank:]]*(seconds|secs)?[[:blank:]]*$`)
	reRevision     = regexp.MustCompile(`^#[[:blank:]]*Revision:[[:blank:]]*([0-9]+)[[:blank:]]*$`)
	reDiscTitle    = regexp.MustCompile(`^DTITLE=(.*)$`)
	reDiscYear     = regexp.MustCompile(`^DYEAR=([0-9]*)[[:blank:]]*$`)
	reDiscGenre    = regexp.MustCompile(`^DGENRE=(.*)$`)
	reTrackTitle   = regexp.MustCompile(`^TTITLE([0-9]+)=(.*)$`)
	reDiscExt      = regexp.MustCompile(`^EXTD=(.*)$`)
	reTrackExt     = regexp.MustCompile(`^EXTT([0-9]+)=(.*)$`)
)

type state int

const (
	stateStart state = iota
	stateTrackOffsets
	stateDiscLength
	stateDiscTitle
	stateDiscYear
	stateDiscGenre
	stateTrackTitle
	stateStop
)

var stateNames = [...]string{
	stateStart:        "start",
	stateTrackOffsets: "track_offsets",
	stateDiscLength:   "disc_length",
	stateDiscTitle:    "disc_title",
	stateDiscYear:     "disc_year",
	stateDiscGenre:    "disc_genre",
	stateTrackTitle:   "track_title",
	stateStop:         "stop",
}

func (s state) String() string {
	return stateNames[s]
}

// Option configures Parse.
type Option func(*parser)

// WithMirror copies every consumed line, newline terminated, into w as it is
// read. The terminating "." is not copied. Mirroring stops silently after
// the first write error; the writer is expected to remember it.
func WithMirror(w io.Writer) Option {
	return func(p *parser) { p.mirror = w }
}

// WithDecoder converts each raw line before it is mirrored and parsed.
func WithDecoder(decode func(string) string) Option {
	return func(p *parser) { p.decode = decode }
}

// WithLogger sets the logger used for state transitions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(p *parser) { p.logger = logger }
}

type parser struct {
	d      *disc.Disc
	mirror io.Writer
	decode func(string) string
	logger *slog.Logger

	state       state
	offsetIndex int
	titleSplit  splitPhase
	trackSplits map[int]splitPhase
}

// Parse reads an xmcd record from r into d. Reading stops at a "." line or
// at end of stream. Fields found in the record overwrite or extend those
// already on d; tracks listed in the offset table are created when d does
// not have them yet.
func Parse(r LineReader, d *disc.Disc, opts ...Option) error {
	p := &parser{d: d, trackSplits: make(map[int]splitPhase)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}

	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if line == Terminator {
			break
		}
		if p.decode != nil {
			line = p.decode(line)
		}
		p.writeMirror(line)

		for {
			retry, err := p.step(line)
			if err != nil {
				return err
			}
			if !retry {
				break
			}
		}
	}

	if p.state != stateStop {
		return fmt.Errorf("record ended in state %s: %w", p.state, ErrIncompleteRecord)
	}
	return nil
}

func (p *parser) writeMirror(line string) {
	if p.mirror == nil {
		return
	}
	if _, err := io.WriteString(p.mirror, line+"\n"); err != nil {
		p.logger.Debug("record mirror disabled", logging.Error(err))
		p.mirror = nil
	}
}

func (p *parser) transition(next state) {
	p.logger.Debug("record parser transition",
		logging.String("from", p.state.String()),
		logging.String("to", next.String()))
	p.state = next
}

// step consumes line in the current state. It reports retry when the line
// did not belong to the current state and must be tested against the state
// just entered.
func (p *parser) step(line string) (bool, error) {
	switch p.state {
	case stateStart:
		if reTrackOffsets.MatchString(line) {
			p.transition(stateTrackOffsets)
		}
		return false, nil

	case stateTrackOffsets:
		m := reTrackOffset.FindStringSubmatch(line)
		if m == nil {
			p.transition(stateDiscLength)
			return true, nil
		}
		track := p.d.Track(p.offsetIndex)
		if track == nil {
			track = disc.NewTrack()
			if err := p.d.AddTrack(track); err != nil {
				return false, err
			}
		}
		track.FrameOffset = atoi(m[1])
		p.offsetIndex++
		return false, nil

	case stateDiscLength:
		if m := reDiscLength.FindStringSubmatch(line); m != nil {
			p.d.Length = atoi(m[1])
			p.transition(stateDiscTitle)
		}
		return false, nil

	case stateDiscTitle:
		if m := reDiscTitle.FindStringSubmatch(line); m != nil {
			p.titleSplit = splitInto(p.titleSplit, m[1], &p.d.Artist, &p.d.Title)
			return false, nil
		}
		if p.titleSplit == phaseNone {
			if m := reRevision.FindStringSubmatch(line); m != nil {
				p.d.Revision = atoi(m[1])
			}
			return false, nil
		}
		p.transition(stateDiscYear)
		return true, nil

	case stateDiscYear:
		if m := reDiscYear.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				p.d.Year = atoi(m[1])
			}
			p.transition(stateDiscGenre)
			return false, nil
		}
		p.transition(stateDiscGenre)
		return true, nil

	case stateDiscGenre:
		if m := reDiscGenre.FindStringSubmatch(line); m != nil {
			if genre := strings.TrimSpace(Unescape(m[1])); genre != "" {
				p.d.Genre = genre
			}
			p.transition(stateTrackTitle)
			return false, nil
		}
		p.transition(stateTrackTitle)
		return true, nil

	case stateTrackTitle:
		m := reTrackTitle.FindStringSubmatch(line)
		if m == nil {
			p.transition(stateStop)
			return true, nil
		}
		index := atoi(m[1])
		track := p.d.Track(index)
		if track == nil {
			return false, fmt.Errorf("TTITLE%d with %d tracks: %w", index, p.d.TrackCount(), ErrTrackNotFound)
		}
		p.trackSplits[index] = splitInto(p.trackSplits[index], m[2], &track.Artist, &track.Title)
		return false, nil

	case stateStop:
		if m := reDiscExt.FindStringSubmatch(line); m != nil {
			p.d.AppendExtData(Unescape(m[1]))
			return false, nil
		}
		if m := reTrackExt.FindStringSubmatch(line); m != nil {
			if track := p.d.Track(atoi(m[1])); track != nil {
				track.AppendExtData(Unescape(m[2]))
			}
		}
		return false, nil
	}
	return false, nil
}

type splitPhase int

const (
	phaseNone splitPhase = iota
	// phaseUnsplit: text so far had no separator and was stored as title.
	phaseUnsplit
	// phaseTitle: the separator has been seen; the rest is title.
	phaseTitle
)

// splitInto applies one "artist / title" value line to the artist and title
// fields. A value may be spread over several lines. Text seen before the
// separator is provisionally stored as title; when a later line carries the
// separator that text is moved to the artist. Within a line the split is
// made at the last separator, so the artist takes any earlier ones. A value without any separator
// is therefore a title only, even when it was meant as a long artist name.
func splitInto(phase splitPhase, raw string, artist, title *string) splitPhase {
	if phase == phaseNone {
		*artist = ""
		*title = ""
	}
	if phase == phaseTitle {
		*title += Unescape(raw)
		return phaseTitle
	}
	i := strings.LastIndex(raw, Separator)
	if i < 0 {
		*title += Unescape(raw)
		return phaseUnsplit
	}
	*artist += *title + Unescape(raw[:i])
	*title = Unescape(raw[i+len(Separator):])
	return phaseTitle
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
