package disc

import (
	"errors"
	"fmt"
)

// FramesPerSecond is the number of CD frames in one second of audio.
const FramesPerSecond = 75

var (
	// ErrNoTracks is returned when an operation needs at least one track.
	ErrNoTracks = errors.New("disc has no tracks")
	// ErrUnknownOffset is returned when a track frame offset is still -1.
	ErrUnknownOffset = errors.New("track frame offset unknown")
	// ErrTrackAttached is returned when a track already belongs to a disc.
	ErrTrackAttached = errors.New("track already attached to a disc")
	// ErrInvalidLength is returned when the disc length does not end after
	// the first track starts.
	ErrInvalidLength = errors.New("disc length does not exceed first track offset")
)

// Disc is a single compact disc record.
type Disc struct {
	ID       uint32
	Category Category
	// Genre is the free-text genre (DGENRE) or the category name reported by
	// a server.
	Genre    string
	Title    string
	Artist   string
	Length   int // seconds
	Year     int
	Revision int
	ExtData  string

	tracks []*Track
	cursor int
}

// New returns an empty disc with an invalid category.
func New() *Disc {
	return &Disc{Category: CategoryInvalid}
}

// AddTrack appends t to the disc and numbers it after the existing tracks.
func (d *Disc) AddTrack(t *Track) error {
	if t == nil {
		return errors.New("nil track")
	}
	if t.disc != nil {
		return ErrTrackAttached
	}
	d.tracks = append(d.tracks, t)
	t.num = len(d.tracks)
	t.disc = d
	return nil
}

// Track returns the track at the zero-based index i, or nil when there is no
// such track.
func (d *Disc) Track(i int) *Track {
	if i < 0 || i >= len(d.tracks) {
		return nil
	}
	return d.tracks[i]
}

// TrackCount returns the number of attached tracks.
func (d *Disc) TrackCount() int {
	return len(d.tracks)
}

// Tracks returns the attached tracks in order. The slice is a copy; the
// tracks are not.
func (d *Disc) Tracks() []*Track {
	out := make([]*Track, len(d.tracks))
	copy(out, d.tracks)
	return out
}

// FirstTrack resets the iteration cursor and returns the first track.
func (d *Disc) FirstTrack() *Track {
	d.cursor = 0
	return d.Track(0)
}

// NextTrack advances the iteration cursor. It returns nil once the tracks are
// exhausted.
func (d *Disc) NextTrack() *Track {
	if d.cursor < len(d.tracks) {
		d.cursor++
	}
	return d.Track(d.cursor)
}

// AppendTitle appends s to the disc title.
func (d *Disc) AppendTitle(s string) {
	d.Title += s
}

// AppendArtist appends s to the disc artist.
func (d *Disc) AppendArtist(s string) {
	d.Artist += s
}

// AppendExtData appends s to the extended disc data.
func (d *Disc) AppendExtData(s string) {
	d.ExtData += s
}

// SetCategory records a category name reported by a server. The name is kept
// as the genre; names that are not one of the fixed categories map to misc.
func (d *Disc) SetCategory(name string) {
	d.Genre = name
	d.Category = ParseCategory(name)
	if d.Category == CategoryInvalid {
		d.Category = CategoryMisc
	}
}

// DiscIDString formats the disc ID as eight lowercase hex digits.
func (d *Disc) DiscIDString() string {
	return fmt.Sprintf("%08x", d.ID)
}

// Clone returns a deep copy of the disc. The copied tracks refer to the clone.
func (d *Disc) Clone() *Disc {
	clone := &Disc{
		ID:       d.ID,
		Category: d.Category,
		Genre:    d.Genre,
		Title:    d.Title,
		Artist:   d.Artist,
		Length:   d.Length,
		Year:     d.Year,
		Revision: d.Revision,
		ExtData:  d.ExtData,
	}
	clone.tracks = make([]*Track, 0, len(d.tracks))
	for _, t := range d.tracks {
		_ = clone.AddTrack(t.Clone())
	}
	return clone
}

// CopyFrom overwrites the fields of d with the non-empty fields of src.
// Tracks are copied pairwise; missing tracks are created on d.
func (d *Disc) CopyFrom(src *Disc) {
	if src == nil || src == d {
		return
	}
	if src.ID != 0 {
		d.ID = src.ID
	}
	if src.Category != CategoryInvalid {
		d.Category = src.Category
	}
	if src.Year != 0 {
		d.Year = src.Year
	}
	if src.Revision != 0 {
		d.Revision = src.Revision
	}
	if src.Genre != "" {
		d.Genre = src.Genre
	}
	if src.Title != "" {
		d.Title = src.Title
	}
	if src.Artist != "" {
		d.Artist = src.Artist
	}
	if src.Length != 0 {
		d.Length = src.Length
	}
	if src.ExtData != "" {
		d.ExtData = src.ExtData
	}
	for i, st := range src.tracks {
		dt := d.Track(i)
		if dt == nil {
			dt = NewTrack()
			_ = d.AddTrack(dt)
		}
		dt.copyFrom(st)
	}
}

// Replace moves the contents of src into d, tracks included, and leaves src
// empty. Tracks previously on d are detached.
func (d *Disc) Replace(src *Disc) {
	if src == nil || src == d {
		return
	}
	for _, t := range d.tracks {
		t.disc = nil
		t.num = 0
	}
	*d = *src
	d.cursor = 0
	for _, t := range d.tracks {
		t.disc = d
	}
	*src = Disc{Category: CategoryInvalid}
}

// CalcDiscID computes the disc ID from the track offsets, the disc length and
// the track count, stores it in d.ID and returns it.
//
// The high byte is the sum of the decimal digits of every track start in
// seconds, modulo 255. The middle two bytes hold the playing time from the
// first track to the end of the disc and the low byte the track count.
// The disc length must end after the first track starts; playing times
// beyond 0xffff seconds are truncated to 16 bits.
func (d *Disc) CalcDiscID() (uint32, error) {
	if len(d.tracks) == 0 {
		return 0, ErrNoTracks
	}
	sum := 0
	for _, t := range d.tracks {
		if t.FrameOffset < 0 {
			return 0, fmt.Errorf("track %d: %w", t.num, ErrUnknownOffset)
		}
		sum += digitSum(t.FrameOffset / FramesPerSecond)
	}
	if d.Length*FramesPerSecond <= d.tracks[0].FrameOffset {
		return 0, fmt.Errorf("length %ds: %w", d.Length, ErrInvalidLength)
	}
	first := d.tracks[0].FrameOffset / FramesPerSecond
	playing := uint32(d.Length-first) & 0xffff
	d.ID = uint32(sum%0xff)<<24 | playing<<8 | uint32(len(d.tracks))&0xff
	return d.ID, nil
}

func digitSum(n int) int {
	sum := 0
	for {
		sum += n % 10
		n /= 10
		if n == 0 {
			return sum
		}
	}
}
