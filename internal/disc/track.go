package disc

// Track is one audio track. A track created with NewTrack is detached until
// it is handed to Disc.AddTrack.
type Track struct {
	// FrameOffset is the track start in CD frames; -1 means unknown.
	FrameOffset int
	// Length is the track length in seconds; -1 means derive it from the
	// surrounding offsets.
	Length  int
	Title   string
	Artist  string
	ExtData string

	num  int
	disc *Disc
}

// NewTrack returns a detached track with unknown offset and length.
func NewTrack() *Track {
	return &Track{FrameOffset: -1, Length: -1}
}

// Number returns the 1-based track number, or 0 for a detached track.
func (t *Track) Number() int {
	return t.num
}

// Disc returns the disc the track is attached to.
func (t *Track) Disc() *Disc {
	return t.disc
}

// ArtistName returns the track artist, falling back to the disc artist.
func (t *Track) ArtistName() string {
	if t.Artist != "" || t.disc == nil {
		return t.Artist
	}
	return t.disc.Artist
}

// LengthSeconds returns the explicit track length when set. Otherwise the
// length is derived from the next track's offset or, for the last track,
// from the disc length. It returns -1 when nothing is known.
func (t *Track) LengthSeconds() int {
	if t.Length >= 0 {
		return t.Length
	}
	if t.disc == nil || t.FrameOffset < 0 {
		return -1
	}
	if next := t.disc.Track(t.num); next != nil {
		if next.FrameOffset < 0 {
			return -1
		}
		return (next.FrameOffset - t.FrameOffset) / FramesPerSecond
	}
	if t.disc.Length <= 0 {
		return -1
	}
	return t.disc.Length - t.FrameOffset/FramesPerSecond
}

// AppendTitle appends s to the track title.
func (t *Track) AppendTitle(s string) {
	t.Title += s
}

// AppendArtist appends s to the track artist.
func (t *Track) AppendArtist(s string) {
	t.Artist += s
}

// AppendExtData appends s to the extended track data.
func (t *Track) AppendExtData(s string) {
	t.ExtData += s
}

// Clone returns a detached copy of the track.
func (t *Track) Clone() *Track {
	return &Track{
		FrameOffset: t.FrameOffset,
		Length:      t.Length,
		Title:       t.Title,
		Artist:      t.Artist,
		ExtData:     t.ExtData,
	}
}

func (t *Track) copyFrom(src *Track) {
	if src.FrameOffset != -1 {
		t.FrameOffset = src.FrameOffset
	}
	if src.Length != -1 {
		t.Length = src.Length
	}
	if src.Title != "" {
		t.Title = src.Title
	}
	if src.Artist != "" {
		t.Artist = src.Artist
	}
	if src.ExtData != "" {
		t.ExtData = src.ExtData
	}
}
