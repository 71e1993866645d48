package disc

import (
	"errors"
	"testing"
)

var fixtureOffsets = []int{
	150, 23627, 44723, 60527, 91311, 126360, 144562, 160236,
	174360, 194624, 217273, 233402, 259181, 276582, 291679, 314363,
}

func newFixtureDisc(t *testing.T) *Disc {
	t.Helper()
	d := New()
	d.Length = 4454
	for _, off := range fixtureOffsets {
		tr := NewTrack()
		tr.FrameOffset = off
		if err := d.AddTrack(tr); err != nil {
			t.Fatalf("AddTrack: %v", err)
		}
	}
	return d
}

func TestCalcDiscIDFixture(t *testing.T) {
	d := newFixtureDisc(t)
	id, err := d.CalcDiscID()
	if err != nil {
		t.Fatalf("CalcDiscID returned error: %v", err)
	}
	if id != 0xfe116410 {
		t.Fatalf("unexpected disc id: got %08x want fe116410", id)
	}
	if d.ID != id {
		t.Fatalf("disc id not stored: %08x", d.ID)
	}
	if d.DiscIDString() != "fe116410" {
		t.Fatalf("unexpected disc id string %q", d.DiscIDString())
	}
}

func TestCalcDiscIDEmptyDisc(t *testing.T) {
	d := New()
	if _, err := d.CalcDiscID(); !errors.Is(err, ErrNoTracks) {
		t.Fatalf("expected ErrNoTracks, got %v", err)
	}
	if d.ID != 0 {
		t.Fatalf("expected disc id untouched, got %08x", d.ID)
	}
}

func TestCalcDiscIDUnknownOffset(t *testing.T) {
	d := newFixtureDisc(t)
	d.Track(3).FrameOffset = -1
	if _, err := d.CalcDiscID(); !errors.Is(err, ErrUnknownOffset) {
		t.Fatalf("expected ErrUnknownOffset, got %v", err)
	}
}

func TestCalcDiscIDRejectsLengthBeforeFirstTrack(t *testing.T) {
	for _, length := range []int{0, 2, 150 / FramesPerSecond} {
		d := newFixtureDisc(t)
		d.Length = length
		if _, err := d.CalcDiscID(); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("length %d: expected ErrInvalidLength, got %v", length, err)
		}
		if d.ID != 0 {
			t.Fatalf("length %d: disc id set to %08x", length, d.ID)
		}
	}
}

func TestCalcDiscIDNotRecomputedOnMutation(t *testing.T) {
	d := newFixtureDisc(t)
	if _, err := d.CalcDiscID(); err != nil {
		t.Fatalf("CalcDiscID: %v", err)
	}
	d.Length = 100
	tr := NewTrack()
	tr.FrameOffset = 320000
	_ = d.AddTrack(tr)
	if d.ID != 0xfe116410 {
		t.Fatalf("disc id changed implicitly: %08x", d.ID)
	}
}

func TestAddTrackNumbersInAppendOrder(t *testing.T) {
	d := New()
	tracks := make([]*Track, 5)
	for i := range tracks {
		tracks[i] = NewTrack()
	}
	// Attach out of creation order; numbering follows the AddTrack calls.
	for _, i := range []int{3, 0, 4, 1, 2} {
		if err := d.AddTrack(tracks[i]); err != nil {
			t.Fatalf("AddTrack: %v", err)
		}
	}
	for i := 0; i < d.TrackCount(); i++ {
		if got := d.Track(i).Number(); got != i+1 {
			t.Fatalf("track at index %d numbered %d", i, got)
		}
	}
	if tracks[3].Number() != 1 || tracks[2].Number() != 5 {
		t.Fatalf("unexpected numbering: %d %d", tracks[3].Number(), tracks[2].Number())
	}
}

func TestAddTrackRejectsAttachedTrack(t *testing.T) {
	a, b := New(), New()
	tr := NewTrack()
	if err := a.AddTrack(tr); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if err := b.AddTrack(tr); !errors.Is(err, ErrTrackAttached) {
		t.Fatalf("expected ErrTrackAttached, got %v", err)
	}
	if b.TrackCount() != 0 {
		t.Fatal("track should not be attached twice")
	}
}

func TestTrackIteration(t *testing.T) {
	d := newFixtureDisc(t)
	count := 0
	for tr := d.FirstTrack(); tr != nil; tr = d.NextTrack() {
		count++
		if tr.Number() != count {
			t.Fatalf("iteration out of order: %d at step %d", tr.Number(), count)
		}
	}
	if count != len(fixtureOffsets) {
		t.Fatalf("iterated %d tracks, want %d", count, len(fixtureOffsets))
	}
	if d.NextTrack() != nil {
		t.Fatal("exhausted iterator should keep returning nil")
	}
}

func TestCloneIsDeepAndRelinksTracks(t *testing.T) {
	d := newFixtureDisc(t)
	d.Artist = "Artist"
	d.Title = "Title"
	d.Category = CategoryRock
	d.Track(0).Title = "First"

	clone := d.Clone()
	if clone == d {
		t.Fatal("clone must be a new disc")
	}
	if clone.TrackCount() != d.TrackCount() {
		t.Fatalf("clone has %d tracks, want %d", clone.TrackCount(), d.TrackCount())
	}
	for i := 0; i < clone.TrackCount(); i++ {
		ct := clone.Track(i)
		if ct == d.Track(i) {
			t.Fatalf("track %d shared between disc and clone", i)
		}
		if ct.Disc() != clone {
			t.Fatalf("clone track %d points at the original disc", i)
		}
		if ct.Number() != i+1 {
			t.Fatalf("clone track %d numbered %d", i, ct.Number())
		}
	}
	clone.Track(0).Title = "Changed"
	clone.Title = "Other"
	if d.Track(0).Title != "First" || d.Title != "Title" {
		t.Fatal("mutating the clone changed the original")
	}
}

func TestCopyFromOverwritesOnlySetFields(t *testing.T) {
	dst := New()
	dst.Title = "Keep me"
	dst.Year = 1999
	dst.Length = 300
	first := NewTrack()
	first.FrameOffset = 150
	first.Title = "Old"
	_ = dst.AddTrack(first)

	src := New()
	src.ID = 0x0a0b0c0d
	src.Category = CategoryJazz
	src.Artist = "Someone"
	for _, title := range []string{"", "Second"} {
		tr := NewTrack()
		tr.Title = title
		_ = src.AddTrack(tr)
	}

	dst.CopyFrom(src)

	if dst.ID != 0x0a0b0c0d || dst.Category != CategoryJazz || dst.Artist != "Someone" {
		t.Fatalf("set fields not copied: %+v", dst)
	}
	if dst.Title != "Keep me" || dst.Year != 1999 || dst.Length != 300 {
		t.Fatalf("unset fields overwritten: %+v", dst)
	}
	if dst.TrackCount() != 2 {
		t.Fatalf("expected 2 tracks, got %d", dst.TrackCount())
	}
	if dst.Track(0).Title != "Old" || dst.Track(0).FrameOffset != 150 {
		t.Fatalf("first track clobbered: %+v", dst.Track(0))
	}
	if dst.Track(1).Title != "Second" || dst.Track(1).Disc() != dst {
		t.Fatalf("second track not created on destination: %+v", dst.Track(1))
	}
}

func TestReplaceDropsExtraTracks(t *testing.T) {
	dst := newFixtureDisc(t)
	dst.Title = "Stale"
	dst.Year = 1990
	old := dst.Track(0)

	src := New()
	src.Category = CategoryJazz
	src.Title = "Fresh"
	for _, off := range []int{150, 9000} {
		tr := NewTrack()
		tr.FrameOffset = off
		_ = src.AddTrack(tr)
	}
	moved := src.Track(1)

	dst.Replace(src)

	if dst.TrackCount() != 2 {
		t.Fatalf("expected 2 tracks, got %d", dst.TrackCount())
	}
	if dst.Title != "Fresh" || dst.Year != 0 || dst.Category != CategoryJazz {
		t.Fatalf("fields not replaced: %+v", dst)
	}
	if dst.Track(1) != moved || moved.Disc() != dst || moved.Number() != 2 {
		t.Fatalf("moved track not relinked: %+v", moved)
	}
	if old.Disc() != nil || old.Number() != 0 {
		t.Fatalf("replaced track still attached: %+v", old)
	}
	if src.TrackCount() != 0 || src.Category != CategoryInvalid {
		t.Fatalf("source not emptied: %+v", src)
	}
	if got := dst.FirstTrack(); got != dst.Track(0) {
		t.Fatal("iteration not restarted after replace")
	}
}

func TestTrackArtistFallsBackToDisc(t *testing.T) {
	d := New()
	d.Artist = "Disc Artist"
	a, b := NewTrack(), NewTrack()
	b.Artist = "Guest"
	_ = d.AddTrack(a)
	_ = d.AddTrack(b)

	if got := a.ArtistName(); got != "Disc Artist" {
		t.Fatalf("expected disc artist fallback, got %q", got)
	}
	if got := b.ArtistName(); got != "Guest" {
		t.Fatalf("expected track artist, got %q", got)
	}
	if got := NewTrack().ArtistName(); got != "" {
		t.Fatalf("detached track should have no artist, got %q", got)
	}
}

func TestTrackLengthDerivation(t *testing.T) {
	d := newFixtureDisc(t)
	if got := d.Track(0).LengthSeconds(); got != (23627-150)/75 {
		t.Fatalf("unexpected first track length %d", got)
	}
	last := d.Track(d.TrackCount() - 1)
	if got := last.LengthSeconds(); got != 4454-314363/75 {
		t.Fatalf("unexpected last track length %d", got)
	}
	last.Length = 42
	if got := last.LengthSeconds(); got != 42 {
		t.Fatalf("explicit length ignored: %d", got)
	}
	if got := NewTrack().LengthSeconds(); got != -1 {
		t.Fatalf("detached track length should be unknown, got %d", got)
	}
}

func TestSetCategory(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"rock", CategoryRock},
		{"soundtrack", CategorySoundtrack},
		{"electronica", CategoryMisc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			d.SetCategory(tt.name)
			if d.Category != tt.want {
				t.Fatalf("category %v, want %v", d.Category, tt.want)
			}
			if d.Genre != tt.name {
				t.Fatalf("genre %q, want %q", d.Genre, tt.name)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	if ParseCategory(" Classical ") != CategoryClassical {
		t.Fatal("expected case-insensitive match")
	}
	if ParseCategory("invalid") != CategoryInvalid {
		t.Fatal("invalid must not parse as a real category")
	}
	if len(Categories()) != 11 {
		t.Fatalf("expected 11 categories, got %d", len(Categories()))
	}
	for _, c := range Categories() {
		if !c.Valid() || ParseCategory(c.String()) != c {
			t.Fatalf("category %v does not round-trip", c)
		}
	}
	if Category(42).String() != "invalid" {
		t.Fatal("out-of-range category should print as invalid")
	}
}
