package cdrom_test

import (
	"errors"
	"testing"

	"cddb/internal/cdrom"
	"cddb/internal/disc"
	"cddb/internal/testsupport"
)

func fixtureTOC() ([]cdrom.TOCEntry, int) {
	entries := make([]cdrom.TOCEntry, 0, len(testsupport.FixtureOffsets))
	for i, off := range testsupport.FixtureOffsets {
		entries = append(entries, cdrom.TOCEntry{Track: i + 1, LBA: off - cdrom.LeadIn})
	}
	return entries, testsupport.FixtureLength*disc.FramesPerSecond - cdrom.LeadIn
}

func TestDiscFromTOC(t *testing.T) {
	entries, leadout := fixtureTOC()
	d, err := cdrom.DiscFromTOC(entries, leadout)
	if err != nil {
		t.Fatalf("DiscFromTOC: %v", err)
	}
	if d.ID != testsupport.FixtureDiscID {
		t.Fatalf("disc id = %08x, want %08x", d.ID, testsupport.FixtureDiscID)
	}
	if d.Length != testsupport.FixtureLength {
		t.Fatalf("length = %d, want %d", d.Length, testsupport.FixtureLength)
	}
	if d.TrackCount() != len(testsupport.FixtureOffsets) {
		t.Fatalf("tracks = %d, want %d", d.TrackCount(), len(testsupport.FixtureOffsets))
	}
	if got := d.Track(0).FrameOffset; got != testsupport.FixtureOffsets[0] {
		t.Fatalf("first offset = %d, want %d", got, testsupport.FixtureOffsets[0])
	}
}

func TestDiscFromTOCRejectsBadInput(t *testing.T) {
	t.Run("no tracks", func(t *testing.T) {
		if _, err := cdrom.DiscFromTOC(nil, 1000); !errors.Is(err, disc.ErrNoTracks) {
			t.Fatalf("expected ErrNoTracks, got %v", err)
		}
	})

	t.Run("offsets out of order", func(t *testing.T) {
		entries := []cdrom.TOCEntry{{Track: 1, LBA: 500}, {Track: 2, LBA: 100}}
		if _, err := cdrom.DiscFromTOC(entries, 9000); err == nil {
			t.Fatal("expected error for decreasing offsets")
		}
	})

	t.Run("lead-out before last track", func(t *testing.T) {
		entries := []cdrom.TOCEntry{{Track: 1, LBA: 0}, {Track: 2, LBA: 9000}}
		if _, err := cdrom.DiscFromTOC(entries, 8000); err == nil {
			t.Fatal("expected error for early lead-out")
		}
	})
}
