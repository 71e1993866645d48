package cdrom

import (
	"errors"
	"fmt"

	"cddb/internal/disc"
)

// LeadIn is the two-second pregap, in frames, that precedes LBA 0.
const LeadIn = 150

// ErrUnsupported is returned by TOC reads and the monitor outside Linux.
var ErrUnsupported = errors.New("cdrom: not supported on this platform")

// TOCEntry is one track start as logical block address.
type TOCEntry struct {
	Track int
	LBA   int
	Data  bool
}

// DiscFromTOC builds a disc from track starts and the lead-out address.
// Frame offsets include the lead-in; the length is taken from the lead-out.
func DiscFromTOC(entries []TOCEntry, leadout int) (*disc.Disc, error) {
	if len(entries) == 0 {
		return nil, disc.ErrNoTracks
	}
	d := disc.New()
	prev := -1
	for _, e := range entries {
		if e.LBA < 0 || e.LBA <= prev {
			return nil, fmt.Errorf("track %d: invalid start address %d", e.Track, e.LBA)
		}
		prev = e.LBA
		t := disc.NewTrack()
		t.FrameOffset = e.LBA + LeadIn
		if err := d.AddTrack(t); err != nil {
			return nil, err
		}
	}
	if leadout <= prev {
		return nil, fmt.Errorf("lead-out %d precedes last track", leadout)
	}
	d.Length = (leadout + LeadIn) / disc.FramesPerSecond
	if _, err := d.CalcDiscID(); err != nil {
		return nil, err
	}
	return d, nil
}
