package testsupport

import (
	"strconv"
	"testing"

	"cddb/internal/disc"
)

// FixtureOffsets are the frame offsets of the 16-track reference disc.
var FixtureOffsets = []int{
	150, 23627, 44723, 60527, 91311, 126360, 144562, 160236,
	174360, 194624, 217273, 233402, 259181, 276582, 291679, 314363,
}

const (
	// FixtureLength is the reference disc length in seconds.
	FixtureLength = 4454
	// FixtureDiscID is the disc ID computed from the reference disc.
	FixtureDiscID uint32 = 0xfe116410
)

// FixtureDisc builds the reference disc with offsets and length only. The
// disc ID is computed.
func FixtureDisc(t testing.TB) *disc.Disc {
	t.Helper()

	d := disc.New()
	d.Length = FixtureLength
	for _, off := range FixtureOffsets {
		tr := disc.NewTrack()
		tr.FrameOffset = off
		if err := d.AddTrack(tr); err != nil {
			t.Fatalf("AddTrack: %v", err)
		}
	}
	if _, err := d.CalcDiscID(); err != nil {
		t.Fatalf("CalcDiscID: %v", err)
	}
	return d
}

// FixtureRecord is the xmcd body the fake server returns for the reference
// disc, without the terminating ".".
func FixtureRecord() []string {
	lines := []string{
		"# xmcd",
		"#",
		"# Track frame offsets:",
	}
	for _, off := range FixtureOffsets {
		lines = append(lines, "#\t"+strconv.Itoa(off))
	}
	lines = append(lines,
		"#",
		"# Disc length: 4454 seconds",
		"#",
		"# Revision: 3",
		"# Submitted via: fake 1.0",
		"#",
		"DISCID=fe116410",
		"DTITLE=Fixture Artist / Fixture Album",
		"DYEAR=1997",
		"DGENRE=Rock",
	)
	for i := range FixtureOffsets {
		lines = append(lines, "TTITLE"+strconv.Itoa(i)+"=Song "+strconv.Itoa(i+1))
	}
	lines = append(lines, "EXTD=")
	for i := range FixtureOffsets {
		lines = append(lines, "EXTT"+strconv.Itoa(i)+"=")
	}
	return append(lines, "PLAYORDER=")
}
