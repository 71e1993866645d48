package xmcd_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cddb/internal/disc"
	"cddb/internal/transport"
	"cddb/internal/xmcd"
)

func sampleDisc(t *testing.T) *disc.Disc {
	t.Helper()
	d := disc.New()
	d.Category = disc.CategoryRock
	d.Genre = "Alternative"
	d.Artist = "Some Band"
	d.Title = "Some Album"
	d.Year = 1998
	d.Length = 4454
	d.Revision = 1
	for i, off := range []int{150, 23627, 44723} {
		tr := disc.NewTrack()
		tr.FrameOffset = off
		tr.Title = []string{"One", "Two", "Three"}[i]
		require.NoError(t, d.AddTrack(tr))
	}
	d.Track(1).Artist = "Guest"
	_, err := d.CalcDiscID()
	require.NoError(t, err)
	return d
}

func reparse(t *testing.T, record []byte) *disc.Disc {
	t.Helper()
	out := disc.New()
	require.NoError(t, xmcd.Parse(transport.NewReader(bytes.NewReader(record)), out))
	return out
}

func TestFormatLayout(t *testing.T) {
	record := string(xmcd.Format(sampleDisc(t), xmcd.Submitter{Name: "cddb-go", Version: "1.0"}))

	for _, want := range []string{
		"# xmcd\n#\n# Track frame offsets:\n#\t150\n#\t23627\n#\t44723\n#\n",
		"# Disc length: 4454 seconds\n",
		"# Revision: 1\n",
		"# Submitted via: cddb-go 1.0\n",
		"DTITLE=Some Band / Some Album\n",
		"DYEAR=1998\n",
		"DGENRE=Alternative\n",
		"TTITLE0=One\n",
		"TTITLE1=Guest / Two\n",
		"EXTD=\n",
		"EXTT2=\n",
	} {
		require.Contains(t, record, want)
	}
	require.True(t, strings.HasSuffix(record, "PLAYORDER=\n"))
	require.Regexp(t, `(?m)^DISCID=[0-9a-f]{8}$`, record)
}

func TestFormatParseRoundTrip(t *testing.T) {
	d := sampleDisc(t)
	d.ExtData = "line one\nline two\twith tab and \\ backslash"
	d.Track(2).ExtData = "bonus"

	got := reparse(t, xmcd.Format(d, xmcd.Submitter{}))

	require.Equal(t, d.Artist, got.Artist)
	require.Equal(t, d.Title, got.Title)
	require.Equal(t, d.Genre, got.Genre)
	require.Equal(t, d.Year, got.Year)
	require.Equal(t, d.Length, got.Length)
	require.Equal(t, d.Revision, got.Revision)
	require.Equal(t, d.ExtData, got.ExtData)
	require.Equal(t, d.TrackCount(), got.TrackCount())
	for i := 0; i < d.TrackCount(); i++ {
		want, have := d.Track(i), got.Track(i)
		require.Equal(t, want.FrameOffset, have.FrameOffset)
		require.Equal(t, want.Title, have.Title)
		require.Equal(t, want.ArtistName(), have.ArtistName())
		require.Equal(t, want.ExtData, have.ExtData)
	}
}

func TestFormatParseKeepsSeparatorInArtist(t *testing.T) {
	d := sampleDisc(t)
	d.Artist = "AC / DC"
	d.Title = "Back in Black"
	d.Track(1).Artist = "Brian / Angus"

	got := reparse(t, xmcd.Format(d, xmcd.Submitter{}))
	require.Equal(t, "AC / DC", got.Artist)
	require.Equal(t, "Back in Black", got.Title)
	require.Equal(t, "Brian / Angus", got.Track(1).Artist)
	require.Equal(t, "Two", got.Track(1).Title)
}

func TestFormatWrapsLongValues(t *testing.T) {
	d := sampleDisc(t)
	d.Artist = strings.Repeat("Artist ", 30)
	d.Title = strings.Repeat("Tïtle\\", 80)
	d.Track(0).Title = strings.Repeat("x", 600)

	record := xmcd.Format(d, xmcd.Submitter{})
	dtitleLines := 0
	for _, line := range strings.Split(string(record), "\n") {
		require.LessOrEqual(t, len(line), xmcd.MaxLineLength, "line too long: %q", line)
		if strings.HasPrefix(line, "DTITLE=") {
			dtitleLines++
		}
	}
	require.Greater(t, dtitleLines, 1)

	got := reparse(t, record)
	require.Equal(t, d.Artist, got.Artist)
	require.Equal(t, d.Title, got.Title)
	require.Equal(t, d.Track(0).Title, got.Track(0).Title)
}

func TestFormatUsesCategoryWhenGenreEmpty(t *testing.T) {
	d := sampleDisc(t)
	d.Genre = ""
	d.Year = 0
	record := string(xmcd.Format(d, xmcd.Submitter{}))
	require.Contains(t, record, "DGENRE=rock\n")
	require.Contains(t, record, "DYEAR=\n")
}

func TestEscapeUnescape(t *testing.T) {
	raw := "a\\b\nc\td"
	escaped := xmcd.Escape(raw)
	require.Equal(t, `a\\b\nc\td`, escaped)
	require.Equal(t, raw, xmcd.Unescape(escaped))
	require.Equal(t, `keep \x as is`, xmcd.Unescape(`keep \x as is`))
	require.Equal(t, `\n`, xmcd.Unescape(`\\n`))
}
