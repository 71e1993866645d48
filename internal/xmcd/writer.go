package xmcd

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"cddb/internal/disc"
)

// Separator divides artist from title in DTITLE and TTITLE values.
const Separator = " / "

// MaxLineLength is the longest KEY=value line Format emits. Longer values
// continue on further lines with the same key.
const MaxLineLength = 256

// Submitter names the program recorded in the "Submitted via" comment.
type Submitter struct {
	Name    string
	Version string
}

// Format renders d as an xmcd record. Track offsets must be known; the
// record is what a server expects after "cddb write" and what the cache
// stores.
func Format(d *disc.Disc, via Submitter) []byte {
	var buf bytes.Buffer
	buf.WriteString("# xmcd\n#\n# Track frame offsets:\n")
	for _, t := range d.Tracks() {
		fmt.Fprintf(&buf, "#\t%d\n", t.FrameOffset)
	}
	fmt.Fprintf(&buf, "#\n# Disc length: %d seconds\n#\n", d.Length)
	fmt.Fprintf(&buf, "# Revision: %d\n", d.Revision)
	if via.Name != "" {
		fmt.Fprintf(&buf, "# Submitted via: %s %s\n", via.Name, via.Version)
	}
	buf.WriteString("#\n")

	fmt.Fprintf(&buf, "DISCID=%08x\n", d.ID)
	writeValue(&buf, "DTITLE", joinArtistTitle(d.Artist, d.Title))
	if d.Year > 0 {
		fmt.Fprintf(&buf, "DYEAR=%d\n", d.Year)
	} else {
		buf.WriteString("DYEAR=\n")
	}
	genre := d.Genre
	if genre == "" && d.Category.Valid() {
		genre = d.Category.String()
	}
	writeValue(&buf, "DGENRE", Escape(genre))
	for i, t := range d.Tracks() {
		value := Escape(t.Title)
		if t.Artist != "" && t.Artist != d.Artist {
			value = joinArtistTitle(t.Artist, t.Title)
		}
		writeValue(&buf, fmt.Sprintf("TTITLE%d", i), value)
	}
	writeValue(&buf, "EXTD", Escape(d.ExtData))
	for i, t := range d.Tracks() {
		writeValue(&buf, fmt.Sprintf("EXTT%d", i), Escape(t.ExtData))
	}
	buf.WriteString("PLAYORDER=\n")
	return buf.Bytes()
}

func joinArtistTitle(artist, title string) string {
	if artist == "" {
		return Escape(title)
	}
	return Escape(artist) + Separator + Escape(title)
}

// writeValue emits key=value, splitting an escaped value over several lines
// when it does not fit. Splits never fall inside an escape sequence, a
// multi-byte rune or the artist/title separator.
func writeValue(buf *bytes.Buffer, key, value string) {
	room := MaxLineLength - len(key) - 1
	for {
		if len(value) <= room {
			fmt.Fprintf(buf, "%s=%s\n", key, value)
			return
		}
		cut := splitPoint(value, room)
		fmt.Fprintf(buf, "%s=%s\n", key, value[:cut])
		value = value[cut:]
	}
}

func splitPoint(value string, limit int) int {
	sep := strings.Index(value, Separator)
	for cut := limit; cut > 0; cut-- {
		if !utf8.RuneStart(value[cut]) {
			continue
		}
		if sep >= 0 && cut > sep && cut < sep+len(Separator) {
			continue
		}
		if endsInsideEscape(value[:cut]) {
			continue
		}
		return cut
	}
	return limit
}

// endsInsideEscape reports whether s ends with an unpaired backslash.
func endsInsideEscape(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

var (
	escaper   = strings.NewReplacer("\\", `\\`, "\n", `\n`, "\t", `\t`)
	unescaper = strings.NewReplacer(`\\`, "\\", `\n`, "\n", `\t`, "\t")
)

// Escape encodes backslashes, newlines and tabs for a value line.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape. Unknown escape sequences are kept as written.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return unescaper.Replace(s)
}
