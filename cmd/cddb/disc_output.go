package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cddb/internal/disc"
)

var titleCase = cases.Title(language.English)

type trackJSON struct {
	Number      int    `json:"number"`
	FrameOffset int    `json:"frame_offset"`
	Seconds     int    `json:"seconds"`
	Artist      string `json:"artist,omitempty"`
	Title       string `json:"title"`
	ExtData     string `json:"ext_data,omitempty"`
}

type discJSON struct {
	DiscID   string      `json:"disc_id"`
	Category string      `json:"category"`
	Genre    string      `json:"genre,omitempty"`
	Artist   string      `json:"artist,omitempty"`
	Title    string      `json:"title,omitempty"`
	Year     int         `json:"year,omitempty"`
	Length   int         `json:"length"`
	Revision int         `json:"revision"`
	ExtData  string      `json:"ext_data,omitempty"`
	Tracks   []trackJSON `json:"tracks,omitempty"`
}

func toDiscJSON(d *disc.Disc) discJSON {
	out := discJSON{
		DiscID:   d.DiscIDString(),
		Category: d.Category.String(),
		Genre:    d.Genre,
		Artist:   d.Artist,
		Title:    d.Title,
		Year:     d.Year,
		Length:   d.Length,
		Revision: d.Revision,
		ExtData:  d.ExtData,
	}
	for _, t := range d.Tracks() {
		out.Tracks = append(out.Tracks, trackJSON{
			Number:      t.Number(),
			FrameOffset: t.FrameOffset,
			Seconds:     t.LengthSeconds(),
			Artist:      t.Artist,
			Title:       t.Title,
			ExtData:     t.ExtData,
		})
	}
	return out
}

func formatDuration(seconds int) string {
	if seconds < 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func categoryLabel(c disc.Category) string {
	if !c.Valid() {
		return "-"
	}
	return titleCase.String(c.String())
}

// printDisc writes a disc summary followed by its track list.
func printDisc(out io.Writer, d *disc.Disc, colorize bool) {
	fmt.Fprintf(out, "Disc ID:  %s\n", d.DiscIDString())
	fmt.Fprintf(out, "Category: %s\n", categoryLabel(d.Category))
	if d.Artist != "" || d.Title != "" {
		fmt.Fprintf(out, "Album:    %s\n", joinArtistTitle(d.Artist, d.Title))
	}
	if d.Genre != "" {
		fmt.Fprintf(out, "Genre:    %s\n", d.Genre)
	}
	if d.Year > 0 {
		fmt.Fprintf(out, "Year:     %d\n", d.Year)
	}
	fmt.Fprintf(out, "Length:   %s\n", formatDuration(d.Length))
	if d.Revision > 0 {
		fmt.Fprintf(out, "Revision: %d\n", d.Revision)
	}
	if d.ExtData != "" {
		fmt.Fprintf(out, "Notes:    %s\n", strings.ReplaceAll(d.ExtData, "\n", "\n          "))
	}
	if d.TrackCount() == 0 {
		return
	}

	rows := make([][]string, 0, d.TrackCount())
	for _, t := range d.Tracks() {
		artist := t.Artist
		if artist == "" {
			artist = d.Artist
		}
		rows = append(rows, []string{
			strconv.Itoa(t.Number()),
			formatDuration(t.LengthSeconds()),
			artist,
			t.Title,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Length", "Artist", "Title"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
		colorize,
	))
}

func joinArtistTitle(artist, title string) string {
	switch {
	case artist == "":
		return title
	case title == "":
		return artist
	default:
		return artist + " / " + title
	}
}

// parseDiscID accepts an eight digit hexadecimal disc ID with an optional
// 0x prefix.
func parseDiscID(value string) (uint32, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "0x")
	id, err := strconv.ParseUint(v, 16, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid disc id %q: expected up to eight hex digits", value)
	}
	return uint32(id), nil
}

func parseCategory(value string) (disc.Category, error) {
	c := disc.ParseCategory(strings.TrimSpace(value))
	if !c.Valid() {
		names := make([]string, 0, len(disc.Categories()))
		for _, cat := range disc.Categories() {
			names = append(names, cat.String())
		}
		return disc.CategoryInvalid, fmt.Errorf("unknown category %q (one of %s)", value, strings.Join(names, ", "))
	}
	return c, nil
}
