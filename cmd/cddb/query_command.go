package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cddb/internal/cddb"
	"cddb/internal/disc"
)

type matchJSON struct {
	Category string `json:"category"`
	Genre    string `json:"genre,omitempty"`
	DiscID   string `json:"disc_id"`
	Artist   string `json:"artist,omitempty"`
	Title    string `json:"title"`
}

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var src discSource
	var readFirst bool

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Find database entries matching a CD",
		Long: `Query the server (or the cache) for entries matching the disc's
table of contents. With --read the first match is fetched in full.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := src.load(ctx)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(s *cddb.Session) error {
				n, err := s.Query(cmd.Context(), d)
				if err != nil {
					return err
				}
				matches := s.Matches()

				if readFirst && n > 0 {
					if err := s.Read(cmd.Context(), d); err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, toDiscJSON(d))
					}
					printDisc(cmd.OutOrStdout(), d, shouldColorize(cmd.OutOrStdout()))
					return nil
				}

				if ctx.JSONMode() {
					out := make([]matchJSON, 0, len(matches))
					for _, m := range matches {
						out = append(out, toMatchJSON(m))
					}
					return writeJSON(cmd, out)
				}
				printMatches(cmd, d, matches)
				return nil
			})
		},
	}
	src.bind(cmd)
	cmd.Flags().BoolVarP(&readFirst, "read", "r", false, "Read the full record of the first match")
	return cmd
}

func toMatchJSON(m *disc.Disc) matchJSON {
	return matchJSON{
		Category: m.Category.String(),
		Genre:    m.Genre,
		DiscID:   m.DiscIDString(),
		Artist:   m.Artist,
		Title:    m.Title,
	}
}

func printMatches(cmd *cobra.Command, d *disc.Disc, matches []*disc.Disc) {
	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintf(out, "No match for disc %s\n", d.DiscIDString())
		return
	}
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		category := m.Category.String()
		if m.Genre != "" && m.Genre != category {
			category = fmt.Sprintf("%s (%s)", category, m.Genre)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), category, m.DiscIDString(), m.Artist, m.Title})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Category", "Disc ID", "Artist", "Title"},
		rows,
		[]columnAlignment{alignRight},
		shouldColorize(out),
	))
}
