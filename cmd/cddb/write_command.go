package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cddb/internal/cddb"
	"cddb/internal/disc"
	"cddb/internal/transport"
	"cddb/internal/xmcd"
)

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var categoryFlag string
	var discIDFlag string

	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Submit an xmcd record to the server",
		Long: `Submit an xmcd record to the server. The disc ID is computed from the
record's frame offsets and length unless --discid is given. With the cache
enabled the record is also stored locally; in cache-only mode nothing is
sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(categoryFlag)
			if err != nil {
				return err
			}
			d, err := loadRecord(args[0])
			if err != nil {
				return err
			}
			d.Category = category
			if discIDFlag != "" {
				if d.ID, err = parseDiscID(discIDFlag); err != nil {
					return err
				}
			} else if _, err := d.CalcDiscID(); err != nil {
				return fmt.Errorf("compute disc id: %w", err)
			}

			return ctx.withSession(cmd, func(s *cddb.Session) error {
				if err := s.Write(cmd.Context(), d); err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]string{
						"status":   "submitted",
						"category": d.Category.String(),
						"disc_id":  d.DiscIDString(),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s %s\n", d.Category, d.DiscIDString())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Database category of the record (required)")
	cmd.Flags().StringVar(&discIDFlag, "discid", "", "Disc ID to submit under")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func loadRecord(path string) (*disc.Disc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer f.Close()

	d := disc.New()
	if err := xmcd.Parse(transport.NewReader(f), d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}
