package main

import (
	"github.com/spf13/cobra"

	"cddb/internal/cddb"
	"cddb/internal/disc"
	"cddb/internal/xmcd"
)

func newReadCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "read <category> <discid>",
		Short: "Read a full database entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			id, err := parseDiscID(args[1])
			if err != nil {
				return err
			}

			d := disc.New()
			d.Category = category
			d.ID = id
			return ctx.withSession(cmd, func(s *cddb.Session) error {
				if err := s.Read(cmd.Context(), d); err != nil {
					return err
				}
				switch {
				case ctx.JSONMode():
					return writeJSON(cmd, toDiscJSON(d))
				case raw:
					_, err := cmd.OutOrStdout().Write(xmcd.Format(d, xmcd.Submitter{}))
					return err
				default:
					printDisc(cmd.OutOrStdout(), d, shouldColorize(cmd.OutOrStdout()))
					return nil
				}
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "xmcd", false, "Print the entry in xmcd format")
	return cmd
}
