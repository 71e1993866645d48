package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cddb/internal/cddb"
)

type siteJSON struct {
	Address     string  `json:"address"`
	Protocol    string  `json:"protocol"`
	Port        int     `json:"port"`
	QueryPath   string  `json:"query_path,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
}

func newSitesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the server's mirror sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *cddb.Session) error {
				if _, err := s.Sites(cmd.Context()); err != nil {
					return err
				}
				var sites []*cddb.Site
				for site := s.FirstSite(); site != nil; site = s.NextSite() {
					sites = append(sites, site)
				}

				if ctx.JSONMode() {
					out := make([]siteJSON, 0, len(sites))
					for _, site := range sites {
						out = append(out, siteJSON{
							Address:     site.Address,
							Protocol:    site.Protocol.String(),
							Port:        site.Port,
							QueryPath:   site.QueryPath,
							Latitude:    site.Latitude,
							Longitude:   site.Longitude,
							Description: site.Description,
						})
					}
					return writeJSON(cmd, out)
				}

				out := cmd.OutOrStdout()
				if len(sites) == 0 {
					fmt.Fprintln(out, "No mirror sites listed")
					return nil
				}
				rows := make([][]string, 0, len(sites))
				for _, site := range sites {
					rows = append(rows, []string{
						site.Address,
						site.Protocol.String(),
						strconv.Itoa(site.Port),
						site.QueryPath,
						formatCoordinate(site.Latitude, "N", "S"),
						formatCoordinate(site.Longitude, "E", "W"),
						site.Description,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Address", "Protocol", "Port", "Path", "Lat", "Long", "Description"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
					shouldColorize(out),
				))
				return nil
			})
		},
	}
}

func formatCoordinate(v float64, pos, neg string) string {
	if v < 0 {
		return fmt.Sprintf("%s%06.2f", neg, -v)
	}
	return fmt.Sprintf("%s%06.2f", pos, v)
}
