package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cddb/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify server, cache and device readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, logger)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, checkStatus(r), r.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil, shouldColorize(out)))
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

func checkStatus(r preflight.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "ok"
	default:
		return "failed"
	}
}
