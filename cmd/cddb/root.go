package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "cddb",
		Short:         "CDDB/FreeDB client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.BoolVar(&flags.json, "json", false, "Write machine readable JSON")
	pf.StringVar(&flags.server, "server", "", "Override the server host")
	pf.StringVar(&flags.cacheMode, "cache", "", "Override the cache mode (on, off, only)")
	pf.BoolVar(&flags.http, "http", false, "Use the HTTP tunnel instead of CDDBP")

	rootCmd.AddCommand(newDiscIDCommand(ctx))
	rootCmd.AddCommand(newQueryCommand(ctx))
	rootCmd.AddCommand(newReadCommand(ctx))
	rootCmd.AddCommand(newWriteCommand(ctx))
	rootCmd.AddCommand(newSitesCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}
