package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cddb/internal/cddb"
	"cddb/internal/cdrom"
	"cddb/internal/logging"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Look up every audio CD inserted into the drive",
		Long: `Listen for udev media events and, for each inserted audio CD, read its
table of contents, query the database and print the first match.
Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(device) == "" {
				device = cfg.Device.Path
			}

			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			// events arrive on the monitor goroutine; the session is not
			// safe for concurrent use
			var mu sync.Mutex
			handler := func(hctx context.Context, dev string) error {
				mu.Lock()
				defer mu.Unlock()
				return lookupInserted(hctx, cmd, ctx, s, dev)
			}

			monitor := cdrom.NewMonitor(device, logger, handler)
			if err := monitor.Start(cmd.Context()); err != nil {
				return fmt.Errorf("start disc monitor: %w", err)
			}
			defer monitor.Stop()

			logger.Info("watching for discs", logging.String("device", device))
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "CD device to watch (default from config)")
	return cmd
}

func lookupInserted(ctx context.Context, cmd *cobra.Command, cc *commandContext, s *cddb.Session, device string) error {
	d, err := cdrom.ReadTOC(device)
	if err != nil {
		return fmt.Errorf("read table of contents: %w", err)
	}
	n, err := s.Query(ctx, d)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if n == 0 {
		if cc.JSONMode() {
			return writeJSON(cmd, toDiscJSON(d))
		}
		fmt.Fprintf(out, "%s: no match for disc %s\n", device, d.DiscIDString())
		return nil
	}
	if err := s.Read(ctx, d); err != nil {
		return err
	}
	if cc.JSONMode() {
		return writeJSON(cmd, toDiscJSON(d))
	}
	fmt.Fprintf(out, "%s:\n", device)
	printDisc(out, d, shouldColorize(out))
	return nil
}
