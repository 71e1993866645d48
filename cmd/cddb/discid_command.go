package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cddb/internal/cdrom"
	"cddb/internal/disc"
)

// discSource selects where a disc's table of contents comes from: explicit
// frame offsets and length, or the CD device.
type discSource struct {
	device  string
	offsets []int
	length  int
}

func (s *discSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.device, "device", "d", "", "CD device to read the table of contents from (default from config)")
	cmd.Flags().IntSliceVar(&s.offsets, "offsets", nil, "Track frame offsets, comma separated, instead of reading a device")
	cmd.Flags().IntVar(&s.length, "length", 0, "Disc length in seconds (with --offsets)")
}

func (s *discSource) load(ctx *commandContext) (*disc.Disc, error) {
	if len(s.offsets) > 0 {
		if s.length <= 0 {
			return nil, fmt.Errorf("--length is required with --offsets")
		}
		d := disc.New()
		d.Length = s.length
		for _, off := range s.offsets {
			t := disc.NewTrack()
			t.FrameOffset = off
			if err := d.AddTrack(t); err != nil {
				return nil, err
			}
		}
		if _, err := d.CalcDiscID(); err != nil {
			return nil, err
		}
		return d, nil
	}

	device := strings.TrimSpace(s.device)
	if device == "" {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return nil, err
		}
		device = cfg.Device.Path
	}
	if device == "" {
		return nil, fmt.Errorf("no CD device configured; pass --device or --offsets")
	}
	d, err := cdrom.ReadTOC(device)
	if err != nil {
		return nil, fmt.Errorf("read table of contents: %w", err)
	}
	return d, nil
}

func newDiscIDCommand(ctx *commandContext) *cobra.Command {
	var src discSource
	cmd := &cobra.Command{
		Use:   "discid",
		Short: "Compute the disc ID of a CD",
		Long: `Compute the CDDB disc ID of the CD in the drive, or of a table of
contents given with --offsets and --length.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := src.load(ctx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, toDiscJSON(d))
			}
			out := cmd.OutOrStdout()
			offsets := make([]string, 0, d.TrackCount())
			for _, t := range d.Tracks() {
				offsets = append(offsets, fmt.Sprint(t.FrameOffset))
			}
			fmt.Fprintf(out, "%s %d %s %d\n", d.DiscIDString(), d.TrackCount(), strings.Join(offsets, " "), d.Length)
			return nil
		},
	}
	src.bind(cmd)
	return cmd
}
