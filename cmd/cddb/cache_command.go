package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cddb/internal/cddbcache"
	"cddb/internal/disc"
	"cddb/internal/transport"
	"cddb/internal/xmcd"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local record cache",
		Long: `Inspect and manage the local record cache.

Records are stored as <dir>/<category>/<discid> in xmcd format.

Commands:
  list     - List cached records
  show     - Print one cached record
  remove   - Remove one cached record
  clear    - Remove all cached records
  stats    - Summarize cache usage
  reindex  - Rebuild the category index from the record files`,
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheReindexCommand(ctx))

	return cacheCmd
}

func withCache(ctx *commandContext, cmd *cobra.Command, fn func(*cddbcache.Cache) error) error {
	cache, err := ctx.openCache(cmd)
	if err != nil {
		return err
	}
	defer cache.Close()
	return fn(cache)
}

type cacheEntryJSON struct {
	Category string    `json:"category"`
	DiscID   string    `json:"disc_id"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, cmd, func(cache *cddbcache.Cache) error {
				entries, err := cache.List()
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					out := make([]cacheEntryJSON, 0, len(entries))
					for _, e := range entries {
						out = append(out, cacheEntryJSON{
							Category: e.Category.String(),
							DiscID:   fmt.Sprintf("%08x", e.DiscID),
							Path:     e.Path,
							Size:     e.Size,
							Modified: e.ModTime.UTC(),
						})
					}
					return writeJSON(cmd, out)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "Cache %s: empty\n", cache.Dir())
					return nil
				}
				fmt.Fprintf(out, "Cache %s: %d records\n\n", cache.Dir(), len(entries))
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Category.String(),
						fmt.Sprintf("%08x", e.DiscID),
						humanize.IBytes(uint64(e.Size)),
						humanize.Time(e.ModTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Category", "Disc ID", "Size", "Cached"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					shouldColorize(out),
				))
				return nil
			})
		},
	}
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <category> <discid>",
		Short: "Print one cached record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id, err := parseEntryArgs(args)
			if err != nil {
				return err
			}
			return withCache(ctx, cmd, func(cache *cddbcache.Cache) error {
				f, err := cache.Open(category, id)
				if err != nil {
					return fmt.Errorf("open cached record: %w", err)
				}
				defer f.Close()

				if raw {
					_, err := io.Copy(cmd.OutOrStdout(), f)
					return err
				}
				d := disc.New()
				d.Category = category
				d.ID = id
				if err := xmcd.Parse(transport.NewReader(f), d); err != nil {
					return fmt.Errorf("parse cached record: %w", err)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, toDiscJSON(d))
				}
				printDisc(cmd.OutOrStdout(), d, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "xmcd", false, "Print the file as stored")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <category> <discid>",
		Short: "Remove one cached record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id, err := parseEntryArgs(args)
			if err != nil {
				return err
			}
			return withCache(ctx, cmd, func(cache *cddbcache.Cache) error {
				if err := cache.Remove(cmd.Context(), category, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s/%08x\n", category, id)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, cmd, func(cache *cddbcache.Cache) error {
				n, err := cache.Clear(cmd.Context())
				if err != nil {
					return fmt.Errorf("clear cache (%d removed): %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached records\n", n)
				return nil
			})
		},
	}
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, cmd, func(cache *cddbcache.Cache) error {
				stats, err := cache.Stats(cmd.Context())
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					perCategory := make(map[string]int, len(stats.PerCategory))
					for c, n := range stats.PerCategory {
						perCategory[c.String()] = n
					}
					return writeJSON(cmd, map[string]any{
						"dir":          cache.Dir(),
						"entries":      stats.Entries,
						"bytes":        stats.Bytes,
						"per_category": perCategory,
						"indexed":      stats.Indexed,
						"index":        cache.Indexed(),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Directory: %s\n", cache.Dir())
				fmt.Fprintf(out, "Entries:   %s\n", humanize.Comma(int64(stats.Entries)))
				fmt.Fprintf(out, "Size:      %s\n", humanize.IBytes(uint64(stats.Bytes)))
				if !stats.Newest.IsZero() {
					fmt.Fprintf(out, "Newest:    %s\n", humanize.Time(stats.Newest))
				}
				fmt.Fprintf(out, "Index:     %s", yesNo(cache.Indexed()))
				if cache.Indexed() {
					fmt.Fprintf(out, " (%d discs)", stats.Indexed)
				}
				fmt.Fprintln(out)
				if err := cache.Writable(); err != nil {
					fmt.Fprintf(out, "Writable:  no (%v)\n", err)
				}

				if len(stats.PerCategory) == 0 {
					return nil
				}
				cats := make([]disc.Category, 0, len(stats.PerCategory))
				for c := range stats.PerCategory {
					cats = append(cats, c)
				}
				sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
				rows := make([][]string, 0, len(cats))
				for _, c := range cats {
					rows = append(rows, []string{categoryLabel(c), strconv.Itoa(stats.PerCategory[c])})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Category", "Records"}, rows,
					[]columnAlignment{alignLeft, alignRight}, shouldColorize(out)))
				return nil
			})
		},
	}
}

func newCacheReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the category index from the record files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, cmd, func(cache *cddbcache.Cache) error {
				n, err := cache.Reindex(cmd.Context())
				if errors.Is(err, cddbcache.ErrNoIndex) {
					return fmt.Errorf("%w; set cache.index = true in the config", err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records\n", n)
				return nil
			})
		},
	}
}

func parseEntryArgs(args []string) (disc.Category, uint32, error) {
	category, err := parseCategory(args[0])
	if err != nil {
		return disc.CategoryInvalid, 0, err
	}
	id, err := parseDiscID(args[1])
	if err != nil {
		return disc.CategoryInvalid, 0, err
	}
	return category, id, nil
}
