package preflight

import (
	"context"
	"log/slog"

	"cddb/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.Cache.Mode == "off" {
		results = append(results, Result{Name: cacheCheckName, Skipped: true, Detail: "cache disabled"})
	} else {
		results = append(results, CheckCacheDirectory(cfg.Cache.Dir))
	}

	if cfg.Cache.Mode == "only" {
		results = append(results, Result{Name: serverCheckName, Skipped: true, Detail: "cache-only mode"})
	} else {
		results = append(results, CheckServer(ctx, cfg, logger))
	}

	if cfg.Device.Path != "" {
		results = append(results, CheckDevice(cfg.Device.Path))
	}

	return results
}

// Failed reports whether any non-skipped check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Skipped {
			return true
		}
	}
	return false
}
