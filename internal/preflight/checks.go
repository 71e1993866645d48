package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"cddb/internal/cddb"
	"cddb/internal/cddbcache"
	"cddb/internal/config"
)

const (
	cacheCheckName  = "Cache directory"
	serverCheckName = "Server"
	deviceCheckName = "CD device"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCacheDirectory accepts a missing cache directory when its nearest
// existing ancestor is writable, since the cache creates it on first write.
func CheckCacheDirectory(path string) Result {
	if path == "" {
		return Result{Name: cacheCheckName, Detail: "cache.dir not set"}
	}
	if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return CheckDirectoryAccess(cacheCheckName, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: cacheCheckName, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: cacheCheckName, Passed: true, Detail: fmt.Sprintf("%s (created on first write)", path)}
}

// CheckServer connects to the configured server. For CDDBP the full
// handshake runs and the negotiated protocol level is reported; over HTTP
// reaching the server or proxy is enough.
func CheckServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) Result {
	opts, err := cddb.OptionsFromConfig(cfg, logger)
	if err != nil {
		return Result{Name: serverCheckName, Detail: err.Error()}
	}
	opts.CacheMode = cddbcache.ModeOff

	s, err := cddb.NewSession(ctx, opts)
	if err != nil {
		return Result{Name: serverCheckName, Detail: err.Error()}
	}
	defer s.Close()

	target := fmt.Sprintf("%s:%d", cfg.Server.Name, cfg.Server.CDDBPPort)
	if opts.HTTP {
		target = fmt.Sprintf("http://%s:%d%s", cfg.Server.Name, cfg.Server.HTTPPort, cfg.HTTP.QueryPath)
	}
	if err := s.Connect(ctx); err != nil {
		return Result{Name: serverCheckName, Detail: fmt.Sprintf("%s (%s)", target, summarizeConnectError(err))}
	}
	if opts.HTTP {
		return Result{Name: serverCheckName, Passed: true, Detail: fmt.Sprintf("%s (reachable)", target)}
	}
	return Result{Name: serverCheckName, Passed: true, Detail: fmt.Sprintf("%s (protocol level %d)", target, s.ProtocolLevel())}
}

func summarizeConnectError(err error) string {
	switch cddb.CodeOf(err) {
	case cddb.CodeUnknownHost:
		return "error: unknown host"
	case cddb.CodeTimeout:
		return "error: timed out"
	case cddb.CodeConnect:
		return "error: connection refused"
	case cddb.CodePermissionDenied:
		return "error: server refused the handshake"
	default:
		return fmt.Sprintf("error: %v", err)
	}
}

// CheckDevice verifies that path is a readable device node.
func CheckDevice(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: deviceCheckName, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: deviceCheckName, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&fs.ModeDevice == 0 {
		return Result{Name: deviceCheckName, Detail: fmt.Sprintf("%s (error: not a device)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: deviceCheckName, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: deviceCheckName, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}
