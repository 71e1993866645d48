package testsupport

import (
	"path/filepath"
	"testing"

	"cddb/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The server points at an unroutable loopback port until WithServer is
// applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.Name = "127.0.0.1"
	cfgVal.Server.TimeoutSeconds = 2
	cfgVal.Cache.Dir = filepath.Join(base, "cache")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Client.Email = "tester@example.org"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServer points both the CDDBP and HTTP ports at srv.
func WithServer(srv *Server) ConfigOption {
	return func(b *configBuilder) {
		host, port := srv.Addr()
		b.cfg.Server.Name = host
		b.cfg.Server.CDDBPPort = port
		b.cfg.Server.HTTPPort = port
		b.cfg.HTTP.Enabled = srv.Mode() == ModeHTTP
	}
}

// WithCacheMode overrides the cache mode ("off", "on", "only").
func WithCacheMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Mode = mode
	}
}

// WithCacheIndex enables the sqlite cache index.
func WithCacheIndex() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Index = true
	}
}

// WithDevice overrides the CD device path.
func WithDevice(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Device.Path = path
	}
}
