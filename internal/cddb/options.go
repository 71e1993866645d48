package cddb

import (
	"fmt"
	"log/slog"
	"time"

	"cddb/internal/cddbcache"
	"cddb/internal/config"
)

// ProtocolLevel is the CDDBP protocol level requested during the handshake
// and sent with every HTTP command.
const ProtocolLevel = 6

const (
	defaultServer     = "gnudb.gnudb.org"
	defaultCDDBPPort  = 8880
	defaultHTTPPort   = 80
	defaultTimeout    = 10 * time.Second
	defaultQueryPath  = "/~cddb/cddb.cgi"
	defaultSubmitPath = "/~cddb/submit.cgi"
	defaultClientName = "cddb-go"
	defaultClientVer  = "1.0"
	defaultEmail      = "anonymous@localhost"
)

// Proxy routes HTTP requests through a proxy server. It is unused unless
// Server is set.
type Proxy struct {
	Server   string
	Port     int
	Username string
	Password string
}

// Options configures a Session. Zero values fall back to the defaults of
// the public FreeDB mirrors.
type Options struct {
	Server    string
	CDDBPPort int
	HTTPPort  int

	// HTTP tunnels every command through HTTP requests instead of a CDDBP
	// connection. A proxy implies HTTP.
	HTTP       bool
	QueryPath  string
	SubmitPath string
	Proxy      Proxy

	CacheMode  cddbcache.Mode
	CacheDir   string
	CacheIndex bool

	ClientName    string
	ClientVersion string
	// Email is split into the user and host sent with HELLO.
	Email string

	Timeout    time.Duration
	BufferSize int
	// Charset is the character set the server speaks. Records are cached
	// and returned as UTF-8.
	Charset string

	Logger *slog.Logger
}

// OptionsFromConfig maps a loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) (Options, error) {
	mode, err := cddbcache.ParseMode(cfg.Cache.Mode)
	if err != nil {
		return Options{}, fmt.Errorf("cache mode: %w", err)
	}
	opts := Options{
		Server:        cfg.Server.Name,
		CDDBPPort:     cfg.Server.CDDBPPort,
		HTTPPort:      cfg.Server.HTTPPort,
		HTTP:          cfg.HTTP.Enabled,
		QueryPath:     cfg.HTTP.QueryPath,
		SubmitPath:    cfg.HTTP.SubmitPath,
		CacheMode:     mode,
		CacheDir:      cfg.Cache.Dir,
		CacheIndex:    cfg.Cache.Index,
		ClientName:    cfg.Client.Name,
		ClientVersion: cfg.Client.Version,
		Email:         cfg.Client.Email,
		Timeout:       cfg.Timeout(),
		BufferSize:    cfg.Server.BufferSize,
		Charset:       cfg.Server.Charset,
		Logger:        logger,
	}
	if cfg.Proxy.Enabled {
		opts.HTTP = true
		opts.Proxy = Proxy{
			Server:   cfg.Proxy.Server,
			Port:     cfg.Proxy.Port,
			Username: cfg.Proxy.Username,
			Password: cfg.Proxy.Password,
		}
	}
	return opts, nil
}

func (o *Options) applyDefaults() {
	if o.Server == "" {
		o.Server = defaultServer
	}
	if o.CDDBPPort <= 0 {
		o.CDDBPPort = defaultCDDBPPort
	}
	if o.HTTPPort <= 0 {
		o.HTTPPort = defaultHTTPPort
	}
	if o.QueryPath == "" {
		o.QueryPath = defaultQueryPath
	}
	if o.SubmitPath == "" {
		o.SubmitPath = defaultSubmitPath
	}
	if o.Proxy.Server != "" {
		o.HTTP = true
		if o.Proxy.Port <= 0 {
			o.Proxy.Port = 8080
		}
	}
	if o.ClientName == "" {
		o.ClientName = defaultClientName
	}
	if o.ClientVersion == "" {
		o.ClientVersion = defaultClientVer
	}
	if o.Email == "" {
		o.Email = defaultEmail
	}
	if o.Timeout == 0 {
		o.Timeout = defaultTimeout
	}
}
