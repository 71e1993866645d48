package config

const (
	defaultServerName     = "gnudb.gnudb.org"
	defaultCDDBPPort      = 8880
	defaultHTTPPort       = 80
	defaultTimeoutSeconds = 10
	defaultBufferSize     = 1024
	defaultCharset        = "utf-8"
	defaultQueryPath      = "/~cddb/cddb.cgi"
	defaultSubmitPath     = "/~cddb/submit.cgi"
	defaultProxyPort      = 8080
	defaultCacheMode      = "on"
	defaultClientName     = "cddb-go"
	defaultClientVersion  = "1.0"
	defaultEmailUser      = "anonymous"
	defaultEmailHost      = "localhost"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultDevicePath     = "/dev/sr0"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Name:           defaultServerName,
			CDDBPPort:      defaultCDDBPPort,
			HTTPPort:       defaultHTTPPort,
			TimeoutSeconds: defaultTimeoutSeconds,
			BufferSize:     defaultBufferSize,
			Charset:        defaultCharset,
		},
		HTTP: HTTP{
			QueryPath:  defaultQueryPath,
			SubmitPath: defaultSubmitPath,
		},
		Proxy: Proxy{
			Port: defaultProxyPort,
		},
		Cache: Cache{
			Mode: defaultCacheMode,
			Dir:  defaultCacheDir(),
		},
		Client: Client{
			Name:    defaultClientName,
			Version: defaultClientVersion,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Device: Device{
			Path: defaultDevicePath,
		},
	}
}
