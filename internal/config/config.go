package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server identifies the CDDB server and the per-request limits.
type Server struct {
	Name           string `toml:"name"`
	CDDBPPort      int    `toml:"cddbp_port"`
	HTTPPort       int    `toml:"http_port"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BufferSize     int    `toml:"buffer_size"`
	Charset        string `toml:"charset"`
}

// HTTP enables the HTTP tunnel instead of raw CDDBP.
type HTTP struct {
	Enabled    bool   `toml:"enabled"`
	QueryPath  string `toml:"query_path"`
	SubmitPath string `toml:"submit_path"`
}

// Proxy routes HTTP tunnel requests through a proxy server.
type Proxy struct {
	Enabled  bool   `toml:"enabled"`
	Server   string `toml:"server"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Cache controls the local record cache.
type Cache struct {
	Mode  string `toml:"mode"`
	Dir   string `toml:"dir"`
	Index bool   `toml:"index"` // Default: false; enables the sqlite category index
}

// Client identifies this program to the server.
type Client struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Email   string `toml:"email"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Device names the CD drive used for TOC reads and disc watching.
type Device struct {
	Path string `toml:"path"`
}

// Config encapsulates all configuration values for the cddb client.
//
// Configuration sections:
//   - Server: CDDB server address, ports, timeouts and charset
//   - HTTP: HTTP tunnel settings
//   - Proxy: optional HTTP proxy and credentials
//   - Cache: local record cache policy and location
//   - Client: name, version and email sent in the handshake
//   - Logging: log format, level, and optional log directory
//   - Device: CD drive path
type Config struct {
	Server  Server  `toml:"server"`
	HTTP    HTTP    `toml:"http"`
	Proxy   Proxy   `toml:"proxy"`
	Cache   Cache   `toml:"cache"`
	Client  Client  `toml:"client"`
	Logging Logging `toml:"logging"`
	Device  Device  `toml:"device"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, "cddb", "config.toml"))
}

// Load locates, parses, and validates a configuration file. A .env file in
// the working directory is applied first without overriding variables that
// are already set. The returned config has all path fields expanded and
// environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cddb.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Timeout returns the network timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// EmailParts splits the configured email address into the user and host sent
// with the handshake.
func (c *Config) EmailParts() (user, host string) {
	user, host, _ = strings.Cut(c.Client.Email, "@")
	return user, host
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "cddbslave")
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
