package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	c.normalizeServer()
	c.normalizeHTTP()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeClient()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.Device.Path = strings.TrimSpace(c.Device.Path)
	if c.Device.Path == "" {
		c.Device.Path = defaultDevicePath
	}
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := lookupEnv("CDDB_SERVER"); ok {
		c.Server.Name = value
	}
	if value, ok := lookupEnv("CDDB_EMAIL"); ok {
		c.Client.Email = value
	}
	if value, ok := lookupEnv("CDDB_CACHE_DIR"); ok {
		c.Cache.Dir = value
	}
	if value, ok := lookupEnv("CDDB_HTTP_PROXY"); ok {
		host, port := splitProxy(value)
		c.Proxy.Enabled = true
		c.Proxy.Server = host
		if port > 0 {
			c.Proxy.Port = port
		}
	}
	if value, ok := lookupEnv("CDDB_PROXY_USER"); ok {
		c.Proxy.Username = value
	}
	if value, ok := lookupEnv("CDDB_PROXY_PASSWORD"); ok {
		c.Proxy.Password = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// splitProxy accepts "host", "host:port" or "http://host:port/".
func splitProxy(value string) (string, int) {
	value = strings.TrimPrefix(strings.TrimPrefix(value, "http://"), "https://")
	value = strings.TrimSuffix(value, "/")
	host, portText, err := net.SplitHostPort(value)
	if err != nil {
		return value, 0
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return host, 0
	}
	return host, port
}

func (c *Config) normalizeServer() {
	c.Server.Name = strings.TrimSpace(c.Server.Name)
	c.Server.Charset = strings.ToLower(strings.TrimSpace(c.Server.Charset))
	if c.Server.Charset == "" {
		c.Server.Charset = defaultCharset
	}
}

func (c *Config) normalizeHTTP() {
	c.HTTP.QueryPath = strings.TrimSpace(c.HTTP.QueryPath)
	if c.HTTP.QueryPath == "" {
		c.HTTP.QueryPath = defaultQueryPath
	}
	c.HTTP.SubmitPath = strings.TrimSpace(c.HTTP.SubmitPath)
	if c.HTTP.SubmitPath == "" {
		c.HTTP.SubmitPath = defaultSubmitPath
	}
	c.Proxy.Server = strings.TrimSpace(c.Proxy.Server)
	if c.Proxy.Enabled {
		c.HTTP.Enabled = true
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Mode = strings.ToLower(strings.TrimSpace(c.Cache.Mode))
	if c.Cache.Mode == "" {
		c.Cache.Mode = defaultCacheMode
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	var err error
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeClient() {
	c.Client.Name = strings.TrimSpace(c.Client.Name)
	if c.Client.Name == "" {
		c.Client.Name = defaultClientName
	}
	c.Client.Version = strings.TrimSpace(c.Client.Version)
	if c.Client.Version == "" {
		c.Client.Version = defaultClientVersion
	}
	c.Client.Email = strings.TrimSpace(c.Client.Email)
	if c.Client.Email == "" {
		user, _ := lookupEnv("USER")
		if user == "" {
			user = defaultEmailUser
		}
		host, _ := lookupEnv("HOSTNAME")
		if host == "" {
			host = defaultEmailHost
		}
		c.Client.Email = user + "@" + host
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = ""
		return nil
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
