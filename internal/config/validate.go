package config

import (
	"errors"
	"fmt"
	"strings"

	"cddb/internal/charset"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateProxy(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Name == "" {
		return errors.New("server.name must be set")
	}
	if err := validatePort("server.cddbp_port", c.Server.CDDBPPort); err != nil {
		return err
	}
	if err := validatePort("server.http_port", c.Server.HTTPPort); err != nil {
		return err
	}
	if c.Server.TimeoutSeconds <= 0 {
		return errors.New("server.timeout_seconds must be positive")
	}
	if c.Server.BufferSize <= 0 {
		return errors.New("server.buffer_size must be positive")
	}
	if _, err := charset.New(c.Server.Charset); err != nil {
		return fmt.Errorf("server.charset: %w", err)
	}
	return nil
}

func (c *Config) validateProxy() error {
	if !c.Proxy.Enabled {
		return nil
	}
	if c.Proxy.Server == "" {
		return errors.New("proxy.server must be set when proxy.enabled is true")
	}
	return validatePort("proxy.port", c.Proxy.Port)
}

func (c *Config) validateCache() error {
	switch c.Cache.Mode {
	case "on", "off", "only":
	default:
		return fmt.Errorf("cache.mode must be one of on, off, only (got %q)", c.Cache.Mode)
	}
	if c.Cache.Mode != "off" && c.Cache.Dir == "" {
		return errors.New("cache.dir must be set when the cache is enabled")
	}
	return nil
}

func (c *Config) validateClient() error {
	user, host, ok := strings.Cut(c.Client.Email, "@")
	if !ok || user == "" || host == "" {
		return fmt.Errorf("client.email %q must have the form user@host", c.Client.Email)
	}
	if strings.ContainsAny(c.Client.Email, " \t") {
		return fmt.Errorf("client.email %q must not contain whitespace", c.Client.Email)
	}
	if strings.ContainsAny(c.Client.Name+c.Client.Version, " \t") {
		return errors.New("client.name and client.version must not contain whitespace")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535 (got %d)", name, port)
	}
	return nil
}
