package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cddb/internal/cddb"
	"cddb/internal/cddbcache"
	"cddb/internal/config"
	"cddb/internal/logging"
)

type globalFlags struct {
	config    string
	json      bool
	server    string
	cacheMode string
	http      bool
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once and applies command line
// overrides on top of it.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if server := strings.TrimSpace(c.flags.server); server != "" {
			cfg.Server.Name = server
		}
		if mode := strings.TrimSpace(c.flags.cacheMode); mode != "" {
			parsed, err := cddbcache.ParseMode(mode)
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Cache.Mode = parsed.String()
		}
		if c.flags.http {
			cfg.HTTP.Enabled = true
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) JSONMode() bool {
	return c.flags != nil && c.flags.json
}

// newSession opens a protocol session configured from the loaded config.
// The caller closes it.
func (c *commandContext) newSession(cmd *cobra.Command) (*cddb.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	opts, err := cddb.OptionsFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return cddb.NewSession(cmd.Context(), opts)
}

func (c *commandContext) withSession(cmd *cobra.Command, fn func(*cddb.Session) error) error {
	s, err := c.newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// openCache opens the configured cache directory independently of any
// session, for the cache management commands.
func (c *commandContext) openCache(cmd *cobra.Command) (*cddbcache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	cache, err := cddbcache.New(cmd.Context(), cddbcache.Options{
		Dir:    cfg.Cache.Dir,
		Index:  cfg.Cache.Index,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return cache, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
