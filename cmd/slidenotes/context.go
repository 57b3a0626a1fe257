package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/dgallion1/slidenotes/internal/config"
	"github.com/dgallion1/slidenotes/internal/notecache"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     config.Config
	configErr  error

	logOnce sync.Once
	log     *slog.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		if c.configFlag != nil {
			if path := strings.TrimSpace(*c.configFlag); path != "" {
				if err := os.Setenv(config.FileEnv, path); err != nil {
					c.configErr = fmt.Errorf("set %s: %w", config.FileEnv, err)
					return
				}
			}
		}
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes text logs to stderr: everything with --verbose, warnings
// otherwise.
func (c *commandContext) logger() *slog.Logger {
	c.logOnce.Do(func() {
		level := slog.LevelWarn
		if c.verbose != nil && *c.verbose {
			level = slog.LevelDebug
		}
		c.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	})
	return c.log
}

func (c *commandContext) cache() (*notecache.Cache, config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, cfg, err
	}
	return notecache.New(cfg.CacheDir, c.logger()), cfg, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
