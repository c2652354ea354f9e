package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"apod/internal/apodapi"
	"apod/internal/config"
	"apod/internal/imagecache"
	"apod/internal/logging"
	"apod/internal/wallpaper"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	now func() time.Time
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		now:        time.Now,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		c.logger = newCommandLogger(cfg, os.Stderr)
	})
	return c.logger
}

// newCommandLogger builds the logger described by cfg. When the log file
// cannot be opened it reports the problem on errOut and logs to stderr only.
func newCommandLogger(cfg *config.Config, errOut io.Writer) *slog.Logger {
	logger, err := logging.NewFromConfig(cfg)
	if err == nil {
		return logger
	}
	fmt.Fprintf(errOut, "Warning: file logging disabled: %v\n", err)
	opts := logging.Options{OutputPaths: []string{"stderr"}}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.Format = cfg.Logging.Format
	}
	logger, err = logging.New(opts)
	if err != nil {
		fmt.Fprintf(errOut, "Warning: logging disabled: %v\n", err)
		return logging.NewNop()
	}
	return logger
}

// withIndex opens the cache index for the duration of fn.
func (c *commandContext) withIndex(ctx context.Context, fn func(*imagecache.Index) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	index, err := imagecache.Open(ctx, cfg.Paths.CacheDir, c.ensureLogger())
	if err != nil {
		return err
	}
	defer index.Close()
	return fn(index)
}

func (c *commandContext) newCache(index *imagecache.Index) (*imagecache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	client, err := apodapi.New(cfg.API.APIKey, cfg.API.BaseURL,
		apodapi.WithTimeout(cfg.RequestTimeout()),
		apodapi.WithThumbs(cfg.API.Thumbs),
		apodapi.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return imagecache.New(index, client, imagecache.WithLogger(logger)), nil
}

func (c *commandContext) wallpaperSetter() (wallpaper.Setter, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return wallpaper.New(cfg.Wallpaper, wallpaper.WithLogger(c.ensureLogger())), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid record id %q: must be a positive integer", arg)
	}
	return id, nil
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
