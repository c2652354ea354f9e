// Package wallpaper sets the desktop background to a cached image.
//
// A configured command template takes precedence; otherwise the platform
// default is used: SystemParametersInfoW on Windows, osascript on macOS, and
// gsettings elsewhere.
package wallpaper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"apod/internal/config"
	"apod/internal/deps"
	"apod/internal/logging"
	"apod/internal/services"
)

// PathPlaceholder is replaced with the image path in command templates.
const PathPlaceholder = "{path}"

// Setter changes the desktop background.
type Setter interface {
	Set(ctx context.Context, path string) error
}

// commandRunner executes an external program.
type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if text := strings.TrimSpace(string(output)); text != "" {
			return fmt.Errorf("%s: %w: %s", name, err, text)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Option configures a Setter built by New.
type Option func(*options)

type options struct {
	run    commandRunner
	logger *slog.Logger
}

// WithRunner replaces command execution (primarily for tests).
func WithRunner(run func(ctx context.Context, name string, args ...string) error) Option {
	return func(o *options) {
		if run != nil {
			o.run = run
		}
	}
}

// WithLogger sets the logger used for wallpaper events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New returns the Setter described by cfg. The Enabled flag is not consulted
// here; callers decide whether a wallpaper change is wanted.
func New(cfg config.Wallpaper, opts ...Option) Setter {
	o := options{run: runCommand}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, "wallpaper")

	var backend Setter
	if template := strings.TrimSpace(cfg.Command); template != "" {
		backend = &templateSetter{template: template, run: o.run}
	} else {
		backend = newPlatformSetter(o.run)
	}
	return &checkedSetter{backend: backend, logger: logger}
}

// Requirements lists the external programs the Setter for cfg invokes. A
// configured command is required; the platform backend is optional because
// a missing desktop tool only skips the wallpaper step.
func Requirements(cfg config.Wallpaper) []deps.Requirement {
	if fields := strings.Fields(cfg.Command); len(fields) > 0 {
		return []deps.Requirement{{
			Name:    "wallpaper command",
			Command: fields[0],
			Purpose: "configured wallpaper.command",
		}}
	}
	return platformRequirements()
}

// checkedSetter resolves and verifies the image path before delegating.
type checkedSetter struct {
	backend Setter
	logger  *slog.Logger
}

func (s *checkedSetter) Set(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrValidation, "wallpaper", "set", "image path is empty", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "wallpaper", "set", "resolve image path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "wallpaper", "set", abs, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "wallpaper", "set", abs+" is a directory", nil)
	}
	if err := s.backend.Set(ctx, abs); err != nil {
		return services.Wrap(services.ErrWallpaper, "wallpaper", "set", abs, err)
	}
	logging.WithContext(ctx, s.logger).Info("wallpaper updated",
		logging.String(logging.FieldEventType, "wallpaper_set"),
		logging.String("path", abs),
	)
	return nil
}

// templateSetter runs a user supplied command with the path substituted.
type templateSetter struct {
	template string
	run      commandRunner
}

func (s *templateSetter) Set(ctx context.Context, path string) error {
	name, args, err := expandCommand(s.template, path)
	if err != nil {
		return err
	}
	return s.run(ctx, name, args...)
}

// expandCommand splits template on whitespace and substitutes path into each
// field. Splitting happens first so paths containing spaces stay one argument.
func expandCommand(template, path string) (string, []string, error) {
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty wallpaper command")
	}
	if !strings.Contains(template, PathPlaceholder) {
		return "", nil, fmt.Errorf("wallpaper command %q lacks %s", template, PathPlaceholder)
	}
	for i, field := range fields {
		fields[i] = strings.ReplaceAll(field, PathPlaceholder, path)
	}
	return fields[0], fields[1:], nil
}
