//go:build !windows && !darwin

package wallpaper

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"

	"apod/internal/deps"
)

const gnomeBackgroundSchema = "org.gnome.desktop.background"

func platformRequirements() []deps.Requirement {
	return []deps.Requirement{{Name: "gsettings", Command: "gsettings", Purpose: "set the GNOME desktop background", Optional: true}}
}

type gsettingsSetter struct {
	run      commandRunner
	lookPath func(string) (string, error)
}

func newPlatformSetter(run commandRunner) Setter {
	return gsettingsSetter{run: run, lookPath: exec.LookPath}
}

func (s gsettingsSetter) Set(ctx context.Context, path string) error {
	if _, err := s.lookPath("gsettings"); err != nil {
		return fmt.Errorf("gsettings not found; set wallpaper.command in the config: %w", err)
	}
	uri := (&url.URL{Scheme: "file", Path: path}).String()
	if err := s.run(ctx, "gsettings", "set", gnomeBackgroundSchema, "picture-uri", uri); err != nil {
		return err
	}
	// Older GNOME releases have no dark variant key.
	_ = s.run(ctx, "gsettings", "set", gnomeBackgroundSchema, "picture-uri-dark", uri)
	return nil
}
