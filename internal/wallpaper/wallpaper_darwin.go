package wallpaper

import (
	"context"
	"fmt"
	"strings"

	"apod/internal/deps"
)

func platformRequirements() []deps.Requirement {
	return []deps.Requirement{{Name: "osascript", Command: "osascript", Purpose: "set the macOS desktop picture", Optional: true}}
}

type darwinSetter struct {
	run commandRunner
}

func newPlatformSetter(run commandRunner) Setter {
	return darwinSetter{run: run}
}

func (s darwinSetter) Set(ctx context.Context, path string) error {
	quoted := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(path)
	script := fmt.Sprintf(`tell application "System Events" to tell every desktop to set picture to "%s"`, quoted)
	return s.run(ctx, "osascript", "-e", script)
}
