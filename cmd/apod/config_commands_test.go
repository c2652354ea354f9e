package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"apod/internal/testsupport"
)

func TestConfigInitWritesSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[paths]")
	requireContains(t, string(data), "cache_dir")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Cache directory: "+env.cfg.Paths.CacheDir)
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadWallpaperCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Wallpaper.Command = "feh --bg-fill"
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected validation error for command without placeholder")
	}
}

func TestConfigValidateReportsWallpaperBackend(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWallpaperCommand("cp {path} /tmp/apod-wallpaper.jpg"))

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "wallpaper command")
}

func TestConfigValidateFailsWhenCommandMissing(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWallpaperCommand("definitely-not-installed-apod-xyz {path}"))

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing wallpaper command")
	}
	requireContains(t, err.Error(), "definitely-not-installed-apod-xyz")
	requireContains(t, out, "Warning: wallpaper backend wallpaper command unavailable")
	if strings.Contains(out, "Configuration valid") {
		t.Fatalf("reported valid despite missing command:\n%s", out)
	}
}
