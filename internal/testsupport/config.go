package testsupport

import (
	"path/filepath"
	"testing"

	"apod/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp cache directory per
// test. Wallpaper changes and log files are disabled so tests never touch the
// desktop or the user's home.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "APOD")
	cfgVal.API.APIKey = "test-key"
	cfgVal.API.TimeoutSeconds = 5
	cfgVal.Wallpaper.Enabled = false
	cfgVal.Logging.File = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIServer points the test config at a fake APOD server.
func WithAPIServer(server *APODServer) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = server.APIURL()
	}
}

// WithAPIKey sets the API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.APIKey = key
	}
}

// WithWallpaperCommand enables the wallpaper integration with a command template.
func WithWallpaperCommand(command string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Wallpaper.Enabled = true
		b.cfg.Wallpaper.Command = command
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
