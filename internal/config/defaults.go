package config

const (
	defaultConfigPath     = "~/.config/apod/config.toml"
	defaultCacheDir       = "~/.local/share/apod"
	defaultAPIBaseURL     = "https://api.nasa.gov/planetary/apod"
	defaultAPIKey         = "DEMO_KEY"
	defaultTimeoutSeconds = 60
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
		},
		API: API{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
			Thumbs:         true,
		},
		Wallpaper: Wallpaper{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			File:   true,
		},
	}
}
