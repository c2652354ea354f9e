// Package config loads, normalizes, and validates apod configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// APOD_API_KEY. The Config type centralizes every knob the CLI needs, so the
// cache directory, API endpoint, and wallpaper command are discovered in one
// pass and handed to the cache as explicit values.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
