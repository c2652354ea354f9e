// Package main hosts the apod CLI entrypoint and command graph.
//
// Commands fetch the Astronomy Picture of the Day into the local content
// cache, list and inspect cached records, and set a cached image as the
// desktop wallpaper. Configuration resolution and logger setup live in the
// command context so subcommands only deal with presentation.
package main
