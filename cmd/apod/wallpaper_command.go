package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"apod/internal/imagecache"
	"apod/internal/services"
)

func newWallpaperCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "wallpaper <id>",
		Short: "Set a cached picture as the desktop wallpaper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return ctx.withIndex(commandCtx(cmd), func(index *imagecache.Index) error {
				rec, err := index.GetByID(commandCtx(cmd), id)
				if err != nil {
					return err
				}
				setter, err := ctx.wallpaperSetter()
				if err != nil {
					return err
				}
				if err := setter.Set(services.WithRecordID(commandCtx(cmd), rec.ID), rec.Path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wallpaper set to #%d %s\n", rec.ID, rec.Title)
				return nil
			})
		},
	}
}
