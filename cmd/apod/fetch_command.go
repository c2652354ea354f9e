package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"apod/internal/apodapi"
	"apod/internal/imagecache"
	"apod/internal/logging"
	"apod/internal/services"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var noWallpaper bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "fetch [YYYY-MM-DD]",
		Short: "Cache the picture for a date (default today) and set it as wallpaper",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var value string
			if len(args) == 1 {
				value = args[0]
			}
			date, err := apodapi.ParseDate(value, ctx.now())
			if err != nil {
				return err
			}

			runCtx := services.WithRequestID(commandCtx(cmd), uuid.NewString())
			runCtx = services.WithDate(runCtx, date.Format(apodapi.DateLayout))
			logger := logging.WithContext(runCtx, ctx.ensureLogger())

			return ctx.withIndex(runCtx, func(index *imagecache.Index) error {
				cache, err := ctx.newCache(index)
				if err != nil {
					return err
				}
				result, err := cache.EnsureCached(runCtx, date)
				if err != nil {
					if apodapi.IsNotPublished(err) {
						return fmt.Errorf("no picture published for %s yet: %w", date.Format(apodapi.DateLayout), err)
					}
					return fmt.Errorf("cache picture for %s: %w", date.Format(apodapi.DateLayout), err)
				}
				rec, err := index.GetByID(runCtx, result.ID)
				if err != nil {
					return err
				}

				wallpaperSet := false
				if cfg.Wallpaper.Enabled && !noWallpaper {
					setter, err := ctx.wallpaperSetter()
					if err != nil {
						return err
					}
					if err := setter.Set(services.WithRecordID(runCtx, rec.ID), rec.Path); err != nil {
						logging.WarnWithContext(logger, "wallpaper not updated", "wallpaper_failed",
							logging.Int64(logging.FieldRecordID, rec.ID),
							logging.String(logging.FieldErrorKind, string(services.Classify(err))),
							logging.String(logging.FieldErrorHint, "set wallpaper.command in the config or pass --no-wallpaper"),
							logging.String(logging.FieldImpact, "image cached but desktop background unchanged"),
							logging.Error(err),
						)
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: wallpaper not updated: %v\n", err)
					} else {
						wallpaperSet = true
					}
				}

				if jsonOutput {
					return writeJSON(cmd, fetchOutput{
						Result:       result,
						Record:       rec,
						WallpaperSet: wallpaperSet,
					})
				}
				out := cmd.OutOrStdout()
				switch result.Outcome {
				case imagecache.OutcomeAdded:
					fmt.Fprintf(out, "Cached #%d %s\n", rec.ID, rec.Title)
				default:
					fmt.Fprintf(out, "Already cached #%d %s\n", rec.ID, rec.Title)
				}
				fmt.Fprintf(out, "Path: %s\n", rec.Path)
				if wallpaperSet {
					fmt.Fprintln(out, "Wallpaper updated")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noWallpaper, "no-wallpaper", false, "Do not change the desktop wallpaper")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

type fetchOutput struct {
	Result       imagecache.Result  `json:"result"`
	Record       *imagecache.Record `json:"record"`
	WallpaperSet bool               `json:"wallpaper_set"`
}
