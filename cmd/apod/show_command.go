package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"apod/internal/imagecache"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a cached picture's record",
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
				if jsonOutput {
					return writeJSON(cmd, rec)
				}
				printRecord(cmd, rec)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func printRecord(cmd *cobra.Command, rec *imagecache.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:      %d\n", rec.ID)
	fmt.Fprintf(out, "Title:   %s\n", rec.Title)
	if rec.Date != "" {
		fmt.Fprintf(out, "Date:    %s\n", rec.Date)
	}
	if rec.MediaType != "" {
		fmt.Fprintf(out, "Media:   %s\n", rec.MediaType)
	}
	fmt.Fprintf(out, "Path:    %s\n", rec.Path)
	fmt.Fprintf(out, "SHA-256: %s\n", rec.ContentHash)
	if rec.SourceURL != "" {
		fmt.Fprintf(out, "Source:  %s\n", rec.SourceURL)
	}
	if explanation := strings.TrimSpace(rec.Explanation); explanation != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, explanation)
	}
}
