package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"apod/internal/imagecache"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached pictures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIndex(commandCtx(cmd), func(index *imagecache.Index) error {
				records, err := index.List(commandCtx(cmd))
				if err != nil {
					return err
				}
				if jsonOutput {
					items := make([]listItem, 0, len(records))
					for _, rec := range records {
						items = append(items, listItem{ID: rec.ID, Title: rec.Title, Date: rec.Date})
					}
					return writeJSON(cmd, items)
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No cached pictures")
					return nil
				}
				if !isTerminal(out) {
					for _, rec := range records {
						fmt.Fprintf(out, "%d\t%s\n", rec.ID, rec.Title)
					}
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{strconv.FormatInt(rec.ID, 10), rec.Date, rec.Title})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Date", "Title"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

type listItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
}
