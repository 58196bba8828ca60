package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/signlang/internal/database"
	"github.com/kdimtricp/signlang/internal/models"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be non-negative")
			}
			return ctx.withDB(cmd.Context(), func(db *database.DB) error {
				results, err := database.NewResultRepository(db).ListRecent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if results == nil {
						results = []models.Classification{}
					}
					return writeJSON(cmd, results)
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No classifications recorded")
					return nil
				}

				rows := make([][]string, 0, len(results))
				for _, c := range results {
					result := models.InferenceResult{Label: c.Label, Confidence: c.Confidence}
					rows = append(rows, []string{
						c.CreatedAt.Local().Format(time.DateTime),
						result.Display(),
						c.Label,
						shortID(c.SessionID),
						c.URL,
					})
				}
				renderTable(cmd.OutOrStdout(),
					[]string{"Time", "Result", "Raw", "Session", "Clip"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft})
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", database.DefaultHistoryLimit, "Number of entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
