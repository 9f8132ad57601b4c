package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"torrel/internal/config"
	"torrel/internal/history"
	"torrel/internal/sizeutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var sourceFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List processed entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *history.Store) error {
				filter := history.EntryFilter{
					Source: sourceFlag,
					Limit:  limitFlag,
				}
				if statusFlag != "" {
					status, err := history.ParseStatus(statusFlag)
					if err != nil {
						return err
					}
					filter.Status = status
				}
				entries, err := store.ListEntries(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No entries found")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					size := ""
					if entry.Size > 0 {
						size = sizeutil.Format(entry.Size)
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", entry.ID),
						truncate(entry.Title, 48),
						truncate(entry.Subtitle, 32),
						string(entry.Status),
						entry.Reason,
						size,
						entry.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				out := renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Title", "Subtitle", "Status", "Reason", "Size", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (pending, accepted, rejected, dupe, optpick, ignored, error)")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Filter by source name")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum rows to show (0 for all)")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show entry counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *history.Store) error {
				counts, err := store.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}
				downloads, err := store.ListDownloads(cmd.Context(), 0)
				if err != nil {
					return err
				}

				statuses := history.AllStatuses()
				rows := make([][]string, 0, len(statuses)+1)
				total := 0
				for _, status := range statuses {
					rows = append(rows, []string{string(status), fmt.Sprintf("%d", counts[status])})
					total += counts[status]
				}
				rows = append(rows, []string{"total", fmt.Sprintf("%d", total)})
				out := renderTable(cmd.OutOrStdout(),
					[]string{"Status", "Entries"},
					rows,
					[]columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), out)
				fmt.Fprintf(cmd.OutOrStdout(), "Downloads recorded: %d\n", len(downloads))
				return nil
			})
		},
	}
}

func truncate(value string, max int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-1]) + "…"
}
