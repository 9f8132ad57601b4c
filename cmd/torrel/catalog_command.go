package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"torrel/internal/config"
	"torrel/internal/history"
	"torrel/internal/sizeutil"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var siteFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse cataloged listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *history.Store) error {
				items, err := store.ListCatalog(cmd.Context(), siteFlag, limitFlag)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.Site,
						truncate(item.Title, 48),
						truncate(item.Subtitle, 28),
						sizeutil.Format(item.Size),
						fmt.Sprintf("%d/%d", item.Seeders, item.Leechers),
						formatRating(item.IMDbRating),
						formatRating(item.DoubanRating),
						item.UpdatedAt.Local().Format("2006-01-02"),
					})
				}
				out := renderTable(cmd.OutOrStdout(),
					[]string{"Site", "Title", "Subtitle", "Size", "S/L", "IMDb", "Douban", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&siteFlag, "site", "", "Filter by site label")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum rows to show (0 for all)")
	return cmd
}

func formatRating(value float64) string {
	if value <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", value)
}
