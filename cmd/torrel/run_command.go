package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"torrel/internal/config"
	"torrel/internal/history"
	"torrel/internal/logging"
	"torrel/internal/notifications"
	"torrel/internal/orchestrator"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [source]",
		Short: "Run one pass for a source, or all sources",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *history.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}

				manager, err := orchestrator.NewManager(cfg, store, notifications.NewService(cfg), logger)
				if err != nil {
					return err
				}

				name := ""
				if len(args) > 0 {
					name = args[0]
				}
				summary, err := manager.RunOnce(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Pass complete: %d fetched, %d accepted, %d rejected, %d skipped, %d errors\n",
					summary.Fetched, summary.Accepted, summary.Rejected, summary.Skipped, summary.Errors)
				return nil
			})
		},
	}
}
