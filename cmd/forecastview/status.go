package main

import (
	"github.com/aouyang1/go-forecastview/fetch"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the forecast api has fresh predictions for a symbol.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, closeFn, err := newClient(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeFn()

		timeframe, err := cmd.Flags().GetString("timeframe")
		if err != nil {
			return err
		}
		st, err := client.Status(cmd.Context(), cfg.Symbol, timeframe)
		if err != nil {
			warnColor.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", cfg.Symbol, err)
			return err
		}
		upColor.Fprintf(cmd.OutOrStdout(), "%s: %s (updated %s)\n", cfg.Symbol, st.Status, st.UpdatedAt)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("timeframe", fetch.Timeframe1h, "Staleness threshold: 1h, 4h or 1d")
}
