package main

import (
	"github.com/aouyang1/go-forecastview"
	"github.com/spf13/cobra"
)

var plotOut string

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render the chart for a symbol to an html file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, closeFn, err := newClient(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeFn()

		v := forecastview.New(cfg.ViewOptions(), logger)
		b, err := loadInto(cmd.Context(), v, client)
		if err != nil {
			return err
		}
		if err := v.PlotFile(plotOut); err != nil {
			return err
		}
		cmd.Printf("wrote %s (%d points, %d warnings)\n", plotOut, b.Len(), len(b.Warnings))
		return nil
	},
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "forecastview.html", "Output html file")
}
