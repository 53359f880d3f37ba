package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var (
	warnColor = color.New(color.FgYellow, color.Bold)
	upColor   = color.New(color.FgGreen)
	downColor = color.New(color.FgRed)
)

// forecastTailRows is how many of the latest forecast rows inspect prints.
const forecastTailRows = 10

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the summary and data quality warnings for a symbol.",
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
		return writeInspect(cmd.OutOrStdout(), b, forecastview.Summarize(b))
	},
}

func writeInspect(w io.Writer, b *forecastview.Bundle, sum *forecastview.Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	rows := [][]string{
		{"Symbol", sum.Symbol},
		{"Bundle", sum.BundleID.String()},
		{"Data points", strconv.Itoa(sum.DataPoints)},
		{"Forecast points", strconv.Itoa(sum.ForecastPoints)},
		{"Forecast horizon", strconv.Itoa(sum.ForecastHorizon)},
		{"Last close", formatFloat(sum.LastClose)},
		{"Change", formatChange(sum.Change, sum.ChangePct)},
		{"Last forecast", formatFloat(sum.LastForecast)},
		{"Band width", formatFloat(sum.BandWidth)},
		{"History outliers", strconv.Itoa(sum.HistoryOutliers)},
		{"Forecast range", formatFloat(sum.ForecastMin) + " .. " + formatFloat(sum.ForecastMax)},
	}
	if sum.Scores != nil {
		rows = append(rows,
			[]string{"Overlap points", strconv.Itoa(sum.Scores.N)},
			[]string{"MSE", formatFloat(&sum.Scores.MSE)},
			[]string{"MAPE", formatFloat(&sum.Scores.MAPE)},
		)
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if err := writeForecastTail(w, b, forecastTailRows); err != nil {
		return err
	}

	if len(b.Warnings) == 0 {
		_, err := fmt.Fprintln(w, "No data quality warnings.")
		return err
	}
	if _, err := warnColor.Fprintf(w, "%d data quality warnings:\n", len(b.Warnings)); err != nil {
		return err
	}
	for _, msg := range b.Messages() {
		if _, err := fmt.Fprintf(w, "  - %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}

// writeForecastTail prints the last n forecast points with their bounds.
func writeForecastTail(w io.Writer, b *forecastview.Bundle, n int) error {
	idx := make([]int, 0, n)
	for i := len(b.Forecast) - 1; i >= 0 && len(idx) < n; i-- {
		if _, ok := b.Forecast.At(i); ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}
	slices.Reverse(idx)

	if _, err := fmt.Fprintf(w, "Forecast tail (%d rows):\n", len(idx)); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Time", "Forecast", "Lower", "Upper"})
	rows := make([][]string, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, []string{
			b.Labels[i],
			formatAt(b.Forecast, i),
			formatAt(b.Lower, i),
			formatAt(b.Upper, i),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func formatAt(v timedataset.Values, i int) string {
	val, ok := v.At(i)
	if !ok {
		return "-"
	}
	return formatFloat(&val)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatChange(change, pct *float64) string {
	if change == nil {
		return "-"
	}
	text := fmt.Sprintf("%+.2f", *change)
	if pct != nil {
		text += fmt.Sprintf(" (%+.2f%%)", *pct)
	}
	if *change < 0 {
		return downColor.Sprint(text)
	}
	return upColor.Sprint(text)
}
