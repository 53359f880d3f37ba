package forecastview

import (
	"time"

	"github.com/aouyang1/go-forecastview/viewport"
)

// PlotOptions controls the rendered chart page.
type PlotOptions struct {
	Title  string
	Width  string
	Height string
	// AssetsHost overrides where the echarts javascript is loaded from.
	AssetsHost string
}

func NewPlotOptions() *PlotOptions {
	return &PlotOptions{
		Title:  "Forecast",
		Width:  "1200px",
		Height: "600px",
	}
}

type Options struct {
	ViewportOptions *viewport.Options
	PlotOptions     *PlotOptions

	// Location labels are formatted in, UTC when nil.
	Location *time.Location
	// LabelLayout overrides the layout chosen from the timeline frequency.
	LabelLayout string
	// Horizon limits the forecast to this many points past the end of
	// history. Zero keeps every point.
	Horizon int
}

func NewDefaultOptions() *Options {
	return &Options{
		ViewportOptions: viewport.NewDefaultOptions(),
		PlotOptions:     NewPlotOptions(),
		Location:        time.UTC,
	}
}
