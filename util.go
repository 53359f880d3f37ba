package forecastview

import (
	"sort"

	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/aouyang1/go-forecastview/viewport"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// echarts skips "-" entries, leaving a gap in the line
const nullPoint = "-"

const bandStack = "band"

func lineData(v timedataset.Values) []opts.LineData {
	data := make([]opts.LineData, 0, len(v))
	for i := range v {
		val, ok := v.At(i)
		if !ok {
			data = append(data, opts.LineData{Value: nullPoint})
			continue
		}
		data = append(data, opts.LineData{Value: val})
	}
	return data
}

// zoomPercent converts the visible x range into the start and end percent
// of the category axis. The axis is indexed by timeline position, so the
// percent comes from the first and last positions inside the range rather
// than from elapsed time. A range that falls between two positions shows
// that pair.
func zoomPercent(st viewport.State, tl timedataset.Timeline) (float32, float32) {
	n := len(tl)
	if st.Mode == viewport.Auto || n < 2 {
		return 0, 100
	}
	first := sort.Search(n, func(i int) bool { return float64(tl[i]) >= st.X.Min })
	last := sort.Search(n, func(i int) bool { return float64(tl[i]) > st.X.Max }) - 1
	if first > n-1 {
		first = n - 1
	}
	if last < 0 {
		last = 0
	}
	if first > last {
		first, last = last, first
	}
	span := float32(n - 1)
	return float32(first) / span * 100, float32(last) / span * 100
}

// LineTSeries generates an echart multi-line chart for labelled values. Each
// series in y must be the same length as labels.
func LineTSeries(title string, seriesName []string, labels []string, y []timedataset.Values) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(
			opts.Tooltip{
				Show:    opts.Bool(true),
				Trigger: "axis",
			},
		),
	)

	line = line.SetXAxis(labels)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// LineBundle generates an echart line chart for a bundle with the history and
// forecast lines and a filled confidence band. The band is drawn by stacking
// the band width on top of the lower bound. The data zoom and y axis reflect
// the viewport state.
func LineBundle(b *Bundle, st viewport.State, opt *PlotOptions) *charts.Line {
	if opt == nil {
		opt = NewPlotOptions()
	}
	start, end := zoomPercent(st, b.Timeline)

	yAxis := opts.YAxis{
		Scale: opts.Bool(true),
	}
	if st.Mode == viewport.Manual {
		yAxis.Min = st.Y.Min
		yAxis.Max = st.Y.Max
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(
			opts.Initialization{
				PageTitle:  opt.Title,
				Width:      opt.Width,
				Height:     opt.Height,
				AssetsHost: opt.AssetsHost,
			},
		),
		charts.WithTitleOpts(
			opts.Title{
				Title:    opt.Title + " " + b.Symbol,
				Subtitle: b.ID.String(),
			},
		),
		charts.WithTooltipOpts(
			opts.Tooltip{
				Show:    opts.Bool(true),
				Trigger: "axis",
			},
		),
		charts.WithYAxisOpts(yAxis),
		charts.WithDataZoomOpts(
			opts.DataZoom{
				Type:       "inside",
				Start:      start,
				End:        end,
				XAxisIndex: []int{0},
			},
			opts.DataZoom{
				Type:       "slider",
				Start:      start,
				End:        end,
				XAxisIndex: []int{0},
			},
		),
	)

	width := b.BandWidth()

	line.SetXAxis(b.Labels).
		AddSeries("History", lineData(b.History),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries("Forecast", lineData(b.Forecast),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}),
		).
		AddSeries("Lower", lineData(b.Lower),
			charts.WithLineChartOpts(opts.LineChart{Stack: bandStack, ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dotted", Opacity: opts.Float(0.6)}),
		).
		AddSeries("Band", lineData(width),
			charts.WithLineChartOpts(opts.LineChart{Stack: bandStack, ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}),
		).
		AddSeries("Upper", lineData(b.Upper),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dotted", Opacity: opts.Float(0.6)}),
		)
	return line
}
