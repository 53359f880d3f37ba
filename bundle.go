package forecastview

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-forecastview/band"
	"github.com/aouyang1/go-forecastview/quality"
	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/aouyang1/go-forecastview/timeline"
	"github.com/google/uuid"
)

// Bundle is a render-ready view of one merge cycle. Every value array has the
// same length as Timeline and null marks positions a series does not cover.
// A Bundle is never modified after Align returns it.
type Bundle struct {
	ID        uuid.UUID            `json:"id"`
	Symbol    string               `json:"symbol"`
	Timeline  timedataset.Timeline `json:"timeline"`
	Labels    []string             `json:"labels"`
	History   timedataset.Values   `json:"history"`
	Forecast  timedataset.Values   `json:"forecast"`
	Upper     timedataset.Values   `json:"upper"`
	Lower     timedataset.Values   `json:"lower"`
	JoinIndex int                  `json:"join_index"`
	Warnings  []quality.Warning    `json:"warnings"`
}

// Len returns the number of timeline positions.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Timeline)
}

// Messages renders the warnings as human readable lines.
func (b *Bundle) Messages() []string {
	out := make([]string, 0, len(b.Warnings))
	for _, w := range b.Warnings {
		out = append(out, w.String())
	}
	return out
}

// BandWidth returns upper - lower per position, null where either is null.
func (b *Bundle) BandWidth() timedataset.Values {
	bands := band.Bands{Upper: b.Upper, Lower: b.Lower}
	return bands.Width()
}

// Align merges history and forecast onto one timeline, composes the band and
// labels the timeline. Warnings raised upstream, such as from normalizing,
// are carried into the bundle ahead of band warnings.
func Align(symbol string, history, forecast *timedataset.Series, warnings []quality.Warning, opt *Options) (*Bundle, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}

	forecast = trimHorizon(history, forecast, opt.Horizon)

	merged, err := timeline.Merge(history, forecast)
	if err != nil {
		return nil, fmt.Errorf("unable to merge %s, %w", symbol, err)
	}

	bands, err := band.Compose(merged.Timeline, forecast)
	if err != nil {
		return nil, fmt.Errorf("unable to compose band for %s, %w", symbol, err)
	}

	all := make([]quality.Warning, 0, len(warnings)+len(bands.Warnings))
	all = append(all, warnings...)
	all = append(all, bands.Warnings...)

	return &Bundle{
		ID:        uuid.New(),
		Symbol:    symbol,
		Timeline:  merged.Timeline,
		Labels:    Labels(merged.Timeline, opt.Location, opt.LabelLayout),
		History:   merged.History,
		Forecast:  merged.Forecast,
		Upper:     bands.Upper,
		Lower:     bands.Lower,
		JoinIndex: merged.JoinIndex,
		Warnings:  all,
	}, nil
}

// trimHorizon keeps the forecast points up to the end of history plus the
// first n points after it. n <= 0 keeps everything.
func trimHorizon(history, forecast *timedataset.Series, n int) *timedataset.Series {
	if n <= 0 || forecast.Len() == 0 || forecast.Validate() != nil {
		return forecast
	}
	end := int64(math.MinInt64)
	if last, err := history.Last(); err == nil {
		end = last.Timestamp
	}
	keep := sort.Search(forecast.Len(), func(i int) bool {
		return forecast.Points[i].Timestamp > end
	}) + n
	if keep >= forecast.Len() {
		return forecast
	}
	return &timedataset.Series{Kind: forecast.Kind, Points: forecast.Points[:keep]}
}

// LabelLayout picks a time layout fine enough to tell adjacent points of the
// timeline apart.
func LabelLayout(t timedataset.Timeline) string {
	freq, err := t.EstimateFreq()
	if err != nil {
		return "2006-01-02 15:04"
	}
	switch {
	case freq >= 24*time.Hour && freq%(24*time.Hour) == 0:
		return time.DateOnly
	case freq >= time.Minute:
		return "2006-01-02 15:04"
	case freq >= time.Second:
		return time.DateTime
	default:
		return "2006-01-02 15:04:05.000"
	}
}

// Labels formats the timeline in loc. An empty layout is chosen from the
// timeline's estimated frequency.
func Labels(t timedataset.Timeline, loc *time.Location, layout string) []string {
	if layout == "" {
		layout = LabelLayout(t)
	}
	times := t.Times(loc)
	labels := make([]string, len(times))
	for i, ts := range times {
		labels[i] = ts.Format(layout)
	}
	return labels
}
