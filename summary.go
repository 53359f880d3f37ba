package forecastview

import (
	"github.com/aouyang1/go-forecastview/stats"
	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/aouyang1/go-forecastview/timeline"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// Summary holds the headline numbers for a bundle. Fields that cannot be
// computed from the available series are nil.
type Summary struct {
	Symbol          string    `json:"symbol"`
	BundleID        uuid.UUID `json:"bundle_id"`
	DataPoints      int       `json:"data_points"`
	ForecastPoints  int       `json:"forecast_points"`
	ForecastHorizon int       `json:"forecast_horizon"`
	Warnings        int       `json:"warnings"`
	HistoryOutliers int       `json:"history_outliers"`

	LastClose    *float64 `json:"last_close,omitempty"`
	Change       *float64 `json:"change,omitempty"`
	ChangePct    *float64 `json:"change_pct,omitempty"`
	LastForecast *float64 `json:"last_forecast,omitempty"`
	BandWidth    *float64 `json:"band_width,omitempty"`
	ForecastMin  *float64 `json:"forecast_min,omitempty"`
	ForecastMax  *float64 `json:"forecast_max,omitempty"`

	// Scores compare forecast to history where the two overlap, excluding
	// the join position.
	Scores *Scores `json:"scores,omitempty"`
}

const (
	outlierLowerQuantile = 0.25
	outlierUpperQuantile = 0.75
	outlierTukeyFactor   = 1.5
)

func ptr(v float64) *float64 {
	return &v
}

// lastIndexes returns the last two present positions of v, -1 when missing.
func lastIndexes(v timedataset.Values) (int, int) {
	last, prev := -1, -1
	for i := len(v) - 1; i >= 0; i-- {
		if _, ok := v.At(i); !ok {
			continue
		}
		if last < 0 {
			last = i
			continue
		}
		prev = i
		break
	}
	return last, prev
}

// Summarize computes the summary of a bundle.
func Summarize(b *Bundle) *Summary {
	s := &Summary{
		Symbol:         b.Symbol,
		BundleID:       b.ID,
		DataPoints:     b.History.Count(),
		ForecastPoints: b.Forecast.Count(),
		Warnings:       len(b.Warnings),
	}

	s.HistoryOutliers = len(stats.DetectOutliers(b.History, outlierLowerQuantile, outlierUpperQuantile, outlierTukeyFactor))

	last, prev := lastIndexes(b.History)
	if last >= 0 {
		s.LastClose = ptr(b.History[last])
	}
	if prev >= 0 {
		change := b.History[last] - b.History[prev]
		s.Change = ptr(change)
		if b.History[prev] != 0 {
			s.ChangePct = ptr(change / b.History[prev] * 100)
		}
	}

	for i := last + 1; i < len(b.Forecast); i++ {
		if _, ok := b.Forecast.At(i); ok {
			s.ForecastHorizon++
		}
	}

	fLast, _ := lastIndexes(b.Forecast)
	if fLast >= 0 {
		s.LastForecast = ptr(b.Forecast[fLast])
		if w, ok := b.BandWidth().At(fLast); ok {
			s.BandWidth = ptr(w)
		}
	}
	if finite := b.Forecast.Finite(); len(finite) > 0 {
		s.ForecastMin = ptr(floats.Min(finite))
		s.ForecastMax = ptr(floats.Max(finite))
	}

	predicted := make([]float64, len(b.Forecast))
	copy(predicted, b.Forecast)
	if b.JoinIndex != timeline.NoJoin {
		predicted[b.JoinIndex] = timedataset.Null()
	}
	if scores, err := NewScores(predicted, b.History); err == nil {
		s.Scores = scores
	}
	return s
}
