// Package normalize converts raw history and forecast records into validated
// timedataset series. Bad records are dropped one at a time and reported as
// data-quality warnings; a batch never fails because of a single record.
package normalize

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aouyang1/go-forecastview/quality"
	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/rs/zerolog"
)

var ErrMalformedRecord = errors.New("malformed record")

// Normalizer turns raw records into series.
type Normalizer struct {
	logger zerolog.Logger
}

// New returns a Normalizer that logs dropped records to logger.
func New(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "normalizer").Logger(),
	}
}

// History normalizes raw history records into a History series.
func (n *Normalizer) History(records []HistoryRecord) (*timedataset.Series, []quality.Warning, error) {
	report := &quality.Report{}
	points := make([]timedataset.Point, 0, len(records))
	for i, r := range records {
		ts, err := r.timestamp().Millis()
		if err != nil {
			n.drop(report, timedataset.History, i, 0, err)
			continue
		}
		v := r.value()
		if !v.Valid {
			n.drop(report, timedataset.History, i, ts, fmt.Errorf("missing close, %w", ErrMalformedRecord))
			continue
		}
		points = append(points, timedataset.NewHistoryPoint(ts, v.Value))
	}
	return n.finish(timedataset.History, points, report)
}

// Forecast normalizes raw forecast records into a Forecast series. A missing
// bound leaves that side of the point without a band value.
func (n *Normalizer) Forecast(records []ForecastRecord) (*timedataset.Series, []quality.Warning, error) {
	report := &quality.Report{}
	points := make([]timedataset.Point, 0, len(records))
	for i, r := range records {
		ts, err := r.timestamp().Millis()
		if err != nil {
			n.drop(report, timedataset.Forecast, i, 0, err)
			continue
		}
		if !r.Yhat.Valid {
			n.drop(report, timedataset.Forecast, i, ts, fmt.Errorf("missing yhat, %w", ErrMalformedRecord))
			continue
		}
		lower, upper := timedataset.Null(), timedataset.Null()
		if r.YhatLower.Valid {
			lower = r.YhatLower.Value
		}
		if r.YhatUpper.Valid {
			upper = r.YhatUpper.Value
		}
		points = append(points, timedataset.NewForecastPoint(ts, r.Yhat.Value, lower, upper))
	}
	return n.finish(timedataset.Forecast, points, report)
}

func (n *Normalizer) drop(report *quality.Report, kind timedataset.Kind, idx int, ts int64, err error) {
	report.Add(quality.Warning{
		Kind:      quality.MalformedRecord,
		Series:    kind.String(),
		Index:     idx,
		Timestamp: ts,
		Message:   "dropped: " + err.Error(),
	})
	n.logger.Warn().
		Err(err).
		Str("series", kind.String()).
		Int("index", idx).
		Msg("dropping malformed record")
}

// finish sorts the points, keeps the last occurrence of duplicate timestamps,
// and builds the series.
func (n *Normalizer) finish(kind timedataset.Kind, points []timedataset.Point, report *quality.Report) (*timedataset.Series, []quality.Warning, error) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})

	deduped := points[:0]
	for _, p := range points {
		last := len(deduped) - 1
		if last >= 0 && deduped[last].Timestamp == p.Timestamp {
			report.Add(quality.Warning{
				Kind:      quality.DuplicateTimestamp,
				Series:    kind.String(),
				Index:     last,
				Timestamp: p.Timestamp,
				Message:   "earlier record replaced by a later one",
			})
			deduped[last] = p
			continue
		}
		deduped = append(deduped, p)
	}
	if dups := report.Count(quality.DuplicateTimestamp); dups > 0 {
		n.logger.Debug().
			Str("series", kind.String()).
			Int("duplicates", dups).
			Msg("collapsed duplicate timestamps")
	}

	s, err := timedataset.NewSeries(kind, deduped)
	if err != nil {
		return nil, report.Warnings(), fmt.Errorf("unable to build %s series, %w", kind, err)
	}
	return s, report.Warnings(), nil
}

// Records decodes and normalizes raw history and forecast payloads in one
// step. Either payload may be nil to skip that series.
func (n *Normalizer) Records(historyPayload, forecastPayload []byte) (*timedataset.Series, *timedataset.Series, []quality.Warning, error) {
	var (
		history, forecast = &timedataset.Series{Kind: timedataset.History}, &timedataset.Series{Kind: timedataset.Forecast}
		warnings          []quality.Warning
	)
	if len(historyPayload) > 0 {
		records, err := DecodeHistory(historyPayload)
		if err != nil {
			return nil, nil, nil, err
		}
		s, w, err := n.History(records)
		if err != nil {
			return nil, nil, nil, err
		}
		history = s
		warnings = append(warnings, w...)
	}
	if len(forecastPayload) > 0 {
		records, err := DecodeForecast(forecastPayload)
		if err != nil {
			return nil, nil, nil, err
		}
		s, w, err := n.Forecast(records)
		if err != nil {
			return nil, nil, nil, err
		}
		forecast = s
		warnings = append(warnings, w...)
	}
	return history, forecast, warnings, nil
}
