// Package timeline merges a history series and a forecast series onto one
// sorted, deduplicated timeline with per-series value arrays aligned to it.
package timeline

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-forecastview/timedataset"
)

var (
	ErrNoData    = errors.New("history and forecast are both empty")
	ErrWrongKind = errors.New("series has the wrong kind")
)

// NoJoin is the JoinIndex of a merge where history and forecast do not share
// a boundary timestamp.
const NoJoin = -1

// Merged is the result of a merge. History and Forecast have the same length
// as Timeline with null marking positions the series does not cover.
type Merged struct {
	Timeline  timedataset.Timeline
	History   timedataset.Values
	Forecast  timedataset.Values
	JoinIndex int
}

// Merge walks both already-sorted series once and places every distinct
// timestamp on the timeline. When the last history timestamp equals the first
// forecast timestamp the two share one position and the history value is
// copied into the forecast array there so the two lines connect. Other shared
// timestamps keep each series' own value.
func Merge(history, forecast *timedataset.Series) (*Merged, error) {
	if history != nil && history.Kind != timedataset.History {
		return nil, fmt.Errorf("history got %s, %w", history.Kind, ErrWrongKind)
	}
	if forecast != nil && forecast.Kind != timedataset.Forecast {
		return nil, fmt.Errorf("forecast got %s, %w", forecast.Kind, ErrWrongKind)
	}
	n, m := history.Len(), forecast.Len()
	if n == 0 && m == 0 {
		return nil, ErrNoData
	}
	if err := history.Validate(); err != nil {
		return nil, err
	}
	if err := forecast.Validate(); err != nil {
		return nil, err
	}

	size := n + m
	res := &Merged{
		Timeline:  make(timedataset.Timeline, 0, size),
		History:   make(timedataset.Values, 0, size),
		Forecast:  make(timedataset.Values, 0, size),
		JoinIndex: NoJoin,
	}
	null := timedataset.Null()

	var i, j int
	for i < n || j < m {
		switch {
		case j >= m || (i < n && history.Points[i].Timestamp < forecast.Points[j].Timestamp):
			res.Timeline = append(res.Timeline, history.Points[i].Timestamp)
			res.History = append(res.History, history.Points[i].Value)
			res.Forecast = append(res.Forecast, null)
			i++
		case i >= n || forecast.Points[j].Timestamp < history.Points[i].Timestamp:
			res.Timeline = append(res.Timeline, forecast.Points[j].Timestamp)
			res.History = append(res.History, null)
			res.Forecast = append(res.Forecast, forecast.Points[j].Value)
			j++
		default:
			idx := len(res.Timeline)
			hv, fv := history.Points[i].Value, forecast.Points[j].Value
			if i == n-1 && j == 0 {
				res.JoinIndex = idx
				fv = hv
			}
			res.Timeline = append(res.Timeline, history.Points[i].Timestamp)
			res.History = append(res.History, hv)
			res.Forecast = append(res.Forecast, fv)
			i++
			j++
		}
	}
	return res, nil
}
