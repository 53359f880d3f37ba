// Package band derives the fill-between confidence band from forecast bounds,
// aligned to a merged timeline.
package band

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-forecastview/quality"
	"github.com/aouyang1/go-forecastview/timedataset"
	"gonum.org/v1/gonum/floats"
)

var ErrTimelineMismatch = errors.New("forecast timestamp is not on the timeline")

// Bands holds the upper and lower band arrays, both the same length as the
// timeline they were composed against.
type Bands struct {
	Upper    timedataset.Values
	Lower    timedataset.Values
	Warnings []quality.Warning
}

// Width returns upper - lower per position, null where either side is null.
func (b *Bands) Width() timedataset.Values {
	width := make(timedataset.Values, len(b.Upper))
	floats.SubTo(width, b.Upper, b.Lower)
	return width
}

// Compose walks the timeline and forecast together. Positions without a
// forecast point stay null. Inverted bounds are swapped and reported.
func Compose(tl timedataset.Timeline, forecast *timedataset.Series) (*Bands, error) {
	res := &Bands{
		Upper: timedataset.NewNullValues(len(tl)),
		Lower: timedataset.NewNullValues(len(tl)),
	}
	if forecast.Len() == 0 {
		return res, nil
	}

	report := &quality.Report{}
	var i int
	for j, p := range forecast.Points {
		for i < len(tl) && tl[i] < p.Timestamp {
			i++
		}
		if i >= len(tl) || tl[i] != p.Timestamp {
			return nil, fmt.Errorf("forecast point %d at %d, %w", j, p.Timestamp, ErrTimelineMismatch)
		}

		lower, upper := p.Lower, p.Upper
		if !timedataset.IsNull(lower) && !timedataset.IsNull(upper) && upper < lower {
			report.Add(quality.Warning{
				Kind:      quality.BoundsInverted,
				Series:    timedataset.Forecast.String(),
				Index:     j,
				Timestamp: p.Timestamp,
				Message:   fmt.Sprintf("upper %g below lower %g, swapped", upper, lower),
			})
			lower, upper = upper, lower
		}
		res.Lower[i] = lower
		res.Upper[i] = upper
		i++
	}
	res.Warnings = report.Warnings()
	return res, nil
}
