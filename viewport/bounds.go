package viewport

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-forecastview/timedataset"
	"gonum.org/v1/gonum/floats"
)

// Range is a closed interval on one axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Span() float64 {
	return r.Max - r.Min
}

func (r Range) Center() float64 {
	return (r.Min + r.Max) / 2
}

func (r Range) Contains(o Range) bool {
	return o.Min >= r.Min && o.Max <= r.Max
}

// widen turns an empty range into a unit span around its center.
func (r Range) widen() Range {
	if r.Span() > 0 {
		return r
	}
	c := r.Center()
	return Range{Min: c - 0.5, Max: c + 0.5}
}

// shift moves r by d keeping its span and clamps it inside bounds. A range
// wider than bounds collapses to bounds.
func (r Range) shift(d float64, bounds Range) Range {
	span := r.Span()
	if span >= bounds.Span() {
		return bounds
	}
	out := Range{Min: r.Min + d, Max: r.Max + d}
	if out.Min < bounds.Min {
		out = Range{Min: bounds.Min, Max: bounds.Min + span}
	}
	if out.Max > bounds.Max {
		out = Range{Min: bounds.Max - span, Max: bounds.Max}
	}
	out.Min = math.Max(out.Min, bounds.Min)
	out.Max = math.Min(out.Max, bounds.Max)
	return out
}

// Bounds is the full data range a viewport may show.
type Bounds struct {
	X Range `json:"x"`
	Y Range `json:"y"`
}

func (b Bounds) validate() error {
	for _, r := range []Range{b.X, b.Y} {
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Span(), 0) || !(r.Span() > 0) {
			return fmt.Errorf("range [%g, %g], %w", r.Min, r.Max, ErrEmptyBounds)
		}
	}
	return nil
}

// NewBounds derives the x bounds from the timeline and the y bounds from the
// finite values across all series, widened by padding on each side. A single
// timestamp or a flat series is widened to a unit span.
func NewBounds(tl timedataset.Timeline, padding float64, values ...timedataset.Values) (Bounds, error) {
	if len(tl) == 0 {
		return Bounds{}, fmt.Errorf("empty timeline, %w", ErrEmptyBounds)
	}

	finite := make([]float64, 0, len(tl))
	for _, v := range values {
		finite = append(finite, v.Finite()...)
	}
	if len(finite) == 0 {
		return Bounds{}, fmt.Errorf("no finite values, %w", ErrEmptyBounds)
	}

	x := Range{Min: float64(tl.StartTime()), Max: float64(tl.EndTime())}.widen()
	y := Range{Min: floats.Min(finite), Max: floats.Max(finite)}.widen()
	pad := y.Span() * padding
	y.Min -= pad
	y.Max += pad

	return Bounds{X: x, Y: y}, nil
}
