package timedataset

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNonMonotonic = errors.New("timestamps are not strictly increasing")
	ErrNullValue    = errors.New("source point has a null value")
	ErrUnknownKind  = errors.New("unknown series kind")
	ErrEmptySeries  = errors.New("series has no points")
)

// Kind tags a series as observed history or model forecast.
type Kind int

const (
	History Kind = iota
	Forecast
)

func (k Kind) String() string {
	switch k {
	case History:
		return "history"
	case Forecast:
		return "forecast"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Point is a single normalized observation. Timestamp is epoch milliseconds.
// Lower and Upper are NaN when the point carries no uncertainty bounds.
type Point struct {
	Timestamp int64
	Value     float64
	Lower     float64
	Upper     float64
}

// NewHistoryPoint returns a point without bounds.
func NewHistoryPoint(ts int64, value float64) Point {
	return Point{
		Timestamp: ts,
		Value:     value,
		Lower:     Null(),
		Upper:     Null(),
	}
}

// NewForecastPoint returns a point carrying a predicted value and its bounds.
func NewForecastPoint(ts int64, value, lower, upper float64) Point {
	return Point{
		Timestamp: ts,
		Value:     value,
		Lower:     lower,
		Upper:     upper,
	}
}

// HasBounds reports whether both bounds are present.
func (p Point) HasBounds() bool {
	return !IsNull(p.Lower) && !IsNull(p.Upper)
}

// Series is an ordered sequence of points of a single kind. Series values
// produced by NewSeries own their points and must be treated as read-only.
type Series struct {
	Kind   Kind
	Points []Point
}

// NewSeries validates and copies the points into a new Series. An empty
// point slice is valid and yields an empty series.
func NewSeries(kind Kind, points []Point) (*Series, error) {
	if kind != History && kind != Forecast {
		return nil, fmt.Errorf("%d, %w", int(kind), ErrUnknownKind)
	}

	s := &Series{Kind: kind}
	if len(points) > 0 {
		s.Points = make([]Point, len(points))
		copy(s.Points, points)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that timestamps strictly increase and that no point has a
// null value.
func (s *Series) Validate() error {
	if s == nil {
		return nil
	}
	for i, p := range s.Points {
		if IsNull(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%s point at %d, %w", s.Kind, p.Timestamp, ErrNullValue)
		}
		if i > 0 && p.Timestamp <= s.Points[i-1].Timestamp {
			return fmt.Errorf("%s non-monotonic at %d, %w", s.Kind, i, ErrNonMonotonic)
		}
	}
	return nil
}

// Len returns the number of points, treating a nil series as empty.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// First returns the earliest point.
func (s *Series) First() (Point, error) {
	if s.Len() == 0 {
		return Point{}, ErrEmptySeries
	}
	return s.Points[0], nil
}

// Last returns the latest point.
func (s *Series) Last() (Point, error) {
	if s.Len() == 0 {
		return Point{}, ErrEmptySeries
	}
	return s.Points[len(s.Points)-1], nil
}

// Timeline returns the timestamps of the series.
func (s *Series) Timeline() Timeline {
	t := make(Timeline, s.Len())
	for i := 0; i < s.Len(); i++ {
		t[i] = s.Points[i].Timestamp
	}
	return t
}

// Values returns the point values of the series.
func (s *Series) Values() Values {
	v := make(Values, s.Len())
	for i := 0; i < s.Len(); i++ {
		v[i] = s.Points[i].Value
	}
	return v
}

func (s *Series) Copy() *Series {
	if s == nil {
		return nil
	}
	points := make([]Point, len(s.Points))
	copy(points, s.Points)
	return &Series{
		Kind:   s.Kind,
		Points: points,
	}
}
