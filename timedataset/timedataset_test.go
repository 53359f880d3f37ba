package timedataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	testData := map[string]struct {
		kind     Kind
		points   []Point
		expected *Series
		err      error
	}{
		"empty series": {
			kind:     Forecast,
			expected: &Series{Kind: Forecast},
		},
		"unknown kind": {
			kind: Kind(7),
			err:  ErrUnknownKind,
		},
		"non increasing time": {
			kind: History,
			points: []Point{
				{Timestamp: 200, Value: 1},
				{Timestamp: 100, Value: 2},
			},
			err: ErrNonMonotonic,
		},
		"duplicate time": {
			kind: History,
			points: []Point{
				{Timestamp: 100, Value: 1},
				{Timestamp: 100, Value: 2},
			},
			err: ErrNonMonotonic,
		},
		"null value": {
			kind: History,
			points: []Point{
				{Timestamp: 100, Value: math.NaN()},
			},
			err: ErrNullValue,
		},
		"valid": {
			kind: Forecast,
			points: []Point{
				NewForecastPoint(100, 50, 48, 52),
				NewForecastPoint(200, 55, 50, 60),
			},
			expected: &Series{
				Kind: Forecast,
				Points: []Point{
					{Timestamp: 100, Value: 50, Lower: 48, Upper: 52},
					{Timestamp: 200, Value: 55, Lower: 50, Upper: 60},
				},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s, err := NewSeries(td.kind, td.points)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, s)
		})
	}
}

func TestSeriesCopy(t *testing.T) {
	points := []Point{
		NewForecastPoint(100, 50, 48, 52),
		NewForecastPoint(200, 55, 50, 60),
	}
	s, err := NewSeries(Forecast, points)
	require.NoError(t, err)

	points[0].Value = 1
	assert.Equal(t, 50.0, s.Points[0].Value, "constructor must not alias input")

	next := s.Copy()
	require.Equal(t, s, next)

	next.Points[1].Value = 0
	assert.NotEqual(t, s, next)
}

func TestSeriesAccessors(t *testing.T) {
	var empty *Series
	assert.Equal(t, 0, empty.Len())
	_, err := empty.First()
	assert.ErrorIs(t, err, ErrEmptySeries)
	_, err = empty.Last()
	assert.ErrorIs(t, err, ErrEmptySeries)

	s, err := NewSeries(History, []Point{
		NewHistoryPoint(100, 1),
		NewHistoryPoint(200, 2),
	})
	require.NoError(t, err)

	first, err := s.First()
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.Timestamp)

	last, err := s.Last()
	require.NoError(t, err)
	assert.Equal(t, int64(200), last.Timestamp)

	assert.Equal(t, Timeline{100, 200}, s.Timeline())
	assert.Equal(t, Values{1, 2}, s.Values())
	assert.Equal(t, "history", s.Kind.String())
}
