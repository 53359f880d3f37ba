package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateTimeline returns n timestamps spaced by interval and ending one
// interval before the minute-truncated current time.
func GenerateTimeline(n int, interval time.Duration, nowFunc func() time.Time) Timeline {
	t := make(Timeline, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)).UnixMilli())
	}
	return t
}

// Extend returns n timestamps continuing the timeline at interval, starting at
// the timeline's last timestamp when includeLast is set.
func (t Timeline) Extend(n int, interval time.Duration, includeLast bool) Timeline {
	out := make(Timeline, 0, n+1)
	last := t.EndTime()
	if includeLast && len(t) > 0 {
		out = append(out, last)
	}
	step := interval.Milliseconds()
	for i := 1; i <= n; i++ {
		out = append(out, last+int64(i)*step)
	}
	return out
}

func (v Values) Add(src Values) Values {
	floats.Add(v, src)
	return v
}

func (v Values) SetConst(t Timeline, val float64, start, end int64) Values {
	n := len(v)
	for i := 0; i < n; i++ {
		if t[i] >= start && t[i] < end {
			v[i] = val
		}
	}
	return v
}

func GenerateConstY(n int, val float64) Values {
	y := make(Values, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return y
}

func GenerateWaveY(t Timeline, amp, periodSec, order, timeOffset float64) Values {
	n := len(t)
	y := make(Values, 0, n)
	for i := 0; i < n; i++ {
		sec := float64(t[i]) / 1000.0
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(sec+timeOffset))
		y = append(y, val)
	}
	return y
}

func GenerateNoise(t Timeline, noiseScale float64) Values {
	n := len(t)
	y := make(Values, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rand.NormFloat64()*noiseScale)
	}
	return y
}

// GenerateSeries pairs a timeline with values into a series. Bounds are set
// to value -/+ spread for forecasts.
func GenerateSeries(kind Kind, t Timeline, y Values, spread float64) (*Series, error) {
	points := make([]Point, len(t))
	for i := range t {
		if kind == Forecast {
			points[i] = NewForecastPoint(t[i], y[i], y[i]-spread, y[i]+spread)
			continue
		}
		points[i] = NewHistoryPoint(t[i], y[i])
	}
	return NewSeries(kind, points)
}
