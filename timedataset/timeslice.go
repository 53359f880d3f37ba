package timedataset

import (
	"errors"
	"math"
	"time"
)

var ErrCannotInferFreq = errors.New("cannot infer frequency from timeline")

// Timeline is an ascending sequence of epoch millisecond timestamps.
type Timeline []int64

func (t Timeline) StartTime() int64 {
	if len(t) < 1 {
		return 0
	}
	return t[0]
}

func (t Timeline) EndTime() int64 {
	if len(t) < 1 {
		return 0
	}
	return t[len(t)-1]
}

// Validate checks that the timeline is strictly increasing.
func (t Timeline) Validate() error {
	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return ErrNonMonotonic
		}
	}
	return nil
}

// Times converts the timeline to time values in the given location.
func (t Timeline) Times(loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	times := make([]time.Time, len(t))
	for i, ts := range t {
		times[i] = time.UnixMilli(ts).In(loc)
	}
	return times
}

// EstimateFreq returns the most common interval between consecutive
// timestamps, preferring the smallest interval on ties.
func (t Timeline) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[int64]int)
	for i := 1; i < len(t); i++ {
		delta := t[i] - t[i-1]
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := int64(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return time.Duration(maxDelta) * time.Millisecond, nil
}
