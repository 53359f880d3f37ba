// Package stats flags unusual values in a series.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MinOutlierPoints is the fewest finite values fences are computed from.
const MinOutlierPoints = 4

var (
	ErrTooFewPoints  = errors.New("not enough finite values to compute fences")
	ErrInvalidFences = errors.New("quantiles must satisfy 0 <= lower < upper <= 1")
)

// Fences bound the usual range of a series. Values strictly outside are
// outliers.
type Fences struct {
	Lower float64
	Upper float64
}

func (f Fences) Contains(v float64) bool {
	return v >= f.Lower && v <= f.Upper
}

// TukeyFences widens the range between the lower and upper quantiles of y by
// tukeyFactor times that range on each side. NaN values are ignored.
func TukeyFences(y []float64, lowerPerc, upperPerc, tukeyFactor float64) (Fences, error) {
	if !(lowerPerc >= 0 && lowerPerc < upperPerc && upperPerc <= 1) {
		return Fences{}, ErrInvalidFences
	}

	sorted := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) < MinOutlierPoints {
		return Fences{}, ErrTooFewPoints
	}
	sort.Float64s(sorted)

	lower := stat.Quantile(lowerPerc, stat.Empirical, sorted, nil)
	upper := stat.Quantile(upperPerc, stat.Empirical, sorted, nil)
	inner := (upper - lower) * math.Max(tukeyFactor, 0)
	return Fences{Lower: lower - inner, Upper: upper + inner}, nil
}

// DetectOutliers returns the indexes of y outside its Tukey fences. Series
// too short to fence have no outliers.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	fences, err := TukeyFences(y, lowerPerc, upperPerc, tukeyFactor)
	if err != nil {
		return nil
	}

	var outlierIdx []int
	for i, v := range y {
		if math.IsNaN(v) || fences.Contains(v) {
			continue
		}
		outlierIdx = append(outlierIdx, i)
	}
	return outlierIdx
}
