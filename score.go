package forecastview

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrResLenMismatch = errors.New("predicted and actual have different lengths")
	ErrNoOverlap      = errors.New("predicted and actual share no positions")
)

// Scores measure how closely the forecast tracked history on the positions
// where both are present.
type Scores struct {
	N    int     `json:"n"`    // positions scored
	MSE  float64 `json:"mse"`  // mean squared error
	MAPE float64 `json:"mape"` // mean absolute percent error
}

func NewScores(predicted, actual []float64) (*Scores, error) {
	if len(predicted) != len(actual) {
		return nil, ErrResLenMismatch
	}
	mse, n, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, _, err := MAPE(predicted, actual)
	if err != nil && !errors.Is(err, ErrNoOverlap) {
		return nil, fmt.Errorf("unable to compute mean absolute percent error, %w", err)
	}
	return &Scores{
		N:    n,
		MSE:  mse,
		MAPE: mape,
	}, nil
}

// MSE returns the mean squared error over positions where both values are
// present, along with the number of such positions.
func MSE(predicted, actual []float64) (float64, int, error) {
	if len(predicted) != len(actual) {
		return 0, 0, ErrResLenMismatch
	}

	sq := make([]float64, 0, len(actual))
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sq = append(sq, math.Pow(actual[i]-predicted[i], 2.0))
	}
	if len(sq) == 0 {
		return 0, 0, ErrNoOverlap
	}
	return stat.Mean(sq, nil), len(sq), nil
}

// MAPE returns the mean absolute percent error over positions where both
// values are present and actual is non-zero.
func MAPE(predicted, actual []float64) (float64, int, error) {
	if len(predicted) != len(actual) {
		return 0, 0, ErrResLenMismatch
	}

	pct := make([]float64, 0, len(actual))
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) || actual[i] == 0 {
			continue
		}
		pct = append(pct, math.Abs((actual[i]-predicted[i])/actual[i]))
	}
	if len(pct) == 0 {
		return 0, 0, ErrNoOverlap
	}
	return stat.Mean(pct, nil), len(pct), nil
}
