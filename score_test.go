package forecastview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScores(t *testing.T) {
	testData := map[string]struct {
		predicted []float64
		actual    []float64
		expected  *Scores
		err       error
	}{
		"length mismatch": {
			predicted: []float64{1},
			actual:    []float64{1, 2},
			err:       ErrResLenMismatch,
		},
		"no overlap": {
			predicted: []float64{nan, 1},
			actual:    []float64{1, nan},
			err:       ErrNoOverlap,
		},
		"skips nulls": {
			predicted: []float64{nan, 11, 18, 5},
			actual:    []float64{3, 10, 20, nan},
			expected:  &Scores{N: 2, MSE: 2.5, MAPE: 0.1},
		},
		"zero actual skipped for mape": {
			predicted: []float64{1, 2},
			actual:    []float64{0, 4},
			expected:  &Scores{N: 2, MSE: 2.5, MAPE: 0.5},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := NewScores(td.predicted, td.actual)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected.N, res.N)
			assert.InDelta(t, td.expected.MSE, res.MSE, 1e-9)
			assert.InDelta(t, td.expected.MAPE, res.MAPE, 1e-9)
		})
	}
}
