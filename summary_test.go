package forecastview

import (
	"testing"

	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/aouyang1/go-forecastview/timeline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	testData := map[string]struct {
		bundle   *Bundle
		expected *Summary
	}{
		"history and forecast": {
			bundle: &Bundle{
				Timeline:  timedataset.Timeline{100, 200, 300, 400},
				History:   timedataset.Values{40, 50, nan, nan},
				Forecast:  timedataset.Values{nan, 50, 55, 58},
				Lower:     timedataset.Values{nan, 48, 50, 52},
				Upper:     timedataset.Values{nan, 52, 60, 66},
				JoinIndex: 1,
			},
			expected: &Summary{
				DataPoints:      2,
				ForecastPoints:  3,
				ForecastHorizon: 2,
				LastClose:       ptr(50),
				Change:          ptr(10),
				ChangePct:       ptr(25),
				LastForecast:    ptr(58),
				BandWidth:       ptr(14),
				ForecastMin:     ptr(50),
				ForecastMax:     ptr(58),
			},
		},
		"history only": {
			bundle: &Bundle{
				Timeline:  timedataset.Timeline{100},
				History:   timedataset.Values{10},
				Forecast:  timedataset.Values{nan},
				Lower:     timedataset.Values{nan},
				Upper:     timedataset.Values{nan},
				JoinIndex: timeline.NoJoin,
			},
			expected: &Summary{
				DataPoints: 1,
				LastClose:  ptr(10),
			},
		},
		"forecast only": {
			bundle: &Bundle{
				Timeline:  timedataset.Timeline{100, 200},
				History:   timedataset.Values{nan, nan},
				Forecast:  timedataset.Values{5, 6},
				Lower:     timedataset.Values{4, nan},
				Upper:     timedataset.Values{6, 7},
				JoinIndex: timeline.NoJoin,
			},
			expected: &Summary{
				ForecastPoints:  2,
				ForecastHorizon: 2,
				LastForecast:    ptr(6),
				ForecastMin:     ptr(5),
				ForecastMax:     ptr(6),
			},
		},
		"overlap is scored": {
			bundle: &Bundle{
				Timeline:  timedataset.Timeline{100, 200, 300},
				History:   timedataset.Values{10, 20, 30},
				Forecast:  timedataset.Values{11, 18, nan},
				Lower:     timedataset.Values{10, 17, nan},
				Upper:     timedataset.Values{12, 19, nan},
				JoinIndex: timeline.NoJoin,
			},
			expected: &Summary{
				DataPoints:     3,
				ForecastPoints: 2,
				LastClose:      ptr(30),
				Change:         ptr(10),
				ChangePct:      ptr(50),
				LastForecast:   ptr(18),
				BandWidth:      ptr(2),
				ForecastMin:    ptr(11),
				ForecastMax:    ptr(18),
				Scores:         &Scores{N: 2, MSE: 2.5, MAPE: 0.1},
			},
		},
		"history outliers": {
			bundle: &Bundle{
				Timeline:  timedataset.Timeline{100, 200, 300, 400, 500, 600, 700, 800, 900},
				History:   timedataset.Values{10, 11, 12, 11, 100, 10, 12, 10, 20},
				Forecast:  timedataset.Values{nan, nan, nan, nan, nan, nan, nan, nan, nan},
				Lower:     timedataset.Values{nan, nan, nan, nan, nan, nan, nan, nan, nan},
				Upper:     timedataset.Values{nan, nan, nan, nan, nan, nan, nan, nan, nan},
				JoinIndex: timeline.NoJoin,
			},
			expected: &Summary{
				DataPoints:      9,
				HistoryOutliers: 2,
				LastClose:       ptr(20),
				Change:          ptr(10),
				ChangePct:       ptr(100),
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			td.bundle.ID = uuid.New()
			td.bundle.Symbol = "BTC/USDT"
			td.expected.BundleID = td.bundle.ID
			td.expected.Symbol = "BTC/USDT"

			res := Summarize(td.bundle)
			require.NotNil(t, res)
			assert.Equal(t, td.expected, res)
		})
	}
}
