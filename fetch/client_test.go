package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aouyang1/go-forecastview/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	historyBody  = `[{"timestamp":1700000000000,"close":100},{"timestamp":1700003600000,"close":101}]`
	forecastBody = `{"symbol":"BTC/USDT","forecast":[{"ds":"2023-11-14T23:13:20Z","yhat":101,"yhat_lower":99,"yhat_upper":103}]}`
)

type fakeAPI struct {
	mu      sync.Mutex
	paths   []string
	queries []string
	calls   atomic.Int64

	historyStatus  int
	forecastStatus int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		f.paths = append(f.paths, r.URL.EscapedPath())
		f.queries = append(f.queries, r.URL.RawQuery)
		f.mu.Unlock()
	}
	mux.HandleFunc("/history/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if f.historyStatus != 0 {
			w.WriteHeader(f.historyStatus)
			w.Write([]byte(`{"detail":"No history data for BTC/USDT"}`))
			return
		}
		w.Write([]byte(historyBody))
	})
	mux.HandleFunc("/predict/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if f.forecastStatus != 0 {
			w.WriteHeader(f.forecastStatus)
			w.Write([]byte(`{"detail":"System outdated. Worker is down."}`))
			return
		}
		w.Write([]byte(forecastBody))
	})
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Write([]byte(`{"status":"ok","updated_at":"2024-03-01 12:00:00"}`))
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	testData := map[string]struct {
		baseURL string
		err     bool
	}{
		"valid":         {"http://localhost:8000", false},
		"trailingSlash": {"http://localhost:8000/api/", false},
		"empty":         {"  ", true},
		"relative":      {"localhost", true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(td.baseURL)
			if td.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestURL(t *testing.T) {
	c, err := NewClient("http://localhost:8000/")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/history/BTC%2FUSDT", c.URL(EndpointHistory, "BTC/USDT"))
	assert.Equal(t, "http://localhost:8000/predict/ETH%2FUSDT", c.URL(EndpointPredict, "ETH/USDT"))
	assert.Equal(t, "http://localhost:8000/status/SOL", c.URL(EndpointStatus, "SOL"))
}

func TestHistoryAndForecast(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	ctx := context.Background()
	body, err := c.History(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.JSONEq(t, historyBody, string(body))

	body, err = c.Forecast(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.JSONEq(t, forecastBody, string(body))

	assert.Equal(t, []string{"/history/BTC%2FUSDT", "/predict/BTC%2FUSDT"}, api.paths)

	_, err = c.History(ctx, "")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestAPIError(t *testing.T) {
	api := &fakeAPI{historyStatus: http.StatusNotFound, forecastStatus: http.StatusServiceUnavailable}
	c := newTestClient(t, api)

	ctx := context.Background()
	_, err := c.History(ctx, "BTC/USDT")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "No history data for BTC/USDT")

	_, err = c.Forecast(ctx, "BTC/USDT")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "System outdated. Worker is down.", apiErr.Detail)
	assert.False(t, IsNotFound(err))
}

func TestStatus(t *testing.T) {
	testData := map[string]struct {
		timeframe string
		query     string
	}{
		"apiDefault": {timeframe: "", query: ""},
		"hourly":     {timeframe: Timeframe1h, query: "timeframe=1h"},
		"daily":      {timeframe: Timeframe1d, query: "timeframe=1d"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{}
			c := newTestClient(t, api)

			st, err := c.Status(context.Background(), "BTC/USDT", td.timeframe)
			require.NoError(t, err)
			assert.Equal(t, "ok", st.Status)
			assert.Equal(t, "2024-03-01 12:00:00", st.UpdatedAt)
			assert.Equal(t, []string{"/status/BTC%2FUSDT"}, api.paths)
			assert.Equal(t, []string{td.query}, api.queries)
		})
	}
}

func TestBoth(t *testing.T) {
	testData := map[string]struct {
		historyStatus  int
		forecastStatus int
		err            error
		degraded       bool
		hasHistory     bool
		hasForecast    bool
	}{
		"both": {
			hasHistory:  true,
			hasForecast: true,
		},
		"forecastDown": {
			forecastStatus: http.StatusServiceUnavailable,
			degraded:       true,
			hasHistory:     true,
		},
		"historyMissing": {
			historyStatus: http.StatusNotFound,
			degraded:      true,
			hasForecast:   true,
		},
		"bothDown": {
			historyStatus:  http.StatusInternalServerError,
			forecastStatus: http.StatusInternalServerError,
			err:            ErrBothFailed,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, &fakeAPI{historyStatus: td.historyStatus, forecastStatus: td.forecastStatus})

			p, err := c.Both(context.Background(), "BTC/USDT")
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.degraded, p.Degraded())
			assert.Equal(t, td.hasHistory, p.History != nil)
			assert.Equal(t, td.hasForecast, p.Forecast != nil)
		})
	}
}

func TestBothCancelled(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Both(ctx, "BTC/USDT")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrBothFailed)
}

func TestBodyTooLarge(t *testing.T) {
	testData := map[string]struct {
		limit int64
		err   error
	}{
		"underLimit": {limit: int64(len(historyBody))},
		"overLimit":  {limit: int64(len(historyBody)) - 1, err: ErrBodyTooLarge},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, &fakeAPI{}, WithMaxBodyBytes(td.limit))

			body, err := c.History(context.Background(), "BTC/USDT")
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.Nil(t, body)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, historyBody, string(body))
		})
	}
}

type countingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
	errs   int
}

func (o *countingObserver) ObserveFetch(_ string, _ time.Duration, err error, cached bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case err != nil:
		o.errs++
	case cached:
		o.hits++
	default:
		o.misses++
	}
}

func TestCache(t *testing.T) {
	api := &fakeAPI{}
	obs := &countingObserver{}
	store := cache.NewMemory()
	c := newTestClient(t, api, WithCache(store, time.Minute), WithObserver(obs))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.History(ctx, "BTC/USDT")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), api.calls.Load())
	assert.Equal(t, 2, obs.hits)
	assert.Equal(t, 1, obs.misses)

	cached, err := store.Get(ctx, cache.Key(EndpointHistory, "BTC/USDT"))
	require.NoError(t, err)
	assert.JSONEq(t, historyBody, string(cached))

	// status is never cached
	for i := 0; i < 2; i++ {
		_, err := c.Status(ctx, "BTC/USDT", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), api.calls.Load())
}

func TestCacheSkipsFailures(t *testing.T) {
	api := &fakeAPI{forecastStatus: http.StatusServiceUnavailable}
	store := cache.NewMemory()
	c := newTestClient(t, api, WithCache(store, time.Minute))

	ctx := context.Background()
	_, err := c.Forecast(ctx, "BTC/USDT")
	require.Error(t, err)

	_, err = store.Get(ctx, cache.Key(EndpointPredict, "BTC/USDT"))
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestDetail(t *testing.T) {
	testData := map[string]struct {
		body     string
		expected string
	}{
		"string":     {`{"detail":"Data is stale."}`, "Data is stale."},
		"structured": {`{"detail":[{"loc":["path","symbol"]}]}`, `[{"loc":["path","symbol"]}]`},
		"plain":      {"  Internal Server Error\n", "Internal Server Error"},
		"empty":      {"", ""},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, detail([]byte(td.body)))
		})
	}
}
