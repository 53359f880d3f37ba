package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/fetch"
	"github.com/aouyang1/go-forecastview/metrics"
	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/aouyang1/go-forecastview/viewport"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type stateData struct {
	BundleID string `json:"bundle_id"`
	Viewport struct {
		Mode       string          `json:"mode"`
		XRange     json.RawMessage `json:"x_range"`
		ZoomFactor float64         `json:"zoom_factor"`
	} `json:"viewport"`
	Bounds struct {
		X struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"x"`
	} `json:"bounds"`
}

func loadedView(t *testing.T, opt *forecastview.Options) (*forecastview.View, *forecastview.Bundle) {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	tl := timedataset.GenerateTimeline(48, time.Hour, now)
	y := timedataset.GenerateConstY(48, 100).Add(timedataset.GenerateWaveY(tl, 5, 86400, 1, 0))

	history, err := timedataset.GenerateSeries(timedataset.History, tl[:37], y[:37], 0)
	require.NoError(t, err)
	forecast, err := timedataset.GenerateSeries(timedataset.Forecast, tl[36:], y[36:], 2)
	require.NoError(t, err)

	v := forecastview.New(opt, zerolog.Nop())
	b, _, err := v.Load("BTC/USDT", history, forecast, nil)
	require.NoError(t, err)
	return v, b
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, rawResponse, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp rawResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp, rec.Body.String()
}

func TestEmptyView(t *testing.T) {
	s := New(forecastview.New(nil, zerolog.Nop()), zerolog.Nop(), WithGatherer(prometheus.NewRegistry()))
	h := s.Handler()

	for _, path := range []string{"/api/bundle", "/api/viewport", "/api/summary", "/chart"} {
		code, resp, _ := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.Equal(t, http.StatusNotFound, resp.Status, path)
	}

	code, _, body := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"loaded":false`)

	code, _, _ = do(t, h, http.MethodPost, "/api/viewport/reset", fmt.Sprintf(`{"bundle_id":%q}`, uuid.New()))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBundle(t *testing.T) {
	v, b := loadedView(t, nil)
	h := New(v, zerolog.Nop()).Handler()

	code, resp, _ := do(t, h, http.MethodGet, "/api/bundle", "")
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Bundle struct {
			ID        string     `json:"id"`
			Symbol    string     `json:"symbol"`
			History   []*float64 `json:"history"`
			Forecast  []*float64 `json:"forecast"`
			JoinIndex int        `json:"join_index"`
		} `json:"bundle"`
		Viewport struct {
			Mode   string `json:"mode"`
			XRange string `json:"x_range"`
		} `json:"viewport"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, b.ID.String(), data.Bundle.ID)
	assert.Equal(t, "BTC/USDT", data.Bundle.Symbol)
	assert.Equal(t, 36, data.Bundle.JoinIndex)
	assert.Len(t, data.Bundle.History, 48)
	assert.Nil(t, data.Bundle.History[47], "history is null past the join")
	assert.Nil(t, data.Bundle.Forecast[0], "forecast is null before the join")
	assert.Equal(t, "auto", data.Viewport.Mode)
	assert.Equal(t, "auto", data.Viewport.XRange)
}

func TestGestures(t *testing.T) {
	opt := forecastview.NewDefaultOptions()
	opt.ViewportOptions.MaxZoom = 2
	v, b := loadedView(t, opt)
	reg := prometheus.NewRegistry()
	v.SetRecorder(metrics.New(reg))
	h := New(v, zerolog.Nop(), WithGatherer(reg)).Handler()
	id := b.ID.String()

	testData := []struct {
		name   string
		path   string
		body   string
		status int
		mode   string
	}{
		{"smallPanIgnored", "/api/viewport/pan", fmt.Sprintf(`{"bundle_id":%q,"dx":2,"dy":1}`, id), http.StatusOK, "auto"},
		{"zoomIn", "/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"scale":2}`, id), http.StatusOK, "manual"},
		{"zoomAtMax", "/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"scale":2}`, id), http.StatusUnprocessableEntity, "manual"},
		{"pan", "/api/viewport/pan", fmt.Sprintf(`{"bundle_id":%q,"dx":-100,"dy":0,"width":800,"height":400}`, id), http.StatusOK, "manual"},
		{"wheelOut", "/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"delta":500,"axis":"x"}`, id), http.StatusOK, "manual"},
		{"stale", "/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"scale":1.5}`, uuid.New()), http.StatusConflict, "manual"},
		{"invalidFactor", "/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"scale":-1}`, id), http.StatusBadRequest, ""},
		{"reset", "/api/viewport/reset", fmt.Sprintf(`{"bundle_id":%q}`, id), http.StatusOK, "auto"},
	}

	// cases run in order against one view
	for _, td := range testData {
		code, resp, body := do(t, h, http.MethodPost, td.path, td.body)
		require.Equal(t, td.status, code, "%s: %s", td.name, body)
		if td.mode == "" {
			continue
		}
		var data stateData
		require.NoError(t, json.Unmarshal(resp.Data, &data), td.name)
		assert.Equal(t, td.mode, data.Viewport.Mode, td.name)
		assert.Equal(t, id, data.BundleID, td.name)
	}

	code, _, body := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `forecastview_gestures_total{gesture="zoom",result="degenerate"} 1`)
	assert.Contains(t, body, `forecastview_gestures_total{gesture="zoom",result="stale"} 1`)
	assert.Contains(t, body, `forecastview_gestures_total{gesture="reset",result="ok"} 1`)
}

func TestStaleGestureResync(t *testing.T) {
	v, first := loadedView(t, nil)
	h := New(v, zerolog.Nop()).Handler()

	now := func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	tl := timedataset.GenerateTimeline(10, time.Hour, now)
	history, err := timedataset.GenerateSeries(timedataset.History, tl, timedataset.GenerateConstY(10, 50), 0)
	require.NoError(t, err)
	second, _, err := v.Load("ETH/USDT", history, &timedataset.Series{Kind: timedataset.Forecast}, nil)
	require.NoError(t, err)

	code, resp, body := do(t, h, http.MethodPost, "/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"scale":2}`, first.ID))
	require.Equal(t, http.StatusConflict, code, body)

	var data stateData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, second.ID.String(), data.BundleID)
	assert.Equal(t, "auto", data.Viewport.Mode)
	assert.Equal(t, float64(second.Timeline.StartTime()), data.Bounds.X.Min)
	assert.Equal(t, float64(second.Timeline.EndTime()), data.Bounds.X.Max)

	code, resp, _ = do(t, h, http.MethodGet, "/api/viewport", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, second.ID.String(), data.BundleID)
}

func TestInvalidRequests(t *testing.T) {
	v, b := loadedView(t, nil)
	h := New(v, zerolog.Nop()).Handler()
	id := b.ID.String()

	testData := map[string]struct {
		path string
		body string
	}{
		"missingID":     {"/api/viewport/reset", `{}`},
		"badID":         {"/api/viewport/reset", `{"bundle_id":"abc"}`},
		"badJSON":       {"/api/viewport/pan", `{"bundle_id":`},
		"wrongType":     {"/api/viewport/pan", fmt.Sprintf(`{"bundle_id":%q,"dx":"left"}`, id)},
		"noZoomAmount":  {"/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q}`, id)},
		"bothAmounts":   {"/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"delta":1,"scale":2}`, id)},
		"halfFocus":     {"/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"scale":2,"focus_x":1}`, id)},
		"badAxis":       {"/api/viewport/zoom", fmt.Sprintf(`{"bundle_id":%q,"scale":2,"axis":"z"}`, id)},
		"negativeWidth": {"/api/viewport/pan", fmt.Sprintf(`{"bundle_id":%q,"dx":10,"width":-5}`, id)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			code, resp, body := do(t, h, http.MethodPost, td.path, td.body)
			assert.Equal(t, http.StatusBadRequest, code, body)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
		})
	}

	_, st, err := v.Current()
	require.NoError(t, err)
	assert.Equal(t, viewport.Auto, st.Mode, "rejected requests leave the viewport alone")
}

func TestChart(t *testing.T) {
	v, _ := loadedView(t, nil)
	h := New(v, zerolog.Nop()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/chart", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
	assert.Contains(t, rec.Body.String(), "Forecast Band Width")
}

type fakeLoader struct {
	payloads fetch.Payloads
	err      error
}

func (f *fakeLoader) Both(context.Context, string) (fetch.Payloads, error) {
	return f.payloads, f.err
}

func TestReload(t *testing.T) {
	history := `[{"timestamp":1700000000000,"close":100},{"timestamp":1700003600000,"close":101},{"timestamp":1700007200000,"close":102}]`
	forecast := `{"symbol":"ETH/USDT","forecast":[{"ds":1700007200000,"yhat":102,"yhat_lower":100,"yhat_upper":104},{"ds":1700010800000,"yhat":103,"yhat_lower":101,"yhat_upper":105}]}`

	testData := map[string]struct {
		loader   Loader
		status   int
		points   int
		warnings int
	}{
		"both": {
			loader: &fakeLoader{payloads: fetch.Payloads{History: []byte(history), Forecast: []byte(forecast)}},
			status: http.StatusOK,
			points: 4,
		},
		"degraded": {
			loader: &fakeLoader{payloads: fetch.Payloads{
				History:     []byte(history),
				ForecastErr: &fetch.APIError{Endpoint: "predict", Symbol: "ETH/USDT", StatusCode: 503, Detail: "Worker is down."},
			}},
			status:   http.StatusOK,
			points:   3,
			warnings: 1,
		},
		"upstreamDown": {
			loader: &fakeLoader{err: fetch.ErrBothFailed},
			status: http.StatusBadGateway,
		},
		"noData": {
			loader: &fakeLoader{payloads: fetch.Payloads{History: []byte(`[]`), Forecast: []byte(`[]`)}},
			status: http.StatusNotFound,
		},
		"noLoader": {
			status: http.StatusNotImplemented,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			v, prev := loadedView(t, nil)
			var opts []Option
			if td.loader != nil {
				opts = append(opts, WithLoader(td.loader))
			}
			h := New(v, zerolog.Nop(), opts...).Handler()

			code, resp, body := do(t, h, http.MethodPost, "/api/reload/ETH%2FUSDT", "")
			require.Equal(t, td.status, code, body)

			cur, _, err := v.Current()
			require.NoError(t, err)
			if td.status != http.StatusOK {
				assert.Equal(t, prev.ID, cur.ID, "failed reload keeps the previous bundle")
				return
			}

			var data struct {
				Bundle struct {
					ID       string   `json:"id"`
					Symbol   string   `json:"symbol"`
					Timeline []string `json:"timeline"`
				} `json:"bundle"`
				Warnings []string `json:"warnings"`
			}
			require.NoError(t, json.Unmarshal(resp.Data, &data))
			assert.Equal(t, cur.ID.String(), data.Bundle.ID)
			assert.NotEqual(t, prev.ID, cur.ID)
			assert.Equal(t, "ETH/USDT", data.Bundle.Symbol)
			assert.Len(t, data.Bundle.Timeline, td.points)
			assert.Len(t, data.Warnings, td.warnings)
		})
	}
}

func TestStatusOf(t *testing.T) {
	testData := map[string]struct {
		err      error
		expected int
	}{
		"stale":      {fmt.Errorf("zoom, %w", forecastview.ErrStaleBundle), http.StatusConflict},
		"degenerate": {viewport.ErrRangeDegenerate, http.StatusUnprocessableEntity},
		"invalid":    {viewport.ErrInvalidGesture, http.StatusBadRequest},
		"noBundle":   {forecastview.ErrNoBundle, http.StatusNotFound},
		"other":      {errors.New("boom"), http.StatusInternalServerError},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, statusOf(td.err))
		})
	}
}
