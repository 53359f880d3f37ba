// Package fetch retrieves history and prediction payloads from the forecast
// API.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aouyang1/go-forecastview/cache"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	EndpointHistory = "history"
	EndpointPredict = "predict"
	EndpointStatus  = "status"

	DefaultTimeout      = 30 * time.Second
	DefaultCacheTTL     = 300 * time.Second
	DefaultMaxBodyBytes = 32 << 20
)

// Timeframes accepted by the status endpoint. Each sets how old the last
// prediction may be before the API reports it stale.
const (
	Timeframe1h = "1h"
	Timeframe4h = "4h"
	Timeframe1d = "1d"
)

var (
	ErrEmptyBaseURL = errors.New("base url is required")
	ErrEmptySymbol  = errors.New("symbol is required")
	ErrBothFailed   = errors.New("history and prediction requests both failed")
	ErrBodyTooLarge = errors.New("response body exceeds the size limit")
)

// APIError is returned for non-2xx responses. Detail carries the API's
// detail message when the body provides one.
type APIError struct {
	Endpoint   string
	Symbol     string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Endpoint, e.Symbol, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Endpoint, e.Symbol, e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Observer receives one call per request.
type Observer interface {
	ObserveFetch(endpoint string, elapsed time.Duration, err error, cached bool)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, time.Duration, error, bool) {}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxBodyBytes caps how much of a response body is read. A non-positive
// n keeps DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithCache stores successful history and prediction bodies for ttl. A
// non-positive ttl uses DefaultCacheTTL.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// Client talks to the forecast API.
type Client struct {
	baseURL  string
	timeout  time.Duration
	http     *http.Client
	cache    cache.Cache
	ttl      time.Duration
	maxBody  int64
	logger   zerolog.Logger
	observer Observer
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parsing base url %q, %w", baseURL, err)
	}

	c := &Client{
		baseURL:  baseURL,
		timeout:  DefaultTimeout,
		ttl:      DefaultCacheTTL,
		maxBody:  DefaultMaxBodyBytes,
		logger:   zerolog.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// URL returns the request url for an endpoint and symbol. The symbol is
// escaped as a single path segment so BTC/USDT becomes BTC%2FUSDT.
func (c *Client) URL(endpoint, symbol string) string {
	return c.baseURL + "/" + endpoint + "/" + url.PathEscape(symbol)
}

// History returns the raw history payload for symbol.
func (c *Client) History(ctx context.Context, symbol string) ([]byte, error) {
	return c.cachedGet(ctx, EndpointHistory, symbol)
}

// Forecast returns the raw prediction payload for symbol.
func (c *Client) Forecast(ctx context.Context, symbol string) ([]byte, error) {
	return c.cachedGet(ctx, EndpointPredict, symbol)
}

// Status describes the freshness of the prediction worker's output.
type Status struct {
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// Status queries the freshness endpoint. An empty timeframe leaves the
// API's default threshold in place. It is never cached.
func (c *Client) Status(ctx context.Context, symbol, timeframe string) (*Status, error) {
	var query url.Values
	if timeframe != "" {
		query = url.Values{"timeframe": []string{timeframe}}
	}
	body, err := c.get(ctx, EndpointStatus, symbol, query)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decoding %s response, %w", EndpointStatus, err)
	}
	return &st, nil
}

// Payloads holds the raw bodies of one load. A nil field means that request
// failed and its error is kept in the matching Err field.
type Payloads struct {
	History     []byte
	Forecast    []byte
	HistoryErr  error
	ForecastErr error
}

// Degraded reports whether only one of the two requests succeeded.
func (p Payloads) Degraded() bool {
	return (p.HistoryErr == nil) != (p.ForecastErr == nil)
}

// Both fetches history and prediction concurrently. A single failure is
// logged and the other payload is still returned so the view can show one
// series; ErrBothFailed is returned only when neither request succeeds.
// Cancelling ctx aborts both requests and returns the context error.
func (c *Client) Both(ctx context.Context, symbol string) (Payloads, error) {
	var out Payloads
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out.History, out.HistoryErr = c.History(gctx, symbol)
		return c.tolerate(gctx, EndpointHistory, symbol, out.HistoryErr)
	})
	g.Go(func() error {
		out.Forecast, out.ForecastErr = c.Forecast(gctx, symbol)
		return c.tolerate(gctx, EndpointPredict, symbol, out.ForecastErr)
	})
	if err := g.Wait(); err != nil {
		return out, fmt.Errorf("fetching %s, %w", symbol, err)
	}

	if out.HistoryErr != nil && out.ForecastErr != nil {
		return out, fmt.Errorf("%w, %w", ErrBothFailed, errors.Join(out.HistoryErr, out.ForecastErr))
	}
	return out, nil
}

// tolerate logs a failed request and lets the other one finish, unless the
// context itself is done.
func (c *Client) tolerate(ctx context.Context, endpoint, symbol string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.logger.Warn().Err(err).Str("endpoint", endpoint).Str("symbol", symbol).Msg("fetch failed")
	return nil
}

func (c *Client) cachedGet(ctx context.Context, endpoint, symbol string) ([]byte, error) {
	if c.cache == nil {
		return c.get(ctx, endpoint, symbol, nil)
	}

	key := cache.Key(endpoint, symbol)
	start := time.Now()
	body, err := c.cache.Get(ctx, key)
	if err == nil {
		c.observer.ObserveFetch(endpoint, time.Since(start), nil, true)
		c.logger.Debug().Str("key", key).Msg("cache hit")
		return body, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	body, err = c.get(ctx, endpoint, symbol, nil)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint, symbol string, query url.Values) (body []byte, err error) {
	start := time.Now()
	defer func() {
		c.observer.ObserveFetch(endpoint, time.Since(start), err, false)
	}()

	if strings.TrimSpace(symbol) == "" {
		return nil, ErrEmptySymbol
	}

	reqURL := c.URL(endpoint, symbol)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request, %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s, %w", reqURL, err)
	}
	defer resp.Body.Close()

	// one byte past the limit tells a full body from a truncated one
	body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s response, %w", endpoint, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%s %s over %d bytes, %w", endpoint, symbol, c.maxBody, ErrBodyTooLarge)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Endpoint:   endpoint,
			Symbol:     symbol,
			StatusCode: resp.StatusCode,
			Detail:     detail(body),
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("symbol", symbol).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched")
	return body, nil
}

// detail extracts the "detail" message from an error body, falling back to
// the trimmed body text.
func detail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256]
	}
	return text
}
