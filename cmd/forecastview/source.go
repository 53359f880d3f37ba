package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/cache"
	"github.com/aouyang1/go-forecastview/config"
	"github.com/aouyang1/go-forecastview/fetch"
	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/spf13/viper"
)

const (
	demoPoints  = 24 * 14
	demoHorizon = 48
)

// newClient builds the api client with the configured payload cache.
func newClient(ctx context.Context, observer fetch.Observer) (*fetch.Client, func(), error) {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.API.Timeout),
		fetch.WithLogger(logger),
		fetch.WithObserver(observer),
	}
	closeFn := func() {}

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		opts = append(opts, fetch.WithCache(cache.NewMemory(cache.WithMaxSize(cfg.Cache.MaxSize)), cfg.Cache.TTL))
	case config.CacheRedis:
		rc, err := cache.NewRedis(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() {
			if err := rc.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing redis")
			}
		}
		opts = append(opts, fetch.WithCache(rc, cfg.Cache.TTL))
	}

	client, err := fetch.NewClient(cfg.API.BaseURL, opts...)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return client, closeFn, nil
}

// loadInto fills v from demo data, local files or the api, in that order of
// precedence.
func loadInto(ctx context.Context, v *forecastview.View, client *fetch.Client) (*forecastview.Bundle, error) {
	symbol := cfg.Symbol

	if viper.GetBool("demo") {
		history, forecast, err := demoSeries(time.Now)
		if err != nil {
			return nil, err
		}
		b, _, err := v.Load(symbol, history, forecast, nil)
		return b, err
	}

	historyFile, forecastFile := viper.GetString("history-file"), viper.GetString("forecast-file")
	if historyFile != "" || forecastFile != "" {
		historyPayload, err := readOptional(historyFile)
		if err != nil {
			return nil, err
		}
		forecastPayload, err := readOptional(forecastFile)
		if err != nil {
			return nil, err
		}
		b, _, err := v.LoadRecords(symbol, historyPayload, forecastPayload)
		return b, err
	}

	if client == nil {
		return nil, fmt.Errorf("no data source for %s", symbol)
	}
	payloads, err := client.Both(ctx, symbol)
	if err != nil {
		return nil, err
	}
	b, _, err := v.LoadRecords(symbol, payloads.History, payloads.Forecast)
	return b, err
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s, %w", path, err)
	}
	return data, nil
}

// demoSeries generates two weeks of hourly closes with a daily cycle and a
// two day forecast joined at the last close.
func demoSeries(now func() time.Time) (*timedataset.Series, *timedataset.Series, error) {
	n := demoPoints + demoHorizon
	t := timedataset.GenerateTimeline(n, time.Hour, now)
	y := timedataset.GenerateConstY(n, 42000).
		Add(timedataset.GenerateWaveY(t, 600, 86400, 1, 0)).
		Add(timedataset.GenerateWaveY(t, 250, 7*86400, 2, 0)).
		Add(timedataset.GenerateNoise(t, 80))

	history, err := timedataset.GenerateSeries(timedataset.History, t[:demoPoints+1], y[:demoPoints+1], 0)
	if err != nil {
		return nil, nil, err
	}
	forecast, err := timedataset.GenerateSeries(timedataset.Forecast, t[demoPoints:], y[demoPoints:], 300)
	if err != nil {
		return nil, nil, err
	}
	return history, forecast, nil
}
