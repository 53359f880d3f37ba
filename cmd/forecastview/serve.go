package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/metrics"
	"github.com/aouyang1/go-forecastview/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chart, viewport gestures and metrics over http.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	if err := viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	client, closeFn, err := newClient(ctx, recorder)
	if err != nil {
		return err
	}
	defer closeFn()

	v := forecastview.New(cfg.ViewOptions(), logger)
	v.SetRecorder(recorder)

	// the server still starts without data so /api/reload can fill it later
	if _, err := loadInto(ctx, v, client); err != nil {
		logger.Warn().Err(err).Str("symbol", cfg.Symbol).Msg("initial load failed")
	}

	srv := server.New(v, logger,
		server.WithLoader(client),
		server.WithGatherer(reg),
		server.WithMetricsPath(cfg.Server.MetricsPath),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
