package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/app"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/appconf"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/clock"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/feed"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/metrics"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/restapi"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/webui"
)

const shutdownTimeout = 30 * time.Second

// BuildApplication wires the feed, the reconciler and the sensor for cfg.
// Logs go to stderr so poll output stays clean.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	logger := logging.NewLogger(os.Stderr, cfg.LogFormat, cfg.Verbose)
	m := metrics.NewWithLogger(logger)
	clk := clock.RealClock{}

	source, decoder, err := feed.New(cfg, feed.NewClient(cfg.FetchTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feed: %w", err)
	}

	sensor := nextbus.NewSensor(
		nextbus.Options{Name: cfg.Name, StopID: cfg.StopID, Tracks: cfg.Tracks()},
		source,
		nextbus.NewReconciler(decoder, nextbus.Mode(cfg.Mode), m),
		clk,
		m,
		logger,
	)

	return &app.Application{
		Config:  cfg,
		Logger:  logger,
		Sensor:  sensor,
		Clock:   clk,
		Metrics: m,
	}, nil
}

// CreateServer builds the HTTP server with every route and middleware. The
// returned RestAPI must be shut down by the caller.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	webUI := &webui.WebUI{Application: coreApp}

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webUI.SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// Run starts the poll loop and the server and blocks until ctx is done or
// the server fails.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		coreApp.Sensor.Run(ctx, coreApp.Config.PollInterval)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			logging.LogError(logger, "server failed", err)
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	logging.LogOperation(logger, "shutting_down_server")
	cancel()
	api.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server forced to shutdown", err)
		if runErr == nil {
			runErr = err
		}
	}

	<-pollDone
	logging.LogOperation(logger, "server_exited")
	return runErr
}
