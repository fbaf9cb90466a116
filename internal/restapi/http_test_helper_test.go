package restapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/app"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/appconf"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/clock"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/feed"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/metrics"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
)

// testNow lies before every departure in upstreamPayload.
var testNow = time.UnixMilli(1718438400000).UTC()

const upstreamPayload = `{"departures":{"departures":[
	{"stopPrediction":{"tripId":"A","plannedTime":1718438520000,"actualTime":1718438580000,"track":"3","lineName":"5","destinationText":"Uniklinik"}},
	{"stopPrediction":{"tripId":"B","plannedTime":1718438700000,"actualTime":null,"track":"3","lineName":"33","destinationText":"Vaals"}},
	{"stopPrediction":{"tripId":"C","plannedTime":1718438460000,"actualTime":null,"track":"5","lineName":"1","destinationText":"Bushof"}}
]}}`

// createTestApi builds a RestAPI whose sensor polls an httptest upstream
// serving upstreamPayload. The sensor has not run a cycle yet.
func createTestApi(t *testing.T, mutate ...func(*appconf.Config)) *RestAPI {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(upstreamPayload))
	}))
	t.Cleanup(upstream.Close)

	cfg := appconf.Default()
	cfg.StopID = "100000"
	cfg.Track = "3"
	cfg.BaseURL = upstream.URL
	cfg.Env = appconf.Test
	for _, m := range mutate {
		m(&cfg)
	}
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewMockClock(testNow)
	m := metrics.NewWithLogger(logger)

	source, decoder, err := feed.New(cfg, feed.NewClient(time.Second))
	require.NoError(t, err)

	sensor := nextbus.NewSensor(
		nextbus.Options{Name: cfg.Name, StopID: cfg.StopID, Tracks: cfg.Tracks()},
		source,
		nextbus.NewReconciler(decoder, nextbus.Mode(cfg.Mode), m),
		clk,
		m,
		logger,
	)

	api := NewRestAPI(&app.Application{
		Config:  cfg,
		Logger:  logger,
		Sensor:  sensor,
		Clock:   clk,
		Metrics: m,
	})
	t.Cleanup(api.Shutdown)
	return api
}

// serveAPI starts an httptest server with the full middleware chain.
func serveAPI(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(api.Handler(mux))
	t.Cleanup(server.Close)
	return server
}
