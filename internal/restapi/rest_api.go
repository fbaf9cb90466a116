// Package restapi serves the sensor, its health and its metrics over HTTP.
package restapi

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/app"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

func NewRestAPI(application *app.Application) *RestAPI {
	return &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(application.Config.RateLimit, time.Second, application.Clock),
	}
}

// SetRoutes registers the API endpoints on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	limited := func(h http.HandlerFunc) http.Handler {
		return api.rateLimiter.Handler()(h)
	}

	mux.Handle("GET /api/sensor", CacheControlMiddleware(api.untilNextPoll, limited(api.sensorHandler)))
	mux.Handle("GET /healthz", CacheControlMiddleware(neverFresh, http.HandlerFunc(api.healthHandler)))

	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{DisableCompression: true}))
	}
}

// Handler wraps mux in the shared middleware chain, outermost first:
// compression, request ID, request logging and metrics.
func (api *RestAPI) Handler(mux *http.ServeMux) http.Handler {
	var handler http.Handler = mux
	handler = MetricsHandler(api.Metrics)(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return gzhttp.GzipHandler(handler)
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
