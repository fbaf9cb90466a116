package restapi

import (
	"fmt"
	"net/http"
	"time"
)

const noCacheHeader = "no-cache, no-store, must-revalidate"

// freshness reports how long the current sensor snapshot stays valid and
// when it was taken. A zero modified time means there is nothing to cache.
type freshness func() (ttl time.Duration, modified time.Time)

func neverFresh() (time.Duration, time.Time) { return 0, time.Time{} }

// untilNextPoll is the freshness of the sensor: a snapshot is valid until the
// next poll cycle is due.
func (api *RestAPI) untilNextPoll() (time.Duration, time.Time) {
	if api.Application == nil || api.Sensor == nil || api.Clock == nil {
		return neverFresh()
	}
	last := api.Sensor.LastUpdated()
	if last.IsZero() {
		return neverFresh()
	}
	return last.Add(api.Config.PollInterval).Sub(api.Clock.Now()), last
}

// CacheControlMiddleware lets clients cache a successful response for the
// whole seconds left in fresh, and stamps it with Last-Modified. Errors,
// stale snapshots and the state before the first cycle are not cacheable.
func CacheControlMiddleware(fresh freshness, next http.Handler) http.Handler {
	if fresh == nil {
		fresh = neverFresh
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, fresh: fresh}, r)
	})
}

type cacheControlWriter struct {
	http.ResponseWriter
	fresh         freshness
	headerWritten bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.headerWritten {
		w.headerWritten = true
		w.setCacheHeaders(code)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) setCacheHeaders(code int) {
	h := w.ResponseWriter.Header()
	h.Set("Cache-Control", noCacheHeader)
	if code < 200 || code >= 300 {
		return
	}

	ttl, modified := w.fresh()
	if modified.IsZero() {
		return
	}
	h.Set("Last-Modified", modified.UTC().Format(http.TimeFormat))
	if seconds := int(ttl / time.Second); seconds > 0 {
		h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", seconds))
	}
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
