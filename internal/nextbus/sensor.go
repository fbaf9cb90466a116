package nextbus

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/clock"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/metrics"
)

// Fetcher retrieves one raw departure payload for the watched stop.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Endpoint() string
}

// Entity is what a host reads off a sensor.
type Entity interface {
	Name() string
	State() any
	Attributes() map[string]any
	Icon() string
}

// Options identifies the watched stop and how the sensor is named.
type Options struct {
	Name   string
	StopID string
	Tracks []string
}

// Sensor polls one stop and keeps the accepted prediction set between cycles.
//
// Update must not be called concurrently on the same Sensor. The accessors
// may be called from any goroutine.
type Sensor struct {
	opts       Options
	fetcher    Fetcher
	reconciler *Reconciler
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu          sync.RWMutex
	predictions []Prediction
	state       SensorState
	lastUpdated time.Time
}

var _ Entity = (*Sensor)(nil)

func NewSensor(opts Options, fetcher Fetcher, reconciler *Reconciler, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Sensor {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sensor{
		opts:       opts,
		fetcher:    fetcher,
		reconciler: reconciler,
		clock:      clk,
		metrics:    m,
		logger:     logger.With(slog.String("component", "nextbus_sensor")),
		state:      SensorState{Attributes: map[string]any{}},
	}
}

// Update runs one poll cycle: fetch, reconcile against the previous set and
// publish the result. Fetch failures are logged and treated as an empty
// payload.
func (s *Sensor) Update(ctx context.Context) {
	now := s.clock.Now()
	ctx = logging.WithLogger(ctx, s.logger)

	start := time.Now()
	raw, err := s.fetcher.Fetch(ctx)
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		logging.LogError(s.logger, "error fetching data", err,
			slog.String("endpoint", s.fetcher.Endpoint()))
		outcome = metrics.OutcomeError
		raw = nil
	case len(raw) == 0:
		outcome = metrics.OutcomeEmpty
		raw = nil
	}
	s.metrics.ObserveFetch(outcome, time.Since(start))

	predictions, state := s.reconciler.Reconcile(ctx, raw, s.Predictions(), now, TrackFilter(s.opts.Tracks))

	s.mu.Lock()
	s.predictions = predictions
	s.state = state
	s.lastUpdated = now
	s.mu.Unlock()

	s.metrics.SetCycleResult(len(predictions), now)
}

// Run updates immediately and then every interval until ctx is done.
func (s *Sensor) Run(ctx context.Context, interval time.Duration) {
	logging.LogOperation(s.logger, "starting_sensor_updates",
		slog.String("endpoint", s.fetcher.Endpoint()),
		slog.Duration("interval", interval))

	s.Update(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Update(ctx)
		case <-ctx.Done():
			logging.LogOperation(s.logger, "shutting_down_sensor_updates")
			return
		}
	}
}

// Name is "{name} {stop_id} {tracks}".
func (s *Sensor) Name() string {
	parts := []string{s.opts.Name, s.opts.StopID}
	parts = append(parts, s.opts.Tracks...)
	return strings.Join(parts, " ")
}

func (s *Sensor) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Value
}

// Attributes returns a copy of the current attributes.
func (s *Sensor) Attributes() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.state.Attributes)
}

func (s *Sensor) Icon() string {
	return Icon
}

// DeviceClass tells the host the state is an instant in single mode.
func (s *Sensor) DeviceClass() string {
	if s.reconciler.Mode() == ModeSingle {
		return DeviceClassTimestamp
	}
	return ""
}

// Predictions returns a copy of the accepted prediction set.
func (s *Sensor) Predictions() []Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.predictions)
}

// LastUpdated is the instant the last cycle started; zero before the first.
func (s *Sensor) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Ready reports whether at least one cycle has completed.
func (s *Sensor) Ready() bool {
	return !s.LastUpdated().IsZero()
}
