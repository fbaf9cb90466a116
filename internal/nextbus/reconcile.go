package nextbus

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/metrics"
)

// Decoder extracts candidate predictions from one raw upstream payload.
// Records it cannot decode are skipped and counted; err is reserved for a
// payload that yields nothing usable at all.
type Decoder interface {
	Decode(ctx context.Context, raw []byte) (predictions []Prediction, skipped int, err error)
}

// Reconciler merges each freshly fetched payload with the previously
// accepted prediction set.
type Reconciler struct {
	decoder Decoder
	mode    Mode
	metrics *metrics.Metrics
}

func NewReconciler(decoder Decoder, mode Mode, m *metrics.Metrics) *Reconciler {
	if mode == "" {
		mode = ModeSingle
	}
	return &Reconciler{decoder: decoder, mode: mode, metrics: m}
}

// Mode returns the display mode states are projected in.
func (r *Reconciler) Mode() Mode {
	return r.mode
}

// Reconcile computes the new accepted set and its sensor state. raw == nil
// stands for a failed or empty fetch. No failure escapes: undecodable input
// degrades to carrying the previous set forward.
func (r *Reconciler) Reconcile(ctx context.Context, raw []byte, previous []Prediction, now time.Time, filter TrackFilter) ([]Prediction, SensorState) {
	logger := logging.FromContext(ctx).With(slog.String("component", "reconciler"))

	var fresh []Prediction
	if raw == nil {
		logger.Error("empty result found when expecting list of predictions")
	} else {
		decoded, skipped, err := r.decoder.Decode(ctx, raw)
		r.metrics.AddParseFailures(skipped)
		if err != nil {
			logging.LogError(logger, "erroneous result found when expecting list of predictions", err)
			r.metrics.AddParseFailures(1)
		} else {
			fresh = decoded
		}
	}

	accepted, carried := merge(fresh, previous, now, filter)
	r.metrics.AddCarriedForward(carried)

	logger.Debug("predictions reconciled",
		slog.Int("fresh", len(fresh)),
		slog.Int("carried_forward", carried),
		slog.Int("accepted", len(accepted)))

	return accepted, Project(accepted, r.mode)
}

// Merge carries forward previous predictions the fresh set does not
// supersede, then applies the track filter, drops expired predictions and
// sorts the rest by effective time. Ties keep their relative order.
func Merge(fresh, previous []Prediction, now time.Time, filter TrackFilter) []Prediction {
	merged, _ := merge(fresh, previous, now, filter)
	return merged
}

func merge(fresh, previous []Prediction, now time.Time, filter TrackFilter) ([]Prediction, int) {
	candidates := make([]Prediction, 0, len(fresh)+len(previous))
	candidates = append(candidates, fresh...)

	seen := make(map[string]struct{}, len(fresh))
	watched := 0
	for _, p := range fresh {
		if p.TripID != "" {
			seen[p.TripID] = struct{}{}
		}
		if filter.Matches(p.Track) {
			watched++
		}
	}

	carried := 0
	for _, p := range previous {
		if p.TripID == "" {
			// without a trip identity a prediction can only be told apart
			// from fresh ones when none arrived on the watched tracks
			if watched > 0 {
				continue
			}
		} else if _, ok := seen[p.TripID]; ok {
			continue
		}
		candidates = append(candidates, p)
		carried++
	}

	accepted := candidates[:0]
	for _, p := range candidates {
		if !filter.Matches(p.Track) {
			continue
		}
		if p.EffectiveTime().Before(now) {
			continue
		}
		accepted = append(accepted, p)
	}

	slices.SortStableFunc(accepted, func(a, b Prediction) int {
		return a.EffectiveTime().Compare(b.EffectiveTime())
	})
	return accepted, carried
}
