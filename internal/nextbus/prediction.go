// Package nextbus turns successive upstream departure responses for one stop
// into a stable, time-ordered set of upcoming departures and projects it onto
// the sensor state a host displays.
package nextbus

import (
	"slices"
	"time"
)

// Prediction is one upcoming departure at the watched stop.
type Prediction struct {
	// TripID is empty when the feed variant carries no trip identity.
	TripID          string
	PlannedTime     time.Time
	ActualTime      *time.Time
	Track           string
	LineName        string
	DestinationText string
}

// EffectiveTime is the actual departure time if reported, else the planned one.
func (p Prediction) EffectiveTime() time.Time {
	if p.ActualTime != nil {
		return *p.ActualTime
	}
	return p.PlannedTime
}

// Delay returns actual minus planned time. ok is false without an actual time.
func (p Prediction) Delay() (delay time.Duration, ok bool) {
	if p.ActualTime == nil || p.PlannedTime.IsZero() {
		return 0, false
	}
	return p.ActualTime.Sub(p.PlannedTime), true
}

// TrackFilter selects the tracks (or directions) whose predictions are kept.
// An empty filter keeps every track.
type TrackFilter []string

// Matches reports whether track passes the filter.
func (f TrackFilter) Matches(track string) bool {
	if len(f) == 0 {
		return true
	}
	return slices.Contains(f, track)
}
