package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
)

// GTFSRTDecoder decodes a GTFS-Realtime TripUpdates feed. Every stop time
// update becomes one prediction whose track is the update's stop (platform)
// id, so the track filter selects the platforms of the watched stop.
type GTFSRTDecoder struct{}

var _ nextbus.Decoder = GTFSRTDecoder{}

func (GTFSRTDecoder) Decode(ctx context.Context, raw []byte) ([]nextbus.Prediction, int, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "gtfsrt_decoder"))

	realtime, err := gtfs.ParseRealtime(raw, &gtfs.ParseRealtimeOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse GTFS-RT feed: %w", err)
	}

	predictions, skipped := predictionsFromTrips(realtime.Trips)
	if skipped > 0 {
		logging.LogWarn(logger, "skipped stop time updates without usable times", nil,
			slog.Int("skipped", skipped))
	}
	return predictions, skipped, nil
}

func predictionsFromTrips(trips []gtfs.Trip) ([]nextbus.Prediction, int) {
	var predictions []nextbus.Prediction
	skipped := 0
	for _, trip := range trips {
		for _, stu := range trip.StopTimeUpdates {
			if stu.StopID == nil || *stu.StopID == "" {
				skipped++
				continue
			}
			p, ok := predictionFromEvent(stopTimeEvent(stu), trip.Delay)
			if !ok {
				skipped++
				continue
			}
			p.TripID = trip.ID.ID
			p.LineName = trip.ID.RouteID
			p.Track = *stu.StopID
			predictions = append(predictions, p)
		}
	}
	return predictions, skipped
}

// stopTimeEvent prefers the departure over the arrival event.
func stopTimeEvent(stu gtfs.StopTimeUpdate) *gtfs.StopTimeEvent {
	if stu.Departure != nil && stu.Departure.Time != nil {
		return stu.Departure
	}
	if stu.Arrival != nil && stu.Arrival.Time != nil {
		return stu.Arrival
	}
	return nil
}

// predictionFromEvent derives planned and actual time from an absolute event
// time and the delay reported for it (or, failing that, for the whole trip).
func predictionFromEvent(event *gtfs.StopTimeEvent, tripDelay *time.Duration) (nextbus.Prediction, bool) {
	if event == nil || event.Time == nil || event.Time.IsZero() {
		return nextbus.Prediction{}, false
	}
	at := event.Time.UTC()

	delay := event.Delay
	if delay == nil {
		delay = tripDelay
	}
	if delay == nil {
		return nextbus.Prediction{PlannedTime: at}, true
	}
	return nextbus.Prediction{PlannedTime: at.Add(-*delay), ActualTime: &at}, true
}
