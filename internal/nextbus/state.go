package nextbus

import "time"

// Mode selects how the accepted prediction set is projected onto the sensor.
type Mode string

const (
	// ModeSingle exposes the next departure time as state.
	ModeSingle Mode = "single"
	// ModeList exposes the number of upcoming departures and all of them as attributes.
	ModeList Mode = "list"
)

// Attribute keys of the sensor state.
const (
	AttrAttribution = "attribution"
	AttrDelay       = "delay"
	AttrDeparture   = "departure"
	AttrDestination = "destination"
	AttrLine        = "line"
	AttrPredictions = "predictions"
)

const (
	Attribution          = "Data provided by ASEAG"
	Icon                 = "mdi:bus"
	DeviceClassTimestamp = "timestamp"
)

// TimestampLayout renders instants with a numeric offset ("+00:00" for UTC).
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// SensorState is the externally visible projection of a prediction set.
// A nil Value means there is no upcoming departure.
type SensorState struct {
	Value      any
	Attributes map[string]any
}

// Empty reports whether the state carries no departure.
func (s SensorState) Empty() bool {
	return s.Value == nil
}

// DepartureAttributes is one entry of the list-mode predictions attribute.
type DepartureAttributes struct {
	Departure   string `json:"departure"`
	Delay       *int   `json:"delay"`
	Line        string `json:"line"`
	Destination string `json:"destination"`
}

// FormatTimestamp renders t in UTC at second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// Project derives the sensor state for an already filtered and sorted set.
func Project(predictions []Prediction, mode Mode) SensorState {
	if len(predictions) == 0 {
		return SensorState{Attributes: map[string]any{}}
	}

	if mode == ModeList {
		departures := make([]DepartureAttributes, 0, len(predictions))
		for _, p := range predictions {
			departures = append(departures, DepartureAttributes{
				Departure:   FormatTimestamp(p.EffectiveTime()),
				Delay:       delaySeconds(p),
				Line:        p.LineName,
				Destination: p.DestinationText,
			})
		}
		return SensorState{
			Value: len(predictions),
			Attributes: map[string]any{
				AttrPredictions: departures,
				AttrAttribution: Attribution,
			},
		}
	}

	next := predictions[0]
	var delay any
	if d := delaySeconds(next); d != nil {
		delay = *d
	}
	return SensorState{
		Value: FormatTimestamp(next.EffectiveTime()),
		Attributes: map[string]any{
			AttrDelay:       delay,
			AttrLine:        next.LineName,
			AttrDestination: next.DestinationText,
			AttrAttribution: Attribution,
		},
	}
}

// delaySeconds truncates the delay toward zero; nil when undefined.
func delaySeconds(p Prediction) *int {
	d, ok := p.Delay()
	if !ok {
		return nil
	}
	s := int(d / time.Second)
	return &s
}
