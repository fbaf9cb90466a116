package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
)

// ErrMissingDepartures is returned for a well-formed area-information
// payload without a departures.departures list.
var ErrMissingDepartures = errors.New("payload has no departures.departures list")

type areaInformationResponse struct {
	Departures *struct {
		Departures []json.RawMessage `json:"departures"`
	} `json:"departures"`
}

type departureEntry struct {
	StopPrediction *stopPrediction `json:"stopPrediction"`
}

// stopPrediction times are epoch milliseconds; a null or zero actualTime
// means no real-time estimate.
type stopPrediction struct {
	TripID          flexID `json:"tripId"`
	PlannedTime     *int64 `json:"plannedTime"`
	ActualTime      *int64 `json:"actualTime"`
	Track           flexID `json:"track"`
	LineName        string `json:"lineName"`
	DestinationText string `json:"destinationText"`
}

// AreaInformationDecoder decodes the mbroker area-information JSON payload.
type AreaInformationDecoder struct{}

var _ nextbus.Decoder = AreaInformationDecoder{}

func (AreaInformationDecoder) Decode(ctx context.Context, raw []byte) ([]nextbus.Prediction, int, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "areainformation_decoder"))

	var resp areaInformationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to parse area information: %w", err)
	}
	if resp.Departures == nil || resp.Departures.Departures == nil {
		return nil, 0, ErrMissingDepartures
	}

	predictions := make([]nextbus.Prediction, 0, len(resp.Departures.Departures))
	skipped := 0
	for i, entry := range resp.Departures.Departures {
		p, err := decodeDeparture(entry)
		if err != nil {
			skipped++
			logging.LogWarn(logger, "skipping undecodable departure", err, slog.Int("index", i))
			logger.Debug("undecodable departure", slog.String("raw", string(entry)))
			continue
		}
		predictions = append(predictions, p)
	}
	return predictions, skipped, nil
}

func decodeDeparture(raw json.RawMessage) (nextbus.Prediction, error) {
	var entry departureEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nextbus.Prediction{}, err
	}
	sp := entry.StopPrediction
	if sp == nil {
		return nextbus.Prediction{}, errors.New("missing stopPrediction")
	}
	if sp.PlannedTime == nil || *sp.PlannedTime == 0 {
		return nextbus.Prediction{}, errors.New("missing plannedTime")
	}

	p := nextbus.Prediction{
		TripID:          string(sp.TripID),
		PlannedTime:     time.UnixMilli(*sp.PlannedTime).UTC(),
		Track:           string(sp.Track),
		LineName:        sp.LineName,
		DestinationText: sp.DestinationText,
	}
	if sp.ActualTime != nil && *sp.ActualTime != 0 {
		actual := time.UnixMilli(*sp.ActualTime).UTC()
		p.ActualTime = &actual
	}
	return p, nil
}

// flexID accepts an identifier encoded either as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}
