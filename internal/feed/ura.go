package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
)

// uraPredictionRecord is the record type of a live prediction.
const uraPredictionRecord = 1

// URADecoder decodes URA instant_V1 responses: one JSON array per line,
// [1, stopPointName, lineName, destinationText, tripId, estimatedTime, expireTime]
// for predictions, where tripId is absent when not requested.
//
// URA reports only an estimate, so decoded predictions carry it as planned
// time and have no delay. The response is already scoped to one direction,
// which becomes the prediction's track.
type URADecoder struct {
	Direction string
}

var _ nextbus.Decoder = URADecoder{}

func (d URADecoder) Decode(ctx context.Context, raw []byte) ([]nextbus.Prediction, int, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "ura_decoder"))

	var predictions []nextbus.Prediction
	skipped := 0

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxBodySize)
	line := 0
	for scanner.Scan() {
		line++
		record := bytes.TrimSpace(scanner.Bytes())
		if len(record) == 0 {
			continue
		}

		p, ok, err := d.decodeRecord(record)
		if err != nil {
			skipped++
			logging.LogWarn(logger, "skipping undecodable URA record", err, slog.Int("line", line))
			logger.Debug("undecodable URA record", slog.String("raw", string(record)))
			continue
		}
		if ok {
			predictions = append(predictions, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read URA response: %w", err)
	}
	return predictions, skipped, nil
}

// decodeRecord returns ok=false for well-formed records that are not predictions.
func (d URADecoder) decodeRecord(record []byte) (nextbus.Prediction, bool, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return nextbus.Prediction{}, false, err
	}
	if len(fields) == 0 {
		return nextbus.Prediction{}, false, errors.New("empty record")
	}

	var recordType int
	if err := json.Unmarshal(fields[0], &recordType); err != nil {
		return nextbus.Prediction{}, false, fmt.Errorf("invalid record type: %w", err)
	}
	if recordType != uraPredictionRecord {
		return nextbus.Prediction{}, false, nil
	}

	var (
		line, tripID  flexID
		destination   string
		estimatedTime int64
	)
	targets := []any{&line, &destination}
	switch len(fields) {
	case 6:
		targets = append(targets, &estimatedTime)
	case 7:
		targets = append(targets, &tripID, &estimatedTime)
	default:
		return nextbus.Prediction{}, false, fmt.Errorf("prediction record has %d fields", len(fields))
	}
	// fields[1] is the stop point name, fields[len-1] the expire time
	for i, target := range targets {
		if err := json.Unmarshal(fields[i+2], target); err != nil {
			return nextbus.Prediction{}, false, fmt.Errorf("field %d: %w", i+2, err)
		}
	}
	if estimatedTime == 0 {
		return nextbus.Prediction{}, false, errors.New("missing estimated time")
	}

	return nextbus.Prediction{
		TripID:          string(tripID),
		PlannedTime:     time.UnixMilli(estimatedTime).UTC(),
		Track:           d.Direction,
		LineName:        string(line),
		DestinationText: destination,
	}, true, nil
}
