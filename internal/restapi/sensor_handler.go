package restapi

import (
	"errors"
	"net/http"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
)

// SensorResponse is the JSON form of the sensor entity.
type SensorResponse struct {
	Name        string         `json:"name"`
	State       any            `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	Icon        string         `json:"icon"`
	DeviceClass string         `json:"device_class,omitempty"`
	LastUpdated *string        `json:"last_updated"`
}

// NewSensorResponse snapshots s.
func NewSensorResponse(s *nextbus.Sensor) SensorResponse {
	resp := SensorResponse{
		Name:        s.Name(),
		State:       s.State(),
		Attributes:  s.Attributes(),
		Icon:        s.Icon(),
		DeviceClass: s.DeviceClass(),
	}
	if at := s.LastUpdated(); !at.IsZero() {
		formatted := nextbus.FormatTimestamp(at)
		resp.LastUpdated = &formatted
	}
	return resp
}

func (api *RestAPI) sensorHandler(w http.ResponseWriter, r *http.Request) {
	if api.Application == nil || api.Sensor == nil {
		api.serverErrorResponse(w, r, errors.New("sensor not configured"))
		return
	}
	api.sendResponse(w, r, http.StatusOK, NewSensorResponse(api.Sensor))
}
