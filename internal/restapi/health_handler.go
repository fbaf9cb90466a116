package restapi

import (
	"net/http"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// healthHandler returns 503 until the sensor has completed its first poll
// cycle. A failing upstream does not make the service unhealthy: the sensor
// keeps serving carried-forward predictions.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	if api.Application == nil || api.Sensor == nil {
		api.sendResponse(w, r, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "sensor not initialized",
		})
		return
	}

	if !api.Sensor.Ready() {
		api.sendResponse(w, r, http.StatusServiceUnavailable, HealthResponse{
			Status: "starting",
			Detail: "waiting for the first poll cycle",
		})
		return
	}

	api.sendResponse(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}
