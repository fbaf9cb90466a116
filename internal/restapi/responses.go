package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Text      string `json:"text"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(r *http.Request, code int, text string) ErrorResponse {
	return ErrorResponse{Code: code, Text: text, RequestID: GetRequestID(r.Context())}
}

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, status int, response any) {
	setJSONResponseType(w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// headers are already out; all that is left is to record it
		logging.LogError(logging.FromContext(r.Context()), "failed to encode response", err,
			slog.String("path", r.URL.Path))
	}
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	api.sendResponse(w, r, code, newErrorResponse(r, code, message))
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "server error", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}
