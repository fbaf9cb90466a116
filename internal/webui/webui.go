// Package webui serves the developer debug page.
package webui

import (
	"net/http"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
}
