package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/appconf"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, r *http.Request, title string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := debugTemplate.Execute(w, debugData{Title: title, Pre: spew.Sdump(data)})
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to execute debug template", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Application == nil || webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	var data any
	var title string

	switch r.URL.Query().Get("dataType") {
	case "predictions":
		title = "Accepted predictions"
		if webUI.Sensor != nil {
			data = webUI.Sensor.Predictions()
		}
	case "state":
		title = "Sensor state"
		if webUI.Sensor != nil {
			data = map[string]any{
				"name":         webUI.Sensor.Name(),
				"state":        webUI.Sensor.State(),
				"attributes":   webUI.Sensor.Attributes(),
				"last_updated": webUI.Sensor.LastUpdated(),
			}
		}
	case "config":
		title = "Configuration"
		data = webUI.Config
	default:
		title = "Choose a data type"
		data = map[string]string{
			"error": "Please use one of the following: predictions, state, config.",
		}
	}

	writeDebugData(w, r, title, data)
}
