package app

import (
	"log/slog"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/appconf"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/clock"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/metrics"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
)

// Application holds the dependencies shared by the poll loop, the HTTP
// handlers and their middleware.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Sensor  *nextbus.Sensor
	Clock   clock.Clock
	Metrics *metrics.Metrics
}
