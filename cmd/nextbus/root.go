package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/appconf"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/restapi"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nextbus",
		Short: "Real-time ASEAG departures for one stop",
		Long: `nextbus polls the ASEAG real-time API for a single stop and keeps the
upcoming departures as a sensor, either printed once or served over HTTP.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a YAML or JSON config file")
	flags.String("stop-id", "", "stop to watch")
	flags.StringSlice("track", nil, "track or direction to keep (repeatable)")
	flags.String("mode", "", "display mode: single or list")
	flags.String("feed", "", "upstream feed: areainformation, ura or gtfsrt")

	rootCmd.AddCommand(newServeCmd(), newPollCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poll loop and serve the sensor over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			coreApp, err := BuildApplication(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, api := CreateServer(coreApp, cfg)
			return Run(ctx, srv, coreApp, api)
		},
	}
}

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one poll cycle and print the sensor as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			coreApp, err := BuildApplication(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			coreApp.Sensor.Update(ctx)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(restapi.NewSensorResponse(coreApp.Sensor))
		},
	}
}

// loadConfig reads --config (or the defaults), applies the flag overrides
// that were set and validates the result.
func loadConfig(cmd *cobra.Command) (appconf.Config, error) {
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return appconf.Config{}, fmt.Errorf("reading --config: %w", err)
	}
	cfg := appconf.Default()
	if path != "" {
		if cfg, err = appconf.ReadFile(path); err != nil {
			return appconf.Config{}, err
		}
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{"stop-id", &cfg.StopID},
		{"mode", &cfg.Mode},
		{"feed", &cfg.Feed},
	}
	for _, o := range overrides {
		if !flags.Changed(o.flag) {
			continue
		}
		if *o.target, err = flags.GetString(o.flag); err != nil {
			return appconf.Config{}, fmt.Errorf("reading --%s: %w", o.flag, err)
		}
	}
	if flags.Changed("track") {
		if cfg.TrackList, err = flags.GetStringSlice("track"); err != nil {
			return appconf.Config{}, fmt.Errorf("reading --track: %w", err)
		}
		cfg.Track = ""
	}

	if err := cfg.Validate(); err != nil {
		return appconf.Config{}, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}
