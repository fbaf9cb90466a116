package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/appconf"
)

// upstream serves one departure an hour after wall-clock now on track 3 and
// one on track 5.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		planned := time.Now().Add(time.Hour).UnixMilli()
		body := map[string]any{"departures": map[string]any{"departures": []any{
			map[string]any{"stopPrediction": map[string]any{
				"tripId": "A", "plannedTime": planned, "track": "3", "lineName": "5", "destinationText": "Uniklinik",
			}},
			map[string]any{"stopPrediction": map[string]any{
				"tripId": "B", "plannedTime": planned, "track": "5", "lineName": "1", "destinationText": "Bushof",
			}},
		}}}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) appconf.Config {
	cfg := appconf.Default()
	cfg.StopID = "100000"
	cfg.Track = "3"
	cfg.BaseURL = baseURL
	cfg.Env = appconf.Test
	cfg.Port = 8080
	return cfg
}

func TestBuildApplication(t *testing.T) {
	cfg := testConfig(upstream(t).URL)

	coreApp, err := BuildApplication(cfg)

	require.NoError(t, err)
	require.NotNil(t, coreApp)
	assert.NotNil(t, coreApp.Logger)
	assert.NotNil(t, coreApp.Metrics)
	assert.NotNil(t, coreApp.Clock)
	require.NotNil(t, coreApp.Sensor)
	assert.Equal(t, cfg, coreApp.Config)
	assert.Equal(t, "ASEAG Next Bus 100000 3", coreApp.Sensor.Name())
	assert.False(t, coreApp.Sensor.Ready())
}

func TestBuildApplicationErrorHandling(t *testing.T) {
	cfg := testConfig("https://mova.aseag.de")
	cfg.Feed = appconf.FeedGTFSRT

	_, err := BuildApplication(cfg)
	assert.ErrorContains(t, err, "failed to initialize feed")
}

func TestCreateServer(t *testing.T) {
	coreApp, err := BuildApplication(testConfig(upstream(t).URL))
	require.NoError(t, err)

	srv, api := CreateServer(coreApp, coreApp.Config)
	defer api.Shutdown()

	assert.Equal(t, ":8080", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)
}

func TestCreateServerHandlerResponds(t *testing.T) {
	coreApp, err := BuildApplication(testConfig(upstream(t).URL))
	require.NoError(t, err)
	coreApp.Sensor.Update(context.Background())

	srv, api := CreateServer(coreApp, coreApp.Config)
	defer api.Shutdown()

	for _, path := range []string{"/api/sensor", "/healthz", "/metrics", "/debug?dataType=state"} {
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	coreApp, err := BuildApplication(testConfig(upstream(t).URL))
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	srv, api := CreateServer(coreApp, coreApp.Config)
	srv.Addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, coreApp, api) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunReturnsListenError(t *testing.T) {
	coreApp, err := BuildApplication(testConfig(upstream(t).URL))
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	srv, api := CreateServer(coreApp, coreApp.Config)
	srv.Addr = listener.Addr().String()

	err = Run(context.Background(), srv, coreApp, api)
	assert.ErrorContains(t, err, "server failed")
}

func TestPollCommand(t *testing.T) {
	server := upstream(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("base_url: "+server.URL+"\nmode: list\n"), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"poll", "--config", configPath, "--stop-id", "100000", "--track", "3"})

	require.NoError(t, cmd.Execute())

	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "ASEAG Next Bus 100000 3", body["name"])
	assert.Equal(t, float64(1), body["state"])
	assert.NotNil(t, body["last_updated"])
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, cfg appconf.Config)
	}{
		{
			name: "flags only",
			args: []string{"--stop-id", "100000", "--track", "3", "--track", "4", "--mode", "list"},
			check: func(t *testing.T, cfg appconf.Config) {
				assert.Equal(t, "100000", cfg.StopID)
				assert.Equal(t, []string{"3", "4"}, cfg.Tracks())
				assert.Equal(t, appconf.ModeList, cfg.Mode)
				assert.Equal(t, appconf.FeedAreaInformation, cfg.Feed)
			},
		},
		{
			name:    "missing stop",
			args:    []string{"--track", "3"},
			wantErr: "configuration error",
		},
		{
			name:    "unknown feed",
			args:    []string{"--stop-id", "100000", "--track", "3", "--feed", "sftp"},
			wantErr: "Feed",
		},
		{
			name:    "missing config file",
			args:    []string{"--config", filepath.Join(t.TempDir(), "nope.yml")},
			wantErr: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg, err := loadConfig(cmd)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_UndefinedFlags(t *testing.T) {
	_, err := loadConfig(&cobra.Command{Use: "bare"})
	assert.ErrorContains(t, err, "reading --config")
}
