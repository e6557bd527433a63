package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/auth"
	"github.com/nerrad567/edgetrack-core/internal/history"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/config"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/logging"
	"github.com/nerrad567/edgetrack-core/internal/monitor"
	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// fakeSensors is an in-memory SensorService.
type fakeSensors struct {
	mu       sync.Mutex
	sums     []monitor.SensorSummary
	commands []string
}

func (f *fakeSensors) Summary() []monitor.SensorSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]monitor.SensorSummary(nil), f.sums...)
}

func (f *fakeSensors) HandleCommand(sensorID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for _, s := range f.sums {
		if s.ID == sensorID {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", monitor.ErrUnknownSensor, sensorID)
	}
	var cmd struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil || cmd.Command != monitor.CommandResetStats {
		return fmt.Errorf("%w: %q", monitor.ErrUnknownCommand, cmd.Command)
	}
	f.commands = append(f.commands, sensorID+":"+cmd.Command)
	return nil
}

// fakeHistory returns canned entries.
type fakeHistory struct {
	entries  []history.Entry
	err      error
	gotLimit int
}

func (f *fakeHistory) Record(context.Context, string, sensor.Data) error { return nil }

func (f *fakeHistory) RecordStats(context.Context, string, temperature.Stats) error { return nil }

func (f *fakeHistory) Recent(_ context.Context, _ string, limit int) ([]history.Entry, error) {
	f.gotLimit = limit
	return f.entries, f.err
}

func (f *fakeHistory) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }

func testConfig() config.APIConfig {
	return config.APIConfig{
		Listen:   "127.0.0.1:0",
		Timeouts: config.APITimeouts{Read: 5, Write: 5, Idle: 5},
		WebSocket: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
	}
}

func testSummary() monitor.SensorSummary {
	return monitor.SensorSummary{
		ID:       "TEMP001",
		Name:     "Boiler",
		Location: "Plant Room",
		Reads:    3,
		Stats: temperature.Stats{
			MinValue:    20,
			MaxValue:    24,
			AvgValue:    22,
			SampleCount: 3,
		},
		LastReading: temperature.Reading{
			Temperature: 24,
			Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

// testServer builds a server around fakes. A nil hist leaves history disabled.
func testServer(t *testing.T, cfg config.APIConfig, hist history.Repository) (*Server, *fakeSensors) {
	t.Helper()

	sensors := &fakeSensors{sums: []monitor.SensorSummary{testSummary()}}
	srv, err := New(Deps{
		Config:  cfg,
		Logger:  logging.Nop(),
		Sensors: sensors,
		History: hist,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, sensors
}

func do(t *testing.T, srv *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Sensors: &fakeSensors{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Nop()}); err == nil {
		t.Error("New() without sensors should fail")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, testConfig(), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if body["sensors"] != float64(1) {
		t.Errorf("sensors = %v, want 1", body["sensors"])
	}
}

func TestRequestID(t *testing.T) {
	srv, _ := testServer(t, testConfig(), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID should be generated")
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/health", "", map[string]string{"X-Request-ID": "abc"})
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want client value", got)
	}
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://hmi.local"}
	srv, _ := testServer(t, cfg, nil)

	rec := do(t, srv, http.MethodOptions, "/api/v1/sensors", "", map[string]string{"Origin": "http://hmi.local"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://hmi.local" {
		t.Errorf("Allow-Origin = %q", got)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/health", "", map[string]string{"Origin": "http://evil.example"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin = %q", got)
	}
}

func TestListSensors(t *testing.T) {
	srv, _ := testServer(t, testConfig(), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/sensors", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Sensors []sensorView `json:"sensors"`
		Count   int          `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.Count != 1 || len(body.Sensors) != 1 {
		t.Fatalf("count = %d, sensors = %d", body.Count, len(body.Sensors))
	}
	got := body.Sensors[0]
	if got.ID != "TEMP001" || got.Location != "Plant Room" || got.LastError != "No error" {
		t.Errorf("sensor = %+v", got)
	}
	if got.Stats.Min == nil || *got.Stats.Min != 20 {
		t.Errorf("Stats.Min = %v, want 20", got.Stats.Min)
	}
	if got.LastReading == nil || got.LastReading.Temperature != 24 {
		t.Errorf("LastReading = %+v", got.LastReading)
	}
}

func TestGetSensor_FreshSensorOmitsInfinities(t *testing.T) {
	srv, sensors := testServer(t, testConfig(), nil)
	sensors.sums = []monitor.SensorSummary{{
		ID:    "TEMP002",
		Stats: temperature.Stats{MinValue: math.Inf(1), MaxValue: math.Inf(-1)},
	}}

	rec := do(t, srv, http.MethodGet, "/api/v1/sensors/TEMP002", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	stats := body["stats"].(map[string]any)
	if _, ok := stats["min"]; ok {
		t.Error("min should be omitted before the first sample")
	}
	if _, ok := body["last_reading"]; ok {
		t.Error("last_reading should be omitted before the first sample")
	}
}

func TestGetSensor_NotFound(t *testing.T) {
	srv, _ := testServer(t, testConfig(), nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/sensors/NOPE", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if body := decode(t, rec); body["code"] != ErrCodeNotFound {
		t.Errorf("code = %v", body["code"])
	}
}

func TestSensorHistory(t *testing.T) {
	hist := &fakeHistory{entries: []history.Entry{
		{ID: 2, SensorID: "TEMP001", Value: 23.5, Unit: "°C", IsValid: true},
		{ID: 1, SensorID: "TEMP001", Value: 22.5, Unit: "°C", IsValid: true},
	}}
	srv, _ := testServer(t, testConfig(), hist)

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "/api/v1/sensors/TEMP001/history", http.StatusOK, defaultHistoryLimit},
		{"explicit limit", "/api/v1/sensors/TEMP001/history?limit=2", http.StatusOK, 2},
		{"bad limit", "/api/v1/sensors/TEMP001/history?limit=abc", http.StatusBadRequest, 0},
		{"limit too large", "/api/v1/sensors/TEMP001/history?limit=100000", http.StatusBadRequest, 0},
		{"unknown sensor", "/api/v1/sensors/NOPE/history", http.StatusNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist.gotLimit = 0
			rec := do(t, srv, http.MethodGet, tt.path, "", nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if hist.gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", hist.gotLimit, tt.wantLimit)
			}
			if tt.wantCode == http.StatusOK {
				if body := decode(t, rec); body["count"] != float64(2) {
					t.Errorf("count = %v, want 2", body["count"])
				}
			}
		})
	}
}

func TestSensorHistory_Errors(t *testing.T) {
	srv, _ := testServer(t, testConfig(), nil)
	rec := do(t, srv, http.MethodGet, "/api/v1/sensors/TEMP001/history", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled history status = %d, want 503", rec.Code)
	}

	srv, _ = testServer(t, testConfig(), &fakeHistory{err: errors.New("disk gone")})
	rec = do(t, srv, http.MethodGet, "/api/v1/sensors/TEMP001/history", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failing history status = %d, want 500", rec.Code)
	}
}

func TestSensorCommand(t *testing.T) {
	srv, sensors := testServer(t, testConfig(), nil)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"reset stats", "/api/v1/sensors/TEMP001/commands", `{"command":"reset_stats"}`, http.StatusOK},
		{"unknown command", "/api/v1/sensors/TEMP001/commands", `{"command":"explode"}`, http.StatusBadRequest},
		{"invalid json", "/api/v1/sensors/TEMP001/commands", `{`, http.StatusBadRequest},
		{"unknown sensor", "/api/v1/sensors/NOPE/commands", `{"command":"reset_stats"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	if len(sensors.commands) != 1 || sensors.commands[0] != "TEMP001:reset_stats" {
		t.Errorf("commands = %v", sensors.commands)
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = testSecret
	srv, sensors := testServer(t, cfg, nil)

	viewer, err := auth.GenerateToken("hmi", auth.RoleViewer, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	operator, err := auth.GenerateToken("scada", auth.RoleOperator, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	bearer := func(tok string) map[string]string {
		return map[string]string{"Authorization": "Bearer " + tok}
	}
	resetBody := `{"command":"reset_stats"}`

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		header   map[string]string
		wantCode int
	}{
		{"health is open", http.MethodGet, "/api/v1/health", "", nil, http.StatusOK},
		{"no token", http.MethodGet, "/api/v1/sensors", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/sensors", "", bearer("nope"), http.StatusUnauthorized},
		{"viewer reads", http.MethodGet, "/api/v1/sensors", "", bearer(viewer), http.StatusOK},
		{"query token", http.MethodGet, "/api/v1/sensors?token=" + viewer, "", nil, http.StatusOK},
		{"viewer cannot command", http.MethodPost, "/api/v1/sensors/TEMP001/commands", resetBody, bearer(viewer), http.StatusForbidden},
		{"operator commands", http.MethodPost, "/api/v1/sensors/TEMP001/commands", resetBody, bearer(operator), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body, tt.header)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	if len(sensors.commands) != 1 {
		t.Errorf("commands = %v, want exactly the operator's", sensors.commands)
	}
}

func TestServer_StartClose(t *testing.T) {
	srv, _ := testServer(t, testConfig(), nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if srv.Addr() == "" {
		t.Fatal("Addr() empty after Start")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestServer_StartBusyPort(t *testing.T) {
	first, _ := testServer(t, testConfig(), nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer first.Close()

	cfg := testConfig()
	cfg.Listen = first.Addr()
	second, _ := testServer(t, cfg, nil)
	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Fatal("Start() on a busy port should fail")
	}
}

func TestClose_NotStarted(t *testing.T) {
	srv, _ := testServer(t, testConfig(), nil)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start = %v, want nil", err)
	}
}
