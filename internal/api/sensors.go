package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edgetrack-core/internal/history"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/edgetrack-core/internal/monitor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	maxSensorIDLen      = 64
)

// sensorView is the JSON form of a monitor.SensorSummary. Stats reuse the
// MQTT wire shape so every channel reports them identically.
type sensorView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Location    string               `json:"location"`
	Reads       uint64               `json:"reads"`
	Errors      uint64               `json:"errors"`
	LastError   string               `json:"last_error"`
	Stats       mqtt.StatsPayload    `json:"stats"`
	LastReading *temperature.Reading `json:"last_reading,omitempty"`
}

func newSensorView(s monitor.SensorSummary) sensorView {
	v := sensorView{
		ID:        s.ID,
		Name:      s.Name,
		Location:  s.Location,
		Reads:     s.Reads,
		Errors:    s.Errors,
		LastError: s.LastError.String(),
		Stats:     mqtt.NewStatsPayload(s.ID, s.Stats),
	}
	if !s.LastReading.Timestamp.IsZero() {
		reading := s.LastReading
		v.LastReading = &reading
	}
	return v
}

// findSensor returns the summary for id.
func (s *Server) findSensor(id string) (monitor.SensorSummary, bool) {
	for _, sum := range s.sensors.Summary() {
		if sum.ID == id {
			return sum, true
		}
	}
	return monitor.SensorSummary{}, false
}

// sensorIDParam extracts and bounds the {id} URL parameter.
func sensorIDParam(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	return id, id != "" && len(id) <= maxSensorIDLen
}

func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	summaries := s.sensors.Summary()
	views := make([]sensorView, 0, len(summaries))
	for _, sum := range summaries {
		views = append(views, newSensorView(sum))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": views,
		"count":   len(views),
	})
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid sensor ID")
		return
	}
	sum, found := s.findSensor(id)
	if !found {
		writeNotFound(w, "sensor not found")
		return
	}
	writeJSON(w, http.StatusOK, newSensorView(sum))
}

// handleSensorHistory returns the newest stored readings for a sensor.
func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history storage is disabled")
		return
	}

	id, ok := sensorIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid sensor ID")
		return
	}
	if _, found := s.findSensor(id); !found {
		writeNotFound(w, "sensor not found")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("history query failed", "sensor_id", id, "error", err)
		writeInternalError(w, "failed to query history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensor_id": id,
		"readings":  entries,
		"count":     len(entries),
	})
}

// handleSensorCommand forwards the JSON body to the monitor, e.g.
// {"command":"reset_stats"}.
func (s *Server) handleSensorCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid sensor ID")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}

	if err := s.sensors.HandleCommand(id, body); err != nil {
		switch {
		case errors.Is(err, monitor.ErrUnknownSensor):
			writeNotFound(w, "sensor not found")
		case errors.Is(err, monitor.ErrUnknownCommand):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("sensor command failed", "sensor_id", id, "error", err)
			writeInternalError(w, "command failed")
		}
		return
	}

	s.logger.Info("sensor command accepted", "sensor_id", id, "caller", callerFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"sensor_id": id,
	})
}

func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum of %d", maxHistoryLimit)
	}
	return limit, nil
}
