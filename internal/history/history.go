package history

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// ErrSensorIDRequired is returned when a call is made without a sensor id.
var ErrSensorIDRequired = errors.New("history: sensor id is required")

// Entry is one stored reading.
type Entry struct {
	ID        int64            `json:"id"`
	RunID     string           `json:"run_id"`
	SensorID  string           `json:"sensor_id"`
	Type      sensor.Type      `json:"type"`
	Value     float64          `json:"value"`
	Unit      string           `json:"unit"`
	IsValid   bool             `json:"is_valid"`
	Error     sensor.ErrorCode `json:"error"`
	CreatedAt time.Time        `json:"created_at"`
}

// Repository stores and retrieves reading history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record stores a reading for the sensor.
	Record(ctx context.Context, sensorID string, d sensor.Data) error

	// RecordStats stores a statistics snapshot for the sensor.
	RecordStats(ctx context.Context, sensorID string, st temperature.Stats) error

	// Recent returns up to limit readings for the sensor, newest first.
	Recent(ctx context.Context, sensorID string, limit int) ([]Entry, error)

	// Prune deletes readings older than olderThan and returns how many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
