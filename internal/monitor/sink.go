package monitor

import (
	"context"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// Sink receives every sample, including failed reads.
type Sink interface {
	Record(ctx context.Context, sensorID string, d sensor.Data) error
}

// StatsSink additionally receives periodic statistics snapshots.
type StatsSink interface {
	RecordStats(ctx context.Context, sensorID string, st temperature.Stats) error
}

// TierObserver is told the alarm tier of each fresh sample.
type TierObserver interface {
	ObserveTier(sensorID string, tier temperature.Tier)
}

// NamedSink labels a sink in diagnostics.
type NamedSink struct {
	Name string
	Sink Sink
}

// Logger is the diagnostic logger used for sink failures.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
