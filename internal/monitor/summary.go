package monitor

import (
	"fmt"
	"io"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// SensorSummary is a point-in-time view of one sensor.
type SensorSummary struct {
	ID          string
	Name        string
	Location    string
	Reads       uint64
	Errors      uint64
	LastError   sensor.ErrorCode
	Stats       temperature.Stats
	LastReading temperature.Reading
}

// Summary snapshots every sensor in configuration order.
func (m *Monitor) Summary() []SensorSummary {
	out := make([]SensorSummary, 0, len(m.sensors))
	for _, s := range m.sensors {
		out = append(out, SensorSummary{
			ID:          s.ID(),
			Name:        s.Name(),
			Location:    s.Location(),
			Reads:       s.SampleCount(),
			Errors:      s.ErrorCount(),
			LastError:   s.LastError(),
			Stats:       s.Stats(),
			LastReading: s.LastReading(),
		})
	}
	return out
}

// WriteStats prints a statistics block for one sensor.
func WriteStats(w io.Writer, sensorID string, st temperature.Stats) {
	fmt.Fprintf(w, "\nSensor Statistics (%s):\n", sensorID)
	fmt.Fprintf(w, "  Samples: %d\n", st.SampleCount)
	if st.SampleCount > 0 {
		fmt.Fprintf(w, "  Min Value: %.2f°C\n", st.MinValue)
		fmt.Fprintf(w, "  Max Value: %.2f°C\n", st.MaxValue)
		fmt.Fprintf(w, "  Average: %.2f°C\n", st.AvgValue)
		fmt.Fprintf(w, "  Std Deviation: %.2f°C\n", st.StdDeviation)
	}
	fmt.Fprintf(w, "  Alerts: %d\n", st.AlertCount)
	fmt.Fprintf(w, "  Critical: %d\n", st.CriticalCount)
	fmt.Fprintf(w, "  Critical Rate: %.2f%%\n", criticalRate(st))
}

func criticalRate(st temperature.Stats) float64 {
	if st.SampleCount == 0 {
		return 0
	}
	return float64(st.CriticalCount) / float64(st.SampleCount) * 100
}
