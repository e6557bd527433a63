package datalog

import (
	"fmt"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
)

// MaxMessageLen is the longest message a single entry carries, in characters.
const MaxMessageLen = 255

const timestampLayout = "2006-01-02 15:04:05"

// Entry is one record in the data log.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Message   string
}

// Format renders the entry as a single line without the trailing newline.
func (e Entry) Format(withTimestamp bool) string {
	msg := truncate(e.Message, MaxMessageLen)
	if withTimestamp {
		return fmt.Sprintf("[%s] [%s] %s", e.Timestamp.Format(timestampLayout), e.Level, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Level, msg)
}

// FormatSensorRecord renders a reading as the data log's sensor record message.
func FormatSensorRecord(sensorID string, d sensor.Data) string {
	valid := "No"
	if d.IsValid {
		valid = "Yes"
	}
	errText := "No Error"
	if d.Error != sensor.ErrorNone {
		errText = d.Error.String()
	}
	return fmt.Sprintf("Sensor: %s, Type: %s, Value: %.2f%s, Valid: %s, Error: %s",
		sensorID, d.Type, d.Value, d.Unit, valid, errText)
}

func truncate(v string, n int) string {
	runes := []rune(v)
	if len(runes) <= n {
		return v
	}
	return string(runes[:n])
}
