package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "edgetrack"

// Topics builds topic names under a prefix.
//
//	topics := mqtt.NewTopics("edgetrack")
//	topics.SensorReading("TEMP001") // "edgetrack/sensor/TEMP001/reading"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix, trimming surrounding slashes.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// SensorReading returns the per-sample topic for a sensor.
func (t Topics) SensorReading(sensorID string) string {
	return fmt.Sprintf("%s/sensor/%s/reading", t.Prefix(), sensorID)
}

// SensorStats returns the retained statistics topic for a sensor.
func (t Topics) SensorStats(sensorID string) string {
	return fmt.Sprintf("%s/sensor/%s/stats", t.Prefix(), sensorID)
}

// SensorCommand returns the command topic for a sensor.
func (t Topics) SensorCommand(sensorID string) string {
	return fmt.Sprintf("%s/sensor/%s/command", t.Prefix(), sensorID)
}

// AllSensorCommands matches the command topic of every sensor.
func (t Topics) AllSensorCommands() string {
	return t.Prefix() + "/sensor/+/command"
}

// SystemStatus returns the retained online/offline topic.
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}

// SensorFromCommandTopic extracts the sensor ID from a command topic.
func (t Topics) SensorFromCommandTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix()+"/sensor/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/command")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// ValidateSensorID reports whether id is usable as a single topic level.
func ValidateSensorID(id string) error {
	if id == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsAny(id, "/+#") {
		return fmt.Errorf("%w: sensor id %q contains a topic separator or wildcard", ErrInvalidTopic, id)
	}
	return nil
}
