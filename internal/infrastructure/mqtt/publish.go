package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// maxPayloadSize caps a single message at 1MB.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic.
//
// Parameters:
//   - topic: Destination topic
//   - payload: Message body (max 1MB)
//   - qos: 0, 1 or 2
//   - retained: Whether the broker keeps the message for new subscribers
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// ReadingPayload is the JSON body of a reading message.
type ReadingPayload struct {
	SensorID  string  `json:"sensor_id"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Valid     bool    `json:"valid"`
	ErrorCode int     `json:"error_code"`
	Error     string  `json:"error"`
	Timestamp string  `json:"timestamp"`
}

// StatsPayload is the JSON body of a stats message. Min and Max are omitted
// until the first sample.
type StatsPayload struct {
	SensorID      string   `json:"sensor_id"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Avg           float64  `json:"avg"`
	StdDeviation  float64  `json:"std_deviation"`
	SampleCount   uint64   `json:"sample_count"`
	AlertCount    uint64   `json:"alert_count"`
	CriticalCount uint64   `json:"critical_count"`
}

// NewReadingPayload converts a sample into its wire form.
func NewReadingPayload(sensorID string, d sensor.Data) ReadingPayload {
	return ReadingPayload{
		SensorID:  sensorID,
		Type:      d.Type.String(),
		Value:     d.Value,
		Unit:      d.Unit,
		Valid:     d.IsValid,
		ErrorCode: int(d.Error),
		Error:     d.Error.String(),
		Timestamp: d.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// NewStatsPayload converts statistics into their wire form.
func NewStatsPayload(sensorID string, st temperature.Stats) StatsPayload {
	p := StatsPayload{
		SensorID:      sensorID,
		Avg:           st.AvgValue,
		StdDeviation:  st.StdDeviation,
		SampleCount:   st.SampleCount,
		AlertCount:    st.AlertCount,
		CriticalCount: st.CriticalCount,
	}
	if !math.IsInf(st.MinValue, 0) {
		minValue := st.MinValue
		p.Min = &minValue
	}
	if !math.IsInf(st.MaxValue, 0) {
		maxValue := st.MaxValue
		p.Max = &maxValue
	}
	return p
}

// PublishReading publishes one sample on the sensor's reading topic.
func (c *Client) PublishReading(sensorID string, d sensor.Data) error {
	if err := ValidateSensorID(sensorID); err != nil {
		return err
	}
	payload, err := json.Marshal(NewReadingPayload(sensorID, d))
	if err != nil {
		return fmt.Errorf("%w: encoding reading: %w", ErrPublishFailed, err)
	}
	return c.Publish(c.topics.SensorReading(sensorID), payload, c.qos(), false)
}

// PublishStats publishes a retained statistics snapshot.
func (c *Client) PublishStats(sensorID string, st temperature.Stats) error {
	if err := ValidateSensorID(sensorID); err != nil {
		return err
	}
	payload, err := json.Marshal(NewStatsPayload(sensorID, st))
	if err != nil {
		return fmt.Errorf("%w: encoding stats: %w", ErrPublishFailed, err)
	}
	return c.Publish(c.topics.SensorStats(sensorID), payload, c.qos(), true)
}

// Record implements the monitor sink contract.
func (c *Client) Record(_ context.Context, sensorID string, d sensor.Data) error {
	return c.PublishReading(sensorID, d)
}

// RecordStats implements the monitor stats sink contract.
func (c *Client) RecordStats(_ context.Context, sensorID string, st temperature.Stats) error {
	return c.PublishStats(sensorID, st)
}
