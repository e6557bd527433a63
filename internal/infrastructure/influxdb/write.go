package influxdb

import (
	"context"
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// Measurement names.
const (
	MeasurementReading = "sensor_reading"
	MeasurementStats   = "sensor_stats"
)

// WriteReading queues one sample. Non-blocking.
func (c *Client) WriteReading(sensorID string, d sensor.Data) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(sensorID, d))
}

// WriteStats queues a statistics snapshot. Non-blocking.
func (c *Client) WriteStats(sensorID string, st temperature.Stats) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statsPoint(sensorID, st, time.Now()))
}

// Record implements the monitor sink contract. Write failures surface through
// the SetOnError callback, so the returned error only reports a closed client.
func (c *Client) Record(_ context.Context, sensorID string, d sensor.Data) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.WriteReading(sensorID, d)
	return nil
}

// RecordStats implements the monitor stats sink contract.
func (c *Client) RecordStats(_ context.Context, sensorID string, st temperature.Stats) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.WriteStats(sensorID, st)
	return nil
}

func readingPoint(sensorID string, d sensor.Data) *write.Point {
	return write.NewPoint(
		MeasurementReading,
		map[string]string{
			"sensor_id":   sensorID,
			"sensor_type": d.Type.String(),
			"unit":        d.Unit,
		},
		map[string]interface{}{
			"value":      d.Value,
			"valid":      d.IsValid,
			"error_code": int64(d.Error),
			"error":      d.Error.String(),
		},
		d.Timestamp,
	)
}

func statsPoint(sensorID string, st temperature.Stats, ts time.Time) *write.Point {
	fields := map[string]interface{}{
		"avg":            st.AvgValue,
		"std_deviation":  st.StdDeviation,
		"sample_count":   st.SampleCount,
		"alert_count":    st.AlertCount,
		"critical_count": st.CriticalCount,
	}
	// Extrema stay at ±Inf until the first sample; line protocol rejects them.
	if !math.IsInf(st.MinValue, 0) {
		fields["min"] = st.MinValue
	}
	if !math.IsInf(st.MaxValue, 0) {
		fields["max"] = st.MaxValue
	}
	return write.NewPoint(MeasurementStats, map[string]string{"sensor_id": sensorID}, fields, ts)
}
