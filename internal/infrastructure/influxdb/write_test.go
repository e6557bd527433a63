package influxdb

import (
	"math"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

func pointFields(p *write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func pointTags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func TestReadingPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := sensor.Data{
		Type:      sensor.TypeTemperature,
		Value:     42.5,
		Timestamp: ts,
		IsValid:   true,
		Error:     sensor.ErrorOutOfRange,
		Unit:      "°C",
	}

	p := readingPoint("TEMP001", d)

	if p.Name() != MeasurementReading {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementReading)
	}
	if !p.Time().Equal(ts) {
		t.Errorf("Time() = %v, want %v", p.Time(), ts)
	}

	tags := pointTags(p)
	if tags["sensor_id"] != "TEMP001" || tags["sensor_type"] != "Temperature" || tags["unit"] != "°C" {
		t.Errorf("tags = %v", tags)
	}

	fields := pointFields(p)
	if fields["value"] != 42.5 {
		t.Errorf("value = %v, want 42.5", fields["value"])
	}
	if fields["valid"] != true {
		t.Errorf("valid = %v, want true", fields["valid"])
	}
	if fields["error_code"] != int64(sensor.ErrorOutOfRange) {
		t.Errorf("error_code = %v, want %d", fields["error_code"], sensor.ErrorOutOfRange)
	}
	if fields["error"] != "Value out of range" {
		t.Errorf("error = %v", fields["error"])
	}
}

func TestStatsPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		stats   temperature.Stats
		wantMin bool
	}{
		{
			name:    "populated",
			stats:   temperature.Stats{MinValue: 20, MaxValue: 24, AvgValue: 22, SampleCount: 3},
			wantMin: true,
		},
		{
			name:    "no samples yet",
			stats:   temperature.Stats{MinValue: math.Inf(1), MaxValue: math.Inf(-1)},
			wantMin: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := statsPoint("TEMP001", tt.stats, ts)
			if p.Name() != MeasurementStats {
				t.Errorf("Name() = %q, want %q", p.Name(), MeasurementStats)
			}

			fields := pointFields(p)
			_, hasMin := fields["min"]
			_, hasMax := fields["max"]
			if hasMin != tt.wantMin || hasMax != tt.wantMin {
				t.Errorf("min/max present = %v/%v, want %v", hasMin, hasMax, tt.wantMin)
			}
			if fields["sample_count"] != tt.stats.SampleCount {
				t.Errorf("sample_count = %v, want %d", fields["sample_count"], tt.stats.SampleCount)
			}
		})
	}
}

func TestClientOptions_Defaults(t *testing.T) {
	opts := clientOptions(testClientConfig(0, -1))
	if opts.BatchSize() != defaultBatchSize {
		t.Errorf("BatchSize() = %d, want %d", opts.BatchSize(), defaultBatchSize)
	}
	if opts.FlushInterval() != defaultFlushInterval*millisecondsPerSecond {
		t.Errorf("FlushInterval() = %d, want %d", opts.FlushInterval(), defaultFlushInterval*millisecondsPerSecond)
	}

	opts = clientOptions(testClientConfig(10, 2))
	if opts.BatchSize() != 10 || opts.FlushInterval() != 2000 {
		t.Errorf("BatchSize/FlushInterval = %d/%d, want 10/2000", opts.BatchSize(), opts.FlushInterval())
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}
