package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

const namespace = "edgetrack"

// Collector records per-sensor counters and gauges.
type Collector struct {
	registry *prometheus.Registry

	readings *prometheus.CounterVec
	errors   *prometheus.CounterVec
	alerts   *prometheus.CounterVec
	value    *prometheus.GaugeVec
	average  *prometheus.GaugeVec
	stddev   *prometheus.GaugeVec
}

// NewCollector registers the sensor metrics plus Go runtime and process
// collectors on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "readings_total",
			Help:      "Samples taken, by sensor and validity.",
		}, []string{"sensor_id", "valid"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "errors_total",
			Help:      "Failed reads, by sensor and error code.",
		}, []string{"sensor_id", "error"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "alerts_total",
			Help:      "Samples crossing an alarm threshold, by tier.",
		}, []string{"sensor_id", "tier"}),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "value",
			Help:      "Most recent valid sample.",
		}, []string{"sensor_id", "unit"}),
		average: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "average",
			Help:      "Running mean since the last statistics reset.",
		}, []string{"sensor_id"}),
		stddev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "std_deviation",
			Help:      "Running population standard deviation since the last statistics reset.",
		}, []string{"sensor_id"}),
	}

	c.registry.MustRegister(
		c.readings, c.errors, c.alerts, c.value, c.average, c.stddev,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records one read outcome. readErr is the error returned by the
// sensor, nil for successful and soft-alert reads.
func (c *Collector) Observe(sensorID string, d sensor.Data, readErr error) {
	valid := "false"
	if d.IsValid {
		valid = "true"
	}
	c.readings.WithLabelValues(sensorID, valid).Inc()

	if readErr != nil {
		c.errors.WithLabelValues(sensorID, sensor.CodeOf(readErr).String()).Inc()
		return
	}
	if d.IsValid {
		c.value.WithLabelValues(sensorID, d.Unit).Set(d.Value)
	}
}

// ObserveTier counts a sample in an alarm tier. Normal samples are ignored.
func (c *Collector) ObserveTier(sensorID string, tier temperature.Tier) {
	if tier == temperature.TierNormal {
		return
	}
	c.alerts.WithLabelValues(sensorID, tier.String()).Inc()
}

// Record implements the monitor sink contract.
func (c *Collector) Record(_ context.Context, sensorID string, d sensor.Data) error {
	var err error
	if !d.IsValid && d.Error != sensor.ErrorNone {
		err = d.Error.Err()
	}
	c.Observe(sensorID, d, err)
	return nil
}

// RecordStats implements the monitor stats sink contract.
func (c *Collector) RecordStats(_ context.Context, sensorID string, st temperature.Stats) error {
	if st.SampleCount == 0 {
		c.average.DeleteLabelValues(sensorID)
		c.stddev.DeleteLabelValues(sensorID)
		return nil
	}
	c.average.WithLabelValues(sensorID).Set(st.AvgValue)
	c.stddev.WithLabelValues(sensorID).Set(st.StdDeviation)
	return nil
}
