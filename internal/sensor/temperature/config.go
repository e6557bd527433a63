package temperature

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
)

// Config holds the tunables of a temperature sensor.
type Config struct {
	MinTemp           float64 `yaml:"min_temp" json:"min_temp"`
	MaxTemp           float64 `yaml:"max_temp" json:"max_temp"`
	AlertThreshold    float64 `yaml:"alert_threshold" json:"alert_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold" json:"critical_threshold"`
	CalibrationOffset float64 `yaml:"calibration_offset" json:"calibration_offset"`
	SamplingRateMS    int     `yaml:"sampling_rate_ms" json:"sampling_rate_ms"`
	EnableHumidity    bool    `yaml:"enable_humidity" json:"enable_humidity"`
	EnableDewPoint    bool    `yaml:"enable_dew_point" json:"enable_dew_point"`
	EnableHeatIndex   bool    `yaml:"enable_heat_index" json:"enable_heat_index"`
}

// DefaultConfig returns the factory-floor profile: 0..50 °C valid range,
// alert above 40 °C, critical from 45 °C, one sample per second, all
// derived values enabled.
func DefaultConfig() Config {
	return Config{
		MinTemp:           0,
		MaxTemp:           50,
		AlertThreshold:    40,
		CriticalThreshold: 45,
		CalibrationOffset: 0,
		SamplingRateMS:    1000,
		EnableHumidity:    true,
		EnableDewPoint:    true,
		EnableHeatIndex:   true,
	}
}

// Validate checks the config invariants. Invalid values are rejected, never clamped.
//
// Returns:
//   - error: wraps sensor.ErrInvalidParam describing the first violation
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"min_temp":           c.MinTemp,
		"max_temp":           c.MaxTemp,
		"alert_threshold":    c.AlertThreshold,
		"critical_threshold": c.CriticalThreshold,
		"calibration_offset": c.CalibrationOffset,
	} {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: %s is NaN", sensor.ErrInvalidParam, name)
		}
	}
	if c.MinTemp >= c.MaxTemp {
		return fmt.Errorf("%w: min_temp (%.2f) must be less than max_temp (%.2f)",
			sensor.ErrInvalidParam, c.MinTemp, c.MaxTemp)
	}
	if c.SamplingRateMS <= 0 {
		return fmt.Errorf("%w: sampling_rate_ms must be positive, got %d",
			sensor.ErrInvalidParam, c.SamplingRateMS)
	}
	return nil
}

// SamplingInterval returns the debounce interval as a duration.
func (c Config) SamplingInterval() time.Duration {
	return time.Duration(c.SamplingRateMS) * time.Millisecond
}

// Tier is the alarm classification of a temperature value.
type Tier int

const (
	TierNormal Tier = iota
	TierAlert
	TierCritical
	TierOutOfRange
)

var tierNames = [...]string{"normal", "alert", "critical", "out_of_range"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// Classify returns the highest tier v falls into. Values outside
// [MinTemp, MaxTemp] are out of range regardless of thresholds.
func (c Config) Classify(v float64) Tier {
	switch {
	case v < c.MinTemp || v > c.MaxTemp:
		return TierOutOfRange
	case v >= c.CriticalThreshold:
		return TierCritical
	case v > c.AlertThreshold:
		return TierAlert
	default:
		return TierNormal
	}
}
