package temperature

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
)

// Default identity assigned to new temperature sensors.
const (
	DefaultName     = "Temperature Sensor"
	DefaultLocation = "Factory Floor"
)

// Reading is the most recent fresh sample with its derived values.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	DewPoint    float64   `json:"dew_point"`
	HeatIndex   float64   `json:"heat_index"`
	Timestamp   time.Time `json:"timestamp"`
}

// Stats are running statistics over fresh samples.
//
// MinValue and MaxValue are +Inf and -Inf until the first sample.
// StdDeviation is the population standard deviation.
type Stats struct {
	MinValue      float64 `json:"min_value"`
	MaxValue      float64 `json:"max_value"`
	AvgValue      float64 `json:"avg_value"`
	StdDeviation  float64 `json:"std_deviation"`
	SampleCount   uint64  `json:"sample_count"`
	AlertCount    uint64  `json:"alert_count"`
	CriticalCount uint64  `json:"critical_count"`
}

func newStats() Stats {
	return Stats{
		MinValue: math.Inf(1),
		MaxValue: math.Inf(-1),
	}
}

// Option configures a temperature Sensor at construction.
type Option func(*options)

type options struct {
	source Source
	now    func() time.Time
}

// WithSource replaces the default Simulator.
func WithSource(src Source) Option {
	return func(o *options) {
		if src != nil {
			o.source = src
		}
	}
}

// WithClock overrides the time source used for debouncing and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Sensor is a temperature sensor. It embeds the generic sensor, so
// ReadData, Cleanup and the identity accessors are available directly.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Stats may be read while a
//     ReadData call is in progress.
type Sensor struct {
	*sensor.Sensor

	mu         sync.Mutex
	cfg        Config
	stats      Stats
	m2         float64
	samples    uint64
	last       Reading
	lastSample time.Time
	source     Source
	now        func() time.Time
	released   bool
}

// New creates and initialises a temperature sensor.
//
// Parameters:
//   - id: Sensor identifier (required)
//   - cfg: Sensor configuration, validated before anything is allocated
//   - opts: Optional Source and clock overrides
//
// Returns:
//   - *Sensor: Ready sensor named DefaultName at DefaultLocation
//   - error: wraps sensor.ErrInvalidParam or sensor.ErrInitFailed
func New(id string, cfg Config, opts ...Option) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = NewSimulator(0)
	}

	core, err := sensor.New(sensor.TypeTemperature, id, sensor.WithClock(o.now))
	if err != nil {
		return nil, err
	}

	t := &Sensor{
		Sensor: core,
		cfg:    cfg,
		stats:  newStats(),
		source: o.source,
		now:    o.now,
	}
	if err := core.Bind(driver{t}); err != nil {
		return nil, err
	}
	core.SetName(DefaultName)
	core.SetLocation(DefaultLocation)

	return t, nil
}

// driver adapts Sensor to sensor.Driver without exporting the hooks on Sensor.
type driver struct{ t *Sensor }

func (d driver) Initialize() error {
	d.t.mu.Lock()
	defer d.t.mu.Unlock()
	d.t.released = false
	return nil
}

func (d driver) Read(data *sensor.Data) error { return d.t.read(data) }

func (d driver) Cleanup() error {
	d.t.mu.Lock()
	defer d.t.mu.Unlock()
	d.t.released = true
	d.t.last = Reading{}
	d.t.lastSample = time.Time{}
	return nil
}

func (t *Sensor) read(data *sensor.Data) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.released {
		return fmt.Errorf("%w: sensor %s has been cleaned up", sensor.ErrInvalidParam, t.ID())
	}

	now := t.now()
	// A clock that stepped backwards forces a fresh sample.
	if elapsed := now.Sub(t.lastSample); !t.lastSample.IsZero() && elapsed >= 0 && elapsed < t.cfg.SamplingInterval() {
		data.Value = t.last.Temperature
		data.IsValid = true
		data.Error = sensor.ErrorNone
		return nil
	}

	raw, err := t.source.Temperature()
	if err != nil {
		data.Error = sensor.CodeOf(err)
		return fmt.Errorf("%w: sampling temperature: %w", sensor.ErrReadFailed, err)
	}
	if !finite(raw) {
		data.Error = sensor.ErrorReadFailed
		return fmt.Errorf("%w: source returned %v", sensor.ErrReadFailed, raw)
	}

	reading := Reading{
		Temperature: raw + t.cfg.CalibrationOffset,
		Timestamp:   now,
	}
	if t.cfg.EnableHumidity {
		// A failed humidity sample only drops the derived values.
		if rh, err := t.source.Humidity(); err == nil && finite(rh) {
			reading.Humidity = rh
		}
	}
	if reading.Humidity > 0 {
		if t.cfg.EnableDewPoint {
			reading.DewPoint = DewPoint(reading.Temperature, reading.Humidity)
		}
		if t.cfg.EnableHeatIndex {
			reading.HeatIndex = HeatIndex(reading.Temperature, reading.Humidity)
		}
	}
	t.last = reading

	data.Value = reading.Temperature
	data.IsValid = true
	data.Error = sensor.ErrorNone

	t.updateStats(data.Value)
	t.samples++
	t.lastSample = now

	if data.Value < t.cfg.MinTemp || data.Value > t.cfg.MaxTemp {
		data.IsValid = false
		data.Error = sensor.ErrorOutOfRange
		return fmt.Errorf("%w: %.2f outside [%.2f, %.2f]",
			sensor.ErrOutOfRange, data.Value, t.cfg.MinTemp, t.cfg.MaxTemp)
	}
	if data.Value > t.cfg.AlertThreshold {
		data.Error = sensor.ErrorOutOfRange
		t.stats.AlertCount++
	}
	if data.Value >= t.cfg.CriticalThreshold {
		data.Error = sensor.ErrorOutOfRange
		t.stats.CriticalCount++
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// updateStats folds v into the running statistics using Welford's method.
func (t *Sensor) updateStats(v float64) {
	s := &t.stats
	s.MinValue = math.Min(s.MinValue, v)
	s.MaxValue = math.Max(s.MaxValue, v)

	s.SampleCount++
	n := float64(s.SampleCount)
	delta := v - s.AvgValue
	s.AvgValue += delta / n
	t.m2 += delta * (v - s.AvgValue)
	s.StdDeviation = math.Sqrt(t.m2 / n)
}

// Stats returns a copy of the running statistics.
func (t *Sensor) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// ResetStats clears the running statistics, reseeding the extrema sentinels.
func (t *Sensor) ResetStats() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = newStats()
	t.m2 = 0
}

// Samples returns the number of fresh samples taken since creation.
// Debounced reads and source failures do not count, and ResetStats leaves
// it untouched, so comparing it around ReadData tells whether that read
// sampled the source.
func (t *Sensor) Samples() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples
}

// Bind always fails: a temperature sensor keeps the driver it was built with,
// so its statistics and configuration describe what actually runs.
func (t *Sensor) Bind(sensor.Driver) error {
	return fmt.Errorf("%w: temperature sensor %s has a fixed driver", sensor.ErrInvalidParam, t.ID())
}

// Config returns a copy of the current configuration.
func (t *Sensor) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// SetConfig replaces the configuration after validating it. On error the
// current configuration is kept.
func (t *Sensor) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	return nil
}

// LastReading returns the most recent fresh sample and its derived values.
// The zero Reading is returned before the first sample.
func (t *Sensor) LastReading() Reading {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
