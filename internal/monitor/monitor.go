package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/datalog"
	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// Commands accepted by HandleCommand.
const (
	CommandResetStats = "reset_stats"
)

// DefaultStatsEvery matches the summary cadence of the standalone monitor.
const DefaultStatsEvery = 100

// sinkTimeout bounds a single sink call.
const sinkTimeout = 5 * time.Second

var (
	// ErrNoSensors is returned by New when Options.Sensors is empty.
	ErrNoSensors = errors.New("monitor: no sensors configured")

	// ErrUnknownSensor is returned for commands addressed to an unknown sensor.
	ErrUnknownSensor = errors.New("monitor: unknown sensor")

	// ErrUnknownCommand is returned for unrecognised command payloads.
	ErrUnknownCommand = errors.New("monitor: unknown command")
)

// Options configures a Monitor.
type Options struct {
	Sensors []*temperature.Sensor

	// DataLog receives one record per sample. Required.
	DataLog *datalog.Logger

	// CSV optionally exports every sample.
	CSV *datalog.CSVWriter

	Sinks []NamedSink

	// Interval between ticks; defaults to one second.
	Interval time.Duration

	// StatsEvery logs a statistics summary every N ticks; 0 uses DefaultStatsEvery,
	// negative disables.
	StatsEvery int

	// MaxTicks stops Run after that many ticks. 0 runs until cancelled.
	MaxTicks int

	// Console receives the human-readable per-sample lines. Nil discards them.
	Console io.Writer

	Logger Logger
}

// Monitor samples sensors on a fixed interval.
type Monitor struct {
	sensors    []*temperature.Sensor
	byID       map[string]*temperature.Sensor
	dataLog    *datalog.Logger
	csv        *datalog.CSVWriter
	sinks      []NamedSink
	interval   time.Duration
	statsEvery int
	maxTicks   uint64
	console    io.Writer
	logger     Logger

	mu    sync.Mutex
	ticks uint64
}

// New validates opts and returns a Monitor ready to Run.
func New(opts Options) (*Monitor, error) {
	if len(opts.Sensors) == 0 {
		return nil, ErrNoSensors
	}
	if opts.DataLog == nil {
		return nil, fmt.Errorf("monitor: data log is required")
	}

	m := &Monitor{
		sensors:    opts.Sensors,
		byID:       make(map[string]*temperature.Sensor, len(opts.Sensors)),
		dataLog:    opts.DataLog,
		csv:        opts.CSV,
		sinks:      opts.Sinks,
		interval:   opts.Interval,
		statsEvery: opts.StatsEvery,
		console:    opts.Console,
		logger:     opts.Logger,
	}
	for _, s := range opts.Sensors {
		if s == nil {
			return nil, fmt.Errorf("monitor: nil sensor")
		}
		if _, dup := m.byID[s.ID()]; dup {
			return nil, fmt.Errorf("monitor: duplicate sensor id %q", s.ID())
		}
		m.byID[s.ID()] = s
	}
	if opts.MaxTicks < 0 {
		return nil, fmt.Errorf("monitor: max ticks must not be negative")
	}
	m.maxTicks = uint64(opts.MaxTicks)
	if m.interval <= 0 {
		m.interval = time.Second
	}
	if m.statsEvery == 0 {
		m.statsEvery = DefaultStatsEvery
	}
	if m.console == nil {
		m.console = io.Discard
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}
	return m, nil
}

// Run samples immediately and then every interval until ctx is cancelled
// or MaxTicks ticks have run. It returns ctx.Err() on cancellation and nil
// when the tick budget is spent.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started", "sensors", len(m.sensors), "interval", m.interval.String())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			m.logger.Info("monitor stopped", "ticks", m.Ticks())
			return err
		}
		m.Tick(ctx)
		if m.maxTicks > 0 && m.Ticks() >= m.maxTicks {
			m.logger.Info("monitor finished", "ticks", m.Ticks())
			return nil
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped", "ticks", m.Ticks())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick reads every sensor once.
func (m *Monitor) Tick(ctx context.Context) {
	for _, s := range m.sensors {
		m.sample(ctx, s)
	}

	m.mu.Lock()
	m.ticks++
	n := m.ticks
	m.mu.Unlock()

	if m.statsEvery > 0 && n%uint64(m.statsEvery) == 0 {
		for _, s := range m.sensors {
			m.reportStats(ctx, s)
		}
	}
}

// Ticks returns the number of completed ticks.
func (m *Monitor) Ticks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}

func (m *Monitor) sample(ctx context.Context, s *temperature.Sensor) {
	before := s.Samples()
	d, err := s.ReadData()
	fresh := s.Samples() != before

	m.dataLog.LogSensorData(s, d, levelFor(d, err))
	m.printSample(s, d, err)

	if m.csv != nil {
		if cerr := m.csv.Write(s.ID(), d); cerr != nil {
			m.logger.Warn("csv export failed", "sensor_id", s.ID(), "error", cerr)
		}
	}

	if fresh {
		tier := s.Config().Classify(d.Value)
		for _, ns := range m.sinks {
			if obs, ok := ns.Sink.(TierObserver); ok {
				obs.ObserveTier(s.ID(), tier)
			}
		}
	}

	for _, ns := range m.sinks {
		m.record(ctx, ns, s.ID(), d)
	}
}

func (m *Monitor) record(ctx context.Context, ns NamedSink, sensorID string, d sensor.Data) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := ns.Sink.Record(ctx, sensorID, d); err != nil {
		m.logger.Warn("sink record failed", "sink", ns.Name, "sensor_id", sensorID, "error", err)
	}
}

func (m *Monitor) publishStats(ctx context.Context, sensorID string, st temperature.Stats) {
	for _, ns := range m.sinks {
		ss, ok := ns.Sink.(StatsSink)
		if !ok {
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := ss.RecordStats(sctx, sensorID, st); err != nil {
			m.logger.Warn("sink stats failed", "sink", ns.Name, "sensor_id", sensorID, "error", err)
		}
		cancel()
	}
}

func (m *Monitor) reportStats(ctx context.Context, s *temperature.Sensor) {
	st := s.Stats()
	m.dataLog.Logf(datalog.LevelInfo,
		"Statistics %s - Samples: %d, Min: %.2f, Max: %.2f, Avg: %.2f, StdDev: %.2f, Alerts: %d, Critical: %d",
		s.ID(), st.SampleCount, st.MinValue, st.MaxValue, st.AvgValue, st.StdDeviation, st.AlertCount, st.CriticalCount)
	WriteStats(m.console, s.ID(), st)
	m.publishStats(ctx, s.ID(), st)
}

// levelFor maps a read outcome to its data log level: hard failures are
// ERROR, threshold alerts WARNING, everything else INFO.
func levelFor(d sensor.Data, err error) datalog.Level {
	switch {
	case err != nil:
		return datalog.LevelError
	case d.Error != sensor.ErrorNone:
		return datalog.LevelWarning
	default:
		return datalog.LevelInfo
	}
}

func (m *Monitor) printSample(s *temperature.Sensor, d sensor.Data, err error) {
	if err != nil && !errors.Is(err, sensor.ErrOutOfRange) {
		fmt.Fprintf(m.console, "Error reading sensor %s: %s\n", s.ID(), s.LastError())
		return
	}
	valid := "No"
	if d.IsValid {
		valid = "Yes"
	}
	fmt.Fprintf(m.console, "%s %s: %.2f%s (Valid: %s)", s.ID(), s.Type(), d.Value, d.Unit, valid)
	if d.Error != sensor.ErrorNone {
		fmt.Fprintf(m.console, " [WARNING: %s]", d.Error)
	}
	fmt.Fprintln(m.console)
}

// command is the JSON body of an inbound command.
type command struct {
	Command string `json:"command"`
}

// HandleCommand applies a JSON command such as {"command":"reset_stats"} to
// one sensor. It is safe to call concurrently with Run.
func (m *Monitor) HandleCommand(sensorID string, payload []byte) error {
	s, ok := m.byID[sensorID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSensor, sensorID)
	}

	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: decoding payload: %w", ErrUnknownCommand, err)
	}

	switch cmd.Command {
	case CommandResetStats:
		s.ResetStats()
		m.dataLog.Logf(datalog.LevelInfo, "Statistics reset for sensor %s", sensorID)
		m.logger.Info("statistics reset", "sensor_id", sensorID)
		m.publishStats(context.Background(), sensorID, s.Stats())
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}
