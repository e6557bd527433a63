package monitor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/datalog"
	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// seqSource replays temperatures in order, wrapping at the end.
type seqSource struct {
	mu    sync.Mutex
	temps []float64
	i     int
	err   error
}

func (s *seqSource) Temperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	v := s.temps[s.i%len(s.temps)]
	s.i++
	return v, nil
}

func (s *seqSource) Humidity() (float64, error) { return 50, nil }

// stepClock advances one second per call so no read is debounced.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// recordingSink captures everything the monitor sends it.
type recordingSink struct {
	mu      sync.Mutex
	records []sensor.Data
	stats   []temperature.Stats
	tiers   []temperature.Tier
	fail    bool
}

func (r *recordingSink) Record(_ context.Context, _ string, d sensor.Data) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, d)
	if r.fail {
		return errors.New("sink down")
	}
	return nil
}

func (r *recordingSink) RecordStats(_ context.Context, _ string, st temperature.Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, st)
	return nil
}

func (r *recordingSink) ObserveTier(_ string, tier temperature.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, tier)
}

type warnCounter struct {
	noopLogger
	mu    sync.Mutex
	warns int
}

func (w *warnCounter) Warn(string, ...any) {
	w.mu.Lock()
	w.warns++
	w.mu.Unlock()
}

func newTestSensor(t *testing.T, id string, src temperature.Source) *temperature.Sensor {
	t.Helper()
	clock := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := temperature.New(id, temperature.DefaultConfig(),
		temperature.WithSource(src), temperature.WithClock(clock.now))
	if err != nil {
		t.Fatalf("temperature.New() error = %v", err)
	}
	t.Cleanup(func() { s.Cleanup() })
	return s
}

func newTestDataLog(t *testing.T) (*datalog.Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.log")
	dl, err := datalog.New(datalog.Config{
		FilePath:      path,
		MinLevel:      datalog.LevelDebug,
		LogToFile:     true,
		LogSensorData: true,
		MaxFileSizeKB: 1024,
		MaxFiles:      1,
	})
	if err != nil {
		t.Fatalf("datalog.New() error = %v", err)
	}
	t.Cleanup(func() { dl.Close() })
	return dl, path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading data log: %v", err)
	}
	return string(b)
}

func TestNew_Validation(t *testing.T) {
	dl, _ := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{22}})

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no sensors", Options{DataLog: dl}, ErrNoSensors},
		{"no data log", Options{Sensors: []*temperature.Sensor{s}}, nil},
		{"duplicate ids", Options{Sensors: []*temperature.Sensor{s, s}, DataLog: dl}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if err == nil {
				t.Fatal("New() expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTick_ClassifiesAndFansOut(t *testing.T) {
	dl, logPath := newTestDataLog(t)
	src := &seqSource{temps: []float64{22, 42, 47, 60}}
	s := newTestSensor(t, "T1", src)
	sink := &recordingSink{}
	var console bytes.Buffer

	m, err := New(Options{
		Sensors:    []*temperature.Sensor{s},
		DataLog:    dl,
		Sinks:      []NamedSink{{Name: "rec", Sink: sink}},
		StatsEvery: -1,
		Console:    &console,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for range 4 {
		m.Tick(ctx)
	}

	if m.Ticks() != 4 {
		t.Errorf("Ticks() = %d, want 4", m.Ticks())
	}
	if len(sink.records) != 4 {
		t.Fatalf("records = %d, want 4", len(sink.records))
	}
	wantTiers := []temperature.Tier{
		temperature.TierNormal, temperature.TierAlert, temperature.TierCritical, temperature.TierOutOfRange,
	}
	if len(sink.tiers) != len(wantTiers) {
		t.Fatalf("tiers = %v, want %v", sink.tiers, wantTiers)
	}
	for i, want := range wantTiers {
		if sink.tiers[i] != want {
			t.Errorf("tier[%d] = %v, want %v", i, sink.tiers[i], want)
		}
	}
	if sink.records[3].IsValid {
		t.Error("out-of-range sample recorded as valid")
	}
	if len(sink.stats) != 0 {
		t.Errorf("stats pushed with StatsEvery disabled: %d", len(sink.stats))
	}

	log := readLog(t, logPath)
	for _, want := range []string{
		"[INFO] Sensor: T1, Type: Temperature, Value: 22.00°C, Valid: Yes, Error: No Error",
		"[WARNING] Sensor: T1, Type: Temperature, Value: 42.00°C, Valid: Yes, Error: Value out of range",
		"[WARNING] Sensor: T1, Type: Temperature, Value: 47.00°C",
		"[ERROR] Sensor: T1, Type: Temperature, Value: 60.00°C, Valid: No",
	} {
		if !strings.Contains(log, want) {
			t.Errorf("data log missing %q\n%s", want, log)
		}
	}

	if !strings.Contains(console.String(), "T1 Temperature: 42.00°C (Valid: Yes) [WARNING: Value out of range]") {
		t.Errorf("console output = %q", console.String())
	}
}

func TestTick_ReadFailure(t *testing.T) {
	dl, logPath := newTestDataLog(t)
	src := &seqSource{err: sensor.ErrHardware}
	s := newTestSensor(t, "T1", src)
	sink := &recordingSink{}
	var console bytes.Buffer

	m, err := New(Options{
		Sensors: []*temperature.Sensor{s},
		DataLog: dl,
		Sinks:   []NamedSink{{Name: "rec", Sink: sink}},
		Console: &console,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.Tick(context.Background())

	if len(sink.tiers) != 0 {
		t.Errorf("tier observed for failed read: %v", sink.tiers)
	}
	if len(sink.records) != 1 || sink.records[0].Error != sensor.ErrorHardware {
		t.Errorf("records = %+v, want one hardware failure", sink.records)
	}
	if !strings.Contains(readLog(t, logPath), "[ERROR] Sensor: T1") {
		t.Error("failed read not logged at ERROR")
	}
	if !strings.Contains(console.String(), "Error reading sensor T1: Hardware error") {
		t.Errorf("console output = %q", console.String())
	}
}

func TestTick_StatsEvery(t *testing.T) {
	dl, logPath := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{20, 22, 24}})
	sink := &recordingSink{}
	var console bytes.Buffer

	m, err := New(Options{
		Sensors:    []*temperature.Sensor{s},
		DataLog:    dl,
		Sinks:      []NamedSink{{Name: "rec", Sink: sink}},
		StatsEvery: 3,
		Console:    &console,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for range 3 {
		m.Tick(context.Background())
	}

	if len(sink.stats) != 1 {
		t.Fatalf("stats pushes = %d, want 1", len(sink.stats))
	}
	if sink.stats[0].SampleCount != 3 || sink.stats[0].AvgValue != 22 {
		t.Errorf("stats = %+v, want 3 samples averaging 22", sink.stats[0])
	}
	if !strings.Contains(readLog(t, logPath), "Statistics T1 - Samples: 3, Min: 20.00, Max: 24.00, Avg: 22.00") {
		t.Error("statistics line missing from data log")
	}
	if !strings.Contains(console.String(), "Sensor Statistics (T1):") {
		t.Error("statistics block missing from console")
	}
}

func TestTick_SinkFailureDoesNotStopOthers(t *testing.T) {
	dl, _ := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{22}})
	broken := &recordingSink{fail: true}
	healthy := &recordingSink{}
	logger := &warnCounter{}

	m, err := New(Options{
		Sensors: []*temperature.Sensor{s},
		DataLog: dl,
		Sinks:   []NamedSink{{Name: "broken", Sink: broken}, {Name: "healthy", Sink: healthy}},
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.Tick(context.Background())

	if len(healthy.records) != 1 {
		t.Errorf("healthy sink records = %d, want 1", len(healthy.records))
	}
	if logger.warns != 1 {
		t.Errorf("warnings = %d, want 1", logger.warns)
	}
}

func TestHandleCommand(t *testing.T) {
	dl, logPath := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{22, 23}})
	sink := &recordingSink{}

	m, err := New(Options{
		Sensors:    []*temperature.Sensor{s},
		DataLog:    dl,
		Sinks:      []NamedSink{{Name: "rec", Sink: sink}},
		StatsEvery: -1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.Tick(context.Background())
	m.Tick(context.Background())

	if err := m.HandleCommand("T1", []byte(`{"command":"reset_stats"}`)); err != nil {
		t.Fatalf("HandleCommand(reset_stats) error = %v", err)
	}
	if got := s.Stats().SampleCount; got != 0 {
		t.Errorf("SampleCount after reset = %d, want 0", got)
	}
	if len(sink.stats) != 1 || sink.stats[0].SampleCount != 0 {
		t.Errorf("stats pushes = %+v, want one empty snapshot", sink.stats)
	}
	if !strings.Contains(readLog(t, logPath), "Statistics reset for sensor T1") {
		t.Error("reset not written to data log")
	}

	tests := []struct {
		name     string
		sensorID string
		payload  string
		want     error
	}{
		{"unknown sensor", "T9", `{"command":"reset_stats"}`, ErrUnknownSensor},
		{"unknown command", "T1", `{"command":"reboot"}`, ErrUnknownCommand},
		{"malformed payload", "T1", `reset`, ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.HandleCommand(tt.sensorID, []byte(tt.payload)); !errors.Is(err, tt.want) {
				t.Errorf("HandleCommand() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	dl, _ := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{22}})

	m, err := New(Options{
		Sensors:  []*temperature.Sensor{s},
		DataLog:  dl,
		Interval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for m.Ticks() < 3 {
		select {
		case <-deadline:
			t.Fatal("monitor did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_MaxTicks(t *testing.T) {
	dl, _ := newTestDataLog(t)
	src := &seqSource{temps: []float64{22}}
	s := newTestSensor(t, "T1", src)

	const interval = 20 * time.Millisecond
	m, err := New(Options{
		Sensors:  []*temperature.Sensor{s},
		DataLog:  dl,
		Interval: interval,
		MaxTicks: 3,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m.Ticks() != 3 {
		t.Errorf("Ticks() = %d, want 3", m.Ticks())
	}
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("Run() took %v, want ticks paced by the %v interval", elapsed, interval)
	}
	if src.i != 3 {
		t.Errorf("source samples = %d, want 3", src.i)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	dl, _ := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{22}})

	m, err := New(Options{Sensors: []*temperature.Sensor{s}, DataLog: dl, MaxTicks: 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if m.Ticks() != 0 {
		t.Errorf("Ticks() = %d, want 0", m.Ticks())
	}
}

func TestNew_NegativeMaxTicks(t *testing.T) {
	dl, _ := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{22}})

	if _, err := New(Options{Sensors: []*temperature.Sensor{s}, DataLog: dl, MaxTicks: -1}); err == nil {
		t.Error("New() with negative MaxTicks should fail")
	}
}

func TestTick_ResetDuringDebouncedRead(t *testing.T) {
	dl, _ := newTestDataLog(t)

	// Every clock read advances 100ms, so the second read is debounced. The
	// third clock read happens inside that second read and resets the stats.
	var (
		s     *temperature.Sensor
		calls int
		base  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		calls++
		if calls == 3 && s != nil {
			s.ResetStats()
		}
		return base.Add(time.Duration(calls) * 100 * time.Millisecond)
	}
	s, err := temperature.New("T1", temperature.DefaultConfig(),
		temperature.WithSource(&seqSource{temps: []float64{42}}), temperature.WithClock(clock))
	if err != nil {
		t.Fatalf("temperature.New() error = %v", err)
	}
	t.Cleanup(func() { s.Cleanup() })

	sink := &recordingSink{}
	m, err := New(Options{
		Sensors:    []*temperature.Sensor{s},
		DataLog:    dl,
		Sinks:      []NamedSink{{Name: "rec", Sink: sink}},
		StatsEvery: -1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	m.Tick(ctx)
	m.Tick(ctx)

	if len(sink.records) != 2 {
		t.Fatalf("records = %d, want 2", len(sink.records))
	}
	if len(sink.tiers) != 1 || sink.tiers[0] != temperature.TierAlert {
		t.Errorf("tiers = %v, want a single alert for the one fresh sample", sink.tiers)
	}
}

func TestSummaryAndWriteStats(t *testing.T) {
	dl, _ := newTestDataLog(t)
	s := newTestSensor(t, "T1", &seqSource{temps: []float64{46}})

	m, err := New(Options{Sensors: []*temperature.Sensor{s}, DataLog: dl})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.Tick(context.Background())

	summary := m.Summary()
	if len(summary) != 1 {
		t.Fatalf("len(Summary()) = %d, want 1", len(summary))
	}
	got := summary[0]
	if got.ID != "T1" || got.Name != temperature.DefaultName || got.Reads != 1 {
		t.Errorf("summary = %+v", got)
	}
	if got.Stats.CriticalCount != 1 || got.LastReading.Temperature != 46 {
		t.Errorf("stats/last = %+v/%+v", got.Stats, got.LastReading)
	}

	var buf bytes.Buffer
	WriteStats(&buf, "T1", got.Stats)
	for _, want := range []string{"Samples: 1", "Max Value: 46.00°C", "Critical: 1", "Critical Rate: 100.00%"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("WriteStats output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	WriteStats(&buf, "T2", temperature.Stats{})
	if strings.Contains(buf.String(), "Min Value") {
		t.Error("empty stats printed extrema")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name string
		d    sensor.Data
		err  error
		want datalog.Level
	}{
		{"normal", sensor.Data{IsValid: true}, nil, datalog.LevelInfo},
		{"soft alert", sensor.Data{IsValid: true, Error: sensor.ErrorOutOfRange}, nil, datalog.LevelWarning},
		{"hard failure", sensor.Data{Error: sensor.ErrorReadFailed}, sensor.ErrReadFailed, datalog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := levelFor(tt.d, tt.err); got != tt.want {
				t.Errorf("levelFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
