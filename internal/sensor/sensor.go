package sensor

import (
	"fmt"
	"sync"
	"time"
)

// Identity length limits, in characters. Longer values are truncated.
const (
	MaxIDLen       = 31
	MaxNameLen     = 63
	MaxLocationLen = 63
)

// Driver is implemented by concrete sensor variants.
//
// Read fills in Value, IsValid and (optionally) Error on a reading that has
// already been stamped with type, timestamp and unit. A non-nil error is a
// hard failure; a variant may also set data.Error to a more specific code.
type Driver interface {
	Initialize() error
	Read(data *Data) error
	Cleanup() error
}

// Option configures a Sensor at construction.
type Option func(*Sensor)

// WithClock overrides the time source used to stamp readings.
func WithClock(now func() time.Time) Option {
	return func(s *Sensor) {
		if now != nil {
			s.now = now
		}
	}
}

// Sensor is the generic sensor record shared by all variants.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Sensor struct {
	mu sync.Mutex

	id       string
	name     string
	location string
	typ      Type

	sampleCount uint64
	errorCount  uint64
	lastError   ErrorCode

	driver Driver
	now    func() time.Time
}

// New creates a sensor of the given type with no read capability bound.
//
// Parameters:
//   - typ: Sensor type
//   - id: Unique identifier, truncated to MaxIDLen characters
//
// Returns:
//   - *Sensor: Sensor with zeroed counters
//   - error: ErrInvalidParam if id is empty
func New(typ Type, id string, opts ...Option) (*Sensor, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: sensor id is required", ErrInvalidParam)
	}

	s := &Sensor{
		id:        truncate(id, MaxIDLen),
		typ:       typ,
		lastError: ErrorNone,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bind attaches a concrete variant and runs its initialisation.
//
// On failure the sensor stays unbound and the error wraps ErrInitFailed.
func (s *Sensor) Bind(d Driver) error {
	if d == nil {
		return fmt.Errorf("%w: nil driver", ErrInvalidParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := d.Initialize(); err != nil {
		s.lastError = ErrorInitFailed
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	s.driver = d
	return nil
}

// ReadData samples the sensor through its bound variant.
//
// The reading is stamped with type, timestamp and default unit and marked
// invalid before the variant runs. SampleCount counts every attempt that
// reaches the variant; ErrorCount counts every attempt the variant fails.
//
// Returns:
//   - Data: The reading, populated as far as the variant got
//   - error: ErrInvalidParam if nothing is bound, otherwise the variant's error
func (s *Sensor) ReadData() (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		s.lastError = ErrorInvalidParam
		return Data{}, fmt.Errorf("%w: no read capability bound", ErrInvalidParam)
	}

	data := Data{
		Type:      s.typ,
		Timestamp: s.now(),
		IsValid:   false,
		Error:     ErrorNone,
		Unit:      truncate(s.typ.Unit(), MaxUnitLen),
	}
	s.sampleCount++

	if err := s.driver.Read(&data); err != nil {
		if data.Error != ErrorNone {
			s.lastError = data.Error
		} else {
			s.lastError = CodeOf(err)
			data.Error = s.lastError
		}
		s.errorCount++
		return data, err
	}

	s.lastError = ErrorNone
	return data, nil
}

// Cleanup releases the bound variant. Calling it more than once is safe;
// later calls are no-ops. Reads after Cleanup fail with ErrInvalidParam.
func (s *Sensor) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		return nil
	}
	d := s.driver
	s.driver = nil
	if err := d.Cleanup(); err != nil {
		return fmt.Errorf("cleaning up sensor %s: %w", s.id, err)
	}
	return nil
}

// SetName sets the display name, truncated to MaxNameLen characters.
func (s *Sensor) SetName(name string) {
	s.mu.Lock()
	s.name = truncate(name, MaxNameLen)
	s.mu.Unlock()
}

// SetLocation sets the installation location, truncated to MaxLocationLen characters.
func (s *Sensor) SetLocation(location string) {
	s.mu.Lock()
	s.location = truncate(location, MaxLocationLen)
	s.mu.Unlock()
}

// ID returns the sensor identifier.
func (s *Sensor) ID() string { return s.id }

// Type returns the sensor type.
func (s *Sensor) Type() Type { return s.typ }

func (s *Sensor) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Sensor) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// SampleCount returns the number of read attempts that reached the variant.
func (s *Sensor) SampleCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleCount
}

// ErrorCount returns the number of failed read attempts.
func (s *Sensor) ErrorCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorCount
}

// LastError returns the code recorded by the most recent operation.
func (s *Sensor) LastError() ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Bound reports whether a variant is currently bound.
func (s *Sensor) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver != nil
}

// truncate shortens v to at most n characters without splitting a rune.
func truncate(v string, n int) string {
	runes := []rune(v)
	if len(runes) <= n {
		return v
	}
	return string(runes[:n])
}
