package ads1115

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/nerrad567/edgetrack-core/internal/infrastructure/config"
	"github.com/nerrad567/edgetrack-core/internal/sensor"
)

// Conn is the register transport; *i2c.Dev satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// Source samples one ADS1115.
type Source struct {
	mu    sync.Mutex
	conn  Conn
	bus   i2c.BusCloser
	cfg   config.ADS1115Config
	sleep func(time.Duration)

	lastCelsius float64
}

// Open initialises the host drivers and opens the configured I2C bus.
func Open(cfg config.ADS1115Config) (*Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %w", sensor.ErrHardware, err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("%w: opening i2c bus %q: %w", sensor.ErrCommunication, cfg.Bus, err)
	}

	// #nosec G115 -- address validated to 0x48-0x4B by config
	dev := &i2c.Dev{Addr: uint16(cfg.Address), Bus: bus}
	s := NewSource(dev, cfg)
	s.bus = bus
	return s, nil
}

// NewSource wraps an existing connection.
func NewSource(conn Conn, cfg config.ADS1115Config) *Source {
	return &Source{
		conn:        conn,
		cfg:         cfg,
		sleep:       time.Sleep,
		lastCelsius: 25,
	}
}

// Close releases the I2C bus when Open created it.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus == nil {
		return nil
	}
	err := s.bus.Close()
	s.bus = nil
	return err
}

// Temperature samples the temperature channel.
func (s *Source) Temperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	volts, err := s.sample(s.cfg.Channel)
	if err != nil {
		return 0, err
	}
	c := TMP36Celsius(volts)
	s.lastCelsius = c
	return c, nil
}

// Humidity samples the humidity channel, compensating with the last
// temperature. It fails with ErrInvalidParam when no channel is configured.
func (s *Source) Humidity() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.HumidityChannel < 0 {
		return 0, fmt.Errorf("%w: no humidity channel configured", sensor.ErrInvalidParam)
	}
	volts, err := s.sample(s.cfg.HumidityChannel)
	if err != nil {
		return 0, err
	}
	supply := s.cfg.SupplyVoltage
	if supply <= 0 {
		supply = 5
	}
	return HIH4030Humidity(volts, supply, s.lastCelsius), nil
}

// sample runs one single-shot conversion. Callers hold s.mu.
func (s *Source) sample(channel int) (float64, error) {
	word, err := configWord(channel, s.cfg.SampleRate)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", sensor.ErrInvalidParam, err)
	}
	if err := s.conn.Tx([]byte{pointerConfig, word[0], word[1]}, nil); err != nil {
		return 0, fmt.Errorf("%w: writing config: %w", sensor.ErrCommunication, err)
	}

	s.sleep(time.Duration(conversionDelayMS(s.cfg.SampleRate)) * time.Millisecond)

	buf := make([]byte, 2)
	if err := s.conn.Tx([]byte{pointerConversion}, buf); err != nil {
		return 0, fmt.Errorf("%w: reading conversion: %w", sensor.ErrCommunication, err)
	}
	return rawToVolts(buf[0], buf[1]), nil
}
