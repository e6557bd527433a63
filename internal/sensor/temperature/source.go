package temperature

import (
	"math/rand/v2"
	"sync"
)

// Source produces raw samples. Calibration is applied by the sensor, not the source.
type Source interface {
	// Temperature returns the measured temperature in °C.
	Temperature() (float64, error)

	// Humidity returns relative humidity in %. Only called when humidity is enabled.
	Humidity() (float64, error)
}

// Simulator is a Source that produces plausible factory-floor values:
// temperature uniformly within Base ± Variation and humidity within
// HumidityBase .. HumidityBase+HumiditySpan. A Simulator built as a literal
// seeds itself on first use.
type Simulator struct {
	Base         float64
	Variation    float64
	HumidityBase float64
	HumiditySpan float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator returns a Simulator centred on 25 °C ± 1 with 45..55 % humidity.
// A zero seed picks a random one.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{
		Base:         25,
		Variation:    1,
		HumidityBase: 45,
		HumiditySpan: 10,
		rng:          newRand(seed),
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (s *Simulator) Temperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Base + (s.float()*2-1)*s.Variation, nil
}

func (s *Simulator) Humidity() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.HumidityBase + s.float()*s.HumiditySpan, nil
}

// float draws from the generator, creating it if needed. Callers hold mu.
func (s *Simulator) float() float64 {
	if s.rng == nil {
		s.rng = newRand(0)
	}
	return s.rng.Float64()
}
