package ads1115

import "fmt"

// Register pointers.
const (
	pointerConversion = 0x00
	pointerConfig     = 0x01
)

// fullScaleVolts is the ±4.096 V programmable gain setting.
const fullScaleVolts = 4.096

// dataRates maps samples-per-second to the DR bits of the config register.
var dataRates = map[int]byte{
	8: 0x0, 16: 0x1, 32: 0x2, 64: 0x3, 128: 0x4, 250: 0x5, 475: 0x6, 860: 0x7,
}

// configWord builds a single-shot, single-ended conversion request for
// channel at the given data rate. Unknown rates fall back to 128 SPS.
func configWord(channel, sampleRate int) ([2]byte, error) {
	if channel < 0 || channel > 3 {
		return [2]byte{}, fmt.Errorf("invalid channel %d", channel)
	}
	dr, ok := dataRates[sampleRate]
	if !ok {
		dr = dataRates[128]
	}

	mux := byte(0x4 + channel) // AINx vs GND
	const pga = 0x1            // ±4.096 V

	word := uint16(0x8000) // start conversion
	word |= uint16(mux) << 12
	word |= uint16(pga) << 9
	word |= 1 << 8 // single-shot
	word |= uint16(dr) << 5
	word |= 0x3 // comparator off
	return [2]byte{byte(word >> 8), byte(word)}, nil
}

// rawToVolts converts a big-endian conversion register value to volts.
func rawToVolts(msb, lsb byte) float64 {
	raw := int16(uint16(msb)<<8 | uint16(lsb))
	return float64(raw) * fullScaleVolts / 32768.0
}

// TMP36Celsius converts a TMP36 output voltage to °C.
func TMP36Celsius(volts float64) float64 {
	return (volts - 0.5) * 100
}

// HIH4030Humidity converts an HIH-4030 output voltage to relative humidity,
// compensated for temperature and clamped to 0..100 %.
func HIH4030Humidity(volts, supply, celsius float64) float64 {
	sensorRH := (volts/supply - 0.16) / 0.0062
	rh := sensorRH / (1.0546 - 0.00216*celsius)
	return min(max(rh, 0), 100)
}

// conversionDelayMS returns how long one conversion takes at sampleRate, plus margin.
func conversionDelayMS(sampleRate int) int {
	if _, ok := dataRates[sampleRate]; !ok {
		sampleRate = 128
	}
	return 1000/sampleRate + 2
}
