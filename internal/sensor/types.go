package sensor

import (
	"fmt"
	"strings"
	"time"
)

// Type identifies the physical quantity a sensor measures.
type Type int

// Sensor types. The order is part of the wire format for stored readings.
const (
	TypeTemperature Type = iota
	TypeHumidity
	TypePressure
	TypeGas
	TypeVibration
	TypeCurrent
	TypeVoltage
	TypePower
	TypeFlow
	TypeLevel
	TypePosition
	TypeSpeed
	TypeAcceleration
	TypeGyroscope
	TypeMagnetic

	typeCount
)

var typeNames = [typeCount]string{
	"Temperature",
	"Humidity",
	"Pressure",
	"Gas",
	"Vibration",
	"Current",
	"Voltage",
	"Power",
	"Flow",
	"Level",
	"Position",
	"Speed",
	"Acceleration",
	"Gyroscope",
	"Magnetic",
}

var typeUnits = [typeCount]string{
	"°C",
	"%",
	"kPa",
	"ppm",
	"g",
	"A",
	"V",
	"W",
	"L/min",
	"m",
	"mm",
	"rpm",
	"m/s²",
	"°/s",
	"µT",
}

// String returns the display name of the type, or "Unknown sensor type"
// for values outside the enumeration.
func (t Type) String() string {
	if !t.Valid() {
		return "Unknown sensor type"
	}
	return typeNames[t]
}

// Unit returns the default measurement unit for the type.
// Unknown types have no unit.
func (t Type) Unit() string {
	if !t.Valid() {
		return ""
	}
	return typeUnits[t]
}

// Valid reports whether t is one of the defined sensor types.
func (t Type) Valid() bool {
	return t >= 0 && t < typeCount
}

// AllTypes returns every defined sensor type in enumeration order.
func AllTypes() []Type {
	types := make([]Type, 0, typeCount)
	for t := Type(0); t < typeCount; t++ {
		types = append(types, t)
	}
	return types
}

// ParseType converts a display name (case-insensitive) to a Type.
//
// Returns:
//   - Type: The matching type
//   - bool: false if no type has that name
func ParseType(name string) (Type, bool) {
	for t := Type(0); t < typeCount; t++ {
		if strings.EqualFold(typeNames[t], strings.TrimSpace(name)) {
			return t, true
		}
	}
	return 0, false
}

// MarshalText encodes the type by display name, so JSON carries
// "Temperature" rather than the enumeration value.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("sensor type %d out of range", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, ok := ParseType(string(text))
	if !ok {
		return fmt.Errorf("unknown sensor type %q", text)
	}
	*t = parsed
	return nil
}

// MaxUnitLen is the longest unit string a reading carries, in characters.
const MaxUnitLen = 15

// Data is a single reading produced by a sensor.
//
// A fresh Data value is returned by every read; callers own it.
type Data struct {
	Type      Type      `json:"type"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	IsValid   bool      `json:"is_valid"`
	Error     ErrorCode `json:"error"`
	Unit      string    `json:"unit"`
}
