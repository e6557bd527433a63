// Package sensor provides the polymorphic sensor abstraction for EdgeTrack Core.
//
// A Sensor carries identity (id, name, location), a sensor Type, sample and
// error counters, and a bound Driver that implements the actual measurement.
// Concrete sensor variants (see package temperature) implement Driver and
// bind themselves to a Sensor with Bind.
//
// # Reading
//
// ReadData is the single entry point for sampling:
//
//	s, _ := sensor.New(sensor.TypeTemperature, "temp-01")
//	_ = s.Bind(driver)
//	data, err := s.ReadData()
//
// Every call stamps the reading with the sensor type, the current time and
// the default unit for the type before the driver runs. A returned error is a
// hard failure; the sensor remains usable afterwards.
//
// # Errors
//
// Errors form a closed taxonomy (ErrorCode) with matching sentinel errors for
// use with errors.Is. CodeOf maps any error back to its ErrorCode.
//
// # Thread Safety
//
// All Sensor methods are safe for concurrent use.
package sensor
