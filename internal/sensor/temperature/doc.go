// Package temperature implements the temperature sensor variant.
//
// A temperature Sensor composes a generic sensor.Sensor and binds itself as
// its Driver. Each fresh sample applies the calibration offset, optionally
// samples humidity and derives dew point and heat index, updates running
// statistics and classifies the value:
//
//   - outside [MinTemp, MaxTemp]: hard failure, reading invalid, ErrOutOfRange returned
//   - above AlertThreshold: soft alert, Data.Error = ErrorOutOfRange, no error returned
//   - at or above CriticalThreshold: soft alert that also counts as critical
//
// The three checks are independent, so one extreme sample can trip all of them.
//
// Reads closer together than SamplingRateMS are debounced: the previous value
// is returned as valid and statistics are left untouched.
//
// Samples come from a Source. The default Source is a Simulator; package
// ads1115 provides a hardware Source.
package temperature
