package sensor

import "errors"

// ErrorCode is the closed error taxonomy shared by sensors and readings.
type ErrorCode int

// Error codes.
const (
	ErrorNone ErrorCode = iota
	ErrorInvalidParam
	ErrorInitFailed
	ErrorReadFailed
	ErrorOutOfRange
	ErrorHardware
	ErrorMemory
	ErrorCommunication
	ErrorCalibration

	errorCount
)

var errorNames = [errorCount]string{
	"No error",
	"Invalid parameter",
	"Initialization failed",
	"Read operation failed",
	"Value out of range",
	"Hardware error",
	"Memory allocation failed",
	"Communication error",
	"Calibration error",
}

// String returns the human-readable description of the code, or
// "Unknown error" for values outside the taxonomy.
func (c ErrorCode) String() string {
	if c < 0 || c >= errorCount {
		return "Unknown error"
	}
	return errorNames[c]
}

// Sentinel errors for sensor operations.
//
// Each maps one-to-one onto an ErrorCode and can be checked with errors.Is:
//
//	if errors.Is(err, sensor.ErrOutOfRange) {
//	    // reading was outside the configured range
//	}
var (
	// ErrInvalidParam indicates a missing or malformed argument or configuration.
	ErrInvalidParam = errors.New("sensor: invalid parameter")

	// ErrInitFailed indicates a sensor variant could not be initialised.
	ErrInitFailed = errors.New("sensor: initialization failed")

	// ErrReadFailed indicates sampling failed.
	ErrReadFailed = errors.New("sensor: read operation failed")

	// ErrOutOfRange indicates a reading fell outside the configured range.
	ErrOutOfRange = errors.New("sensor: value out of range")

	// ErrHardware indicates a device fault.
	ErrHardware = errors.New("sensor: hardware error")

	// ErrMemory indicates a resource could not be allocated.
	ErrMemory = errors.New("sensor: memory allocation failed")

	// ErrCommunication indicates a bus or link failure.
	ErrCommunication = errors.New("sensor: communication error")

	// ErrCalibration indicates calibration data is missing or invalid.
	ErrCalibration = errors.New("sensor: calibration error")
)

var codeErrors = [errorCount]error{
	nil,
	ErrInvalidParam,
	ErrInitFailed,
	ErrReadFailed,
	ErrOutOfRange,
	ErrHardware,
	ErrMemory,
	ErrCommunication,
	ErrCalibration,
}

// Err returns the sentinel error for the code. ErrorNone and unknown codes
// return nil.
func (c ErrorCode) Err() error {
	if c < 0 || c >= errorCount {
		return nil
	}
	return codeErrors[c]
}

// CodeOf maps an error to its ErrorCode.
//
// nil maps to ErrorNone. Errors that wrap none of the sentinels map to
// ErrorReadFailed, since they can only originate from a failed sample.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrorNone
	}
	for c := ErrorInvalidParam; c < errorCount; c++ {
		if errors.Is(err, codeErrors[c]) {
			return c
		}
	}
	return ErrorReadFailed
}
