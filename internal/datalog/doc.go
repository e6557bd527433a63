// Package datalog provides the EdgeTrack data logger: a leveled, line-oriented
// log of operational messages and sensor records with console and file sinks
// and size-based rotation.
//
// It is distinct from package logging, which carries structured diagnostics
// for the daemon itself. The data log is the operator-facing record:
//
//	[2026-03-01 12:00:00] [INFO] Sensor: TEMP001, Type: Temperature, Value: 24.87°C, Valid: Yes, Error: No Error
//
// # Rotation
//
// When the bytes written to the current file reach MaxFileSizeKB × 1024 the
// file is rotated after the line that crossed the limit completes:
//
//	edgetrack.log      -> edgetrack.log.1
//	edgetrack.log.1    -> edgetrack.log.2
//	...
//	edgetrack.log.N    deleted (N = MaxFiles)
//
// At most MaxFiles+1 files exist at any time.
//
// # Thread Safety
//
// A single mutex serialises every write, rotation, configuration change and
// close, so lines never interleave and rotation is atomic for writers.
package datalog
