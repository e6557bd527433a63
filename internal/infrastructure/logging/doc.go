// Package logging provides structured diagnostic logging for EdgeTrack Core.
//
// This package wraps Go's standard log/slog package. It is used for the
// daemon's own diagnostics (connections, failures, lifecycle); sensor
// records and operator messages go through package datalog.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("monitor started", "sensors", 2)
//	logger.Error("mqtt publish failed", "error", err)
//
// Never log secrets such as the MQTT password or InfluxDB token.
package logging
