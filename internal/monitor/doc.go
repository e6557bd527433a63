// Package monitor drives the sampling loop.
//
// Each tick reads every configured temperature sensor, writes the outcome to
// the data log (and optional CSV export), then fans the sample out to the
// registered sinks: SQLite history, MQTT, InfluxDB and Prometheus. Every
// StatsEvery ticks a statistics summary is logged and pushed to sinks that
// accept statistics.
//
// Commands arriving over MQTT are applied through HandleCommand.
package monitor
