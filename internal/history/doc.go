// Package history persists sensor readings and statistics snapshots to SQLite.
//
// Readings are stored one row per sample in sensor_readings, tagged with the
// run id of the daemon process that produced them. Old rows are removed by a
// Pruner on a cron schedule.
package history
