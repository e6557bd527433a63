// Package influxdb streams sensor readings and statistics to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with non-blocking,
// batched writes. Two measurements are written:
//
//   - sensor_reading: one point per sample, tagged by sensor_id, sensor_type
//     and unit, with value, valid and error_code fields
//   - sensor_stats: periodic statistics snapshots per sensor
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("TEMP001", data)
//
// # Error Handling
//
// Writes are asynchronous; failures are delivered to the callback set with
// SetOnError. Connection and health check errors are returned directly.
package influxdb
