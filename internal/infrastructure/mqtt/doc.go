// Package mqtt publishes sensor readings over MQTT and receives per-sensor
// commands.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Reading and statistics publishing with QoS guarantees
//   - Command subscriptions, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// All topics sit under the configured prefix (default "edgetrack"):
//
//	<prefix>/sensor/<id>/reading   every sample, QoS from config
//	<prefix>/sensor/<id>/stats     statistics snapshot, retained
//	<prefix>/sensor/<id>/command   inbound commands such as {"command":"reset_stats"}
//	<prefix>/system/status         online/offline, retained, also the LWT
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishReading("TEMP001", data)
//
// # Security Considerations
//
// TLS should be enabled (cfg.Broker.TLS) whenever the broker is not on
// localhost. Payloads carry no secrets beyond the sensor identifiers.
package mqtt
