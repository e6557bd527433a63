package mqtt

import "errors"

// Sentinel errors for broker operations. Wrapped errors carry the paho cause.
var (
	// ErrNotConnected means the client is closed or the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the startup connect did not complete.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed covers timeouts, oversized payloads and broker rejections.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS means a QoS above 2 was requested.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic means the topic is empty or a sensor id would break
	// the topic hierarchy.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
