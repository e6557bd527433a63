// Package metrics exposes sensor activity as Prometheus metrics.
//
// A Collector owns its own registry so tests and multiple monitors do not
// collide on the global default registry. Server serves the registry on the
// configured listen address alongside a /healthz endpoint.
package metrics
