// Package driver is the public handle on one arm connection. It owns the
// telemetry store, the command channel, the metrics and the I/O pipeline.
package driver
