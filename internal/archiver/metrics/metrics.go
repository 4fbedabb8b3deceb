// Package metrics defines the small reporting surface the archive pipeline
// emits through. Backends buffer samples and ship them on Flush; the zero
// backend is Nop, so callers never nil-check.
package metrics

import "time"

// Labels tag one sample. Keys and values end up as "key:value" tags on
// whatever backend is wired.
type Labels map[string]string

// Backend receives pipeline counters and timings. Implementations must be
// safe for concurrent use and must tolerate Flush and Close after Close.
type Backend interface {
	// Count adds delta to a monotonic counter.
	Count(name string, delta float64, labels Labels)
	// Gauge records the latest value of a point-in-time measurement.
	Gauge(name string, value float64, labels Labels)
	// Timing records one duration sample for percentile aggregation.
	Timing(name string, d time.Duration, labels Labels)
	// Flush ships everything buffered so far.
	Flush() error
	// Close flushes and releases the backend.
	Close() error
}

// Nop discards every sample. Used whenever no metrics backend is configured.
type Nop struct{}

func (Nop) Count(string, float64, Labels)        {}
func (Nop) Gauge(string, float64, Labels)        {}
func (Nop) Timing(string, time.Duration, Labels) {}
func (Nop) Flush() error                         { return nil }
func (Nop) Close() error                         { return nil }
