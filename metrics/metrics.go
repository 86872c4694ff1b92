// Package metrics defines the instrumentation capability for the payment
// middleware: counters per payment event and latency per collaborator call.
package metrics

import "time"

// Recorder receives payment protocol measurements.
type Recorder interface {
	// IncEvent counts one payment event (payment_required, payment_verified,
	// payment_completed, payment_failed, payment_rejected) per network.
	IncEvent(event, network string)

	// ObserveLatency records the duration of one collaborator operation
	// (verify, settle, delegate).
	ObserveLatency(operation, network string, d time.Duration)
}

// NoopRecorder discards all measurements.
type NoopRecorder struct{}

func (NoopRecorder) IncEvent(string, string)                      {}
func (NoopRecorder) ObserveLatency(string, string, time.Duration) {}
