// Package metrics abstracts the counters and latencies payrelay records per
// saga stage, keyed by settlement asset kind.
package metrics

import "time"

// Recorder receives saga outcome counters and per-stage latencies.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Counter and operation names recorded by the saga orchestrator.
const (
	CounterSettled  = "settled"
	CounterRefunded = "refunded"
	CounterRejected = "rejected"

	OpRateResolution = "rate_resolution"
	OpTransfer       = "transfer"
	OpSaga           = "saga"
)
