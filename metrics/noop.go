package metrics

import "time"

// NoopRecorder discards every observation. Default when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
