// Package events publishes the terminal saga outcome events that external
// indexers consume. The JSON field names of a PaymentEvent are a published
// contract; emitters render the event verbatim.
package events

import (
	"context"

	"github.com/bytedance/sonic"

	"github.com/vennlabs/payrelay/logger"
	"github.com/vennlabs/payrelay/types"
)

// Emitter publishes one event per terminal saga outcome.
type Emitter interface {
	Emit(ctx context.Context, event types.PaymentEvent) error
}

// LogEmitter renders events as a single JSON log line, the indexing contract
// of the native deployment.
type LogEmitter struct {
	log logger.Logger
}

// NewLogEmitter builds an emitter over the given logger.
func NewLogEmitter(log logger.Logger) *LogEmitter {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &LogEmitter{log: log}
}

// Emit logs the event payload.
func (e *LogEmitter) Emit(_ context.Context, event types.PaymentEvent) error {
	payload, err := sonic.MarshalString(event)
	if err != nil {
		return err
	}
	e.log.Info("payment settled", map[string]any{"event": payload})
	return nil
}

// NoopEmitter drops events; used when no sink is configured.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, types.PaymentEvent) error { return nil }

var _ Emitter = (*LogEmitter)(nil)
var _ Emitter = NoopEmitter{}
