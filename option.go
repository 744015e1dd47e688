package payrelay

import (
	"time"

	"github.com/vennlabs/payrelay/events"
	"github.com/vennlabs/payrelay/logger"
	"github.com/vennlabs/payrelay/metrics"
	"github.com/vennlabs/payrelay/oracle"
	"github.com/vennlabs/payrelay/settlement"
)

// Option configures a PayRelay at construction time.
type Option func(*PayRelay)

// WithLogger replaces the relay's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *PayRelay) {
		p.log = l
	}
}

// WithMetrics replaces the relay's metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(p *PayRelay) {
		p.metrics = r
	}
}

// WithEmitter replaces the terminal event sink.
func WithEmitter(e events.Emitter) Option {
	return func(p *PayRelay) {
		p.emitter = e
	}
}

// WithClock replaces the time source used for rate staleness checks.
func WithClock(now func() time.Time) Option {
	return func(p *PayRelay) {
		p.now = now
	}
}

// WithTimeout sets the default deadline applied to remote calls.
func WithTimeout(t time.Duration) Option {
	return func(p *PayRelay) {
		p.timeout = t
	}
}

// WithPairSource injects the provider-pair oracle client.
func WithPairSource(s oracle.PairSource) Option {
	return func(p *PayRelay) {
		p.pairSource = s
	}
}

// WithFeedSource injects the feed-shape oracle client.
func WithFeedSource(s oracle.FeedSource) Option {
	return func(p *PayRelay) {
		p.feedSource = s
	}
}

// WithMetadataSource injects the token metadata client.
func WithMetadataSource(s oracle.TokenMetadataSource) Option {
	return func(p *PayRelay) {
		p.metaSource = s
	}
}

// WithLedgerClient injects the native-asset ledger client.
func WithLedgerClient(c settlement.LedgerClient) Option {
	return func(p *PayRelay) {
		p.ledger = c
	}
}

// WithTokenClient injects the fungible token client.
func WithTokenClient(c settlement.TokenClient) Option {
	return func(p *PayRelay) {
		p.token = c
	}
}
