// Package oracle resolves conversion rates from external price sources and
// validates them before any funds move. Two source shapes exist in the
// domain: a provider pair shape ("BASE/QUOTE" plus a provider identity) and
// a feed shape (an opaque 32-byte feed address whose host is paid by a feed
// payer). Token settlements additionally resolve token metadata first, since
// the token symbol names the oracle pair and the decimals drive the
// conversion.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vennlabs/payrelay/logger"
	"github.com/vennlabs/payrelay/types"
)

// PairSource is the provider-pair oracle shape.
type PairSource interface {
	GetEntry(ctx context.Context, pair string, provider string) (*types.PriceEntry, error)
}

// FeedSource is the feed oracle shape; the feed host itself is paid for data
// by the configured feed payer.
type FeedSource interface {
	AggregatorRead(ctx context.Context, feedAddress [32]byte, feedPayer [32]byte) (*types.PriceEntry, error)
}

// TokenMetadataSource resolves a fungible token's symbol and decimals.
type TokenMetadataSource interface {
	Metadata(ctx context.Context, token string) (*types.TokenMetadata, error)
}

// Resolver issues the remote oracle queries of a saga instance and turns
// their responses into a validated PriceEntry or a typed failure.
type Resolver struct {
	pair PairSource
	feed FeedSource
	meta TokenMetadataSource
	log  logger.Logger
	now  func() time.Time
}

// NewResolver wires a resolver. Sources not used by a deployment's variant
// may be nil; resolving through a nil source fails as unreachable.
func NewResolver(pair PairSource, feed FeedSource, meta TokenMetadataSource, log logger.Logger, now func() time.Time) *Resolver {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{pair: pair, feed: feed, meta: meta, log: log, now: now}
}

// ResolveNative queries the feed-shape oracle and validates the entry.
func (r *Resolver) ResolveNative(ctx context.Context, feedAddress, feedPayer [32]byte, maxRateTimespan time.Duration) (*types.PriceEntry, error) {
	if r.feed == nil {
		return nil, types.Errf(types.ErrOracleUnreachable, "no feed source configured")
	}
	entry, err := r.feed.AggregatorRead(ctx, feedAddress, feedPayer)
	if err != nil {
		return nil, classify(err, types.ErrOracleUnreachable)
	}
	if err := r.validate(entry, maxRateTimespan); err != nil {
		return nil, err
	}
	return entry, nil
}

// ResolveToken resolves the token metadata, constructs the oracle pair as
// "{symbol}/{currency}" and only then performs the rate query. A metadata
// failure is reported before any rate query is attempted.
func (r *Resolver) ResolveToken(ctx context.Context, token, currency, provider string, maxRateTimespan time.Duration) (*types.PriceEntry, *types.TokenMetadata, error) {
	if r.meta == nil {
		return nil, nil, types.Errf(types.ErrMetadataUnreachable, "no metadata source configured")
	}
	meta, err := r.meta.Metadata(ctx, token)
	if err != nil {
		return nil, nil, classify(err, types.ErrMetadataUnreachable)
	}
	if meta.Symbol == "" {
		return nil, nil, types.Errf(types.ErrMetadataMalformed, "token %s metadata has no symbol", token)
	}
	if r.pair == nil {
		return nil, nil, types.Errf(types.ErrOracleUnreachable, "no pair source configured")
	}
	pair := meta.Symbol + "/" + currency
	r.log.Debug("querying oracle pair", map[string]any{"pair": pair, "provider": provider})
	entry, err := r.pair.GetEntry(ctx, pair, provider)
	if err != nil {
		return nil, nil, classify(err, types.ErrOracleUnreachable)
	}
	if err := r.validate(entry, maxRateTimespan); err != nil {
		return nil, nil, err
	}
	return entry, meta, nil
}

// validate enforces the usability rules of a price entry: a healthy reporting
// round, a representable non-negative value and, when the caller bounded the
// rate age, freshness.
func (r *Resolver) validate(entry *types.PriceEntry, maxRateTimespan time.Duration) error {
	if entry == nil || entry.Value == nil {
		return types.Errf(types.ErrMalformedResponse, "oracle returned an empty entry")
	}
	if entry.NumError != 0 || entry.NumSuccess < 1 {
		return types.Errf(types.ErrRateInvalid,
			"conversion errors: %d, successes: %d", entry.NumError, entry.NumSuccess)
	}
	if entry.Value.Sign() < 0 {
		return types.Errf(types.ErrRateInvalid, "negative conversion rate %s", entry.Value)
	}
	if maxRateTimespan != 0 && r.now().Sub(entry.ObservedAt) > maxRateTimespan {
		return types.Errf(types.ErrRateStale,
			"conversion rate too old (last updated: %s)", entry.ObservedAt.Format(time.RFC3339Nano))
	}
	return nil
}

// classify keeps already-typed relay errors and wraps anything else (transport
// or host failure) under the given unreachable code.
func classify(err error, code string) error {
	var relayErr *types.RelayError
	if errors.As(err, &relayErr) {
		return relayErr
	}
	return &types.RelayError{Code: code, Message: fmt.Sprintf("remote call failed: %v", err)}
}
