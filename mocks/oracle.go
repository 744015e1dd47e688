// Package mocks provides the in-memory test doubles for the external
// collaborators: a pair-shape price oracle, a feed-shape aggregator parser,
// a fungible token and a native ledger. They allow the whole saga to run
// without a live network.
package mocks

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/vennlabs/payrelay/types"
	"github.com/vennlabs/payrelay/utils"
)

// DefaultFeedAddress is the base58 feed identifier the mocked feed parser
// answers for.
const DefaultFeedAddress = "HeS3xrDqHA2CSHTmN9osstz8vbXfgh2mzzzzzzzzzzzz"

// PairOracle is a pair-shape oracle seeded with the stock test rates:
// NEAR/USD at 1.234 and USDC.e/USD at 0.9999, both observed 10ns before the
// clock's now. The pair "FAIL/USD" always errors.
type PairOracle struct {
	mu      sync.Mutex
	entries map[string]*types.PriceEntry
	now     func() time.Time
}

// NewPairOracle seeds the default rates against the given clock.
func NewPairOracle(now func() time.Time) *PairOracle {
	if now == nil {
		now = time.Now
	}
	o := &PairOracle{entries: make(map[string]*types.PriceEntry), now: now}
	o.SetEntry("NEAR/USD", big.NewInt(1234000), 6, 1, 0)
	o.SetEntry("USDC.e/USD", big.NewInt(999900), 6, 1, 0)
	return o
}

// SetEntry seeds or replaces a pair's price entry. ObservedAt is pinned 10ns
// before the clock at query time.
func (o *PairOracle) SetEntry(pair string, price *big.Int, scale uint32, numSuccess, numError uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[pair] = &types.PriceEntry{
		Value:      price,
		Scale:      scale,
		NumSuccess: numSuccess,
		NumError:   numError,
	}
}

// GetEntry implements oracle.PairSource.
func (o *PairOracle) GetEntry(_ context.Context, pair string, _ string) (*types.PriceEntry, error) {
	if pair == "FAIL/USD" {
		return nil, fmt.Errorf("ASKED_TO_FAIL")
	}
	o.mu.Lock()
	entry, ok := o.entries[pair]
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no entry for pair %s", pair)
	}
	out := *entry
	out.ObservedAt = o.now().Add(-10 * time.Nanosecond)
	return &out, nil
}

// FeedParser is a feed-shape oracle answering only for DefaultFeedAddress
// with the stock NEAR/USD rate (mantissa 1234000, scale 6, observed 10ns
// ago).
type FeedParser struct {
	mu    sync.Mutex
	entry *types.PriceEntry
	now   func() time.Time
}

// NewFeedParser seeds the default feed entry against the given clock.
func NewFeedParser(now func() time.Time) *FeedParser {
	if now == nil {
		now = time.Now
	}
	return &FeedParser{
		entry: &types.PriceEntry{
			Value:      big.NewInt(1234000),
			Scale:      6,
			NumSuccess: 1,
			NumError:   0,
		},
		now: now,
	}
}

// SetEntry replaces the feed's price entry.
func (f *FeedParser) SetEntry(value *big.Int, scale uint32, numSuccess, numError uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entry = &types.PriceEntry{
		Value:      value,
		Scale:      scale,
		NumSuccess: numSuccess,
		NumError:   numError,
	}
}

// AggregatorRead implements oracle.FeedSource.
func (f *FeedParser) AggregatorRead(_ context.Context, feedAddress [32]byte, _ [32]byte) (*types.PriceEntry, error) {
	if utils.EncodeFeedIdentifier(feedAddress) != DefaultFeedAddress {
		return nil, fmt.Errorf("InvalidAggregator")
	}
	f.mu.Lock()
	entry := *f.entry
	f.mu.Unlock()
	entry.ObservedAt = f.now().Add(-10 * time.Nanosecond)
	return &entry, nil
}
