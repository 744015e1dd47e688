// Package clients provides the network-backed implementations of the
// relay's external collaborator interfaces. The EVM client settles native
// value and ERC-20 transfers and reads Chainlink-style aggregator feeds; the
// in-memory doubles for tests live in the mocks package instead.
package clients

import (
	"context"
	"math/big"

	"github.com/vennlabs/payrelay/types"
)

// Client is the combined surface a network client can offer. A deployment
// wires whichever subset its settlement variant needs.
type Client interface {
	// Transfer moves the native settlement asset.
	Transfer(ctx context.Context, to string, amount *big.Int) error

	// TokenTransfer moves a fungible token.
	TokenTransfer(ctx context.Context, token, to string, amount *big.Int, memo string) error

	// AggregatorRead reads a feed-shape price entry.
	AggregatorRead(ctx context.Context, feedAddress [32]byte, feedPayer [32]byte) (*types.PriceEntry, error)

	// Close releases the underlying connection.
	Close()
}
