package mocks

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/vennlabs/payrelay/types"
)

// Ledger is an in-memory native ledger plus fungible token registry. Token
// accounts must be registered before they can receive; transfers to an
// unregistered account fail the way an unregistered token receiver does.
type Ledger struct {
	mu         sync.Mutex
	balances   map[string]*big.Int
	registered map[string]bool
	metadata   map[string]types.TokenMetadata

	// FailTransfersTo force-fails native transfers to specific accounts.
	FailTransfersTo map[string]bool
}

// NewLedger builds an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:        make(map[string]*big.Int),
		registered:      make(map[string]bool),
		metadata:        make(map[string]types.TokenMetadata),
		FailTransfersTo: make(map[string]bool),
	}
}

// SetBalance seeds an account balance.
func (l *Ledger) SetBalance(account string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = new(big.Int).Set(amount)
}

// Balance reads an account balance (zero when unknown).
func (l *Ledger) Balance(account string) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Register marks a token account as able to receive.
func (l *Ledger) Register(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registered[account] = true
}

// Unregister removes a token account.
func (l *Ledger) Unregister(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.registered, account)
}

// SetMetadata seeds a token's metadata.
func (l *Ledger) SetMetadata(token string, meta types.TokenMetadata) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metadata[token] = meta
}

// Transfer implements settlement.LedgerClient. The sender side is implicit:
// the relay holds the deposit, so only the recipient balance moves here.
func (l *Ledger) Transfer(_ context.Context, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailTransfersTo[to] {
		return fmt.Errorf("account %s rejected the transfer", to)
	}
	l.credit(to, amount)
	return nil
}

// TokenTransfer implements settlement.TokenClient. Fails when the recipient
// is not registered with the token.
func (l *Ledger) TokenTransfer(_ context.Context, token, to string, amount *big.Int, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.registered[to] {
		return fmt.Errorf("account %s is not registered with token %s", to, token)
	}
	l.credit(to, amount)
	return nil
}

// Metadata implements oracle.TokenMetadataSource.
func (l *Ledger) Metadata(_ context.Context, token string) (*types.TokenMetadata, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	meta, ok := l.metadata[token]
	if !ok {
		return nil, fmt.Errorf("no metadata for token %s", token)
	}
	return &meta, nil
}

func (l *Ledger) credit(account string, amount *big.Int) {
	current, ok := l.balances[account]
	if !ok {
		current = new(big.Int)
	}
	l.balances[account] = new(big.Int).Add(current, amount)
}
