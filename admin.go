package payrelay

import (
	"github.com/vennlabs/payrelay/types"
	"github.com/vennlabs/payrelay/utils"
)

// Administrative surface. Every setter authenticates the caller against the
// current owner and leaves the configuration unchanged on a permission
// failure. Setters only take effect for sagas started afterwards; instances
// already in flight keep the snapshot they began with.

func (p *PayRelay) authorize(caller string) error {
	if caller != p.owner {
		return types.Errf(types.ErrPermission, "ERR_PERMISSION")
	}
	return nil
}

// SetOwner hands the administrative surface to a new owner.
func (p *PayRelay) SetOwner(caller, owner string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.authorize(caller); err != nil {
		return err
	}
	p.owner = owner
	return nil
}

// Owner returns the current owner identity.
func (p *PayRelay) Owner() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

// SetOracleAccount replaces the pair-shape oracle identity.
func (p *PayRelay) SetOracleAccount(caller, oracle string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.authorize(caller); err != nil {
		return err
	}
	p.oracleAccount = oracle
	return nil
}

// OracleAccount returns the pair-shape oracle identity.
func (p *PayRelay) OracleAccount() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.oracleAccount
}

// SetProviderAccount replaces the oracle provider identity.
func (p *PayRelay) SetProviderAccount(caller, provider string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.authorize(caller); err != nil {
		return err
	}
	p.providerAccount = provider
	return nil
}

// ProviderAccount returns the oracle provider identity.
func (p *PayRelay) ProviderAccount() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.providerAccount
}

// SetFeedParser replaces the feed parser identity.
func (p *PayRelay) SetFeedParser(caller, parser string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.authorize(caller); err != nil {
		return err
	}
	p.feedParser = parser
	return nil
}

// FeedParser returns the feed parser identity.
func (p *PayRelay) FeedParser() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.feedParser
}

// SetFeedAddress replaces the feed address from its base58 encoding.
func (p *PayRelay) SetFeedAddress(caller, encoded string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.authorize(caller); err != nil {
		return err
	}
	addr, err := utils.DecodeFeedIdentifier(encoded)
	if err != nil {
		return err
	}
	p.feedAddress = addr
	return nil
}

// FeedAddress returns the raw 32-byte feed address.
func (p *PayRelay) FeedAddress() [32]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.feedAddress
}

// EncodedFeedAddress returns the base58 form of the feed address.
func (p *PayRelay) EncodedFeedAddress() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return utils.EncodeFeedIdentifier(p.feedAddress)
}

// SetFeedPayer replaces the feed payer key from its base58 encoding. A
// 33-byte value with a leading zero is accepted and trimmed; some hosts
// prepend one when exporting keys.
func (p *PayRelay) SetFeedPayer(caller, encoded string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.authorize(caller); err != nil {
		return err
	}
	payer, err := utils.DecodeFeedIdentifier(encoded)
	if err != nil {
		return err
	}
	p.feedPayer = payer
	return nil
}

// FeedPayer returns the raw 32-byte feed payer key.
func (p *PayRelay) FeedPayer() [32]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.feedPayer
}

// EncodedFeedPayer returns the base58 form of the feed payer key.
func (p *PayRelay) EncodedFeedPayer() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return utils.EncodeFeedIdentifier(p.feedPayer)
}
