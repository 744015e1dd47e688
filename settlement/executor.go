// Package settlement executes the two fund-transfer legs of a payment plan
// as a single chained, all-or-nothing continuation. The fee leg only runs
// after the main leg's remote effect has resolved, and the outcome reported
// to the finalizer is the logical AND of both legs: a failed fee leg fails
// the whole settlement even when the main transfer already happened at the
// ledger level. The ledger cannot undo a sent native transfer; only the
// relay's own bookkeeping of deposit and change is reversible.
package settlement

import (
	"context"
	"math/big"

	"github.com/vennlabs/payrelay/logger"
	"github.com/vennlabs/payrelay/types"
)

// LedgerClient moves the native settlement asset.
type LedgerClient interface {
	Transfer(ctx context.Context, to string, amount *big.Int) error
}

// TokenClient moves a fungible token. Implementations attach whatever exact
// minimal fee unit the token contract demands per transfer.
type TokenClient interface {
	TokenTransfer(ctx context.Context, token, to string, amount *big.Int, memo string) error
}

// Executor runs the chained transfer legs of validated payment plans.
type Executor struct {
	ledger LedgerClient
	token  TokenClient
	log    logger.Logger
}

// NewExecutor wires an executor. A deployment settling only one variant may
// leave the other client nil.
func NewExecutor(ledger LedgerClient, token TokenClient, log logger.Logger) *Executor {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Executor{ledger: ledger, token: token, log: log}
}

// CheckDeposit rejects plans whose total exceeds the attached deposit.
// Called before either leg so that no transfer is ever attempted on an
// underfunded plan.
func CheckDeposit(plan types.PaymentPlan, deposit *big.Int) error {
	if deposit == nil || plan.Total.Cmp(deposit) > 0 {
		supplied := "0"
		if deposit != nil {
			supplied = deposit.String()
		}
		return types.Errf(types.ErrInsufficientDeposit,
			"Deposit too small for payment (Supplied: %s. Demand (incl. fees): %s)",
			supplied, plan.Total)
	}
	return nil
}

// ExecuteNative runs the native-asset legs: main amount to the payee, then,
// chained, the fee amount to the fee payee. Zero-amount legs are skipped.
func (e *Executor) ExecuteNative(ctx context.Context, plan types.PaymentPlan, to, feeTo string) error {
	if e.ledger == nil {
		return types.Errf(types.ErrTransferFailed, "no ledger client configured")
	}
	if plan.MainAmount.Sign() > 0 {
		if err := e.ledger.Transfer(ctx, to, plan.MainAmount); err != nil {
			return types.Errf(types.ErrTransferFailed, "Failed to transfer to %s: %v", to, err)
		}
	}
	if plan.FeeAmount.Sign() > 0 {
		if err := e.ledger.Transfer(ctx, feeTo, plan.FeeAmount); err != nil {
			return types.Errf(types.ErrTransferFailed, "Failed to transfer fee to %s: %v", feeTo, err)
		}
	}
	return nil
}

// ExecuteToken runs the token legs through the token contract, chained the
// same way as the native variant.
func (e *Executor) ExecuteToken(ctx context.Context, token string, plan types.PaymentPlan, to, feeTo string) error {
	if e.token == nil {
		return types.Errf(types.ErrTransferFailed, "no token client configured")
	}
	if plan.MainAmount.Sign() > 0 {
		if err := e.token.TokenTransfer(ctx, token, to, plan.MainAmount, ""); err != nil {
			return types.Errf(types.ErrTransferFailed, "Failed to transfer to %s: %v", to, err)
		}
	}
	if plan.FeeAmount.Sign() > 0 {
		if err := e.token.TokenTransfer(ctx, token, feeTo, plan.FeeAmount, ""); err != nil {
			return types.Errf(types.ErrTransferFailed, "Failed to transfer fee to %s: %v", feeTo, err)
		}
	}
	return nil
}

// RefundNative returns funds to the payer outside the leg chain. Refund
// failures are logged, not propagated: the saga has already failed and the
// ledger retains the funds for manual recovery.
func (e *Executor) RefundNative(ctx context.Context, payer string, amount *big.Int) {
	if e.ledger == nil || amount == nil || amount.Sign() == 0 {
		return
	}
	if err := e.ledger.Transfer(ctx, payer, amount); err != nil {
		e.log.Error("refund transfer failed", map[string]any{
			"payer":  payer,
			"amount": amount.String(),
			"err":    err.Error(),
		})
	}
}
