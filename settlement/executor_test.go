package settlement

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vennlabs/payrelay/mocks"
	"github.com/vennlabs/payrelay/types"
)

func plan(main, fee int64) types.PaymentPlan {
	m := big.NewInt(main)
	f := big.NewInt(fee)
	return types.PaymentPlan{
		MainAmount: m,
		FeeAmount:  f,
		Total:      new(big.Int).Add(m, f),
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var relayErr *types.RelayError
	require.ErrorAs(t, err, &relayErr)
	require.Equal(t, code, relayErr.Code)
}

func TestCheckDeposit(t *testing.T) {
	p := plan(1000, 10)

	require.NoError(t, CheckDeposit(p, big.NewInt(1010)))
	require.NoError(t, CheckDeposit(p, big.NewInt(2000)))

	err := CheckDeposit(p, big.NewInt(1009))
	requireCode(t, err, types.ErrInsufficientDeposit)
	require.Contains(t, err.Error(), "Deposit too small for payment (Supplied: 1009. Demand (incl. fees): 1010)")

	requireCode(t, CheckDeposit(p, nil), types.ErrInsufficientDeposit)
}

func TestExecuteNativeCreditsBothLegs(t *testing.T) {
	ledger := mocks.NewLedger()
	e := NewExecutor(ledger, nil, nil)

	err := e.ExecuteNative(context.Background(), plan(1000, 10), "merchant.near", "fees.near")
	require.NoError(t, err)
	require.Equal(t, "1000", ledger.Balance("merchant.near").String())
	require.Equal(t, "10", ledger.Balance("fees.near").String())
}

func TestExecuteNativeFeeLegFailureFailsSettlement(t *testing.T) {
	// The fee leg runs after the main leg resolved; a fee failure still
	// fails the whole settlement even though the main credit happened.
	ledger := mocks.NewLedger()
	ledger.FailTransfersTo["fees.near"] = true
	e := NewExecutor(ledger, nil, nil)

	err := e.ExecuteNative(context.Background(), plan(1000, 10), "merchant.near", "fees.near")
	requireCode(t, err, types.ErrTransferFailed)
	require.Equal(t, "1000", ledger.Balance("merchant.near").String())
}

func TestExecuteNativeMainLegFailureSkipsFee(t *testing.T) {
	ledger := mocks.NewLedger()
	ledger.FailTransfersTo["merchant.near"] = true
	e := NewExecutor(ledger, nil, nil)

	err := e.ExecuteNative(context.Background(), plan(1000, 10), "merchant.near", "fees.near")
	requireCode(t, err, types.ErrTransferFailed)
	require.Equal(t, "0", ledger.Balance("fees.near").String())
}

func TestExecuteNativeSkipsZeroLegs(t *testing.T) {
	ledger := mocks.NewLedger()
	// A zero fee leg must not even reach the ledger.
	ledger.FailTransfersTo["fees.near"] = true
	e := NewExecutor(ledger, nil, nil)

	err := e.ExecuteNative(context.Background(), plan(1000, 0), "merchant.near", "fees.near")
	require.NoError(t, err)
	require.Equal(t, "0", ledger.Balance("fees.near").String())
}

func TestExecuteNativeWithoutLedgerClient(t *testing.T) {
	e := NewExecutor(nil, nil, nil)
	err := e.ExecuteNative(context.Background(), plan(1, 0), "merchant.near", "fees.near")
	requireCode(t, err, types.ErrTransferFailed)
}

func TestExecuteTokenCreditsRegisteredRecipients(t *testing.T) {
	ledger := mocks.NewLedger()
	ledger.Register("merchant.near")
	ledger.Register("fees.near")
	e := NewExecutor(nil, ledger, nil)

	err := e.ExecuteToken(context.Background(), "usdc.near", plan(100010001, 2000200), "merchant.near", "fees.near")
	require.NoError(t, err)
	require.Equal(t, "100010001", ledger.Balance("merchant.near").String())
	require.Equal(t, "2000200", ledger.Balance("fees.near").String())
}

func TestExecuteTokenUnregisteredRecipient(t *testing.T) {
	ledger := mocks.NewLedger()
	ledger.Register("merchant.near")
	e := NewExecutor(nil, ledger, nil)

	err := e.ExecuteToken(context.Background(), "usdc.near", plan(100, 10), "merchant.near", "fees.near")
	requireCode(t, err, types.ErrTransferFailed)
}

func TestRefundNativeSwallowsFailures(t *testing.T) {
	ledger := mocks.NewLedger()
	ledger.FailTransfersTo["payer.near"] = true
	e := NewExecutor(ledger, nil, nil)

	// Refund failures are logged, never propagated.
	e.RefundNative(context.Background(), "payer.near", big.NewInt(500))
	require.Equal(t, "0", ledger.Balance("payer.near").String())

	e.RefundNative(context.Background(), "payer.near", nil)
	e.RefundNative(context.Background(), "payer.near", big.NewInt(0))
}

func TestRefundNativeCreditsPayer(t *testing.T) {
	ledger := mocks.NewLedger()
	e := NewExecutor(ledger, nil, nil)

	e.RefundNative(context.Background(), "payer.near", big.NewInt(500))
	require.Equal(t, "500", ledger.Balance("payer.near").String())
}
