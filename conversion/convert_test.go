package conversion

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vennlabs/payrelay/types"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad literal %s", s)
	return v
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var relayErr *types.RelayError
	require.ErrorAs(t, err, &relayErr)
	return relayErr.Code
}

func TestConvertReferenceRates(t *testing.T) {
	tests := []struct {
		name          string
		fiat          int64
		rate          int64
		rateScale     uint32
		assetDecimals uint32
		want          string
	}{
		{
			// 12000.00 USD at 1.234, 24-decimal native asset.
			name:          "native main amount",
			fiat:          1200000,
			rate:          1234000,
			rateScale:     6,
			assetDecimals: 24,
			want:          "9724473257698541329011345218",
		},
		{
			// 1.00 USD fee at the same rate.
			name:          "native fee amount",
			fiat:          100,
			rate:          1234000,
			rateScale:     6,
			assetDecimals: 24,
			want:          "810372771474878444084278",
		},
		{
			// 100.00 USD at 0.9999, 6-decimal token.
			name:          "token main amount",
			fiat:          10000,
			rate:          999900,
			rateScale:     6,
			assetDecimals: 6,
			want:          "100010001",
		},
		{
			name:          "token fee amount",
			fiat:          200,
			rate:          999900,
			rateScale:     6,
			assetDecimals: 6,
			want:          "2000200",
		},
		{
			name:          "zero amount",
			fiat:          0,
			rate:          1234000,
			rateScale:     6,
			assetDecimals: 24,
			want:          "0",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Convert(big.NewInt(tc.fiat), big.NewInt(tc.rate), tc.rateScale, tc.assetDecimals)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestConvertRejectsBadInputs(t *testing.T) {
	_, err := Convert(big.NewInt(-1), big.NewInt(1234000), 6, 24)
	require.Equal(t, types.ErrInvalidArgs, errCode(t, err))

	_, err = Convert(nil, big.NewInt(1234000), 6, 24)
	require.Equal(t, types.ErrInvalidArgs, errCode(t, err))

	_, err = Convert(big.NewInt(100), nil, 6, 24)
	require.Equal(t, types.ErrRateInvalid, errCode(t, err))

	_, err = Convert(big.NewInt(100), big.NewInt(0), 6, 24)
	require.Equal(t, types.ErrRateInvalid, errCode(t, err))

	_, err = Convert(big.NewInt(100), big.NewInt(-1234000), 6, 24)
	require.Equal(t, types.ErrRateInvalid, errCode(t, err))
}

func TestConvertReducesPrecisionOnWideAmounts(t *testing.T) {
	// 10^12 cents times 10^30 does not fit in 128 bits; the fiat amount has
	// to shed four digits before the multiply.
	fiat := new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
	got, err := Convert(fiat, big.NewInt(1234000), 6, 24)
	require.NoError(t, err)
	require.Equal(t, "8103727714748784440842787682330000", got.String())

	// The reduced-precision result floors below the exact quotient.
	exact := mustBig(t, "8103727714748784440842787682333873")
	require.True(t, got.Cmp(exact) < 0)
}

func TestConvertNeverExceedsExactQuotient(t *testing.T) {
	rate := big.NewInt(1234000)
	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	samples := []*big.Int{
		big.NewInt(1),
		big.NewInt(99),
		big.NewInt(12345678901),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 90), big.NewInt(1)),
	}
	for _, fiat := range samples {
		got, err := Convert(fiat, rate, 6, 24)
		require.NoError(t, err, "fiat=%s", fiat)

		exact := new(big.Int).Mul(fiat, multiplier)
		exact.Quo(exact, rate)
		exact.Quo(exact, big.NewInt(types.OneFiat))
		require.True(t, got.Cmp(exact) <= 0, "fiat=%s got=%s exact=%s", fiat, got, exact)
	}
}

func TestConvertOverflowsOnUnrepresentableResult(t *testing.T) {
	// floor(10^40 * 10^24 / 1 / 100) = 10^62 cannot fit in 128 bits at any
	// precision.
	fiat := new(big.Int).Exp(big.NewInt(10), big.NewInt(40), nil)
	_, err := Convert(fiat, big.NewInt(1), 0, 24)
	require.Equal(t, types.ErrConversionOverflow, errCode(t, err))
}

func TestConvertPlan(t *testing.T) {
	req := &types.PaymentRequest{
		Amount:    big.NewInt(1200000),
		FeeAmount: big.NewInt(100),
	}
	entry := &types.PriceEntry{Value: big.NewInt(1234000), Scale: 6}

	plan, err := ConvertPlan(req, entry, 24)
	require.NoError(t, err)
	require.Equal(t, "9724473257698541329011345218", plan.MainAmount.String())
	require.Equal(t, "810372771474878444084278", plan.FeeAmount.String())
	require.Equal(t, "9725283630470016207455429496", plan.Total.String())
}

func TestConvertPlanPropagatesFeeFailure(t *testing.T) {
	req := &types.PaymentRequest{
		Amount:    big.NewInt(100),
		FeeAmount: big.NewInt(-1),
	}
	entry := &types.PriceEntry{Value: big.NewInt(1234000), Scale: 6}

	_, err := ConvertPlan(req, entry, 24)
	require.Equal(t, types.ErrInvalidArgs, errCode(t, err))
}
