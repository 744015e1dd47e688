// Package conversion implements the fixed-point fiat to settlement-asset
// conversion. The arithmetic mirrors a 128-bit unsigned integer machine:
// instead of arbitrary precision, multiplications that would not fit in 128
// bits trade precision for safety by pre-dividing the fiat amount.
package conversion

import (
	"math/big"

	"github.com/vennlabs/payrelay/types"
)

// maxUint128 bounds the working integer width of the conversion.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// maxPrecisionRetries bounds the precision-reduction loop. 10^39 > 2^128, so
// the loop always terminates well before this for in-range inputs.
const maxPrecisionRetries = 39

var ten = big.NewInt(10)

// Convert turns a fiat amount (2 implied decimals) into a settlement-asset
// amount:
//
//	floor(fiat * 10^assetDecimals * 10^rateScale / rate / 100)
//
// When the numerator would overflow the 128-bit working width, the fiat
// amount is divided by a power-of-ten precision factor before the multiply
// and the quotient is scaled back up afterwards. The factor grows tenfold
// per retry until the multiply fits. Correctness beats exact rounding: the
// result is floored at whatever precision was needed and is never larger
// than the mathematically exact value.
func Convert(fiat *big.Int, rate *big.Int, rateScale uint32, assetDecimals uint32) (*big.Int, error) {
	if fiat == nil || fiat.Sign() < 0 {
		return nil, types.Errf(types.ErrInvalidArgs, "negative or missing fiat amount")
	}
	if rate == nil || rate.Sign() <= 0 {
		return nil, types.Errf(types.ErrRateInvalid, "conversion rate must be positive")
	}

	multiplier := new(big.Int).Exp(ten, big.NewInt(int64(assetDecimals)+int64(rateScale)), nil)

	precision := big.NewInt(1)
	for i := 0; i <= maxPrecisionRetries; i++ {
		scaled := new(big.Int).Quo(fiat, precision)
		numerator := new(big.Int).Mul(scaled, multiplier)
		if numerator.Cmp(maxUint128) > 0 {
			precision = new(big.Int).Mul(precision, ten)
			continue
		}
		result := numerator.Quo(numerator, rate)
		result.Quo(result, big.NewInt(types.OneFiat))
		result.Mul(result, precision)
		if result.Cmp(maxUint128) > 0 {
			return nil, types.Errf(types.ErrConversionOverflow,
				"converted amount exceeds 128-bit range")
		}
		return result, nil
	}
	return nil, types.Errf(types.ErrConversionOverflow,
		"no precision satisfies the 128-bit bound")
}

// ConvertPlan converts the main and fee amounts of a request independently
// through the same rate and assembles the resulting payment plan.
func ConvertPlan(req *types.PaymentRequest, entry *types.PriceEntry, assetDecimals uint32) (types.PaymentPlan, error) {
	main, err := Convert(req.Amount, entry.Value, entry.Scale, assetDecimals)
	if err != nil {
		return types.PaymentPlan{}, err
	}
	fee, err := Convert(req.FeeAmount, entry.Value, entry.Scale, assetDecimals)
	if err != nil {
		return types.PaymentPlan{}, err
	}
	return types.PaymentPlan{
		MainAmount: main,
		FeeAmount:  fee,
		Total:      new(big.Int).Add(main, fee),
	}, nil
}
