// Package utils holds the wire-format validation helpers shared by the entry
// points: payment reference decoding, fiat amount parsing and the base58
// feed identifiers.
package utils

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/vennlabs/payrelay/types"
)

// DecodePaymentReference decodes the documented hex encoding (optional 0x
// prefix) and enforces the exact 8-byte raw length.
func DecodePaymentReference(reference string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(reference, "0x"))
	if err != nil {
		return nil, types.Errf(types.ErrInvalidReference, "Payment reference value error")
	}
	if len(raw) != types.ReferenceLength {
		return nil, types.Errf(types.ErrInvalidReference, "Incorrect payment reference length")
	}
	return raw, nil
}

// ParseFiatAmount parses a caller-supplied amount string into the integer
// fiat representation (2 implied decimals). The string itself is a plain
// integer count of fiat cents; decimals and signs are rejected.
func ParseFiatAmount(amount string) (*big.Int, error) {
	if amount == "" {
		return nil, types.Errf(types.ErrInvalidArgs, "amount cannot be empty")
	}
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, types.Errf(types.ErrInvalidArgs, "invalid amount format: %v", err)
	}
	if dec.IsNegative() {
		return nil, types.Errf(types.ErrInvalidArgs, "amount cannot be negative")
	}
	if dec.Exponent() < 0 {
		return nil, types.Errf(types.ErrInvalidArgs, "amount must be an integer number of fiat cents")
	}
	return dec.BigInt(), nil
}

// DecodeFeedIdentifier decodes a base58 feed address or feed payer into its
// 32 raw bytes. A 33-byte value with a leading zero is accepted and trimmed;
// some hosts prepend one when exporting keys.
func DecodeFeedIdentifier(encoded string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(encoded)
	if err != nil {
		return out, types.Errf(types.ErrConfig, "Wrong feed address format")
	}
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	if len(raw) != 32 {
		return out, types.Errf(types.ErrConfig, "feed identifier must decode to 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// EncodeFeedIdentifier is the inverse of DecodeFeedIdentifier.
func EncodeFeedIdentifier(raw [32]byte) string {
	return base58.Encode(raw[:])
}
