package utils

import (
	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/vennlabs/payrelay/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateRequest runs the struct-tag validation plus the field checks that
// tags cannot express. This is the pre-flight gate of every saga: a failure
// here is synchronous and no remote call is issued.
func ValidateRequest(req *types.PaymentRequest) error {
	if err := validate.Struct(req); err != nil {
		return types.Errf(types.ErrInvalidArgs, "validation failed: %v", err)
	}
	if _, err := DecodePaymentReference(req.PaymentReference); err != nil {
		return err
	}
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return types.Errf(types.ErrInvalidArgs, "amount must be a non-negative fiat value")
	}
	if req.FeeAmount == nil || req.FeeAmount.Sign() < 0 {
		return types.Errf(types.ErrInvalidArgs, "fee_amount must be a non-negative fiat value")
	}
	if req.Deposit == nil || req.Deposit.Sign() < 0 {
		return types.Errf(types.ErrInvalidArgs, "deposit must be a non-negative amount")
	}
	if req.MaxRateTimespan < 0 {
		return types.Errf(types.ErrInvalidArgs, "max_rate_timespan cannot be negative")
	}
	return nil
}

// PaymentArgs is the caller-supplied argument object of the token entry
// point, carried in the token transfer's msg string as JSON. Amounts are
// decimal strings of fiat cents.
type PaymentArgs struct {
	PaymentReference string `json:"payment_reference" validate:"required"`
	To               string `json:"to" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	Currency         string `json:"currency" validate:"required"`
	FeeAddress       string `json:"fee_address" validate:"required"`
	FeeAmount        string `json:"fee_amount" validate:"required"`
	MaxRateTimespan  string `json:"max_rate_timespan"`
}

// ParsePaymentArgs decodes and validates a token entry msg string.
func ParsePaymentArgs(msg string) (*PaymentArgs, error) {
	var args PaymentArgs
	if err := sonic.UnmarshalString(msg, &args); err != nil {
		return nil, types.Errf(types.ErrInvalidArgs, "Incorrect msg format")
	}
	if err := validate.Struct(&args); err != nil {
		return nil, types.Errf(types.ErrInvalidArgs, "Incorrect msg format")
	}
	return &args, nil
}
