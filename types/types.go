// Package types defines the shared data model of the payrelay library:
// payment requests, oracle price entries, conversion plans and the terminal
// saga outcomes reported to callers and indexers.
package types

import (
	"fmt"
	"math/big"
	"time"
)

// OneFiat is the scale of fiat amounts: two implied decimals, so 100 = 1.00.
const OneFiat = 100

// ReferenceLength is the exact raw byte length of a payment reference.
const ReferenceLength = 8

// AssetKind distinguishes the two settlement variants of a payment.
type AssetKind string

const (
	AssetNative AssetKind = "native"
	AssetToken  AssetKind = "token"
)

// PaymentRequest carries everything a single saga instance needs. It is
// immutable once constructed and threaded by value through every step of the
// chain; there is no persistent store for in-flight payments.
type PaymentRequest struct {
	// PaymentReference is a hex string (optional 0x prefix) decoding to
	// exactly 8 raw bytes. Used for indexing and matching the payment
	// with a request.
	PaymentReference string `json:"payment_reference" validate:"required"`

	// Payer receives the change on success or the refund on failure.
	Payer string `json:"payer" validate:"required"`

	// To receives the converted main amount.
	To string `json:"to" validate:"required"`

	// Amount in Currency with 2 decimals (eg. 1000 is 10.00).
	Amount *big.Int `json:"amount"`

	// Currency ticker, eg. "USD".
	Currency string `json:"currency" validate:"required"`

	// FeeAddress receives the converted fee amount.
	FeeAddress string `json:"fee_address" validate:"required"`

	// FeeAmount in Currency with 2 decimals.
	FeeAmount *big.Int `json:"fee_amount"`

	// MaxRateTimespan is the maximum age of the oracle rate, or 0 for
	// unbounded.
	MaxRateTimespan time.Duration `json:"max_rate_timespan"`

	// Deposit is the amount of settlement asset attached by the payer.
	Deposit *big.Int `json:"deposit"`

	// TokenAddress selects the token settlement variant when non-empty;
	// an empty value settles in the native ledger asset.
	TokenAddress string `json:"token_address,omitempty"`

	// CallBudget is the resource quota attached to the whole chain. Every
	// remote call consumes part of it; an under-provisioned budget is
	// rejected before any call is issued.
	CallBudget uint64 `json:"call_budget"`
}

// Asset returns the settlement variant of the request.
func (r *PaymentRequest) Asset() AssetKind {
	if r.TokenAddress != "" {
		return AssetToken
	}
	return AssetNative
}

// PriceEntry is a single oracle observation: an integer value plus a decimal
// scale, with the reporting round's health counters. A usable entry has
// NumError == 0, NumSuccess >= 1 and a non-negative value.
type PriceEntry struct {
	Value      *big.Int  `json:"value"`
	Scale      uint32    `json:"scale"`
	ObservedAt time.Time `json:"observed_at"`
	NumSuccess uint32    `json:"num_success"`
	NumError   uint32    `json:"num_error"`
}

// TokenMetadata is the subset of fungible token metadata the relay needs:
// the symbol names the oracle pair, the decimals drive the conversion.
type TokenMetadata struct {
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
}

// PaymentPlan is the converted, settlement-denominated form of a request.
// Derived deterministically from a PaymentRequest and a PriceEntry.
type PaymentPlan struct {
	MainAmount *big.Int
	FeeAmount  *big.Int
	Total      *big.Int
}

// SagaState names the stages a payment instance moves through.
type SagaState string

const (
	StateValidating             SagaState = "validating"
	StateAwaitingRateOrMetadata SagaState = "awaiting_rate"
	StateComputing              SagaState = "computing"
	StateAwaitingTransfer       SagaState = "awaiting_transfer"
	StateFinalized              SagaState = "finalized"
)

// OutcomeStatus tags the terminal result of a saga instance.
type OutcomeStatus string

const (
	OutcomeSettled  OutcomeStatus = "settled"
	OutcomeRefunded OutcomeStatus = "refunded"
)

// SagaOutcome is emitted exactly once per saga instance.
//
// For native settlements Change/Refund are moved back to the payer directly.
// For token settlements ReturnAmount is the numeric string consumed by the
// token contract's own resolve-transfer mechanism: "0" when fully settled,
// the full deposit when refunded.
type SagaOutcome struct {
	Status OutcomeStatus `json:"status"`

	// Change is the unspent remainder returned on success.
	Change *big.Int `json:"change,omitempty"`

	// Reason and Refund describe a compensated failure.
	Reason string   `json:"reason,omitempty"`
	Refund *big.Int `json:"refund,omitempty"`

	ReturnAmount string `json:"return_amount,omitempty"`
}

// PaymentEvent is the terminal log object external indexers depend on.
// Field names are a published contract and must not change silently.
// Amounts are rendered as decimal strings.
type PaymentEvent struct {
	To               string `json:"to"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	PaymentReference string `json:"payment_reference"`
	FeeAmount        string `json:"fee_amount"`
	FeeAddress       string `json:"fee_address"`
	MaxRateTimespan  string `json:"max_rate_timespan"`

	// Token settlements additionally report the token and the converted
	// settlement-asset amounts.
	TokenAddress    string `json:"token_address,omitempty"`
	CryptoAmount    string `json:"crypto_amount,omitempty"`
	CryptoFeeAmount string `json:"crypto_fee_amount,omitempty"`
}

// RelayConfig is the global configuration of a PayRelay instance.
type RelayConfig struct {
	// Owner is the only identity allowed to mutate the administrative
	// configuration. Defaults to the deployer passed to New.
	Owner string `json:"owner"`

	// OracleAccount and ProviderAccount identify the pair-shape oracle
	// used for token settlements.
	OracleAccount   string `json:"oracleAccount,omitempty"`
	ProviderAccount string `json:"providerAccount,omitempty"`

	// FeedParser, FeedAddress and FeedPayer identify the feed-shape
	// oracle used for native settlements. FeedAddress and FeedPayer are
	// base58 strings decoding to 32 raw bytes.
	FeedParser  string `json:"feedParser,omitempty"`
	FeedAddress string `json:"feedAddress,omitempty"`
	FeedPayer   string `json:"feedPayer,omitempty"`

	// SupportedCurrency restricts native settlements to one fiat ticker.
	// Defaults to "USD".
	SupportedCurrency string `json:"supportedCurrency,omitempty"`

	// MinCallBudget is the minimum resource quota a caller must attach.
	MinCallBudget uint64 `json:"minCallBudget,omitempty"`

	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty"`
	LogLevel       string        `json:"logLevel,omitempty"`
	EnableMetrics  bool          `json:"enableMetrics,omitempty"`
}

// RelayError is the typed error shape used across the library.
type RelayError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RelayError) Error() string {
	return e.Message
}

// Errf builds a RelayError with a formatted message.
func Errf(code string, format string, args ...interface{}) *RelayError {
	return &RelayError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error codes. Input validation codes surface synchronously from the entry
// points; every other code ends a saga with a refund.
const (
	ErrInvalidReference    = "INVALID_REFERENCE"
	ErrUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	ErrInsufficientBudget  = "INSUFFICIENT_BUDGET"
	ErrInvalidArgs         = "INVALID_ARGS"

	ErrOracleUnreachable   = "ORACLE_UNREACHABLE"
	ErrMalformedResponse   = "MALFORMED_RESPONSE"
	ErrRateInvalid         = "RATE_INVALID"
	ErrRateStale           = "RATE_STALE"
	ErrMetadataUnreachable = "METADATA_UNREACHABLE"
	ErrMetadataMalformed   = "METADATA_MALFORMED"
	ErrConversionOverflow  = "CONVERSION_OVERFLOW"
	ErrInsufficientDeposit = "INSUFFICIENT_DEPOSIT"
	ErrTransferFailed      = "TRANSFER_FAILED"
	ErrPermission          = "ERR_PERMISSION"
	ErrConfig              = "CONFIG_ERROR"
)
