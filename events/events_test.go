package events

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/vennlabs/payrelay/types"
)

func TestPaymentEventWireFormat(t *testing.T) {
	event := types.PaymentEvent{
		To:               "merchant.near",
		Amount:           "1200000",
		Currency:         "USD",
		PaymentReference: "0x1122334455667788",
		FeeAmount:        "100",
		FeeAddress:       "fees.near",
		MaxRateTimespan:  "0",
	}

	payload, err := sonic.MarshalString(event)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, sonic.UnmarshalString(payload, &decoded))
	require.Equal(t, map[string]string{
		"to":                "merchant.near",
		"amount":            "1200000",
		"currency":          "USD",
		"payment_reference": "0x1122334455667788",
		"fee_amount":        "100",
		"fee_address":       "fees.near",
		"max_rate_timespan": "0",
	}, decoded)
}

func TestPaymentEventTokenFields(t *testing.T) {
	event := types.PaymentEvent{
		To:               "merchant.near",
		Amount:           "10000",
		Currency:         "USD",
		PaymentReference: "0xaabbccddeeff0011",
		FeeAmount:        "200",
		FeeAddress:       "fees.near",
		MaxRateTimespan:  "0",
		TokenAddress:     "usdc.near",
		CryptoAmount:     "100010001",
		CryptoFeeAmount:  "2000200",
	}

	payload, err := sonic.MarshalString(event)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, sonic.UnmarshalString(payload, &decoded))
	require.Equal(t, "usdc.near", decoded["token_address"])
	require.Equal(t, "100010001", decoded["crypto_amount"])
	require.Equal(t, "2000200", decoded["crypto_fee_amount"])
}
