package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaymentTerminal(t *testing.T) {
	require.False(t, (&Payment{Status: PaymentStatusPending}).Terminal())
	require.True(t, (&Payment{Status: PaymentStatusPaid}).Terminal())
	require.True(t, (&Payment{Status: PaymentStatusFailed}).Terminal())
	require.True(t, (&Payment{Status: PaymentStatusRefunded}).Terminal())
}

func TestSTKCallbackMetadata(t *testing.T) {
	cb := &STKCallback{
		ResultCode: 0,
		Metadata: []CallbackItem{
			{Name: "Amount", Value: json.RawMessage(`1150.00`)},
			{Name: "MpesaReceiptNumber", Value: json.RawMessage(`"QK12XYZ789"`)},
			{Name: "PhoneNumber", Value: json.RawMessage(`254700000000`)},
		},
	}

	require.True(t, cb.Succeeded())

	amount, ok := cb.Amount()
	require.True(t, ok)
	require.True(t, dec("1150").Equal(amount))

	receipt, ok := cb.ReceiptNumber()
	require.True(t, ok)
	require.Equal(t, "QK12XYZ789", receipt)
}

func TestSTKCallbackMetadata_Missing(t *testing.T) {
	cb := &STKCallback{ResultCode: 1032, ResultDesc: "Request cancelled by user"}

	require.False(t, cb.Succeeded())

	_, ok := cb.Amount()
	require.False(t, ok)

	_, ok = cb.ReceiptNumber()
	require.False(t, ok)
}
