package http

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleStkCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 1150.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "TransactionDate", "Value": 20191219102115},
					{"Name": "PhoneNumber", "Value": 254708374149}
				]
			}
		}
	}
}`

func TestStkCallbackDecode(t *testing.T) {
	var body stkCallbackBody
	require.NoError(t, json.Unmarshal([]byte(sampleStkCallback), &body))

	cb := body.Body.StkCallback
	require.Equal(t, "29115-34620561-1", cb.MerchantRequestID)
	require.Equal(t, 0, cb.ResultCode)
	require.Len(t, cb.CallbackMetadata.Item, 4)

	var amount decimal.Decimal
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "Amount" {
			require.NoError(t, json.Unmarshal(item.Value, &amount))
		}
	}
	require.True(t, decimal.RequireFromString("1150").Equal(amount))
}

func TestStkCallbackDecode_Failure(t *testing.T) {
	payload := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-2",
				"CheckoutRequestID": "ws_CO_191220191020363926",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`

	var body stkCallbackBody
	require.NoError(t, json.Unmarshal([]byte(payload), &body))

	cb := body.Body.StkCallback
	require.Equal(t, 1032, cb.ResultCode)
	require.Empty(t, cb.CallbackMetadata.Item)
}

func TestB2CResultDecode(t *testing.T) {
	payload := `{
		"Result": {
			"ResultType": 0,
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"ConversationID": "AG_20191219_00005797af5d7d75f652"
		}
	}`

	var body b2cResultBody
	require.NoError(t, json.Unmarshal([]byte(payload), &body))
	require.Equal(t, 0, body.Result.ResultCode)
	require.Equal(t, "AG_20191219_00005797af5d7d75f652", body.Result.TransactionID)
}
