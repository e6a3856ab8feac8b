package domain

import (
	"encoding/json"
	"testing"
)

const accountPositionsJSON = `[
	{
		"shortQuantity": 0.0,
		"averagePrice": 380.783,
		"currentDayProfitLoss": -3.799999999999,
		"longQuantity": 20.0,
		"settledLongQuantity": 20.0,
		"instrument": {"assetType": "EQUITY", "cusip": "67066G104", "symbol": "NVDA"},
		"marketValue": 8488.0
	},
	{
		"shortQuantity": 4.0,
		"averagePrice": 0.882,
		"longQuantity": 0.0,
		"instrument": {"assetType": "OPTION", "cusip": "0VIX..UG00020000", "symbol": "VIX_091620P20"},
		"marketValue": -90.0
	},
	{
		"shortQuantity": 0.0,
		"averagePrice": 6.065,
		"longQuantity": 1700.0,
		"instrument": {"assetType": "EQUITY", "cusip": "88166A409", "symbol": "CANE"},
		"marketValue": 10302.0
	}
]`

const filledLimitJSON = `{
	"session": "NORMAL",
	"duration": "DAY",
	"orderType": "LIMIT",
	"complexOrderStrategyType": "NONE",
	"quantity": 1700.0,
	"filledQuantity": 1700.0,
	"remainingQuantity": 0.0,
	"price": 6.07,
	"orderLegCollection": [
		{
			"orderLegType": "EQUITY",
			"legId": 1,
			"instrument": {"assetType": "EQUITY", "cusip": "88166A409", "symbol": "CANE"},
			"instruction": "BUY",
			"positionEffect": "OPENING",
			"quantity": 1700.0
		}
	],
	"orderStrategyType": "SINGLE",
	"orderId": 3137940895,
	"cancelable": false,
	"editable": false,
	"status": "FILLED",
	"enteredTime": "2020-07-31T13:30:02+0000",
	"accountId": 455102033
}`

const queuedStopJSON = `{
	"session": "NORMAL",
	"duration": "GOOD_TILL_CANCEL",
	"orderType": "STOP",
	"quantity": 1200.0,
	"stopPrice": 13.86,
	"orderLegCollection": [
		{
			"orderLegType": "EQUITY",
			"legId": 1,
			"instrument": {"assetType": "EQUITY", "cusip": "92189F817", "symbol": "VNM"},
			"instruction": "SELL",
			"positionEffect": "CLOSING",
			"quantity": 1200.0
		}
	],
	"orderStrategyType": "SINGLE",
	"orderId": 3126389058,
	"cancelable": true,
	"status": "QUEUED",
	"enteredTime": "2020-07-30T01:08:58+0000"
}`

const expiredOCOJSON = `{
	"orderStrategyType": "OCO",
	"orderId": 3134503213,
	"cancelable": false,
	"status": "EXPIRED",
	"childOrderStrategies": [
		{
			"session": "NORMAL",
			"duration": "DAY",
			"orderType": "LIMIT",
			"quantity": 200.0,
			"price": 15.44,
			"orderLegCollection": [
				{
					"orderLegType": "EQUITY",
					"legId": 1,
					"instrument": {"assetType": "EQUITY", "symbol": "VNM"},
					"instruction": "SELL",
					"positionEffect": "CLOSING",
					"quantity": 200.0
				}
			],
			"orderStrategyType": "SINGLE",
			"orderId": 3134503214,
			"status": "EXPIRED"
		},
		{
			"session": "NORMAL",
			"duration": "DAY",
			"orderType": "STOP",
			"quantity": 400.0,
			"stopPrice": 13.91,
			"orderLegCollection": [
				{
					"orderLegType": "EQUITY",
					"legId": 1,
					"instrument": {"assetType": "EQUITY", "symbol": "VNM"},
					"instruction": "SELL",
					"positionEffect": "CLOSING",
					"quantity": 400.0
				}
			],
			"orderStrategyType": "SINGLE",
			"orderId": 3134503215,
			"status": "EXPIRED"
		}
	]
}`

const marketBuyJSON = `{
	"session": "NORMAL",
	"duration": "DAY",
	"orderType": "MARKET",
	"quantity": 10.0,
	"orderLegCollection": [
		{
			"instrument": {"assetType": "EQUITY", "symbol": "DXCM"},
			"instruction": "BUY",
			"positionEffect": "OPENING",
			"quantity": 10.0
		}
	],
	"orderStrategyType": "SINGLE",
	"orderId": 3140000001,
	"status": "WORKING"
}`

func decodeOrder(t *testing.T, src string) RawOrder {
	t.Helper()
	var raw RawOrder
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		t.Fatalf("decoding order fixture: %v", err)
	}
	return raw
}

func decodePositions(t *testing.T, src string) []RawPosition {
	t.Helper()
	var raw []RawPosition
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		t.Fatalf("decoding positions fixture: %v", err)
	}
	return raw
}

func mustOrder(t *testing.T, src string) Order {
	t.Helper()
	o, err := NewOrder(decodeOrder(t, src))
	if err != nil {
		t.Fatalf("NewOrder() returned error: %v", err)
	}
	return o
}
