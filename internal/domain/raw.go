package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// StrategyType discriminates single-leg orders from composite ones.
type StrategyType string

const (
	StrategySingle StrategyType = "SINGLE"
	StrategyOCO    StrategyType = "OCO"
)

// OrderStatus is the broker-reported order state. The set is open: brokers
// add values over time, so unknown statuses are carried through verbatim.
type OrderStatus string

const (
	StatusQueued   OrderStatus = "QUEUED"
	StatusWorking  OrderStatus = "WORKING"
	StatusFilled   OrderStatus = "FILLED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusExpired  OrderStatus = "EXPIRED"
	StatusRejected OrderStatus = "REJECTED"
	StatusReplaced OrderStatus = "REPLACED"
)

// Instruction is the direction of an order leg.
type Instruction string

const (
	InstructionBuy  Instruction = "BUY"
	InstructionSell Instruction = "SELL"
)

// OrderType is the execution type of an order (MARKET, LIMIT, STOP, ...).
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// Duration is the time in force of an order.
type Duration string

const (
	DurationDay            Duration = "DAY"
	DurationGoodTillCancel Duration = "GOOD_TILL_CANCEL"
)

// PositionEffect tells whether a leg opens or closes a position.
type PositionEffect string

const (
	EffectOpening PositionEffect = "OPENING"
	EffectClosing PositionEffect = "CLOSING"
)

// Session is the trading session an order is eligible for.
type Session string

const SessionNormal Session = "NORMAL"

// AssetEquity is the only asset type the request builders emit.
const AssetEquity = "EQUITY"

// ---------------------------------------------------------------------------
// OrderID
// ---------------------------------------------------------------------------

// OrderID is a broker-assigned order identifier. Some brokers report it as a
// JSON number and others as a string; both decode to the same textual form so
// that rendering never goes through a float.
type OrderID string

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	*id = OrderID(n.String())
	return nil
}

// MarshalJSON writes numeric ids back as numbers and everything else as
// strings.
func (id OrderID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id OrderID) numeric() bool {
	if id == "" {
		return false
	}
	return strings.Trim(string(id), "0123456789") == ""
}

// String returns the id as text.
func (id OrderID) String() string { return string(id) }

// ---------------------------------------------------------------------------
// Raw wire records
// ---------------------------------------------------------------------------

// RawInstrument identifies the security an order leg or position refers to.
type RawInstrument struct {
	AssetType string `json:"assetType,omitempty"`
	Cusip     string `json:"cusip,omitempty"`
	Symbol    string `json:"symbol"`
}

// RawPosition is one entry of securitiesAccount.positions.
type RawPosition struct {
	ShortQuantity decimal.Decimal `json:"shortQuantity"`
	AveragePrice  decimal.Decimal `json:"averagePrice"`
	LongQuantity  decimal.Decimal `json:"longQuantity"`
	Instrument    RawInstrument   `json:"instrument"`
	MarketValue   decimal.Decimal `json:"marketValue"`
}

// RawLeg is one entry of an order's orderLegCollection.
type RawLeg struct {
	OrderLegType   string          `json:"orderLegType,omitempty"`
	LegID          int             `json:"legId,omitempty"`
	Instrument     RawInstrument   `json:"instrument"`
	Instruction    Instruction     `json:"instruction"`
	PositionEffect PositionEffect  `json:"positionEffect,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// RawOrder is an order record as reported by the broker. Composite orders
// carry their legs in ChildOrderStrategies; single orders in
// OrderLegCollection.
type RawOrder struct {
	Session              Session          `json:"session,omitempty"`
	Duration             Duration         `json:"duration,omitempty"`
	OrderType            OrderType        `json:"orderType,omitempty"`
	Quantity             decimal.Decimal  `json:"quantity"`
	FilledQuantity       decimal.Decimal  `json:"filledQuantity"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	StopPrice            *decimal.Decimal `json:"stopPrice,omitempty"`
	OrderLegCollection   []RawLeg         `json:"orderLegCollection,omitempty"`
	OrderStrategyType    StrategyType     `json:"orderStrategyType"`
	OrderID              OrderID          `json:"orderId,omitempty"`
	Cancelable           bool             `json:"cancelable"`
	Status               OrderStatus      `json:"status,omitempty"`
	EnteredTime          string           `json:"enteredTime,omitempty"`
	ChildOrderStrategies []RawOrder       `json:"childOrderStrategies,omitempty"`
}
