package domain

import "github.com/shopspring/decimal"

// OrderRequest is the payload submitted to the broker to place an order.
type OrderRequest struct {
	OrderType            OrderType        `json:"orderType,omitempty"`
	Session              Session          `json:"session,omitempty"`
	Duration             Duration         `json:"duration,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	StopPrice            *decimal.Decimal `json:"stopPrice,omitempty"`
	OrderStrategyType    StrategyType     `json:"orderStrategyType"`
	OrderLegCollection   []RequestLeg     `json:"orderLegCollection,omitempty"`
	ChildOrderStrategies []OrderRequest   `json:"childOrderStrategies,omitempty"`
}

// RequestLeg is one leg of an OrderRequest.
type RequestLeg struct {
	Instruction Instruction   `json:"instruction"`
	Quantity    int64         `json:"quantity"`
	Instrument  RawInstrument `json:"instrument"`
}

// Leg returns the first leg of a single-leg request.
func (r OrderRequest) Leg() (RequestLeg, bool) {
	if len(r.OrderLegCollection) == 0 {
		return RequestLeg{}, false
	}
	return r.OrderLegCollection[0], true
}

func equityRequest(instruction Instruction, orderType OrderType, symbol string, quantity int64) OrderRequest {
	return OrderRequest{
		OrderType:         orderType,
		Session:           SessionNormal,
		Duration:          DurationDay,
		OrderStrategyType: StrategySingle,
		OrderLegCollection: []RequestLeg{{
			Instruction: instruction,
			Quantity:    quantity,
			Instrument:  RawInstrument{Symbol: symbol, AssetType: AssetEquity},
		}},
	}
}

// MarketBuy builds a market buy. Market orders keep the broker's day-only
// duration.
func MarketBuy(symbol string, quantity int64) OrderRequest {
	return equityRequest(InstructionBuy, OrderTypeMarket, symbol, quantity)
}

// LimitBuy builds a good-till-cancel limit buy.
func LimitBuy(symbol string, quantity int64, limit decimal.Decimal) OrderRequest {
	r := equityRequest(InstructionBuy, OrderTypeLimit, symbol, quantity)
	r.Duration = DurationGoodTillCancel
	r.Price = &limit
	return r
}

// LimitSell builds a good-till-cancel limit sell.
func LimitSell(symbol string, quantity int64, limit decimal.Decimal) OrderRequest {
	r := equityRequest(InstructionSell, OrderTypeLimit, symbol, quantity)
	r.Duration = DurationGoodTillCancel
	r.Price = &limit
	return r
}

// StopSell builds a good-till-cancel stop sell.
func StopSell(symbol string, quantity int64, stop decimal.Decimal) OrderRequest {
	r := equityRequest(InstructionSell, OrderTypeStop, symbol, quantity)
	r.Duration = DurationGoodTillCancel
	r.StopPrice = &stop
	return r
}

// OneCancelsOtherRequest wraps two requests so that filling or cancelling
// one cancels the other.
func OneCancelsOtherRequest(first, second OrderRequest) OrderRequest {
	return OrderRequest{
		OrderStrategyType:    StrategyOCO,
		ChildOrderStrategies: []OrderRequest{first, second},
	}
}

// ---------------------------------------------------------------------------
// Sizing
// ---------------------------------------------------------------------------

var hundred = decimal.NewFromInt(100)

// RoundShares rounds a share count to a whole number, halves away from zero
// (10.5 -> 11).
func RoundShares(q decimal.Decimal) int64 {
	return q.Round(0).IntPart()
}

// PercentOf returns percent% of quantity rounded with RoundShares.
func PercentOf(quantity, percent decimal.Decimal) int64 {
	return RoundShares(quantity.Mul(percent).Div(hundred))
}

// RatioOf returns ratio*quantity rounded with RoundShares.
func RatioOf(quantity int64, ratio decimal.Decimal) int64 {
	return RoundShares(decimal.NewFromInt(quantity).Mul(ratio))
}
