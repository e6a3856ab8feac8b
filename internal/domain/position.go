package domain

import "github.com/shopspring/decimal"

// Position is a read-only view of one broker-reported holding.
type Position struct {
	symbol     string
	long       decimal.Decimal
	short      decimal.Decimal
	tradePrice decimal.Decimal
}

// NewPosition projects a raw position record.
func NewPosition(raw RawPosition) Position {
	return Position{
		symbol:     raw.Instrument.Symbol,
		long:       raw.LongQuantity,
		short:      raw.ShortQuantity,
		tradePrice: raw.AveragePrice,
	}
}

// Symbol returns the instrument symbol.
func (p Position) Symbol() string { return p.symbol }

// Long returns the number of shares held long.
func (p Position) Long() decimal.Decimal { return p.long }

// Short returns the number of shares held short.
func (p Position) Short() decimal.Decimal { return p.short }

// TradePrice returns the average trade price of the holding.
func (p Position) TradePrice() decimal.Decimal { return p.tradePrice }
