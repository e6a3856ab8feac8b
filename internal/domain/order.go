package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Order is either a *Single or a *OneCancelsOther. The interface is sealed;
// code that needs variant-specific data uses a type switch.
type Order interface {
	// ID returns the broker-assigned order id.
	ID() OrderID

	// IsActive reports whether the order can still execute.
	IsActive() bool

	// Render returns the deterministic text form of the order. Composite
	// orders render over several lines.
	Render() string

	String() string

	sealed()
}

// Compile-time interface checks.
var (
	_ Order = (*Single)(nil)
	_ Order = (*OneCancelsOther)(nil)
)

// terminal holds the statuses after which an order can no longer execute.
var terminal = map[OrderStatus]bool{
	StatusCanceled: true,
	StatusExpired:  true,
	StatusFilled:   true,
	StatusRejected: true,
	StatusReplaced: true,
}

// Classify reads the strategy discriminator of a raw order.
func Classify(raw RawOrder) (StrategyType, error) {
	switch raw.OrderStrategyType {
	case StrategySingle, StrategyOCO:
		return raw.OrderStrategyType, nil
	default:
		return "", fmt.Errorf("%w %q (order %s)", ErrUnknownStrategy, raw.OrderStrategyType, raw.OrderID)
	}
}

// NewOrder validates a raw order record and builds the matching variant.
// Composite orders are built recursively.
func NewOrder(raw RawOrder) (Order, error) {
	kind, err := Classify(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case StrategySingle:
		return newSingle(raw)
	case StrategyOCO:
		return newOneCancelsOther(raw)
	}
	panic("unreachable: Classify returned " + string(kind))
}

// ---------------------------------------------------------------------------
// Single
// ---------------------------------------------------------------------------

// Single is one order leg against one instrument.
type Single struct {
	id             OrderID
	status         OrderStatus
	orderType      OrderType
	duration       Duration
	instruction    Instruction
	quantity       decimal.Decimal
	symbol         string
	positionEffect PositionEffect
	price          *decimal.Decimal
}

func newSingle(raw RawOrder) (*Single, error) {
	if raw.OrderID == "" {
		return nil, malformed(raw.OrderID, "missing orderId")
	}
	if len(raw.OrderLegCollection) != 1 {
		return nil, malformed(raw.OrderID, "expected one leg, got %d", len(raw.OrderLegCollection))
	}
	leg := raw.OrderLegCollection[0]
	if leg.Instruction == "" {
		return nil, malformed(raw.OrderID, "missing instruction")
	}
	if leg.Instrument.Symbol == "" {
		return nil, malformed(raw.OrderID, "missing instrument symbol")
	}
	if !leg.Quantity.IsPositive() {
		return nil, malformed(raw.OrderID, "non-positive quantity %s", leg.Quantity)
	}
	if raw.Status == "" {
		return nil, malformed(raw.OrderID, "missing status")
	}
	if raw.OrderType == "" {
		return nil, malformed(raw.OrderID, "missing orderType")
	}
	if raw.Duration == "" {
		return nil, malformed(raw.OrderID, "missing duration")
	}
	if leg.PositionEffect == "" {
		return nil, malformed(raw.OrderID, "missing positionEffect")
	}

	s := &Single{
		id:             raw.OrderID,
		status:         raw.Status,
		orderType:      raw.OrderType,
		duration:       raw.Duration,
		instruction:    leg.Instruction,
		quantity:       leg.Quantity,
		symbol:         leg.Instrument.Symbol,
		positionEffect: leg.PositionEffect,
	}

	// A stop price wins over a limit price, which only matters for
	// STOP_LIMIT orders carrying both.
	switch {
	case raw.StopPrice != nil:
		p := *raw.StopPrice
		s.price = &p
	case raw.Price != nil:
		p := *raw.Price
		s.price = &p
	case s.pricedType():
		return nil, malformed(raw.OrderID, "%s order has neither price nor stopPrice", raw.OrderType)
	}
	return s, nil
}

func (s *Single) sealed() {}

// ID returns the broker-assigned order id.
func (s *Single) ID() OrderID { return s.id }

// Status returns the broker-reported status.
func (s *Single) Status() OrderStatus { return s.status }

// OrderType returns the execution type.
func (s *Single) OrderType() OrderType { return s.orderType }

// Duration returns the time in force.
func (s *Single) Duration() Duration { return s.duration }

// Instruction returns the leg direction.
func (s *Single) Instruction() Instruction { return s.instruction }

// Quantity returns the unsigned leg quantity.
func (s *Single) Quantity() decimal.Decimal { return s.quantity }

// Symbol returns the leg instrument symbol.
func (s *Single) Symbol() string { return s.symbol }

// PositionEffect returns whether the leg opens or closes a position.
func (s *Single) PositionEffect() PositionEffect { return s.positionEffect }

// Price returns the stop price for stop orders, otherwise the limit price.
// ok is false for orders that carry no price, such as market orders.
func (s *Single) Price() (price decimal.Decimal, ok bool) {
	if s.price == nil {
		return decimal.Zero, false
	}
	return *s.price, true
}

// SignedQuantity is the quantity with its sign set by the instruction:
// positive for buys and negative for sells.
func (s *Single) SignedQuantity() decimal.Decimal {
	if s.isSell() {
		return s.quantity.Neg()
	}
	return s.quantity
}

// IsActive is false once the order reached a terminal status.
func (s *Single) IsActive() bool {
	return !terminal[s.status]
}

// Render formats the order as
// "{id} {instruction} {signedQty} {symbol} {type[ price]} {duration} {effect} {status}".
func (s *Single) Render() string {
	return fmt.Sprintf("%s %s %s %s %s %s %s %s",
		s.id, s.instruction, s.signedText(), s.symbol, s.typeAndPrice(),
		s.duration, s.positionEffect, s.status)
}

// String implements fmt.Stringer.
func (s *Single) String() string { return s.Render() }

func (s *Single) isSell() bool {
	return strings.HasPrefix(string(s.instruction), string(InstructionSell))
}

func (s *Single) signedText() string {
	if s.isSell() {
		return "-" + s.quantity.String()
	}
	return "+" + s.quantity.String()
}

func (s *Single) pricedType() bool {
	return s.orderType == OrderTypeStop || s.orderType == OrderTypeLimit
}

func (s *Single) typeAndPrice() string {
	if s.pricedType() && s.price != nil {
		return fmt.Sprintf("%s %s", s.orderType, s.price.String())
	}
	return string(s.orderType)
}

// ---------------------------------------------------------------------------
// OneCancelsOther
// ---------------------------------------------------------------------------

// OneCancelsOther is a composite of two sibling orders where the execution
// or cancellation of one cancels the other. It has no status of its own.
type OneCancelsOther struct {
	id       OrderID
	children []Order
}

func newOneCancelsOther(raw RawOrder) (*OneCancelsOther, error) {
	if raw.OrderID == "" {
		return nil, malformed(raw.OrderID, "missing orderId")
	}
	if len(raw.ChildOrderStrategies) != 2 {
		return nil, malformed(raw.OrderID, "OCO order expects 2 children, got %d", len(raw.ChildOrderStrategies))
	}
	o := &OneCancelsOther{
		id:       raw.OrderID,
		children: make([]Order, 0, len(raw.ChildOrderStrategies)),
	}
	for i, child := range raw.ChildOrderStrategies {
		c, err := NewOrder(child)
		if err != nil {
			return nil, fmt.Errorf("order %s child %d: %w", raw.OrderID, i, err)
		}
		o.children = append(o.children, c)
	}
	return o, nil
}

func (o *OneCancelsOther) sealed() {}

// ID returns the parent order id.
func (o *OneCancelsOther) ID() OrderID { return o.id }

// Children returns the child orders in broker order.
func (o *OneCancelsOther) Children() []Order {
	out := make([]Order, len(o.children))
	copy(out, o.children)
	return out
}

// IsActive is true while any child is active.
func (o *OneCancelsOther) IsActive() bool {
	for _, c := range o.children {
		if c.IsActive() {
			return true
		}
	}
	return false
}

// Render writes an "{id} OCO" header and each child indented by four spaces.
func (o *OneCancelsOther) Render() string {
	lines := []string{fmt.Sprintf("%s OCO", o.id)}
	for _, c := range o.children {
		for _, line := range strings.Split(c.Render(), "\n") {
			lines = append(lines, "    "+line)
		}
	}
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer.
func (o *OneCancelsOther) String() string { return o.Render() }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Legs flattens an order into its single legs, depth first.
func Legs(o Order) []*Single {
	switch v := o.(type) {
	case *Single:
		return []*Single{v}
	case *OneCancelsOther:
		var out []*Single
		for _, c := range v.children {
			out = append(out, Legs(c)...)
		}
		return out
	}
	return nil
}
