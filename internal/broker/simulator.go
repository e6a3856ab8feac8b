package broker

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"slamtrader/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

// SimulatorBroker implements the Broker interface for paper trading and
// tests. It keeps positions and orders in memory, assigns sequential numeric
// order ids and never fills anything on its own.
type SimulatorBroker struct {
	positions []domain.RawPosition
	orders    []*simOrder
	nextID    int64
	now       func() time.Time
}

type simOrder struct {
	raw       domain.RawOrder
	enteredAt time.Time
}

// NewSimulatorBroker creates a new SimulatorBroker with no positions and no
// orders.
func NewSimulatorBroker() *SimulatorBroker {
	return &SimulatorBroker{
		nextID: 1000,
		now:    time.Now,
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// SetPosition adds or replaces the position held in symbol.
func (b *SimulatorBroker) SetPosition(symbol string, long, short, avgPrice decimal.Decimal) {
	p := domain.RawPosition{
		LongQuantity:  long,
		ShortQuantity: short,
		AveragePrice:  avgPrice,
		Instrument:    domain.RawInstrument{Symbol: symbol, AssetType: domain.AssetEquity},
	}
	for i := range b.positions {
		if b.positions[i].Instrument.Symbol == symbol {
			b.positions[i] = p
			return
		}
	}
	b.positions = append(b.positions, p)
}

// AddOrder records a raw order as if the broker had reported it.
func (b *SimulatorBroker) AddOrder(raw domain.RawOrder) {
	b.orders = append(b.orders, &simOrder{raw: raw, enteredAt: b.now()})
}

// SetStatus changes the status of an order, or of an OCO child.
func (b *SimulatorBroker) SetStatus(id domain.OrderID, status domain.OrderStatus) bool {
	for _, o := range b.orders {
		if setStatus(&o.raw, id, status) {
			return true
		}
	}
	return false
}

// Positions returns a copy of the simulated positions.
func (b *SimulatorBroker) Positions(_ context.Context) ([]domain.RawPosition, error) {
	out := make([]domain.RawPosition, len(b.positions))
	copy(out, b.positions)
	return out, nil
}

// Orders returns the orders entered at or after since, oldest first.
func (b *SimulatorBroker) Orders(_ context.Context, since time.Time) ([]domain.RawOrder, error) {
	var out []domain.RawOrder
	for _, o := range b.orders {
		if o.enteredAt.Before(since) {
			continue
		}
		out = append(out, o.raw)
	}
	return out, nil
}

// Order returns one order by its top-level id.
func (b *SimulatorBroker) Order(_ context.Context, id domain.OrderID) (domain.RawOrder, error) {
	for _, o := range b.orders {
		if o.raw.OrderID == id {
			return o.raw, nil
		}
	}
	return domain.RawOrder{}, notFound("get order", id)
}

// CancelOrder marks the order and all of its children as canceled.
func (b *SimulatorBroker) CancelOrder(_ context.Context, id domain.OrderID) error {
	for _, o := range b.orders {
		if o.raw.OrderID == id {
			cancelAll(&o.raw)
			return nil
		}
	}
	return notFound("cancel order", id)
}

// PlaceOrder records the request as a QUEUED order and returns its id.
func (b *SimulatorBroker) PlaceOrder(_ context.Context, req domain.OrderRequest) (domain.OrderID, error) {
	raw := b.fromRequest(req)
	b.AddOrder(raw)
	return raw.OrderID, nil
}

func (b *SimulatorBroker) fromRequest(req domain.OrderRequest) domain.RawOrder {
	b.nextID++
	raw := domain.RawOrder{
		Session:           req.Session,
		Duration:          req.Duration,
		OrderType:         req.OrderType,
		Price:             req.Price,
		StopPrice:         req.StopPrice,
		OrderStrategyType: req.OrderStrategyType,
		OrderID:           domain.OrderID(strconv.FormatInt(b.nextID, 10)),
		Cancelable:        true,
		Status:            domain.StatusQueued,
		EnteredTime:       b.now().UTC().Format("2006-01-02T15:04:05-0700"),
	}
	for i, leg := range req.OrderLegCollection {
		q := decimal.NewFromInt(leg.Quantity)
		raw.Quantity = raw.Quantity.Add(q)
		effect := domain.EffectOpening
		if leg.Instruction == domain.InstructionSell {
			effect = domain.EffectClosing
		}
		raw.OrderLegCollection = append(raw.OrderLegCollection, domain.RawLeg{
			OrderLegType:   leg.Instrument.AssetType,
			LegID:          i + 1,
			Instrument:     leg.Instrument,
			Instruction:    leg.Instruction,
			PositionEffect: effect,
			Quantity:       q,
		})
	}
	for _, child := range req.ChildOrderStrategies {
		raw.ChildOrderStrategies = append(raw.ChildOrderStrategies, b.fromRequest(child))
	}
	return raw
}

func cancelAll(raw *domain.RawOrder) {
	raw.Status = domain.StatusCanceled
	raw.Cancelable = false
	for i := range raw.ChildOrderStrategies {
		cancelAll(&raw.ChildOrderStrategies[i])
	}
}

func setStatus(raw *domain.RawOrder, id domain.OrderID, status domain.OrderStatus) bool {
	if raw.OrderID == id {
		raw.Status = status
		return true
	}
	for i := range raw.ChildOrderStrategies {
		if setStatus(&raw.ChildOrderStrategies[i], id, status) {
			return true
		}
	}
	return false
}

func notFound(op string, id domain.OrderID) error {
	return &TransportError{
		Op:         op,
		StatusCode: http.StatusNotFound,
		Message:    "Order " + id.String() + " not found",
	}
}
