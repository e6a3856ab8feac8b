package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"slamtrader/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// alpacaAPI is the subset of *alpaca.Client the broker uses.
type alpacaAPI interface {
	GetPositions() ([]alpaca.Position, error)
	GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error)
	GetOrder(orderID string) (*alpaca.Order, error)
	CancelOrder(orderID string) error
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

// AlpacaBroker implements the Broker interface using the Alpaca trading
// API. Alpaca orders and positions are translated into the raw record shape
// the domain package parses.
type AlpacaBroker struct {
	client alpacaAPI
	log    *slog.Logger
}

// NewAlpacaBroker creates a new AlpacaBroker configured with the given
// credentials and API endpoint.
func NewAlpacaBroker(apiKey, apiSecret, baseURL string) *AlpacaBroker {
	return newAlpacaBroker(alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}))
}

func newAlpacaBroker(client alpacaAPI) *AlpacaBroker {
	return &AlpacaBroker{
		client: client,
		log:    slog.Default().With("broker", "alpaca"),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string {
	return "alpaca"
}

// Positions returns all current positions of the Alpaca account.
func (b *AlpacaBroker) Positions(_ context.Context) ([]domain.RawPosition, error) {
	positions, err := b.client.GetPositions()
	if err != nil {
		return nil, alpacaError("get positions", err)
	}
	out := make([]domain.RawPosition, 0, len(positions))
	for _, p := range positions {
		out = append(out, rawPositionFromAlpaca(p))
	}
	return out, nil
}

// Orders returns every order submitted after since, with OCO legs nested.
func (b *AlpacaBroker) Orders(_ context.Context, since time.Time) ([]domain.RawOrder, error) {
	orders, err := b.client.GetOrders(alpaca.GetOrdersRequest{
		Status: "all",
		After:  since,
		Limit:  500,
		Nested: true,
	})
	if err != nil {
		return nil, alpacaError("get orders", err)
	}
	b.log.Debug("fetched orders", "count", len(orders), "since", since)
	out := make([]domain.RawOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, rawOrderFromAlpaca(o))
	}
	return out, nil
}

// Order returns one order by id.
func (b *AlpacaBroker) Order(_ context.Context, id domain.OrderID) (domain.RawOrder, error) {
	o, err := b.client.GetOrder(id.String())
	if err != nil {
		return domain.RawOrder{}, alpacaError("get order", err)
	}
	return rawOrderFromAlpaca(*o), nil
}

// CancelOrder requests cancellation of an open order.
func (b *AlpacaBroker) CancelOrder(_ context.Context, id domain.OrderID) error {
	if err := b.client.CancelOrder(id.String()); err != nil {
		return alpacaError("cancel order", err)
	}
	return nil
}

// PlaceOrder translates the request into an Alpaca order. OCO requests
// become an Alpaca "oco" order, which requires both legs to share a
// quantity.
func (b *AlpacaBroker) PlaceOrder(_ context.Context, req domain.OrderRequest) (domain.OrderID, error) {
	preq, err := placeRequestForAlpaca(req)
	if err != nil {
		return "", err
	}
	preq.ClientOrderID = uuid.NewString()

	o, err := b.client.PlaceOrder(preq)
	if err != nil {
		return "", alpacaError("place order", err)
	}
	b.log.Debug("placed order", "id", o.ID, "clientOrderID", preq.ClientOrderID)
	return domain.OrderID(o.ID), nil
}

// ---------------------------------------------------------------------------
// Translation
// ---------------------------------------------------------------------------

func alpacaError(op string, err error) error {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Op: op, StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

func rawPositionFromAlpaca(p alpaca.Position) domain.RawPosition {
	raw := domain.RawPosition{
		AveragePrice: p.AvgEntryPrice,
		Instrument:   domain.RawInstrument{Symbol: p.Symbol, AssetType: assetType(string(p.AssetClass))},
	}
	if p.Side == "short" || p.Qty.IsNegative() {
		raw.ShortQuantity = p.Qty.Abs()
	} else {
		raw.LongQuantity = p.Qty
	}
	return raw
}

func assetType(class string) string {
	switch class {
	case "us_equity":
		return domain.AssetEquity
	default:
		return strings.ToUpper(class)
	}
}

// rawOrderFromAlpaca maps an Alpaca order onto the raw record shape. An oco
// order becomes an OCO record whose children are the parent's own leg
// followed by its nested legs.
func rawOrderFromAlpaca(o alpaca.Order) domain.RawOrder {
	if o.OrderClass != alpaca.OCO || len(o.Legs) == 0 {
		return rawSingleFromAlpaca(o)
	}
	raw := domain.RawOrder{
		OrderStrategyType: domain.StrategyOCO,
		OrderID:           domain.OrderID(o.ID),
		Status:            alpacaStatus(o.Status),
		EnteredTime:       o.SubmittedAt.Format(time.RFC3339),
	}
	raw.ChildOrderStrategies = append(raw.ChildOrderStrategies, rawSingleFromAlpaca(o))
	for _, leg := range o.Legs {
		raw.ChildOrderStrategies = append(raw.ChildOrderStrategies, rawOrderFromAlpaca(leg))
	}
	return raw
}

func rawSingleFromAlpaca(o alpaca.Order) domain.RawOrder {
	qty := decimal.Zero
	if o.Qty != nil {
		qty = *o.Qty
	}
	instruction := domain.Instruction(strings.ToUpper(string(o.Side)))
	effect := domain.EffectOpening
	if instruction == domain.InstructionSell {
		effect = domain.EffectClosing
	}
	return domain.RawOrder{
		Session:           domain.SessionNormal,
		Duration:          alpacaDuration(o.TimeInForce),
		OrderType:         domain.OrderType(strings.ToUpper(string(o.Type))),
		Quantity:          qty,
		FilledQuantity:    o.FilledQty,
		Price:             o.LimitPrice,
		StopPrice:         o.StopPrice,
		OrderStrategyType: domain.StrategySingle,
		OrderID:           domain.OrderID(o.ID),
		Status:            alpacaStatus(o.Status),
		EnteredTime:       o.SubmittedAt.Format(time.RFC3339),
		OrderLegCollection: []domain.RawLeg{{
			OrderLegType:   domain.AssetEquity,
			LegID:          1,
			Instrument:     domain.RawInstrument{Symbol: o.Symbol, AssetType: assetType(string(o.AssetClass))},
			Instruction:    instruction,
			PositionEffect: effect,
			Quantity:       qty,
		}},
	}
}

// alpacaStatus maps Alpaca's lower-case statuses onto the broker vocabulary
// the domain understands. Unknown values are upper-cased and passed through.
func alpacaStatus(s string) domain.OrderStatus {
	switch s {
	case "new", "partially_filled", "pending_cancel", "pending_replace":
		return domain.StatusWorking
	case "accepted", "pending_new", "accepted_for_bidding", "held":
		return domain.StatusQueued
	case "filled":
		return domain.StatusFilled
	case "canceled":
		return domain.StatusCanceled
	case "expired":
		return domain.StatusExpired
	case "rejected":
		return domain.StatusRejected
	case "replaced":
		return domain.StatusReplaced
	default:
		return domain.OrderStatus(strings.ToUpper(s))
	}
}

func alpacaDuration(tif alpaca.TimeInForce) domain.Duration {
	switch tif {
	case alpaca.Day:
		return domain.DurationDay
	case alpaca.GTC:
		return domain.DurationGoodTillCancel
	case alpaca.FOK:
		return "FILL_OR_KILL"
	case alpaca.IOC:
		return "IMMEDIATE_OR_CANCEL"
	default:
		return domain.Duration(strings.ToUpper(string(tif)))
	}
}

func alpacaTimeInForce(d domain.Duration) alpaca.TimeInForce {
	if d == domain.DurationGoodTillCancel {
		return alpaca.GTC
	}
	return alpaca.Day
}

func placeRequestForAlpaca(req domain.OrderRequest) (alpaca.PlaceOrderRequest, error) {
	switch req.OrderStrategyType {
	case domain.StrategySingle:
		return singleRequestForAlpaca(req)
	case domain.StrategyOCO:
		return ocoRequestForAlpaca(req)
	default:
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("alpaca: unsupported order strategy %q", req.OrderStrategyType)
	}
}

func singleRequestForAlpaca(req domain.OrderRequest) (alpaca.PlaceOrderRequest, error) {
	leg, ok := req.Leg()
	if !ok {
		return alpaca.PlaceOrderRequest{}, errors.New("alpaca: order request has no leg")
	}
	qty := decimal.NewFromInt(leg.Quantity)
	preq := alpaca.PlaceOrderRequest{
		Symbol:      leg.Instrument.Symbol,
		Qty:         &qty,
		Side:        alpaca.Side(strings.ToLower(string(leg.Instruction))),
		TimeInForce: alpacaTimeInForce(req.Duration),
		LimitPrice:  req.Price,
		StopPrice:   req.StopPrice,
	}
	switch req.OrderType {
	case domain.OrderTypeMarket:
		preq.Type = alpaca.Market
	case domain.OrderTypeLimit:
		preq.Type = alpaca.Limit
	case domain.OrderTypeStop:
		preq.Type = alpaca.Stop
	default:
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("alpaca: unsupported order type %q", req.OrderType)
	}
	return preq, nil
}

// ocoRequestForAlpaca expects one LIMIT and one STOP child on the same
// symbol, side and quantity.
func ocoRequestForAlpaca(req domain.OrderRequest) (alpaca.PlaceOrderRequest, error) {
	if len(req.ChildOrderStrategies) != 2 {
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("alpaca: OCO request needs 2 children, got %d", len(req.ChildOrderStrategies))
	}
	var limit, stop *domain.OrderRequest
	for i := range req.ChildOrderStrategies {
		c := &req.ChildOrderStrategies[i]
		switch c.OrderType {
		case domain.OrderTypeLimit:
			limit = c
		case domain.OrderTypeStop:
			stop = c
		}
	}
	if limit == nil || stop == nil {
		return alpaca.PlaceOrderRequest{}, errors.New("alpaca: OCO request needs one LIMIT and one STOP child")
	}
	limitLeg, ok1 := limit.Leg()
	stopLeg, ok2 := stop.Leg()
	if !ok1 || !ok2 {
		return alpaca.PlaceOrderRequest{}, errors.New("alpaca: OCO child has no leg")
	}
	if limitLeg.Quantity != stopLeg.Quantity || limitLeg.Instrument.Symbol != stopLeg.Instrument.Symbol {
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("alpaca: OCO legs must share symbol and quantity (limit %d, stop %d)",
			limitLeg.Quantity, stopLeg.Quantity)
	}

	qty := decimal.NewFromInt(limitLeg.Quantity)
	return alpaca.PlaceOrderRequest{
		Symbol:      limitLeg.Instrument.Symbol,
		Qty:         &qty,
		Side:        alpaca.Side(strings.ToLower(string(limitLeg.Instruction))),
		Type:        alpaca.Limit,
		TimeInForce: alpacaTimeInForce(limit.Duration),
		OrderClass:  alpaca.OCO,
		TakeProfit:  &alpaca.TakeProfit{LimitPrice: limit.Price},
		StopLoss:    &alpaca.StopLoss{StopPrice: stop.StopPrice},
	}, nil
}
