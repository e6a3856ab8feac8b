// Package trader coordinates order listing, cancellation and placement on
// top of a broker, applying the sizing and business rules of each command.
package trader

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"slamtrader/internal/broker"
	"slamtrader/internal/domain"
)

// Options configures a Trader.
type Options struct {
	// LookbackDays bounds the order history request. Zero means 60.
	LookbackDays int

	// Logger receives request-level debug lines. Nil uses slog.Default().
	Logger *slog.Logger

	// Notify, when set, is called with a one-line announcement right before
	// an order sized from a position is submitted.
	Notify func(msg string)
}

// Trader executes the account commands against a broker.
type Trader struct {
	broker   broker.Broker
	lookback int
	log      *slog.Logger
	notify   func(string)
	now      func() time.Time
}

// New creates a Trader wired to the given broker.
func New(b broker.Broker, opts Options) *Trader {
	t := &Trader{
		broker:   b,
		lookback: opts.LookbackDays,
		log:      opts.Logger,
		notify:   opts.Notify,
		now:      time.Now,
	}
	if t.lookback <= 0 {
		t.lookback = 60
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	t.log = t.log.With("broker", b.Name())
	return t
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Orders fetches the order history of the lookback window as a catalog.
func (t *Trader) Orders(ctx context.Context) (*domain.OrderCatalog, error) {
	since := t.now().AddDate(0, 0, -t.lookback)
	t.log.Debug("fetching orders", "since", since.Format(time.DateOnly))

	raw, err := t.broker.Orders(ctx, since)
	if err != nil {
		return nil, err
	}
	catalog, err := domain.NewOrderCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("building order catalog: %w", err)
	}
	t.log.Debug("fetched orders", "count", catalog.Len())
	return catalog, nil
}

// ListOrders returns the active orders of the lookback window, or every
// order when all is set, in the order the broker reported them.
func (t *Trader) ListOrders(ctx context.Context, all bool) ([]domain.Order, error) {
	catalog, err := t.Orders(ctx)
	if err != nil {
		return nil, err
	}
	if all {
		return slices.Collect(catalog.All()), nil
	}
	return slices.Collect(catalog.ActiveOnly()), nil
}

// Positions returns the current position book.
func (t *Trader) Positions(ctx context.Context) (*domain.PositionBook, error) {
	raw, err := t.broker.Positions(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewPositionBook(raw), nil
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// CancelOrder cancels an active order. Cancelling an order that already
// reached a terminal status is rejected without calling the broker.
func (t *Trader) CancelOrder(ctx context.Context, id domain.OrderID) error {
	raw, err := t.broker.Order(ctx, id)
	if err != nil {
		return err
	}
	o, err := domain.NewOrder(raw)
	if err != nil {
		return err
	}
	if !o.IsActive() {
		return reject(ErrOrderInactive, fmt.Sprintf("Cannot cancel inactive order %s", id))
	}

	t.log.Debug("canceling order", "id", id)
	return t.broker.CancelOrder(ctx, id)
}

// BuyMarket places a market buy of quantity shares.
func (t *Trader) BuyMarket(ctx context.Context, symbol string, quantity int64) (domain.Order, error) {
	if quantity <= 0 {
		return nil, reject(ErrZeroQuantity, fmt.Sprintf("Quantity must be positive, got %d", quantity))
	}
	return t.place(ctx, domain.MarketBuy(symbol, quantity))
}

// BuyLimit places a good-till-cancel limit buy.
func (t *Trader) BuyLimit(ctx context.Context, symbol string, quantity int64, limit decimal.Decimal) (domain.Order, error) {
	if quantity <= 0 {
		return nil, reject(ErrZeroQuantity, fmt.Sprintf("Quantity must be positive, got %d", quantity))
	}
	return t.place(ctx, domain.LimitBuy(symbol, quantity, limit))
}

// SellStop places a good-till-cancel stop sell for percent% of the long
// position held in symbol.
func (t *Trader) SellStop(ctx context.Context, symbol string, percent, stop decimal.Decimal) (domain.Order, error) {
	book, err := t.Positions(ctx)
	if err != nil {
		return nil, err
	}
	pos, ok := book.Lookup(symbol)
	if !ok || !pos.Long().IsPositive() {
		return nil, reject(ErrNoPosition, fmt.Sprintf("No position in %s", symbol))
	}

	quantity := domain.PercentOf(pos.Long(), percent)
	if quantity <= 0 {
		return nil, reject(ErrZeroQuantity,
			fmt.Sprintf("%s%% of %s %s shares rounds to zero", percent, pos.Long(), symbol))
	}

	t.announce(fmt.Sprintf("Selling %d shares (%s%%) of %s with a sell stop at %s",
		quantity, percent, symbol, stop))
	return t.place(ctx, domain.StopSell(symbol, quantity, stop))
}

// SellOCO places a one-cancels-other exit: a stop sell of quantity shares
// and a limit sell of quantity*targetRatio shares at target, both good till
// cancel.
func (t *Trader) SellOCO(ctx context.Context, symbol string, quantity int64, targetRatio, target, stop decimal.Decimal) (domain.Order, error) {
	if quantity <= 0 {
		return nil, reject(ErrZeroQuantity, fmt.Sprintf("Quantity must be positive, got %d", quantity))
	}
	targetQty := domain.RatioOf(quantity, targetRatio)
	if targetQty <= 0 {
		return nil, reject(ErrZeroQuantity,
			fmt.Sprintf("Target ratio %s of %d shares rounds to zero", targetRatio, quantity))
	}

	req := domain.OneCancelsOtherRequest(
		domain.StopSell(symbol, quantity, stop),
		domain.LimitSell(symbol, targetQty, target),
	)
	return t.place(ctx, req)
}

// place submits the request and re-fetches the new order so the caller can
// print what the broker accepted.
func (t *Trader) place(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	t.log.Debug("placing order", "strategy", req.OrderStrategyType, "type", req.OrderType)

	id, err := t.broker.PlaceOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := t.broker.Order(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching placed order %s: %w", id, err)
	}
	o, err := domain.NewOrder(raw)
	if err != nil {
		return nil, err
	}
	t.log.Info("order placed", "id", id)
	return o, nil
}

func (t *Trader) announce(msg string) {
	if t.notify != nil {
		t.notify(msg)
	}
}
