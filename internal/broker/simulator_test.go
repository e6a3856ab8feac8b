package broker

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"slamtrader/internal/domain"
)

func TestSimulatorPlaceAndFetch(t *testing.T) {
	ctx := context.Background()
	b := NewSimulatorBroker()

	id, err := b.PlaceOrder(ctx, domain.LimitBuy("CANE", 1700, decimal.RequireFromString("6.07")))
	if err != nil {
		t.Fatalf("PlaceOrder() returned error: %v", err)
	}
	raw, err := b.Order(ctx, id)
	if err != nil {
		t.Fatalf("Order() returned error: %v", err)
	}
	o, err := domain.NewOrder(raw)
	if err != nil {
		t.Fatalf("NewOrder() returned error: %v", err)
	}
	want := string(id) + " BUY +1700 CANE LIMIT 6.07 GOOD_TILL_CANCEL OPENING QUEUED"
	if got := o.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestSimulatorCancelCascades(t *testing.T) {
	ctx := context.Background()
	b := NewSimulatorBroker()

	req := domain.OneCancelsOtherRequest(
		domain.StopSell("CGC", 300, decimal.RequireFromString("15.87")),
		domain.LimitSell("CGC", 150, decimal.RequireFromString("21.40")),
	)
	id, err := b.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("PlaceOrder() returned error: %v", err)
	}

	raw, _ := b.Order(ctx, id)
	before, err := domain.NewOrder(raw)
	if err != nil {
		t.Fatalf("NewOrder() returned error: %v", err)
	}
	if !before.IsActive() {
		t.Fatal("new OCO should be active")
	}

	if err := b.CancelOrder(ctx, id); err != nil {
		t.Fatalf("CancelOrder() returned error: %v", err)
	}
	if !before.IsActive() {
		t.Error("cancel must not change an already built order")
	}

	raw, _ = b.Order(ctx, id)
	after, err := domain.NewOrder(raw)
	if err != nil {
		t.Fatalf("NewOrder() returned error: %v", err)
	}
	if after.IsActive() {
		t.Error("re-fetched OCO should be inactive after cancel")
	}
}

func TestSimulatorUnknownOrder(t *testing.T) {
	b := NewSimulatorBroker()

	err := b.CancelOrder(context.Background(), "1")
	var terr *TransportError
	if !errors.As(err, &terr) || terr.StatusCode != http.StatusNotFound {
		t.Errorf("CancelOrder() error = %v, want 404 TransportError", err)
	}
}

func TestSimulatorOrdersRespectsLookback(t *testing.T) {
	ctx := context.Background()
	b := NewSimulatorBroker()
	now := time.Date(2020, 7, 31, 12, 0, 0, 0, time.UTC)

	b.now = func() time.Time { return now.AddDate(0, 0, -90) }
	b.PlaceOrder(ctx, domain.MarketBuy("OLD", 1))
	b.now = func() time.Time { return now }
	b.PlaceOrder(ctx, domain.MarketBuy("NEW", 1))

	orders, err := b.Orders(ctx, now.AddDate(0, 0, -60))
	if err != nil {
		t.Fatalf("Orders() returned error: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderLegCollection[0].Instrument.Symbol != "NEW" {
		t.Errorf("Orders() = %+v, want only NEW", orders)
	}
}

func TestSimulatorSetPositionReplaces(t *testing.T) {
	b := NewSimulatorBroker()
	b.SetPosition("NVDA", decimal.NewFromInt(20), decimal.Zero, decimal.RequireFromString("380.783"))
	b.SetPosition("NVDA", decimal.NewFromInt(25), decimal.Zero, decimal.RequireFromString("381"))

	positions, _ := b.Positions(context.Background())
	if len(positions) != 1 || !positions[0].LongQuantity.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Positions() = %+v", positions)
	}
}

func TestSimulatorSetStatusReachesChildren(t *testing.T) {
	ctx := context.Background()
	b := NewSimulatorBroker()
	id, _ := b.PlaceOrder(ctx, domain.OneCancelsOtherRequest(
		domain.StopSell("VNM", 400, decimal.RequireFromString("13.91")),
		domain.LimitSell("VNM", 200, decimal.RequireFromString("15.44")),
	))
	raw, _ := b.Order(ctx, id)
	child := raw.ChildOrderStrategies[0].OrderID

	if !b.SetStatus(child, domain.StatusFilled) {
		t.Fatalf("SetStatus(%s) found nothing", child)
	}
	raw, _ = b.Order(ctx, id)
	if raw.ChildOrderStrategies[0].Status != domain.StatusFilled {
		t.Errorf("child status = %q, want FILLED", raw.ChildOrderStrategies[0].Status)
	}
}
