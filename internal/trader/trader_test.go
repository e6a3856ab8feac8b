package trader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"slamtrader/internal/broker"
	"slamtrader/internal/domain"
)

// countingBroker records which calls reached the broker.
type countingBroker struct {
	*broker.SimulatorBroker
	cancels int
	places  int
}

func (c *countingBroker) CancelOrder(ctx context.Context, id domain.OrderID) error {
	c.cancels++
	return c.SimulatorBroker.CancelOrder(ctx, id)
}

func (c *countingBroker) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderID, error) {
	c.places++
	return c.SimulatorBroker.PlaceOrder(ctx, req)
}

func newTestTrader(t *testing.T) (*Trader, *countingBroker, *[]string) {
	t.Helper()
	b := &countingBroker{SimulatorBroker: broker.NewSimulatorBroker()}
	var notes []string
	tr := New(b, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Notify: func(msg string) { notes = append(notes, msg) },
	})
	return tr, b, &notes
}

func TestListOrdersFiltersInactive(t *testing.T) {
	ctx := context.Background()
	tr, b, _ := newTestTrader(t)

	filled, _ := tr.BuyLimit(ctx, "CANE", 1700, decimal.RequireFromString("6.07"))
	if _, err := tr.BuyMarket(ctx, "DXCM", 5); err != nil {
		t.Fatalf("BuyMarket() returned error: %v", err)
	}
	b.SetStatus(filled.ID(), domain.StatusFilled)

	active, err := tr.ListOrders(ctx, false)
	if err != nil {
		t.Fatalf("ListOrders(false) returned error: %v", err)
	}
	if len(active) != 1 || strings.Contains(active[0].Render(), "CANE") {
		t.Errorf("ListOrders(false) = %v, want only the DXCM order", active)
	}

	all, err := tr.ListOrders(ctx, true)
	if err != nil {
		t.Fatalf("ListOrders(true) returned error: %v", err)
	}
	if len(all) != 2 || all[0].ID() != filled.ID() {
		t.Errorf("ListOrders(true) = %v, want both orders oldest first", all)
	}
}

func TestCancelActiveOrder(t *testing.T) {
	ctx := context.Background()
	tr, b, _ := newTestTrader(t)

	o, _ := tr.BuyLimit(ctx, "CANE", 1700, decimal.RequireFromString("6.07"))
	if err := tr.CancelOrder(ctx, o.ID()); err != nil {
		t.Fatalf("CancelOrder() returned error: %v", err)
	}
	if b.cancels != 1 {
		t.Errorf("broker cancels = %d, want 1", b.cancels)
	}
	remaining, _ := tr.ListOrders(ctx, false)
	if len(remaining) != 0 {
		t.Errorf("active orders after cancel = %v", remaining)
	}
}

func TestCancelInactiveOrderIsRejected(t *testing.T) {
	ctx := context.Background()
	tr, b, _ := newTestTrader(t)

	o, _ := tr.BuyMarket(ctx, "DXCM", 5)
	b.SetStatus(o.ID(), domain.StatusFilled)

	err := tr.CancelOrder(ctx, o.ID())
	if !errors.Is(err, ErrOrderInactive) {
		t.Fatalf("CancelOrder() error = %v, want ErrOrderInactive", err)
	}
	var rerr *RejectionError
	if !errors.As(err, &rerr) || !strings.Contains(rerr.Message, string(o.ID())) {
		t.Errorf("error = %v, want a RejectionError naming the order", err)
	}
	if b.cancels != 0 {
		t.Errorf("broker cancels = %d, want 0", b.cancels)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	tr, _, _ := newTestTrader(t)

	err := tr.CancelOrder(context.Background(), "42")
	var terr *broker.TransportError
	if !errors.As(err, &terr) {
		t.Errorf("CancelOrder() error = %v, want *broker.TransportError", err)
	}
}

func TestSellStopSizesFromPosition(t *testing.T) {
	ctx := context.Background()
	tr, b, notes := newTestTrader(t)
	b.SetPosition("VNM", decimal.NewFromInt(21), decimal.Zero, decimal.RequireFromString("14.10"))

	o, err := tr.SellStop(ctx, "VNM", decimal.NewFromInt(50), decimal.RequireFromString("13.86"))
	if err != nil {
		t.Fatalf("SellStop() returned error: %v", err)
	}

	want := string(o.ID()) + " SELL -11 VNM STOP 13.86 GOOD_TILL_CANCEL CLOSING QUEUED"
	if got := o.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
	wantNote := "Selling 11 shares (50%) of VNM with a sell stop at 13.86"
	if len(*notes) != 1 || (*notes)[0] != wantNote {
		t.Errorf("notes = %q, want [%q]", *notes, wantNote)
	}
}

func TestSellStopWithoutPosition(t *testing.T) {
	ctx := context.Background()
	tr, b, notes := newTestTrader(t)
	b.SetPosition("SHRT", decimal.Zero, decimal.NewFromInt(100), decimal.RequireFromString("5"))

	for _, symbol := range []string{"NONE", "SHRT"} {
		_, err := tr.SellStop(ctx, symbol, decimal.NewFromInt(100), decimal.RequireFromString("1"))
		if !errors.Is(err, ErrNoPosition) {
			t.Errorf("SellStop(%s) error = %v, want ErrNoPosition", symbol, err)
		}
		if err != nil && err.Error() != "No position in "+symbol {
			t.Errorf("SellStop(%s) message = %q", symbol, err.Error())
		}
	}
	if b.places != 0 || len(*notes) != 0 {
		t.Errorf("places = %d, notes = %q, want nothing submitted", b.places, *notes)
	}
}

func TestSellStopZeroQuantity(t *testing.T) {
	tr, b, _ := newTestTrader(t)
	b.SetPosition("CGC", decimal.NewFromInt(3), decimal.Zero, decimal.RequireFromString("18"))

	_, err := tr.SellStop(context.Background(), "CGC", decimal.NewFromInt(10), decimal.RequireFromString("15"))
	if !errors.Is(err, ErrZeroQuantity) {
		t.Errorf("SellStop() error = %v, want ErrZeroQuantity", err)
	}
	if b.places != 0 {
		t.Errorf("places = %d, want 0", b.places)
	}
}

func TestSellOCO(t *testing.T) {
	tr, _, _ := newTestTrader(t)

	o, err := tr.SellOCO(context.Background(), "CGC", 300,
		decimal.RequireFromString("0.5"),
		decimal.RequireFromString("21.40"),
		decimal.RequireFromString("15.87"))
	if err != nil {
		t.Fatalf("SellOCO() returned error: %v", err)
	}
	oco, ok := o.(*domain.OneCancelsOther)
	if !ok {
		t.Fatalf("SellOCO() returned %T, want *domain.OneCancelsOther", o)
	}
	legs := domain.Legs(oco)
	if len(legs) != 2 {
		t.Fatalf("got %d legs, want 2", len(legs))
	}
	if legs[0].OrderType() != domain.OrderTypeStop || !legs[0].Quantity().Equal(decimal.NewFromInt(300)) {
		t.Errorf("stop leg = %s", legs[0])
	}
	if legs[1].OrderType() != domain.OrderTypeLimit || !legs[1].Quantity().Equal(decimal.NewFromInt(150)) {
		t.Errorf("target leg = %s", legs[1])
	}
	for _, leg := range legs {
		if leg.Duration() != domain.DurationGoodTillCancel {
			t.Errorf("leg duration = %s, want GOOD_TILL_CANCEL", leg.Duration())
		}
	}
}

func TestBuyRejectsNonPositiveQuantity(t *testing.T) {
	tr, b, _ := newTestTrader(t)

	if _, err := tr.BuyMarket(context.Background(), "DXCM", 0); !errors.Is(err, ErrZeroQuantity) {
		t.Errorf("BuyMarket(0) error = %v, want ErrZeroQuantity", err)
	}
	if _, err := tr.BuyLimit(context.Background(), "DXCM", -1, decimal.NewFromInt(1)); !errors.Is(err, ErrZeroQuantity) {
		t.Errorf("BuyLimit(-1) error = %v, want ErrZeroQuantity", err)
	}
	if b.places != 0 {
		t.Errorf("places = %d, want 0", b.places)
	}
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	b := broker.NewSimulatorBroker()
	tr := New(b, Options{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))})

	if _, err := tr.ListOrders(context.Background(), false); err != nil {
		t.Fatalf("ListOrders() returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "broker=simulator") {
		t.Errorf("log output = %q, want broker attribute", buf.String())
	}
}
