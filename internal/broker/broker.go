// Package broker defines the Broker interface and provides implementations
// that talk to a brokerage and return raw order and position records.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slamtrader/internal/domain"
)

// Broker abstracts the brokerage calls the trader needs. Every method blocks
// on the network and returns either raw records or a *TransportError.
type Broker interface {
	// Name returns the broker identifier (e.g. "tdameritrade", "alpaca").
	Name() string

	// Positions returns the position records of the account snapshot.
	Positions(ctx context.Context) ([]domain.RawPosition, error)

	// Orders returns every order entered since the given time. No status
	// filter is applied; callers filter client-side.
	Orders(ctx context.Context, since time.Time) ([]domain.RawOrder, error)

	// Order returns a single order record.
	Order(ctx context.Context, id domain.OrderID) (domain.RawOrder, error)

	// CancelOrder requests cancellation of an order.
	CancelOrder(ctx context.Context, id domain.OrderID) error

	// PlaceOrder submits a new order and returns the id the broker assigned.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderID, error)
}

// TransportError reports a failed broker call. Message carries the broker's
// error text, or the raw response body when it could not be parsed.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: broker returned %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// errorMessage extracts a human readable message from an error response
// body: the "error" field when present, the indented JSON document when the
// body is JSON without one, and the trimmed raw body otherwise.
func errorMessage(status int, body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg, ok := payload["error"].(string); ok && msg != "" {
			return msg
		}
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "    "); err == nil {
			return out.String()
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return http.StatusText(status)
}
