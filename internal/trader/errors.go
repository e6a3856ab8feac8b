package trader

import "errors"

// Business-rule sentinels carried by RejectionError.
var (
	ErrOrderInactive = errors.New("order is not active")
	ErrNoPosition    = errors.New("no position held")
	ErrZeroQuantity  = errors.New("quantity rounds to zero")
)

// RejectionError is a request the trader refused before calling the broker.
// Message is meant for the user; Reason is one of the sentinels above.
type RejectionError struct {
	Reason  error
	Message string
}

func (e *RejectionError) Error() string { return e.Message }

func (e *RejectionError) Unwrap() error { return e.Reason }

func reject(reason error, message string) error {
	return &RejectionError{Reason: reason, Message: message}
}
