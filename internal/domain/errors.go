package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is wrapped by every error raised while turning a raw
// broker record into a domain value.
var ErrMalformedRecord = errors.New("malformed broker record")

// ErrUnknownStrategy reports an orderStrategyType that is neither SINGLE nor
// OCO. It matches ErrMalformedRecord under errors.Is.
var ErrUnknownStrategy = fmt.Errorf("%w: unrecognized order strategy type", ErrMalformedRecord)

func malformed(id OrderID, format string, args ...any) error {
	return fmt.Errorf("%w: order %s: %s", ErrMalformedRecord, id, fmt.Sprintf(format, args...))
}
