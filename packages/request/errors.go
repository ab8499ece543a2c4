package request

import (
	"errors"
	"fmt"
)

// ErrInvalidUsage reports a violated precondition: a bad argument, mixing
// body modes, or configuring the connection after it has opened. It is
// raised at the violating call and latched on the Request.
var ErrInvalidUsage = errors.New("invalid usage")

// ErrRequest wraps every underlying failure of the round trip: URL parsing,
// connection errors, read/write failures and encoding failures. The cause is
// available through errors.Unwrap.
var ErrRequest = errors.New("request failed")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidUsage, fmt.Sprintf(format, args...))
}

// wrapErr classifies err under ErrRequest unless it already carries one of
// the package's error kinds.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRequest) || errors.Is(err, ErrInvalidUsage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrRequest, op, err)
}
