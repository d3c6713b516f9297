package shared

import "context"

// NumberGenerator allocates sequential document numbers such as
// SAL-202608-0001. Each series counts independently per tenant and per
// calendar month, and concurrent callers never receive the same number.
type NumberGenerator interface {
	// Next allocates the next number in the series for the tenant carried
	// in the context. The series is the document prefix, e.g. "SAL".
	Next(ctx context.Context, series string) (string, error)
}
