package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/minq/internal/queryir"
)

// quota caps the length of any intermediate sequence of one resolution.
//
// Recursive traversals (all_children, history, future) on large scenes can
// grow without bound; the cap turns that into an error instead of an
// unbounded allocation. A zero limit disables the check.
type quota struct {
	limit int
}

func (q quota) check(n queryir.Node, count int) error {
	if q.limit > 0 && count > q.limit {
		return &ElementsExceededError{Op: queryir.Describe(n), Count: count, Limit: q.limit}
	}
	return nil
}

// ElementsExceededError is returned when a stage produces more elements
// than WithMaxElements allows.
type ElementsExceededError struct {
	Op    string // The stage that exceeded the quota
	Count int    // Number of elements produced
	Limit int    // Maximum allowed elements
}

func (e *ElementsExceededError) Error() string {
	return fmt.Sprintf("%s produced %d elements, limit is %d", e.Op, e.Count, e.Limit)
}

// IsQuotaError returns true if err wraps an ElementsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var qe *ElementsExceededError
	return errors.As(err, &qe)
}
