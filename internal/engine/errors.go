package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/minq/internal/queryir"
)

// ErrNotNode is returned when a node-only operation meets another value.
var ErrNotNode = errors.New("element is not a node")

// StageError reports which stage of a plan failed.
//
// Stage and Op identify the failing node; Plan is its rendered subtree.
// Err is the original failure (a backend error, a callable's error, or a
// structural problem) and is reachable through errors.Is / errors.As.
type StageError struct {
	Stage queryir.Stage
	Op    string
	Plan  string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Op, e.Err)
}

// Unwrap returns the original failure.
func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(n queryir.Node, err error) *StageError {
	return &StageError{
		Stage: queryir.StageOf(n),
		Op:    queryir.Describe(n),
		Plan:  queryir.Format(n),
		Err:   err,
	}
}

// IsStageError returns true if err wraps a StageError.
// Uses errors.As to handle wrapped errors.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

// AsStageError extracts the StageError from err, if any.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	ok := errors.As(err, &se)
	return se, ok
}

// callableError marks a failure returned by a caller-supplied function.
// The stage that called the function owns the failure, even when the
// function resolved a query of its own that failed.
type callableError struct {
	err error
}

func (e *callableError) Error() string { return e.err.Error() }
func (e *callableError) Unwrap() error { return e.err }

// raisedHere reports whether err originated in the stage being resolved
// rather than in one of its inputs. Walking outward-in, the first marker
// decides: a StageError came from an input, a callableError from this
// stage's own function.
func raisedHere(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e.(type) {
		case *StageError:
			return false
		case *callableError:
			return true
		}
	}
	return true
}

func notNode(op string, i int, v any) error {
	return fmt.Errorf("%s: element %d (%T): %w", op, i, v, ErrNotNode)
}
