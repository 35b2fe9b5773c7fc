package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError locates a scene problem. Field is a dotted path into the
// scene document ("nodes.persp.parent", "connections[2]"), or "cue" for
// errors raised by CUE itself.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if !e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
}

// formatCUEError keeps the first positioned CUE error. Errors without a
// position pass through unchanged.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if pos := errors.Positions(first); len(pos) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: pos[0]}
	}
	return err
}
