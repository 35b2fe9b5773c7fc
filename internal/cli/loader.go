package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/minq/internal/compiler"
	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/memscene"
	"github.com/roach88/minq/internal/scene"
	"github.com/roach88/minq/internal/store"
)

// LoadError represents an error that occurred while loading a scene or
// opening a backend.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeOpenFailed  = "E006" // Database open failed
	ErrCodeWriteFailed = "E007" // File or database write error

	// Scene validation errors
	ErrCodeUnknownType   = "E101" // Node of an undeclared type
	ErrCodeBadParent     = "E102" // Missing or out-of-order parent
	ErrCodeBadConnection = "E103" // Connection endpoint error
	ErrCodeBadTypes      = "E104" // Invalid type hierarchy
	ErrCodeBadNode       = "E105" // Malformed node entry

	// Query errors
	ErrCodeInvalidQuery = "E201" // Document or plan is invalid
	ErrCodeQueryFailed  = "E202" // Execution failed
)

// LoadScene compiles a .cue file or directory of .cue files.
func LoadScene(path string) (*ir.Scene, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scene not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scene: %v", err)}
	}
	if info.IsDir() {
		files, err := compiler.FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	sc, err := compiler.LoadScene(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return sc, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeLoadFailed
	case strings.HasPrefix(field, "types"):
		return ErrCodeBadTypes
	case strings.HasPrefix(field, "connections"):
		return ErrCodeBadConnection
	case strings.HasPrefix(field, "nodes.") && strings.HasSuffix(field, ".type"):
		return ErrCodeUnknownType
	case strings.HasPrefix(field, "nodes.") && strings.HasSuffix(field, ".parent"):
		return ErrCodeBadParent
	case strings.HasPrefix(field, "nodes"):
		return ErrCodeBadNode
	default:
		return ErrCodeGeneric
	}
}

// BackendSource says where a command reads the scene from. Scene wins over
// DB when both are set.
type BackendSource struct {
	DB    string
	Scene string
}

// openBackend opens the SQLite database or compiles the scene into
// memory. The returned close function is never nil.
func openBackend(ctx context.Context, src BackendSource) (scene.Backend, func() error, error) {
	if src.Scene != "" {
		sc, err := LoadScene(src.Scene)
		if err != nil {
			return nil, nil, err
		}
		st, err := memscene.New(sc)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
		}
		return st, func() error { return nil }, nil
	}

	if _, err := os.Stat(src.DB); os.IsNotExist(err) {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s (run 'minq load' first)", src.DB)}
	}
	st, err := store.Open(src.DB)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeOpenFailed, Message: err.Error()}
	}
	hash, err := st.SceneHash(ctx)
	if err != nil {
		st.Close()
		return nil, nil, &LoadError{Code: ErrCodeOpenFailed, Message: err.Error()}
	}
	if hash == "" {
		st.Close()
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database %s holds no scene (run 'minq load' first)", src.DB)}
	}
	return st, st.Close, nil
}

// loadErrorParts splits err into a code and message for output.
func loadErrorParts(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
		return loadErr.Code, msg
	}
	return ErrCodeGeneric, err.Error()
}
