package vm

import (
	"errors"
	"strings"

	"github.com/funvibe/lox/internal/diagnostics"
	"github.com/funvibe/lox/internal/token"
)

// InterpretResult is the outcome of one Interpret call.
type InterpretResult int

const (
	INTERPRET_OK InterpretResult = iota
	INTERPRET_COMPILE_ERROR
	INTERPRET_RUNTIME_ERROR
)

func (r InterpretResult) String() string {
	switch r {
	case INTERPRET_OK:
		return "ok"
	case INTERPRET_COMPILE_ERROR:
		return "compile error"
	case INTERPRET_RUNTIME_ERROR:
		return "runtime error"
	}
	return "unknown"
}

// CompileError reports that source did not compile. Nothing was executed.
type CompileError struct {
	Diagnostics []*diagnostics.DiagnosticError
}

func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// RuntimeError reports a fatal error raised while executing a chunk.
type RuntimeError struct {
	*diagnostics.DiagnosticError
}

func (e *RuntimeError) Unwrap() error {
	return e.DiagnosticError
}

// ResultOf classifies an error returned by Interpret or RunChunk.
func ResultOf(err error) InterpretResult {
	if err == nil {
		return INTERPRET_OK
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return INTERPRET_COMPILE_ERROR
	}
	return INTERPRET_RUNTIME_ERROR
}

var (
	errStackUnderflow       = errors.New("stack underflow")
	errInvalidConstantIndex = errors.New("invalid constant index")
)

// emptyReturnError is raised when OP_RETURN finds nothing to return. The
// compiler never emits such code, so it is classified as a compile error.
func emptyReturnError(line int) *CompileError {
	return &CompileError{Diagnostics: []*diagnostics.DiagnosticError{
		diagnostics.NewError(
			diagnostics.ErrR003,
			token.Token{Type: token.ERROR, Line: line},
			"Return with an empty stack.",
		),
	}}
}
