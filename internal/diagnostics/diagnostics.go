// Package diagnostics defines the error values reported by the compiler and
// the VM, and prints them for humans.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/lox/internal/token"
)

// ErrorCode identifies a class of diagnostic.
type ErrorCode string

const (
	// Lexical errors
	ErrL001 ErrorCode = "L001" // unterminated string
	ErrL002 ErrorCode = "L002" // unexpected character

	// Syntax errors
	ErrP001 ErrorCode = "P001" // expression expected
	ErrP002 ErrorCode = "P002" // expected token missing
	ErrP003 ErrorCode = "P003" // trailing input after the expression

	// Runtime errors
	ErrR001 ErrorCode = "R001" // operands must be numbers
	ErrR002 ErrorCode = "R002" // operands must be two numbers or two strings
	ErrR003 ErrorCode = "R003" // return with an empty stack
	ErrR004 ErrorCode = "R004" // stack underflow in a hand-built or decoded chunk
	ErrR005 ErrorCode = "R005" // constant index out of range
)

// Phase tells whether a diagnostic was raised before or during execution.
type Phase int

const (
	PhaseCompile Phase = iota
	PhaseRuntime
)

// DiagnosticError is a single compile-time or runtime problem.
type DiagnosticError struct {
	Code    ErrorCode
	Phase   Phase
	Token   token.Token // offending token; zero for runtime errors
	Line    int
	Message string
}

// NewError creates a compile-time diagnostic anchored at tok.
func NewError(code ErrorCode, tok token.Token, message string) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Phase:   PhaseCompile,
		Token:   tok,
		Line:    tok.Line,
		Message: message,
	}
}

// NewRuntimeError creates a runtime diagnostic for the given source line.
func NewRuntimeError(code ErrorCode, line int, message string) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Phase:   PhaseRuntime,
		Line:    line,
		Message: message,
	}
}

// Where describes the location of a compile error relative to its token:
// " at end" for EOF, " at 'lexeme'" for ordinary tokens and nothing for
// lexer error tokens, whose lexeme is the message itself.
func (e *DiagnosticError) Where() string {
	switch e.Token.Type {
	case token.EOF:
		return " at end"
	case token.ERROR:
		return ""
	default:
		return fmt.Sprintf(" at '%s'", e.Token.Lexeme)
	}
}

func (e *DiagnosticError) Error() string {
	if e.Phase == PhaseRuntime {
		return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
	}
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where(), e.Message)
}
