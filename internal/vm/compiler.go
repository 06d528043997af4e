package vm

import (
	"errors"
	"strconv"

	"github.com/funvibe/lox/internal/diagnostics"
	"github.com/funvibe/lox/internal/lexer"
	"github.com/funvibe/lox/internal/token"
)

// Precedence is the binding strength of an operator. Ordinal order decides
// when parsePrecedence stops consuming infix operators.
type Precedence int

const (
	PREC_NONE       Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * /
	PREC_UNARY                 // ! -
	PREC_CALL                  // . ()
	PREC_PRIMARY
)

type parseFn func(c *Compiler)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is indexed by token type. Types without an entry have no handlers
// and PREC_NONE. It is filled in init because the handlers reach back into
// the table through parsePrecedence.
var rules [token.NumTypes]parseRule

func init() {
	rules = [token.NumTypes]parseRule{
		token.LPAREN:   {prefix: (*Compiler).grouping},
		token.MINUS:    {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PREC_TERM},
		token.PLUS:     {infix: (*Compiler).binary, precedence: PREC_TERM},
		token.SLASH:    {infix: (*Compiler).binary, precedence: PREC_FACTOR},
		token.ASTERISK: {infix: (*Compiler).binary, precedence: PREC_FACTOR},
		token.BANG:     {prefix: (*Compiler).unary},
		token.NOT_EQ:   {infix: (*Compiler).binary, precedence: PREC_EQUALITY},
		token.EQ:       {infix: (*Compiler).binary, precedence: PREC_EQUALITY},
		token.GT:       {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.GTE:      {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.LT:       {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.LTE:      {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.STRING:   {prefix: (*Compiler).stringLiteral},
		token.NUMBER:   {prefix: (*Compiler).number},
		token.FALSE:    {prefix: (*Compiler).literal},
		token.NIL:      {prefix: (*Compiler).literal},
		token.TRUE:     {prefix: (*Compiler).literal},
	}
}

func getRule(t token.TokenType) *parseRule {
	return &rules[t]
}

// Compiler is a single-pass Pratt parser that emits bytecode straight into
// a chunk while it reads tokens. It holds all parser state: the token
// window, the error flags and the diagnostics collected so far.
type Compiler struct {
	lexer *lexer.Lexer
	chunk *Chunk

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []*diagnostics.DiagnosticError
}

// NewCompiler creates a compiler that reads source and writes into chunk.
func NewCompiler(source string, chunk *Chunk) *Compiler {
	return &Compiler{
		lexer: lexer.New(source),
		chunk: chunk,
	}
}

// Compile parses one expression followed by end of input and terminates the
// chunk with OP_RETURN. It reports true only when no error was recorded.
// On false the chunk may be partially written and must not be executed.
func (c *Compiler) Compile() bool {
	c.advance()
	c.expression()
	c.consume(token.EOF, diagnostics.ErrP003, "Expect end of expression.")
	c.endCompiler()
	return !c.hadError
}

// Errors returns the diagnostics recorded during Compile. With no
// synchronization points, panic mode keeps this to the first error.
func (c *Compiler) Errors() []*diagnostics.DiagnosticError {
	return c.errors
}

// Compile compiles source into chunk, returning a *CompileError carrying the
// diagnostics when compilation fails.
func Compile(source string, chunk *Chunk) error {
	c := NewCompiler(source, chunk)
	if !c.Compile() {
		return &CompileError{Diagnostics: c.Errors()}
	}
	return nil
}

// Token window

func (c *Compiler) advance() {
	c.previous = c.current

	for {
		c.current = c.lexer.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(lexerErrorCode(c.current.Lexeme), c.current.Lexeme)
	}
}

func (c *Compiler) consume(t token.TokenType, code diagnostics.ErrorCode, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(code, message)
}

// Emission

func (c *Compiler) emitOp(op Opcode) {
	c.chunk.WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOps(ops ...Opcode) {
	for _, op := range ops {
		c.emitOp(op)
	}
}

func (c *Compiler) emitConstant(value Value) {
	c.chunk.WriteConstant(value, c.previous.Line)
}

func (c *Compiler) endCompiler() {
	c.emitOp(OP_RETURN)
}

// Grammar

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence parses an expression whose operators all bind at least as
// tightly as precedence.
func (c *Compiler) parsePrecedence(precedence Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious(diagnostics.ErrP001, "Expect expression.")
		return
	}
	prefix(c)

	for precedence <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c)
	}
}

func (c *Compiler) grouping() {
	c.expression()
	c.consume(token.RPAREN, diagnostics.ErrP002, "Expect ')' after expression.")
}

func (c *Compiler) unary() {
	operatorType := c.previous.Type

	c.parsePrecedence(PREC_UNARY)

	switch operatorType {
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	case token.BANG:
		c.emitOp(OP_NOT)
	}
}

// binary compiles the right operand one level above the operator's own
// precedence, which makes same-level operators fold to the left.
func (c *Compiler) binary() {
	operatorType := c.previous.Type
	rule := getRule(operatorType)
	c.parsePrecedence(rule.precedence + 1)

	switch operatorType {
	case token.NOT_EQ:
		c.emitOps(OP_EQUAL, OP_NOT)
	case token.EQ:
		c.emitOp(OP_EQUAL)
	case token.GT:
		c.emitOp(OP_GREATER)
	case token.GTE:
		c.emitOps(OP_LESS, OP_NOT)
	case token.LT:
		c.emitOp(OP_LESS)
	case token.LTE:
		c.emitOps(OP_GREATER, OP_NOT)
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.ASTERISK:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	}
}

func (c *Compiler) literal() {
	switch c.previous.Type {
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.NIL:
		c.emitOp(OP_NIL)
	case token.TRUE:
		c.emitOp(OP_TRUE)
	}
}

func (c *Compiler) number() {
	value, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		c.errorAtPrevious(diagnostics.ErrP001, "Invalid number literal.")
		return
	}
	// Out-of-range literals saturate to ±Inf, as IEEE arithmetic would
	c.emitConstant(NumberVal(value))
}

// stringLiteral stores the text between the quotes.
func (c *Compiler) stringLiteral() {
	lexeme := c.previous.Lexeme
	c.emitConstant(StringVal(lexeme[1 : len(lexeme)-1]))
}

// Error reporting

func (c *Compiler) errorAtCurrent(code diagnostics.ErrorCode, message string) {
	c.errorAt(c.current, code, message)
}

func (c *Compiler) errorAtPrevious(code diagnostics.ErrorCode, message string) {
	c.errorAt(c.previous, code, message)
}

// errorAt records a diagnostic unless the compiler is already in panic mode.
// There are no synchronization points in an expression, so once set panic
// mode lasts until the end of the compile.
func (c *Compiler) errorAt(tok token.Token, code diagnostics.ErrorCode, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	c.errors = append(c.errors, diagnostics.NewError(code, tok, message))
}

func lexerErrorCode(message string) diagnostics.ErrorCode {
	if message == lexer.MsgUnterminatedString {
		return diagnostics.ErrL001
	}
	return diagnostics.ErrL002
}
