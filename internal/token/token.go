// Package token defines the lexical tokens produced by the lexer.
package token

// TokenType identifies the kind of a token.
type TokenType int

const (
	// Single-character tokens
	LPAREN TokenType = iota // (
	RPAREN                  // )
	LBRACE                  // {
	RBRACE                  // }
	COMMA                   // ,
	DOT                     // .
	MINUS                   // -
	PLUS                    // +
	SEMICOLON               // ;
	SLASH                   // /
	ASTERISK                // *

	// One or two character tokens
	BANG    // !
	NOT_EQ  // !=
	ASSIGN  // =
	EQ      // ==
	GT      // >
	GTE     // >=
	LT      // <
	LTE     // <=

	// Literals
	IDENT
	STRING
	NUMBER

	// Keywords
	AND
	CLASS
	ELSE
	FALSE
	FOR
	FUN
	IF
	NIL
	OR
	PRINT
	RETURN
	SUPER
	THIS
	TRUE
	VAR
	WHILE

	// ERROR tokens carry the lexer's message as their lexeme
	ERROR
	EOF

	// NumTypes is the number of token types; it sizes per-type lookup tables.
	NumTypes
)

var typeNames = [NumTypes]string{
	LPAREN:    "LPAREN",
	RPAREN:    "RPAREN",
	LBRACE:    "LBRACE",
	RBRACE:    "RBRACE",
	COMMA:     "COMMA",
	DOT:       "DOT",
	MINUS:     "MINUS",
	PLUS:      "PLUS",
	SEMICOLON: "SEMICOLON",
	SLASH:     "SLASH",
	ASTERISK:  "ASTERISK",
	BANG:      "BANG",
	NOT_EQ:    "NOT_EQ",
	ASSIGN:    "ASSIGN",
	EQ:        "EQ",
	GT:        "GT",
	GTE:       "GTE",
	LT:        "LT",
	LTE:       "LTE",
	IDENT:     "IDENT",
	STRING:    "STRING",
	NUMBER:    "NUMBER",
	AND:       "AND",
	CLASS:     "CLASS",
	ELSE:      "ELSE",
	FALSE:     "FALSE",
	FOR:       "FOR",
	FUN:       "FUN",
	IF:        "IF",
	NIL:       "NIL",
	OR:        "OR",
	PRINT:     "PRINT",
	RETURN:    "RETURN",
	SUPER:     "SUPER",
	THIS:      "THIS",
	TRUE:      "TRUE",
	VAR:       "VAR",
	WHILE:     "WHILE",
	ERROR:     "ERROR",
	EOF:       "EOF",
}

func (t TokenType) String() string {
	if t >= 0 && t < NumTypes {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// Token is a single lexical item. Lexeme is the exact source slice, or the
// diagnostic message for ERROR tokens.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= AND && t <= WHILE
}
