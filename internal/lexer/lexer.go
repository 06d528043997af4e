package lexer

import (
	"iter"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/lox/internal/token"
)

const (
	MsgUnterminatedString  = "Unterminated string."
	MsgUnexpectedCharacter = "Unexpected character."
)

// Lexer produces tokens on demand from a source string. It never rewinds:
// each NextToken call resumes where the previous one stopped.
type Lexer struct {
	input        string
	start        int  // start of the token being scanned
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination, 0 at end of input
	line         int  // current line number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar advances past the current char. The line counter moves when a
// newline is consumed, so it is bumped exactly once per newline.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// match consumes the current char when it equals expected.
func (l *Lexer) match(expected rune) bool {
	if l.atEnd() || l.ch != expected {
		return false
	}
	l.readChar()
	return true
}

// NextToken scans and returns the next token. At end of input it returns an
// EOF token, and keeps returning one on every later call.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	l.start = l.position

	if l.atEnd() {
		return token.Token{Type: token.EOF, Lexeme: "", Line: l.line}
	}

	ch := l.ch
	l.readChar()

	switch ch {
	case '(':
		return l.makeToken(token.LPAREN)
	case ')':
		return l.makeToken(token.RPAREN)
	case '{':
		return l.makeToken(token.LBRACE)
	case '}':
		return l.makeToken(token.RBRACE)
	case ',':
		return l.makeToken(token.COMMA)
	case '.':
		return l.makeToken(token.DOT)
	case ';':
		return l.makeToken(token.SEMICOLON)
	case '-':
		return l.makeToken(token.MINUS)
	case '+':
		return l.makeToken(token.PLUS)
	case '*':
		return l.makeToken(token.ASTERISK)
	case '/':
		return l.makeToken(token.SLASH)
	case '!':
		if l.match('=') {
			return l.makeToken(token.NOT_EQ)
		}
		return l.makeToken(token.BANG)
	case '=':
		if l.match('=') {
			return l.makeToken(token.EQ)
		}
		return l.makeToken(token.ASSIGN)
	case '<':
		if l.match('=') {
			return l.makeToken(token.LTE)
		}
		return l.makeToken(token.LT)
	case '>':
		if l.match('=') {
			return l.makeToken(token.GTE)
		}
		return l.makeToken(token.GT)
	case '"':
		return l.readString()
	}

	if isDigit(ch) {
		return l.readNumber()
	}
	if isLetter(ch) {
		return l.readIdentifier()
	}
	return l.errorToken(MsgUnexpectedCharacter)
}

// Tokens yields tokens up to and including the first EOF.
func (l *Lexer) Tokens() iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for {
			tok := l.NextToken()
			if !yield(tok) || tok.Type == token.EOF {
				return
			}
		}
	}
}

func (l *Lexer) makeToken(tokenType token.TokenType) token.Token {
	return token.Token{
		Type:   tokenType,
		Lexeme: l.input[l.start:l.position],
		Line:   l.line,
	}
}

func (l *Lexer) errorToken(message string) token.Token {
	return token.Token{Type: token.ERROR, Lexeme: message, Line: l.line}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '/':
			if l.peekChar() != '/' {
				return
			}
			for l.ch != '\n' && !l.atEnd() {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readString scans the rest of a string literal; the opening quote has
// already been consumed. The lexeme keeps both quotes.
func (l *Lexer) readString() token.Token {
	for l.ch != '"' && !l.atEnd() {
		l.readChar()
	}

	if l.atEnd() {
		return l.errorToken(MsgUnterminatedString)
	}

	l.readChar() // closing quote
	return l.makeToken(token.STRING)
}

func (l *Lexer) readNumber() token.Token {
	for isDigit(l.ch) {
		l.readChar()
	}

	// A fractional part needs at least one digit after the dot
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.makeToken(token.NUMBER)
}

func (l *Lexer) readIdentifier() token.Token {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.makeToken(l.identifierType())
}

// identifierType classifies the current lexeme by its first character and
// then an exact match on the remaining suffix.
func (l *Lexer) identifierType() token.TokenType {
	lexeme := l.input[l.start:l.position]

	switch lexeme[0] {
	case 'a':
		return checkKeyword(lexeme, 1, "nd", token.AND)
	case 'c':
		return checkKeyword(lexeme, 1, "lass", token.CLASS)
	case 'e':
		return checkKeyword(lexeme, 1, "lse", token.ELSE)
	case 'f':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'a':
				return checkKeyword(lexeme, 2, "lse", token.FALSE)
			case 'o':
				return checkKeyword(lexeme, 2, "r", token.FOR)
			case 'u':
				return checkKeyword(lexeme, 2, "n", token.FUN)
			}
		}
	case 'i':
		return checkKeyword(lexeme, 1, "f", token.IF)
	case 'n':
		return checkKeyword(lexeme, 1, "il", token.NIL)
	case 'o':
		return checkKeyword(lexeme, 1, "r", token.OR)
	case 'p':
		return checkKeyword(lexeme, 1, "rint", token.PRINT)
	case 'r':
		return checkKeyword(lexeme, 1, "eturn", token.RETURN)
	case 's':
		return checkKeyword(lexeme, 1, "uper", token.SUPER)
	case 't':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'h':
				return checkKeyword(lexeme, 2, "is", token.THIS)
			case 'r':
				return checkKeyword(lexeme, 2, "ue", token.TRUE)
			}
		}
	case 'v':
		return checkKeyword(lexeme, 1, "ar", token.VAR)
	case 'w':
		return checkKeyword(lexeme, 1, "hile", token.WHILE)
	}
	return token.IDENT
}

func checkKeyword(lexeme string, start int, rest string, keyword token.TokenType) token.TokenType {
	if len(lexeme) == start+len(rest) && lexeme[start:] == rest {
		return keyword
	}
	return token.IDENT
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
