package parser

import (
	"unicode/utf8"

	"github.com/sandrolain/gobeat/pkg/types"
)

const eof = -1

// Lexer converts a gobeat source into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	// Check if skipWhitespace encountered an error (e.g., unclosed comment)
	if l.err != nil {
		return l.errorToken()
	}

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// Check for two-character symbols first (<<, >>)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
		return l.error(types.ErrUnexpectedCharacter, "Unexpected character "+string(ch))
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	// Number literals
	if isDigit(ch) {
		l.backup()
		return l.scanNumber()
	}

	// Directives
	if ch == '#' {
		l.ignore()
		if !l.acceptAll(isNameRune) {
			return l.error(types.ErrUnknownDirective, "Expected directive name after #")
		}
		return l.newToken(TokenDirective)
	}

	// Names and keywords
	if isNameStart(ch) {
		l.acceptAll(isNameRune)
		t := l.newToken(TokenName)
		t.Type = lookupKeyword(t.Value)
		return t
	}

	return l.error(types.ErrUnexpectedCharacter, "Unexpected character "+string(ch))
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanNumber reads an integer literal from the current position.
// Format: [0-9]+ | 0[xX][0-9a-fA-F]+ | 0[bB][01]+
// The value itself is checked by the parser.
func (l *Lexer) scanNumber() Token {
	if l.acceptRune('0') {
		if l.acceptRunes2('x', 'X') {
			if !l.acceptAll(isHexDigit) {
				return l.error(types.ErrSyntaxError, "Expected hexadecimal digits")
			}
			return l.checkNumberEnd()
		}
		if l.acceptRunes2('b', 'B') {
			if !l.acceptAll(isBinaryDigit) {
				return l.error(types.ErrSyntaxError, "Expected binary digits")
			}
			return l.checkNumberEnd()
		}
	}
	l.acceptAll(isDigit)
	return l.checkNumberEnd()
}

// checkNumberEnd rejects literals running into names, such as 12ab.
func (l *Lexer) checkNumberEnd() Token {
	if r := l.nextRune(); r != eof {
		l.backup()
		if isNameRune(r) {
			l.acceptAll(isNameRune)
			return l.error(types.ErrSyntaxError, "Malformed number")
		}
	}
	return l.newToken(TokenNumber)
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = &types.Error{
		Code:     code,
		Message:  message,
		Position: t.Position,
		Token:    t.Value,
	}
	return t
}

func (l *Lexer) errorToken() Token {
	pos := l.current
	if e, ok := l.err.(*types.Error); ok {
		pos = e.Position
	}
	return Token{Type: TokenError, Position: pos}
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) skipWhitespace() {
	for {
		// If an error occurred (e.g., unclosed comment), stop
		if l.err != nil {
			return
		}

		// Skip whitespace
		l.acceptAll(isWhitespace)
		l.ignore()

		if !l.acceptRune('/') {
			return
		}
		switch {
		case l.acceptRune('*'):
			// Block comment: scan until */
			for {
				ch := l.nextRune()
				if ch == eof {
					l.err = &types.Error{
						Code:     types.ErrCommentNotClosed,
						Message:  "Unclosed comment",
						Position: l.start,
					}
					return
				}
				if ch == '*' && l.acceptRune('/') {
					break
				}
			}
			l.ignore()
		case l.acceptRune('/'):
			// Line comment: scan until newline
			for {
				ch := l.nextRune()
				if ch == eof || ch == '\n' {
					break
				}
			}
			l.ignore()
		default:
			// Division operator, not a comment
			l.backup()
			return
		}
	}
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isBinaryDigit(r rune) bool {
	return r == '0' || r == '1'
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameRune(r rune) bool {
	return isNameStart(r) || isDigit(r)
}
