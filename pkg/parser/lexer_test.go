package parser_test

import (
	"errors"
	"testing"

	"github.com/sandrolain/gobeat/pkg/parser"
	"github.com/sandrolain/gobeat/pkg/types"
)

type lexerTestCase struct {
	name      string
	input     string
	expected  []parser.Token
	expectErr types.ErrorCode
}

func TestLexerWhitespace(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:  "no whitespace",
			input: "t",
			expected: []parser.Token{
				{Type: parser.TokenTime, Value: "t", Position: 0},
			},
		},
		{
			name:  "leading whitespace",
			input: "   t",
			expected: []parser.Token{
				{Type: parser.TokenTime, Value: "t", Position: 3},
			},
		},
		{
			name:  "mixed whitespace",
			input: " \t\n\r\vt",
			expected: []parser.Token{
				{Type: parser.TokenTime, Value: "t", Position: 5},
			},
		},
	}

	runLexerTests(t, tests)
}

func TestLexerNumbers(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:  "decimal",
			input: "42",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "42", Position: 0},
			},
		},
		{
			name:  "hex",
			input: "0xFf",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "0xFf", Position: 0},
			},
		},
		{
			name:  "binary",
			input: "0b1010",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "0b1010", Position: 0},
			},
		},
		{
			name:  "zero",
			input: "0",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "0", Position: 0},
			},
		},
		{
			name:      "hex without digits",
			input:     "0x",
			expectErr: types.ErrSyntaxError,
		},
		{
			name:      "binary with bad digit",
			input:     "0b2",
			expectErr: types.ErrSyntaxError,
		},
		{
			name:      "number running into name",
			input:     "12ab",
			expectErr: types.ErrSyntaxError,
		},
	}

	runLexerTests(t, tests)
}

func TestLexerOperators(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:  "arithmetic",
			input: "+-*/%",
			expected: []parser.Token{
				{Type: parser.TokenPlus, Value: "+", Position: 0},
				{Type: parser.TokenMinus, Value: "-", Position: 1},
				{Type: parser.TokenMult, Value: "*", Position: 2},
				{Type: parser.TokenDiv, Value: "/", Position: 3},
				{Type: parser.TokenMod, Value: "%", Position: 4},
			},
		},
		{
			name:  "bitwise",
			input: "| & ^ ~ << >>",
			expected: []parser.Token{
				{Type: parser.TokenOr, Value: "|", Position: 0},
				{Type: parser.TokenAnd, Value: "&", Position: 2},
				{Type: parser.TokenXor, Value: "^", Position: 4},
				{Type: parser.TokenComplement, Value: "~", Position: 6},
				{Type: parser.TokenShiftLeft, Value: "<<", Position: 8},
				{Type: parser.TokenShiftRight, Value: ">>", Position: 11},
			},
		},
		{
			name:  "sequencer",
			input: "[1,2]t",
			expected: []parser.Token{
				{Type: parser.TokenBracketOpen, Value: "[", Position: 0},
				{Type: parser.TokenNumber, Value: "1", Position: 1},
				{Type: parser.TokenComma, Value: ",", Position: 2},
				{Type: parser.TokenNumber, Value: "2", Position: 3},
				{Type: parser.TokenBracketClose, Value: "]", Position: 4},
				{Type: parser.TokenTime, Value: "t", Position: 5},
			},
		},
		{
			name:      "lone less-than",
			input:     "t < 2",
			expectErr: types.ErrUnexpectedCharacter,
		},
		{
			name:      "unknown character",
			input:     "t $ 2",
			expectErr: types.ErrUnexpectedCharacter,
		},
	}

	runLexerTests(t, tests)
}

func TestLexerKeywords(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:  "time and resolution",
			input: "t r",
			expected: []parser.Token{
				{Type: parser.TokenTime, Value: "t", Position: 0},
				{Type: parser.TokenResolution, Value: "r", Position: 2},
			},
		},
		{
			name:  "waveforms",
			input: "saw sin square tri",
			expected: []parser.Token{
				{Type: parser.TokenWave, Value: "saw", Position: 0},
				{Type: parser.TokenWave, Value: "sin", Position: 4},
				{Type: parser.TokenWave, Value: "square", Position: 8},
				{Type: parser.TokenWave, Value: "tri", Position: 15},
			},
		},
		{
			name:  "plain names",
			input: "time sine",
			expected: []parser.Token{
				{Type: parser.TokenName, Value: "time", Position: 0},
				{Type: parser.TokenName, Value: "sine", Position: 5},
			},
		},
		{
			name:  "directive",
			input: "#rate 8000",
			expected: []parser.Token{
				{Type: parser.TokenDirective, Value: "rate", Position: 1},
				{Type: parser.TokenNumber, Value: "8000", Position: 6},
			},
		},
		{
			name:      "directive without name",
			input:     "# rate",
			expectErr: types.ErrUnknownDirective,
		},
	}

	runLexerTests(t, tests)
}

func TestLexerComments(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:  "block comment",
			input: "/* melody */ t",
			expected: []parser.Token{
				{Type: parser.TokenTime, Value: "t", Position: 13},
			},
		},
		{
			name:  "line comment",
			input: "// bass\nt",
			expected: []parser.Token{
				{Type: parser.TokenTime, Value: "t", Position: 8},
			},
		},
		{
			name:  "division is not a comment",
			input: "t/2",
			expected: []parser.Token{
				{Type: parser.TokenTime, Value: "t", Position: 0},
				{Type: parser.TokenDiv, Value: "/", Position: 1},
				{Type: parser.TokenNumber, Value: "2", Position: 2},
			},
		},
		{
			name:      "unclosed comment",
			input:     "t /* forever",
			expectErr: types.ErrCommentNotClosed,
		},
	}

	runLexerTests(t, tests)
}

func runLexerTests(t *testing.T, tests []lexerTestCase) {
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lexer := parser.NewLexer(test.input)
			tokens := []parser.Token{}

			for {
				tok := lexer.Next()
				if tok.Type == parser.TokenEOF {
					break
				}
				if tok.Type == parser.TokenError {
					if test.expectErr == "" {
						t.Fatalf("unexpected error: %v", lexer.Error())
					}
					var err *types.Error
					if !errors.As(lexer.Error(), &err) {
						t.Fatalf("expected *types.Error, got %v", lexer.Error())
					}
					if err.Code != test.expectErr {
						t.Errorf("error code = %s, want %s", err.Code, test.expectErr)
					}
					return
				}
				tokens = append(tokens, tok)
			}

			if test.expectErr != "" {
				t.Fatalf("expected error %s but got none", test.expectErr)
			}

			if len(tokens) != len(test.expected) {
				t.Fatalf("got %d tokens, want %d\nGot: %v\nWant: %v",
					len(tokens), len(test.expected), tokens, test.expected)
			}

			for i, tok := range tokens {
				exp := test.expected[i]
				if tok.Type != exp.Type {
					t.Errorf("token %d: type = %v, want %v", i, tok.Type, exp.Type)
				}
				if tok.Value != exp.Value {
					t.Errorf("token %d: value = %q, want %q", i, tok.Value, exp.Value)
				}
				if tok.Position != exp.Position {
					t.Errorf("token %d: position = %d, want %d", i, tok.Position, exp.Position)
				}
			}
		})
	}
}
