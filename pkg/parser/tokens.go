package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals and names
	TokenNumber     // 42, 0xFF, 0b1010
	TokenTime       // t
	TokenResolution // r
	TokenWave       // saw, sin, square, tri
	TokenName       // any other identifier
	TokenDirective  // #resolution, #start, #rate

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenComma        // ,

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenMod   // %

	// Bitwise operators
	TokenOr         // |
	TokenAnd        // &
	TokenXor        // ^
	TokenComplement // ~
	TokenShiftLeft  // <<
	TokenShiftRight // >>
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenNumber:
		return "(number)"
	case TokenTime:
		return "t"
	case TokenResolution:
		return "r"
	case TokenWave:
		return "(waveform)"
	case TokenName:
		return "(name)"
	case TokenDirective:
		return "(directive)"
	case TokenBracketOpen:
		return "["
	case TokenBracketClose:
		return "]"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenComma:
		return ","
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenDiv:
		return "/"
	case TokenMod:
		return "%"
	case TokenOr:
		return "|"
	case TokenAnd:
		return "&"
	case TokenXor:
		return "^"
	case TokenComplement:
		return "~"
	case TokenShiftLeft:
		return "<<"
	case TokenShiftRight:
		return ">>"
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token in a gobeat source.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token
	Position int       // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	',': TokenComma,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
	'%': TokenMod,
	'|': TokenOr,
	'&': TokenAnd,
	'^': TokenXor,
	'~': TokenComplement,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'<': {{'<', TokenShiftLeft}},
	'>': {{'>', TokenShiftRight}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// lookupKeyword returns the token type for a reserved name.
// Returns TokenName if the string is not reserved.
func lookupKeyword(s string) TokenType {
	switch s {
	case "t":
		return TokenTime
	case "r":
		return TokenResolution
	case "saw", "sin", "square", "tri":
		return TokenWave
	default:
		return TokenName
	}
}
