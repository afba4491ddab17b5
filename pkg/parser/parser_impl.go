package parser

import (
	"fmt"
	"strconv"

	"github.com/sandrolain/gobeat/pkg/types"
)

// Parser implements a recursive descent parser for gobeat sources.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	depth   int
	opts    CompileOptions
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxDepth <= 0 {
		options.MaxDepth = DefaultMaxDepth
	}

	p := &Parser{
		lexer: NewLexer(input),
		opts:  options,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the directives and the expression of a full source.
func (p *Parser) Parse() (*types.Program, error) {
	dirs := types.NewProgram(nil, p.lexer.input)

	for p.current.Type == TokenDirective {
		if err := p.parseDirective(dirs); err != nil {
			return nil, err
		}
	}

	ast, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}

	prog := types.NewProgram(ast, p.lexer.input)
	prog.Resolution, prog.Start, prog.Rate = dirs.Resolution, dirs.Start, dirs.Rate
	return prog, nil
}

// ParseExpr parses a single expression up to the end of the input.
func (p *Parser) ParseExpr() (types.Expr, error) {
	switch p.current.Type {
	case TokenEOF:
		return nil, p.error(types.ErrUnexpectedEnd, "Empty expression")
	case TokenDirective:
		return nil, p.error(types.ErrSyntaxError, "Directives must precede the expression")
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if p.current.Type != TokenEOF {
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.current.Value))
	}

	return node, nil
}

// Operator precedence table (binding power)
// Higher values bind more tightly
var precedence = map[TokenType]int{
	TokenOr:         10, // |
	TokenXor:        20, // ^
	TokenAnd:        30, // &
	TokenShiftLeft:  40, // <<
	TokenShiftRight: 40, // >>
	TokenPlus:       50, // +
	TokenMinus:      50, // -
	TokenMult:       60, // *
	TokenDiv:        60, // /
	TokenMod:        60, // %
}

var binaryOps = map[TokenType]types.BinaryOp{
	TokenOr:         types.OpOr,
	TokenXor:        types.OpXor,
	TokenAnd:        types.OpAnd,
	TokenShiftLeft:  types.OpLeftShift,
	TokenShiftRight: types.OpRightShift,
	TokenPlus:       types.OpAdd,
	TokenMinus:      types.OpSubtract,
	TokenMult:       types.OpMultiply,
	TokenDiv:        types.OpDivide,
	TokenMod:        types.OpModulus,
}

var waveOps = map[string]types.UnaryOp{
	"saw":    types.OpSaw,
	"sin":    types.OpSine,
	"square": types.OpSquare,
	"tri":    types.OpTriangle,
}

// getPrecedence returns the precedence of a token type.
func (p *Parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return 0
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		if p.current.Type == TokenEOF {
			return p.error(types.ErrUnexpectedEnd, fmt.Sprintf("Expected %s but reached end of input", tt.String()))
		}
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", tt.String(), p.describe(p.current)))
	}
	p.advance()
	return nil
}

// error creates a parser error at the current token. Lexical errors take
// precedence since they explain why the token stream stopped.
func (p *Parser) error(code types.ErrorCode, message string) error {
	return p.errorAt(p.current, code, message)
}

func (p *Parser) errorAt(tok Token, code types.ErrorCode, message string) error {
	if tok.Type == TokenError {
		if err := p.lexer.Error(); err != nil {
			return err
		}
	}
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: tok.Position,
		Token:    tok.Value,
	}
}

func (p *Parser) describe(tok Token) string {
	if tok.Value != "" {
		return strconv.Quote(tok.Value)
	}
	return tok.Type.String()
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.opts.MaxDepth {
		return p.error(types.ErrNestingTooDeep, fmt.Sprintf("Expression nested deeper than %d levels", p.opts.MaxDepth))
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (types.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	// Parse prefix expression (nud - null denotation)
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseBinaryOp(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parseUnary parses prefix operators, sequencers and primaries.
func (p *Parser) parseUnary() (types.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	token := p.current

	switch token.Type {
	case TokenMinus:
		return p.parsePrefixOp(types.OpNegate)
	case TokenComplement:
		return p.parsePrefixOp(types.OpComplement)
	case TokenWave:
		return p.parsePrefixOp(waveOps[token.Value])
	case TokenBracketOpen:
		return p.parseSequencer()
	case TokenNumber:
		return p.parseNumber()
	case TokenTime:
		p.advance()
		return types.Identity{}, nil
	case TokenResolution:
		p.advance()
		return types.Resolution{}, nil
	case TokenParenOpen:
		return p.parseGrouping()
	case TokenName:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unknown identifier: %s", token.Value))
	case TokenEOF:
		return nil, p.error(types.ErrUnexpectedEnd, "Unexpected end of expression")
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.describe(token)))
	}
}

// parsePrefixOp parses a prefix operator applied to a unary operand.
func (p *Parser) parsePrefixOp(op types.UnaryOp) (types.Expr, error) {
	p.advance() // Skip operator

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return types.NewUnary(op, operand), nil
}

// parseNumber parses an integer literal. Literals are unsigned 32-bit values
// reinterpreted as int32, so 0xFFFFFFFF is -1.
func (p *Parser) parseNumber() (types.Expr, error) {
	v, err := p.numberValue()
	if err != nil {
		return nil, err
	}
	p.advance()
	return types.NewConstant(int32(v)), nil
}

func (p *Parser) numberValue() (uint32, error) {
	lit := p.current.Value
	digits, base := lit, 10
	if len(lit) > 2 && lit[0] == '0' {
		switch lit[1] {
		case 'x', 'X':
			digits, base = lit[2:], 16
		case 'b', 'B':
			digits, base = lit[2:], 2
		}
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, p.error(types.ErrNumberOutOfRange, fmt.Sprintf("Number out of range: %s", lit))
	}
	return uint32(v), nil
}

// parseGrouping parses a parenthesized expression.
func (p *Parser) parseGrouping() (types.Expr, error) {
	p.advance() // Skip '('

	if p.current.Type == TokenParenClose {
		return nil, p.error(types.ErrSyntaxError, "Empty parentheses")
	}

	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseSequencer parses [a, b, ...]p. A trailing comma is allowed.
func (p *Parser) parseSequencer() (types.Expr, error) {
	open := p.current
	p.advance() // Skip '['

	var items []types.Expr
	for p.current.Type != TokenBracketClose {
		item, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		if p.current.Type != TokenComma {
			break
		}
		p.advance() // Skip ','
	}

	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, p.errorAt(open, types.ErrEmptySequencer, "Sequencer needs at least one item")
	}

	param, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return types.NewSequencer(items, param), nil
}

// parseBinaryOp parses a binary operator expression.
func (p *Parser) parseBinaryOp(left types.Expr) (types.Expr, error) {
	op := p.current
	prec := p.getPrecedence(op.Type)
	p.advance()

	// Parse the right-hand side with appropriate precedence
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}

	return types.NewBinary(binaryOps[op.Type], left, right), nil
}

// parseDirective parses one #name value line into prog.
func (p *Parser) parseDirective(prog *types.Program) error {
	dir := p.current
	switch dir.Value {
	case "resolution", "start", "rate":
	default:
		return p.error(types.ErrUnknownDirective, fmt.Sprintf("Unknown directive: #%s", dir.Value))
	}
	p.advance()

	negative := false
	if p.current.Type == TokenMinus {
		negative = true
		p.advance()
	}
	if p.current.Type != TokenNumber {
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected integer after #%s", dir.Value))
	}
	v, err := p.numberValue()
	if err != nil {
		return err
	}
	valueTok := p.current
	p.advance()

	invalid := func(msg string) error {
		return p.errorAt(valueTok, types.ErrInvalidDirective, fmt.Sprintf("#%s: %s", dir.Value, msg))
	}

	switch dir.Value {
	case "resolution":
		if negative || v < types.MinResolution || v > types.MaxResolution {
			return invalid(fmt.Sprintf("must be between %d and %d", types.MinResolution, types.MaxResolution))
		}
		prog.Resolution = int(v)
	case "start":
		start := int32(v)
		if negative {
			start = -start
		}
		prog.Start = start
	case "rate":
		if negative || v == 0 || v > 1<<20 {
			return invalid("must be a positive sample rate")
		}
		prog.Rate = int(v)
	}
	return nil
}
