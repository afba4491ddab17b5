package parser

// Package parser implements the gobeat source parser.
//
// The parser is hand-written: a Pike-style lexer feeds a Pratt
// ("Top Down Operator Precedence") parser that builds the immutable
// expression tree defined in package types. Errors carry a code and the
// byte position of the offending token.
//
// # Syntax
//
// A source is an optional list of directives followed by one integer
// expression over the time variable t:
//
//	#resolution 8
//	#rate 11025
//	(t*5 & t>>7) | (t*3 & t>>10)
//
// Operators follow C precedence: | < ^ < & < shifts < + - < * / %.
// Prefix operators are - ~ saw sin square tri, and a sequencer
// [a, b, c]p picks item p modulo the number of items.
//
// # Example
//
//	prog, err := parser.Parse("t*(t>>8|t>>9)&46&t>>8")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ast := prog.AST()

import (
	"github.com/sandrolain/gobeat/pkg/types"
)

// Parse parses a gobeat source and returns the resulting Program.
//
// If parsing fails, it returns a *types.Error with position information.
//
// Example:
//
//	prog, err := parser.Parse("t>>4")
//	if err != nil {
//	    var perr *types.Error
//	    if errors.As(err, &perr) {
//	        fmt.Printf("Parse error at position %d\n", perr.Position)
//	    }
//	    return
//	}
func Parse(source string, opts ...CompileOption) (*types.Program, error) {
	p := NewParser(source, opts...)
	return p.Parse()
}

// ParseExpr parses a bare expression. Directives are rejected.
func ParseExpr(source string, opts ...CompileOption) (types.Expr, error) {
	p := NewParser(source, opts...)
	return p.ParseExpr()
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level program tables.
func MustParse(source string) *types.Program {
	prog, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return prog
}

// CompileOption configures parsing behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits nesting depth to prevent stack overflow.
	MaxDepth int
}

// DefaultMaxDepth is the nesting limit used when none is configured.
const DefaultMaxDepth = 256

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
