// Package types defines the core data model of gobeat.
//
// This package contains type definitions for:
//   - Expr: the immutable integer expression AST
//   - Program: a parsed source file (AST plus directives)
//   - Error: structured errors with codes
package types

// Defaults applied when a source file has no directive for the setting.
const (
	DefaultResolution = 8
	DefaultStart      = 0
	DefaultRate       = 8000
)

// Resolution bounds, in bits.
const (
	MinResolution = 1
	MaxResolution = 32
)

// Program is a parsed gobeat source.
//
// A Program is immutable once returned by the parser and is safe to share
// between goroutines and compilations.
type Program struct {
	ast    Expr
	source string

	// Resolution is the output bit depth (#resolution).
	Resolution int
	// Start is the time offset of the first sample (#start).
	Start int32
	// Rate is the playback sample rate in Hz (#rate).
	Rate int
}

// NewProgram creates a Program with default directives.
func NewProgram(ast Expr, source string) *Program {
	return &Program{
		ast:        ast,
		source:     source,
		Resolution: DefaultResolution,
		Start:      DefaultStart,
		Rate:       DefaultRate,
	}
}

// AST returns the expression tree.
func (p *Program) AST() Expr {
	return p.ast
}

// Source returns the original source text.
func (p *Program) Source() string {
	return p.source
}

// String returns the original source text.
func (p *Program) String() string {
	return p.source
}
