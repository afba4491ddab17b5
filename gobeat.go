// Package gobeat compiles bytebeat-style integer expressions of time into
// sample-generating graphs.
//
// A gobeat program is an expression over the time variable t built from
// 32-bit wraparound arithmetic, bitwise operators, waveform generators and
// sequencers. The compiler lowers the expression tree into a shared DAG
// that evaluates a whole window of samples per call, folding constant
// sub-expressions and computing repeated ones once.
//
// # Quick Start
//
//	// Render the first second of a program at 8 kHz
//	samples, err := gobeat.Render("t*(t>>5|t>>8)", 0, 8000)
//
//	// Compile once, pull windows many times
//	out, err := gobeat.Compile("#resolution 8\nt*(t>>8|t>>9)&46&t>>8",
//	    compiler.WithBufferSize(1024),
//	)
//	window := out.Root.Generate(out.Program.Start)
//
// # More Information
//
//   - Parser: github.com/sandrolain/gobeat/pkg/parser
//   - Compiler: github.com/sandrolain/gobeat/pkg/compiler
//   - Evaluator: github.com/sandrolain/gobeat/pkg/evaluator
//   - Stream and PCM sinks: github.com/sandrolain/gobeat/pkg/stream
//   - Program library: github.com/sandrolain/gobeat/pkg/store
package gobeat

import (
	"fmt"

	"github.com/sandrolain/gobeat/pkg/compiler"
	"github.com/sandrolain/gobeat/pkg/parser"
	"github.com/sandrolain/gobeat/pkg/stream"
	"github.com/sandrolain/gobeat/pkg/types"
)

// Version returns the current version of gobeat.
func Version() string {
	return "v0.1.0-dev"
}

// Parse parses a program without compiling it.
func Parse(source string, opts ...parser.CompileOption) (*types.Program, error) {
	return parser.Parse(source, opts...)
}

// Compile parses and lowers a program.
//
// The returned root is not safe for concurrent use; compile once per
// goroutine or guard it.
//
// Example:
//
//	out, err := gobeat.Compile("t&t>>8", compiler.WithResolution(16))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	samples := out.Root.Generate(0)
func Compile(source string, opts ...compiler.Option) (*compiler.Compiled, error) {
	return compiler.New(opts...).CompileSource(source)
}

// MustCompile is like Compile but panics if the program cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(source string, opts ...compiler.Option) *compiler.Compiled {
	out, err := Compile(source, opts...)
	if err != nil {
		panic(fmt.Sprintf("gobeat: Compile(%q): %v", source, err))
	}
	return out
}

// Render compiles source and returns count samples starting at time start.
// The program's #start directive is ignored; start is absolute.
func Render(source string, start int32, count int) ([]int32, error) {
	if count < 0 {
		return nil, fmt.Errorf("gobeat: negative sample count %d", count)
	}
	if count == 0 {
		return []int32{}, nil
	}

	size := compiler.DefaultBufferSize
	if count < size {
		size = count
	}
	out, err := Compile(source, compiler.WithBufferSize(size))
	if err != nil {
		return nil, err
	}

	s := stream.New(out.Root, stream.WithOffset(start))
	samples := make([]int32, 0, count)
	for len(samples) < count {
		window := s.Next()
		if rest := count - len(samples); rest < len(window) {
			window = window[:rest]
		}
		samples = append(samples, window...)
	}
	return samples, nil
}
