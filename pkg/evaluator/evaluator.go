// Package evaluator implements the gobeat sample-generation engine.
//
// A compiled program is a directed acyclic graph of evaluators stored in an
// arena ([Graph]) and addressed by [NodeID]. Each node produces the integer
// function f(t) of its sub-graph for a window of consecutive time values.
// Nodes read by more than one parent own a window buffer so that every node
// is computed at most once per window, however many paths reach it.
//
// # Example
//
//	g, _ := evaluator.NewGraph(4, 8)
//	t := g.Identity()
//	root := g.Evaluator(g.BinaryConstant(types.OpAdd, g.BinaryConstant(types.OpMultiply, t, 2), 5))
//	fmt.Println(root.Generate(0)) // [5 7 9 11]
//	root.Invalidate()
//	fmt.Println(root.Generate(4)) // [13 15 17 19]
//
// # Windows
//
// The consumer asks the root for successive windows. [Evaluator.Invalidate]
// must be called once between two different windows; forgetting it leaves
// buffered nodes serving the previous window, calling it more often only
// costs recomputation.
//
// # Concurrency
//
// A Graph is owned by a single consumer. To replace a program while it is
// being played, compile a fresh graph and swap the root handle between
// windows instead of mutating the running graph.
package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/gobeat/pkg/types"
)

// Evaluator is the root handle of a compiled graph.
type Evaluator struct {
	g     *Graph
	root  NodeID
	order []NodeID
}

func newEvaluator(g *Graph, root NodeID) *Evaluator {
	// The root is read by the consumer, so it owns the window buffer that
	// Generate hands out.
	g.Share(root)
	return &Evaluator{
		g:     g,
		root:  root,
		order: g.reachable(root),
	}
}

// Generate returns f(start+i) for i in [0, BufferSize()). The slice is
// borrowed: it belongs to the graph and is overwritten by the next window.
// Repeated calls with the same start and no Invalidate in between return
// the cached window without recomputing anything.
func (e *Evaluator) Generate(start int32) []int32 {
	return e.g.view(e.root, start)
}

// GenerateInto computes the window for start straight into dst, bypassing
// the root's own buffer. dst must hold at least BufferSize() samples; only
// the first BufferSize() entries are written. Shared dependencies are still
// served from their buffers.
func (e *Evaluator) GenerateInto(start int32, dst []int32) {
	if len(dst) < e.g.size {
		panic(fmt.Sprintf("evaluator: destination holds %d samples, window is %d", len(dst), e.g.size))
	}
	e.g.compute(e.root, start, dst[:e.g.size])
}

// Invalidate marks every node reachable from the root as stale. Call it
// exactly once before requesting a different window.
func (e *Evaluator) Invalidate() {
	e.g.invalidate(e.order)
}

// BufferSize returns the number of samples in a window.
func (e *Evaluator) BufferSize() int {
	return e.g.size
}

// Resolution returns the bit depth the graph was compiled for.
func (e *Evaluator) Resolution() int {
	return e.g.res
}

// Constant reports the value of the program if it folded to a constant.
func (e *Evaluator) Constant() (int32, bool) {
	return e.g.ConstantValue(e.root)
}

// Root returns the root node.
func (e *Evaluator) Root() NodeID {
	return e.root
}

// Graph returns the arena the root lives in.
func (e *Evaluator) Graph() *Graph {
	return e.g
}

// Nodes returns the number of nodes reachable from the root.
func (e *Evaluator) Nodes() int {
	return len(e.order)
}

// Computations returns the total number of node computations performed by
// the graph so far.
func (e *Evaluator) Computations() int64 {
	return e.g.computations
}

// String renders the graph as nested calls, e.g. add_const(mul_const(t, 2), 5).
func (e *Evaluator) String() string {
	return e.g.Format(e.root)
}

var binaryNames = map[types.BinaryOp]string{
	types.OpAdd:        "add",
	types.OpSubtract:   "sub",
	types.OpMultiply:   "mul",
	types.OpDivide:     "div",
	types.OpModulus:    "mod",
	types.OpOr:         "or",
	types.OpAnd:        "and",
	types.OpXor:        "xor",
	types.OpLeftShift:  "shl",
	types.OpRightShift: "shr",
}

var unaryNames = map[types.UnaryOp]string{
	types.OpNegate:     "neg",
	types.OpComplement: "not",
	types.OpSaw:        "saw",
	types.OpSine:       "sin",
	types.OpSquare:     "square",
	types.OpTriangle:   "tri",
}

// Format renders the sub-graph rooted at id.
func (g *Graph) Format(id NodeID) string {
	var sb strings.Builder
	g.format(&sb, id)
	return sb.String()
}

func (g *Graph) format(sb *strings.Builder, id NodeID) {
	n := g.at(id)
	switch n.kind {
	case kindConstant:
		sb.WriteString(strconv.FormatInt(int64(n.k), 10))
	case kindIdentity:
		sb.WriteByte('t')
	case kindBinary:
		sb.WriteString(binaryNames[n.binOp])
		sb.WriteByte('(')
		g.format(sb, n.left)
		sb.WriteString(", ")
		g.format(sb, n.right)
		sb.WriteByte(')')
	case kindBinaryConstant:
		sb.WriteString(binaryNames[n.binOp])
		sb.WriteString("_const(")
		g.format(sb, n.left)
		sb.WriteString(", ")
		sb.WriteString(strconv.FormatInt(int64(n.k), 10))
		sb.WriteByte(')')
	case kindUnary:
		sb.WriteString(unaryNames[n.unOp])
		sb.WriteByte('(')
		g.format(sb, n.left)
		sb.WriteByte(')')
	case kindSequencer:
		sb.WriteString("seq[")
		for i, it := range n.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			g.format(sb, it)
		}
		sb.WriteString("](")
		g.format(sb, n.left)
		sb.WriteByte(')')
	case kindTable:
		sb.WriteString("table[")
		for i, v := range n.table {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.FormatInt(int64(v), 10))
		}
		sb.WriteString("](")
		g.format(sb, n.left)
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "?%d", n.kind)
	}
}
