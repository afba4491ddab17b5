package evaluator

import (
	"fmt"

	"github.com/sandrolain/gobeat/pkg/types"
)

// NodeID addresses a node inside its Graph.
type NodeID int32

// kind is the variant tag of a node.
type kind uint8

const (
	kindConstant kind = iota + 1
	kindIdentity
	kindBinary         // op(left, right)
	kindBinaryConstant // op(left, k)
	kindUnary          // op(left), including waveforms
	kindSequencer      // items[uint32(left) % n]
	kindTable          // table[uint32(left) % n]
)

// node is one evaluator in the DAG. Dependencies are arena indices, so a
// child can have any number of parents without ownership questions.
type node struct {
	kind    kind
	binOp   types.BinaryOp
	unOp    types.UnaryOp
	k       int32
	left    NodeID
	right   NodeID
	items   []NodeID
	table   []int32
	parents int // number of parents seen so far

	// buffered nodes compute into buf at most once per window and every
	// parent reads the cached result.
	buffered bool
	ready    bool
	start    int32
	buf      []int32
	computes int64
}

// Graph is an arena of evaluator nodes compiled for one buffer size and
// resolution. It is not safe for concurrent use: one consumer drives it.
type Graph struct {
	size     int
	res      int
	wave     Waveform
	nodes    []node
	identity NodeID

	computations int64
}

// NewGraph creates an empty graph. bufferSize must be at least 1 and
// resolution must lie in [types.MinResolution, types.MaxResolution].
func NewGraph(bufferSize, resolution int) (*Graph, error) {
	if bufferSize < 1 {
		return nil, types.NewError(types.ErrInvalidBufferSize,
			fmt.Sprintf("buffer size must be at least 1, got %d", bufferSize), -1)
	}
	if resolution < types.MinResolution || resolution > types.MaxResolution {
		return nil, types.NewError(types.ErrInvalidResolution,
			fmt.Sprintf("resolution must be between %d and %d bits, got %d",
				types.MinResolution, types.MaxResolution, resolution), -1)
	}
	return &Graph{
		size:     bufferSize,
		res:      resolution,
		wave:     NewWaveform(resolution),
		identity: -1,
	}, nil
}

// BufferSize returns the number of samples per window.
func (g *Graph) BufferSize() int { return g.size }

// Resolution returns the bit depth the graph was compiled for.
func (g *Graph) Resolution() int { return g.res }

// Len returns the number of nodes in the arena.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) add(n node) NodeID {
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

func (g *Graph) at(id NodeID) *node {
	if id < 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("evaluator: node %d out of range", id))
	}
	return &g.nodes[id]
}

// use records one more parent of id; a second parent makes it buffered.
func (g *Graph) use(id NodeID) {
	n := g.at(id)
	n.parents++
	if n.parents > 1 {
		n.buffered = true
	}
}

// Constant adds a constant node.
func (g *Graph) Constant(v int32) NodeID {
	return g.add(node{kind: kindConstant, k: v})
}

// Identity returns the graph's single time-parameter node.
func (g *Graph) Identity() NodeID {
	if g.identity < 0 {
		g.identity = g.add(node{kind: kindIdentity})
	}
	return g.identity
}

// Binary adds op(left, right). The right operand is always read through
// its buffer.
func (g *Graph) Binary(op types.BinaryOp, left, right NodeID) NodeID {
	checkBinary(op)
	g.use(left)
	g.use(right)
	g.at(right).buffered = true
	return g.add(node{kind: kindBinary, binOp: op, left: left, right: right})
}

// BinaryConstant adds op(src, k), the specialised form used when the right
// operand is a compile-time constant.
func (g *Graph) BinaryConstant(op types.BinaryOp, src NodeID, k int32) NodeID {
	checkBinary(op)
	g.use(src)
	return g.add(node{kind: kindBinaryConstant, binOp: op, left: src, k: k})
}

// Unary adds op(src).
func (g *Graph) Unary(op types.UnaryOp, src NodeID) NodeID {
	switch op {
	case types.OpNegate, types.OpComplement, types.OpSaw, types.OpSine, types.OpSquare, types.OpTriangle:
	default:
		panic(fmt.Sprintf("evaluator: unknown unary operation %d", op))
	}
	g.use(src)
	return g.add(node{kind: kindUnary, unOp: op, left: src})
}

// Sequencer adds a lookup into items by param. Items are read through their
// buffers.
func (g *Graph) Sequencer(items []NodeID, param NodeID) NodeID {
	if len(items) == 0 {
		panic("evaluator: sequencer needs at least one item")
	}
	g.use(param)
	for _, it := range items {
		g.use(it)
		g.at(it).buffered = true
	}
	return g.add(node{kind: kindSequencer, left: param, items: append([]NodeID(nil), items...)})
}

// Table adds a lookup into a constant table by param.
func (g *Graph) Table(values []int32, param NodeID) NodeID {
	if len(values) == 0 {
		panic("evaluator: table needs at least one value")
	}
	g.use(param)
	return g.add(node{kind: kindTable, left: param, table: append([]int32(nil), values...)})
}

// Share marks id as read by more than one parent. Shared nodes compute once
// per window and serve every parent from their buffer.
func (g *Graph) Share(id NodeID) {
	g.at(id).buffered = true
}

// ConstantValue reports the value of id if it is a constant node.
func (g *Graph) ConstantValue(id NodeID) (int32, bool) {
	n := g.at(id)
	if n.kind != kindConstant {
		return 0, false
	}
	return n.k, true
}

// Buffered reports whether id owns a window buffer.
func (g *Graph) Buffered(id NodeID) bool {
	return g.at(id).buffered
}

// Evaluator returns the root handle for root.
func (g *Graph) Evaluator(root NodeID) *Evaluator {
	g.at(root)
	return newEvaluator(g, root)
}

func checkBinary(op types.BinaryOp) {
	if op < types.OpAdd || op > types.OpRightShift {
		panic(fmt.Sprintf("evaluator: unknown binary operation %d", op))
	}
}
