package evaluator

import (
	"fmt"

	"github.com/sandrolain/gobeat/pkg/types"
)

// fill writes f(start+i) for the node into dst. Buffered nodes are served
// from their window buffer; the rest compute straight into dst, which lets a
// chain of single-parent nodes share the caller's storage.
func (g *Graph) fill(id NodeID, start int32, dst []int32) {
	n := &g.nodes[id]
	if n.buffered {
		copy(dst, g.view(id, start))
		return
	}
	g.compute(id, start, dst)
}

// view returns the node's window buffer for start, computing it on the first
// request after an invalidation.
func (g *Graph) view(id NodeID, start int32) []int32 {
	n := &g.nodes[id]
	if n.buf == nil {
		n.buf = make([]int32, g.size)
	}
	if n.ready && (n.start == start || n.kind == kindConstant) {
		return n.buf
	}
	g.compute(id, start, n.buf)
	n.ready = true
	n.start = start
	return n.buf
}

// compute evaluates the node for the window starting at start into dst.
func (g *Graph) compute(id NodeID, start int32, dst []int32) {
	n := &g.nodes[id]
	g.computations++
	n.computes++

	switch n.kind {
	case kindConstant:
		k := n.k
		for i := range dst {
			dst[i] = k
		}

	case kindIdentity:
		for i := range dst {
			dst[i] = start + int32(i)
		}

	case kindBinary:
		g.fill(n.left, start, dst)
		r := g.view(n.right, start)[:len(dst)]
		binaryLoop(n.binOp, dst, r)

	case kindBinaryConstant:
		g.fill(n.left, start, dst)
		binaryConstLoop(n.binOp, dst, n.k)

	case kindUnary:
		g.fill(n.left, start, dst)
		g.unaryLoop(n.unOp, dst)

	case kindSequencer:
		// dst holds the parameter until each slot is overwritten by the
		// selected item's sample at the same position.
		g.fill(n.left, start, dst)
		items := n.items
		count := len(items)
		for i, p := range dst {
			dst[i] = g.view(items[SequencerIndex(p, count)], start)[i]
		}

	case kindTable:
		g.fill(n.left, start, dst)
		table := n.table
		count := len(table)
		for i, p := range dst {
			dst[i] = table[SequencerIndex(p, count)]
		}

	default:
		panic(fmt.Sprintf("evaluator: unknown node kind %d", n.kind))
	}
}

func binaryLoop(op types.BinaryOp, dst, r []int32) {
	switch op {
	case types.OpAdd:
		for i := range dst {
			dst[i] += r[i]
		}
	case types.OpSubtract:
		for i := range dst {
			dst[i] -= r[i]
		}
	case types.OpMultiply:
		for i := range dst {
			dst[i] *= r[i]
		}
	case types.OpDivide:
		for i := range dst {
			dst[i] = div32(dst[i], r[i])
		}
	case types.OpModulus:
		for i := range dst {
			dst[i] = mod32(dst[i], r[i])
		}
	case types.OpOr:
		for i := range dst {
			dst[i] |= r[i]
		}
	case types.OpAnd:
		for i := range dst {
			dst[i] &= r[i]
		}
	case types.OpXor:
		for i := range dst {
			dst[i] ^= r[i]
		}
	case types.OpLeftShift:
		for i := range dst {
			dst[i] = shl32(dst[i], r[i])
		}
	case types.OpRightShift:
		for i := range dst {
			dst[i] = shr32(dst[i], r[i])
		}
	default:
		panic(fmt.Sprintf("evaluator: unknown binary operation %d", op))
	}
}

func binaryConstLoop(op types.BinaryOp, dst []int32, k int32) {
	switch op {
	case types.OpAdd:
		for i := range dst {
			dst[i] += k
		}
	case types.OpMultiply:
		for i := range dst {
			dst[i] *= k
		}
	case types.OpLeftShift:
		s := uint32(k) & 31
		for i := range dst {
			dst[i] <<= s
		}
	case types.OpRightShift:
		s := uint32(k) & 31
		for i := range dst {
			dst[i] >>= s
		}
	case types.OpAnd:
		for i := range dst {
			dst[i] &= k
		}
	default:
		for i := range dst {
			dst[i] = ApplyBinary(op, dst[i], k)
		}
	}
}

func (g *Graph) unaryLoop(op types.UnaryOp, dst []int32) {
	w := g.wave
	switch op {
	case types.OpNegate:
		for i := range dst {
			dst[i] = -dst[i]
		}
	case types.OpComplement:
		for i := range dst {
			dst[i] = ^dst[i]
		}
	case types.OpSaw:
		for i := range dst {
			dst[i] = w.Saw(dst[i])
		}
	case types.OpSine:
		for i := range dst {
			dst[i] = w.Sine(dst[i])
		}
	case types.OpSquare:
		for i := range dst {
			dst[i] = w.Square(dst[i])
		}
	case types.OpTriangle:
		for i := range dst {
			dst[i] = w.Triangle(dst[i])
		}
	default:
		panic(fmt.Sprintf("evaluator: unknown unary operation %d", op))
	}
}

// invalidate clears the ready flag of every node in ids. Constant buffers
// never change and stay ready.
func (g *Graph) invalidate(ids []NodeID) {
	for _, id := range ids {
		n := &g.nodes[id]
		if n.kind != kindConstant {
			n.ready = false
		}
	}
}

// reachable lists the nodes reachable from root, dependencies first.
func (g *Graph) reachable(root NodeID) []NodeID {
	seen := make([]bool, len(g.nodes))
	var order []NodeID
	var visit func(NodeID)
	visit = func(id NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		n := &g.nodes[id]
		switch n.kind {
		case kindBinary:
			visit(n.left)
			visit(n.right)
		case kindBinaryConstant, kindUnary, kindTable:
			visit(n.left)
		case kindSequencer:
			visit(n.left)
			for _, it := range n.items {
				visit(it)
			}
		}
		order = append(order, id)
	}
	visit(root)
	return order
}

// Computations returns how many times id has been computed.
func (g *Graph) Computations(id NodeID) int64 {
	return g.at(id).computes
}
