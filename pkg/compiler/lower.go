package compiler

import (
	"fmt"

	"github.com/sandrolain/gobeat/pkg/evaluator"
	"github.com/sandrolain/gobeat/pkg/types"
)

type memoEntry struct {
	expr types.Expr
	id   evaluator.NodeID
}

// lowerer holds the state of one lowering pass. The memo table is keyed by
// structural hash; collisions are resolved with types.Equal.
type lowerer struct {
	g      *evaluator.Graph
	res    int32
	memo   map[uint64][]memoEntry
	consts map[int32]evaluator.NodeID
	stats  Stats
}

func lower(expr types.Expr, bufferSize, resolution int) (*evaluator.Evaluator, Stats, error) {
	g, err := evaluator.NewGraph(bufferSize, resolution)
	if err != nil {
		return nil, Stats{}, err
	}
	if expr == nil {
		return nil, Stats{}, types.NewError(types.ErrNilExpression, "expression is nil", -1)
	}

	l := &lowerer{
		g:      g,
		res:    int32(resolution),
		memo:   make(map[uint64][]memoEntry),
		consts: make(map[int32]evaluator.NodeID),
	}
	root := g.Evaluator(l.lower(expr))

	l.stats.Emitted = g.Len()
	l.stats.Reachable = root.Nodes()
	return root, l.stats, nil
}

// lower returns the node for e, building it on first sight only.
func (l *lowerer) lower(e types.Expr) evaluator.NodeID {
	if e == nil {
		panic("compiler: nil sub-expression")
	}
	h := e.Hash()
	for _, m := range l.memo[h] {
		if types.Equal(m.expr, e) {
			l.stats.Shared++
			return m.id
		}
	}
	id := l.build(e)
	l.memo[h] = append(l.memo[h], memoEntry{expr: e, id: id})
	return id
}

func (l *lowerer) constant(v int32) evaluator.NodeID {
	if id, ok := l.consts[v]; ok {
		return id
	}
	id := l.g.Constant(v)
	l.consts[v] = id
	return id
}

func (l *lowerer) fold(v int32) evaluator.NodeID {
	l.stats.Folded++
	return l.constant(v)
}

func (l *lowerer) build(e types.Expr) evaluator.NodeID {
	switch e := e.(type) {
	case *types.Constant:
		return l.constant(e.Value)
	case types.Identity, *types.Identity:
		return l.g.Identity()
	case types.Resolution, *types.Resolution:
		return l.constant(l.res)
	case *types.Binary:
		return l.binary(e)
	case *types.Unary:
		return l.unary(e)
	case *types.Sequencer:
		return l.sequencer(e)
	default:
		panic(fmt.Sprintf("compiler: unknown expression %T", e))
	}
}

func (l *lowerer) binary(e *types.Binary) evaluator.NodeID {
	left := l.lower(e.Left)
	right := l.lower(e.Right)
	lk, lconst := l.g.ConstantValue(left)
	rk, rconst := l.g.ConstantValue(right)

	switch {
	case lconst && rconst:
		return l.fold(evaluator.ApplyBinary(e.Op, lk, rk))
	case rconst:
		if e.Op == types.OpSubtract {
			// x - k == x + (-k), wrapping included
			return l.g.BinaryConstant(types.OpAdd, left, -rk)
		}
		return l.g.BinaryConstant(e.Op, left, rk)
	case lconst:
		if e.Op.Commutative() {
			return l.g.BinaryConstant(e.Op, right, lk)
		}
		if e.Op == types.OpSubtract {
			// k - x == -x + k
			neg := l.lower(types.NewUnary(types.OpNegate, e.Right))
			return l.g.BinaryConstant(types.OpAdd, neg, lk)
		}
		return l.g.Binary(e.Op, left, right)
	default:
		return l.g.Binary(e.Op, left, right)
	}
}

func (l *lowerer) unary(e *types.Unary) evaluator.NodeID {
	src := l.lower(e.Source)
	if k, ok := l.g.ConstantValue(src); ok && !e.Op.Waveform() {
		return l.fold(evaluator.ApplyUnary(e.Op, k))
	}
	return l.g.Unary(e.Op, src)
}

func (l *lowerer) sequencer(e *types.Sequencer) evaluator.NodeID {
	if len(e.Items) == 0 {
		return l.fold(0)
	}

	param := l.lower(e.Parameter)
	if p, ok := l.g.ConstantValue(param); ok {
		// Only the selected item is lowered.
		l.stats.Folded++
		return l.lower(e.Items[evaluator.SequencerIndex(p, len(e.Items))])
	}

	items := make([]evaluator.NodeID, len(e.Items))
	values := make([]int32, len(e.Items))
	constant := true
	for i, item := range e.Items {
		items[i] = l.lower(item)
		v, ok := l.g.ConstantValue(items[i])
		values[i] = v
		constant = constant && ok
	}
	if constant {
		return l.g.Table(values, param)
	}
	return l.g.Sequencer(items, param)
}
