package evaluator_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/sandrolain/gobeat/pkg/evaluator"
	"github.com/sandrolain/gobeat/pkg/types"
)

func newGraph(t *testing.T, size, res int) *evaluator.Graph {
	t.Helper()
	g, err := evaluator.NewGraph(size, res)
	if err != nil {
		t.Fatalf("NewGraph(%d, %d): %v", size, res, err)
	}
	return g
}

func TestNewGraphRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		size int
		res  int
		code types.ErrorCode
	}{
		{"zero buffer", 0, 8, types.ErrInvalidBufferSize},
		{"negative buffer", -4, 8, types.ErrInvalidBufferSize},
		{"zero resolution", 16, 0, types.ErrInvalidResolution},
		{"wide resolution", 16, 33, types.ErrInvalidResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluator.NewGraph(tt.size, tt.res)
			e, ok := err.(*types.Error)
			if !ok {
				t.Fatalf("expected *types.Error, got %T (%v)", err, err)
			}
			if e.Code != tt.code {
				t.Fatalf("expected %s, got %s", tt.code, e.Code)
			}
		})
	}
}

func TestLinearExpression(t *testing.T) {
	g := newGraph(t, 4, 8)
	root := g.Evaluator(g.BinaryConstant(types.OpAdd,
		g.BinaryConstant(types.OpMultiply, g.Identity(), 2), 5))

	if got, want := root.Generate(0), []int32{5, 7, 9, 11}; !reflect.DeepEqual(got, want) {
		t.Fatalf("window 0: got %v, want %v", got, want)
	}
	root.Invalidate()
	if got, want := root.Generate(4), []int32{13, 15, 17, 19}; !reflect.DeepEqual(got, want) {
		t.Fatalf("window 4: got %v, want %v", got, want)
	}
	if got := root.String(); got != "add_const(mul_const(t, 2), 5)" {
		t.Fatalf("unexpected dump %q", got)
	}
}

func TestGenerateIsIdempotentWithinWindow(t *testing.T) {
	g := newGraph(t, 8, 8)
	tt := g.Identity()
	root := g.Evaluator(g.Binary(types.OpXor, g.BinaryConstant(types.OpRightShift, tt, 1), tt))

	first := append([]int32(nil), root.Generate(16)...)
	before := root.Computations()
	second := root.Generate(16)
	if root.Computations() != before {
		t.Fatalf("second Generate recomputed: %d -> %d", before, root.Computations())
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("windows differ: %v vs %v", first, second)
	}

	root.Invalidate()
	root.Generate(16)
	if root.Computations() == before {
		t.Fatal("Generate after Invalidate must recompute")
	}
}

func TestSharedNodeComputedOncePerWindow(t *testing.T) {
	g := newGraph(t, 16, 8)
	shared := g.BinaryConstant(types.OpMultiply, g.Identity(), 3)
	left := g.BinaryConstant(types.OpAdd, shared, 1)
	right := g.BinaryConstant(types.OpAnd, shared, 0xF0)
	root := g.Evaluator(g.Binary(types.OpOr, left, right))

	if !g.Buffered(shared) {
		t.Fatal("node with two parents must be buffered")
	}

	for w := int32(0); w < 5; w++ {
		root.Invalidate()
		out := root.Generate(w * 16)
		for i, v := range out {
			x := (w*16 + int32(i)) * 3
			if want := (x + 1) | (x & 0xF0); v != want {
				t.Fatalf("window %d sample %d: got %d, want %d", w, i, v, want)
			}
		}
		if got := g.Computations(shared); got != int64(w+1) {
			t.Fatalf("shared node computed %d times after %d windows", got, w+1)
		}
	}
}

func TestWindowWithoutInvalidateRecomputesOnNewStart(t *testing.T) {
	g := newGraph(t, 4, 8)
	root := g.Evaluator(g.Identity())
	root.Generate(0)
	if got, want := root.Generate(4), []int32{4, 5, 6, 7}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerateInto(t *testing.T) {
	g := newGraph(t, 4, 8)
	root := g.Evaluator(g.BinaryConstant(types.OpModulus, g.Identity(), 3))

	dst := make([]int32, 6)
	for i := range dst {
		dst[i] = -1
	}
	root.GenerateInto(0, dst)
	if want := []int32{0, 1, 2, 0, -1, -1}; !reflect.DeepEqual(dst, want) {
		t.Fatalf("got %v, want %v", dst, want)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("short destination must panic")
		}
	}()
	root.GenerateInto(0, make([]int32, 2))
}

func TestDivisionByZeroYieldsZero(t *testing.T) {
	g := newGraph(t, 6, 8)
	tt := g.Identity()
	// divisor is t % 3: zero at every third sample
	divisor := g.BinaryConstant(types.OpModulus, tt, 3)
	numer := g.BinaryConstant(types.OpAdd, tt, 100)

	div := g.Evaluator(g.Binary(types.OpDivide, numer, divisor))
	if got, want := div.Generate(0), []int32{0, 101, 51, 0, 104, 52}; !reflect.DeepEqual(got, want) {
		t.Fatalf("divide: got %v, want %v", got, want)
	}

	mod := g.Evaluator(g.Binary(types.OpModulus, numer, divisor))
	if got, want := mod.Generate(0), []int32{0, 0, 0, 0, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("modulus: got %v, want %v", got, want)
	}

	byZero := g.Evaluator(g.BinaryConstant(types.OpDivide, tt, 0))
	for i, v := range byZero.Generate(0) {
		if v != 0 {
			t.Fatalf("sample %d: %d / 0 = %d, want 0", i, i, v)
		}
	}
}

func TestApplyBinary(t *testing.T) {
	tests := []struct {
		op   types.BinaryOp
		a, b int32
		want int32
	}{
		{types.OpAdd, math.MaxInt32, 1, math.MinInt32},
		{types.OpSubtract, math.MinInt32, 1, math.MaxInt32},
		{types.OpMultiply, 65536, 65536, 0},
		{types.OpDivide, 7, 2, 3},
		{types.OpDivide, -7, 2, -3},
		{types.OpDivide, 7, 0, 0},
		{types.OpDivide, math.MinInt32, -1, math.MinInt32},
		{types.OpModulus, -7, 3, -1},
		{types.OpModulus, 7, 0, 0},
		{types.OpModulus, math.MinInt32, -1, 0},
		{types.OpOr, 0x0F, 0xF0, 0xFF},
		{types.OpAnd, 0x3C, 0x0F, 0x0C},
		{types.OpXor, 0xFF, 0x0F, 0xF0},
		{types.OpLeftShift, 1, 4, 16},
		{types.OpLeftShift, 1, 33, 2},
		{types.OpLeftShift, 1, -1, math.MinInt32},
		{types.OpRightShift, -16, 2, -4},
		{types.OpRightShift, 256, 40, 1},
	}
	for _, tt := range tests {
		if got := evaluator.ApplyBinary(tt.op, tt.a, tt.b); got != tt.want {
			t.Errorf("%d %s %d = %d, want %d", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

func TestBinaryLoopsMatchApplyBinary(t *testing.T) {
	ops := []types.BinaryOp{
		types.OpAdd, types.OpSubtract, types.OpMultiply, types.OpDivide, types.OpModulus,
		types.OpOr, types.OpAnd, types.OpXor, types.OpLeftShift, types.OpRightShift,
	}
	const size = 64
	for _, op := range ops {
		g := newGraph(t, size, 8)
		tt := g.Identity()
		// right operand sweeps negative and positive values including zero
		right := g.BinaryConstant(types.OpSubtract, tt, 40)
		left := g.BinaryConstant(types.OpMultiply, tt, 0x01010101)
		general := g.Evaluator(g.Binary(op, left, right))
		specialised := g.Evaluator(g.BinaryConstant(op, left, -7))

		start := int32(-20)
		gen := general.Generate(start)
		got := specialised.Generate(start)
		for i := 0; i < size; i++ {
			x := start + int32(i)
			l := x * 0x01010101
			if want := evaluator.ApplyBinary(op, l, x-40); gen[i] != want {
				t.Fatalf("%s general sample %d: got %d, want %d", op, i, gen[i], want)
			}
			if want := evaluator.ApplyBinary(op, l, -7); got[i] != want {
				t.Fatalf("%s constant sample %d: got %d, want %d", op, i, got[i], want)
			}
		}
	}
}

func TestUnary(t *testing.T) {
	g := newGraph(t, 3, 8)
	tt := g.Identity()
	neg := g.Evaluator(g.Unary(types.OpNegate, tt))
	not := g.Evaluator(g.Unary(types.OpComplement, tt))

	if got, want := neg.Generate(-1), []int32{1, 0, -1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("negate: got %v, want %v", got, want)
	}
	if got, want := not.Generate(-1), []int32{0, -1, -2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("complement: got %v, want %v", got, want)
	}
	if got := evaluator.ApplyUnary(types.OpNegate, math.MinInt32); got != math.MinInt32 {
		t.Fatalf("negate of MinInt32 must wrap, got %d", got)
	}
}

func TestWaveforms(t *testing.T) {
	w := evaluator.NewWaveform(8)
	if w.Period != 256 || w.Scale != 126.5 {
		t.Fatalf("unexpected waveform constants %+v", w)
	}

	tests := []struct {
		op   types.UnaryOp
		x    int32
		want int32
	}{
		{types.OpSaw, 0, -126},
		{types.OpSaw, 64, -63},
		{types.OpSaw, 128, 0},
		{types.OpSaw, -64, 63},
		{types.OpSaw, 256 + 64, -63},
		{types.OpSine, 0, 0},
		{types.OpSine, 64, 126},
		{types.OpSine, 192, -126},
		{types.OpSquare, 0, -126},
		{types.OpSquare, 128, -126},
		{types.OpSquare, 192, 126},
		{types.OpSquare, -64, 126},
		{types.OpTriangle, 0, -126},
		{types.OpTriangle, 64, 0},
		{types.OpTriangle, 128, 126},
		{types.OpTriangle, 192, 0},
	}
	for _, tt := range tests {
		if got := w.Apply(tt.op, tt.x); got != tt.want {
			t.Errorf("%s(%d) = %d, want %d", tt.op, tt.x, got, tt.want)
		}
	}
}

func TestWaveformNodeMatchesScalar(t *testing.T) {
	for _, op := range []types.UnaryOp{types.OpSaw, types.OpSine, types.OpSquare, types.OpTriangle} {
		g := newGraph(t, 512, 10)
		root := g.Evaluator(g.Unary(op, g.Identity()))
		w := evaluator.NewWaveform(10)
		for i, v := range root.Generate(-100) {
			if want := w.Apply(op, int32(i)-100); v != want {
				t.Fatalf("%s sample %d: got %d, want %d", op, i, v, want)
			}
		}
	}
}

func TestWideResolutionWaveform(t *testing.T) {
	w := evaluator.NewWaveform(32)
	if w.Period != 4294967296 {
		t.Fatalf("period = %v", w.Period)
	}
	if got := w.Apply(types.OpTriangle, math.MinInt32); got != math.MaxInt32-1 {
		t.Fatalf("triangle peak = %d", got)
	}
}

func TestSequencerIndex(t *testing.T) {
	tests := []struct {
		p    int32
		n    int
		want int
	}{
		{0, 3, 0},
		{4, 3, 1},
		{-1, 3, 0}, // 4294967295 % 3
		{-1, 2, 1},
		{math.MinInt32, 3, 2}, // 2147483648 % 3
		{-5, 7, 6},            // 4294967291 % 7
	}
	for _, tt := range tests {
		got := evaluator.SequencerIndex(tt.p, tt.n)
		if got != tt.want {
			t.Errorf("SequencerIndex(%d, %d) = %d, want %d", tt.p, tt.n, got, tt.want)
		}
		if got < 0 || got >= tt.n {
			t.Errorf("index %d out of range", got)
		}
	}
}

func TestSequencerAndTable(t *testing.T) {
	g := newGraph(t, 5, 8)
	tt := g.Identity()

	table := g.Evaluator(g.Table([]int32{1, 2, 3}, tt))
	if got, want := table.Generate(0), []int32{1, 2, 3, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("table: got %v, want %v", got, want)
	}

	items := []evaluator.NodeID{
		g.BinaryConstant(types.OpMultiply, tt, 10),
		g.Constant(-1),
	}
	seq := g.Evaluator(g.Sequencer(items, tt))
	if got, want := seq.Generate(0), []int32{0, -1, 20, -1, 40}; !reflect.DeepEqual(got, want) {
		t.Fatalf("sequencer: got %v, want %v", got, want)
	}

	// negative parameters select with the unsigned bit pattern
	neg := g.Evaluator(g.Table([]int32{10, 20, 30}, g.Unary(types.OpNegate, tt)))
	want := make([]int32, 5)
	for i := range want {
		want[i] = []int32{10, 20, 30}[evaluator.SequencerIndex(-int32(i), 3)]
	}
	if got := neg.Generate(0); !reflect.DeepEqual(got, want) {
		t.Fatalf("negative table: got %v, want %v", got, want)
	}
}

func TestSequencerItemsComputedOnce(t *testing.T) {
	g := newGraph(t, 32, 8)
	tt := g.Identity()
	item := g.BinaryConstant(types.OpAdd, tt, 7)
	root := g.Evaluator(g.Sequencer([]evaluator.NodeID{item, item, g.Constant(0)}, tt))

	root.Generate(0)
	if got := g.Computations(item); got != 1 {
		t.Fatalf("item computed %d times in one window", got)
	}
}

func TestConstantRoot(t *testing.T) {
	g := newGraph(t, 4, 8)
	root := g.Evaluator(g.Constant(42))
	if v, ok := root.Constant(); !ok || v != 42 {
		t.Fatalf("Constant() = %d, %v", v, ok)
	}
	for w := int32(0); w < 3; w++ {
		root.Invalidate()
		if got, want := root.Generate(w*4), []int32{42, 42, 42, 42}; !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if got := root.Computations(); got != 1 {
		t.Fatalf("constant computed %d times", got)
	}
}

func TestIdentityWrapsAround(t *testing.T) {
	g := newGraph(t, 3, 8)
	root := g.Evaluator(g.Identity())
	if got, want := root.Generate(math.MaxInt32-1), []int32{math.MaxInt32 - 1, math.MaxInt32, math.MinInt32}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUnknownOperationPanics(t *testing.T) {
	g := newGraph(t, 1, 8)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown operation")
		}
	}()
	g.Binary(types.BinaryOp(99), g.Identity(), g.Identity())
}

func TestFormat(t *testing.T) {
	g := newGraph(t, 1, 8)
	tt := g.Identity()
	root := g.Evaluator(g.Sequencer([]evaluator.NodeID{
		g.Unary(types.OpSine, tt),
		g.Binary(types.OpDivide, g.Constant(1000), tt),
	}, g.Table([]int32{0, 1}, g.BinaryConstant(types.OpRightShift, tt, 12))))

	want := "seq[sin(t), div(1000, t)](table[0, 1](shr_const(t, 12)))"
	if got := root.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if root.Nodes() != 7 {
		t.Fatalf("Nodes() = %d, want 7", root.Nodes())
	}
}
