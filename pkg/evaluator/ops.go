package evaluator

import (
	"fmt"
	"math"

	"github.com/sandrolain/gobeat/pkg/types"
)

// Scalar semantics shared by the generation loops and by compile-time
// constant folding. All arithmetic is 32-bit two's complement with
// wraparound; nothing here can fault.

func div32(a, b int32) int32 {
	if b == 0 {
		return 0
	}
	return a / b
}

func mod32(a, b int32) int32 {
	if b == 0 {
		return 0
	}
	return a % b
}

// Shift counts are masked to the low five bits, so 33 shifts by one and -1
// shifts by 31.
func shl32(a, b int32) int32 {
	return a << (uint32(b) & 31)
}

func shr32(a, b int32) int32 {
	return a >> (uint32(b) & 31)
}

// ApplyBinary evaluates op on a single pair of samples.
func ApplyBinary(op types.BinaryOp, a, b int32) int32 {
	switch op {
	case types.OpAdd:
		return a + b
	case types.OpSubtract:
		return a - b
	case types.OpMultiply:
		return a * b
	case types.OpDivide:
		return div32(a, b)
	case types.OpModulus:
		return mod32(a, b)
	case types.OpOr:
		return a | b
	case types.OpAnd:
		return a & b
	case types.OpXor:
		return a ^ b
	case types.OpLeftShift:
		return shl32(a, b)
	case types.OpRightShift:
		return shr32(a, b)
	default:
		panic(fmt.Sprintf("evaluator: unknown binary operation %d", op))
	}
}

// ApplyUnary evaluates a non-waveform unary op on a single sample.
// Waveforms depend on the resolution; use Waveform.Apply for those.
func ApplyUnary(op types.UnaryOp, a int32) int32 {
	switch op {
	case types.OpNegate:
		return -a
	case types.OpComplement:
		return ^a
	default:
		panic(fmt.Sprintf("evaluator: unary operation %s has no scalar form", op))
	}
}

// SequencerIndex returns the item selected by parameter p among n items:
// the bit pattern of p read as unsigned, modulo n.
func SequencerIndex(p int32, n int) int {
	return int(uint32(p) % uint32(n))
}

// Waveform holds the period and amplitude of the generator functions for
// one resolution.
type Waveform struct {
	Period float64
	Scale  float64
}

// NewWaveform derives the generator constants for a bit depth:
// period = 2 << (resolution-1), scale = (period-3)/2.
func NewWaveform(resolution int) Waveform {
	period := float64(int64(2) << uint(resolution-1))
	return Waveform{
		Period: period,
		Scale:  (period - 3) * 0.5,
	}
}

// phase maps x into [0, 1) relative to the period.
func (w Waveform) phase(x int32) float64 {
	return math.Mod(math.Mod(float64(x)/w.Period, 1.0)+1.0, 1.0)
}

// Saw is a rising ramp over one period.
func (w Waveform) Saw(x int32) int32 {
	u := w.phase(x)
	return int32((2*u - 1) * w.Scale)
}

// Sine takes the unwrapped phase x/period.
func (w Waveform) Sine(x int32) int32 {
	u := float64(x) / w.Period
	return int32(math.Sin(2*math.Pi*u) * w.Scale)
}

// Square is low for the first half period (inclusive of the midpoint).
func (w Waveform) Square(x int32) int32 {
	if w.phase(x) > 0.5 {
		return int32(w.Scale)
	}
	return int32(-w.Scale)
}

// Triangle rises over the first half period and falls over the second.
func (w Waveform) Triangle(x int32) int32 {
	u := w.phase(x)
	if u < 0.5 {
		return int32((4*u - 1) * w.Scale)
	}
	return int32((-4*u + 3) * w.Scale)
}

// Apply evaluates waveform op on one sample.
func (w Waveform) Apply(op types.UnaryOp, x int32) int32 {
	switch op {
	case types.OpSaw:
		return w.Saw(x)
	case types.OpSine:
		return w.Sine(x)
	case types.OpSquare:
		return w.Square(x)
	case types.OpTriangle:
		return w.Triangle(x)
	default:
		panic(fmt.Sprintf("evaluator: unary operation %s is not a waveform", op))
	}
}
