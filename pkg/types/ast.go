package types

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"strconv"
	"strings"
)

// NodeType identifies the variant of an expression node.
type NodeType string

// Expression node variants.
const (
	NodeConstant   NodeType = "constant"
	NodeIdentity   NodeType = "identity"   // t
	NodeResolution NodeType = "resolution" // r
	NodeBinary     NodeType = "binary"
	NodeUnary      NodeType = "unary"
	NodeSequencer  NodeType = "sequencer" // [a, b, c]p
)

// BinaryOp is the operation tag of a Binary node.
type BinaryOp uint8

// Binary operations.
const (
	OpAdd BinaryOp = iota + 1
	OpSubtract
	OpMultiply
	OpDivide
	OpModulus
	OpOr
	OpAnd
	OpXor
	OpLeftShift
	OpRightShift
)

// String returns the source symbol of the operation.
func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulus:
		return "%"
	case OpOr:
		return "|"
	case OpAnd:
		return "&"
	case OpXor:
		return "^"
	case OpLeftShift:
		return "<<"
	case OpRightShift:
		return ">>"
	default:
		return "(unknown)"
	}
}

// Commutative reports whether a op b == b op a for every a, b.
func (op BinaryOp) Commutative() bool {
	switch op {
	case OpAdd, OpMultiply, OpOr, OpAnd, OpXor:
		return true
	default:
		return false
	}
}

// UnaryOp is the operation tag of a Unary node.
type UnaryOp uint8

// Unary operations.
const (
	OpNegate UnaryOp = iota + 1
	OpComplement
	OpSaw
	OpSine
	OpSquare
	OpTriangle
)

// String returns the source spelling of the operation.
func (op UnaryOp) String() string {
	switch op {
	case OpNegate:
		return "-"
	case OpComplement:
		return "~"
	case OpSaw:
		return "saw"
	case OpSine:
		return "sin"
	case OpSquare:
		return "square"
	case OpTriangle:
		return "tri"
	default:
		return "(unknown)"
	}
}

// Waveform reports whether op is one of the periodic generator functions.
func (op UnaryOp) Waveform() bool {
	switch op {
	case OpSaw, OpSine, OpSquare, OpTriangle:
		return true
	default:
		return false
	}
}

// Expr is an immutable expression node.
//
// Two nodes are interchangeable when Equal reports true; Hash is consistent
// with Equal, so nodes can key hash-consing tables even when the parser
// produced separately allocated but structurally identical subtrees.
type Expr interface {
	Kind() NodeType
	Equal(other Expr) bool
	Hash() uint64
	String() string
}

// Constant is an integer literal.
type Constant struct {
	Value int32
}

// Identity denotes the time parameter t. All values are equal.
type Identity struct{}

// Resolution denotes the configured output bit depth. All values are equal.
type Resolution struct{}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	hash  uint64
}

// Unary applies Op to Source.
type Unary struct {
	Op     UnaryOp
	Source Expr
	hash   uint64
}

// Sequencer selects Items[uint32(Parameter) % len(Items)].
type Sequencer struct {
	Items     []Expr
	Parameter Expr
	hash      uint64
}

// NewConstant returns a Constant node.
func NewConstant(v int32) *Constant {
	return &Constant{Value: v}
}

// NewBinary returns a Binary node with its hash precomputed.
func NewBinary(op BinaryOp, left, right Expr) *Binary {
	b := &Binary{Op: op, Left: left, Right: right}
	b.hash = b.computeHash()
	return b
}

// NewUnary returns a Unary node with its hash precomputed.
func NewUnary(op UnaryOp, source Expr) *Unary {
	u := &Unary{Op: op, Source: source}
	u.hash = u.computeHash()
	return u
}

// NewSequencer returns a Sequencer node with its hash precomputed.
// The items slice is copied.
func NewSequencer(items []Expr, parameter Expr) *Sequencer {
	s := &Sequencer{
		Items:     append([]Expr(nil), items...),
		Parameter: parameter,
	}
	s.hash = s.computeHash()
	return s
}

// Variant tags mixed into hashes.
const (
	tagConstant byte = iota + 1
	tagIdentity
	tagResolution
	tagBinary
	tagUnary
	tagSequencer
)

// hasher is FNV-1a over a canonical encoding of a node: the variant tag
// followed by (tag, uint64) pairs for each field.
type hasher struct {
	h   hash.Hash64
	buf [9]byte
}

func newHasher(tag byte) *hasher {
	h := &hasher{h: fnv.New64a()}
	_, _ = h.h.Write([]byte{tag})
	return h
}

func (h *hasher) mix(tag byte, v uint64) {
	h.buf[0] = tag
	binary.LittleEndian.PutUint64(h.buf[1:], v)
	_, _ = h.h.Write(h.buf[:])
}

func (h *hasher) sum() uint64 {
	return h.h.Sum64()
}

func hashOf(e Expr) uint64 {
	if e == nil {
		return 0
	}
	return e.Hash()
}

// Kind implements Expr.
func (c *Constant) Kind() NodeType { return NodeConstant }

// Equal implements Expr.
func (c *Constant) Equal(other Expr) bool {
	o, ok := other.(*Constant)
	return ok && o != nil && c.Value == o.Value
}

// Hash implements Expr.
func (c *Constant) Hash() uint64 {
	h := newHasher(tagConstant)
	h.mix(tagConstant, uint64(uint32(c.Value)))
	return h.sum()
}

// String prints negative values in hex so the output parses back to the
// same literal rather than a negation.
func (c *Constant) String() string {
	if c.Value < 0 {
		return "0x" + strings.ToUpper(strconv.FormatUint(uint64(uint32(c.Value)), 16))
	}
	return strconv.FormatInt(int64(c.Value), 10)
}

// Kind implements Expr.
func (Identity) Kind() NodeType { return NodeIdentity }

// Equal implements Expr.
func (Identity) Equal(other Expr) bool {
	switch other.(type) {
	case Identity, *Identity:
		return true
	}
	return false
}

// Hash implements Expr.
func (Identity) Hash() uint64 { return newHasher(tagIdentity).sum() }

func (Identity) String() string { return "t" }

// Kind implements Expr.
func (Resolution) Kind() NodeType { return NodeResolution }

// Equal implements Expr.
func (Resolution) Equal(other Expr) bool {
	switch other.(type) {
	case Resolution, *Resolution:
		return true
	}
	return false
}

// Hash implements Expr.
func (Resolution) Hash() uint64 { return newHasher(tagResolution).sum() }

func (Resolution) String() string { return "r" }

// Kind implements Expr.
func (b *Binary) Kind() NodeType { return NodeBinary }

// Equal implements Expr.
func (b *Binary) Equal(other Expr) bool {
	o, ok := other.(*Binary)
	if !ok || o == nil {
		return false
	}
	if b == o {
		return true
	}
	return b.Op == o.Op && b.Hash() == o.Hash() &&
		equal(b.Left, o.Left) && equal(b.Right, o.Right)
}

// Hash implements Expr.
func (b *Binary) Hash() uint64 {
	if b.hash == 0 {
		b.hash = b.computeHash()
	}
	return b.hash
}

func (b *Binary) computeHash() uint64 {
	h := newHasher(tagBinary)
	h.mix(tagBinary, uint64(b.Op))
	h.mix(tagBinary, hashOf(b.Left))
	h.mix(tagBinary, hashOf(b.Right))
	return h.sum()
}

func (b *Binary) String() string {
	return "(" + exprString(b.Left) + " " + b.Op.String() + " " + exprString(b.Right) + ")"
}

// Kind implements Expr.
func (u *Unary) Kind() NodeType { return NodeUnary }

// Equal implements Expr.
func (u *Unary) Equal(other Expr) bool {
	o, ok := other.(*Unary)
	if !ok || o == nil {
		return false
	}
	if u == o {
		return true
	}
	return u.Op == o.Op && u.Hash() == o.Hash() && equal(u.Source, o.Source)
}

// Hash implements Expr.
func (u *Unary) Hash() uint64 {
	if u.hash == 0 {
		u.hash = u.computeHash()
	}
	return u.hash
}

func (u *Unary) computeHash() uint64 {
	h := newHasher(tagUnary)
	h.mix(tagUnary, uint64(u.Op))
	h.mix(tagUnary, hashOf(u.Source))
	return h.sum()
}

func (u *Unary) String() string {
	if u.Op.Waveform() {
		return u.Op.String() + "(" + exprString(u.Source) + ")"
	}
	return "(" + u.Op.String() + exprString(u.Source) + ")"
}

// Kind implements Expr.
func (s *Sequencer) Kind() NodeType { return NodeSequencer }

// Equal implements Expr.
func (s *Sequencer) Equal(other Expr) bool {
	o, ok := other.(*Sequencer)
	if !ok || o == nil {
		return false
	}
	if s == o {
		return true
	}
	if len(s.Items) != len(o.Items) || s.Hash() != o.Hash() {
		return false
	}
	for i := range s.Items {
		if !equal(s.Items[i], o.Items[i]) {
			return false
		}
	}
	return equal(s.Parameter, o.Parameter)
}

// Hash implements Expr.
func (s *Sequencer) Hash() uint64 {
	if s.hash == 0 {
		s.hash = s.computeHash()
	}
	return s.hash
}

func (s *Sequencer) computeHash() uint64 {
	h := newHasher(tagSequencer)
	h.mix(tagSequencer, uint64(len(s.Items)))
	for _, item := range s.Items {
		h.mix(tagSequencer, hashOf(item))
	}
	h.mix(tagSequencer, hashOf(s.Parameter))
	return h.sum()
}

func (s *Sequencer) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, item := range s.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(exprString(item))
	}
	sb.WriteString("](")
	sb.WriteString(exprString(s.Parameter))
	sb.WriteByte(')')
	return sb.String()
}

// Equal reports whether a and b are structurally equal. Two nil expressions
// are equal.
func Equal(a, b Expr) bool {
	return equal(a, b)
}

func equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func exprString(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

// Walk calls fn for e and every descendant in pre-order. Shared subtrees are
// visited once per reference. Returning false from fn skips the children of
// that node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Unary:
		Walk(n.Source, fn)
	case *Sequencer:
		for _, item := range n.Items {
			Walk(item, fn)
		}
		Walk(n.Parameter, fn)
	}
}

// Count returns the number of nodes in the tree rooted at e.
func Count(e Expr) int {
	n := 0
	Walk(e, func(Expr) bool {
		n++
		return true
	})
	return n
}

// Describe returns a short human-readable label for diagnostics.
func Describe(e Expr) string {
	switch n := e.(type) {
	case nil:
		return "<nil>"
	case *Binary:
		return fmt.Sprintf("%s %q", n.Kind(), n.Op.String())
	case *Unary:
		return fmt.Sprintf("%s %q", n.Kind(), n.Op.String())
	case *Sequencer:
		return fmt.Sprintf("%s of %d", n.Kind(), len(n.Items))
	default:
		return string(e.Kind())
	}
}
