// Package lower implements the opcode lowering component (H): for every
// 32-bit bytecode opcode it builds the algebraic circuit of linear and
// quadratic constraints package constraint/arena describe, and satisfies
// package vm's Flavour interface so the same interpreter in package vm
// drives stage1/2/3 (package iop) through identical control flow, just with
// different constraint-emission/commitment side effects installed on the
// shared package arena.Arena underneath.
//
// §9 Open Question 3 is resolved here as option (a): any 64-bit arithmetic
// opcode reaching a constrained Flavour is rejected with ErrUnconstrained64
// rather than silently executing unconstrained, matching DESIGN.md's
// decision record. Only package reference's plain flavour executes i64
// concretely.
package lower

import (
	"errors"

	"github.com/luxfi/ligetron-iop/arena"
	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/constraint"
	"github.com/luxfi/ligetron-iop/field"
	"github.com/luxfi/ligetron-iop/vm"
)

// ErrUnconstrained64 is returned when a 64-bit arithmetic or comparison
// opcode appears under a constrained execution flavour.
var ErrUnconstrained64 = errors.New("lower: 64-bit arithmetic is not constrained")

var negOne = field.One.Neg()
var negTwo = field.New(2).Neg()

// bitCoeff is the field coefficient bit i contributes when recomposing 32
// bits back into a single two's-complement witness: 2^i for i<31, and
// -2^31 for the sign bit. Every recomposed witness is pushed as a signed
// int32 (arena.Ref.Val()'s two's-complement reading of the accumulated
// unsigned bit pattern), so the linear relation asserted against it must
// use the same -2^31 sign weight DecomposeBits32/IndexSignBit use when
// decomposing a witness in the other direction -- otherwise the relation
// the prover emits is unsatisfiable whenever the recomposed result's top
// bit is set, exactly the arena.IndexBit defect mirrored on the
// composition side.
func bitCoeff(i int) field.Elem {
	if i == 31 {
		return field.New(uint64(1) << 31).Neg()
	}
	return field.New(uint64(1) << uint(i))
}

// Flavour is the constrained vm.Flavour: every opcode result carries both a
// concrete value (the prover's witness, needed for control flow and for
// computing the next concrete value) and an arena.Ref tying it into the
// committed execution trace.
type Flavour struct {
	E *constraint.Emitter
}

// New wraps an Emitter as a constrained Flavour.
func New(e *constraint.Emitter) *Flavour { return &Flavour{E: e} }

func (f *Flavour) Const(v int32) (vm.Value, error) {
	ref, err := f.E.EmitConst(v)
	if err != nil {
		return vm.Value{}, err
	}
	return vm.I32Value(v).WithRef(ref), nil
}

// ConstI64 is unconstrained per §9 Q3: the value is carried concretely with
// no witness ref, so any later arithmetic on it is rejected by Binary/
// Compare/Unary rather than silently unproved.
func (f *Flavour) ConstI64(v int64) (vm.Value, error) {
	return vm.I64Value(v), nil
}

func (f *Flavour) Unary(op bytecode.Op, x vm.Value) (vm.Value, error) {
	if x.Is64 {
		return vm.Value{}, ErrUnconstrained64
	}
	switch op {
	case bytecode.OpEqz:
		ref, err := f.eqz(x.Ref)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.I32Value(ref.Val()).WithRef(ref), nil
	}
	return vm.Value{}, vm.ErrInvalidOpcode
}

func (f *Flavour) Binary(op bytecode.Op, x, y vm.Value) (vm.Value, error) {
	if x.Is64 || y.Is64 {
		return vm.Value{}, ErrUnconstrained64
	}
	var ref arena.Ref
	var err error
	switch op {
	case bytecode.OpAdd:
		ref, err = f.E.EmitLinear(x.Ref, y.Ref)
	case bytecode.OpSub:
		ref, err = f.E.EmitSub(x.Ref, y.Ref)
	case bytecode.OpMul:
		ref, err = f.E.EmitQuad(x.Ref, y.Ref)
	case bytecode.OpDivS:
		if y.I32 == 0 {
			return vm.Value{}, vm.ErrDivByZero
		}
		ref, err = f.E.EmitDiv(x.Ref, y.Ref, x.I32/y.I32)
	case bytecode.OpDivU:
		if y.I32 == 0 {
			return vm.Value{}, vm.ErrDivByZero
		}
		ref, err = f.E.EmitDiv(x.Ref, y.Ref, int32(uint32(x.I32)/uint32(y.I32)))
	case bytecode.OpRemS:
		if y.I32 == 0 {
			return vm.Value{}, vm.ErrDivByZero
		}
		ref, err = f.E.EmitRem(x.Ref, y.Ref, x.I32/y.I32, x.I32%y.I32)
	case bytecode.OpRemU:
		if y.I32 == 0 {
			return vm.Value{}, vm.ErrDivByZero
		}
		ux, uy := uint32(x.I32), uint32(y.I32)
		ref, err = f.E.EmitRem(x.Ref, y.Ref, int32(ux/uy), int32(ux%uy))
	case bytecode.OpAnd, bytecode.OpOr, bytecode.OpXor:
		ref, err = f.bitwise(op, x.Ref, y.Ref)
	case bytecode.OpShl, bytecode.OpShrU, bytecode.OpShrS, bytecode.OpRotl, bytecode.OpRotr:
		ref, err = f.shiftRotate(op, x.Ref, uint(uint32(y.I32)))
	default:
		return vm.Value{}, vm.ErrInvalidOpcode
	}
	if err != nil {
		return vm.Value{}, err
	}
	return vm.I32Value(ref.Val()).WithRef(ref), nil
}

func (f *Flavour) Compare(op bytecode.Op, x, y vm.Value) (vm.Value, error) {
	if x.Is64 || y.Is64 {
		return vm.Value{}, ErrUnconstrained64
	}
	var ref arena.Ref
	var err error
	switch op {
	case bytecode.OpEq:
		ref, err = f.eq(x.Ref, y.Ref)
	case bytecode.OpNe:
		ref, err = f.ne(x.Ref, y.Ref)
	case bytecode.OpLtS:
		ref, err = f.ltS(x.Ref, y.Ref)
	case bytecode.OpLeS:
		ref, err = f.leS(x.Ref, y.Ref)
	case bytecode.OpGtS:
		ref, err = f.ltS(y.Ref, x.Ref)
	case bytecode.OpGeS:
		ref, err = f.leS(y.Ref, x.Ref)
	case bytecode.OpLtU, bytecode.OpLeU, bytecode.OpGtU, bytecode.OpGeU:
		ref, err = f.unsignedCompare(op, x.Ref, y.Ref)
	default:
		return vm.Value{}, vm.ErrInvalidOpcode
	}
	if err != nil {
		return vm.Value{}, err
	}
	return vm.I32Value(ref.Val()).WithRef(ref), nil
}

// eqz lowers §4.H's `eqz` opcode: the product over all 32 bits of (1-bit_i),
// which is 1 only when every bit of x is zero.
func (f *Flavour) eqz(x arena.Ref) (arena.Ref, error) {
	bits, err := f.E.DecomposeBits32(x)
	if err != nil {
		return arena.Ref{}, err
	}
	one, err := f.E.EmitConst(1)
	if err != nil {
		return arena.Ref{}, err
	}
	acc, err := f.notBit(one, bits[0])
	if err != nil {
		return arena.Ref{}, err
	}
	for i := 1; i < 32; i++ {
		nb, err := f.notBit(one, bits[i])
		if err != nil {
			return arena.Ref{}, err
		}
		acc, err = f.E.EmitQuad(acc, nb)
		if err != nil {
			return arena.Ref{}, err
		}
	}
	return acc, nil
}

// notBit computes 1 - bit via a public-coefficient linear combination.
func (f *Flavour) notBit(one, bit arena.Ref) (arena.Ref, error) {
	return f.E.EmitLinearCombo(1-bit.Val(), []arena.LinearTerm{
		{Ref: one, Coeff: field.One},
		{Ref: bit, Coeff: negOne},
	})
}

// eq lowers `eq` as eqz(x-y), per §4.H.
func (f *Flavour) eq(x, y arena.Ref) (arena.Ref, error) {
	diff, err := f.E.EmitSub(x, y)
	if err != nil {
		return arena.Ref{}, err
	}
	return f.eqz(diff)
}

// ne lowers `ne` as 1 - eq(x,y), per §4.H.
func (f *Flavour) ne(x, y arena.Ref) (arena.Ref, error) {
	e, err := f.eq(x, y)
	if err != nil {
		return arena.Ref{}, err
	}
	one, err := f.E.EmitConst(1)
	if err != nil {
		return arena.Ref{}, err
	}
	return f.notBit(one, e)
}

// ltS lowers `lt_s x y` as (1-bit31(y-x)) * (1-eqz(y-x)), §4.H's signed
// less-than circuit.
func (f *Flavour) ltS(x, y arena.Ref) (arena.Ref, error) {
	diff, err := f.E.EmitSub(y, x)
	if err != nil {
		return arena.Ref{}, err
	}
	bits, err := f.E.DecomposeBits32(diff)
	if err != nil {
		return arena.Ref{}, err
	}
	one, err := f.E.EmitConst(1)
	if err != nil {
		return arena.Ref{}, err
	}
	notSign, err := f.notBit(one, bits[31])
	if err != nil {
		return arena.Ref{}, err
	}
	eqDiff, err := f.eqz(diff)
	if err != nil {
		return arena.Ref{}, err
	}
	notEq, err := f.notBit(one, eqDiff)
	if err != nil {
		return arena.Ref{}, err
	}
	return f.E.EmitQuad(notSign, notEq)
}

// leS lowers `le_s x y` as 1 - bit31(y-x), §4.H's signed less-equal circuit.
func (f *Flavour) leS(x, y arena.Ref) (arena.Ref, error) {
	diff, err := f.E.EmitSub(y, x)
	if err != nil {
		return arena.Ref{}, err
	}
	bits, err := f.E.DecomposeBits32(diff)
	if err != nil {
		return arena.Ref{}, err
	}
	one, err := f.E.EmitConst(1)
	if err != nil {
		return arena.Ref{}, err
	}
	return f.notBit(one, bits[31])
}

// unsignedCompare reduces an unsigned comparison to the signed one via the
// standard sign-bit-flip trick (x <u y  <=>  (x xor 0x80000000) <s (y xor
// 0x80000000)), so it reuses the exact-31-bit decomposition already built
// for the signed circuits instead of a separate unsigned borrow circuit.
func (f *Flavour) unsignedCompare(op bytecode.Op, x, y arena.Ref) (arena.Ref, error) {
	fx, err := f.flipSignBit(x)
	if err != nil {
		return arena.Ref{}, err
	}
	fy, err := f.flipSignBit(y)
	if err != nil {
		return arena.Ref{}, err
	}
	switch op {
	case bytecode.OpLtU:
		return f.ltS(fx, fy)
	case bytecode.OpLeU:
		return f.leS(fx, fy)
	case bytecode.OpGtU:
		return f.ltS(fy, fx)
	default: // OpGeU
		return f.leS(fy, fx)
	}
}

func (f *Flavour) flipSignBit(x arena.Ref) (arena.Ref, error) {
	bits, err := f.E.DecomposeBits32(x)
	if err != nil {
		return arena.Ref{}, err
	}
	one, err := f.E.EmitConst(1)
	if err != nil {
		return arena.Ref{}, err
	}
	inv, err := f.notBit(one, bits[31])
	if err != nil {
		return arena.Ref{}, err
	}
	terms := make([]arena.LinearTerm, 32)
	value := uint32(0)
	for i := 0; i < 31; i++ {
		terms[i] = arena.LinearTerm{Ref: bits[i], Coeff: bitCoeff(i)}
		if bits[i].Val() != 0 {
			value |= uint32(1) << uint(i)
		}
	}
	terms[31] = arena.LinearTerm{Ref: inv, Coeff: bitCoeff(31)}
	if inv.Val() != 0 {
		value |= uint32(1) << 31
	}
	return f.E.EmitLinearCombo(int32(value), terms)
}

// bitwise lowers and/or/xor per §4.H: bit-decompose both operands, apply
// the per-bit identity (and=ab, or=a+b-ab, xor=a+b-2ab), then recompose the
// 32 result bits back into a single witness.
func (f *Flavour) bitwise(op bytecode.Op, x, y arena.Ref) (arena.Ref, error) {
	xb, err := f.E.DecomposeBits32(x)
	if err != nil {
		return arena.Ref{}, err
	}
	yb, err := f.E.DecomposeBits32(y)
	if err != nil {
		return arena.Ref{}, err
	}

	resultBits := make([]arena.Ref, 32)
	for i := 0; i < 32; i++ {
		ab, err := f.E.EmitQuad(xb[i], yb[i])
		if err != nil {
			return arena.Ref{}, err
		}
		switch op {
		case bytecode.OpAnd:
			resultBits[i] = ab
		case bytecode.OpOr:
			v := xb[i].Val() + yb[i].Val() - ab.Val()
			resultBits[i], err = f.E.EmitLinearCombo(v, []arena.LinearTerm{
				{Ref: xb[i], Coeff: field.One},
				{Ref: yb[i], Coeff: field.One},
				{Ref: ab, Coeff: negOne},
			})
		case bytecode.OpXor:
			v := xb[i].Val() + yb[i].Val() - 2*ab.Val()
			resultBits[i], err = f.E.EmitLinearCombo(v, []arena.LinearTerm{
				{Ref: xb[i], Coeff: field.One},
				{Ref: yb[i], Coeff: field.One},
				{Ref: ab, Coeff: negTwo},
			})
		}
		if err != nil {
			return arena.Ref{}, err
		}
	}
	return recompose(f.E, resultBits)
}

// shiftRotate lowers shl/shr_u/shr_s/rotl/rotr per §4.H: the shift amount k
// is public (read from the concrete stack value, never constrained), so
// every result bit is just a public reindexing of the operand's decomposed
// bits (with shr_s's vacated high bits filled from the sign bit), recomposed
// into one witness -- exact (no truncation leak), unlike a scalar-multiply
// approximation would be for shr/rotr.
func (f *Flavour) shiftRotate(op bytecode.Op, x arena.Ref, k uint) (arena.Ref, error) {
	bits, err := f.E.DecomposeBits32(x)
	if err != nil {
		return arena.Ref{}, err
	}
	k &= 31
	sign := bits[31]
	resultBits := make([]arena.Ref, 32)
	for j := uint(0); j < 32; j++ {
		switch op {
		case bytecode.OpShl:
			if j >= k {
				resultBits[j] = bits[j-k]
			} else {
				resultBits[j] = arena.Ref{}
			}
		case bytecode.OpShrU:
			if j+k < 32 {
				resultBits[j] = bits[j+k]
			}
		case bytecode.OpShrS:
			if j+k < 32 {
				resultBits[j] = bits[j+k]
			} else {
				resultBits[j] = sign
			}
		case bytecode.OpRotl:
			resultBits[j] = bits[(j+32-k)%32]
		case bytecode.OpRotr:
			resultBits[j] = bits[(j+k)%32]
		}
	}
	return recomposeSparse(f.E, resultBits)
}

// recompose ties a fresh witness to Σ bitCoeff(i) * bits[i] (i.e. 2^i for
// i<31 and -2^31 for the sign bit), per §4.E's bit decomposition invariant
// run in reverse: the witness this builds is pushed as a signed int32 (see
// bitCoeff), so the sign bit needs the same negative weight DecomposeBits32
// gives it when decomposing in the forward direction.
func recompose(e *constraint.Emitter, bits []arena.Ref) (arena.Ref, error) {
	terms := make([]arena.LinearTerm, len(bits))
	value := uint32(0)
	for i, b := range bits {
		terms[i] = arena.LinearTerm{Ref: b, Coeff: bitCoeff(i)}
		if b.Val() != 0 {
			value |= uint32(1) << uint(i)
		}
	}
	return e.EmitLinearCombo(int32(value), terms)
}

// recomposeSparse is recompose but tolerates zero-valued (unset) Refs for
// shl's vacated low-order positions, which contribute nothing to the sum
// and need no term at all.
func recomposeSparse(e *constraint.Emitter, bits []arena.Ref) (arena.Ref, error) {
	var terms []arena.LinearTerm
	value := uint32(0)
	for i, b := range bits {
		if b == (arena.Ref{}) {
			continue
		}
		terms = append(terms, arena.LinearTerm{Ref: b, Coeff: bitCoeff(i)})
		if b.Val() != 0 {
			value |= uint32(1) << uint(i)
		}
	}
	return e.EmitLinearCombo(int32(value), terms)
}
