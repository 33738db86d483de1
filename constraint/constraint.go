// Package constraint implements the emitter component (F): a thin recording
// layer over package arena that turns VM-level operations into algebraic
// relations (linear triples and quadratic triples) without the caller ever
// touching row bookkeeping directly.
package constraint

import "github.com/luxfi/ligetron-iop/arena"

// Emitter wraps an arena.Arena, exposing the three relation-building
// primitives the lowering package needs: emit_linear, emit_quad and
// emit_equal, per the source's relation.hpp linear/quadratic eval() shape.
type Emitter struct {
	a *arena.Arena
}

// NewEmitter wraps the given arena.
func NewEmitter(a *arena.Arena) *Emitter { return &Emitter{a: a} }

// Arena exposes the underlying arena for callers (e.g. the lowering
// package's bit-decomposition helpers) that need direct row access.
func (e *Emitter) Arena() *arena.Arena { return e.a }

// EmitConst records a constant value as a fresh linear-row entry, for
// opcodes (i32.const, ...) whose witness value needs no incoming wires.
func (e *Emitter) EmitConst(v int32) (arena.Ref, error) {
	return e.a.PushLinear(v)
}

// EmitLinear records z = x + y, mirroring the source's build_linear: it
// produces a fresh ref for z holding val x+y and balances the accompanying
// per-test randomness so the relation checks out. Subtraction goes through
// EmitSub.
func (e *Emitter) EmitLinear(x, y arena.Ref) (arena.Ref, error) {
	z, err := e.a.PushLinear(x.Val() + y.Val())
	if err != nil {
		return arena.Ref{}, err
	}
	e.a.BuildLinear(z, x, y)
	return z, nil
}

// EmitLinearConst records z = x + c for a public constant c folded directly
// into the witness value (no extra wire needed on the constant side).
func (e *Emitter) EmitLinearConst(x arena.Ref, c int32) (arena.Ref, error) {
	z, err := e.a.PushLinear(x.Val() + c)
	if err != nil {
		return arena.Ref{}, err
	}
	e.a.BuildEqual(z, x)
	return z, nil
}

// EmitSub records z = x - y (as the linear relation x == z + y, per §4.H's
// "emit (z, y, x) as linear (so z + y = x)"), returning the output wire.
func (e *Emitter) EmitSub(x, y arena.Ref) (arena.Ref, error) {
	z, err := e.a.PushLinear(x.Val() - y.Val())
	if err != nil {
		return arena.Ref{}, err
	}
	e.a.BuildLinear(x, z, y)
	return z, nil
}

// EmitLinearCombo records a fresh witness equal to value and ties it to a
// public-coefficient linear combination of existing refs (z == Σ coeff*ref),
// used by package lower to recompose bit decompositions.
func (e *Emitter) EmitLinearCombo(value int32, terms []arena.LinearTerm) (arena.Ref, error) {
	z, err := e.a.PushLinear(value)
	if err != nil {
		return arena.Ref{}, err
	}
	e.a.BuildLinearCombo(z, terms)
	return z, nil
}

// DecomposeBits32 bit-decomposes x into 32 boolean-constrained wires (LSB
// first), delegating to the arena's index/bit-decomposition helper.
func (e *Emitter) DecomposeBits32(x arena.Ref) ([32]arena.Ref, error) {
	return e.a.DecomposeBits32(x)
}

// EmitQuad records a full multiplication gate z = x*y via the arena's
// lock-step (ql, qr, qo) rows, returning the output wire.
func (e *Emitter) EmitQuad(x, y arena.Ref) (arena.Ref, error) {
	_, _, ro, err := e.a.PushQuadTriple(x, y)
	if err != nil {
		return arena.Ref{}, err
	}
	return ro, nil
}

// EmitDiv records a division gate: quotient*y = x for y != 0, returning the
// quotient wire. The caller supplies the already-computed concrete quotient
// (integer or field division, depending on flavour).
func (e *Emitter) EmitDiv(x, y arena.Ref, quotient int32) (arena.Ref, error) {
	rl, _, _, err := e.a.PushDivTriple(x, y, quotient)
	if err != nil {
		return arena.Ref{}, err
	}
	return rl, nil
}

// EmitRem records a remainder gate: quotient*y + remainder = x, for y != 0.
// The caller supplies both already-computed concrete values; the quotient
// wire is exposed in case the caller also needs it (e.g. rem_s wants only
// remainder, but the quotient must still be constrained to make the
// relation sound).
func (e *Emitter) EmitRem(x, y arena.Ref, quotient, remainder int32) (arena.Ref, error) {
	q, err := e.a.PushLinear(quotient)
	if err != nil {
		return arena.Ref{}, err
	}
	prod, err := e.EmitQuad(q, y)
	if err != nil {
		return arena.Ref{}, err
	}
	r, err := e.a.PushLinear(remainder)
	if err != nil {
		return arena.Ref{}, err
	}
	e.a.BuildLinear(x, prod, r)
	return r, nil
}

// EmitEqual pushes a fresh linear entry z holding x's value and records the
// equality constraint z == x, returning z (used when a value needs to be
// "re-anchored" in a fresh row, e.g. after a bit decomposition).
func (e *Emitter) EmitEqual(x arena.Ref) (arena.Ref, error) {
	z, err := e.a.PushLinear(x.Val())
	if err != nil {
		return arena.Ref{}, err
	}
	e.a.BuildEqual(z, x)
	return z, nil
}
