// Package argument implements the argument accumulator component (J): the
// running code/linear/quadratic polynomials that stage2 folds every
// committed row into under Fiat-Shamir challenges, and stage3/the verifier
// re-derive in lockstep. Grounded on original_source/include/zkp/argument.hpp
// (nonbatch_argument's update_code/update_linear/update_quadratic FMA
// shapes).
package argument

import "github.com/luxfi/ligetron-iop/field"

// Challenge is anything that can hand out fresh uniform field elements --
// package prng's engines satisfy this structurally, same as rs.RandomSource
// and arena.RandomSource.
type Challenge interface {
	UniformInField() field.Elem
}

// Accumulator holds one repetition's running code/linear/quadratic
// polynomials, each of codeword length n.
type Accumulator struct {
	Code   []field.Elem
	Linear []field.Elem
	Quad   []field.Elem
}

// New allocates a zeroed Accumulator for codeword length n.
func New(n int) *Accumulator {
	return &Accumulator{
		Code:   make([]field.Elem, n),
		Linear: make([]field.Elem, n),
		Quad:   make([]field.Elem, n),
	}
}

// AccumulateCode folds a row codeword into the code argument:
// code <- code + r*codeword, per the source's update_code.
func (a *Accumulator) AccumulateCode(r field.Elem, codeword []field.Elem) {
	field.FMA(a.Code, r, codeword)
}

// AccumulateLinear folds a row codeword against its own per-test randomness
// codeword (already RS-encoded) into the linear argument:
// linear <- linear + codeword .* randCodeword, per the source's
// update_linear(poly, rand) element-wise product-and-add.
func (a *Accumulator) AccumulateLinear(codeword, randCodeword []field.Elem) {
	for i := range a.Linear {
		a.Linear[i] = a.Linear[i].Add(codeword[i].Mul(randCodeword[i]))
	}
}

// AccumulateQuadratic folds a (ql,qr,qo) row triple into the quadratic
// argument: quad <- quad + r*(x.*y - z), per the source's update_quadratic.
func (a *Accumulator) AccumulateQuadratic(r field.Elem, x, y, z []field.Elem) {
	for i := range a.Quad {
		diff := x[i].Mul(y[i]).Sub(z[i])
		a.Quad[i] = a.Quad[i].Add(r.Mul(diff))
	}
}

// Group manages T_code/T_lin/T_quad independent repetitions (§4.J: "for each
// of T_code, T_lin, T_quad independent repetitions, holds a running
// length-n polynomial"), each driven by its own challenge stream, and
// exposes the combined (summed) polynomial per class that the proof blob
// actually serializes -- summing independent zero-arguments is itself a
// valid zero-argument, so the wire format only ever needs one polynomial
// per class (§6 item 5/6/7) regardless of repetition count.
type Group struct {
	n int

	code   []*Accumulator
	codeCh []Challenge

	lin []*Accumulator

	quad   []*Accumulator
	quadCh []Challenge
}

// NewGroup builds a Group with tCode/tLin/tQuad repetitions of codeword
// length n, drawing one fresh Challenge per code/quadratic repetition from
// newChallenge (the linear repetitions reuse the per-row randomness
// polynomials already produced by package arena, so they need no challenge
// of their own).
func NewGroup(n, tCode, tLin, tQuad int, newChallenge func() Challenge) *Group {
	g := &Group{n: n}
	for i := 0; i < tCode; i++ {
		g.code = append(g.code, New(n))
		g.codeCh = append(g.codeCh, newChallenge())
	}
	for i := 0; i < tLin; i++ {
		g.lin = append(g.lin, New(n))
	}
	for i := 0; i < tQuad; i++ {
		g.quad = append(g.quad, New(n))
		g.quadCh = append(g.quadCh, newChallenge())
	}
	return g
}

// AccumulateRowCode folds codeword into every code repetition.
func (g *Group) AccumulateRowCode(codeword []field.Elem) {
	for i, acc := range g.code {
		acc.AccumulateCode(g.codeCh[i].UniformInField(), codeword)
	}
}

// AccumulateRowLinear folds codeword against the ri-th per-test randomness
// codeword into the ri-th linear repetition.
func (g *Group) AccumulateRowLinear(ri int, codeword, randCodeword []field.Elem) {
	g.lin[ri].AccumulateLinear(codeword, randCodeword)
}

// AccumulateRowQuad folds a (ql,qr,qo) codeword triple into every quadratic
// repetition.
func (g *Group) AccumulateRowQuad(x, y, z []field.Elem) {
	for i, acc := range g.quad {
		acc.AccumulateQuadratic(g.quadCh[i].UniformInField(), x, y, z)
	}
}

// CombinedCode sums every code repetition's polynomial into one.
func (g *Group) CombinedCode() []field.Elem { return combine(g.n, g.code, func(a *Accumulator) []field.Elem { return a.Code }) }

// CombinedLinear sums every linear repetition's polynomial into one.
func (g *Group) CombinedLinear() []field.Elem {
	return combine(g.n, g.lin, func(a *Accumulator) []field.Elem { return a.Linear })
}

// CombinedQuad sums every quadratic repetition's polynomial into one.
func (g *Group) CombinedQuad() []field.Elem {
	return combine(g.n, g.quad, func(a *Accumulator) []field.Elem { return a.Quad })
}

func combine(n int, accs []*Accumulator, pick func(*Accumulator) []field.Elem) []field.Elem {
	out := make([]field.Elem, n)
	for _, a := range accs {
		field.AddVec(out, out, pick(a))
	}
	return out
}
