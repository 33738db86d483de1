package arena

import "github.com/luxfi/ligetron-iop/field"

// OnLinearFunc and OnQuadFunc are the callbacks an Arena invokes whenever a
// generation of rows is complete and ready to be absorbed into the Merkle
// commitment -- the Go expression of the source's on_linear_/on_quad_
// std::function members.
type OnLinearFunc func(*Row)
type OnQuadFunc func(ql, qr, qo *Row)

// Arena manages the active linear row and the three lock-step quadratic
// rows (ql, qr, qo) a program's constraints are packed into, replacing full
// rows via MarkAndSweep and handing completed generations off to the
// supplied callbacks.
type Arena struct {
	capacity      int
	numLinearTest int
	dist          RandomSource

	linear []*Row // stack of linear generations; last is the active one
	quadL  *Row
	quadR  *Row
	quadO  *Row

	nextLinear *Row
	nextQL     *Row
	nextQR     *Row
	nextQO     *Row

	onLinear OnLinearFunc
	onQuad   OnQuadFunc
}

// NewArena allocates an Arena with one initial linear row and one
// quadratic triple, all of the given capacity.
func NewArena(capacity, numLinearTest int, dist RandomSource) *Arena {
	a := &Arena{
		capacity:      capacity,
		numLinearTest: numLinearTest,
		dist:          dist,
		quadL:         NewRow(capacity, numLinearTest),
		quadR:         NewRow(capacity, numLinearTest),
		quadO:         NewRow(capacity, numLinearTest),
		nextLinear:    NewRow(capacity, numLinearTest),
		nextQL:        NewRow(capacity, numLinearTest),
		nextQR:        NewRow(capacity, numLinearTest),
		nextQO:        NewRow(capacity, numLinearTest),
	}
	a.linear = append(a.linear, NewRow(capacity, numLinearTest))
	return a
}

// OnLinear registers the callback invoked each time a linear row is
// replaced or finalized.
func (a *Arena) OnLinear(f OnLinearFunc) { a.onLinear = f }

// OnQuad registers the callback invoked each time the quadratic triple is
// replaced or finalized.
func (a *Arena) OnQuad(f OnQuadFunc) { a.onQuad = f }

func (a *Arena) activeLinear() *Row { return a.linear[len(a.linear)-1] }

func (a *Arena) replaceLinear() error {
	row := a.activeLinear()
	if _, err := row.MarkAndSweep(a.nextLinear, a.dist, nil); err != nil {
		return err
	}
	a.linear[len(a.linear)-1], a.nextLinear = a.nextLinear, row
	if a.onLinear != nil {
		a.onLinear(a.nextLinear)
	}
	if err := a.nextLinear.Reset(); err != nil {
		return err
	}
	return nil
}

func (a *Arena) replaceQuadratic() error {
	currLinear := a.activeLinear()

	recursed, err := a.quadL.MarkAndSweep(currLinear, a.dist, a.nextLinear)
	if err != nil {
		return err
	}
	if recursed {
		currLinear, a.nextLinear = a.nextLinear, currLinear
		a.linear[len(a.linear)-1] = currLinear
		if a.onLinear != nil {
			a.onLinear(a.nextLinear)
		}
		if err := a.nextLinear.Reset(); err != nil {
			return err
		}
	}

	recursed, err = a.quadR.MarkAndSweep(currLinear, a.dist, a.nextLinear)
	if err != nil {
		return err
	}
	if recursed {
		currLinear, a.nextLinear = a.nextLinear, currLinear
		a.linear[len(a.linear)-1] = currLinear
		if a.onLinear != nil {
			a.onLinear(a.nextLinear)
		}
		if err := a.nextLinear.Reset(); err != nil {
			return err
		}
	}

	recursed, err = a.quadO.MarkAndSweep(currLinear, a.dist, a.nextLinear)
	if err != nil {
		return err
	}
	if recursed {
		currLinear, a.nextLinear = a.nextLinear, currLinear
		a.linear[len(a.linear)-1] = currLinear
		if a.onLinear != nil {
			a.onLinear(a.nextLinear)
		}
		if err := a.nextLinear.Reset(); err != nil {
			return err
		}
	}

	a.quadL, a.nextQL = a.nextQL, a.quadL
	a.quadR, a.nextQR = a.nextQR, a.quadR
	a.quadO, a.nextQO = a.nextQO, a.quadO

	if a.onQuad != nil {
		a.onQuad(a.nextQL, a.nextQR, a.nextQO)
	}
	if err := a.nextQL.Reset(); err != nil {
		return err
	}
	if err := a.nextQR.Reset(); err != nil {
		return err
	}
	return a.nextQO.Reset()
}

// PushLinear appends val to the active linear row, replacing it first if
// full.
func (a *Arena) PushLinear(val int32) (Ref, error) {
	if !a.activeLinear().Available() {
		if err := a.replaceLinear(); err != nil {
			return Ref{}, err
		}
	}
	return a.activeLinear().PushBack(val)
}

func (a *Arena) pushQuad(row *Row, val int32) (Ref, error) {
	if !row.Available() {
		if err := a.replaceQuadratic(); err != nil {
			return Ref{}, err
		}
		row = a.rowFor(row)
	}
	return row.PushBack(val)
}

// rowFor resolves which of the (possibly just-swapped) quad rows `row`
// refers to, by role rather than by stale pointer.
func (a *Arena) rowFor(prev *Row) *Row {
	switch prev {
	case a.quadL, a.nextQL:
		return a.quadL
	case a.quadR, a.nextQR:
		return a.quadR
	default:
		return a.quadO
	}
}

// buildEqual adjusts z and x's randomness so an equality constraint z == x
// holds across the per-test linear check, per the source's build_equal.
func (a *Arena) buildEqual(z, x Ref) {
	a.BuildEqual(z, x)
}

// BuildEqual adjusts z and x's randomness so an equality constraint z == x
// holds across the per-test linear check, per the source's build_equal.
func (a *Arena) BuildEqual(z, x Ref) {
	if a.dist == nil {
		return
	}
	for ri := 0; ri < a.numLinearTest; ri++ {
		r := a.dist.UniformInField()
		z.SetRand(ri, z.Rand(ri).Sub(r))
		x.SetRand(ri, x.Rand(ri).Add(r))
	}
}

// BuildLinear adjusts z, x and y's randomness so a linear constraint
// z == x + y holds across the per-test linear check, per the source's
// build_linear.
func (a *Arena) BuildLinear(z, x, y Ref) {
	if a.dist == nil {
		return
	}
	for ri := 0; ri < a.numLinearTest; ri++ {
		r := a.dist.UniformInField()
		z.SetRand(ri, z.Rand(ri).Sub(r))
		x.SetRand(ri, x.Rand(ri).Add(r))
		y.SetRand(ri, y.Rand(ri).Add(r))
	}
}

// LinearTerm is one (ref, public-coefficient) pair in a linear combination
// relation, generalizing BuildLinear/BuildEqual's fixed unit coefficients.
type LinearTerm struct {
	Ref   Ref
	Coeff field.Elem
}

// BuildLinearCombo adjusts z and every term's randomness so that
// z == Σ term.Coeff * term.Ref holds across the per-test linear check. This
// is how package lower recomposes a bit decomposition back into a single
// witness (and/or/xor results, public shift-by-constant), generalizing the
// same "draw r, subtract from target, add scaled into sources" idiom
// BuildLinear and IndexBit already use for the unit-coefficient case.
func (a *Arena) BuildLinearCombo(z Ref, terms []LinearTerm) {
	if a.dist == nil {
		return
	}
	for ri := 0; ri < a.numLinearTest; ri++ {
		r := a.dist.UniformInField()
		z.SetRand(ri, z.Rand(ri).Sub(r))
		for _, t := range terms {
			contrib := r.Mul(t.Coeff)
			t.Ref.SetRand(ri, t.Ref.Rand(ri).Add(contrib))
		}
	}
}

// PushQuadTriple emits a full multiplication gate z = x*y, returning the
// refs for the left, right and output wires (ql, qr, qo), building the
// equality relations that tie ql/qr back to the caller-supplied x/y values.
func (a *Arena) PushQuadTriple(x, y Ref) (rl, rr, ro Ref, err error) {
	rl, err = a.pushQuad(a.quadL, x.Val())
	if err != nil {
		return
	}
	a.buildEqual(rl, x)

	rr, err = a.pushQuad(a.quadR, y.Val())
	if err != nil {
		return
	}
	a.buildEqual(rr, y)

	z := x.Val() * y.Val()
	ro, err = a.pushQuad(a.quadO, z)
	return
}

// PushDivTriple emits a division gate x = z*y (so z = x/y for y != 0),
// returning the quotient ref first, matching the source's divide().
func (a *Arena) PushDivTriple(x, y Ref, quotient int32) (rl, rr, ro Ref, err error) {
	rl, err = a.pushQuad(a.quadL, quotient)
	if err != nil {
		return
	}

	rr, err = a.pushQuad(a.quadR, y.Val())
	if err != nil {
		return
	}
	a.buildEqual(rr, y)

	ro, err = a.pushQuad(a.quadO, x.Val())
	a.buildEqual(ro, x)
	return
}

// IndexBit extracts bit i of x as a quadratic triple bit*bit=bit (a boolean
// constraint), and rebalances the randomness of the two per-test
// "decomposed" helper values (left, right) the caller supplies from
// earlier AdjustRandom calls, per the source's index().
func (a *Arena) IndexBit(x Ref, i uint, decomposed []DecomposedRandom) (Ref, error) {
	return a.indexBit(x, i, decomposed, field.New(uint64(1)<<i))
}

// IndexSignBit is IndexBit specialised for the top bit of a signed 32-bit
// value: the source's index_sign() uses shift = -2^i (here i is always 31)
// instead of +2^i, so the linear recomposition Σ 2^i·bit_i(x) lands on x's
// *signed* value rather than its unsigned one. Without this, a negative x
// (committed via the field's signed encoding) can never satisfy the
// decomposition's linear check.
func (a *Arena) IndexSignBit(x Ref, i uint, decomposed []DecomposedRandom) (Ref, error) {
	return a.indexBit(x, i, decomposed, field.New(uint64(1)<<i).Neg())
}

func (a *Arena) indexBit(x Ref, i uint, decomposed []DecomposedRandom, shift field.Elem) (Ref, error) {
	bit := int32((uint32(x.Val()) >> i) & 1)
	rl, err := a.pushQuad(a.quadL, bit)
	if err != nil {
		return Ref{}, err
	}
	rr, err := a.pushQuad(a.quadR, bit)
	if err != nil {
		return Ref{}, err
	}
	ro, err := a.pushQuad(a.quadO, bit)
	if err != nil {
		return Ref{}, err
	}

	if a.dist != nil {
		for ri := 0; ri < a.numLinearTest; ri++ {
			l := rl.Rand(ri)
			r := rr.Rand(ri)
			rl.SetRand(ri, l.Add(decomposed[ri].Left.Mul(shift)))
			rr.SetRand(ri, r.Add(decomposed[ri].Right.Mul(shift)))
		}
	}
	return ro, nil
}

// DecomposedRandom is one per-test pair of helper randomness values used
// while reassembling bit decompositions back into a checked value (left/
// right mirror the source's std::pair<field_type,field_type>).
type DecomposedRandom struct {
	Left  field.Elem
	Right field.Elem
}

// AdjustRandom draws a fresh pair (rl, rr) for test index ri, folds it into
// ref's own randomness so the bit-decomposition relation stays balanced,
// and returns the pair so the caller can fold it into every extracted bit
// via IndexBit, mirroring the source's adjust_random. With no RandomSource
// it leaves ref untouched and returns a zero pair.
func (a *Arena) AdjustRandom(ref Ref, ri int) DecomposedRandom {
	if a.dist == nil {
		return DecomposedRandom{}
	}
	rf := ref.Rand(ri)
	rl := a.dist.UniformInField()
	rr := a.dist.UniformInField()
	ref.SetRand(ri, rf.Sub(rl).Sub(rr))
	return DecomposedRandom{Left: rl, Right: rr}
}

// DecomposeBits32 extracts all 32 bits of x (LSB first), wiring each bit's
// randomness so that Σ 2^i·bit_i(x) == x holds in the linear check: one
// AdjustRandom call per linear test produces the (left, right) shares
// IndexBit distributes across every bit's ql/qr columns.
func (a *Arena) DecomposeBits32(x Ref) ([32]Ref, error) {
	var bits [32]Ref
	decomposed := make([]DecomposedRandom, a.numLinearTest)
	for ri := 0; ri < a.numLinearTest; ri++ {
		decomposed[ri] = a.AdjustRandom(x, ri)
	}
	for i := uint(0); i < 31; i++ {
		ref, err := a.IndexBit(x, i, decomposed)
		if err != nil {
			return bits, err
		}
		bits[i] = ref
	}
	signRef, err := a.IndexSignBit(x, 31, decomposed)
	if err != nil {
		return bits, err
	}
	bits[31] = signRef
	return bits, nil
}

// Finalize flushes every row (including any linear generations kept only
// because they still held live references at the time they filled up)
// through the registered callbacks, draining the arena at the end of a
// program's execution.
func (a *Arena) Finalize() {
	for _, row := range a.linear {
		if a.onLinear != nil {
			a.onLinear(row)
		}
	}
	if a.onQuad != nil {
		a.onQuad(a.quadL, a.quadR, a.quadO)
	}
}
