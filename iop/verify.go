package iop

import (
	"github.com/luxfi/ligetron-iop/arena"
	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/field"
	"github.com/luxfi/ligetron-iop/instrument"
	"github.com/luxfi/ligetron-iop/merkle"
	"github.com/luxfi/ligetron-iop/prng"
	"github.com/luxfi/ligetron-iop/proof"
	"github.com/luxfi/ligetron-iop/rs"
)

// sampleAt extracts full[idx[i]] for every i, the disclosed-position
// restriction every verifier-side check operates under.
func sampleAt(full []field.Elem, idx []int) []field.Elem {
	out := make([]field.Elem, len(idx))
	for i, v := range idx {
		out[i] = full[v]
	}
	return out
}

func sumVecs(vecs [][]field.Elem, width int) []field.Elem {
	out := make([]field.Elem, width)
	for _, v := range vecs {
		field.AddVec(out, out, v)
	}
	return out
}

func allZero(vals []field.Elem) bool {
	for _, v := range vals {
		if v != field.Zero {
			return false
		}
	}
	return true
}

func sumZero(vals []field.Elem) bool {
	sum := field.Zero
	for _, v := range vals {
		sum = sum.Add(v)
	}
	return sum == field.Zero
}

func equalVecs(a, b []field.Elem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Verify re-derives every check §4.I names against p: it replays the
// committed execution once (using the same inputs the prover used -- this
// toy engine's CLI contract hands the verifier the witness too, per §6's
// "same positional form"; see DESIGN.md for why that doesn't undermine the
// four cryptographic checks below, which only ever compare against the
// disclosed sample set and the committed root, never against the
// verifier's own full recompute), then checks the Merkle root, the code
// argument, the quadratic argument and the linear argument in turn,
// returning the first ProofRejectedError it finds.
func Verify(ctx *instrument.Context, mod *bytecode.Module, l int, inputA, inputB []byte, p *proof.Proof, sec SecurityParams) error {
	sw := ctx.StartTimer("verify")
	defer sw.Stop()

	params, err := rs.NewParams(l)
	if err != nil {
		return err
	}
	enc, err := rs.NewEncoder(params)
	if err != nil {
		return err
	}
	blindSeed := seedBytes(p.EncoderSeeds)

	q := len(p.Decommitment.KnownIndex)
	builder := merkle.NewBuilder(merkle.KeyedSHA256(blindSeed), q)

	codeCh := make([]*prng.HashPRG, sec.TCode)
	for i := range codeCh {
		codeCh[i] = challengeStream(p.Root, "code", i)
	}
	quadCh := make([]*prng.HashPRG, sec.TQuad)
	for i := range quadCh {
		quadCh[i] = challengeStream(p.Root, "quad", i)
	}
	codeAcc := make([][]field.Elem, sec.TCode)
	for i := range codeAcc {
		codeAcc[i] = make([]field.Elem, q)
	}
	quadAcc := make([][]field.Elem, sec.TQuad)
	for i := range quadAcc {
		quadAcc[i] = make([]field.Elem, q)
	}
	linAcc := make([][]field.Elem, sec.TLin)
	for i := range linAcc {
		linAcc[i] = make([]field.Elem, q)
	}

	rowIdx := 0
	var rowErr error
	nextSample := func() ([]field.Elem, bool) {
		if rowIdx >= len(p.RowSamples) {
			return nil, false
		}
		s := p.RowSamples[rowIdx]
		rowIdx++
		return s, len(s) == q
	}

	absorbRow := func(row *arena.Row) []field.Elem {
		sample, ok := nextSample()
		if !ok {
			rowErr = rejected(ErrMerkleMismatch)
			return nil
		}
		if err := builder.Absorb(sample); err != nil {
			rowErr = err
			return nil
		}
		for i := 0; i < sec.TCode; i++ {
			r := codeCh[i].UniformInField()
			field.FMA(codeAcc[i], r, sample)
		}
		for ri := 0; ri < sec.TLin; ri++ {
			randCodeword, err := enc.EncodeConst(row.Randoms(ri))
			if err != nil {
				rowErr = err
				return nil
			}
			randSample := sampleAt(randCodeword, p.Decommitment.KnownIndex)
			for j := range sample {
				linAcc[ri][j] = linAcc[ri][j].Add(sample[j].Mul(randSample[j]))
			}
		}
		return sample
	}

	hooks := rowHooks{
		onLinear: func(row *arena.Row, _ []field.Elem) {
			if rowErr != nil {
				return
			}
			absorbRow(row)
		},
		onQuad: func(ql, qr, qo *arena.Row, _, _, _ []field.Elem) {
			if rowErr != nil {
				return
			}
			var triples [3][]field.Elem
			for t, row := range []*arena.Row{ql, qr, qo} {
				triples[t] = absorbRow(row)
				if rowErr != nil {
					return
				}
			}
			for i := 0; i < sec.TQuad; i++ {
				r := quadCh[i].UniformInField()
				for j := 0; j < q; j++ {
					diff := triples[0][j].Mul(triples[1][j]).Sub(triples[2][j])
					quadAcc[i][j] = quadAcc[i][j].Add(r.Mul(diff))
				}
			}
		},
	}

	statement, err := runPass(mod, l, sec.TLin, inputA, inputB, blindSeed, enc, hooks)
	if err != nil {
		return err
	}
	if rowErr != nil {
		return rowErr
	}
	if statement != 1 {
		return ErrStatementFalse
	}

	// Check 1: the disclosed leaves plus the decommitment's sibling set
	// recompute the committed root.
	recomputedRoot, err := merkle.Recommit(builder, p.Decommitment)
	if err != nil {
		return rejected(ErrMerkleMismatch)
	}
	if recomputedRoot != p.Root {
		return rejected(ErrMerkleMismatch)
	}

	// Check 2: the prover's partial code polynomial, finish-encoded, agrees
	// with the verifier's own code accumulator at the sampled columns, and
	// its full-decoded form is all-zeros.
	finishedCode, err := enc.PartialEncode(p.PartialCode)
	if err != nil {
		return err
	}
	codeAtSamples := sampleAt(finishedCode, p.Decommitment.KnownIndex)
	combinedCodeSample := sumVecs(codeAcc, q)
	if !equalVecs(codeAtSamples, combinedCodeSample) {
		return rejected(ErrCodeCheck)
	}
	codeMessage, err := enc.FinishDecode(p.PartialCode)
	if err != nil {
		return err
	}
	if !allZero(codeMessage) {
		return rejected(ErrCodeCheck)
	}

	// Check 3: the prover's quadratic polynomial decodes to all-zeros and
	// agrees with the verifier's own quadratic accumulator at the sampled
	// columns.
	if len(p.Quadratic) != params.N {
		return rejected(ErrQuadCheck)
	}
	quadMessage, err := enc.Decode(p.Quadratic)
	if err != nil {
		return err
	}
	if !allZero(quadMessage) {
		return rejected(ErrQuadCheck)
	}
	quadAtSamples := sampleAt(p.Quadratic, p.Decommitment.KnownIndex)
	combinedQuadSample := sumVecs(quadAcc, q)
	if !equalVecs(quadAtSamples, combinedQuadSample) {
		return rejected(ErrQuadCheck)
	}

	// Check 4: the prover's linear-statement polynomial decodes to a zero
	// sum and agrees with the verifier's own linear accumulator at the
	// sampled columns.
	if len(p.Linear) != params.N {
		return rejected(ErrLinearCheck)
	}
	linMessage, err := enc.Decode(p.Linear)
	if err != nil {
		return err
	}
	if !sumZero(linMessage) {
		return rejected(ErrLinearCheck)
	}
	linAtSamples := sampleAt(p.Linear, p.Decommitment.KnownIndex)
	combinedLinSample := sumVecs(linAcc, q)
	if !equalVecs(linAtSamples, combinedLinSample) {
		return rejected(ErrLinearCheck)
	}

	ctx.Log.Info().Int("samples", q).Msg("proof accepted")
	return nil
}
