package iop

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/luxfi/ligetron-iop/argument"
	"github.com/luxfi/ligetron-iop/arena"
	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/field"
	"github.com/luxfi/ligetron-iop/instrument"
	"github.com/luxfi/ligetron-iop/merkle"
	"github.com/luxfi/ligetron-iop/proof"
	"github.com/luxfi/ligetron-iop/reference"
	"github.com/luxfi/ligetron-iop/rs"
)

// newEncoderSeeds draws 32 bytes of fresh entropy for the blind PRG's seed,
// transmitted in the proof (§6 item 2) so the verifier can reconstruct the
// exact same blind stream.
func newEncoderSeeds() ([8]uint32, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return [8]uint32{}, err
	}
	var seeds [8]uint32
	for i := range seeds {
		seeds[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return seeds, nil
}

// Prove runs the full three-stage commit/argument/disclosure protocol
// (§4.I) over mod with public plaintext size l and private inputs inputA,
// inputB, returning the serializable proof blob. It first runs the
// plain-evaluation reference executor and refuses to even start proving a
// false statement, per §7: "no partial proofs are emitted."
func Prove(ctx *instrument.Context, mod *bytecode.Module, l int, inputA, inputB []byte, sec SecurityParams) (*proof.Proof, error) {
	sw := ctx.StartTimer("prove")
	defer sw.Stop()

	statement, err := reference.Run(mod, inputA, inputB)
	if err != nil {
		return nil, err
	}
	if statement != 1 {
		return nil, ErrStatementFalse
	}

	params, err := rs.NewParams(l)
	if err != nil {
		return nil, err
	}
	enc, err := rs.NewEncoder(params)
	if err != nil {
		return nil, err
	}

	seeds, err := newEncoderSeeds()
	if err != nil {
		return nil, err
	}
	blindSeed := seedBytes(seeds)

	// Stage 1: commit. Every linear row and every quadratic row is RS-encoded
	// under the blind stream and absorbed column-wise into one Merkle tree.
	commitSW := ctx.StartTimer("stage1-commit")
	builder := merkle.NewBuilder(merkle.KeyedSHA256(blindSeed), params.N)
	stmt1, err := runPass(mod, l, sec.TLin, inputA, inputB, blindSeed, enc, rowHooks{
		onLinear: func(_ *arena.Row, codeword []field.Elem) { builder.Absorb(codeword) },
		onQuad: func(_, _, _ *arena.Row, cl, cr, co []field.Elem) {
			builder.Absorb(cl)
			builder.Absorb(cr)
			builder.Absorb(co)
		},
	})
	commitSW.Stop()
	if err != nil {
		return nil, err
	}
	if stmt1 != 1 {
		return nil, ErrStatementFalse
	}
	tree := builder.Build()
	root := tree.Root()

	// Stage 2: argument. Re-run with the same blind stream (so the rows and
	// their codewords come out identical), now folding every row into the
	// code/linear/quadratic arguments under challenges derived from root.
	argSW := ctx.StartTimer("stage2-argument")
	codeIdx, quadIdx := 0, 0
	newChallenge := func() argument.Challenge {
		if codeIdx < sec.TCode {
			c := challengeStream(root, "code", codeIdx)
			codeIdx++
			return c
		}
		c := challengeStream(root, "quad", quadIdx)
		quadIdx++
		return c
	}
	group := argument.NewGroup(params.N, sec.TCode, sec.TLin, sec.TQuad, newChallenge)

	accumulateRandomness := func(row *arena.Row, codeword []field.Elem) error {
		for ri := 0; ri < sec.TLin; ri++ {
			randCodeword, err := enc.EncodeConst(row.Randoms(ri))
			if err != nil {
				return err
			}
			group.AccumulateRowLinear(ri, codeword, randCodeword)
		}
		return nil
	}

	var stage2Err error
	stmt2, err := runPass(mod, l, sec.TLin, inputA, inputB, blindSeed, enc, rowHooks{
		onLinear: func(row *arena.Row, codeword []field.Elem) {
			if stage2Err != nil {
				return
			}
			group.AccumulateRowCode(codeword)
			if err := accumulateRandomness(row, codeword); err != nil {
				stage2Err = err
			}
		},
		onQuad: func(ql, qr, qo *arena.Row, cl, cr, co []field.Elem) {
			if stage2Err != nil {
				return
			}
			for _, pr := range []struct {
				row *arena.Row
				cw  []field.Elem
			}{{ql, cl}, {qr, cr}, {qo, co}} {
				group.AccumulateRowCode(pr.cw)
				if err := accumulateRandomness(pr.row, pr.cw); err != nil {
					stage2Err = err
					return
				}
			}
			group.AccumulateRowQuad(cl, cr, co)
		},
	})
	argSW.Stop()
	if err != nil {
		return nil, err
	}
	if stage2Err != nil {
		return nil, stage2Err
	}
	if stmt2 != 1 {
		return nil, ErrStatementFalse
	}

	combinedCode := group.CombinedCode()
	combinedLin := group.CombinedLinear()
	combinedQuad := group.CombinedQuad()

	partialCode, err := enc.PartialDecode(combinedCode)
	if err != nil {
		return nil, err
	}

	sampleSeed := sampleSeedFrom(root, combinedCode, combinedLin, combinedQuad)
	sampleIdx := sampleIndices(sampleSeed[:], params.N, sec.Samples)
	decommitment := tree.Decommit(sampleIdx)

	// Stage 3: disclosure. Re-run once more, this time only recording the
	// sampled columns of every row's codeword, in the same row order as
	// stage1/stage2 so the verifier's replay lines up with decommitment's
	// KnownIndex order.
	discloseSW := ctx.StartTimer("stage3-disclosure")
	var rowSamples [][]field.Elem
	sampleRow := func(codeword []field.Elem) []field.Elem {
		out := make([]field.Elem, len(sampleIdx))
		for i, idx := range sampleIdx {
			out[i] = codeword[idx]
		}
		return out
	}
	stmt3, err := runPass(mod, l, sec.TLin, inputA, inputB, blindSeed, enc, rowHooks{
		onLinear: func(_ *arena.Row, codeword []field.Elem) {
			rowSamples = append(rowSamples, sampleRow(codeword))
		},
		onQuad: func(_, _, _ *arena.Row, cl, cr, co []field.Elem) {
			rowSamples = append(rowSamples, sampleRow(cl))
			rowSamples = append(rowSamples, sampleRow(cr))
			rowSamples = append(rowSamples, sampleRow(co))
		},
	})
	discloseSW.Stop()
	if err != nil {
		return nil, err
	}
	if stmt3 != 1 {
		return nil, ErrStatementFalse
	}

	return &proof.Proof{
		Version:      proof.Version,
		EncoderSeeds: seeds,
		Root:         root,
		SampleSeed:   sampleSeed,
		PartialCode:  partialCode,
		Quadratic:    combinedQuad,
		Linear:       combinedLin,
		Decommitment: decommitment,
		RowSamples:   rowSamples,
	}, nil
}
