package iop

import (
	"github.com/luxfi/ligetron-iop/arena"
	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/constraint"
	"github.com/luxfi/ligetron-iop/field"
	"github.com/luxfi/ligetron-iop/lower"
	"github.com/luxfi/ligetron-iop/prng"
	"github.com/luxfi/ligetron-iop/rs"
	"github.com/luxfi/ligetron-iop/vm"
)

// rowHooks are the callbacks a pass wires into the arena to observe every
// completed row (and its RS codeword) as the constrained flavour drives the
// executor. Both stage1/stage2/stage3 and the verifier are this same driver
// loop with a different rowHooks installed, per §4.I's "the same interpreter
// loop, different side effects" structure.
type rowHooks struct {
	onLinear func(row *arena.Row, codeword []field.Elem)
	onQuad   func(ql, qr, qo *arena.Row, cl, cr, co []field.Elem)
}

// toFieldElems maps a row's concrete signed values into 𝔽_p, per §3's signed
// wraparound convention.
func toFieldElems(vals []int32) []field.Elem {
	out := make([]field.Elem, len(vals))
	for i, v := range vals {
		out[i] = field.FromSigned(v)
	}
	return out
}

// runPass drives the constrained executor once over mod with inputA/inputB,
// re-seeding the blind PRG fresh from blindSeed so that, run again with the
// same seed, every row and every codeword it emits comes out identical --
// the determinism stage2/stage3/the verifier rely on to re-derive
// Fiat-Shamir challenges and disclosed samples without re-transmitting
// anything but the seed itself.
func runPass(mod *bytecode.Module, l, tLin int, inputA, inputB []byte, blindSeed []byte, enc *rs.Encoder, hooks rowHooks) (int32, error) {
	blind := prng.NewHashPRG(blindSeed)
	a := arena.NewArena(l, tLin, blind)

	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	a.OnLinear(func(row *arena.Row) {
		if firstErr != nil {
			return
		}
		codeword, err := enc.EncodeWith(toFieldElems(row.Values()), blind)
		if err != nil {
			fail(err)
			return
		}
		if hooks.onLinear != nil {
			hooks.onLinear(row, codeword)
		}
	})
	a.OnQuad(func(ql, qr, qo *arena.Row) {
		if firstErr != nil {
			return
		}
		cl, err := enc.EncodeWith(toFieldElems(ql.Values()), blind)
		if err != nil {
			fail(err)
			return
		}
		cr, err := enc.EncodeWith(toFieldElems(qr.Values()), blind)
		if err != nil {
			fail(err)
			return
		}
		co, err := enc.EncodeWith(toFieldElems(qo.Values()), blind)
		if err != nil {
			fail(err)
			return
		}
		if hooks.onQuad != nil {
			hooks.onQuad(ql, qr, qo, cl, cr, co)
		}
	})

	e := constraint.NewEmitter(a)
	fl := lower.New(e)
	m := vm.NewMachine(mod, fl)

	addrA, addrB, lenA, lenB, err := bytecode.StageInput(m.Memory, inputA, inputB)
	if err != nil {
		return 0, err
	}
	args := []vm.Value{vm.I32Value(addrA), vm.I32Value(addrB), vm.I32Value(lenA), vm.I32Value(lenB)}

	res, err := m.Run(args)
	if err != nil {
		return 0, err
	}
	a.Finalize()
	if firstErr != nil {
		return 0, firstErr
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0].I32, nil
}
