package reference

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/vm"
)

// lengthEqualModule builds a single-function module whose entry takes
// (addrA, addrB, lenA, lenB) and returns 1 iff lenA == lenB, the smallest
// program that exercises Run's input-staging plus a comparison opcode.
func lengthEqualModule() *bytecode.Module {
	return &bytecode.Module{
		Funcs: []bytecode.Func{
			{
				Name:      "entry",
				Params:    []bytecode.ValType{bytecode.I32, bytecode.I32, bytecode.I32, bytecode.I32},
				Results:   []bytecode.ValType{bytecode.I32},
				NumLocals: 4,
				Body: []bytecode.Instr{
					{Op: bytecode.OpLocalGet, Imm: 2},
					{Op: bytecode.OpLocalGet, Imm: 3},
					{Op: bytecode.OpEq},
				},
			},
		},
		Memory:    bytecode.Memory{InitialPages: 129},
		EntryFunc: 0,
	}
}

func TestRunEqualLengths(t *testing.T) {
	mod := lengthEqualModule()
	res, err := Run(mod, []byte("ab"), []byte("cd"))
	require.NoError(t, err)
	require.Equal(t, int32(1), res)
}

func TestRunUnequalLengths(t *testing.T) {
	mod := lengthEqualModule()
	res, err := Run(mod, []byte("a"), []byte("cd"))
	require.NoError(t, err)
	require.Equal(t, int32(0), res)
}

func TestRunTraps(t *testing.T) {
	mod := &bytecode.Module{
		Funcs: []bytecode.Func{
			{Name: "entry", NumLocals: 0, Body: []bytecode.Instr{{Op: bytecode.OpUnreachable}}},
		},
		Memory:    bytecode.Memory{InitialPages: 129},
		EntryFunc: 0,
	}
	_, err := Run(mod, nil, nil)
	require.Error(t, err)
	var trap *vm.TrapError
	require.ErrorAs(t, err, &trap)
	require.ErrorIs(t, trap, vm.ErrUnreachable)
}
