package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/reference"
	"github.com/luxfi/ligetron-iop/vm"
)

// run builds a minimal module wrapping body as the entry function, executes
// it under the plain-evaluation flavour, and returns the single i32 result.
func run(t *testing.T, numLocals int, body []bytecode.Instr) (int32, error) {
	t.Helper()
	mod := &bytecode.Module{
		Funcs: []bytecode.Func{
			{
				Name:      "entry",
				Results:   []bytecode.ValType{bytecode.I32},
				NumLocals: numLocals,
				Body:      body,
			},
		},
		Memory:    bytecode.Memory{InitialPages: 1},
		EntryFunc: 0,
	}
	m := vm.NewMachine(mod, reference.Flavour{})
	res, err := m.Run(nil)
	if err != nil {
		return 0, err
	}
	return res[0].I32, nil
}

func TestConstAdd(t *testing.T) {
	got, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 2},
		{Op: bytecode.OpConst, Imm: 3},
		{Op: bytecode.OpAdd},
	})
	require.NoError(t, err)
	require.Equal(t, int32(5), got)
}

func TestLocalSetGet(t *testing.T) {
	got, err := run(t, 1, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 9},
		{Op: bytecode.OpLocalSet, Imm: 0},
		{Op: bytecode.OpLocalGet, Imm: 0},
		{Op: bytecode.OpConst, Imm: 1},
		{Op: bytecode.OpAdd},
	})
	require.NoError(t, err)
	require.Equal(t, int32(10), got)
}

func TestLocalTeeLeavesValueOnStack(t *testing.T) {
	got, err := run(t, 1, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 4},
		{Op: bytecode.OpLocalTee, Imm: 0},
	})
	require.NoError(t, err)
	require.Equal(t, int32(4), got)
}

func TestIfElseBranches(t *testing.T) {
	body := func(cond int64) []bytecode.Instr {
		return []bytecode.Instr{
			{Op: bytecode.OpConst, Imm: cond},
			{
				Op: bytecode.OpIf,
				Then: []bytecode.Instr{
					{Op: bytecode.OpConst, Imm: 111},
				},
				Else: []bytecode.Instr{
					{Op: bytecode.OpConst, Imm: 222},
				},
			},
		}
	}
	got, err := run(t, 0, body(1))
	require.NoError(t, err)
	require.Equal(t, int32(111), got)

	got, err = run(t, 0, body(0))
	require.NoError(t, err)
	require.Equal(t, int32(222), got)
}

// TestBlockBrExits checks that a br inside a block unwinds exactly that
// block, falling through to whatever follows rather than the whole function.
func TestBlockBrExits(t *testing.T) {
	got, err := run(t, 0, []bytecode.Instr{
		{
			Op: bytecode.OpBlock,
			Then: []bytecode.Instr{
				{Op: bytecode.OpConst, Imm: 1},
				{Op: bytecode.OpBr, Imm: 0},
				{Op: bytecode.OpConst, Imm: 999}, // unreachable: skipped by the br
			},
		},
		{Op: bytecode.OpDrop},
		{Op: bytecode.OpConst, Imm: 42},
	})
	require.NoError(t, err)
	require.Equal(t, int32(42), got)
}

// TestLoopBrZeroRestartsLoop checks that br(0) from inside a loop body
// restarts the loop rather than exiting it, per the OpLoop/consumeBreak
// split between loop and block semantics.
func TestLoopBrZeroRestartsLoop(t *testing.T) {
	got, err := run(t, 1, []bytecode.Instr{
		{
			Op: bytecode.OpLoop,
			Then: []bytecode.Instr{
				{Op: bytecode.OpLocalGet, Imm: 0},
				{Op: bytecode.OpConst, Imm: 1},
				{Op: bytecode.OpAdd},
				{Op: bytecode.OpLocalTee, Imm: 0},
				{Op: bytecode.OpConst, Imm: 3},
				{Op: bytecode.OpLtS},
				{Op: bytecode.OpBrIf, Imm: 0},
			},
		},
		{Op: bytecode.OpLocalGet, Imm: 0},
	})
	require.NoError(t, err)
	require.Equal(t, int32(3), got)
}

func TestReturnExitsFunctionEarly(t *testing.T) {
	got, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 7},
		{Op: bytecode.OpReturn},
		{Op: bytecode.OpConst, Imm: 999},
	})
	require.NoError(t, err)
	require.Equal(t, int32(7), got)
}

func TestCallInvokesOtherFunction(t *testing.T) {
	mod := &bytecode.Module{
		Funcs: []bytecode.Func{
			{
				Name:      "entry",
				Results:   []bytecode.ValType{bytecode.I32},
				NumLocals: 0,
				Body: []bytecode.Instr{
					{Op: bytecode.OpConst, Imm: 10},
					{Op: bytecode.OpConst, Imm: 20},
					{Op: bytecode.OpCall, Imm: 1},
				},
			},
			{
				Name:      "add",
				Params:    []bytecode.ValType{bytecode.I32, bytecode.I32},
				Results:   []bytecode.ValType{bytecode.I32},
				NumLocals: 2,
				Body: []bytecode.Instr{
					{Op: bytecode.OpLocalGet, Imm: 0},
					{Op: bytecode.OpLocalGet, Imm: 1},
					{Op: bytecode.OpAdd},
				},
			},
		},
		Memory:    bytecode.Memory{InitialPages: 1},
		EntryFunc: 0,
	}
	m := vm.NewMachine(mod, reference.Flavour{})
	res, err := m.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int32(30), res[0].I32)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	got, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 100},
		{Op: bytecode.OpConst, Imm: 0xdeadbeef & 0x7fffffff},
		{Op: bytecode.OpStore},
		{Op: bytecode.OpConst, Imm: 100},
		{Op: bytecode.OpLoad},
	})
	require.NoError(t, err)
	require.Equal(t, int32(0xdeadbeef&0x7fffffff), got)
}

func TestStore8Load8SSignExtends(t *testing.T) {
	got, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 200},
		{Op: bytecode.OpConst, Imm: -1}, // 0xff
		{Op: bytecode.OpStore8},
		{Op: bytecode.OpConst, Imm: 200},
		{Op: bytecode.OpLoad8S},
	})
	require.NoError(t, err)
	require.Equal(t, int32(-1), got)
}

func TestDivByZeroTraps(t *testing.T) {
	_, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 1},
		{Op: bytecode.OpConst, Imm: 0},
		{Op: bytecode.OpDivS},
	})
	require.ErrorIs(t, err, vm.ErrDivByZero)
	var trap *vm.TrapError
	require.ErrorAs(t, err, &trap)
}

func TestMemoryOutOfBoundsTraps(t *testing.T) {
	_, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 1 << 20},
		{Op: bytecode.OpLoad},
	})
	require.ErrorIs(t, err, vm.ErrMemoryBounds)
}

func TestUnreachableTraps(t *testing.T) {
	_, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpUnreachable},
	})
	require.ErrorIs(t, err, vm.ErrUnreachable)
}

func TestStackUnderflowTraps(t *testing.T) {
	_, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpAdd},
	})
	require.ErrorIs(t, err, vm.ErrStackUnderflow)
}

func TestSelectPicksOperandByCondition(t *testing.T) {
	got, err := run(t, 0, []bytecode.Instr{
		{Op: bytecode.OpConst, Imm: 11},
		{Op: bytecode.OpConst, Imm: 22},
		{Op: bytecode.OpConst, Imm: 1},
		{Op: bytecode.OpSelect},
	})
	require.NoError(t, err)
	require.Equal(t, int32(11), got)
}

func TestGlobalGetSet(t *testing.T) {
	mod := &bytecode.Module{
		Funcs: []bytecode.Func{
			{
				Name:    "entry",
				Results: []bytecode.ValType{bytecode.I32},
				Body: []bytecode.Instr{
					{Op: bytecode.OpConst, Imm: 55},
					{Op: bytecode.OpGlobalSet, Imm: 0},
					{Op: bytecode.OpGlobalGet, Imm: 0},
				},
			},
		},
		Globals:   []bytecode.Global{{Name: "g0", Type: bytecode.I32, Mutable: true}},
		Memory:    bytecode.Memory{InitialPages: 1},
		EntryFunc: 0,
	}
	m := vm.NewMachine(mod, reference.Flavour{})
	res, err := m.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int32(55), res[0].I32)
}
