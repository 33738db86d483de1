package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ligetron-iop/arena"
	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/constraint"
	"github.com/luxfi/ligetron-iop/prng"
	"github.com/luxfi/ligetron-iop/vm"
)

func newFlavour(t *testing.T) *Flavour {
	t.Helper()
	blind := prng.NewHashPRG([]byte("lower-test-seed"))
	a := arena.NewArena(64, 1, blind)
	a.OnLinear(func(*arena.Row) {})
	a.OnQuad(func(*arena.Row, *arena.Row, *arena.Row) {})
	e := constraint.NewEmitter(a)
	return New(e)
}

func constOf(t *testing.T, f *Flavour, v int32) vm.Value {
	t.Helper()
	val, err := f.Const(v)
	require.NoError(t, err)
	return val
}

func TestBinaryArithmetic(t *testing.T) {
	cases := []struct {
		op   bytecode.Op
		x, y int32
		want int32
	}{
		{bytecode.OpAdd, 3, 4, 7},
		{bytecode.OpSub, 10, 4, 6},
		{bytecode.OpMul, 6, 7, 42},
		{bytecode.OpDivS, -7, 2, -3},
		{bytecode.OpDivU, 7, 2, 3},
		{bytecode.OpRemS, -7, 2, -1},
		{bytecode.OpRemU, 7, 2, 1},
		{bytecode.OpAnd, 0b1100, 0b1010, 0b1000},
		{bytecode.OpOr, 0b1100, 0b1010, 0b1110},
		{bytecode.OpXor, 0b1100, 0b1010, 0b0110},
	}
	for _, c := range cases {
		f := newFlavour(t)
		x := constOf(t, f, c.x)
		y := constOf(t, f, c.y)
		got, err := f.Binary(c.op, x, y)
		require.NoError(t, err)
		require.Equal(t, c.want, got.I32, "op=%v x=%d y=%d", c.op, c.x, c.y)
	}
}

func TestShiftRotate(t *testing.T) {
	cases := []struct {
		op   bytecode.Op
		x    int32
		k    int32
		want int32
	}{
		{bytecode.OpShl, 1, 4, 16},
		{bytecode.OpShrU, -1, 28, 0xF},
		{bytecode.OpShrS, -16, 2, -4},
		{bytecode.OpRotl, 1, 1, 2},
		{bytecode.OpRotr, 2, 1, 1},
	}
	for _, c := range cases {
		f := newFlavour(t)
		x := constOf(t, f, c.x)
		k := constOf(t, f, c.k)
		got, err := f.Binary(c.op, x, k)
		require.NoError(t, err)
		require.Equal(t, c.want, got.I32, "op=%v x=%d k=%d", c.op, c.x, c.k)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		op   bytecode.Op
		x, y int32
		want int32
	}{
		{bytecode.OpEq, 5, 5, 1},
		{bytecode.OpEq, 5, 6, 0},
		{bytecode.OpNe, 5, 6, 1},
		{bytecode.OpLtS, -1, 1, 1},
		{bytecode.OpLtS, 1, -1, 0},
		{bytecode.OpLeS, 5, 5, 1},
		{bytecode.OpGtS, 1, -1, 1},
		{bytecode.OpGeS, 5, 5, 1},
		{bytecode.OpLtU, 1, -1, 1},
		{bytecode.OpGtU, -1, 1, 1},
	}
	for _, c := range cases {
		f := newFlavour(t)
		x := constOf(t, f, c.x)
		y := constOf(t, f, c.y)
		got, err := f.Compare(c.op, x, y)
		require.NoError(t, err)
		require.Equal(t, c.want, got.I32, "op=%v x=%d y=%d", c.op, c.x, c.y)
	}
}

func TestUnaryEqz(t *testing.T) {
	f := newFlavour(t)
	zero := constOf(t, f, 0)
	got, err := f.Unary(bytecode.OpEqz, zero)
	require.NoError(t, err)
	require.Equal(t, int32(1), got.I32)

	f2 := newFlavour(t)
	nonzero := constOf(t, f2, 7)
	got2, err := f2.Unary(bytecode.OpEqz, nonzero)
	require.NoError(t, err)
	require.Equal(t, int32(0), got2.I32)
}

func TestDivByZeroRejected(t *testing.T) {
	f := newFlavour(t)
	x := constOf(t, f, 1)
	zero := constOf(t, f, 0)
	_, err := f.Binary(bytecode.OpDivS, x, zero)
	require.ErrorIs(t, err, vm.ErrDivByZero)
}

func TestI64Rejected(t *testing.T) {
	f := newFlavour(t)
	x, err := f.ConstI64(3)
	require.NoError(t, err)
	y, err := f.ConstI64(4)
	require.NoError(t, err)
	_, err = f.Binary(bytecode.OpAdd, x, y)
	require.ErrorIs(t, err, ErrUnconstrained64)
}
