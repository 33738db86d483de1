// Package reference implements the non-ZK reference executor: a flavour that
// performs plain evaluation for assertion and sanity checks, built by
// running package vm with a Flavour that computes concrete results only and
// never touches package arena or package lower. The CLI prover uses it to
// fail fast on a program that traps or whose statement is false before
// spending stage-1 time proving it (original_source/src/LR.cpp and
// include/runtime.hpp ship the same ground-truth-comparison executor).
package reference

import (
	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/vm"
)

// Flavour is the plain-evaluation vm.Flavour: every opcode is computed on
// concrete Go int32/int64 values, no constraints, no witness refs, and i64
// arithmetic is fully supported (unlike the constrained flavours, which
// reject it).
type Flavour struct{}

func (Flavour) Const(v int32) (vm.Value, error)      { return vm.I32Value(v), nil }
func (Flavour) ConstI64(v int64) (vm.Value, error)    { return vm.I64Value(v), nil }

func (Flavour) Unary(op bytecode.Op, x vm.Value) (vm.Value, error) {
	switch op {
	case bytecode.OpEqz:
		if x.Is64 {
			return boolValue(x.I64 == 0), nil
		}
		return boolValue(x.I32 == 0), nil
	}
	return vm.Value{}, vm.ErrInvalidOpcode
}

func (Flavour) Binary(op bytecode.Op, x, y vm.Value) (vm.Value, error) {
	if x.Is64 || y.Is64 {
		v, err := binary64(op, x.I64, y.I64)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.I64Value(v), nil
	}
	v, err := binary32(op, x.I32, y.I32)
	if err != nil {
		return vm.Value{}, err
	}
	return vm.I32Value(v), nil
}

func (Flavour) Compare(op bytecode.Op, x, y vm.Value) (vm.Value, error) {
	if x.Is64 || y.Is64 {
		return boolValue(compare64(op, x.I64, y.I64)), nil
	}
	return boolValue(compare32(op, x.I32, y.I32)), nil
}

func boolValue(b bool) vm.Value {
	if b {
		return vm.I32Value(1)
	}
	return vm.I32Value(0)
}

func binary32(op bytecode.Op, x, y int32) (int32, error) {
	ux, uy := uint32(x), uint32(y)
	switch op {
	case bytecode.OpAdd:
		return x + y, nil
	case bytecode.OpSub:
		return x - y, nil
	case bytecode.OpMul:
		return x * y, nil
	case bytecode.OpDivS:
		if y == 0 {
			return 0, vm.ErrDivByZero
		}
		return x / y, nil
	case bytecode.OpDivU:
		if uy == 0 {
			return 0, vm.ErrDivByZero
		}
		return int32(ux / uy), nil
	case bytecode.OpRemS:
		if y == 0 {
			return 0, vm.ErrDivByZero
		}
		return x % y, nil
	case bytecode.OpRemU:
		if uy == 0 {
			return 0, vm.ErrDivByZero
		}
		return int32(ux % uy), nil
	case bytecode.OpAnd:
		return x & y, nil
	case bytecode.OpOr:
		return x | y, nil
	case bytecode.OpXor:
		return x ^ y, nil
	case bytecode.OpShl:
		return int32(ux << (uy & 31)), nil
	case bytecode.OpShrU:
		return int32(ux >> (uy & 31)), nil
	case bytecode.OpShrS:
		return x >> (uy & 31), nil
	case bytecode.OpRotl:
		k := uy & 31
		return int32(ux<<k | ux>>(32-k)), nil
	case bytecode.OpRotr:
		k := uy & 31
		return int32(ux>>k | ux<<(32-k)), nil
	}
	return 0, vm.ErrInvalidOpcode
}

func binary64(op bytecode.Op, x, y int64) (int64, error) {
	ux, uy := uint64(x), uint64(y)
	switch op {
	case bytecode.OpAdd:
		return x + y, nil
	case bytecode.OpSub:
		return x - y, nil
	case bytecode.OpMul:
		return x * y, nil
	case bytecode.OpDivS:
		if y == 0 {
			return 0, vm.ErrDivByZero
		}
		return x / y, nil
	case bytecode.OpDivU:
		if uy == 0 {
			return 0, vm.ErrDivByZero
		}
		return int64(ux / uy), nil
	case bytecode.OpRemS:
		if y == 0 {
			return 0, vm.ErrDivByZero
		}
		return x % y, nil
	case bytecode.OpRemU:
		if uy == 0 {
			return 0, vm.ErrDivByZero
		}
		return int64(ux % uy), nil
	case bytecode.OpAnd:
		return x & y, nil
	case bytecode.OpOr:
		return x | y, nil
	case bytecode.OpXor:
		return x ^ y, nil
	case bytecode.OpShl:
		return int64(ux << (uy & 63)), nil
	case bytecode.OpShrU:
		return int64(ux >> (uy & 63)), nil
	case bytecode.OpShrS:
		return x >> (uy & 63), nil
	case bytecode.OpRotl:
		k := uy & 63
		return int64(ux<<k | ux>>(64-k)), nil
	case bytecode.OpRotr:
		k := uy & 63
		return int64(ux>>k | ux<<(64-k)), nil
	}
	return 0, vm.ErrInvalidOpcode
}

func compare32(op bytecode.Op, x, y int32) bool {
	ux, uy := uint32(x), uint32(y)
	switch op {
	case bytecode.OpEq:
		return x == y
	case bytecode.OpNe:
		return x != y
	case bytecode.OpLtS:
		return x < y
	case bytecode.OpLtU:
		return ux < uy
	case bytecode.OpGtS:
		return x > y
	case bytecode.OpGtU:
		return ux > uy
	case bytecode.OpLeS:
		return x <= y
	case bytecode.OpLeU:
		return ux <= uy
	case bytecode.OpGeS:
		return x >= y
	case bytecode.OpGeU:
		return ux >= uy
	}
	return false
}

func compare64(op bytecode.Op, x, y int64) bool {
	ux, uy := uint64(x), uint64(y)
	switch op {
	case bytecode.OpEq:
		return x == y
	case bytecode.OpNe:
		return x != y
	case bytecode.OpLtS:
		return x < y
	case bytecode.OpLtU:
		return ux < uy
	case bytecode.OpGtS:
		return x > y
	case bytecode.OpGtU:
		return ux > uy
	case bytecode.OpLeS:
		return x <= y
	case bytecode.OpLeU:
		return ux <= uy
	case bytecode.OpGeS:
		return x >= y
	case bytecode.OpGeU:
		return ux >= uy
	}
	return false
}

// Run instantiates a fresh Machine with the plain-evaluation flavour, stages
// inputA/inputB at bytecode.InputBase, and invokes the module's entry
// function, returning its single i32 result (the statement value stage1
// asserts equals 1).
func Run(mod *bytecode.Module, inputA, inputB []byte) (int32, error) {
	m := vm.NewMachine(mod, Flavour{})
	addrA, addrB, lenA, lenB, err := bytecode.StageInput(m.Memory, inputA, inputB)
	if err != nil {
		return 0, err
	}
	args := []vm.Value{vm.I32Value(addrA), vm.I32Value(addrB), vm.I32Value(lenA), vm.I32Value(lenB)}
	res, err := m.Run(args)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0].I32, nil
}
