package vm

import "github.com/luxfi/ligetron-iop/bytecode"

// unaryOps and the two binary op sets classify the remaining opcodes
// step.go's main switch doesn't handle directly, so stepNumeric can dispatch
// the pop/push bookkeeping once and hand the "what does this opcode mean"
// question to the active Flavour (package lower's constrained flavour or
// package reference's plain one), per §4.G's "polymorphic over an execution
// flavour" requirement.
var unaryOps = map[bytecode.Op]bool{
	bytecode.OpEqz: true,
}

var compareOps = map[bytecode.Op]bool{
	bytecode.OpEq:  true,
	bytecode.OpNe:  true,
	bytecode.OpLtS: true,
	bytecode.OpLtU: true,
	bytecode.OpGtS: true,
	bytecode.OpGtU: true,
	bytecode.OpLeS: true,
	bytecode.OpLeU: true,
	bytecode.OpGeS: true,
	bytecode.OpGeU: true,
}

// stepNumeric handles every arithmetic, bitwise, shift and comparison
// opcode not already dispatched in step's main switch.
func (m *Machine) stepNumeric(ins bytecode.Instr) (StepResult, error) {
	if unaryOps[ins.Op] {
		x, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		v, err := m.Flavour.Unary(ins.Op, x)
		if err != nil {
			return StepResult{}, err
		}
		m.push(v)
		return ResultContinue, nil
	}

	y, err := m.pop()
	if err != nil {
		return StepResult{}, err
	}
	x, err := m.pop()
	if err != nil {
		return StepResult{}, err
	}

	var v Value
	if compareOps[ins.Op] {
		v, err = m.Flavour.Compare(ins.Op, x, y)
	} else {
		v, err = m.Flavour.Binary(ins.Op, x, y)
	}
	if err != nil {
		return StepResult{}, err
	}
	m.push(v)
	return ResultContinue, nil
}
