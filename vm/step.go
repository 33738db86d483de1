package vm

import "github.com/luxfi/ligetron-iop/bytecode"

// runBody executes a straight-line instruction list, returning early with
// whatever StepResult a nested br/return produces (Continue only once the
// whole list has been consumed).
func (m *Machine) runBody(funcID int, body []bytecode.Instr) (StepResult, error) {
	for _, ins := range body {
		res, err := m.step(funcID, ins)
		if err != nil {
			return StepResult{}, err
		}
		if res.Kind != StepContinue {
			return res, nil
		}
	}
	return ResultContinue, nil
}

// step executes one instruction. block/loop/if recurse into runBody over
// their Then/Else bodies and interpret the nested StepResult from the
// perspective of the label that just exited, per §9's StepResult redesign.
func (m *Machine) step(funcID int, ins bytecode.Instr) (StepResult, error) {
	switch ins.Op {
	case bytecode.OpNop:
		return ResultContinue, nil

	case bytecode.OpUnreachable:
		return StepResult{}, ErrUnreachable

	case bytecode.OpDrop:
		if _, err := m.pop(); err != nil {
			return StepResult{}, err
		}
		return ResultContinue, nil

	case bytecode.OpSelect:
		cond, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		b, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		a, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		if cond.I32 != 0 {
			m.push(a)
		} else {
			m.push(b)
		}
		return ResultContinue, nil

	case bytecode.OpConst:
		var v Value
		var err error
		if ins.Type == bytecode.I64 {
			v, err = m.Flavour.ConstI64(ins.Imm)
		} else {
			v, err = m.Flavour.Const(int32(ins.Imm))
		}
		if err != nil {
			return StepResult{}, err
		}
		m.push(v)
		return ResultContinue, nil

	case bytecode.OpLocalGet:
		f := m.currentFrame()
		if f == nil || int(ins.Imm) >= len(f.locals) {
			return StepResult{}, ErrInvalidOpcode
		}
		m.push(f.locals[ins.Imm])
		return ResultContinue, nil

	case bytecode.OpLocalSet, bytecode.OpLocalTee:
		v, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		f := m.currentFrame()
		if f == nil || int(ins.Imm) >= len(f.locals) {
			return StepResult{}, ErrInvalidOpcode
		}
		f.locals[ins.Imm] = v
		if ins.Op == bytecode.OpLocalTee {
			m.push(v)
		}
		return ResultContinue, nil

	case bytecode.OpGlobalGet:
		if int(ins.Imm) >= len(m.Globals) {
			return StepResult{}, ErrInvalidOpcode
		}
		m.push(m.Globals[ins.Imm])
		return ResultContinue, nil

	case bytecode.OpGlobalSet:
		v, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		if int(ins.Imm) >= len(m.Globals) {
			return StepResult{}, ErrInvalidOpcode
		}
		m.Globals[ins.Imm] = v
		return ResultContinue, nil

	case bytecode.OpLoad, bytecode.OpLoad8S, bytecode.OpLoad16S:
		addr, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		effective := addr.I32 + int32(ins.Imm)
		var v int32
		switch ins.Op {
		case bytecode.OpLoad8S:
			raw, err := m.loadMem(effective, 1)
			if err != nil {
				return StepResult{}, err
			}
			v = int32(int8(raw[0]))
		case bytecode.OpLoad16S:
			raw, err := m.loadMem(effective, 2)
			if err != nil {
				return StepResult{}, err
			}
			v = int32(int16(uint16(raw[0]) | uint16(raw[1])<<8))
		default:
			v, err = m.readI32(effective)
			if err != nil {
				return StepResult{}, err
			}
		}
		out, err := m.Flavour.Const(v)
		if err != nil {
			return StepResult{}, err
		}
		m.push(out)
		return ResultContinue, nil

	case bytecode.OpStore, bytecode.OpStore8, bytecode.OpStore16:
		v, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		addr, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		effective := addr.I32 + int32(ins.Imm)
		switch ins.Op {
		case bytecode.OpStore8:
			b, err := m.loadMem(effective, 1)
			if err != nil {
				return StepResult{}, err
			}
			b[0] = byte(v.I32)
		case bytecode.OpStore16:
			b, err := m.loadMem(effective, 2)
			if err != nil {
				return StepResult{}, err
			}
			b[0] = byte(v.I32)
			b[1] = byte(v.I32 >> 8)
		default:
			if err := m.writeI32(effective, v.I32); err != nil {
				return StepResult{}, err
			}
		}
		return ResultContinue, nil

	case bytecode.OpMemorySize:
		v, err := m.Flavour.Const(int32(len(m.Memory) / 65536))
		if err != nil {
			return StepResult{}, err
		}
		m.push(v)
		return ResultContinue, nil

	case bytecode.OpMemoryGrow:
		if _, err := m.pop(); err != nil {
			return StepResult{}, err
		}
		v, err := m.Flavour.Const(-1) // growth is unsupported; report failure per WASM convention
		if err != nil {
			return StepResult{}, err
		}
		m.push(v)
		return ResultContinue, nil

	case bytecode.OpCall:
		fn := &m.Module.Funcs[ins.Imm]
		args, err := m.popResults(len(fn.Params))
		if err != nil {
			return StepResult{}, err
		}
		res, err := m.Call(int(ins.Imm), args)
		if err != nil {
			return StepResult{}, err
		}
		for _, r := range res {
			m.push(r)
		}
		return ResultContinue, nil

	case bytecode.OpBlock:
		res, err := m.runBody(funcID, ins.Then)
		if err != nil {
			return StepResult{}, err
		}
		return consumeBreak(res, false)

	case bytecode.OpIf:
		cond, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		branch := ins.Else
		if cond.I32 != 0 {
			branch = ins.Then
		}
		res, err := m.runBody(funcID, branch)
		if err != nil {
			return StepResult{}, err
		}
		return consumeBreak(res, false)

	case bytecode.OpLoop:
		for {
			res, err := m.runBody(funcID, ins.Then)
			if err != nil {
				return StepResult{}, err
			}
			if res.Kind == StepBreak && res.Depth == 0 {
				continue // br targeted this loop: restart it
			}
			return consumeBreak(res, true)
		}

	case bytecode.OpBr:
		return ResultBreak(uint32(ins.Imm)), nil

	case bytecode.OpBrIf:
		cond, err := m.pop()
		if err != nil {
			return StepResult{}, err
		}
		if cond.I32 != 0 {
			return ResultBreak(uint32(ins.Imm)), nil
		}
		return ResultContinue, nil

	case bytecode.OpReturn:
		return ResultReturn, nil

	default:
		return m.stepNumeric(ins)
	}
}

// consumeBreak interprets a nested block/if body's StepResult: Break(0) is
// this label catching its own branch (normal exit); anything deeper
// propagates with depth decremented by the one label just consumed. Loop
// bodies never reach here with Break(0) -- the caller in OpLoop's case
// re-loops on that before calling consumeBreak.
func consumeBreak(res StepResult, isLoop bool) (StepResult, error) {
	if res.Kind == StepBreak {
		if res.Depth == 0 {
			return ResultContinue, nil
		}
		return ResultBreak(res.Depth - 1), nil
	}
	return res, nil
}
