// Package vm implements the stack-machine executor component (G): a
// single-threaded, cooperative interpreter over package bytecode's
// instruction set, polymorphic over an execution "flavour" (plain
// evaluation vs the three constrained passes stage1/2/3 drive through
// package lower). Control-flow unwinding is expressed as the sum-typed
// StepResult per §9's redesign flag, replacing the source's
// exception-based label unwinding.
package vm

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/ligetron-iop/arena"
	"github.com/luxfi/ligetron-iop/bytecode"
)

// Trap-flavoured errors, the Go expression of §7's ExecutionTrap kinds.
var (
	ErrUnreachable   = errors.New("vm: unreachable instruction executed")
	ErrMemoryBounds  = errors.New("vm: memory access out of bounds")
	ErrDivByZero     = errors.New("vm: division by zero")
	ErrInvalidOpcode = errors.New("vm: invalid opcode")
	ErrStackUnderflow = errors.New("vm: stack underflow")
)

// TrapError wraps one of the sentinel trap errors above with the index of
// the function whose body raised it, per §7's fatal-for-the-run
// ExecutionTrap kind. Call does not fill in PC; it stays zero.
type TrapError struct {
	Err    error
	FuncID int
	PC     int
}

func (t *TrapError) Error() string { return t.Err.Error() }
func (t *TrapError) Unwrap() error { return t.Err }

// Value is one stack-machine value: always carries a concrete signed value
// (the executor needs it for control flow and addressing even under a
// constrained flavour, since the prover knows its own witness), and
// optionally a witness Ref when running under a constrained flavour.
type Value struct {
	I32    int32
	I64    int64
	Is64   bool
	Ref    arena.Ref
	HasRef bool
}

// I32Value builds a plain (unconstrained) 32-bit value.
func I32Value(v int32) Value { return Value{I32: v} }

// I64Value builds a plain 64-bit value.
func I64Value(v int64) Value { return Value{I64: v, Is64: true} }

// WithRef attaches a witness ref to a value, for constrained flavours.
func (v Value) WithRef(r arena.Ref) Value {
	v.Ref = r
	v.HasRef = true
	return v
}

// entryKind tags what a stack slot holds, the Go expression of §4.G's
// "tagged" stack entries (scalar / label / frame).
type entryKind uint8

const (
	entryValue entryKind = iota
	entryLabel
	entryFrame
)

type label struct {
	arity      int
	isLoop     bool
	startPC    int // for loop: pc to resume at on br
	stackDepth int // value-stack depth at label entry, for unwinding
}

type frame struct {
	funcID     int
	locals     []Value
	resultAr   int
	stackDepth int
	labelDepth int
}

type stackEntry struct {
	kind  entryKind
	value Value
	lbl   label
	frm   frame
}

// StepResult is the sum type §9 calls for, replacing exception-based
// label unwinding: Continue falls through to the next instruction, Break
// unwinds Depth enclosing labels, Return pops the current frame.
type StepResult struct {
	Kind  StepKind
	Depth uint32
}

type StepKind uint8

const (
	StepContinue StepKind = iota
	StepBreak
	StepReturn
)

var ResultContinue = StepResult{Kind: StepContinue}

func ResultBreak(depth uint32) StepResult { return StepResult{Kind: StepBreak, Depth: depth} }

var ResultReturn = StepResult{Kind: StepReturn}

// Flavour is the execution-strategy seam: plain evaluation computes
// concrete results only; the three constrained flavours (package lower)
// additionally emit constraints and return a Value carrying a Ref.
type Flavour interface {
	Const(v int32) (Value, error)
	ConstI64(v int64) (Value, error)
	Unary(op bytecode.Op, x Value) (Value, error)
	Binary(op bytecode.Op, x, y Value) (Value, error)
	Compare(op bytecode.Op, x, y Value) (Value, error)
}

// Machine holds the mutable execution state: the value/label/frame stack,
// linear memory, globals, and the module being executed.
type Machine struct {
	Module  *bytecode.Module
	Memory  []byte
	Globals []Value
	Flavour Flavour

	stack []stackEntry
}

// NewMachine allocates a Machine for the given module, sized to its
// declared initial memory pages (64 KiB each).
func NewMachine(m *bytecode.Module, flavour Flavour) *Machine {
	mem := make([]byte, m.Memory.InitialPages*65536)
	for _, seg := range m.Memory.Data {
		copy(mem[seg.Offset:], seg.Bytes)
	}
	globals := make([]Value, len(m.Globals))
	for i, g := range m.Globals {
		globals[i] = I32Value(int32(g.Init))
	}
	return &Machine{Module: m, Memory: mem, Globals: globals, Flavour: flavour}
}

func (m *Machine) push(v Value) { m.stack = append(m.stack, stackEntry{kind: entryValue, value: v}) }

func (m *Machine) pop() (Value, error) {
	if len(m.stack) == 0 || m.stack[len(m.stack)-1].kind != entryValue {
		return Value{}, ErrStackUnderflow
	}
	e := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return e.value, nil
}

func (m *Machine) pushLabel(l label) { m.stack = append(m.stack, stackEntry{kind: entryLabel, lbl: l}) }

func (m *Machine) pushFrame(f frame) { m.stack = append(m.stack, stackEntry{kind: entryFrame, frm: f}) }

// Run invokes the module's entry function with the given arguments and
// returns its results (per §3's "designated entry function" call).
func (m *Machine) Run(args []Value) ([]Value, error) {
	return m.Call(m.Module.EntryFunc, args)
}

// Call invokes funcID with args, running its body to completion or trap.
func (m *Machine) Call(funcID int, args []Value) ([]Value, error) {
	fn := &m.Module.Funcs[funcID]
	locals := make([]Value, fn.NumLocals)
	copy(locals, args)

	baseDepth := len(m.stack)
	m.pushFrame(frame{funcID: funcID, locals: locals, resultAr: len(fn.Results), stackDepth: baseDepth})

	stepRes, err := m.runBody(funcID, fn.Body)
	if err != nil {
		return nil, &TrapError{Err: err, FuncID: funcID}
	}
	_ = stepRes // fallthrough or explicit return both end the function the same way

	res, err := m.popResults(len(fn.Results))
	if err != nil {
		return nil, &TrapError{Err: err, FuncID: funcID}
	}

	// pop the frame marker
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].kind == entryFrame {
			m.stack = append(m.stack[:i], m.stack[i+1:]...)
			break
		}
	}
	return res, nil
}

func (m *Machine) currentFrame() *frame {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].kind == entryFrame {
			return &m.stack[i].frm
		}
	}
	return nil
}

func (m *Machine) popResults(arity int) ([]Value, error) {
	if len(m.stack) < arity {
		return nil, ErrStackUnderflow
	}
	out := make([]Value, arity)
	for i := arity - 1; i >= 0; i-- {
		v, err := m.pop()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *Machine) loadMem(addr int32, width int) ([]byte, error) {
	a := int(uint32(addr))
	if a < 0 || a+width > len(m.Memory) {
		return nil, ErrMemoryBounds
	}
	return m.Memory[a : a+width], nil
}

func (m *Machine) readI32(addr int32) (int32, error) {
	b, err := m.loadMem(addr, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (m *Machine) writeI32(addr int32, v int32) error {
	b, err := m.loadMem(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}
