// Package bytecode defines the module image data contract: the external
// collaborator boundary per §1/§6. Parsing a real WASM binary into this
// shape is out of scope (§1's Non-goals) -- this package only fixes the
// in-memory layout cmd/ligetron-prove and cmd/ligetron-verify agree on,
// grounded on the source's binary_parser.hpp/context.hpp field shapes.
package bytecode

import (
	"encoding/json"
	"errors"
	"os"
)

// ErrModuleMalformed is the sentinel error for any structural problem in a
// Module discovered at load time (entry or called function index out of
// range, global index out of range).
var ErrModuleMalformed = errors.New("bytecode: malformed module")

// ValType is a WASM-flavoured value type tag.
type ValType uint8

const (
	I32 ValType = iota
	I64
)

// Op is an opcode tag in the stack-machine instruction set package vm
// executes and package lower compiles into constraints. Names follow the
// source's instruction.hpp op:: namespace.
type Op uint16

const (
	OpUnreachable Op = iota
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpReturn
	OpCall

	OpDrop
	OpSelect

	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet

	OpLoad
	OpStore
	OpLoad8S
	OpLoad16S
	OpStore8
	OpStore16
	OpMemorySize
	OpMemoryGrow

	OpConst

	OpAdd
	OpSub
	OpMul
	OpDivS
	OpDivU
	OpRemS
	OpRemU
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShrS
	OpShrU
	OpRotl
	OpRotr

	OpEqz
	OpEq
	OpNe
	OpLtS
	OpLtU
	OpGtS
	OpGtU
	OpLeS
	OpLeU
	OpGeS
	OpGeU
)

// BlockType tags the arity of a block/loop/if construct's implicit
// function type (how many values it consumes/produces), simplified from
// full WASM block types to what this engine's test programs need.
type BlockType struct {
	Params  int
	Results int
}

// Instr is one bytecode instruction. Not every field is meaningful for
// every Op; Imm/Imm2 carry the immediate(s) (constant value, local/global
// index, memory offset, branch depth, block arity, function index) each
// opcode needs. Block/Loop/If carry their nested bodies directly (Then/
// Else) rather than flat-encoding them with separate End/Else markers --
// simpler to interpret and still faithful to §4.G's "push label, run
// body, pop label" structure.
type Instr struct {
	Op    Op
	Imm   int64
	Imm2  int64
	Type  ValType
	Block BlockType
	Then  []Instr
	Else  []Instr
}

// Func is one function's signature and already-lowered body.
type Func struct {
	Name    string
	Params  []ValType
	Results []ValType
	NumLocals int
	Body    []Instr
}

// DataSegment is a linear-memory initializer: Bytes written at Offset when
// the module is instantiated.
type DataSegment struct {
	Offset int
	Bytes  []byte
}

// Global is an imported or module-defined global value.
type Global struct {
	Name    string
	Type    ValType
	Mutable bool
	Init    int64
}

// Memory describes the linear memory segment's initial/maximum page count
// (64 KiB pages, per WASM convention) plus any data segments to apply.
type Memory struct {
	InitialPages int
	MaxPages     int
	Data         []DataSegment
}

// Module is the parsed program image: functions, globals and memory, with
// EntryFunc naming the function the VM should invoke first.
type Module struct {
	Funcs     []Func
	Globals   []Global
	Memory    Memory
	EntryFunc int
}

// Load reads a JSON-encoded Module from path and validates it. Parsing a
// real WASM binary is an external collaborator's job per §1/§6; this is the
// one concrete file format cmd/ligetron-prove and cmd/ligetron-verify agree
// on for the already-parsed module image the core expects.
func Load(path string) (*Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Module
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ErrModuleMalformed
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FuncByName returns the index of the function with the given name, or -1.
func (m *Module) FuncByName(name string) int {
	for i, f := range m.Funcs {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Validate does a minimal structural sanity pass: the entry function, and
// every call and global.get/global.set in a function's top-level body, must
// reference something that exists. Branch depths are not checked, and
// instructions nested inside Then/Else blocks are not visited. A full
// bytecode verifier is out of scope.
func (m *Module) Validate() error {
	if m.EntryFunc < 0 || m.EntryFunc >= len(m.Funcs) {
		return ErrModuleMalformed
	}
	for _, f := range m.Funcs {
		for _, ins := range f.Body {
			if ins.Op == OpCall && (ins.Imm < 0 || int(ins.Imm) >= len(m.Funcs)) {
				return ErrModuleMalformed
			}
			if (ins.Op == OpGlobalGet || ins.Op == OpGlobalSet) && (ins.Imm < 0 || int(ins.Imm) >= len(m.Globals)) {
				return ErrModuleMalformed
			}
		}
	}
	return nil
}
