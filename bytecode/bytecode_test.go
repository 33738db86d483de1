package bytecode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleModule() *Module {
	return &Module{
		Funcs: []Func{
			{
				Name:      "entry",
				Params:    []ValType{I32, I32},
				Results:   []ValType{I32},
				NumLocals: 2,
				Body: []Instr{
					{Op: OpLocalGet, Imm: 0},
					{Op: OpLocalGet, Imm: 1},
					{Op: OpAdd},
				},
			},
		},
		Globals: []Global{{Name: "g0", Type: I32, Mutable: true, Init: 0}},
		Memory:  Memory{InitialPages: 1},
		EntryFunc: 0,
	}
}

func TestValidateAcceptsWellFormedModule(t *testing.T) {
	m := sampleModule()
	require.NoError(t, m.Validate())
}

func TestValidateRejectsOutOfRangeEntryFunc(t *testing.T) {
	m := sampleModule()
	m.EntryFunc = 5
	require.ErrorIs(t, m.Validate(), ErrModuleMalformed)
}

func TestValidateRejectsDanglingCall(t *testing.T) {
	m := sampleModule()
	m.Funcs[0].Body = append(m.Funcs[0].Body, Instr{Op: OpCall, Imm: 99})
	require.ErrorIs(t, m.Validate(), ErrModuleMalformed)
}

func TestValidateRejectsOutOfRangeGlobal(t *testing.T) {
	m := sampleModule()
	m.Funcs[0].Body = append(m.Funcs[0].Body, Instr{Op: OpGlobalGet, Imm: 3})
	require.ErrorIs(t, m.Validate(), ErrModuleMalformed)
}

func TestFuncByName(t *testing.T) {
	m := sampleModule()
	require.Equal(t, 0, m.FuncByName("entry"))
	require.Equal(t, -1, m.FuncByName("missing"))
}

// TestLoadRoundTrip checks that a Module serialized to JSON (the one wire
// format cmd/ligetron-prove and cmd/ligetron-verify agree on per §1/§6) is
// read back identically by Load.
func TestLoadRoundTrip(t *testing.T) {
	m := sampleModule()
	raw, err := json.Marshal(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "module.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrModuleMalformed)
}

func TestLoadRejectsStructurallyInvalidModule(t *testing.T) {
	m := sampleModule()
	m.EntryFunc = 9
	raw, err := json.Marshal(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Load(path)
	require.ErrorIs(t, err, ErrModuleMalformed)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}
