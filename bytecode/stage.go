package bytecode

// InputBase is the fixed linear-memory offset §6 reserves for staged input
// bytes, lifted from the source driver's input-staging convention
// (src/wasm.cpp writes the witness at a fixed high address so it never
// collides with the program's own data segments).
const InputBase = 0x800000

// StageInput writes A ∥ B into mem at InputBase and returns the
// (addrA, addrB, lenA, lenB) argument tuple the entry function is called
// with, per §6's input memory layout.
func StageInput(mem []byte, a, b []byte) (addrA, addrB, lenA, lenB int32, err error) {
	addrA = InputBase
	lenA = int32(len(a))
	addrB = addrA + int32(len(a))
	lenB = int32(len(b))

	end := int(addrB) + len(b)
	if end > len(mem) {
		return 0, 0, 0, 0, ErrModuleMalformed
	}
	copy(mem[addrA:], a)
	copy(mem[addrB:], b)
	return addrA, addrB, lenA, lenB, nil
}
