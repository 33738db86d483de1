package iop

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/luxfi/ligetron-iop/field"
	"github.com/luxfi/ligetron-iop/merkle"
	"github.com/luxfi/ligetron-iop/prng"
)

// seedBytes turns the transmitted encoder seeds into the byte string the
// blind PRG is seeded from, so both prover and verifier derive the exact
// same blind stream from the proof alone.
func seedBytes(seeds [8]uint32) []byte {
	buf := make([]byte, 32)
	for i, s := range seeds {
		binary.LittleEndian.PutUint32(buf[i*4:], s)
	}
	return buf
}

// sampleSeedFrom hashes the stage2 argument (root plus the three combined
// polynomials) down to the 32-byte seed that drives the §4.I disclosure
// sample: "hash the stage-2 argument to S_samp."
func sampleSeedFrom(root merkle.Digest, code, lin, quad []field.Elem) [32]byte {
	h := sha256.New()
	h.Write(root[:])
	writePolyDigest(h, code)
	writePolyDigest(h, lin)
	writePolyDigest(h, quad)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writePolyDigest(h interface{ Write([]byte) (int, error) }, poly []field.Elem) {
	var buf [8]byte
	for _, e := range poly {
		binary.LittleEndian.PutUint64(buf[:], uint64(e))
		h.Write(buf[:])
	}
}

// sampleIndices draws `count` distinct indices from [0, n) by rejection
// sampling against a HashPRG seeded from seed, then returns them sorted --
// functionally the same distinctness guarantee as reservoir sampling, just
// phrased as draw-and-reject since n is known up front.
func sampleIndices(seed []byte, n, count int) []int {
	if count > n {
		count = n
	}
	prg := prng.NewHashPRG(seed)
	seen := make(map[int]bool, count)
	idx := make([]int, 0, count)
	for len(idx) < count {
		v := prg.UniformInField()
		i := int(uint64(v) % uint64(n))
		if seen[i] {
			continue
		}
		seen[i] = true
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// challengeStream seeds a fresh per-repetition Fiat-Shamir challenge PRG:
// root||class-tag||index, so prover and verifier can each rebuild the exact
// same T_code/T_quad challenge sequences from the committed root alone.
func challengeStream(root merkle.Digest, class string, index int) *prng.HashPRG {
	h := sha256.New()
	h.Write(root[:])
	h.Write([]byte(class))
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], uint32(index))
	h.Write(idx[:])
	return prng.NewHashPRG(h.Sum(nil))
}
