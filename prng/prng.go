// Package prng implements the deterministic randomness sources component
// (D): a hash-seeded byte stream and an AES-CTR byte stream, both exposing
// rejection-sampled uniform field elements. Determinism is the whole point
// -- prover and verifier run the same PRG from the same seed so that a
// blind introduced by the prover cancels out of a check without the blind
// itself ever being transmitted.
package prng

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"

	"github.com/luxfi/ligetron-iop/field"
)

// Source is any byte-stream RNG that can also sample uniform field
// elements. rs.RandomSource is satisfied structurally by both
// implementations below.
type Source interface {
	NextByte() byte
	UniformInField() field.Elem
}

// uniformInField is shared rejection-sampling logic: draw 8 bytes at a time,
// keep the low 56 bits, reject draws at or above the largest multiple of
// Modulus below 2^56 and reduce the rest mod Modulus, so the result is
// exactly uniform over [0, Modulus) with no modulo bias.
func uniformInField(next func() byte) field.Elem {
	const width = 8 // field.Modulus fits in 51 bits; 8 bytes covers it with room to reject
	for {
		var buf [width]byte
		for i := 0; i < width; i++ {
			buf[i] = next()
		}
		v := binary.LittleEndian.Uint64(buf[:]) & ((uint64(1) << 56) - 1)
		if v < field.Modulus*((uint64(1)<<56)/field.Modulus) {
			return field.New(v)
		}
	}
}

// HashPRG is the hash-seeded engine: it cycles through the bytes of
// H(state||seed) for `digest_size` draws before incrementing state and
// rehashing, mirroring hash_random_engine's byte-cycle-then-rehash
// construction.
type HashPRG struct {
	seed   [32]byte
	state  uint64
	buffer [32]byte
	offset int // next unread byte index within buffer, counting down; -1 means empty
}

// NewHashPRG seeds a HashPRG from an arbitrary-length seed (itself hashed
// down to 32 bytes first).
func NewHashPRG(seed []byte) *HashPRG {
	h := sha256.Sum256(seed)
	return &HashPRG{seed: h, offset: -1}
}

func (p *HashPRG) refill() {
	var msg [40]byte
	binary.LittleEndian.PutUint64(msg[:8], p.state)
	copy(msg[8:], p.seed[:])
	p.buffer = sha256.Sum256(msg[:])
	p.state++
	p.offset = len(p.buffer) - 1
}

// NextByte returns the next pseudorandom byte, refilling the digest cycle
// as needed.
func (p *HashPRG) NextByte() byte {
	if p.offset < 0 {
		p.refill()
	}
	b := p.buffer[p.offset]
	p.offset--
	return b
}

// UniformInField draws a field element uniform over [0, Modulus) via
// rejection sampling.
func (p *HashPRG) UniformInField() field.Elem {
	return uniformInField(p.NextByte)
}

// AESCTRPRG is the AES-256-CTR byte-stream engine: it encrypts an
// all-zero plaintext buffer under a fixed key/IV and serves bytes from the
// resulting keystream, refilling the buffer when exhausted -- the Go
// equivalent of the source's buffered EVP_EncryptUpdate loop.
type AESCTRPRG struct {
	stream cipher.Stream
	buffer [4096]byte
	pos    int
	filled int
}

// NewAESCTRPRG builds an AES-256-CTR engine from a 32-byte key and a
// 16-byte IV/nonce.
func NewAESCTRPRG(key, iv []byte) (*AESCTRPRG, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(block, iv)
	p := &AESCTRPRG{stream: stream}
	p.refill()
	return p, nil
}

func (p *AESCTRPRG) refill() {
	var zero [4096]byte
	p.stream.XORKeyStream(p.buffer[:], zero[:])
	p.pos = 0
	p.filled = len(p.buffer)
}

// NextByte returns the next keystream byte, refilling the buffer as
// needed.
func (p *AESCTRPRG) NextByte() byte {
	if p.pos >= p.filled {
		p.refill()
	}
	b := p.buffer[p.pos]
	p.pos++
	return b
}

// UniformInField draws a field element uniform over [0, Modulus) via
// rejection sampling.
func (p *AESCTRPRG) UniformInField() field.Elem {
	return uniformInField(p.NextByte)
}
