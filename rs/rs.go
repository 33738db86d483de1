// Package rs implements the Reed-Solomon encoder/decoder component (B) that
// sits directly on top of package field's NTT: messages of length ℓ are
// zero/randomly padded to the message-domain size d, interpolated, padded
// again to the codeword-domain size n = 2d, and evaluated there. Blinding
// relies on the padding between ℓ and d being uniformly random and never
// transmitted -- prover and verifier derive the same pad from the same PRG
// seed, so it cancels out of every check without ever crossing the wire.
package rs

import (
	"errors"

	"github.com/luxfi/ligetron-iop/field"
)

// ErrSizeMismatch is returned when a caller hands encode/decode a slice of
// the wrong length for the configured code parameters.
var ErrSizeMismatch = errors.New("rs: slice length does not match code parameters")

// ErrMessageTooLong is returned when a message longer than ℓ is encoded.
var ErrMessageTooLong = errors.New("rs: message longer than plain size l")

// RandomSource supplies the uniform field blinds used by EncodeWith. Package
// prng's generators satisfy this structurally.
type RandomSource interface {
	UniformInField() field.Elem
}

// Params holds the code parameters (p, ℓ, d, n): ℓ is the plaintext size
// requested by the caller, d is the next power of two at least ℓ (the
// message/interpolation domain size), and n = 2d is the codeword domain
// size.
type Params struct {
	L int
	D int
	N int
}

// NewParams derives (d, n) from a requested plaintext size l: d is
// the smallest power of two >= l, and n = 2d.
func NewParams(l int) (Params, error) {
	if l <= 0 {
		return Params{}, errors.New("rs: l must be positive")
	}
	d := 1
	for d < l {
		d <<= 1
	}
	n := d * 2
	if n > (1 << 32) {
		return Params{}, errors.New("rs: requested size exceeds field's NTT 2-adicity")
	}
	return Params{L: l, D: d, N: n}, nil
}

// Encoder is a reusable Reed-Solomon codec for a fixed set of Params. It
// holds one NTT domain of size D and one of size N, mirroring
// reed_solomon64's ntt_message_/ntt_codeword_ pair.
type Encoder struct {
	params  Params
	msgDom  *field.Domain
	codeDom *field.Domain
}

// NewEncoder builds an Encoder for the given Params.
func NewEncoder(p Params) (*Encoder, error) {
	msgDom, err := field.NewDomain(p.D)
	if err != nil {
		return nil, err
	}
	codeDom, err := field.NewDomain(p.N)
	if err != nil {
		return nil, err
	}
	return &Encoder{params: p, msgDom: msgDom, codeDom: codeDom}, nil
}

func (e *Encoder) Params() Params { return e.params }

// EncodeWith encodes message (length <= ℓ, zero-padded to ℓ) into a
// length-n codeword, filling the ℓ..d gap with blinds drawn from rand. This
// is the zero-knowledge encoding path: every row a prover commits to goes
// through EncodeWith with a fresh blind.
func (e *Encoder) EncodeWith(message []field.Elem, rand RandomSource) ([]field.Elem, error) {
	if len(message) > e.params.L {
		return nil, ErrMessageTooLong
	}
	buf := make([]field.Elem, e.params.D)
	copy(buf, message)
	for i := e.params.L; i < e.params.D; i++ {
		buf[i] = rand.UniformInField()
	}
	return e.finishEncode(buf)
}

// EncodeConst encodes a public (non-blinded) message: the ℓ..d gap is
// zero-filled rather than randomized, for values the verifier must be able
// to recompute without a PRG seed.
func (e *Encoder) EncodeConst(message []field.Elem) ([]field.Elem, error) {
	if len(message) > e.params.L {
		return nil, ErrMessageTooLong
	}
	buf := make([]field.Elem, e.params.D)
	copy(buf, message)
	return e.finishEncode(buf)
}

func (e *Encoder) finishEncode(buf []field.Elem) ([]field.Elem, error) {
	if err := e.msgDom.Inverse(buf); err != nil {
		return nil, err
	}
	codeword := make([]field.Elem, e.params.N)
	copy(codeword, buf)
	if err := e.codeDom.Forward(codeword); err != nil {
		return nil, err
	}
	return codeword, nil
}

// PartialEncode forwards an already-interpolated, d-sized coefficient
// vector straight to the codeword domain, skipping the inverse transform --
// used when the caller already has coefficients (the verifier re-encodes the
// prover's partial code polynomial this way).
func (e *Encoder) PartialEncode(coeffs []field.Elem) ([]field.Elem, error) {
	if len(coeffs) > e.params.D {
		return nil, ErrSizeMismatch
	}
	codeword := make([]field.Elem, e.params.N)
	copy(codeword, coeffs)
	if err := e.codeDom.Forward(codeword); err != nil {
		return nil, err
	}
	return codeword, nil
}

// Decode recovers the length-ℓ message from a length-n codeword. It relies
// on n == 2d: the inverse codeword-domain transform yields 2d coefficients,
// and Decode subtracts the high half from the low half before the final
// message-domain forward transform. For a codeword produced by this
// encoder the high half is zero (finishEncode zero-pads it), so the
// subtraction leaves the interpolated coefficients unchanged; the blinds in
// positions ℓ..d are dropped by truncating the result to ℓ.
func (e *Encoder) Decode(codeword []field.Elem) ([]field.Elem, error) {
	if len(codeword) != e.params.N {
		return nil, ErrSizeMismatch
	}
	coeffs, err := e.partialDecodeCore(codeword)
	if err != nil {
		return nil, err
	}
	if err := e.msgDom.Forward(coeffs); err != nil {
		return nil, err
	}
	return coeffs[:e.params.L], nil
}

// PartialDecode performs the inverse-transform-and-subtract half of Decode
// without the final forward transform, returning d coefficients rather than
// ℓ message values.
func (e *Encoder) PartialDecode(codeword []field.Elem) ([]field.Elem, error) {
	if len(codeword) != e.params.N {
		return nil, ErrSizeMismatch
	}
	return e.partialDecodeCore(codeword)
}

// FinishDecode applies only the second half of Decode -- the plaintext
// forward transform -- to a coefficient vector that already went through
// PartialDecode's inverse-transform-and-subtract step, recovering the
// length-ℓ message. The verifier uses this to check that a disclosed
// partial code polynomial's full-decoded form is all-zeros, the code-check
// disposition, without re-deriving it from a full codeword.
func (e *Encoder) FinishDecode(coeffs []field.Elem) ([]field.Elem, error) {
	if len(coeffs) > e.params.D {
		return nil, ErrSizeMismatch
	}
	buf := make([]field.Elem, e.params.D)
	copy(buf, coeffs)
	if err := e.msgDom.Forward(buf); err != nil {
		return nil, err
	}
	return buf[:e.params.L], nil
}

func (e *Encoder) partialDecodeCore(codeword []field.Elem) ([]field.Elem, error) {
	buf := make([]field.Elem, e.params.N)
	copy(buf, codeword)
	if err := e.codeDom.Inverse(buf); err != nil {
		return nil, err
	}
	d := e.params.D
	out := make([]field.Elem, d)
	field.SubVec(out, buf[:d], buf[d:])
	return out, nil
}
