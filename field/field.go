// Package field implements arithmetic over the prime field used by the IOP
// engine: a ~50-bit prime modulus chosen so that its multiplicative group has
// a large power-of-two subgroup, which is what the NTT in this package (and
// the Reed-Solomon encoder built on top of it) needs.
package field

import (
	"errors"
	"math/bits"
)

// Modulus is the field prime p = k*2^32 + 1 with k = 262158, chosen so the
// 2-adicity of p-1 is 32 -- plenty for any NTT size this engine will ever
// build. p is close to but not below 2^50, matching the "near 2^50" modulus
// the spec calls for.
const Modulus uint64 = 1125960036384769

// two32Root is a primitive 2^32-th root of unity mod Modulus. Roots of
// smaller power-of-two order are derived from it by repeated squaring in
// RootOfUnity.
const two32Root uint64 = 1117203175724309

// ErrZeroInverse signals that zero has no multiplicative inverse.
var ErrZeroInverse = errors.New("field: cannot invert zero")

// Elem is a field element, always kept canonical in [0, Modulus).
type Elem uint64

// Zero and One are the additive and multiplicative identities.
const (
	Zero Elem = 0
	One  Elem = 1
)

// New reduces v into canonical form.
func New(v uint64) Elem {
	return Elem(v % Modulus)
}

// FromSigned maps a signed 32-bit interpretation into 𝔽_p: negative
// values wrap around the modulus.
func FromSigned(v int32) Elem {
	if v >= 0 {
		return Elem(uint64(v))
	}
	return Elem(Modulus - uint64(-int64(v)))
}

// ToSigned reinterprets e as the representative in [-2^31, 2^31), the signed
// view used for 32-bit words. It is only meaningful for elements that are
// known to hold a 32-bit signed value.
func ToSigned(e Elem) int32 {
	v := uint64(e)
	if v > Modulus/2 {
		return int32(int64(v) - int64(Modulus))
	}
	return int32(v)
}

func (a Elem) Add(b Elem) Elem {
	s := uint64(a) + uint64(b)
	if s >= Modulus {
		s -= Modulus
	}
	return Elem(s)
}

func (a Elem) Sub(b Elem) Elem {
	if a >= b {
		return a - b
	}
	return Elem(Modulus - uint64(b-a))
}

func (a Elem) Neg() Elem {
	if a == 0 {
		return 0
	}
	return Elem(Modulus) - a
}

func (a Elem) Mul(b Elem) Elem {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	_, rem := bits.Div64(hi%Modulus, lo, Modulus)
	return Elem(rem)
}

// Inverse computes the multiplicative inverse via Fermat's little theorem
// (a^(p-2) mod p), failing on zero.
func (a Elem) Inverse() (Elem, error) {
	if a == 0 {
		return 0, ErrZeroInverse
	}
	return a.Pow(Modulus - 2), nil
}

func (a Elem) Pow(e uint64) Elem {
	result := One
	base := a
	for e > 0 {
		if e&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		e >>= 1
	}
	return result
}

// FMA computes dst[i] += scalar*src[i] for every i, in place. It is the
// building block for the argument accumulator's "acc <- acc + r*p" updates.
func FMA(dst []Elem, scalar Elem, src []Elem) {
	for i := range dst {
		dst[i] = dst[i].Add(scalar.Mul(src[i]))
	}
}

// AddVec, SubVec and MulVec are element-wise polynomial operators;
// dst may alias a or b.
func AddVec(dst, a, b []Elem) {
	for i := range dst {
		dst[i] = a[i].Add(b[i])
	}
}

func SubVec(dst, a, b []Elem) {
	for i := range dst {
		dst[i] = a[i].Sub(b[i])
	}
}

func MulVec(dst, a, b []Elem) {
	for i := range dst {
		dst[i] = a[i].Mul(b[i])
	}
}

// RootOfUnity returns a primitive root of unity of the given order, which
// must be a power of two dividing 2^32.
func RootOfUnity(order uint64) (Elem, error) {
	if order == 0 || order&(order-1) != 0 {
		return 0, errors.New("field: order must be a power of two")
	}
	bitsOrder := bits.TrailingZeros64(order)
	if bitsOrder > 32 {
		return 0, errors.New("field: order exceeds field's 2-adicity")
	}
	shift := 32 - bitsOrder
	return Elem(two32Root).Pow(uint64(1) << uint(shift)), nil
}
