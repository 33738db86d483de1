package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardInverseRoundTrip(t *testing.T) {
	for _, size := range []int{2, 4, 8, 64} {
		dom, err := NewDomain(size)
		require.NoError(t, err)

		coeffs := make([]Elem, size)
		for i := range coeffs {
			coeffs[i] = New(uint64(i*7 + 3))
		}
		original := append([]Elem(nil), coeffs...)

		require.NoError(t, dom.Forward(coeffs))
		require.NoError(t, dom.Inverse(coeffs))
		require.Equal(t, original, coeffs, "size=%d", size)
	}
}

func TestNewDomainRejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewDomain(3)
	require.Error(t, err)
}

func TestTransformRejectsWrongLength(t *testing.T) {
	dom, err := NewDomain(8)
	require.NoError(t, err)
	err = dom.Forward(make([]Elem, 4))
	require.Error(t, err)
}

// TestDomainSizeConsistency checks that the size-d domain's root of unity is
// the square of the size-n domain's root, i.e. the two
// NTT sizes the Reed-Solomon encoder builds (d for the message domain, n
// for the codeword domain, with n = 2d) share one consistent family of
// roots of unity, per §4.A's "primitive root chosen so the size-2d and
// size-n roots are consistent".
func TestDomainSizeConsistency(t *testing.T) {
	d, n := 32, 64
	domD, err := NewDomain(d)
	require.NoError(t, err)
	domN, err := NewDomain(n)
	require.NoError(t, err)
	require.Equal(t, domD.root, domN.root.Mul(domN.root))
}
