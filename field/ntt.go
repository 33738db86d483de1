package field

import "errors"

// Domain is a radix-2 NTT context for a fixed power-of-two size. A Domain is
// reused across many forward/inverse transforms of that size -- the
// Reed-Solomon encoder in package rs keeps one Domain for the plaintext size
// d and one for the codeword size n.
type Domain struct {
	size     int
	root     Elem   // primitive size-th root of unity
	rootInv  Elem   // its inverse
	sizeInv  Elem   // inverse of size, for the inverse transform's scaling
	fwdTwid  []Elem // root^0, root^1, ..., root^(size/2-1)
	invTwid  []Elem
	bitrevOk []int
}

// NewDomain builds an NTT context for the given power-of-two size.
func NewDomain(size int) (*Domain, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, errors.New("field: NTT size must be a power of two")
	}
	root, err := RootOfUnity(uint64(size))
	if err != nil {
		return nil, err
	}
	rootInv, err := root.Inverse()
	if err != nil {
		return nil, err
	}
	sizeInv, err := New(uint64(size)).Inverse()
	if err != nil {
		return nil, err
	}

	d := &Domain{size: size, root: root, rootInv: rootInv, sizeInv: sizeInv}
	d.fwdTwid = powers(root, size/2)
	d.invTwid = powers(rootInv, size/2)
	d.bitrevOk = bitReverseTable(size)
	return d, nil
}

func powers(base Elem, count int) []Elem {
	out := make([]Elem, count)
	cur := One
	for i := 0; i < count; i++ {
		out[i] = cur
		cur = cur.Mul(base)
	}
	return out
}

func bitReverseTable(n int) []int {
	bitsN := 0
	for (1 << bitsN) < n {
		bitsN++
	}
	table := make([]int, n)
	for i := 0; i < n; i++ {
		r := 0
		x := i
		for b := 0; b < bitsN; b++ {
			r = (r << 1) | (x & 1)
			x >>= 1
		}
		table[i] = r
	}
	return table
}

func (d *Domain) Size() int { return d.size }

// Forward computes the in-place forward NTT (evaluation at the size-th roots
// of unity) of coeffs, which must have length Size().
func (d *Domain) Forward(coeffs []Elem) error {
	return d.transform(coeffs, d.fwdTwid, false)
}

// Inverse computes the in-place inverse NTT (interpolation), scaling by
// 1/size at the end.
func (d *Domain) Inverse(evals []Elem) error {
	return d.transform(evals, d.invTwid, true)
}

func (d *Domain) transform(a []Elem, twiddles []Elem, scale bool) error {
	n := d.size
	if len(a) != n {
		return errors.New("field: NTT input length mismatch")
	}

	for i, j := range d.bitrevOk {
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		half := length / 2
		step := n / length
		for start := 0; start < n; start += length {
			for k := 0; k < half; k++ {
				w := twiddles[k*step]
				u := a[start+k]
				v := a[start+k+half].Mul(w)
				a[start+k] = u.Add(v)
				a[start+k+half] = u.Sub(v)
			}
		}
	}

	if scale {
		for i := range a {
			a[i] = a[i].Mul(d.sizeInv)
		}
	}
	return nil
}
