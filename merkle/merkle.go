// Package merkle implements the commitment component (C): a keyed hash
// function, a column-wise tree builder (one running hash state per codeword
// position, fed one row at a time), and the recursive decommit/recommit
// algorithms the verifier uses to check a partial set of disclosed leaves
// against a single root without rehashing the whole tree.
package merkle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"hash"

	"github.com/luxfi/ligetron-iop/field"
	"github.com/zeebo/blake3"
)

// DigestSize is the fixed digest length every Hasher in this package
// produces, so trees built with different hashers stay structurally
// interchangeable per §4.C.
const DigestSize = 32

// Digest is a fixed-size tree node / leaf hash.
type Digest [DigestSize]byte

// Hasher constructs a fresh incremental hash state. Package-level values
// KeyedSHA256 and Blake3 are the two interchangeable implementations §4.C
// requires.
type Hasher interface {
	New() hash.Hash
}

// keyedSHA256 keys SHA-256 via HMAC so that two trees built under different
// keys never collide, even on identical leaf data.
type keyedSHA256 struct{ key []byte }

// KeyedSHA256 returns the primary Hasher, HMAC-SHA-256 under key.
func KeyedSHA256(key []byte) Hasher { return keyedSHA256{key: key} }

func (k keyedSHA256) New() hash.Hash { return hmac.New(sha256.New, k.key) }

// blake3Hasher is the alternate Hasher implementation, grounded on the
// teacher's blake3 package and zk/stark.go's Blake3HashAddr: §4.C requires
// that an alternate hash scheme be substitutable without changing the tree
// algorithm, which this interface achieves structurally.
type blake3Hasher struct{ key []byte }

// Blake3 returns the alternate Hasher, a keyed BLAKE3.
func Blake3(key []byte) Hasher {
	return blake3Hasher{key: key}
}

func (b blake3Hasher) New() hash.Hash {
	h := blake3.New()
	h.Write(b.key)
	return h
}

var ErrSizeMismatch = errors.New("merkle: column count does not match builder width")
var ErrUnknownLeaf = errors.New("merkle: no stored node for requested leaf")

// Builder absorbs a codeword matrix column by column: each call to Absorb
// supplies one row (one value per column), and every column's hash state
// keeps running until Build flushes them into leaves. This mirrors the
// source's `builder::operator<<` being called once per appended row.
type Builder struct {
	hasher Hasher
	states []hash.Hash
}

// NewBuilder allocates a column-wise builder for a tree with the given
// number of leaf columns.
func NewBuilder(hasher Hasher, columns int) *Builder {
	states := make([]hash.Hash, columns)
	for i := range states {
		states[i] = hasher.New()
	}
	return &Builder{hasher: hasher, states: states}
}

func (b *Builder) Width() int { return len(b.states) }

// Absorb feeds one row of field elements into the builder, one element per
// column's running hash state.
func (b *Builder) Absorb(row []field.Elem) error {
	if len(row) != len(b.states) {
		return ErrSizeMismatch
	}
	var buf [8]byte
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		b.states[i].Write(buf[:])
	}
	return nil
}

// Build flushes every column's hash state into a leaf digest and constructs
// the binary tree over them.
func (b *Builder) Build() *Tree {
	leaves := make([]Digest, len(b.states))
	for i, s := range b.states {
		var d Digest
		copy(d[:], s.Sum(nil))
		leaves[i] = d
	}
	return newTreeFromLeaves(leaves)
}

// Tree is a complete binary Merkle tree stored as a flat array: index 0 is
// the root, leaves occupy the back half, matching the source's single
// `nodes_` vector of size 2*leafSize-1.
type Tree struct {
	nodes    []Digest
	leafSize int // power-of-two leaf count
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func newTreeFromLeaves(leaves []Digest) *Tree {
	leafSize := nextPow2(len(leaves))
	parentSize := leafSize - 1
	nodes := make([]Digest, parentSize+leafSize)
	copy(nodes[parentSize:], leaves)
	t := &Tree{nodes: nodes, leafSize: leafSize}
	if parentSize > 0 {
		t.buildLayer(parentIndex(parentSize), parentSize)
	}
	return t
}

func parentIndex(curr int) int {
	if curr == 0 {
		return 0
	}
	return (curr - 1) / 2
}

func (t *Tree) buildLayer(start, end int) {
	for i := start; i < end; i++ {
		left := 2*i + 1
		right := left + 1
		t.nodes[i] = hashPair(t.nodes[left], t.nodes[right])
	}
	if start > 0 {
		t.buildLayer(parentIndex(start), start)
	}
}

func hashPair(a, b Digest) Digest {
	var sum [64]byte
	copy(sum[:32], a[:])
	copy(sum[32:], b[:])
	raw := sha256.Sum256(sum[:])
	return Digest(raw)
}

// Root returns the tree's root digest.
func (t *Tree) Root() Digest { return t.nodes[0] }

// Leaf returns the i-th leaf digest.
func (t *Tree) Leaf(i int) Digest { return t.nodes[len(t.nodes)/2+i] }

// Size returns the total node count (2*leafSize - 1).
func (t *Tree) Size() int { return len(t.nodes) }

// Decommitment is the minimal set of sibling digests a verifier needs to
// recompute the root from a known subset of leaves.
type Decommitment struct {
	TotalNodes int
	KnownIndex []int
	Nodes      map[int]Digest
}

func (d *Decommitment) insert(pos int, node Digest) { d.Nodes[pos] = node }

// LeafSize is the number of leaf slots the tree this decommitment was built
// from has (total/2 + 1, per the source's off-by-one leaf_size()).
func (d *Decommitment) LeafSize() int { return d.TotalNodes/2 + 1 }

func (d *Decommitment) at(i int) (Digest, bool) {
	v, ok := d.Nodes[i]
	return v, ok
}

// Decommit produces the sibling set needed to recompute the root from the
// leaves at knownIndex, following the source's recursive halving algorithm
// over global node indices.
func (t *Tree) Decommit(knownIndex []int) *Decommitment {
	d := &Decommitment{TotalNodes: len(t.nodes), KnownIndex: append([]int(nil), knownIndex...), Nodes: map[int]Digest{}}
	known := map[int]bool{}
	for _, idx := range knownIndex {
		known[idx] = true
	}
	t.decommitHelper(d, known, len(t.nodes)/2, len(t.nodes))
	return d
}

func (t *Tree) decommitHelper(d *Decommitment, known map[int]bool, start, end int) {
	if start == 0 {
		return
	}
	upper := map[int]bool{}
	for i := start; i < end; i += 2 {
		left, right := i, i+1
		localLeft, localRight := left-start, right-start
		localParent := localLeft / 2
		kl, kr := known[localLeft], known[localRight]

		switch {
		case kl && kr:
			upper[localParent] = true
		case kr:
			d.insert(left, t.nodes[left])
			upper[localParent] = true
		case kl:
			d.insert(right, t.nodes[right])
			upper[localParent] = true
		}
	}
	t.decommitHelper(d, upper, parentIndex(start), start)
}

// Recommit recomputes the root from a builder holding exactly the disclosed
// leaves (in knownIndex order) plus a decommitment carrying the missing
// siblings. It is what the verifier calls: it never touches a full tree.
func Recommit(b *Builder, d *Decommitment) (Digest, error) {
	if b.Width() != len(d.KnownIndex) {
		return Digest{}, ErrSizeMismatch
	}
	buffer := make([]Digest, d.LeafSize())
	for i, idx := range d.KnownIndex {
		var leaf Digest
		copy(leaf[:], b.states[i].Sum(nil))
		buffer[idx] = leaf
	}
	known := map[int]bool{}
	for _, idx := range d.KnownIndex {
		known[idx] = true
	}
	if err := recommitHelper(buffer, d, known, d.TotalNodes/2, d.TotalNodes); err != nil {
		return Digest{}, err
	}
	return buffer[0], nil
}

func recommitHelper(buffer []Digest, d *Decommitment, known map[int]bool, start, end int) error {
	if start == 0 {
		return nil
	}
	upper := map[int]bool{}
	for i := start; i < end; i += 2 {
		left, right := i, i+1
		localLeft, localRight := left-start, right-start
		localParent := localLeft / 2
		kl, kr := known[localLeft], known[localRight]

		switch {
		case kl && kr:
			buffer[localParent] = hashPair(buffer[localLeft], buffer[localRight])
			upper[localParent] = true
		case kr:
			sib, ok := d.at(left)
			if !ok {
				return ErrUnknownLeaf
			}
			buffer[localParent] = hashPair(sib, buffer[localRight])
			upper[localParent] = true
		case kl:
			sib, ok := d.at(right)
			if !ok {
				return ErrUnknownLeaf
			}
			buffer[localParent] = hashPair(buffer[localLeft], sib)
			upper[localParent] = true
		}
	}
	return recommitHelper(buffer, d, upper, parentIndex(start), start)
}
