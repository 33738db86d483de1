// Package arena implements the witness arena component (E): a generational,
// reference-counted store for the linear and quadratic rows the constraint
// emitter writes into. Each row has a fixed capacity ℓ; once full, live
// (still-referenced) entries are copied ("marked and swept") into a fresh
// generation and the old row is handed off to the Merkle builder via a
// caller-supplied callback.
//
// The source (include/zkp/gc.hpp) ties a live reference to a row slot with a
// shared_ptr<location> so that sweeping a slot can relocate it in place
// without invalidating outstanding references. This package gets the same
// effect from an explicit, index-free design: a Ref is a pointer to a
// Cell, and sweeping swaps Cell contents (not Cell identity) between rows, so
// every Ref a caller is holding keeps working after a sweep without the
// caller doing anything.
package arena

import (
	"errors"

	"github.com/luxfi/ligetron-iop/field"
	"github.com/luxfi/ligetron-iop/internal/fixedvec"
)

// ErrArenaExhausted is returned when a sweep cannot find room for every live
// entry even after a recursive compaction through the spare row.
var ErrArenaExhausted = errors.New("arena: no space left after compaction")

// ErrRowReset is returned by Reset when a row still has referenced slots.
var ErrRowReset = errors.New("arena: cannot reset a row with live references")

// RandomSource supplies the per-test blinding values used while building
// linear/equality relations. prng's generators satisfy this structurally.
type RandomSource interface {
	UniformInField() field.Elem
}

// Cell is the stable identity behind a Ref. Its Row/Offset fields are
// mutated in place during a sweep so that every Ref pointing at the same
// Cell observes the relocation.
type Cell struct {
	row    *Row
	offset int
	count  int32
}

// Ref is a live reference into an arena row. Callers that keep a Ref around
// across a potential GC point must Retain it, and Release it once done,
// mirroring the source's shared_ptr-counted `reference`.
type Ref struct{ cell *Cell }

// Retain increments the reference count and returns the same Ref, so it can
// be chained: stored := ref.Retain().
func (r Ref) Retain() Ref {
	r.cell.count++
	return r
}

// Release decrements the reference count once the caller no longer needs
// this slot kept alive across a sweep.
func (r Ref) Release() {
	r.cell.count--
}

// Val returns the slot's concrete signed 32-bit value.
func (r Ref) Val() int32 { return r.cell.row.val.Get(r.cell.offset) }

// Rand returns the ri-th linear-test randomness accumulated at this slot.
func (r Ref) Rand(ri int) field.Elem { return r.cell.row.randoms[ri].Get(r.cell.offset) }

// SetRand overwrites the ri-th linear-test randomness at this slot.
func (r Ref) SetRand(ri int, v field.Elem) { r.cell.row.randoms[ri].Set(r.cell.offset, v) }

// Row is one fixed-capacity generation of witness values plus their
// per-test randomness, the unit the Merkle builder commits to.
type Row struct {
	capacity      int
	numLinearTest int
	val           *fixedvec.Vec[int32]
	randoms       []*fixedvec.Vec[field.Elem]
	cells         []*Cell
}

// NewRow allocates an empty row of the given capacity, tracking
// numLinearTest independent randomness columns, one per repeated linear test.
func NewRow(capacity, numLinearTest int) *Row {
	r := &Row{
		capacity:      capacity,
		numLinearTest: numLinearTest,
		val:           fixedvec.New[int32](capacity),
		randoms:       make([]*fixedvec.Vec[field.Elem], numLinearTest),
		cells:         make([]*Cell, capacity),
	}
	for i := range r.randoms {
		r.randoms[i] = fixedvec.New[field.Elem](capacity)
	}
	for i := range r.cells {
		r.cells[i] = &Cell{row: r, offset: i}
	}
	return r
}

// Size returns how many slots are currently populated.
func (r *Row) Size() int { return r.val.Len() }

// Capacity returns the row's fixed slot count.
func (r *Row) Capacity() int { return r.capacity }

// Available reports whether PushBack has room.
func (r *Row) Available() bool { return r.val.Available() }

// Values returns the populated prefix of concrete signed values, the row
// contents the Merkle builder absorbs as one committed column set.
func (r *Row) Values() []int32 { return r.val.Slice() }

// Randoms returns the populated prefix of the ri-th randomness column.
func (r *Row) Randoms(ri int) []field.Elem { return r.randoms[ri].Slice() }

// PushBack appends a new concrete value and returns a fresh Ref to it. The
// returned Ref starts at refcount zero; callers that need to keep it alive
// across a later sweep must call Retain.
func (r *Row) PushBack(val int32) (Ref, error) {
	idx, err := r.val.Push(val)
	if err != nil {
		return Ref{}, err
	}
	for _, col := range r.randoms {
		col.Push(field.Zero)
	}
	cell := r.cells[idx]
	cell.count = 0
	return Ref{cell: cell}, nil
}

// TryPushBack is PushBack without the error: ok is false if the row is full.
func (r *Row) TryPushBack(val int32) (Ref, bool) {
	ref, err := r.PushBack(val)
	return ref, err == nil
}

// Reset clears the row back to empty. It refuses to discard any slot that
// still has live references, since that would silently corrupt a Ref a
// caller is still holding.
func (r *Row) Reset() error {
	for i := 0; i < r.val.Len(); i++ {
		if r.cells[i].count > 0 {
			return ErrRowReset
		}
	}
	r.val.Reset()
	for _, col := range r.randoms {
		col.Reset()
	}
	for i, c := range r.cells {
		c.row = r
		c.offset = i
		c.count = 0
	}
	return nil
}

// MarkAndSweep copies every still-referenced slot of r into next, relocating
// each live Cell in place (so outstanding Refs keep working) and adjusting
// the per-test randomness so the moved value's linear relation still
// balances across generations. If next fills up before every live slot is
// copied, the sweep recurses through extra (sweeping next's own live slots
// into extra first to make room) exactly as the source's "recursive GC
// without extra row" branch does; extra == nil in that situation is an
// error, not silent truncation.
func (r *Row) MarkAndSweep(next *Row, dist RandomSource, extra *Row) (recursed bool, err error) {
	if r.capacity != next.capacity {
		return false, errors.New("arena: generation size mismatch")
	}
	target := next
	for i := 0; i < r.val.Len(); i++ {
		cell := r.cells[i]
		if cell.count <= 0 {
			continue
		}

		newRef, ok := target.TryPushBack(r.val.Get(i))
		if !ok {
			if extra == nil {
				return false, ErrArenaExhausted
			}
			if _, err := target.MarkAndSweep(extra, dist, nil); err != nil {
				return false, err
			}
			target, extra = extra, target
			recursed = true
			newRef, ok = target.TryPushBack(r.val.Get(i))
			if !ok {
				return false, ErrArenaExhausted
			}
		}

		if dist != nil {
			for ri := 0; ri < r.numLinearTest; ri++ {
				rv := dist.UniformInField()
				old := r.randoms[ri].Get(i).Sub(rv)
				r.randoms[ri].Set(i, old)
				updated := newRef.Rand(ri).Add(rv)
				newRef.SetRand(ri, updated)
			}
		}

		oldCell := cell
		newCell := newRef.cell
		oldCell.row, newCell.row = newCell.row, oldCell.row
		oldCell.offset, newCell.offset = newCell.offset, oldCell.offset
		r.cells[i] = newCell
		target.cells[oldCell.offset] = oldCell
	}
	return recursed, nil
}
