// Package proof implements the versioned little-endian proof blob format:
// the wire format stage3 writes and the verifier reads back, independent of
// any particular hasher/encoder choice. Grounded on
// original_source/src/prover.cpp and src/verifier.cpp's I/O shape; this
// package uses encoding/binary.LittleEndian per the required wire
// endianness (blake3/contract.go's own wire helpers use big-endian, which
// is why this is a deliberate departure, not copied verbatim).
package proof

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sort"

	"github.com/luxfi/ligetron-iop/field"
	"github.com/luxfi/ligetron-iop/merkle"
)

// Version is the current proof blob format version.
const Version uint32 = 1

// ErrSerialization is returned when a proof blob cannot be decoded -- the
// verifier reports and rejects it as malformed.
var ErrSerialization = errors.New("proof: malformed or truncated blob")

// Proof is the in-memory form of the serialized blob.
type Proof struct {
	Version      uint32
	EncoderSeeds [8]uint32
	Root         merkle.Digest
	SampleSeed   [32]byte
	PartialCode  []field.Elem
	Quadratic    []field.Elem
	Linear       []field.Elem
	Decommitment *merkle.Decommitment
	RowSamples   [][]field.Elem
}

// Encode serializes p's fields in a fixed order.
func Encode(w io.Writer, p *Proof) error {
	if err := binary.Write(w, binary.LittleEndian, Version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.EncoderSeeds); err != nil {
		return err
	}
	if _, err := w.Write(p.Root[:]); err != nil {
		return err
	}
	if _, err := w.Write(p.SampleSeed[:]); err != nil {
		return err
	}
	if err := writePoly(w, p.PartialCode); err != nil {
		return err
	}
	if err := writePoly(w, p.Quadratic); err != nil {
		return err
	}
	if err := writePoly(w, p.Linear); err != nil {
		return err
	}
	if err := writeDecommitment(w, p.Decommitment); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(p.RowSamples))); err != nil {
		return err
	}
	for _, row := range p.RowSamples {
		if err := writePoly(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writePoly(w io.Writer, poly []field.Elem) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(poly))); err != nil {
		return err
	}
	for _, e := range poly {
		if err := binary.Write(w, binary.LittleEndian, uint64(e)); err != nil {
			return err
		}
	}
	return nil
}

func writeDecommitment(w io.Writer, d *merkle.Decommitment) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(d.LeafSize())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(d.KnownIndex))); err != nil {
		return err
	}
	for _, idx := range d.KnownIndex {
		if err := binary.Write(w, binary.LittleEndian, uint32(idx)); err != nil {
			return err
		}
	}
	positions := make([]int, 0, len(d.Nodes))
	for pos := range d.Nodes {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(positions))); err != nil {
		return err
	}
	for _, pos := range positions {
		if err := binary.Write(w, binary.LittleEndian, uint32(pos)); err != nil {
			return err
		}
		digest := d.Nodes[pos]
		if _, err := w.Write(digest[:]); err != nil {
			return err
		}
	}
	return nil
}

// Decode deserializes a Proof from r, failing with ErrSerialization (wrapped
// with the underlying cause) on any truncation or structural problem.
func Decode(r io.Reader) (*Proof, error) {
	p := &Proof{}
	if err := binary.Read(r, binary.LittleEndian, &p.Version); err != nil {
		return nil, wrapSerialization(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &p.EncoderSeeds); err != nil {
		return nil, wrapSerialization(err)
	}
	if _, err := io.ReadFull(r, p.Root[:]); err != nil {
		return nil, wrapSerialization(err)
	}
	if _, err := io.ReadFull(r, p.SampleSeed[:]); err != nil {
		return nil, wrapSerialization(err)
	}
	var err error
	if p.PartialCode, err = readPoly(r); err != nil {
		return nil, err
	}
	if p.Quadratic, err = readPoly(r); err != nil {
		return nil, err
	}
	if p.Linear, err = readPoly(r); err != nil {
		return nil, err
	}
	if p.Decommitment, err = readDecommitment(r); err != nil {
		return nil, err
	}
	var rowCount uint32
	if err := binary.Read(r, binary.LittleEndian, &rowCount); err != nil {
		return nil, wrapSerialization(err)
	}
	p.RowSamples = make([][]field.Elem, rowCount)
	for i := range p.RowSamples {
		if p.RowSamples[i], err = readPoly(r); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func readPoly(r io.Reader) ([]field.Elem, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, wrapSerialization(err)
	}
	out := make([]field.Elem, n)
	for i := range out {
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapSerialization(err)
		}
		out[i] = field.Elem(v)
	}
	return out, nil
}

func readDecommitment(r io.Reader) (*merkle.Decommitment, error) {
	var leafCount, idxCount uint32
	if err := binary.Read(r, binary.LittleEndian, &leafCount); err != nil {
		return nil, wrapSerialization(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &idxCount); err != nil {
		return nil, wrapSerialization(err)
	}
	known := make([]int, idxCount)
	for i := range known {
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapSerialization(err)
		}
		known[i] = int(v)
	}
	var nodeCount uint32
	if err := binary.Read(r, binary.LittleEndian, &nodeCount); err != nil {
		return nil, wrapSerialization(err)
	}
	nodes := make(map[int]merkle.Digest, nodeCount)
	for i := uint32(0); i < nodeCount; i++ {
		var pos uint32
		if err := binary.Read(r, binary.LittleEndian, &pos); err != nil {
			return nil, wrapSerialization(err)
		}
		var d merkle.Digest
		if _, err := io.ReadFull(r, d[:]); err != nil {
			return nil, wrapSerialization(err)
		}
		nodes[int(pos)] = d
	}
	return &merkle.Decommitment{TotalNodes: int(leafCount)*2 - 1, KnownIndex: known, Nodes: nodes}, nil
}

func wrapSerialization(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrSerialization
	}
	return errors.Join(ErrSerialization, err)
}

// Marshal is a convenience wrapper returning the encoded bytes.
func Marshal(p *Proof) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is a convenience wrapper decoding from a byte slice.
func Unmarshal(data []byte) (*Proof, error) {
	return Decode(bytes.NewReader(data))
}
