package fst

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/hupe1980/termdict/internal/encoding"
	"github.com/hupe1980/termdict/internal/hash"
)

const (
	fstMagic   = "TFST"
	fstVersion = 1

	persistFlagHasEmpty = 1 << 0
)

// WriteTo serializes the automaton:
//
//	magic "TFST" | uvarint version | inputType | flags | [uvarint len, emptyOutput]
//	| uvarint startNode | uvarint nodes | uvarint arcs | uvarint len, node bytes
//	| crc32c u32 LE over everything before it
func (f *FST[T]) WriteTo(w io.Writer) (int64, error) {
	header := make([]byte, 0, 64)
	header = append(header, fstMagic...)
	header = encoding.AppendUvarint(header, fstVersion)
	header = append(header, byte(f.inputType))
	var flags byte
	if f.hasEmpty {
		flags |= persistFlagHasEmpty
	}
	header = append(header, flags)
	if f.hasEmpty {
		header = encoding.AppendBytes(header, f.outputs.Append(nil, f.emptyOutput))
	}
	header = encoding.AppendUvarint(header, uint64(f.startNode))
	header = encoding.AppendUvarint(header, uint64(f.nodeCount))
	header = encoding.AppendUvarint(header, uint64(f.arcCount))
	header = encoding.AppendUvarint(header, uint64(len(f.bytes)))

	cw := hash.NewChecksumWriter(w)
	if _, err := cw.Write(header); err != nil {
		return cw.Count(), err
	}
	if _, err := cw.Write(f.bytes); err != nil {
		return cw.Count(), err
	}
	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], cw.Sum())
	n, err := w.Write(trailer[:])
	return cw.Count() + int64(n), err
}

// MarshalBinary returns the WriteTo encoding.
func (f *FST[T]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load decodes an automaton written by WriteTo. The node bytes alias data,
// which must not be modified while the FST is in use.
func Load[T any](data []byte, outputs Outputs[T]) (*FST[T], error) {
	if err := validateOutputs(outputs); err != nil {
		return nil, err
	}
	if len(data) < len(fstMagic)+4 {
		return nil, corruptf("automaton too short (%d bytes)", len(data))
	}
	body := data[:len(data)-4]
	want := binary.LittleEndian.Uint32(data[len(data)-4:])
	if got := hash.CRC32C(body); got != want {
		return nil, corruptf("checksum mismatch: stored %08x, computed %08x", want, got)
	}
	if string(body[:len(fstMagic)]) != fstMagic {
		return nil, corruptf("bad magic %q", body[:len(fstMagic)])
	}

	r := encoding.NewReader(body)
	_ = r.Skip(len(fstMagic))
	version, err := r.ReadUvarint()
	if err != nil {
		return nil, wrapCorrupt("version", err)
	}
	if version != fstVersion {
		return nil, corruptf("unsupported version %d", version)
	}
	it, err := r.ReadByte()
	if err != nil {
		return nil, wrapCorrupt("input type", err)
	}
	f := &FST[T]{
		outputs:     outputs,
		inputType:   InputType(it),
		emptyOutput: outputs.NoOutput(),
	}
	if !f.inputType.valid() {
		return nil, corruptf("unknown input type %d", it)
	}
	flags, err := r.ReadByte()
	if err != nil {
		return nil, wrapCorrupt("flags", err)
	}
	if flags&persistFlagHasEmpty != 0 {
		n, err := r.ReadUvarintInt()
		if err != nil {
			return nil, wrapCorrupt("empty output", err)
		}
		raw, err := r.ReadBytes(n)
		if err != nil {
			return nil, wrapCorrupt("empty output", err)
		}
		if f.emptyOutput, err = outputs.Read(encoding.NewReader(raw)); err != nil {
			return nil, wrapCorrupt("empty output", err)
		}
		f.hasEmpty = true
	}

	var start, nodes, arcs uint64
	for _, p := range []*uint64{&start, &nodes, &arcs} {
		if *p, err = r.ReadUvarint(); err != nil {
			return nil, wrapCorrupt("header", err)
		}
	}
	size, err := r.ReadUvarintInt()
	if err != nil {
		return nil, wrapCorrupt("byte length", err)
	}
	if size != r.Remaining() {
		return nil, corruptf("byte length %d, %d bytes present", size, r.Remaining())
	}
	if f.bytes, err = r.ReadBytes(size); err != nil {
		return nil, wrapCorrupt("node bytes", err)
	}
	if start >= uint64(max(size, 1)) {
		return nil, corruptf("start node %d out of range", start)
	}
	f.startNode = int64(start)
	f.nodeCount = int64(nodes)
	f.arcCount = int64(arcs)
	return f, nil
}
