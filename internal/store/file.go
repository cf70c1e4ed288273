package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/ir"
)

// Magic identifies a tree file ("QTRE" little-endian).
const Magic uint32 = 0x45525451

const (
	headerWords = 12
	headerSize  = headerWords * 4
	recordWords = 1 + ir.MaxSlots
)

var (
	// ErrBadMagic is returned for data that is not a tree file.
	ErrBadMagic = errors.New("not a tree file")

	// ErrChecksum is returned when the CRC32 of a tree file does not match.
	ErrChecksum = errors.New("tree file checksum mismatch")
)

// Header is the fixed header of a tree file.
type Header struct {
	Magic     uint32
	Version   uint32
	Flags     uint32
	SidCRC    uint32
	KStart    uint32
	OStart    uint32
	EStart    uint32
	NStart    uint32
	NumNodes  uint32
	NumRoots  uint32
	NameBytes uint32
	Crc32     uint32
}

// Marshal encodes a snapshot as a tree file.
func Marshal(snap *engine.Snapshot) ([]byte, error) {
	l := snap.Layout
	h := Header{
		Magic:    Magic,
		Version:  ir.FormatVersion,
		SidCRC:   snap.SidCRC,
		KStart:   ir.KStart,
		OStart:   ir.KStart + uint32(l.NumKeys),
		EStart:   ir.KStart + uint32(l.NumKeys+l.NumOutputs),
		NStart:   ir.KStart + uint32(l.Total()),
		NumRoots: uint32(len(snap.Roots)),
	}
	h.NumNodes = h.NStart + uint32(len(snap.Records))
	if len(snap.Names) != l.Total() {
		return nil, fmt.Errorf("marshal: %d names for %d entries", len(snap.Names), l.Total())
	}

	var names bytes.Buffer
	for _, n := range snap.Names {
		names.WriteString(norm.NFC.String(n))
		names.WriteByte(0)
	}
	for _, r := range snap.Roots {
		names.WriteString(norm.NFC.String(r.Name))
		names.WriteByte(0)
	}
	h.NameBytes = uint32(names.Len())

	body := make([]uint32, 0, len(snap.Records)*recordWords+len(snap.Roots))
	for _, rec := range snap.Records {
		body = append(body, rec.Sid)
		body = append(body, rec.Slots[:]...)
	}
	for _, r := range snap.Roots {
		body = append(body, uint32(r.Ref))
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body)*4 + names.Len())
	buf.Write(make([]byte, headerSize))
	if err := binary.Write(&buf, binary.LittleEndian, body); err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	buf.Write(names.Bytes())

	data := buf.Bytes()
	h.Crc32 = crc32.ChecksumIEEE(data[headerSize:])
	putHeader(data, &h)
	return data, nil
}

func putHeader(data []byte, h *Header) {
	words := [headerWords]uint32{
		h.Magic, h.Version, h.Flags, h.SidCRC,
		h.KStart, h.OStart, h.EStart, h.NStart,
		h.NumNodes, h.NumRoots, h.NameBytes, h.Crc32,
	}
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
}

// ReadHeader decodes and sanity-checks the header of a tree file.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrBadMagic, len(data))
	}
	var w [headerWords]uint32
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	h := Header{
		Magic: w[0], Version: w[1], Flags: w[2], SidCRC: w[3],
		KStart: w[4], OStart: w[5], EStart: w[6], NStart: w[7],
		NumNodes: w[8], NumRoots: w[9], NameBytes: w[10], Crc32: w[11],
	}
	switch {
	case h.Magic != Magic:
		return h, ErrBadMagic
	case h.Version != ir.FormatVersion:
		return h, fmt.Errorf("unsupported tree file version %d", h.Version)
	case h.Flags != 0:
		return h, fmt.Errorf("unsupported tree file flags %#x", h.Flags)
	case h.KStart != ir.KStart || h.OStart < h.KStart || h.EStart < h.OStart || h.NStart < h.EStart || h.NumNodes < h.NStart:
		return h, fmt.Errorf("tree file sections out of order")
	}
	return h, nil
}

// Unmarshal decodes a tree file. data is only read, so it may be a memory
// mapping; nothing in the result aliases it.
func Unmarshal(data []byte) (*engine.Snapshot, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	numRecords := int(h.NumNodes - h.NStart)
	want := headerSize + (numRecords*recordWords+int(h.NumRoots))*4 + int(h.NameBytes)
	if len(data) != want {
		return nil, fmt.Errorf("tree file is %d bytes, header describes %d", len(data), want)
	}
	if crc32.ChecksumIEEE(data[headerSize:]) != h.Crc32 {
		return nil, ErrChecksum
	}

	snap := &engine.Snapshot{
		SidCRC: h.SidCRC,
		Layout: engine.Layout{
			NumKeys:     int(h.OStart - h.KStart),
			NumOutputs:  int(h.EStart - h.OStart),
			NumExtended: int(h.NStart - h.EStart),
		},
		Records: make([]engine.Record, numRecords),
	}

	off := headerSize
	word := func() uint32 {
		v := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return v
	}
	for i := range snap.Records {
		snap.Records[i].Sid = word()
		for j := range snap.Records[i].Slots {
			snap.Records[i].Slots[j] = word()
		}
	}
	roots := make([]ir.Ref, h.NumRoots)
	for i := range roots {
		roots[i] = ir.Ref(word())
	}

	names := bytes.Split(data[off:], []byte{0})
	numEntries := int(h.NStart - h.KStart)
	// The table ends with a NUL, so Split leaves one empty tail.
	if len(names) != numEntries+len(roots)+1 || len(names[len(names)-1]) != 0 {
		return nil, fmt.Errorf("name table holds %d names, want %d", len(names)-1, numEntries+len(roots))
	}
	snap.Names = make([]string, numEntries)
	for i := range snap.Names {
		snap.Names[i] = norm.NFC.String(string(names[i]))
	}
	for i, r := range roots {
		snap.Roots = append(snap.Roots, engine.Root{
			Name: norm.NFC.String(string(names[numEntries+i])),
			Ref:  r,
		})
	}
	return snap, nil
}

// WriteFile stores a snapshot as a tree file.
func WriteFile(path string, snap *engine.Snapshot) error {
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tree file: %w", err)
	}
	return nil
}

// ReadFile loads a tree file, memory mapping it where supported.
func ReadFile(path string) (*engine.Snapshot, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree file: %w", err)
	}
	defer release()

	snap, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("read tree file %s: %w", path, err)
	}
	return snap, nil
}
