// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// ByteSource is the §6 byte-source contract: something a scan can read
// sequentially without caring whether it backs onto a plain slice or a
// memory-mapped file. Modeled after the teacher's New (mmap) vs NewBytes
// (in-memory) pair in file.go, generalized behind an interface per DESIGN
// NOTES rather than two constructors on one concrete type.
type ByteSource interface {
	// Length returns the total byte length of the source.
	Length() uint32

	// ReadInto copies length(dst) bytes starting at offset into dst. It
	// returns the number of bytes copied (less than len(dst) only at EOF)
	// and an error for any I/O failure; a short read past the end of the
	// source is not itself an error.
	ReadInto(offset uint32, dst []byte) (int, error)
}

// MemoryByteSource is a ByteSource backed by an in-memory byte slice. It never
// fails short of a programming error, matching File.NewBytes.
type MemoryByteSource struct {
	data []byte
}

// NewMemoryByteSource wraps an existing byte slice as a ByteSource. The slice
// must outlive the scan.
func NewMemoryByteSource(data []byte) *MemoryByteSource {
	return &MemoryByteSource{data: data}
}

// Length implements ByteSource.
func (m *MemoryByteSource) Length() uint32 { return uint32(len(m.data)) }

// ReadInto implements ByteSource.
func (m *MemoryByteSource) ReadInto(offset uint32, dst []byte) (int, error) {
	if uint64(offset) >= uint64(len(m.data)) {
		return 0, nil
	}
	n := copy(dst, m.data[offset:])
	return n, nil
}

// Slice returns a bounds-checked view of the underlying buffer; used by the
// structured parser and dump scanner, which both operate on whole spans
// rather than fixed-size reads.
func (m *MemoryByteSource) Slice(offset, length uint32) []byte {
	b, ok := readBytes(m.data, offset, length)
	if !ok {
		return nil
	}
	return b
}

// Bytes returns the full underlying buffer.
func (m *MemoryByteSource) Bytes() []byte { return m.data }

// MappedByteSource is a ByteSource backed by a read-only memory-mapped file,
// matching the teacher's File.New constructor and its use of
// github.com/edsrzf/mmap-go. The mapping is read-only for the lifetime of the
// scan per §5's resource policy ("the core never writes to the byte source").
type MappedByteSource struct {
	f    *os.File
	data mmap.MMap
}

// OpenMappedByteSource memory-maps name read-only.
func OpenMappedByteSource(name string) (*MappedByteSource, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "esmscan: opening byte source file")
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "esmscan: mapping byte source file")
	}
	return &MappedByteSource{f: f, data: data}, nil
}

// Length implements ByteSource.
func (m *MappedByteSource) Length() uint32 { return uint32(len(m.data)) }

// ReadInto implements ByteSource.
func (m *MappedByteSource) ReadInto(offset uint32, dst []byte) (int, error) {
	if uint64(offset) >= uint64(len(m.data)) {
		return 0, nil
	}
	n := copy(dst, m.data[offset:])
	return n, nil
}

// Slice returns a bounds-checked view of the mapping.
func (m *MappedByteSource) Slice(offset, length uint32) []byte {
	b, ok := readBytes([]byte(m.data), offset, length)
	if !ok {
		return nil
	}
	return b
}

// Bytes returns the full mapped region.
func (m *MappedByteSource) Bytes() []byte { return m.data }

// Close unmaps the file and closes the underlying descriptor.
func (m *MappedByteSource) Close() error {
	var err error
	if m.data != nil {
		err = m.data.Unmap()
	}
	if m.f != nil {
		if cerr := m.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// sliceable is implemented by both concrete ByteSource providers and lets the
// structured parser and scanner work on whole byte spans without copying
// through ReadInto one record at a time.
type sliceable interface {
	Slice(offset, length uint32) []byte
	Bytes() []byte
}

// asSliceable adapts any ByteSource to a []byte view, falling back to a
// buffered copy via ReadInto for sources that don't implement sliceable
// directly (e.g. a caller's own ByteSource implementation).
func asSliceable(src ByteSource) []byte {
	if s, ok := src.(sliceable); ok {
		return s.Bytes()
	}
	buf := make([]byte, src.Length())
	_, _ = src.ReadInto(0, buf)
	return buf
}

// ProgressFunc is the optional progress reporter of §6, invoked by ScanDump
// once per 16 MiB chunk. WalkHashTable does not invoke it: its
// HashTableOptions.Progress field is not read.
type ProgressFunc func(bytesProcessed, totalBytes uint64, recordsFoundSoFar int)

// CancelFunc reports whether the caller has requested the in-flight scan
// stop early; checked between chunks and before each hash-table bucket walk
// per §5.
type CancelFunc func() bool

// CapturedRegion describes one memory region inside a captured process dump,
// as supplied by the external minidump-like collaborator (§6).
type CapturedRegion struct {
	VirtualAddress uint64
	Size           uint64
	FileOffset     uint64
	Writable       bool
}

// GameModule identifies the loaded PE image the hash-table walker should scan.
type GameModule struct {
	BaseVA uint64
	Size   uint64
	Name   string
}

// VirtualAddressResolver is the §6 collaborator contract used only by the
// runtime hash-table walker (C6): it knows how to map a virtual address
// inside the captured dump back to a file offset, and where the game module
// lives.
type VirtualAddressResolver interface {
	// Regions enumerates every captured memory region.
	Regions() []CapturedRegion

	// ResolveVA maps a virtual address to a file offset, or ok=false if va
	// falls outside every captured region.
	ResolveVA(va uint64) (offset uint64, ok bool)

	// LocateModule finds the game executable within the captured regions.
	LocateModule() (GameModule, bool)
}

var _ io.Closer = (*MappedByteSource)(nil)
