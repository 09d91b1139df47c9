// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import "strings"

// Main-record header flag bits (§3).
const (
	RecordFlagCompressed = 0x00040000
	RecordFlagDeleted    = 0x00000020
	RecordFlagIgnored    = 0x00001000
	recordFlagUpperMask  = 0xFFF00000
)

// MaxRecordDataSize bounds a main record's declared data size (§3: "data-size
// ≤ ~10 MB").
const MaxRecordDataSize = 10_000_000

// MaxDecompressedSize bounds a decompressed record payload (§3: "capped (16
// MB) to bound memory").
const MaxDecompressedSize = 16 * 1024 * 1024

// MainRecordHeader is the 24-byte header in front of every main record's data
// area (§3).
type MainRecordHeader struct {
	Signature string
	DataSize  uint32
	Flags     uint32
	FormID    uint32
	VC1       uint32
	VC2       uint32
}

const mainRecordHeaderSize = 24

// Compressed reports whether the compressed-record bit is set.
func (h MainRecordHeader) Compressed() bool { return h.Flags&RecordFlagCompressed != 0 }

// validFlags rejects the §3 invariant: "flags with bits 0xFFF00000 set and
// the compressed bit clear are invalid."
func (h MainRecordHeader) validFlags() bool {
	if h.Flags&recordFlagUpperMask != 0 && !h.Compressed() {
		return false
	}
	return true
}

// parseMainRecordHeader reads and validates a 24-byte main record header at
// offset under the given endianness. It checks the signature characters, the
// data-size upper bound (MaxRecordDataSize) and the flags rule; the form-id
// checks and the non-zero data-size check are left to the dump scanner's
// isMainRecordCandidateValid.
func parseMainRecordHeader(b []byte, offset uint32, e Endian) (MainRecordHeader, bool) {
	raw, ok := signatureAt(b, offset)
	if !ok || !isAlnumOrUnderscoreSignature(raw) {
		return MainRecordHeader{}, false
	}
	dataSize, ok := readUint32(b, offset+4, e)
	if !ok || dataSize > MaxRecordDataSize {
		return MainRecordHeader{}, false
	}
	flags, ok := readUint32(b, offset+8, e)
	if !ok {
		return MainRecordHeader{}, false
	}
	formID, ok := readUint32(b, offset+12, e)
	if !ok {
		return MainRecordHeader{}, false
	}
	vc1, _ := readUint32(b, offset+16, e)
	vc2, _ := readUint32(b, offset+20, e)

	h := MainRecordHeader{
		Signature: canonicalSignature(raw, e),
		DataSize:  dataSize,
		Flags:     flags,
		FormID:    formID,
		VC1:       vc1,
		VC2:       vc2,
	}
	if !h.validFlags() {
		return MainRecordHeader{}, false
	}
	return h, true
}

// SubrecordHeader is the 6-byte header in front of a subrecord's payload
// (§3). Length is already resolved for the XXXX extended-size case by the
// caller (structured.go / reconstruct.go subrecord walkers).
type SubrecordHeader struct {
	Signature string
	Length    uint16
}

const subrecordHeaderSize = 6

// extendedSizeSignature is the special-case marker of §3/§4.4: a subrecord
// whose signature is "XXXX" and whose own length is 4 carries, as its 4-byte
// payload, the real length of the *next* subrecord.
const extendedSizeSignature = "XXXX"

// GroupHeader is the 24-byte GRUP container header (§3).
type GroupHeader struct {
	GroupSize uint32
	Label     uint32
	GroupType int32
	Stamp     uint32
}

const groupHeaderSize = 24

// parseGroupHeader reads a GRUP header at offset, already past the literal
// "GRUP" signature (offset points at group-size).
func parseGroupHeader(b []byte, offset uint32, e Endian) (GroupHeader, bool) {
	groupSize, ok := readUint32(b, offset, e)
	if !ok || groupSize < groupHeaderSize {
		return GroupHeader{}, false
	}
	label, _ := readUint32(b, offset+4, e)
	groupType, _ := readInt32(b, offset+8, e)
	stamp, _ := readUint32(b, offset+12, e)
	return GroupHeader{GroupSize: groupSize, Label: label, GroupType: groupType, Stamp: stamp}, true
}

// FileHeader is the decoded TES4 header (§3).
type FileHeader struct {
	Version      float32
	NextObjectID uint32
	Author       string
	Description  string
	Masters      []string
	IsBigEndian  bool
	RecordFlags  uint32
}

// readNullTerminated reads a null-terminated ASCII string starting at offset,
// bounded by maxLen bytes of search.
func readNullTerminated(b []byte, offset, maxLen uint32) (string, uint32) {
	end := offset
	limit := offset + maxLen
	if uint64(limit) > uint64(len(b)) {
		limit = uint32(len(b))
	}
	for end < limit && b[end] != 0 {
		end++
	}
	return string(b[offset:end]), end - offset + 1
}

// trimNonPrintable removes any trailing NUL padding a fixed-width string
// field may carry.
func trimNonPrintable(s string) string {
	return strings.TrimRight(s, "\x00")
}
