// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import (
	"encoding/binary"
	"math"
)

// Endian selects the byte order a record was written in. Per the DESIGN NOTES
// "dual endian everywhere" guidance this is threaded explicitly through every
// read rather than carried as package state.
type Endian int

const (
	// LittleEndian is the desktop on-disk layout.
	LittleEndian Endian = iota
	// BigEndian is the console on-disk layout; four-character signatures are
	// stored byte-reversed relative to their canonical spelling.
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// readUint16 reads a u16 at offset, bounds-checked against len(b).
func readUint16(b []byte, offset uint32, e Endian) (uint16, bool) {
	if uint64(offset)+2 > uint64(len(b)) {
		return 0, false
	}
	return e.order().Uint16(b[offset : offset+2]), true
}

// readUint32 reads a u32 at offset, bounds-checked against len(b).
func readUint32(b []byte, offset uint32, e Endian) (uint32, bool) {
	if uint64(offset)+4 > uint64(len(b)) {
		return 0, false
	}
	return e.order().Uint32(b[offset : offset+4]), true
}

// readInt16 reads a signed i16 at offset.
func readInt16(b []byte, offset uint32, e Endian) (int16, bool) {
	v, ok := readUint16(b, offset, e)
	return int16(v), ok
}

// readInt32 reads a signed i32 at offset.
func readInt32(b []byte, offset uint32, e Endian) (int32, bool) {
	v, ok := readUint32(b, offset, e)
	return int32(v), ok
}

// readFloat32 reads an IEEE-754 f32 at offset.
func readFloat32(b []byte, offset uint32, e Endian) (float32, bool) {
	v, ok := readUint32(b, offset, e)
	if !ok {
		return 0, false
	}
	return math.Float32frombits(v), true
}

// readInt8 reads a signed byte at offset.
func readInt8(b []byte, offset uint32) (int8, bool) {
	if uint64(offset)+1 > uint64(len(b)) {
		return 0, false
	}
	return int8(b[offset]), true
}

// readUint8 reads an unsigned byte at offset.
func readUint8(b []byte, offset uint32) (uint8, bool) {
	if uint64(offset)+1 > uint64(len(b)) {
		return 0, false
	}
	return b[offset], true
}

// readBytes returns a bounds-checked view b[offset:offset+n]; callers that
// persist the result into a Result must copy it first, since during scanning
// it is a view into a pooled scratch buffer (§5 Resource policy).
func readBytes(b []byte, offset, n uint32) ([]byte, bool) {
	if uint64(offset)+uint64(n) > uint64(len(b)) {
		return nil, false
	}
	return b[offset : offset+n], true
}

// reverseSignature reverses the 4 bytes of a signature, the transform that
// relates the console on-disk spelling to the canonical little-endian one.
func reverseSignature(sig [4]byte) [4]byte {
	return [4]byte{sig[3], sig[2], sig[1], sig[0]}
}

// signatureAt reads a raw 4-byte signature at offset without interpretation.
func signatureAt(b []byte, offset uint32) ([4]byte, bool) {
	raw, ok := readBytes(b, offset, 4)
	if !ok {
		return [4]byte{}, false
	}
	return [4]byte(raw), true
}
