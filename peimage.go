// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import "github.com/pkg/errors"

// Section characteristic bits the triple-pointer scan (§4.5 step 3) cares
// about: writable and initialized-data. Named and valued the same as the
// teacher's own IMAGE_SCN_* constants in section.go, trimmed to the two this
// system actually tests.
const (
	sectionCharacteristicsInitializedData = 0x00000040
	sectionCharacteristicsWritable        = 0x80000000

	dosHeaderPEOffsetField = 0x3C
	peSignatureSize        = 4
	coffHeaderSize         = 20
	sectionHeaderSize      = 40
)

// SectionHeader is the trimmed §4.5 step 2 view of one PE section: name, RVA,
// virtual size, and characteristics. Grounded on the teacher's own
// ImageSectionHeader in section.go, reduced to the fields C6 consumes.
type SectionHeader struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	Characteristics uint32
}

// Writable reports whether the section's characteristics include both the
// writable and initialized-data bits (§4.5 step 3's triple-pointer scan
// precondition).
func (s SectionHeader) Writable() bool {
	return s.Characteristics&sectionCharacteristicsWritable != 0 &&
		s.Characteristics&sectionCharacteristicsInitializedData != 0
}

// parsePESections implements §4.5 step 2: DOS header -> PE signature -> COFF
// header -> optional header -> section table, all fields little-endian
// regardless of the console/desktop ESM endianness this module otherwise
// tracks (§4.5: "all PE header fields are little-endian regardless of
// console endianness").
func parsePESections(r memReader, module GameModule) ([]SectionHeader, error) {
	peOffsetField, ok := r.readUint32LE(module.BaseVA + dosHeaderPEOffsetField)
	if !ok {
		return nil, errors.Wrap(ErrModuleNotFound, "DOS header e_lfanew unreadable")
	}
	peHeaderVA := module.BaseVA + uint64(peOffsetField)

	sig, ok := r.readBytes(peHeaderVA, peSignatureSize)
	if !ok || string(sig) != "PE\x00\x00" {
		return nil, errors.Wrap(ErrModuleNotFound, "PE signature not found")
	}

	coffVA := peHeaderVA + peSignatureSize
	numSections, ok := r.readUint16LE(coffVA + 2)
	if !ok {
		return nil, errors.Wrap(ErrModuleNotFound, "COFF header unreadable")
	}
	sizeOfOptionalHeader, ok := r.readUint16LE(coffVA + 16)
	if !ok {
		return nil, errors.Wrap(ErrModuleNotFound, "COFF header unreadable")
	}

	sectionTableVA := coffVA + coffHeaderSize + uint64(sizeOfOptionalHeader)

	sections := make([]SectionHeader, 0, numSections)
	for i := uint16(0); i < numSections; i++ {
		base := sectionTableVA + uint64(i)*sectionHeaderSize
		nameBytes, ok := r.readBytes(base, 8)
		if !ok {
			break
		}
		virtualSize, ok1 := r.readUint32LE(base + 8)
		va, ok2 := r.readUint32LE(base + 12)
		characteristics, ok3 := r.readUint32LE(base + 36)
		if !ok1 || !ok2 || !ok3 {
			break
		}
		sections = append(sections, SectionHeader{
			Name:            trimNonPrintable(string(nameBytes)),
			VirtualAddress:  va,
			VirtualSize:     virtualSize,
			Characteristics: characteristics,
		})
	}
	return sections, nil
}
