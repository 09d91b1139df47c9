// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ParseOptions configures ParseStructured. Shape follows the teacher's own
// Options struct in file.go: a plain struct, field-defaulted by the
// constructor, no ambient/global state (see SPEC_FULL.md "Configuration").
type ParseOptions struct {
	// Logger receives debug-level progress messages; record-local
	// diagnostics go to Result.Diagnostics, not to the logger. Defaults to a
	// disabled logger when none is supplied.
	Logger *zerolog.Logger

	// Metrics, if set, is updated once when the parse completes. See metrics.go.
	Metrics *ScanMetrics
}

func (o *ParseOptions) logger() zerolog.Logger {
	if o != nil && o.Logger != nil {
		return *o.Logger
	}
	l := zerolog.Nop()
	return l
}

// minStructuredSpan is §4.3's "a byte span ≥ 24 bytes" precondition.
const minStructuredSpan = 24

// tes4Signature is the canonical little-endian TES4 header signature.
var tes4Signature = [4]byte{'T', 'E', 'S', '4'}

// DetectEndian implements §4.3/S1: canonical spelling at offset 0 means
// little-endian, the byte-reversed spelling means big-endian, anything else
// is undetectable.
func DetectEndian(b []byte) (Endian, bool) {
	raw, ok := signatureAt(b, 0)
	if !ok {
		return LittleEndian, false
	}
	if raw == tes4Signature {
		return LittleEndian, true
	}
	if raw == reverseSignature(tes4Signature) {
		return BigEndian, true
	}
	return LittleEndian, false
}

// structuredParser holds the mutable state of a single structured-ESM scan.
// It owns its Result exclusively (§5: single-threaded cooperative within one
// scan).
type structuredParser struct {
	b                 []byte
	e                 Endian
	log               zerolog.Logger
	opts              *ParseOptions
	res               *Result
	lastReachedOffset uint32
}

// ParseStructured parses a structured ESM byte span per §4.3/§4.4. It never
// panics: any structural inconsistency truncates the enclosing subtree and
// parsing resumes at the next top-level boundary (§4.4 Failures).
func ParseStructured(src ByteSource, opts *ParseOptions) (*Result, error) {
	b := asSliceable(src)
	if len(b) < minStructuredSpan {
		return nil, ErrTooSmall
	}
	e, ok := DetectEndian(b)
	if !ok {
		return nil, ErrUnknownEndian
	}

	p := &structuredParser{
		b:    b,
		e:    e,
		log:  opts.logger(),
		opts: opts,
		res:  NewResult(),
	}

	header, consumed, err := p.parseFileHeader(0)
	if err != nil {
		return nil, err
	}
	_ = header

	p.parseContainer(consumed, uint32(len(b)))

	if p.opts != nil && p.opts.Metrics != nil {
		p.opts.Metrics.observeScan(p.res)
	}
	return p.res, nil
}

// parseFileHeader decodes the TES4 header (§3/§4.3 step 1).
func (p *structuredParser) parseFileHeader(offset uint32) (FileHeader, uint32, error) {
	mrh, ok := parseMainRecordHeader(p.b, offset, p.e)
	if !ok || mrh.Signature != "TES4" {
		return FileHeader{}, 0, errors.Wrap(ErrUnknownEndian, "parsing TES4 header")
	}

	fh := FileHeader{IsBigEndian: p.e == BigEndian, RecordFlags: mrh.Flags}

	dataStart := offset + mainRecordHeaderSize
	payload, ok := readBytes(p.b, dataStart, mrh.DataSize)
	if !ok {
		return FileHeader{}, 0, errors.New("esmscan: TES4 header data area truncated")
	}

	diags := walkSubrecords(payload, p.e, func(sr Subrecord) {
		switch sr.Signature {
		case "HEDR":
			if len(sr.Payload) >= 8 {
				v, _ := readFloat32(sr.Payload, 0, p.e)
				nextID, _ := readUint32(sr.Payload, 4, p.e)
				fh.Version = v
				fh.NextObjectID = nextID
			}
		case "CNAM":
			fh.Author = trimNonPrintable(string(sr.Payload))
		case "SNAM":
			fh.Description = trimNonPrintable(string(sr.Payload))
		case "MAST":
			fh.Masters = append(fh.Masters, trimNonPrintable(string(sr.Payload)))
		}
	})
	for _, d := range diags {
		p.res.addDiagnostic(fmt.Sprintf("TES4 header: %s", d))
	}

	return fh, dataStart + mrh.DataSize, nil
}

// parseContainer walks a sequence of sibling GRUP/main-record entries
// starting at offset and ending no later than end (§4.3 step 2).
func (p *structuredParser) parseContainer(offset, end uint32) {
	p.parseContainerReturningReached(offset, end)
}

// parseGroup parses one GRUP container starting at pos (pointing at the
// literal "GRUP") and recurses into its children, honoring the console
// nested-group overrun quirk (§4.3/§9: next-offset = max(declared end,
// offset actually reached)).
func (p *structuredParser) parseGroup(pos, outerEnd uint32) uint32 {
	gh, ok := parseGroupHeader(p.b, pos+4, p.e)
	if !ok {
		p.res.addDiagnostic(fmt.Sprintf("GRUP at offset %d: invalid header", pos))
		return 0
	}
	declaredEnd := pos + gh.GroupSize
	if declaredEnd > outerEnd {
		declaredEnd = outerEnd
	}
	childrenStart := pos + groupHeaderSize

	p.parseContainerReturningReached(childrenStart, declaredEnd)
	actualEnd := p.lastReachedOffset

	return maxU32(declaredEnd, actualEnd)
}

// parseContainerReturningReached is parseContainer plus bookkeeping of how
// far the walk actually advanced, feeding the overrun tie-break in
// parseGroup (§4.3/§9: next-offset = max(declared end, offset actually
// reached)).
func (p *structuredParser) parseContainerReturningReached(offset, end uint32) {
	pos := offset
	for pos+4 <= end && pos+4 <= uint32(len(p.b)) {
		raw, ok := signatureAt(p.b, pos)
		if !ok {
			p.lastReachedOffset = pos
			return
		}
		sig := canonicalSignature(raw, p.e)
		if sig == "GRUP" {
			nextPos := p.parseGroup(pos, end)
			if nextPos <= pos {
				p.lastReachedOffset = pos
				return
			}
			pos = nextPos
			continue
		}
		nextPos := p.parseMainRecordAt(pos)
		if nextPos <= pos {
			p.lastReachedOffset = pos
			return
		}
		pos = nextPos
	}
	p.lastReachedOffset = pos
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// parseMainRecordAt parses one main record (header + data area) at pos and
// returns the offset immediately following it, or 0 on unrecoverable failure
// (§4.3 step 3).
func (p *structuredParser) parseMainRecordAt(pos uint32) uint32 {
	mrh, ok := parseMainRecordHeader(p.b, pos, p.e)
	if !ok {
		p.res.addDiagnostic(fmt.Sprintf("main record at offset %d: invalid header", pos))
		return 0
	}
	dataStart := pos + mainRecordHeaderSize
	dataEnd := dataStart + mrh.DataSize
	if uint64(dataEnd) > uint64(len(p.b)) {
		p.res.addDiagnostic(fmt.Sprintf("main record %s at offset %d: data area truncated", mrh.Signature, pos))
		return 0
	}

	p.res.addMainRecord(RawMainRecord{
		MainRecordHeader: mrh,
		Offset:           pos,
		IsBigEndian:      p.e == BigEndian,
		Compressed:       mrh.Compressed(),
	})

	payload, ok := readBytes(p.b, dataStart, mrh.DataSize)
	if ok {
		decoded, derr := p.decodeRecordPayload(mrh, payload)
		if derr != nil {
			p.res.addDiagnostic(fmt.Sprintf("main record %s at offset %d: %+v", mrh.Signature, pos, derr))
		} else {
			diags := walkSubrecords(decoded, p.e, func(sr Subrecord) {
				p.collectSubrecord(mrh, pos, sr)
			})
			for _, d := range diags {
				p.res.addDiagnostic(fmt.Sprintf("main record %s at offset %d: %s", mrh.Signature, pos, d))
			}
			if err := reconstructRecord(p.res, mrh, pos, p.e, decoded); err != nil {
				p.log.Debug().Err(err).Str("signature", mrh.Signature).Uint32("offset", pos).Msg("reconstruction skipped")
			}
		}
	}

	return dataEnd
}

// decodeRecordPayload handles §4.3 step 3's compressed-record case via the
// shared decompressRecordPayload helper.
func (p *structuredParser) decodeRecordPayload(mrh MainRecordHeader, payload []byte) ([]byte, error) {
	return decompressRecordPayload(mrh, payload, p.e)
}

// decompressRecordPayload handles §4.3 step 3's compressed-record case: a
// 4-byte expanded-size prefix (same endianness as the outer record) followed
// by a zlib stream, capped at MaxDecompressedSize (§3). Shared by the
// structured parser (C4) and the dump scanner's per-record re-read (C5).
func decompressRecordPayload(mrh MainRecordHeader, payload []byte, e Endian) ([]byte, error) {
	if !mrh.Compressed() {
		return payload, nil
	}
	if len(payload) <= 4 {
		return nil, errors.New("compressed record shorter than expanded-size prefix")
	}
	expandedSize, ok := readUint32(payload, 0, e)
	if !ok {
		return nil, errors.New("compressed record: cannot read expanded size")
	}
	if expandedSize > MaxDecompressedSize {
		return nil, errors.Errorf("compressed record: expanded size %d exceeds cap %d", expandedSize, MaxDecompressedSize)
	}

	zr, err := zlib.NewReader(bytes.NewReader(payload[4:]))
	if err != nil {
		return nil, errors.Wrap(err, "zlib stream open failed")
	}
	defer zr.Close()

	out := make([]byte, expandedSize)
	n, err := io.ReadFull(zr, out)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "zlib decompress failed")
	}
	return out[:n], nil
}

// collectSubrecord fills in the per-kind typed lists of §3's Raw scan result
// from a single decoded subrecord, using the C3 schema registry.
func (p *structuredParser) collectSubrecord(mrh MainRecordHeader, recordOffset uint32, sr Subrecord) {
	collectSubrecordInto(p.res, mrh, recordOffset, sr, p.e, "structured")
}

// collectSubrecordInto is collectSubrecord's shared implementation (C4/C5).
func collectSubrecordInto(res *Result, mrh MainRecordHeader, recordOffset uint32, sr Subrecord, e Endian, source string) {
	schema, known := knownSubrecordSchemas[sr.Signature]
	if !known {
		return
	}
	value, ok := schema.Decode(sr.Payload, e)
	if !ok {
		return
	}

	hit := GenericSubrecordHit{Signature: sr.Signature, Offset: sr.Offset, Value: value}

	switch sr.Signature {
	case "EDID":
		res.addEditorID(EditorIDHit{EditorID: value.(string), FormID: mrh.FormID, Offset: recordOffset, Source: source})
	case "NAME", "XOWN":
		id := value.(uint32)
		if res.addFormIDRef(id) {
			res.FormIDRefs = append(res.FormIDRefs, hit)
		}
	case "DATA":
		if _, isPos := value.(Position); isPos {
			res.Positions = append(res.Positions, hit)
		}
	case "ACBS":
		res.ActorBaseStats = append(res.ActorBaseStats, hit)
	case "VHGT":
		res.Heightmaps = append(res.Heightmaps, hit)
	case "XCLC":
		res.CellGrids = append(res.CellGrids, hit)
	case "CTDA":
		res.Conditions = append(res.Conditions, hit)
	case "SCTX":
		res.ScriptTexts = append(res.ScriptTexts, hit)
	case "ICON", "MODL":
		res.GenericPaths = append(res.GenericPaths, hit)
	case "NAM1":
		res.DialogueResponses = append(res.DialogueResponses, hit)
	default:
		res.GenericSubrecords = append(res.GenericSubrecords, hit)
	}

	if mrh.Signature == "GMST" && sr.Signature != "EDID" {
		res.GameSettings = append(res.GameSettings, hit)
	}
}
