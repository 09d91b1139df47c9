// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import "github.com/rs/zerolog"

// dumpChunkSize is the 16 MiB window ScanDump advances by; chunks are scanned
// back to back without overlap, and dumpChunkOverlap is not referenced. A
// record straddling a chunk boundary is still read whole because every read
// goes against the whole buffer, not the chunk.
const (
	dumpChunkSize    = 16 * 1024 * 1024
	dumpChunkOverlap = 1024
)

// ScanOptions configures ScanDump, mirroring ParseOptions' shape (§9: a
// scan-local logger, never ambient/global state).
type ScanOptions struct {
	// ExcludedRanges are byte spans the scanner should never dispatch on
	// (§4.4 step 1), e.g. the game module image already covered by C6.
	ExcludedRanges []ByteRange

	// Progress is invoked at most once per chunk (§6).
	Progress ProgressFunc

	// Cancel is polled between chunks (§5).
	Cancel CancelFunc

	Logger  *zerolog.Logger
	Metrics *ScanMetrics
}

func (o *ScanOptions) logger() zerolog.Logger {
	if o != nil && o.Logger != nil {
		return *o.Logger
	}
	return zerolog.Nop()
}

func (o *ScanOptions) excludedRanges() []ByteRange {
	if o == nil {
		return nil
	}
	return o.ExcludedRanges
}

// ScanDump implements the C5 chunked dump scanner over a byte source that may
// contain structured records without surrounding group framing, interleaved
// with unrelated memory. It never returns an error for speculative
// per-position failures (§7): only cancellation and I/O failure on src
// propagate.
func ScanDump(src ByteSource, opts *ScanOptions) (*Result, error) {
	b := asSliceable(src)
	total := uint32(len(b))
	res := NewResult()
	log := opts.logger()

	for chunkStart := uint32(0); chunkStart < total; chunkStart += dumpChunkSize {
		if opts != nil && opts.Cancel != nil && opts.Cancel() {
			log.Debug().Uint32("offset", chunkStart).Msg("dump scan cancelled")
			return res, ErrCancelled
		}

		searchLimit := chunkStart + dumpChunkSize
		if searchLimit > total {
			searchLimit = total
		}

		scanRange(res, b, chunkStart, searchLimit, opts.excludedRanges())

		if opts != nil && opts.Progress != nil {
			opts.Progress(uint64(searchLimit), uint64(total), len(res.MainRecords))
		}
	}

	if opts != nil && opts.Metrics != nil {
		opts.Metrics.observeScan(res)
	}
	return res, nil
}

// scanRange implements §4.4 steps 1-5 over [from, to) of b. Candidates start
// before to, but their data reads may extend any distance past to (bounded
// only by len(b)), since b is a single addressable buffer rather than a
// series of independently-sized I/O reads.
func scanRange(res *Result, b []byte, from, to uint32, excluded []ByteRange) {
	pos := from
	for pos < to {
		if isExcludedRange(pos, excluded) {
			pos++
			continue
		}

		raw, ok := signatureAt(b, pos)
		if !ok {
			return
		}
		if isFalsePositiveSignature(raw) {
			pos++
			continue
		}

		if n, ok := tryDumpMainRecord(res, b, pos, LittleEndian, raw); ok {
			pos += n
			continue
		}
		if n, ok := tryDumpMainRecord(res, b, pos, BigEndian, raw); ok {
			pos += n
			continue
		}

		if scanSubrecordCandidate(res, b, pos, LittleEndian) || scanSubrecordCandidate(res, b, pos, BigEndian) {
			pos++
			continue
		}

		pos++
	}
}

// tryDumpMainRecord implements §4.4 step 3: attempt a main-record header
// parse at pos under endian e. On success the caller skips ahead by
// 23+data-size (the literal §4.4 tie-break, one byte short of the 24-byte
// header) so interior bytes of a confirmed record are not re-dispatched.
func tryDumpMainRecord(res *Result, b []byte, pos uint32, e Endian, raw [4]byte) (uint32, bool) {
	mrh, ok := parseMainRecordHeader(b, pos, e)
	if !ok || !isMainRecordCandidateValid(mrh, raw) {
		return 0, false
	}

	res.addMainRecord(RawMainRecord{
		MainRecordHeader: mrh,
		Offset:           pos,
		IsBigEndian:      e == BigEndian,
		Compressed:       mrh.Compressed(),
	})

	dataStart := pos + mainRecordHeaderSize
	if payload, ok := readBytes(b, dataStart, mrh.DataSize); ok {
		if decoded, derr := decompressRecordPayload(mrh, payload, e); derr == nil {
			diags := walkSubrecords(decoded, e, func(sr Subrecord) {
				collectSubrecordInto(res, mrh, pos, sr, e, "dump")
			})
			for _, d := range diags {
				res.addDiagnostic(d)
			}
			_ = reconstructRecord(res, mrh, pos, e, decoded)
		}
	}

	return 23 + mrh.DataSize, true
}

// isMainRecordCandidateValid implements §4.4's strict main-record validation:
// non-zero data size (a speculative candidate with no payload at all is far
// more likely a false positive than a real record; §3's general header
// invariant carries no such floor, so this stays scoped to dump-scan
// candidates), known kind in the registry OR an uppercase-only 4-byte
// string, form id not a sentinel and not an ASCII collision.
func isMainRecordCandidateValid(mrh MainRecordHeader, raw [4]byte) bool {
	if mrh.DataSize == 0 {
		return false
	}
	if isSuspiciousMainRecordFormID(mrh.FormID) {
		return false
	}
	if IsKnownRecordKind(mrh.Signature) {
		return true
	}
	return isUppercaseOnlySignature(raw)
}

func isUppercaseOnlySignature(raw [4]byte) bool {
	for _, c := range raw {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// scanSubrecordCandidate implements §4.4 steps 4-5: dispatch a bare
// subrecord header+payload at pos, applying the per-kind semantic validator
// where one exists and otherwise falling back to the C3 schema registry.
func scanSubrecordCandidate(res *Result, b []byte, pos uint32, e Endian) bool {
	raw, ok := signatureAt(b, pos)
	if !ok {
		return false
	}
	sig := canonicalSignature(raw, e)
	length, ok := readUint16(b, pos+4, e)
	if !ok {
		return false
	}
	body, ok := readBytes(b, pos+subrecordHeaderSize, uint32(length))
	if !ok {
		return false
	}

	switch sig {
	case "EDID":
		v, ok := decodeEditorID(body, e)
		if !ok {
			return false
		}
		res.addEditorID(EditorIDHit{EditorID: v.(string), Offset: pos, Source: "dump"})
		return true
	case "NAME", "XOWN":
		if len(body) < 4 {
			return false
		}
		id, ok := readUint32(body, 0, e)
		if !ok || !isDumpScanFormIDSubrecordValid(id) {
			return false
		}
		if res.addFormIDRef(id) {
			res.FormIDRefs = append(res.FormIDRefs, GenericSubrecordHit{Signature: sig, Offset: pos, Value: id})
		}
		return true
	case "DATA":
		pose, ok := decodePosition(body, e)
		if !ok {
			return false
		}
		res.Positions = append(res.Positions, GenericSubrecordHit{Signature: sig, Offset: pos, Value: pose})
		return true
	case "ACBS":
		v, ok := decodeActorBaseStats(body, e)
		if !ok {
			return false
		}
		stats := v.(ActorBaseStats)
		if !isDumpScanActorBaseStatsValid(stats) {
			return false
		}
		res.ActorBaseStats = append(res.ActorBaseStats, GenericSubrecordHit{Signature: sig, Offset: pos, Value: stats})
		return true
	case "VHGT":
		v, ok := decodeHeightmap(body, e)
		if !ok {
			return false
		}
		res.Heightmaps = append(res.Heightmaps, GenericSubrecordHit{Signature: sig, Offset: pos, Value: v})
		return true
	case "XCLC":
		v, ok := decodeCellGrid(body, e)
		if !ok {
			return false
		}
		res.CellGrids = append(res.CellGrids, GenericSubrecordHit{Signature: sig, Offset: pos, Value: v})
		return true
	}

	if isTextureSetSignature(sig) {
		v, ok := decodePath(body, e)
		if !ok {
			return false
		}
		res.GenericPaths = append(res.GenericPaths, GenericSubrecordHit{Signature: sig, Offset: pos, Value: v})
		return true
	}

	schema, known := knownSubrecordSchemas[sig]
	if !known {
		return false
	}
	v, ok := schema.Decode(body, e)
	if !ok {
		return false
	}
	res.GenericSubrecords = append(res.GenericSubrecords, GenericSubrecordHit{Signature: sig, Offset: pos, Value: v})
	return true
}

// isTextureSetSignature matches the "TX00".."TX07" family of §4.4 step 5.
func isTextureSetSignature(sig string) bool {
	return len(sig) == 4 && sig[0] == 'T' && sig[1] == 'X' && sig[2] == '0' && sig[3] >= '0' && sig[3] <= '7'
}
