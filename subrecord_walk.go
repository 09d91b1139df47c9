// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import "fmt"

// Subrecord is one decoded entry of a main record's data-area stream, with
// the extended-size marker already resolved (§3/§4.4).
type Subrecord struct {
	Signature string
	Offset    uint32 // offset of payload, relative to the record's data area
	Payload   []byte
}

// walkSubrecords iterates payload's subrecord stream per §4.3 step 4 /
// §4.4, resolving the "XXXX" extended-size marker (S2) and yielding each
// resolved Subrecord to fn in stream order. It stops, without error, at the
// first structural inconsistency — truncating the remainder of the stream
// per §4.4's record-local failure tier — and returns any diagnostics
// produced along the way. Shared by the structured parser (C4), the dump
// scanner's per-record re-read (C5), and the semantic reconstructor (C7), so
// all three agree on exactly one subrecord-stream grammar.
func walkSubrecords(payload []byte, e Endian, fn func(Subrecord)) []string {
	var diags []string
	pos := uint32(0)
	for pos+subrecordHeaderSize <= uint32(len(payload)) {
		raw, ok := signatureAt(payload, pos)
		if !ok {
			return diags
		}
		sig := canonicalSignature(raw, e)
		length, ok := readUint16(payload, pos+4, e)
		if !ok {
			return diags
		}

		bodyOffset := pos + subrecordHeaderSize
		bodyLen := uint32(length)

		if sig == extendedSizeSignature && length == 4 {
			extLen, ok := readUint32(payload, bodyOffset, e)
			if !ok {
				diags = append(diags, "extended-size marker at end of stream")
				return diags
			}
			nextPos := bodyOffset + 4
			nextRaw, ok := signatureAt(payload, nextPos)
			if !ok {
				diags = append(diags, "extended-size marker not followed by a subrecord")
				return diags
			}
			sig = canonicalSignature(nextRaw, e)
			bodyOffset = nextPos + subrecordHeaderSize
			bodyLen = extLen
		}

		body, ok := readBytes(payload, bodyOffset, bodyLen)
		if !ok {
			diags = append(diags, fmt.Sprintf("subrecord %s length %d overruns record data area", sig, bodyLen))
			return diags
		}
		fn(Subrecord{Signature: sig, Offset: bodyOffset, Payload: body})
		pos = bodyOffset + bodyLen
	}
	return diags
}
