// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// Position is the six-float pose payload of a DATA subrecord on a placed
// reference (§3).
type Position struct {
	X, Y, Z    float32
	RX, RY, RZ float32
}

// Finite reports whether every component is a finite float, per the S8-4
// testable property.
func (p Position) Finite() bool {
	for _, v := range []float32{p.X, p.Y, p.Z, p.RX, p.RY, p.RZ} {
		if isNaNOrInf(v) {
			return false
		}
	}
	return true
}

func isNaNOrInf(f float32) bool {
	return f != f || f > 3.4e38 || f < -3.4e38
}

// decodeFunc decodes a subrecord's raw payload into a typed value, given the
// record's endianness. Returns ok=false on any structural mismatch.
type decodeFunc func(payload []byte, e Endian) (any, bool)

// subrecordSchema is one entry of the C3 registry: a known signature and its
// fixed-layout decoder.
type subrecordSchema struct {
	Signature string
	Decode    decodeFunc
}

// knownSubrecordSchemas is the process-wide immutable subrecord registry,
// built once at init per DESIGN NOTES. Dump scanning (C5 step 5) falls back
// to this table for any signature not handled by a kind-specific validator.
var knownSubrecordSchemas = buildSubrecordSchemaTable()

func buildSubrecordSchemaTable() map[string]subrecordSchema {
	schemas := []subrecordSchema{
		{"EDID", decodeEditorID},
		{"FULL", decodeFullName},
		{"NAME", decodeFormIDRef},
		{"DATA", decodePositionOrRaw},
		{"XSCL", decodeScale},
		{"XOWN", decodeFormIDRef},
		{"XCLC", decodeCellGrid},
		{"VHGT", decodeHeightmap},
		{"ACBS", decodeActorBaseStats},
		{"NAM1", decodeGenericText},
		{"TRDT", decodeRaw},
		{"CNAM", decodeGenericText},
		{"NNAM", decodeGenericText},
		{"DESC", decodeGenericText},
		{"ICON", decodePath},
		{"MODL", decodePath},
		{"SCTX", decodeScriptText},
		{"CTDA", decodeRaw},
		{"INDX", decodeIndex16},
		{"QSDT", decodeRaw},
		{"QOBJ", decodeIndex16},
		{"XMRK", decodeRaw},
		{"TNAM", decodeUint16Value},
	}
	m := make(map[string]subrecordSchema, len(schemas))
	for _, s := range schemas {
		m[s.Signature] = s
	}
	return m
}

// IsKnownSubrecordSignature reports whether sig is in the schema registry.
func IsKnownSubrecordSignature(sig string) bool {
	_, ok := knownSubrecordSchemas[sig]
	return ok
}

func decodeRaw(payload []byte, _ Endian) (any, bool) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp, true
}

func decodeEditorID(payload []byte, _ Endian) (any, bool) {
	s := trimNonPrintable(string(payload))
	if !isValidEditorID(s) {
		return nil, false
	}
	return s, true
}

func decodeFullName(payload []byte, _ Endian) (any, bool) {
	s := trimNonPrintable(string(payload))
	if len(s) == 0 {
		return nil, false
	}
	return s, true
}

func decodeGenericText(payload []byte, _ Endian) (any, bool) {
	return trimNonPrintable(string(payload)), true
}

func decodePath(payload []byte, _ Endian) (any, bool) {
	s := trimNonPrintable(string(payload))
	if len(s) == 0 {
		return nil, false
	}
	return s, true
}

func decodeScriptText(payload []byte, _ Endian) (any, bool) {
	return string(payload), true
}

func decodeFormIDRef(payload []byte, e Endian) (any, bool) {
	if len(payload) < 4 {
		return nil, false
	}
	formID, ok := readUint32(payload, 0, e)
	if !ok || !isPlausibleFormIDRef(formID) {
		return nil, false
	}
	return formID, true
}

func decodeScale(payload []byte, e Endian) (any, bool) {
	if len(payload) < 4 {
		return nil, false
	}
	v, ok := readFloat32(payload, 0, e)
	if !ok {
		return nil, false
	}
	return v, true
}

func decodePositionOrRaw(payload []byte, e Endian) (any, bool) {
	if len(payload) != 24 {
		return decodeRaw(payload, e)
	}
	return decodePosition(payload, e)
}

func decodePosition(payload []byte, e Endian) (Position, bool) {
	if len(payload) < 24 {
		return Position{}, false
	}
	var vals [6]float32
	for i := 0; i < 6; i++ {
		v, ok := readFloat32(payload, uint32(i*4), e)
		if !ok {
			return Position{}, false
		}
		vals[i] = v
	}
	pos := Position{X: vals[0], Y: vals[1], Z: vals[2], RX: vals[3], RY: vals[4], RZ: vals[5]}
	if !pos.Finite() {
		return Position{}, false
	}
	if abs32(pos.X) > 500_000 || abs32(pos.Y) > 500_000 || abs32(pos.Z) > 500_000 {
		return Position{}, false
	}
	return pos, true
}

func decodeCellGrid(payload []byte, e Endian) (any, bool) {
	if len(payload) < 9 {
		return nil, false
	}
	x, ok1 := readInt32(payload, 0, e)
	y, ok2 := readInt32(payload, 4, e)
	flags, ok3 := readUint8(payload, 8)
	if !ok1 || !ok2 || !ok3 {
		return nil, false
	}
	return CellGrid{X: x, Y: y, Flags: flags}, true
}

func decodeHeightmap(payload []byte, e Endian) (any, bool) {
	if len(payload) < 4+1089 {
		return nil, false
	}
	base, ok := readFloat32(payload, 0, e)
	if !ok {
		return nil, false
	}
	var hm Heightmap
	hm.BaseHeight = base
	off := uint32(4)
	for r := 0; r < 33; r++ {
		for c := 0; c < 33; c++ {
			d, ok := readInt8(payload, off)
			if !ok {
				return nil, false
			}
			hm.Deltas[r][c] = d
			off++
		}
	}
	return hm, true
}

func decodeActorBaseStats(payload []byte, e Endian) (any, bool) {
	if len(payload) < 24 {
		return nil, false
	}
	flags, _ := readUint32(payload, 0, e)
	fatigue, _ := readUint16(payload, 4, e)
	barterGold, _ := readUint16(payload, 6, e)
	level, _ := readInt16(payload, 8, e)
	calcMin, _ := readUint16(payload, 10, e)
	calcMax, _ := readUint16(payload, 12, e)
	speedMult, _ := readUint16(payload, 14, e)
	karmaRaw, _ := readInt16(payload, 16, e)
	disposition, _ := readInt16(payload, 18, e)
	templateFlags, _ := readUint16(payload, 20, e)

	stats := ActorBaseStats{
		Flags:         flags,
		Fatigue:       fatigue,
		BarterGold:    barterGold,
		Level:         level,
		CalcMin:       calcMin,
		CalcMax:       calcMax,
		SpeedMult:     speedMult,
		Karma:         float32(karmaRaw) / 100,
		Disposition:   disposition,
		TemplateFlags: templateFlags,
	}
	return stats, true
}

func decodeIndex16(payload []byte, e Endian) (any, bool) {
	if len(payload) < 2 {
		return nil, false
	}
	v, ok := readInt16(payload, 0, e)
	if !ok {
		return nil, false
	}
	return v, true
}

func decodeUint16Value(payload []byte, e Endian) (any, bool) {
	if len(payload) < 2 {
		return nil, false
	}
	v, ok := readUint16(payload, 0, e)
	if !ok {
		return nil, false
	}
	return v, true
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
