// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// landAttachWindow is the §4.6 "lies within ~500 bytes after an XCLC
// (cell-grid) subrecord" tolerance for associating a LAND record with the
// CELL that precedes it.
const landAttachWindow = 500

// reconstructCell implements the CELL half of §4.6: editor id, full name,
// and the cell grid (XCLC). Placed references and land are attached to the
// entity later, as those sibling records are themselves reconstructed — see
// reconstructPlacedReference (which appends to PlacedReferences) and
// reconstructLand.
func reconstructCell(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := CellEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityCell)}
	dataStart := offset + mainRecordHeaderSize

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
		case "FULL":
			ent.Name = trimNonPrintable(string(sr.Payload))
		case "XCLC":
			if grid, ok := decodeCellGrid(sr.Payload, e); ok {
				ent.Grid = grid.(CellGrid)
				ent.HasGrid = true
			}
			res.lastXCLCAbsOffset = dataStart + sr.Offset
			res.haveLastXCLC = true
		}
	})

	res.currentCellFormID = mrh.FormID
	res.haveCurrentCell = true
	res.cellIndexByFormID[mrh.FormID] = len(res.Cells)
	res.Cells = append(res.Cells, ent)
	if ent.EditorID != "" {
		res.addEditorID(EditorIDHit{EditorID: ent.EditorID, FormID: mrh.FormID, Offset: offset, Source: "reconstruct"})
	}
	return nil
}

// reconstructWorldspace implements the minimal WRLD contract: editor id and
// name; per-cell terrain and content belong to the CELL/LAND records that
// reference the worldspace, not to the WRLD record itself.
func reconstructWorldspace(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := WorldspaceEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityWorldspace)}

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
		case "FULL":
			ent.Name = trimNonPrintable(string(sr.Payload))
		}
	})

	if ent.EditorID != "" {
		res.addEditorID(EditorIDHit{EditorID: ent.EditorID, FormID: mrh.FormID, Offset: offset, Source: "reconstruct"})
	}
	res.Worldspaces = append(res.Worldspaces, ent)
	return nil
}

// reconstructLand implements land extraction (§4.6): decode VHGT into the
// 33x33 delta array and base offset, decode ATXT/BTXT texture layers, and —
// when this LAND's offset falls within landAttachWindow bytes after the most
// recently seen XCLC subrecord — attach the result to that cell.
func reconstructLand(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := LandEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityNone)}

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "VHGT":
			if hm, ok := decodeHeightmap(sr.Payload, e); ok {
				h := hm.(Heightmap)
				ent.Heightmap = h
				ent.HasHeightmap = true
			}
		case "ATXT", "BTXT":
			if layer, ok := decodeTextureLayer(sr.Payload, e); ok {
				ent.TextureLayers = append(ent.TextureLayers, layer)
			}
		}
	})

	res.Lands = append(res.Lands, ent)

	if res.haveLastXCLC && res.haveCurrentCell && offset >= res.lastXCLCAbsOffset &&
		offset-res.lastXCLCAbsOffset <= landAttachWindow {
		if idx, ok := res.cellIndexByFormID[res.currentCellFormID]; ok && idx < len(res.Cells) {
			landCopy := ent
			res.Cells[idx].Land = &landCopy
		}
	}
	return nil
}

func decodeTextureLayer(payload []byte, e Endian) (LandTextureLayer, bool) {
	if len(payload) < 5 {
		return LandTextureLayer{}, false
	}
	formID, ok := readUint32(payload, 0, e)
	if !ok {
		return LandTextureLayer{}, false
	}
	layer, _ := readInt8(payload, 4)
	return LandTextureLayer{TextureFormID: formID, Layer: layer}, true
}

// reconstructPlacedReference implements the REFR/ACHR/ACRE contract of §4.6:
// NAME -> base form id, DATA (six floats) -> pose, XSCL -> scale (default
// 1.0), XOWN -> owner, XESP -> enable parent, and XMRK presence paired with
// TNAM/FULL -> map marker fields. Picks up the enclosing cell's form id from
// Result's cross-record reconstruction state (§9: "references do not own
// cells").
func reconstructPlacedReference(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ref := PlacedReference{
		FormID:      mrh.FormID,
		Scale:       1.0,
		IsBigEndian: e == BigEndian,
		Offset:      offset,
		Kind:        placedReferenceKind(mrh.Signature),
	}
	if res.haveCurrentCell {
		ref.CellFormID = res.currentCellFormID
	}

	var sawXMRK bool

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "NAME":
			if id, ok := readUint32(sr.Payload, 0, e); ok {
				ref.BaseFormID = id
			}
		case "DATA":
			if pos, ok := decodePosition(sr.Payload, e); ok {
				ref.X, ref.Y, ref.Z = pos.X, pos.Y, pos.Z
				ref.RX, ref.RY, ref.RZ = pos.RX, pos.RY, pos.RZ
			}
		case "XSCL":
			if v, ok := readFloat32(sr.Payload, 0, e); ok {
				ref.Scale = v
			}
		case "XOWN":
			if id, ok := readUint32(sr.Payload, 0, e); ok {
				ref.OwnerFormID = id
			}
		case "XESP":
			if id, ok := readUint32(sr.Payload, 0, e); ok {
				ref.EnableParentID = id
			}
		case "XMRK":
			sawXMRK = true
		case "TNAM":
			if sawXMRK {
				if v, ok := readUint16(sr.Payload, 0, e); ok {
					ref.IsMapMarker = true
					ref.MapMarkerType = v
				}
			}
		case "FULL":
			if sawXMRK {
				ref.MapMarkerName = trimNonPrintable(string(sr.Payload))
			}
		}
	})

	if ref.BaseFormID != 0 {
		if editorID, ok := res.FormToEditorID[ref.BaseFormID]; ok {
			ref.BaseEditorID = editorID
		}
	}

	idx := len(res.PlacedReferences)
	res.PlacedReferences = append(res.PlacedReferences, ref)
	if ref.CellFormID != 0 {
		res.CellToPlacedRefs[ref.CellFormID] = append(res.CellToPlacedRefs[ref.CellFormID], idx)
		if cellIdx, ok := res.cellIndexByFormID[ref.CellFormID]; ok && cellIdx < len(res.Cells) {
			res.Cells[cellIdx].PlacedReferences = append(res.Cells[cellIdx].PlacedReferences, uint32(idx))
		}
	}
	return nil
}

func placedReferenceKind(signature string) string {
	switch signature {
	case "ACHR":
		return "PlacedNPC"
	case "ACRE":
		return "PlacedCreature"
	default:
		return "PlacedObject"
	}
}

// reconstructGlobal implements the minimal GLOB contract: editor id and the
// single float value.
func reconstructGlobal(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := GlobalEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityGlobal)}

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
		case "FNAM":
			// type marker byte, ignored: the decoded value is always read as
			// a float regardless of its authored type per §3's GLOB model.
		case "FLTV":
			if v, ok := readFloat32(sr.Payload, 0, e); ok {
				ent.Value = v
			}
		}
	})

	if ent.EditorID != "" {
		res.addEditorID(EditorIDHit{EditorID: ent.EditorID, FormID: mrh.FormID, Offset: offset, Source: "reconstruct"})
	}
	res.Globals = append(res.Globals, ent)
	return nil
}
