// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// reconstructRecord is the C7 entry point: given one confirmed main record
// (header already validated, payload already decompressed), build the typed
// domain entity for its kind and append it to res. Unknown or
// non-reconstructing kinds are a no-op, not an error (§4.2: the registry's
// Reconstructs flag gates this).
//
// reconstructRecord is called once per main record, in discovery order, by
// both the structured parser (C4) and the dump scanner (C5), so state that
// spans records — the "current cell" a placed reference belongs to, the most
// recent XCLC offset a LAND attaches against — lives on Result itself (see
// result.go) rather than on either caller.
func reconstructRecord(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	kind, known := knownRecordKinds[mrh.Signature]
	if !known || !kind.Reconstructs {
		return nil
	}

	switch mrh.Signature {
	case "NPC_", "CREA":
		return reconstructActor(res, mrh, offset, e, payload, kind.EntityVariant)
	case "WEAP":
		return reconstructWeapon(res, mrh, offset, e, payload)
	case "QUST":
		return reconstructQuest(res, mrh, offset, e, payload)
	case "DIAL":
		return reconstructDialogTopic(res, mrh, offset, e, payload)
	case "INFO":
		return reconstructDialogueInfo(res, mrh, offset, e, payload)
	case "CELL":
		return reconstructCell(res, mrh, offset, e, payload)
	case "WRLD":
		return reconstructWorldspace(res, mrh, offset, e, payload)
	case "LAND":
		return reconstructLand(res, mrh, offset, e, payload)
	case "REFR", "ACHR", "ACRE":
		return reconstructPlacedReference(res, mrh, offset, e, payload)
	case "GLOB":
		return reconstructGlobal(res, mrh, offset, e, payload)
	default:
		return reconstructGeneric(res, mrh, offset, e, payload, kind.EntityVariant)
	}
}

// headerFromRecord builds the shared EntityHeader fields (§3) common to every
// reconstructed entity. editorID/name are filled in by the caller's own
// subrecord walk since the schema differs per kind only in which subrecords
// carry them (always EDID/FULL in practice).
func headerFromRecord(mrh MainRecordHeader, offset uint32, e Endian, kind entityKind) EntityHeader {
	return EntityHeader{
		FormID:      mrh.FormID,
		IsBigEndian: e == BigEndian,
		Offset:      offset,
		Kind:        kind,
	}
}
