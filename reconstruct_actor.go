// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// reconstructActor implements the NPC/creature contract of §4.6: editor id,
// full name, 24-byte actor-base stats, form-id links (race, class, script,
// voice type, template), repeating faction membership (form id + signed-byte
// rank), repeating spell links, repeating inventory entries (form id +
// count), repeating package links.
func reconstructActor(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte, kind entityKind) error {
	ent := NPCEntity{EntityHeader: headerFromRecord(mrh, offset, e, kind)}

	var pendingFaction uint32
	var havePendingFaction bool

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
		case "FULL":
			ent.Name = trimNonPrintable(string(sr.Payload))
		case "ACBS":
			if stats, ok := decodeActorBaseStats(sr.Payload, e); ok {
				ent.Stats = stats.(ActorBaseStats)
			}
		case "RNAM":
			ent.RaceFormID, _ = readUint32(sr.Payload, 0, e)
		case "CNAM":
			ent.ClassFormID, _ = readUint32(sr.Payload, 0, e)
		case "SCRI":
			ent.ScriptFormID, _ = readUint32(sr.Payload, 0, e)
		case "VTCK":
			ent.VoiceFormID, _ = readUint32(sr.Payload, 0, e)
		case "TPLT":
			ent.TemplateFormID, _ = readUint32(sr.Payload, 0, e)
		case "SNAM":
			// Faction membership is split across two subrecords in some
			// builds (form id then rank); accept both the combined 5-byte
			// and the two-subrecord forms.
			if len(sr.Payload) >= 5 {
				id, ok := readUint32(sr.Payload, 0, e)
				rank, ok2 := readInt8(sr.Payload, 4)
				if ok && ok2 {
					ent.Factions = append(ent.Factions, FactionMembership{FactionFormID: id, Rank: rank})
				}
			} else if len(sr.Payload) == 4 {
				pendingFaction, _ = readUint32(sr.Payload, 0, e)
				havePendingFaction = true
			}
		case "RNAM2", "FNAM": // rank byte following a bare SNAM form id
			if havePendingFaction {
				rank, _ := readInt8(sr.Payload, 0)
				ent.Factions = append(ent.Factions, FactionMembership{FactionFormID: pendingFaction, Rank: rank})
				havePendingFaction = false
			}
		case "SPLO":
			if id, ok := readUint32(sr.Payload, 0, e); ok {
				ent.Spells = append(ent.Spells, id)
			}
		case "CNTO":
			if len(sr.Payload) >= 8 {
				id, ok1 := readUint32(sr.Payload, 0, e)
				count, ok2 := readInt32(sr.Payload, 4, e)
				if ok1 && ok2 {
					ent.Inventory = append(ent.Inventory, InventoryItem{FormID: id, Count: count})
				}
			}
		case "PKID":
			if id, ok := readUint32(sr.Payload, 0, e); ok {
				ent.Packages = append(ent.Packages, id)
			}
		}
	})

	if ent.EditorID != "" {
		res.addEditorID(EditorIDHit{EditorID: ent.EditorID, FormID: mrh.FormID, Offset: offset, Source: "reconstruct"})
	}
	res.NPCs = append(res.NPCs, ent)
	return nil
}
