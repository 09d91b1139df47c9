// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// reconstructGeneric builds a GenericEntity for every reconstructing kind
// §4.6 does not spell out a dedicated contract for (race, faction, class,
// perk, spell, enchantment, base effect, weapon mod, recipe, challenge,
// reputation, projectile, explosion, message, game setting, and the
// inventory-item kinds: container, key, misc item, book, note, terminal,
// consumable, armor, ammo). It still commits to editor id, name, and a
// best-effort set of form-id links and decoded text per subrecord signature,
// using the same subrecord-stream walk the typed kinds use (§9: "the spec
// replaces that hierarchy with a pure lookup").
func reconstructGeneric(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte, kind entityKind) error {
	ent := GenericEntity{
		EntityHeader: headerFromRecord(mrh, offset, e, kind),
		Links:        make(map[string]uint32),
		Texts:        make(map[string]string),
	}

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
			return
		case "FULL":
			ent.Name = trimNonPrintable(string(sr.Payload))
			return
		}

		if len(sr.Payload) == 4 {
			if id, ok := readUint32(sr.Payload, 0, e); ok && isPlausibleFormIDRef(id) {
				ent.Links[sr.Signature] = id
				return
			}
		}
		if text := trimNonPrintable(string(sr.Payload)); len(text) > 0 && asciiPrintable(text) {
			ent.Texts[sr.Signature] = text
		}
	})

	if ent.EditorID != "" {
		res.addEditorID(EditorIDHit{EditorID: ent.EditorID, FormID: mrh.FormID, Offset: offset, Source: "reconstruct"})
	}
	res.Generic = append(res.Generic, ent)
	return nil
}
