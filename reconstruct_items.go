// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// reconstructWeapon implements the WEAP contract of §4.6: a 15-byte DATA
// block (value, health, weight, damage, clip), a 204-byte DNAM block (only
// the fields named in §4.6 are extracted; the remainder of the block is
// unused padding from this system's point of view), a CRDT critical-hit
// block, and a MODL model path.
func reconstructWeapon(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := WeaponEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityWeapon)}

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
		case "FULL":
			ent.Name = trimNonPrintable(string(sr.Payload))
		case "MODL":
			ent.ModelPath = trimNonPrintable(string(sr.Payload))
		case "DATA":
			if len(sr.Payload) >= 15 {
				ent.Value, _ = readUint32(sr.Payload, 0, e)
				ent.Health, _ = readUint32(sr.Payload, 4, e)
				ent.Weight, _ = readFloat32(sr.Payload, 8, e)
				ent.Damage, _ = readUint16(sr.Payload, 12, e)
				clip, _ := readUint8(sr.Payload, 14)
				ent.Clip = clip
			}
		case "DNAM":
			ent.DNAM = decodeWeaponDNAM(sr.Payload, e)
		case "CRDT":
			if len(sr.Payload) >= 12 {
				dmg, _ := readFloat32(sr.Payload, 0, e)
				chance, _ := readFloat32(sr.Payload, 4, e)
				eff, _ := readUint32(sr.Payload, 8, e)
				ent.CRDT = WeaponCRDT{Damage: dmg, Chance: chance, EffectFormID: eff}
			}
		}
	})

	if ent.EditorID != "" {
		res.addEditorID(EditorIDHit{EditorID: ent.EditorID, FormID: mrh.FormID, Offset: offset, Source: "reconstruct"})
	}
	res.Weapons = append(res.Weapons, ent)
	return nil
}

// decodeWeaponDNAM extracts the §4.6-named fields from the front of the
// 204-byte weapon DNAM block; a short/malformed block yields a partially
// filled, never erroring, result (the reconstructor never fails a record over
// one subrecord — §7 record-local tolerance).
func decodeWeaponDNAM(b []byte, e Endian) WeaponDNAM {
	var d WeaponDNAM
	d.Type, _ = readUint32(b, 0, e)
	d.AnimationType, _ = readUint32(b, 4, e)
	d.Speed, _ = readFloat32(b, 8, e)
	d.Reach, _ = readFloat32(b, 12, e)
	ammoPerShot, _ := readInt32(b, 16, e)
	d.AmmoPerShot = ammoPerShot
	d.MinSpread, _ = readFloat32(b, 20, e)
	d.Spread, _ = readFloat32(b, 24, e)
	d.Range, _ = readFloat32(b, 28, e)
	d.ShotsPerSecond, _ = readFloat32(b, 32, e)
	d.ActionPointCost, _ = readFloat32(b, 36, e)
	d.StrengthReq, _ = readUint32(b, 40, e)
	d.SkillReq, _ = readUint32(b, 44, e)
	d.ProjectileFormID, _ = readUint32(b, 48, e)
	d.AmmoFormID, _ = readUint32(b, 52, e)
	vatsChance, _ := readInt8(b, 56)
	d.VATSToHitChance = vatsChance
	d.VATSSkill, _ = readFloat32(b, 57, e)
	return d
}
