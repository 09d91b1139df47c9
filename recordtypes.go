// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// recordKind describes a single main-record signature: its canonical spelling
// and whether the semantic reconstructor (C7) knows how to build a typed
// entity for it. Built once at init time, mirroring the teacher's static
// funcMaps dispatch table in pe.go's ParseDataDirectories.
type recordKind struct {
	Signature      string
	Name           string
	Reconstructs   bool
	EntityVariant  entityKind
}

// knownRecordKinds is the process-wide immutable table of record signatures
// this system understands, canonical (little-endian) spelling. Per DESIGN
// NOTES this replaces an ambient global with a package-level immutable value
// built at init and never mutated afterward.
var knownRecordKinds = buildRecordKindTable()

func buildRecordKindTable() map[string]recordKind {
	kinds := []recordKind{
		{"TES4", "File Header", false, entityNone},
		{"GRUP", "Group", false, entityNone},
		{"GMST", "Game Setting", true, entityGameSetting},
		{"GLOB", "Global Variable", true, entityGlobal},
		{"CLAS", "Class", true, entityClass},
		{"FACT", "Faction", true, entityFaction},
		{"RACE", "Race", true, entityRace},
		{"NPC_", "Non-Player Character", true, entityNPC},
		{"CREA", "Creature", true, entityCreature},
		{"PERK", "Perk", true, entityPerk},
		{"SPEL", "Spell", true, entitySpell},
		{"ENCH", "Enchantment", true, entityEnchantment},
		{"MGEF", "Base Effect", true, entityBaseEffect},
		{"WEAP", "Weapon", true, entityWeapon},
		{"ARMO", "Armor", true, entityArmor},
		{"AMMO", "Ammunition", true, entityAmmo},
		{"ALCH", "Consumable", true, entityConsumable},
		{"MISC", "Misc Item", true, entityMiscItem},
		{"KEYM", "Key", true, entityKey},
		{"CONT", "Container", true, entityContainer},
		{"BOOK", "Book", true, entityBook},
		{"NOTE", "Note", true, entityNote},
		{"TERM", "Terminal", true, entityTerminal},
		{"QUST", "Quest", true, entityQuest},
		{"DIAL", "Dialog Topic", true, entityDialogTopic},
		{"INFO", "Dialogue Info", true, entityDialogueInfo},
		{"CELL", "Cell", true, entityCell},
		{"WRLD", "Worldspace", true, entityWorldspace},
		{"LAND", "Land", true, entityNone}, // attached to a CELL, not standalone
		{"REFR", "Placed Reference", true, entityNone},
		{"ACHR", "Placed NPC", true, entityNone},
		{"ACRE", "Placed Creature", true, entityNone},
		{"COBJ", "Recipe", true, entityRecipe},
		{"CHAL", "Challenge", true, entityChallenge},
		{"REPU", "Reputation", true, entityReputation},
		{"PROJ", "Projectile", true, entityProjectile},
		{"EXPL", "Explosion", true, entityExplosion},
		{"MESG", "Message", true, entityMessage},
		{"IMOD", "Weapon Mod", true, entityWeaponMod},
	}

	m := make(map[string]recordKind, len(kinds))
	for _, k := range kinds {
		m[k.Signature] = k
	}
	return m
}

// IsKnownRecordKind reports whether sig (already in canonical spelling) names
// a record type this system recognizes.
func IsKnownRecordKind(sig string) bool {
	_, ok := knownRecordKinds[sig]
	return ok
}

// canonicalSignature returns the canonical (little-endian) spelling of a raw
// 4-byte signature observed under the given endianness.
func canonicalSignature(raw [4]byte, e Endian) string {
	if e == BigEndian {
		raw = reverseSignature(raw)
	}
	return string(raw[:])
}

// isAlnumOrUnderscoreSignature validates the §3 main-record header invariant:
// "signature must be alphanumeric-or-underscore only."
func isAlnumOrUnderscoreSignature(raw [4]byte) bool {
	for _, c := range raw {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}
