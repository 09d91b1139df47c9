// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// entityKind enumerates the reconstructed-entity variants of §3. Kinds with a
// typed entity have their own builder function in reconstruct*.go; the other
// kinds that Reconstruct in the record registry share reconstructGeneric.
type entityKind int

const (
	entityNone entityKind = iota
	entityNPC
	entityCreature
	entityRace
	entityFaction
	entityQuest
	entityDialogTopic
	entityDialogueInfo
	entityNoteItem
	entityBook
	entityTerminal
	entityWeapon
	entityArmor
	entityAmmo
	entityConsumable
	entityMiscItem
	entityKey
	entityContainer
	entityPerk
	entitySpell
	entityCell
	entityWorldspace
	entityGlobal
	entityEnchantment
	entityBaseEffect
	entityWeaponMod
	entityRecipe
	entityChallenge
	entityReputation
	entityProjectile
	entityExplosion
	entityMessage
	entityClass
	entityGameSetting
	entityNote = entityNoteItem
)

// EntityHeader carries the fields every reconstructed entity shares (§3).
type EntityHeader struct {
	FormID     uint32
	EditorID   string
	Name       string
	IsBigEndian bool
	Offset     uint32
	Kind       entityKind
}

// ActorBaseStats is the 24-byte ACBS block shared by NPC and Creature records.
type ActorBaseStats struct {
	Flags        uint32
	Fatigue      uint16
	BarterGold   uint16
	Level        int16
	CalcMin      uint16
	CalcMax      uint16
	SpeedMult    uint16
	Karma        float32
	Disposition  int16
	TemplateFlags uint16
}

// FactionMembership is one repeating faction-link subrecord on an NPC/creature.
type FactionMembership struct {
	FactionFormID uint32
	Rank          int8
}

// InventoryItem is a (form id, count) pair from a CNTO-style subrecord.
type InventoryItem struct {
	FormID uint32
	Count  int32
}

// NPCEntity is the reconstructed contract for NPC_ and CREA records (§4.6).
type NPCEntity struct {
	EntityHeader
	Stats         ActorBaseStats
	RaceFormID    uint32
	ClassFormID   uint32
	ScriptFormID  uint32
	VoiceFormID   uint32
	TemplateFormID uint32
	Factions      []FactionMembership
	Spells        []uint32
	Inventory     []InventoryItem
	Packages      []uint32
}

// WeaponDNAM is the subset of the 204-byte DNAM block §4.6 names explicitly.
type WeaponDNAM struct {
	Type             uint32
	AnimationType    uint32
	Speed            float32
	Reach            float32
	AmmoPerShot      int32
	MinSpread        float32
	Spread           float32
	Range            float32
	ShotsPerSecond   float32
	ActionPointCost  float32
	StrengthReq      uint32
	SkillReq         uint32
	ProjectileFormID uint32
	AmmoFormID       uint32
	VATSToHitChance  int8
	VATSSkill        float32
}

// WeaponCRDT is the critical-hit block.
type WeaponCRDT struct {
	Damage float32
	Chance float32
	EffectFormID uint32
}

// WeaponEntity is the reconstructed contract for WEAP records.
type WeaponEntity struct {
	EntityHeader
	Value      uint32
	Health     uint32
	Weight     float32
	Damage     uint16
	Clip       uint8
	DNAM       WeaponDNAM
	CRDT       WeaponCRDT
	ModelPath  string
}

// QuestStage is one INDX-keyed stage, populated from the QSDT/CNAM pair that
// follows it in stream order (§4.6).
type QuestStage struct {
	Index int16
	Flags uint8
	LogText string
}

// QuestObjective is a QOBJ/NNAM pair.
type QuestObjective struct {
	Index int16
	Text  string
}

// QuestEntity is the reconstructed contract for QUST records.
type QuestEntity struct {
	EntityHeader
	Flags        uint16
	Priority     uint8
	ScriptFormID uint32
	Stages       []QuestStage
	Objectives   []QuestObjective
}

// DialogResponse is one NAM1/TRDT pair in a DialogueInfoEntity.
type DialogResponse struct {
	Text        string
	EmotionData [20]byte
}

// DialogTopicEntity is the reconstructed contract for DIAL records.
type DialogTopicEntity struct {
	EntityHeader
}

// DialogueInfoEntity is the reconstructed contract for INFO records.
type DialogueInfoEntity struct {
	EntityHeader
	TopicFormID    uint32
	QuestFormID    uint32
	SpeakerFormID  uint32
	PrevInfoFormID uint32
	Responses      []DialogResponse
}

// Heightmap is the 33x33 cumulative terrain-height grid decoded from VHGT (§3).
type Heightmap struct {
	BaseHeight float32
	Deltas     [33][33]int8
}

// Decode expands the cumulative delta grid into absolute physical heights.
// Per §3/S5: within a row the accumulator runs left to right; the *next* row
// restarts its accumulator not from where the previous row ended, but from
// that previous row's own first column value.
func (h *Heightmap) Decode() (grid [33][33]float32) {
	rowSeed := h.BaseHeight
	for r := 0; r < 33; r++ {
		acc := rowSeed
		var nextSeed float32
		for c := 0; c < 33; c++ {
			acc += float32(h.Deltas[r][c]) * 8
			grid[r][c] = acc
			if c == 0 {
				nextSeed = acc
			}
		}
		rowSeed = nextSeed
	}
	return grid
}

// HeightAt returns the physical height of grid cell (row, col). Prefer Decode
// when reading the whole grid; this is a convenience for single lookups.
func (h *Heightmap) HeightAt(row, col int) float32 {
	return h.Decode()[row][col]
}

// CellGrid is the XCLC subrecord payload.
type CellGrid struct {
	X, Y  int32
	Flags uint8
}

// LandEntity is the reconstructed contract for LAND records.
type LandEntity struct {
	EntityHeader
	Heightmap    Heightmap
	HasHeightmap bool
	TextureLayers []LandTextureLayer
}

// LandTextureLayer is one decoded ATXT/BTXT texture-layer entry.
type LandTextureLayer struct {
	TextureFormID uint32
	Layer         int8
}

// PlacedReference is the reconstructed contract for REFR/ACHR/ACRE (§3, §4.6).
type PlacedReference struct {
	FormID         uint32
	BaseFormID     uint32
	BaseEditorID   string
	Kind           string // "PlacedObject", "PlacedNPC", "PlacedCreature"
	X, Y, Z        float32
	RX, RY, RZ     float32
	Scale          float32
	OwnerFormID    uint32
	EnableParentID uint32
	IsMapMarker    bool
	MapMarkerType  uint16
	MapMarkerName  string
	CellFormID     uint32
	IsBigEndian    bool
	Offset         uint32
}

// CellEntity is the reconstructed contract for CELL records.
type CellEntity struct {
	EntityHeader
	Grid             CellGrid
	HasGrid          bool
	PlacedReferences []uint32 // offsets into Result.PlacedReferences
	Land             *LandEntity
}

// WorldspaceEntity is the reconstructed contract for WRLD records.
type WorldspaceEntity struct {
	EntityHeader
}

// GlobalEntity is the reconstructed contract for GLOB records.
type GlobalEntity struct {
	EntityHeader
	Value float32
}

// GenericEntity covers the reconstructed kinds whose subrecord contract §4.6
// leaves unspecified in prose but §3 still commits the system to producing
// (race, faction, class, perk, spell, enchantment, base effect, weapon mod,
// recipe, challenge, reputation, projectile, explosion, message, game
// setting, container, key, misc item, book, note, terminal, consumable,
// armor, ammo). Each still gets editor id / name / form-id links collected by
// the same subrecord-walk the typed kinds use; see reconstruct_misc.go.
type GenericEntity struct {
	EntityHeader
	Links map[string]uint32 // subrecord signature -> linked form id
	Texts map[string]string // subrecord signature -> decoded text
}
