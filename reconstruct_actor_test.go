package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildACBSPayload(karmaRaw int16) []byte {
	b := make([]byte, 24)
	writeU32(b, 0, 0, LittleEndian) // flags
	putU16LE(b, 4, 50)              // fatigue
	putU16LE(b, 6, 0)               // barter gold
	putU16LE(b, 8, uint16(int16(5)))// level
	putU16LE(b, 10, 0)              // calc min
	putU16LE(b, 12, 0)              // calc max
	putU16LE(b, 14, 100)            // speed mult
	putU16LE(b, 16, uint16(karmaRaw))
	putU16LE(b, 18, 0) // disposition
	putU16LE(b, 20, 0) // template flags
	return b
}

func TestReconstructActorBasicFields(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("GoblinChief\x00"))
	subs = appendSubrecord(subs, "FULL", []byte("Goblin Chief\x00"))
	subs = appendSubrecord(subs, "ACBS", buildACBSPayload(16))
	subs = appendSubrecord(subs, "RNAM", le32(0x100))
	subs = appendSubrecord(subs, "CNAM", le32(0x200))
	subs = appendSubrecord(subs, "SCRI", le32(0x300))
	subs = appendSubrecord(subs, "VTCK", le32(0x400))
	subs = appendSubrecord(subs, "TPLT", le32(0x500))
	subs = appendSubrecord(subs, "SPLO", le32(0x600))
	subs = appendSubrecord(subs, "CNTO", append(le32(0x700), 5, 0, 0, 0))
	subs = appendSubrecord(subs, "PKID", le32(0x800))

	res := NewResult()
	mrh := MainRecordHeader{Signature: "NPC_", FormID: 0x00011111}
	err := reconstructActor(res, mrh, 0, LittleEndian, subs, entityNPC)
	require.NoError(t, err)
	require.Len(t, res.NPCs, 1)

	npc := res.NPCs[0]
	assert.Equal(t, "GoblinChief", npc.EditorID)
	assert.Equal(t, "Goblin Chief", npc.Name)
	assert.Equal(t, uint32(0x100), npc.RaceFormID)
	assert.Equal(t, uint32(0x200), npc.ClassFormID)
	assert.Equal(t, uint32(0x300), npc.ScriptFormID)
	assert.Equal(t, uint32(0x400), npc.VoiceFormID)
	assert.Equal(t, uint32(0x500), npc.TemplateFormID)
	require.Len(t, npc.Spells, 1)
	assert.Equal(t, uint32(0x600), npc.Spells[0])
	require.Len(t, npc.Inventory, 1)
	assert.Equal(t, uint32(0x700), npc.Inventory[0].FormID)
	assert.Equal(t, int32(5), npc.Inventory[0].Count)
	require.Len(t, npc.Packages, 1)
	assert.Equal(t, uint32(0x800), npc.Packages[0])

	editorID, ok := res.FormToEditorID[mrh.FormID]
	require.True(t, ok)
	assert.Equal(t, "GoblinChief", editorID)
	require.Len(t, res.EditorIDs, 1)
	assert.Equal(t, "GoblinChief", res.EditorIDs[0].EditorID)
}

func TestReconstructActorCombinedFactionSubrecord(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("OrcWarlord\x00"))
	faction := append(le32(0xAAAA), byte(3)) // form id + signed rank byte
	subs = appendSubrecord(subs, "SNAM", faction)

	res := NewResult()
	mrh := MainRecordHeader{Signature: "NPC_", FormID: 0x22222}
	require.NoError(t, reconstructActor(res, mrh, 0, LittleEndian, subs, entityNPC))

	require.Len(t, res.NPCs, 1)
	require.Len(t, res.NPCs[0].Factions, 1)
	assert.Equal(t, uint32(0xAAAA), res.NPCs[0].Factions[0].FactionFormID)
	assert.Equal(t, int8(3), res.NPCs[0].Factions[0].Rank)
}

func TestReconstructActorSplitFactionThenRankContinuation(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("TrollKing\x00"))
	subs = appendSubrecord(subs, "SNAM", le32(0xBBBB)) // bare 4-byte form id
	subs = appendSubrecord(subs, "FNAM", []byte{byte(int8(-2))})

	res := NewResult()
	mrh := MainRecordHeader{Signature: "NPC_", FormID: 0x33333}
	require.NoError(t, reconstructActor(res, mrh, 0, LittleEndian, subs, entityNPC))

	require.Len(t, res.NPCs[0].Factions, 1)
	assert.Equal(t, uint32(0xBBBB), res.NPCs[0].Factions[0].FactionFormID)
	assert.Equal(t, int8(-2), res.NPCs[0].Factions[0].Rank)
}

func TestReconstructActorBareSNAMWithoutRankProducesNoFaction(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("Loner\x00"))
	subs = appendSubrecord(subs, "SNAM", le32(0xCCCC))

	res := NewResult()
	mrh := MainRecordHeader{Signature: "CREA", FormID: 0x44444}
	require.NoError(t, reconstructActor(res, mrh, 0, LittleEndian, subs, entityCreature))

	assert.Empty(t, res.NPCs[0].Factions, "a bare SNAM with no following rank subrecord must not synthesize a faction entry")
}
