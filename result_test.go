package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddMainRecordDedupesByOffset(t *testing.T) {
	res := NewResult()
	rec := RawMainRecord{MainRecordHeader: MainRecordHeader{Signature: "NPC_"}, Offset: 100}

	assert.True(t, res.addMainRecord(rec))
	assert.False(t, res.addMainRecord(rec), "same offset is a duplicate")
	assert.Len(t, res.MainRecords, 1)
}

func TestAddEditorIDFirstWriterWins(t *testing.T) {
	res := NewResult()
	assert.True(t, res.addEditorID(EditorIDHit{EditorID: "Goblin", FormID: 0x1000, Source: "structured"}))
	assert.False(t, res.addEditorID(EditorIDHit{EditorID: "Goblin", FormID: 0x2000, Source: "dump"}))

	assert.Equal(t, "Goblin", res.FormToEditorID[0x1000])
	assert.Equal(t, "Goblin", res.FormToEditorID[0x2000], "first-writer-wins is keyed by form id: an unmapped form id is recorded even when its editor id was seen before")

	assert.True(t, res.addEditorID(EditorIDHit{EditorID: "Hobgoblin", FormID: 0x1000, Source: "dump"}))
	assert.Equal(t, "Goblin", res.FormToEditorID[0x1000], "a later writer for an already-mapped form id must not clobber the first mapping")
}

func TestAddEditorIDIgnoresSentinelFormID(t *testing.T) {
	res := NewResult()
	res.addEditorID(EditorIDHit{EditorID: "Nameless", FormID: 0})
	assert.Empty(t, res.FormToEditorID)
}

func TestAddFormIDRefDedupes(t *testing.T) {
	res := NewResult()
	assert.True(t, res.addFormIDRef(0x1234))
	assert.False(t, res.addFormIDRef(0x1234))
}

func TestDeriveCounts(t *testing.T) {
	res := NewResult()
	res.addMainRecord(RawMainRecord{MainRecordHeader: MainRecordHeader{Signature: "NPC_"}, Offset: 0, IsBigEndian: true})
	res.addMainRecord(RawMainRecord{MainRecordHeader: MainRecordHeader{Signature: "WEAP"}, Offset: 40, IsBigEndian: false})
	res.NPCs = append(res.NPCs, NPCEntity{})

	counts := res.DeriveCounts()
	assert.Equal(t, 2, counts.MainRecordsTotal)
	assert.Equal(t, 1, counts.MainRecordsBigEndian)
	assert.Equal(t, 1, counts.MainRecordsLittleEndian)
	assert.Equal(t, 1, counts.MainRecordsByKind["NPC_"])
	assert.Equal(t, 1, counts.ReconstructedByKind["NPC"])
	assert.Equal(t, 1, counts.ReconstructedTotal)
}
