package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructQuestStagesAndObjectives(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("MainQuest\x00"))
	subs = appendSubrecord(subs, "FULL", []byte("Main Quest\x00"))
	subs = appendSubrecord(subs, "DATA", []byte{1, 0, 5})
	subs = appendSubrecord(subs, "SCRI", le32(0x999))
	subs = appendSubrecord(subs, "INDX", []byte{10, 0})
	subs = appendSubrecord(subs, "QSDT", []byte{1})
	subs = appendSubrecord(subs, "CNAM", []byte("Stage ten begins\x00"))
	subs = appendSubrecord(subs, "QOBJ", []byte{1, 0})
	subs = appendSubrecord(subs, "NNAM", []byte("Find the artifact\x00"))

	res := NewResult()
	mrh := MainRecordHeader{Signature: "QUST", FormID: 0x1}
	require.NoError(t, reconstructQuest(res, mrh, 0, LittleEndian, subs))
	require.Len(t, res.Quests, 1)

	q := res.Quests[0]
	assert.Equal(t, "MainQuest", q.EditorID)
	assert.Equal(t, "Main Quest", q.Name)
	assert.Equal(t, uint16(1), q.Flags)
	assert.Equal(t, uint8(5), q.Priority)
	assert.Equal(t, uint32(0x999), q.ScriptFormID)

	require.Len(t, q.Stages, 1)
	assert.Equal(t, int16(10), q.Stages[0].Index)
	assert.Equal(t, uint8(1), q.Stages[0].Flags)
	assert.Equal(t, "Stage ten begins", q.Stages[0].LogText)

	require.Len(t, q.Objectives, 1)
	assert.Equal(t, int16(1), q.Objectives[0].Index)
	assert.Equal(t, "Find the artifact", q.Objectives[0].Text)
}

func TestReconstructQuestCNAMWithoutPrecedingINDXIsIgnored(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("Orphan\x00"))
	subs = appendSubrecord(subs, "CNAM", []byte("no stage yet\x00"))

	res := NewResult()
	mrh := MainRecordHeader{Signature: "QUST", FormID: 0x2}
	require.NoError(t, reconstructQuest(res, mrh, 0, LittleEndian, subs))
	assert.Empty(t, res.Quests[0].Stages, "a CNAM log line without a preceding INDX must not synthesize a stage")
}

func TestReconstructDialogTopicEditorIDAndName(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("GreetingTopic\x00"))
	subs = appendSubrecord(subs, "FULL", []byte("Greeting\x00"))

	res := NewResult()
	mrh := MainRecordHeader{Signature: "DIAL", FormID: 0x3}
	require.NoError(t, reconstructDialogTopic(res, mrh, 0, LittleEndian, subs))
	require.Len(t, res.DialogTopics, 1)
	assert.Equal(t, "GreetingTopic", res.DialogTopics[0].EditorID)
	assert.Equal(t, "Greeting", res.DialogTopics[0].Name)
}

func TestReconstructDialogueInfoResponsesPairTextWithFollowingTRDT(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("Info001\x00"))
	subs = appendSubrecord(subs, "TPIC", le32(0x10))
	subs = appendSubrecord(subs, "QSTI", le32(0x20))
	subs = appendSubrecord(subs, "ANAM", le32(0x30))
	subs = appendSubrecord(subs, "PNAM", le32(0x40))
	subs = appendSubrecord(subs, "NAM1", []byte("Hello there.\x00"))
	subs = appendSubrecord(subs, "TRDT", make([]byte, 20))

	res := NewResult()
	mrh := MainRecordHeader{Signature: "INFO", FormID: 0x4}
	require.NoError(t, reconstructDialogueInfo(res, mrh, 0, LittleEndian, subs))
	require.Len(t, res.DialogueInfos, 1)

	info := res.DialogueInfos[0]
	assert.Equal(t, uint32(0x10), info.TopicFormID)
	assert.Equal(t, uint32(0x20), info.QuestFormID)
	assert.Equal(t, uint32(0x30), info.SpeakerFormID)
	assert.Equal(t, uint32(0x40), info.PrevInfoFormID)
	require.Len(t, info.Responses, 1)
	assert.Equal(t, "Hello there.", info.Responses[0].Text)
}

func TestReconstructDialogueInfoTRDTWithoutPrecedingTextYieldsEmptyString(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("Info002\x00"))
	subs = appendSubrecord(subs, "TRDT", make([]byte, 20))

	res := NewResult()
	mrh := MainRecordHeader{Signature: "INFO", FormID: 0x5}
	require.NoError(t, reconstructDialogueInfo(res, mrh, 0, LittleEndian, subs))
	require.Len(t, res.DialogueInfos[0].Responses, 1)
	assert.Equal(t, "", res.DialogueInfos[0].Responses[0].Text)
}
