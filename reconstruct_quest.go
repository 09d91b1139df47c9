// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// reconstructQuest implements the QUST contract of §4.6: flags, priority,
// script link; an ordered stage collection where an INDX establishes the
// current stage index, a subsequent QSDT carries its flags, and each
// subsequent CNAM carries one log-text entry associated with the most recent
// INDX/QSDT; an ordered objective collection of QOBJ+NNAM pairs.
func reconstructQuest(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := QuestEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityQuest)}

	var stageIndex int16
	var stageFlags uint8
	var haveStage bool
	var objIndex int16
	var haveObjective bool

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
		case "FULL":
			ent.Name = trimNonPrintable(string(sr.Payload))
		case "DATA":
			if len(sr.Payload) >= 3 {
				flags, _ := readUint16(sr.Payload, 0, e)
				priority, _ := readUint8(sr.Payload, 2)
				ent.Flags = flags
				ent.Priority = priority
			}
		case "SCRI":
			ent.ScriptFormID, _ = readUint32(sr.Payload, 0, e)
		case "INDX":
			if idx, ok := readInt16(sr.Payload, 0, e); ok {
				stageIndex = idx
				stageFlags = 0
				haveStage = true
			}
		case "QSDT":
			if haveStage && len(sr.Payload) >= 1 {
				flags, _ := readUint8(sr.Payload, 0)
				stageFlags = flags
			}
		case "CNAM":
			if haveStage {
				ent.Stages = append(ent.Stages, QuestStage{
					Index:   stageIndex,
					Flags:   stageFlags,
					LogText: trimNonPrintable(string(sr.Payload)),
				})
			}
		case "QOBJ":
			if idx, ok := readInt16(sr.Payload, 0, e); ok {
				objIndex = idx
				haveObjective = true
			}
		case "NNAM":
			if haveObjective {
				ent.Objectives = append(ent.Objectives, QuestObjective{
					Index: objIndex,
					Text:  trimNonPrintable(string(sr.Payload)),
				})
				haveObjective = false
			}
		}
	})

	if ent.EditorID != "" {
		res.addEditorID(EditorIDHit{EditorID: ent.EditorID, FormID: mrh.FormID, Offset: offset, Source: "reconstruct"})
	}
	res.Quests = append(res.Quests, ent)
	return nil
}

// reconstructDialogTopic implements the minimal DIAL contract of §4.6:
// dialog topics carry only editor id and name at the main-record level; their
// responses live on the INFO records that name them.
func reconstructDialogTopic(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := DialogTopicEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityDialogTopic)}

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
	res.DialogTopics = append(res.DialogTopics, ent)
	return nil
}

// reconstructDialogueInfo implements the INFO contract of §4.6: links to
// topic, quest, speaker, and previous info; an ordered response list where
// each response pairs a NAM1 text subrecord with the TRDT 20-byte emotion
// block that immediately follows it in stream order.
func reconstructDialogueInfo(res *Result, mrh MainRecordHeader, offset uint32, e Endian, payload []byte) error {
	ent := DialogueInfoEntity{EntityHeader: headerFromRecord(mrh, offset, e, entityDialogueInfo)}

	var pendingText string
	var havePendingText bool

	walkSubrecords(payload, e, func(sr Subrecord) {
		switch sr.Signature {
		case "EDID":
			ent.EditorID = trimNonPrintable(string(sr.Payload))
		case "TPIC":
			ent.TopicFormID, _ = readUint32(sr.Payload, 0, e)
		case "QSTI":
			ent.QuestFormID, _ = readUint32(sr.Payload, 0, e)
		case "ANAM":
			ent.SpeakerFormID, _ = readUint32(sr.Payload, 0, e)
		case "PNAM":
			ent.PrevInfoFormID, _ = readUint32(sr.Payload, 0, e)
		case "NAM1":
			pendingText = trimNonPrintable(string(sr.Payload))
			havePendingText = true
		case "TRDT":
			var emotion [20]byte
			n := copy(emotion[:], sr.Payload)
			_ = n
			text := ""
			if havePendingText {
				text = pendingText
				havePendingText = false
			}
			ent.Responses = append(ent.Responses, DialogResponse{Text: text, EmotionData: emotion})
		}
	})

	res.DialogueInfos = append(res.DialogueInfos, ent)
	return nil
}
