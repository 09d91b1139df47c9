// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// RawMainRecord is one deduplicated raw detection, keyed by byte offset (§3).
type RawMainRecord struct {
	MainRecordHeader
	Offset      uint32
	IsBigEndian bool
	Compressed  bool
}

// GenericSubrecordHit is a schema-matched subrecord that didn't belong to one
// of the kind-specific typed lists (§3: "a list of generic schema-matched
// subrecords").
type GenericSubrecordHit struct {
	Signature string
	Offset    uint32
	Value     any
}

// EditorIDHit ties a decoded editor-id string to the byte offset it was
// decoded at (structured/dump paths) or to a runtime hash-table entry.
type EditorIDHit struct {
	EditorID string
	FormID   uint32
	Offset   uint32
	Source   string // "structured", "dump", "hashtable", "reconstruct"
}

// RuntimeEditorIDEntry is one entry the hash-table walker (C6) recovered
// (§4.5 step 5/6/7).
type RuntimeEditorIDEntry struct {
	EditorID     string
	FormID       uint32
	FormType     byte
	DisplayName  string
	DialogueLine string
	KeyOffset    uint64
	ValueOffset  uint64 // file offset of the live object, for diagnostics/reporting only
	ValueVA      uint64 // virtual address of the live object; the only address further handle dereferences may use
}

// Result is the §3/§4.7 shared mutable accumulator a single scan builds and
// consumers read thereafter. Field shape mirrors the teacher's own File
// struct-of-slices (Sections, Imports, Exports, ...), populated during one
// pass and read-only after.
type Result struct {
	// Raw detections.
	MainRecords []RawMainRecord

	EditorIDs        []EditorIDHit
	GameSettings     []GenericSubrecordHit
	ScriptTexts      []GenericSubrecordHit
	FormIDRefs       []GenericSubrecordHit
	Names            []GenericSubrecordHit
	Positions        []GenericSubrecordHit
	ActorBaseStats   []GenericSubrecordHit
	DialogueResponses []GenericSubrecordHit
	GenericTexts     []GenericSubrecordHit
	GenericPaths     []GenericSubrecordHit
	GenericFormIDRefs []GenericSubrecordHit
	Conditions       []GenericSubrecordHit
	Heightmaps       []GenericSubrecordHit
	CellGrids        []GenericSubrecordHit
	GenericSubrecords []GenericSubrecordHit

	Lands            []LandEntity
	PlacedReferences []PlacedReference
	AssetPaths       []string
	RuntimeEditorIDs []RuntimeEditorIDEntry

	// Reconstructed entities, C7.
	NPCs         []NPCEntity
	Weapons      []WeaponEntity
	Quests       []QuestEntity
	DialogTopics []DialogTopicEntity
	DialogueInfos []DialogueInfoEntity
	Cells        []CellEntity
	Worldspaces  []WorldspaceEntity
	Globals      []GlobalEntity
	Generic      []GenericEntity

	// Cross-reference: cell form id -> indices into PlacedReferences.
	CellToPlacedRefs map[uint32][]int

	// The global form->editor-id map (§3 lifecycle: first-writer-wins).
	FormToEditorID map[uint32]string

	// Record-local diagnostics (§7): recorded, never fatal.
	Diagnostics []string

	// dedup index sets, not exposed.
	seenOffsets  map[uint32]struct{}
	seenEditorID map[string]struct{}
	seenFormRefs map[uint32]struct{}

	// Cross-record reconstruction state (§4.6 cell<->placed-reference and
	// land<->cell association). Populated and consumed only by
	// reconstruct*.go, in discovery order, never read by consumers.
	cellIndexByFormID map[uint32]int
	currentCellFormID uint32
	haveCurrentCell   bool
	lastXCLCAbsOffset uint32
	haveLastXCLC      bool
}

// NewResult builds an empty, ready-to-populate Result.
func NewResult() *Result {
	return &Result{
		CellToPlacedRefs:  make(map[uint32][]int),
		FormToEditorID:    make(map[uint32]string),
		seenOffsets:       make(map[uint32]struct{}),
		seenEditorID:      make(map[string]struct{}),
		seenFormRefs:      make(map[uint32]struct{}),
		cellIndexByFormID: make(map[uint32]int),
	}
}

// addDiagnostic records a non-fatal, record-local failure (§7).
func (r *Result) addDiagnostic(msg string) {
	r.Diagnostics = append(r.Diagnostics, msg)
}

// addMainRecord deduplicates on byte offset (§3 dedup key) and appends.
func (r *Result) addMainRecord(rec RawMainRecord) bool {
	if _, dup := r.seenOffsets[rec.Offset]; dup {
		return false
	}
	r.seenOffsets[rec.Offset] = struct{}{}
	r.MainRecords = append(r.MainRecords, rec)
	return true
}

// addEditorID deduplicates on the editor-id string and records the
// first-writer-wins form->editor-id mapping (§3 lifecycle).
func (r *Result) addEditorID(hit EditorIDHit) bool {
	isNew := true
	if _, dup := r.seenEditorID[hit.EditorID]; dup {
		isNew = false
	} else {
		r.seenEditorID[hit.EditorID] = struct{}{}
		r.EditorIDs = append(r.EditorIDs, hit)
	}
	if hit.FormID != 0 && !isSentinelFormID(hit.FormID) {
		if _, exists := r.FormToEditorID[hit.FormID]; !exists {
			r.FormToEditorID[hit.FormID] = hit.EditorID
		}
	}
	return isNew
}

// addFormIDRef deduplicates a reference's form id (§3: "form-id for
// references").
func (r *Result) addFormIDRef(id uint32) bool {
	if _, dup := r.seenFormRefs[id]; dup {
		return false
	}
	r.seenFormRefs[id] = struct{}{}
	return true
}

// Counts are the §4.7 derived aggregate counts.
type Counts struct {
	MainRecordsTotal      int
	MainRecordsByKind     map[string]int
	MainRecordsBigEndian  int
	MainRecordsLittleEndian int
	ReconstructedTotal    int
	ReconstructedByKind   map[string]int
}

// DeriveCounts computes §4.7's histogram and totals from the current state of
// r. Consumers call this on demand; it is never cached on Result itself since
// Result is logically immutable once a scan completes.
func (r *Result) DeriveCounts() Counts {
	c := Counts{
		MainRecordsByKind:   make(map[string]int),
		ReconstructedByKind: make(map[string]int),
	}
	for _, rec := range r.MainRecords {
		c.MainRecordsTotal++
		c.MainRecordsByKind[rec.Signature]++
		if rec.IsBigEndian {
			c.MainRecordsBigEndian++
		} else {
			c.MainRecordsLittleEndian++
		}
	}
	c.ReconstructedTotal = len(r.NPCs) + len(r.Weapons) + len(r.Quests) +
		len(r.DialogTopics) + len(r.DialogueInfos) + len(r.Cells) +
		len(r.Worldspaces) + len(r.Globals) + len(r.Generic)
	c.ReconstructedByKind["NPC"] = len(r.NPCs)
	c.ReconstructedByKind["Weapon"] = len(r.Weapons)
	c.ReconstructedByKind["Quest"] = len(r.Quests)
	c.ReconstructedByKind["DialogTopic"] = len(r.DialogTopics)
	c.ReconstructedByKind["DialogueInfo"] = len(r.DialogueInfos)
	c.ReconstructedByKind["Cell"] = len(r.Cells)
	c.ReconstructedByKind["Worldspace"] = len(r.Worldspaces)
	c.ReconstructedByKind["Global"] = len(r.Globals)
	c.ReconstructedByKind["Generic"] = len(r.Generic)
	return c
}
