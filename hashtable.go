// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Runtime hash-table object shape (§4.5 step 4 / §9 Open Question: "reproduce
// bit-for-bit as documented; do not attempt to infer from other builds").
const (
	hashTableHeaderSize   = 16 // {vfptr, hashSize, bucketArray, count}
	hashTableItemSize     = 12 // {next, key, value}
	engineObjectSize      = 24
	formTypeByteOffset    = 4
	formIDByteOffset      = 12
	hashSizeMin           = 64
	hashSizeMax           = 262144
	candidateSampleBuckets = 50
	candidateMinValidKeys  = 3
	chainWalkSafetyCap     = 1000
	maxEditorIDStringLen   = 256
	dialogueTopicMinMatches = 5

	// displayNameHandleSize is sizeof({pointer:u32, length:u16}) without
	// alignment padding (§4.5 step 6).
	displayNameHandleSize = 6

	// dialogueLineHandleOffset is the fixed offset of the embedded
	// {pointer,length} string handle carrying dialogue line text, calibrated
	// the same way as the form-type display-name table (§4.5 step 7); unlike
	// that table this one offset is assumed stable across the form-type
	// values the post-detection pass identifies as dialogue.
	dialogueLineHandleOffset = 84
)

// HashTableOptions configures WalkHashTable (§4.5, §6).
type HashTableOptions struct {
	Source   ByteSource
	Resolver VirtualAddressResolver

	// DisplayNameOffsets is the §6 form-type -> display-name-handle-offset
	// table; see DefaultDisplayNameOffsets.
	DisplayNameOffsets map[byte]uint32

	Progress ProgressFunc
	Cancel   CancelFunc
	Logger   *zerolog.Logger
	Metrics  *ScanMetrics
}

func (o *HashTableOptions) logger() zerolog.Logger {
	if o != nil && o.Logger != nil {
		return *o.Logger
	}
	return zerolog.Nop()
}

// DefaultDisplayNameOffsets is the reference form-type -> offset table of §6,
// reproduced verbatim: "faction=44, hair=44, eyes=44, race=44, activator=68,
// armor=68, book=68, container=80, door=68, misc=68, weapon=68, ammo=68,
// npc=228, key=68, alch=68, projectile=68". Builds differ; §9 treats this as
// swappable external input, not a core constant — callers may supply their
// own via HashTableOptions.
func DefaultDisplayNameOffsets() map[byte]uint32 {
	return map[byte]uint32{
		formTypeFaction:   44,
		formTypeHair:      44,
		formTypeEyes:      44,
		formTypeRace:      44,
		formTypeActivator: 68,
		formTypeArmor:     68,
		formTypeBook:      68,
		formTypeContainer: 80,
		formTypeDoor:      68,
		formTypeMisc:      68,
		formTypeWeapon:    68,
		formTypeAmmo:      68,
		formTypeNPC:       228,
		formTypeKey:       68,
		formTypeAlch:      68,
		formTypeProjectile: 68,
	}
}

// Placeholder form-type byte values for DefaultDisplayNameOffsets' table
// keys; the engine's real enumeration is external input (§9), these merely
// give the reference table's named rows distinct, documented byte values.
const (
	formTypeFaction byte = iota + 1
	formTypeHair
	formTypeEyes
	formTypeRace
	formTypeActivator
	formTypeArmor
	formTypeBook
	formTypeContainer
	formTypeDoor
	formTypeMisc
	formTypeWeapon
	formTypeAmmo
	formTypeNPC
	formTypeKey
	formTypeAlch
	formTypeProjectile
)

// WalkHashTable implements C6 end to end: locate the game module, enumerate
// its PE sections, scan writable initialized-data sections for a validated
// hash-table candidate, walk its buckets/chains, and post-detect the
// dialogue form-type. Returns a fresh Result carrying only RuntimeEditorIDs
// and the EditorIDs / form->editor-id map entries this pass contributes. If
// Cancel fires during the bucket walk, the partial Result is returned with
// ErrCancelled. Callers that
// want a merged catalog combine it with a structured/dump-scan Result
// themselves (§5: each scan owns its own private result).
func WalkHashTable(opts *HashTableOptions) (*Result, error) {
	res := NewResult()
	log := opts.logger()

	module, ok := opts.Resolver.LocateModule()
	if !ok {
		return res, ErrModuleNotFound
	}

	r := memReader{src: opts.Source, resolver: opts.Resolver, cache: newResolveCache()}

	sections, err := parsePESections(r, module)
	if err != nil {
		return res, err
	}

	var hashTableVA uint64
	var found bool
	for _, sec := range sections {
		if !sec.Writable() {
			continue
		}
		if opts.Cancel != nil && opts.Cancel() {
			return res, ErrCancelled
		}
		va, ok := scanSectionForHashTable(r, module.BaseVA+uint64(sec.VirtualAddress), uint64(sec.VirtualSize))
		if ok {
			hashTableVA = va
			found = true
			break
		}
	}
	if !found {
		return res, ErrHashTableNotFound
	}

	hashSize, bucketArrayVA, ok := validateHashTableHeader(r, hashTableVA)
	if !ok {
		return res, ErrHashTableNotFound
	}

	entries := walkAllBuckets(r, bucketArrayVA, hashSize, opts.Cancel)
	cancelled := opts.Cancel != nil && opts.Cancel()
	log.Debug().Int("count", len(entries)).Msg("hash table chain walk complete")

	applyDisplayNames(r, entries, opts.DisplayNameOffsets)
	detectDialogueKind(r, entries)

	for _, e := range entries {
		if isValidEditorID(e.EditorID) {
			res.addEditorID(EditorIDHit{EditorID: e.EditorID, FormID: e.FormID, Source: "hashtable"})
		}
		res.RuntimeEditorIDs = append(res.RuntimeEditorIDs, e)
	}

	if opts.Metrics != nil {
		opts.Metrics.observeHashTableEntries(len(entries))
	}
	if cancelled {
		return res, ErrCancelled
	}
	return res, nil
}

// scanSectionForHashTable implements §4.5 step 3: scan 4-byte-aligned
// offsets of [va, va+size) for three consecutive non-zero big-endian
// pointers that each resolve into captured memory; the third is the
// hash-table target. A target that fails validateHashTableHeader is skipped
// and the scan continues with the next offset.
func scanSectionForHashTable(r memReader, va, size uint64) (uint64, bool) {
	for off := uint64(0); off+12 <= size; off += 4 {
		p1, ok1 := r.readUint32BE(va + off)
		p2, ok2 := r.readUint32BE(va + off + 4)
		p3, ok3 := r.readUint32BE(va + off + 8)
		if !ok1 || !ok2 || !ok3 || p1 == 0 || p2 == 0 || p3 == 0 {
			continue
		}
		if !r.resolves(uint64(p1)) || !r.resolves(uint64(p2)) || !r.resolves(uint64(p3)) {
			continue
		}
		if _, _, ok := validateHashTableHeader(r, uint64(p3)); !ok {
			continue
		}
		return uint64(p3), true
	}
	return 0, false
}

// validateHashTableHeader implements §4.5 step 4: read the 16-byte header,
// check hash-size bounds and pointer resolvability, then sample up to 50
// buckets and require at least 3 to yield a valid editor id.
func validateHashTableHeader(r memReader, va uint64) (hashSize uint32, bucketArrayVA uint64, ok bool) {
	vfptr, ok1 := r.readUint32BE(va)
	hashSize, ok2 := r.readUint32BE(va + 4)
	bucketArray, ok3 := r.readUint32BE(va + 8)
	_, ok4 := r.readUint32BE(va + 12) // entry count, unused beyond presence check
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, 0, false
	}
	if !r.resolves(uint64(vfptr)) {
		return 0, 0, false
	}
	if hashSize < hashSizeMin || hashSize > hashSizeMax {
		return 0, 0, false
	}
	if !r.resolves(uint64(bucketArray)) {
		return 0, 0, false
	}
	bucketArrayVA = uint64(bucketArray)

	sampleLimit := uint32(candidateSampleBuckets)
	if hashSize < sampleLimit {
		sampleLimit = hashSize
	}
	validKeys := 0
	for i := uint32(0); i < sampleLimit; i++ {
		head, ok := r.readUint32BE(bucketArrayVA + uint64(i)*4)
		if !ok || head == 0 {
			continue
		}
		key, ok := readItemKey(r, uint64(head))
		if ok && isValidEditorID(key) {
			validKeys++
		}
	}
	if validKeys < candidateMinValidKeys {
		return 0, 0, false
	}
	return hashSize, bucketArrayVA, true
}

// readItemKey reads the key string off a bucket-chain item at itemVA,
// per the {next, key, value} item layout (§4.5 step 4/5).
func readItemKey(r memReader, itemVA uint64) (string, bool) {
	keyPtr, ok := r.readUint32BE(itemVA + 4)
	if !ok || keyPtr == 0 {
		return "", false
	}
	return r.readCString(uint64(keyPtr), maxEditorIDStringLen)
}

// walkAllBuckets implements §4.5 step 5: for every bucket slot, follow the
// chain via `next` up to the safety cap, emitting one entry per item.
func walkAllBuckets(r memReader, bucketArrayVA uint64, hashSize uint32, cancel CancelFunc) []RuntimeEditorIDEntry {
	var entries []RuntimeEditorIDEntry
	for i := uint32(0); i < hashSize; i++ {
		if cancel != nil && cancel() {
			return entries
		}
		head, ok := r.readUint32BE(bucketArrayVA + uint64(i)*4)
		if !ok || head == 0 {
			continue
		}
		itemVA := uint64(head)
		for step := 0; step < chainWalkSafetyCap && itemVA != 0; step++ {
			next, okNext := r.readUint32BE(itemVA)
			keyPtr, okKey := r.readUint32BE(itemVA + 4)
			valuePtr, okVal := r.readUint32BE(itemVA + 8)
			if !okNext || !okKey || !okVal {
				break
			}
			if entry, ok := buildEntry(r, keyPtr, valuePtr); ok {
				entries = append(entries, entry)
			}
			itemVA = uint64(next)
		}
	}
	return entries
}

// buildEntry reads the key string and the 24-byte live object at valuePtr
// (§4.5 step 5: byte 4 = form-type, byte 12 = big-endian form id).
func buildEntry(r memReader, keyPtr, valuePtr uint32) (RuntimeEditorIDEntry, bool) {
	if keyPtr == 0 || valuePtr == 0 {
		return RuntimeEditorIDEntry{}, false
	}
	key, ok := r.readCString(uint64(keyPtr), maxEditorIDStringLen)
	if !ok {
		return RuntimeEditorIDEntry{}, false
	}
	obj, ok := r.readBytes(uint64(valuePtr), engineObjectSize)
	if !ok {
		return RuntimeEditorIDEntry{}, false
	}
	formType := obj[formTypeByteOffset]
	formID, ok := readUint32(obj, formIDByteOffset, BigEndian)
	if !ok {
		return RuntimeEditorIDEntry{}, false
	}
	valueOffset, _ := r.resolver.ResolveVA(uint64(valuePtr))
	keyOffset, _ := r.resolver.ResolveVA(uint64(keyPtr))
	return RuntimeEditorIDEntry{
		EditorID:    key,
		FormID:      formID,
		FormType:    formType,
		KeyOffset:   keyOffset,
		ValueOffset: valueOffset,
		ValueVA:     uint64(valuePtr),
	}, true
}

// applyDisplayNames implements §4.5 step 6: for entries whose form-type has
// a known display-name offset, dereference the {pointer,length} handle. The
// handle is read relative to the live object's virtual address (ValueVA),
// never its already-resolved file offset (ValueOffset) — resolving twice
// would feed a file offset back into the resolver as if it were a VA.
func applyDisplayNames(r memReader, entries []RuntimeEditorIDEntry, offsets map[byte]uint32) {
	if offsets == nil {
		return
	}
	for i := range entries {
		off, ok := offsets[entries[i].FormType]
		if !ok {
			continue
		}
		if name, ok := readDisplayNameHandle(r, entries[i].ValueVA, off); ok {
			entries[i].DisplayName = name
		}
	}
}

// readDisplayNameHandle dereferences a {pointer:u32, length:u16} string
// handle at objectVA+handleOffset.
func readDisplayNameHandle(r memReader, objectVA uint64, handleOffset uint32) (string, bool) {
	ptr, ok := r.readUint32BE(objectVA + uint64(handleOffset))
	if !ok || ptr == 0 {
		return "", false
	}
	length, ok := r.readUint16BE(objectVA + uint64(handleOffset) + 4)
	if !ok || length == 0 {
		return "", false
	}
	return r.readFixedString(uint64(ptr), uint32(length))
}

// detectDialogueKind implements §4.5 step 7: find the form-type value most
// frequently paired with a "Topic"-containing editor id; if it reaches the
// threshold, treat it as the dialogue kind and attach dialogue line text to
// every entry sharing that form type.
func detectDialogueKind(r memReader, entries []RuntimeEditorIDEntry) {
	counts := make(map[byte]int)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.EditorID), "topic") {
			counts[e.FormType]++
		}
	}
	var bestType byte
	bestCount := 0
	for t, c := range counts {
		if c > bestCount {
			bestType, bestCount = t, c
		}
	}
	if bestCount < dialogueTopicMinMatches {
		return
	}
	for i := range entries {
		if entries[i].FormType != bestType {
			continue
		}
		if line, ok := readDisplayNameHandle(r, entries[i].ValueVA, dialogueLineHandleOffset); ok {
			entries[i].DialogueLine = line
		}
	}
}

// memReader resolves virtual addresses inside the captured dump and reads
// raw bytes, little- or big-endian values, and embedded strings through the
// §6 VirtualAddressResolver collaborator. A small LRU caches VA->file-offset
// resolutions, since the chain walk re-resolves nearby addresses heavily.
type memReader struct {
	src      ByteSource
	resolver VirtualAddressResolver
	cache    *lru.Cache[uint64, resolveResult]
}

type resolveResult struct {
	offset uint64
	ok     bool
}

func newResolveCache() *lru.Cache[uint64, resolveResult] {
	c, err := lru.New[uint64, resolveResult](4096)
	if err != nil {
		return nil
	}
	return c
}

func (r memReader) resolve(va uint64) (uint64, bool) {
	if r.cache != nil {
		if v, ok := r.cache.Get(va); ok {
			return v.offset, v.ok
		}
	}
	offset, ok := r.resolver.ResolveVA(va)
	if r.cache != nil {
		r.cache.Add(va, resolveResult{offset: offset, ok: ok})
	}
	return offset, ok
}

func (r memReader) resolves(va uint64) bool {
	_, ok := r.resolve(va)
	return ok
}

func (r memReader) readBytes(va uint64, n uint32) ([]byte, bool) {
	offset, ok := r.resolve(va)
	if !ok {
		return nil, false
	}
	if offset > uint64(^uint32(0)) {
		return nil, false
	}
	buf := make([]byte, n)
	read, err := r.src.ReadInto(uint32(offset), buf)
	if err != nil || uint32(read) < n {
		return nil, false
	}
	return buf, true
}

func (r memReader) readUint32LE(va uint64) (uint32, bool) {
	b, ok := r.readBytes(va, 4)
	if !ok {
		return 0, false
	}
	return readUint32(b, 0, LittleEndian)
}

func (r memReader) readUint16LE(va uint64) (uint16, bool) {
	b, ok := r.readBytes(va, 2)
	if !ok {
		return 0, false
	}
	return readUint16(b, 0, LittleEndian)
}

func (r memReader) readUint32BE(va uint64) (uint32, bool) {
	b, ok := r.readBytes(va, 4)
	if !ok {
		return 0, false
	}
	return readUint32(b, 0, BigEndian)
}

func (r memReader) readUint16BE(va uint64) (uint16, bool) {
	b, ok := r.readBytes(va, 2)
	if !ok {
		return 0, false
	}
	return readUint16(b, 0, BigEndian)
}

// readCString reads a null-terminated ASCII string of at most maxLen bytes.
func (r memReader) readCString(va uint64, maxLen uint32) (string, bool) {
	b, ok := r.readBytes(va, maxLen)
	if !ok {
		return "", false
	}
	end := 0
	for end < len(b) && b[end] != 0 {
		end++
	}
	if end == 0 {
		return "", false
	}
	return string(b[:end]), true
}

// readFixedString reads exactly length bytes as a string (the §4.5 step 6/7
// {pointer,length} handle form, as opposed to readCString's null-terminated
// form).
func (r memReader) readFixedString(va uint64, length uint32) (string, bool) {
	if length == 0 || length > maxEditorIDStringLen {
		return "", false
	}
	b, ok := r.readBytes(va, length)
	if !ok {
		return "", false
	}
	return trimNonPrintable(string(b)), true
}
