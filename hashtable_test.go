package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver is a single-region VirtualAddressResolver identity-mapping
// [base, base+size) onto file offsets [0, size) of the backing buffer.
type fakeResolver struct {
	base uint64
	size uint64
}

func (f *fakeResolver) Regions() []CapturedRegion {
	return []CapturedRegion{{VirtualAddress: f.base, Size: f.size, FileOffset: 0, Writable: true}}
}

func (f *fakeResolver) ResolveVA(va uint64) (uint64, bool) {
	if va < f.base || va >= f.base+f.size {
		return 0, false
	}
	return va - f.base, true
}

func (f *fakeResolver) LocateModule() (GameModule, bool) {
	return GameModule{BaseVA: f.base, Size: f.size, Name: "game.exe"}, true
}

func putU16LE(buf []byte, off uint64, v uint16) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
}

func putU32At(buf []byte, off uint64, v uint32, e Endian) {
	b := make([]byte, 4)
	writeU32(b, 0, v, e)
	copy(buf[off:off+4], b)
}

func putCString(buf []byte, off uint64, s string) {
	copy(buf[off:], s)
	buf[off+uint64(len(s))] = 0
}

func putU16BE(buf []byte, off uint64, v uint16) {
	buf[off] = byte(v >> 8)
	buf[off+1] = byte(v)
}

// buildFakeGameImage lays out a minimal DOS/PE header, one writable
// initialized-data section, and a valid runtime hash table with three
// entries, all inside a single identity-mapped buffer based at base.
func buildFakeGameImage(base uint64) []byte {
	buf := make([]byte, 0x2000)
	rel := func(va uint64) uint64 { return va - base }

	// DOS header: e_lfanew -> PE header RVA 0x80.
	putU32At(buf, rel(base+0x3C), 0x80, LittleEndian)

	// PE signature at RVA 0x80.
	copy(buf[rel(base+0x80):], "PE\x00\x00")

	// COFF header at RVA 0x84: NumberOfSections (u16 @+2), SizeOfOptionalHeader (u16 @+16).
	coffVA := base + 0x84
	putU16LE(buf, rel(coffVA+2), 1)
	putU16LE(buf, rel(coffVA+16), 0)

	// Section table at RVA 0x98 (coffVA + 20 + sizeOfOptionalHeader(0)).
	sectionVA := coffVA + 20
	copy(buf[rel(sectionVA):], ".data\x00\x00\x00")
	putU32At(buf, rel(sectionVA+8), 0x400, LittleEndian)  // VirtualSize
	putU32At(buf, rel(sectionVA+12), 0x200, LittleEndian) // VirtualAddress (RVA)
	putU32At(buf, rel(sectionVA+36), sectionCharacteristicsWritable|sectionCharacteristicsInitializedData, LittleEndian)

	// Triple-pointer pattern at the very start of the section (RVA 0x200 -> VA base+0x200).
	tripleVA := base + 0x200
	putU32At(buf, rel(tripleVA), uint32(base+0x10), BigEndian)
	putU32At(buf, rel(tripleVA+4), uint32(base+0x20), BigEndian)
	putU32At(buf, rel(tripleVA+8), uint32(base+0x300), BigEndian)

	// Hash table header at VA base+0x300.
	headerVA := base + 0x300
	putU32At(buf, rel(headerVA), uint32(base+0x10), BigEndian)    // vfptr
	putU32At(buf, rel(headerVA+4), 64, BigEndian)                 // hashSize
	putU32At(buf, rel(headerVA+8), uint32(base+0x400), BigEndian) // bucketArray
	putU32At(buf, rel(headerVA+12), 3, BigEndian)                 // count

	bucketVA := base + 0x400
	putU32At(buf, rel(bucketVA), uint32(base+0x500), BigEndian)
	putU32At(buf, rel(bucketVA+4), uint32(base+0x520), BigEndian)
	putU32At(buf, rel(bucketVA+8), uint32(base+0x540), BigEndian)

	items := []struct {
		itemVA, keyVA, valueVA uint64
		key                    string
		formID                 uint32
	}{
		{base + 0x500, base + 0x600, base + 0x700, "GoblinChief", 0x00011111},
		{base + 0x520, base + 0x620, base + 0x720, "OrcWarlord", 0x00022222},
		{base + 0x540, base + 0x640, base + 0x740, "TrollKing", 0x00033333},
	}
	for _, it := range items {
		putU32At(buf, rel(it.itemVA), 0, BigEndian)             // next
		putU32At(buf, rel(it.itemVA+4), uint32(it.keyVA), BigEndian)
		putU32At(buf, rel(it.itemVA+8), uint32(it.valueVA), BigEndian)
		putCString(buf, rel(it.keyVA), it.key)
		putU32At(buf, rel(it.valueVA+formTypeByteOffset), uint32(formTypeNPC)<<24, BigEndian) // only top byte matters
		putU32At(buf, rel(it.valueVA+formIDByteOffset), it.formID, BigEndian)
	}

	return buf
}

func TestWalkHashTableRecoversEditorIDs(t *testing.T) {
	const base = 0x10000
	buf := buildFakeGameImage(base)
	resolver := &fakeResolver{base: base, size: uint64(len(buf))}

	res, err := WalkHashTable(&HashTableOptions{
		Source:   NewMemoryByteSource(buf),
		Resolver: resolver,
	})
	require.NoError(t, err)
	require.Len(t, res.RuntimeEditorIDs, 3)

	byID := make(map[string]RuntimeEditorIDEntry)
	for _, e := range res.RuntimeEditorIDs {
		byID[e.EditorID] = e
	}
	entry, ok := byID["GoblinChief"]
	require.True(t, ok)
	assert.Equal(t, uint32(0x00011111), entry.FormID)
}

func TestWalkHashTableReturnsErrModuleNotFoundWhenResolverMisses(t *testing.T) {
	resolver := &fakeResolver{base: 0x10000, size: 0}
	_, err := WalkHashTable(&HashTableOptions{
		Source:   NewMemoryByteSource(nil),
		Resolver: &noModuleResolver{fakeResolver: resolver},
	})
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

// noModuleResolver reports no module located, exercising the early-return
// path of WalkHashTable.
type noModuleResolver struct {
	*fakeResolver
}

func (n *noModuleResolver) LocateModule() (GameModule, bool) { return GameModule{}, false }

// TestApplyDisplayNamesDereferencesTheRealVANotTheFileOffset guards against
// feeding an already-resolved file offset back into the resolver as if it
// were a virtual address. base is non-zero, so ResolveVA's va-base mapping
// is genuinely not the identity function: if applyDisplayNames ever
// dereferenced a stored file offset as a VA again, the handle read would
// land on the wrong bytes (or out of range) and DisplayName would stay empty.
func TestApplyDisplayNamesDereferencesTheRealVANotTheFileOffset(t *testing.T) {
	const base = 0x5000
	const handleOffset = 40
	buf := make([]byte, 0x400)
	resolver := &fakeResolver{base: base, size: uint64(len(buf))}

	valueVA := uint64(base + 0x100)
	stringVA := uint64(base + 0x200)
	putU32At(buf, valueVA-base+handleOffset, uint32(stringVA), BigEndian)
	putU16BE(buf, valueVA-base+handleOffset+4, 5)
	copy(buf[stringVA-base:], "Hello")

	r := memReader{src: NewMemoryByteSource(buf), resolver: resolver, cache: newResolveCache()}

	wrongFileOffset, ok := resolver.ResolveVA(valueVA)
	require.True(t, ok)
	require.NotEqual(t, valueVA, wrongFileOffset, "the test fixture must use a genuinely non-identity VA<->file-offset mapping")

	entries := []RuntimeEditorIDEntry{{FormType: 99, ValueVA: valueVA, ValueOffset: wrongFileOffset}}
	applyDisplayNames(r, entries, map[byte]uint32{99: handleOffset})
	assert.Equal(t, "Hello", entries[0].DisplayName)
}

// TestDetectDialogueKindPopulatesDialogueLineForTheWinningFormType checks the
// threshold edge of dialogue post-detection: with exactly
// dialogueTopicMinMatches "Topic" entries, the winning form type's own
// entries must actually receive a resolved dialogue line, while the losing
// type's entries stay empty.
func TestDetectDialogueKindPopulatesDialogueLineForTheWinningFormType(t *testing.T) {
	const base = 0x9000
	buf := make([]byte, 0x1000)
	resolver := &fakeResolver{base: base, size: uint64(len(buf))}

	valueVA := uint64(base + 0x100)
	lineVA := uint64(base + 0x300)
	putU32At(buf, valueVA-base+dialogueLineHandleOffset, uint32(lineVA), BigEndian)
	putU16BE(buf, valueVA-base+dialogueLineHandleOffset+4, 11)
	copy(buf[lineVA-base:], "Hello there")

	r := memReader{src: NewMemoryByteSource(buf), resolver: resolver, cache: newResolveCache()}

	var entries []RuntimeEditorIDEntry
	for i := 0; i < dialogueTopicMinMatches; i++ {
		entries = append(entries, RuntimeEditorIDEntry{EditorID: "GreetingTopic", FormType: 37, ValueVA: valueVA})
	}
	entries = append(entries, RuntimeEditorIDEntry{EditorID: "RareTopic", FormType: 40, ValueVA: valueVA})

	detectDialogueKind(r, entries)

	for _, e := range entries {
		if e.FormType == 37 {
			assert.Equal(t, "Hello there", e.DialogueLine)
		} else {
			assert.Empty(t, e.DialogueLine)
		}
	}
}
