package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKnownRecordKind(t *testing.T) {
	assert.True(t, IsKnownRecordKind("NPC_"))
	assert.True(t, IsKnownRecordKind("TES4"))
	assert.False(t, IsKnownRecordKind("ZZZZ"))
}

func TestCanonicalSignature(t *testing.T) {
	var le [4]byte
	copy(le[:], "TES4")
	assert.Equal(t, "TES4", canonicalSignature(le, LittleEndian))

	var be [4]byte
	copy(be[:], "4SET")
	assert.Equal(t, "TES4", canonicalSignature(be, BigEndian))
}

func TestIsAlnumOrUnderscoreSignature(t *testing.T) {
	var ok4 [4]byte
	copy(ok4[:], "WEAP")
	assert.True(t, isAlnumOrUnderscoreSignature(ok4))

	var bad [4]byte
	copy(bad[:], "W\x00AP")
	assert.False(t, isAlnumOrUnderscoreSignature(bad))
}

func TestLandAndPlacedReferencesReconstructButHaveNoStandaloneEntityVariant(t *testing.T) {
	land := knownRecordKinds["LAND"]
	assert.True(t, land.Reconstructs)
	assert.Equal(t, entityNone, land.EntityVariant)

	refr := knownRecordKinds["REFR"]
	assert.True(t, refr.Reconstructs)
}

func TestGroupAndFileHeaderDoNotReconstruct(t *testing.T) {
	assert.False(t, knownRecordKinds["TES4"].Reconstructs)
	assert.False(t, knownRecordKinds["GRUP"].Reconstructs)
}
