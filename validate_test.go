package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSentinelFormID(t *testing.T) {
	assert.True(t, isSentinelFormID(0x00000000))
	assert.True(t, isSentinelFormID(0xFFFFFFFF))
	assert.False(t, isSentinelFormID(0x00123456))
}

func TestIsASCIICollisionFormID(t *testing.T) {
	var id uint32
	for i, c := range []byte("TEST") {
		id |= uint32(c) << (8 * i)
	}
	assert.True(t, isASCIICollisionFormID(id))
	assert.False(t, isASCIICollisionFormID(0x01020304))
}

func TestIsPlausibleFormIDRef(t *testing.T) {
	assert.False(t, isPlausibleFormIDRef(0))
	assert.False(t, isPlausibleFormIDRef(0xFFFFFFFF))
	assert.True(t, isPlausibleFormIDRef(0x00012345))
}

func TestIsDumpScanFormIDSubrecordValid(t *testing.T) {
	assert.True(t, isDumpScanFormIDSubrecordValid(0x01001234))
	assert.False(t, isDumpScanFormIDSubrecordValid(0x10001234), "plugin index above 0x0F is rejected")
	assert.False(t, isDumpScanFormIDSubrecordValid(0))
}

func TestIsSuspiciousMainRecordFormID(t *testing.T) {
	assert.True(t, isSuspiciousMainRecordFormID(0))
	assert.True(t, isSuspiciousMainRecordFormID(0xFFFFFFFF))
	assert.False(t, isSuspiciousMainRecordFormID(0x00012345))
}

func TestIsValidEditorID(t *testing.T) {
	assert.True(t, isValidEditorID("PlayerRef"))
	assert.False(t, isValidEditorID("1StartsWithDigit"))
	assert.False(t, isValidEditorID("a"), "too short")
	assert.False(t, isValidEditorID("has space"))
	assert.False(t, isValidEditorID("ababababab"), "dominated by a repeated 2-char substring")
}

func TestHasRepeatedSubstring(t *testing.T) {
	assert.True(t, hasRepeatedSubstring("abcabcabc"))
	assert.False(t, hasRepeatedSubstring("GoblinWarlord"))
}

func TestIsDumpScanActorBaseStatsValid(t *testing.T) {
	good := ActorBaseStats{Fatigue: 100, Level: 10, SpeedMult: 100, Karma: 0}
	assert.True(t, isDumpScanActorBaseStatsValid(good))

	badFatigue := good
	badFatigue.Fatigue = 5000
	assert.False(t, isDumpScanActorBaseStatsValid(badFatigue))

	badLevel := good
	badLevel.Level = -200
	assert.False(t, isDumpScanActorBaseStatsValid(badLevel))

	badKarma := good
	badKarma.Karma = 50
	assert.False(t, isDumpScanActorBaseStatsValid(badKarma))
}

func TestIsExcludedRange(t *testing.T) {
	ranges := []ByteRange{{Start: 100, End: 200}}
	assert.True(t, isExcludedRange(150, ranges))
	assert.False(t, isExcludedRange(200, ranges), "End is exclusive")
	assert.False(t, isExcludedRange(50, ranges))
}
