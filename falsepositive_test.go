package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFalsePositiveSignatureMatchesBothSpellings(t *testing.T) {
	var le [4]byte
	copy(le[:], "VGT_")
	assert.True(t, isFalsePositiveSignature(le))
	assert.True(t, isFalsePositiveSignature(reverseSignature(le)))

	var notIt [4]byte
	copy(notIt[:], "WEAP")
	assert.False(t, isFalsePositiveSignature(notIt))
}
