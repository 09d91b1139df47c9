package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructWeapon(t *testing.T) {
	var subs []byte
	subs = appendSubrecord(subs, "EDID", []byte("IronSword\x00"))
	subs = appendSubrecord(subs, "FULL", []byte("Iron Sword\x00"))

	data := make([]byte, 15)
	writeU32(data, 0, 50, LittleEndian)  // value
	writeU32(data, 4, 100, LittleEndian) // health
	subs = appendSubrecord(subs, "DATA", data)

	res := NewResult()
	mrh := MainRecordHeader{Signature: "WEAP", FormID: 0x00012345}
	err := reconstructWeapon(res, mrh, 0, LittleEndian, subs)
	require.NoError(t, err)
	require.Len(t, res.Weapons, 1)

	w := res.Weapons[0]
	assert.Equal(t, "IronSword", w.EditorID)
	assert.Equal(t, "Iron Sword", w.Name)
	assert.Equal(t, uint32(50), w.Value)
	assert.Equal(t, uint32(100), w.Health)
}

func TestDecodeWeaponDNAMPartialBlockDoesNotPanic(t *testing.T) {
	short := []byte{1, 2, 3}
	d := decodeWeaponDNAM(short, LittleEndian)
	assert.Equal(t, uint32(0), d.ProjectileFormID, "fields past the short buffer stay zero-valued, never panicking")
}
