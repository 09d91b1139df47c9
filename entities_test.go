package esmscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeightmapDecodeRow0AccumulatesFromBaseHeight(t *testing.T) {
	hm := Heightmap{BaseHeight: 100}
	hm.Deltas[0][0] = 2 // +16
	hm.Deltas[0][1] = 3 // +24

	grid := hm.Decode()
	assert.Equal(t, float32(116), grid[0][0])
	assert.Equal(t, float32(140), grid[0][1])
}

func TestHeightmapDecodeSeedsNextRowFromPreviousRowsFirstColumn(t *testing.T) {
	hm := Heightmap{BaseHeight: 0}
	hm.Deltas[0][0] = 1  // row 0 col 0 = 8
	hm.Deltas[0][1] = 10 // row 0 col 1 = 8 + 80 = 88, irrelevant to row 1 seed
	hm.Deltas[1][0] = 1  // row 1 col 0 seeded from row 0's col 0 value (8), + 8 = 16

	grid := hm.Decode()
	assert.Equal(t, float32(8), grid[0][0])
	assert.Equal(t, float32(88), grid[0][1])
	assert.Equal(t, float32(16), grid[1][0], "row 1 must restart from row 0's own first-column value, not row 0's last column")
}

func TestHeightAtMatchesDecode(t *testing.T) {
	hm := Heightmap{BaseHeight: 50}
	hm.Deltas[2][2] = 4
	grid := hm.Decode()
	assert.Equal(t, grid[2][2], hm.HeightAt(2, 2))
}
