package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPow2AndIlog2(t *testing.T) {
	assert.Equal(t, uint32(1), NextPow2(1))
	assert.Equal(t, uint32(64), NextPow2(33))
	assert.Equal(t, uint32(256), NextPow2(256))
	assert.Equal(t, uint32(0), Ilog2(1))
	assert.Equal(t, uint32(5), Ilog2(32))
	assert.Equal(t, uint32(10), Ilog2(1024))
}

func TestTriArea2DSign(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 0, 1}
	assert.Less(t, TriArea2D(a, b, c), float32(0))
	assert.Greater(t, TriArea2D(a, c, b), float32(0))
}

func TestOverlapBounds(t *testing.T) {
	assert.True(t, DtOverlapBounds([]float32{0, 0, 0}, []float32{1, 1, 1}, []float32{1, 1, 1}, []float32{2, 2, 2}))
	assert.False(t, DtOverlapBounds([]float32{0, 0, 0}, []float32{1, 1, 1}, []float32{1.1, 0, 0}, []float32{2, 2, 2}))
}

func TestDirOffsets(t *testing.T) {
	for dir := 0; dir < 4; dir++ {
		opp := (dir + 2) & 3
		assert.Equal(t, -GetDirOffsetX(dir), GetDirOffsetX(opp))
		assert.Equal(t, -GetDirOffsetY(dir), GetDirOffsetY(opp))
	}
}
