package mesh

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/config"
	"github.com/gorustyt/tilenav/detour_tile_cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 19x9.6 floor with a 1 unit high quad at x 12..14 and a steep wall at x=16.
const floorObj = `# floor
v 0 0 0
v 19 0 0
v 19 0 9.6
v 0 0 9.6
f 1 2 3 4
v 12 1 2
v 14 1 2
v 14 1 4
v 12 1 4
f 5/1/1 6/1/1 7/1/1 8/1/1
v 16 0 5
v 16.5 3 5
v 16 0 7
f -3 -2 -1
`

func TestLoadObj(t *testing.T) {
	geom, err := ReadInputGeom(strings.NewReader(floorObj))
	require.NoError(t, err)
	assert.Equal(t, 5, geom.TriCount())
	assert.Equal(t, [3]float32{0, 0, 0}, geom.getMeshBoundsMin())
	assert.Equal(t, [3]float32{19, 3, 9.6}, geom.getMeshBoundsMax())
	assert.InDelta(t, 1, geom.m_mesh.getNormals()[1]*geom.m_mesh.getNormals()[1], 1e-6)

	_, err = ReadInputGeom(strings.NewReader("v 0 0 0\nf 1 2 3\n"))
	assert.ErrorContains(t, err, "line 2")
	_, err = ReadInputGeom(strings.NewReader("v 0 zero 0\n"))
	assert.Error(t, err)
	_, err = LoadInputGeom("missing.obj")
	assert.Error(t, err)
}

func TestChunkyTriMeshFindsEveryTriangle(t *testing.T) {
	var sb strings.Builder
	// A 10x10 grid of quads.
	for z := 0; z <= 10; z++ {
		for x := 0; x <= 10; x++ {
			fmt.Fprintf(&sb, "v %d 0 %d\n", x, z)
		}
	}
	for z := 0; z < 10; z++ {
		for x := 0; x < 10; x++ {
			a := z*11 + x + 1
			fmt.Fprintf(&sb, "f %d %d %d %d\n", a, a+1, a+12, a+11)
		}
	}
	m := newRcMeshLoaderObj()
	require.NoError(t, m.load(strings.NewReader(sb.String())))
	cm := rcCreateChunkyTriMesh(m.getVerts(), m.getTris(), 8)
	assert.LessOrEqual(t, cm.maxTrisPerChunk, 8)
	assert.Len(t, cm.tris, 200)

	seen := map[int]bool{}
	cm.chunksOverlappingRect([2]float32{-1, -1}, [2]float32{11, 11}, func(ids []int) {
		for _, id := range ids {
			seen[id] = true
		}
	})
	assert.Len(t, seen, 200)

	n := 0
	cm.chunksOverlappingRect([2]float32{4.5, 4.5}, [2]float32{4.5, 4.5}, func(ids []int) { n += len(ids) })
	assert.Greater(t, n, 0)
	assert.Less(t, n, 200)
}

func TestSamplerTopSurfaceSlopeAndVolumes(t *testing.T) {
	geom, err := ReadInputGeom(strings.NewReader(floorObj))
	require.NoError(t, err)
	require.NoError(t, geom.AddConvexVolume([]float32{1, 0, 1, 3, 0, 1, 3, 0, 3, 1, 0, 3}, -1, 1, 5))
	assert.ErrorIs(t, geom.AddConvexVolume([]float32{0, 0, 0, 1, 0, 0}, 0, 1, 5), ErrBadVolume)
	sample := geom.Sampler(45)

	y, area := sample(5, 5)
	assert.Equal(t, float32(0), y)
	assert.EqualValues(t, detour_tile_cache.DT_TILECACHE_WALKABLE_AREA, area)

	y, area = sample(13, 3)
	assert.InDelta(t, 1, y, 1e-5, "the raised quad is on top")
	assert.EqualValues(t, detour_tile_cache.DT_TILECACHE_WALKABLE_AREA, area)

	_, area = sample(16.1, 5.5)
	assert.EqualValues(t, detour_tile_cache.DT_TILECACHE_NULL_AREA, area, "the wall is too steep")

	_, area = sample(2, 2)
	assert.EqualValues(t, 5, area)

	_, area = sample(25, 5)
	assert.EqualValues(t, detour_tile_cache.DT_TILECACHE_NULL_AREA, area)
}

func TestSampleBuildFromGeom(t *testing.T) {
	geom, err := ReadInputGeom(strings.NewReader(floorObj))
	require.NoError(t, err)
	cfg := config.Default()
	tc := cfg.TileCacheParams()
	tw, th := geom.TileGrid(tc.Orig, float32(tc.Width)*tc.Cs, float32(tc.Height)*tc.Cs)
	assert.Equal(t, 2, tw)
	assert.Equal(t, 1, th)

	s := NewSampleTempObstacles(cfg)
	t.Cleanup(s.Close)
	require.NoError(t, s.HandleBuild(tw, th, geom.Sampler(45)))
	path, err := s.FindPath(common.Vec3{1, 0, 8}, common.Vec3{18, 0, 8}, halfExtents)
	require.NoError(t, err)
	assert.False(t, path.Partial)
}
