package detour_tile_cache

import (
	"testing"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/detour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testObstacleArea uint8 = 7

func flatLayer(t *testing.T, n int) *DtTileCacheLayer {
	t.Helper()
	layer, status := DtRasterizeLayer(&DtTileCacheParams{Cs: 1, Ch: 0.5, Width: n, Height: n, WalkableClimb: 1}, 0, 0,
		func(x, z float32) (float32, uint8) { return 0, DT_TILECACHE_WALKABLE_AREA })
	require.True(t, status.DtStatusSucceed())
	return layer
}

func countArea(layer *DtTileCacheLayer, area uint8) int {
	n := 0
	for _, a := range layer.Areas {
		if a == area {
			n++
		}
	}
	return n
}

func TestMarkBoxArea(t *testing.T) {
	layer := flatLayer(t, 10)
	layer.Areas[3+3*10] = DT_TILECACHE_NULL_AREA
	status := DtMarkBoxArea(layer, layer.Header.Bmin[:], 1, 0.5, []float32{2, 0, 2}, []float32{4, 1, 4}, testObstacleArea)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, 8, countArea(layer, testObstacleArea))
	assert.Equal(t, uint8(DT_TILECACHE_NULL_AREA), layer.Areas[3+3*10])

	// Entirely outside the layer.
	DtMarkBoxArea(layer, layer.Header.Bmin[:], 1, 0.5, []float32{20, 0, 20}, []float32{24, 1, 24}, 9)
	assert.Zero(t, countArea(layer, 9))
}

func TestMarkCylinderArea(t *testing.T) {
	layer := flatLayer(t, 10)
	DtMarkCylinderArea(layer, layer.Header.Bmin[:], 1, 0.5, []float32{5, 0, 5}, 1, 2, testObstacleArea)
	assert.Equal(t, 4, countArea(layer, testObstacleArea))
	assert.Equal(t, testObstacleArea, layer.Areas[4+4*10])

	// Floating above the surface.
	layer = flatLayer(t, 10)
	DtMarkCylinderArea(layer, layer.Header.Bmin[:], 1, 0.5, []float32{5, 5, 5}, 1, 2, testObstacleArea)
	assert.Zero(t, countArea(layer, testObstacleArea))
}

func TestMarkOrientedBoxArea(t *testing.T) {
	layer := flatLayer(t, 10)
	obb := NewDtObstacleOrientedBox(common.Vec3{5, 0, 5}, common.Vec3{1, 1, 1}, 0)
	assert.InDelta(t, 0, obb.RotAux[0], 1e-6)
	assert.InDelta(t, 0.5, obb.RotAux[1], 1e-6)
	DtMarkOrientedBoxArea(layer, layer.Header.Bmin[:], 1, 0.5, obb.Center[:], obb.HalfExtents[:], obb.RotAux[:], testObstacleArea)
	assert.Equal(t, 9, countArea(layer, testObstacleArea))
}

func TestObstacleBounds(t *testing.T) {
	ob := &DtTileCacheObstacle{Type: DT_OBSTACLE_CYLINDER, Cylinder: DtObstacleCylinder{Pos: [3]float32{1, 2, 3}, Radius: 0.5, Height: 2}}
	bmin, bmax := ob.Bounds()
	assert.Equal(t, [3]float32{0.5, 2, 2.5}, bmin)
	assert.Equal(t, [3]float32{1.5, 4, 3.5}, bmax)

	ob = &DtTileCacheObstacle{Type: DT_OBSTACLE_ORIENTED_BOX, OrientedBox: NewDtObstacleOrientedBox(common.Vec3{0, 0, 0}, common.Vec3{1, 1, 2}, 1)}
	bmin, bmax = ob.Bounds()
	assert.InDelta(t, -2.82, bmin[0], 1e-5)
	assert.InDelta(t, 2.82, bmax[2], 1e-5)
	assert.Equal(t, float32(-1), bmin[1])
}

func TestBuildPolyMeshAroundHole(t *testing.T) {
	layer := flatLayer(t, 3)
	layer.Areas[4] = DT_TILECACHE_NULL_AREA
	for i := range layer.Cons {
		layer.Cons[i] = 0
	}
	// Recompute connections around the hole.
	for z := 0; z < 3; z++ {
		for x := 0; x < 3; x++ {
			if layer.Areas[x+z*3] == DT_TILECACHE_NULL_AREA {
				continue
			}
			for dir := 0; dir < 4; dir++ {
				nx, nz := x+common.GetDirOffsetX(dir), z+common.GetDirOffsetY(dir)
				if nx < 0 || nz < 0 || nx >= 3 || nz >= 3 {
					layer.Cons[x+z*3] |= 1 << (4 + dir)
				} else if layer.Areas[nx+nz*3] != DT_TILECACHE_NULL_AREA {
					layer.Cons[x+z*3] |= 1 << dir
				}
			}
		}
	}

	mesh, status := DtBuildTileCachePolyMesh(NewDtTileCacheLinearAllocator(1024), layer, 2)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, 8, mesh.Npolys)
	assert.Equal(t, 16, mesh.Nverts)

	nvp := mesh.Nvp
	p0 := mesh.Polys[0 : nvp*2]
	assert.Equal(t, []uint16{0x8000, 3, 1, 0x8003}, p0[nvp:nvp+4])
	assert.Equal(t, uint16(DT_TILECACHE_NULL_IDX), p0[4], "quads leave the remaining vertex slots empty")
	// Cell (1,0) borders the hole on +z.
	p1 := mesh.Polys[nvp*2 : nvp*4]
	assert.Equal(t, uint16(DT_TILECACHE_NULL_IDX), p1[nvp+1])
	assert.Equal(t, uint8(DT_TILECACHE_WALKABLE_AREA), mesh.Areas[7])
}

func TestBuildPolyMeshHeightStep(t *testing.T) {
	layer, status := DtRasterizeLayer(&DtTileCacheParams{Cs: 1, Ch: 0.5, Width: 2, Height: 1, WalkableClimb: 1}, 0, 0,
		func(x, z float32) (float32, uint8) {
			if x > 1 {
				return 3, DT_TILECACHE_WALKABLE_AREA
			}
			return 0, DT_TILECACHE_WALKABLE_AREA
		})
	require.True(t, status.DtStatusSucceed())
	assert.Zero(t, layer.Cons[0]&dtLayerConMask, "the step is higher than the rasterizer climb")
	layer.Cons[0] |= 1 << 2
	layer.Cons[1] |= 1 << 0

	mesh, status := DtBuildTileCachePolyMesh(NewDtTileCacheLinearAllocator(256), layer, 2)
	require.True(t, status.DtStatusSucceed())
	require.Equal(t, 2, mesh.Npolys)
	// Shared corners sit at different heights.
	assert.Equal(t, 8, mesh.Nverts)
	assert.Equal(t, uint16(DT_TILECACHE_NULL_IDX), mesh.Polys[mesh.Nvp+2])

	// A generous climb joins them again.
	mesh, _ = DtBuildTileCachePolyMesh(NewDtTileCacheLinearAllocator(256), layer, 6)
	assert.Equal(t, uint16(1), mesh.Polys[mesh.Nvp+2])
}

func TestBuildPolyMeshOutOfMemory(t *testing.T) {
	layer := flatLayer(t, 10)
	_, status := DtBuildTileCachePolyMesh(NewDtTileCacheLinearAllocator(64), layer, 2)
	assert.Equal(t, detour.DT_FAILURE|detour.DT_OUT_OF_MEMORY, status)
}

func TestAreaFlagsMeshProcess(t *testing.T) {
	proc := NewAreaFlagsMeshProcess(map[uint8]uint16{testObstacleArea: DT_TILECACHE_POLYFLAGS_DISABLED}, DT_TILECACHE_POLYFLAGS_WALK)
	areas := []uint8{DT_TILECACHE_WALKABLE_AREA, testObstacleArea}
	flags := make([]uint16, 2)
	proc.Process(&detour.DtNavMeshCreateParams{}, areas, flags)
	assert.Equal(t, []uint16{DT_TILECACHE_POLYFLAGS_WALK, DT_TILECACHE_POLYFLAGS_DISABLED}, flags)

	var called bool
	var fn DtTileCacheMeshProcess = DtTileCacheMeshProcessFunc(func(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
		called = true
	})
	fn.Process(nil, nil, nil)
	assert.True(t, called)
}
