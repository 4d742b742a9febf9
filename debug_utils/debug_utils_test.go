package debug_utils

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_tile_cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPrefix(out, prefix string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func quadMesh() *detour.DtDebugNavMesh {
	a, b, c, d := common.Vec3{0, 0, 0}, common.Vec3{1, 0, 0}, common.Vec3{1, 0, 1}, common.Vec3{0, 0, 1}
	return &detour.DtDebugNavMesh{Triangles: []detour.DtDebugTriangle{
		{Points: [3]common.Vec3{a, b, c}, Ref: 1, Area: 0, Flags: 0x01},
		{Points: [3]common.Vec3{a, c, d}, Ref: 1, Area: 3, Flags: 0x10},
	}}
}

func TestDumpDebugNavMeshToObj(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DuDumpDebugNavMeshToObj(quadMesh(), &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Recast Navmesh\no NavMesh\n"))
	assert.Equal(t, 4, countPrefix(out, "v "), "shared corners are written once")
	assert.Equal(t, 2, countPrefix(out, "f "))
	assert.Contains(t, out, "f 1 2 3\n")
	assert.Contains(t, out, "f 1 3 4\n")

	assert.ErrorIs(t, DuDumpDebugNavMeshToObj(nil, &buf), ErrNilMesh)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestDumpReportsWriteErrors(t *testing.T) {
	err := DuDumpDebugNavMeshToObj(quadMesh(), failingWriter{})
	assert.ErrorContains(t, err, "disk full")
}

func TestObjDrawColorsAndFilters(t *testing.T) {
	var buf bytes.Buffer
	dd := NewDuObjDraw(&buf)
	dd.Colors = true
	DuDebugDrawNavMeshPolysWithFlags(dd, quadMesh(), 0x10, DuRGBA(255, 0, 0, 255))
	require.NoError(t, dd.Flush())

	out := buf.String()
	assert.Equal(t, 1, countPrefix(out, "f "))
	assert.Equal(t, 3, dd.VertexCount())
	assert.Contains(t, out, "v 0.000000 0.000000 0.000000 1.000 0.000 0.000\n")
}

func TestObjDrawDropsUnfinishedPrimitives(t *testing.T) {
	var buf bytes.Buffer
	dd := NewDuObjDraw(&buf)
	dd.Begin(DU_DRAW_TRIS)
	dd.Vertex1(0, 0, 0, Colorb{})
	dd.Vertex1(1, 0, 0, Colorb{})
	dd.End()
	dd.Begin(DU_DRAW_POINTS)
	dd.Vertex1(1, 0, 0, Colorb{})
	dd.End()
	require.NoError(t, dd.Flush())

	out := buf.String()
	assert.Equal(t, 0, countPrefix(out, "f "))
	assert.Equal(t, "p 2\n", out[strings.LastIndex(out, "p "):])
}

func TestDrawStraightPath(t *testing.T) {
	var buf bytes.Buffer
	dd := NewDuObjDraw(&buf)
	DuDebugDrawStraightPath(dd, []common.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 0, 2}}, DuRGBA(0, 0, 0, 255))
	require.NoError(t, dd.Flush())
	out := buf.String()
	assert.Equal(t, 3, countPrefix(out, "v "))
	assert.Contains(t, out, "l 1 2\n")
	assert.Contains(t, out, "l 2 3\n")
}

func TestDrawObstacles(t *testing.T) {
	comp, err := detour_tile_cache.NewDtZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(comp.Close)
	tc := detour_tile_cache.NewDtTileCache()
	status := tc.Init(&detour_tile_cache.DtTileCacheParams{
		Cs:             0.5,
		Ch:             0.2,
		Width:          16,
		Height:         16,
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.4,
		MaxTiles:       4,
		MaxObstacles:   4,
		ObstacleArea:   1,
	}, detour_tile_cache.NewDtTileCacheLinearAllocator(1024), comp, nil)
	require.True(t, status.DtStatusSucceed())

	_, status = tc.AddBoxObstacle(common.Vec3{1, 0, 1}, common.Vec3{2, 1, 2})
	require.True(t, status.DtStatusSucceed())
	_, status = tc.AddObstacle(common.Vec3{5, 0, 5}, 1, 2)
	require.True(t, status.DtStatusSucceed())
	_, status = tc.AddOrientedBoxObstacle(common.Vec3{3, 0, 3}, common.Vec3{1, 1, 0.5}, 0.5)
	require.True(t, status.DtStatusSucceed())

	var buf bytes.Buffer
	dd := NewDuObjDraw(&buf)
	DuDebugDrawObstacles(dd, tc)
	require.NoError(t, dd.Flush())

	out := buf.String()
	// 12 box edges, 16*2+16+4 cylinder segments, 4*3 prism edges.
	assert.Equal(t, 12+36+12, countPrefix(out, "l "))
	// 8 box corners, 16*2 cylinder rim points, 8 prism corners.
	assert.Equal(t, 8+32+8, dd.VertexCount())
}

func TestOrientedBoxWireMatchesRotation(t *testing.T) {
	obb := detour_tile_cache.NewDtObstacleOrientedBox(common.Vec3{0, 0, 0}, common.Vec3{2, 1, 1}, 0)
	rec := &recorder{}
	DuAppendOrientedBoxWire(rec, obb.Center, obb.HalfExtents, obb.RotAux, Colorb{})
	for _, v := range rec.verts {
		assert.InDelta(t, 2, abs32(v[0]), 1e-5)
		assert.InDelta(t, 1, abs32(v[2]), 1e-5)
	}
}

type recorder struct {
	verts [][3]float32
}

func (r *recorder) Begin(DuDebugDrawPrimitives, ...float32) {}
func (r *recorder) Vertex(pos []float32, c Colorb)         { r.Vertex1(pos[0], pos[1], pos[2], c) }
func (r *recorder) Vertex1(x, y, z float32, _ Colorb)      { r.verts = append(r.verts, [3]float32{x, y, z}) }
func (r *recorder) End()                                   {}
func (r *recorder) AreaToCol(area int) Colorb              { return AreaToCol(area) }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
