package detour_tile_cache

import (
	"errors"
	"math"
	"testing"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/detour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testHalfExtents = common.Vec3{0.5, 1, 0.5}

func testCacheParams() *DtTileCacheParams {
	return &DtTileCacheParams{
		Cs:                     0.5,
		Ch:                     0.2,
		Width:                  20,
		Height:                 20,
		WalkableHeight:         2,
		WalkableRadius:         0.5,
		WalkableClimb:          0.4,
		MaxSimplificationError: 1.3,
		MaxTiles:               16,
		MaxObstacles:           8,
		ObstacleArea:           testObstacleArea,
	}
}

// failingAlloc runs out of memory while fail is set.
type failingAlloc struct {
	*DtTileCacheLinearAllocator
	fail bool
}

func (a *failingAlloc) Alloc(size int) []byte {
	if a.fail {
		return nil
	}
	return a.DtTileCacheLinearAllocator.Alloc(size)
}

type cacheFixture struct {
	tc    *DtTileCache
	nav   *detour.DtNavMesh
	comp  *DtZstdCompressor
	alloc *failingAlloc
}

func newCacheFixture(t *testing.T, params *DtTileCacheParams, proc DtTileCacheMeshProcess) *cacheFixture {
	t.Helper()
	f := &cacheFixture{
		tc:    NewDtTileCache(),
		comp:  newTestCompressor(t),
		alloc: &failingAlloc{DtTileCacheLinearAllocator: NewDtTileCacheLinearAllocator(32 * 1024)},
	}
	require.True(t, f.tc.Init(params, f.alloc, f.comp, proc).DtStatusSucceed())

	var status detour.DtStatus
	f.nav, status = detour.NewDtNavMeshWithParams(&detour.NavMeshParams{
		Orig:       params.Orig,
		TileWidth:  float32(params.Width) * params.Cs,
		TileHeight: float32(params.Height) * params.Cs,
		MaxTiles:   int32(params.MaxTiles),
		MaxPolys:   512,
	})
	require.True(t, status.DtStatusSucceed(), status.String())
	return f
}

func (f *cacheFixture) layerData(t *testing.T, tx, ty int32) []byte {
	t.Helper()
	layer, status := DtRasterizeLayer(f.tc.GetParams(), tx, ty, func(x, z float32) (float32, uint8) {
		return 0, DT_TILECACHE_WALKABLE_AREA
	})
	require.True(t, status.DtStatusSucceed())
	data, status := DtBuildTileCacheLayer(f.comp, layer.Header, layer.Heights, layer.Areas, layer.Cons)
	require.True(t, status.DtStatusSucceed())
	return data
}

func (f *cacheFixture) addTile(t *testing.T, tx, ty int32) DtCompressedTileRef {
	t.Helper()
	ref, status := f.tc.AddTile(f.layerData(t, tx, ty), DT_COMPRESSEDTILE_FREE_DATA)
	require.True(t, status.DtStatusSucceed(), status.String())
	return ref
}

func (f *cacheFixture) drain(t *testing.T) {
	t.Helper()
	upToDate, status := f.tc.UpdateN(f.nav, math.MaxInt)
	require.True(t, status.DtStatusSucceed(), status.String())
	require.True(t, upToDate)
}

func (f *cacheFixture) tileBytes(t *testing.T, tx, ty int32) []byte {
	t.Helper()
	tile := f.nav.GetTileAt(tx, ty, 0)
	require.NotNil(t, tile)
	return tile.Data.ToBin()
}

func (f *cacheFixture) query(t *testing.T) *detour.DtNavMeshQuery {
	t.Helper()
	q, status := detour.NewDtNavMeshQuery(f.nav, 2048)
	require.True(t, status.DtStatusSucceed())
	return q
}

func avoidObstacles() *detour.DtQueryFilter {
	filter := detour.NewDtQueryFilter()
	filter.SetExcludeFlags(DT_TILECACHE_POLYFLAGS_DISABLED)
	return filter
}

func TestTileCacheInit(t *testing.T) {
	comp := newTestCompressor(t)
	alloc := NewDtTileCacheLinearAllocator(1024)

	tc := NewDtTileCache()
	assert.True(t, tc.Init(testCacheParams(), alloc, nil, nil).DtStatusFailed())

	bad := testCacheParams()
	bad.Width = 300
	assert.True(t, tc.Init(bad, alloc, comp, nil).DtStatusFailed())

	bad = testCacheParams()
	bad.MaxObstacles = 0
	assert.True(t, tc.Init(bad, alloc, comp, nil).DtStatusFailed())

	require.True(t, tc.Init(testCacheParams(), alloc, comp, nil).DtStatusSucceed())
	assert.NotNil(t, tc.GetMeshProcess())
	assert.True(t, tc.Init(testCacheParams(), alloc, comp, nil).DtStatusFailed(), "init is one-shot")

	_, status := NewDtTileCache().AddObstacle(common.Vec3{}, 1, 1)
	assert.True(t, status.DtStatusFailed())
}

func TestTileCacheAddRemoveTile(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	data := f.layerData(t, 1, 2)

	ref, status := f.tc.AddTile(data, 0)
	require.True(t, status.DtStatusSucceed())
	tile := f.tc.GetTileByRef(ref)
	require.NotNil(t, tile)
	assert.EqualValues(t, 1, tile.Header.Tx)
	assert.Equal(t, tile, f.tc.GetTileAt(1, 2, 0))
	assert.Equal(t, []DtCompressedTileRef{ref}, f.tc.GetTilesAt(1, 2))
	assert.Equal(t, []DtCompressedTileRef{ref}, f.tc.PendingTiles())

	_, status = f.tc.AddTile(data, 0)
	assert.True(t, errors.Is(status.Err(), detour.ErrAlreadyOccupied))

	removed, status := f.tc.RemoveTile(ref)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, data, removed)
	assert.Nil(t, f.tc.GetTileByRef(ref))
	assert.Empty(t, f.tc.PendingTiles())

	_, status = f.tc.RemoveTile(ref)
	assert.Equal(t, detour.DT_FAILURE|detour.DT_INVALID_PARAM, status)

	// Reloading under the old reference.
	again, status := f.tc.AddTileWithRef(data, DT_COMPRESSEDTILE_FREE_DATA, ref)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, ref, again)
	removed, _ = f.tc.RemoveTile(ref)
	assert.Nil(t, removed, "the cache owned the data")

	fresh, status := f.tc.AddTile(data, 0)
	require.True(t, status.DtStatusSucceed())
	assert.NotEqual(t, ref, fresh)
	_, status = f.tc.AddTileWithRef(f.layerData(t, 3, 3), 0, fresh)
	assert.True(t, errors.Is(status.Err(), detour.ErrOutOfMemory))
}

func TestTileCacheRejectsForeignLayer(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	params := *testCacheParams()
	params.Width, params.Height = 10, 10
	layer, _ := DtRasterizeLayer(&params, 0, 0, func(x, z float32) (float32, uint8) { return 0, 1 })
	data, _ := DtBuildTileCacheLayer(f.comp, layer.Header, layer.Heights, layer.Areas, layer.Cons)
	_, status := f.tc.AddTile(data, 0)
	assert.Equal(t, detour.DT_FAILURE|detour.DT_INVALID_PARAM, status)

	data[0] = 0
	_, status = f.tc.AddTile(data, 0)
	assert.True(t, errors.Is(status.Err(), detour.ErrWrongMagic))
}

func TestTileCacheObstacleDetour(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	f.addTile(t, 0, 0)
	f.drain(t)
	require.NotNil(t, f.nav.GetTileAt(0, 0, 0))
	clean := f.tileBytes(t, 0, 0)

	start, end := common.Vec3{1, 0, 5.2}, common.Vec3{9, 0, 5.2}
	path, status := f.query(t).ComputePath(start, end, testHalfExtents, avoidObstacles())
	require.True(t, status.DtStatusSucceed())
	assert.Len(t, path.Points, 2)

	ref, status := f.tc.AddObstacle(common.Vec3{5, 0, 5}, 1, 2)
	require.True(t, status.DtStatusSucceed())
	assert.NotZero(t, ref)
	assert.Len(t, f.tc.PendingTiles(), 1)
	upToDate, status := f.tc.Update(f.nav)
	require.True(t, status.DtStatusSucceed())
	assert.True(t, upToDate)

	q := f.query(t)
	polyRef, _, status := q.GetClosestPoint(common.Vec3{5, 0, 5.2}, testHalfExtents, detour.NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed())
	_, poly, status := f.nav.GetTileAndPolyByRef(polyRef)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, testObstacleArea, poly.GetArea())
	assert.Equal(t, uint16(DT_TILECACHE_POLYFLAGS_DISABLED), poly.Flags)

	path, status = q.ComputePath(start, end, testHalfExtents, avoidObstacles())
	require.True(t, status.DtStatusSucceed())
	require.False(t, path.Partial)
	assert.Greater(t, len(path.Points), 2)
	var around bool
	for _, p := range path.Points {
		if math.Abs(float64(p[2])-5) >= 0.9 {
			around = true
		}
	}
	assert.True(t, around, "path should go around the obstacle: %v", path.Points)
	assert.NotEqual(t, clean, f.tileBytes(t, 0, 0))

	// Removing the obstacle restores the original tile exactly.
	require.True(t, f.tc.RemoveObstacle(ref).DtStatusSucceed())
	assert.Nil(t, f.tc.GetObstacleByRef(ref))
	f.drain(t)
	assert.Equal(t, clean, f.tileBytes(t, 0, 0))

	assert.Equal(t, detour.DT_FAILURE|detour.DT_INVALID_PARAM, f.tc.RemoveObstacle(ref))
}

func TestTileCacheObstacleOutsideTiles(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	f.addTile(t, 0, 0)
	f.drain(t)

	ref, status := f.tc.AddBoxObstacle(common.Vec3{50, 0, 50}, common.Vec3{51, 1, 51})
	require.True(t, status.DtStatusSucceed())
	assert.NotNil(t, f.tc.GetObstacleByRef(ref))
	assert.Empty(t, f.tc.PendingTiles())
	upToDate, status := f.tc.Update(f.nav)
	assert.True(t, upToDate)
	assert.True(t, status.DtStatusSucceed())

	_, status = f.tc.AddBoxObstacle(common.Vec3{1, 1, 1}, common.Vec3{0, 0, 0})
	assert.True(t, status.DtStatusFailed())
}

func TestTileCacheObstacleSpansTiles(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	a, b := f.addTile(t, 0, 0), f.addTile(t, 1, 0)
	far := f.addTile(t, 3, 3)
	f.drain(t)

	_, status := f.tc.AddOrientedBoxObstacle(common.Vec3{10, 0, 5}, common.Vec3{1, 1, 0.5}, math.Pi/4)
	require.True(t, status.DtStatusSucceed())
	assert.ElementsMatch(t, []DtCompressedTileRef{a, b}, f.tc.PendingTiles())
	assert.NotContains(t, f.tc.QueryTiles([]float32{9, 0, 4}, []float32{11, 1, 6}), far)
	f.drain(t)
}

func TestTileCacheObstacleCapacity(t *testing.T) {
	params := testCacheParams()
	params.MaxObstacles = 2
	f := newCacheFixture(t, params, nil)

	first, _ := f.tc.AddObstacle(common.Vec3{1, 0, 1}, 0.5, 1)
	_, status := f.tc.AddObstacle(common.Vec3{2, 0, 2}, 0.5, 1)
	require.True(t, status.DtStatusSucceed())
	_, status = f.tc.AddObstacle(common.Vec3{3, 0, 3}, 0.5, 1)
	assert.True(t, errors.Is(status.Err(), detour.ErrOutOfMemory))
	assert.Len(t, f.tc.Obstacles(), 2)

	require.True(t, f.tc.RemoveObstacle(first).DtStatusSucceed())
	reused, status := f.tc.AddObstacle(common.Vec3{3, 0, 3}, 0.5, 1)
	require.True(t, status.DtStatusSucceed())
	assert.NotEqual(t, first, reused, "a reused slot gets a new salt")
	assert.Nil(t, f.tc.GetObstacleByRef(first))
}

func TestTileCacheRestoreObstacle(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	ref, _ := f.tc.AddObstacle(common.Vec3{5, 0, 5}, 1, 2)
	shape := *f.tc.GetObstacleByRef(ref)

	g := newCacheFixture(t, testCacheParams(), nil)
	require.True(t, g.tc.RestoreObstacle(&shape, ref).DtStatusSucceed())
	restored := g.tc.GetObstacleByRef(ref)
	require.NotNil(t, restored)
	assert.Equal(t, shape.Cylinder, restored.Cylinder)
	assert.Equal(t, []DtObstacleRef{ref}, g.tc.Obstacles())

	assert.True(t, errors.Is(g.tc.RestoreObstacle(&shape, ref).Err(), detour.ErrAlreadyOccupied))

	// The next fresh obstacle does not collide with the restored slot.
	next, status := g.tc.AddObstacle(common.Vec3{1, 0, 1}, 1, 1)
	require.True(t, status.DtStatusSucceed())
	assert.NotEqual(t, ref, next)
}

func TestTileCacheUpdateOrder(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	refs := []DtCompressedTileRef{f.addTile(t, 2, 0), f.addTile(t, 0, 0), f.addTile(t, 1, 0)}
	assert.Equal(t, refs, f.tc.PendingTiles())

	upToDate, status := f.tc.Update(f.nav)
	require.True(t, status.DtStatusSucceed())
	assert.False(t, upToDate)
	assert.NotNil(t, f.nav.GetTileAt(2, 0, 0))
	assert.Nil(t, f.nav.GetTileAt(0, 0, 0))
	assert.Equal(t, refs[1:], f.tc.PendingTiles())

	// Re-dirtying a queued tile keeps its position.
	_, status = f.tc.AddObstacle(common.Vec3{2, 0, 2}, 0.5, 1)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, refs[1:], f.tc.PendingTiles())

	upToDate, status = f.tc.UpdateN(f.nav, 2)
	require.True(t, status.DtStatusSucceed())
	assert.True(t, upToDate)
	assert.NotNil(t, f.nav.GetTileAt(1, 0, 0))

	upToDate, _ = f.tc.UpdateN(f.nav, 0)
	assert.True(t, upToDate)
}

func TestTileCacheRebuildsPerUpdate(t *testing.T) {
	params := testCacheParams()
	params.RebuildsPerUpdate = 2
	f := newCacheFixture(t, params, nil)
	for i := int32(0); i < 3; i++ {
		f.addTile(t, i, 0)
	}
	upToDate, _ := f.tc.Update(f.nav)
	assert.False(t, upToDate)
	assert.Len(t, f.tc.PendingTiles(), 1)
	upToDate, _ = f.tc.Update(f.nav)
	assert.True(t, upToDate)
}

func TestTileCacheFailedRebuildIsRetried(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	ref := f.addTile(t, 0, 0)

	f.alloc.fail = true
	upToDate, status := f.tc.Update(f.nav)
	assert.False(t, upToDate)
	assert.True(t, errors.Is(status.Err(), detour.ErrOutOfMemory))
	assert.Equal(t, []DtCompressedTileRef{ref}, f.tc.PendingTiles())
	assert.Nil(t, f.nav.GetTileAt(0, 0, 0))

	f.alloc.fail = false
	f.drain(t)
	assert.NotNil(t, f.nav.GetTileAt(0, 0, 0))
}

// pinnedNavMesh refuses to remove tiles while pinned is set.
type pinnedNavMesh struct {
	*detour.DtNavMesh
	pinned bool
}

func (m *pinnedNavMesh) RemoveTile(ref detour.DtTileRef) ([]byte, detour.DtStatus) {
	if m.pinned {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return m.DtNavMesh.RemoveTile(ref)
}

func TestTileCacheRebuildStopsWhenOldTileStays(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log.Set(zap.New(core))
	t.Cleanup(func() { log.Set(nil) })

	f := newCacheFixture(t, testCacheParams(), nil)
	ref := f.addTile(t, 0, 0)
	f.drain(t)
	before := f.tileBytes(t, 0, 0)

	_, status := f.tc.AddObstacle(common.Vec3{2, 0, 2}, 1, 2)
	require.True(t, status.DtStatusSucceed())

	nav := &pinnedNavMesh{DtNavMesh: f.nav, pinned: true}
	upToDate, status := f.tc.Update(nav)
	assert.False(t, upToDate)
	assert.Equal(t, detour.DT_FAILURE|detour.DT_INVALID_PARAM, status)
	assert.Equal(t, []DtCompressedTileRef{ref}, f.tc.PendingTiles())
	assert.Equal(t, before, f.tileBytes(t, 0, 0))
	require.Equal(t, 1, logs.FilterMessage("tile cache: remove navmesh tile failed").Len())

	nav.pinned = false
	upToDate, status = f.tc.UpdateN(nav, math.MaxInt)
	require.True(t, status.DtStatusSucceed(), status.String())
	assert.True(t, upToDate)
	assert.NotEqual(t, before, f.tileBytes(t, 0, 0))
}

func TestTileCacheNullObstacleAreaCutsTile(t *testing.T) {
	params := testCacheParams()
	params.ObstacleArea = DT_TILECACHE_NULL_AREA
	f := newCacheFixture(t, params, nil)
	f.addTile(t, 0, 0)
	f.drain(t)
	require.NotNil(t, f.nav.GetTileAt(0, 0, 0))

	_, status := f.tc.AddBoxObstacle(common.Vec3{-1, -1, -1}, common.Vec3{11, 2, 11})
	require.True(t, status.DtStatusSucceed())
	f.drain(t)
	assert.Nil(t, f.nav.GetTileAt(0, 0, 0), "a tile without polygons is removed")
}

func TestTileCacheCustomMeshProcess(t *testing.T) {
	proc := DtTileCacheMeshProcessFunc(func(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
		for i := range polyFlags {
			polyFlags[i] = 0x04
		}
	})
	f := newCacheFixture(t, testCacheParams(), proc)
	f.addTile(t, 0, 0)
	f.drain(t)

	tile := f.nav.GetTileAt(0, 0, 0)
	require.NotNil(t, tile)
	require.Len(t, tile.Polys, 400)
	for i := range tile.Polys {
		assert.Equal(t, uint16(0x04), tile.Polys[i].Flags)
	}
}

func TestTileCacheRestorePending(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	a, b := f.addTile(t, 0, 0), f.addTile(t, 1, 0)
	require.True(t, f.tc.RestorePending([]DtCompressedTileRef{b}).DtStatusSucceed())
	assert.Equal(t, []DtCompressedTileRef{b}, f.tc.PendingTiles())

	removed, _ := f.tc.RemoveTile(a)
	assert.Nil(t, removed)
	assert.True(t, f.tc.RestorePending([]DtCompressedTileRef{a}).DtStatusFailed())
	assert.Equal(t, []DtCompressedTileRef{b}, f.tc.PendingTiles())
}

func TestTileCacheBuildNavMeshTilesAt(t *testing.T) {
	f := newCacheFixture(t, testCacheParams(), nil)
	f.addTile(t, 4, 4)
	require.True(t, f.tc.BuildNavMeshTilesAt(4, 4, f.nav).DtStatusSucceed())
	assert.NotNil(t, f.nav.GetTileAt(4, 4, 0))

	bmin, bmax := f.tc.CalcTightTileBounds(f.tc.GetTileAt(4, 4, 0).Header)
	assert.Equal(t, [3]float32{40, 0, 40}, bmin)
	assert.Equal(t, float32(50), bmax[0])
	assert.True(t, f.tc.BuildNavMeshTile(0, f.nav).DtStatusFailed())
}
