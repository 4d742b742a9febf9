package detour

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gorustyt/tilenav/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHalfExtents = []float32{0.5, 1, 0.5}

func newQuery(t *testing.T, nav *DtNavMesh, maxNodes int32) *DtNavMeshQuery {
	t.Helper()
	q, status := NewDtNavMeshQuery(nav, maxNodes)
	require.True(t, status.DtStatusSucceed(), status.String())
	return q
}

func nearest(t *testing.T, q *DtNavMeshQuery, pos []float32) DtPolyRef {
	t.Helper()
	ref, _, _, status := q.FindNearestPoly(pos, testHalfExtents, NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed(), status.String())
	require.NotZero(t, ref)
	return ref
}

func findStraight(t *testing.T, q *DtNavMeshQuery, filter *DtQueryFilter, start, end []float32) ([]DtStraightPathVertex, DtStatus) {
	t.Helper()
	startRef, endRef := nearest(t, q, start), nearest(t, q, end)
	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	require.True(t, status.DtStatusSucceed(), status.String())
	require.NotEmpty(t, path)
	assert.Equal(t, startRef, path[0])
	verts, sstatus := q.FindStraightPath(start, end, path, 256, 0)
	require.True(t, sstatus.DtStatusSucceed(), sstatus.String())
	return verts, status
}

func wallWithGap(x, z int) bool { return x == 5 && z != 9 }

func TestNewQueryRejectsNodeCount(t *testing.T) {
	nav := newGridNavMesh(t, flatTile(0, 0))
	_, status := NewDtNavMeshQuery(nav, 0)
	assert.True(t, status.DtStatusDetail(DT_INVALID_PARAM))
	_, status = NewDtNavMeshQuery(nav, 0xffff)
	assert.True(t, status.DtStatusDetail(DT_INVALID_PARAM))
}

func TestFindNearestPoly(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	ref, pt, over, status := q.FindNearestPoly([]float32{3.5, 0.4, 4.5}, testHalfExtents, NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed())
	require.NotZero(t, ref)
	assert.True(t, over)
	assert.InDelta(t, 0, pt[1], 1e-4)

	ref, _, _, status = q.FindNearestPoly([]float32{50, 0, 50}, testHalfExtents, NewDtQueryFilter())
	assert.True(t, status.DtStatusSucceed())
	assert.Zero(t, ref)
}

func TestQueryPolygonsBufferTooSmall(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	refs, status := q.QueryPolygons([]float32{5, 0, 5}, []float32{2, 1, 2}, NewDtQueryFilter(), 256)
	require.True(t, status.DtStatusSucceed())
	assert.GreaterOrEqual(t, len(refs), 16)

	refs, status = q.QueryPolygons([]float32{5, 0, 5}, []float32{2, 1, 2}, NewDtQueryFilter(), 4)
	assert.True(t, status.DtStatusDetail(DT_BUFFER_TOO_SMALL))
	assert.Len(t, refs, 4)
}

func TestFindPathOpenField(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	verts, status := findStraight(t, q, NewDtQueryFilter(), []float32{0.5, 0, 4.5}, []float32{9.5, 0, 4.5})
	assert.False(t, status.DtStatusDetail(DT_PARTIAL_RESULT))
	require.Len(t, verts, 2)
	assert.Equal(t, uint8(DT_STRAIGHTPATH_START), verts[0].Flags)
	assert.Equal(t, uint8(DT_STRAIGHTPATH_END), verts[1].Flags)
	assert.Zero(t, verts[1].Ref)
	assert.InDelta(t, 9.5, verts[1].Pos[0], 1e-4)
	assert.InDelta(t, 4.5, verts[1].Pos[2], 1e-4)
}

func TestFindPathDiagonalCorridor(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	verts, status := findStraight(t, q, NewDtQueryFilter(), []float32{0.5, 0, 0.5}, []float32{9.5, 0, 6.5})
	assert.False(t, status.DtStatusDetail(DT_PARTIAL_RESULT))
	require.GreaterOrEqual(t, len(verts), 2)
	assert.Equal(t, uint8(DT_STRAIGHTPATH_START), verts[0].Flags)
	last := verts[len(verts)-1]
	assert.Equal(t, uint8(DT_STRAIGHTPATH_END), last.Flags)
	assert.Zero(t, last.Ref)
	assert.InDelta(t, 9.5, last.Pos[0], 1e-4)
	assert.InDelta(t, 6.5, last.Pos[2], 1e-4)
	for _, v := range verts[1 : len(verts)-1] {
		assert.Zero(t, v.Flags)
		assert.NotZero(t, v.Ref)
	}
}

func TestFindPathSameStartAndEnd(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	ref := nearest(t, q, []float32{1.5, 0, 1.5})
	path, status := q.FindPath(ref, ref, []float32{1.2, 0, 1.2}, []float32{1.8, 0, 1.8}, NewDtQueryFilter(), 8)
	assert.Equal(t, DT_SUCCESS, status)
	assert.Equal(t, []DtPolyRef{ref}, path)

	_, status = q.FindPath(0, ref, []float32{1.2, 0, 1.2}, []float32{1.8, 0, 1.8}, NewDtQueryFilter(), 8)
	assert.Equal(t, DT_FAILURE|DT_INVALID_PARAM, status)
}

func TestFindPathAroundWall(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, gridTile{n: 10, cs: 1, blocked: wallWithGap}), 512)
	verts, status := findStraight(t, q, NewDtQueryFilter(), []float32{2.5, 0, 0.5}, []float32{7.5, 0, 0.5})
	assert.False(t, status.DtStatusDetail(DT_PARTIAL_RESULT))
	require.Greater(t, len(verts), 2)

	throughGap := false
	for _, v := range verts {
		if v.Pos[2] >= 8.9 {
			throughGap = true
		}
	}
	assert.True(t, throughGap)
	assert.InDelta(t, 7.5, verts[len(verts)-1].Pos[0], 1e-4)
}

func TestFindPathPartialWhenDisconnected(t *testing.T) {
	nav := newGridNavMesh(t, gridTile{n: 10, cs: 1, blocked: func(x, _ int) bool { return x == 5 }})
	q := newQuery(t, nav, 512)
	start, end := []float32{2.5, 0, 0.5}, []float32{7.5, 0, 0.5}
	path, status := q.FindPath(nearest(t, q, start), nearest(t, q, end), start, end, NewDtQueryFilter(), 256)
	require.True(t, status.DtStatusSucceed())
	assert.True(t, status.DtStatusDetail(DT_PARTIAL_RESULT))

	// The partial corridor ends on the polygon closest to the goal.
	last := path[len(path)-1]
	c, _, st := q.ClosestPointOnPoly(last, end)
	require.True(t, st.DtStatusSucceed())
	assert.InDelta(t, 5, c[0], 1e-4)

	np, status := q.ComputePath(common.Vec3{2.5, 0, 0.5}, common.Vec3{7.5, 0, 0.5}, common.ToVec3(testHalfExtents), NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed())
	assert.True(t, np.Partial)
	assert.InDelta(t, 5, np.Points[len(np.Points)-1][0], 1e-4)
}

func TestFindPathOutOfNodes(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 8)
	start, end := []float32{0.5, 0, 0.5}, []float32{9.5, 0, 9.5}
	endRef := nearest(t, q, end)
	path, status := q.FindPath(nearest(t, q, start), endRef, start, end, NewDtQueryFilter(), 256)
	require.True(t, status.DtStatusSucceed())
	assert.True(t, status.DtStatusDetail(DT_OUT_OF_NODES))
	assert.True(t, status.DtStatusDetail(DT_PARTIAL_RESULT))
	assert.NotEmpty(t, path)
	assert.NotEqual(t, endRef, path[len(path)-1])

	// The search stops at the pool size instead of growing it.
	pool := q.GetNodePool()
	assert.Equal(t, int32(8), pool.GetMaxNodes())
	assert.Equal(t, int32(8), pool.GetNodeCount())
	assert.Nil(t, pool.FindNode(endRef, 0))
	assert.Nil(t, pool.GetNode(endRef, 0))
}

func TestFindPathTruncatesToMaxPath(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	start, end := []float32{0.5, 0, 0.5}, []float32{9.5, 0, 0.5}
	path, status := q.FindPath(nearest(t, q, start), nearest(t, q, end), start, end, NewDtQueryFilter(), 3)
	require.True(t, status.DtStatusSucceed())
	assert.True(t, status.DtStatusDetail(DT_BUFFER_TOO_SMALL))
	assert.Len(t, path, 3)
}

func TestFindStraightPathBufferTooSmall(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	start, end := []float32{0.5, 0, 0.5}, []float32{9.5, 0, 9.5}
	path, status := q.FindPath(nearest(t, q, start), nearest(t, q, end), start, end, NewDtQueryFilter(), 256)
	require.True(t, status.DtStatusSucceed())

	verts, status := q.FindStraightPath(start, end, path, 1, 0)
	assert.True(t, status.DtStatusSucceed())
	assert.True(t, status.DtStatusDetail(DT_BUFFER_TOO_SMALL))
	assert.Len(t, verts, 1)
}

func TestFindStraightPathAllCrossings(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	start, end := []float32{0.5, 0, 0.5}, []float32{4.5, 0, 0.5}
	path, status := q.FindPath(nearest(t, q, start), nearest(t, q, end), start, end, NewDtQueryFilter(), 256)
	require.True(t, status.DtStatusSucceed())
	require.Len(t, path, 5)

	verts, status := q.FindStraightPath(start, end, path, 64, DT_STRAIGHTPATH_ALL_CROSSINGS)
	require.True(t, status.DtStatusSucceed())
	// Start, one vertex per crossed edge, end.
	assert.Len(t, verts, 6)
}

func TestFilterExcludeFlagsForcesDetour(t *testing.T) {
	nav := newGridNavMesh(t, flatTile(0, 0))
	q := newQuery(t, nav, 512)
	for z := 0; z < 9; z++ {
		ref := nearest(t, q, []float32{5.5, 0, float32(z) + 0.5})
		require.True(t, nav.SetPolyFlags(ref, testWalkFlag|testDisabledFlag).DtStatusSucceed())
	}

	filter := NewDtQueryFilter()
	filter.SetExcludeFlags(testDisabledFlag)
	verts, status := findStraight(t, q, filter, []float32{2.5, 0, 0.5}, []float32{7.5, 0, 0.5})
	assert.False(t, status.DtStatusDetail(DT_PARTIAL_RESULT))
	require.Greater(t, len(verts), 2)
	maxZ := float32(0)
	for _, v := range verts {
		maxZ = max(maxZ, v.Pos[2])
	}
	assert.GreaterOrEqual(t, maxZ, float32(8.9))

	ref := nearest(t, q, []float32{5.5, 0, 0.5})
	assert.False(t, q.IsValidPolyRef(ref, filter))
	assert.True(t, q.IsValidPolyRef(ref, NewDtQueryFilter()))
}

func TestFilterAreaCost(t *testing.T) {
	filter := NewDtQueryFilter()
	filter.SetAreaCost(int(testGroundArea), 3)
	poly := &DtPoly{Flags: testWalkFlag}
	poly.SetArea(testGroundArea)
	assert.InDelta(t, 6, filter.GetCost([]float32{0, 0, 0}, []float32{2, 0, 0}, poly), 1e-5)
	assert.True(t, filter.PassFilter(poly))
	filter.SetIncludeFlags(testDisabledFlag)
	assert.False(t, filter.PassFilter(poly))
}

func TestFindPathAcrossTiles(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0), flatTile(1, 0)), 512)
	verts, status := findStraight(t, q, NewDtQueryFilter(), []float32{2.5, 0, 5.5}, []float32{17.5, 0, 5.5})
	assert.False(t, status.DtStatusDetail(DT_PARTIAL_RESULT))
	require.Len(t, verts, 2)
	assert.InDelta(t, 17.5, verts[1].Pos[0], 1e-4)
}

func TestComputePath(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, gridTile{n: 10, cs: 1, blocked: wallWithGap}), 512)
	np, status := q.ComputePath(common.Vec3{2.5, 0.3, 0.5}, common.Vec3{7.5, 0.3, 0.5}, common.Vec3{0.5, 1, 0.5}, NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed(), status.String())
	assert.False(t, np.Partial)
	require.Greater(t, len(np.Points), 2)
	assert.Len(t, np.Flags, len(np.Points))
	assert.InDelta(t, 2.5, np.Points[0][0], 1e-4)
	assert.InDelta(t, 0, np.Points[0][1], 1e-4)

	_, status = q.ComputePath(common.Vec3{50, 0, 50}, common.Vec3{7.5, 0, 0.5}, common.Vec3{0.5, 1, 0.5}, NewDtQueryFilter())
	assert.True(t, status.DtStatusFailed())
}

func TestComputePathAlongCellEdge(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0), flatTile(1, 0)), 512)
	np, status := q.ComputePath(common.Vec3{1, 0, 5}, common.Vec3{18, 0, 5}, common.ToVec3(testHalfExtents), NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed(), status.String())
	require.Len(t, np.Points, 2, "%v", np.Points)
	assert.InDelta(t, 18, np.Points[1][0], 1e-4)
	assert.Equal(t, []uint8{DT_STRAIGHTPATH_START, DT_STRAIGHTPATH_END}, np.Flags)
}

func TestDropInLineCorners(t *testing.T) {
	verts := []DtStraightPathVertex{
		{Pos: [3]float32{1, 0, 4.8}, Flags: DT_STRAIGHTPATH_START, Ref: 1},
		{Pos: [3]float32{5, 0, 4.8}, Ref: 2},
		{Pos: [3]float32{9, 0, 4.8}, Ref: 3},
		{Pos: [3]float32{9.5, 0, 7}, Flags: DT_STRAIGHTPATH_OFFMESH_CONNECTION, Ref: 4},
		{Pos: [3]float32{10, 0, 8}, Ref: 5},
		{Pos: [3]float32{10, 0, 9}, Flags: DT_STRAIGHTPATH_END},
	}
	got := dropInLineCorners(verts)
	var refs []DtPolyRef
	for _, v := range got {
		refs = append(refs, v.Ref)
	}
	// The in-line corner goes, the real turn and the off-mesh start stay.
	assert.Equal(t, []DtPolyRef{1, 3, 4, 5, 0}, refs)

	short := []DtStraightPathVertex{{Flags: DT_STRAIGHTPATH_START}, {Flags: DT_STRAIGHTPATH_END}}
	assert.Equal(t, short, dropInLineCorners(short))
}

func TestRaycastOpenField(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	start, end := []float32{0.5, 0, 0.5}, []float32{9.5, 0, 6.5}
	hit, status := q.Raycast(nearest(t, q, start), start, end, NewDtQueryFilter(), 0, 0, 64)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, float32(math.MaxFloat32), hit.T)
	assert.Equal(t, nearest(t, q, end), hit.Path[len(hit.Path)-1])
}

func TestRaycastHitsWall(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, gridTile{n: 10, cs: 1, blocked: wallWithGap}), 512)
	start, end := []float32{2.5, 0, 0.5}, []float32{7.5, 0, 0.5}
	hit, status := q.Raycast(nearest(t, q, start), start, end, NewDtQueryFilter(), DT_RAYCAST_USE_COSTS, 0, 64)
	require.True(t, status.DtStatusSucceed())
	assert.InDelta(t, 0.5, hit.T, 1e-4)
	assert.InDelta(t, -1, hit.HitNormal[0], 1e-4)
	assert.InDelta(t, 0, hit.HitNormal[2], 1e-4)
	assert.Len(t, hit.Path, 3)
	assert.InDelta(t, 2.5, hit.PathCost, 1e-3)
}

func TestMoveAlongSurfaceSlidesOnWall(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, gridTile{n: 10, cs: 1, blocked: wallWithGap}), 512)
	start, end := []float32{2.5, 0, 0.5}, []float32{7.5, 0, 0.5}
	res, visited, status := q.MoveAlongSurface(nearest(t, q, start), start, end, NewDtQueryFilter(), 16)
	require.True(t, status.DtStatusSucceed())
	assert.InDelta(t, 5, res[0], 1e-3)
	assert.InDelta(t, 0.5, res[2], 1e-3)
	assert.Len(t, visited, 3)

	moved, status := q.MoveAlong(common.Vec3{2.5, 0, 0.5}, common.Vec3{3.5, 0, 1.5}, common.Vec3{0.5, 1, 0.5}, NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed())
	assert.InDelta(t, 3.5, moved[0], 1e-3)
	assert.InDelta(t, 1.5, moved[2], 1e-3)
}

func TestRandomPoints(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	r := rand.New(rand.NewSource(7))
	q.SetRandom(r.Float32)

	for i := 0; i < 20; i++ {
		ref, pt, status := q.FindRandomPoint(NewDtQueryFilter())
		require.True(t, status.DtStatusSucceed())
		require.NotZero(t, ref)
		assert.True(t, pt[0] >= 0 && pt[0] <= 10 && pt[2] >= 0 && pt[2] <= 10)
	}

	center := []float32{5.5, 0, 5.5}
	startRef := nearest(t, q, center)
	for i := 0; i < 20; i++ {
		ref, pt, status := q.FindRandomPointAroundCircle(startRef, center, 2, NewDtQueryFilter())
		require.True(t, status.DtStatusSucceed())
		require.NotZero(t, ref)
		// A point may land anywhere on a polygon that touches the circle.
		assert.LessOrEqual(t, common.Vdist2D(pt[:], center), float32(2+math.Sqrt2))
	}

	pt, status := q.GetRandomPointAround(common.Vec3{5.5, 0, 5.5}, 1, common.Vec3{0.5, 1, 0.5}, NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed())
	assert.LessOrEqual(t, common.Vdist2D(pt[:], center), float32(1+math.Sqrt2))
}

func TestGetClosestPointAndHeight(t *testing.T) {
	q := newQuery(t, newGridNavMesh(t, flatTile(0, 0)), 512)
	ref, pt, status := q.GetClosestPoint(common.Vec3{3.3, 0.7, 4.4}, common.Vec3{0.5, 1, 0.5}, NewDtQueryFilter())
	require.True(t, status.DtStatusSucceed())
	assert.NotZero(t, ref)
	assert.InDelta(t, 3.3, pt[0], 1e-4)
	assert.InDelta(t, 0, pt[1], 1e-4)

	h, status := q.GetPolyHeight(ref, []float32{3.3, 5, 4.4})
	require.True(t, status.DtStatusSucceed())
	assert.InDelta(t, 0, h, 1e-4)

	b, status := q.ClosestPointOnPolyBoundary(ref, []float32{3.3, 0, 4.4})
	require.True(t, status.DtStatusSucceed())
	assert.InDelta(t, 3.3, b[0], 1e-4)
}

func TestNodeQueueOrdering(t *testing.T) {
	q := NewNodeQueue(func(a, b *DtNode) bool { return a.Total < b.Total })
	nodes := []*DtNode{{Total: 5}, {Total: 1}, {Total: 3}, {Total: 4}}
	for _, n := range nodes {
		q.Offer(n)
	}
	nodes[0].Total = 0
	q.Update(nodes[0])
	assert.Equal(t, float32(0), q.Peek().Total)

	var got []float32
	for !q.Empty() {
		got = append(got, q.Poll().Total)
	}
	assert.Equal(t, []float32{0, 1, 3, 4}, got)
}

func TestNodePool(t *testing.T) {
	pool := NewDtNodePool(2, 3)
	a := pool.GetNode(100, 0)
	require.NotNil(t, a)
	assert.Same(t, a, pool.GetNode(100, 0))
	assert.Same(t, a, pool.GetNodeAtIdx(pool.GetNodeIdx(a)))
	assert.Nil(t, pool.GetNodeAtIdx(0))

	b := pool.GetNode(100, 1)
	require.NotNil(t, b)
	assert.Len(t, pool.FindNodes(100, 4), 2)
	assert.Nil(t, pool.GetNode(200, 0))
	assert.Nil(t, pool.FindNode(200, 0))

	pool.Clear()
	assert.Nil(t, pool.FindNode(100, 0))
	assert.EqualValues(t, 0, pool.GetNodeCount())
}
