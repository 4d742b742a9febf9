package detour

import (
	"github.com/gorustyt/tilenav/common"
)

const (
	maxPathPolys     = 256
	maxMoveVisited   = 16
	defaultMaxPoints = 256
)

// NavPath is a waypoint path produced by ComputePath.
type NavPath struct {
	Points  []common.Vec3
	Flags   []uint8
	Polys   []DtPolyRef
	Partial bool
}

// GetClosestPoint snaps position to the nearest polygon within halfExtents.
func (q *DtNavMeshQuery) GetClosestPoint(position, halfExtents common.Vec3, filter *DtQueryFilter) (DtPolyRef, common.Vec3, DtStatus) {
	ref, nearest, _, status := q.FindNearestPoly(position[:], halfExtents[:], filter)
	if status.DtStatusFailed() {
		return 0, position, status
	}
	if ref == 0 {
		return 0, position, DT_FAILURE | DT_INVALID_PARAM
	}
	closest, _, status := q.ClosestPointOnPoly(ref, nearest[:])
	if status.DtStatusFailed() {
		return ref, common.Vec3(nearest), status
	}
	return ref, common.Vec3(closest), DT_SUCCESS
}

// GetRandomPointAround returns a random reachable point within maxRadius of
// the polygon nearest to position.
func (q *DtNavMeshQuery) GetRandomPointAround(position common.Vec3, maxRadius float32, halfExtents common.Vec3, filter *DtQueryFilter) (common.Vec3, DtStatus) {
	ref, nearest, _, status := q.FindNearestPoly(position[:], halfExtents[:], filter)
	if status.DtStatusFailed() {
		return position, status
	}
	if ref == 0 {
		return position, DT_FAILURE | DT_INVALID_PARAM
	}
	_, pt, status := q.FindRandomPointAroundCircle(ref, nearest[:], maxRadius, filter)
	if status.DtStatusFailed() {
		return position, status
	}
	return common.Vec3(pt), status
}

// MoveAlong slides from position toward destination across the walkable
// surface and returns the reachable end point at surface height.
func (q *DtNavMeshQuery) MoveAlong(position, destination, halfExtents common.Vec3, filter *DtQueryFilter) (common.Vec3, DtStatus) {
	ref, nearest, _, status := q.FindNearestPoly(position[:], halfExtents[:], filter)
	if status.DtStatusFailed() {
		return position, status
	}
	if ref == 0 {
		return position, DT_FAILURE | DT_INVALID_PARAM
	}
	result, visited, status := q.MoveAlongSurface(ref, nearest[:], destination[:], filter, maxMoveVisited)
	if status.DtStatusFailed() {
		return position, status
	}
	if len(visited) > 0 {
		if h, st := q.GetPolyHeight(visited[len(visited)-1], result[:]); st.DtStatusSucceed() {
			result[1] = h
		}
	}
	return common.Vec3(result), status
}

// ComputePath snaps both ends to the mesh, finds a corridor and string-pulls
// it into waypoints. A partial corridor yields a path ending at the point
// closest to end, with Partial set.
func (q *DtNavMeshQuery) ComputePath(start, end, halfExtents common.Vec3, filter *DtQueryFilter) (*NavPath, DtStatus) {
	return q.ComputePathWithOptions(start, end, halfExtents, filter, 0)
}

// ComputePathWithOptions is ComputePath adding the portal crossings selected
// by options (DT_STRAIGHTPATH_AREA_CROSSINGS, DT_STRAIGHTPATH_ALL_CROSSINGS).
func (q *DtNavMeshQuery) ComputePathWithOptions(start, end, halfExtents common.Vec3, filter *DtQueryFilter, options int) (*NavPath, DtStatus) {
	startRef, startPos, _, status := q.FindNearestPoly(start[:], halfExtents[:], filter)
	if status.DtStatusFailed() {
		return nil, status
	}
	endRef, endPos, _, status := q.FindNearestPoly(end[:], halfExtents[:], filter)
	if status.DtStatusFailed() {
		return nil, status
	}
	if startRef == 0 || endRef == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	polys, status := q.FindPath(startRef, endRef, startPos[:], endPos[:], filter, maxPathPolys)
	if status.DtStatusFailed() {
		return nil, status
	}
	partial := status.DtStatusDetail(DT_PARTIAL_RESULT)

	// In case of partial path, make sure the end point is clamped to the last polygon.
	target := endPos
	if polys[len(polys)-1] != endRef {
		if c, _, st := q.ClosestPointOnPoly(polys[len(polys)-1], endPos[:]); st.DtStatusSucceed() {
			target = c
		}
	}

	verts, status := q.FindStraightPath(startPos[:], target[:], polys, defaultMaxPoints, options)
	if status.DtStatusFailed() {
		return nil, status
	}
	if options == 0 {
		verts = dropInLineCorners(verts)
	}
	np := &NavPath{Polys: polys, Partial: partial}
	for _, v := range verts {
		np.Points = append(np.Points, common.Vec3(v.Pos))
		np.Flags = append(np.Flags, v.Flags)
	}
	if partial {
		status |= DT_PARTIAL_RESULT
	}
	return np, status
}

// inLineEpsilon is the squared distance below which a corner is treated as
// lying on the segment between its neighbours.
const inLineEpsilon = 1e-4

// dropInLineCorners removes plain corners that sit on the straight line
// between the kept previous waypoint and the next one. Start, end and
// off-mesh waypoints are always kept.
func dropInLineCorners(verts []DtStraightPathVertex) []DtStraightPathVertex {
	if len(verts) < 3 {
		return verts
	}
	out := verts[:1]
	for i := 1; i < len(verts)-1; i++ {
		v := verts[i]
		if v.Flags == 0 {
			a, b, p := common.Vec3(out[len(out)-1].Pos), common.Vec3(verts[i+1].Pos), common.Vec3(v.Pos)
			if distPtSegSqr(p, a, b) < inLineEpsilon {
				continue
			}
		}
		out = append(out, v)
	}
	return append(out, verts[len(verts)-1])
}

func distPtSegSqr(p, a, b common.Vec3) float32 {
	ab := b.Sub(a)
	t := float32(0)
	if d := ab.Dot(ab); d > 0 {
		t = common.Clamp(p.Sub(a).Dot(ab)/d, 0, 1)
	}
	diff := a.Add(ab.Mul(t)).Sub(p)
	return diff.Dot(diff)
}
