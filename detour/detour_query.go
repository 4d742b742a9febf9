package detour

import (
	"math"
	"math/rand"

	"github.com/gorustyt/tilenav/common"
)

const (
	H_SCALE = 0.999 // Search heuristic scale.

	/// Vertex flags returned by DtNavMeshQuery::FindStraightPath.
	DT_STRAIGHTPATH_START              = 0x01 ///< The vertex is the start position in the path.
	DT_STRAIGHTPATH_END                = 0x02 ///< The vertex is the end position in the path.
	DT_STRAIGHTPATH_OFFMESH_CONNECTION = 0x04 ///< The vertex is the start of an off-mesh connection.
)

const (
	/// Options for DtNavMeshQuery::FindStraightPath.
	DT_STRAIGHTPATH_AREA_CROSSINGS = 0x01 ///< Add a vertex at every polygon edge crossing where area changes.
	DT_STRAIGHTPATH_ALL_CROSSINGS  = 0x02 ///< Add a vertex at every polygon edge crossing.
)

const (
	/// Options for DtNavMeshQuery::Raycast.
	DT_RAYCAST_USE_COSTS = 0x01 ///< Raycast should calculate movement cost along the ray and fill RaycastHit::cost
)

const (
	maxTileNeis       = 32
	maxMoveAlongStack = 48
	tinyNodePoolSize  = 64
)

// DtStraightPathVertex is one waypoint of a string-pulled path.
type DtStraightPathVertex struct {
	Pos   [3]float32
	Flags uint8     // DT_STRAIGHTPATH_* flags.
	Ref   DtPolyRef // Polygon entered at this waypoint, 0 for the end point.
}

// / Provides information about raycast hit
// / filled by DtNavMeshQuery::Raycast
// / @ingroup detour
type DtRaycastHit struct {
	/// The hit parameter. (FLT_MAX if no wall hit.)
	T float32

	/// HitNormal	The normal of the nearest wall hit. [(x, y, z)]
	HitNormal [3]float32

	/// The index of the edge on the final polygon where the wall was hit.
	HitEdgeIndex int

	/// Reference ids of the visited polygons.
	Path []DtPolyRef

	///  The cost of the path until hit.
	PathCost float32
}

// DtNavMeshQuery is a reusable search context bound to one navigation mesh.
// It is not safe for concurrent use.
type DtNavMeshQuery struct {
	m_nav          IDtNavMesh ///< Pointer to navmesh data.
	m_nodePool     *DtNodePool
	m_tinyNodePool *DtNodePool
	m_openList     NodeQueue[*DtNode]
	m_rand         func() float32
}

// / Initializes the query object.
// /  @param[in]		nav			Pointer to the DtNavMesh object to use for all queries.
// /  @param[in]		maxNodes	Maximum number of search nodes. [Limits: 0 < value < 65535]
// / @returns The status flags for the query.
func NewDtNavMeshQuery(nav IDtNavMesh, maxNodes int32) (*DtNavMeshQuery, DtStatus) {
	if nav == nil || maxNodes <= 0 || maxNodes >= int32(DT_NULL_IDX) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	q := &DtNavMeshQuery{
		m_nav:          nav,
		m_nodePool:     NewDtNodePool(maxNodes, int32(common.NextPow2(uint32(maxNodes/4)))),
		m_tinyNodePool: NewDtNodePool(tinyNodePoolSize, 32),
		m_openList: NewNodeQueue(func(t1, t2 *DtNode) bool {
			return t1.Total < t2.Total //花费最小
		}),
		m_rand: rand.Float32,
	}
	return q, DT_SUCCESS
}

// / Gets the node pool.
func (q *DtNavMeshQuery) GetNodePool() *DtNodePool { return q.m_nodePool }

// / Gets the navigation mesh the query object is using.
func (q *DtNavMeshQuery) GetAttachedNavMesh() IDtNavMesh { return q.m_nav }

// SetRandom replaces the [0,1) source used by the random point queries.
func (q *DtNavMeshQuery) SetRandom(frand func() float32) {
	if frand == nil {
		frand = rand.Float32
	}
	q.m_rand = frand
}

// / Returns true if the polygon reference is valid and passes the filter restrictions.
func (q *DtNavMeshQuery) IsValidPolyRef(ref DtPolyRef, filter *DtQueryFilter) bool {
	_, poly, status := q.m_nav.GetTileAndPolyByRef(ref)
	// If cannot get polygon, assume it does not exists and boundary is invalid.
	if status.DtStatusFailed() {
		return false
	}
	// If cannot pass filter, assume flags has changed and boundary is invalid.
	return filter.PassFilter(poly)
}

func collectPolyVerts(tile *DtMeshTile, poly *DtPoly, verts []float32) int {
	nv := int(poly.VertCount)
	for i := 0; i < nv; i++ {
		copy(verts[i*3:i*3+3], common.GetVert3(tile.Verts, poly.Verts[i]))
	}
	return nv
}

// ClosestPointOnPoly finds the point on ref closest to pos using the detail
// mesh heights. posOverPoly reports whether pos lies over the polygon.
func (q *DtNavMeshQuery) ClosestPointOnPoly(ref DtPolyRef, pos []float32) (closest [3]float32, posOverPoly bool, status DtStatus) {
	if !q.m_nav.IsValidPolyRef(ref) || len(pos) < 3 || !common.Visfinite(pos) {
		return closest, false, DT_FAILURE | DT_INVALID_PARAM
	}
	posOverPoly = q.m_nav.ClosestPointOnPoly(ref, pos, closest[:])
	return closest, posOverPoly, DT_SUCCESS
}

// / @par
// /
// / Much faster than ClosestPointOnPoly().
// /
// / If the provided position lies within the polygon's xz-bounds (above or below),
// / then @p pos and @p closest will be equal.
// /
// / The height of @p closest will be the polygon boundary.  The height detail is not used.
func (q *DtNavMeshQuery) ClosestPointOnPolyBoundary(ref DtPolyRef, pos []float32) (closest [3]float32, status DtStatus) {
	tile, poly, status := q.m_nav.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return closest, DT_FAILURE | DT_INVALID_PARAM
	}
	if len(pos) < 3 || !common.Visfinite(pos) {
		return closest, DT_FAILURE | DT_INVALID_PARAM
	}

	// Collect vertices.
	var verts [DT_VERTS_PER_POLYGON * 3]float32
	var edged, edget [DT_VERTS_PER_POLYGON]float32
	nv := collectPolyVerts(tile, poly, verts[:])

	if dtDistancePtPolyEdgesSqr(pos, verts[:], nv, edged[:], edget[:]) {
		// Point is inside the polygon, return the point.
		copy(closest[:], pos)
		return closest, DT_SUCCESS
	}
	// Point is outside the polygon, clamp to nearest edge.
	imin := 0
	for i := 1; i < nv; i++ {
		if edged[i] < edged[imin] {
			imin = i
		}
	}
	va := common.GetVert3(verts[:], imin)
	vb := common.GetVert3(verts[:], (imin+1)%nv)
	common.Vlerp(closest[:], va, vb, edget[imin])
	return closest, DT_SUCCESS
}

// / @par
// /
// / Will return #DT_FAILURE | DT_INVALID_PARAM if the provided position is outside the xz-bounds
// / of the polygon.
func (q *DtNavMeshQuery) GetPolyHeight(ref DtPolyRef, pos []float32) (float32, DtStatus) {
	tile, poly, status := q.m_nav.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() || len(pos) < 3 || !common.Visfinite2D(pos) {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}

	// We used to return success for offmesh connections, but the
	// GetPolyHeight in the navmesh does not do this, so special
	// case it here.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		v0 := common.GetVert3(tile.Verts, poly.Verts[0])
		v1 := common.GetVert3(tile.Verts, poly.Verts[1])
		t, _ := DtDistancePtSegSqr2D(pos, v0, v1)
		return v0[1] + (v1[1]-v0[1])*t, DT_SUCCESS
	}

	if h, ok := q.m_nav.GetPolyHeight(tile, q.m_nav.DecodePolyIdPoly(ref), pos); ok {
		return h, DT_SUCCESS
	}
	return 0, DT_FAILURE | DT_INVALID_PARAM
}

// queryPolygons calls fn for every filtered ground polygon whose bounds
// overlap the box. Returning false from fn stops the walk.
func (q *DtNavMeshQuery) queryPolygons(center, halfExtents []float32, filter *DtQueryFilter, fn func(tile *DtMeshTile, ref DtPolyRef) bool) DtStatus {
	if len(center) < 3 || !common.Visfinite(center) ||
		len(halfExtents) < 3 || !common.Visfinite(halfExtents) ||
		filter == nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	var bmin, bmax [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	// Find tiles the query touches.
	minx, miny := q.m_nav.CalcTileLoc(bmin[:])
	maxx, maxy := q.m_nav.CalcTileLoc(bmax[:])

	for y := miny; y <= maxy; y++ {
		for x := minx; x <= maxx; x++ {
			for _, tile := range q.m_nav.GetTilesAt(x, y, maxTileNeis) {
				refs := q.m_nav.QueryPolygonsInTile(tile, bmin[:], bmax[:], len(tile.Polys))
				for _, ref := range refs {
					ip := q.m_nav.DecodePolyIdPoly(ref)
					if !filter.PassFilter(&tile.Polys[ip]) {
						continue
					}
					if !fn(tile, ref) {
						return DT_SUCCESS
					}
				}
			}
		}
	}
	return DT_SUCCESS
}

// / @par
// /
// / If no polygons are found, the function will return #DT_SUCCESS with an
// / empty result.
// /
// / If more than @p maxPolys polygons overlap the box the result is filled to
// / capacity and the status carries #DT_BUFFER_TOO_SMALL. Which polygons are
// / kept is undefined.
func (q *DtNavMeshQuery) QueryPolygons(center, halfExtents []float32, filter *DtQueryFilter, maxPolys int) ([]DtPolyRef, DtStatus) {
	if maxPolys < 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	var polys []DtPolyRef
	overflow := false
	status := q.queryPolygons(center, halfExtents, filter, func(_ *DtMeshTile, ref DtPolyRef) bool {
		if len(polys) >= maxPolys {
			overflow = true
			return false
		}
		polys = append(polys, ref)
		return true
	})
	if status.DtStatusFailed() {
		return nil, status
	}
	if overflow {
		return polys, DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	return polys, DT_SUCCESS
}

// / @par
// /
// / @note If the search box does not intersect any polygons the search will
// / return #DT_SUCCESS, but @p nearestRef will be zero. So if in doubt, check
// / @p nearestRef before using @p nearestPt.
// /
// / If center and nearestPt point to an equal position, isOverPoly will be true;
// / however there's also a special case of climb height inside the polygon.
func (q *DtNavMeshQuery) FindNearestPoly(center, halfExtents []float32, filter *DtQueryFilter) (nearestRef DtPolyRef, nearestPt [3]float32, isOverPoly bool, status DtStatus) {
	nearestDistanceSqr := float32(math.MaxFloat32)
	var closestPtPoly, diff [3]float32
	status = q.queryPolygons(center, halfExtents, filter, func(tile *DtMeshTile, ref DtPolyRef) bool {
		posOverPoly := q.m_nav.ClosestPointOnPoly(ref, center, closestPtPoly[:])

		// If a point is directly over a polygon and closer than
		// climb height, favor that instead of straight line nearest point.
		common.Vsub(diff[:], center, closestPtPoly[:])
		var d float32
		if posOverPoly {
			d = common.Abs(diff[1]) - tile.Header.WalkableClimb
			if d > 0 {
				d = d * d
			} else {
				d = 0
			}
		} else {
			d = common.VlenSqr(diff[:])
		}
		if d < nearestDistanceSqr {
			nearestPt = closestPtPoly
			nearestDistanceSqr = d
			nearestRef = ref
			isOverPoly = posOverPoly
		}
		return true
	})
	if status.DtStatusFailed() {
		return 0, nearestPt, false, status
	}
	return nearestRef, nearestPt, isOverPoly, DT_SUCCESS
}

// GetPortalPoints returns the shared edge between two adjacent polygons
// along with their polygon types.
func (q *DtNavMeshQuery) GetPortalPoints(from, to DtPolyRef) (left, right [3]float32, fromType, toType uint8, status DtStatus) {
	fromTile, fromPoly, status := q.m_nav.GetTileAndPolyByRef(from)
	if status.DtStatusFailed() {
		return left, right, 0, 0, DT_FAILURE | DT_INVALID_PARAM
	}
	toTile, toPoly, status := q.m_nav.GetTileAndPolyByRef(to)
	if status.DtStatusFailed() {
		return left, right, 0, 0, DT_FAILURE | DT_INVALID_PARAM
	}
	status = q.getPortalPoints(from, fromPoly, fromTile, to, toPoly, toTile, left[:], right[:])
	return left, right, fromPoly.GetType(), toPoly.GetType(), status
}

// Returns portal points between two polygons.
func (q *DtNavMeshQuery) getPortalPoints(from DtPolyRef, fromPoly *DtPoly, fromTile *DtMeshTile,
	to DtPolyRef, toPoly *DtPoly, toTile *DtMeshTile, left, right []float32) DtStatus {
	// Find the link that points to the 'to' polygon.
	var link *DtLink
	for i := fromPoly.FirstLink; i != DT_NULL_LINK; i = fromTile.Links[i].Next {
		if fromTile.Links[i].Ref == to {
			link = &fromTile.Links[i]
			break
		}
	}
	if link == nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}

	// Handle off-mesh connections.
	if fromPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		v := common.GetVert3(fromTile.Verts, fromPoly.Verts[link.Edge])
		copy(left, v)
		copy(right, v)
		return DT_SUCCESS
	}

	if toPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		for i := toPoly.FirstLink; i != DT_NULL_LINK; i = toTile.Links[i].Next {
			if toTile.Links[i].Ref == from {
				v := common.GetVert3(toTile.Verts, toPoly.Verts[toTile.Links[i].Edge])
				copy(left, v)
				copy(right, v)
				return DT_SUCCESS
			}
		}
		return DT_FAILURE | DT_INVALID_PARAM
	}

	// Find portal vertices.
	v0 := common.GetVert3(fromTile.Verts, fromPoly.Verts[link.Edge])
	v1 := common.GetVert3(fromTile.Verts, fromPoly.Verts[(link.Edge+1)%fromPoly.VertCount])
	copy(left, v0)
	copy(right, v1)

	// If the link is at tile boundary, clamp the vertices to
	// the link width.
	if link.Side != 0xff {
		// Unpack portal limits.
		if link.Bmin != 0 || link.Bmax != 255 {
			const s = 1.0 / 255.0
			common.Vlerp(left, v0, v1, float32(link.Bmin)*s)
			common.Vlerp(right, v0, v1, float32(link.Bmax)*s)
		}
	}
	return DT_SUCCESS
}

// Returns edge mid point between two polygons.
func (q *DtNavMeshQuery) getEdgeMidPoint(from DtPolyRef, fromPoly *DtPoly, fromTile *DtMeshTile,
	to DtPolyRef, toPoly *DtPoly, toTile *DtMeshTile, mid []float32) DtStatus {
	var left, right [3]float32
	if q.getPortalPoints(from, fromPoly, fromTile, to, toPoly, toTile, left[:], right[:]).DtStatusFailed() {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	common.Vlerp(mid, left[:], right[:], 0.5)
	return DT_SUCCESS
}

// getPathToNode walks parent links back from endNode. When the path is longer
// than maxPath the tail closest to endNode is dropped.
func (q *DtNavMeshQuery) getPathToNode(endNode *DtNode, maxPath int) ([]DtPolyRef, DtStatus) {
	// Find the length of the entire path.
	length := 0
	for n := endNode; n != nil; n = q.m_nodePool.GetNodeAtIdx(n.Pidx) {
		length++
	}
	// If the path cannot be fully stored then advance to the last node we will be able to store.
	curNode := endNode
	writeCount := length
	for ; writeCount > maxPath; writeCount-- {
		curNode = q.m_nodePool.GetNodeAtIdx(curNode.Pidx)
	}
	path := make([]DtPolyRef, writeCount)
	for i := writeCount - 1; i >= 0; i-- {
		path[i] = curNode.Id
		curNode = q.m_nodePool.GetNodeAtIdx(curNode.Pidx)
	}
	if length > maxPath {
		return path, DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	return path, DT_SUCCESS
}

// / @par
// /
// / If the end polygon cannot be reached through the navigation graph,
// / the last polygon in the path will be the nearest the end polygon and the
// / status carries #DT_PARTIAL_RESULT.
// /
// / If the path is longer than @p maxPath it is filled as far as possible
// / from the start polygon toward the end polygon.
// /
// / The start and end positions are used to calculate traversal costs.
// / (The y-values impact the result.)
func (q *DtNavMeshQuery) FindPath(startRef, endRef DtPolyRef, startPos, endPos []float32, filter *DtQueryFilter, maxPath int) ([]DtPolyRef, DtStatus) {
	// Validate input
	if !q.m_nav.IsValidPolyRef(startRef) || !q.m_nav.IsValidPolyRef(endRef) ||
		len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		filter == nil || maxPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	if startRef == endRef {
		return []DtPolyRef{startRef}, DT_SUCCESS
	}

	q.m_nodePool.Clear()
	q.m_openList.Reset()

	startNode := q.m_nodePool.GetNode(startRef, 0)
	copy(startNode.Pos[:], startPos)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = common.Vdist(startPos, endPos) * H_SCALE
	startNode.Flags = DT_NODE_OPEN
	q.m_openList.Offer(startNode)

	lastBestNode := startNode
	lastBestNodeCost := startNode.Total
	outOfNodes := false

	for !q.m_openList.Empty() {
		// Remove node from open list and put it in closed list.
		bestNode := q.m_openList.Poll()
		bestNode.Flags &^= DT_NODE_OPEN
		bestNode.Flags |= DT_NODE_CLOSED

		// Reached the goal, stop searching.
		if bestNode.Id == endRef {
			lastBestNode = bestNode
			break
		}

		// Get current poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.m_nav.GetTileAndPolyByRefUnsafe(bestRef)

		// Get parent poly and tile.
		var parentRef DtPolyRef
		if parent := q.m_nodePool.GetNodeAtIdx(bestNode.Pidx); parent != nil {
			parentRef = parent.Id
		}

		for i := bestPoly.FirstLink; i != DT_NULL_LINK; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref

			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Get neighbour poly and tile.
			neighbourTile, neighbourPoly := q.m_nav.GetTileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourPoly) {
				continue
			}

			// deal explicitly with crossing tile boundaries
			crossSide := uint32(0)
			if link.Side != 0xff {
				crossSide = uint32(link.Side) >> 1
			}

			neighbourNode := q.m_nodePool.GetNode(neighbourRef, crossSide)
			if neighbourNode == nil {
				outOfNodes = true
				continue
			}

			// If the node is visited the first time, calculate node position.
			if neighbourNode.Flags == 0 {
				q.getEdgeMidPoint(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, neighbourNode.Pos[:])
			}

			// Calculate cost and heuristic.
			var cost, heuristic float32
			if neighbourRef == endRef {
				// Special case for last node.
				curCost := filter.GetCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
				endCost := filter.GetCost(neighbourNode.Pos[:], endPos, neighbourPoly)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				curCost := filter.GetCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
				cost = bestNode.Cost + curCost
				heuristic = common.Vdist(neighbourNode.Pos[:], endPos) * H_SCALE
			}
			total := cost + heuristic

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&DT_NODE_OPEN != 0 && total >= neighbourNode.Total {
				continue
			}
			// The node is already visited and process, and the new result is worse, skip.
			if neighbourNode.Flags&DT_NODE_CLOSED != 0 && total >= neighbourNode.Total {
				continue
			}

			// Add or update the node.
			neighbourNode.Pidx = q.m_nodePool.GetNodeIdx(bestNode)
			neighbourNode.Flags &^= DT_NODE_CLOSED
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if neighbourNode.Flags&DT_NODE_OPEN != 0 {
				// Already in open, update node location.
				q.m_openList.Update(neighbourNode)
			} else {
				// Put the node in open list.
				neighbourNode.Flags |= DT_NODE_OPEN
				q.m_openList.Offer(neighbourNode)
			}

			// Update nearest node to target so far.
			if heuristic < lastBestNodeCost {
				lastBestNodeCost = heuristic
				lastBestNode = neighbourNode
			}
		}
	}

	path, status := q.getPathToNode(lastBestNode, maxPath)
	if lastBestNode.Id != endRef {
		status |= DT_PARTIAL_RESULT
	}
	if outOfNodes {
		status |= DT_OUT_OF_NODES
	}
	return path, status
}

type straightPathBuilder struct {
	verts []DtStraightPathVertex
	max   int
}

// appendVertex returns DT_IN_PROGRESS while more vertices may follow.
func (b *straightPathBuilder) appendVertex(pos []float32, flags uint8, ref DtPolyRef) DtStatus {
	if n := len(b.verts); n > 0 && common.Vequal(b.verts[n-1].Pos[:], pos) {
		// The vertices are equal, update flags and poly.
		b.verts[n-1].Flags = flags
		b.verts[n-1].Ref = ref
		return DT_IN_PROGRESS
	}
	v := DtStraightPathVertex{Flags: flags, Ref: ref}
	copy(v.Pos[:], pos)
	b.verts = append(b.verts, v)

	// If there is no space to append more vertices, return.
	if len(b.verts) >= b.max {
		return DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	// If reached end of path, return.
	if flags == DT_STRAIGHTPATH_END {
		return DT_SUCCESS
	}
	return DT_IN_PROGRESS
}

func (b *straightPathBuilder) finish(status DtStatus) DtStatus {
	if len(b.verts) >= b.max {
		status |= DT_BUFFER_TOO_SMALL
	}
	return status
}

func (q *DtNavMeshQuery) appendPortals(b *straightPathBuilder, startIdx, endIdx int, endPos []float32, path []DtPolyRef, options int) DtStatus {
	startPos := b.verts[len(b.verts)-1].Pos
	// Append or update last vertex
	for i := startIdx; i < endIdx; i++ {
		// Calculate portal
		from := path[i]
		fromTile, fromPoly, status := q.m_nav.GetTileAndPolyByRef(from)
		if status.DtStatusFailed() {
			return DT_FAILURE | DT_INVALID_PARAM
		}
		to := path[i+1]
		toTile, toPoly, status := q.m_nav.GetTileAndPolyByRef(to)
		if status.DtStatusFailed() {
			return DT_FAILURE | DT_INVALID_PARAM
		}

		var left, right [3]float32
		if q.getPortalPoints(from, fromPoly, fromTile, to, toPoly, toTile, left[:], right[:]).DtStatusFailed() {
			break
		}

		if options&DT_STRAIGHTPATH_AREA_CROSSINGS != 0 {
			// Skip intersection if only area crossings are requested.
			if fromPoly.GetArea() == toPoly.GetArea() {
				continue
			}
		}

		// Append intersection
		if _, t, ok := dtIntersectSegSeg2D(startPos[:], endPos, left[:], right[:]); ok {
			var pt [3]float32
			common.Vlerp(pt[:], left[:], right[:], t)
			if stat := b.appendVertex(pt[:], 0, path[i+1]); stat != DT_IN_PROGRESS {
				return stat
			}
		}
	}
	return DT_IN_PROGRESS
}

// / @par
// /
// / This method peforms what is often called 'string pulling'.
// /
// / The start position is clamped to the first polygon in the path, and the
// / end position is clamped to the last. So the start and end positions should
// / normally be within or very near the first and last polygons respectively.
// /
// / The returned polygon references represent the reference id of the polygon
// / that is entered at the associated path position. The reference id associated
// / with the end point will always be zero.  This allows, for example, matching
// / off-mesh link points to their representative polygons.
// /
// / If @p maxStraightPath is too small for the entire result set, the result
// / is filled as far as possible from the start toward the end position and
// / the status carries #DT_BUFFER_TOO_SMALL.
func (q *DtNavMeshQuery) FindStraightPath(startPos, endPos []float32, path []DtPolyRef, maxStraightPath int, options int) ([]DtStraightPathVertex, DtStatus) {
	if len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		len(path) == 0 || path[0] == 0 || maxStraightPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	closestStartPos, status := q.ClosestPointOnPolyBoundary(path[0], startPos)
	if status.DtStatusFailed() {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	closestEndPos, status := q.ClosestPointOnPolyBoundary(path[len(path)-1], endPos)
	if status.DtStatusFailed() {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	b := &straightPathBuilder{max: maxStraightPath}
	crossings := options&(DT_STRAIGHTPATH_AREA_CROSSINGS|DT_STRAIGHTPATH_ALL_CROSSINGS) != 0

	// Add start point.
	if stat := b.appendVertex(closestStartPos[:], DT_STRAIGHTPATH_START, path[0]); stat != DT_IN_PROGRESS {
		return b.verts, stat
	}

	pathSize := len(path)
	if pathSize > 1 {
		portalApex := closestStartPos
		portalLeft := portalApex
		portalRight := portalApex
		apexIndex, leftIndex, rightIndex := 0, 0, 0
		var leftPolyType, rightPolyType uint8
		leftPolyRef, rightPolyRef := path[0], path[0]

		for i := 0; i < pathSize; i++ {
			var left, right [3]float32
			var toType uint8

			if i+1 < pathSize {
				// Next portal.
				left, right, _, toType, status = q.GetPortalPoints(path[i], path[i+1])
				if status.DtStatusFailed() {
					// Failed to get portal points, in practice this means that path[i+1] is invalid polygon.
					// Clamp the end point to path[i], and return the path so far.
					closestEndPos, status = q.ClosestPointOnPolyBoundary(path[i], endPos)
					if status.DtStatusFailed() {
						// This should only happen when the first polygon is invalid.
						return nil, DT_FAILURE | DT_INVALID_PARAM
					}
					// Append portals along the current straight path segment.
					if crossings {
						// Ignore status return value as we're just about to return anyway.
						q.appendPortals(b, apexIndex, i, closestEndPos[:], path, options)
					}
					// Ignore status return value as we're just about to return anyway.
					b.appendVertex(closestEndPos[:], 0, path[i])
					return b.verts, b.finish(DT_SUCCESS | DT_PARTIAL_RESULT)
				}

				// If starting really close the portal, advance.
				if i == 0 {
					if _, d := DtDistancePtSegSqr2D(portalApex[:], left[:], right[:]); d < common.Sqr(float32(0.001)) {
						continue
					}
				}
			} else {
				// End of the path.
				left = closestEndPos
				right = closestEndPos
				toType = DT_POLYTYPE_GROUND
			}

			// Right vertex.
			if common.TriArea2D(portalApex[:], portalRight[:], right[:]) <= 0.0 {
				if common.Vequal(portalApex[:], portalRight[:]) || common.TriArea2D(portalApex[:], portalLeft[:], right[:]) > 0.0 {
					portalRight = right
					rightPolyRef = 0
					if i+1 < pathSize {
						rightPolyRef = path[i+1]
					}
					rightPolyType = toType
					rightIndex = i
				} else {
					// Append portals along the current straight path segment.
					if crossings {
						if stat := q.appendPortals(b, apexIndex, leftIndex, portalLeft[:], path, options); stat != DT_IN_PROGRESS {
							return b.verts, stat
						}
					}

					portalApex = portalLeft
					apexIndex = leftIndex

					var flags uint8
					if leftPolyRef == 0 {
						flags = DT_STRAIGHTPATH_END
					} else if leftPolyType == DT_POLYTYPE_OFFMESH_CONNECTION {
						flags = DT_STRAIGHTPATH_OFFMESH_CONNECTION
					}

					// Append or update vertex
					if stat := b.appendVertex(portalApex[:], flags, leftPolyRef); stat != DT_IN_PROGRESS {
						return b.verts, stat
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}

			// Left vertex.
			if common.TriArea2D(portalApex[:], portalLeft[:], left[:]) >= 0.0 {
				if common.Vequal(portalApex[:], portalLeft[:]) || common.TriArea2D(portalApex[:], portalRight[:], left[:]) < 0.0 {
					portalLeft = left
					leftPolyRef = 0
					if i+1 < pathSize {
						leftPolyRef = path[i+1]
					}
					leftPolyType = toType
					leftIndex = i
				} else {
					// Append portals along the current straight path segment.
					if crossings {
						if stat := q.appendPortals(b, apexIndex, rightIndex, portalRight[:], path, options); stat != DT_IN_PROGRESS {
							return b.verts, stat
						}
					}

					portalApex = portalRight
					apexIndex = rightIndex

					var flags uint8
					if rightPolyRef == 0 {
						flags = DT_STRAIGHTPATH_END
					} else if rightPolyType == DT_POLYTYPE_OFFMESH_CONNECTION {
						flags = DT_STRAIGHTPATH_OFFMESH_CONNECTION
					}

					// Append or update vertex
					if stat := b.appendVertex(portalApex[:], flags, rightPolyRef); stat != DT_IN_PROGRESS {
						return b.verts, stat
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}
		}

		// Append portals along the current straight path segment.
		if crossings {
			if stat := q.appendPortals(b, apexIndex, pathSize-1, closestEndPos[:], path, options); stat != DT_IN_PROGRESS {
				return b.verts, stat
			}
		}
	}

	// Ignore status return value as we're just about to return anyway.
	b.appendVertex(closestEndPos[:], DT_STRAIGHTPATH_END, 0)
	return b.verts, b.finish(DT_SUCCESS)
}

// / @par
// /
// / This method is meant to be used for quick, short distance checks.
// /
// / If the hit parameter is a very high value (FLT_MAX), then the ray has hit
// / the end position. In this case the path represents a valid corridor to the
// / end position and the value of HitNormal is undefined.
// /
// / If the hit parameter is zero, then the start position is on the wall that
// / was hit and the value of HitNormal is undefined.
// /
// / If 0 < t < 1.0 then the following applies:
// /
// / @code
// / distanceToHitBorder = distanceToEndPosition * t
// / hitPoint = startPos + (endPos - startPos) * t
// / @endcode
// /
// / The raycast ignores the y-value of the end position. (2D check.)
func (q *DtNavMeshQuery) Raycast(startRef DtPolyRef, startPos, endPos []float32, filter *DtQueryFilter, options int, prevRef DtPolyRef, maxPath int) (*DtRaycastHit, DtStatus) {
	// Validate input
	if !q.m_nav.IsValidPolyRef(startRef) ||
		len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		filter == nil || maxPath < 0 ||
		(prevRef != 0 && !q.m_nav.IsValidPolyRef(prevRef)) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	hit := &DtRaycastHit{}
	var dir, curPos, lastPos [3]float32
	var verts [DT_VERTS_PER_POLYGON*3 + 3]float32
	copy(curPos[:], startPos)
	common.Vsub(dir[:], endPos, startPos)

	status := DT_SUCCESS

	// The API input has been checked already, skip checking internal data.
	curRef := startRef
	tile, poly := q.m_nav.GetTileAndPolyByRefUnsafe(curRef)

	for curRef != 0 {
		// Cast ray against current polygon.
		nv := collectPolyVerts(tile, poly, verts[:])

		_, tmax, _, segMax, ok := dtIntersectSegmentPoly2D(startPos, endPos, verts[:], nv)
		if !ok {
			// Could not hit the polygon, keep the old t and report hit.
			return hit, status
		}

		hit.HitEdgeIndex = segMax

		// Keep track of furthest t so far.
		if tmax > hit.T {
			hit.T = tmax
		}

		// Store visited polygons.
		if len(hit.Path) < maxPath {
			hit.Path = append(hit.Path, curRef)
		} else {
			status |= DT_BUFFER_TOO_SMALL
		}

		// Ray end is completely inside the polygon.
		if segMax == -1 {
			hit.T = math.MaxFloat32
			// add the cost
			if options&DT_RAYCAST_USE_COSTS != 0 {
				hit.PathCost += filter.GetCost(curPos[:], endPos, poly)
			}
			return hit, status
		}

		// Follow neighbours.
		var nextRef DtPolyRef
		var nextTile *DtMeshTile
		var nextPoly *DtPoly

		for i := poly.FirstLink; i != DT_NULL_LINK; i = tile.Links[i].Next {
			link := &tile.Links[i]

			// Find link which contains this edge.
			if int(link.Edge) != segMax {
				continue
			}

			// Get pointer to the next polygon.
			lt, lp := q.m_nav.GetTileAndPolyByRefUnsafe(link.Ref)

			// Skip off-mesh connections.
			if lp.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
				continue
			}
			// Skip links based on filter.
			if !filter.PassFilter(lp) {
				continue
			}

			// If the link is internal, just return the ref.
			// If the link is at tile boundary, check if the link spans the whole edge, and accept.
			if link.Side == 0xff || (link.Bmin == 0 && link.Bmax == 255) {
				nextRef, nextTile, nextPoly = link.Ref, lt, lp
				break
			}

			// Check for partial edge links.
			v0 := poly.Verts[link.Edge]
			v1 := poly.Verts[(link.Edge+1)%poly.VertCount]
			left := common.GetVert3(tile.Verts, v0)
			right := common.GetVert3(tile.Verts, v1)

			// Check that the intersection lies inside the link portal.
			const s = 1.0 / 255.0
			axis := -1
			if link.Side == 0 || link.Side == 4 {
				axis = 2
			} else if link.Side == 2 || link.Side == 6 {
				axis = 0
			}
			if axis < 0 {
				continue
			}
			lmin := left[axis] + (right[axis]-left[axis])*(float32(link.Bmin)*s)
			lmax := left[axis] + (right[axis]-left[axis])*(float32(link.Bmax)*s)
			if lmin > lmax {
				lmin, lmax = lmax, lmin
			}
			c := startPos[axis] + (endPos[axis]-startPos[axis])*tmax
			if c >= lmin && c <= lmax {
				nextRef, nextTile, nextPoly = link.Ref, lt, lp
				break
			}
		}

		// add the cost
		if options&DT_RAYCAST_USE_COSTS != 0 {
			// compute the intersection point at the furthest end of the polygon
			// and correct the height (since the raycast moves in 2d)
			lastPos = curPos
			common.Vmad(curPos[:], startPos, dir[:], hit.T)
			e1 := common.GetVert3(verts[:], segMax)
			e2 := common.GetVert3(verts[:], (segMax+1)%nv)
			var eDir, diff [3]float32
			common.Vsub(eDir[:], e2, e1)
			common.Vsub(diff[:], curPos[:], e1)
			var s float32
			if common.Sqr(eDir[0]) > common.Sqr(eDir[2]) {
				s = diff[0] / eDir[0]
			} else {
				s = diff[2] / eDir[2]
			}
			curPos[1] = e1[1] + eDir[1]*s
			hit.PathCost += filter.GetCost(lastPos[:], curPos[:], poly)
		}

		if nextRef == 0 {
			// No neighbour, we hit a wall.
			// Calculate hit normal.
			a := segMax
			b := 0
			if segMax+1 < nv {
				b = segMax + 1
			}
			va := common.GetVert3(verts[:], a)
			vb := common.GetVert3(verts[:], b)
			dx := vb[0] - va[0]
			dz := vb[2] - va[2]
			hit.HitNormal = [3]float32{dz, 0, -dx}
			common.Vnormalize(hit.HitNormal[:])
			return hit, status
		}

		// No hit, advance to neighbour polygon.
		curRef, tile, poly = nextRef, nextTile, nextPoly
	}
	return hit, status
}

func polyArea2D(tile *DtMeshTile, poly *DtPoly) float32 {
	var area float32
	va := common.GetVert3(tile.Verts, poly.Verts[0])
	for j := 2; j < int(poly.VertCount); j++ {
		vb := common.GetVert3(tile.Verts, poly.Verts[j-1])
		vc := common.GetVert3(tile.Verts, poly.Verts[j])
		area += common.TriArea2D(va, vb, vc)
	}
	return area
}

func (q *DtNavMeshQuery) randomPointOnPoly(ref DtPolyRef, tile *DtMeshTile, poly *DtPoly) [3]float32 {
	var verts [3 * DT_VERTS_PER_POLYGON]float32
	nv := collectPolyVerts(tile, poly, verts[:])
	s := q.m_rand()
	t := q.m_rand()
	pt := dtRandomPointInConvexPoly(verts[:], nv, s, t)
	var closest [3]float32
	q.m_nav.ClosestPointOnPoly(ref, pt[:], closest[:])
	return closest
}

// / Returns random location on navmesh.
// / Polygons are chosen weighted by area. The search runs in linear related to number of polygon.
func (q *DtNavMeshQuery) FindRandomPoint(filter *DtQueryFilter) (DtPolyRef, [3]float32, DtStatus) {
	var pt [3]float32
	if filter == nil {
		return 0, pt, DT_FAILURE | DT_INVALID_PARAM
	}
	// Randomly pick one tile. Assume that all tiles cover roughly the same area.
	var tile *DtMeshTile
	tsum := float32(0)
	for i := 0; i < int(q.m_nav.GetMaxTiles()); i++ {
		t := q.m_nav.GetTile(i)
		if t == nil || t.Header == nil {
			continue
		}
		// Choose random tile using reservoir sampling.
		const area = 1.0 // Could be tile area too.
		tsum += area
		if q.m_rand()*tsum <= area {
			tile = t
		}
	}
	if tile == nil {
		return 0, pt, DT_FAILURE
	}

	// Randomly pick one polygon weighted by polygon area.
	var poly *DtPoly
	var polyRef DtPolyRef
	base := q.m_nav.GetPolyRefBase(tile)
	areaSum := float32(0)
	for i := range tile.Polys {
		p := &tile.Polys[i]
		// Do not return off-mesh connection polygons.
		if p.GetType() != DT_POLYTYPE_GROUND || !filter.PassFilter(p) {
			continue
		}
		// Choose random polygon weighted by area, using reservoir sampling.
		polyArea := polyArea2D(tile, p)
		areaSum += polyArea
		if q.m_rand()*areaSum <= polyArea {
			poly = p
			polyRef = base | DtPolyRef(i)
		}
	}
	if poly == nil {
		return 0, pt, DT_FAILURE
	}
	return polyRef, q.randomPointOnPoly(polyRef, tile, poly), DT_SUCCESS
}

// / @par
// /
// / The location is not exactly constrained by the circle, but it limits the visited polygons.
func (q *DtNavMeshQuery) FindRandomPointAroundCircle(startRef DtPolyRef, centerPos []float32, maxRadius float32, filter *DtQueryFilter) (DtPolyRef, [3]float32, DtStatus) {
	var pt [3]float32
	// Validate input
	if !q.m_nav.IsValidPolyRef(startRef) ||
		len(centerPos) < 3 || !common.Visfinite(centerPos) ||
		maxRadius < 0 || !common.IsFinite(maxRadius) ||
		filter == nil {
		return 0, pt, DT_FAILURE | DT_INVALID_PARAM
	}
	_, startPoly := q.m_nav.GetTileAndPolyByRefUnsafe(startRef)
	if !filter.PassFilter(startPoly) {
		return 0, pt, DT_FAILURE | DT_INVALID_PARAM
	}

	q.m_nodePool.Clear()
	q.m_openList.Reset()

	startNode := q.m_nodePool.GetNode(startRef, 0)
	copy(startNode.Pos[:], centerPos)
	startNode.Flags = DT_NODE_OPEN
	q.m_openList.Offer(startNode)

	status := DT_SUCCESS
	radiusSqr := common.Sqr(maxRadius)
	areaSum := float32(0)

	var randomTile *DtMeshTile
	var randomPoly *DtPoly
	var randomPolyRef DtPolyRef

	for !q.m_openList.Empty() {
		bestNode := q.m_openList.Poll()
		bestNode.Flags &^= DT_NODE_OPEN
		bestNode.Flags |= DT_NODE_CLOSED

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.m_nav.GetTileAndPolyByRefUnsafe(bestRef)

		// Place random locations on on ground.
		if bestPoly.GetType() == DT_POLYTYPE_GROUND {
			// Choose random polygon weighted by area, using reservoir sampling.
			polyArea := polyArea2D(bestTile, bestPoly)
			areaSum += polyArea
			if q.m_rand()*areaSum <= polyArea {
				randomTile = bestTile
				randomPoly = bestPoly
				randomPolyRef = bestRef
			}
		}

		// Get parent poly and tile.
		var parentRef DtPolyRef
		if parent := q.m_nodePool.GetNodeAtIdx(bestNode.Pidx); parent != nil {
			parentRef = parent.Id
		}

		for i := bestPoly.FirstLink; i != DT_NULL_LINK; i = bestTile.Links[i].Next {
			neighbourRef := bestTile.Links[i].Ref
			// Skip invalid neighbours and do not follow back to parent.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Expand to neighbour
			neighbourTile, neighbourPoly := q.m_nav.GetTileAndPolyByRefUnsafe(neighbourRef)

			// Do not advance if the polygon is excluded by the filter.
			if !filter.PassFilter(neighbourPoly) {
				continue
			}

			// Find edge and calc distance to the edge.
			var va, vb [3]float32
			if q.getPortalPoints(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, va[:], vb[:]).DtStatusFailed() {
				continue
			}

			// If the circle is not touching the next polygon, skip it.
			if _, distSqr := DtDistancePtSegSqr2D(centerPos, va[:], vb[:]); distSqr > radiusSqr {
				continue
			}

			neighbourNode := q.m_nodePool.GetNode(neighbourRef, 0)
			if neighbourNode == nil {
				status |= DT_OUT_OF_NODES
				continue
			}
			if neighbourNode.Flags&DT_NODE_CLOSED != 0 {
				continue
			}

			// Cost
			if neighbourNode.Flags == 0 {
				common.Vlerp(neighbourNode.Pos[:], va[:], vb[:], 0.5)
			}
			total := bestNode.Total + common.Vdist(bestNode.Pos[:], neighbourNode.Pos[:])

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&DT_NODE_OPEN != 0 && total >= neighbourNode.Total {
				continue
			}

			neighbourNode.Flags &^= DT_NODE_CLOSED
			neighbourNode.Pidx = q.m_nodePool.GetNodeIdx(bestNode)
			neighbourNode.Total = total

			if neighbourNode.Flags&DT_NODE_OPEN != 0 {
				q.m_openList.Update(neighbourNode)
			} else {
				neighbourNode.Flags = DT_NODE_OPEN
				q.m_openList.Offer(neighbourNode)
			}
		}
	}

	if randomPoly == nil {
		return 0, pt, DT_FAILURE
	}
	return randomPolyRef, q.randomPointOnPoly(randomPolyRef, randomTile, randomPoly), status
}

// / @par
// /
// / This method is optimized for small delta movement and a small number of
// / polygons. If used for too great a distance, the result set will form an
// / incomplete path.
// /
// / The result position will equal the @p endPos if the end is reached.
// / Otherwise the closest reachable position will be returned.
// /
// / The result position is not projected onto the surface of the navigation
// / mesh. Use #GetPolyHeight if this is needed.
// /
// / If more than @p maxVisited polygons are visited the list is filled as far
// / as possible from the start position and the status carries
// / #DT_BUFFER_TOO_SMALL.
func (q *DtNavMeshQuery) MoveAlongSurface(startRef DtPolyRef, startPos, endPos []float32, filter *DtQueryFilter, maxVisited int) (resultPos [3]float32, visited []DtPolyRef, status DtStatus) {
	if !q.m_nav.IsValidPolyRef(startRef) ||
		len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		filter == nil || maxVisited <= 0 {
		return resultPos, nil, DT_FAILURE | DT_INVALID_PARAM
	}

	status = DT_SUCCESS
	stack := make([]*DtNode, 0, maxMoveAlongStack)

	q.m_tinyNodePool.Clear()
	startNode := q.m_tinyNodePool.GetNode(startRef, 0)
	startNode.Flags = DT_NODE_CLOSED
	stack = append(stack, startNode)

	bestDist := float32(math.MaxFloat32)
	var bestPos [3]float32
	copy(bestPos[:], startPos)
	var bestNode *DtNode

	// Search constraints
	var searchPos [3]float32
	common.Vlerp(searchPos[:], startPos, endPos, 0.5)
	searchRadSqr := common.Sqr(common.Vdist(startPos, endPos)/2.0 + 0.001)

	var verts [DT_VERTS_PER_POLYGON * 3]float32

	for len(stack) > 0 {
		// Pop front.
		curNode := stack[0]
		stack = append(stack[:0], stack[1:]...)

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		curRef := curNode.Id
		curTile, curPoly := q.m_nav.GetTileAndPolyByRefUnsafe(curRef)

		// Collect vertices.
		nverts := collectPolyVerts(curTile, curPoly, verts[:])

		// If target is inside the poly, stop search.
		if dtPointInPolygon(endPos, verts[:], nverts) {
			bestNode = curNode
			copy(bestPos[:], endPos)
			break
		}

		// Find wall edges and find nearest point inside the walls.
		for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
			// Find links to neighbours.
			const maxNeis = 8
			var neis []DtPolyRef

			if curPoly.Neis[j]&DT_EXT_LINK != 0 {
				// Tile border.
				for k := curPoly.FirstLink; k != DT_NULL_LINK; k = curTile.Links[k].Next {
					link := &curTile.Links[k]
					if int(link.Edge) == j && link.Ref != 0 {
						_, neiPoly := q.m_nav.GetTileAndPolyByRefUnsafe(link.Ref)
						if filter.PassFilter(neiPoly) && len(neis) < maxNeis {
							neis = append(neis, link.Ref)
						}
					}
				}
			} else if curPoly.Neis[j] != 0 {
				idx := uint32(curPoly.Neis[j] - 1)
				if filter.PassFilter(&curTile.Polys[idx]) {
					// Internal edge, encode id.
					neis = append(neis, q.m_nav.GetPolyRefBase(curTile)|DtPolyRef(idx))
				}
			}

			vj := common.GetVert3(verts[:], j)
			vi := common.GetVert3(verts[:], i)
			if len(neis) == 0 {
				// Wall edge, calc distance.
				tseg, distSqr := DtDistancePtSegSqr2D(endPos, vj, vi)
				if distSqr < bestDist {
					// Update nearest distance.
					common.Vlerp(bestPos[:], vj, vi, tseg)
					bestDist = distSqr
					bestNode = curNode
				}
				continue
			}
			for _, nei := range neis {
				// Skip if no node can be allocated.
				neighbourNode := q.m_tinyNodePool.GetNode(nei, 0)
				if neighbourNode == nil {
					continue
				}
				// Skip if already visited.
				if neighbourNode.Flags&DT_NODE_CLOSED != 0 {
					continue
				}
				// Skip the link if it is too far from search constraint.
				if _, distSqr := DtDistancePtSegSqr2D(searchPos[:], vj, vi); distSqr > searchRadSqr {
					continue
				}
				// Mark as the node as visited and push to queue.
				if len(stack) < maxMoveAlongStack {
					neighbourNode.Pidx = q.m_tinyNodePool.GetNodeIdx(curNode)
					neighbourNode.Flags |= DT_NODE_CLOSED
					stack = append(stack, neighbourNode)
				}
			}
		}
	}

	if bestNode != nil {
		// Collect the path backwards, then reverse it.
		for node := bestNode; node != nil; node = q.m_tinyNodePool.GetNodeAtIdx(node.Pidx) {
			visited = append(visited, node.Id)
		}
		for l, r := 0, len(visited)-1; l < r; l, r = l+1, r-1 {
			visited[l], visited[r] = visited[r], visited[l]
		}
		if len(visited) > maxVisited {
			visited = visited[:maxVisited]
			status |= DT_BUFFER_TOO_SMALL
		}
	}
	return bestPos, visited, status
}
