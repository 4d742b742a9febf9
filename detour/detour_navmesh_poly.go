package detour

import (
	"math"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/rw"
)

// QueryPolygonsInTile returns the refs of the ground polygons of tile whose
// bounds overlap the query box.
func (mesh *DtNavMesh) QueryPolygonsInTile(tile *DtMeshTile, qmin, qmax []float32, maxPolys int) []DtPolyRef {
	var polys []DtPolyRef
	base := mesh.GetPolyRefBase(tile)
	if len(tile.BvTree) > 0 {
		tbmin := tile.Header.Bmin
		tbmax := tile.Header.Bmax
		qfac := tile.Header.BvQuantFactor

		// Calculate quantized box
		var bmin, bmax [3]uint16
		// dtClamp query box to world box.
		minx := common.Clamp(qmin[0], tbmin[0], tbmax[0]) - tbmin[0]
		miny := common.Clamp(qmin[1], tbmin[1], tbmax[1]) - tbmin[1]
		minz := common.Clamp(qmin[2], tbmin[2], tbmax[2]) - tbmin[2]
		maxx := common.Clamp(qmax[0], tbmin[0], tbmax[0]) - tbmin[0]
		maxy := common.Clamp(qmax[1], tbmin[1], tbmax[1]) - tbmin[1]
		maxz := common.Clamp(qmax[2], tbmin[2], tbmax[2]) - tbmin[2]
		// Quantize
		bmin[0] = uint16(qfac*minx) & 0xfffe
		bmin[1] = uint16(qfac*miny) & 0xfffe
		bmin[2] = uint16(qfac*minz) & 0xfffe
		bmax[0] = uint16(qfac*maxx+1) | 1
		bmax[1] = uint16(qfac*maxy+1) | 1
		bmax[2] = uint16(qfac*maxz+1) | 1

		// Traverse tree
		nodeIdx := 0
		end := len(tile.BvTree)
		for nodeIdx < end {
			node := &tile.BvTree[nodeIdx]
			overlap := dtOverlapQuantBounds(bmin, bmax, node.Bmin, node.Bmax)
			isLeafNode := node.I >= 0

			if isLeafNode && overlap && len(polys) < maxPolys {
				polys = append(polys, base|DtPolyRef(node.I))
			}
			if overlap || isLeafNode {
				nodeIdx++
			} else {
				nodeIdx += int(-node.I)
			}
		}
		return polys
	}

	var bmin, bmax [3]float32
	for i := range tile.Polys {
		p := &tile.Polys[i]
		// Do not return off-mesh connection polygons.
		if p.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		// Calc polygon bounds.
		v := common.GetVert3(tile.Verts, p.Verts[0])
		copy(bmin[:], v)
		copy(bmax[:], v)
		for j := 1; j < int(p.VertCount); j++ {
			v = common.GetVert3(tile.Verts, p.Verts[j])
			common.Vmin(bmin[:], v)
			common.Vmax(bmax[:], v)
		}
		if common.DtOverlapBounds(qmin, qmax, bmin[:], bmax[:]) && len(polys) < maxPolys {
			polys = append(polys, base|DtPolyRef(i))
		}
	}
	return polys
}

func (mesh *DtNavMesh) findNearestPolyInTile(tile *DtMeshTile, center, halfExtents []float32) (nearest DtPolyRef, nearestPt [3]float32) {
	var bmin, bmax [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	// Get nearby polygons from proximity grid.
	polys := mesh.QueryPolygonsInTile(tile, bmin[:], bmax[:], 128)

	// Find nearest polygon amongst the nearby polygons.
	nearestDistanceSqr := float32(math.MaxFloat32)
	var closestPtPoly, diff [3]float32
	for _, ref := range polys {
		posOverPoly := mesh.ClosestPointOnPoly(ref, center, closestPtPoly[:])

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
			nearest = ref
		}
	}
	return nearest, nearestPt
}

// forEachDetailTri visits the detail triangles of polygon ip. Tiles built
// without a detail mesh fall back to a fan over the polygon vertices.
func forEachDetailTri(tile *DtMeshTile, ip uint32, fn func(v [3][]float32, flags uint8) bool) {
	poly := &tile.Polys[ip]
	nv := poly.VertCount
	if int(ip) < len(tile.DetailMeshes) {
		pd := &tile.DetailMeshes[ip]
		for j := uint32(0); j < uint32(pd.TriCount); j++ {
			t := tile.DetailTris[(pd.TriBase+j)*4:]
			var v [3][]float32
			for k := 0; k < 3; k++ {
				if t[k] < nv {
					v[k] = common.GetVert3(tile.Verts, poly.Verts[t[k]])
				} else {
					v[k] = common.GetVert3(tile.DetailVerts, pd.VertBase+uint32(t[k]-nv))
				}
			}
			if !fn(v, t[3]) {
				return
			}
		}
		return
	}
	for j := uint8(2); j < nv; j++ {
		flags := uint8(DT_DETAIL_EDGE_BOUNDARY << 2)
		if j == 2 {
			flags |= DT_DETAIL_EDGE_BOUNDARY
		}
		if j == nv-1 {
			flags |= DT_DETAIL_EDGE_BOUNDARY << 4
		}
		v := [3][]float32{
			common.GetVert3(tile.Verts, poly.Verts[0]),
			common.GetVert3(tile.Verts, poly.Verts[j-1]),
			common.GetVert3(tile.Verts, poly.Verts[j]),
		}
		if !fn(v, flags) {
			return
		}
	}
}

func closestPointOnDetailEdges(tile *DtMeshTile, ip uint32, pos []float32, onlyBoundary bool) (closest [3]float32) {
	dmin := float32(math.MaxFloat32)
	tmin := float32(0)
	var pmin, pmax []float32
	forEachDetailTri(tile, ip, func(v [3][]float32, flags uint8) bool {
		for k, j := 0, 2; k < 3; j, k = k, k+1 {
			if onlyBoundary && dtGetDetailTriEdgeFlags(flags, j)&DT_DETAIL_EDGE_BOUNDARY == 0 {
				continue
			}
			t, d := DtDistancePtSegSqr2D(pos, v[j], v[k])
			if d < dmin {
				dmin = d
				tmin = t
				pmin = v[j]
				pmax = v[k]
			}
		}
		return true
	})
	if pmin == nil {
		copy(closest[:], pos)
		return closest
	}
	common.Vlerp(closest[:], pmin, pmax, tmin)
	return closest
}

// GetPolyHeight returns the detail mesh height of pos inside ground polygon ip.
// The second result is false if pos is outside the polygon's xz footprint.
func (mesh *DtNavMesh) GetPolyHeight(tile *DtMeshTile, ip uint32, pos []float32) (float32, bool) {
	poly := &tile.Polys[ip]
	// Off-mesh connections do not have detail polys and getting height
	// over them does not make sense.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		return 0, false
	}
	nv := int(poly.VertCount)
	var verts [3 * DT_VERTS_PER_POLYGON]float32
	for i := 0; i < nv; i++ {
		copy(verts[i*3:i*3+3], common.GetVert3(tile.Verts, poly.Verts[i]))
	}
	if !dtPointInPolygon(pos, verts[:], nv) {
		return 0, false
	}

	// Find height at the location.
	var h float32
	found := false
	forEachDetailTri(tile, ip, func(v [3][]float32, _ uint8) bool {
		h, found = dtClosestHeightPointTriangle(pos, v[0], v[1], v[2])
		return !found
	})
	if found {
		return h, true
	}

	// If all triangle checks failed above (can happen with degenerate triangles
	// or larger floating point values) the point is on an edge, so just select closest.
	closest := closestPointOnDetailEdges(tile, ip, pos, false)
	return closest[1], true
}

// ClosestPointOnPoly writes the point on polygon ref closest to pos and
// reports whether pos lies over the polygon. The ref must be valid.
func (mesh *DtNavMesh) ClosestPointOnPoly(ref DtPolyRef, pos, closest []float32) (posOverPoly bool) {
	tile, poly := mesh.GetTileAndPolyByRefUnsafe(ref)
	ip := mesh.DecodePolyIdPoly(ref)
	common.Vcopy(closest, pos)
	if h, ok := mesh.GetPolyHeight(tile, ip, pos); ok {
		closest[1] = h
		return true
	}

	// Off-mesh connections don't have detail polygons.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		v0 := common.GetVert3(tile.Verts, poly.Verts[0])
		v1 := common.GetVert3(tile.Verts, poly.Verts[1])
		t, _ := DtDistancePtSegSqr2D(pos, v0, v1)
		common.Vlerp(closest, v0, v1, t)
		return false
	}

	// Outside poly that is not an offmesh connection.
	c := closestPointOnDetailEdges(tile, ip, pos, true)
	copy(closest, c[:])
	return false
}

const dtTileStateHeaderSize = 12
const dtPolyStateSize = 3

// / Gets the size of the buffer required by #StoreTileState to store the specified tile's state.
func (mesh *DtNavMesh) GetTileStateSize(tile *DtMeshTile) int {
	if tile == nil || tile.Header == nil {
		return 0
	}
	return dtTileStateHeaderSize + dtPolyStateSize*int(tile.Header.PolyCount)
}

// / Stores the non-structural state of the tile: the tile reference, and the
// / flags and area of every polygon.
func (mesh *DtNavMesh) StoreTileState(tile *DtMeshTile) ([]byte, DtStatus) {
	if tile == nil || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	w := rw.NewNavMeshDataBinWriter()
	w.WriteInt32(DT_NAVMESH_STATE_MAGIC)
	w.WriteInt32(DT_NAVMESH_STATE_VERSION)
	w.WriteUInt32(uint32(mesh.GetTileRef(tile)))
	for i := range tile.Polys {
		w.WriteUInt16(tile.Polys[i].Flags)
		w.WriteUInt8(tile.Polys[i].GetArea())
	}
	return w.GetWriteBytes(), DT_SUCCESS
}

// / Restores the state of the tile. The stored tile reference (and with it the
// / salt) must match the tile, otherwise nothing is modified.
func (mesh *DtNavMesh) RestoreTileState(tile *DtMeshTile, data []byte) DtStatus {
	if tile == nil || tile.Header == nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	if len(data) < dtTileStateHeaderSize {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	r := rw.NewNavMeshDataBinReader(data)
	if r.ReadInt32() != DT_NAVMESH_STATE_MAGIC {
		return DT_FAILURE | DT_WRONG_MAGIC
	}
	if r.ReadInt32() != DT_NAVMESH_STATE_VERSION {
		return DT_FAILURE | DT_WRONG_VERSION
	}
	if DtTileRef(r.ReadUInt32()) != mesh.GetTileRef(tile) {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	if len(data) != mesh.GetTileStateSize(tile) {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	for i := range tile.Polys {
		tile.Polys[i].Flags = r.ReadUInt16()
		tile.Polys[i].SetArea(r.ReadUInt8())
	}
	if r.Err() != nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	return DT_SUCCESS
}
