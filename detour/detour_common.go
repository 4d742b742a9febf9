package detour

import (
	"math"

	"github.com/gorustyt/tilenav/common"
)

// DtDistancePtSegSqr2D returns the squared xz distance from pt to segment pq
// and the parameter of the closest point along the segment.
func DtDistancePtSegSqr2D(pt, p, q []float32) (t float32, distSqr float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t = pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return t, dx*dx + dz*dz
}

func dtClosestHeightPointTriangle(p, a, b, c []float32) (h float32, ok bool) {
	const EPS = 1e-6
	var v0, v1, v2 [3]float32
	common.Vsub(v0[:], c, a)
	common.Vsub(v1[:], b, a)
	common.Vsub(v2[:], p, a)

	// Compute scaled barycentric coordinates
	denom := v0[0]*v1[2] - v0[2]*v1[0]
	if math.Abs(float64(denom)) < EPS {
		return h, false
	}
	u := v1[2]*v2[0] - v1[0]*v2[2]
	v := v0[0]*v2[2] - v0[2]*v2[0]

	if denom < 0 {
		denom = -denom
		u = -u
		v = -v
	}

	// If point lies inside the triangle, return interpolated ycoord.
	if u >= 0.0 && v >= 0.0 && (u+v) <= denom {
		h = a[1] + (v0[1]*u+v1[1]*v)/denom
		return h, true
	}
	return h, false
}

func dtOppositeTile(side int32) int32 { return (side + 4) & 0x7 }

// / Determines if two axis-aligned bounding boxes overlap.
// / @see DtOverlapBounds
func dtOverlapQuantBounds(amin, amax, bmin, bmax [3]uint16) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

// Returns a random point in a convex polygon.
// Adapted from Graphics Gems article.
func dtRandomPointInConvexPoly(pts []float32, npts int, s, t float32) (pt [3]float32) {
	areas := make([]float32, npts)
	areasum := float32(0.0)
	for i := 2; i < npts; i++ {
		areas[i] = common.TriArea2D(pts[0:3], common.GetVert3(pts, i-1), common.GetVert3(pts, i))
		areasum += max(0.001, areas[i])
	}
	// Find sub triangle weighted by area.
	thr := s * areasum
	acc := float32(0.0)
	u := float32(1.0)
	tri := npts - 1
	for i := 2; i < npts; i++ {
		dacc := areas[i]
		if thr >= acc && thr < (acc+dacc) {
			u = (thr - acc) / dacc
			tri = i
			break
		}
		acc += dacc
	}

	v := float32(math.Sqrt(float64(t)))

	a := 1 - v
	b := (1 - u) * v
	c := u * v
	pa := pts[0:3]
	pb := common.GetVert3(pts, tri-1)
	pc := common.GetVert3(pts, tri)

	pt[0] = a*pa[0] + b*pb[0] + c*pc[0]
	pt[1] = a*pa[1] + b*pb[1] + c*pc[1]
	pt[2] = a*pa[2] + b*pb[2] + c*pc[2]
	return pt
}

// dtPointInPolygon tests pt against the xz projection of a polygon.
func dtPointInPolygon(pt, verts []float32, nverts int) bool {
	c := false
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := common.GetVert3(verts, i)
		vj := common.GetVert3(verts, j)
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) &&
			(pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
	}
	return c
}

// dtDistancePtPolyEdgesSqr fills ed/et with the squared distance and segment
// parameter to every edge and reports whether pt is inside the polygon.
func dtDistancePtPolyEdgesSqr(pt, verts []float32, nverts int, ed, et []float32) (c bool) {
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := common.GetVert3(verts, i)
		vj := common.GetVert3(verts, j)
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) &&
			(pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		et[j], ed[j] = DtDistancePtSegSqr2D(pt, vj, vi)
	}
	return c
}

func dtIntersectSegmentPoly2D(p0, p1, verts []float32, nverts int) (tmin, tmax float32, segMin, segMax int, ok bool) {
	const EPS = 0.000001

	tmin = 0
	tmax = 1
	segMin = -1
	segMax = -1
	var dir, edge, diff [3]float32
	common.Vsub(dir[:], p1, p0)

	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		common.Vsub(edge[:], common.GetVert3(verts, i), common.GetVert3(verts, j))
		common.Vsub(diff[:], p0, common.GetVert3(verts, j))
		n := common.Vperp2D(edge[:], diff[:])
		d := common.Vperp2D(dir[:], edge[:])
		if math.Abs(float64(d)) < EPS {
			// S is nearly parallel to this edge
			if n < 0 {
				return tmin, tmax, segMin, segMax, false
			}
			continue
		}
		t := n / d
		if d < 0 {
			// segment S is entering across this edge
			if t > tmin {
				tmin = t
				segMin = j
				// S enters after leaving polygon
				if tmin > tmax {
					return tmin, tmax, segMin, segMax, false
				}
			}
		} else {
			// segment S is leaving across this edge
			if t < tmax {
				tmax = t
				segMax = j
				// S leaves before entering polygon
				if tmax < tmin {
					return tmin, tmax, segMin, segMax, false
				}
			}
		}
	}
	return tmin, tmax, segMin, segMax, true
}

// / Gets the edge flags for the specified detail triangle edge.
func dtGetDetailTriEdgeFlags(triFlags uint8, edgeIndex int) int {
	return int(triFlags>>(edgeIndex*2)) & 0x3
}

// dtIntersectSegSeg2D intersects segments ap-aq and bp-bq on the xz-plane and
// returns the parameters along each segment.
func dtIntersectSegSeg2D(ap, aq, bp, bq []float32) (s, t float32, ok bool) {
	var u, v, w [3]float32
	common.Vsub(u[:], aq, ap)
	common.Vsub(v[:], bq, bp)
	common.Vsub(w[:], ap, bp)
	d := common.Vperp2D(u[:], v[:])
	if common.Abs(d) < 1e-6 {
		return 0, 0, false
	}
	s = common.Vperp2D(v[:], w[:]) / d
	t = common.Vperp2D(u[:], w[:]) / d
	return s, t, true
}

// DtClosestHeightPointTriangle returns the height of triangle abc below or
// above p, and false when p is outside the triangle on the xz plane.
func DtClosestHeightPointTriangle(p, a, b, c []float32) (float32, bool) {
	return dtClosestHeightPointTriangle(p, a, b, c)
}
