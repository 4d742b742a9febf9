package debug_utils

import (
	"math"
)

type DuDebugDrawPrimitives int

const (
	DU_DRAW_POINTS DuDebugDrawPrimitives = iota
	DU_DRAW_LINES
	DU_DRAW_TRIS
)

// vertsPerPrim is the number of vertices that close one primitive.
func (p DuDebugDrawPrimitives) vertsPerPrim() int {
	switch p {
	case DU_DRAW_LINES:
		return 2
	case DU_DRAW_TRIS:
		return 3
	}
	return 1
}

type DuDebugDraw interface {
	/// Begin drawing primitives.
	///  @param prim [in] primitive type to draw.
	///  @param size [in] size of a primitive, applies to point size and line width only.
	Begin(prim DuDebugDrawPrimitives, size ...float32)

	/// Submit a vertex
	///  @param pos [in] position of the verts.
	///  @param color [in] color of the verts.
	Vertex(pos []float32, color Colorb)

	/// Submit a vertex
	///  @param x,y,z [in] position of the verts.
	///  @param color [in] color of the verts.
	Vertex1(x, y, z float32, color Colorb)

	/// End drawing primitives.
	End()

	/// Compute a color for given area.
	AreaToCol(area int) Colorb
}

func DuDebugDrawCylinderWire(dd DuDebugDraw, minx, miny, minz,
	maxx, maxy, maxz float32, col Colorb, lineWidth float32) {
	if dd == nil {
		return
	}
	dd.Begin(DU_DRAW_LINES, lineWidth)
	DuAppendCylinderWire(dd, minx, miny, minz, maxx, maxy, maxz, col)
	dd.End()
}

func DuDebugDrawBoxWire(dd DuDebugDraw, minx, miny, minz,
	maxx, maxy, maxz float32, col Colorb, lineWidth float32) {
	if dd == nil {
		return
	}
	dd.Begin(DU_DRAW_LINES, lineWidth)
	DuAppendBoxWire(dd, minx, miny, minz, maxx, maxy, maxz, col)
	dd.End()
}

const cylinderSegments = 16

var cylinderDirs = func() (dir [cylinderSegments * 2]float32) {
	for i := 0; i < cylinderSegments; i++ {
		a := float64(i) / cylinderSegments * math.Pi * 2
		dir[i*2] = float32(math.Cos(a))
		dir[i*2+1] = float32(math.Sin(a))
	}
	return
}()

func DuAppendCylinderWire(dd DuDebugDraw, minx, miny, minz,
	maxx, maxy, maxz float32, col Colorb) {
	if dd == nil {
		return
	}
	dir := cylinderDirs[:]
	cx := (maxx + minx) / 2
	cz := (maxz + minz) / 2
	rx := (maxx - minx) / 2
	rz := (maxz - minz) / 2

	for i, j := 0, cylinderSegments-1; i < cylinderSegments; j, i = i, i+1 {
		dd.Vertex1(cx+dir[j*2+0]*rx, miny, cz+dir[j*2+1]*rz, col)
		dd.Vertex1(cx+dir[i*2+0]*rx, miny, cz+dir[i*2+1]*rz, col)
		dd.Vertex1(cx+dir[j*2+0]*rx, maxy, cz+dir[j*2+1]*rz, col)
		dd.Vertex1(cx+dir[i*2+0]*rx, maxy, cz+dir[i*2+1]*rz, col)
	}
	for i := 0; i < cylinderSegments; i += cylinderSegments / 4 {
		dd.Vertex1(cx+dir[i*2+0]*rx, miny, cz+dir[i*2+1]*rz, col)
		dd.Vertex1(cx+dir[i*2+0]*rx, maxy, cz+dir[i*2+1]*rz, col)
	}
}

func DuAppendBoxWire(dd DuDebugDraw, minx, miny, minz, maxx, maxy, maxz float32, col Colorb) {
	if dd == nil {
		return
	}
	// Bottom
	dd.Vertex1(minx, miny, minz, col)
	dd.Vertex1(maxx, miny, minz, col)
	dd.Vertex1(maxx, miny, minz, col)
	dd.Vertex1(maxx, miny, maxz, col)
	dd.Vertex1(maxx, miny, maxz, col)
	dd.Vertex1(minx, miny, maxz, col)
	dd.Vertex1(minx, miny, maxz, col)
	dd.Vertex1(minx, miny, minz, col)

	// Top
	dd.Vertex1(minx, maxy, minz, col)
	dd.Vertex1(maxx, maxy, minz, col)
	dd.Vertex1(maxx, maxy, minz, col)
	dd.Vertex1(maxx, maxy, maxz, col)
	dd.Vertex1(maxx, maxy, maxz, col)
	dd.Vertex1(minx, maxy, maxz, col)
	dd.Vertex1(minx, maxy, maxz, col)
	dd.Vertex1(minx, maxy, minz, col)

	// Sides
	dd.Vertex1(minx, miny, minz, col)
	dd.Vertex1(minx, maxy, minz, col)
	dd.Vertex1(maxx, miny, minz, col)
	dd.Vertex1(maxx, maxy, minz, col)
	dd.Vertex1(maxx, miny, maxz, col)
	dd.Vertex1(maxx, maxy, maxz, col)
	dd.Vertex1(minx, miny, maxz, col)
	dd.Vertex1(minx, maxy, maxz, col)
}

// DuAppendOrientedBoxWire draws the footprint of a y-rotated box as a prism.
// rotAux is the packed rotation stored with oriented box obstacles.
func DuAppendOrientedBoxWire(dd DuDebugDraw, center, halfExtents [3]float32, rotAux [2]float32, col Colorb) {
	if dd == nil {
		return
	}
	// Inverse of the rotation applied by the oriented box marker.
	c := 2 * rotAux[1]
	s := 2 * rotAux[0]
	var corners [4][2]float32
	for i, sign := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		lx, lz := sign[0]*halfExtents[0], sign[1]*halfExtents[2]
		corners[i] = [2]float32{center[0] + c*lx - s*lz, center[2] + s*lx + c*lz}
	}
	miny, maxy := center[1]-halfExtents[1], center[1]+halfExtents[1]
	for i, j := 0, 3; i < 4; j, i = i, i+1 {
		a, b := corners[j], corners[i]
		dd.Vertex1(a[0], miny, a[1], col)
		dd.Vertex1(b[0], miny, b[1], col)
		dd.Vertex1(a[0], maxy, a[1], col)
		dd.Vertex1(b[0], maxy, b[1], col)
		dd.Vertex1(b[0], miny, b[1], col)
		dd.Vertex1(b[0], maxy, b[1], col)
	}
}
