package debug_utils

import (
	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_tile_cache"
)

func drawTriangles(dd DuDebugDraw, mesh *detour.DtDebugNavMesh, color func(t *detour.DtDebugTriangle) (Colorb, bool)) {
	dd.Begin(DU_DRAW_TRIS)
	for i := range mesh.Triangles {
		t := &mesh.Triangles[i]
		col, ok := color(t)
		if !ok {
			continue
		}
		for k := 0; k < 3; k++ {
			dd.Vertex(t.Points[k][:], col)
		}
	}
	dd.End()
}

// DuDebugDrawNavMesh draws every ground triangle colored by its area.
func DuDebugDrawNavMesh(dd DuDebugDraw, mesh *detour.DtDebugNavMesh) {
	if dd == nil || mesh == nil {
		return
	}
	drawTriangles(dd, mesh, func(t *detour.DtDebugTriangle) (Colorb, bool) {
		return DuTransCol(dd.AreaToCol(int(t.Area)), 64), true
	})
}

// DuDebugDrawNavMeshPolysWithFlags draws the triangles of polygons having any of polyFlags.
func DuDebugDrawNavMeshPolysWithFlags(dd DuDebugDraw, mesh *detour.DtDebugNavMesh, polyFlags uint16, col Colorb) {
	if dd == nil || mesh == nil {
		return
	}
	drawTriangles(dd, mesh, func(t *detour.DtDebugTriangle) (Colorb, bool) {
		return col, t.Flags&polyFlags != 0
	})
}

// DuDebugDrawObstacles draws a wire shape for every live obstacle of tc.
func DuDebugDrawObstacles(dd DuDebugDraw, tc *detour_tile_cache.DtTileCache) {
	if dd == nil || tc == nil {
		return
	}
	col := DuRGBA(255, 0, 0, 128)
	dd.Begin(DU_DRAW_LINES, 2.0)
	for _, ref := range tc.Obstacles() {
		ob := tc.GetObstacleByRef(ref)
		switch ob.Type {
		case detour_tile_cache.DT_OBSTACLE_CYLINDER:
			bmin, bmax := tc.GetObstacleBounds(ob)
			DuAppendCylinderWire(dd, bmin[0], bmin[1], bmin[2], bmax[0], bmax[1], bmax[2], col)
		case detour_tile_cache.DT_OBSTACLE_BOX:
			b := &ob.Box
			DuAppendBoxWire(dd, b.Bmin[0], b.Bmin[1], b.Bmin[2], b.Bmax[0], b.Bmax[1], b.Bmax[2], col)
		case detour_tile_cache.DT_OBSTACLE_ORIENTED_BOX:
			o := &ob.OrientedBox
			DuAppendOrientedBoxWire(dd, o.Center, o.HalfExtents, o.RotAux, col)
		}
	}
	dd.End()
}

// DuDebugDrawStraightPath draws the segments between consecutive waypoints.
func DuDebugDrawStraightPath(dd DuDebugDraw, points []common.Vec3, col Colorb) {
	if dd == nil || len(points) < 2 {
		return
	}
	dd.Begin(DU_DRAW_LINES, 2.0)
	for i := 1; i < len(points); i++ {
		dd.Vertex(points[i-1][:], col)
		dd.Vertex(points[i][:], col)
	}
	dd.End()
}
