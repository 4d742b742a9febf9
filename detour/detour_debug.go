package detour

import (
	"github.com/gorustyt/tilenav/common"
)

// DtDebugTriangle is one triangle of the debug view, tagged with the owning polygon.
type DtDebugTriangle struct {
	Points [3]common.Vec3
	Ref    DtPolyRef
	Area   uint8
	Flags  uint16
}

// DtDebugNavMesh is a read-only triangle soup of every ground polygon.
type DtDebugNavMesh struct {
	Triangles []DtDebugTriangle
}

// GetDebugNavMesh triangulates all ground polygons of all tiles using their
// detail meshes.
func (mesh *DtNavMesh) GetDebugNavMesh() *DtDebugNavMesh {
	dm := &DtDebugNavMesh{}
	for i := int32(0); i < mesh.m_maxTiles; i++ {
		tile := mesh.m_tiles[i]
		if tile == nil || tile.Header == nil {
			continue
		}
		base := mesh.GetPolyRefBase(tile)
		for ip := range tile.Polys {
			poly := &tile.Polys[ip]
			if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
				continue
			}
			ref := base | DtPolyRef(ip)
			forEachDetailTri(tile, uint32(ip), func(v [3][]float32, _ uint8) bool {
				dm.Triangles = append(dm.Triangles, DtDebugTriangle{
					Points: [3]common.Vec3{common.ToVec3(v[0]), common.ToVec3(v[1]), common.ToVec3(v[2])},
					Ref:    ref,
					Area:   poly.GetArea(),
					Flags:  poly.Flags,
				})
				return true
			})
		}
	}
	return dm
}
