package detour

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testWalkFlag     uint16 = 0x01
	testDisabledFlag uint16 = 0x02
	testGroundArea   uint8  = 1
)

// gridTile describes an n*n tile of unit quads. Blocked cells produce no polygon.
type gridTile struct {
	tx, ty  int32
	n       int
	cs      float32
	blocked func(x, z int) bool
}

func (g gridTile) isBlocked(x, z int) bool {
	return g.blocked != nil && g.blocked(x, z)
}

// quad edge k faces: 0 -x, 1 +z, 2 +x, 3 -z.
var quadEdgeDir = [4][2]int{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

func buildGridParams(g gridTile) *DtNavMeshCreateParams {
	const nvp = 6
	n := g.n
	vidx := func(x, z int) uint16 { return uint16(z*(n+1) + x) }

	var verts []uint16
	for z := 0; z <= n; z++ {
		for x := 0; x <= n; x++ {
			verts = append(verts, uint16(x), 0, uint16(z))
		}
	}

	cellPoly := make(map[[2]int]int)
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			if !g.isBlocked(x, z) {
				cellPoly[[2]int{x, z}] = len(cellPoly)
			}
		}
	}

	polys := make([]uint16, len(cellPoly)*nvp*2)
	for i := range polys {
		polys[i] = MESH_NULL_IDX
	}
	for cell, ip := range cellPoly {
		x, z := cell[0], cell[1]
		p := polys[ip*nvp*2:]
		p[0] = vidx(x, z)
		p[1] = vidx(x, z+1)
		p[2] = vidx(x+1, z+1)
		p[3] = vidx(x+1, z)
		for k, d := range quadEdgeDir {
			nx, nz := x+d[0], z+d[1]
			switch {
			case nx < 0 || nz < 0 || nx >= n || nz >= n:
				p[nvp+k] = 0x8000 | uint16(k)
			case g.isBlocked(nx, nz):
				p[nvp+k] = MESH_NULL_IDX
			default:
				p[nvp+k] = uint16(cellPoly[[2]int{nx, nz}])
			}
		}
	}

	flags := make([]uint16, len(cellPoly))
	areas := make([]uint8, len(cellPoly))
	for i := range flags {
		flags[i] = testWalkFlag
		areas[i] = testGroundArea
	}

	size := float32(n) * g.cs
	return &DtNavMeshCreateParams{
		Verts:          verts,
		VertCount:      len(verts) / 3,
		Polys:          polys,
		PolyFlags:      flags,
		PolyAreas:      areas,
		PolyCount:      len(cellPoly),
		Nvp:            nvp,
		TileX:          g.tx,
		TileY:          g.ty,
		Bmin:           [3]float32{float32(g.tx) * size, 0, float32(g.ty) * size},
		Bmax:           [3]float32{float32(g.tx+1) * size, 1, float32(g.ty+1) * size},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             g.cs,
		Ch:             0.5,
		BuildBvTree:    true,
	}
}

func buildGridTile(t *testing.T, g gridTile) []byte {
	t.Helper()
	data, ok := DtCreateNavMeshData(buildGridParams(g))
	require.True(t, ok)
	return data
}

func newGridNavMesh(t *testing.T, tiles ...gridTile) *DtNavMesh {
	t.Helper()
	size := float32(tiles[0].n) * tiles[0].cs
	nav, status := NewDtNavMeshWithParams(&NavMeshParams{
		TileWidth:  size,
		TileHeight: size,
		MaxTiles:   16,
		MaxPolys:   256,
	})
	require.True(t, status.DtStatusSucceed(), status.String())
	for _, g := range tiles {
		_, status = nav.AddTile(buildGridTile(t, g), DT_TILE_FREE_DATA, 0)
		require.True(t, status.DtStatusSucceed(), status.String())
	}
	return nav
}

func flatTile(tx, ty int32) gridTile {
	return gridTile{tx: tx, ty: ty, n: 10, cs: 1}
}
