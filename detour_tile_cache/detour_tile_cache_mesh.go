package detour_tile_cache

import (
	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/detour"
)

type DtTileCachePolyMesh struct {
	Nvp    int
	Nverts int      ///< Number of vertices.
	Npolys int      ///< Number of polygons.
	Verts  []uint16 ///< Vertices of the mesh, 3 elements per vertex.
	Polys  []uint16 ///< Polygons of the mesh, nvp*2 elements per polygon.
	Flags  []uint16 ///< Per polygon flags.
	Areas  []uint8  ///< Area ID of polygons.
}

// arenaIndex is a uint16 table stored in arena bytes.
type arenaIndex []byte

func (a arenaIndex) get(i int) uint16 { return uint16(a[i*2]) | uint16(a[i*2+1])<<8 }
func (a arenaIndex) set(i int, v uint16) {
	a[i*2] = byte(v)
	a[i*2+1] = byte(v >> 8)
}

func allocIndex(alloc DtTileCacheAlloc, n int) arenaIndex {
	mem := alloc.Alloc(n * 2)
	if mem == nil {
		return nil
	}
	idx := arenaIndex(mem)
	for i := 0; i < n; i++ {
		idx.set(i, DT_TILECACHE_NULL_IDX)
	}
	return idx
}

// quad corners in winding order, and the direction each edge faces
// (0: -x, 1: +z, 2: +x, 3: -z).
var quadCorners = [4][2]int{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// DtBuildTileCachePolyMesh turns every non-null cell of the layer into a quad.
// Corners are shared between cells at the same height. Edges to connected
// cells within walkableClimb reference the neighbour polygon; edges on the
// layer border with a portal bit become portals.
func DtBuildTileCachePolyMesh(alloc DtTileCacheAlloc, layer *DtTileCacheLayer, walkableClimb int) (*DtTileCachePolyMesh, detour.DtStatus) {
	if alloc == nil || layer == nil || layer.Header == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	const nvp = detour.DT_VERTS_PER_POLYGON
	w, h := int(layer.Header.Width), int(layer.Header.Height)

	// Cell to polygon and corner to vertex lookups live in the arena.
	cellPoly := allocIndex(alloc, w*h)
	cornerVert := allocIndex(alloc, (w+1)*(h+1))
	if cellPoly == nil || cornerVert == nil {
		return nil, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}

	mesh := &DtTileCachePolyMesh{Nvp: nvp}
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			if layer.Areas[x+z*w] == DT_TILECACHE_NULL_AREA {
				continue
			}
			if mesh.Npolys >= DT_TILECACHE_NULL_IDX {
				return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
			}
			cellPoly.set(x+z*w, uint16(mesh.Npolys))
			mesh.Npolys++
		}
	}

	addVertex := func(x, y, z int) (uint16, bool) {
		ci := x + z*(w+1)
		if v := cornerVert.get(ci); v != DT_TILECACHE_NULL_IDX && int(mesh.Verts[int(v)*3+1]) == y {
			return v, true
		}
		if mesh.Nverts >= DT_TILECACHE_NULL_IDX {
			return 0, false
		}
		v := uint16(mesh.Nverts)
		mesh.Verts = append(mesh.Verts, uint16(x), uint16(y), uint16(z))
		mesh.Nverts++
		if cornerVert.get(ci) == DT_TILECACHE_NULL_IDX {
			cornerVert.set(ci, v)
		}
		return v, true
	}

	mesh.Polys = make([]uint16, mesh.Npolys*nvp*2)
	for i := range mesh.Polys {
		mesh.Polys[i] = DT_TILECACHE_NULL_IDX
	}
	mesh.Areas = make([]uint8, mesh.Npolys)
	mesh.Flags = make([]uint16, mesh.Npolys)

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			idx := x + z*w
			ip := cellPoly.get(idx)
			if ip == DT_TILECACHE_NULL_IDX {
				continue
			}
			y := int(layer.Heights[idx])
			p := mesh.Polys[int(ip)*nvp*2:]
			for k, c := range quadCorners {
				v, ok := addVertex(x+c[0], y, z+c[1])
				if !ok {
					return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
				}
				p[k] = v
			}
			con := layer.Cons[idx]
			for dir := 0; dir < 4; dir++ {
				if con&(1<<(4+dir))&dtLayerPortalMask != 0 {
					p[nvp+dir] = 0x8000 | uint16(dir)
					continue
				}
				if con&(1<<dir)&dtLayerConMask == 0 {
					continue
				}
				nx, nz := x+common.GetDirOffsetX(dir), z+common.GetDirOffsetY(dir)
				if nx < 0 || nz < 0 || nx >= w || nz >= h {
					continue
				}
				nidx := nx + nz*w
				nei := cellPoly.get(nidx)
				if nei == DT_TILECACHE_NULL_IDX {
					continue
				}
				if common.Abs(int(layer.Heights[nidx])-y) > walkableClimb {
					continue
				}
				p[nvp+dir] = nei
			}
			mesh.Areas[ip] = layer.Areas[idx]
		}
	}
	return mesh, detour.DT_SUCCESS
}

// DtTileCacheMeshProcess assigns polygon flags (and may adjust the build
// parameters) before a rebuilt tile is handed to the navigation mesh.
type DtTileCacheMeshProcess interface {
	Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16)
}

// DtTileCacheMeshProcessFunc adapts a function to DtTileCacheMeshProcess.
type DtTileCacheMeshProcessFunc func(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16)

func (f DtTileCacheMeshProcessFunc) Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
	f(params, polyAreas, polyFlags)
}

// Polygon flags assigned by the default mesh process.
const (
	DT_TILECACHE_POLYFLAGS_WALK     = 0x01
	DT_TILECACHE_POLYFLAGS_DISABLED = 0x10
)

// AreaFlagsMeshProcess sets polygon flags from a per-area table.
type AreaFlagsMeshProcess struct {
	Flags        map[uint8]uint16
	DefaultFlags uint16
}

func NewAreaFlagsMeshProcess(flags map[uint8]uint16, defaultFlags uint16) *AreaFlagsMeshProcess {
	return &AreaFlagsMeshProcess{Flags: flags, DefaultFlags: defaultFlags}
}

func (p *AreaFlagsMeshProcess) Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
	for i := range polyFlags {
		if f, ok := p.Flags[polyAreas[i]]; ok {
			polyFlags[i] = f
		} else {
			polyFlags[i] = p.DefaultFlags
		}
	}
}
