package mesh

import (
	"errors"
	"io"
	"math"

	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_tile_cache"
)

const MAX_CONVEXVOL_PTS = 12

const MAX_VOLUMES = 256

const trisPerChunk = 256

var (
	ErrTooManyVolumes = errors.New("input geom: too many convex volumes")
	ErrBadVolume      = errors.New("input geom: convex volume needs 3 to 12 points")
)

// ConvexVolume relabels the ground inside an xz polygon and a height range.
type ConvexVolume struct {
	verts      []float32
	hmin, hmax float32
	area       uint8
}

// InputGeom is triangle soup ground loaded from an OBJ file.
type InputGeom struct {
	m_chunkyMesh *rcChunkyTriMesh
	m_mesh       *rcMeshLoaderObj
	m_meshBMin   [3]float32
	m_meshBMax   [3]float32
	m_volumes    []*ConvexVolume
}

func LoadInputGeom(path string) (*InputGeom, error) {
	m := newRcMeshLoaderObj()
	if err := m.loadFile(path); err != nil {
		return nil, err
	}
	return newInputGeom(m), nil
}

func ReadInputGeom(r io.Reader) (*InputGeom, error) {
	m := newRcMeshLoaderObj()
	if err := m.load(r); err != nil {
		return nil, err
	}
	return newInputGeom(m), nil
}

func newInputGeom(m *rcMeshLoaderObj) *InputGeom {
	g := &InputGeom{m_mesh: m}
	verts := m.getVerts()
	if len(verts) >= 3 {
		copy(g.m_meshBMin[:], verts)
		copy(g.m_meshBMax[:], verts)
		for i := 3; i < len(verts); i += 3 {
			for j := 0; j < 3; j++ {
				g.m_meshBMin[j] = min(g.m_meshBMin[j], verts[i+j])
				g.m_meshBMax[j] = max(g.m_meshBMax[j], verts[i+j])
			}
		}
	}
	g.m_chunkyMesh = rcCreateChunkyTriMesh(verts, m.getTris(), trisPerChunk)
	return g
}

func (g *InputGeom) getMeshBoundsMin() [3]float32 { return g.m_meshBMin }
func (g *InputGeom) getMeshBoundsMax() [3]float32 { return g.m_meshBMax }
func (g *InputGeom) TriCount() int                { return g.m_mesh.getTriCount() }

// AddConvexVolume marks ground inside the xz polygon verts (x,y,z triples)
// between hmin and hmax with area.
func (g *InputGeom) AddConvexVolume(verts []float32, hmin, hmax float32, area uint8) error {
	if len(g.m_volumes) >= MAX_VOLUMES {
		return ErrTooManyVolumes
	}
	if len(verts)%3 != 0 || len(verts) < 9 || len(verts) > MAX_CONVEXVOL_PTS*3 {
		return ErrBadVolume
	}
	g.m_volumes = append(g.m_volumes, &ConvexVolume{
		verts: append([]float32(nil), verts...),
		hmin:  hmin,
		hmax:  hmax,
		area:  area,
	})
	return nil
}

func pointInPoly(verts []float32, x, z float32) bool {
	c := false
	n := len(verts) / 3
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := verts[i*3:], verts[j*3:]
		if ((vi[2] > z) != (vj[2] > z)) && (x < (vj[0]-vi[0])*(z-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
	}
	return c
}

// TileGrid returns the number of tiles of the given world size covering the
// mesh bounds from orig.
func (g *InputGeom) TileGrid(orig [3]float32, tileWidth, tileHeight float32) (tw, th int) {
	tw = int(math.Ceil(float64((g.m_meshBMax[0] - orig[0]) / tileWidth)))
	th = int(math.Ceil(float64((g.m_meshBMax[2] - orig[2]) / tileHeight)))
	return max(tw, 1), max(th, 1)
}

// Sampler returns the topmost surface at each point. Triangles steeper than
// walkableSlopeAngle degrees are not walkable.
func (g *InputGeom) Sampler(walkableSlopeAngle float32) detour_tile_cache.DtHeightSampler {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	verts := g.m_mesh.getVerts()
	tris := g.m_mesh.getTris()
	normals := g.m_mesh.getNormals()

	return func(x, z float32) (float32, uint8) {
		p := []float32{x, 0, z}
		best := float32(math.Inf(-1))
		area := uint8(detour_tile_cache.DT_TILECACHE_NULL_AREA)
		pt := [2]float32{x, z}
		g.m_chunkyMesh.chunksOverlappingRect(pt, pt, func(ids []int) {
			for _, id := range ids {
				t := tris[id*3:]
				h, ok := detour.DtClosestHeightPointTriangle(p, verts[t[0]*3:], verts[t[1]*3:], verts[t[2]*3:])
				if !ok || h <= best {
					continue
				}
				best = h
				n := normals[id*3:]
				area = detour_tile_cache.DT_TILECACHE_NULL_AREA
				if float32(math.Abs(float64(n[1]))) > walkableThr {
					area = detour_tile_cache.DT_TILECACHE_WALKABLE_AREA
				}
			}
		})
		if area == detour_tile_cache.DT_TILECACHE_NULL_AREA {
			return 0, area
		}
		for _, vol := range g.m_volumes {
			if best >= vol.hmin && best <= vol.hmax && pointInPoly(vol.verts, x, z) {
				area = vol.area
			}
		}
		return best, area
	}
}
