package debug_utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/gorustyt/tilenav/detour"
)

var ErrNilMesh = errors.New("debug_utils: nil debug navmesh")

type objVertex struct {
	pos [3]float32
	col Colorb
}

// DuObjDraw is a DuDebugDraw writing Wavefront OBJ. Triangles become faces,
// lines become "l" elements and points "p" elements. Equal vertices are
// written once.
type DuObjDraw struct {
	// Colors appends the vertex color to every "v" line.
	Colors bool

	w       *bufio.Writer
	err     error
	prim    DuDebugDrawPrimitives
	index   map[objVertex]int
	pending []int
}

func NewDuObjDraw(w io.Writer) *DuObjDraw {
	return &DuObjDraw{
		w:     bufio.NewWriter(w),
		prim:  DU_DRAW_LINES,
		index: make(map[objVertex]int),
	}
}

func (d *DuObjDraw) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

// Comment writes a "#" line.
func (d *DuObjDraw) Comment(text string) {
	d.printf("# %s\n", text)
}

// Object starts a named OBJ object.
func (d *DuObjDraw) Object(name string) {
	d.printf("o %s\n", name)
}

func (d *DuObjDraw) Begin(prim DuDebugDrawPrimitives, size ...float32) {
	d.prim = prim
	d.pending = d.pending[:0]
}

func (d *DuObjDraw) Vertex(pos []float32, color Colorb) {
	d.Vertex1(pos[0], pos[1], pos[2], color)
}

func (d *DuObjDraw) Vertex1(x, y, z float32, color Colorb) {
	key := objVertex{pos: [3]float32{x, y, z}}
	if d.Colors {
		key.col = color
	}
	idx, ok := d.index[key]
	if !ok {
		idx = len(d.index) + 1
		d.index[key] = idx
		if d.Colors {
			r, g, b, _ := color.Floats()
			d.printf("v %f %f %f %.3f %.3f %.3f\n", x, y, z, r, g, b)
		} else {
			d.printf("v %f %f %f\n", x, y, z)
		}
	}
	d.pending = append(d.pending, idx)
	if len(d.pending) < d.prim.vertsPerPrim() {
		return
	}
	switch d.prim {
	case DU_DRAW_TRIS:
		d.printf("f %d %d %d\n", d.pending[0], d.pending[1], d.pending[2])
	case DU_DRAW_LINES:
		d.printf("l %d %d\n", d.pending[0], d.pending[1])
	default:
		d.printf("p %d\n", d.pending[0])
	}
	d.pending = d.pending[:0]
}

// End drops an unfinished primitive.
func (d *DuObjDraw) End() {
	d.pending = d.pending[:0]
}

func (d *DuObjDraw) AreaToCol(area int) Colorb {
	return AreaToCol(area)
}

// VertexCount returns the number of distinct vertices written so far.
func (d *DuObjDraw) VertexCount() int {
	return len(d.index)
}

// Flush writes buffered output and returns the first error met.
func (d *DuObjDraw) Flush() error {
	if d.err != nil {
		return d.err
	}
	return d.w.Flush()
}

// DuDumpDebugNavMeshToObj writes the ground triangles of mesh as a single
// OBJ object.
func DuDumpDebugNavMeshToObj(mesh *detour.DtDebugNavMesh, w io.Writer) error {
	if mesh == nil {
		return ErrNilMesh
	}
	dd := NewDuObjDraw(w)
	dd.Comment("Recast Navmesh")
	dd.Object("NavMesh")
	DuDebugDrawNavMesh(dd, mesh)
	if err := dd.Flush(); err != nil {
		return fmt.Errorf("debug_utils: dump navmesh: %w", err)
	}
	return nil
}
