package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// rcMeshLoaderObj reads the vertices and faces of a Wavefront OBJ file.
// Polygons are fanned into triangles.
type rcMeshLoaderObj struct {
	m_filename string
	m_scale    float32
	m_verts    []float32
	m_tris     []int
	m_normals  []float32
}

func newRcMeshLoaderObj() *rcMeshLoaderObj {
	return &rcMeshLoaderObj{m_scale: 1}
}

func (m *rcMeshLoaderObj) getVerts() []float32   { return m.m_verts }
func (m *rcMeshLoaderObj) getNormals() []float32 { return m.m_normals }
func (m *rcMeshLoaderObj) getTris() []int        { return m.m_tris }
func (m *rcMeshLoaderObj) getVertCount() int     { return len(m.m_verts) / 3 }
func (m *rcMeshLoaderObj) getTriCount() int      { return len(m.m_tris) / 3 }
func (m *rcMeshLoaderObj) getFileName() string   { return m.m_filename }

func (m *rcMeshLoaderObj) loadFile(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := m.load(f); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	m.m_filename = filepath.Base(p)
	return nil
}

func (m *rcMeshLoaderObj) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		row := strings.Fields(scanner.Text())
		if len(row) == 0 || strings.HasPrefix(row[0], "#") {
			continue
		}
		var err error
		switch row[0] {
		case "v":
			err = m.parseVertex(row[1:])
		case "f":
			err = m.parseFace(row[1:])
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	m.calcNormals()
	return nil
}

func (m *rcMeshLoaderObj) parseVertex(ss []string) error {
	if len(ss) < 3 {
		return fmt.Errorf("vertex needs 3 coordinates, got %d", len(ss))
	}
	var v [3]float32
	for i := range v {
		f, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return err
		}
		v[i] = float32(f) * m.m_scale
	}
	m.m_verts = append(m.m_verts, v[:]...)
	return nil
}

func (m *rcMeshLoaderObj) parseFace(ss []string) error {
	nverts := m.getVertCount()
	data := make([]int, 0, len(ss))
	for _, s := range ss {
		// Only the position index of "v/vt/vn" is used.
		vi, err := strconv.Atoi(strings.SplitN(s, "/", 2)[0])
		if err != nil {
			return err
		}
		if vi < 0 {
			vi += nverts
		} else {
			vi--
		}
		if vi < 0 || vi >= nverts {
			return fmt.Errorf("face index %s out of range", s)
		}
		data = append(data, vi)
	}
	for i := 2; i < len(data); i++ {
		m.m_tris = append(m.m_tris, data[0], data[i-1], data[i])
	}
	return nil
}

func (m *rcMeshLoaderObj) vertex(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.m_verts[i*3], m.m_verts[i*3+1], m.m_verts[i*3+2]}
}

func (m *rcMeshLoaderObj) calcNormals() {
	m.m_normals = make([]float32, len(m.m_tris))
	for i := 0; i < len(m.m_tris); i += 3 {
		v0 := m.vertex(m.m_tris[i])
		e0 := m.vertex(m.m_tris[i+1]).Sub(v0)
		e1 := m.vertex(m.m_tris[i+2]).Sub(v0)
		n := e0.Cross(e1)
		if n.Len() > 0 {
			n = n.Normalize()
		}
		copy(m.m_normals[i:], n[:])
	}
}
