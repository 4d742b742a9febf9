package mesh

import (
	"sort"
)

// rcChunkyTriMeshNode is a node of a flattened xz bounding volume tree.
// Leaves have i >= 0 and own the triangle ids tris[i:i+n]; inner nodes
// store the negated escape offset to their next sibling in i.
type rcChunkyTriMeshNode struct {
	bmin [2]float32
	bmax [2]float32
	i    int
	n    int
}

type rcChunkyTriMesh struct {
	nodes           []rcChunkyTriMeshNode
	tris            []int
	maxTrisPerChunk int
}

type boundsItem struct {
	bmin [2]float32
	bmax [2]float32
	i    int
}

func calcExtends(items []boundsItem) (bmin, bmax [2]float32) {
	bmin, bmax = items[0].bmin, items[0].bmax
	for _, it := range items[1:] {
		bmin[0], bmin[1] = min(bmin[0], it.bmin[0]), min(bmin[1], it.bmin[1])
		bmax[0], bmax[1] = max(bmax[0], it.bmax[0]), max(bmax[1], it.bmax[1])
	}
	return
}

func longestAxis(x, y float32) int {
	if y > x {
		return 1
	}
	return 0
}

func (cm *rcChunkyTriMesh) subdivide(items []boundsItem, trisPerChunk int) {
	icur := len(cm.nodes)
	cm.nodes = append(cm.nodes, rcChunkyTriMeshNode{})
	bmin, bmax := calcExtends(items)
	cm.nodes[icur].bmin, cm.nodes[icur].bmax = bmin, bmax

	if len(items) <= trisPerChunk {
		// Leaf
		cm.nodes[icur].i = len(cm.tris)
		cm.nodes[icur].n = len(items)
		for _, it := range items {
			cm.tris = append(cm.tris, it.i)
		}
		return
	}

	// Split
	axis := longestAxis(bmax[0]-bmin[0], bmax[1]-bmin[1])
	sort.Slice(items, func(i, j int) bool {
		return items[i].bmin[axis] < items[j].bmin[axis]
	})
	isplit := len(items) / 2
	cm.subdivide(items[:isplit], trisPerChunk)
	cm.subdivide(items[isplit:], trisPerChunk)

	// Negative index means escape.
	cm.nodes[icur].i = -(len(cm.nodes) - icur)
}

func rcCreateChunkyTriMesh(verts []float32, tris []int, trisPerChunk int) *rcChunkyTriMesh {
	ntris := len(tris) / 3
	trisPerChunk = max(trisPerChunk, 1)
	cm := &rcChunkyTriMesh{tris: make([]int, 0, ntris)}
	if ntris == 0 {
		return cm
	}

	items := make([]boundsItem, ntris)
	for i := range items {
		t := tris[i*3:]
		it := &items[i]
		it.i = i
		// Calc triangle XZ bounds.
		it.bmin = [2]float32{verts[t[0]*3+0], verts[t[0]*3+2]}
		it.bmax = it.bmin
		for j := 1; j < 3; j++ {
			v := verts[t[j]*3:]
			it.bmin[0], it.bmin[1] = min(it.bmin[0], v[0]), min(it.bmin[1], v[2])
			it.bmax[0], it.bmax[1] = max(it.bmax[0], v[0]), max(it.bmax[1], v[2])
		}
	}
	cm.subdivide(items, trisPerChunk)

	for _, node := range cm.nodes {
		if node.i >= 0 {
			cm.maxTrisPerChunk = max(cm.maxTrisPerChunk, node.n)
		}
	}
	return cm
}

func checkOverlapRect(amin, amax, bmin, bmax [2]float32) bool {
	return !(amin[0] > bmax[0] || amax[0] < bmin[0] || amin[1] > bmax[1] || amax[1] < bmin[1])
}

// chunksOverlappingRect calls fn with the triangle ids of every leaf
// overlapping the xz rectangle.
func (cm *rcChunkyTriMesh) chunksOverlappingRect(bmin, bmax [2]float32, fn func(ids []int)) {
	// Traverse tree
	for i := 0; i < len(cm.nodes); {
		node := &cm.nodes[i]
		overlap := checkOverlapRect(bmin, bmax, node.bmin, node.bmax)
		isLeafNode := node.i >= 0
		if isLeafNode && overlap {
			fn(cm.tris[node.i : node.i+node.n])
		}
		if overlap || isLeafNode {
			i++
		} else {
			i += -node.i
		}
	}
}
