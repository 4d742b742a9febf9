package detour

import (
	"container/heap"

	"github.com/gorustyt/tilenav/common"
)

const (
	DT_NODE_OPEN            = 0x01
	DT_NODE_CLOSED          = 0x02
	DT_NODE_PARENT_DETACHED = 0x04 // parent of the node is not adjacent. Found using raycast.
)

type DtNodeIndex uint16

const (
	DT_NODE_PARENT_BITS    = 24
	DT_NODE_STATE_BITS     = 2
	DT_MAX_STATES_PER_NODE = 1 << DT_NODE_STATE_BITS // number of extra states per node. See DtNode::State

	DT_NULL_IDX = DtNodeIndex(0xffff)
)

type DtNode struct {
	Pos   [3]float32 ///< Position of the node.
	Cost  float32    ///< Cost from previous node to current node.
	Total float32    ///< Cost up to the node.
	Pidx  uint32     ///< Index to parent node, 0 means none.
	State uint32     ///< Extra state information. A polyRef can have multiple nodes with different extra info.
	Flags uint32     ///< Node flags. A combination of DT_NODE_OPEN etc.
	Id    DtPolyRef  ///< Polygon ref the node corresponds to.

	heapIndex int
	poolIdx   uint32
}

func (node *DtNode) SetIndex(index int) { node.heapIndex = index }
func (node *DtNode) GetIndex() int      { return node.heapIndex }

type NodeQueueIndex interface {
	SetIndex(index int)
	GetIndex() int
}

// NodeQueue is a binary-heap priority queue keyed by a less func.
type NodeQueue[T NodeQueueIndex] interface {
	Peek() T       //查看堆顶，不会移除元素
	Poll() T       //从堆顶弹出一个元素
	Update(v T)    //更新元素
	Offer(v T)     //插入一个元素
	Reset()
	Empty() bool
	Len() int
}

type nodeQueue[T NodeQueueIndex] struct {
	data []T
	less func(t1, t2 T) bool
}

func NewNodeQueue[T NodeQueueIndex](less func(t1, t2 T) bool) NodeQueue[T] {
	return &nodeQueue[T]{less: less}
}

func (q *nodeQueue[T]) Reset()      { q.data = q.data[:0] }
func (q *nodeQueue[T]) Peek() T     { return q.data[0] }
func (q *nodeQueue[T]) Poll() T     { return heap.Pop((*nodeHeap[T])(q)).(T) }
func (q *nodeQueue[T]) Offer(v T)   { heap.Push((*nodeHeap[T])(q), v) }
func (q *nodeQueue[T]) Update(v T)  { heap.Fix((*nodeHeap[T])(q), v.GetIndex()) }
func (q *nodeQueue[T]) Len() int    { return len(q.data) }
func (q *nodeQueue[T]) Empty() bool { return len(q.data) == 0 }

// nodeHeap carries the heap.Interface methods so they stay off the public queue.
type nodeHeap[T NodeQueueIndex] nodeQueue[T]

func (h *nodeHeap[T]) Len() int           { return len(h.data) }
func (h *nodeHeap[T]) Less(i, j int) bool { return h.less(h.data[i], h.data[j]) }
func (h *nodeHeap[T]) Swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	h.data[i].SetIndex(i)
	h.data[j].SetIndex(j)
}

func (h *nodeHeap[T]) Push(x any) {
	v := x.(T)
	v.SetIndex(len(h.data))
	h.data = append(h.data, v)
}

func (h *nodeHeap[T]) Pop() any {
	n := len(h.data) - 1
	v := h.data[n]
	var zero T
	h.data[n] = zero
	h.data = h.data[:n]
	v.SetIndex(-1)
	return v
}

func dtHashRef(a DtPolyRef) uint32 {
	a += ^(a << 15)
	a ^= a >> 10
	a += a << 3
	a ^= a >> 6
	a += ^(a << 11)
	a ^= a >> 16
	return uint32(a)
}

// DtNodePool is a bounded, hashed store of search nodes. Nodes are addressed
// by 1-based index so that 0 can mean "no parent".
type DtNodePool struct {
	m_nodes     []DtNode
	m_first     []DtNodeIndex
	m_next      []DtNodeIndex
	m_maxNodes  int32
	m_hashSize  int32
	m_nodeCount int32
}

func NewDtNodePool(maxNodes, hashSize int32) *DtNodePool {
	hashSize = int32(common.NextPow2(uint32(max(hashSize, 1))))
	p := &DtNodePool{
		m_maxNodes: maxNodes,
		m_hashSize: hashSize,
		m_nodes:    make([]DtNode, maxNodes),
		m_next:     make([]DtNodeIndex, maxNodes),
		m_first:    make([]DtNodeIndex, hashSize),
	}
	p.Clear()
	return p
}

func (p *DtNodePool) Clear() {
	for i := range p.m_first {
		p.m_first[i] = DT_NULL_IDX
	}
	p.m_nodeCount = 0
}

func (p *DtNodePool) GetNodeIdx(node *DtNode) uint32 {
	if node == nil {
		return 0
	}
	return node.poolIdx
}

func (p *DtNodePool) GetNodeAtIdx(idx uint32) *DtNode {
	if idx == 0 || int32(idx) > p.m_nodeCount {
		return nil
	}
	return &p.m_nodes[idx-1]
}

func (p *DtNodePool) GetMaxNodes() int32  { return p.m_maxNodes }
func (p *DtNodePool) GetHashSize() int32  { return p.m_hashSize }
func (p *DtNodePool) GetNodeCount() int32 { return p.m_nodeCount }

// FindNodes returns every node for id regardless of state, up to maxNodes.
func (p *DtNodePool) FindNodes(id DtPolyRef, maxNodes int) []*DtNode {
	var nodes []*DtNode
	bucket := dtHashRef(id) & uint32(p.m_hashSize-1)
	for i := p.m_first[bucket]; i != DT_NULL_IDX; i = p.m_next[i] {
		if p.m_nodes[i].Id == id {
			if len(nodes) >= maxNodes {
				break
			}
			nodes = append(nodes, &p.m_nodes[i])
		}
	}
	return nodes
}

func (p *DtNodePool) FindNode(id DtPolyRef, state uint32) *DtNode {
	bucket := dtHashRef(id) & uint32(p.m_hashSize-1)
	for i := p.m_first[bucket]; i != DT_NULL_IDX; i = p.m_next[i] {
		if p.m_nodes[i].Id == id && p.m_nodes[i].State == state {
			return &p.m_nodes[i]
		}
	}
	return nil
}

// GetNode returns the node for (id, state), allocating a fresh one when
// missing. It returns nil once the pool is exhausted.
func (p *DtNodePool) GetNode(id DtPolyRef, state uint32) *DtNode {
	if n := p.FindNode(id, state); n != nil {
		return n
	}
	if p.m_nodeCount >= p.m_maxNodes {
		return nil
	}
	i := DtNodeIndex(p.m_nodeCount)
	p.m_nodeCount++

	node := &p.m_nodes[i]
	*node = DtNode{Id: id, State: state, heapIndex: -1, poolIdx: uint32(i) + 1}

	bucket := dtHashRef(id) & uint32(p.m_hashSize-1)
	p.m_next[i] = p.m_first[bucket]
	p.m_first[bucket] = i
	return node
}
