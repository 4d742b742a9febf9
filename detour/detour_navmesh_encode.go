package detour

import (
	"fmt"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/rw"
)

// Serialized sizes of the tile blob records.
const (
	dtMeshHeaderSize    = 100
	dtPolySize          = 28
	dtPolyDetailSize    = 10
	dtBVNodeSize        = 16
	dtOffMeshConSize    = 36
	dtNavMeshParamsSize = 28
)

// NavMeshData is the decoded form of a tile blob: a header followed by
// 4-byte aligned vertex, polygon, detail mesh, bv tree and off-mesh sections.
type NavMeshData struct {
	Header      DtMeshHeader
	NavVerts    []float32
	NavPolys    []DtPoly
	NavDMeshes  []DtPolyDetail
	NavDVerts   []float32
	NavDTris    []uint8
	NavBvtree   []DtBVNode
	OffMeshCons []DtOffMeshConnection
}

func padTo4(w *rw.ReaderWriter, n int) {
	w.PadZero(common.Align4(n) - n)
}

func (d *NavMeshData) ToBin() []byte {
	w := rw.NewNavMeshDataBinWriter()
	d.Header.ToBin(w)
	w.WriteFloat32s(d.NavVerts)
	for i := range d.NavPolys {
		d.NavPolys[i].ToBin(w)
	}
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].ToBin(w)
	}
	padTo4(w, len(d.NavDMeshes)*dtPolyDetailSize)
	w.WriteFloat32s(d.NavDVerts)
	w.WriteUInt8s(d.NavDTris)
	padTo4(w, len(d.NavDTris))
	for i := range d.NavBvtree {
		d.NavBvtree[i].ToBin(w)
	}
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].ToBin(w)
	}
	return w.GetWriteBytes()
}

// Size returns the encoded blob length implied by the header counts.
func (h *DtMeshHeader) dataSize() int {
	return dtMeshHeaderSize +
		int(h.VertCount)*12 +
		int(h.PolyCount)*dtPolySize +
		common.Align4(int(h.DetailMeshCount)*dtPolyDetailSize) +
		int(h.DetailVertCount)*12 +
		common.Align4(int(h.DetailTriCount)*4) +
		int(h.BvNodeCount)*dtBVNodeSize +
		int(h.OffMeshConCount)*dtOffMeshConSize
}

func (h *DtMeshHeader) validCounts() bool {
	return h.PolyCount >= 0 && h.VertCount >= 0 && h.MaxLinkCount >= 0 &&
		h.DetailMeshCount >= 0 && h.DetailVertCount >= 0 && h.DetailTriCount >= 0 &&
		h.BvNodeCount >= 0 && h.OffMeshConCount >= 0 &&
		h.OffMeshBase >= 0 && h.OffMeshBase <= h.PolyCount
}

// DecodeNavMeshData parses a tile blob. The header magic and version are
// checked before anything else is read.
func DecodeNavMeshData(data []byte) (*NavMeshData, DtStatus) {
	if len(data) < dtMeshHeaderSize {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	r := rw.NewNavMeshDataBinReader(data)
	d := &NavMeshData{}
	d.Header.FromBin(r)
	if d.Header.Magic != DT_NAVMESH_MAGIC {
		return nil, DT_FAILURE | DT_WRONG_MAGIC
	}
	if d.Header.Version != DT_NAVMESH_VERSION {
		return nil, DT_FAILURE | DT_WRONG_VERSION
	}
	if !d.Header.validCounts() || d.Header.dataSize() != len(data) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if err := d.bodyFromBin(r); err != nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	return d, DT_SUCCESS
}

func (d *NavMeshData) bodyFromBin(r *rw.ReaderWriter) error {
	h := &d.Header
	d.NavVerts = make([]float32, h.VertCount*3)
	r.ReadFloat32s(d.NavVerts)
	d.NavPolys = make([]DtPoly, h.PolyCount)
	for i := range d.NavPolys {
		d.NavPolys[i].FromBin(r)
	}
	d.NavDMeshes = make([]DtPolyDetail, h.DetailMeshCount)
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].FromBin(r)
	}
	r.Skip(common.Align4(len(d.NavDMeshes)*dtPolyDetailSize) - len(d.NavDMeshes)*dtPolyDetailSize)
	d.NavDVerts = make([]float32, h.DetailVertCount*3)
	r.ReadFloat32s(d.NavDVerts)
	d.NavDTris = make([]uint8, h.DetailTriCount*4)
	r.ReadUInt8s(d.NavDTris)
	r.Skip(common.Align4(len(d.NavDTris)) - len(d.NavDTris))
	d.NavBvtree = make([]DtBVNode, h.BvNodeCount)
	for i := range d.NavBvtree {
		d.NavBvtree[i].FromBin(r)
	}
	d.OffMeshCons = make([]DtOffMeshConnection, h.OffMeshConCount)
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].FromBin(r)
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("decode tile body: %w", err)
	}
	return d.validateIndices()
}

// validateIndices rejects blobs whose indices point outside their arrays.
func (d *NavMeshData) validateIndices() error {
	h := &d.Header
	for i := range d.NavPolys {
		p := &d.NavPolys[i]
		if p.VertCount > DT_VERTS_PER_POLYGON {
			return fmt.Errorf("poly %d: vertex count %d", i, p.VertCount)
		}
		for j := uint8(0); j < p.VertCount; j++ {
			if int32(p.Verts[j]) >= h.VertCount {
				return fmt.Errorf("poly %d: vertex index %d out of range", i, p.Verts[j])
			}
		}
	}
	if h.DetailMeshCount != 0 && h.DetailMeshCount < h.OffMeshBase {
		return fmt.Errorf("detail mesh count %d below ground poly count %d", h.DetailMeshCount, h.OffMeshBase)
	}
	for i := range d.NavDMeshes {
		pd := &d.NavDMeshes[i]
		if int32(pd.VertBase)+int32(pd.VertCount) > h.DetailVertCount || int32(pd.TriBase)+int32(pd.TriCount) > h.DetailTriCount {
			return fmt.Errorf("detail mesh %d out of range", i)
		}
	}
	for i := range d.OffMeshCons {
		if int32(d.OffMeshCons[i].Poly) >= h.PolyCount {
			return fmt.Errorf("off-mesh connection %d: poly %d out of range", i, d.OffMeshCons[i].Poly)
		}
	}
	return nil
}
