package detour_tile_cache

import (
	"math"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/rw"
	"github.com/gorustyt/tilenav/detour"
)

const (
	DT_TILECACHE_MAGIC   = 'D'<<24 | 'T'<<16 | 'L'<<8 | 'R' ///< 'DTLR';
	DT_TILECACHE_VERSION = 1

	DT_TILECACHE_NULL_AREA     = 0
	DT_TILECACHE_WALKABLE_AREA = 63
	DT_TILECACHE_NULL_IDX      = 0xffff
)

// Connection bits of a layer cell. The low nibble links the cell to its
// neighbour in direction dir, the high nibble marks a tile border portal.
const (
	dtLayerConMask    = 0x0f
	dtLayerPortalMask = 0xf0
)

// dtTileCacheLayerHeaderSize is the encoded header size, padded to 4 bytes.
const dtTileCacheLayerHeaderSize = 56

type DtTileCacheLayerHeader struct {
	Magic                  int32 ///< Data magic
	Version                int32 ///< Data version
	Tx, Ty, Tlayer         int32
	Bmin, Bmax             [3]float32
	Hmin, Hmax             uint16 ///< Height min/max range
	Width, Height          uint8  ///< Dimension of the layer.
	Minx, Maxx, Miny, Maxy uint8  ///< Usable sub-region.
}

func (h *DtTileCacheLayerHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.Tx)
	w.WriteInt32(h.Ty)
	w.WriteInt32(h.Tlayer)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
	w.WriteUInt16(h.Hmin)
	w.WriteUInt16(h.Hmax)
	w.WriteUInt8s([]uint8{h.Width, h.Height, h.Minx, h.Maxx, h.Miny, h.Maxy})
	w.PadZero(2)
}

func (h *DtTileCacheLayerHeader) FromBin(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.Tx = r.ReadInt32()
	h.Ty = r.ReadInt32()
	h.Tlayer = r.ReadInt32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
	h.Hmin = r.ReadUInt16()
	h.Hmax = r.ReadUInt16()
	var dims [6]uint8
	r.ReadUInt8s(dims[:])
	h.Width, h.Height, h.Minx, h.Maxx, h.Miny, h.Maxy = dims[0], dims[1], dims[2], dims[3], dims[4], dims[5]
	r.Skip(2)
}

func (h *DtTileCacheLayerHeader) gridSize() int {
	return int(h.Width) * int(h.Height)
}

// DtTileCacheLayer is a decompressed height layer. Heights are in cell
// height units above Header.Bmin[1].
type DtTileCacheLayer struct {
	Header  *DtTileCacheLayerHeader
	Heights []uint8
	Areas   []uint8
	Cons    []uint8
}

// DtDecodeTileCacheLayerHeader reads and validates the uncompressed header
// at the start of a compressed layer blob.
func DtDecodeTileCacheLayerHeader(data []byte) (*DtTileCacheLayerHeader, detour.DtStatus) {
	if len(data) < dtTileCacheLayerHeaderSize {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	header := &DtTileCacheLayerHeader{}
	header.FromBin(rw.NewNavMeshDataBinReader(data[:dtTileCacheLayerHeaderSize]))
	if header.Magic != DT_TILECACHE_MAGIC {
		return nil, detour.DT_FAILURE | detour.DT_WRONG_MAGIC
	}
	if header.Version != DT_TILECACHE_VERSION {
		return nil, detour.DT_FAILURE | detour.DT_WRONG_VERSION
	}
	if header.Width == 0 || header.Height == 0 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return header, detour.DT_SUCCESS
}

// DtBuildTileCacheLayer packs the grids into a compressed layer blob. The
// header is stored uncompressed so tiles can be placed without decompressing.
func DtBuildTileCacheLayer(comp DtTileCacheCompressor, header *DtTileCacheLayerHeader,
	heights, areas, cons []uint8) ([]byte, detour.DtStatus) {
	gridSize := header.gridSize()
	if comp == nil || gridSize == 0 || len(heights) != gridSize || len(areas) != gridSize || len(cons) != gridSize {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	buffer := make([]byte, 0, gridSize*3)
	buffer = append(buffer, heights...)
	buffer = append(buffer, areas...)
	buffer = append(buffer, cons...)

	compressed, status := comp.Compress(buffer)
	if status.DtStatusFailed() {
		return nil, status
	}

	h := *header
	h.Magic = DT_TILECACHE_MAGIC
	h.Version = DT_TILECACHE_VERSION
	w := rw.NewNavMeshDataBinWriter()
	h.ToBin(w)
	w.WriteUInt8s(compressed)
	return w.GetWriteBytes(), detour.DT_SUCCESS
}

// DtDecompressTileCacheLayer decodes a compressed layer blob into arena memory.
func DtDecompressTileCacheLayer(alloc DtTileCacheAlloc, comp DtTileCacheCompressor, data []byte) (*DtTileCacheLayer, detour.DtStatus) {
	if alloc == nil || comp == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	header, status := DtDecodeTileCacheLayerHeader(data)
	if status.DtStatusFailed() {
		return nil, status
	}
	gridSize := header.gridSize()
	grids := alloc.Alloc(gridSize * 3)
	if grids == nil {
		return nil, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}

	raw, status := comp.Decompress(data[dtTileCacheLayerHeaderSize:], gridSize*3)
	if status.DtStatusFailed() {
		return nil, status
	}
	if len(raw) != gridSize*3 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	copy(grids, raw)

	return &DtTileCacheLayer{
		Header:  header,
		Heights: grids[:gridSize],
		Areas:   grids[gridSize : gridSize*2],
		Cons:    grids[gridSize*2:],
	}, detour.DT_SUCCESS
}

// DtHeightSampler returns the walkable surface height and area id at a
// world position. Area DT_TILECACHE_NULL_AREA leaves the cell empty.
type DtHeightSampler func(x, z float32) (y float32, area uint8)

// DtRasterizeLayer samples one layer for tile (tx, ty) on the tile cache
// grid and derives the neighbour connections from the walkable climb.
func DtRasterizeLayer(params *DtTileCacheParams, tx, ty int32, sample DtHeightSampler) (*DtTileCacheLayer, detour.DtStatus) {
	if params == nil || sample == nil || params.Cs <= 0 || params.Ch <= 0 ||
		params.Width <= 0 || params.Width > 255 || params.Height <= 0 || params.Height > 255 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	w, h := params.Width, params.Height
	cs, ch := params.Cs, params.Ch
	tw, th := float32(w)*cs, float32(h)*cs

	header := &DtTileCacheLayerHeader{
		Magic:   DT_TILECACHE_MAGIC,
		Version: DT_TILECACHE_VERSION,
		Tx:      tx,
		Ty:      ty,
		Width:   uint8(w),
		Height:  uint8(h),
	}
	header.Bmin = [3]float32{params.Orig[0] + float32(tx)*tw, params.Orig[1], params.Orig[2] + float32(ty)*th}

	layer := &DtTileCacheLayer{
		Header:  header,
		Heights: make([]uint8, w*h),
		Areas:   make([]uint8, w*h),
		Cons:    make([]uint8, w*h),
	}

	hmin, hmax := math.MaxInt, 0
	minx, maxx, miny, maxy := w, -1, h, -1
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			y, area := sample(header.Bmin[0]+(float32(x)+0.5)*cs, header.Bmin[2]+(float32(z)+0.5)*cs)
			if area == DT_TILECACHE_NULL_AREA {
				continue
			}
			hy := common.Clamp(int(math.Floor(float64((y-params.Orig[1])/ch))), 0, 255)
			idx := x + z*w
			layer.Heights[idx] = uint8(hy)
			layer.Areas[idx] = area
			hmin, hmax = min(hmin, hy), max(hmax, hy)
			minx, maxx = min(minx, x), max(maxx, x)
			miny, maxy = min(miny, z), max(maxy, z)
		}
	}
	if maxx < 0 {
		hmin, minx, maxx, miny, maxy = 0, 0, 0, 0, 0
	}
	header.Hmin, header.Hmax = uint16(hmin), uint16(hmax)
	header.Minx, header.Maxx, header.Miny, header.Maxy = uint8(minx), uint8(maxx), uint8(miny), uint8(maxy)
	header.Bmax = [3]float32{header.Bmin[0] + tw, params.Orig[1] + float32(hmax+1)*ch, header.Bmin[2] + th}

	climb := int(params.WalkableClimb / ch)
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			idx := x + z*w
			if layer.Areas[idx] == DT_TILECACHE_NULL_AREA {
				continue
			}
			var con uint8
			for dir := 0; dir < 4; dir++ {
				nx, nz := x+common.GetDirOffsetX(dir), z+common.GetDirOffsetY(dir)
				if nx < 0 || nz < 0 || nx >= w || nz >= h {
					con |= 1 << (4 + dir)
					continue
				}
				nidx := nx + nz*w
				if layer.Areas[nidx] == DT_TILECACHE_NULL_AREA {
					continue
				}
				if common.Abs(int(layer.Heights[nidx])-int(layer.Heights[idx])) <= climb {
					con |= 1 << dir
				}
			}
			layer.Cons[idx] = con
		}
	}
	return layer, detour.DT_SUCCESS
}
