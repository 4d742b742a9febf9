package detour_export

import (
	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/common/message"
	"github.com/gorustyt/tilenav/common/rw"
	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_tile_cache"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
)

// ImportResult is the runtime rebuilt from an exported blob. The tile cache
// fields are nil when the blob carries no tile cache.
type ImportResult struct {
	NavMesh    *detour.DtNavMesh
	TileCache  *detour_tile_cache.DtTileCache
	Allocator  *detour_tile_cache.DtTileCacheLinearAllocator
	Compressor *detour_tile_cache.DtZstdCompressor
}

// Close releases the compressor.
func (r *ImportResult) Close() {
	if r.Compressor != nil {
		r.Compressor.Close()
	}
}

type tileRecord struct {
	ref   uint64
	flags uint64
	data  []byte
	state []byte
}

type obstacleRecord struct {
	ref   uint64
	typ   uint64
	shape []byte
}

// snapshot is the decoded blob before anything is built from it.
type snapshot struct {
	navParams     detour.NavMeshParams
	tiles         []tileRecord
	hasTileCache  bool
	tcParams      detour_tile_cache.DtTileCacheParams
	allocCapacity int
	layers        []tileRecord
	obstacles     []obstacleRecord
	pending       []detour_tile_cache.DtCompressedTileRef
}

// ImportNavMesh rebuilds the runtime exported by ExportNavMesh. Tiles,
// compressed tiles and obstacles get their exported references back. proc is
// the mesh process of the new tile cache; nil selects the default.
//
// Import is all or nothing: on failure no runtime is returned.
func ImportNavMesh(blob []byte, proc detour_tile_cache.DtTileCacheMeshProcess) (*ImportResult, detour.DtStatus) {
	snap, status := decodeSnapshot(blob)
	if status.DtStatusFailed() {
		return nil, status
	}

	res := &ImportResult{}
	res.NavMesh, status = detour.NewDtNavMeshWithParams(&snap.navParams)
	if status.DtStatusFailed() {
		return nil, reject("navmesh params", status)
	}
	for _, t := range snap.tiles {
		ref, status := res.NavMesh.AddTile(append([]byte(nil), t.data...), int32(uint32(t.flags)), detour.DtTileRef(t.ref))
		if status.DtStatusFailed() {
			return nil, reject("tile", status, zap.Uint64("ref", t.ref))
		}
		if t.state != nil {
			status = res.NavMesh.RestoreTileState(res.NavMesh.GetTileByRef(ref), t.state)
			if status.DtStatusFailed() {
				return nil, reject("tile state", status, zap.Uint64("ref", t.ref))
			}
		}
	}

	if snap.hasTileCache {
		if status = res.importTileCache(snap, proc); status.DtStatusFailed() {
			res.Close()
			return nil, status
		}
	}

	log.L().Info("navmesh imported",
		zap.Int("tiles", len(snap.tiles)), zap.Int("layers", len(snap.layers)),
		zap.Int("obstacles", len(snap.obstacles)), zap.Int("pending", len(snap.pending)))
	return res, detour.DT_SUCCESS
}

func (res *ImportResult) importTileCache(snap *snapshot, proc detour_tile_cache.DtTileCacheMeshProcess) detour.DtStatus {
	comp, err := detour_tile_cache.NewDtZstdCompressor()
	if err != nil {
		log.L().Warn("navmesh import rejected", zap.String("reason", "compressor"), zap.Error(err))
		return detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	res.Compressor = comp
	res.Allocator = detour_tile_cache.NewDtTileCacheLinearAllocator(snap.allocCapacity)
	res.TileCache = detour_tile_cache.NewDtTileCache()
	if status := res.TileCache.Init(&snap.tcParams, res.Allocator, comp, proc); status.DtStatusFailed() {
		return reject("tile cache params", status)
	}

	for _, t := range snap.layers {
		_, status := res.TileCache.AddTileWithRef(append([]byte(nil), t.data...), uint32(t.flags),
			detour_tile_cache.DtCompressedTileRef(t.ref))
		if status.DtStatusFailed() {
			return reject("compressed tile", status, zap.Uint64("ref", t.ref))
		}
	}
	for _, o := range snap.obstacles {
		ob := &detour_tile_cache.DtTileCacheObstacle{Type: uint8(o.typ)}
		if o.typ > detour_tile_cache.DT_OBSTACLE_ORIENTED_BOX || ob.ShapeFromBin(rw.NewNavMeshDataBinReader(o.shape)) != nil {
			return reject("obstacle shape", detour.DT_FAILURE|detour.DT_INVALID_PARAM, zap.Uint64("ref", o.ref))
		}
		if status := res.TileCache.RestoreObstacle(ob, detour_tile_cache.DtObstacleRef(o.ref)); status.DtStatusFailed() {
			return reject("obstacle", status, zap.Uint64("ref", o.ref))
		}
	}
	if status := res.TileCache.RestorePending(snap.pending); status.DtStatusFailed() {
		return reject("pending rebuilds", status)
	}
	return detour.DT_SUCCESS
}

func reject(reason string, status detour.DtStatus, fields ...zap.Field) detour.DtStatus {
	log.L().Warn("navmesh import rejected",
		append([]zap.Field{zap.String("reason", reason), zap.Stringer("status", status)}, fields...)...)
	return status
}

func decodeSnapshot(blob []byte) (*snapshot, detour.DtStatus) {
	invalid := detour.DT_FAILURE | detour.DT_INVALID_PARAM
	fields, err := message.Decode(blob)
	if err != nil {
		log.L().Warn("navmesh import rejected", zap.String("reason", "envelope"), zap.Error(err))
		return nil, invalid
	}
	if len(fields) < 3 || fields[0].Num != fieldMagic || fields[1].Num != fieldVersion || fields[2].Num != fieldNavMeshParams {
		return nil, reject("missing header", invalid)
	}
	if fields[0].Varint != NAVMESHSET_MAGIC {
		return nil, reject("magic", detour.DT_FAILURE|detour.DT_WRONG_MAGIC)
	}
	if fields[1].Varint != NAVMESHSET_VERSION {
		return nil, reject("version", detour.DT_FAILURE|detour.DT_WRONG_VERSION)
	}

	snap := &snapshot{}
	r := rw.NewNavMeshDataBinReader(fields[2].Bytes)
	snap.navParams.FromBin(r)
	if r.Err() != nil || r.Size() != 0 {
		return nil, reject("navmesh params", invalid)
	}

	last := fieldNavMeshParams
	for _, f := range fields[3:] {
		if f.Num < last {
			return nil, reject("field order", invalid, zap.Int32("field", int32(f.Num)))
		}
		last = f.Num
		switch f.Num {
		case fieldTile, fieldCompressedTile:
			rec, ok := decodeTile(f)
			if !ok {
				return nil, reject("tile record", invalid)
			}
			if f.Num == fieldTile {
				snap.tiles = append(snap.tiles, rec)
			} else {
				snap.layers = append(snap.layers, rec)
			}
		case fieldTileCache:
			if snap.hasTileCache || !decodeTileCache(f, snap) {
				return nil, reject("tile cache record", invalid)
			}
			snap.hasTileCache = true
		case fieldObstacle:
			rec, ok := decodeObstacle(f)
			if !ok {
				return nil, reject("obstacle record", invalid)
			}
			snap.obstacles = append(snap.obstacles, rec)
		case fieldPending:
			if f.Typ != protowire.VarintType {
				return nil, reject("pending record", invalid)
			}
			snap.pending = append(snap.pending, detour_tile_cache.DtCompressedTileRef(f.Varint))
		default:
			return nil, reject("unknown field", invalid, zap.Int32("field", int32(f.Num)))
		}
	}
	if !snap.hasTileCache && (len(snap.layers) > 0 || len(snap.obstacles) > 0 || len(snap.pending) > 0) {
		return nil, reject("tile cache records without params", invalid)
	}
	return snap, detour.DT_SUCCESS
}

func subFields(f message.Field) ([]message.Field, bool) {
	if f.Typ != protowire.BytesType {
		return nil, false
	}
	sub, err := message.Decode(f.Bytes)
	return sub, err == nil
}

func decodeTile(f message.Field) (tileRecord, bool) {
	var rec tileRecord
	sub, ok := subFields(f)
	if !ok {
		return rec, false
	}
	for _, s := range sub {
		switch s.Num {
		case fieldRef:
			rec.ref = s.Varint
		case fieldFlags:
			rec.flags = s.Varint
		case fieldData:
			rec.data = s.Bytes
		case fieldState:
			rec.state = s.Bytes
		}
	}
	return rec, rec.ref != 0 && rec.ref <= 0xffffffff && len(rec.data) > 0
}

func decodeTileCache(f message.Field, snap *snapshot) bool {
	sub, ok := subFields(f)
	if !ok {
		return false
	}
	var params []byte
	for _, s := range sub {
		switch s.Num {
		case fieldTileCacheParams:
			params = s.Bytes
		case fieldAllocatorCapacity:
			snap.allocCapacity = int(s.Varint)
		}
	}
	r := rw.NewNavMeshDataBinReader(params)
	if params == nil || snap.tcParams.FromBin(r) != nil || r.Size() != 0 {
		return false
	}
	return snap.allocCapacity > 0
}

func decodeObstacle(f message.Field) (obstacleRecord, bool) {
	var rec obstacleRecord
	sub, ok := subFields(f)
	if !ok {
		return rec, false
	}
	for _, s := range sub {
		switch s.Num {
		case fieldObstacleRef:
			rec.ref = s.Varint
		case fieldObstacleType:
			rec.typ = s.Varint
		case fieldObstacleShape:
			rec.shape = s.Bytes
		}
	}
	return rec, rec.ref != 0 && rec.ref <= 0xffffffff
}
