// Package detour_export snapshots a navigation mesh and its tile cache into a
// single blob and rebuilds an equivalent runtime from it.
//
// The blob is a protobuf wire-format message. Top-level fields appear in
// ascending field order:
//
//	1 magic            varint, NAVMESHSET_MAGIC
//	2 version          varint, NAVMESHSET_VERSION
//	3 navmesh params   bytes, detour.NavMeshParams binary layout
//	4 tile             message {1 ref, 2 flags, 3 data, 4 state}, repeated
//	5 tile cache       message {1 params, 2 allocator capacity}, optional
//	6 compressed tile  message {1 ref, 2 flags, 3 data}, repeated
//	7 obstacle         message {1 ref, 2 type, 3 shape}, repeated
//	8 pending rebuild  varint compressed tile ref, repeated
//
// Every reference is stored so the importer can hand out the same tile,
// polygon, compressed tile and obstacle references as the exported runtime.
package detour_export

import (
	"errors"
	"fmt"

	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/common/message"
	"github.com/gorustyt/tilenav/common/rw"
	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_tile_cache"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
)

const NAVMESHSET_MAGIC = 'M'<<24 | 'S'<<16 | 'E'<<8 | 'T' //'MSET';
const NAVMESHSET_VERSION = 1

// DefaultAllocatorCapacity is used for tile caches whose allocator does not
// report a capacity.
const DefaultAllocatorCapacity = 32 * 1024

const (
	fieldMagic protowire.Number = iota + 1
	fieldVersion
	fieldNavMeshParams
	fieldTile
	fieldTileCache
	fieldCompressedTile
	fieldObstacle
	fieldPending
)

// Fields of the nested tile, tile cache and obstacle messages.
const (
	fieldRef protowire.Number = iota + 1
	fieldFlags
	fieldData
	fieldState
)

const (
	fieldTileCacheParams protowire.Number = iota + 1
	fieldAllocatorCapacity
)

const (
	fieldObstacleRef protowire.Number = iota + 1
	fieldObstacleType
	fieldObstacleShape
)

var ErrNilNavMesh = errors.New("detour_export: nil navmesh")

// ExportNavMesh serializes every live tile of nav and, when tc is not nil,
// the tile cache layers, obstacles and rebuild queue. Call it between
// updates; pending rebuilds are exported as pending.
func ExportNavMesh(nav detour.IDtNavMesh, tc *detour_tile_cache.DtTileCache) ([]byte, error) {
	if nav == nil {
		return nil, ErrNilNavMesh
	}
	enc := message.NewEncoder()
	enc.Varint(fieldMagic, NAVMESHSET_MAGIC)
	enc.Varint(fieldVersion, NAVMESHSET_VERSION)

	w := rw.NewNavMeshDataBinWriter()
	nav.GetParams().ToBin(w)
	enc.Bytes(fieldNavMeshParams, w.GetWriteBytes())

	numTiles := 0
	for i := int32(0); i < nav.GetMaxTiles(); i++ {
		tile := nav.GetTile(int(i))
		if tile == nil || tile.Header == nil || tile.Data == nil {
			continue
		}
		state, status := nav.StoreTileState(tile)
		if status.DtStatusFailed() {
			return nil, fmt.Errorf("detour_export: store tile state: %w", status.Err())
		}
		ref := nav.GetTileRef(tile)
		enc.Message(fieldTile, func(sub *message.Encoder) {
			sub.Varint(fieldRef, uint64(ref))
			sub.Varint(fieldFlags, uint64(uint32(tile.Flags)))
			sub.Bytes(fieldData, tile.Data.ToBin())
			sub.Bytes(fieldState, state)
		})
		numTiles++
	}

	numLayers, numObstacles := 0, 0
	if tc != nil {
		w = rw.NewNavMeshDataBinWriter()
		tc.GetParams().ToBin(w)
		enc.Message(fieldTileCache, func(sub *message.Encoder) {
			sub.Bytes(fieldTileCacheParams, w.GetWriteBytes())
			sub.Varint(fieldAllocatorCapacity, uint64(allocatorCapacity(tc.GetAlloc())))
		})

		for i := 0; i < tc.GetTileCount(); i++ {
			tile := tc.GetTile(i)
			if tile.Header == nil {
				continue
			}
			ref := tc.GetTileRef(tile)
			enc.Message(fieldCompressedTile, func(sub *message.Encoder) {
				sub.Varint(fieldRef, uint64(ref))
				sub.Varint(fieldFlags, uint64(tile.Flags))
				sub.Bytes(fieldData, tile.Data)
			})
			numLayers++
		}

		for _, ref := range tc.Obstacles() {
			ob := tc.GetObstacleByRef(ref)
			sw := rw.NewNavMeshDataBinWriter()
			ob.ShapeToBin(sw)
			enc.Message(fieldObstacle, func(sub *message.Encoder) {
				sub.Varint(fieldObstacleRef, uint64(ref))
				sub.Varint(fieldObstacleType, uint64(ob.Type))
				sub.Bytes(fieldObstacleShape, sw.GetWriteBytes())
			})
			numObstacles++
		}

		for _, ref := range tc.PendingTiles() {
			enc.Varint(fieldPending, uint64(ref))
		}
	}

	blob := enc.Encode()
	log.L().Info("navmesh exported",
		zap.Int("tiles", numTiles), zap.Int("layers", numLayers),
		zap.Int("obstacles", numObstacles), zap.Int("bytes", len(blob)))
	return blob, nil
}

func allocatorCapacity(a detour_tile_cache.DtTileCacheAlloc) int {
	if c, ok := a.(interface{ Capacity() int }); ok {
		return c.Capacity()
	}
	return DefaultAllocatorCapacity
}
