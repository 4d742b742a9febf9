package detour_tile_cache

import (
	"math"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/detour"
	"go.uber.org/zap"
	"gopkg.in/eapache/queue.v1"
)

type DtCompressedTileRef uint32

/// Flags for addTile

const DT_COMPRESSEDTILE_FREE_DATA = 0x01 ///< The cache owns the layer data and drops it on removal.

type DtCompressedTile struct {
	Header *DtTileCacheLayerHeader
	Data   []byte
	Flags  uint32

	salt  uint32 ///< Counter describing modifications to the tile.
	index int
	next  *DtCompressedTile
}

type DtTileCacheParams struct {
	Orig                   [3]float32
	Cs, Ch                 float32
	Width, Height          int
	WalkableHeight         float32
	WalkableRadius         float32
	WalkableClimb          float32
	MaxSimplificationError float32
	MaxTiles               int
	MaxObstacles           int
	// ObstacleArea is written into cells covered by an obstacle.
	// DT_TILECACHE_NULL_AREA cuts the cells out of the mesh.
	ObstacleArea uint8
	// RebuildsPerUpdate is the number of tiles Update rebuilds per call. Zero means one.
	RebuildsPerUpdate int
}

const (
	dtMaxObstacles     = 0xffff
	dtObstacleSaltMask = 0xffff
)

// DtTileCache stores compressed height layers and rebuilds navmesh tiles
// from them when obstacles change. It is not safe for concurrent use.
type DtTileCache struct {
	m_tileLutSize int ///< Tile hash lookup size (must be pot).
	m_tileLutMask int ///< Tile hash lookup mask.

	m_posLookup    []*DtCompressedTile ///< Tile hash lookup.
	m_nextFreeTile *DtCompressedTile   ///< Freelist of tiles.
	m_tiles        []*DtCompressedTile ///< List of tiles.

	m_saltBits uint32 ///< Number of salt bits in the tile ID.
	m_tileBits uint32 ///< Number of tile bits in the tile ID.

	m_params DtTileCacheParams
	m_talloc DtTileCacheAlloc
	m_tcomp  DtTileCacheCompressor
	m_tmproc DtTileCacheMeshProcess

	m_obstacles        []*DtTileCacheObstacle
	m_nextFreeObstacle *DtTileCacheObstacle

	// Tiles waiting for a rebuild, oldest first.
	m_update  *queue.Queue
	m_pending map[DtCompressedTileRef]struct{}

	initialized bool
}

func NewDtTileCache() *DtTileCache {
	return &DtTileCache{}
}

func (d *DtTileCache) GetAlloc() DtTileCacheAlloc             { return d.m_talloc }
func (d *DtTileCache) GetCompressor() DtTileCacheCompressor   { return d.m_tcomp }
func (d *DtTileCache) GetMeshProcess() DtTileCacheMeshProcess { return d.m_tmproc }
func (d *DtTileCache) GetParams() *DtTileCacheParams          { return &d.m_params }
func (d *DtTileCache) GetTileCount() int                      { return d.m_params.MaxTiles }
func (d *DtTileCache) GetTile(i int) *DtCompressedTile        { return d.m_tiles[i] }
func (d *DtTileCache) GetObstacleCount() int                  { return d.m_params.MaxObstacles }
func (d *DtTileCache) GetObstacle(i int) *DtTileCacheObstacle { return d.m_obstacles[i] }

// / Encodes a tile id.
func (d *DtTileCache) encodeTileId(salt uint32, it int) DtCompressedTileRef {
	return DtCompressedTileRef(salt<<d.m_tileBits | uint32(it))
}

// / Decodes a tile salt.
func (d *DtTileCache) decodeTileIdSalt(ref DtCompressedTileRef) uint32 {
	saltMask := uint32(1)<<d.m_saltBits - 1
	return (uint32(ref) >> d.m_tileBits) & saltMask
}

// / Decodes a tile id.
func (d *DtTileCache) decodeTileIdTile(ref DtCompressedTileRef) int {
	tileMask := uint32(1)<<d.m_tileBits - 1
	return int(uint32(ref) & tileMask)
}

// / Encodes an obstacle id.
func encodeObstacleId(salt uint16, it int) DtObstacleRef {
	return DtObstacleRef(uint32(salt)<<16 | uint32(it))
}

// / Decodes an obstacle salt.
func decodeObstacleIdSalt(ref DtObstacleRef) uint16 {
	return uint16(uint32(ref) >> 16 & dtObstacleSaltMask)
}

// / Decodes an obstacle id.
func decodeObstacleIdObstacle(ref DtObstacleRef) int {
	return int(uint32(ref) & 0xffff)
}

// Init binds the collaborators and allocates the tile and obstacle pools.
// A nil mesh process assigns DT_TILECACHE_POLYFLAGS_WALK to every polygon
// and DT_TILECACHE_POLYFLAGS_DISABLED to obstacle polygons.
func (d *DtTileCache) Init(params *DtTileCacheParams, talloc DtTileCacheAlloc,
	tcomp DtTileCacheCompressor, tmproc DtTileCacheMeshProcess) detour.DtStatus {
	if d.initialized || params == nil || talloc == nil || tcomp == nil {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if params.Cs <= 0 || params.Ch <= 0 ||
		params.Width <= 0 || params.Width > 255 || params.Height <= 0 || params.Height > 255 ||
		params.MaxTiles <= 0 || params.MaxObstacles <= 0 || params.MaxObstacles > dtMaxObstacles ||
		params.RebuildsPerUpdate < 0 || params.ObstacleArea >= detour.DT_MAX_AREAS {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	// Init ID generator values.
	tileBits := common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	saltBits := min(31, 32-tileBits)
	if saltBits < detour.DT_MIN_SALT_BITS {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	d.m_tileBits, d.m_saltBits = tileBits, saltBits

	d.m_params = *params
	d.m_talloc = talloc
	d.m_tcomp = tcomp
	d.m_tmproc = tmproc
	if d.m_tmproc == nil {
		d.m_tmproc = NewAreaFlagsMeshProcess(map[uint8]uint16{
			params.ObstacleArea: DT_TILECACHE_POLYFLAGS_DISABLED,
		}, DT_TILECACHE_POLYFLAGS_WALK)
	}

	// Alloc space for obstacles.
	d.m_obstacles = make([]*DtTileCacheObstacle, params.MaxObstacles)
	d.m_nextFreeObstacle = nil
	for i := params.MaxObstacles - 1; i >= 0; i-- {
		d.m_obstacles[i] = &DtTileCacheObstacle{salt: 1, index: i, next: d.m_nextFreeObstacle}
		d.m_nextFreeObstacle = d.m_obstacles[i]
	}

	// Init tiles
	d.m_tileLutSize = int(common.NextPow2(uint32(params.MaxTiles / 4)))
	if d.m_tileLutSize == 0 {
		d.m_tileLutSize = 1
	}
	d.m_tileLutMask = d.m_tileLutSize - 1
	d.m_posLookup = make([]*DtCompressedTile, d.m_tileLutSize)

	d.m_tiles = make([]*DtCompressedTile, params.MaxTiles)
	d.m_nextFreeTile = nil
	for i := params.MaxTiles - 1; i >= 0; i-- {
		d.m_tiles[i] = &DtCompressedTile{salt: 1, index: i, next: d.m_nextFreeTile}
		d.m_nextFreeTile = d.m_tiles[i]
	}

	d.m_update = queue.New()
	d.m_pending = make(map[DtCompressedTileRef]struct{})
	d.initialized = true
	return detour.DT_SUCCESS
}

func (d *DtTileCache) lookupHash(tx, ty int32) int32 {
	return common.ComputeTileHash(tx, ty, int32(d.m_tileLutMask))
}

func (d *DtTileCache) GetTilesAt(tx, ty int32) []DtCompressedTileRef {
	var tiles []DtCompressedTileRef
	// Find tile based on hash.
	for tile := d.m_posLookup[d.lookupHash(tx, ty)]; tile != nil; tile = tile.next {
		if tile.Header != nil && tile.Header.Tx == tx && tile.Header.Ty == ty {
			tiles = append(tiles, d.GetTileRef(tile))
		}
	}
	return tiles
}

func (d *DtTileCache) GetTileAt(tx, ty, tlayer int32) *DtCompressedTile {
	for tile := d.m_posLookup[d.lookupHash(tx, ty)]; tile != nil; tile = tile.next {
		if tile.Header != nil && tile.Header.Tx == tx && tile.Header.Ty == ty && tile.Header.Tlayer == tlayer {
			return tile
		}
	}
	return nil
}

func (d *DtTileCache) GetTileRef(tile *DtCompressedTile) DtCompressedTileRef {
	if tile == nil {
		return 0
	}
	return d.encodeTileId(tile.salt, tile.index)
}

func (d *DtTileCache) GetTileByRef(ref DtCompressedTileRef) *DtCompressedTile {
	if ref == 0 || !d.initialized {
		return nil
	}
	tileIndex := d.decodeTileIdTile(ref)
	if tileIndex >= d.m_params.MaxTiles {
		return nil
	}
	tile := d.m_tiles[tileIndex]
	if tile.salt != d.decodeTileIdSalt(ref) || tile.Header == nil {
		return nil
	}
	return tile
}

func (d *DtTileCache) GetObstacleRef(ob *DtTileCacheObstacle) DtObstacleRef {
	if ob == nil {
		return 0
	}
	return encodeObstacleId(ob.salt, ob.index)
}

func (d *DtTileCache) GetObstacleByRef(ref DtObstacleRef) *DtTileCacheObstacle {
	if ref == 0 || !d.initialized {
		return nil
	}
	idx := decodeObstacleIdObstacle(ref)
	if idx >= d.m_params.MaxObstacles {
		return nil
	}
	ob := d.m_obstacles[idx]
	if ob.salt != decodeObstacleIdSalt(ref) || ob.State == DT_OBSTACLE_EMPTY {
		return nil
	}
	return ob
}

// AddTile stores a compressed layer and queues its cell for a navmesh build.
func (d *DtTileCache) AddTile(data []byte, flags uint32) (DtCompressedTileRef, detour.DtStatus) {
	return d.addTile(data, flags, 0)
}

// AddTileWithRef stores a compressed layer under a reference previously
// handed out by this cache, as when reloading a saved cache.
func (d *DtTileCache) AddTileWithRef(data []byte, flags uint32, ref DtCompressedTileRef) (DtCompressedTileRef, detour.DtStatus) {
	if ref == 0 {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return d.addTile(data, flags, ref)
}

func (d *DtTileCache) addTile(data []byte, flags uint32, lastRef DtCompressedTileRef) (DtCompressedTileRef, detour.DtStatus) {
	if !d.initialized {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	// Make sure the data is in right format.
	header, status := DtDecodeTileCacheLayerHeader(data)
	if status.DtStatusFailed() {
		return 0, status
	}
	if int(header.Width) != d.m_params.Width || int(header.Height) != d.m_params.Height {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	// Make sure the location is free.
	if d.GetTileAt(header.Tx, header.Ty, header.Tlayer) != nil {
		return 0, detour.DT_FAILURE | detour.DT_ALREADY_OCCUPIED
	}

	// Allocate a tile.
	var tile *DtCompressedTile
	if lastRef == 0 {
		if d.m_nextFreeTile != nil {
			tile = d.m_nextFreeTile
			d.m_nextFreeTile = tile.next
			tile.next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		tileIndex := d.decodeTileIdTile(lastRef)
		salt := d.decodeTileIdSalt(lastRef)
		if tileIndex >= d.m_params.MaxTiles || salt == 0 {
			return 0, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
		}
		// Try to find the specific tile id from the free list.
		target := d.m_tiles[tileIndex]
		var prev *DtCompressedTile
		for t := d.m_nextFreeTile; t != nil && t != target; t = t.next {
			prev = t
		}
		if target.Header != nil || (prev == nil && d.m_nextFreeTile != target) {
			return 0, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
		}
		// Remove from freelist
		if prev == nil {
			d.m_nextFreeTile = target.next
		} else {
			prev.next = target.next
		}
		target.next = nil
		target.salt = salt
		tile = target
	}

	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}

	// Insert tile into the position lut.
	h := d.lookupHash(header.Tx, header.Ty)
	tile.next = d.m_posLookup[h]
	d.m_posLookup[h] = tile

	// Init tile.
	tile.Header = header
	tile.Data = data
	tile.Flags = flags

	ref := d.GetTileRef(tile)
	d.markDirty(ref)
	log.L().Debug("tile cache layer added",
		zap.Int32("tx", header.Tx), zap.Int32("ty", header.Ty), zap.Int32("layer", header.Tlayer),
		zap.Uint32("ref", uint32(ref)), zap.Int("bytes", len(data)))
	return ref, detour.DT_SUCCESS
}

// RemoveTile drops the layer. The data is returned unless the cache owns it.
func (d *DtTileCache) RemoveTile(ref DtCompressedTileRef) ([]byte, detour.DtStatus) {
	tile := d.GetTileByRef(ref)
	if tile == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := d.lookupHash(tile.Header.Tx, tile.Header.Ty)
	var prev *DtCompressedTile
	for cur := d.m_posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				d.m_posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	// Reset tile.
	var data []byte
	if tile.Flags&DT_COMPRESSEDTILE_FREE_DATA == 0 {
		data = tile.Data
	}
	tile.Header = nil
	tile.Data = nil
	tile.Flags = 0
	d.unmarkDirty(ref)

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & (uint32(1)<<d.m_saltBits - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = d.m_nextFreeTile
	d.m_nextFreeTile = tile

	log.L().Debug("tile cache layer removed", zap.Uint32("ref", uint32(ref)))
	return data, detour.DT_SUCCESS
}

// AddObstacle adds a cylinder obstacle standing on pos.
func (d *DtTileCache) AddObstacle(pos common.Vec3, radius, height float32) (DtObstacleRef, detour.DtStatus) {
	if radius < 0 || height < 0 {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return d.addObstacle(&DtTileCacheObstacle{
		Type:     DT_OBSTACLE_CYLINDER,
		Cylinder: DtObstacleCylinder{Pos: pos, Radius: radius, Height: height},
	})
}

// AddBoxObstacle adds an axis aligned box obstacle.
func (d *DtTileCache) AddBoxObstacle(bmin, bmax common.Vec3) (DtObstacleRef, detour.DtStatus) {
	if bmin[0] > bmax[0] || bmin[1] > bmax[1] || bmin[2] > bmax[2] {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return d.addObstacle(&DtTileCacheObstacle{
		Type: DT_OBSTACLE_BOX,
		Box:  DtObstacleBox{Bmin: bmin, Bmax: bmax},
	})
}

// AddOrientedBoxObstacle adds a box rotated by yRadians around the y axis.
func (d *DtTileCache) AddOrientedBoxObstacle(center, halfExtents common.Vec3, yRadians float32) (DtObstacleRef, detour.DtStatus) {
	if halfExtents[0] < 0 || halfExtents[1] < 0 || halfExtents[2] < 0 {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return d.addObstacle(&DtTileCacheObstacle{
		Type:        DT_OBSTACLE_ORIENTED_BOX,
		OrientedBox: NewDtObstacleOrientedBox(center, halfExtents, yRadians),
	})
}

func (d *DtTileCache) addObstacle(shape *DtTileCacheObstacle) (DtObstacleRef, detour.DtStatus) {
	if !d.initialized {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	ob := d.m_nextFreeObstacle
	if ob == nil {
		return 0, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	d.m_nextFreeObstacle = ob.next
	ob.next = nil
	return d.placeObstacle(ob, shape), detour.DT_SUCCESS
}

// RestoreObstacle places an obstacle under a reference previously handed out
// by this cache.
func (d *DtTileCache) RestoreObstacle(shape *DtTileCacheObstacle, ref DtObstacleRef) detour.DtStatus {
	if !d.initialized || shape == nil {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	idx := decodeObstacleIdObstacle(ref)
	salt := decodeObstacleIdSalt(ref)
	if idx >= d.m_params.MaxObstacles || salt == 0 || shape.Type > DT_OBSTACLE_ORIENTED_BOX {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	target := d.m_obstacles[idx]
	if target.State != DT_OBSTACLE_EMPTY {
		return detour.DT_FAILURE | detour.DT_ALREADY_OCCUPIED
	}
	var prev *DtTileCacheObstacle
	for ob := d.m_nextFreeObstacle; ob != target; ob = ob.next {
		prev = ob
	}
	if prev == nil {
		d.m_nextFreeObstacle = target.next
	} else {
		prev.next = target.next
	}
	target.next = nil
	target.salt = salt
	d.placeObstacle(target, shape)
	return detour.DT_SUCCESS
}

func (d *DtTileCache) placeObstacle(ob, shape *DtTileCacheObstacle) DtObstacleRef {
	ob.Type = shape.Type
	ob.Cylinder = shape.Cylinder
	ob.Box = shape.Box
	ob.OrientedBox = shape.OrientedBox
	ob.State = DT_OBSTACLE_PROCESSED

	touched := d.markObstacleTiles(ob)
	ref := d.GetObstacleRef(ob)
	log.L().Debug("obstacle added", zap.Uint32("ref", uint32(ref)),
		zap.Uint8("type", ob.Type), zap.Int("tiles", touched))
	return ref
}

// RemoveObstacle frees the obstacle at once and queues the tiles it covered.
func (d *DtTileCache) RemoveObstacle(ref DtObstacleRef) detour.DtStatus {
	ob := d.GetObstacleByRef(ref)
	if ob == nil {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	touched := d.markObstacleTiles(ob)

	ob.State = DT_OBSTACLE_EMPTY
	// Update salt, salt should never be zero.
	ob.salt = (ob.salt + 1) & dtObstacleSaltMask
	if ob.salt == 0 {
		ob.salt++
	}
	// Return obstacle to free list.
	ob.next = d.m_nextFreeObstacle
	d.m_nextFreeObstacle = ob

	log.L().Debug("obstacle removed", zap.Uint32("ref", uint32(ref)), zap.Int("tiles", touched))
	return detour.DT_SUCCESS
}

// Obstacles returns the references of all live obstacles in slot order.
func (d *DtTileCache) Obstacles() []DtObstacleRef {
	var refs []DtObstacleRef
	for _, ob := range d.m_obstacles {
		if ob.State != DT_OBSTACLE_EMPTY {
			refs = append(refs, d.GetObstacleRef(ob))
		}
	}
	return refs
}

// markObstacleTiles queues every tile whose bounds overlap the obstacle.
func (d *DtTileCache) markObstacleTiles(ob *DtTileCacheObstacle) int {
	bmin, bmax := d.GetObstacleBounds(ob)
	tiles := d.QueryTiles(bmin[:], bmax[:])
	for _, ref := range tiles {
		d.markDirty(ref)
	}
	return len(tiles)
}

func (d *DtTileCache) markDirty(ref DtCompressedTileRef) {
	if _, ok := d.m_pending[ref]; ok {
		return
	}
	d.m_pending[ref] = struct{}{}
	d.m_update.Add(ref)
}

func (d *DtTileCache) unmarkDirty(ref DtCompressedTileRef) {
	if _, ok := d.m_pending[ref]; !ok {
		return
	}
	delete(d.m_pending, ref)
	for n := d.m_update.Length(); n > 0; n-- {
		if r := d.m_update.Remove().(DtCompressedTileRef); r != ref {
			d.m_update.Add(r)
		}
	}
}

// PendingTiles returns the tiles waiting for a rebuild in processing order.
func (d *DtTileCache) PendingTiles() []DtCompressedTileRef {
	if d.m_update == nil {
		return nil
	}
	refs := make([]DtCompressedTileRef, d.m_update.Length())
	for i := range refs {
		refs[i] = d.m_update.Get(i).(DtCompressedTileRef)
	}
	return refs
}

// RestorePending replaces the rebuild queue. Every reference must be live.
func (d *DtTileCache) RestorePending(refs []DtCompressedTileRef) detour.DtStatus {
	for _, ref := range refs {
		if d.GetTileByRef(ref) == nil {
			return detour.DT_FAILURE | detour.DT_INVALID_PARAM
		}
	}
	d.m_update = queue.New()
	clear(d.m_pending)
	for _, ref := range refs {
		d.markDirty(ref)
	}
	return detour.DT_SUCCESS
}

// QueryTiles returns the tiles whose tight bounds overlap the box. Only the
// grid cells covered by the box are visited.
func (d *DtTileCache) QueryTiles(bmin, bmax []float32) []DtCompressedTileRef {
	var results []DtCompressedTileRef
	tw := float32(d.m_params.Width) * d.m_params.Cs
	th := float32(d.m_params.Height) * d.m_params.Cs
	tx0 := int32(math.Floor(float64((bmin[0] - d.m_params.Orig[0]) / tw)))
	tx1 := int32(math.Floor(float64((bmax[0] - d.m_params.Orig[0]) / tw)))
	ty0 := int32(math.Floor(float64((bmin[2] - d.m_params.Orig[2]) / th)))
	ty1 := int32(math.Floor(float64((bmax[2] - d.m_params.Orig[2]) / th)))

	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			for _, ref := range d.GetTilesAt(tx, ty) {
				tile := d.m_tiles[d.decodeTileIdTile(ref)]
				tbmin, tbmax := d.CalcTightTileBounds(tile.Header)
				if common.DtOverlapBounds(bmin, bmax, tbmin[:], tbmax[:]) {
					results = append(results, ref)
				}
			}
		}
	}
	return results
}

func (d *DtTileCache) Update(navmesh detour.IDtNavMesh) (upToDate bool, status detour.DtStatus) {
	return d.UpdateN(navmesh, max(d.m_params.RebuildsPerUpdate, 1))
}

// UpdateN rebuilds up to maxRebuilds queued tiles in FIFO order. A rebuild
// that fails stays at the head of the queue and is retried by the next call;
// tiles removed from the cache meanwhile are skipped.
func (d *DtTileCache) UpdateN(navmesh detour.IDtNavMesh, maxRebuilds int) (upToDate bool, status detour.DtStatus) {
	if !d.initialized || navmesh == nil {
		return false, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	status = detour.DT_SUCCESS
	for rebuilt := 0; rebuilt < maxRebuilds && d.m_update.Length() > 0; {
		ref := d.m_update.Peek().(DtCompressedTileRef)
		if d.GetTileByRef(ref) == nil {
			d.popDirty()
			continue
		}
		if st := d.BuildNavMeshTile(ref, navmesh); st.DtStatusFailed() {
			log.L().Warn("tile cache rebuild failed",
				zap.Uint32("ref", uint32(ref)), zap.Stringer("status", st))
			return false, st
		}
		d.popDirty()
		rebuilt++
	}
	return d.m_update.Length() == 0, status
}

func (d *DtTileCache) popDirty() {
	delete(d.m_pending, d.m_update.Remove().(DtCompressedTileRef))
}

// removeNavMeshTile drops the navmesh tile built earlier from ref, if any.
func (d *DtTileCache) removeNavMeshTile(navmesh detour.IDtNavMesh, ref DtCompressedTileRef, oldRef detour.DtTileRef) detour.DtStatus {
	if oldRef == 0 {
		return detour.DT_SUCCESS
	}
	if _, status := navmesh.RemoveTile(oldRef); status.DtStatusFailed() {
		log.L().Warn("tile cache: remove navmesh tile failed",
			zap.Uint32("ref", uint32(ref)), zap.Uint32("navRef", uint32(oldRef)), zap.Stringer("status", status))
		return status
	}
	return detour.DT_SUCCESS
}

func (d *DtTileCache) BuildNavMeshTilesAt(tx, ty int32, navmesh detour.IDtNavMesh) detour.DtStatus {
	for _, ref := range d.GetTilesAt(tx, ty) {
		status := d.BuildNavMeshTile(ref, navmesh)
		if status.DtStatusFailed() {
			return status
		}
	}
	return detour.DT_SUCCESS
}

// BuildNavMeshTile rebuilds the navmesh tile of the layer right away and
// replaces the tile at the same cell in navmesh.
func (d *DtTileCache) BuildNavMeshTile(ref DtCompressedTileRef, navmesh detour.IDtNavMesh) detour.DtStatus {
	tile := d.GetTileByRef(ref)
	if tile == nil || navmesh == nil {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	walkableClimbVx := int(d.m_params.WalkableClimb / d.m_params.Ch)

	d.m_talloc.Reset()

	// Decompress tile layer data.
	layer, status := DtDecompressTileCacheLayer(d.m_talloc, d.m_tcomp, tile.Data)
	if status.DtStatusFailed() {
		return status
	}

	// Rasterize obstacles.
	tbmin, tbmax := d.CalcTightTileBounds(tile.Header)
	for _, ob := range d.m_obstacles {
		if ob.State == DT_OBSTACLE_EMPTY {
			continue
		}
		obmin, obmax := d.GetObstacleBounds(ob)
		if !common.DtOverlapBounds(obmin[:], obmax[:], tbmin[:], tbmax[:]) {
			continue
		}
		ob.mark(layer, d.m_params.Cs, d.m_params.Ch, d.m_params.ObstacleArea)
	}

	// Build navmesh
	lmesh, status := DtBuildTileCachePolyMesh(d.m_talloc, layer, walkableClimbVx)
	if status.DtStatusFailed() {
		return status
	}

	header := tile.Header
	oldRef := navmesh.GetTileRefAt(header.Tx, header.Ty, header.Tlayer)

	// Early out if the mesh tile is empty.
	if lmesh.Npolys == 0 {
		// Remove existing tile.
		return d.removeNavMeshTile(navmesh, ref, oldRef)
	}

	params := detour.DtNavMeshCreateParams{
		Verts:          lmesh.Verts,
		VertCount:      lmesh.Nverts,
		Polys:          lmesh.Polys,
		PolyAreas:      lmesh.Areas,
		PolyFlags:      lmesh.Flags,
		PolyCount:      lmesh.Npolys,
		Nvp:            lmesh.Nvp,
		WalkableHeight: d.m_params.WalkableHeight,
		WalkableRadius: d.m_params.WalkableRadius,
		WalkableClimb:  d.m_params.WalkableClimb,
		TileX:          header.Tx,
		TileY:          header.Ty,
		TileLayer:      header.Tlayer,
		Cs:             d.m_params.Cs,
		Ch:             d.m_params.Ch,
		BuildBvTree:    true,
		Bmin:           header.Bmin,
		Bmax:           header.Bmax,
	}
	d.m_tmproc.Process(&params, lmesh.Areas, lmesh.Flags)

	navData, ok := detour.DtCreateNavMeshData(&params)
	if !ok {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	// Remove existing tile.
	if status := d.removeNavMeshTile(navmesh, ref, oldRef); status.DtStatusFailed() {
		return status
	}
	// Let the navmesh own the data.
	navRef, status := navmesh.AddTile(navData, detour.DT_TILE_FREE_DATA, 0)
	if status.DtStatusFailed() {
		return status
	}
	log.L().Debug("tile rebuilt",
		zap.Uint32("ref", uint32(ref)), zap.Uint32("navRef", uint32(navRef)),
		zap.Int("polys", lmesh.Npolys), zap.Int("arenaTop", arenaTop(d.m_talloc)))
	return detour.DT_SUCCESS
}

func arenaTop(a DtTileCacheAlloc) int {
	if la, ok := a.(*DtTileCacheLinearAllocator); ok {
		return la.Top()
	}
	return -1
}

// CalcTightTileBounds returns the world bounds of the usable layer region.
func (d *DtTileCache) CalcTightTileBounds(header *DtTileCacheLayerHeader) (bmin, bmax [3]float32) {
	cs := d.m_params.Cs
	bmin[0] = header.Bmin[0] + float32(header.Minx)*cs
	bmin[1] = header.Bmin[1]
	bmin[2] = header.Bmin[2] + float32(header.Miny)*cs
	bmax[0] = header.Bmin[0] + float32(header.Maxx+1)*cs
	bmax[1] = header.Bmax[1]
	bmax[2] = header.Bmin[2] + float32(header.Maxy+1)*cs
	return
}

func (d *DtTileCache) GetObstacleBounds(ob *DtTileCacheObstacle) (bmin, bmax [3]float32) {
	return ob.Bounds()
}
