package detour

import (
	"math"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/log"
	"go.uber.org/zap"
)

const dtMaxNeis = 32

// / A navigation mesh based on tiles of convex polygons.
// / @ingroup detour
type DtNavMesh struct {
	m_params                  NavMeshParams ///< Current initialization params.
	m_orig                    [3]float32    ///< Origin of the tile (0,0)
	m_tileWidth, m_tileHeight float32       ///< Dimensions of each tile.
	m_maxTiles                int32         ///< Max number of tiles.
	m_tileLutSize             int32         ///< Tile hash lookup size (must be pot).
	m_tileLutMask             int32         ///< Tile hash lookup mask.

	m_posLookup []*DtMeshTile ///< Tile hash lookup.
	m_nextFree  *DtMeshTile   ///< Freelist of tiles.
	m_tiles     []*DtMeshTile ///< List of tiles.

	m_saltBits uint32 ///< Number of salt bits in the tile ID.
	m_tileBits uint32 ///< Number of tile bits in the tile ID.
	m_polyBits uint32 ///< Number of poly bits in the tile ID.

	initialized bool
}

// NewDtNavMesh returns an empty mesh; call Init or InitSolo once before use.
func NewDtNavMesh() *DtNavMesh {
	return &DtNavMesh{}
}

// / Initializes the navigation mesh for tiled use.
func NewDtNavMeshWithParams(params *NavMeshParams) (*DtNavMesh, DtStatus) {
	mesh := NewDtNavMesh()
	status := mesh.Init(params)
	if status.DtStatusFailed() {
		return nil, status
	}
	return mesh, status
}

// / Initializes the navigation mesh for single tile use.
func NewDtNavMeshSolo(data []byte, flags int32) (*DtNavMesh, DtStatus) {
	mesh := NewDtNavMesh()
	status := mesh.InitSolo(data, flags)
	if status.DtStatusFailed() {
		return nil, status
	}
	return mesh, status
}

// / Initializes the navigation mesh for tiled use.
// /  @param[in]	params		Initialization parameters.
// / @return The status flags for the operation.
func (mesh *DtNavMesh) Init(params *NavMeshParams) DtStatus {
	if mesh.initialized || params == nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	if params.MaxTiles <= 0 || params.MaxPolys <= 0 || params.TileWidth <= 0 || params.TileHeight <= 0 {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	tileBits := common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	polyBits := common.Ilog2(common.NextPow2(uint32(params.MaxPolys)))
	if tileBits+polyBits >= DT_REF_BITS {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	saltBits := min(31, DT_REF_BITS-tileBits-polyBits)
	if saltBits < DT_MIN_SALT_BITS {
		return DT_FAILURE | DT_INVALID_PARAM
	}

	mesh.m_params = *params
	mesh.m_orig = params.Orig
	mesh.m_tileWidth = params.TileWidth
	mesh.m_tileHeight = params.TileHeight

	// Init tiles
	mesh.m_maxTiles = params.MaxTiles
	mesh.m_tileLutSize = int32(common.NextPow2(uint32(params.MaxTiles) / 4))
	if mesh.m_tileLutSize == 0 {
		mesh.m_tileLutSize = 1
	}
	mesh.m_tileLutMask = mesh.m_tileLutSize - 1
	mesh.m_tiles = make([]*DtMeshTile, mesh.m_maxTiles)
	mesh.m_posLookup = make([]*DtMeshTile, mesh.m_tileLutSize)
	mesh.m_nextFree = nil
	for i := mesh.m_maxTiles - 1; i >= 0; i-- {
		mesh.m_tiles[i] = &DtMeshTile{Salt: 1, index: i, Next: mesh.m_nextFree}
		mesh.m_nextFree = mesh.m_tiles[i]
	}

	mesh.m_tileBits = tileBits
	mesh.m_polyBits = polyBits
	mesh.m_saltBits = saltBits
	mesh.initialized = true
	return DT_SUCCESS
}

// / Initializes the navigation mesh for single tile use.
// /  @param[in]	data		Data of the new tile. (See: #DtCreateNavMeshData)
// /  @param[in]	flags		The tile flags. (See: #dtTileFlags)
// / @return The status flags for the operation.
func (mesh *DtNavMesh) InitSolo(data []byte, flags int32) DtStatus {
	if mesh.initialized {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	// Make sure the data is in right format.
	nd, status := DecodeNavMeshData(data)
	if status.DtStatusFailed() {
		return status
	}
	header := &nd.Header
	params := NavMeshParams{
		Orig:       header.Bmin,
		TileWidth:  header.Bmax[0] - header.Bmin[0],
		TileHeight: header.Bmax[2] - header.Bmin[2],
		MaxTiles:   1,
		MaxPolys:   max(header.PolyCount, 1),
	}
	status = mesh.Init(&params)
	if status.DtStatusFailed() {
		return status
	}
	if _, status = mesh.addTileData(nd, flags, 0); status.DtStatusFailed() {
		*mesh = DtNavMesh{}
		return status
	}
	return status
}

// / @note The parameters are created automatically when the single tile
// / initialization is performed.
func (mesh *DtNavMesh) GetParams() *NavMeshParams {
	return &mesh.m_params
}

// / @par
// /
// / The add operation will fail if the data is in the wrong format, the allocated tile
// / space is full, or there is a tile already at the specified reference.
// /
// / The lastRef parameter is used to restore a tile with the same tile
// / reference it had previously used. In this case the #DtPolyRef's for the
// / tile will be restored to the same values they were before the tile was
// / removed.
// /
// / The mesh keeps the decoded tile; the caller must not reuse @p data.
func (mesh *DtNavMesh) AddTile(data []byte, flags int32, lastRef DtTileRef) (DtTileRef, DtStatus) {
	if !mesh.initialized {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	nd, status := DecodeNavMeshData(data)
	if status.DtStatusFailed() {
		return 0, status
	}
	return mesh.addTileData(nd, flags, lastRef)
}

func (mesh *DtNavMesh) addTileData(nd *NavMeshData, flags int32, lastRef DtTileRef) (DtTileRef, DtStatus) {
	header := &nd.Header
	// Make sure the location is free.
	if mesh.GetTileAt(header.X, header.Y, header.Layer) != nil {
		return 0, DT_FAILURE | DT_ALREADY_OCCUPIED
	}
	if int64(header.PolyCount) > int64(1)<<mesh.m_polyBits {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}

	// Allocate a tile.
	var tile *DtMeshTile
	if lastRef == 0 {
		if mesh.m_nextFree != nil {
			tile = mesh.m_nextFree
			mesh.m_nextFree = tile.Next
			tile.Next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		tileIndex := int32(mesh.DecodePolyIdTile(DtPolyRef(lastRef)))
		salt := mesh.DecodePolyIdSalt(DtPolyRef(lastRef))
		if tileIndex >= mesh.m_maxTiles || salt == 0 {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Try to find the specific tile id from the free list.
		target := mesh.m_tiles[tileIndex]
		var prev *DtMeshTile
		tile = mesh.m_nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.Next
		}
		// Could not find the correct location.
		if tile != target {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Remove from freelist
		if prev == nil {
			mesh.m_nextFree = tile.Next
		} else {
			prev.Next = tile.Next
		}
		tile.Next = nil
		// Restore salt.
		tile.Salt = salt
	}

	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, DT_FAILURE | DT_OUT_OF_MEMORY
	}

	// Insert tile into the position lut.
	h := common.ComputeTileHash(header.X, header.Y, mesh.m_tileLutMask)
	tile.Next = mesh.m_posLookup[h]
	mesh.m_posLookup[h] = tile

	tile.Data = nd
	tile.Header = header
	tile.Verts = nd.NavVerts
	tile.Polys = nd.NavPolys
	tile.DetailMeshes = nd.NavDMeshes
	tile.DetailVerts = nd.NavDVerts
	tile.DetailTris = nd.NavDTris
	tile.BvTree = nd.NavBvtree
	tile.OffMeshCons = nd.OffMeshCons
	tile.Flags = flags
	for i := range tile.Polys {
		tile.Polys[i].FirstLink = DT_NULL_LINK
	}

	// Build links freelist
	tile.Links = make([]DtLink, header.MaxLinkCount)
	tile.LinksFreeList = DT_NULL_LINK
	if header.MaxLinkCount > 0 {
		tile.LinksFreeList = 0
		for i := range tile.Links {
			tile.Links[i].Next = uint32(i + 1)
		}
		tile.Links[header.MaxLinkCount-1].Next = DT_NULL_LINK
	}

	// Init tile.
	mesh.connectIntLinks(tile)

	// Base off-mesh connections to their starting polygons and connect connections inside the tile.
	mesh.baseOffMeshLinks(tile)
	mesh.connectExtOffMeshLinks(tile, tile, -1)

	// Connect with layers in current tile.
	for _, nei := range mesh.GetTilesAt(header.X, header.Y, dtMaxNeis) {
		if nei == tile {
			continue
		}
		mesh.connectExtLinks(tile, nei, -1)
		mesh.connectExtLinks(nei, tile, -1)
		mesh.connectExtOffMeshLinks(tile, nei, -1)
		mesh.connectExtOffMeshLinks(nei, tile, -1)
	}

	// Connect with neighbour tiles.
	for i := int32(0); i < 8; i++ {
		for _, nei := range mesh.getNeighbourTilesAt(header.X, header.Y, i, dtMaxNeis) {
			mesh.connectExtLinks(tile, nei, i)
			mesh.connectExtLinks(nei, tile, dtOppositeTile(i))
			mesh.connectExtOffMeshLinks(tile, nei, i)
			mesh.connectExtOffMeshLinks(nei, tile, dtOppositeTile(i))
		}
	}

	ref := mesh.GetTileRef(tile)
	log.L().Debug("navmesh tile added",
		zap.Int32("x", header.X), zap.Int32("y", header.Y), zap.Int32("layer", header.Layer),
		zap.Uint32("ref", uint32(ref)), zap.Int32("polys", header.PolyCount))
	return ref, DT_SUCCESS
}

// / @par
// /
// / The tile's current state (including polygon flags and areas) is encoded
// / and returned; every polygon reference into the tile becomes invalid.
func (mesh *DtNavMesh) RemoveTile(ref DtTileRef) ([]byte, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tileIndex := int32(mesh.DecodePolyIdTile(DtPolyRef(ref)))
	tileSalt := mesh.DecodePolyIdSalt(DtPolyRef(ref))
	if tileIndex >= mesh.m_maxTiles {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[tileIndex]
	if tile.Salt != tileSalt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(tile.Header.X, tile.Header.Y, mesh.m_tileLutMask)
	var prev *DtMeshTile
	cur := mesh.m_posLookup[h]
	for cur != nil {
		if cur == tile {
			if prev != nil {
				prev.Next = cur.Next
			} else {
				mesh.m_posLookup[h] = cur.Next
			}
			break
		}
		prev = cur
		cur = cur.Next
	}

	// Remove connections to neighbour tiles.
	for _, nei := range mesh.GetTilesAt(tile.Header.X, tile.Header.Y, dtMaxNeis) {
		if nei == tile {
			continue
		}
		mesh.unconnectLinks(nei, tile)
	}
	for i := int32(0); i < 8; i++ {
		for _, nei := range mesh.getNeighbourTilesAt(tile.Header.X, tile.Header.Y, i, dtMaxNeis) {
			mesh.unconnectLinks(nei, tile)
		}
	}

	data := tile.Data.ToBin()
	log.L().Debug("navmesh tile removed",
		zap.Int32("x", tile.Header.X), zap.Int32("y", tile.Header.Y), zap.Uint32("ref", uint32(ref)))

	// Reset tile.
	tile.Data = nil
	tile.Header = nil
	tile.Flags = 0
	tile.LinksFreeList = 0
	tile.Polys = nil
	tile.Verts = nil
	tile.Links = nil
	tile.DetailMeshes = nil
	tile.DetailVerts = nil
	tile.DetailTris = nil
	tile.BvTree = nil
	tile.OffMeshCons = nil

	// Update salt, salt should never be zero.
	tile.Salt = (tile.Salt + 1) & ((1 << mesh.m_saltBits) - 1)
	if tile.Salt == 0 {
		tile.Salt++
	}

	// Add to free list.
	tile.Next = mesh.m_nextFree
	mesh.m_nextFree = tile
	return data, DT_SUCCESS
}

// / Calculates the tile grid location for the specified world position.
func (mesh *DtNavMesh) CalcTileLoc(pos []float32) (tx, ty int32) {
	tx = int32(math.Floor(float64((pos[0] - mesh.m_orig[0]) / mesh.m_tileWidth)))
	ty = int32(math.Floor(float64((pos[2] - mesh.m_orig[2]) / mesh.m_tileHeight)))
	return tx, ty
}

// / Gets the tile at the specified grid location.
func (mesh *DtNavMesh) GetTileAt(x, y, layer int32) *DtMeshTile {
	if !mesh.initialized {
		return nil
	}
	h := common.ComputeTileHash(x, y, mesh.m_tileLutMask)
	for tile := mesh.m_posLookup[h]; tile != nil; tile = tile.Next {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y && tile.Header.Layer == layer {
			return tile
		}
	}
	return nil
}

// / Gets all tiles at the specified grid location. (All layers.)
func (mesh *DtNavMesh) GetTilesAt(x, y int32, maxTiles int) []*DtMeshTile {
	if !mesh.initialized {
		return nil
	}
	var tiles []*DtMeshTile
	h := common.ComputeTileHash(x, y, mesh.m_tileLutMask)
	for tile := mesh.m_posLookup[h]; tile != nil; tile = tile.Next {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y {
			if len(tiles) < maxTiles {
				tiles = append(tiles, tile)
			}
		}
	}
	return tiles
}

func (mesh *DtNavMesh) getNeighbourTilesAt(x, y, side int32, maxTiles int) []*DtMeshTile {
	nx, ny := x, y
	switch side {
	case 0:
		nx++
	case 1:
		nx++
		ny++
	case 2:
		ny++
	case 3:
		nx--
		ny++
	case 4:
		nx--
	case 5:
		nx--
		ny--
	case 6:
		ny--
	case 7:
		nx++
		ny--
	}
	return mesh.GetTilesAt(nx, ny, maxTiles)
}

// / Gets the tile reference for the tile at specified grid location.
func (mesh *DtNavMesh) GetTileRefAt(x, y, layer int32) DtTileRef {
	return mesh.GetTileRef(mesh.GetTileAt(x, y, layer))
}

// / Gets the tile reference for the specified tile.
func (mesh *DtNavMesh) GetTileRef(tile *DtMeshTile) DtTileRef {
	if tile == nil {
		return 0
	}
	return DtTileRef(mesh.EncodePolyId(tile.Salt, uint32(tile.index), 0))
}

// / Gets the tile for the specified tile reference.
func (mesh *DtNavMesh) GetTileByRef(ref DtTileRef) *DtMeshTile {
	if ref == 0 || !mesh.initialized {
		return nil
	}
	tileIndex := int32(mesh.DecodePolyIdTile(DtPolyRef(ref)))
	tileSalt := mesh.DecodePolyIdSalt(DtPolyRef(ref))
	if tileIndex >= mesh.m_maxTiles {
		return nil
	}
	tile := mesh.m_tiles[tileIndex]
	if tile.Salt != tileSalt || tile.Header == nil {
		return nil
	}
	return tile
}

// / The maximum number of tiles supported by the navigation mesh.
func (mesh *DtNavMesh) GetMaxTiles() int32 {
	return mesh.m_maxTiles
}

// / Gets the tile at the specified index. The tile may be empty (nil header).
func (mesh *DtNavMesh) GetTile(i int) *DtMeshTile {
	return mesh.m_tiles[i]
}

// / Gets the polygon reference for the tile's base polygon.
func (mesh *DtNavMesh) GetPolyRefBase(tile *DtMeshTile) DtPolyRef {
	if tile == nil {
		return 0
	}
	return mesh.EncodePolyId(tile.Salt, uint32(tile.index), 0)
}

// / Gets the tile and polygon for the specified polygon reference.
func (mesh *DtNavMesh) GetTileAndPolyByRef(ref DtPolyRef) (*DtMeshTile, *DtPoly, DtStatus) {
	if ref == 0 || !mesh.initialized {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	salt, it, ip := mesh.DecodePolyId(ref)
	if int32(it) >= mesh.m_maxTiles {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[it]
	if tile.Salt != salt || tile.Header == nil {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if int32(ip) >= tile.Header.PolyCount {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	return tile, &tile.Polys[ip], DT_SUCCESS
}

// / Returns the tile and polygon for the specified polygon reference.
// / @warning Only use this function if it is known that the provided polygon
// / reference is valid. This function is faster than #GetTileAndPolyByRef, but
// / it does not validate the reference.
func (mesh *DtNavMesh) GetTileAndPolyByRefUnsafe(ref DtPolyRef) (*DtMeshTile, *DtPoly) {
	_, it, ip := mesh.DecodePolyId(ref)
	tile := mesh.m_tiles[it]
	return tile, &tile.Polys[ip]
}

// / Checks the validity of a polygon reference.
func (mesh *DtNavMesh) IsValidPolyRef(ref DtPolyRef) bool {
	_, _, status := mesh.GetTileAndPolyByRef(ref)
	return status.DtStatusSucceed()
}

// / Gets the endpoints for an off-mesh connection, ordered by "direction of travel".
// /  @param[in]		prevRef		The reference of the polygon before the connection.
// /  @param[in]		polyRef		The reference of the off-mesh connection polygon.
// /  @param[out]	startPos	The start position of the off-mesh connection. [(x, y, z)]
// /  @param[out]	endPos		The end position of the off-mesh connection. [(x, y, z)]
func (mesh *DtNavMesh) GetOffMeshConnectionPolyEndPoints(prevRef, polyRef DtPolyRef, startPos, endPos []float32) DtStatus {
	tile, poly, status := mesh.GetTileAndPolyByRef(polyRef)
	if status.DtStatusFailed() {
		return status
	}
	// Make sure that the current poly is indeed off-mesh link.
	if poly.GetType() != DT_POLYTYPE_OFFMESH_CONNECTION {
		return DT_FAILURE
	}

	// Figure out which way to hand out the vertices.
	idx0, idx1 := 0, 1

	// Find link that points to first vertex.
	for i := poly.FirstLink; i != DT_NULL_LINK; i = tile.Links[i].Next {
		if tile.Links[i].Edge == 0 {
			if tile.Links[i].Ref != prevRef {
				idx0 = 1
				idx1 = 0
			}
			break
		}
	}

	common.Vcopy(startPos, common.GetVert3(tile.Verts, poly.Verts[idx0]))
	common.Vcopy(endPos, common.GetVert3(tile.Verts, poly.Verts[idx1]))
	return DT_SUCCESS
}

// / Gets the specified off-mesh connection.
func (mesh *DtNavMesh) GetOffMeshConnectionByRef(ref DtPolyRef) *DtOffMeshConnection {
	tile, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() || poly.GetType() != DT_POLYTYPE_OFFMESH_CONNECTION {
		return nil
	}
	idx := int32(mesh.DecodePolyIdPoly(ref)) - tile.Header.OffMeshBase
	if idx < 0 || idx >= tile.Header.OffMeshConCount {
		return nil
	}
	return &tile.OffMeshCons[idx]
}

// / Sets the user defined flags for the specified polygon.
func (mesh *DtNavMesh) SetPolyFlags(ref DtPolyRef, flags uint16) DtStatus {
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return status
	}
	poly.Flags = flags
	return DT_SUCCESS
}

// / Gets the user defined flags for the specified polygon.
func (mesh *DtNavMesh) GetPolyFlags(ref DtPolyRef) (uint16, DtStatus) {
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return 0, status
	}
	return poly.Flags, DT_SUCCESS
}

// / Sets the user defined area for the specified polygon.
func (mesh *DtNavMesh) SetPolyArea(ref DtPolyRef, area uint8) DtStatus {
	if area >= DT_MAX_AREAS {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return status
	}
	poly.SetArea(area)
	return DT_SUCCESS
}

// / Gets the user defined area for the specified polygon.
func (mesh *DtNavMesh) GetPolyArea(ref DtPolyRef) (uint8, DtStatus) {
	_, poly, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return 0, status
	}
	return poly.GetArea(), DT_SUCCESS
}

// / Derives a standard polygon reference.
// /  @note This function is generally meant for internal use only.
func (mesh *DtNavMesh) EncodePolyId(salt, it, ip uint32) DtPolyRef {
	return DtPolyRef((salt << (mesh.m_polyBits + mesh.m_tileBits)) | (it << mesh.m_polyBits) | ip)
}

// / Decodes a standard polygon reference.
func (mesh *DtNavMesh) DecodePolyId(ref DtPolyRef) (salt, it, ip uint32) {
	return mesh.DecodePolyIdSalt(ref), mesh.DecodePolyIdTile(ref), mesh.DecodePolyIdPoly(ref)
}

// / Extracts a tile's salt value from the specified polygon reference.
func (mesh *DtNavMesh) DecodePolyIdSalt(ref DtPolyRef) uint32 {
	saltMask := (uint32(1) << mesh.m_saltBits) - 1
	return (uint32(ref) >> (mesh.m_polyBits + mesh.m_tileBits)) & saltMask
}

// / Extracts the tile's index from the specified polygon reference.
func (mesh *DtNavMesh) DecodePolyIdTile(ref DtPolyRef) uint32 {
	tileMask := (uint32(1) << mesh.m_tileBits) - 1
	return (uint32(ref) >> mesh.m_polyBits) & tileMask
}

// / Extracts the polygon's index (within its tile) from the specified polygon reference.
func (mesh *DtNavMesh) DecodePolyIdPoly(ref DtPolyRef) uint32 {
	polyMask := (uint32(1) << mesh.m_polyBits) - 1
	return uint32(ref) & polyMask
}
