package detour

import (
	"github.com/gorustyt/tilenav/common/rw"
)

const (
	/// The maximum number of vertices per navigation polygon.
	/// @ingroup detour
	DT_VERTS_PER_POLYGON = 6
	DT_NULL_LINK         = 0xffffffff

	/// A flag that indicates that an entity links to an external entity.
	/// (E.g. A polygon edge is a portal that links to another polygon.)
	DT_EXT_LINK = 0x8000

	/// A flag that indicates that an off-mesh connection can be traversed in both directions. (Is bidirectional.)
	DT_OFFMESH_CON_BIDIR = 1

	/// A magic number used to detect compatibility of navigation tile data.
	DT_NAVMESH_MAGIC = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'

	/// A version number used to detect compatibility of navigation tile data.
	DT_NAVMESH_VERSION = 7

	/// A magic number used to detect the compatibility of navigation tile states.
	DT_NAVMESH_STATE_MAGIC = 'D'<<24 | 'N'<<16 | 'M'<<8 | 'S'

	/// A version number used to detect compatibility of navigation tile states.
	DT_NAVMESH_STATE_VERSION = 1

	/// The maximum number of user defined area ids.
	/// @ingroup detour
	DT_MAX_AREAS = 64
)

const (
	/// The polygon is a standard convex polygon that is part of the surface of the mesh.
	DT_POLYTYPE_GROUND = 0
	/// The polygon is an off-mesh connection consisting of two vertices.
	DT_POLYTYPE_OFFMESH_CONNECTION = 1
)

const (
	DT_DETAIL_EDGE_BOUNDARY = 0x01 ///< Detail triangle edge is part of the poly boundary
)

const (
	/// The navigation mesh owns the tile memory and is responsible for freeing it.
	DT_TILE_FREE_DATA = 0x01
)

// Reference bit budget. Salt gets whatever tile and poly bits leave over, capped at 31.
const (
	DT_REF_BITS      = 32
	DT_MIN_SALT_BITS = 10
)

type DtPolyRef uint32
type DtTileRef uint32

// / Defines a polygon within a DtMeshTile object.
// / @ingroup detour
type DtPoly struct {
	/// Index to first link in linked list. (Or #DT_NULL_LINK if there is no link.)
	FirstLink uint32

	/// The indices of the polygon's vertices.
	/// The actual vertices are located in DtMeshTile::verts.
	Verts [DT_VERTS_PER_POLYGON]uint16

	/// Packed data representing neighbor polygons references and flags for each edge.
	Neis [DT_VERTS_PER_POLYGON]uint16

	/// The user defined polygon flags.
	Flags uint16

	/// The number of vertices in the polygon.
	VertCount uint8

	/// The bit packed area id and polygon type.
	/// @note Use the structure's set and get methods to access this value.
	AreaAndtype uint8
}

// FirstLink is runtime state and is not part of the wire format.
func (d *DtPoly) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt16s(d.Verts[:])
	w.WriteUInt16s(d.Neis[:])
	w.WriteUInt16(d.Flags)
	w.WriteUInt8(d.VertCount)
	w.WriteUInt8(d.AreaAndtype)
}

func (d *DtPoly) FromBin(r *rw.ReaderWriter) {
	d.FirstLink = DT_NULL_LINK
	r.ReadUInt16s(d.Verts[:])
	r.ReadUInt16s(d.Neis[:])
	d.Flags = r.ReadUInt16()
	d.VertCount = r.ReadUInt8()
	d.AreaAndtype = r.ReadUInt8()
}

// / Sets the user defined area id. [Limit: < #DT_MAX_AREAS]
func (d *DtPoly) SetArea(a uint8) { d.AreaAndtype = (d.AreaAndtype & 0xc0) | (a & 0x3f) }

// / Sets the polygon type. (See: #dtPolyTypes.)
func (d *DtPoly) SetType(t uint8) { d.AreaAndtype = (d.AreaAndtype & 0x3f) | (t << 6) }

// / Gets the user defined area id.
func (d *DtPoly) GetArea() uint8 { return d.AreaAndtype & 0x3f }

// / Gets the polygon type. (See: #dtPolyTypes)
func (d *DtPoly) GetType() uint8 { return d.AreaAndtype >> 6 }

// / Defines the location of detail sub-mesh data within a DtMeshTile.
type DtPolyDetail struct {
	VertBase  uint32 ///< The offset of the vertices in the DtMeshTile::detailVerts array.
	TriBase   uint32 ///< The offset of the triangles in the DtMeshTile::detailTris array.
	VertCount uint8  ///< The number of vertices in the sub-mesh.
	TriCount  uint8  ///< The number of triangles in the sub-mesh.
}

func (d *DtPolyDetail) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt32(d.VertBase)
	w.WriteUInt32(d.TriBase)
	w.WriteUInt8(d.VertCount)
	w.WriteUInt8(d.TriCount)
}

func (d *DtPolyDetail) FromBin(r *rw.ReaderWriter) {
	d.VertBase = r.ReadUInt32()
	d.TriBase = r.ReadUInt32()
	d.VertCount = r.ReadUInt8()
	d.TriCount = r.ReadUInt8()
}

// Defines a link between polygons.
// / @note This structure is rarely if ever used by the end user.
// / @see DtMeshTile
type DtLink struct {
	Ref  DtPolyRef ///< Neighbour reference. (The neighbor that is linked to.)
	Next uint32    ///< Index of the next link.
	Edge uint8     ///< Index of the polygon edge that owns this link.
	Side uint8     ///< If a boundary link, defines on which side the link is.
	Bmin uint8     ///< If a boundary link, defines the minimum sub-edge area.
	Bmax uint8     ///< If a boundary link, defines the maximum sub-edge area.
}

// / Bounding volume node.
// / @note This structure is rarely if ever used by the end user.
// / @see DtMeshTile
type DtBVNode struct {
	Bmin [3]uint16 ///< Minimum bounds of the node's AABB. [(x, y, z)]
	Bmax [3]uint16 ///< Maximum bounds of the node's AABB. [(x, y, z)]
	I    int32     ///< The node's index. (Negative for escape sequence.)
}

func (d *DtBVNode) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt16s(d.Bmin[:])
	w.WriteUInt16s(d.Bmax[:])
	w.WriteInt32(d.I)
}

func (d *DtBVNode) FromBin(r *rw.ReaderWriter) {
	r.ReadUInt16s(d.Bmin[:])
	r.ReadUInt16s(d.Bmax[:])
	d.I = r.ReadInt32()
}

// / Defines a navigation mesh tile.
// / @ingroup detour
type DtMeshTile struct {
	Salt uint32 ///< Counter describing modifications to the tile.

	LinksFreeList uint32         ///< Index to the next free link.
	Header        *DtMeshHeader  ///< The tile header.
	Polys         []DtPoly       ///< The tile polygons. [Size: DtMeshHeader::polyCount]
	Verts         []float32      ///< The tile vertices. [(x, y, z) * DtMeshHeader::vertCount]
	Links         []DtLink       ///< The tile links. [Size: DtMeshHeader::maxLinkCount]
	DetailMeshes  []DtPolyDetail ///< The tile's detail sub-meshes. [Size: DtMeshHeader::detailMeshCount]

	/// The detail mesh's unique vertices. [(x, y, z) * DtMeshHeader::detailVertCount]
	DetailVerts []float32

	/// The detail mesh's triangles. [(vertA, vertB, vertC, triFlags) * DtMeshHeader::detailTriCount].
	DetailTris []uint8

	/// The tile bounding volume nodes. [Size: DtMeshHeader::bvNodeCount]
	/// (Will be empty if bounding volumes are disabled.)
	BvTree []DtBVNode

	OffMeshCons []DtOffMeshConnection ///< The tile off-mesh connections. [Size: DtMeshHeader::offMeshConCount]
	Flags       int32                 ///< Tile flags. (See: #dtTileFlags)
	Next        *DtMeshTile           ///< The next free tile, or the next tile in the spatial grid.

	Data *NavMeshData

	index int32
}

// / Provides high level information related to a DtMeshTile object.
// / @ingroup detour
type DtMeshHeader struct {
	Magic           int32  ///< Tile magic number. (Used to identify the data format.)
	Version         int32  ///< Tile data format version number.
	X               int32  ///< The x-position of the tile within the DtNavMesh tile grid. (x, y, layer)
	Y               int32  ///< The y-position of the tile within the DtNavMesh tile grid. (x, y, layer)
	Layer           int32  ///< The layer of the tile within the DtNavMesh tile grid. (x, y, layer)
	UserId          uint32 ///< The user defined id of the tile.
	PolyCount       int32  ///< The number of polygons in the tile.
	VertCount       int32  ///< The number of vertices in the tile.
	MaxLinkCount    int32  ///< The number of allocated links.
	DetailMeshCount int32  ///< The number of sub-meshes in the detail mesh.

	/// The number of unique vertices in the detail mesh. (In addition to the polygon vertices.)
	DetailVertCount int32

	DetailTriCount  int32      ///< The number of triangles in the detail mesh.
	BvNodeCount     int32      ///< The number of bounding volume nodes. (Zero if bounding volumes are disabled.)
	OffMeshConCount int32      ///< The number of off-mesh connections.
	OffMeshBase     int32      ///< The index of the first polygon which is an off-mesh connection.
	WalkableHeight  float32    ///< The height of the agents using the tile.
	WalkableRadius  float32    ///< The radius of the agents using the tile.
	WalkableClimb   float32    ///< The maximum climb height of the agents using the tile.
	Bmin            [3]float32 ///< The minimum bounds of the tile's AABB. [(x, y, z)]
	Bmax            [3]float32 ///< The maximum bounds of the tile's AABB. [(x, y, z)]

	/// The bounding volume quantization factor.
	BvQuantFactor float32
}

func (d *DtMeshHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(d.Magic)
	w.WriteInt32(d.Version)
	w.WriteInt32(d.X)
	w.WriteInt32(d.Y)
	w.WriteInt32(d.Layer)
	w.WriteUInt32(d.UserId)
	w.WriteInt32(d.PolyCount)
	w.WriteInt32(d.VertCount)
	w.WriteInt32(d.MaxLinkCount)
	w.WriteInt32(d.DetailMeshCount)
	w.WriteInt32(d.DetailVertCount)
	w.WriteInt32(d.DetailTriCount)
	w.WriteInt32(d.BvNodeCount)
	w.WriteInt32(d.OffMeshConCount)
	w.WriteInt32(d.OffMeshBase)
	w.WriteFloat32(d.WalkableHeight)
	w.WriteFloat32(d.WalkableRadius)
	w.WriteFloat32(d.WalkableClimb)
	w.WriteFloat32s(d.Bmin[:])
	w.WriteFloat32s(d.Bmax[:])
	w.WriteFloat32(d.BvQuantFactor)
}

func (d *DtMeshHeader) FromBin(r *rw.ReaderWriter) {
	d.Magic = r.ReadInt32()
	d.Version = r.ReadInt32()
	d.X = r.ReadInt32()
	d.Y = r.ReadInt32()
	d.Layer = r.ReadInt32()
	d.UserId = r.ReadUInt32()
	d.PolyCount = r.ReadInt32()
	d.VertCount = r.ReadInt32()
	d.MaxLinkCount = r.ReadInt32()
	d.DetailMeshCount = r.ReadInt32()
	d.DetailVertCount = r.ReadInt32()
	d.DetailTriCount = r.ReadInt32()
	d.BvNodeCount = r.ReadInt32()
	d.OffMeshConCount = r.ReadInt32()
	d.OffMeshBase = r.ReadInt32()
	d.WalkableHeight = r.ReadFloat32()
	d.WalkableRadius = r.ReadFloat32()
	d.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(d.Bmin[:])
	r.ReadFloat32s(d.Bmax[:])
	d.BvQuantFactor = r.ReadFloat32()
}

// / Defines an navigation mesh off-mesh connection within a DtMeshTile object.
// / An off-mesh connection is a user defined traversable connection made up to two vertices.
type DtOffMeshConnection struct {
	/// The endpoints of the connection. [(ax, ay, az, bx, by, bz)]
	Pos [6]float32

	/// The radius of the endpoints. [Limit: >= 0]
	Rad float32

	/// The polygon reference of the connection within the tile.
	Poly uint16

	/// Link flags.
	/// @note These are not the connection's user defined flags. Those are assigned via the
	/// connection's DtPoly definition. These are link flags used for internal purposes.
	Flags uint8

	/// End point side.
	Side uint8

	/// The id of the offmesh connection. (User assigned when the navigation mesh is built.)
	UserId uint32
}

func (d *DtOffMeshConnection) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(d.Pos[:])
	w.WriteFloat32(d.Rad)
	w.WriteUInt16(d.Poly)
	w.WriteUInt8(d.Flags)
	w.WriteUInt8(d.Side)
	w.WriteUInt32(d.UserId)
}

func (d *DtOffMeshConnection) FromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(d.Pos[:])
	d.Rad = r.ReadFloat32()
	d.Poly = r.ReadUInt16()
	d.Flags = r.ReadUInt8()
	d.Side = r.ReadUInt8()
	d.UserId = r.ReadUInt32()
}

// / Configuration parameters used to define multi-tile navigation meshes.
// / The values are used to allocate space during the initialization of a navigation mesh.
// / @see DtNavMesh::Init()
// / @ingroup detour
type NavMeshParams struct {
	Orig       [3]float32 ///< The world space origin of the navigation mesh's tile space. [(x, y, z)]
	TileWidth  float32    ///< The width of each tile. (Along the x-axis.)
	TileHeight float32    ///< The height of each tile. (Along the z-axis.)
	MaxTiles   int32      ///< The maximum number of tiles the navigation mesh can contain.
	MaxPolys   int32      ///< The maximum number of polygons each tile can contain.
}

func (d *NavMeshParams) FromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(d.Orig[:])
	d.TileWidth = r.ReadFloat32()
	d.TileHeight = r.ReadFloat32()
	d.MaxTiles = r.ReadInt32()
	d.MaxPolys = r.ReadInt32()
}

func (d *NavMeshParams) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(d.Orig[:])
	w.WriteFloat32(d.TileWidth)
	w.WriteFloat32(d.TileHeight)
	w.WriteInt32(d.MaxTiles)
	w.WriteInt32(d.MaxPolys)
}

// IDtNavMesh is the tile store surface used by queries and the tile cache.
type IDtNavMesh interface {
	GetParams() *NavMeshParams
	/// Adds a tile to the navigation mesh.
	///  @param[in]		data		Data for the new tile mesh. (See: #DtCreateNavMeshData)
	///  @param[in]		flags		Tile flags. (See: #dtTileFlags)
	///  @param[in]		lastRef		The desired reference for the tile. (When reloading a tile.) [opt] [Default: 0]
	/// @return The tile reference and the status flags for the operation.
	AddTile(data []byte, flags int32, lastRef DtTileRef) (DtTileRef, DtStatus)
	/// Removes the specified tile from the navigation mesh.
	/// @return The tile data and the status flags for the operation.
	RemoveTile(ref DtTileRef) ([]byte, DtStatus)
	CalcTileLoc(pos []float32) (tx, ty int32)
	GetTileAt(x, y, layer int32) *DtMeshTile
	GetTilesAt(x, y int32, maxTiles int) []*DtMeshTile
	GetTileRefAt(x, y, layer int32) DtTileRef
	GetTileRef(tile *DtMeshTile) DtTileRef
	GetTileByRef(ref DtTileRef) *DtMeshTile
	GetMaxTiles() int32
	GetTile(i int) *DtMeshTile
	GetPolyRefBase(tile *DtMeshTile) DtPolyRef
	GetTileAndPolyByRef(ref DtPolyRef) (*DtMeshTile, *DtPoly, DtStatus)
	GetTileAndPolyByRefUnsafe(ref DtPolyRef) (*DtMeshTile, *DtPoly)
	IsValidPolyRef(ref DtPolyRef) bool
	GetOffMeshConnectionPolyEndPoints(prevRef, polyRef DtPolyRef, startPos, endPos []float32) DtStatus
	GetOffMeshConnectionByRef(ref DtPolyRef) *DtOffMeshConnection
	SetPolyFlags(ref DtPolyRef, flags uint16) DtStatus
	GetPolyFlags(ref DtPolyRef) (uint16, DtStatus)
	SetPolyArea(ref DtPolyRef, area uint8) DtStatus
	GetPolyArea(ref DtPolyRef) (uint8, DtStatus)
	GetTileStateSize(tile *DtMeshTile) int
	StoreTileState(tile *DtMeshTile) ([]byte, DtStatus)
	RestoreTileState(tile *DtMeshTile, data []byte) DtStatus
	EncodePolyId(salt, it, ip uint32) DtPolyRef
	DecodePolyId(ref DtPolyRef) (salt, it, ip uint32)
	DecodePolyIdTile(ref DtPolyRef) uint32
	DecodePolyIdPoly(ref DtPolyRef) uint32
	DecodePolyIdSalt(ref DtPolyRef) uint32
	ClosestPointOnPoly(ref DtPolyRef, pos, closest []float32) (posOverPoly bool)
	GetPolyHeight(tile *DtMeshTile, ip uint32, pos []float32) (float32, bool)
	QueryPolygonsInTile(tile *DtMeshTile, qmin, qmax []float32, maxPolys int) []DtPolyRef
	GetDebugNavMesh() *DtDebugNavMesh
}
