package mesh

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/config"
	"github.com/gorustyt/tilenav/debug_utils"
	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_export"
	"github.com/gorustyt/tilenav/detour_tile_cache"
	"go.uber.org/zap"
)

var ErrNotBuilt = errors.New("sample: navmesh not built")

// FlatGround samples a walkable plane at y=0.
func FlatGround(x, z float32) (float32, uint8) {
	return 0, detour_tile_cache.DT_TILECACHE_WALKABLE_AREA
}

// SampleTempObstacles is a tiled navmesh backed by a tile cache, with
// temporary obstacles carved into it at runtime.
type SampleTempObstacles struct {
	cfg *config.Config

	m_tileCache *detour_tile_cache.DtTileCache
	m_navMesh   *detour.DtNavMesh
	m_navQuery  *detour.DtNavMeshQuery
	m_tcomp     *detour_tile_cache.DtZstdCompressor
	m_talloc    *detour_tile_cache.DtTileCacheLinearAllocator
	m_tmproc    detour_tile_cache.DtTileCacheMeshProcess

	m_cacheLayerCount     int
	m_cacheCompressedSize int
	m_cacheBuildTime      time.Duration
}

func NewSampleTempObstacles(cfg *config.Config) *SampleTempObstacles {
	return &SampleTempObstacles{cfg: cfg}
}

func (s *SampleTempObstacles) NavMesh() *detour.DtNavMesh                 { return s.m_navMesh }
func (s *SampleTempObstacles) TileCache() *detour_tile_cache.DtTileCache { return s.m_tileCache }
func (s *SampleTempObstacles) NavQuery() *detour.DtNavMeshQuery          { return s.m_navQuery }

// SetMeshProcess selects the mesh process used by the next build or load.
func (s *SampleTempObstacles) SetMeshProcess(p detour_tile_cache.DtTileCacheMeshProcess) {
	s.m_tmproc = p
}

// HandleBuild rasterizes tw*th tiles of ground into the tile cache and
// builds the initial navmesh tiles.
func (s *SampleTempObstacles) HandleBuild(tw, th int, ground detour_tile_cache.DtHeightSampler) error {
	s.Close()
	tcparams := s.cfg.TileCacheParams()
	if tw <= 0 || th <= 0 || tw*th > tcparams.MaxTiles {
		return fmt.Errorf("sample: %dx%d tiles do not fit maxTiles %d", tw, th, tcparams.MaxTiles)
	}

	var err error
	s.m_tcomp, err = detour_tile_cache.NewDtZstdCompressor()
	if err != nil {
		return fmt.Errorf("sample: compressor: %w", err)
	}
	s.m_talloc = detour_tile_cache.NewDtTileCacheLinearAllocator(s.cfg.TileCache.AllocatorCapacity)
	s.m_tileCache = detour_tile_cache.NewDtTileCache()
	if status := s.m_tileCache.Init(tcparams, s.m_talloc, s.m_tcomp, s.m_tmproc); status.DtStatusFailed() {
		return fmt.Errorf("sample: init tile cache: %w", status.Err())
	}

	var status detour.DtStatus
	s.m_navMesh, status = detour.NewDtNavMeshWithParams(s.cfg.NavMeshParams())
	if status.DtStatusFailed() {
		return fmt.Errorf("sample: init navmesh: %w", status.Err())
	}

	// Preprocess tiles.
	s.m_cacheLayerCount = 0
	s.m_cacheCompressedSize = 0
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			layer, status := detour_tile_cache.DtRasterizeLayer(tcparams, int32(x), int32(y), ground)
			if status.DtStatusFailed() {
				return fmt.Errorf("sample: rasterize tile %d,%d: %w", x, y, status.Err())
			}
			data, status := detour_tile_cache.DtBuildTileCacheLayer(s.m_tcomp, layer.Header, layer.Heights, layer.Areas, layer.Cons)
			if status.DtStatusFailed() {
				return fmt.Errorf("sample: compress tile %d,%d: %w", x, y, status.Err())
			}
			if _, status = s.m_tileCache.AddTile(data, detour_tile_cache.DT_COMPRESSEDTILE_FREE_DATA); status.DtStatusFailed() {
				log.L().Warn("sample: tile rejected", zap.Int("x", x), zap.Int("y", y), zap.Stringer("status", status))
				continue
			}
			s.m_cacheLayerCount++
			s.m_cacheCompressedSize += len(data)
		}
	}

	// Build initial meshes
	now := time.Now()
	if _, err := s.HandleUpdate(-1); err != nil {
		return err
	}
	s.m_cacheBuildTime = time.Since(now)
	return s.initQuery()
}

func (s *SampleTempObstacles) initQuery() error {
	var status detour.DtStatus
	s.m_navQuery, status = detour.NewDtNavMeshQuery(s.m_navMesh, s.cfg.Query.MaxNodes)
	if status.DtStatusFailed() {
		return fmt.Errorf("sample: init query: %w", status.Err())
	}
	log.L().Info("sample ready",
		zap.Int("layers", s.m_cacheLayerCount),
		zap.Int("compressedBytes", s.m_cacheCompressedSize),
		zap.Duration("buildTime", s.m_cacheBuildTime))
	return nil
}

// HandleUpdate rebuilds up to maxRebuilds dirty tiles, or every dirty tile
// when maxRebuilds is negative.
func (s *SampleTempObstacles) HandleUpdate(maxRebuilds int) (upToDate bool, err error) {
	if s.m_navMesh == nil || s.m_tileCache == nil {
		return false, ErrNotBuilt
	}
	if maxRebuilds < 0 {
		maxRebuilds = math.MaxInt
	}
	upToDate, status := s.m_tileCache.UpdateN(s.m_navMesh, maxRebuilds)
	if status.DtStatusFailed() {
		return false, fmt.Errorf("sample: update: %w", status.Err())
	}
	return upToDate, nil
}

func (s *SampleTempObstacles) AddTempObstacle(pos common.Vec3, radius, height float32) (detour_tile_cache.DtObstacleRef, error) {
	if s.m_tileCache == nil {
		return 0, ErrNotBuilt
	}
	ref, status := s.m_tileCache.AddObstacle(pos, radius, height)
	if status.DtStatusFailed() {
		return 0, fmt.Errorf("sample: add obstacle: %w", status.Err())
	}
	return ref, nil
}

func (s *SampleTempObstacles) AddBoxObstacle(bmin, bmax common.Vec3) (detour_tile_cache.DtObstacleRef, error) {
	if s.m_tileCache == nil {
		return 0, ErrNotBuilt
	}
	ref, status := s.m_tileCache.AddBoxObstacle(bmin, bmax)
	if status.DtStatusFailed() {
		return 0, fmt.Errorf("sample: add box obstacle: %w", status.Err())
	}
	return ref, nil
}

func (s *SampleTempObstacles) RemoveTempObstacle(ref detour_tile_cache.DtObstacleRef) error {
	if s.m_tileCache == nil {
		return ErrNotBuilt
	}
	if status := s.m_tileCache.RemoveObstacle(ref); status.DtStatusFailed() {
		return fmt.Errorf("sample: remove obstacle %d: %w", ref, status.Err())
	}
	return nil
}

func (s *SampleTempObstacles) ClearAllTempObstacles() {
	if s.m_tileCache == nil {
		return
	}
	for _, ref := range s.m_tileCache.Obstacles() {
		s.m_tileCache.RemoveObstacle(ref)
	}
}

// FindPath computes a straight path with the configured filter and crossings.
func (s *SampleTempObstacles) FindPath(start, end, halfExtents common.Vec3) (*detour.NavPath, error) {
	if s.m_navQuery == nil {
		return nil, ErrNotBuilt
	}
	path, status := s.m_navQuery.ComputePathWithOptions(start, end, halfExtents, s.cfg.QueryFilter(), s.cfg.StraightPathOptions())
	if status.DtStatusFailed() {
		return nil, fmt.Errorf("sample: find path: %w", status.Err())
	}
	return path, nil
}

// SaveAll writes the navmesh, tile cache and obstacles to path.
func (s *SampleTempObstacles) SaveAll(path string) error {
	if s.m_navMesh == nil {
		return ErrNotBuilt
	}
	blob, err := detour_export.ExportNavMesh(s.m_navMesh, s.m_tileCache)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("sample: save: %w", err)
	}
	return nil
}

// LoadAll replaces the sample with the runtime saved at path.
func (s *SampleTempObstacles) LoadAll(path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sample: load: %w", err)
	}
	res, status := detour_export.ImportNavMesh(blob, s.m_tmproc)
	if status.DtStatusFailed() {
		return fmt.Errorf("sample: load %s: %w", path, status.Err())
	}
	s.Close()
	s.m_navMesh = res.NavMesh
	s.m_tileCache = res.TileCache
	s.m_talloc = res.Allocator
	s.m_tcomp = res.Compressor
	s.m_cacheLayerCount = 0
	s.m_cacheCompressedSize = 0
	if s.m_tileCache != nil {
		for i := 0; i < s.m_tileCache.GetTileCount(); i++ {
			if tile := s.m_tileCache.GetTile(i); tile.Header != nil {
				s.m_cacheLayerCount++
				s.m_cacheCompressedSize += len(tile.Data)
			}
		}
	}
	s.m_cacheBuildTime = 0
	return s.initQuery()
}

// DumpObj writes the navmesh as OBJ, optionally with obstacle wires and a path.
func (s *SampleTempObstacles) DumpObj(w io.Writer, obstacles bool, path *detour.NavPath) error {
	if s.m_navMesh == nil {
		return ErrNotBuilt
	}
	if !obstacles && path == nil {
		return debug_utils.DuDumpDebugNavMeshToObj(s.m_navMesh.GetDebugNavMesh(), w)
	}
	dd := debug_utils.NewDuObjDraw(w)
	dd.Colors = true
	dd.Comment("Recast Navmesh")
	dd.Object("NavMesh")
	debug_utils.DuDebugDrawNavMesh(dd, s.m_navMesh.GetDebugNavMesh())
	if obstacles {
		dd.Object("Obstacles")
		debug_utils.DuDebugDrawObstacles(dd, s.m_tileCache)
	}
	if path != nil {
		dd.Object("Path")
		debug_utils.DuDebugDrawStraightPath(dd, path.Points, debug_utils.DuRGBA(255, 192, 0, 255))
	}
	return dd.Flush()
}

func (s *SampleTempObstacles) Close() {
	if s.m_tcomp != nil {
		s.m_tcomp.Close()
	}
	s.m_tileCache, s.m_navMesh, s.m_navQuery, s.m_tcomp, s.m_talloc = nil, nil, nil, nil, nil
}
