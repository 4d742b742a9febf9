package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorustyt/tilenav/detour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, cfg.NavMesh.TileWidth, float32(cfg.TileCache.Width)*cfg.TileCache.Cs)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  level: debug
  console: true
navmesh:
  orig: [1, 0, 2]
  tileWidth: 10
  tileHeight: 10
  maxTiles: 64
tileCache:
  orig: [1, 0, 2]
  cs: 0.5
  width: 20
  height: 20
  obstacleArea: 5
  rebuildsPerUpdate: 4
query:
  maxNodes: 512
  includeFlags: [walk, door]
  excludeFlags: [disabled, jump]
  areaCosts:
    5: 10
  crossings: area
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)

	nm := cfg.NavMeshParams()
	assert.Equal(t, [3]float32{1, 0, 2}, nm.Orig)
	assert.EqualValues(t, 64, nm.MaxTiles)
	assert.EqualValues(t, 2048, nm.MaxPolys, "unset keys keep their default")

	tc := cfg.TileCacheParams()
	assert.Equal(t, float32(0.5), tc.Cs)
	assert.Equal(t, float32(0.2), tc.Ch)
	assert.EqualValues(t, 5, tc.ObstacleArea)
	assert.Equal(t, 4, tc.RebuildsPerUpdate)

	filter := cfg.QueryFilter()
	assert.Equal(t, uint16(SAMPLE_POLYFLAGS_WALK|SAMPLE_POLYFLAGS_DOOR), filter.GetIncludeFlags())
	assert.Equal(t, uint16(SAMPLE_POLYFLAGS_DISABLED|SAMPLE_POLYFLAGS_JUMP), filter.GetExcludeFlags())
	assert.Equal(t, float32(10), filter.GetAreaCost(5))
	assert.Equal(t, float32(1), filter.GetAreaCost(0))
	assert.Equal(t, detour.DT_STRAIGHTPATH_AREA_CROSSINGS, cfg.StraightPathOptions())
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("tileCache:\n  cellSize: 1\n"))
	assert.ErrorContains(t, err, "cellSize")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.TileCache.Width = 300
	cfg.TileCache.MaxObstacles = 0
	cfg.TileCache.ObstacleArea = 64
	cfg.Query.MaxNodes = 0
	cfg.Query.ExcludeFlags = []string{"fly"}
	cfg.Query.Crossings = "some"

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	// The width also breaks the navmesh tile size.
	assert.Len(t, errs, 7)
	assert.ErrorContains(t, err, `unknown polygon flag "fly"`)
	assert.ErrorContains(t, err, "tileCache.width")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query:\n  maxNodes: 100\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 100, cfg.Query.MaxNodes)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("query:\n  maxNodes: 0\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "query.maxNodes")
}
