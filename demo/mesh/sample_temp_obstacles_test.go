package mesh

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var halfExtents = common.Vec3{0.5, 1, 0.5}

func newSample(t *testing.T) *SampleTempObstacles {
	t.Helper()
	s := NewSampleTempObstacles(config.Default())
	t.Cleanup(s.Close)
	require.NoError(t, s.HandleBuild(2, 1, FlatGround))
	return s
}

func TestSampleBuildAndCrossTilePath(t *testing.T) {
	s := newSample(t)
	assert.Equal(t, 2, s.m_cacheLayerCount)
	assert.NotNil(t, s.NavMesh().GetTileAt(0, 0, 0))
	assert.NotNil(t, s.NavMesh().GetTileAt(1, 0, 0))

	path, err := s.FindPath(common.Vec3{1, 0, 4.8}, common.Vec3{18, 0, 4.8}, halfExtents)
	require.NoError(t, err)
	assert.False(t, path.Partial)
	assert.Len(t, path.Points, 2)
}

func TestSampleObstacleLifecycle(t *testing.T) {
	s := newSample(t)
	ref, err := s.AddTempObstacle(common.Vec3{4.8, 0, 4.8}, 1, 2)
	require.NoError(t, err)
	upToDate, err := s.HandleUpdate(-1)
	require.NoError(t, err)
	require.True(t, upToDate)

	path, err := s.FindPath(common.Vec3{1, 0, 4.8}, common.Vec3{8.5, 0, 4.8}, halfExtents)
	require.NoError(t, err)
	around := false
	for _, p := range path.Points {
		if math.Abs(float64(p[2]-4.8)) >= 0.9 {
			around = true
		}
	}
	assert.True(t, around, "path %v crosses the obstacle", path.Points)

	require.NoError(t, s.RemoveTempObstacle(ref))
	assert.Error(t, s.RemoveTempObstacle(ref))
	_, err = s.HandleUpdate(-1)
	require.NoError(t, err)
	path, err = s.FindPath(common.Vec3{1, 0, 4.8}, common.Vec3{8.5, 0, 4.8}, halfExtents)
	require.NoError(t, err)
	assert.Len(t, path.Points, 2)

	_, err = s.AddBoxObstacle(common.Vec3{2, 0, 2}, common.Vec3{3, 1, 3})
	require.NoError(t, err)
	s.ClearAllTempObstacles()
	assert.Empty(t, s.TileCache().Obstacles())
}

func TestSampleSaveLoad(t *testing.T) {
	s := newSample(t)
	_, err := s.AddTempObstacle(common.Vec3{4.8, 0, 4.8}, 1, 2)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "all.navmesh")
	require.NoError(t, s.SaveAll(file))

	loaded := NewSampleTempObstacles(config.Default())
	t.Cleanup(loaded.Close)
	require.NoError(t, loaded.LoadAll(file))
	assert.Equal(t, 2, loaded.m_cacheLayerCount)
	assert.Equal(t, s.TileCache().Obstacles(), loaded.TileCache().Obstacles())
	assert.Equal(t, s.TileCache().PendingTiles(), loaded.TileCache().PendingTiles())

	assert.Error(t, loaded.LoadAll(filepath.Join(t.TempDir(), "missing")))
}

func TestSampleDumpObj(t *testing.T) {
	s := newSample(t)
	_, err := s.AddTempObstacle(common.Vec3{4.8, 0, 4.8}, 1, 2)
	require.NoError(t, err)
	_, err = s.HandleUpdate(-1)
	require.NoError(t, err)

	var plain bytes.Buffer
	require.NoError(t, s.DumpObj(&plain, false, nil))
	assert.Contains(t, plain.String(), "o NavMesh\n")
	assert.NotContains(t, plain.String(), "o Obstacles\n")

	path, err := s.FindPath(common.Vec3{1, 0, 4.8}, common.Vec3{8.5, 0, 4.8}, halfExtents)
	require.NoError(t, err)
	var full bytes.Buffer
	require.NoError(t, s.DumpObj(&full, true, path))
	assert.Contains(t, full.String(), "o Obstacles\n")
	assert.Contains(t, full.String(), "o Path\n")
}

func TestSampleNotBuilt(t *testing.T) {
	s := NewSampleTempObstacles(config.Default())
	_, err := s.HandleUpdate(1)
	assert.ErrorIs(t, err, ErrNotBuilt)
	_, err = s.FindPath(common.Vec3{}, common.Vec3{}, halfExtents)
	assert.ErrorIs(t, err, ErrNotBuilt)
	assert.ErrorIs(t, s.SaveAll("unused"), ErrNotBuilt)
	assert.Error(t, s.HandleBuild(100, 100, FlatGround))
}
