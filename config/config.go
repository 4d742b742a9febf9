package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_tile_cache"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       log.Config      `yaml:"log"`
	NavMesh   NavMeshConfig   `yaml:"navmesh"`
	TileCache TileCacheConfig `yaml:"tileCache"`
	Query     QueryConfig     `yaml:"query"`
}

type NavMeshConfig struct {
	Orig       [3]float32 `yaml:"orig"`
	TileWidth  float32    `yaml:"tileWidth"`
	TileHeight float32    `yaml:"tileHeight"`
	MaxTiles   int32      `yaml:"maxTiles"`
	MaxPolys   int32      `yaml:"maxPolys"`
}

type TileCacheConfig struct {
	Orig                   [3]float32 `yaml:"orig"`
	Cs                     float32    `yaml:"cs"`
	Ch                     float32    `yaml:"ch"`
	Width                  int        `yaml:"width"`
	Height                 int        `yaml:"height"`
	WalkableHeight         float32    `yaml:"walkableHeight"`
	WalkableRadius         float32    `yaml:"walkableRadius"`
	WalkableClimb          float32    `yaml:"walkableClimb"`
	MaxSimplificationError float32    `yaml:"maxSimplificationError"`
	MaxTiles               int        `yaml:"maxTiles"`
	MaxObstacles           int        `yaml:"maxObstacles"`
	ObstacleArea           uint8      `yaml:"obstacleArea"`
	AllocatorCapacity      int        `yaml:"allocatorCapacity"` // bytes
	RebuildsPerUpdate      int        `yaml:"rebuildsPerUpdate"`
}

type QueryConfig struct {
	MaxNodes     int32             `yaml:"maxNodes"`
	IncludeFlags []string          `yaml:"includeFlags"`
	ExcludeFlags []string          `yaml:"excludeFlags"`
	AreaCosts    map[uint8]float32 `yaml:"areaCosts"`
	Crossings    string            `yaml:"crossings"`
}

// Default returns a configuration for 32x32 cell tiles of 0.3 units.
func Default() *Config {
	cfg := &Config{}
	cfg.Reset()
	return cfg
}

func (cfg *Config) Reset() {
	cfg.Log = log.Config{Level: "info", MaxSize: 64, MaxBackups: 3, MaxAge: 7}
	cfg.TileCache = TileCacheConfig{
		Cs:                     0.3,
		Ch:                     0.2,
		Width:                  32,
		Height:                 32,
		WalkableHeight:         2.0,
		WalkableRadius:         0.6,
		WalkableClimb:          0.9,
		MaxSimplificationError: 1.3,
		MaxTiles:               256,
		MaxObstacles:           128,
		ObstacleArea:           1,
		AllocatorCapacity:      32 * 1024,
		RebuildsPerUpdate:      1,
	}
	cfg.NavMesh = NavMeshConfig{
		TileWidth:  float32(cfg.TileCache.Width) * cfg.TileCache.Cs,
		TileHeight: float32(cfg.TileCache.Height) * cfg.TileCache.Cs,
		MaxTiles:   256,
		MaxPolys:   2048,
	}
	cfg.Query = QueryConfig{
		MaxNodes:     2048,
		IncludeFlags: []string{DESC_SAMPLE_POLYFLAGS_ALL},
		ExcludeFlags: []string{DESC_SAMPLE_POLYFLAGS_DISABLED},
		Crossings:    DT_STRAIGHTPATH_NONE_CROSSINGS,
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (cfg *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	nm := &cfg.NavMesh
	check(nm.TileWidth > 0, "navmesh.tileWidth must be positive, got %v", nm.TileWidth)
	check(nm.TileHeight > 0, "navmesh.tileHeight must be positive, got %v", nm.TileHeight)
	check(nm.MaxTiles > 0, "navmesh.maxTiles must be positive, got %d", nm.MaxTiles)
	check(nm.MaxPolys > 0, "navmesh.maxPolys must be positive, got %d", nm.MaxPolys)

	tc := &cfg.TileCache
	check(tc.Cs > 0, "tileCache.cs must be positive, got %v", tc.Cs)
	check(tc.Ch > 0, "tileCache.ch must be positive, got %v", tc.Ch)
	check(tc.Width > 0 && tc.Width <= 255, "tileCache.width must be in [1,255], got %d", tc.Width)
	check(tc.Height > 0 && tc.Height <= 255, "tileCache.height must be in [1,255], got %d", tc.Height)
	check(tc.WalkableClimb >= 0, "tileCache.walkableClimb must not be negative, got %v", tc.WalkableClimb)
	check(tc.MaxSimplificationError >= 0, "tileCache.maxSimplificationError must not be negative, got %v", tc.MaxSimplificationError)
	check(tc.MaxTiles > 0, "tileCache.maxTiles must be positive, got %d", tc.MaxTiles)
	check(tc.MaxObstacles > 0 && tc.MaxObstacles <= 0xffff, "tileCache.maxObstacles must be in [1,65535], got %d", tc.MaxObstacles)
	check(tc.ObstacleArea < detour.DT_MAX_AREAS, "tileCache.obstacleArea must be below %d, got %d", detour.DT_MAX_AREAS, tc.ObstacleArea)
	check(tc.AllocatorCapacity >= 3*tc.Width*tc.Height,
		"tileCache.allocatorCapacity must hold at least one decompressed layer (%d bytes), got %d", 3*tc.Width*tc.Height, tc.AllocatorCapacity)
	check(tc.RebuildsPerUpdate >= 0, "tileCache.rebuildsPerUpdate must not be negative, got %d", tc.RebuildsPerUpdate)
	if tc.Cs > 0 && nm.TileWidth > 0 {
		check(nm.TileWidth == float32(tc.Width)*tc.Cs && nm.TileHeight == float32(tc.Height)*tc.Cs,
			"navmesh tile size %vx%v does not match tile cache tiles %vx%v",
			nm.TileWidth, nm.TileHeight, float32(tc.Width)*tc.Cs, float32(tc.Height)*tc.Cs)
	}

	q := &cfg.Query
	check(q.MaxNodes > 0 && q.MaxNodes < 0xffff, "query.maxNodes must be in [1,65534], got %d", q.MaxNodes)
	for _, name := range append(append([]string(nil), q.IncludeFlags...), q.ExcludeFlags...) {
		_, ok := polyFlagsByDesc[name]
		check(ok, "query: unknown polygon flag %q", name)
	}
	for area := range q.AreaCosts {
		check(area < detour.DT_MAX_AREAS, "query.areaCosts: area %d out of range", area)
	}
	switch q.Crossings {
	case DT_STRAIGHTPATH_NONE_CROSSINGS, DT_STRAIGHTPATH_AREA_CROSSINGS, DT_STRAIGHTPATH_ALL_CROSSINGS, "":
	default:
		check(false, "query.crossings must be one of none, area, all, got %q", q.Crossings)
	}
	return err
}

func (cfg *Config) NavMeshParams() *detour.NavMeshParams {
	return &detour.NavMeshParams{
		Orig:       cfg.NavMesh.Orig,
		TileWidth:  cfg.NavMesh.TileWidth,
		TileHeight: cfg.NavMesh.TileHeight,
		MaxTiles:   cfg.NavMesh.MaxTiles,
		MaxPolys:   cfg.NavMesh.MaxPolys,
	}
}

func (cfg *Config) TileCacheParams() *detour_tile_cache.DtTileCacheParams {
	tc := &cfg.TileCache
	return &detour_tile_cache.DtTileCacheParams{
		Orig:                   tc.Orig,
		Cs:                     tc.Cs,
		Ch:                     tc.Ch,
		Width:                  tc.Width,
		Height:                 tc.Height,
		WalkableHeight:         tc.WalkableHeight,
		WalkableRadius:         tc.WalkableRadius,
		WalkableClimb:          tc.WalkableClimb,
		MaxSimplificationError: tc.MaxSimplificationError,
		MaxTiles:               tc.MaxTiles,
		MaxObstacles:           tc.MaxObstacles,
		ObstacleArea:           tc.ObstacleArea,
		RebuildsPerUpdate:      tc.RebuildsPerUpdate,
	}
}

func polyFlags(names []string) uint16 {
	var flags uint16
	for _, name := range names {
		flags |= polyFlagsByDesc[name]
	}
	return flags
}

// QueryFilter builds the filter described by the query section.
func (cfg *Config) QueryFilter() *detour.DtQueryFilter {
	filter := detour.NewDtQueryFilter()
	filter.SetIncludeFlags(polyFlags(cfg.Query.IncludeFlags))
	filter.SetExcludeFlags(polyFlags(cfg.Query.ExcludeFlags))
	for area, cost := range cfg.Query.AreaCosts {
		filter.SetAreaCost(int(area), cost)
	}
	return filter
}

// StraightPathOptions maps query.crossings to DT_STRAIGHTPATH_* options.
func (cfg *Config) StraightPathOptions() int {
	switch cfg.Query.Crossings {
	case DT_STRAIGHTPATH_AREA_CROSSINGS:
		return detour.DT_STRAIGHTPATH_AREA_CROSSINGS
	case DT_STRAIGHTPATH_ALL_CROSSINGS:
		return detour.DT_STRAIGHTPATH_ALL_CROSSINGS
	}
	return 0
}
