package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/demo/mesh"
	"github.com/gorustyt/tilenav/detour"
	"github.com/gorustyt/tilenav/detour_tile_cache"
	"github.com/spf13/cobra"
)

// parseFloats parses n comma separated numbers.
func parseFloats(s string, n int) ([]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%q: want %d comma separated numbers", s, n)
	}
	out := make([]float32, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func parseVec3(s string) (common.Vec3, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return common.Vec3{}, err
	}
	return common.ToVec3(v), nil
}

type buildOptions struct {
	tilesX, tilesZ int
	geom           string
	slope          float32
	cylinders      []string
	boxes          []string
	rebuilds       int
	out            string
}

func newBuildCmd(a *app) *cobra.Command {
	o := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a tiled world with obstacles and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(a, o, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&o.tilesX, "tiles-x", 2, "Tiles along x")
	cmd.Flags().IntVar(&o.tilesZ, "tiles-z", 2, "Tiles along z")
	cmd.Flags().StringVar(&o.geom, "geom", "", "OBJ ground mesh, replaces the flat world and tile counts")
	cmd.Flags().Float32Var(&o.slope, "slope", 45, "Max walkable slope of --geom triangles in degrees")
	cmd.Flags().StringArrayVar(&o.cylinders, "cylinder", nil, "Cylinder obstacle x,y,z,radius,height (repeatable)")
	cmd.Flags().StringArrayVar(&o.boxes, "box", nil, "Box obstacle minx,miny,minz,maxx,maxy,maxz (repeatable)")
	cmd.Flags().IntVar(&o.rebuilds, "rebuilds", -1, "Tile rebuilds to run after adding obstacles, -1 for all")
	cmd.Flags().StringVarP(&o.out, "out", "o", "navmesh.bin", "Output file")
	return cmd
}

func runBuild(a *app, o *buildOptions, w io.Writer) error {
	s := mesh.NewSampleTempObstacles(a.cfg)
	defer s.Close()
	tw, th, ground := o.tilesX, o.tilesZ, detour_tile_cache.DtHeightSampler(mesh.FlatGround)
	if o.geom != "" {
		geom, err := mesh.LoadInputGeom(o.geom)
		if err != nil {
			return err
		}
		tc := a.cfg.TileCacheParams()
		tw, th = geom.TileGrid(tc.Orig, float32(tc.Width)*tc.Cs, float32(tc.Height)*tc.Cs)
		ground = geom.Sampler(o.slope)
	}
	if err := s.HandleBuild(tw, th, ground); err != nil {
		return err
	}
	for _, c := range o.cylinders {
		v, err := parseFloats(c, 5)
		if err != nil {
			return fmt.Errorf("cylinder %w", err)
		}
		if _, err := s.AddTempObstacle(common.ToVec3(v[:3]), v[3], v[4]); err != nil {
			return err
		}
	}
	for _, b := range o.boxes {
		v, err := parseFloats(b, 6)
		if err != nil {
			return fmt.Errorf("box %w", err)
		}
		if _, err := s.AddBoxObstacle(common.ToVec3(v[:3]), common.ToVec3(v[3:])); err != nil {
			return err
		}
	}
	upToDate, err := s.HandleUpdate(o.rebuilds)
	if err != nil {
		return err
	}
	if err := s.SaveAll(o.out); err != nil {
		return err
	}
	fmt.Fprintf(w, "saved %s: %d obstacles, %d tiles pending\n",
		o.out, len(s.TileCache().Obstacles()), len(s.TileCache().PendingTiles()))
	if !upToDate {
		fmt.Fprintln(w, "navmesh is not up to date, pending tiles are rebuilt on load")
	}
	return nil
}

// loadSample loads a saved runtime and finishes its pending rebuilds.
func loadSample(a *app, in string) (*mesh.SampleTempObstacles, error) {
	s := mesh.NewSampleTempObstacles(a.cfg)
	if err := s.LoadAll(in); err != nil {
		return nil, err
	}
	if s.TileCache() != nil {
		if _, err := s.HandleUpdate(-1); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

type pathOptions struct {
	in, from, to string
	halfExtents  string
}

func (o *pathOptions) addFlags(cmd *cobra.Command, required bool) {
	cmd.Flags().StringVar(&o.from, "from", "", "Start position x,y,z")
	cmd.Flags().StringVar(&o.to, "to", "", "End position x,y,z")
	cmd.Flags().StringVar(&o.halfExtents, "extents", "0.5,1,0.5", "Search half extents x,y,z")
	if required {
		_ = cmd.MarkFlagRequired("from")
		_ = cmd.MarkFlagRequired("to")
	} else {
		cmd.MarkFlagsRequiredTogether("from", "to")
	}
}

func (o *pathOptions) find(s *mesh.SampleTempObstacles) (*detour.NavPath, error) {
	from, err := parseVec3(o.from)
	if err != nil {
		return nil, fmt.Errorf("from %w", err)
	}
	to, err := parseVec3(o.to)
	if err != nil {
		return nil, fmt.Errorf("to %w", err)
	}
	ext, err := parseVec3(o.halfExtents)
	if err != nil {
		return nil, fmt.Errorf("extents %w", err)
	}
	return s.FindPath(from, to, ext)
}

func newPathCmd(a *app) *cobra.Command {
	o := &pathOptions{}
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Load a saved navmesh and print the path between two points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSample(a, o.in)
			if err != nil {
				return err
			}
			defer s.Close()
			path, err := o.find(s)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, p := range path.Points {
				fmt.Fprintf(w, "%d %.3f %.3f %.3f flags=%d\n", i, p[0], p[1], p[2], path.Flags[i])
			}
			if path.Partial {
				fmt.Fprintln(w, "partial path")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.in, "in", "i", "navmesh.bin", "Saved navmesh")
	o.addFlags(cmd, true)
	return cmd
}

func newObjCmd(a *app) *cobra.Command {
	o := &pathOptions{}
	var out string
	var obstacles bool
	cmd := &cobra.Command{
		Use:   "obj",
		Short: "Dump a saved navmesh as Wavefront OBJ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSample(a, o.in)
			if err != nil {
				return err
			}
			defer s.Close()
			var path *detour.NavPath
			if o.from != "" {
				if path, err = o.find(s); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return s.DumpObj(w, obstacles, path)
		},
	}
	cmd.Flags().StringVarP(&o.in, "in", "i", "navmesh.bin", "Saved navmesh")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().BoolVar(&obstacles, "obstacles", false, "Include obstacle wires")
	o.addFlags(cmd, false)
	return cmd
}

func newBenchCmd(a *app) *cobra.Command {
	var in string
	var repeat int
	cmd := &cobra.Command{
		Use:   "bench <testcase>",
		Short: "Run the path and raycast queries of a test case file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := mesh.LoadTestCase(args[0])
			if err != nil {
				return err
			}
			var s *mesh.SampleTempObstacles
			if in == "" && tc.GetGeomFileName() != "" {
				s, err = buildFromGeom(a, tc.GetGeomFileName())
			} else {
				if in == "" {
					in = "navmesh.bin"
				}
				s, err = loadSample(a, in)
			}
			if err != nil {
				return err
			}
			defer s.Close()
			for i := 0; i < max(repeat, 1); i++ {
				tc.DoTests(s.NavQuery())
			}
			tc.Report(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "Saved navmesh, defaults to the test case geometry or navmesh.bin")
	cmd.Flags().IntVarP(&repeat, "repeat", "n", 1, "Times to run the queries")
	return cmd
}

func buildFromGeom(a *app, path string) (*mesh.SampleTempObstacles, error) {
	geom, err := mesh.LoadInputGeom(path)
	if err != nil {
		return nil, err
	}
	tc := a.cfg.TileCacheParams()
	tw, th := geom.TileGrid(tc.Orig, float32(tc.Width)*tc.Cs, float32(tc.Height)*tc.Cs)
	s := mesh.NewSampleTempObstacles(a.cfg)
	if err := s.HandleBuild(tw, th, geom.Sampler(45)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
