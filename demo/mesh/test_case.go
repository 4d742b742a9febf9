package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/detour"
	"go.uber.org/zap"
)

type TestType int

const (
	TEST_PATHFIND TestType = iota
	TEST_RAYCAST
)

type Test struct {
	Type         TestType
	Spos         common.Vec3
	Epos         common.Vec3
	Nspos        common.Vec3
	Nepos        common.Vec3
	IncludeFlags uint16
	ExcludeFlags uint16

	Straight []common.Vec3
	Polys    []detour.DtPolyRef

	FindNearestPolyTime  time.Duration
	FindPathTime         time.Duration
	FindStraightPathTime time.Duration
}

// TestCase is a list of path and raycast queries read from a text file:
//
//	s <sample name>
//	f <geometry file>
//	pf sx sy sz ex ey ez includeFlags excludeFlags
//	rc sx sy sz ex ey ez includeFlags excludeFlags
//
// Flags are hexadecimal.
type TestCase struct {
	m_sampleName   string
	m_geomFileName string
	m_tests        []*Test
	m_runTimes     ValueHistory
}

func LoadTestCase(path string) (*TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTestCase(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.m_geomFileName != "" && !filepath.IsAbs(t.m_geomFileName) {
		t.m_geomFileName = filepath.Join(filepath.Dir(path), t.m_geomFileName)
	}
	return t, nil
}

func ReadTestCase(r io.Reader) (*TestCase, error) {
	t := &TestCase{}
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		row := strings.Fields(scanner.Text())
		if len(row) == 0 || strings.HasPrefix(row[0], "#") {
			continue
		}
		if err := t.parseRow(row); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return t, scanner.Err()
}

func (t *TestCase) parseRow(ss []string) error {
	switch ss[0] {
	case "s":
		// Sample name.
		t.m_sampleName = strings.Join(ss[1:], " ")
	case "f":
		// File name.
		if len(ss) > 1 {
			t.m_geomFileName = ss[1]
		}
	case "pf", "rc":
		test := &Test{Type: TEST_PATHFIND}
		if ss[0] == "rc" {
			test.Type = TEST_RAYCAST
		}
		if len(ss) != 9 {
			return fmt.Errorf("%s needs 8 values, got %d", ss[0], len(ss)-1)
		}
		for i := 0; i < 6; i++ {
			v, err := strconv.ParseFloat(ss[1+i], 32)
			if err != nil {
				return err
			}
			if i < 3 {
				test.Spos[i] = float32(v)
			} else {
				test.Epos[i-3] = float32(v)
			}
		}
		incl, err := strconv.ParseUint(ss[7], 16, 16)
		if err != nil {
			return err
		}
		excl, err := strconv.ParseUint(ss[8], 16, 16)
		if err != nil {
			return err
		}
		test.IncludeFlags, test.ExcludeFlags = uint16(incl), uint16(excl)
		t.m_tests = append(t.m_tests, test)
	}
	return nil
}

func (t *TestCase) GetSampleName() string   { return t.m_sampleName }
func (t *TestCase) GetGeomFileName() string { return t.m_geomFileName }
func (t *TestCase) Tests() []*Test          { return t.m_tests }

// RunTimes holds the wall time of each DoTests call.
func (t *TestCase) RunTimes() *ValueHistory { return &t.m_runTimes }

// DoTests runs every query against navquery and records results and timings.
func (t *TestCase) DoTests(navquery *detour.DtNavMeshQuery) {
	if navquery == nil {
		return
	}

	const MAX_POLYS = 256
	polyPickExt := []float32{2, 4, 2}

	runStart := time.Now()
	defer func() { t.m_runTimes.AddSample(time.Since(runStart)) }()

	for _, iter := range t.m_tests {
		iter.Polys, iter.Straight = nil, nil
		iter.FindNearestPolyTime, iter.FindPathTime, iter.FindStraightPathTime = 0, 0, 0

		filter := detour.NewDtQueryFilter()
		filter.SetIncludeFlags(iter.IncludeFlags)
		filter.SetExcludeFlags(iter.ExcludeFlags)

		// Find start points
		findNearestPolyStart := time.Now()
		startRef, nspos, _, _ := navquery.FindNearestPoly(iter.Spos[:], polyPickExt, filter)
		endRef, nepos, _, _ := navquery.FindNearestPoly(iter.Epos[:], polyPickExt, filter)
		iter.FindNearestPolyTime = time.Since(findNearestPolyStart)
		iter.Nspos, iter.Nepos = common.Vec3(nspos), common.Vec3(nepos)

		if startRef == 0 || endRef == 0 {
			continue
		}

		switch iter.Type {
		case TEST_PATHFIND:
			// Find path
			findPathStart := time.Now()
			polys, status := navquery.FindPath(startRef, endRef, iter.Spos[:], iter.Epos[:], filter, MAX_POLYS)
			iter.FindPathTime = time.Since(findPathStart)
			if status.DtStatusFailed() || len(polys) == 0 {
				continue
			}
			iter.Polys = polys

			// Find straight path
			findStraightPathStart := time.Now()
			straight, status := navquery.FindStraightPath(iter.Spos[:], iter.Epos[:], polys, MAX_POLYS, 0)
			iter.FindStraightPathTime = time.Since(findStraightPathStart)
			if status.DtStatusFailed() {
				continue
			}
			for _, v := range straight {
				iter.Straight = append(iter.Straight, common.Vec3(v.Pos))
			}
		case TEST_RAYCAST:
			findPathStart := time.Now()
			hit, status := navquery.Raycast(startRef, iter.Spos[:], iter.Epos[:], filter, 0, 0, MAX_POLYS)
			iter.FindPathTime = time.Since(findPathStart)
			if status.DtStatusFailed() {
				continue
			}
			hitPos := iter.Epos
			if hit.T <= 1 {
				// Hit
				hitPos = iter.Spos.Add(iter.Epos.Sub(iter.Spos).Mul(hit.T))
			}
			// Adjust height.
			if len(hit.Path) > 0 {
				if h, st := navquery.GetPolyHeight(hit.Path[len(hit.Path)-1], hitPos[:]); st.DtStatusSucceed() {
					hitPos[1] = h
				}
			}
			iter.Polys = hit.Path
			iter.Straight = []common.Vec3{iter.Spos, hitPos}
		}
	}
	log.L().Debug("test case done", zap.String("sample", t.m_sampleName), zap.Int("tests", len(t.m_tests)))
}

// Report writes one block per test with its result and timings.
func (t *TestCase) Report(w io.Writer) {
	fmt.Fprintf(w, "Test Results:\n")
	for n, iter := range t.m_tests {
		kind := "Path"
		if iter.Type == TEST_RAYCAST {
			kind = "Raycast"
		}
		total := iter.FindNearestPolyTime + iter.FindPathTime + iter.FindStraightPathTime
		fmt.Fprintf(w, " - %s %02d:     %d polys, %d points, %v\n", kind, n, len(iter.Polys), len(iter.Straight), total)
		fmt.Fprintf(w, "    - poly:     %v\n", iter.FindNearestPolyTime)
		fmt.Fprintf(w, "    - path:     %v\n", iter.FindPathTime)
		fmt.Fprintf(w, "    - straight: %v\n", iter.FindStraightPathTime)
	}
	if h := &t.m_runTimes; h.GetSampleCount() > 1 {
		fmt.Fprintf(w, "Runs: %d, avg %v, min %v, max %v\n",
			h.GetSampleCount(), h.GetAverage(), h.GetSampleMin(), h.GetSampleMax())
	}
}
