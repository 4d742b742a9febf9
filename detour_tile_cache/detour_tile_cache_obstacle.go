package detour_tile_cache

import (
	"math"

	"github.com/gorustyt/tilenav/common"
	"github.com/gorustyt/tilenav/detour"
)

// DtObstacleRef is salt<<16 | index. A live reference never has a zero salt.
type DtObstacleRef uint32

const (
	DT_OBSTACLE_EMPTY = iota
	DT_OBSTACLE_PROCESSED
)

const (
	DT_OBSTACLE_CYLINDER     = iota
	DT_OBSTACLE_BOX          // AABB
	DT_OBSTACLE_ORIENTED_BOX // OBB
)

type DtObstacleCylinder struct {
	Pos    [3]float32
	Radius float32
	Height float32
}

type DtObstacleBox struct {
	Bmin [3]float32
	Bmax [3]float32
}

type DtObstacleOrientedBox struct {
	Center      [3]float32
	HalfExtents [3]float32
	RotAux      [2]float32 //{ cos(0.5f*angle)*sin(-0.5f*angle); cos(0.5f*angle)*cos(0.5f*angle) - 0.5 }
}

// NewDtObstacleOrientedBox rotates the box by yRadians around the y axis.
func NewDtObstacleOrientedBox(center, halfExtents common.Vec3, yRadians float32) DtObstacleOrientedBox {
	coshalf := math.Cos(0.5 * float64(yRadians))
	sinhalf := math.Sin(-0.5 * float64(yRadians))
	return DtObstacleOrientedBox{
		Center:      center,
		HalfExtents: halfExtents,
		RotAux:      [2]float32{float32(coshalf * sinhalf), float32(coshalf*coshalf) - 0.5},
	}
}

type DtTileCacheObstacle struct {
	Cylinder    DtObstacleCylinder
	Box         DtObstacleBox
	OrientedBox DtObstacleOrientedBox
	Type        uint8
	State       uint8

	salt  uint16
	index int
	next  *DtTileCacheObstacle
}

// Bounds returns the world space AABB of the obstacle.
func (ob *DtTileCacheObstacle) Bounds() (bmin, bmax [3]float32) {
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		cl := &ob.Cylinder
		bmin = [3]float32{cl.Pos[0] - cl.Radius, cl.Pos[1], cl.Pos[2] - cl.Radius}
		bmax = [3]float32{cl.Pos[0] + cl.Radius, cl.Pos[1] + cl.Height, cl.Pos[2] + cl.Radius}
	case DT_OBSTACLE_BOX:
		bmin, bmax = ob.Box.Bmin, ob.Box.Bmax
	case DT_OBSTACLE_ORIENTED_BOX:
		obb := &ob.OrientedBox
		maxr := 1.41 * max(obb.HalfExtents[0], obb.HalfExtents[2])
		bmin = [3]float32{obb.Center[0] - maxr, obb.Center[1] - obb.HalfExtents[1], obb.Center[2] - maxr}
		bmax = [3]float32{obb.Center[0] + maxr, obb.Center[1] + obb.HalfExtents[1], obb.Center[2] + maxr}
	}
	return
}

// mark writes areaId into the layer cells covered by the obstacle.
func (ob *DtTileCacheObstacle) mark(layer *DtTileCacheLayer, cs, ch float32, areaId uint8) detour.DtStatus {
	orig := layer.Header.Bmin[:]
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		return DtMarkCylinderArea(layer, orig, cs, ch, ob.Cylinder.Pos[:], ob.Cylinder.Radius, ob.Cylinder.Height, areaId)
	case DT_OBSTACLE_BOX:
		return DtMarkBoxArea(layer, orig, cs, ch, ob.Box.Bmin[:], ob.Box.Bmax[:], areaId)
	case DT_OBSTACLE_ORIENTED_BOX:
		return DtMarkOrientedBoxArea(layer, orig, cs, ch, ob.OrientedBox.Center[:], ob.OrientedBox.HalfExtents[:], ob.OrientedBox.RotAux[:], areaId)
	}
	return detour.DT_FAILURE | detour.DT_INVALID_PARAM
}

// clampRect clips the cell rectangle to the layer; ok is false when it lies outside.
func clampRect(layer *DtTileCacheLayer, minx, maxx, minz, maxz int) (int, int, int, int, bool) {
	w, h := int(layer.Header.Width), int(layer.Header.Height)
	if maxx < 0 || minx >= w || maxz < 0 || minz >= h {
		return 0, 0, 0, 0, false
	}
	return max(minx, 0), min(maxx, w-1), max(minz, 0), min(maxz, h-1), true
}

func floorCell(v float32) int {
	return int(math.Floor(float64(v)))
}

func DtMarkCylinderArea(layer *DtTileCacheLayer, orig []float32, cs, ch float32,
	pos []float32, radius, height float32, areaId uint8) detour.DtStatus {
	bmin := [3]float32{pos[0] - radius, pos[1], pos[2] - radius}
	bmax := [3]float32{pos[0] + radius, pos[1] + height, pos[2] + radius}
	r2 := common.Sqr(radius/cs + 0.5)

	w := int(layer.Header.Width)
	ics := 1.0 / cs
	ich := 1.0 / ch

	px := (pos[0] - orig[0]) * ics
	pz := (pos[2] - orig[2]) * ics

	miny := floorCell((bmin[1] - orig[1]) * ich)
	maxy := floorCell((bmax[1] - orig[1]) * ich)
	minx, maxx, minz, maxz, ok := clampRect(layer,
		floorCell((bmin[0]-orig[0])*ics), floorCell((bmax[0]-orig[0])*ics),
		floorCell((bmin[2]-orig[2])*ics), floorCell((bmax[2]-orig[2])*ics))
	if !ok {
		return detour.DT_SUCCESS
	}

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			dx := (float32(x) + 0.5) - px
			dz := (float32(z) + 0.5) - pz
			if dx*dx+dz*dz > r2 {
				continue
			}
			if layer.Areas[x+z*w] == DT_TILECACHE_NULL_AREA {
				continue
			}
			y := int(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
	return detour.DT_SUCCESS
}

func DtMarkBoxArea(layer *DtTileCacheLayer, orig []float32, cs, ch float32,
	bmin, bmax []float32, areaId uint8) detour.DtStatus {
	w := int(layer.Header.Width)
	ics := 1.0 / cs
	ich := 1.0 / ch

	miny := floorCell((bmin[1] - orig[1]) * ich)
	maxy := floorCell((bmax[1] - orig[1]) * ich)
	minx, maxx, minz, maxz, ok := clampRect(layer,
		floorCell((bmin[0]-orig[0])*ics), floorCell((bmax[0]-orig[0])*ics),
		floorCell((bmin[2]-orig[2])*ics), floorCell((bmax[2]-orig[2])*ics))
	if !ok {
		return detour.DT_SUCCESS
	}

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			if layer.Areas[x+z*w] == DT_TILECACHE_NULL_AREA {
				continue
			}
			y := int(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
	return detour.DT_SUCCESS
}

func DtMarkOrientedBoxArea(layer *DtTileCacheLayer, orig []float32, cs, ch float32,
	center, halfExtents, rotAux []float32, areaId uint8) detour.DtStatus {
	w := int(layer.Header.Width)
	ics := 1.0 / cs
	ich := 1.0 / ch

	cx := (center[0] - orig[0]) * ics
	cz := (center[2] - orig[2]) * ics

	maxr := 1.41 * max(halfExtents[0], halfExtents[2])
	miny := floorCell((center[1] - halfExtents[1] - orig[1]) * ich)
	maxy := floorCell((center[1] + halfExtents[1] - orig[1]) * ich)
	minx, maxx, minz, maxz, ok := clampRect(layer,
		floorCell(cx-maxr*ics), floorCell(cx+maxr*ics),
		floorCell(cz-maxr*ics), floorCell(cz+maxr*ics))
	if !ok {
		return detour.DT_SUCCESS
	}

	xhalf := halfExtents[0]*ics + 0.5
	zhalf := halfExtents[2]*ics + 0.5

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			x2 := 2.0 * (float32(x) - cx)
			z2 := 2.0 * (float32(z) - cz)
			xrot := rotAux[1]*x2 + rotAux[0]*z2
			if xrot > xhalf || xrot < -xhalf {
				continue
			}
			zrot := rotAux[1]*z2 - rotAux[0]*x2
			if zrot > zhalf || zrot < -zhalf {
				continue
			}
			if layer.Areas[x+z*w] == DT_TILECACHE_NULL_AREA {
				continue
			}
			y := int(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
	return detour.DT_SUCCESS
}
