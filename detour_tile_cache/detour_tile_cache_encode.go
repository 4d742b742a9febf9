package detour_tile_cache

import (
	"github.com/gorustyt/tilenav/common/rw"
)

func (p *DtTileCacheParams) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(p.Orig[:])
	w.WriteFloat32(p.Cs)
	w.WriteFloat32(p.Ch)
	w.WriteInt32(int32(p.Width))
	w.WriteInt32(int32(p.Height))
	w.WriteFloat32(p.WalkableHeight)
	w.WriteFloat32(p.WalkableRadius)
	w.WriteFloat32(p.WalkableClimb)
	w.WriteFloat32(p.MaxSimplificationError)
	w.WriteInt32(int32(p.MaxTiles))
	w.WriteInt32(int32(p.MaxObstacles))
	w.WriteUInt8(p.ObstacleArea)
	w.PadZero(3)
	w.WriteInt32(int32(p.RebuildsPerUpdate))
}

func (p *DtTileCacheParams) FromBin(r *rw.ReaderWriter) error {
	r.ReadFloat32s(p.Orig[:])
	p.Cs = r.ReadFloat32()
	p.Ch = r.ReadFloat32()
	p.Width = int(r.ReadInt32())
	p.Height = int(r.ReadInt32())
	p.WalkableHeight = r.ReadFloat32()
	p.WalkableRadius = r.ReadFloat32()
	p.WalkableClimb = r.ReadFloat32()
	p.MaxSimplificationError = r.ReadFloat32()
	p.MaxTiles = int(r.ReadInt32())
	p.MaxObstacles = int(r.ReadInt32())
	p.ObstacleArea = r.ReadUInt8()
	r.Skip(3)
	p.RebuildsPerUpdate = int(r.ReadInt32())
	return r.Err()
}

// ShapeToBin writes the shape of the obstacle selected by its Type.
func (ob *DtTileCacheObstacle) ShapeToBin(w *rw.ReaderWriter) {
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		w.WriteFloat32s(ob.Cylinder.Pos[:])
		w.WriteFloat32(ob.Cylinder.Radius)
		w.WriteFloat32(ob.Cylinder.Height)
	case DT_OBSTACLE_BOX:
		w.WriteFloat32s(ob.Box.Bmin[:])
		w.WriteFloat32s(ob.Box.Bmax[:])
	case DT_OBSTACLE_ORIENTED_BOX:
		w.WriteFloat32s(ob.OrientedBox.Center[:])
		w.WriteFloat32s(ob.OrientedBox.HalfExtents[:])
		w.WriteFloat32s(ob.OrientedBox.RotAux[:])
	}
}

// ShapeFromBin reads the shape for the already set Type.
func (ob *DtTileCacheObstacle) ShapeFromBin(r *rw.ReaderWriter) error {
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		r.ReadFloat32s(ob.Cylinder.Pos[:])
		ob.Cylinder.Radius = r.ReadFloat32()
		ob.Cylinder.Height = r.ReadFloat32()
	case DT_OBSTACLE_BOX:
		r.ReadFloat32s(ob.Box.Bmin[:])
		r.ReadFloat32s(ob.Box.Bmax[:])
	case DT_OBSTACLE_ORIENTED_BOX:
		r.ReadFloat32s(ob.OrientedBox.Center[:])
		r.ReadFloat32s(ob.OrientedBox.HalfExtents[:])
		r.ReadFloat32s(ob.OrientedBox.RotAux[:])
	}
	return r.Err()
}
