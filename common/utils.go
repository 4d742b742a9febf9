package common

import "github.com/go-gl/mathgl/mgl32"

type Vec3 = mgl32.Vec3
type Vec2 = mgl32.Vec2

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}
type IIndex interface {
	~int | ~int8 | ~int16 | ~int32 | ~uint | ~uint8 | ~uint16 | ~uint32
}

func GetVert3[T IT, T1 IIndex](verts []T, index T1) []T {
	return verts[index*3 : index*3+3]
}

func GetVert2[T IT, T1 IIndex](verts []T, index T1) []T {
	return verts[index*2 : index*2+2]
}

func GetVert4[T IT, T1 IIndex](verts []T, index T1) []T {
	return verts[index*4 : index*4+4]
}

// SliceTToSlice converts every element of v1 to T2.
func SliceTToSlice[T1, T2 IT](v1 []T1) (v2 []T2) {
	v2 = make([]T2, 0, len(v1))
	for _, v := range v1 {
		v2 = append(v2, T2(v))
	}
	return v2
}

// ToVec3 copies the first three floats of v.
func ToVec3(v []float32) Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// Align4 rounds x up to the next multiple of four.
func Align4[T IIndex](x T) T {
	return (x + 3) &^ 3
}
