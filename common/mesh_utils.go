package common

// Prev returns the index before i in a ring of n elements.
func Prev[T IT](i, n T) T {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

// Next returns the index after i in a ring of n elements.
func Next[T IT](i, n T) T {
	if i+1 < n {
		return i + 1
	}
	return 0
}

func ComputeTileHash(x, y, mask int32) int32 {
	h1 := uint32(0x8da6b343) // Large multiplicative constants;
	h2 := uint32(0xd8163841) // here arbitrarily chosen primes
	n := h1*uint32(x) + h2*uint32(y)
	return int32(n & uint32(mask))
}

// / Determines if two axis-aligned bounding boxes overlap.
// /  @param[in]		amin	Minimum bounds of box A. [(x, y, z)]
// /  @param[in]		amax	Maximum bounds of box A. [(x, y, z)]
// /  @param[in]		bmin	Minimum bounds of box B. [(x, y, z)]
// /  @param[in]		bmax	Maximum bounds of box B. [(x, y, z)]
// / @return True if the two AABB's overlap.
func DtOverlapBounds(amin, amax, bmin, bmax []float32) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

// GetDirOffsetX returns the x offset of the grid neighbour in direction dir
// (0: -x, 1: +z, 2: +x, 3: -z).
func GetDirOffsetX(dir int) int {
	offset := [4]int{-1, 0, 1, 0}
	return offset[dir&0x03]
}

// GetDirOffsetY returns the z offset of the grid neighbour in direction dir.
func GetDirOffsetY(dir int) int {
	offset := [4]int{0, 1, 0, -1}
	return offset[dir&0x03]
}
