package physics

import "github.com/go-gl/mathgl/mgl32"

type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABBFromCenter creates an AABB from a center point and half extents.
func NewAABBFromCenter(center, half mgl32.Vec3) AABB {
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Min[i] < a.Min[i] || b.Max[i] > a.Max[i] {
			return false
		}
	}
	return true
}

// OverlapMin is the minimum corner of the intersection of a and b.
func (a AABB) OverlapMin(b AABB) mgl32.Vec3 {
	return mgl32.Vec3{
		max(a.Min[0], b.Min[0]),
		max(a.Min[1], b.Min[1]),
		max(a.Min[2], b.Min[2]),
	}
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Resolve returns the planar minimum translation that pushes a out of b.
// Equal overlaps resolve along X. Returns the zero vector if no overlap.
func (a AABB) Resolve(b AABB) mgl32.Vec2 {
	if !a.Intersects(b) {
		return mgl32.Vec2{}
	}

	dx1 := b.Max[0] - a.Min[0] // push a in +X
	dx2 := a.Max[0] - b.Min[0] // push a in -X
	dy1 := b.Max[1] - a.Min[1] // push a in +Y
	dy2 := a.Max[1] - b.Min[1] // push a in -Y

	best := dx1
	result := mgl32.Vec2{dx1, 0}

	if dx2 < best {
		best = dx2
		result = mgl32.Vec2{-dx2, 0}
	}
	if dy1 < best {
		best = dy1
		result = mgl32.Vec2{0, dy1}
	}
	if dy2 < best {
		result = mgl32.Vec2{0, -dy2}
	}

	return result
}
