package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/engine"
)

// OBB is an oriented box in the play plane.
type OBB struct {
	Center   mgl32.Vec2    // World-space center
	HalfSize mgl32.Vec2    // Half-extents along local axes
	Axes     [2]mgl32.Vec2 // Local X and Y axes (rotated)
}

// NewOBB creates an OBB from a transform; scale is the full size.
func NewOBB(t engine.Transform) OBB {
	sin, cos := math32.Sincos(t.Rotation)
	return OBB{
		Center:   xy(t.Position),
		HalfSize: mgl32.Vec2{t.Scale[0] / 2, t.Scale[1] / 2},
		Axes: [2]mgl32.Vec2{
			{cos, sin},
			{-sin, cos},
		},
	}
}

// ToLocal expresses a world point in the box frame.
func (o OBB) ToLocal(point mgl32.Vec2) mgl32.Vec2 {
	d := point.Sub(o.Center)
	return mgl32.Vec2{d.Dot(o.Axes[0]), d.Dot(o.Axes[1])}
}

// ToWorld maps a point in the box frame back to world space.
func (o OBB) ToWorld(local mgl32.Vec2) mgl32.Vec2 {
	return o.Center.Add(o.Axes[0].Mul(local[0])).Add(o.Axes[1].Mul(local[1]))
}

// DirectionToWorld rotates a local direction into world space.
func (o OBB) DirectionToWorld(local mgl32.Vec2) mgl32.Vec2 {
	return o.Axes[0].Mul(local[0]).Add(o.Axes[1].Mul(local[1]))
}

func (o OBB) Corners() [4]mgl32.Vec2 {
	x := o.Axes[0].Mul(o.HalfSize[0])
	y := o.Axes[1].Mul(o.HalfSize[1])
	return [4]mgl32.Vec2{
		o.Center.Sub(x).Sub(y),
		o.Center.Add(x).Sub(y),
		o.Center.Add(x).Add(y),
		o.Center.Sub(x).Add(y),
	}
}

// Contains reports whether point lies inside or on the box.
func (o OBB) Contains(point mgl32.Vec2) bool {
	local := o.ToLocal(point)
	return math32.Abs(local[0]) <= o.HalfSize[0] && math32.Abs(local[1]) <= o.HalfSize[1]
}

// ClosestPoint returns the point of the box nearest to point.
func (o OBB) ClosestPoint(point mgl32.Vec2) mgl32.Vec2 {
	local := o.ToLocal(point)
	local[0] = clamp(local[0], -o.HalfSize[0], o.HalfSize[0])
	local[1] = clamp(local[1], -o.HalfSize[1], o.HalfSize[1])
	return o.ToWorld(local)
}

// project is the half length of the box shadow on axis.
func (o OBB) project(axis mgl32.Vec2) float32 {
	return o.HalfSize[0]*math32.Abs(o.Axes[0].Dot(axis)) +
		o.HalfSize[1]*math32.Abs(o.Axes[1].Dot(axis))
}

// Penetration runs the separating axis test over the four edge normals of
// both boxes. It returns the axis of least overlap oriented from b into a,
// and the overlap along it. Equal overlaps keep the earlier axis, so a's
// axes win over b's and X wins over Y.
func (a OBB) Penetration(b OBB) (mgl32.Vec2, float32, bool) {
	t := a.Center.Sub(b.Center)
	axes := [4]mgl32.Vec2{a.Axes[0], a.Axes[1], b.Axes[0], b.Axes[1]}

	best := math32.Inf(1)
	var normal mgl32.Vec2
	for _, axis := range axes {
		dist := t.Dot(axis)
		penetration := a.project(axis) + b.project(axis) - math32.Abs(dist)
		if penetration <= 0 {
			return mgl32.Vec2{}, 0, false
		}
		if penetration < best {
			best = penetration
			normal = axis.Mul(sign(dist))
		}
	}

	return normal, best, true
}

// ContactPoint estimates where a and b touch: the average of the corners of
// each box inside the other, or the corner closest to the other box when no
// corner is contained.
func (a OBB) ContactPoint(b OBB) mgl32.Vec2 {
	var sum mgl32.Vec2
	count := 0
	closest := a.Center
	closestDist := math32.Inf(1)

	check := func(corners [4]mgl32.Vec2, other OBB) {
		for _, c := range corners {
			if other.Contains(c) {
				sum = sum.Add(c)
				count++
				continue
			}
			if d := other.ClosestPoint(c).Sub(c).LenSqr(); d < closestDist {
				closestDist = d
				closest = c
			}
		}
	}
	check(a.Corners(), b)
	check(b.Corners(), a)

	if count == 0 {
		return closest
	}
	return sum.Mul(1 / float32(count))
}
