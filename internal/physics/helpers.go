package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// cross2 is the Z component of the 3D cross product of two planar vectors.
func cross2(a, b mgl32.Vec2) float32 {
	return a[0]*b[1] - a[1]*b[0]
}

// crossScalar is w × r for an angular velocity w about Z.
func crossScalar(w float32, r mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{-w * r[1], w * r[0]}
}

// basis returns the contact frame whose first column is n and second is n
// rotated a quarter turn counter clockwise.
func basis(n mgl32.Vec2) mgl32.Mat2 {
	return mgl32.Mat2{n[0], n[1], -n[1], n[0]}
}

func rotate2(v mgl32.Vec2, angle float32) mgl32.Vec2 {
	if angle == 0 {
		return v
	}
	sin, cos := math32.Sincos(angle)
	return mgl32.Vec2{v[0]*cos - v[1]*sin, v[0]*sin + v[1]*cos}
}

// normalize2 returns the unit vector along v, or the X axis when v has no
// usable length.
func normalize2(v mgl32.Vec2) mgl32.Vec2 {
	l := v.Len()
	if l < 1e-9 || !finite(l) {
		return mgl32.Vec2{1, 0}
	}
	return v.Mul(1 / l)
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// sign is 1 for zero.
func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func xy(v mgl32.Vec3) mgl32.Vec2 {
	return mgl32.Vec2{v[0], v[1]}
}
