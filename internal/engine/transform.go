package engine

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places an entity in the world. Z is depth, X/Y is the play plane
// and Rotation is a single angle in radians about Z.
type Transform struct {
	Position mgl32.Vec3
	Rotation float32
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

func At(position mgl32.Vec3, scale mgl32.Vec3) Transform {
	return Transform{Position: position, Scale: scale}
}

// Finite reports whether every component is a finite number.
func (t Transform) Finite() bool {
	for i := 0; i < 3; i++ {
		if !finite(t.Position[i]) || !finite(t.Scale[i]) {
			return false
		}
	}
	return finite(t.Rotation)
}

// MaxScale is the largest scale component.
func (t Transform) MaxScale() float32 {
	return math32.Max(t.Scale[0], math32.Max(t.Scale[1], t.Scale[2]))
}

// Combine treats t as local to parent and returns the world transform:
// scaled by the parent's scale, rotated by its rotation, then offset.
func (t Transform) Combine(parent Transform) Transform {
	scaled := mgl32.Vec3{
		t.Position[0] * parent.Scale[0],
		t.Position[1] * parent.Scale[1],
		t.Position[2] * parent.Scale[2],
	}

	sin, cos := math32.Sincos(parent.Rotation)
	rotated := mgl32.Vec3{
		scaled[0]*cos - scaled[1]*sin,
		scaled[0]*sin + scaled[1]*cos,
		scaled[2],
	}

	return Transform{
		Position: parent.Position.Add(rotated),
		Rotation: parent.Rotation + t.Rotation,
		Scale: mgl32.Vec3{
			parent.Scale[0] * t.Scale[0],
			parent.Scale[1] * t.Scale[1],
			parent.Scale[2] * t.Scale[2],
		},
	}
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
