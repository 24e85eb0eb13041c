package components

import (
	"stratum/internal/engine"

	"github.com/go-gl/mathgl/mgl32"
)

// Joint keeps its entity at Rest distance from Parent, measured from the
// parent's position plus Offset.
type Joint struct {
	Parent engine.Entity `yaml:"-"`
	Rest   float32       `yaml:"rest"`
	Offset mgl32.Vec2    `yaml:"offset"`

	// Strength is the fraction of the violation corrected per frame.
	Strength float32 `yaml:"strength"`
	// Damping removes this fraction of the relative velocity along the joint
	// axis every frame.
	Damping float32 `yaml:"damping"`
	// BreakDistance stops the joint from acting once the violation exceeds it.
	// Zero never breaks.
	BreakDistance float32 `yaml:"break_distance"`
}

func NewJoint(parent engine.Entity, rest float32) Joint {
	return Joint{Parent: parent, Rest: rest, Strength: 1}
}

// Broken reports whether a violation of this size is past the break distance.
func (j *Joint) Broken(violation float32) bool {
	return j.BreakDistance > 0 && violation > j.BreakDistance
}
