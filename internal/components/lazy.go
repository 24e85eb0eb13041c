package components

import (
	"stratum/internal/engine"

	"github.com/chewxy/math32"
)

// Lazy is the target transform that physics writes to. The rendered
// transform follows it at Connection per second; zero snaps immediately.
// For entities with a parent the target is local to the parent.
type Lazy struct {
	Target     engine.Transform
	Connection float32
}

func NewLazy(target engine.Transform) Lazy {
	return Lazy{Target: target}
}

// Follow moves current toward target by one step of dt seconds. target is
// the world space version of l.Target.
func (l *Lazy) Follow(current, target engine.Transform, dt float32) engine.Transform {
	if l.Connection <= 0 {
		return target
	}

	amount := 1 - math32.Exp(-l.Connection*dt)
	current.Position = current.Position.Add(target.Position.Sub(current.Position).Mul(amount))
	current.Rotation += (target.Rotation - current.Rotation) * amount
	current.Scale = current.Scale.Add(target.Scale.Sub(current.Scale).Mul(amount))
	return current
}
