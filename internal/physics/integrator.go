package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/world"
)

// loaded reports whether position lies in a loaded chunk.
func (w *World) loaded(position mgl32.Vec3) bool {
	return w.tiles.InsideChunk(world.TilePosAt(position, w.cfg.TileSize))
}

// updateSleeping marks colliders far from the reference as sleeping, along
// with every collider whose body sleeps.
func (w *World) updateSleeping(reference mgl32.Vec3) {
	clear(w.distant)

	planar := w.cfg.SleepDistance * w.cfg.TileSize
	vertical := w.cfg.SleepZDistance * w.cfg.TileSize

	w.scene.Colliders.Each(func(e engine.Entity, c *components.Collider) {
		far := false
		if t, ok := w.scene.Target(e); ok {
			offset := t.Position.Sub(reference)
			far = xy(offset).Len() > planar || math32.Abs(offset[2]) > vertical
		}
		if far {
			w.distant[e] = true
		}

		sleeping := false
		if p, ok := w.scene.Physicals.Get(e); ok {
			sleeping = p.Sleeping
		}
		c.Sleeping = far || sleeping
	})
}

// integrate advances velocities of every awake body in a loaded chunk.
func (w *World) integrate(dt float32) {
	w.scene.Physicals.Each(func(e engine.Entity, p *components.Physical) {
		if w.distant[e] {
			return
		}
		t, ok := w.scene.Target(e)
		if !ok || !w.loaded(t.Position) {
			return
		}
		p.Integrate(dt, w.cfg.Gravity)
	})
}

// apply moves every awake body by its resolved velocity.
func (w *World) apply(dt float32) {
	w.scene.Physicals.Each(func(e engine.Entity, p *components.Physical) {
		if p.Sleeping || p.Immovable() || w.distant[e] {
			return
		}
		t, ok := w.scene.Target(e)
		if !ok {
			w.invariant("physical %v has no transform", e)
			return
		}
		if !w.loaded(t.Position) {
			return
		}

		delta, rotation := p.Displacement(dt)
		if !p.MoveZ {
			delta[2] = 0
		}
		if delta == (mgl32.Vec3{}) && rotation == 0 {
			return
		}
		w.scene.MoveTarget(e, delta, rotation, p.TargetNonLazy)
	})
}

// trySleep lets slow bodies outside the simulated region fall asleep and
// returns how many are asleep.
func (w *World) trySleep(dt float32) int {
	sleeping := 0
	w.scene.Physicals.Each(func(e engine.Entity, p *components.Physical) {
		outside := true
		if t, ok := w.scene.Target(e); ok {
			outside = !w.grid.InsideSimulated(t.Position, t.MaxScale()/2)
		}
		p.TrySleep(dt, w.cfg.SleepingVelocity, w.cfg.SleepDuration, outside)
		if p.Sleeping {
			sleeping++
		}
	})
	return sleeping
}
