// Package damage turns collider overlaps and ray hits into health loss,
// knockback and tile destruction.
package damage

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/passer"
	"stratum/internal/physics"
	"stratum/internal/scene"
	"stratum/internal/world"
)

const (
	// KnockbackMass is the reference mass knockback impulses are scaled by.
	KnockbackMass = 1.0
	knockbackGain = 30.0

	// throughStrength is the knockback strength of a ray that leaves the
	// body it hit.
	throughStrength = 0.5
)

// Hit is one resolved hit, entity or tile.
type Hit struct {
	ID        components.DamagedID
	Source    engine.Entity
	Amount    float32
	Direction mgl32.Vec2
	// Knockback is the damaging component's knockback factor.
	Knockback float32
	Strength  float32

	Entry   mgl32.Vec3
	Exit    mgl32.Vec3
	HasExit bool
}

// Stats counts what one dispatch did.
type Stats struct {
	Hits      int
	Killed    int
	Destroyed int
}

func (s *Stats) add(other Stats) {
	s.Hits += other.Hits
	s.Killed += other.Killed
	s.Destroyed += other.Destroyed
}

// Dispatcher applies damage after a physics step. Structural changes go out
// through the passer.
type Dispatcher struct {
	world  *physics.World
	scene  *scene.Scene
	tiles  world.World
	passer passer.Passer

	// OnHit is called for every hit after it was applied.
	OnHit engine.Event[Hit]
}

func NewDispatcher(w *physics.World, p passer.Passer) *Dispatcher {
	if p == nil {
		p = passer.Nop{}
	}
	return &Dispatcher{
		world:  w,
		scene:  w.Scene(),
		tiles:  w.Tiles(),
		passer: p,
	}
}

// Update walks every collider with a Damaging component and damages what it
// touched during the last step.
func (d *Dispatcher) Update(dt float32) Stats {
	var hits []Hit
	var exhausted []engine.Entity

	d.scene.Damagings.Each(func(e engine.Entity, dmg *components.Damaging) {
		c, ok := d.scene.Colliders.Get(e)
		if !ok {
			return
		}
		hits = append(hits, d.colliding(e, dmg, &c)...)
		if dmg.Exhausted() {
			exhausted = append(exhausted, e)
		}
	})

	var stats Stats
	for _, hit := range hits {
		stats.add(d.apply(hit, dt))
	}
	for _, e := range exhausted {
		d.scene.Damagings.Remove(e)
	}
	return stats
}

// colliding gathers the hits of one damaging collider: tiles first, then
// entities, each in the order the collider recorded them.
func (d *Dispatcher) colliding(e engine.Entity, dmg *components.Damaging, c *components.Collider) []Hit {
	source := dmg.Source
	if source.IsZero() {
		source = e
	}
	st, ok := d.scene.Target(source)
	if !ok {
		return nil
	}

	size := d.world.Config().TileSize
	var hits []Hit

	for _, pos := range c.CollidedTiles() {
		center := pos.Center(size)
		if dmg.SameTileZ && math32.Abs(center[2]-st.Position[2]) > size/2 {
			continue
		}
		id := components.DamagedTile(pos)
		if !dmg.CanDamage(id) {
			continue
		}
		dmg.Damaged(id)
		hits = append(hits, Hit{
			ID:        id,
			Source:    source,
			Amount:    dmg.Damage,
			Direction: direction(st.Position, center),
			Knockback: dmg.Knockback,
			Strength:  1,
			Entry:     center,
		})
	}

	for _, other := range c.Collided() {
		oc, ok := d.scene.Colliders.Get(other)
		if !ok || oc.Ghost {
			continue
		}
		ot, ok := d.scene.Target(other)
		if !ok {
			continue
		}
		id := components.DamagedEntity(other)
		if !dmg.CanDamage(id) {
			continue
		}
		dmg.Damaged(id)
		hits = append(hits, Hit{
			ID:        id,
			Source:    source,
			Amount:    dmg.Damage,
			Direction: direction(st.Position, ot.Position),
			Knockback: dmg.Knockback,
			Strength:  1,
			Entry:     ot.Position,
		})
	}

	return hits
}

// direction is the planar unit vector from one position to another, X when
// they coincide.
func direction(from, to mgl32.Vec3) mgl32.Vec2 {
	offset := mgl32.Vec2{to[0] - from[0], to[1] - from[1]}
	if l := offset.Len(); l > 1e-6 {
		return offset.Mul(1 / l)
	}
	return mgl32.Vec2{1, 0}
}

func (d *Dispatcher) apply(hit Hit, dt float32) Stats {
	var stats Stats
	if hit.ID.IsTile {
		stats = d.damageTile(hit)
	} else {
		stats = d.damageEntity(hit, dt)
	}
	if stats.Hits > 0 {
		d.spawnParticle(hit.Entry)
		if hit.HasExit {
			d.spawnParticle(hit.Exit)
		}
		d.OnHit.Invoke(hit)
	}
	return stats
}

func (d *Dispatcher) damageEntity(hit Hit, dt float32) Stats {
	target := hit.ID.Entity
	if !d.scene.Exists(target) {
		return Stats{}
	}

	var stats Stats
	var health components.Health
	dead := false
	if !d.scene.Healths.With(target, func(h *components.Health) {
		dead = h.Damage(hit.Amount)
		health = *h
	}) {
		return stats
	}
	stats.Hits++

	d.passer.Send(passer.SetHealth{Entity: target, Health: health})
	d.knockback(target, hit, dt)

	if dead {
		stats.Killed++
		d.scene.RemoveDeferred(target)
		d.passer.Send(passer.RemoveEntity{Entity: target})
	}
	return stats
}

// knockback pushes the target away from the source as if a force of
// direction * strength * factor * KnockbackMass * 30 acted on it for one
// frame.
func (d *Dispatcher) knockback(target engine.Entity, hit Hit, dt float32) {
	d.scene.Physicals.With(target, func(p *components.Physical) {
		if p.Immovable() {
			return
		}
		impulse := hit.Strength * hit.Knockback * KnockbackMass * knockbackGain * p.InverseMass * dt
		if impulse == 0 {
			return
		}
		p.AddVelocity(mgl32.Vec3{hit.Direction[0] * impulse, hit.Direction[1] * impulse, 0})
	})
}

func (d *Dispatcher) damageTile(hit Hit) Stats {
	pos := hit.ID.Tile

	type outcome struct {
		tile      world.Tile
		hit       bool
		destroyed bool
	}
	result, ok := world.Modify(d.tiles, pos, func(t *world.Tile) outcome {
		if t.IsAir() || !d.tiles.TileInfo(*t).Solid {
			return outcome{}
		}
		t.Health -= hit.Amount
		if t.Health <= 0 {
			*t = world.Tile{}
			return outcome{tile: *t, hit: true, destroyed: true}
		}
		return outcome{tile: *t, hit: true}
	})
	if !ok || !result.hit {
		return Stats{}
	}

	d.passer.Send(passer.SetTile{Pos: pos, Tile: result.tile})

	stats := Stats{Hits: 1}
	if result.destroyed {
		stats.Destroyed++
	}
	return stats
}

// spawnParticle adds a short-lived marker at position. It only exists for
// the next frame.
func (d *Dispatcher) spawnParticle(position mgl32.Vec3) {
	scale := d.world.Config().EntityScale
	t := engine.At(position, mgl32.Vec3{scale, scale, scale})
	d.scene.Push(true, scene.EntityInfo{
		Name:      "particle",
		Transform: &t,
		Watchers:  []engine.Watcher{engine.OneFrame()},
	})
}
