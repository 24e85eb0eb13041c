package physics

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/world"
)

// zSlack keeps a body resting exactly on a slab boundary out of the slab
// it touches, relative to the tile size.
const zSlack = 1e-3

// FallEvent is raised when a body lands faster than the fall velocity.
type FallEvent struct {
	Entity engine.Entity
	// Velocity is the Z velocity just before landing.
	Velocity  float32
	Magnitude float32
	Tile      world.TilePos
}

type tileContact struct {
	pos     world.TilePos
	contact Contact
}

// tileSpan is the inclusive range of tile indices covering [lo, hi]. A high
// edge lying exactly on a tile boundary does not reach into the next tile.
func tileSpan(lo, hi, tileSize float32) (int, int) {
	first := int(math32.Floor(lo / tileSize))
	last := int(math32.Ceil(hi/tileSize)) - 1
	if last < first {
		last = first
	}
	return first, last
}

// resolveZ moves a body along Z against the tile slabs under its footprint.
// Landing or bumping a ceiling clamps the body to the slab face and zeroes
// its Z velocity.
func (w *World) resolveZ(e engine.Entity, c *components.Collider, p *components.Physical, dt float32) {
	if !c.Layer.Collides(components.LayerWorld) {
		return
	}
	vz := p.Velocity[2]
	if vz == 0 {
		return
	}

	target, ok := w.scene.Target(e)
	if !ok {
		w.invariant("collider %v has no transform", e)
		return
	}
	t := c.EffectiveTransform(target)

	size := w.cfg.TileSize
	hz := c.Kind.HalfSize(t.Scale)[2]
	shrink := w.cfg.EntityScale * 0.1
	half := c.HalfBounds(t)
	footprint := mgl32.Vec2{math32.Max(half[0]-shrink, 0), math32.Max(half[1]-shrink, 0)}

	z := t.Position[2]
	next := z + vz*dt

	var hit world.TilePos
	var clamped float32
	found := false

	if vz < 0 {
		start := int(math32.Floor((z-hz)/size+zSlack)) - 1
		end := int(math32.Floor((next - hz) / size))
		for zi := start; zi >= end && !found; zi-- {
			if hit, found = w.solidUnder(t.Position, footprint, zi); found {
				clamped = float32(zi+1)*size + hz
			}
		}
	} else {
		start := int(math32.Floor((z+hz)/size-zSlack)) + 1
		end := int(math32.Floor((next + hz) / size))
		for zi := start; zi <= end && !found; zi++ {
			if hit, found = w.solidUnder(t.Position, footprint, zi); found {
				clamped = float32(zi)*size - hz
			}
		}
	}

	if !found {
		return
	}

	c.PushCollidedTile(hit)
	if c.Ghost {
		return
	}

	w.scene.MoveTarget(e, mgl32.Vec3{0, 0, clamped - z}, 0, p.TargetNonLazy)
	p.Velocity[2] = 0

	if vz < w.cfg.FallVelocity {
		excess := w.cfg.FallVelocity - vz
		w.falls = append(w.falls, FallEvent{
			Entity:    e,
			Velocity:  vz,
			Magnitude: excess * excess * w.cfg.FallDamageScale,
			Tile:      hit,
		})
	}
}

// solidUnder returns the first solid tile in canonical order on slab zi
// under the footprint around position.
func (w *World) solidUnder(position mgl32.Vec3, footprint mgl32.Vec2, zi int) (world.TilePos, bool) {
	size := w.cfg.TileSize
	x0, x1 := tileSpan(position[0]-footprint[0], position[0]+footprint[0], size)
	y0, y1 := tileSpan(position[1]-footprint[1], position[1]+footprint[1], size)

	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			pos := world.TilePos{X: x, Y: y, Z: zi}
			if world.Solid(w.tiles, pos) {
				return pos, true
			}
		}
	}
	return world.TilePos{}, false
}

// collideWithWorld runs the planar test of one body against every solid tile
// its bounds overlap. Contacts are added deepest first.
func (w *World) collideWithWorld(e engine.Entity, c *components.Collider, velocity mgl32.Vec2) {
	if !c.Layer.Collides(components.LayerWorld) {
		return
	}

	target, ok := w.scene.Target(e)
	if !ok {
		w.invariant("collider %v has no transform", e)
		return
	}
	t := c.EffectiveTransform(target)
	body := shape{entity: e, transform: t, collider: c}

	size := w.cfg.TileSize
	half := c.HalfBounds(t)
	slack := zSlack * size
	bottom := t.Position[2] - half[2] + slack
	top := t.Position[2] + half[2] - slack

	x0, x1 := tileSpan(t.Position[0]-half[0], t.Position[0]+half[0], size)
	y0, y1 := tileSpan(t.Position[1]-half[1], t.Position[1]+half[1], size)
	z0 := int(math32.Floor(bottom / size))
	z1 := int(math32.Floor(top / size))

	w.tileContacts = w.tileContacts[:0]
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				pos := world.TilePos{X: x, Y: y, Z: z}
				if !world.Solid(w.tiles, pos) {
					continue
				}
				neighbours := world.Neighbours(w.tiles, pos)
				if neighbours.All() {
					continue
				}

				contact, resolvable, touching := test(body, tileShape(pos, neighbours, size))
				if !touching {
					continue
				}
				c.PushCollidedTile(pos)
				if resolvable && !c.Ghost {
					w.tileContacts = append(w.tileContacts, tileContact{pos: pos, contact: contact})
				}
			}
		}
	}

	found := w.tileContacts
	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.contact.Penetration != b.contact.Penetration {
			return a.contact.Penetration > b.contact.Penetration
		}
		da, db := a.contact.Normal.Dot(velocity), b.contact.Normal.Dot(velocity)
		if da != db {
			return da < db
		}
		return a.pos.Less(b.pos)
	})

	for _, tc := range found {
		w.contacts.Add(tc.contact)
	}
}
