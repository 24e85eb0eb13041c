package physics

import (
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/scene"
	"stratum/internal/world"
)

// CollisionEvent names two touching entities, A ordered before B.
type CollisionEvent struct {
	A, B engine.Entity
}

func (c CollisionEvent) less(other CollisionEvent) bool {
	if c.A != other.A {
		return c.A.Less(other.A)
	}
	return c.B.Less(other.B)
}

// FrameStats summarizes one Step.
type FrameStats struct {
	Frame    int
	Bodies   int
	Contacts int
	Pairs    int

	PenetrationIterations int
	VelocityIterations    int
	MaxPenetration        float32
	MaxVelocity           float32

	Woken    int
	Sleeping int
	Falls    int
}

// World runs the physics frame over a scene and a tile world. It is not
// safe for concurrent use.
type World struct {
	cfg      config.Physics
	scene    *scene.Scene
	tiles    world.World
	grid     *Grid
	resolver *Resolver

	contacts     Contacts
	tileContacts []tileContact
	entries      []GridEntry
	falls        []FallEvent

	// Reference centers the simulated region. The zero entity uses the
	// origin.
	Reference engine.Entity

	OnCollisionEnter engine.Event[CollisionEvent]
	OnCollisionExit  engine.Event[CollisionEvent]
	OnFall           engine.Event[FallEvent]

	// Collision tracking for enter/exit events
	activeCollisions  map[CollisionEvent]bool // touching last frame
	currentCollisions map[CollisionEvent]bool // touching this frame

	distant map[engine.Entity]bool
	frame   int

	lastLoggedCount int
}

func NewWorld(cfg config.Physics, sc *scene.Scene, tiles world.World) *World {
	return &World{
		cfg:               cfg,
		scene:             sc,
		tiles:             tiles,
		grid:              NewGrid(cfg),
		resolver:          NewResolver(cfg, sc),
		activeCollisions:  make(map[CollisionEvent]bool),
		currentCollisions: make(map[CollisionEvent]bool),
		distant:           make(map[engine.Entity]bool),
	}
}

func (w *World) Config() config.Physics {
	return w.cfg
}

func (w *World) Scene() *scene.Scene {
	return w.scene
}

func (w *World) Tiles() world.World {
	return w.tiles
}

func (w *World) Grid() *Grid {
	return w.grid
}

// Contacts lists the contacts of the last Step. The slice is reused.
func (w *World) Contacts() []Contact {
	return w.contacts.List()
}

// Falls lists the fall events of the last Step.
func (w *World) Falls() []FallEvent {
	return w.falls
}

// Touching reports whether a and b touched during the last Step.
func (w *World) Touching(a, b engine.Entity) bool {
	if b.Less(a) {
		a, b = b, a
	}
	return w.activeCollisions[CollisionEvent{A: a, B: b}]
}

func (w *World) invariant(format string, args ...any) {
	reportInvariant(w.cfg.Debug, format, args...)
}

// referencePosition is where the simulated region is centered this frame.
func (w *World) referencePosition() mgl32.Vec3 {
	if w.Reference.IsZero() {
		return mgl32.Vec3{}
	}
	t, ok := w.scene.Target(w.Reference)
	if !ok {
		w.invariant("reference %v has no transform", w.Reference)
		return mgl32.Vec3{}
	}
	return t.Position
}

// Step runs one frame: broad phase, contact generation against tiles and
// between bodies, joints, the resolver, then integration of positions and
// sleep bookkeeping. Events fire after the frame is committed.
func (w *World) Step(dt float32) FrameStats {
	w.frame++
	w.contacts.Reset()
	w.falls = w.falls[:0]
	clear(w.currentCollisions)

	reference := w.referencePosition()
	w.rebuildGrid(reference)
	w.updateSleeping(reference)

	w.scene.Colliders.Each(func(_ engine.Entity, c *components.Collider) {
		c.ResetFrame()
	})

	w.integrate(dt)
	w.resolveWorldZ(dt)
	w.collideWorld()
	pairs := w.collidePairs()
	w.addJointContacts()

	resolved := w.resolver.Resolve(w.contacts.List(), dt)

	w.apply(dt)
	sleeping := w.trySleep(dt)

	w.dispatchCollisionCallbacks()
	for _, fall := range w.falls {
		w.OnFall.Invoke(fall)
	}

	return FrameStats{
		Frame:                 w.frame,
		Bodies:                w.grid.Len(),
		Contacts:              w.contacts.Len(),
		Pairs:                 pairs,
		PenetrationIterations: resolved.PenetrationIterations,
		VelocityIterations:    resolved.VelocityIterations,
		MaxPenetration:        resolved.MaxPenetration,
		MaxVelocity:           resolved.MaxVelocity,
		Woken:                 resolved.Woken,
		Sleeping:              sleeping,
		Falls:                 len(w.falls),
	}
}

// rebuildGrid buckets every collider with a transform around reference.
func (w *World) rebuildGrid(reference mgl32.Vec3) {
	w.entries = w.entries[:0]
	w.scene.Colliders.Each(func(e engine.Entity, c *components.Collider) {
		target, ok := w.scene.Target(e)
		if !ok {
			w.invariant("collider %v has no transform", e)
			return
		}
		t := c.EffectiveTransform(target)
		w.entries = append(w.entries, GridEntry{
			Entity: e,
			Bounds: NewAABBFromCenter(t.Position, c.HalfBounds(t)),
		})
	})
	w.grid.Rebuild(reference, w.entries)

	if count := w.grid.Len(); count%100 == 0 && count > 0 && count != w.lastLoggedCount {
		w.lastLoggedCount = count
		log.Printf("Physics: %d colliders in the simulated region (cell %.2f)", count, w.grid.CellSize())
	}
}

// resolveWorldZ clamps vertical motion of awake bodies against tile slabs.
func (w *World) resolveWorldZ(dt float32) {
	w.scene.Colliders.Each(func(e engine.Entity, c *components.Collider) {
		if c.Sleeping {
			return
		}
		p, release := w.scene.Physicals.Mut(e)
		if p == nil {
			return
		}
		defer release()

		if !p.MoveZ || p.Immovable() {
			return
		}
		w.resolveZ(e, c, p, dt)
	})
}

// collideWorld runs the planar tile pass of every awake movable body.
func (w *World) collideWorld() {
	w.scene.Colliders.Each(func(e engine.Entity, c *components.Collider) {
		if c.Sleeping {
			return
		}
		p, ok := w.scene.Physicals.Get(e)
		if !ok || p.Immovable() {
			return
		}
		w.collideWithWorld(e, c, xy(p.Velocity))
	})
}

// collidePairs runs the narrow phase over the grid's candidate pairs and
// returns how many candidates it saw.
func (w *World) collidePairs() int {
	candidates := 0
	w.grid.PossiblePairs(func(a, b engine.Entity) {
		candidates++

		ca, releaseA := w.scene.Colliders.Mut(a)
		if ca == nil {
			return
		}
		defer releaseA()
		cb, releaseB := w.scene.Colliders.Mut(b)
		if cb == nil {
			return
		}
		defer releaseB()

		if ca.Sleeping && cb.Sleeping {
			return
		}

		sa, ok := w.shapeOf(a, ca)
		if !ok {
			return
		}
		sb, ok := w.shapeOf(b, cb)
		if !ok {
			return
		}
		before := w.contacts.Len()
		if !collide(sa, sb, &w.contacts) {
			return
		}
		// sleeping bodies go on side B
		if ca.Sleeping {
			w.contacts.moveToB(before, a)
		} else if cb.Sleeping {
			w.contacts.moveToB(before, b)
		}
		ca.PushCollided(b)
		cb.PushCollided(a)
		w.currentCollisions[CollisionEvent{A: a, B: b}] = true
	})
	return candidates
}

func (w *World) shapeOf(e engine.Entity, c *components.Collider) (shape, bool) {
	target, ok := w.scene.Target(e)
	if !ok {
		w.invariant("collider %v has no transform", e)
		return shape{}, false
	}
	return shape{entity: e, transform: c.EffectiveTransform(target), collider: c}, true
}

// dispatchCollisionCallbacks fires enter and exit events in pair order, then
// swaps the tracking sets.
func (w *World) dispatchCollisionCallbacks() {
	var entered, exited []CollisionEvent
	for pair := range w.currentCollisions {
		if !w.activeCollisions[pair] {
			entered = append(entered, pair)
		}
	}
	for pair := range w.activeCollisions {
		if !w.currentCollisions[pair] {
			exited = append(exited, pair)
		}
	}

	sort.Slice(entered, func(i, j int) bool { return entered[i].less(entered[j]) })
	sort.Slice(exited, func(i, j int) bool { return exited[i].less(exited[j]) })

	w.activeCollisions, w.currentCollisions = w.currentCollisions, w.activeCollisions

	for _, pair := range entered {
		w.OnCollisionEnter.Invoke(pair)
	}
	for _, pair := range exited {
		w.OnCollisionExit.Invoke(pair)
	}
}
