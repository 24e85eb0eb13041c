// Package scene is the component store the physics core works against.
package scene

import (
	"log"

	"stratum/internal/components"
	"stratum/internal/engine"

	"github.com/go-gl/mathgl/mgl32"
)

// EntityInfo lists the components of an entity to create. Nil fields are
// left out.
type EntityInfo struct {
	Name      string
	Transform *engine.Transform
	Lazy      *components.Lazy
	Parent    *engine.Entity
	Physical  *components.Physical
	Collider  *components.Collider
	Joint     *components.Joint
	Damaging  *components.Damaging
	Health    *components.Health
	Watchers  []engine.Watcher
}

type pendingPush struct {
	entity engine.Entity
	info   EntityInfo
}

// Scene owns every component storage plus the parent links between
// entities. All storages iterate in ascending handle order.
type Scene struct {
	Name string

	Transforms *engine.Storage[engine.Transform]
	Lazies     *engine.Storage[components.Lazy]
	Physicals  *engine.Storage[components.Physical]
	Colliders  *engine.Storage[components.Collider]
	Joints     *engine.Storage[components.Joint]
	Damagings  *engine.Storage[components.Damaging]
	Healths    *engine.Storage[components.Health]
	Watchers   *engine.Storage[engine.Watchers]
	Names      *engine.Storage[string]

	entities *engine.Allocator
	parents  map[engine.Entity]engine.Entity
	children map[engine.Entity][]engine.Entity

	pending  []pendingPush
	removals []engine.Entity

	// OnRemove is called for every entity right before its components are
	// dropped.
	OnRemove func(engine.Entity)
}

func New(name string) *Scene {
	return &Scene{
		Name:       name,
		Transforms: engine.NewStorage[engine.Transform]("transform"),
		Lazies:     engine.NewStorage[components.Lazy]("lazy"),
		Physicals:  engine.NewStorage[components.Physical]("physical"),
		Colliders:  engine.NewStorage[components.Collider]("collider"),
		Joints:     engine.NewStorage[components.Joint]("joint"),
		Damagings:  engine.NewStorage[components.Damaging]("damaging"),
		Healths:    engine.NewStorage[components.Health]("health"),
		Watchers:   engine.NewStorage[engine.Watchers]("watchers"),
		Names:      engine.NewStorage[string]("name"),
		entities:   &engine.Allocator{},
		parents:    make(map[engine.Entity]engine.Entity),
		children:   make(map[engine.Entity][]engine.Entity),
	}
}

// Push creates an entity. A deferred push reserves the handle now and adds
// the components at EndFrame.
func (s *Scene) Push(deferred bool, info EntityInfo) engine.Entity {
	e := s.entities.Allocate()
	if deferred {
		s.pending = append(s.pending, pendingPush{entity: e, info: info})
		return e
	}
	s.insert(e, info)
	return e
}

func (s *Scene) insert(e engine.Entity, info EntityInfo) {
	if info.Name != "" {
		s.Names.Insert(e, info.Name)
	}
	if info.Transform != nil {
		s.Transforms.Insert(e, *info.Transform)
	}
	if info.Lazy != nil {
		s.Lazies.Insert(e, *info.Lazy)
	}
	if info.Parent != nil {
		s.SetParent(e, *info.Parent)
	}
	if info.Physical != nil {
		s.Physicals.Insert(e, *info.Physical)
	}
	if info.Collider != nil {
		s.Colliders.Insert(e, *info.Collider)
	}
	if info.Joint != nil {
		s.Joints.Insert(e, *info.Joint)
	}
	if info.Damaging != nil {
		s.Damagings.Insert(e, *info.Damaging)
	}
	if info.Health != nil {
		s.Healths.Insert(e, *info.Health)
	}
	if len(info.Watchers) > 0 {
		s.Watchers.Insert(e, engine.Watchers{List: info.Watchers})
	}
}

// Exists reports whether e is alive and not waiting for a deferred push.
func (s *Scene) Exists(e engine.Entity) bool {
	if !s.entities.Alive(e) {
		return false
	}
	for _, p := range s.pending {
		if p.entity == e {
			return false
		}
	}
	return true
}

func (s *Scene) Len() int {
	return s.entities.Len()
}

// Find returns the first entity with the given name.
func (s *Scene) Find(name string) (engine.Entity, bool) {
	var found engine.Entity
	ok := false
	s.Names.Each(func(e engine.Entity, n *string) {
		if !ok && *n == name {
			found, ok = e, true
		}
	})
	return found, ok
}

func (s *Scene) SetParent(child, parent engine.Entity) {
	if old, ok := s.parents[child]; ok {
		s.unlinkChild(old, child)
	}
	s.parents[child] = parent
	s.children[parent] = append(s.children[parent], child)
}

func (s *Scene) Parent(e engine.Entity) (engine.Entity, bool) {
	p, ok := s.parents[e]
	return p, ok
}

// ForEveryChild visits the direct children of e in the order they were
// attached.
func (s *Scene) ForEveryChild(e engine.Entity, fn func(engine.Entity)) {
	for _, child := range append([]engine.Entity(nil), s.children[e]...) {
		fn(child)
	}
}

func (s *Scene) unlinkChild(parent, child engine.Entity) {
	list := s.children[parent]
	for i, c := range list {
		if c == child {
			s.children[parent] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.children[parent]) == 0 {
		delete(s.children, parent)
	}
}

// AddWatcher attaches w to e.
func (s *Scene) AddWatcher(e engine.Entity, w engine.Watcher) {
	if !s.Watchers.With(e, func(ws *engine.Watchers) { ws.List = append(ws.List, w) }) {
		s.Watchers.Insert(e, engine.Watchers{List: []engine.Watcher{w}})
	}
}

// RemoveDeferred schedules e and its children for removal at EndFrame.
func (s *Scene) RemoveDeferred(e engine.Entity) {
	s.removals = append(s.removals, e)
}

// Remove drops e and, recursively, its children right away.
func (s *Scene) Remove(e engine.Entity) {
	if !s.entities.Alive(e) {
		return
	}

	s.ForEveryChild(e, s.Remove)

	if s.OnRemove != nil {
		s.OnRemove(e)
	}

	s.Transforms.Remove(e)
	s.Lazies.Remove(e)
	s.Physicals.Remove(e)
	s.Colliders.Remove(e)
	s.Joints.Remove(e)
	s.Damagings.Remove(e)
	s.Healths.Remove(e)
	s.Watchers.Remove(e)
	s.Names.Remove(e)

	if parent, ok := s.parents[e]; ok {
		s.unlinkChild(parent, e)
		delete(s.parents, e)
	}
	delete(s.children, e)

	s.entities.Free(e)
}

// EndFrame ticks watchers, then applies deferred removals and pushes.
func (s *Scene) EndFrame(dt float32) {
	s.Watchers.Each(func(e engine.Entity, ws *engine.Watchers) {
		for _, w := range ws.Update(dt) {
			if w.Callback != nil {
				w.Callback(e)
			}
			if w.Action == engine.ActionRemove {
				s.RemoveDeferred(e)
			}
		}
	})

	removals := s.removals
	s.removals = nil
	for _, e := range removals {
		s.Remove(e)
	}

	pending := s.pending
	s.pending = nil
	for _, p := range pending {
		if !s.entities.Alive(p.entity) {
			continue
		}
		s.insert(p.entity, p.info)
	}
}

// Target is the world space transform physics works with: the lazy target
// when the entity has one, its transform otherwise.
func (s *Scene) Target(e engine.Entity) (engine.Transform, bool) {
	lazy, ok := s.Lazies.Get(e)
	if !ok {
		return s.Transforms.Get(e)
	}

	target := lazy.Target
	if parent, ok := s.parents[e]; ok {
		if pt, ok := s.Target(parent); ok {
			target = target.Combine(pt)
		}
	}
	return target, true
}

// MoveTarget translates and rotates the entity. Lazy entities move their
// target unless nonLazy is set, in which case the transform moves and the
// target is shifted along so both stay in agreement.
func (s *Scene) MoveTarget(e engine.Entity, delta mgl32.Vec3, rotation float32, nonLazy bool) bool {
	if s.Lazies.Has(e) {
		local := delta
		if parent, ok := s.parents[e]; ok {
			if pt, ok := s.Target(parent); ok {
				local = mgl32.Vec3{
					safeDiv(delta[0], pt.Scale[0]),
					safeDiv(delta[1], pt.Scale[1]),
					delta[2],
				}
			}
		}
		s.Lazies.With(e, func(l *components.Lazy) {
			l.Target.Position = l.Target.Position.Add(local)
			l.Target.Rotation += rotation
		})
		if !nonLazy {
			return true
		}
	}

	return s.Transforms.With(e, func(t *engine.Transform) {
		t.Position = t.Position.Add(delta)
		t.Rotation += rotation
	})
}

// UpdateLazy moves every lazy entity's transform toward its target.
func (s *Scene) UpdateLazy(dt float32) {
	s.Lazies.Each(func(e engine.Entity, l *components.Lazy) {
		target := l.Target
		if parent, ok := s.parents[e]; ok {
			if pt, ok := s.Target(parent); ok {
				target = target.Combine(pt)
			}
		}

		if !s.Transforms.With(e, func(t *engine.Transform) { *t = l.Follow(*t, target, dt) }) {
			log.Printf("Scene: lazy entity %v has no transform", e)
		}
	})
}

// ClearChanged resets change tracking on every storage.
func (s *Scene) ClearChanged() {
	s.Transforms.ClearChanged()
	s.Lazies.ClearChanged()
	s.Physicals.ClearChanged()
	s.Colliders.ClearChanged()
	s.Joints.ClearChanged()
	s.Damagings.ClearChanged()
	s.Healths.ClearChanged()
}

func safeDiv(v, by float32) float32 {
	if by == 0 {
		return v
	}
	return v / by
}
