package engine

import (
	"fmt"
	"sort"
)

// Release ends a mutable borrow taken from a Storage.
type Release func()

type cell[T any] struct {
	entity   Entity
	value    T
	borrowed bool
	changed  bool
}

// Storage holds one component kind, keyed by entity and kept in ascending
// handle order. Each cell carries a single-threaded borrow ticket: taking a
// second mutable borrow, or reading a cell that is mutably borrowed, panics.
type Storage[T any] struct {
	name  string
	cells []*cell[T]
	index map[Entity]*cell[T]
}

func NewStorage[T any](name string) *Storage[T] {
	return &Storage[T]{
		name:  name,
		index: make(map[Entity]*cell[T]),
	}
}

func (s *Storage[T]) Name() string {
	return s.name
}

func (s *Storage[T]) Len() int {
	return len(s.cells)
}

func (s *Storage[T]) Has(e Entity) bool {
	_, ok := s.index[e]
	return ok
}

// Insert adds or replaces the component of e.
func (s *Storage[T]) Insert(e Entity, value T) {
	if c, ok := s.index[e]; ok {
		s.checkFree(c)
		c.value = value
		c.changed = true
		return
	}

	c := &cell[T]{entity: e, value: value, changed: true}
	at := sort.Search(len(s.cells), func(i int) bool {
		return e.Less(s.cells[i].entity)
	})
	s.cells = append(s.cells, nil)
	copy(s.cells[at+1:], s.cells[at:])
	s.cells[at] = c
	s.index[e] = c
}

// Remove deletes the component of e, returning false if there was none.
func (s *Storage[T]) Remove(e Entity) bool {
	c, ok := s.index[e]
	if !ok {
		return false
	}
	s.checkFree(c)

	delete(s.index, e)
	at := sort.Search(len(s.cells), func(i int) bool {
		return !s.cells[i].entity.Less(e)
	})
	s.cells = append(s.cells[:at], s.cells[at+1:]...)
	return true
}

// Get returns a copy of the component of e.
func (s *Storage[T]) Get(e Entity) (T, bool) {
	c, ok := s.index[e]
	if !ok {
		var zero T
		return zero, false
	}
	s.checkFree(c)
	return c.value, true
}

// Mut borrows the component of e mutably and marks it changed. The returned
// pointer is valid until release is called.
func (s *Storage[T]) Mut(e Entity) (*T, Release) {
	return s.borrow(e, true)
}

// MutNoChange borrows like Mut without touching change tracking. Inner
// solver loops use it so a settled body is not reported as modified.
func (s *Storage[T]) MutNoChange(e Entity) (*T, Release) {
	return s.borrow(e, false)
}

// With runs fn on a mutable borrow of e's component. It returns false when e
// has no such component.
func (s *Storage[T]) With(e Entity, fn func(*T)) bool {
	value, release := s.Mut(e)
	if value == nil {
		return false
	}
	defer release()
	fn(value)
	return true
}

// Each visits every component in ascending handle order. The visited cell is
// borrowed for the duration of the callback; other cells stay accessible.
func (s *Storage[T]) Each(fn func(Entity, *T)) {
	for _, c := range s.snapshot() {
		if _, alive := s.index[c.entity]; !alive {
			continue
		}
		s.checkFree(c)
		c.borrowed = true
		fn(c.entity, &c.value)
		c.borrowed = false
	}
}

// Entities returns the handles that own this component, ascending.
func (s *Storage[T]) Entities() []Entity {
	out := make([]Entity, len(s.cells))
	for i, c := range s.cells {
		out[i] = c.entity
	}
	return out
}

// Changed reports whether e's component was inserted or mutably borrowed
// since the last ClearChanged.
func (s *Storage[T]) Changed(e Entity) bool {
	c, ok := s.index[e]
	return ok && c.changed
}

func (s *Storage[T]) ClearChanged() {
	for _, c := range s.cells {
		c.changed = false
	}
}

func (s *Storage[T]) borrow(e Entity, change bool) (*T, Release) {
	c, ok := s.index[e]
	if !ok {
		return nil, func() {}
	}
	s.checkFree(c)

	c.borrowed = true
	if change {
		c.changed = true
	}
	return &c.value, func() { c.borrowed = false }
}

func (s *Storage[T]) snapshot() []*cell[T] {
	out := make([]*cell[T], len(s.cells))
	copy(out, s.cells)
	return out
}

func (s *Storage[T]) checkFree(c *cell[T]) {
	if c.borrowed {
		panic(fmt.Sprintf("engine: %s of %v is already mutably borrowed", s.name, c.entity))
	}
}
