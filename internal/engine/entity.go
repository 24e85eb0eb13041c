package engine

import "fmt"

// Entity is a generational handle into a Scene. The zero value never refers
// to a live entity, so it doubles as "no entity".
type Entity struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether e is the empty handle.
func (e Entity) IsZero() bool {
	return e.Generation == 0
}

// Less orders handles by index, then generation. Every iteration over
// component storages follows this order.
func (e Entity) Less(other Entity) bool {
	if e.Index != other.Index {
		return e.Index < other.Index
	}
	return e.Generation < other.Generation
}

func (e Entity) String() string {
	if e.IsZero() {
		return "Entity(none)"
	}
	return fmt.Sprintf("Entity(%d:%d)", e.Index, e.Generation)
}

// Allocator hands out entity handles. Freed indices are reused with a bumped
// generation so stale handles never alias a new entity.
type Allocator struct {
	generations []uint32
	alive       []bool
	free        []uint32
	count       int
}

func (a *Allocator) Allocate() Entity {
	if n := len(a.free); n > 0 {
		index := a.free[n-1]
		a.free = a.free[:n-1]
		a.generations[index]++
		a.alive[index] = true
		a.count++
		return Entity{Index: index, Generation: a.generations[index]}
	}

	index := uint32(len(a.generations))
	a.generations = append(a.generations, 1)
	a.alive = append(a.alive, true)
	a.count++
	return Entity{Index: index, Generation: 1}
}

// Free releases e. It returns false if e was already dead or stale.
func (a *Allocator) Free(e Entity) bool {
	if !a.Alive(e) {
		return false
	}
	a.alive[e.Index] = false
	a.free = append(a.free, e.Index)
	a.count--
	return true
}

func (a *Allocator) Alive(e Entity) bool {
	if e.IsZero() || int(e.Index) >= len(a.generations) {
		return false
	}
	return a.alive[e.Index] && a.generations[e.Index] == e.Generation
}

// Len returns the number of live entities.
func (a *Allocator) Len() int {
	return a.count
}
