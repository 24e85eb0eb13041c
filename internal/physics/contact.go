package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/engine"
)

// Contact is one meeting point between two bodies. B is the zero Entity for
// contacts against world tiles. Normal points from B into A.
type Contact struct {
	A           engine.Entity
	B           engine.Entity
	Point       mgl32.Vec2
	Normal      mgl32.Vec2
	Penetration float32
}

// World reports whether the contact is against immovable world geometry.
func (c Contact) World() bool {
	return c.B.IsZero()
}

// Inverted swaps the bodies and flips the normal.
func (c Contact) Inverted() Contact {
	c.A, c.B = c.B, c.A
	c.Normal = c.Normal.Mul(-1)
	return c
}

// normalized moves a world side out of A. Contacts with no entity at all are
// dropped.
func (c Contact) normalized() (Contact, bool) {
	if !c.A.IsZero() {
		return c, true
	}
	if c.B.IsZero() {
		return c, false
	}
	return c.Inverted(), true
}

func (c Contact) String() string {
	return fmt.Sprintf("Contact(%v <- %v, n=%v, pen=%.4f)", c.A, c.B, c.Normal, c.Penetration)
}

// Contacts is the per-frame contact arena. Reset keeps the backing array.
type Contacts struct {
	list []Contact
}

func (cs *Contacts) Add(c Contact) {
	if c, ok := c.normalized(); ok {
		cs.list = append(cs.list, c)
	}
}

// moveToB inverts contacts added since from that have e on side A.
func (cs *Contacts) moveToB(from int, e engine.Entity) {
	for i := from; i < len(cs.list); i++ {
		if cs.list[i].A == e && !cs.list[i].B.IsZero() {
			cs.list[i] = cs.list[i].Inverted()
		}
	}
}

func (cs *Contacts) Len() int {
	return len(cs.list)
}

func (cs *Contacts) List() []Contact {
	return cs.list
}

func (cs *Contacts) Reset() {
	cs.list = cs.list[:0]
}
