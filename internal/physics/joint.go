package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
)

// jointSlack is the smallest correction a joint asks for.
const jointSlack = 0.002

// jointContact builds the distance constraint of one joint. The contact has
// the child as A and the parent as B; its normal points back toward the rest
// distance.
func (w *World) jointContact(child engine.Entity, j *components.Joint) (Contact, bool) {
	ct, ok := w.scene.Target(child)
	if !ok {
		w.invariant("joint child %v has no transform", child)
		return Contact{}, false
	}
	pt, ok := w.scene.Target(j.Parent)
	if !ok {
		return Contact{}, false
	}

	anchor := xy(pt.Position).Add(rotate2(j.Offset, pt.Rotation))
	offset := xy(ct.Position).Sub(anchor)
	dist := offset.Len()

	violation := math32.Abs(dist - j.Rest)
	if j.Broken(violation) {
		return Contact{}, false
	}

	penetration := violation * j.Strength
	if penetration <= jointSlack {
		return Contact{}, false
	}

	direction := normalize2(offset)
	normal := direction
	if dist > j.Rest {
		normal = direction.Mul(-1)
	}

	return Contact{
		A:           child,
		B:           j.Parent,
		Point:       xy(ct.Position),
		Normal:      normal,
		Penetration: penetration,
	}, true
}

// dampJoint removes part of the child's velocity along the joint axis,
// relative to the parent.
func (w *World) dampJoint(child engine.Entity, j *components.Joint) {
	if j.Damping <= 0 {
		return
	}

	ct, ok := w.scene.Target(child)
	if !ok {
		return
	}
	pt, ok := w.scene.Target(j.Parent)
	if !ok {
		return
	}
	axis := normalize2(xy(ct.Position).Sub(xy(pt.Position)))

	var parentVelocity mgl32.Vec2
	if p, ok := w.scene.Physicals.Get(j.Parent); ok {
		parentVelocity = xy(p.Velocity)
	}

	w.scene.Physicals.With(child, func(p *components.Physical) {
		relative := xy(p.Velocity).Sub(parentVelocity).Dot(axis)
		removed := axis.Mul(relative * clamp(j.Damping, 0, 1))
		p.Velocity[0] -= removed[0]
		p.Velocity[1] -= removed[1]
	})
}

// addJointContacts appends the constraint of every joint.
func (w *World) addJointContacts() {
	w.scene.Joints.Each(func(child engine.Entity, j *components.Joint) {
		w.dampJoint(child, j)
		if contact, ok := w.jointContact(child, j); ok {
			w.contacts.Add(contact)
		}
	})
}
