package physics

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/world"
)

// suppressEpsilon is the smallest normal component that counts as pointing
// into a neighbour, and the smallest normal left after suppression.
const suppressEpsilon = 1e-4

// shape is a collider placed in the world for one test.
type shape struct {
	entity    engine.Entity
	transform engine.Transform
	collider  *components.Collider
}

func (s shape) kind() components.Kind {
	return s.collider.Kind
}

func (s shape) halfZ() float32 {
	return s.kind().HalfSize(s.transform.Scale)[2]
}

// tileShape builds the transient box of a solid tile.
func tileShape(pos world.TilePos, neighbours world.Directions, tileSize float32) shape {
	c := components.TileCollider(pos, neighbours)
	return shape{
		transform: engine.At(pos.Center(tileSize), mgl32.Vec3{tileSize, tileSize, tileSize}),
		collider:  &c,
	}
}

// collide tests a against b. It reports whether the shapes touch and adds at
// most one contact unless either side is a ghost.
func collide(a, b shape, contacts *Contacts) bool {
	if !a.collider.Layer.Collides(b.collider.Layer) {
		return false
	}
	if nonCollidingZ(a, b) {
		return false
	}

	contact, resolvable, touching := test(a, b)
	if !touching {
		return false
	}
	if resolvable && !a.collider.Ghost && !b.collider.Ghost {
		contacts.Add(contact)
	}
	return true
}

func nonCollidingZ(a, b shape) bool {
	dz := math32.Abs(a.transform.Position[2] - b.transform.Position[2])
	return dz > a.halfZ()+b.halfZ()
}

// test dispatches on the pair of kinds. resolvable is false for detection
// only pairs such as vertical rays.
func test(a, b shape) (contact Contact, resolvable, touching bool) {
	ka, kb := a.kind(), b.kind()

	switch {
	case ka == components.KindRayZ && kb == components.KindRayZ,
		ka == components.KindTile && kb == components.KindTile:
		return Contact{}, false, false

	case ka == components.KindRayZ:
		return Contact{}, false, rayZ(a, b)
	case kb == components.KindRayZ:
		return Contact{}, false, rayZ(b, a)

	case ka == components.KindTile:
		contact, touching = tileEntity(a, b)
	case kb == components.KindTile:
		contact, touching = tileEntity(b, a)

	case ka == components.KindCircle && kb == components.KindCircle:
		contact, touching = circleCircle(a, b)
	case ka == components.KindCircle:
		contact, touching = boxCircle(b, a)
	case kb == components.KindCircle:
		contact, touching = boxCircle(a, b)

	case ka == components.KindAabb && kb == components.KindAabb:
		contact, touching = aabbAabb(a, b)
	default:
		contact, touching = rectangleRectangle(a, b)
	}

	return contact, touching, touching
}

func circleCircle(a, b shape) (Contact, bool) {
	ra := components.Radius(a.transform.Scale)
	rb := components.Radius(b.transform.Scale)
	pa, pb := xy(a.transform.Position), xy(b.transform.Position)

	diff := pb.Sub(pa)
	d := diff.Len()
	if d >= ra+rb {
		return Contact{}, false
	}

	normal := mgl32.Vec2{1, 0}
	if d > 0 {
		normal = diff.Mul(-1 / d)
	}

	point := pa
	if ra+rb > 0 {
		point = pa.Add(diff.Mul(ra / (ra + rb)))
	}

	return Contact{
		A:           a.entity,
		B:           b.entity,
		Point:       point,
		Normal:      normal,
		Penetration: ra + rb - d,
	}, true
}

// boxCircle handles aabbs and rotated rectangles against a circle by working
// in the box frame. The contact has the box as A.
func boxCircle(box, circle shape) (Contact, bool) {
	o := NewOBB(box.transform)
	r := components.Radius(circle.transform.Scale)
	h := o.HalfSize

	local := o.ToLocal(xy(circle.transform.Position))
	clamped := mgl32.Vec2{clamp(local[0], -h[0], h[0]), clamp(local[1], -h[1], h[1])}

	var normal, point mgl32.Vec2
	var penetration float32

	diff := local.Sub(clamped)
	if diff.LenSqr() == 0 {
		dx := h[0] - math32.Abs(local[0])
		dy := h[1] - math32.Abs(local[1])
		if dx <= dy {
			s := sign(local[0])
			normal = mgl32.Vec2{-s, 0}
			point = mgl32.Vec2{s * h[0], local[1]}
			penetration = r + dx
		} else {
			s := sign(local[1])
			normal = mgl32.Vec2{0, -s}
			point = mgl32.Vec2{local[0], s * h[1]}
			penetration = r + dy
		}
	} else {
		dist := diff.Len()
		if dist >= r {
			return Contact{}, false
		}
		normal = diff.Mul(-1 / dist)
		point = clamped
		penetration = r - dist
	}

	return Contact{
		A:           box.entity,
		B:           circle.entity,
		Point:       o.ToWorld(point),
		Normal:      o.DirectionToWorld(normal),
		Penetration: penetration,
	}, true
}

func aabbAabb(a, b shape) (Contact, bool) {
	ba := planarAABB(a.transform)
	bb := planarAABB(b.transform)

	push := ba.Resolve(bb)
	penetration := push.Len()
	if penetration == 0 {
		return Contact{}, false
	}

	lo := ba.OverlapMin(bb)
	hi := mgl32.Vec3{min(ba.Max[0], bb.Max[0]), min(ba.Max[1], bb.Max[1]), 0}

	return Contact{
		A:           a.entity,
		B:           b.entity,
		Point:       mgl32.Vec2{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2},
		Normal:      push.Mul(1 / penetration),
		Penetration: penetration,
	}, true
}

func planarAABB(t engine.Transform) AABB {
	center := mgl32.Vec3{t.Position[0], t.Position[1], 0}
	return NewAABBFromCenter(center, mgl32.Vec3{t.Scale[0] / 2, t.Scale[1] / 2, 0})
}

func rectangleRectangle(a, b shape) (Contact, bool) {
	oa, ob := NewOBB(a.transform), NewOBB(b.transform)

	normal, penetration, ok := oa.Penetration(ob)
	if !ok {
		return Contact{}, false
	}

	return Contact{
		A:           a.entity,
		B:           b.entity,
		Point:       oa.ContactPoint(ob),
		Normal:      normal,
		Penetration: penetration,
	}, true
}

// rayZ treats the vertical ray as a point in the plane.
func rayZ(ray, other shape) bool {
	point := xy(ray.transform.Position)
	switch other.kind() {
	case components.KindCircle:
		r := components.Radius(other.transform.Scale)
		return point.Sub(xy(other.transform.Position)).LenSqr() <= r*r
	case components.KindRayZ:
		return false
	default:
		return NewOBB(other.transform).Contains(point)
	}
}

// tileEntity tests a world tile against an entity shape. The contact has the
// entity as A, no B, and a normal pointing out of the tile.
func tileEntity(tile, other shape) (Contact, bool) {
	switch other.kind() {
	case components.KindCircle:
		return tileCircle(tile, other)
	case components.KindAabb, components.KindRectangle:
		return tileBox(tile, other)
	default:
		return Contact{}, false
	}
}

func tileCircle(tile, circle shape) (Contact, bool) {
	o := NewOBB(tile.transform)
	r := components.Radius(circle.transform.Scale)
	h := o.HalfSize
	neighbours := tile.collider.Neighbours

	local := o.ToLocal(xy(circle.transform.Position))
	clamped := mgl32.Vec2{clamp(local[0], -h[0], h[0]), clamp(local[1], -h[1], h[1])}

	diff := local.Sub(clamped)
	if diff.LenSqr() > 0 {
		dist := diff.Len()
		if dist >= r {
			return Contact{}, false
		}

		push, scale, ok := suppress(diff.Mul(1/dist), neighbours)
		if !ok {
			return Contact{}, false
		}
		return Contact{
			A:           circle.entity,
			Point:       o.ToWorld(clamped),
			Normal:      push,
			Penetration: (r - dist) * scale,
		}, true
	}

	face, ok := exitFace(local, h, neighbours)
	if !ok {
		return Contact{}, false
	}

	point := local
	point[face.axis] = face.sign * h[face.axis]
	var normal mgl32.Vec2
	normal[face.axis] = face.sign

	return Contact{
		A:           circle.entity,
		Point:       o.ToWorld(point),
		Normal:      normal,
		Penetration: r + face.depth,
	}, true
}

func tileBox(tile, box shape) (Contact, bool) {
	ot, ob := NewOBB(tile.transform), NewOBB(box.transform)

	normal, penetration, ok := ob.Penetration(ot)
	if !ok {
		return Contact{}, false
	}

	push, scale, ok := suppress(normal, tile.collider.Neighbours)
	if !ok {
		return Contact{}, false
	}

	return Contact{
		A:           box.entity,
		Point:       ob.ContactPoint(ot),
		Normal:      push,
		Penetration: penetration * scale,
	}, true
}

// suppress zeroes normal components that would push into a solid neighbour.
// It returns the renormalized direction and the length that survived.
func suppress(normal mgl32.Vec2, neighbours world.Directions) (mgl32.Vec2, float32, bool) {
	for axis := 0; axis < 2; axis++ {
		low, high := neighbours.Axis(axis)
		if (low && normal[axis] < -suppressEpsilon) || (high && normal[axis] > suppressEpsilon) {
			normal[axis] = 0
		}
	}

	magnitude := normal.Len()
	if magnitude <= suppressEpsilon {
		return mgl32.Vec2{}, 0, false
	}
	return normal.Mul(1 / magnitude), magnitude, true
}

type face struct {
	axis  int
	sign  float32
	depth float32
}

// exitFace picks the shallowest face a point inside a tile can leave through
// without entering a solid neighbour.
func exitFace(local, half mgl32.Vec2, neighbours world.Directions) (face, bool) {
	faces := []face{
		{axis: 0, sign: -1, depth: half[0] + local[0]},
		{axis: 0, sign: 1, depth: half[0] - local[0]},
		{axis: 1, sign: -1, depth: half[1] + local[1]},
		{axis: 1, sign: 1, depth: half[1] - local[1]},
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].depth < faces[j].depth })

	for _, f := range faces {
		low, high := neighbours.Axis(f.axis)
		if (f.sign < 0 && low) || (f.sign > 0 && high) {
			continue
		}
		return f, true
	}
	return face{}, false
}
