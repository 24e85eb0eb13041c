package physics

import (
	"log"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/scene"
)

// noBody marks the world side of a contact.
const noBody = -1

// body is the resolver's view of one entity while a contact set is solved.
// The physical stays borrowed until the resolve ends.
type body struct {
	entity   engine.Entity
	physical *components.Physical
	release  engine.Release

	position       mgl32.Vec2
	inverseMass    float32
	inverseInertia float32
	nonLazy        bool
}

func (b *body) velocityAt(relative mgl32.Vec2) mgl32.Vec2 {
	if b.physical == nil {
		return mgl32.Vec2{}
	}
	return crossScalar(b.physical.AngularVelocity, relative).Add(xy(b.physical.Velocity))
}

func (b *body) lastAcceleration() mgl32.Vec2 {
	if b.physical == nil {
		return mgl32.Vec2{}
	}
	return xy(b.physical.LastAcceleration())
}

type inertia struct {
	linear  float32
	angular float32
}

type move struct {
	linear  mgl32.Vec2
	angular float32
}

func (m move) zero() bool {
	return m.linear == (mgl32.Vec2{}) && m.angular == 0
}

// analyzedContact is a contact plus everything the passes derive from it
// once per resolve.
type analyzedContact struct {
	Contact
	a, b int

	toWorld   mgl32.Mat2
	aRelative mgl32.Vec2
	bRelative mgl32.Vec2

	// velocity is the closing velocity in the contact frame: X along the
	// normal, Y along the tangent.
	velocity mgl32.Vec2
	desired  float32

	accelerationVelocity float32
	restitution          float32
	staticFriction       float32
	dynamicFriction      float32

	// stuck contacts have no movable side.
	stuck bool
}

// ResolveStats summarizes one resolve for telemetry.
type ResolveStats struct {
	PenetrationIterations int
	VelocityIterations    int
	MaxPenetration        float32
	MaxVelocity           float32
	Woken                 int
}

// Resolver runs the positional and velocity passes of the sequential
// impulse solver over one frame's contacts.
type Resolver struct {
	cfg   config.Physics
	scene *scene.Scene

	bodies   []body
	index    map[engine.Entity]int
	contacts []analyzedContact

	lastWarning time.Time
}

func NewResolver(cfg config.Physics, sc *scene.Scene) *Resolver {
	return &Resolver{
		cfg:   cfg,
		scene: sc,
		index: make(map[engine.Entity]int),
	}
}

// Resolve separates penetrating bodies and then removes closing velocity.
func (r *Resolver) Resolve(contacts []Contact, dt float32) ResolveStats {
	var stats ResolveStats
	if len(contacts) == 0 {
		return stats
	}
	defer r.releaseBodies()

	r.contacts = r.contacts[:0]
	for _, c := range contacts {
		r.contacts = append(r.contacts, r.analyze(c, dt))
	}

	stats.Woken = r.awaken()

	var settled, stopped bool
	stats.PenetrationIterations, stats.MaxPenetration, settled = r.resolvePenetrations()
	stats.VelocityIterations, stats.MaxVelocity, stopped = r.resolveVelocities()

	if (!settled || !stopped) && time.Since(r.lastWarning) >= time.Second {
		r.lastWarning = time.Now()
		log.Printf("Physics: resolver hit the iteration cap, residual penetration %.4f, velocity %.4f",
			stats.MaxPenetration, stats.MaxVelocity)
	}

	return stats
}

func (r *Resolver) releaseBodies() {
	for i := range r.bodies {
		r.bodies[i].release()
	}
	r.bodies = r.bodies[:0]
	clear(r.index)
}

// bodyOf returns the arena slot of e, borrowing its physical on first use.
// Entities without a physical are immovable.
func (r *Resolver) bodyOf(e engine.Entity) int {
	if e.IsZero() {
		return noBody
	}
	if i, ok := r.index[e]; ok {
		return i
	}

	t, ok := r.scene.Target(e)
	if !ok {
		reportInvariant(r.cfg.Debug, "contact body %v has no transform", e)
		return noBody
	}

	p, release := r.scene.Physicals.MutNoChange(e)
	b := body{
		entity:   e,
		physical: p,
		release:  release,
		position: xy(t.Position),
	}
	if p != nil {
		b.inverseMass = p.InverseMass
		b.nonLazy = p.TargetNonLazy
		if c, ok := r.scene.Colliders.Get(e); ok {
			b.inverseInertia = c.InverseInertia(p, c.EffectiveTransform(t).Scale)
		}
	}

	r.bodies = append(r.bodies, b)
	r.index[e] = len(r.bodies) - 1
	return len(r.bodies) - 1
}

func (r *Resolver) get(i int) *body {
	if i == noBody {
		return nil
	}
	return &r.bodies[i]
}

func (r *Resolver) analyze(c Contact, dt float32) analyzedContact {
	ac := analyzedContact{
		Contact: c,
		a:       r.bodyOf(c.A),
		b:       r.bodyOf(c.B),
		toWorld: basis(c.Normal),
	}

	a, b := r.get(ac.a), r.get(ac.b)
	var count float32
	for _, side := range []*body{a, b} {
		if side == nil || side.physical == nil {
			continue
		}
		ac.restitution += side.physical.Restitution
		ac.staticFriction += side.physical.StaticFriction
		ac.dynamicFriction += side.physical.DynamicFriction
		count++
	}
	if count > 0 {
		ac.restitution /= count
		ac.staticFriction /= count
		ac.dynamicFriction /= count
	}

	var relative mgl32.Vec2
	if a != nil {
		ac.aRelative = c.Point.Sub(a.position)
		relative = a.velocityAt(ac.aRelative)
		ac.accelerationVelocity += a.lastAcceleration().Mul(dt).Dot(c.Normal)
	}
	if b != nil {
		ac.bRelative = c.Point.Sub(b.position)
		relative = relative.Sub(b.velocityAt(ac.bRelative))
		ac.accelerationVelocity -= b.lastAcceleration().Mul(dt).Dot(c.Normal)
	}

	ac.velocity = ac.toWorld.Transpose().Mul2x1(relative)
	ac.desired = r.desiredChange(&ac)
	return ac
}

func (r *Resolver) desiredChange(ac *analyzedContact) float32 {
	closing := ac.velocity[0]
	restitution := ac.restitution
	if math32.Abs(closing) < r.cfg.VelocityLow {
		restitution = 0
	}
	return -closing - restitution*(closing-ac.accelerationVelocity)
}

// awaken wakes both sides of any contact that asks for a large enough
// velocity change. Bodies that stay asleep are frozen for this resolve.
func (r *Resolver) awaken() int {
	woken := 0
	for i := range r.contacts {
		ac := &r.contacts[i]
		if math32.Abs(ac.desired) <= r.cfg.SleepEpsilon {
			continue
		}
		for _, side := range []*body{r.get(ac.a), r.get(ac.b)} {
			if side != nil && side.physical != nil && side.physical.Sleeping {
				side.physical.Wake()
				woken++
			}
		}
	}

	for i := range r.bodies {
		b := &r.bodies[i]
		if b.physical != nil && b.physical.Sleeping {
			b.inverseMass = 0
			b.inverseInertia = 0
		}
	}

	for i := range r.contacts {
		ac := &r.contacts[i]
		ia, ib := r.inertiaOf(ac.a, ac.aRelative, ac.Normal), r.inertiaOf(ac.b, ac.bRelative, ac.Normal)
		ac.stuck = ia.linear+ia.angular+ib.linear+ib.angular == 0
	}
	return woken
}

func (r *Resolver) inertiaOf(i int, relative, normal mgl32.Vec2) inertia {
	b := r.get(i)
	if b == nil {
		return inertia{}
	}
	angular := cross2(relative, normal) * b.inverseInertia
	return inertia{
		linear:  b.inverseMass,
		angular: crossScalar(angular, relative).Dot(normal),
	}
}

// --- Positional pass ---

func (r *Resolver) resolvePenetrations() (int, float32, bool) {
	eps := r.cfg.PenetrationEpsilon
	iterations := 0

	for i := range r.contacts {
		if !r.contacts[i].stuck && r.contacts[i].Penetration > eps {
			r.resolvePenetration(i)
			iterations++
		}
	}

	for n := 0; n < r.cfg.Iterations; n++ {
		best, deepest := -1, eps
		for i := range r.contacts {
			if !r.contacts[i].stuck && r.contacts[i].Penetration > deepest {
				best, deepest = i, r.contacts[i].Penetration
			}
		}
		if best < 0 {
			break
		}
		r.resolvePenetration(best)
		iterations++
	}

	var residual float32
	for i := range r.contacts {
		if !r.contacts[i].stuck {
			residual = math32.Max(residual, r.contacts[i].Penetration)
		}
	}
	return iterations, residual, residual <= eps
}

func (r *Resolver) resolvePenetration(i int) {
	ac := &r.contacts[i]
	ia := r.inertiaOf(ac.a, ac.aRelative, ac.Normal)
	ib := r.inertiaOf(ac.b, ac.bRelative, ac.Normal)

	total := ia.linear + ia.angular + ib.linear + ib.angular
	if total == 0 {
		return
	}
	inverse := 1 / total

	moveA := r.applyMove(ac.a, ac.aRelative, ac.Normal, ac.Penetration, inverse, ia)
	moveB := r.applyMove(ac.b, ac.bRelative, ac.Normal, -ac.Penetration, inverse, ib)

	r.updatePenetrations(ac.a, moveA)
	r.updatePenetrations(ac.b, moveB)
}

// applyMove shifts one body by its share of the penetration. Rotation is
// limited in proportion to the lever arm; the rest becomes translation.
func (r *Resolver) applyMove(i int, relative, normal mgl32.Vec2, penetration, inverse float32, in inertia) move {
	b := r.get(i)
	if b == nil {
		return move{}
	}

	angularAmount := penetration * inverse * in.angular
	linearAmount := penetration * inverse * in.linear

	limit := r.cfg.AngularLimit * relative.Sub(normal.Mul(relative.Dot(normal))).Len()
	if math32.Abs(angularAmount) > limit {
		total := angularAmount + linearAmount
		angularAmount = clamp(angularAmount, -limit, limit)
		linearAmount = total - angularAmount
	}
	if b.inverseMass == 0 {
		linearAmount = 0
	}

	m := move{linear: normal.Mul(linearAmount)}
	if in.angular != 0 {
		m.angular = cross2(relative, normal) * b.inverseInertia * (angularAmount / in.angular)
	}
	if m.zero() {
		return m
	}

	b.position = b.position.Add(m.linear)
	r.scene.MoveTarget(b.entity, mgl32.Vec3{m.linear[0], m.linear[1], 0}, m.angular, b.nonLazy)
	return m
}

// updatePenetrations corrects every contact touching a moved body, the
// resolved one included.
func (r *Resolver) updatePenetrations(i int, m move) {
	if i == noBody || m.zero() {
		return
	}
	position := r.bodies[i].position

	for k := range r.contacts {
		ac := &r.contacts[k]
		if ac.a != i && ac.b != i {
			continue
		}
		change := crossScalar(m.angular, ac.Point.Sub(position)).Add(m.linear).Dot(ac.Normal)
		if ac.a == i {
			ac.Penetration -= change
		}
		if ac.b == i {
			ac.Penetration += change
		}
	}
}

// --- Velocity pass ---

func (r *Resolver) resolveVelocities() (int, float32, bool) {
	iterations := 0

	for i := range r.contacts {
		if !r.contacts[i].stuck && r.contacts[i].desired > 0 {
			r.resolveVelocity(i)
			iterations++
		}
	}

	for n := 0; n < r.cfg.Iterations; n++ {
		best := -1
		var largest float32
		for i := range r.contacts {
			if !r.contacts[i].stuck && r.contacts[i].desired > largest {
				best, largest = i, r.contacts[i].desired
			}
		}
		if best < 0 {
			break
		}
		r.resolveVelocity(best)
		iterations++
	}

	var residual float32
	for i := range r.contacts {
		if !r.contacts[i].stuck {
			residual = math32.Max(residual, r.contacts[i].desired)
		}
	}
	return iterations, residual, residual <= 0
}

// impulseResponse is the world frame matrix mapping an impulse at the
// contact to the angular part of the velocity change there.
func (r *Resolver) impulseResponse(i int, relative mgl32.Vec2) mgl32.Mat2 {
	b := r.get(i)
	if b == nil || b.inverseInertia == 0 {
		return mgl32.Mat2{}
	}
	e, g, c := -relative[1], relative[0], b.inverseInertia
	return mgl32.Mat2{e * c * e, g * c * e, e * c * g, g * c * g}
}

func (r *Resolver) resolveVelocity(i int) {
	ac := &r.contacts[i]
	a, b := r.get(ac.a), r.get(ac.b)

	var totalInverseMass float32
	if a != nil {
		totalInverseMass += a.inverseMass
	}
	if b != nil {
		totalInverseMass += b.inverseMass
	}

	response := r.impulseResponse(ac.a, ac.aRelative).Add(r.impulseResponse(ac.b, ac.bRelative))
	m := ac.toWorld.Transpose().Mul2(response).Mul2(ac.toWorld)
	m[0] += totalInverseMass
	m[3] += totalInverseMass

	det := m.Det()
	if math32.Abs(det) < 1e-12 || !finite(det) {
		ac.desired = 0
		return
	}

	stop := mgl32.Vec2{ac.desired, -ac.velocity[1]}
	local := m.Inv().Mul2x1(stop)

	if local[1] != 0 && math32.Abs(local[1]) > local[0]*ac.staticFriction {
		s := sign(local[1])
		denominator := m.At(0, 0) + m.At(0, 1)*ac.dynamicFriction*s
		if denominator != 0 {
			local[0] = ac.desired / denominator
			local[1] = s * ac.dynamicFriction * local[0]
		}
	}

	impulse := ac.toWorld.Mul2x1(local)

	moveA := r.applyImpulse(ac.a, ac.aRelative, impulse)
	moveB := r.applyImpulse(ac.b, ac.bRelative, impulse.Mul(-1))

	r.updateVelocities(ac.a, moveA)
	r.updateVelocities(ac.b, moveB)
}

func (r *Resolver) applyImpulse(i int, relative, impulse mgl32.Vec2) move {
	b := r.get(i)
	if b == nil || b.physical == nil {
		return move{}
	}

	m := move{
		linear:  impulse.Mul(b.inverseMass),
		angular: cross2(relative, impulse) * b.inverseInertia,
	}
	if m.zero() {
		return m
	}

	b.physical.AddVelocityRaw(mgl32.Vec3{m.linear[0], m.linear[1], 0})
	b.physical.AddAngularVelocityRaw(m.angular)
	return m
}

// updateVelocities folds a body's velocity change into every contact that
// touches it and recomputes what those contacts still want.
func (r *Resolver) updateVelocities(i int, m move) {
	if i == noBody || m.zero() {
		return
	}
	position := r.bodies[i].position

	for k := range r.contacts {
		ac := &r.contacts[k]
		if ac.a != i && ac.b != i {
			continue
		}
		change := crossScalar(m.angular, ac.Point.Sub(position)).Add(m.linear)
		local := ac.toWorld.Transpose().Mul2x1(change)
		if ac.a == i {
			ac.velocity = ac.velocity.Add(local)
		}
		if ac.b == i {
			ac.velocity = ac.velocity.Sub(local)
		}
		ac.desired = r.desiredChange(ac)
	}
}

func reportInvariant(debug bool, format string, args ...any) {
	if debug {
		log.Panicf("Physics: "+format, args...)
	}
	log.Printf("Physics: "+format, args...)
}
