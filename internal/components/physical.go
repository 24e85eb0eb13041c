package components

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AngularSleepWeight converts angular speed into the linear speed used by the
// sleep check.
const AngularSleepWeight = 0.5

type Fixed struct {
	Rotation bool `yaml:"rotation"`
}

// Physical is the dynamic state of a rigid body. Rotation is a single angle
// about Z, so angular quantities are scalars.
type Physical struct {
	Velocity        mgl32.Vec3 `yaml:"velocity"`
	AngularVelocity float32    `yaml:"angular_velocity"`

	// InverseMass of 0 makes the body immovable.
	InverseMass float32 `yaml:"inverse_mass"`

	// Acceleration and AngularAcceleration are applied every frame.
	Acceleration        mgl32.Vec3 `yaml:"acceleration"`
	AngularAcceleration float32    `yaml:"angular_acceleration"`

	Restitution     float32 `yaml:"restitution"`
	StaticFriction  float32 `yaml:"static_friction"`
	DynamicFriction float32 `yaml:"dynamic_friction"`

	// Damping is the fraction of velocity kept after one second.
	Damping        float32 `yaml:"damping"`
	AngularDamping float32 `yaml:"angular_damping"`

	Fixed    Fixed `yaml:"fixed"`
	Floating bool  `yaml:"floating"`
	MoveZ    bool  `yaml:"move_z"`

	// TargetNonLazy writes positional corrections straight to the transform
	// instead of the lazy target.
	TargetNonLazy bool `yaml:"target_non_lazy"`

	Sleeping bool `yaml:"-"`

	sleepTimer       float32
	force            mgl32.Vec3
	lastAcceleration mgl32.Vec3
}

func NewPhysical(mass float32) Physical {
	p := Physical{
		StaticFriction:  0.5,
		DynamicFriction: 0.4,
		Damping:         1,
		AngularDamping:  1,
		MoveZ:           true,
	}
	p.SetMass(mass)
	return p
}

// Static returns an immovable body.
func Static() Physical {
	p := NewPhysical(0)
	p.Fixed.Rotation = true
	p.Floating = true
	p.MoveZ = false
	return p
}

// SetMass sets the inverse mass; a non-positive or infinite mass makes the
// body immovable.
func (p *Physical) SetMass(mass float32) {
	if mass <= 0 || math32.IsInf(mass, 1) {
		p.InverseMass = 0
		return
	}
	p.InverseMass = 1 / mass
}

// Mass is +Inf for immovable bodies.
func (p *Physical) Mass() float32 {
	if p.InverseMass == 0 {
		return math32.Inf(1)
	}
	return 1 / p.InverseMass
}

func (p *Physical) Immovable() bool {
	return p.InverseMass == 0
}

// AddForce accumulates a force for the next integration and wakes the body.
func (p *Physical) AddForce(force mgl32.Vec3) {
	p.force = p.force.Add(force)
	p.Wake()
}

// AddVelocity applies a velocity change and wakes the body.
func (p *Physical) AddVelocity(velocity mgl32.Vec3) {
	p.AddVelocityRaw(velocity)
	p.Wake()
}

// AddVelocityRaw changes velocity without touching the sleep state.
func (p *Physical) AddVelocityRaw(velocity mgl32.Vec3) {
	p.Velocity = p.Velocity.Add(velocity)
}

func (p *Physical) AddAngularVelocityRaw(velocity float32) {
	p.AngularVelocity += velocity
}

// RemoveVelocityAxis zeroes one velocity component.
func (p *Physical) RemoveVelocityAxis(axis int) {
	p.Velocity[axis] = 0
}

// Wake forces the body out of sleep.
func (p *Physical) Wake() {
	p.Sleeping = false
	p.sleepTimer = 0
}

func (p *Physical) LastAcceleration() mgl32.Vec3 {
	return p.lastAcceleration
}

func (p *Physical) SleepTimer() float32 {
	return p.sleepTimer
}

// Integrate advances velocities by dt: constant and accumulated acceleration,
// then damping, then gravity along Z unless the body floats. Sleeping and
// immovable bodies keep their velocity.
func (p *Physical) Integrate(dt, gravity float32) {
	if p.Sleeping || p.Immovable() {
		p.force = mgl32.Vec3{}
		p.lastAcceleration = mgl32.Vec3{}
		return
	}

	acceleration := p.Acceleration.Add(p.force.Mul(p.InverseMass))
	p.Velocity = p.Velocity.Add(acceleration.Mul(dt))
	p.AngularVelocity += p.AngularAcceleration * dt

	p.Velocity = p.Velocity.Mul(damp(p.Damping, dt))
	p.AngularVelocity *= damp(p.AngularDamping, dt)

	if !p.Floating {
		p.Velocity[2] += gravity * dt
		acceleration[2] += gravity
	}

	p.lastAcceleration = acceleration
	p.force = mgl32.Vec3{}
}

// Displacement is the translation and rotation the body makes over dt.
func (p *Physical) Displacement(dt float32) (mgl32.Vec3, float32) {
	rotation := p.AngularVelocity * dt
	if p.Fixed.Rotation {
		rotation = 0
	}
	return p.Velocity.Mul(dt), rotation
}

// Speed is the combined linear and weighted angular speed.
func (p *Physical) Speed() float32 {
	return p.Velocity.Len() + AngularSleepWeight*math32.Abs(p.AngularVelocity)
}

// TrySleep puts the body to sleep after it stays slower than threshold for
// duration seconds while outside the simulated region. A body inside the
// region is woken.
func (p *Physical) TrySleep(dt, threshold, duration float32, outside bool) {
	if !outside {
		if p.Sleeping {
			p.Wake()
		}
		p.sleepTimer = 0
		return
	}
	if p.Sleeping {
		return
	}

	if p.Speed() >= threshold {
		p.sleepTimer = 0
		return
	}

	p.sleepTimer += dt
	if p.sleepTimer >= duration {
		p.Sleeping = true
		p.Velocity = mgl32.Vec3{}
		p.AngularVelocity = 0
	}
}

func damp(retention, dt float32) float32 {
	if retention >= 1 {
		return 1
	}
	if retention <= 0 {
		return 0
	}
	return math32.Pow(retention, dt)
}
