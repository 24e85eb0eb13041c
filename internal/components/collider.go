package components

import (
	"fmt"
	"slices"

	"stratum/internal/engine"
	"stratum/internal/world"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

type Kind uint8

const (
	KindCircle Kind = iota
	KindAabb
	KindRectangle
	// KindRayZ is a vertical segment; in the plane it behaves like a point.
	KindRayZ
	KindTile
	kindCount
)

var kindNames = [kindCount]string{"circle", "aabb", "rectangle", "ray_z", "tile"}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown collider kind %q", name)
}

func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TransformOverride replaces the entity transform for collision purposes.
// Without OverridePosition its position is an offset from the entity.
type TransformOverride struct {
	Transform        engine.Transform `yaml:"transform"`
	OverridePosition bool             `yaml:"override_position"`
}

type Collider struct {
	Kind  Kind  `yaml:"kind"`
	Layer Layer `yaml:"layer"`
	// Ghost colliders report overlaps but never push anything.
	Ghost bool `yaml:"ghost"`

	ScaleOverride     *mgl32.Vec3        `yaml:"scale_override,omitempty"`
	TransformOverride *TransformOverride `yaml:"transform_override,omitempty"`

	// Tile and Neighbours are only meaningful for KindTile.
	Tile       world.TilePos    `yaml:"-"`
	Neighbours world.Directions `yaml:"-"`

	Sleeping bool `yaml:"-"`

	collided      []engine.Entity
	collidedTiles []world.TilePos
}

func NewCollider(kind Kind, layer Layer) Collider {
	return Collider{Kind: kind, Layer: layer}
}

// TileCollider is the transient collider used for a solid world tile.
func TileCollider(pos world.TilePos, neighbours world.Directions) Collider {
	return Collider{
		Kind:       KindTile,
		Layer:      LayerWorld,
		Tile:       pos,
		Neighbours: neighbours,
	}
}

// Collided lists the entities this collider touched during the current frame.
func (c *Collider) Collided() []engine.Entity {
	return c.collided
}

func (c *Collider) CollidedTiles() []world.TilePos {
	return c.collidedTiles
}

func (c *Collider) PushCollided(e engine.Entity) {
	if !slices.Contains(c.collided, e) {
		c.collided = append(c.collided, e)
	}
}

func (c *Collider) PushCollidedTile(pos world.TilePos) {
	if !slices.Contains(c.collidedTiles, pos) {
		c.collidedTiles = append(c.collidedTiles, pos)
	}
}

func (c *Collider) ResetFrame() {
	c.collided = c.collided[:0]
	c.collidedTiles = c.collidedTiles[:0]
}

// EffectiveTransform is the transform the collider is tested with.
func (c *Collider) EffectiveTransform(t engine.Transform) engine.Transform {
	if c.TransformOverride != nil {
		overridden := c.TransformOverride.Transform
		if !c.TransformOverride.OverridePosition {
			overridden.Position = overridden.Position.Add(t.Position)
		}
		t = overridden
	}
	if c.ScaleOverride != nil {
		t.Scale = *c.ScaleOverride
	}
	if c.Kind == KindAabb {
		t.Rotation = 0
	}
	return t
}

// HalfSize is the unrotated half extent of the shape for a given scale.
// Circles use the larger planar scale component as their diameter.
func (k Kind) HalfSize(scale mgl32.Vec3) mgl32.Vec3 {
	switch k {
	case KindRayZ:
		return mgl32.Vec3{0, 0, scale[2]}
	case KindCircle:
		r := Radius(scale)
		return mgl32.Vec3{r, r, scale[2] / 2}
	default:
		return scale.Mul(0.5)
	}
}

// Radius of a circle collider with the given scale.
func Radius(scale mgl32.Vec3) float32 {
	return math32.Max(scale[0], scale[1]) / 2
}

// HalfBounds is the half extent of the axis aligned box that contains the
// collider at transform t.
func (c *Collider) HalfBounds(t engine.Transform) mgl32.Vec3 {
	half := c.Kind.HalfSize(t.Scale)
	if c.Kind != KindRectangle {
		return half
	}

	sin, cos := math32.Sincos(t.Rotation)
	sin, cos = math32.Abs(sin), math32.Abs(cos)
	return mgl32.Vec3{
		cos*half[0] + sin*half[1],
		sin*half[0] + cos*half[1],
		half[2],
	}
}

// InverseInertia is the scalar inverse moment of inertia about Z.
func (k Kind) InverseInertia(p *Physical, scale mgl32.Vec3) float32 {
	if p == nil || p.InverseMass == 0 || p.Fixed.Rotation {
		return 0
	}

	m := 1 / p.InverseMass
	switch k {
	case KindCircle:
		s := math32.Max(scale[0], scale[1])
		return 1 / ((2.0 / 5.0) * m * s * s)
	case KindRectangle:
		return 1 / ((1.0 / 12.0) * m * (scale[0]*scale[0] + scale[1]*scale[1]))
	default:
		return 0
	}
}

func (c *Collider) InverseInertia(p *Physical, scale mgl32.Vec3) float32 {
	return c.Kind.InverseInertia(p, scale)
}
