package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/physics"
)

// Outline is the planar shape of a collider as the renderer draws it.
// Circles have a radius and no corners.
type Outline struct {
	Entity  engine.Entity
	Kind    components.Kind
	Center  mgl32.Vec2
	Radius  float32
	Corners [4]mgl32.Vec2
	Z       float32
	Style   Style
}

// Style picks the color a collider is drawn with.
type Style uint8

const (
	StyleDynamic Style = iota
	StyleStatic
	StyleSleeping
	StyleGhost
)

// Outlines collects the shapes of every collider whose center lies within
// the Z range. Results follow the storage's handle order.
func Outlines(w *physics.World, zMin, zMax float32) []Outline {
	sc := w.Scene()
	var out []Outline
	sc.Colliders.Each(func(e engine.Entity, c *components.Collider) {
		t, ok := sc.Target(e)
		if !ok {
			return
		}
		t = c.EffectiveTransform(t)
		if t.Position[2] < zMin || t.Position[2] > zMax {
			return
		}

		o := Outline{
			Entity: e,
			Kind:   c.Kind,
			Center: t.Position.Vec2(),
			Z:      t.Position[2],
			Style:  styleOf(sc.Physicals.Get(e)),
		}
		if c.Sleeping {
			o.Style = StyleSleeping
		}
		if c.Ghost {
			o.Style = StyleGhost
		}

		switch c.Kind {
		case components.KindCircle:
			o.Radius = components.Radius(t.Scale)
		case components.KindRayZ:
			o.Radius = 0
		default:
			o.Corners = physics.NewOBB(t).Corners()
		}
		out = append(out, o)
	})
	return out
}

func styleOf(p components.Physical, ok bool) Style {
	switch {
	case !ok || p.Immovable():
		return StyleStatic
	case p.Sleeping:
		return StyleSleeping
	}
	return StyleDynamic
}

// Trail is a ray kept on screen for a while after it was cast.
type Trail struct {
	Start mgl32.Vec2
	End   mgl32.Vec2
	Hits  []mgl32.Vec2
	TTL   float32
}

// Trails ages ray trails and drops expired ones.
type Trails struct {
	Lifetime float32
	list     []Trail
}

// Add records a cast ray and the entry point of every hit.
func (t *Trails) Add(start, end mgl32.Vec3, hits physics.RaycastHits) {
	trail := Trail{Start: start.Vec2(), End: end.Vec2(), TTL: t.Lifetime}
	for _, h := range hits.Hits {
		trail.Hits = append(trail.Hits, hits.HitPosition(h).Vec2())
	}
	t.list = append(t.list, trail)
}

func (t *Trails) Update(dt float32) {
	kept := t.list[:0]
	for _, tr := range t.list {
		tr.TTL -= dt
		if tr.TTL > 0 {
			kept = append(kept, tr)
		}
	}
	t.list = kept
}

func (t *Trails) List() []Trail {
	return t.list
}
