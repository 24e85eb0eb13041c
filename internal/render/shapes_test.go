package render

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/physics"
	"stratum/internal/scene"
	"stratum/internal/world"
)

func push(s *scene.Scene, kind components.Kind, t engine.Transform, p *components.Physical) engine.Entity {
	c := components.NewCollider(kind, components.LayerNormal)
	return s.Push(false, scene.EntityInfo{Transform: &t, Collider: &c, Physical: p})
}

func TestOutlines(t *testing.T) {
	s := scene.New("test")
	w := physics.NewWorld(config.Default(), s, world.NewOpenMap(1, nil))

	body := components.NewPhysical(1)
	ball := push(s, components.KindCircle, engine.At(mgl32.Vec3{1, 2, 0.5}, mgl32.Vec3{2, 1, 1}), &body)

	plank := engine.At(mgl32.Vec3{0, 0, 0.5}, mgl32.Vec3{2, 2, 1})
	plank.Rotation = math32.Pi / 4
	box := push(s, components.KindRectangle, plank, nil)

	ghost := push(s, components.KindCircle, engine.At(mgl32.Vec3{5, 5, 0.5}, mgl32.Vec3{1, 1, 1}), &body)
	s.Colliders.With(ghost, func(c *components.Collider) { c.Ghost = true })

	push(s, components.KindCircle, engine.At(mgl32.Vec3{0, 0, 3.5}, mgl32.Vec3{1, 1, 1}), &body)

	outlines := Outlines(w, 0, 1)
	if len(outlines) != 3 {
		t.Fatalf("Expected 3 outlines in the slab, got %d", len(outlines))
	}

	if o := outlines[0]; o.Entity != ball || o.Radius != 1 || o.Style != StyleDynamic {
		t.Errorf("Expected a dynamic circle of radius 1, got %+v", o)
	}

	o := outlines[1]
	if o.Entity != box || o.Style != StyleStatic {
		t.Errorf("Expected a static box, got %+v", o)
	}
	// a square turned 45 degrees has its corners on the axes
	r := math32.Sqrt2
	want := [4]mgl32.Vec2{{0, -r}, {r, 0}, {0, r}, {-r, 0}}
	for i := range want {
		if !o.Corners[i].ApproxEqualThreshold(want[i], 1e-5) {
			t.Errorf("Expected corner %d at %v, got %v", i, want[i], o.Corners[i])
		}
	}

	if outlines[2].Style != StyleGhost {
		t.Errorf("Expected the ghost style, got %v", outlines[2].Style)
	}
}

func TestTrailsExpire(t *testing.T) {
	trails := Trails{Lifetime: 0.5}
	hits := physics.RaycastHits{
		Start:     mgl32.Vec3{},
		Direction: mgl32.Vec3{1, 0, 0},
		Hits:      []physics.RaycastHit{{Result: physics.RaycastResult{Distance: 2}}},
	}
	trails.Add(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0}, hits)

	if got := trails.List(); len(got) != 1 || len(got[0].Hits) != 1 || got[0].Hits[0] != (mgl32.Vec2{2, 0}) {
		t.Fatalf("Expected one trail with a hit at (2, 0), got %+v", got)
	}

	trails.Update(0.3)
	if len(trails.List()) != 1 {
		t.Error("trail should still be visible")
	}
	trails.Update(0.3)
	if len(trails.List()) != 0 {
		t.Error("trail should have expired")
	}
}
