package physics

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/scene"
	"stratum/internal/world"
)

const tolerance = 1e-4

func near(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}

func nearVec2(a, b mgl32.Vec2, eps float32) bool {
	return near(a[0], b[0], eps) && near(a[1], b[1], eps)
}

func pushBody(s *scene.Scene, kind components.Kind, position, scale mgl32.Vec3, p *components.Physical) engine.Entity {
	t := engine.At(position, scale)
	c := components.NewCollider(kind, components.LayerNormal)
	return s.Push(false, scene.EntityInfo{Transform: &t, Collider: &c, Physical: p})
}

func floating(mass float32) *components.Physical {
	p := components.NewPhysical(mass)
	p.Floating = true
	p.MoveZ = false
	p.StaticFriction = 0
	p.DynamicFriction = 0
	return &p
}

func position(t *testing.T, s *scene.Scene, e engine.Entity) mgl32.Vec3 {
	t.Helper()
	tr, ok := s.Transforms.Get(e)
	if !ok {
		t.Fatalf("%v has no transform", e)
	}
	return tr.Position
}

func velocity(t *testing.T, s *scene.Scene, e engine.Entity) mgl32.Vec3 {
	t.Helper()
	p, ok := s.Physicals.Get(e)
	if !ok {
		t.Fatalf("%v has no physical", e)
	}
	return p.Velocity
}

func newTestWorld(s *scene.Scene) (*World, *world.Map) {
	m := world.NewOpenMap(1, nil)
	return NewWorld(config.Default(), s, m), m
}

func loadScenario(t *testing.T, name string) (*World, *scene.Loaded) {
	t.Helper()
	f, err := scene.Scenario(name)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := f.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	w := NewWorld(config.Default(), loaded.Scene, loaded.Map)
	w.Reference = loaded.Reference
	return w, loaded
}

func find(t *testing.T, s *scene.Scene, name string) engine.Entity {
	t.Helper()
	e, ok := s.Find(name)
	if !ok {
		t.Fatalf("no entity named %q", name)
	}
	return e
}

func TestBasisIsOrthonormal(t *testing.T) {
	m := basis(normalize2(mgl32.Vec2{3, 4}))
	x := m.Col(0)
	y := m.Col(1)

	if !near(x.Len(), 1, tolerance) || !near(y.Len(), 1, tolerance) {
		t.Errorf("Expected unit columns, got %v %v", x, y)
	}
	if !near(x.Dot(y), 0, tolerance) {
		t.Errorf("Expected orthogonal columns, got dot %v", x.Dot(y))
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	if n := normalize2(mgl32.Vec2{}); n != (mgl32.Vec2{1, 0}) {
		t.Errorf("Expected X axis for zero vector, got %v", n)
	}
}

func TestRotate2(t *testing.T) {
	v := rotate2(mgl32.Vec2{1, 0}, math32.Pi/2)
	if !nearVec2(v, mgl32.Vec2{0, 1}, tolerance) {
		t.Errorf("Expected (0, 1), got %v", v)
	}
}
