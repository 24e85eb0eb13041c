package scene

import (
	"errors"
	"path/filepath"
	"testing"

	"stratum/internal/components"
	"stratum/internal/engine"

	"github.com/go-gl/mathgl/mgl32"
)

func transformAt(x, y, z float32) *engine.Transform {
	t := engine.At(mgl32.Vec3{x, y, z}, mgl32.Vec3{1, 1, 1})
	return &t
}

func TestPushDeferred(t *testing.T) {
	s := New("test")

	e := s.Push(true, EntityInfo{Transform: transformAt(1, 0, 0)})
	if s.Exists(e) {
		t.Error("deferred entity should not exist before EndFrame")
	}
	if s.Transforms.Has(e) {
		t.Error("deferred entity should have no components yet")
	}

	s.EndFrame(0.016)
	if !s.Exists(e) || !s.Transforms.Has(e) {
		t.Error("deferred entity should exist after EndFrame")
	}
}

func TestRemoveDeferredRemovesChildren(t *testing.T) {
	s := New("test")
	parent := s.Push(false, EntityInfo{Transform: transformAt(0, 0, 0)})
	child := s.Push(false, EntityInfo{Transform: transformAt(1, 0, 0), Parent: &parent})

	s.RemoveDeferred(parent)
	if !s.Exists(child) {
		t.Error("removal should wait for EndFrame")
	}

	s.EndFrame(0.016)
	if s.Exists(parent) || s.Exists(child) {
		t.Error("parent and child should be removed")
	}
	if s.Transforms.Len() != 0 {
		t.Errorf("Expected no transforms left, got %d", s.Transforms.Len())
	}
}

func TestOneFrameWatcher(t *testing.T) {
	s := New("test")
	fired := 0
	e := s.Push(false, EntityInfo{Transform: transformAt(0, 0, 0)})
	s.AddWatcher(e, engine.Watcher{Frames: 1, Action: engine.ActionRemove, Callback: func(engine.Entity) { fired++ }})

	s.EndFrame(0.016)
	if fired != 1 {
		t.Errorf("Expected watcher to fire once, got %d", fired)
	}
	if s.Exists(e) {
		t.Error("one frame watcher should remove its entity")
	}
}

func TestTargetWithParent(t *testing.T) {
	s := New("test")
	parentTransform := engine.At(mgl32.Vec3{10, 0, 0}, mgl32.Vec3{2, 2, 1})
	parent := s.Push(false, EntityInfo{Transform: &parentTransform})

	lazy := components.NewLazy(engine.At(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 1, 1}))
	child := s.Push(false, EntityInfo{Transform: transformAt(0, 0, 0), Lazy: &lazy, Parent: &parent})

	target, ok := s.Target(child)
	if !ok {
		t.Fatal("child should have a target")
	}
	if target.Position != (mgl32.Vec3{12, 0, 0}) {
		t.Errorf("Expected target (12, 0, 0), got %v", target.Position)
	}

	// a world space move of 2 is 1 unit in the parent's scaled space
	s.MoveTarget(child, mgl32.Vec3{2, 0, 0}, 0, false)
	l, _ := s.Lazies.Get(child)
	if l.Target.Position[0] != 2 {
		t.Errorf("Expected local target x 2, got %v", l.Target.Position[0])
	}

	s.UpdateLazy(0.016)
	tr, _ := s.Transforms.Get(child)
	if tr.Position != (mgl32.Vec3{14, 0, 0}) {
		t.Errorf("Expected transform to snap to (14, 0, 0), got %v", tr.Position)
	}
}

func TestMoveTargetWithoutLazy(t *testing.T) {
	s := New("test")
	e := s.Push(false, EntityInfo{Transform: transformAt(1, 1, 0)})

	if !s.MoveTarget(e, mgl32.Vec3{1, 0, 0}, 0.5, false) {
		t.Fatal("MoveTarget should succeed")
	}
	tr, _ := s.Transforms.Get(e)
	if tr.Position != (mgl32.Vec3{2, 1, 0}) || tr.Rotation != 0.5 {
		t.Errorf("unexpected transform %+v", tr)
	}
}

func TestForEveryChild(t *testing.T) {
	s := New("test")
	parent := s.Push(false, EntityInfo{})
	a := s.Push(false, EntityInfo{Parent: &parent})
	b := s.Push(false, EntityInfo{Parent: &parent})

	var seen []engine.Entity
	s.ForEveryChild(parent, func(e engine.Entity) { seen = append(seen, e) })
	if len(seen) != 2 || seen[0] != a || seen[1] != b {
		t.Errorf("Expected children [%v %v], got %v", a, b, seen)
	}
}

func TestScenariosBuild(t *testing.T) {
	names := ScenarioNames()
	if len(names) != 6 {
		t.Fatalf("Expected 6 scenarios, got %v", names)
	}

	for _, name := range names {
		f, err := Scenario(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		loaded, err := f.Build(nil)
		if err != nil {
			t.Fatalf("%s: build: %v", name, err)
		}
		if loaded.Reference.IsZero() {
			t.Errorf("%s: reference entity missing", name)
		}
	}
}

func TestJointScenarioLinksParent(t *testing.T) {
	f, err := Scenario("s6_joint")
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := f.Build(nil)
	if err != nil {
		t.Fatal(err)
	}

	bob, _ := loaded.Scene.Find("bob")
	anchor, _ := loaded.Scene.Find("anchor")
	j, ok := loaded.Scene.Joints.Get(bob)
	if !ok || j.Parent != anchor || j.Rest != 1 {
		t.Errorf("unexpected joint %+v", j)
	}

	p, _ := loaded.Scene.Physicals.Get(anchor)
	if !p.Immovable() {
		t.Error("anchor should be immovable")
	}
}

func TestUnknownComponent(t *testing.T) {
	f, err := Parse([]byte("entities:\n  - name: a\n    components:\n      - type: wheel\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Build(nil); !errors.Is(err, ErrUnknownComponent) {
		t.Errorf("Expected ErrUnknownComponent, got %v", err)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	f, err := Scenario("s1_circles")
	if err != nil {
		t.Fatal(err)
	}

	p := filepath.Join(t.TempDir(), "scene.yaml")
	if err := f.Save(p); err != nil {
		t.Fatal(err)
	}
	back, err := LoadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Entities) != 2 || back.Entities[0].Name != "left" {
		t.Errorf("unexpected round trip %+v", back.Entities)
	}

	loaded, err := back.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	left, _ := loaded.Scene.Find("left")
	p1, _ := loaded.Scene.Physicals.Get(left)
	if p1.Velocity[0] != 2 || p1.Restitution != 1 {
		t.Errorf("physical did not survive round trip: %+v", p1)
	}
}
