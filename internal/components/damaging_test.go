package components

import (
	"testing"

	"stratum/internal/engine"
	"stratum/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDamagingPredicate(t *testing.T) {
	a := engine.Entity{Index: 1, Generation: 1}
	b := engine.Entity{Index: 2, Generation: 1}

	tests := []struct {
		name      string
		predicate Predicate
		target    engine.Entity
		want      bool
	}{
		{"all", Predicate{}, a, true},
		{"none", Predicate{Kind: PredicateNone}, a, false},
		{"only match", Only(a), a, true},
		{"only other", Only(a), b, false},
		{"except match", Except(a), a, false},
		{"except other", Except(a), b, true},
	}

	for _, tt := range tests {
		if got := tt.predicate.Accepts(tt.target); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestDamagingTimes(t *testing.T) {
	d := NewDamaging(1)
	d.TimesLeft = 1
	target := DamagedEntity(engine.Entity{Index: 3, Generation: 1})

	if !d.CanDamage(target) {
		t.Fatal("fresh damaging should be able to hit")
	}
	d.Damaged(target)
	if d.CanDamage(DamagedTile(world.TilePos{})) {
		t.Error("no hits should remain")
	}
	if !d.Exhausted() {
		t.Error("Expected exhausted damaging")
	}

	unlimited := NewDamaging(1)
	unlimited.Damaged(target)
	if unlimited.CanDamage(target) {
		t.Error("the same target should not be hit twice")
	}
	if !unlimited.CanDamage(DamagedTile(world.TilePos{X: 1})) {
		t.Error("unlimited damaging should hit a new tile")
	}
}

func TestHealth(t *testing.T) {
	h := NewHealth(2)
	if h.Damage(1.5) {
		t.Error("health should remain")
	}
	h.Heal(5)
	if h.Current != 2 {
		t.Errorf("heal should cap at max, got %v", h.Current)
	}
	if !h.Damage(3) || h.Current != 0 {
		t.Errorf("Expected dead with 0 health, got %v", h.Current)
	}
}

func TestLazyFollow(t *testing.T) {
	l := NewLazy(engine.At(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 1, 1}))
	current := engine.NewTransform()

	if l.Follow(current, l.Target, 0.1).Position != (mgl32.Vec3{2, 0, 0}) {
		t.Error("zero connection should snap to the target")
	}

	l.Connection = 10
	moved := l.Follow(current, l.Target, 0.1)
	if moved.Position[0] <= 0 || moved.Position[0] >= 2 {
		t.Errorf("Expected partial move toward target, got %v", moved.Position)
	}
}
