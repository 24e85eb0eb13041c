package damage

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/passer"
	"stratum/internal/physics"
	"stratum/internal/scene"
	"stratum/internal/world"
)

func TestRayDestroysPiercedTiles(t *testing.T) {
	file, err := scene.Scenario("s4_pierce")
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := file.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	w := physics.NewWorld(config.Default(), loaded.Scene, loaded.Map)
	q := passer.NewQueue()
	d := NewDispatcher(w, q)

	shooter, _ := loaded.Scene.Find("shooter")
	info := physics.RaycastInfo{
		Pierce:      1.2,
		PierceScale: physics.RaycastPierce{Kind: physics.PierceDensity},
		Layer:       components.LayerNormal,
	}

	before := loaded.Scene.Len()
	stats := d.RaycastFrom(shooter, components.NewDamaging(1), info, mgl32.Vec3{3.5, 0.5, 0.5}, 0.016)

	if stats.Hits != 3 || stats.Destroyed != 3 {
		t.Fatalf("Expected 3 tiles hit and destroyed, got %+v", stats)
	}
	for x := 0; x < 3; x++ {
		tile, _ := loaded.Map.Tile(world.TilePos{X: x})
		if !tile.IsAir() {
			t.Errorf("Expected tile %d destroyed, got %+v", x, tile)
		}
	}

	// an entry particle per hit, an exit particle for all but the last
	if spawned := loaded.Scene.Len() - before; spawned != 5 {
		t.Errorf("Expected 5 particles, got %d", spawned)
	}
	if q.Len() != 3 {
		t.Errorf("Expected 3 SetTile messages, got %d", q.Len())
	}
}

func TestRayScalesDamageByPierce(t *testing.T) {
	f := newFixture()
	target := f.body(mgl32.Vec3{2, 0, 0}, 5)

	stats := f.d.Raycast(Ray{
		Info:        physics.RaycastInfo{Layer: components.LayerNormal},
		Start:       mgl32.Vec3{-1, 0, 0},
		End:         mgl32.Vec3{5, 0, 0},
		Damage:      2,
		ScalePierce: 0.25,
		Knockback:   1,
	}, 0.016)

	if stats.Hits != 1 {
		t.Fatalf("Expected 1 hit, got %d", stats.Hits)
	}
	// the ray crosses the full diameter of 1, so a quarter of the damage lands
	if h := healthOf(t, f.scene, target); h < 4.5-1e-4 || h > 4.5+1e-4 {
		t.Errorf("Expected health 4.5, got %v", h)
	}
}

func TestRayThroughBodyKnocksLess(t *testing.T) {
	f := newFixture()
	first := f.body(mgl32.Vec3{1, 0, 0}, 5)
	second := f.body(mgl32.Vec3{3, 0, 0}, 5)

	var hits []Hit
	f.d.OnHit.AddListener(func(h Hit) { hits = append(hits, h) })

	f.d.Raycast(Ray{
		Info: physics.RaycastInfo{
			Pierce:      5,
			PierceScale: physics.RaycastPierce{Kind: physics.PierceIgnore},
			Layer:       components.LayerNormal,
		},
		Start:     mgl32.Vec3{-1, 0, 0},
		End:       mgl32.Vec3{6, 0, 0},
		Damage:    1,
		Knockback: 1,
	}, 0.016)

	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID.Entity != first || !hits[0].HasExit || hits[0].Strength != throughStrength {
		t.Errorf("Expected the first body passed through, got %+v", hits[0])
	}
	if hits[1].ID.Entity != second || hits[1].HasExit || hits[1].Strength != 1 {
		t.Errorf("Expected the ray to stop in the second body, got %+v", hits[1])
	}

	v1, _ := f.scene.Physicals.Get(first)
	v2, _ := f.scene.Physicals.Get(second)
	if v1.Velocity[0] >= v2.Velocity[0] {
		t.Errorf("Expected less knockback on the pierced body, got %v and %v", v1.Velocity[0], v2.Velocity[0])
	}
}

func TestRayIgnoresSource(t *testing.T) {
	f := newFixture()
	shooter := f.body(mgl32.Vec3{}, 5)
	target := f.body(mgl32.Vec3{2, 0, 0}, 5)

	f.d.RaycastFrom(shooter, components.NewDamaging(1), physics.RaycastInfo{Layer: components.LayerNormal}, mgl32.Vec3{5, 0, 0}, 0.016)

	if h := healthOf(t, f.scene, shooter); h != 5 {
		t.Errorf("Expected the shooter unharmed, got %v", h)
	}
	if h := healthOf(t, f.scene, target); h != 4 {
		t.Errorf("Expected the target hit, got %v", h)
	}
}
