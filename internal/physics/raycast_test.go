package physics

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/scene"
)

func TestRaycastSphere(t *testing.T) {
	result, ok := raycastSphere(mgl32.Vec3{-3, 0, 0}, mgl32.Vec3{1, 0, 0}, engine.At(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
	if !ok {
		t.Fatal("ray through the center should hit")
	}
	if !near(result.Distance, 2.5, tolerance) || !near(result.Pierce, 1, tolerance) {
		t.Errorf("Expected distance 2.5 pierce 1, got %+v", result)
	}

	if _, ok := raycastSphere(mgl32.Vec3{-3, 2, 0}, mgl32.Vec3{1, 0, 0}, engine.At(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})); ok {
		t.Error("ray passing above should miss")
	}
}

func TestRaycastRectangleRotated(t *testing.T) {
	tr := engine.At(mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
	tr.Rotation = math32.Pi / 4

	result, ok := raycastRectangle(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}, tr)
	if !ok {
		t.Fatal("ray through the diamond should hit")
	}
	if !near(result.Distance, 5-math32.Sqrt2, tolerance) {
		t.Errorf("Expected entry at the corner, got %v", result.Distance)
	}
	if !near(result.Pierce, 2*math32.Sqrt2, tolerance) {
		t.Errorf("Expected pierce across the diagonal, got %v", result.Pierce)
	}
}

func TestRaycastParallelOutsideSlab(t *testing.T) {
	tr := engine.At(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	if _, ok := raycastRectangle(mgl32.Vec3{-5, 0, 3}, mgl32.Vec3{1, 0, 0}, tr); ok {
		t.Error("ray parallel to and outside the Z slab should miss")
	}
}

func TestRaycastResultLimits(t *testing.T) {
	behind := RaycastResult{Distance: -3, Pierce: 1}
	if !behind.IsBehind() || behind.WithinLimits(10) {
		t.Error("hit fully behind the start should be behind")
	}

	inside := RaycastResult{Distance: -0.5, Pierce: 1}
	if inside.IsBehind() {
		t.Error("start inside the shape should not count as behind")
	}

	entry, exit, ok := RaycastResult{Distance: 1, Pierce: 2}.HitPoints(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0})
	if !ok || entry != (mgl32.Vec3{1, 0, 0}) || exit != (mgl32.Vec3{3, 0, 0}) {
		t.Errorf("Expected entry (1,0,0) exit (3,0,0), got %v %v %v", entry, exit, ok)
	}
}

func TestRaycastPiercesThreeTiles(t *testing.T) {
	w, _ := loadScenario(t, "s4_pierce")

	info := RaycastInfo{
		Pierce:      1.2,
		PierceScale: RaycastPierce{Kind: PierceDensity},
		Layer:       components.LayerNormal,
	}
	hits := w.Raycast(info, mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{3.5, 0.5, 0.5})

	if len(hits.Hits) != 3 {
		t.Fatalf("Expected 3 hits, got %d", len(hits.Hits))
	}
	for i, hit := range hits.Hits {
		if !hit.ID.IsTile || hit.ID.Tile != tilePos(i, 0, 0) {
			t.Errorf("Expected tile %d, got %+v", i, hit.ID)
		}
		x := hits.HitPosition(hit)[0]
		if !near(x, float32(i), tolerance) {
			t.Errorf("Expected hit %d at x=%d, got %v", i, i, x)
		}
	}
}

func TestRaycastWithoutPierceKeepsNearest(t *testing.T) {
	w, _ := loadScenario(t, "s4_pierce")

	hits := w.Raycast(RaycastInfo{Layer: components.LayerNormal}, mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{3.5, 0.5, 0.5})
	if len(hits.Hits) != 1 {
		t.Fatalf("Expected only the nearest hit, got %d", len(hits.Hits))
	}
	if hits.Hits[0].ID.Tile != tilePos(0, 0, 0) {
		t.Errorf("Expected the first tile, got %+v", hits.Hits[0].ID)
	}
}

func TestRaycastStopsAtEnd(t *testing.T) {
	w, _ := loadScenario(t, "s4_pierce")

	info := RaycastInfo{Pierce: 100, Layer: components.LayerNormal}
	hits := w.Raycast(info, mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{1.5, 0.5, 0.5})
	if len(hits.Hits) != 2 {
		t.Errorf("Expected 2 hits before the end point, got %d", len(hits.Hits))
	}

	info.IgnoreEnd = true
	hits = w.Raycast(info, mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{1.5, 0.5, 0.5})
	if len(hits.Hits) != 3 {
		t.Errorf("Expected every tile past the end point, got %d", len(hits.Hits))
	}
}

func TestRaycastEntitiesSortedAndFiltered(t *testing.T) {
	s := scene.New("test")
	w, _ := newTestWorld(s)

	far := pushBody(s, components.KindCircle, mgl32.Vec3{6, 0, 0}, mgl32.Vec3{1, 1, 1}, floating(1))
	nearest := pushBody(s, components.KindAabb, mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 1, 1}, floating(1))
	ignored := pushBody(s, components.KindCircle, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 1, 1}, floating(1))
	ghost := pushBody(s, components.KindCircle, mgl32.Vec3{4, 0, 0}, mgl32.Vec3{1, 1, 1}, floating(1))
	s.Colliders.With(ghost, func(c *components.Collider) { c.Ghost = true })
	behind := pushBody(s, components.KindCircle, mgl32.Vec3{-3, 0, 0}, mgl32.Vec3{1, 1, 1}, floating(1))

	info := RaycastInfo{
		Pierce:       10,
		PierceScale:  RaycastPierce{Kind: PierceIgnore},
		Layer:        components.LayerNormal,
		IgnoreEntity: ignored,
	}
	hits := w.Raycast(info, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{10, 0, 0})

	var got []engine.Entity
	last := math32.Inf(-1)
	for _, hit := range hits.Hits {
		if hit.Result.Distance < last {
			t.Errorf("Hits out of order: %v after %v", hit.Result.Distance, last)
		}
		last = hit.Result.Distance
		got = append(got, hit.ID.Entity)
	}

	if len(got) != 2 || got[0] != nearest || got[1] != far {
		t.Errorf("Expected [%v %v], got %v (ghost %v, behind %v)", nearest, far, got, ghost, behind)
	}
}

func TestRaycastBudgetDecreases(t *testing.T) {
	s := scene.New("test")
	w, _ := newTestWorld(s)

	for i := 0; i < 5; i++ {
		pushBody(s, components.KindAabb, mgl32.Vec3{float32(i * 2), 0, 0}, mgl32.Vec3{1, 1, 1}, floating(1))
	}

	info := RaycastInfo{Pierce: 2.5, Layer: components.LayerNormal}
	hits := w.Raycast(info, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{20, 0, 0})

	// every box costs 1, so the budget lasts three boxes
	if len(hits.Hits) != 3 {
		t.Errorf("Expected 3 hits within the budget, got %d", len(hits.Hits))
	}
}

func TestRaycastDensityUsesMass(t *testing.T) {
	s := scene.New("test")
	w, _ := newTestWorld(s)

	heavy := pushBody(s, components.KindAabb, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}, floating(5))
	pushBody(s, components.KindAabb, mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 1, 1}, floating(1))

	info := RaycastInfo{Pierce: 2, PierceScale: RaycastPierce{Kind: PierceDensity}, Layer: components.LayerNormal}
	hits := w.Raycast(info, mgl32.Vec3{-2, 0, 0}, mgl32.Vec3{5, 0, 0})
	if len(hits.Hits) != 1 || hits.Hits[0].ID.Entity != heavy {
		t.Errorf("Expected the heavy box to stop the ray, got %+v", hits.Hits)
	}

	s.Healths.Insert(heavy, components.NewHealth(10))
	info.PierceScale.IgnoreAnatomy = true
	hits = w.Raycast(info, mgl32.Vec3{-2, 0, 0}, mgl32.Vec3{5, 0, 0})
	if len(hits.Hits) != 2 {
		t.Errorf("Expected bodies with health to be free, got %d hits", len(hits.Hits))
	}
}

func TestRaycastZeroLength(t *testing.T) {
	s := scene.New("test")
	w, _ := newTestWorld(s)

	hits := w.Raycast(RaycastInfo{}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1})
	if len(hits.Hits) != 0 {
		t.Errorf("Expected no hits, got %d", len(hits.Hits))
	}
}

func TestRaycastIgnoreEndFindsHigherSlabs(t *testing.T) {
	s := scene.New("test")
	w, _ := newTestWorld(s)

	// two slabs above the end point, on the extended ray
	body := pushBody(s, components.KindCircle, mgl32.Vec3{4, 0, 2.5}, mgl32.Vec3{1, 1, 1}, floating(1))
	w.Step(0.016)

	info := RaycastInfo{
		Pierce:      10,
		PierceScale: RaycastPierce{Kind: PierceIgnore},
		Layer:       components.LayerNormal,
	}
	start, end := mgl32.Vec3{0, 0, 0.5}, mgl32.Vec3{2, 0, 1.5}

	if hits := w.Raycast(info, start, end); len(hits.Hits) != 0 {
		t.Errorf("Expected no hits before the end point, got %d", len(hits.Hits))
	}

	info.IgnoreEnd = true
	hits := w.Raycast(info, start, end)
	found := false
	for _, hit := range hits.Hits {
		if !hit.ID.IsTile && hit.ID.Entity == body {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected the body past the end point to be hit, got %v", hits.Hits)
	}
}
