package physics

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/config"
	"stratum/internal/engine"
)

func randomEntries(r *rand.Rand, n int) []GridEntry {
	entries := make([]GridEntry, n)
	for i := range entries {
		center := mgl32.Vec3{
			r.Float32()*20 - 10,
			r.Float32()*20 - 10,
			r.Float32()*4 - 2,
		}
		half := mgl32.Vec3{
			0.05 + r.Float32()*1.5,
			0.05 + r.Float32()*1.5,
			0.5,
		}
		entries[i] = GridEntry{
			Entity: engine.Entity{Index: uint32(i + 1), Generation: 1},
			Bounds: NewAABBFromCenter(center, half),
		}
	}
	return entries
}

type pairKey struct {
	a, b engine.Entity
}

func TestGridPairsComplete(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	entries := randomEntries(r, 300)

	g := NewGrid(config.Default())
	g.Rebuild(mgl32.Vec3{}, entries)

	got := make(map[pairKey]int)
	g.PossiblePairs(func(a, b engine.Entity) {
		if !a.Less(b) {
			t.Errorf("Expected ordered pair, got %v %v", a, b)
		}
		got[pairKey{a, b}]++
	})

	want := 0
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if !entries[i].Bounds.Intersects(entries[j].Bounds) {
				continue
			}
			want++
			key := pairKey{entries[i].Entity, entries[j].Entity}
			if got[key] != 1 {
				t.Errorf("Expected pair %v reported once, got %d", key, got[key])
			}
		}
	}

	if len(got) != want {
		t.Errorf("Expected %d pairs, got %d", want, len(got))
	}
}

func TestGridFixedCellSize(t *testing.T) {
	cfg := config.Default()
	cfg.CellSize = 4

	g := NewGrid(cfg)
	g.Rebuild(mgl32.Vec3{}, randomEntries(rand.New(rand.NewSource(1)), 10))
	if g.CellSize() != 4 {
		t.Errorf("Expected cell size 4, got %v", g.CellSize())
	}
}

func TestGridDerivedCellSizeHasFloor(t *testing.T) {
	cfg := config.Default()
	g := NewGrid(cfg)

	tiny := []GridEntry{{
		Entity: engine.Entity{Index: 1, Generation: 1},
		Bounds: NewAABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{0.01, 0.01, 0.01}),
	}}
	g.Rebuild(mgl32.Vec3{}, tiny)

	if g.CellSize() < cfg.TileSize*0.25 {
		t.Errorf("Expected cell size of at least %v, got %v", cfg.TileSize*0.25, g.CellSize())
	}
}

func TestGridSkipsNonFinite(t *testing.T) {
	g := NewGrid(config.Default())
	nan := math32.NaN()
	entries := []GridEntry{
		{Entity: engine.Entity{Index: 1, Generation: 1}, Bounds: NewAABBFromCenter(mgl32.Vec3{nan, 0, 0}, mgl32.Vec3{1, 1, 1})},
		{Entity: engine.Entity{Index: 2, Generation: 1}, Bounds: NewAABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})},
	}
	g.Rebuild(mgl32.Vec3{}, entries)

	if g.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", g.Len())
	}
	if g.Contains(entries[0].Entity) {
		t.Error("non-finite entry should be skipped")
	}
}

func TestGridDropsOutsideRegion(t *testing.T) {
	g := NewGrid(config.Default())
	far := GridEntry{
		Entity: engine.Entity{Index: 1, Generation: 1},
		Bounds: NewAABBFromCenter(mgl32.Vec3{500, 0, 0}, mgl32.Vec3{1, 1, 1}),
	}
	g.Rebuild(mgl32.Vec3{}, []GridEntry{far})
	if g.Contains(far.Entity) {
		t.Error("entry outside the simulated region should not be bucketed")
	}

	g.Rebuild(mgl32.Vec3{500, 0, 0}, []GridEntry{far})
	if !g.Contains(far.Entity) {
		t.Error("region should follow the reference")
	}
}

func TestGridSlabsAndNear(t *testing.T) {
	g := NewGrid(config.Default())
	low := GridEntry{Entity: engine.Entity{Index: 1, Generation: 1}, Bounds: NewAABBFromCenter(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0.4, 0.4, 0.4})}
	high := GridEntry{Entity: engine.Entity{Index: 2, Generation: 1}, Bounds: NewAABBFromCenter(mgl32.Vec3{0.5, 0.5, 2.5}, mgl32.Vec3{0.4, 0.4, 0.4})}
	g.Rebuild(mgl32.Vec3{}, []GridEntry{low, high})

	var seen []engine.Entity
	g.ForEachInSlabs(0, 1, func(e engine.Entity) { seen = append(seen, e) })
	if len(seen) != 1 || seen[0] != low.Entity {
		t.Errorf("Expected only the low entry, got %v", seen)
	}

	visited := 0
	finished := g.TryForEachNear(tilePos(0, 0, 0), func(e engine.Entity) bool {
		visited++
		return false
	})
	if finished || visited != 1 {
		t.Errorf("Expected early stop after 1 visit, got finished=%v visited=%d", finished, visited)
	}
}

func TestGridInsideSimulated(t *testing.T) {
	cfg := config.Default()
	g := NewGrid(cfg)
	g.Rebuild(mgl32.Vec3{}, nil)

	if !g.InsideSimulated(mgl32.Vec3{}, 1) {
		t.Error("origin should be inside the simulated region")
	}
	edge := cfg.SimulatedExtent()[0]
	if g.InsideSimulated(mgl32.Vec3{edge, 0, 0}, 1) {
		t.Error("body straddling the edge should be outside")
	}
}
