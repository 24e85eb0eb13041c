package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestTilePosAtNegative(t *testing.T) {
	tests := []struct {
		position mgl32.Vec3
		want     TilePos
	}{
		{mgl32.Vec3{0.5, 0.5, 0.5}, TilePos{0, 0, 0}},
		{mgl32.Vec3{-0.5, 1.0, -0.0001}, TilePos{-1, 1, -1}},
		{mgl32.Vec3{2.99, -2.0, 0}, TilePos{2, -2, 0}},
	}

	for _, tt := range tests {
		if got := TilePosAt(tt.position, 1); got != tt.want {
			t.Errorf("TilePosAt(%v): expected %v, got %v", tt.position, tt.want, got)
		}
	}
}

func TestMapLoadedChunks(t *testing.T) {
	m := NewMap(1, nil)

	pos := TilePos{X: -3, Y: 4, Z: 0}
	if m.InsideChunk(pos) {
		t.Fatal("empty map should have no loaded chunks")
	}
	if _, ok := m.Tile(pos); ok {
		t.Error("unloaded tile should report not ok")
	}
	if !Solid(m, pos) {
		t.Error("unloaded tiles should block")
	}
	if m.SetTile(pos, m.NewTile(1)) {
		t.Error("SetTile should fail outside loaded chunks")
	}

	m.LoadArea(pos, pos)
	if !m.SetTile(pos, m.NewTile(1)) {
		t.Fatal("SetTile should succeed after loading")
	}
	tile, ok := m.Tile(pos)
	if !ok || tile.ID != 1 || tile.Health != 1 {
		t.Errorf("Expected stone with health 1, got %+v (ok=%v)", tile, ok)
	}
	if Solid(m, pos.Offset(1, 0, 0)) {
		t.Error("loaded air should not block")
	}
}

func TestNeighbours(t *testing.T) {
	m := NewOpenMap(1, nil)
	m.Fill(TilePos{0, 0, 0}, TilePos{2, 0, 0}, 1)

	d := Neighbours(m, TilePos{1, 0, 0})
	if !d.Left || !d.Right || d.Up || d.Down {
		t.Errorf("Expected left and right neighbours only, got %+v", d)
	}
	if d.All() {
		t.Error("All should be false")
	}
	low, high := d.Axis(0)
	if !low || !high {
		t.Error("Axis(0) should report both X neighbours")
	}
}

func TestModifyDuringIterationPanics(t *testing.T) {
	m := NewOpenMap(1, nil)
	m.Fill(TilePos{0, 0, 0}, TilePos{1, 0, 0}, 1)

	defer func() {
		if recover() == nil {
			t.Error("modifying during ForEachTile should panic")
		}
	}()

	m.ForEachTile(func(pos TilePos, _ Tile) bool {
		m.SetTile(pos, Tile{})
		return true
	})
}

func TestModifyGeneric(t *testing.T) {
	m := NewOpenMap(1, nil)
	pos := TilePos{5, 5, 5}
	m.SetTile(pos, m.NewTile(2))

	var changed []TilePos
	m.OnChange = func(p TilePos, _, _ Tile) { changed = append(changed, p) }

	left, ok := Modify(m, pos, func(tile *Tile) float32 {
		tile.Health -= 0.2
		return tile.Health
	})
	if !ok || left < 0.29 || left > 0.31 {
		t.Errorf("Expected 0.3 health left, got %v (ok=%v)", left, ok)
	}
	if len(changed) != 1 || changed[0] != pos {
		t.Errorf("Expected one change at %v, got %v", pos, changed)
	}

	count := 0
	m.ForEachTile(func(TilePos, Tile) bool { count++; return true })
	if count != 1 {
		t.Errorf("Expected 1 tile, got %d", count)
	}
}
