package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/passer"
	"stratum/internal/physics"
	"stratum/internal/world"
)

type recorder struct {
	frames []physics.FrameStats
}

func (r *recorder) Record(stats physics.FrameStats) {
	r.frames = append(r.frames, stats)
}

func kinds(messages []passer.Message) map[passer.Kind]int {
	counts := make(map[passer.Kind]int)
	for _, m := range messages {
		counts[m.Kind()]++
	}
	return counts
}

func TestSessionSyncsMovingBodies(t *testing.T) {
	q := passer.NewQueue()
	rec := &recorder{}
	s, err := NewSession("s1_circles", config.Default(), q, rec)
	if err != nil {
		t.Fatal(err)
	}

	stats := s.Step(s.Loaded.DeltaTime)
	if stats.Frame != 1 || len(rec.frames) != 1 {
		t.Errorf("Expected frame 1 recorded, got %d with %d records", stats.Frame, len(rec.frames))
	}

	// both circles move toward each other
	if got := kinds(q.Drain())[passer.KindSyncTransform]; got != 2 {
		t.Errorf("Expected 2 SyncTransform messages, got %d", got)
	}
}

func TestSessionReportsFall(t *testing.T) {
	q := passer.NewQueue()
	s, err := NewSession("s2_floor", config.Default(), q, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < s.Loaded.Frames; i++ {
		s.Step(s.Loaded.DeltaTime)
	}

	if got := kinds(q.Drain())[passer.KindFall]; got != 1 {
		t.Errorf("Expected 1 Fall message, got %d", got)
	}
}

func TestSessionShootBreaksTiles(t *testing.T) {
	q := passer.NewQueue()
	s, err := NewSession("s4_pierce", config.Default(), q, nil)
	if err != nil {
		t.Fatal(err)
	}

	info := physics.RaycastInfo{
		Pierce:      1.2,
		PierceScale: physics.RaycastPierce{Kind: physics.PierceDensity},
		Layer:       components.LayerNormal,
	}
	hits, stats := s.Shoot(mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{3.5, 0.5, 0.5}, 1, info)

	if len(hits.Hits) != 3 || stats.Destroyed != 3 {
		t.Fatalf("Expected 3 tiles hit and destroyed, got %d hits and %+v", len(hits.Hits), stats)
	}
	if tile, _ := s.Loaded.Map.Tile(world.TilePos{X: 2}); !tile.IsAir() {
		t.Errorf("Expected the last tile destroyed, got %+v", tile)
	}
	if got := kinds(q.Drain())[passer.KindSetTile]; got != 3 {
		t.Errorf("Expected 3 SetTile messages, got %d", got)
	}
}

func TestSessionSpawnJoinsAtEndOfFrame(t *testing.T) {
	s, err := NewSession("s5_ghost", config.Default(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	e := s.Spawn(components.KindCircle, mgl32.Vec3{10, 10, 0.5}, 0.5)
	if s.Scene().Exists(e) {
		t.Error("spawned body should wait for the end of the frame")
	}
	s.Step(1.0 / 60)
	if !s.Scene().Exists(e) {
		t.Error("spawned body should exist after a step")
	}
}

func TestSessionUnknownScene(t *testing.T) {
	if _, err := NewSession("no_such_scene", config.Default(), nil, nil); err == nil {
		t.Error("Expected an error for an unknown scenario")
	}
}
