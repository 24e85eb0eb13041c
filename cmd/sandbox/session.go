package main

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/damage"
	"stratum/internal/engine"
	"stratum/internal/passer"
	"stratum/internal/physics"
	"stratum/internal/scene"
	"stratum/internal/telemetry"
)

// Session is one loaded scene and everything stepping it. It does not touch
// the window, so it can run headless.
type Session struct {
	Name   string
	Loaded *scene.Loaded
	World  *physics.World
	Damage *damage.Dispatcher

	passer passer.Passer
	sink   telemetry.Sink

	Last physics.FrameStats
	Hits damage.Stats
}

// LoadScene reads a scene file when name ends in .yaml and an embedded
// scenario otherwise.
func LoadScene(name string) (*scene.File, error) {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return scene.LoadFile(name)
	}
	return scene.Scenario(name)
}

func NewSession(name string, cfg config.Physics, p passer.Passer, sink telemetry.Sink) (*Session, error) {
	file, err := LoadScene(name)
	if err != nil {
		return nil, err
	}
	if file.TileSize != cfg.TileSize {
		cfg.TileSize = file.TileSize
	}
	loaded, err := file.Build(nil)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}

	if p == nil {
		p = passer.Nop{}
	}
	if sink == nil {
		sink = telemetry.Discard{}
	}

	w := physics.NewWorld(cfg, loaded.Scene, loaded.Map)
	w.Reference = loaded.Reference
	w.OnFall.AddListener(func(f physics.FallEvent) {
		p.Send(passer.Fall{Entity: f.Entity, Magnitude: f.Magnitude})
	})

	return &Session{
		Name:   name,
		Loaded: loaded,
		World:  w,
		Damage: damage.NewDispatcher(w, p),
		passer: p,
		sink:   sink,
	}, nil
}

func (s *Session) Scene() *scene.Scene {
	return s.Loaded.Scene
}

// Step runs one frame: physics, damage, transform sync and the end of
// frame bookkeeping of the scene.
func (s *Session) Step(dt float32) physics.FrameStats {
	sc := s.Scene()

	s.Last = s.World.Step(dt)
	s.Hits = s.Damage.Update(dt)

	sc.UpdateLazy(dt)
	s.syncTransforms()
	sc.ClearChanged()
	sc.EndFrame(dt)

	s.sink.Record(s.Last)
	return s.Last
}

// syncTransforms sends every body transform that changed this frame.
func (s *Session) syncTransforms() {
	sc := s.Scene()
	sc.Physicals.Each(func(e engine.Entity, _ *components.Physical) {
		if !sc.Transforms.Changed(e) {
			return
		}
		if t, ok := sc.Transforms.Get(e); ok {
			s.passer.Send(passer.SyncTransform{Entity: e, Transform: t})
		}
	})
}

// Shoot casts a damaging ray and returns what it passed through.
func (s *Session) Shoot(start, end mgl32.Vec3, dmg float32, info physics.RaycastInfo) (physics.RaycastHits, damage.Stats) {
	ray := damage.Ray{
		Info:      info,
		Start:     start,
		End:       end,
		Damage:    dmg,
		Knockback: 1,
		Source:    s.Loaded.Reference,
	}
	if ray.Info.IgnoreEntity.IsZero() {
		ray.Info.IgnoreEntity = ray.Source
	}
	hits := s.World.Raycast(ray.Info, start, end)
	return hits, s.Damage.Raycast(ray, 1.0/60)
}

// Spawn drops a dynamic body at position. It joins the scene at the end of
// the frame.
func (s *Session) Spawn(kind components.Kind, position mgl32.Vec3, size float32) engine.Entity {
	t := engine.At(position, mgl32.Vec3{size, size, size})
	c := components.NewCollider(kind, components.LayerNormal)
	p := components.NewPhysical(size * size)
	h := components.NewHealth(3)
	return s.Scene().Push(true, scene.EntityInfo{
		Name:      "spawned",
		Transform: &t,
		Collider:  &c,
		Physical:  &p,
		Health:    &h,
	})
}
