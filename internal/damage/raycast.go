package damage

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/physics"
)

// Ray describes a damaging ray cast.
type Ray struct {
	Info   physics.RaycastInfo
	Start  mgl32.Vec3
	End    mgl32.Vec3
	Damage float32
	// ScalePierce scales each hit's damage by the length travelled inside
	// it, capped at full damage. Zero deals full damage to every hit.
	ScalePierce float32
	Knockback   float32
	Source      engine.Entity
}

// Raycast casts r and damages every hit it returns, nearest first. The last
// hit has no exit point.
func (d *Dispatcher) Raycast(r Ray, dt float32) Stats {
	info := r.Info
	if info.IgnoreEntity.IsZero() {
		info.IgnoreEntity = r.Source
	}
	hits := d.world.Raycast(info, r.Start, r.End)

	var stats Stats
	planar := direction(mgl32.Vec3{}, hits.Direction)
	for i, h := range hits.Hits {
		amount := r.Damage
		if r.ScalePierce > 0 {
			amount *= math32.Min(h.Result.Pierce*r.ScalePierce, 1)
		}

		entry, exit, hasExit := h.Result.HitPoints(hits.Start, hits.Direction)
		if i == len(hits.Hits)-1 {
			hasExit = false
		}

		strength := float32(1)
		if hasExit {
			strength = throughStrength
		}

		stats.add(d.apply(Hit{
			ID:        h.ID,
			Source:    r.Source,
			Amount:    amount,
			Direction: planar,
			Knockback: r.Knockback,
			Strength:  strength,
			Entry:     entry,
			Exit:      exit,
			HasExit:   hasExit,
		}, dt))
	}
	return stats
}

// RaycastFrom builds a ray from a Damaging component and casts it from the
// source's position toward target.
func (d *Dispatcher) RaycastFrom(source engine.Entity, dmg components.Damaging, info physics.RaycastInfo, target mgl32.Vec3, dt float32) Stats {
	t, ok := d.scene.Target(source)
	if !ok {
		return Stats{}
	}
	return d.Raycast(Ray{
		Info:      info,
		Start:     t.Position,
		End:       target,
		Damage:    dmg.Damage,
		Knockback: dmg.Knockback,
		Source:    source,
	}, dt)
}
