package physics

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/world"
)

// Pierce selects how much of the pierce budget a hit uses up.
type Pierce uint8

const (
	// PierceNone costs the length travelled inside the hit.
	PierceNone Pierce = iota
	// PierceIgnore makes every hit free.
	PierceIgnore
	// PierceDensity scales the length by tile health or body density.
	PierceDensity
)

type RaycastPierce struct {
	Kind Pierce
	// IgnoreAnatomy makes bodies with health free under PierceDensity.
	IgnoreAnatomy bool
}

type RaycastInfo struct {
	// Pierce is the budget; 0 keeps only the nearest hit.
	Pierce       float32
	PierceScale  RaycastPierce
	Layer        components.Layer
	IgnoreEntity engine.Entity
	// IgnoreEnd keeps hits past the end point.
	IgnoreEnd bool
}

// RaycastResult places a hit along the ray: it enters at Distance and
// travels Pierce inside the shape.
type RaycastResult struct {
	Distance float32
	Pierce   float32
}

func (r RaycastResult) IsBehind() bool {
	return r.Distance+r.Pierce < 0
}

func (r RaycastResult) WithinLimits(magnitude float32) bool {
	return r.Distance <= magnitude && !r.IsBehind()
}

// HitPoints returns the entry point and, for hits with depth, the exit point.
func (r RaycastResult) HitPoints(start, direction mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3, bool) {
	entry := start.Add(direction.Mul(r.Distance))
	if r.Pierce == 0 {
		return entry, mgl32.Vec3{}, false
	}
	return entry, start.Add(direction.Mul(r.Distance + r.Pierce)), true
}

type RaycastHit struct {
	ID     components.DamagedID
	Result RaycastResult
}

type RaycastHits struct {
	Start     mgl32.Vec3
	Direction mgl32.Vec3
	Hits      []RaycastHit
}

func (h RaycastHits) HitPosition(hit RaycastHit) mgl32.Vec3 {
	entry, _, _ := hit.Result.HitPoints(h.Start, h.Direction)
	return entry
}

// Raycast casts from start toward end against entity colliders and solid
// tiles. Hits come back nearest first, truncated by the pierce budget.
func (w *World) Raycast(info RaycastInfo, start, end mgl32.Vec3) RaycastHits {
	offset := end.Sub(start)
	maxDistance := offset.Len()
	if maxDistance == 0 || !finite(maxDistance) {
		return RaycastHits{Start: start}
	}
	direction := offset.Mul(1 / maxDistance)

	hits := w.raycastEntities(info, start, direction, maxDistance)

	limit := maxDistance
	if info.IgnoreEnd {
		limit = math32.Max(maxDistance, w.cfg.SimulatedExtent().Len()*2)
	}
	budget := info.Pierce
	w.raycastTiles(start, direction, limit, func(tile world.Tile, hit RaycastHit) bool {
		hits = append(hits, hit)
		if info.Pierce > 0 {
			budget -= hit.Result.Pierce * w.tileCost(tile, info.PierceScale)
			if budget <= 0 {
				return false
			}
		}
		return true
	})

	sort.SliceStable(hits, func(i, j int) bool {
		return hitLess(hits[i], hits[j])
	})

	if info.Pierce <= 0 {
		if len(hits) > 1 {
			hits = hits[:1]
		}
		return RaycastHits{Start: start, Direction: direction, Hits: hits}
	}

	left := info.Pierce
	kept := 0
	for _, hit := range hits {
		if left <= 0 {
			break
		}
		left -= hit.Result.Pierce * w.hitCost(hit.ID, info.PierceScale)
		kept++
	}

	return RaycastHits{Start: start, Direction: direction, Hits: hits[:kept]}
}

// hitLess orders by distance, entities before tiles at equal distance, then
// by id.
func hitLess(a, b RaycastHit) bool {
	if a.Result.Distance != b.Result.Distance {
		return a.Result.Distance < b.Result.Distance
	}
	if a.ID.IsTile != b.ID.IsTile {
		return !a.ID.IsTile
	}
	if a.ID.IsTile {
		return a.ID.Tile.Less(b.ID.Tile)
	}
	return a.ID.Entity.Less(b.ID.Entity)
}

func (w *World) raycastEntities(info RaycastInfo, start, direction mgl32.Vec3, maxDistance float32) []RaycastHit {
	var hits []RaycastHit

	check := func(e engine.Entity) {
		c, ok := w.scene.Colliders.Get(e)
		if !ok || c.Ghost || !c.Layer.Collides(info.Layer) || e == info.IgnoreEntity {
			return
		}
		target, ok := w.scene.Target(e)
		if !ok {
			w.invariant("collider %v has no transform", e)
			return
		}

		result, ok := raycastShape(start, direction, c.Kind, c.EffectiveTransform(target))
		if !ok || result.IsBehind() {
			return
		}
		if result.Distance > maxDistance && !info.IgnoreEnd {
			return
		}
		hits = append(hits, RaycastHit{ID: components.DamagedEntity(e), Result: result})
	}

	end := start.Add(direction.Mul(maxDistance))
	if !info.IgnoreEnd && w.frame > 0 && w.grid.InsideSimulated(start, 0) && w.grid.InsideSimulated(end, 0) {
		w.grid.ForEachInSlabs(math32.Min(start[2], end[2]), math32.Max(start[2], end[2]), check)
	} else {
		for _, e := range w.scene.Colliders.Entities() {
			check(e)
		}
	}

	return hits
}

func (w *World) tileCost(tile world.Tile, scale RaycastPierce) float32 {
	switch scale.Kind {
	case PierceIgnore:
		return 0
	case PierceDensity:
		return w.tiles.TileInfo(tile).Health
	default:
		return 1
	}
}

func (w *World) hitCost(id components.DamagedID, scale RaycastPierce) float32 {
	switch scale.Kind {
	case PierceIgnore:
		return 0
	case PierceNone:
		return 1
	}

	if id.IsTile {
		tile, ok := w.tiles.Tile(id.Tile)
		if !ok {
			return 1
		}
		return w.tiles.TileInfo(tile).Health
	}

	if scale.IgnoreAnatomy && w.scene.Healths.Has(id.Entity) {
		return 0
	}
	p, ok := w.scene.Physicals.Get(id.Entity)
	if !ok {
		return 1
	}
	volume := float32(1)
	if t, ok := w.scene.Target(id.Entity); ok {
		volume = t.Scale[0] * t.Scale[1] * t.Scale[2]
	}
	return volume * p.Mass()
}

// raycastTiles walks the tile grid from start along direction until fn
// returns false, the walk passes limit or it reaches an unloaded tile. fn
// sees every solid tile crossed.
func (w *World) raycastTiles(start, direction mgl32.Vec3, limit float32, fn func(world.Tile, RaycastHit) bool) {
	size := w.cfg.TileSize
	pos := world.TilePosAt(start, size)
	inside := start.Sub(pos.Position(size))

	for {
		tile, ok := w.tiles.Tile(pos)
		if !ok {
			return
		}

		entry := pos.Position(size).Add(inside)
		distance := entry.Sub(start).Len()
		if distance > limit {
			return
		}

		axis := 0
		var amounts [3]float32
		for i := 0; i < 3; i++ {
			d := direction[i]
			if d == 0 {
				amounts[i] = math32.Inf(1)
			} else if d < 0 {
				amounts[i] = inside[i] / -d
			} else {
				amounts[i] = (size - inside[i]) / d
			}
			if amounts[i] < amounts[axis] {
				axis = i
			}
		}
		step := amounts[axis]

		if w.tiles.TileInfo(tile).Solid {
			hit := RaycastHit{
				ID:     components.DamagedTile(pos),
				Result: RaycastResult{Distance: distance, Pierce: step},
			}
			if !fn(tile, hit) {
				return
			}
		}

		inside = inside.Add(direction.Mul(step))
		if direction[axis] < 0 {
			inside[axis] = size
			pos = pos.Offset(axisOffset(axis, -1))
		} else {
			inside[axis] = 0
			pos = pos.Offset(axisOffset(axis, 1))
		}
	}
}

func axisOffset(axis, d int) (int, int, int) {
	switch axis {
	case 0:
		return d, 0, 0
	case 1:
		return 0, d, 0
	default:
		return 0, 0, d
	}
}

// raycastShape tests one collider. Vertical rays and tiles are never hit.
func raycastShape(start, direction mgl32.Vec3, kind components.Kind, t engine.Transform) (RaycastResult, bool) {
	switch kind {
	case components.KindCircle:
		return raycastSphere(start, direction, t)
	case components.KindAabb, components.KindRectangle:
		return raycastRectangle(start, direction, t)
	default:
		return RaycastResult{}, false
	}
}

func raycastSphere(start, direction mgl32.Vec3, t engine.Transform) (RaycastResult, bool) {
	radius := t.MaxScale() / 2
	offset := start.Sub(t.Position)

	along := direction.Dot(offset)
	discriminant := along*along - (offset.LenSqr() - radius*radius)
	if discriminant < 0 {
		return RaycastResult{}, false
	}

	root := math32.Sqrt(discriminant)
	return RaycastResult{Distance: -along - root, Pierce: 2 * root}, true
}

// raycastRectangle intersects the ray with the three slabs of the rotated
// box and keeps the overlap of the intervals.
func raycastRectangle(start, direction mgl32.Vec3, t engine.Transform) (RaycastResult, bool) {
	point := start.Sub(t.Position)
	sin, cos := math32.Sincos(t.Rotation)
	axes := [3]mgl32.Vec3{{cos, sin, 0}, {-sin, cos, 0}, {0, 0, 1}}

	enter := math32.Inf(-1)
	exit := math32.Inf(1)
	for i, axis := range axes {
		lo, hi, ok := slabInterval(point, direction, axis, t.Scale[i])
		if !ok {
			return RaycastResult{}, false
		}
		enter = math32.Max(enter, lo)
		exit = math32.Min(exit, hi)
	}

	if enter > exit {
		return RaycastResult{}, false
	}
	return RaycastResult{Distance: enter, Pierce: exit - enter}, true
}

// slabInterval is the range of ray distances inside the slab of the given
// thickness centered on the origin.
func slabInterval(point, direction, normal mgl32.Vec3, thickness float32) (float32, float32, bool) {
	half := math32.Abs(thickness) / 2
	along := direction.Dot(normal)
	offset := point.Dot(normal)

	if math32.Abs(along) < 1e-9 {
		if math32.Abs(offset) > half {
			return 0, 0, false
		}
		return math32.Inf(-1), math32.Inf(1), true
	}

	a := (-half - offset) / along
	b := (half - offset) / along
	return math32.Min(a, b), math32.Max(a, b), true
}
