package physics

import (
	"log"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/world"
)

// maxCellsPerAxis bounds the dense cell array when colliders are tiny.
const maxCellsPerAxis = 128

// CellKey addresses one grid cell.
type CellKey struct {
	X, Y, Z int
}

// GridEntry is one collider handed to the broad phase.
type GridEntry struct {
	Entity engine.Entity
	Bounds AABB
}

// Grid is the uniform broad phase over the simulated region around a
// reference point. Buckets hold indices into the entry array of the current
// frame; it is rebuilt from scratch every frame.
type Grid struct {
	tileSize   float32
	fixedCell  float32
	slabHeight float32
	extent     mgl32.Vec3

	region   AABB
	cellSize float32
	size     CellKey

	entries []GridEntry
	index   map[engine.Entity]uint32
	cells   [][]uint32
	slabs   [][]uint32

	stamps []uint32
	stamp  uint32

	logged map[engine.Entity]bool
}

func NewGrid(cfg config.Physics) *Grid {
	return &Grid{
		tileSize:   cfg.TileSize,
		fixedCell:  cfg.CellSize,
		slabHeight: cfg.SlabHeight,
		extent:     cfg.SimulatedExtent(),
		index:      make(map[engine.Entity]uint32),
		logged:     make(map[engine.Entity]bool),
	}
}

// Rebuild centers the region on reference and buckets every entry whose
// bounds reach into it.
func (g *Grid) Rebuild(reference mgl32.Vec3, entries []GridEntry) {
	g.region = NewAABBFromCenter(reference, g.extent)

	g.entries = g.entries[:0]
	clear(g.index)
	for _, entry := range entries {
		if !boundsFinite(entry.Bounds) {
			if !g.logged[entry.Entity] {
				g.logged[entry.Entity] = true
				log.Printf("Physics: skipping %v with non-finite bounds", entry.Entity)
			}
			continue
		}
		if !entry.Bounds.Intersects(g.region) {
			continue
		}
		g.index[entry.Entity] = uint32(len(g.entries))
		g.entries = append(g.entries, entry)
	}

	g.cellSize = g.pickCellSize()
	g.resize()

	for i, entry := range g.entries {
		lo, hi := g.cellOf(entry.Bounds.Min), g.cellOf(entry.Bounds.Max)
		for z := lo.Z; z <= hi.Z; z++ {
			g.slabs[z] = append(g.slabs[z], uint32(i))
			for y := lo.Y; y <= hi.Y; y++ {
				for x := lo.X; x <= hi.X; x++ {
					at := g.cellIndex(CellKey{x, y, z})
					g.cells[at] = append(g.cells[at], uint32(i))
				}
			}
		}
	}

	if len(g.stamps) < len(g.entries) {
		g.stamps = make([]uint32, len(g.entries))
		g.stamp = 0
	}
}

// pickCellSize uses the 90th percentile planar collider extent unless the
// configuration fixes it.
func (g *Grid) pickCellSize() float32 {
	size := g.fixedCell
	if size <= 0 {
		size = g.tileSize
		if len(g.entries) > 0 {
			extents := make([]float32, len(g.entries))
			for i, entry := range g.entries {
				d := entry.Bounds.Max.Sub(entry.Bounds.Min)
				extents[i] = math32.Max(d[0], d[1])
			}
			sort.Slice(extents, func(i, j int) bool { return extents[i] < extents[j] })
			size = math32.Max(extents[int(0.9*float32(len(extents)-1))], g.tileSize*0.25)
		}
	}

	limit := math32.Max(g.extent[0], g.extent[1]) * 2 / maxCellsPerAxis
	return math32.Max(size, limit)
}

func (g *Grid) resize() {
	size := CellKey{
		X: max(1, int(math32.Ceil(g.extent[0]*2/g.cellSize))),
		Y: max(1, int(math32.Ceil(g.extent[1]*2/g.cellSize))),
		Z: max(1, int(math32.Ceil(g.extent[2]*2/g.slabHeight))),
	}

	total := size.X * size.Y * size.Z
	if size != g.size || len(g.cells) != total {
		g.size = size
		g.cells = make([][]uint32, total)
		g.slabs = make([][]uint32, size.Z)
		return
	}

	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	for i := range g.slabs {
		g.slabs[i] = g.slabs[i][:0]
	}
}

// cellOf returns the cell containing p, clamped into the grid. Cells are
// closed on their low edge and open on their high edge.
func (g *Grid) cellOf(p mgl32.Vec3) CellKey {
	local := p.Sub(g.region.Min)
	return CellKey{
		X: clampIndex(local[0]/g.cellSize, g.size.X),
		Y: clampIndex(local[1]/g.cellSize, g.size.Y),
		Z: clampIndex(local[2]/g.slabHeight, g.size.Z),
	}
}

func (g *Grid) cellIndex(k CellKey) int {
	return (k.Z*g.size.Y+k.Y)*g.size.X + k.X
}

func clampIndex(v float32, n int) int {
	i := int(math32.Floor(v))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// PossiblePairs calls fn once for every pair of entries whose bounds
// overlap. A pair is reported only from the cell that holds the minimum
// corner of the overlap, with a ordered before b.
func (g *Grid) PossiblePairs(fn func(a, b engine.Entity)) {
	for z := 0; z < g.size.Z; z++ {
		for y := 0; y < g.size.Y; y++ {
			for x := 0; x < g.size.X; x++ {
				key := CellKey{x, y, z}
				bucket := g.cells[g.cellIndex(key)]
				for i := 0; i < len(bucket); i++ {
					ea := g.entries[bucket[i]]
					for j := i + 1; j < len(bucket); j++ {
						eb := g.entries[bucket[j]]
						if !ea.Bounds.Intersects(eb.Bounds) {
							continue
						}
						if g.cellOf(ea.Bounds.OverlapMin(eb.Bounds)) != key {
							continue
						}
						if eb.Entity.Less(ea.Entity) {
							fn(eb.Entity, ea.Entity)
						} else {
							fn(ea.Entity, eb.Entity)
						}
					}
				}
			}
		}
	}
}

// TryForEachNear visits the entities bucketed around a tile on its slab
// until fn returns false. It reports whether the walk finished.
func (g *Grid) TryForEachNear(pos world.TilePos, fn func(engine.Entity) bool) bool {
	center := pos.Center(g.tileSize)
	if _, ok := g.ZOf(center[2]); !ok || len(g.entries) == 0 {
		return true
	}

	reach := mgl32.Vec3{g.cellSize + g.tileSize/2, g.cellSize + g.tileSize/2, 0}
	lo, hi := g.cellOf(center.Sub(reach)), g.cellOf(center.Add(reach))

	g.nextStamp()
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			for _, i := range g.cells[g.cellIndex(CellKey{x, y, lo.Z})] {
				if !g.mark(i) {
					continue
				}
				if !fn(g.entries[i].Entity) {
					return false
				}
			}
		}
	}
	return true
}

// ForEachInSlabs visits every entity bucketed in the slabs covering the
// Z range once.
func (g *Grid) ForEachInSlabs(zMin, zMax float32, fn func(engine.Entity)) {
	if len(g.entries) == 0 {
		return
	}
	lo := g.cellOf(mgl32.Vec3{0, 0, zMin}).Z
	hi := g.cellOf(mgl32.Vec3{0, 0, zMax}).Z

	g.nextStamp()
	for z := lo; z <= hi; z++ {
		for _, i := range g.slabs[z] {
			if g.mark(i) {
				fn(g.entries[i].Entity)
			}
		}
	}
}

// InsideSimulated reports whether a cube of the given half size around
// position lies entirely in the simulated region.
func (g *Grid) InsideSimulated(position mgl32.Vec3, radius float32) bool {
	return g.region.Contains(NewAABBFromCenter(position, mgl32.Vec3{radius, radius, radius}))
}

// ZOf maps a world Z to its slab.
func (g *Grid) ZOf(z float32) (int, bool) {
	if z < g.region.Min[2] || z >= g.region.Max[2] {
		return 0, false
	}
	return g.cellOf(mgl32.Vec3{0, 0, z}).Z, true
}

// Bounds returns the bounds an entity was bucketed with this frame.
func (g *Grid) Bounds(e engine.Entity) (AABB, bool) {
	i, ok := g.index[e]
	if !ok {
		return AABB{}, false
	}
	return g.entries[i].Bounds, true
}

func (g *Grid) Contains(e engine.Entity) bool {
	_, ok := g.index[e]
	return ok
}

func (g *Grid) Len() int {
	return len(g.entries)
}

func (g *Grid) CellSize() float32 {
	return g.cellSize
}

func (g *Grid) Region() AABB {
	return g.region
}

func (g *Grid) nextStamp() {
	g.stamp++
	if g.stamp == 0 {
		clear(g.stamps)
		g.stamp = 1
	}
}

// mark reports whether entry i is seen for the first time this walk.
func (g *Grid) mark(i uint32) bool {
	if g.stamps[i] == g.stamp {
		return false
	}
	g.stamps[i] = g.stamp
	return true
}

func boundsFinite(b AABB) bool {
	for i := 0; i < 3; i++ {
		if !finite(b.Min[i]) || !finite(b.Max[i]) {
			return false
		}
	}
	return true
}
