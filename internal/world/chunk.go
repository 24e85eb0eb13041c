package world

import (
	"fmt"
	"sort"
)

// ChunkSize is the edge length of a chunk in tiles.
const ChunkSize = 16

const chunkVolume = ChunkSize * ChunkSize * ChunkSize

type ChunkPos struct {
	X, Y, Z int
}

func (c ChunkPos) less(other ChunkPos) bool {
	return TilePos(c).Less(TilePos(other))
}

// ChunkOf returns the chunk containing pos.
func ChunkOf(pos TilePos) ChunkPos {
	return ChunkPos{X: floorDiv(pos.X, ChunkSize), Y: floorDiv(pos.Y, ChunkSize), Z: floorDiv(pos.Z, ChunkSize)}
}

type chunk struct {
	tiles [chunkVolume]Tile
	solid int
}

func localIndex(pos TilePos) int {
	x := floorMod(pos.X, ChunkSize)
	y := floorMod(pos.Y, ChunkSize)
	z := floorMod(pos.Z, ChunkSize)
	return (z*ChunkSize+y)*ChunkSize + x
}

// Map is a chunked in-memory World. Only loaded chunks answer tile queries;
// an open map treats every chunk as loaded and empty until written.
type Map struct {
	tileSize float32
	infos    []TileInfo
	chunks   map[ChunkPos]*chunk
	open     bool

	iterating int

	// OnChange is called after a tile is modified.
	OnChange func(pos TilePos, before, after Tile)
}

func NewMap(tileSize float32, infos []TileInfo) *Map {
	if infos == nil {
		infos = DefaultTileInfos()
	}
	return &Map{
		tileSize: tileSize,
		infos:    infos,
		chunks:   make(map[ChunkPos]*chunk),
	}
}

// NewOpenMap creates a map with no chunk boundaries.
func NewOpenMap(tileSize float32, infos []TileInfo) *Map {
	m := NewMap(tileSize, infos)
	m.open = true
	return m
}

func (m *Map) TileSize() float32 {
	return m.tileSize
}

func (m *Map) TileInfos() []TileInfo {
	return m.infos
}

func (m *Map) LoadChunk(pos ChunkPos) {
	if _, ok := m.chunks[pos]; !ok {
		m.chunks[pos] = &chunk{}
	}
}

// LoadArea loads every chunk overlapping the inclusive tile range.
func (m *Map) LoadArea(min, max TilePos) {
	lo, hi := ChunkOf(min), ChunkOf(max)
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				m.LoadChunk(ChunkPos{X: x, Y: y, Z: z})
			}
		}
	}
}

func (m *Map) UnloadChunk(pos ChunkPos) {
	m.checkNotIterating(TilePos(pos))
	delete(m.chunks, pos)
}

func (m *Map) ChunkCount() int {
	return len(m.chunks)
}

func (m *Map) InsideChunk(pos TilePos) bool {
	if m.open {
		return true
	}
	_, ok := m.chunks[ChunkOf(pos)]
	return ok
}

func (m *Map) Tile(pos TilePos) (Tile, bool) {
	c, ok := m.chunks[ChunkOf(pos)]
	if !ok {
		return Tile{}, m.open
	}
	return c.tiles[localIndex(pos)], true
}

// TileInfo looks up the registry entry for tile. An id outside the registry
// is a programmer error and panics.
func (m *Map) TileInfo(tile Tile) TileInfo {
	if int(tile.ID) >= len(m.infos) {
		panic(fmt.Sprintf("world: tile id %d outside registry of %d", tile.ID, len(m.infos)))
	}
	return m.infos[tile.ID]
}

// NewTile builds a tile of kind id with the registry's default health.
func (m *Map) NewTile(id TileID) Tile {
	return Tile{ID: id, Health: m.TileInfo(Tile{ID: id}).Health}
}

// SetTile overwrites the tile at pos. It returns false if pos is not loaded.
func (m *Map) SetTile(pos TilePos, tile Tile) bool {
	return m.ModifyTile(pos, func(t *Tile) { *t = tile })
}

// Fill sets every tile in the inclusive range to a fresh tile of kind id.
func (m *Map) Fill(min, max TilePos, id TileID) {
	tile := m.NewTile(id)
	for z := min.Z; z <= max.Z; z++ {
		for y := min.Y; y <= max.Y; y++ {
			for x := min.X; x <= max.X; x++ {
				m.SetTile(TilePos{X: x, Y: y, Z: z}, tile)
			}
		}
	}
}

// ModifyTile is the only mutation entry point. Modifying while ForEachTile is
// running panics.
func (m *Map) ModifyTile(pos TilePos, fn func(*Tile)) bool {
	m.checkNotIterating(pos)

	key := ChunkOf(pos)
	c, ok := m.chunks[key]
	if !ok {
		if !m.open {
			return false
		}
		c = &chunk{}
		m.chunks[key] = c
	}

	at := localIndex(pos)
	before := c.tiles[at]
	fn(&c.tiles[at])
	after := c.tiles[at]

	if before.IsAir() != after.IsAir() {
		if after.IsAir() {
			c.solid--
		} else {
			c.solid++
		}
	}

	if m.OnChange != nil && before != after {
		m.OnChange(pos, before, after)
	}
	return true
}

// ForEachTile visits every non-air tile of every loaded chunk in canonical
// order until fn returns false.
func (m *Map) ForEachTile(fn func(TilePos, Tile) bool) {
	keys := make([]ChunkPos, 0, len(m.chunks))
	for k, c := range m.chunks {
		if c.solid > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	m.iterating++
	defer func() { m.iterating-- }()

	for _, k := range keys {
		c := m.chunks[k]
		base := TilePos{X: k.X * ChunkSize, Y: k.Y * ChunkSize, Z: k.Z * ChunkSize}
		for x := 0; x < ChunkSize; x++ {
			for y := 0; y < ChunkSize; y++ {
				for z := 0; z < ChunkSize; z++ {
					pos := base.Offset(x, y, z)
					tile := c.tiles[localIndex(pos)]
					if tile.IsAir() {
						continue
					}
					if !fn(pos, tile) {
						return
					}
				}
			}
		}
	}
}

func (m *Map) checkNotIterating(pos TilePos) {
	if m.iterating > 0 {
		panic(fmt.Sprintf("world: structural change at %v during tile iteration", pos))
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

// TileID looks a tile kind up by name.
func (m *Map) TileID(name string) (TileID, bool) {
	for i, info := range m.infos {
		if info.Name == name {
			return TileID(i), true
		}
	}
	return Air, false
}
