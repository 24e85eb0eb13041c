package world

// World is the tile query surface the physics core consumes.
type World interface {
	// Tile returns the tile at pos. ok is false when pos lies in a chunk
	// that is not loaded.
	Tile(pos TilePos) (tile Tile, ok bool)
	TileInfo(tile Tile) TileInfo
	InsideChunk(pos TilePos) bool
	// ModifyTile runs fn on the tile at pos and reports whether it was loaded.
	ModifyTile(pos TilePos, fn func(*Tile)) bool
	TileSize() float32
}

// Modify runs fn on the tile at pos and returns its result.
func Modify[T any](w World, pos TilePos, fn func(*Tile) T) (T, bool) {
	var out T
	ok := w.ModifyTile(pos, func(tile *Tile) {
		out = fn(tile)
	})
	return out, ok
}

// Solid reports whether pos blocks movement. Unloaded tiles block.
func Solid(w World, pos TilePos) bool {
	tile, ok := w.Tile(pos)
	if !ok {
		return true
	}
	return w.TileInfo(tile).Solid
}

// Neighbours returns which planar neighbours of pos are solid.
func Neighbours(w World, pos TilePos) Directions {
	return Directions{
		Left:  Solid(w, pos.Offset(-1, 0, 0)),
		Right: Solid(w, pos.Offset(1, 0, 0)),
		Down:  Solid(w, pos.Offset(0, -1, 0)),
		Up:    Solid(w, pos.Offset(0, 1, 0)),
	}
}
