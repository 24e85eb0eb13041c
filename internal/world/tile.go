package world

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// TilePos indexes the tile grid. A tile at (x, y, z) spans
// [x*size, (x+1)*size) on each axis.
type TilePos struct {
	X, Y, Z int
}

// TilePosAt returns the tile containing position.
func TilePosAt(position mgl32.Vec3, tileSize float32) TilePos {
	return TilePos{
		X: int(math32.Floor(position[0] / tileSize)),
		Y: int(math32.Floor(position[1] / tileSize)),
		Z: int(math32.Floor(position[2] / tileSize)),
	}
}

// Position is the minimum corner of the tile.
func (p TilePos) Position(tileSize float32) mgl32.Vec3 {
	return mgl32.Vec3{float32(p.X) * tileSize, float32(p.Y) * tileSize, float32(p.Z) * tileSize}
}

func (p TilePos) Center(tileSize float32) mgl32.Vec3 {
	half := tileSize / 2
	return p.Position(tileSize).Add(mgl32.Vec3{half, half, half})
}

func (p TilePos) Offset(dx, dy, dz int) TilePos {
	return TilePos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Less is the canonical lexicographic (x, y, z) ordering.
func (p TilePos) Less(other TilePos) bool {
	if p.X != other.X {
		return p.X < other.X
	}
	if p.Y != other.Y {
		return p.Y < other.Y
	}
	return p.Z < other.Z
}

func (p TilePos) String() string {
	return fmt.Sprintf("Tile(%d, %d, %d)", p.X, p.Y, p.Z)
}

// TileID selects a TileInfo from the map's registry. ID 0 is air.
type TileID uint16

const Air TileID = 0

// Tile is one cell of the world grid.
type Tile struct {
	ID     TileID
	Health float32
}

func (t Tile) IsAir() bool {
	return t.ID == Air
}

// TileInfo describes a tile kind.
type TileInfo struct {
	Name        string  `yaml:"name"`
	Solid       bool    `yaml:"solid"`
	Transparent bool    `yaml:"transparent"`
	Health      float32 `yaml:"health"`
}

// DefaultTileInfos is the registry used when a map is created without one.
func DefaultTileInfos() []TileInfo {
	return []TileInfo{
		{Name: "air", Transparent: true},
		{Name: "stone", Solid: true, Health: 1},
		{Name: "dirt", Solid: true, Health: 0.5},
		{Name: "glass", Solid: true, Transparent: true, Health: 0.2},
		{Name: "grass", Transparent: true},
	}
}

// Directions records which of a tile's four planar neighbours are solid.
type Directions struct {
	Left  bool // -X
	Right bool // +X
	Down  bool // -Y
	Up    bool // +Y
}

// All reports whether every planar neighbour is solid.
func (d Directions) All() bool {
	return d.Left && d.Right && d.Down && d.Up
}

// Axis returns the (negative, positive) neighbours along axis 0 (X) or 1 (Y).
func (d Directions) Axis(i int) (low, high bool) {
	if i == 0 {
		return d.Left, d.Right
	}
	return d.Down, d.Up
}
