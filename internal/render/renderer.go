// Package render draws a debug view of the physics world with raylib.
package render

import (
	"github.com/go-gl/mathgl/mgl32"

	rl "github.com/gen2brain/raylib-go/raylib"

	"stratum/internal/camera"
	"stratum/internal/components"
	"stratum/internal/physics"
	"stratum/internal/world"
)

var styleColors = [...]rl.Color{
	StyleDynamic:  rl.SkyBlue,
	StyleStatic:   rl.Gray,
	StyleSleeping: rl.DarkBlue,
	StyleGhost:    rl.Fade(rl.Purple, 0.6),
}

var tileColors = map[string]rl.Color{
	"stone": rl.Gray,
	"dirt":  rl.Brown,
	"glass": rl.Fade(rl.SkyBlue, 0.4),
	"grass": rl.Fade(rl.Green, 0.5),
}

// Renderer draws one Z slab of the world seen from above. The slab below
// the camera layer is drawn dimmed as the floor.
type Renderer struct {
	ShowTiles    bool
	ShowFloor    bool
	ShowContacts bool
	ShowGrid     bool
	ShowRays     bool

	Trails Trails
}

func NewRenderer() *Renderer {
	return &Renderer{
		ShowTiles:    true,
		ShowFloor:    true,
		ShowContacts: true,
		ShowRays:     true,
		Trails:       Trails{Lifetime: 0.5},
	}
}

// Draw renders the world through cam. It must be called between
// rl.BeginDrawing and rl.EndDrawing.
func (r *Renderer) Draw(w *physics.World, tiles *world.Map, cam *camera.TopDown) {
	size := w.Config().TileSize
	zMin := float32(cam.Layer) * size
	zMax := zMin + size

	rl.BeginMode2D(cam.GetRaylibCamera())

	if r.ShowTiles && tiles != nil {
		r.drawTiles(tiles, cam.Layer)
	}
	if r.ShowGrid {
		r.drawRegion(w.Grid().Region())
	}

	thickness := 1 / cam.Zoom
	for _, o := range Outlines(w, zMin, zMax) {
		drawOutline(o, thickness)
	}

	if r.ShowContacts {
		r.drawContacts(w.Contacts(), thickness)
	}
	if r.ShowRays {
		for _, t := range r.Trails.List() {
			rl.DrawLineEx(camera.ToRaylib(t.Start), camera.ToRaylib(t.End), thickness, rl.Orange)
			for _, h := range t.Hits {
				rl.DrawCircleV(camera.ToRaylib(h), 3*thickness, rl.Red)
			}
		}
	}

	rl.EndMode2D()
}

func (r *Renderer) drawTiles(tiles *world.Map, layer int) {
	size := tiles.TileSize()
	tiles.ForEachTile(func(pos world.TilePos, tile world.Tile) bool {
		var dim float32
		switch pos.Z {
		case layer:
			dim = 1
		case layer - 1:
			if !r.ShowFloor {
				return true
			}
			dim = 0.25
		default:
			return true
		}

		info := tiles.TileInfo(tile)
		color, ok := tileColors[info.Name]
		if !ok {
			color = rl.LightGray
		}
		// damaged tiles fade with their health
		if info.Health > 0 && tile.Health < info.Health {
			dim *= 0.4 + 0.6*tile.Health/info.Health
		}

		corner := camera.ToRaylib(mgl32.Vec2{float32(pos.X) * size, float32(pos.Y+1) * size})
		rl.DrawRectangleV(corner, rl.Vector2{X: size, Y: size}, rl.Fade(color, dim))
		return true
	})
}

func (r *Renderer) drawRegion(region physics.AABB) {
	min := camera.ToRaylib(mgl32.Vec2{region.Min[0], region.Max[1]})
	rl.DrawRectangleLinesEx(rl.Rectangle{
		X:      min.X,
		Y:      min.Y,
		Width:  region.Max[0] - region.Min[0],
		Height: region.Max[1] - region.Min[1],
	}, 0.05, rl.Fade(rl.Yellow, 0.5))
}

func drawOutline(o Outline, thickness float32) {
	color := styleColors[o.Style]
	center := camera.ToRaylib(o.Center)

	switch o.Kind {
	case components.KindCircle:
		rl.DrawCircleLinesV(center, o.Radius, color)
	case components.KindRayZ:
		rl.DrawCircleV(center, 2*thickness, color)
	default:
		for i := range o.Corners {
			a := camera.ToRaylib(o.Corners[i])
			b := camera.ToRaylib(o.Corners[(i+1)%len(o.Corners)])
			rl.DrawLineEx(a, b, thickness, color)
		}
	}
}

func (r *Renderer) drawContacts(contacts []physics.Contact, thickness float32) {
	for _, c := range contacts {
		point := camera.ToRaylib(c.Point)
		tip := camera.ToRaylib(c.Point.Add(c.Normal.Mul(0.25)))
		color := rl.Red
		if c.World() {
			color = rl.Maroon
		}
		rl.DrawCircleV(point, 2*thickness, color)
		rl.DrawLineEx(point, tip, thickness, color)
	}
}
