// Package camera is the top-down view used by the sandbox.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// TopDown looks straight down the Z axis. World Y grows upward on screen.
type TopDown struct {
	Target mgl32.Vec2
	// Zoom is in pixels per world unit.
	Zoom    float32
	MinZoom float32
	MaxZoom float32

	PanSpeed  float32 // Screens per second
	ZoomSpeed float32 // Fraction per wheel notch

	// Layer is the tile slab being looked at.
	Layer int

	width, height float32
}

func New(target mgl32.Vec2) *TopDown {
	return &TopDown{
		Target:    target,
		Zoom:      48,
		MinZoom:   4,
		MaxZoom:   400,
		PanSpeed:  0.5,
		ZoomSpeed: 0.1,
	}
}

// Update reads keyboard and mouse input. WASD and right drag pan, the wheel
// zooms around the cursor, Q and E change the layer.
func (c *TopDown) Update(deltaTime float32) {
	c.Resize(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))

	var move mgl32.Vec2
	if rl.IsKeyDown(rl.KeyW) {
		move[1]++
	}
	if rl.IsKeyDown(rl.KeyS) {
		move[1]--
	}
	if rl.IsKeyDown(rl.KeyA) {
		move[0]--
	}
	if rl.IsKeyDown(rl.KeyD) {
		move[0]++
	}
	if l := move.Len(); l > 0 {
		// PanSpeed is in screens, not world units.
		speed := c.PanSpeed * c.width / c.Zoom
		c.Target = c.Target.Add(move.Mul(speed * deltaTime / l))
	}

	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		c.Drag(mgl32.Vec2{d.X, d.Y})
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		m := rl.GetMousePosition()
		c.ZoomAt(mgl32.Vec2{m.X, m.Y}, wheel)
	}

	if rl.IsKeyPressed(rl.KeyQ) {
		c.Layer--
	}
	if rl.IsKeyPressed(rl.KeyE) {
		c.Layer++
	}
}

// Resize sets the viewport size in pixels.
func (c *TopDown) Resize(width, height float32) {
	c.width, c.height = width, height
}

// Drag moves the view by a screen-space mouse delta.
func (c *TopDown) Drag(delta mgl32.Vec2) {
	c.Target = c.Target.Add(mgl32.Vec2{-delta[0] / c.Zoom, delta[1] / c.Zoom})
}

// ZoomAt zooms by wheel notches keeping the world point under screen fixed.
func (c *TopDown) ZoomAt(screen mgl32.Vec2, notches float32) {
	before := c.ScreenToWorld(screen)
	c.Zoom *= math32.Pow(1+c.ZoomSpeed, notches)
	c.Zoom = mgl32.Clamp(c.Zoom, c.MinZoom, c.MaxZoom)
	after := c.ScreenToWorld(screen)
	c.Target = c.Target.Add(before.Sub(after))
}

// Follow centers the view on a world position.
func (c *TopDown) Follow(position mgl32.Vec3) {
	c.Target = position.Vec2()
}

func (c *TopDown) ScreenToWorld(screen mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		c.Target[0] + (screen[0]-c.width/2)/c.Zoom,
		c.Target[1] - (screen[1]-c.height/2)/c.Zoom,
	}
}

func (c *TopDown) WorldToScreen(position mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		(position[0]-c.Target[0])*c.Zoom + c.width/2,
		-(position[1]-c.Target[1])*c.Zoom + c.height/2,
	}
}

// ToRaylib maps a world position into the flipped space GetRaylibCamera
// draws in.
func ToRaylib(position mgl32.Vec2) rl.Vector2 {
	return rl.Vector2{X: position[0], Y: -position[1]}
}

func (c *TopDown) GetRaylibCamera() rl.Camera2D {
	return rl.Camera2D{
		Offset: rl.Vector2{X: c.width / 2, Y: c.height / 2},
		Target: ToRaylib(c.Target),
		Zoom:   c.Zoom,
	}
}
