package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newSized() *TopDown {
	c := New(mgl32.Vec2{2, 3})
	c.Resize(800, 600)
	return c
}

func TestScreenRoundTrip(t *testing.T) {
	c := newSized()

	if got := c.ScreenToWorld(mgl32.Vec2{400, 300}); !got.ApproxEqual(c.Target) {
		t.Errorf("Expected the screen center at the target, got %v", got)
	}

	// one unit up in the world is Zoom pixels up the screen
	up := c.WorldToScreen(mgl32.Vec2{2, 4})
	if !up.ApproxEqual(mgl32.Vec2{400, 300 - c.Zoom}) {
		t.Errorf("Expected Y to grow upward on screen, got %v", up)
	}

	p := mgl32.Vec2{-5.5, 7.25}
	if got := c.ScreenToWorld(c.WorldToScreen(p)); !got.ApproxEqualThreshold(p, 1e-4) {
		t.Errorf("Expected %v, got %v", p, got)
	}
}

func TestZoomKeepsCursorPoint(t *testing.T) {
	c := newSized()
	cursor := mgl32.Vec2{650, 120}
	before := c.ScreenToWorld(cursor)

	c.ZoomAt(cursor, 3)

	if c.Zoom <= 48 {
		t.Errorf("Expected zoom in, got %v", c.Zoom)
	}
	if after := c.ScreenToWorld(cursor); !after.ApproxEqualThreshold(before, 1e-4) {
		t.Errorf("Expected %v under the cursor, got %v", before, after)
	}
}

func TestZoomClamped(t *testing.T) {
	c := newSized()
	c.ZoomAt(mgl32.Vec2{400, 300}, 1000)
	if c.Zoom != c.MaxZoom {
		t.Errorf("Expected zoom %v, got %v", c.MaxZoom, c.Zoom)
	}
	c.ZoomAt(mgl32.Vec2{400, 300}, -1000)
	if c.Zoom != c.MinZoom {
		t.Errorf("Expected zoom %v, got %v", c.MinZoom, c.Zoom)
	}
}

func TestDragMovesOpposite(t *testing.T) {
	c := newSized()
	c.Drag(mgl32.Vec2{48, 48})

	// dragging the world right and down shows what lies left and up
	if !c.Target.ApproxEqual(mgl32.Vec2{1, 4}) {
		t.Errorf("Expected target (1, 4), got %v", c.Target)
	}
}

func TestRaylibCameraFlipsY(t *testing.T) {
	c := newSized()
	rc := c.GetRaylibCamera()
	if rc.Target.X != 2 || rc.Target.Y != -3 || rc.Zoom != 48 || rc.Offset.X != 400 {
		t.Errorf("Expected a flipped target at the screen center, got %+v", rc)
	}
}
