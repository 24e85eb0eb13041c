package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-gl/mathgl/mgl32"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"stratum/internal/camera"
	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/passer"
	"stratum/internal/physics"
	"stratum/internal/render"
	"stratum/internal/scene"
	"stratum/internal/telemetry"
	"stratum/internal/world"
)

const panelWidth = 220

type App struct {
	Hub *passer.Hub

	cfg           config.Physics
	telemetryPath string
	sink          *telemetry.SQLiteSink

	session  *Session
	camera   *camera.TopDown
	renderer *render.Renderer

	scenarios []string
	active    int32
	paused    bool
	stepOnce  bool
	timeScale float32
	pierce    float32

	// Debug timing (ms)
	stepMs float64
	drawMs float64
}

func NewApp(cfg config.Physics, telemetryPath string) *App {
	return &App{
		cfg:           cfg,
		telemetryPath: telemetryPath,
		camera:        camera.New(mgl32.Vec2{}),
		renderer:      render.NewRenderer(),
		scenarios:     scene.ScenarioNames(),
		timeScale:     1,
		pierce:        1,
	}
}

// Load replaces the running session. A new telemetry run starts with it.
func (a *App) Load(name string) error {
	a.closeSink()

	var sink telemetry.Sink = telemetry.Discard{}
	if a.telemetryPath != "" {
		s, err := telemetry.OpenSQLite(a.telemetryPath, name)
		if err != nil {
			return err
		}
		a.sink = s
		sink = s
		log.Printf("Telemetry: recording run %s", s.RunID)
	}

	var p passer.Passer = passer.Nop{}
	if a.Hub != nil {
		p = a.Hub
	}

	session, err := NewSession(name, a.cfg, p, sink)
	if err != nil {
		a.closeSink()
		return err
	}
	a.session = session

	for i, n := range a.scenarios {
		if n == name {
			a.active = int32(i)
		}
	}
	if t, ok := session.Scene().Target(session.Loaded.Reference); ok {
		a.camera.Follow(t.Position)
		a.camera.Layer = world.TilePosAt(t.Position, session.World.Config().TileSize).Z
	}
	return nil
}

func (a *App) closeSink() {
	if a.sink == nil {
		return
	}
	if err := a.sink.Close(); err != nil {
		log.Printf("Telemetry: %v", err)
	}
	a.sink = nil
}

func (a *App) Run() {
	rl.SetConfigFlags(rl.FlagWindowHighdpi | rl.FlagWindowResizable)
	rl.InitWindow(1280, 720, "Stratum Sandbox")
	defer rl.CloseWindow()
	defer a.closeSink()

	rl.SetTargetFPS(60)

	for !rl.WindowShouldClose() {
		a.Update()
		a.Draw()
	}
}

func (a *App) Update() {
	deltaTime := rl.GetFrameTime()
	a.camera.Update(deltaTime)
	a.renderer.Trails.Update(deltaTime)

	if rl.IsKeyPressed(rl.KeySpace) {
		a.paused = !a.paused
	}
	if rl.IsKeyPressed(rl.KeyN) {
		a.stepOnce = true
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.reload()
	}

	mouse := rl.GetMousePosition()
	if mouse.X > panelWidth {
		cursor := a.cursorWorld(mouse)
		if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
			a.shoot(cursor)
		}
		if rl.IsMouseButtonPressed(rl.MouseButtonMiddle) {
			a.session.Spawn(components.KindCircle, cursor, 0.5)
		}
		if rl.IsKeyPressed(rl.KeyB) {
			a.session.Spawn(components.KindRectangle, cursor, 0.5)
		}
	}

	if a.paused && !a.stepOnce {
		return
	}
	a.stepOnce = false

	start := time.Now()
	// Scenes carry their own timestep.
	a.session.Step(a.session.Loaded.DeltaTime * a.timeScale)
	a.stepMs = float64(time.Since(start).Microseconds()) / 1000.0

	if a.Hub != nil {
		if err := a.Hub.Flush(); err != nil {
			log.Printf("Passer: %v", err)
		}
	}
}

// cursorWorld places the mouse in the middle of the camera layer.
func (a *App) cursorWorld(mouse rl.Vector2) mgl32.Vec3 {
	p := a.camera.ScreenToWorld(mgl32.Vec2{mouse.X, mouse.Y})
	size := a.session.World.Config().TileSize
	return mgl32.Vec3{p[0], p[1], (float32(a.camera.Layer) + 0.5) * size}
}

// shoot fires from the reference entity, or the view center without one.
func (a *App) shoot(target mgl32.Vec3) {
	start := target
	start[0], start[1] = a.camera.Target[0], a.camera.Target[1]
	if t, ok := a.session.Scene().Target(a.session.Loaded.Reference); ok {
		start = t.Position
	}

	info := physics.RaycastInfo{
		Pierce:      a.pierce,
		PierceScale: physics.RaycastPierce{Kind: physics.PierceDensity},
		Layer:       components.LayerDamage,
	}
	hits, stats := a.session.Shoot(start, target, 1, info)
	a.renderer.Trails.Add(start, target, hits)
	if stats.Hits > 0 {
		log.Printf("Sandbox: ray hit %d, killed %d, destroyed %d", stats.Hits, stats.Killed, stats.Destroyed)
	}
}

func (a *App) reload() {
	if err := a.Load(a.session.Name); err != nil {
		log.Printf("Sandbox: reload failed: %v", err)
	}
}

func (a *App) Draw() {
	drawStart := time.Now()

	rl.BeginDrawing()
	rl.ClearBackground(rl.NewColor(24, 24, 32, 255))

	a.renderer.Draw(a.session.World, a.session.Loaded.Map, a.camera)
	a.drawPanel()

	rl.EndDrawing()

	a.drawMs = float64(time.Since(drawStart).Microseconds()) / 1000.0
}

func (a *App) drawPanel() {
	height := float32(rl.GetScreenHeight())
	rl.DrawRectangleRec(rl.Rectangle{Width: panelWidth, Height: height}, rl.NewColor(32, 32, 44, 235))

	x := float32(10)
	y := float32(10)
	row := func(h float32) rl.Rectangle {
		r := rl.Rectangle{X: x, Y: y, Width: panelWidth - 20, Height: h}
		y += h + 6
		return r
	}

	gui.Label(row(20), "Scenario")
	if active := gui.ComboBox(row(24), strings.Join(a.scenarios, ";"), a.active); active != a.active {
		a.active = active
		if err := a.Load(a.scenarios[active]); err != nil {
			log.Printf("Sandbox: %v", err)
		}
	}

	label := "Pause"
	if a.paused {
		label = "Resume"
	}
	if gui.Button(row(24), label) {
		a.paused = !a.paused
	}
	if gui.Button(row(24), "Step") {
		a.stepOnce = true
	}
	if gui.Button(row(24), "Reload") {
		a.reload()
	}

	y += 6
	a.renderer.ShowTiles = gui.CheckBox(row(16), "Tiles", a.renderer.ShowTiles)
	a.renderer.ShowFloor = gui.CheckBox(row(16), "Floor", a.renderer.ShowFloor)
	a.renderer.ShowContacts = gui.CheckBox(row(16), "Contacts", a.renderer.ShowContacts)
	a.renderer.ShowGrid = gui.CheckBox(row(16), "Simulated region", a.renderer.ShowGrid)
	a.renderer.ShowRays = gui.CheckBox(row(16), "Rays", a.renderer.ShowRays)

	y += 6
	a.timeScale = gui.Slider(row(16), "", fmt.Sprintf("x%.2f", a.timeScale), a.timeScale, 0.1, 2)
	a.pierce = gui.Slider(row(16), "", fmt.Sprintf("pierce %.1f", a.pierce), a.pierce, 0, 5)

	y += 6
	stats := a.session.Last
	lines := []string{
		fmt.Sprintf("Frame %s  Layer %d", humanize.Comma(int64(stats.Frame)), a.camera.Layer),
		fmt.Sprintf("Bodies %d  Asleep %d", stats.Bodies, stats.Sleeping),
		fmt.Sprintf("Pairs %d  Contacts %d", stats.Pairs, stats.Contacts),
		fmt.Sprintf("Iters %d/%d", stats.PenetrationIterations, stats.VelocityIterations),
		fmt.Sprintf("Max pen %.4f", stats.MaxPenetration),
		fmt.Sprintf("Step %.2fms  Draw %.2fms", a.stepMs, a.drawMs),
	}
	if a.Hub != nil {
		lines = append(lines, fmt.Sprintf("Clients %d", a.Hub.Clients()))
	}
	for _, line := range lines {
		gui.Label(row(16), line)
	}

	rl.DrawFPS(int32(rl.GetScreenWidth())-90, 10)
}
