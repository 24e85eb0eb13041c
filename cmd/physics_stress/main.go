// Stress test stepping growing piles of bodies on a tile floor
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-gl/mathgl/mgl32"

	"stratum/internal/components"
	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/physics"
	"stratum/internal/scene"
	"stratum/internal/world"
)

func main() {
	counts := flag.String("counts", "100,500,1000,2000,5000", "comma separated body counts")
	frames := flag.Int("frames", 120, "frames stepped per count")
	seed := flag.Int64("seed", 42, "spawn seed")
	configPath := flag.String("config", "", "physics config YAML")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	for _, field := range strings.Split(*counts, ",") {
		count, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || count <= 0 {
			log.Fatalf("Invalid count %q", field)
		}
		run(cfg, count, *frames, *seed)
	}
}

func run(cfg config.Physics, count, frames int, seed int64) {
	rng := rand.New(rand.NewSource(seed))

	// Spawn area grows with count and stays inside the simulated region.
	half := mgl32.Clamp(4+float32(count)/200, 4, cfg.SimulatedHalfSize[0]-2)
	extent := int(half) + 1

	tiles := world.NewMap(cfg.TileSize, nil)
	stone, _ := tiles.TileID("stone")
	tiles.LoadArea(world.TilePos{X: -extent - 1, Y: -extent - 1, Z: -1}, world.TilePos{X: extent + 1, Y: extent + 1, Z: 1})
	tiles.Fill(world.TilePos{X: -extent, Y: -extent, Z: -1}, world.TilePos{X: extent, Y: extent, Z: -1}, stone)

	sc := scene.New("stress")
	for i := 0; i < count; i++ {
		kind := components.KindCircle
		if i%3 == 0 {
			kind = components.KindRectangle
		}
		size := 0.3 + rng.Float32()*0.4
		t := engine.At(mgl32.Vec3{
			(rng.Float32()*2 - 1) * half,
			(rng.Float32()*2 - 1) * half,
			size/2 + rng.Float32()*0.5,
		}, mgl32.Vec3{size, size, size})
		t.Rotation = rng.Float32() * 3

		c := components.NewCollider(kind, components.LayerNormal)
		p := components.NewPhysical(1 + rng.Float32())
		p.Velocity = mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, 0}
		sc.Push(false, scene.EntityInfo{Transform: &t, Collider: &c, Physical: &p})
	}

	w := physics.NewWorld(cfg, sc, tiles)

	// Warm up
	w.Step(1.0 / 60)

	var total physics.FrameStats
	var worst time.Duration
	start := time.Now()
	for i := 0; i < frames; i++ {
		frameStart := time.Now()
		stats := w.Step(1.0 / 60)
		if d := time.Since(frameStart); d > worst {
			worst = d
		}
		total.Contacts += stats.Contacts
		total.Pairs += stats.Pairs
		total.PenetrationIterations += stats.PenetrationIterations
		total.Sleeping = stats.Sleeping
		if stats.MaxPenetration > total.MaxPenetration {
			total.MaxPenetration = stats.MaxPenetration
		}
	}
	elapsed := time.Since(start)
	perFrame := elapsed / time.Duration(frames)

	fmt.Printf("%6s bodies: %10v/frame (worst %10v) | %9s pairs %9s contacts | %5.1f iters | max pen %.4f | %s asleep\n",
		humanize.Comma(int64(count)),
		perFrame.Round(time.Microsecond), worst.Round(time.Microsecond),
		humanize.Comma(int64(total.Pairs/frames)), humanize.Comma(int64(total.Contacts/frames)),
		float64(total.PenetrationIterations)/float64(frames),
		total.MaxPenetration,
		humanize.Comma(int64(total.Sleeping)))
}
