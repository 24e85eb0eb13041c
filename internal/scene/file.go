package scene

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"stratum/internal/components"
	"stratum/internal/engine"
	"stratum/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ErrUnknownComponent is returned for a component type the loader does not know.
var ErrUnknownComponent = errors.New("unknown component type")

//go:embed scenarios/*.yaml
var scenarios embed.FS

// --- YAML types ---

type File struct {
	Name      string      `yaml:"name"`
	TileSize  float32     `yaml:"tile_size"`
	Open      bool        `yaml:"open"`
	Reference string      `yaml:"reference"`
	DeltaTime float32     `yaml:"dt"`
	Frames    int         `yaml:"frames"`
	Load      []TileRange `yaml:"load,omitempty"`
	Tiles     []TileRange `yaml:"tiles,omitempty"`
	Entities  []EntityDef `yaml:"entities"`
}

// TileRange is an inclusive box of tiles. Tile is empty for ranges that are
// only loaded.
type TileRange struct {
	From [3]int `yaml:"from"`
	To   [3]int `yaml:"to"`
	Tile string `yaml:"tile,omitempty"`
}

type EntityDef struct {
	Name       string      `yaml:"name"`
	Parent     string      `yaml:"parent,omitempty"`
	Position   mgl32.Vec3  `yaml:"position"`
	Rotation   float32     `yaml:"rotation"`
	Scale      mgl32.Vec3  `yaml:"scale"`
	Components []yaml.Node `yaml:"components"`
}

type componentHeader struct {
	Type string `yaml:"type"`
}

type colliderDef struct {
	Kind          components.Kind  `yaml:"kind"`
	Layer         components.Layer `yaml:"layer"`
	Ghost         bool             `yaml:"ghost"`
	ScaleOverride *mgl32.Vec3      `yaml:"scale_override"`
}

type physicalDef struct {
	Mass                float32    `yaml:"mass"`
	Velocity            mgl32.Vec3 `yaml:"velocity"`
	AngularVelocity     float32    `yaml:"angular_velocity"`
	Acceleration        mgl32.Vec3 `yaml:"acceleration"`
	AngularAcceleration float32    `yaml:"angular_acceleration"`
	Restitution         float32    `yaml:"restitution"`
	StaticFriction      *float32   `yaml:"static_friction"`
	DynamicFriction     *float32   `yaml:"dynamic_friction"`
	Damping             *float32   `yaml:"damping"`
	AngularDamping      *float32   `yaml:"angular_damping"`
	FixedRotation       bool       `yaml:"fixed_rotation"`
	Floating            bool       `yaml:"floating"`
	MoveZ               *bool      `yaml:"move_z"`
	TargetNonLazy       bool       `yaml:"target_non_lazy"`
}

type jointDef struct {
	Parent        string     `yaml:"parent"`
	Rest          float32    `yaml:"rest"`
	Offset        mgl32.Vec2 `yaml:"offset"`
	Strength      *float32   `yaml:"strength"`
	Damping       float32    `yaml:"damping"`
	BreakDistance float32    `yaml:"break_distance"`
}

type healthDef struct {
	Max float32 `yaml:"max"`
}

type damagingDef struct {
	Damage      float32  `yaml:"damage"`
	Knockback   *float32 `yaml:"knockback"`
	TimesLeft   *int     `yaml:"times_left"`
	SameTileZ   *bool    `yaml:"same_tile_z"`
	IgnoreTiles bool     `yaml:"ignore_tiles"`
	Only        string   `yaml:"only"`
	Except      string   `yaml:"except"`
	Source      string   `yaml:"source"`
}

type lazyDef struct {
	Connection float32 `yaml:"connection"`
}

// Loaded is a scene file turned into live state.
type Loaded struct {
	Scene     *Scene
	Map       *world.Map
	Reference engine.Entity
	DeltaTime float32
	Frames    int
}

// --- Loading ---

func LoadFile(p string) (*File, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", p, err)
	}
	return f, nil
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if f.TileSize == 0 {
		f.TileSize = 1
	}
	if f.DeltaTime == 0 {
		f.DeltaTime = 1.0 / 60.0
	}
	return &f, nil
}

// Scenario loads one of the embedded scenario files by name.
func Scenario(name string) (*File, error) {
	data, err := scenarios.ReadFile(path.Join("scenarios", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	return Parse(data)
}

// ScenarioNames lists the embedded scenarios, sorted.
func ScenarioNames() []string {
	entries, err := scenarios.ReadDir("scenarios")
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Build creates the tile map and scene described by f.
func (f *File) Build(infos []world.TileInfo) (*Loaded, error) {
	var m *world.Map
	if f.Open {
		m = world.NewOpenMap(f.TileSize, infos)
	} else {
		m = world.NewMap(f.TileSize, infos)
	}

	for _, r := range f.Load {
		m.LoadArea(tilePos(r.From), tilePos(r.To))
	}
	for _, r := range f.Tiles {
		id, ok := m.TileID(r.Tile)
		if !ok {
			return nil, fmt.Errorf("unknown tile %q", r.Tile)
		}
		if !f.Open {
			m.LoadArea(tilePos(r.From), tilePos(r.To))
		}
		m.Fill(tilePos(r.From), tilePos(r.To), id)
	}

	s := New(f.Name)
	byName := make(map[string]engine.Entity, len(f.Entities))
	pushed := make([]engine.Entity, 0, len(f.Entities))
	for _, def := range f.Entities {
		transform := engine.Transform{Position: def.Position, Rotation: def.Rotation, Scale: def.Scale}
		if def.Scale == (mgl32.Vec3{}) {
			transform.Scale = mgl32.Vec3{1, 1, 1}
		}
		e := s.Push(false, EntityInfo{Name: def.Name, Transform: &transform})
		pushed = append(pushed, e)
		if def.Name != "" {
			byName[def.Name] = e
		}
	}

	lookup := func(name string) (engine.Entity, error) {
		e, ok := byName[name]
		if !ok {
			return engine.Entity{}, fmt.Errorf("unknown entity %q", name)
		}
		return e, nil
	}

	for i, def := range f.Entities {
		e := pushed[i]

		if def.Parent != "" {
			parent, err := lookup(def.Parent)
			if err != nil {
				return nil, err
			}
			s.SetParent(e, parent)
		}

		for _, node := range def.Components {
			if err := s.loadComponent(e, &node, lookup); err != nil {
				return nil, fmt.Errorf("entity %q: %w", def.Name, err)
			}
		}
	}

	loaded := &Loaded{Scene: s, Map: m, DeltaTime: f.DeltaTime, Frames: f.Frames}
	if f.Reference != "" {
		ref, err := lookup(f.Reference)
		if err != nil {
			return nil, err
		}
		loaded.Reference = ref
	}
	return loaded, nil
}

func (s *Scene) loadComponent(e engine.Entity, node *yaml.Node, lookup func(string) (engine.Entity, error)) error {
	var header componentHeader
	if err := node.Decode(&header); err != nil {
		return err
	}

	loader, ok := componentLoaders[header.Type]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownComponent, header.Type)
	}
	return loader(s, e, node, lookup)
}

func (def physicalDef) physical() components.Physical {
	p := components.NewPhysical(def.Mass)
	p.Velocity = def.Velocity
	p.AngularVelocity = def.AngularVelocity
	p.Acceleration = def.Acceleration
	p.AngularAcceleration = def.AngularAcceleration
	p.Restitution = def.Restitution
	if def.StaticFriction != nil {
		p.StaticFriction = *def.StaticFriction
	}
	if def.DynamicFriction != nil {
		p.DynamicFriction = *def.DynamicFriction
	}
	if def.Damping != nil {
		p.Damping = *def.Damping
	}
	if def.AngularDamping != nil {
		p.AngularDamping = *def.AngularDamping
	}
	p.Fixed.Rotation = def.FixedRotation
	p.Floating = def.Floating
	if def.MoveZ != nil {
		p.MoveZ = *def.MoveZ
	}
	p.TargetNonLazy = def.TargetNonLazy
	return p
}

func (def damagingDef) damaging(lookup func(string) (engine.Entity, error)) (components.Damaging, error) {
	d := components.NewDamaging(def.Damage)
	if def.Knockback != nil {
		d.Knockback = *def.Knockback
	}
	if def.TimesLeft != nil {
		d.TimesLeft = *def.TimesLeft
	}
	if def.SameTileZ != nil {
		d.SameTileZ = *def.SameTileZ
	}
	d.IgnoreTiles = def.IgnoreTiles

	named := func(name string, apply func(engine.Entity)) error {
		if name == "" {
			return nil
		}
		e, err := lookup(name)
		if err != nil {
			return err
		}
		apply(e)
		return nil
	}

	if err := named(def.Only, func(e engine.Entity) { d.Predicate = components.Only(e) }); err != nil {
		return d, err
	}
	if err := named(def.Except, func(e engine.Entity) { d.Predicate = components.Except(e) }); err != nil {
		return d, err
	}
	if err := named(def.Source, func(e engine.Entity) { d.Source = e }); err != nil {
		return d, err
	}
	return d, nil
}

// --- Saving ---

func (f *File) Save(p string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return nil
}

func tilePos(v [3]int) world.TilePos {
	return world.TilePos{X: v[0], Y: v[1], Z: v[2]}
}
