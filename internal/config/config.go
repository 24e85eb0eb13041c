// Package config holds the tunable constants of the physics core.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid physics config")

//go:embed physics.schema.json
var schemaSource string

const schemaURL = "stratum://physics.schema.json"

// Physics is loaded once at startup and passed by value.
type Physics struct {
	TileSize    float32 `yaml:"tile_size" json:"tile_size"`
	EntityScale float32 `yaml:"entity_scale" json:"entity_scale"`

	Gravity         float32 `yaml:"gravity" json:"gravity"`
	FallVelocity    float32 `yaml:"fall_velocity" json:"fall_velocity"`
	FallDamageScale float32 `yaml:"fall_damage_scale" json:"fall_damage_scale"`

	AngularLimit       float32 `yaml:"angular_limit" json:"angular_limit"`
	VelocityLow        float32 `yaml:"velocity_low" json:"velocity_low"`
	PenetrationEpsilon float32 `yaml:"penetration_epsilon" json:"penetration_epsilon"`
	SleepEpsilon       float32 `yaml:"sleep_epsilon" json:"sleep_epsilon"`
	Iterations         int     `yaml:"iterations" json:"iterations"`

	SleepingVelocity float32 `yaml:"sleeping_velocity" json:"sleeping_velocity"`
	SleepDuration    float32 `yaml:"sleep_duration" json:"sleep_duration"`
	// SleepDistance and SleepZDistance are in tiles from the reference entity.
	SleepDistance  float32 `yaml:"sleep_distance" json:"sleep_distance"`
	SleepZDistance float32 `yaml:"sleep_z_distance" json:"sleep_z_distance"`

	// SimulatedHalfSize is the half extent of the simulated region in tiles.
	SimulatedHalfSize mgl32.Vec3 `yaml:"simulated_half_size" json:"simulated_half_size"`
	// CellSize of the broad phase grid; 0 derives it from collider bounds.
	CellSize   float32 `yaml:"cell_size" json:"cell_size"`
	SlabHeight float32 `yaml:"slab_height" json:"slab_height"`

	// Debug turns invariant violations into panics instead of logged skips.
	Debug bool `yaml:"debug" json:"debug"`
}

func Default() Physics {
	return Physics{
		TileSize:    1.0,
		EntityScale: 0.1,

		Gravity:         -9.81,
		FallVelocity:    -5.0,
		FallDamageScale: 0.1,

		AngularLimit:       0.2,
		VelocityLow:        0.002,
		PenetrationEpsilon: 0.0005,
		SleepEpsilon:       0.005,
		Iterations:         50,

		SleepingVelocity: 0.05,
		SleepDuration:    1.0,
		SleepDistance:    30,
		SleepZDistance:   2.5,

		SimulatedHalfSize: mgl32.Vec3{32, 32, 4},
		CellSize:          0,
		SlabHeight:        1.0,
	}
}

// Validate checks constraints the schema cannot express.
func (p Physics) Validate() error {
	switch {
	case p.TileSize <= 0:
		return fmt.Errorf("%w: tile_size must be positive", ErrInvalid)
	case p.SlabHeight <= 0:
		return fmt.Errorf("%w: slab_height must be positive", ErrInvalid)
	case p.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive", ErrInvalid)
	case p.PenetrationEpsilon < 0 || p.SleepEpsilon < 0:
		return fmt.Errorf("%w: epsilons must not be negative", ErrInvalid)
	case p.SimulatedHalfSize[0] <= 0 || p.SimulatedHalfSize[1] <= 0 || p.SimulatedHalfSize[2] <= 0:
		return fmt.Errorf("%w: simulated_half_size must be positive", ErrInvalid)
	}
	return nil
}

// SimulatedExtent is the half extent of the simulated region in world units.
func (p Physics) SimulatedExtent() mgl32.Vec3 {
	return p.SimulatedHalfSize.Mul(p.TileSize)
}

// Load reads a YAML document over the defaults and validates it.
func Load(path string) (Physics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Physics{}, fmt.Errorf("physics config: %w", err)
	}
	p, err := Parse(raw)
	if err != nil {
		return Physics{}, fmt.Errorf("physics config %s: %w", path, err)
	}
	return p, nil
}

// Parse is Load without the file read.
func Parse(raw []byte) (Physics, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Physics{}, err
	}
	if doc != nil {
		if err := validateSchema(doc); err != nil {
			return Physics{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	p := Default()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Physics{}, err
	}
	if err := p.Validate(); err != nil {
		return Physics{}, err
	}
	return p, nil
}

// Marshal renders p as YAML.
func (p Physics) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader([]byte(schemaSource))); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

func validateSchema(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}

	// The validator expects JSON-decoded values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
