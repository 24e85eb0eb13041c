package scene

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"stratum/internal/components"
	"stratum/internal/engine"
)

// ComponentLoader decodes one component node of a scene file onto e. lookup
// resolves entity names declared in the same file.
type ComponentLoader func(s *Scene, e engine.Entity, node *yaml.Node, lookup func(string) (engine.Entity, error)) error

var componentLoaders = map[string]ComponentLoader{}

// RegisterComponent makes a component type available to scene files.
func RegisterComponent(name string, loader ComponentLoader) {
	if _, exists := componentLoaders[name]; exists {
		panic(fmt.Sprintf("component %q already registered", name))
	}
	componentLoaders[name] = loader
}

// ComponentNames returns every registered component type, sorted.
func ComponentNames() []string {
	names := make([]string, 0, len(componentLoaders))
	for name := range componentLoaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterComponent("collider", loadCollider)
	RegisterComponent("physical", loadPhysical)
	RegisterComponent("joint", loadJoint)
	RegisterComponent("health", loadHealth)
	RegisterComponent("damaging", loadDamaging)
	RegisterComponent("lazy", loadLazy)
}

func loadCollider(s *Scene, e engine.Entity, node *yaml.Node, _ func(string) (engine.Entity, error)) error {
	var def colliderDef
	if err := node.Decode(&def); err != nil {
		return err
	}
	c := components.NewCollider(def.Kind, def.Layer)
	c.Ghost = def.Ghost
	c.ScaleOverride = def.ScaleOverride
	s.Colliders.Insert(e, c)
	return nil
}

func loadPhysical(s *Scene, e engine.Entity, node *yaml.Node, _ func(string) (engine.Entity, error)) error {
	def := physicalDef{Mass: 1}
	if err := node.Decode(&def); err != nil {
		return err
	}
	s.Physicals.Insert(e, def.physical())
	return nil
}

func loadJoint(s *Scene, e engine.Entity, node *yaml.Node, lookup func(string) (engine.Entity, error)) error {
	var def jointDef
	if err := node.Decode(&def); err != nil {
		return err
	}
	parent, err := lookup(def.Parent)
	if err != nil {
		return err
	}
	j := components.NewJoint(parent, def.Rest)
	j.Offset = def.Offset
	if def.Strength != nil {
		j.Strength = *def.Strength
	}
	j.Damping = def.Damping
	j.BreakDistance = def.BreakDistance
	s.Joints.Insert(e, j)
	return nil
}

func loadHealth(s *Scene, e engine.Entity, node *yaml.Node, _ func(string) (engine.Entity, error)) error {
	var def healthDef
	if err := node.Decode(&def); err != nil {
		return err
	}
	s.Healths.Insert(e, components.NewHealth(def.Max))
	return nil
}

func loadDamaging(s *Scene, e engine.Entity, node *yaml.Node, lookup func(string) (engine.Entity, error)) error {
	var def damagingDef
	if err := node.Decode(&def); err != nil {
		return err
	}
	d, err := def.damaging(lookup)
	if err != nil {
		return err
	}
	s.Damagings.Insert(e, d)
	return nil
}

func loadLazy(s *Scene, e engine.Entity, node *yaml.Node, _ func(string) (engine.Entity, error)) error {
	var def lazyDef
	if err := node.Decode(&def); err != nil {
		return err
	}
	t, _ := s.Transforms.Get(e)
	lazy := components.NewLazy(t)
	lazy.Connection = def.Connection
	s.Lazies.Insert(e, lazy)
	return nil
}
