package components

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type Layer uint8

const (
	LayerNormal Layer = iota
	LayerDamage
	LayerWorld
	LayerDoor
	LayerMouse
	LayerPlayer
	LayerNormalEnemy
	LayerLyingEnemy
	LayerVision
	LayerThrownDecal
	layerCount
)

var layerNames = [layerCount]string{
	"normal",
	"damage",
	"world",
	"door",
	"mouse",
	"player",
	"normal_enemy",
	"lying_enemy",
	"vision",
	"thrown_decal",
}

// Pairs not listed do not collide.
var layerPairs = []struct {
	a, b Layer
}{
	{LayerNormal, LayerNormal},

	{LayerDamage, LayerNormal},

	{LayerWorld, LayerNormal},
	{LayerWorld, LayerDamage},

	{LayerMouse, LayerNormal},

	{LayerDoor, LayerNormal},
	{LayerDoor, LayerDamage},

	{LayerPlayer, LayerNormal},
	{LayerPlayer, LayerDamage},
	{LayerPlayer, LayerWorld},
	{LayerPlayer, LayerMouse},
	{LayerPlayer, LayerDoor},

	{LayerNormalEnemy, LayerNormalEnemy},
	{LayerNormalEnemy, LayerNormal},
	{LayerNormalEnemy, LayerDamage},
	{LayerNormalEnemy, LayerWorld},
	{LayerNormalEnemy, LayerMouse},
	{LayerNormalEnemy, LayerDoor},

	{LayerLyingEnemy, LayerLyingEnemy},
	{LayerLyingEnemy, LayerDamage},
	{LayerLyingEnemy, LayerWorld},
	{LayerLyingEnemy, LayerMouse},
	{LayerLyingEnemy, LayerDoor},

	{LayerVision, LayerNormal},
	{LayerVision, LayerWorld},
	{LayerVision, LayerDoor},
	{LayerVision, LayerPlayer},
	{LayerVision, LayerNormalEnemy},

	{LayerThrownDecal, LayerThrownDecal},
	{LayerThrownDecal, LayerWorld},
}

var layerMatrix [layerCount][layerCount]bool

func init() {
	for _, pair := range layerPairs {
		layerMatrix[pair.a][pair.b] = true
		layerMatrix[pair.b][pair.a] = true
	}
}

// Collides reports whether colliders on the two layers interact. It is symmetric.
func (l Layer) Collides(other Layer) bool {
	if l >= layerCount || other >= layerCount {
		return false
	}
	return layerMatrix[l][other]
}

func (l Layer) String() string {
	if l >= layerCount {
		return fmt.Sprintf("Layer(%d)", uint8(l))
	}
	return layerNames[l]
}

func ParseLayer(name string) (Layer, error) {
	for i, n := range layerNames {
		if n == name {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown collider layer %q", name)
}

func (l Layer) MarshalYAML() (any, error) {
	return l.String(), nil
}

func (l *Layer) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseLayer(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
