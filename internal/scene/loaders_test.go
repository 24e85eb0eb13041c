package scene

import (
	"testing"

	"gopkg.in/yaml.v3"

	"stratum/internal/engine"
)

func TestBuiltinComponentsRegistered(t *testing.T) {
	want := []string{"collider", "damaging", "health", "joint", "lazy", "physical"}
	got := ComponentNames()
	if len(got) < len(want) {
		t.Fatalf("Expected at least %d components, got %v", len(want), got)
	}
	for _, name := range want {
		if _, ok := componentLoaders[name]; !ok {
			t.Errorf("component %q not registered", name)
		}
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()

	RegisterComponent("collider", loadCollider)
}

func TestCustomComponent(t *testing.T) {
	const name = "test_label"
	var labels []string
	RegisterComponent(name, func(s *Scene, e engine.Entity, node *yaml.Node, _ func(string) (engine.Entity, error)) error {
		var def struct {
			Text string `yaml:"text"`
		}
		if err := node.Decode(&def); err != nil {
			return err
		}
		labels = append(labels, def.Text)
		return nil
	})
	t.Cleanup(func() { delete(componentLoaders, name) })

	f, err := Parse([]byte("entities:\n  - name: a\n    components:\n      - type: test_label\n        text: hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Build(nil); err != nil {
		t.Fatal(err)
	}
	if len(labels) != 1 || labels[0] != "hello" {
		t.Errorf("Expected the custom loader to see %q, got %v", "hello", labels)
	}
}
