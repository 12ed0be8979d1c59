package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/you-win/bevy/internal/component"
)

const prefabList = `
- name: Mote
  components:
    position: {x: 1, y: 2}
    velocity: {x: 0.5}
    lifetime: 10
- name: rock
  components:
    label: rock
    health: 20
`

func TestParsePrefabTable(t *testing.T) {
	table, err := ParsePrefabTable([]byte(prefabList))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if table.Count() != 2 {
		t.Fatalf("expected 2 prefabs, got %d", table.Count())
	}
	if names := table.Names(); names[0] != "mote" || names[1] != "rock" {
		t.Fatalf("unexpected names %v", names)
	}

	b, ok := table.Bundle("MOTE")
	if !ok {
		t.Fatal("lookup must be case-insensitive")
	}
	want := map[any]bool{
		component.Position{X: 1, Y: 2}: true,
		component.Velocity{X: 0.5}:     true,
		component.Lifetime{Ticks: 10}:  true,
		component.Prefab("mote"):       true,
	}
	if len(b) != len(want) {
		t.Fatalf("unexpected bundle %v", b)
	}
	for _, c := range b {
		if !want[c] {
			t.Fatalf("unexpected component %#v", c)
		}
	}

	b[0] = nil
	again, _ := table.Bundle("mote")
	if again[0] == nil {
		t.Fatal("Bundle must return a fresh slice each call")
	}

	if _, ok := table.Bundle("tree"); ok {
		t.Fatal("expected unknown prefab")
	}
}

func TestParsePrefabTableErrors(t *testing.T) {
	tests := map[string]string{
		"duplicate": "- name: a\n- name: A\n",
		"no name":   "- components: {label: x}\n",
		"unknown":   "- name: a\n  components: {mana: 3}\n",
		"not yaml":  "- name: [",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePrefabTable([]byte(src)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadPrefabTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefabs.yaml")
	if err := os.WriteFile(path, []byte(prefabList), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := LoadPrefabTable(path)
	if err != nil || table.Count() != 2 {
		t.Fatalf("load: %v", err)
	}
	if _, err := LoadPrefabTable(filepath.Join(t.TempDir(), "none.yaml")); err == nil || !strings.Contains(err.Error(), "read prefab list") {
		t.Fatalf("expected read error, got %v", err)
	}
}
