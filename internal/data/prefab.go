package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/you-win/bevy/internal/component"
	"github.com/you-win/bevy/internal/core/ecs"
)

// PrefabEntry is one named bundle as written in the prefab list.
type PrefabEntry struct {
	Name       string               `yaml:"name"`
	Components map[string]yaml.Node `yaml:"components"`
}

// PrefabTable maps prefab names to decoded component sets.
type PrefabTable struct {
	prefabs map[string][]any
	names   []string
}

// LoadPrefabTable loads a prefab list YAML file.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefab list: %w", err)
	}
	t, err := ParsePrefabTable(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParsePrefabTable decodes a prefab list.
func ParsePrefabTable(raw []byte) (*PrefabTable, error) {
	var entries []PrefabEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse prefab list: %w", err)
	}
	t := &PrefabTable{
		prefabs: make(map[string][]any, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		key := component.NormalizeName(e.Name)
		if key == "" {
			return nil, fmt.Errorf("prefab %d has no name", i)
		}
		if _, dup := t.prefabs[key]; dup {
			return nil, fmt.Errorf("duplicate prefab %q", e.Name)
		}

		compNames := make([]string, 0, len(e.Components))
		for n := range e.Components {
			compNames = append(compNames, n)
		}
		sort.Strings(compNames)

		comps := make([]any, 0, len(compNames)+1)
		for _, n := range compNames {
			node := e.Components[n]
			v, err := component.Decode(n, &node)
			if err != nil {
				return nil, fmt.Errorf("prefab %q: %w", e.Name, err)
			}
			comps = append(comps, v)
		}
		comps = append(comps, component.Prefab(key))
		t.prefabs[key] = comps
		t.names = append(t.names, key)
	}
	sort.Strings(t.names)
	return t, nil
}

// Bundle returns a fresh bundle for the named prefab.
func (t *PrefabTable) Bundle(name string) (ecs.Bundle, bool) {
	comps, ok := t.prefabs[component.NormalizeName(name)]
	if !ok {
		return nil, false
	}
	b := make(ecs.Bundle, len(comps))
	copy(b, comps)
	return b, true
}

// Names returns the prefab names, sorted.
func (t *PrefabTable) Names() []string {
	return append([]string(nil), t.names...)
}

// Count returns the total number of prefabs loaded.
func (t *PrefabTable) Count() int {
	return len(t.prefabs)
}
