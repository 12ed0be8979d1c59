// Package component defines the concrete component types of the runtime and
// the registry that decodes them from prefab data.
package component

// Position is a point in world space.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Velocity is applied to Position once per tick, scaled by the tick length
// in seconds.
type Velocity struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Lifetime counts the ticks an entity has left before it is despawned.
type Lifetime struct {
	Ticks int `yaml:"ticks"`
}

type Health struct {
	Current int `yaml:"current"`
	Max     int `yaml:"max"`
}

// Label is a human-readable name.
type Label string

// Prefab records which prefab an entity was spawned from.
type Prefab string
