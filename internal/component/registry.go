package component

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrUnknownComponent is returned for component names with no decoder.
var ErrUnknownComponent = errors.New("component: unknown component")

// Decoder turns a YAML node into one component value.
type Decoder func(node *yaml.Node) (any, error)

var decoders = map[string]Decoder{
	"position": decodeAs[Position],
	"velocity": decodeAs[Velocity],
	"lifetime": decodeLifetime,
	"health":   decodeHealth,
	"label":    decodeAs[Label],
}

func decodeAs[T any](node *yaml.Node) (any, error) {
	var v T
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// lifetime accepts either `lifetime: 30` or `lifetime: {ticks: 30}`.
func decodeLifetime(node *yaml.Node) (any, error) {
	if node.Kind == yaml.ScalarNode {
		var n int
		if err := node.Decode(&n); err != nil {
			return nil, err
		}
		return Lifetime{Ticks: n}, nil
	}
	return decodeAs[Lifetime](node)
}

// health accepts either `health: 10` (full health) or a mapping.
func decodeHealth(node *yaml.Node) (any, error) {
	if node.Kind == yaml.ScalarNode {
		var n int
		if err := node.Decode(&n); err != nil {
			return nil, err
		}
		return Health{Current: n, Max: n}, nil
	}
	v, err := decodeAs[Health](node)
	if err != nil {
		return nil, err
	}
	h := v.(Health)
	if h.Max == 0 {
		h.Max = h.Current
	}
	return h, nil
}

// NormalizeName folds a component or prefab name to its lookup key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// Decode decodes the component registered under name.
func Decode(name string, node *yaml.Node) (any, error) {
	dec, ok := decoders[NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	v, err := dec(node)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, nil
}

// Names lists the registered component names, sorted.
func Names() []string {
	out := make([]string, 0, len(decoders))
	for n := range decoders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
