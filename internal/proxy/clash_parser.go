package proxy

import (
	"gopkg.in/yaml.v3"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

// ClashParser decodes a clash-shaped YAML profile (or any YAML mapping
// document carrying a `proxies`/`proxy` key) into the engine's ordered
// value model.
type ClashParser struct{}

func (ClashParser) Target() string { return "clash" }

func (ClashParser) Parse(input string) (*ordered.Map, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(input), &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return ordered.NewMap(), nil
	}

	doc := node.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return ordered.NewMap(), nil
	}

	m := ordered.NewMap()
	if err := m.UnmarshalYAML(doc); err != nil {
		return nil, err
	}
	return m, nil
}
