// Package schema implements the declarative protocol-to-target conversion
// engine: each supported proxy protocol (shadowsocks, trojan, ...) declares
// a ProtocolSchema describing its fields and, per export target, a
// template for rendering those fields into the target's document shape.
// Protocol schemas can inherit from one another via includes, and the
// engine validates, normalizes, and renders proxy values without any
// protocol-specific Go code beyond the small validation hooks in
// ProtocolModule.
package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

// ProtocolSchema is the parsed contents of one schema YAML file (after
// include resolution).
type ProtocolSchema struct {
	Protocol string               `yaml:"protocol"`
	Includes []string             `yaml:"includes"`
	Fields   map[string]FieldSpec `yaml:"fields"`
	Targets  map[string]*TargetSchema `yaml:"targets"`
}

// TargetSchema describes how one protocol renders for one export target.
type TargetSchema struct {
	Template       map[string]*ValueTemplate `yaml:"template"`
	OrderedKeys    []string                  `yaml:"ordered_keys"`
	NotImplemented bool                      `yaml:"not-implemented"`
}

// UnmarshalYAML gives ProtocolSchema the same defaulting behavior as the
// source format: `fields` and `targets` are optional and default empty.
func (p *ProtocolSchema) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Protocol string                   `yaml:"protocol"`
		Includes []string                 `yaml:"includes"`
		Fields   map[string]FieldSpec     `yaml:"fields"`
		Targets  map[string]*TargetSchema `yaml:"targets"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	p.Protocol = raw.Protocol
	p.Includes = raw.Includes
	p.Fields = raw.Fields
	if p.Fields == nil {
		p.Fields = map[string]FieldSpec{}
	}
	p.Targets = raw.Targets
	if p.Targets == nil {
		p.Targets = map[string]*TargetSchema{}
	}
	return nil
}

// clone returns a deep copy so absorb can merge without aliasing shared
// state between a cached parent schema and its children.
func (p *ProtocolSchema) clone() *ProtocolSchema {
	fields := make(map[string]FieldSpec, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	targets := make(map[string]*TargetSchema, len(p.Targets))
	for k, v := range p.Targets {
		targets[k] = v.clone()
	}
	return &ProtocolSchema{
		Protocol: p.Protocol,
		Includes: append([]string(nil), p.Includes...),
		Fields:   fields,
		Targets:  targets,
	}
}

func (t *TargetSchema) clone() *TargetSchema {
	return &TargetSchema{
		Template:       cloneTemplateMap(t.Template),
		OrderedKeys:    append([]string(nil), t.OrderedKeys...),
		NotImplemented: t.NotImplemented,
	}
}

// absorb merges other into p. When overrideExisting is true, other's
// entries win on conflict (used when a protocol merges its own
// declarations over its resolved parents); otherwise p's existing entries
// are kept and other only fills gaps (used when folding a parent in).
func (p *ProtocolSchema) absorb(other *ProtocolSchema, overrideExisting bool) {
	for name, field := range other.Fields {
		if overrideExisting || !hasField(p.Fields, name) {
			p.Fields[name] = field
		}
	}

	for name, target := range other.Targets {
		if existing, ok := p.Targets[name]; ok {
			existing.absorb(target, overrideExisting)
		} else {
			p.Targets[name] = target.clone()
		}
	}
}

func hasField(fields map[string]FieldSpec, name string) bool {
	_, ok := fields[name]
	return ok
}

func (t *TargetSchema) absorb(other *TargetSchema, overrideExisting bool) {
	if overrideExisting {
		if other.OrderedKeys != nil {
			t.OrderedKeys = other.OrderedKeys
		}
	} else if t.OrderedKeys == nil {
		t.OrderedKeys = other.OrderedKeys
	}

	if overrideExisting {
		t.NotImplemented = other.NotImplemented
	}

	if t.Template == nil {
		t.Template = map[string]*ValueTemplate{}
	}
	for key, tmpl := range other.Template {
		if overrideExisting || t.Template[key] == nil {
			t.Template[key] = tmpl
		}
	}
}

// normalize copies values into a fresh ordered map, validating declared
// fields against their FieldSpec and preserving source order for any
// values that are not covered by a declared field. Declared fields are
// visited in sorted (alphabetical) order, matching historical behavior of
// the schema this engine was ported from; undeclared passthrough values
// (e.g. cipher suites or plugin options that vary per proxy and are not
// worth type-checking) keep the order they appear in the proxy profile.
func (p *ProtocolSchema) normalize(values *ordered.Map) (*ordered.Map, error) {
	normalized := ordered.NewMap()

	for _, name := range sortedKeys(p.Fields) {
		value, ok := values.Get(name)
		if !ok {
			continue
		}
		if err := p.Fields[name].validate(name, value); err != nil {
			return nil, err
		}
		normalized.Set(name, value)
	}

	values.Range(func(key string, value any) bool {
		if !normalized.Has(key) {
			normalized.Set(key, value)
		}
		return true
	})

	return normalized, nil
}

// renderTarget evaluates targetSchema's template against normalized,
// injecting a `type` field equal to the protocol name when the template
// did not already produce one.
func (p *ProtocolSchema) renderTarget(targetSchema *TargetSchema, normalized *ordered.Map) (*ordered.Map, error) {
	rendered, _, err := renderObject(targetSchema.Template, normalized)
	if err != nil {
		return nil, err
	}
	if !rendered.Has("type") {
		rendered.Set("type", p.Protocol)
	}
	return rendered, nil
}

func (p *ProtocolSchema) validateTemplates() error {
	for _, name := range sortedKeys(p.Targets) {
		target := p.Targets[name]
		ctx := fmt.Sprintf("target `%s` of `%s`", name, p.Protocol)
		if err := validateTemplateMap(target.Template, p.Fields, ctx); err != nil {
			return err
		}
	}
	return nil
}
