package schema

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

// TemplateKind discriminates the ValueTemplate union.
type TemplateKind int

const (
	TemplateField TemplateKind = iota
	TemplateObject
	TemplateSequence
	TemplateLiteral
)

// FieldRef renders by copying (and possibly suppressing) a value from the
// normalized context.
type FieldRef struct {
	From       string
	Optional   bool
	HasDefault bool
	Default    any
}

// ValueTemplate is the untagged union the source schema format uses to
// describe how a target field is produced: a reference into the normalized
// values (Field), a nested object (Object), a list (Sequence), or a
// constant (Literal). The source YAML carries no tag, so the field variant
// is recognized by the presence of a `from` key; everything else that
// parses as a mapping is an Object, a sequence node is a Sequence, and any
// scalar is a Literal.
type ValueTemplate struct {
	Kind     TemplateKind
	Field    FieldRef
	Object   map[string]*ValueTemplate
	Sequence []*ValueTemplate
	Literal  any
}

func (t *ValueTemplate) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		if hasKey(node, "from") {
			var raw struct {
				From     string `yaml:"from"`
				Optional bool   `yaml:"optional"`
				Default  *any   `yaml:"default"`
			}
			if err := node.Decode(&raw); err != nil {
				return fmt.Errorf("schema: decoding field template: %w", err)
			}
			t.Kind = TemplateField
			t.Field = FieldRef{From: raw.From, Optional: raw.Optional}
			if raw.Default != nil {
				t.Field.HasDefault = true
				t.Field.Default = *raw.Default
			}
			return nil
		}

		obj := make(map[string]*ValueTemplate)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return err
			}
			child := &ValueTemplate{}
			if err := child.UnmarshalYAML(node.Content[i+1]); err != nil {
				return err
			}
			obj[key] = child
		}
		t.Kind = TemplateObject
		t.Object = obj
		return nil

	case yaml.SequenceNode:
		seq := make([]*ValueTemplate, 0, len(node.Content))
		for _, item := range node.Content {
			child := &ValueTemplate{}
			if err := child.UnmarshalYAML(item); err != nil {
				return err
			}
			seq = append(seq, child)
		}
		t.Kind = TemplateSequence
		t.Sequence = seq
		return nil

	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return err
		}
		t.Kind = TemplateLiteral
		t.Literal = v
		return nil
	}
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// sortedKeys is used wherever Go's map iteration needs a deterministic
// order matching the BTreeMap semantics of the source format.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderTemplate evaluates t against the normalized context, returning
// (value, present). Absent return means the key should be omitted from the
// parent object or dropped from a sequence.
func renderTemplate(t *ValueTemplate, ctx *ordered.Map) (any, bool, error) {
	switch t.Kind {
	case TemplateLiteral:
		return t.Literal, true, nil

	case TemplateField:
		value, ok := ctx.Get(t.Field.From)
		if ok {
			if t.Field.HasDefault && ordered.Equal(value, t.Field.Default) {
				return nil, false, nil
			}
			return value, true, nil
		}
		if t.Field.HasDefault {
			return nil, false, nil
		}
		if t.Field.Optional {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("missing required field `%s`", t.Field.From)

	case TemplateObject:
		return renderObject(t.Object, ctx)

	case TemplateSequence:
		return renderSequence(t.Sequence, ctx)

	default:
		return nil, false, fmt.Errorf("schema: unknown template kind %d", t.Kind)
	}
}

func renderObject(tmpl map[string]*ValueTemplate, ctx *ordered.Map) (*ordered.Map, bool, error) {
	out := ordered.NewMap()
	for _, key := range sortedKeys(tmpl) {
		value, ok, err := renderTemplate(tmpl[key], ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			out.Set(key, value)
		}
	}
	return out, true, nil
}

func renderSequence(items []*ValueTemplate, ctx *ordered.Map) ([]any, bool, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		value, ok, err := renderTemplate(item, ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			out = append(out, value)
		}
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}

func validateTemplateMap(tmpl map[string]*ValueTemplate, fields map[string]FieldSpec, ctx string) error {
	for _, key := range sortedKeys(tmpl) {
		if err := validateTemplate(tmpl[key], fields, ctx); err != nil {
			return err
		}
	}
	return nil
}

func validateTemplate(t *ValueTemplate, fields map[string]FieldSpec, ctx string) error {
	switch t.Kind {
	case TemplateField:
		spec, ok := fields[t.Field.From]
		if !ok {
			return fmt.Errorf("%s references unknown field `%s`", ctx, t.Field.From)
		}
		if t.Field.HasDefault {
			if err := spec.validate(t.Field.From, t.Field.Default); err != nil {
				return err
			}
		}
		return nil
	case TemplateObject:
		return validateTemplateMap(t.Object, fields, ctx)
	case TemplateSequence:
		for _, item := range t.Sequence {
			if err := validateTemplate(item, fields, ctx); err != nil {
				return err
			}
		}
		return nil
	case TemplateLiteral:
		return nil
	default:
		return fmt.Errorf("schema: unknown template kind %d", t.Kind)
	}
}

// cloneTemplateMap is used by absorb to copy a parent's templates into a
// child without aliasing mutable state.
func cloneTemplateMap(tmpl map[string]*ValueTemplate) map[string]*ValueTemplate {
	out := make(map[string]*ValueTemplate, len(tmpl))
	for k, v := range tmpl {
		out[k] = v
	}
	return out
}
