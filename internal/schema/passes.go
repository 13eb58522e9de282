package schema

import "github.com/wallacegibbon/subcon/internal/ordered"

// ProtocolModule hooks protocol-specific validation into convert, run
// after normalize and before rendering.
type ProtocolModule interface {
	Protocol() string
	Validate(normalized *ordered.Map) error
}

// RenderPass transforms a rendered target object before it reaches an
// Exporter. Registered prologues run in a fixed order for every
// protocol/target pair.
type RenderPass interface {
	Render(protocol string, targetSchema *TargetSchema, normalized, rendered *ordered.Map) (*ordered.Map, error)
}

// Exporter does target-specific finishing: reshaping a rendered object
// into whatever form that target's document renderer expects (an object
// for clash, a single config-line string for surge).
type Exporter interface {
	Target() string
	Render(protocol string, targetSchema *TargetSchema, normalized, rendered *ordered.Map) (any, error)
}

// Parser turns a target-specific config document into the engine's value
// model (an *ordered.Map, or nil for an empty document).
type Parser interface {
	Target() string
	Parse(input string) (*ordered.Map, error)
}

// TypeInjector guarantees a `type` key equal to the protocol name, in case
// a template never introduces one.
type TypeInjector struct{}

func (TypeInjector) Render(protocol string, _ *TargetSchema, _, rendered *ordered.Map) (*ordered.Map, error) {
	if !rendered.Has("type") {
		rendered.Set("type", protocol)
	}
	return rendered, nil
}

// FieldPruner removes any key that the target's template does not declare,
// and drops keys whose rendered value equals the template's default or
// whose source field was optional and absent. This keeps hand-edited or
// inherited templates from leaking stale keys into the rendered object.
type FieldPruner struct{}

func (FieldPruner) Render(_ string, targetSchema *TargetSchema, normalized, rendered *ordered.Map) (*ordered.Map, error) {
	allowed := make(map[string]struct{}, len(targetSchema.Template))
	for key := range targetSchema.Template {
		allowed[key] = struct{}{}
	}
	for _, key := range append([]string(nil), rendered.Keys()...) {
		if _, ok := allowed[key]; !ok {
			rendered.Delete(key)
		}
	}

	for targetKey, tmpl := range targetSchema.Template {
		if tmpl.Kind != TemplateField {
			continue
		}
		if tmpl.Field.Optional && !normalized.Has(tmpl.Field.From) {
			rendered.Delete(targetKey)
			continue
		}
		if tmpl.Field.HasDefault {
			if current, ok := rendered.Get(targetKey); ok && ordered.Equal(current, tmpl.Field.Default) {
				rendered.Delete(targetKey)
			}
		}
	}

	return rendered, nil
}
