package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

// Registry holds resolved protocol schemas plus the pluggable pieces of
// the conversion pipeline: validation modules, render passes, and
// exporters. A Registry is built once at startup from a directory of
// schema files and is safe for concurrent read-only use afterward.
type Registry struct {
	protocols        map[string]*ProtocolSchema
	modules          map[string]ProtocolModule
	exporters        map[string]Exporter
	defaultExporters map[string]Exporter
	parsers          map[string]Parser
	prologues        []RenderPass
}

// LoadFromDir parses every *.yaml file under dir (recursively) as a
// protocol schema and resolves `includes` chains into flattened schemas.
func LoadFromDir(dir string) (*Registry, error) {
	raw, err := loadProtocolFiles(dir)
	if err != nil {
		return nil, err
	}
	resolved, err := resolveProtocols(raw)
	if err != nil {
		return nil, err
	}
	return &Registry{
		protocols:        resolved,
		modules:          map[string]ProtocolModule{},
		exporters:        map[string]Exporter{},
		defaultExporters: map[string]Exporter{},
		parsers:          map[string]Parser{},
	}, nil
}

func (r *Registry) RegisterModule(m ProtocolModule)    { r.modules[m.Protocol()] = m }
func (r *Registry) RegisterExporter(e Exporter)        { r.exporters[e.Target()] = e }
func (r *Registry) RegisterDefaultExporter(e Exporter) { r.defaultExporters[e.Target()] = e }
func (r *Registry) RegisterPrologue(p RenderPass)      { r.prologues = append(r.prologues, p) }
func (r *Registry) RegisterParser(p Parser)            { r.parsers[p.Target()] = p }

// Parse dispatches to the parser registered for target.
func (r *Registry) Parse(target, input string) (*ordered.Map, error) {
	p, ok := r.parsers[target]
	if !ok {
		return nil, fmt.Errorf("parser for target `%s` is not registered", target)
	}
	return p.Parse(input)
}

// Get returns the resolved schema for protocol, if registered.
func (r *Registry) Get(protocol string) (*ProtocolSchema, bool) {
	s, ok := r.protocols[protocol]
	return s, ok
}

// TargetNotImplemented reports whether protocol declares target but marks
// it not-implemented.
func (r *Registry) TargetNotImplemented(protocol, target string) bool {
	schema, ok := r.protocols[protocol]
	if !ok {
		return false
	}
	t, ok := schema.Targets[target]
	if !ok {
		return false
	}
	return t.NotImplemented
}

// Convert runs the full pipeline for one proxy's values against protocol
// and target: normalize, protocol-module validation, template rendering,
// render passes, and finally the target's exporter (user-registered,
// falling back to the built-in default, falling back to returning the
// rendered object unchanged).
func (r *Registry) Convert(protocol, target string, values *ordered.Map) (any, error) {
	schema, ok := r.protocols[protocol]
	if !ok {
		return nil, fmt.Errorf("protocol `%s` is not registered", protocol)
	}
	targetSchema, ok := schema.Targets[target]
	if !ok {
		return nil, fmt.Errorf("protocol `%s` does not support target `%s`", protocol, target)
	}
	if targetSchema.NotImplemented {
		return nil, fmt.Errorf("protocol `%s` target `%s` is not implemented", protocol, target)
	}

	normalized, err := schema.normalize(values)
	if err != nil {
		return nil, err
	}
	if module, ok := r.modules[protocol]; ok {
		if err := module.Validate(normalized); err != nil {
			return nil, err
		}
	}

	rendered, err := schema.renderTarget(targetSchema, normalized)
	if err != nil {
		return nil, err
	}

	for _, pass := range r.prologues {
		rendered, err = pass.Render(protocol, targetSchema, normalized, rendered)
		if err != nil {
			return nil, err
		}
	}

	if exporter, ok := r.exporters[target]; ok {
		return exporter.Render(protocol, targetSchema, normalized, rendered)
	}
	if exporter, ok := r.defaultExporters[target]; ok {
		return exporter.Render(protocol, targetSchema, normalized, rendered)
	}
	return rendered, nil
}

func loadProtocolFiles(dir string) (map[string]*ProtocolSchema, error) {
	protocols := make(map[string]*ProtocolSchema)
	paths := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".yaml" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading schema file %s: %w", path, err)
		}
		var schema ProtocolSchema
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return fmt.Errorf("parsing schema file %s: %w", path, err)
		}

		if existing, ok := paths[schema.Protocol]; ok {
			log.Warn().Str("protocol", schema.Protocol).Str("path", path).Str("existing", existing).
				Msg("duplicate protocol schema ignored")
			return nil
		}
		paths[schema.Protocol] = path
		protocols[schema.Protocol] = &schema
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(protocols) == 0 {
		return nil, fmt.Errorf("no protocol schemas found under %s", dir)
	}
	return protocols, nil
}

func resolveProtocols(raw map[string]*ProtocolSchema) (map[string]*ProtocolSchema, error) {
	resolved := make(map[string]*ProtocolSchema)
	resolving := make(map[string]struct{})

	for name := range raw {
		if _, err := resolveProtocol(name, raw, resolving, resolved); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func resolveProtocol(name string, raw map[string]*ProtocolSchema, resolving map[string]struct{}, cache map[string]*ProtocolSchema) (*ProtocolSchema, error) {
	if resolved, ok := cache[name]; ok {
		return resolved, nil
	}
	if _, ok := resolving[name]; ok {
		return nil, fmt.Errorf("circular include detected for protocol `%s`", name)
	}
	resolving[name] = struct{}{}
	defer delete(resolving, name)

	schema, ok := raw[name]
	if !ok {
		return nil, fmt.Errorf("protocol `%s` referenced but not found", name)
	}

	combined := &ProtocolSchema{
		Protocol: schema.Protocol,
		Fields:   map[string]FieldSpec{},
		Targets:  map[string]*TargetSchema{},
	}

	for _, include := range schema.Includes {
		parent, err := resolveProtocol(include, raw, resolving, cache)
		if err != nil {
			return nil, err
		}
		combined.absorb(parent, false)
	}

	combined.absorb(schema, true)
	combined.Includes = nil
	if err := combined.validateTemplates(); err != nil {
		return nil, err
	}

	cache[name] = combined
	return combined, nil
}
