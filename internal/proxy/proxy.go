// Package proxy loads proxy profiles (clash-shaped YAML documents listing
// one or more outbound endpoints) and converts each entry into a protocol
// + ordered value map ready for the schema engine.
package proxy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wallacegibbon/subcon/internal/ordered"
	"github.com/wallacegibbon/subcon/internal/schema"
)

// Proxy is one outbound endpoint: its declared name, its normalized
// protocol identifier, and its raw field values as they appeared in the
// source profile.
type Proxy struct {
	Name     string
	Protocol string
	Values   *ordered.Map
}

// ToTarget converts p into target's document shape via registry.
func (p Proxy) ToTarget(registry *schema.Registry, target string) (any, error) {
	return registry.Convert(p.Protocol, target, p.Values)
}

// LoadFromProfile reads and parses a single profile file.
func LoadFromProfile(registry *schema.Registry, path string) ([]Proxy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	proxies, err := LoadFromText(registry, string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return proxies, nil
}

// LoadFromText parses a clash-shaped profile document already in memory
// (e.g. a freshly fetched subscription body).
func LoadFromText(registry *schema.Registry, text string) ([]Proxy, error) {
	parsed, err := registry.Parse("clash", text)
	if err != nil {
		return nil, fmt.Errorf("parsing clash profile: %w", err)
	}
	return extractProxies(parsed)
}

// LoadFromDir collects every *.yml/*.yaml file directly under dir (sorted
// by name) and loads each as a profile.
func LoadFromDir(registry *schema.Registry, dir string) ([]Proxy, error) {
	paths, err := CollectProfileFiles(dir)
	if err != nil {
		return nil, err
	}
	return LoadFromPaths(registry, paths)
}

// LoadFromPaths loads and concatenates proxies from each path in order.
func LoadFromPaths(registry *schema.Registry, paths []string) ([]Proxy, error) {
	var proxies []Proxy
	for _, path := range paths {
		loaded, err := LoadFromProfile(registry, path)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, loaded...)
	}
	return proxies, nil
}

// CollectProfileFiles lists the *.yml/*.yaml files directly under dir,
// sorted by name for deterministic ordering.
func CollectProfileFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profiles directory %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yml" || ext == ".yaml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func extractProxies(parsed *ordered.Map) ([]Proxy, error) {
	field := "proxies"
	value, ok := parsed.Get(field)
	if !ok {
		field = "proxy"
		value, ok = parsed.Get(field)
		if !ok {
			return nil, nil
		}
	}

	switch v := value.(type) {
	case []any:
		proxies := make([]Proxy, 0, len(v))
		for _, item := range v {
			m, ok := item.(*ordered.Map)
			if !ok {
				return nil, fmt.Errorf("each proxy must be a map")
			}
			p, err := parseProxy(m)
			if err != nil {
				return nil, err
			}
			proxies = append(proxies, p)
		}
		return proxies, nil
	case *ordered.Map:
		p, err := parseProxy(v)
		if err != nil {
			return nil, err
		}
		return []Proxy{p}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("clash profile `%s` must be an array or map", field)
	}
}

func parseProxy(m *ordered.Map) (Proxy, error) {
	nameRaw, ok := m.Get("name")
	name, isStr := nameRaw.(string)
	if !ok || !isStr {
		return Proxy{}, fmt.Errorf("proxy missing `name`")
	}

	typeRaw, ok := m.Get("type")
	typeStr, isStr := typeRaw.(string)
	if !ok || !isStr {
		return Proxy{}, fmt.Errorf("proxy `%s` missing `type`", name)
	}

	return Proxy{
		Name:     name,
		Protocol: normalizeProtocol(typeStr),
		Values:   m,
	}, nil
}

func normalizeProtocol(protocol string) string {
	if protocol == "ss" {
		return "shadowsocks"
	}
	return protocol
}
