// Package groups resolves proxy-group specifications (from groups.toml)
// into concrete membership lists: a rule in a group's `rule` list is
// either a literal proxy name, a `[]OtherGroup` back-reference kept
// verbatim for the renderer to expand, or a regular expression matched
// against every known proxy name.
package groups

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dlclark/regexp2"

	"github.com/wallacegibbon/subcon/internal/proxy"
)

// Spec is one [[groups]] entry from groups.toml.
type Spec struct {
	Name     string   `toml:"name"`
	Type     string   `toml:"type"`
	Rule     []string `toml:"rule"`
	URL      *string  `toml:"url"`
	Interval *int64   `toml:"interval"`
}

type groupsFile struct {
	Groups []Spec `toml:"groups"`
}

// Group is a resolved proxy group: its membership list may contain
// literal proxy names and/or `[]OtherGroup` references, in first-seen
// order.
type Group struct {
	Name     string
	Type     string
	Proxies  []string
	URL      *string
	Interval *int64
}

// LoadSpecs reads and parses a groups.toml file.
func LoadSpecs(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading groups file %s: %w", path, err)
	}
	var parsed groupsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return parsed.Groups, nil
}

// Build resolves every spec into a Group, validating `[]Name` references
// against the declared groups plus DIRECT/REJECT.
func Build(specs []Spec, proxies []proxy.Proxy) ([]Group, error) {
	proxyNames := make([]string, len(proxies))
	proxyLookup := make(map[string]struct{}, len(proxies))
	for i, p := range proxies {
		proxyNames[i] = p.Name
		proxyLookup[p.Name] = struct{}{}
	}

	allowed := map[string]struct{}{"DIRECT": {}, "REJECT": {}}
	for _, s := range specs {
		allowed[s.Name] = struct{}{}
	}

	var groups []Group
	resolved := make(map[string]struct{})

	for _, spec := range specs {
		if _, ok := resolved[spec.Name]; ok {
			continue
		}
		group, err := buildGroup(spec, allowed, proxyNames, proxyLookup)
		if err != nil {
			return nil, err
		}
		resolved[group.Name] = struct{}{}
		groups = append(groups, group)
	}

	return groups, nil
}

func buildGroup(spec Spec, allowed map[string]struct{}, proxyNames []string, proxyLookup map[string]struct{}) (Group, error) {
	var members []string
	seen := make(map[string]struct{})

	for _, rule := range spec.Rule {
		if target, ok := strings.CutPrefix(rule, "[]"); ok {
			target = strings.TrimSpace(target)
			if target == "" {
				return Group{}, fmt.Errorf("empty group reference in `%s`", spec.Name)
			}
			if _, ok := allowed[target]; !ok {
				return Group{}, fmt.Errorf("group `%s` references unknown group `%s`", spec.Name, target)
			}
			pushUnique(&members, seen, rule)
			continue
		}

		if _, ok := proxyLookup[rule]; ok {
			pushUnique(&members, seen, rule)
			continue
		}

		re, err := regexp2.Compile(rule, regexp2.None)
		if err != nil {
			return Group{}, fmt.Errorf("failed to compile regex `%s` for group `%s`: %w", rule, spec.Name, err)
		}

		var matches []string
		for _, name := range proxyNames {
			ok, err := re.MatchString(name)
			if err != nil {
				return Group{}, fmt.Errorf("failed to apply regex `%s` in group `%s` against proxy `%s`: %w", rule, spec.Name, name, err)
			}
			if ok {
				matches = append(matches, name)
			}
		}
		for _, m := range matches {
			pushUnique(&members, seen, m)
		}
	}

	return Group{
		Name:     spec.Name,
		Type:     spec.Type,
		Proxies:  members,
		URL:      spec.URL,
		Interval: spec.Interval,
	}, nil
}

func pushUnique(out *[]string, seen map[string]struct{}, value string) {
	if _, ok := seen[value]; ok {
		return
	}
	seen[value] = struct{}{}
	*out = append(*out, value)
}
