package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wallacegibbon/subcon/internal/cache"
)

// Spec is one [[rulesets]] entry; Ruleset is a single string or a list of
// strings, each classified independently by LoadRules.
type Spec struct {
	Group   string `toml:"group"`
	Ruleset any    `toml:"ruleset"`
}

type rulesetsFile struct {
	Rulesets []Spec `toml:"rulesets"`
}

// LoadRulesetSpecs reads and parses a rulesets.toml file.
func LoadRulesetSpecs(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rulesets file %s: %w", path, err)
	}
	var parsed rulesetsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return parsed.Rulesets, nil
}

func (s Spec) entries() ([]string, error) {
	switch v := s.Ruleset.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("ruleset entries for group `%s` must be strings", s.Group)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("ruleset for group `%s` must be a string or list of strings", s.Group)
	}
}

// LoadRules loads every ruleset referenced by specs, in order, and returns
// the flattened, parsed rule list with synthesized FINAL rules appended
// last.
func LoadRules(ctx context.Context, specs []Spec, rulesBaseDir string, fetcher *cache.Fetcher, userAgents []string) ([]Rule, error) {
	var rules []Rule
	var finalGroups []string

	for _, spec := range specs {
		entries, err := spec.entries()
		if err != nil {
			return nil, err
		}

		for _, raw := range entries {
			trimmed := strings.TrimSpace(raw)

			if strings.EqualFold(trimmed, "[]FINAL") {
				finalGroups = append(finalGroups, spec.Group)
				continue
			}

			if inline, ok := strings.CutPrefix(trimmed, "[]"); ok {
				if rule := parseRuleLine(inline, spec.Group); rule != nil {
					rules = append(rules, *rule)
				}
				continue
			}

			if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
				text, err := cache.GetOrFetchWith(ctx, fetcher, trimmed, userAgents, false, func(s string) (string, error) { return s, nil })
				if err != nil {
					return nil, fmt.Errorf("fetching ruleset %s: %w", trimmed, err)
				}
				appendParsedLines(&rules, text, spec.Group)
				continue
			}

			path := trimmed
			if !filepath.IsAbs(path) {
				path = filepath.Join(rulesBaseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading ruleset %s: %w", path, err)
			}
			appendParsedLines(&rules, string(data), spec.Group)
		}
	}

	for _, group := range finalGroups {
		rules = append(rules, Rule{Type: "FINAL", Group: group})
	}

	return rules, nil
}

func appendParsedLines(rules *[]Rule, text, group string) {
	for _, line := range strings.Split(text, "\n") {
		if rule := parseRuleLine(line, group); rule != nil {
			*rules = append(*rules, *rule)
		}
	}
}
