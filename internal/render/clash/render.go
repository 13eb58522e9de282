// Package clash assembles a full clash YAML configuration document from a
// base template, resolved proxies, groups, and rules.
package clash

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wallacegibbon/subcon/internal/groups"
	"github.com/wallacegibbon/subcon/internal/ordered"
	"github.com/wallacegibbon/subcon/internal/proxy"
	"github.com/wallacegibbon/subcon/internal/rules"
	"github.com/wallacegibbon/subcon/internal/schema"
)

// Render produces the final clash document text: base template (with
// proxies/proxy-groups/rules stripped) plus the resolved proxies, proxy
// groups, and rules spliced back in as flow-map proxies and plain-scalar
// rule lines.
func Render(registry *schema.Registry, base *ordered.Map, proxyList []proxy.Proxy, groupList []groups.Group, ruleList []rules.Rule, sortProxies bool) (string, error) {
	stripped := base.Clone()
	stripped.Delete("proxies")
	stripped.Delete("proxy-groups")
	stripped.Delete("rules")

	kept := make([]proxy.Proxy, 0, len(proxyList))
	for _, p := range proxyList {
		if registry.TargetNotImplemented(p.Protocol, "clash") {
			continue
		}
		kept = append(kept, p)
	}
	if sortProxies {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	}

	proxyNodes := make([]*yaml.Node, 0, len(kept))
	for _, p := range kept {
		rendered, err := p.ToTarget(registry, "clash")
		if err != nil {
			return "", fmt.Errorf("rendering proxy `%s` for clash: %w", p.Name, err)
		}
		m, ok := rendered.(*ordered.Map)
		if !ok {
			return "", fmt.Errorf("clash export of proxy `%s` did not produce an object", p.Name)
		}
		node, err := flowNode(m)
		if err != nil {
			return "", err
		}
		proxyNodes = append(proxyNodes, node)
	}

	groupNodes, err := renderGroupNodes(groupList)
	if err != nil {
		return "", err
	}

	ruleNodes := make([]*yaml.Node, 0, len(ruleList))
	for _, r := range ruleList {
		ruleNodes = append(ruleNodes, scalarNode(rules.RewriteForClash(r.Render())))
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range stripped.Keys() {
		v, _ := stripped.Get(key)
		vNode, err := encodeGeneric(v)
		if err != nil {
			return "", err
		}
		appendPair(root, key, vNode)
	}
	appendPair(root, "proxies", &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: proxyNodes})
	appendPair(root, "proxy-groups", &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: groupNodes})
	appendPair(root, "rules", &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: ruleNodes})

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshaling clash document: %w", err)
	}
	return stripRuleQuotes(string(out)), nil
}

func appendPair(root *yaml.Node, key string, value *yaml.Node) {
	keyNode := &yaml.Node{}
	_ = keyNode.Encode(key)
	root.Content = append(root.Content, keyNode, value)
}

// renderGroupNodes builds the clash proxy-group objects: { name, type,
// proxies, url?, interval? }, with each member's leading `[]` back-reference
// marker stripped (clash references other groups by their bare name) and
// empty membership substituted with a single DIRECT entry.
func renderGroupNodes(groupList []groups.Group) ([]*yaml.Node, error) {
	nodes := make([]*yaml.Node, 0, len(groupList))
	for _, g := range groupList {
		m := ordered.NewMap()
		m.Set("name", g.Name)
		m.Set("type", g.Type)

		members := make([]any, 0, len(g.Proxies))
		for _, name := range g.Proxies {
			if stripped, ok := strings.CutPrefix(name, "[]"); ok {
				members = append(members, stripped)
			} else {
				members = append(members, name)
			}
		}
		if len(members) == 0 {
			members = []any{"DIRECT"}
		}
		m.Set("proxies", members)

		if g.URL != nil {
			m.Set("url", *g.URL)
		}
		if g.Interval != nil {
			m.Set("interval", *g.Interval)
		}

		node, err := encodeGeneric(m)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func flowNode(m *ordered.Map) (*yaml.Node, error) {
	node, err := encodeGeneric(m)
	if err != nil {
		return nil, err
	}
	node.Style = yaml.FlowStyle
	return node, nil
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func encodeGeneric(v any) (*yaml.Node, error) {
	switch vv := v.(type) {
	case *ordered.Map:
		iface, err := vv.MarshalYAML()
		if err != nil {
			return nil, err
		}
		node, ok := iface.(*yaml.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected marshal result for ordered map")
		}
		return node, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range vv {
			n, err := encodeGeneric(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(vv); err != nil {
			return nil, err
		}
		return n, nil
	}
}

var quotedRuleLine = regexp.MustCompile(`^(\s*- )"(.*)"$`)

// stripRuleQuotes removes double quotes the YAML encoder wraps around
// rule scalars (they contain commas but need no escaping). Only list items
// under the top-level `rules:` key are touched; quoted scalars elsewhere in
// the document are left as they are.
func stripRuleQuotes(doc string) string {
	lines := strings.Split(doc, "\n")
	inRules := false
	for i, line := range lines {
		if line == "rules:" {
			inRules = true
			continue
		}
		if !inRules {
			continue
		}
		if m := quotedRuleLine.FindStringSubmatch(line); m != nil {
			lines[i] = m[1] + m[2]
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(trimmed, "-") {
			continue
		}
		inRules = false
	}
	return strings.Join(lines, "\n")
}
