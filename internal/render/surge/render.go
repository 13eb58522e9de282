// Package surge assembles a full surge configuration document: an
// optional managed-config header, the base template text, and the
// [Proxy]/[Proxy Group]/[Rule] sections built from resolved proxies,
// groups, and rules.
package surge

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/wallacegibbon/subcon/internal/groups"
	"github.com/wallacegibbon/subcon/internal/ordered"
	"github.com/wallacegibbon/subcon/internal/proxy"
	"github.com/wallacegibbon/subcon/internal/rules"
	"github.com/wallacegibbon/subcon/internal/schema"
)

// Render produces the final surge document text. managedConfigLine, when
// non-empty, is emitted verbatim as the first line (the caller builds it,
// since it needs request-scoped data the renderer has no business
// knowing about).
func Render(registry *schema.Registry, managedConfigLine string, baseText string, proxyList []proxy.Proxy, groupList []groups.Group, ruleList []rules.Rule, sortProxies bool) (string, error) {
	var out strings.Builder

	if managedConfigLine != "" {
		out.WriteString(managedConfigLine)
		out.WriteString("\n")
	}

	out.WriteString(baseText)
	if !strings.HasSuffix(baseText, "\n") {
		out.WriteString("\n")
	}
	out.WriteString("\n")

	kept := make([]proxy.Proxy, 0, len(proxyList))
	for _, p := range proxyList {
		if registry.TargetNotImplemented(p.Protocol, "surge") {
			continue
		}
		kept = append(kept, p)
	}
	if sortProxies {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	}

	var wireguardSections []string

	if len(kept) > 0 {
		out.WriteString("[Proxy]\n")
		for _, p := range kept {
			if p.Protocol == "wireguard" {
				line, section := renderWireguardLine(p)
				out.WriteString(line)
				out.WriteString("\n")
				if section != "" {
					wireguardSections = append(wireguardSections, section)
				}
				continue
			}
			line, err := renderProxyLine(registry, p)
			if err != nil {
				return "", err
			}
			out.WriteString(line)
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}

	for _, section := range wireguardSections {
		out.WriteString(section)
		if !strings.HasSuffix(section, "\n") {
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}

	if len(groupList) > 0 {
		out.WriteString("[Proxy Group]\n")
		for _, g := range groupList {
			out.WriteString(renderGroupLine(g))
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}

	if len(ruleList) > 0 {
		out.WriteString("[Rule]\n")
		for _, r := range ruleList {
			out.WriteString(rules.RewriteForSurge(r).Render())
			out.WriteString("\n")
		}
	}

	return out.String(), nil
}

func renderProxyLine(registry *schema.Registry, p proxy.Proxy) (string, error) {
	rendered, err := p.ToTarget(registry, "surge")
	if err != nil {
		return "", fmt.Errorf("rendering proxy `%s` for surge: %w", p.Name, err)
	}
	line, ok := rendered.(string)
	if !ok {
		return "", fmt.Errorf("surge export of proxy `%s` did not produce a line", p.Name)
	}
	return line, nil
}

func renderGroupLine(g groups.Group) string {
	groupType := g.Type
	if groupType == "url-test" {
		groupType = "smart"
	}
	if len(g.Proxies) == 0 {
		groupType = "select"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s = %s", g.Name, groupType)
	if len(g.Proxies) == 0 {
		b.WriteString(",DIRECT")
	} else {
		for _, member := range g.Proxies {
			name := strings.TrimPrefix(member, "[]")
			b.WriteString(",")
			b.WriteString(name)
		}
	}
	return b.String()
}

// wireguardSkipKeys lists the raw profile keys the proxy line / section
// builder below already accounts for explicitly; anything else present on
// the proxy is appended to the line as a bare passthrough key=value.
var wireguardSkipKeys = map[string]struct{}{
	"name": {}, "type": {}, "server": {}, "port": {},
	"dns-server": {}, "ip": {}, "ipv6": {},
	"private-key": {}, "public-key": {},
	"pre-shared-key": {}, "preshared-key": {},
	"allowed-ips": {}, "dialer-proxy": {},
}

// renderWireguardLine builds the `name = wireguard, section-name=<hex>...`
// proxy-line and its companion `[WireGuard <hex>]` section, reading
// straight from the proxy's raw profile values (wireguard has no shared
// shape worth modeling as a target template; every field it needs is a
// direct passthrough).
func renderWireguardLine(p proxy.Proxy) (string, string) {
	sectionName := deterministicHexSection(p.Name)

	var line strings.Builder
	fmt.Fprintf(&line, "%s = wireguard, section-name=%s", p.Name, sectionName)

	if underlying, ok := stringValue(p.Values, "dialer-proxy"); ok {
		fmt.Fprintf(&line, ", underlying-proxy=%s", underlying)
	}

	section := ordered.NewMap()

	if dns, ok := p.Values.Get("dns-server"); ok {
		if first, ok := firstString(dns); ok {
			section.Set("dns-server", first)
		}
	}
	if ip, ok := stringValue(p.Values, "ip"); ok {
		section.Set("self-ip", ip)
	}
	if ipv6, ok := stringValue(p.Values, "ipv6"); ok {
		section.Set("self-ip-v6", ipv6)
	}
	if pk, ok := stringValue(p.Values, "private-key"); ok {
		section.Set("private-key", pk)
	}

	var peerParts []string
	if pub, ok := stringValue(p.Values, "public-key"); ok {
		peerParts = append(peerParts, fmt.Sprintf("public-key = %s", pub))
	}
	if server, ok := stringValue(p.Values, "server"); ok {
		if port, ok := intValue(p.Values, "port"); ok {
			peerParts = append(peerParts, fmt.Sprintf("endpoint = %s:%d", server, port))
		}
	}
	psk, ok := stringValue(p.Values, "preshared-key")
	if !ok {
		psk, ok = stringValue(p.Values, "pre-shared-key")
	}
	if ok {
		peerParts = append(peerParts, fmt.Sprintf("preshared-key = %s", psk))
	}
	if joined, ok := joinedStrings(p.Values, "allowed-ips"); ok {
		peerParts = append(peerParts, fmt.Sprintf(`allowed-ips = "%s"`, joined))
	}
	if len(peerParts) > 0 {
		section.Set("peer", "("+strings.Join(peerParts, ", ")+")")
	}

	for _, key := range p.Values.Keys() {
		if _, skip := wireguardSkipKeys[key]; skip {
			continue
		}
		v, _ := p.Values.Get(key)
		fmt.Fprintf(&line, ", %s=%s", key, formatScalar(v))
	}

	if section.Len() == 0 {
		return line.String(), ""
	}

	var block strings.Builder
	fmt.Fprintf(&block, "[WireGuard %s]\n", sectionName)
	for _, key := range section.Keys() {
		v, _ := section.Get(key)
		fmt.Fprintf(&block, "%s=%s\n", key, formatScalar(v))
	}
	return line.String(), block.String()
}

func deterministicHexSection(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	n := h.Sum32() & 0xFFFFF
	return fmt.Sprintf("%05x", n)
}

func stringValue(m *ordered.Map, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intValue(m *ordered.Map, key string) (int64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func firstString(v any) (string, bool) {
	switch vv := v.(type) {
	case string:
		return vv, true
	case []any:
		if len(vv) == 0 {
			return "", false
		}
		s, ok := vv[0].(string)
		return s, ok
	default:
		return "", false
	}
}

func joinedStrings(m *ordered.Map, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	switch vv := v.(type) {
	case string:
		return vv, true
	case []any:
		parts := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		return "", false
	}
}

func formatScalar(v any) string {
	switch vv := v.(type) {
	case bool:
		return fmt.Sprintf("%t", vv)
	case string:
		return vv
	case []any:
		parts := make([]string, 0, len(vv))
		for _, item := range vv {
			parts = append(parts, formatScalar(item))
		}
		return strings.Join(parts, "|")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", vv)
	}
}
