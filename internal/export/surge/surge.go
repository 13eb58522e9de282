// Package surge implements the schema.Exporter for the surge target: a
// single line in surge's `name = type, server, port, key=value, ...`
// config-line format.
package surge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wallacegibbon/subcon/internal/ordered"
	"github.com/wallacegibbon/subcon/internal/schema"
)

var baseKeys = map[string]struct{}{"name": {}, "type": {}, "server": {}, "port": {}}

// mergePassthrough copies any normalized key the target template never
// referenced into rendered, the same way the clash exporter forwards
// untemplated fields. Protocol-specific plugin options (shadowsocks
// obfs, hysteria2 bandwidth knobs) are declared once in a profile and
// left out of every template on purpose; this is what lets them reach
// the line format without every protocol schema re-declaring them.
func mergePassthrough(rendered, normalized *ordered.Map) {
	for _, key := range normalized.Keys() {
		if rendered.Has(key) {
			continue
		}
		v, _ := normalized.Get(key)
		rendered.Set(key, v)
	}
}

// Exporter folds a rendered proxy object into surge's line format,
// applying protocol-specific key renames first (hysteria2 bandwidth
// units, shadowsocks obfs plugin options).
type Exporter struct{}

func (Exporter) Target() string { return "surge" }

func (Exporter) Render(protocol string, _ *schema.TargetSchema, normalized, rendered *ordered.Map) (any, error) {
	mergePassthrough(rendered, normalized)

	switch protocol {
	case "hysteria2":
		if err := normalizeHysteria2(rendered); err != nil {
			return nil, err
		}
	case "shadowsocks":
		if err := normalizeShadowsocks(rendered); err != nil {
			return nil, err
		}
	}

	name, ok := normalized.Get("name")
	nameStr, isStr := name.(string)
	if !ok || !isStr {
		return nil, fmt.Errorf("surge export requires `name`")
	}

	server, err := getString(rendered, "server")
	if err != nil {
		return nil, err
	}
	port, err := getNumber(rendered, "port")
	if err != nil {
		return nil, err
	}

	return renderCommonLine(nameStr, server, port, rendered)
}

func renderCommonLine(name, server, port string, rendered *ordered.Map) (string, error) {
	typ, err := getString(rendered, "type")
	if err != nil {
		return "", err
	}

	var rest []string
	for _, key := range rendered.Keys() {
		if _, base := baseKeys[key]; !base {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	parts := make([]string, 0, 1+len(rest))
	parts = append(parts, fmt.Sprintf("%s = %s, %s, %s", name, typ, server, port))
	for _, key := range rest {
		value, _ := rendered.Get(key)
		parts = append(parts, formatValue(key, value))
	}

	return strings.Join(parts, ", "), nil
}

func normalizeHysteria2(m *ordered.Map) error {
	for _, key := range append([]string(nil), m.Keys()...) {
		value, _ := m.Get(key)
		bw, ok, err := parseBandwidth(value)
		if err != nil {
			return err
		}
		if ok {
			m.Set(key, bw)
		}
	}
	return nil
}

func normalizeShadowsocks(m *ordered.Map) error {
	m.Set("type", "ss")

	if cipher, ok := m.Get("cipher"); ok {
		m.Delete("cipher")
		m.Set("encrypt-method", cipher)
	}

	pluginRaw, hasPlugin := m.Get("plugin")
	optsRaw, _ := m.Get("plugin-opts")
	m.Delete("plugin")
	m.Delete("plugin-opts")

	if !hasPlugin {
		return nil
	}

	pluginName, ok := pluginRaw.(string)
	if !ok {
		return fmt.Errorf("shadowsocks plugin must be a string")
	}

	opts, err := parseOpts(optsRaw)
	if err != nil {
		return err
	}

	switch pluginName {
	case "obfs":
		return applyObfs(opts, m)
	default:
		return fmt.Errorf("surge exporter does not support shadowsocks plugin `%s`", pluginName)
	}
}

func applyObfs(opts *ordered.Map, m *ordered.Map) error {
	modeRaw, ok := opts.Get("mode")
	mode, isStr := modeRaw.(string)
	if !ok || !isStr {
		return fmt.Errorf("shadowsocks obfs plugin requires `mode` (http/tls)")
	}
	m.Set("obfs", mode)

	if hostRaw, ok := opts.Get("host"); ok {
		if host, ok := hostRaw.(string); ok {
			m.Set("obfs-host", host)
		}
	}

	uriRaw, ok := opts.Get("uri")
	if !ok {
		uriRaw, ok = opts.Get("path")
	}
	if ok {
		if uri, ok := uriRaw.(string); ok {
			m.Set("obfs-uri", uri)
		}
	}

	return nil
}

func parseOpts(value any) (*ordered.Map, error) {
	if value == nil {
		return ordered.NewMap(), nil
	}
	m, ok := value.(*ordered.Map)
	if !ok {
		return nil, fmt.Errorf("shadowsocks plugin-opts must be a map")
	}
	return m, nil
}

// parseBandwidth recognizes a number literal or a string like "100mbps",
// "1gbps", "500 kbps" and converts it to a Mbps float64. Strings it
// doesn't recognize (no numeric prefix, or an unknown unit) are left
// untouched and reported as not-applicable via the bool return.
func parseBandwidth(value any) (float64, bool, error) {
	var s string
	switch v := value.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case string:
		s = strings.TrimSpace(v)
	default:
		return 0, false, nil
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	if i == 0 {
		return 0, false, nil
	}
	number, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, false, nil
	}
	unit := strings.ToLower(strings.TrimSpace(s[i:]))

	var mbps float64
	switch unit {
	case "gbps", "g", "gbit":
		mbps = number * 1000
	case "mbps", "m", "mbit", "":
		mbps = number
	case "kbps", "k", "kbit":
		mbps = number / 1000
	case "bps":
		mbps = number / 1_000_000
	default:
		return 0, false, nil
	}

	return mbps, true, nil
}

func formatValue(key string, value any) string {
	switch v := value.(type) {
	case bool:
		return fmt.Sprintf("%s=%t", key, v)
	case float64:
		return fmt.Sprintf("%s=%s", key, trimFloat(v))
	case int, int64:
		return fmt.Sprintf("%s=%v", key, v)
	case string:
		return fmt.Sprintf("%s=%s", key, v)
	default:
		return fmt.Sprintf("%s=%v", key, v)
	}
}

func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

func getString(m *ordered.Map, key string) (string, error) {
	v, ok := m.Get(key)
	if !ok {
		return "", fmt.Errorf("surge export requires `%s`", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("surge export requires `%s`", key)
	}
	return s, nil
}

func getNumber(m *ordered.Map, key string) (string, error) {
	v, ok := m.Get(key)
	if !ok {
		return "", fmt.Errorf("surge export requires numeric `%s`", key)
	}
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		return strconv.FormatInt(int64(n), 10), nil
	default:
		return "", fmt.Errorf("surge export requires numeric `%s`", key)
	}
}
