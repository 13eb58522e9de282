package schema

import (
	"fmt"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

// ShadowsocksModule validates the extra invariants shadowsocks proxies
// carry beyond their declared field types: a port within the usual TCP
// range, and a positive udp-over-tcp-version when present.
type ShadowsocksModule struct{}

func (ShadowsocksModule) Protocol() string { return "shadowsocks" }

func (ShadowsocksModule) Validate(normalized *ordered.Map) error {
	if port, ok := asPort(normalized); ok && (port < 1 || port > 65535) {
		return fmt.Errorf("shadowsocks port out of range: %d", port)
	}
	if raw, ok := normalized.Get("udp-over-tcp-version"); ok {
		if version, ok := asInt64(raw); ok && version <= 0 {
			return fmt.Errorf("shadowsocks udp-over-tcp-version must be positive, got %d", version)
		}
	}
	return nil
}

// TrojanModule validates trojan's port range.
type TrojanModule struct{}

func (TrojanModule) Protocol() string { return "trojan" }

func (TrojanModule) Validate(normalized *ordered.Map) error {
	if port, ok := asPort(normalized); ok && (port < 1 || port > 65535) {
		return fmt.Errorf("trojan port out of range: %d", port)
	}
	return nil
}

func asPort(normalized *ordered.Map) (int64, bool) {
	raw, ok := normalized.Get("port")
	if !ok {
		return 0, false
	}
	return asInt64(raw)
}

func asInt64(v any) (int64, bool) {
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
