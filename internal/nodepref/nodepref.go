// Package nodepref applies the operator-configured [node_pref] overlay
// (udp, tfo, skip-cert-verify) to loaded proxies before rendering.
package nodepref

import (
	"github.com/wallacegibbon/subcon/internal/config"
	"github.com/wallacegibbon/subcon/internal/ordered"
	"github.com/wallacegibbon/subcon/internal/proxy"
	"github.com/wallacegibbon/subcon/internal/schema"
)

// Apply returns a copy of proxies with each proxy's declared-but-absent
// udp/tfo/skip-cert-verify fields set from pref. A field is only touched
// when the proxy's protocol schema declares it and the source profile did
// not already set it explicitly.
func Apply(registry *schema.Registry, proxies []proxy.Proxy, pref config.NodePref) []proxy.Proxy {
	out := make([]proxy.Proxy, len(proxies))
	for i, p := range proxies {
		values := p.Values.Clone()
		if protoSchema, ok := registry.Get(p.Protocol); ok {
			setIfDeclared(values, protoSchema, "udp", pref.UDP)
			setIfDeclared(values, protoSchema, "tfo", pref.TFO)
			setIfDeclared(values, protoSchema, "skip-cert-verify", pref.SkipCertVerify)
		}
		out[i] = proxy.Proxy{Name: p.Name, Protocol: p.Protocol, Values: values}
	}
	return out
}

func setIfDeclared(values *ordered.Map, s *schema.ProtocolSchema, field string, pref *bool) {
	if pref == nil {
		return
	}
	if _, declared := s.Fields[field]; !declared {
		return
	}
	if values.Has(field) {
		return
	}
	values.Set(field, *pref)
}
