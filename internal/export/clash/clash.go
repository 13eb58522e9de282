// Package clash implements the schema.Exporter for the clash target.
package clash

import (
	"github.com/wallacegibbon/subcon/internal/ordered"
	"github.com/wallacegibbon/subcon/internal/schema"
)

// proxyKeyPriority is emitted first, in this order, ahead of every other
// key a rendered proxy object carries.
var proxyKeyPriority = []string{"name", "type", "server", "password"}

// Exporter reorders a rendered proxy object so that name/type/server/
// password come first (each exactly once), followed by every other key in
// the order it appeared in the normalized proxy values. A normalized key
// the target template never referenced (plain passthrough, e.g. a
// protocol-specific knob no template bothers to rename) is forwarded
// verbatim from normalized rather than dropped.
type Exporter struct{}

func (Exporter) Target() string { return "clash" }

func (Exporter) Render(_ string, _ *schema.TargetSchema, normalized, rendered *ordered.Map) (any, error) {
	out := ordered.NewMap()

	for _, key := range proxyKeyPriority {
		if v, ok := rendered.Get(key); ok {
			out.Set(key, v)
		}
	}

	for _, key := range normalized.Keys() {
		if out.Has(key) {
			continue
		}
		if v, ok := rendered.Get(key); ok {
			out.Set(key, v)
			continue
		}
		v, _ := normalized.Get(key)
		out.Set(key, v)
	}

	// Keys the template introduced that have no counterpart in the
	// normalized source (e.g. a literal constant) are appended last, in
	// the rendered object's own order.
	for _, key := range rendered.Keys() {
		if !out.Has(key) {
			v, _ := rendered.Get(key)
			out.Set(key, v)
		}
	}

	return out, nil
}
