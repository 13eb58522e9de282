// Package rules loads ruleset definitions (inline lines, local files, and
// remote URLs) into a normalized rule representation and applies the
// target-specific rewrites and domain/IP reordering described for the
// clash and surge renderers.
package rules

import "strings"

// Flags carries the line-level modifiers a rule may declare.
type Flags struct {
	NoResolve bool
}

// Rule is one normalized rule line, bound to the proxy group it routes
// traffic to.
type Rule struct {
	Type       string
	Content    string
	HasContent bool
	Group      string
	Flags      Flags
}

// Render reproduces the `type[,content],group[,no-resolve]` line shape.
func (r Rule) Render() string {
	parts := []string{r.Type}
	if r.HasContent {
		parts = append(parts, r.Content)
	}
	parts = append(parts, r.Group)
	if r.Flags.NoResolve {
		parts = append(parts, "no-resolve")
	}
	return strings.Join(parts, ",")
}
