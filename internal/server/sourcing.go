package server

import (
	"context"
	"fmt"

	"github.com/wallacegibbon/subcon/internal/cache"
	"github.com/wallacegibbon/subcon/internal/config"
	"github.com/wallacegibbon/subcon/internal/paths"
	"github.com/wallacegibbon/subcon/internal/proxy"
)

// subscriptionUserAgents are tried in order against a subscription URL
// (spec.md §4.H).
var subscriptionUserAgents = []string{"Clash/v1.18.0", "mihomo/1.19.17"}

// sourceProxies resolves the proxy list for one /sub request: either a
// fetched subscription URL (optionally merged with local inserts), or the
// union of locally configured profile paths.
func sourceProxies(ctx context.Context, state *RuntimeState, rawURL string, includeInsert bool) ([]proxy.Proxy, error) {
	if rawURL != "" {
		fetched, err := cache.GetOrFetchWith(ctx, state.Fetcher, rawURL, subscriptionUserAgents, false, func(text string) ([]proxy.Proxy, error) {
			return proxy.LoadFromText(state.Registry, text)
		})
		if err != nil {
			return nil, err
		}
		if len(fetched) == 0 {
			return nil, fmt.Errorf("subscription at %s contained no proxies", rawURL)
		}

		if !includeInsert || !state.Pref.Common.EnableInsert {
			return fetched, nil
		}

		insertPaths := gatherInsertPaths(state.Pref, state.BaseDir)
		inserted, err := proxy.LoadFromPaths(state.Registry, insertPaths)
		if err != nil {
			return nil, err
		}
		if state.Pref.Common.PrependInsertURL {
			return append(inserted, fetched...), nil
		}
		return append(fetched, inserted...), nil
	}

	profilePaths := gatherProfilePaths(state.Pref, includeInsert, state.BaseDir)
	return proxy.LoadFromPaths(state.Registry, profilePaths)
}

// gatherProfilePaths unions the default profile paths with the insert
// paths (when include_insert and [common].enable_insert both hold),
// prepending or appending the inserts per [common].prepend_insert_url and
// de-duplicating by resolved path, preserving first occurrence.
func gatherProfilePaths(pref *config.Pref, includeInsert bool, baseDir string) []string {
	defaults := resolveAll(pref.Common.DefaultURL, baseDir)

	var inserts []string
	if includeInsert && pref.Common.EnableInsert {
		inserts = gatherInsertPaths(pref, baseDir)
	}

	var ordered []string
	if pref.Common.PrependInsertURL {
		ordered = append(ordered, inserts...)
		ordered = append(ordered, defaults...)
	} else {
		ordered = append(ordered, defaults...)
		ordered = append(ordered, inserts...)
	}
	return dedupPaths(ordered)
}

func gatherInsertPaths(pref *config.Pref, baseDir string) []string {
	return dedupPaths(resolveAll(pref.Common.InsertURL, baseDir))
}

func resolveAll(rawPaths []string, baseDir string) []string {
	out := make([]string, len(rawPaths))
	for i, p := range rawPaths {
		out[i] = paths.Resolve(baseDir, p)
	}
	return out
}

func dedupPaths(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
