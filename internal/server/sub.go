package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wallacegibbon/subcon/internal/config"
	"github.com/wallacegibbon/subcon/internal/groups"
	"github.com/wallacegibbon/subcon/internal/nodepref"
	"github.com/wallacegibbon/subcon/internal/ordered"
	"github.com/wallacegibbon/subcon/internal/paths"
	"github.com/wallacegibbon/subcon/internal/proxy"
	clashrender "github.com/wallacegibbon/subcon/internal/render/clash"
	surgerender "github.com/wallacegibbon/subcon/internal/render/surge"
	"github.com/wallacegibbon/subcon/internal/rules"
)

func (s *Server) handleSub(c *gin.Context) {
	target := c.Query("target")
	if target != "clash" && target != "surge" {
		c.String(http.StatusBadRequest, "unknown target %q", target)
		return
	}

	state := s.current()
	token := c.Query("token")
	includeInsert := state.Pref.Common.APIAccessToken != nil && token != "" && token == *state.Pref.Common.APIAccessToken

	rawURL := c.Query("url")
	proxies, err := sourceProxies(c.Request.Context(), state, rawURL, includeInsert)
	if err != nil {
		c.String(httpStatus(err), "%s", err.Error())
		return
	}
	proxies = nodepref.Apply(state.Registry, proxies, state.Pref.NodePref)

	groupList, err := loadGroups(state, proxies)
	if err != nil {
		c.String(http.StatusInternalServerError, "%s", err.Error())
		return
	}

	ruleList, err := loadRuleList(c.Request.Context(), state)
	if err != nil {
		c.String(http.StatusInternalServerError, "%s", err.Error())
		return
	}
	ruleList = rules.ReorderDomainBeforeIP(ruleList)

	var body string
	switch target {
	case "clash":
		body, err = renderClash(state, proxies, groupList, ruleList)
	case "surge":
		body, err = renderSurge(state, c, proxies, groupList, ruleList)
	}
	if err != nil {
		c.String(http.StatusInternalServerError, "%s", err.Error())
		return
	}

	c.Data(http.StatusOK, "text/yaml; charset=utf-8", []byte(body))
}

func loadGroups(state *RuntimeState, proxies []proxy.Proxy) ([]groups.Group, error) {
	var specs []groups.Spec
	for _, imp := range state.Pref.CustomGroups {
		path := paths.Resolve(state.BaseDir, imp.Import)
		loaded, err := groups.LoadSpecs(path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, loaded...)
	}
	return groups.Build(specs, proxies)
}

// loadRuleList loads every rulesets.toml import named under [[rulesets]]
// when [ruleset].enabled is set, concatenating their specs in declared
// order before handing them to rules.LoadRules. Ruleset-relative file
// paths (as opposed to http(s):// or inline "[]..." entries) resolve
// against the server's base directory.
func loadRuleList(ctx context.Context, state *RuntimeState) ([]rules.Rule, error) {
	if state.Pref.Ruleset == nil || !state.Pref.Ruleset.Enabled {
		return nil, nil
	}

	var specs []rules.Spec
	for _, imp := range state.Pref.Rulesets {
		path := paths.Resolve(state.BaseDir, imp.Import)
		loaded, err := rules.LoadRulesetSpecs(path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, loaded...)
	}

	return rules.LoadRules(ctx, specs, state.BaseDir, state.Fetcher, subscriptionUserAgents)
}

func renderClash(state *RuntimeState, proxies []proxy.Proxy, groupList []groups.Group, ruleList []rules.Rule) (string, error) {
	base, err := loadClashBase(state)
	if err != nil {
		return "", err
	}
	return clashrender.Render(state.Registry, base, proxies, groupList, ruleList, state.Pref.Common.Sort)
}

func loadClashBase(state *RuntimeState) (*ordered.Map, error) {
	if state.Pref.Common.ClashRuleBase == nil {
		return ordered.NewMap(), nil
	}
	path := paths.Resolve(state.BaseDir, *state.Pref.Common.ClashRuleBase)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading clash rule base %s: %w", path, err)
	}
	base, err := state.Registry.Parse("clash", string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing clash rule base %s: %w", path, err)
	}
	return base, nil
}

func renderSurge(state *RuntimeState, c *gin.Context, proxies []proxy.Proxy, groupList []groups.Group, ruleList []rules.Rule) (string, error) {
	baseText, err := loadSurgeBase(state)
	if err != nil {
		return "", err
	}
	managedLine := buildManagedConfigLine(state.Pref.ManagedConfig, c.Request.URL.RequestURI())
	return surgerender.Render(state.Registry, managedLine, baseText, proxies, groupList, ruleList, state.Pref.Common.Sort)
}

func loadSurgeBase(state *RuntimeState) (string, error) {
	if state.Pref.Common.SurgeRuleBase == nil {
		return "", nil
	}
	path := paths.Resolve(state.BaseDir, *state.Pref.Common.SurgeRuleBase)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading surge rule base %s: %w", path, err)
	}
	return string(data), nil
}

// buildManagedConfigLine reproduces spec.md §4.H/§6's
// `#!MANAGED-CONFIG <base_url>/<uri> interval=<n> strict=<bool>` header,
// trimming a trailing slash off base_url and keeping uri's leading slash
// (the request's raw path+query), adding one when uri lacks it.
func buildManagedConfigLine(mc config.ManagedConfig, requestURI string) string {
	if !mc.WriteManagedConfig || mc.BaseURL == nil || *mc.BaseURL == "" || requestURI == "" {
		return ""
	}
	base := strings.TrimSuffix(*mc.BaseURL, "/")
	uri := requestURI
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return fmt.Sprintf("#!MANAGED-CONFIG %s%s interval=%d strict=%t", base, uri, mc.Interval, mc.Strict)
}
