package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRuleLineWithNoResolveFlag(t *testing.T) {
	rule := parseRuleLine("IP-CIDR,1.1.1.1/32,no-resolve", "Test")
	require.NotNil(t, rule)
	require.Equal(t, "IP-CIDR", rule.Type)
	require.Equal(t, "1.1.1.1/32", rule.Content)
	require.True(t, rule.Flags.NoResolve)
	require.Equal(t, "IP-CIDR,1.1.1.1/32,Test,no-resolve", rule.Render())
}

func TestParseRuleLineStripsTrailingComment(t *testing.T) {
	rule := parseRuleLine("DOMAIN-SUFFIX,example.com // comment here", "G")
	require.NotNil(t, rule)
	require.Equal(t, "DOMAIN-SUFFIX", rule.Type)
	require.Equal(t, "example.com", rule.Content)
	require.Equal(t, "DOMAIN-SUFFIX,example.com,G", rule.Render())
}

func TestParseRuleLineSkipsUnsupportedType(t *testing.T) {
	rule := parseRuleLine("TOTALLY-MADE-UP,x", "G")
	require.Nil(t, rule)
}

func TestParseRuleLineSkipsBlankAndCommentLines(t *testing.T) {
	require.Nil(t, parseRuleLine("", "G"))
	require.Nil(t, parseRuleLine("   ", "G"))
	require.Nil(t, parseRuleLine("# a comment", "G"))
}

func TestParseRuleLineHandlesTypeOnlyRule(t *testing.T) {
	rule := parseRuleLine("MATCH", "Fallback")
	require.NotNil(t, rule)
	require.False(t, rule.HasContent)
	require.Equal(t, "MATCH,Fallback", rule.Render())
}

func TestParseRuleLineKeepsNestedParensAsOneContentPart(t *testing.T) {
	rule := parseRuleLine("AND,((DOMAIN-SUFFIX,google.com),(DST-PORT,80))", "G")
	require.NotNil(t, rule)
	require.Equal(t, "AND", rule.Type)
	require.Equal(t, "((DOMAIN-SUFFIX,google.com),(DST-PORT,80))", rule.Content)
	require.Equal(t, "AND,((DOMAIN-SUFFIX,google.com),(DST-PORT,80)),G", rule.Render())
}

func TestSplitTopLevelCommasIgnoresCommasInsideParens(t *testing.T) {
	parts := splitTopLevelCommas("OR,(a,b),(c,d)")
	require.Equal(t, []string{"OR", "(a,b)", "(c,d)"}, parts)
}

func TestReorderDomainBeforeIPMatchesLiteralScenario(t *testing.T) {
	in := []Rule{
		{Type: "IP-CIDR", Content: "1.1.1.1/32", HasContent: true, Group: "G"},
		{Type: "RULE-SET", Content: "xs", HasContent: true, Group: "G"},
		{Type: "DOMAIN-SUFFIX", Content: "example.com", HasContent: true, Group: "G"},
	}

	out := ReorderDomainBeforeIP(in)

	require.Equal(t, []string{"DOMAIN-SUFFIX,example.com,G", "RULE-SET,xs,G", "IP-CIDR,1.1.1.1/32,G"}, renderAll(out))
}

func TestReorderDomainBeforeIPIsIdempotent(t *testing.T) {
	in := []Rule{
		{Type: "IP-CIDR", HasContent: true, Content: "1.1.1.1/32", Group: "G"},
		{Type: "DOMAIN", HasContent: true, Content: "a.example", Group: "G"},
		{Type: "MATCH", Group: "G"},
		{Type: "IP-CIDR6", HasContent: true, Content: "::1/128", Group: "G"},
	}

	once := ReorderDomainBeforeIP(in)
	twice := ReorderDomainBeforeIP(once)
	require.Equal(t, renderAll(once), renderAll(twice))
}

func TestReorderDomainBeforeIPReturnsUnchangedWhenOneFamilyEmpty(t *testing.T) {
	in := []Rule{{Type: "DOMAIN-SUFFIX", HasContent: true, Content: "a.example", Group: "G"}}
	out := ReorderDomainBeforeIP(in)
	require.Equal(t, in, out)
}

func TestRewriteForClashReplacesLeadingFinal(t *testing.T) {
	require.Equal(t, "MATCH,G", RewriteForClash("FINAL,G"))
	require.Equal(t, "DOMAIN,example.com,G", RewriteForClash("DOMAIN,example.com,G"))
}

func TestRewriteForSurgeRewritesSrcIPCIDR(t *testing.T) {
	r := Rule{Type: "SRC-IP-CIDR", Content: "10.0.0.0/8", HasContent: true, Group: "G"}
	out := RewriteForSurge(r)
	require.Equal(t, "IP-CIDR", out.Type)
	require.True(t, out.Flags.NoResolve)
	require.Equal(t, "IP-CIDR,10.0.0.0/8,G,no-resolve", out.Render())
}

func TestLoadRulesResolvesInlineFinalAndFileSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cn.list"), []byte("DOMAIN-SUFFIX,cn.example\n# comment\nIP-CIDR,10.0.0.0/8\n"), 0o644))

	specs := []Spec{
		{Group: "Proxy", Ruleset: []any{"[]FINAL"}},
		{Group: "Direct", Ruleset: "cn.list"},
	}

	rules, err := LoadRules(nil, specs, dir, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"DOMAIN-SUFFIX,cn.example,Direct",
		"IP-CIDR,10.0.0.0/8,Direct",
		"FINAL,Proxy",
	}, renderAll(rules))
}

func renderAll(rules []Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Render()
	}
	return out
}
