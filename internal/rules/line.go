package rules

import (
	"strings"

	"github.com/rs/zerolog/log"
)

var supportedRuleTypes = map[string]struct{}{
	"DOMAIN": {}, "DOMAIN-SUFFIX": {}, "DOMAIN-KEYWORD": {}, "DOMAIN-WILDCARD": {}, "DOMAIN-REGEX": {},
	"GEOSITE": {}, "IP-CIDR": {}, "IP-CIDR6": {}, "IP-SUFFIX": {}, "IP-ASN": {}, "GEOIP": {},
	"SRC-GEOIP": {}, "SRC-IP-ASN": {}, "SRC-IP-CIDR": {}, "SRC-IP-SUFFIX": {},
	"DST-PORT": {}, "SRC-PORT": {}, "IN-PORT": {}, "IN-TYPE": {}, "IN-USER": {}, "IN-NAME": {},
	"PROCESS-PATH": {}, "PROCESS-PATH-REGEX": {}, "PROCESS-NAME": {}, "PROCESS-NAME-REGEX": {},
	"UID": {}, "NETWORK": {}, "DSCP": {}, "RULE-SET": {}, "AND": {}, "OR": {}, "NOT": {}, "SUB-RULE": {}, "MATCH": {},
}

var domainFamily = map[string]struct{}{
	"DOMAIN": {}, "DOMAIN-SUFFIX": {}, "DOMAIN-KEYWORD": {}, "DOMAIN-WILDCARD": {}, "DOMAIN-REGEX": {}, "GEOSITE": {},
}

var ipFamily = map[string]struct{}{
	"IP-CIDR": {}, "IP-CIDR6": {}, "IP-SUFFIX": {}, "IP-ASN": {}, "GEOIP": {},
	"SRC-GEOIP": {}, "SRC-IP-ASN": {}, "SRC-IP-CIDR": {}, "SRC-IP-SUFFIX": {},
}

func isSupportedRuleType(raw string) bool {
	_, ok := supportedRuleTypes[strings.ToUpper(raw)]
	return ok
}

// parseRuleLine parses one rule-set text line bound to group. It returns
// nil for blank/comment lines and for rule types outside the supported
// whitelist, which are logged and skipped rather than treated as errors.
func parseRuleLine(line, group string) *Rule {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	parts := splitTopLevelCommas(trimmed)
	if len(parts) == 0 || parts[0] == "" {
		return nil
	}

	rawType := parts[0]
	if !isSupportedRuleType(rawType) {
		log.Warn().Str("rule_type", rawType).Msg("unsupported rule type skipped")
		return nil
	}

	tail := parts[1:]
	var flags Flags
	for len(tail) > 0 && strings.EqualFold(tail[len(tail)-1], "no-resolve") {
		flags.NoResolve = true
		tail = tail[:len(tail)-1]
	}

	rule := &Rule{
		Type:  strings.ToUpper(rawType),
		Group: group,
		Flags: flags,
	}
	if len(tail) > 0 {
		rule.Content = strings.Join(tail, ",")
		rule.HasContent = true
	}
	return rule
}

// splitTopLevelCommas splits s on commas that are not nested inside
// parentheses, trimming whitespace from each part. This lets AND/OR/NOT/
// SUB-RULE rules carry a parenthesized, comma-separated body as their
// single content part.
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}
