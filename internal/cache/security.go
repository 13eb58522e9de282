package cache

import (
	"net/url"
	"strings"
)

// Security holds a lower-cased domain allowlist and validates candidate
// URLs against it before any read or fetch (spec.md §4.B).
type Security struct {
	allowed map[string]struct{}
}

// NewSecurity builds a Security from the configured allowlist.
func NewSecurity(allowedDomains []string) *Security {
	m := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		m[strings.ToLower(d)] = struct{}{}
	}
	return &Security{allowed: m}
}

// ValidateURL checks u's host against the allowlist. An empty allowlist
// denies everything with KindDomainDenied, distinct from a host simply not
// matching any entry (also KindDomainDenied, but with a different message).
func (s *Security) ValidateURL(u *url.URL) error {
	host := u.Hostname()
	if host == "" {
		return newError(KindInvalidURL, "url missing host: %s", u.String())
	}
	if len(s.allowed) == 0 {
		return newError(KindDomainDenied, "allowed-domain list is empty")
	}
	if _, ok := s.allowed[strings.ToLower(host)]; !ok {
		return newError(KindDomainDenied, "domain not allowed: %s", host)
	}
	return nil
}
