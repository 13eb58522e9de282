package rules

// ReorderDomainBeforeIP walks rules and, in every slot that held an
// IP-family or domain-family rule, re-emits all domain-family rules (in
// their original relative order) followed by all IP-family rules (in
// their original relative order). Rules of any other type keep their
// absolute position. If either family is absent, rules is returned
// unchanged. Applying this twice is a no-op: the second pass reclassifies
// the same multiset into the same slots.
func ReorderDomainBeforeIP(rules []Rule) []Rule {
	var domains, ips []Rule
	var slots []int

	for i, r := range rules {
		if _, ok := domainFamily[r.Type]; ok {
			domains = append(domains, r)
			slots = append(slots, i)
			continue
		}
		if _, ok := ipFamily[r.Type]; ok {
			ips = append(ips, r)
			slots = append(slots, i)
		}
	}

	if len(domains) == 0 || len(ips) == 0 {
		return rules
	}

	out := append([]Rule(nil), rules...)
	reordered := append(append([]Rule(nil), domains...), ips...)
	for idx, slot := range slots {
		out[slot] = reordered[idx]
	}
	return out
}
