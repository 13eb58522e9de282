// Package config loads the TOML configuration surfaces named in spec.md §6:
// pref.toml (with its nested group/ruleset imports), groups.toml, and
// rulesets.toml.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Pref is the root pref.toml document.
type Pref struct {
	Version       *int            `toml:"version"`
	Common        Common          `toml:"common"`
	CustomGroups  []GroupImport   `toml:"custom_groups"`
	Ruleset       *RulesetToggle  `toml:"ruleset"`
	Rulesets      []RulesetImport `toml:"rulesets"`
	ManagedConfig ManagedConfig   `toml:"managed_config"`
	Network       Network         `toml:"network"`
	Server        Server          `toml:"server"`
	NodePref      NodePref        `toml:"node_pref"`
}

// Common holds [common].
type Common struct {
	APIAccessToken    *string  `toml:"api_access_token"`
	DefaultURL        []string `toml:"default_url"`
	EnableInsert      bool     `toml:"enable_insert"`
	InsertURL         []string `toml:"insert_url"`
	PrependInsertURL  bool     `toml:"prepend_insert_url"`
	Sort              bool     `toml:"sort"`
	Schema            *string  `toml:"schema"`
	ClashRuleBase     *string  `toml:"clash_rule_base"`
	SurgeRuleBase     *string  `toml:"surge_rule_base"`
}

// GroupImport is one entry of [[custom_groups]].
type GroupImport struct {
	Import string `toml:"import"`
}

// RulesetToggle is [ruleset].
type RulesetToggle struct {
	Enabled bool `toml:"enabled"`
}

// RulesetImport is one entry of [[rulesets]] at the pref.toml level (an
// import pointer to a rulesets.toml file, distinct from groups/rules.RulesetSpec).
type RulesetImport struct {
	Import string `toml:"import"`
}

// ManagedConfig is [managed_config], with the historical aliases folded in
// by Load after decoding.
type ManagedConfig struct {
	WriteManagedConfig bool    `toml:"write_managed_config"`
	BaseURL            *string `toml:"base_url"`
	Interval           int64   `toml:"interval"`
	Strict             bool    `toml:"strict"`

	// Aliases, read by Load and merged onto the canonical fields above.
	BaseURLAlias  *string `toml:"managed_config_prefix"`
	IntervalAlias *int64  `toml:"config_update_interval"`
	StrictAlias   *bool   `toml:"config_update_strict"`
}

// Network is [network].
type Network struct {
	Enable        bool     `toml:"enable"`
	Dir           string   `toml:"dir"`
	TTLSeconds    int64    `toml:"ttl_seconds"`
	AllowedDomain []string `toml:"allowed_domain"`
}

// Server is [server].
type Server struct {
	Listen string `toml:"listen"`
	Port   uint16 `toml:"port"`
}

// NodePref is [node_pref].
type NodePref struct {
	UDP            *bool `toml:"udp"`
	TFO            *bool `toml:"tfo"`
	SkipCertVerify *bool `toml:"skip-cert-verify"`
}

func defaultPref() Pref {
	return Pref{
		Network: Network{
			Enable:     true,
			Dir:        "conf/cache",
			TTLSeconds: 86400,
		},
		ManagedConfig: ManagedConfig{
			Interval: 86400,
			Strict:   false,
		},
	}
}

// Load reads and decodes pref.toml at path, applying the documented
// defaults and folding managed_config's legacy aliases onto the canonical
// field names.
func Load(path string) (*Pref, error) {
	pref := defaultPref()
	meta, err := toml.DecodeFile(path, &pref)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pref file %s: %w", path, err)
	}
	_ = meta

	if pref.ManagedConfig.BaseURL == nil {
		pref.ManagedConfig.BaseURL = pref.ManagedConfig.BaseURLAlias
	}
	if pref.ManagedConfig.IntervalAlias != nil && !hasKey(meta, "managed_config", "interval") {
		pref.ManagedConfig.Interval = *pref.ManagedConfig.IntervalAlias
	}
	if pref.ManagedConfig.StrictAlias != nil && !hasKey(meta, "managed_config", "strict") {
		pref.ManagedConfig.Strict = *pref.ManagedConfig.StrictAlias
	}

	if pref.Server.Listen == "" {
		return nil, fmt.Errorf("pref file %s: [server].listen is required", path)
	}

	return &pref, nil
}

func hasKey(meta toml.MetaData, section, key string) bool {
	for _, k := range meta.Keys() {
		if len(k) == 2 && k[0] == section && k[1] == key {
			return true
		}
	}
	return false
}
