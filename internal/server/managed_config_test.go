package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wallacegibbon/subcon/internal/config"
)

func strPtr(s string) *string { return &s }

func TestBuildManagedConfigLineMatchesScenarioS6(t *testing.T) {
	mc := config.ManagedConfig{
		WriteManagedConfig: true,
		BaseURL:            strPtr("https://host/"),
		Interval:           3600,
		Strict:             true,
	}

	line := buildManagedConfigLine(mc, "/sub?target=surge&token=t")
	require.Equal(t, "#!MANAGED-CONFIG https://host/sub?target=surge&token=t interval=3600 strict=true", line)
}

func TestBuildManagedConfigLineEmptyWhenDisabled(t *testing.T) {
	mc := config.ManagedConfig{WriteManagedConfig: false, BaseURL: strPtr("https://host")}
	require.Equal(t, "", buildManagedConfigLine(mc, "/sub?target=surge"))
}

func TestBuildManagedConfigLineEmptyWithoutBaseURL(t *testing.T) {
	mc := config.ManagedConfig{WriteManagedConfig: true}
	require.Equal(t, "", buildManagedConfigLine(mc, "/sub?target=surge"))
}

func TestBuildManagedConfigLineAddsLeadingSlashToURI(t *testing.T) {
	mc := config.ManagedConfig{WriteManagedConfig: true, BaseURL: strPtr("https://host"), Interval: 60}
	line := buildManagedConfigLine(mc, "sub?target=surge")
	require.Equal(t, "#!MANAGED-CONFIG https://host/sub?target=surge interval=60 strict=false", line)
}
