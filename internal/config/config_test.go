package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePref(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pref.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesNetworkDefaults(t *testing.T) {
	path := writePref(t, `
[common]
default_url = ["profiles/a.yaml"]

[server]
listen = "0.0.0.0"
port = 25500
`)

	pref, err := Load(path)
	require.NoError(t, err)
	require.True(t, pref.Network.Enable)
	require.Equal(t, "conf/cache", pref.Network.Dir)
	require.EqualValues(t, 86400, pref.Network.TTLSeconds)
	require.Equal(t, []string{"profiles/a.yaml"}, pref.Common.DefaultURL)
}

func TestLoadManagedConfigAliases(t *testing.T) {
	path := writePref(t, `
[common]
[server]
listen = "0.0.0.0"
port = 25500

[managed_config]
write_managed_config = true
managed_config_prefix = "https://host"
config_update_interval = 3600
config_update_strict = true
`)

	pref, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, pref.ManagedConfig.BaseURL)
	require.Equal(t, "https://host", *pref.ManagedConfig.BaseURL)
	require.EqualValues(t, 3600, pref.ManagedConfig.Interval)
	require.True(t, pref.ManagedConfig.Strict)
}

func TestLoadRejectsMissingListen(t *testing.T) {
	path := writePref(t, `
[common]
[server]
port = 25500
`)
	_, err := Load(path)
	require.Error(t, err)
}
