package clash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

func TestRenderOrdersPriorityKeysThenSourceOrder(t *testing.T) {
	normalized := ordered.NewMap()
	normalized.Set("name", "A")
	normalized.Set("port", 8388)
	normalized.Set("server", "s.example")
	normalized.Set("type", "shadowsocks")
	normalized.Set("cipher", "aes-128-gcm")
	normalized.Set("password", "p")

	rendered := ordered.NewMap()
	rendered.Set("cipher", "aes-128-gcm")
	rendered.Set("name", "A")
	rendered.Set("password", "p")
	rendered.Set("port", 8388)
	rendered.Set("server", "s.example")
	rendered.Set("type", "shadowsocks")

	out, err := Exporter{}.Render("shadowsocks", nil, normalized, rendered)
	require.NoError(t, err)

	m := out.(*ordered.Map)
	require.Equal(t, []string{"name", "type", "server", "password", "port", "cipher"}, m.Keys())
}

func TestRenderForwardsNormalizedKeyTemplateNeverRendered(t *testing.T) {
	normalized := ordered.NewMap()
	normalized.Set("name", "A")
	normalized.Set("password", "p")
	normalized.Set("port", 8388)
	normalized.Set("server", "s.example")
	normalized.Set("type", "shadowsocks")
	normalized.Set("cipher", "aes-128-gcm")

	rendered := ordered.NewMap()
	rendered.Set("name", "A")
	rendered.Set("password", "p")
	rendered.Set("port", 8388)
	rendered.Set("server", "s.example")
	rendered.Set("type", "ss")

	out, err := Exporter{}.Render("shadowsocks", nil, normalized, rendered)
	require.NoError(t, err)

	m := out.(*ordered.Map)
	require.Equal(t, []string{"name", "type", "server", "password", "port", "cipher"}, m.Keys())
	v, ok := m.Get("cipher")
	require.True(t, ok)
	require.Equal(t, "aes-128-gcm", v)
}

func TestRenderEmitsPriorityKeysOnlyOnce(t *testing.T) {
	normalized := ordered.NewMap()
	normalized.Set("name", "A")
	normalized.Set("type", "trojan")

	rendered := ordered.NewMap()
	rendered.Set("name", "A")
	rendered.Set("type", "trojan")

	out, err := Exporter{}.Render("trojan", nil, normalized, rendered)
	require.NoError(t, err)

	m := out.(*ordered.Map)
	count := 0
	for _, k := range m.Keys() {
		if k == "name" {
			count++
		}
	}
	require.Equal(t, 1, count)
}
