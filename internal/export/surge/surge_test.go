package surge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

func shadowsocksRendered() *ordered.Map {
	m := ordered.NewMap()
	m.Set("name", "A")
	m.Set("type", "shadowsocks")
	m.Set("server", "s.example")
	m.Set("port", 8388)
	m.Set("cipher", "aes-128-gcm")
	m.Set("password", "p")
	return m
}

func TestRenderShadowsocksPassthrough(t *testing.T) {
	normalized := shadowsocksRendered()
	rendered := shadowsocksRendered()

	out, err := Exporter{}.Render("shadowsocks", nil, normalized, rendered)
	require.NoError(t, err)
	require.Equal(t, "A = ss, s.example, 8388, encrypt-method=aes-128-gcm, password=p", out)
}

func TestRenderShadowsocksWithObfsPlugin(t *testing.T) {
	normalized := shadowsocksRendered()
	rendered := shadowsocksRendered()
	opts := ordered.NewMap()
	opts.Set("mode", "tls")
	opts.Set("host", "h.example")
	rendered.Set("plugin", "obfs")
	rendered.Set("plugin-opts", opts)

	out, err := Exporter{}.Render("shadowsocks", nil, normalized, rendered)
	require.NoError(t, err)
	require.Equal(t, "A = ss, s.example, 8388, encrypt-method=aes-128-gcm, obfs=tls, obfs-host=h.example, password=p", out)
}

func TestRenderMergesPassthroughFieldsFromNormalized(t *testing.T) {
	normalized := ordered.NewMap()
	normalized.Set("name", "A")
	normalized.Set("server", "s.example")
	normalized.Set("port", 8388)
	normalized.Set("password", "p")
	normalized.Set("cipher", "aes-128-gcm")

	rendered := ordered.NewMap()
	rendered.Set("name", "A")
	rendered.Set("type", "ss")
	rendered.Set("server", "s.example")
	rendered.Set("port", 8388)
	rendered.Set("password", "p")

	out, err := Exporter{}.Render("shadowsocks", nil, normalized, rendered)
	require.NoError(t, err)
	require.Equal(t, "A = ss, s.example, 8388, encrypt-method=aes-128-gcm, password=p", out)
}

func TestRenderShadowsocksRejectsUnsupportedPlugin(t *testing.T) {
	normalized := shadowsocksRendered()
	rendered := shadowsocksRendered()
	rendered.Set("plugin", "v2ray-plugin")

	_, err := Exporter{}.Render("shadowsocks", nil, normalized, rendered)
	require.ErrorContains(t, err, "v2ray-plugin")
}

func TestParseBandwidthUnits(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"100mbps", 100, true},
		{"1gbps", 1000, true},
		{"500kbps", 0.5, true},
		{"fast", 0, false},
	}
	for _, c := range cases {
		got, ok, err := parseBandwidth(c.in)
		require.NoError(t, err)
		require.Equal(t, c.ok, ok, c.in)
		if c.ok {
			require.InDelta(t, c.want, got, 1e-9, c.in)
		}
	}
}

func TestNormalizeHysteria2LeavesUnrecognizedStringsUntouched(t *testing.T) {
	m := ordered.NewMap()
	m.Set("up", "100mbps")
	m.Set("sni", "fast")

	require.NoError(t, normalizeHysteria2(m))

	up, _ := m.Get("up")
	require.Equal(t, float64(100), up)
	sni, _ := m.Get("sni")
	require.Equal(t, "fast", sni)
}
