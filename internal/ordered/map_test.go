package ordered

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSetPreservesFirstInsertionPosition(t *testing.T) {
	m := NewMap()
	m.Set("type", "ss")
	m.Set("name", "A")
	m.Set("type", "shadowsocks")

	require.Equal(t, []string{"type", "name"}, m.Keys())
	v, ok := m.Get("type")
	require.True(t, ok)
	require.Equal(t, "shadowsocks", v)
}

func TestDeleteRemovesFromKeyOrder(t *testing.T) {
	m := NewMap()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Delete("b")

	require.Equal(t, []string{"a", "c"}, m.Keys())
	require.False(t, m.Has("b"))
}

func TestCloneIsDeepAndIndependent(t *testing.T) {
	inner := NewMap()
	inner.Set("x", 1)
	m := NewMap()
	m.Set("nested", inner)
	m.Set("list", []any{inner})

	clone := m.Clone()
	inner.Set("x", 2)

	nested, _ := clone.Get("nested")
	require.Equal(t, 1, nested.(*Map).vals["x"])
}

func TestEqualCoercesNumericTypes(t *testing.T) {
	require.True(t, Equal(int64(8388), float64(8388)))
	require.False(t, Equal(int64(1), int64(2)))

	a := NewMap()
	a.Set("port", int64(8388))
	b := NewMap()
	b.Set("port", float64(8388))
	require.True(t, Equal(a, b))
}

func TestUnmarshalYAMLPreservesDocumentOrder(t *testing.T) {
	src := "name: A\ntype: ss\nserver: s.example\nport: 8388\ncipher: aes-128-gcm\npassword: p\n"
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))

	m := NewMap()
	require.NoError(t, m.UnmarshalYAML(node.Content[0]))

	require.Equal(t, []string{"name", "type", "server", "port", "cipher", "password"}, m.Keys())
	port, _ := m.Get("port")
	require.Equal(t, 8388, port)
}

func TestMarshalYAMLRoundTripsOrder(t *testing.T) {
	m := NewMap()
	m.Set("name", "A")
	m.Set("type", "ss")
	m.Set("nested", func() *Map {
		n := NewMap()
		n.Set("mode", "tls")
		return n
	}())

	out, err := yaml.Marshal(m)
	require.NoError(t, err)
	require.Equal(t, "name: A\ntype: ss\nnested:\n    mode: tls\n", string(out))
}
