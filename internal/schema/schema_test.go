package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

func parseSchema(t *testing.T, doc string) *ProtocolSchema {
	t.Helper()
	var s ProtocolSchema
	require.NoError(t, yaml.Unmarshal([]byte(doc), &s))
	return &s
}

func proxyValues(t *testing.T, doc string) *ordered.Map {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))
	m := ordered.NewMap()
	require.NoError(t, m.UnmarshalYAML(node.Content[0]))
	return m
}

const shadowsocksClashSchema = `
protocol: shadowsocks
fields:
  name: {type: string}
  type: {type: string}
  server: {type: string}
  port: {type: integer}
targets:
  clash:
    template:
      name: {from: name}
      type: {from: type}
      server: {from: server}
      port: {from: port}
      cipher: {from: cipher}
      password: {from: password}
`

func TestNormalizePreservesPassthroughOrderAfterDeclaredFields(t *testing.T) {
	schema := parseSchema(t, shadowsocksClashSchema)
	values := proxyValues(t, "name: A\ntype: ss\nserver: s.example\nport: 8388\ncipher: aes-128-gcm\npassword: p\n")

	normalized, err := schema.normalize(values)
	require.NoError(t, err)

	// Declared fields (name, port, server, type) sort alphabetically first;
	// undeclared passthrough fields (cipher, password) keep source order.
	require.Equal(t, []string{"name", "port", "server", "type", "cipher", "password"}, normalized.Keys())
}

func TestRenderTargetInjectsTypeWhenTemplateOmitsIt(t *testing.T) {
	schema := parseSchema(t, `
protocol: shadowsocks
fields:
  name: {type: string}
targets:
  clash:
    template:
      name: {from: name}
`)
	values := proxyValues(t, "name: A\n")
	normalized, err := schema.normalize(values)
	require.NoError(t, err)

	rendered, err := schema.renderTarget(schema.Targets["clash"], normalized)
	require.NoError(t, err)

	typ, ok := rendered.Get("type")
	require.True(t, ok)
	require.Equal(t, "shadowsocks", typ)
}

func TestNormalizeRejectsWrongFieldType(t *testing.T) {
	schema := parseSchema(t, shadowsocksClashSchema)
	values := proxyValues(t, "name: A\ntype: ss\nserver: s.example\nport: notaport\n")

	_, err := schema.normalize(values)
	require.ErrorContains(t, err, "port")
}

func TestRenderTargetFailsOnMissingRequiredField(t *testing.T) {
	schema := parseSchema(t, `
protocol: trojan
fields: {}
targets:
  clash:
    template:
      password: {from: password}
`)
	normalized, err := schema.normalize(ordered.NewMap())
	require.NoError(t, err)

	_, err = schema.renderTarget(schema.Targets["clash"], normalized)
	require.ErrorContains(t, err, "password")
}
