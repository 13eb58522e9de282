package ordered

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a YAML mapping node into m, preserving document key
// order. Scalars decode via yaml.Node.Decode so numbers, bools, and strings
// keep their natural Go types; nested mappings and sequences recurse.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("ordered: expected mapping node, got kind %d at line %d", node.Kind, node.Line)
	}
	fresh := NewMap()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("ordered: decoding map key: %w", err)
		}
		val, err := decodeNode(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("ordered: decoding value for %q: %w", key, err)
		}
		fresh.Set(key, val)
	}
	*m = *fresh
	return nil
}

func decodeNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		m := NewMap()
		if err := m.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return decodeNode(node.Alias)
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// MarshalYAML renders m as a YAML mapping node preserving insertion order.
func (m *Map) MarshalYAML() (interface{}, error) {
	return m.node()
}

func (m *Map) node() (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(k); err != nil {
			return nil, err
		}
		valNode, err := encodeValue(m.vals[k])
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, keyNode, valNode)
	}
	return out, nil
}

func encodeValue(v any) (*yaml.Node, error) {
	switch vv := v.(type) {
	case *Map:
		return vv.node()
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range vv {
			n, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(vv); err != nil {
			return nil, err
		}
		return n, nil
	}
}
