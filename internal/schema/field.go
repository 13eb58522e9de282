package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wallacegibbon/subcon/internal/ordered"
)

// FieldType is the declared type of a protocol field, used to validate
// values pulled from a proxy profile before they are rendered into a
// target document.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInteger
	FieldBoolean
	FieldList
	FieldMap
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInteger:
		return "integer"
	case FieldBoolean:
		return "boolean"
	case FieldList:
		return "list"
	case FieldMap:
		return "map"
	default:
		return "unknown"
	}
}

func (t *FieldType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "string":
		*t = FieldString
	case "integer":
		*t = FieldInteger
	case "boolean":
		*t = FieldBoolean
	case "list":
		*t = FieldList
	case "map":
		*t = FieldMap
	default:
		return fmt.Errorf("schema: unknown field type %q", s)
	}
	return nil
}

// Matches reports whether value satisfies t.
func (t FieldType) Matches(value any) bool {
	switch t {
	case FieldString:
		_, ok := value.(string)
		return ok
	case FieldInteger:
		return isInteger(value)
	case FieldBoolean:
		_, ok := value.(bool)
		return ok
	case FieldList:
		_, ok := value.([]any)
		return ok
	case FieldMap:
		_, ok := value.(*ordered.Map)
		return ok
	default:
		return false
	}
}

func isInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// describeValue names a value's kind for error messages.
func describeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "list"
	case *ordered.Map:
		return "map"
	default:
		if isInteger(v) {
			return "number"
		}
		if _, ok := v.(float64); ok {
			return "number"
		}
		return "unknown"
	}
}

// FieldSpec declares the type constraint for one protocol field.
type FieldSpec struct {
	Type FieldType `yaml:"type"`
}

func (s FieldSpec) validate(name string, value any) error {
	if s.Type.Matches(value) {
		return nil
	}
	return fmt.Errorf("field `%s` expected type %s, got %s", name, s.Type, describeValue(value))
}
