package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Parse decodes a JSON document into a Value, keeping object key order and
// number literals intact.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("template: trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("template: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("template: unexpected object key %v", keyTok)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("template: %w", err)
			}
			return obj, nil
		case '[':
			arr := Array{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("template: %w", err)
			}
			return arr, nil
		}
		return nil, fmt.Errorf("template: unexpected delimiter %v", t)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	}
	return nil, fmt.Errorf("template: unexpected token %v", tok)
}

// FromYAML converts a decoded YAML node into a Value. Mapping order is kept.
func FromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null{}, nil
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := FromYAML(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(node.Content[i].Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make(Array, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := FromYAML(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return Null{}, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, fmt.Errorf("template: line %d: %w", node.Line, err)
			}
			return Bool(b), nil
		case "!!int", "!!float":
			if json.Valid([]byte(node.Value)) {
				return Number(node.Value), nil
			}
			return String(node.Value), nil
		default:
			return String(node.Value), nil
		}
	}
	return nil, fmt.Errorf("template: unsupported yaml node kind %d at line %d", node.Kind, node.Line)
}

// Template is a request-body template as stored on a tool definition.
type Template struct {
	Root Value
}

// New wraps a value.
func New(root Value) *Template {
	return &Template{Root: root}
}

// Empty reports whether the template declares no body at all: no value, a
// null, or an empty object, array or string.
func (t *Template) Empty() bool {
	if t == nil || t.Root == nil {
		return true
	}
	switch r := t.Root.(type) {
	case Null:
		return true
	case *Object:
		return r.Len() == 0
	case Array:
		return len(r) == 0
	case String:
		return r == ""
	}
	return false
}

// Render applies placeholder values to a copy of the template.
func (t *Template) Render(values map[string]string) Value {
	if t == nil {
		return nil
	}
	return Render(t.Root, values)
}

func (t *Template) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	t.Root = v
	return nil
}

func (t Template) MarshalJSON() ([]byte, error) {
	return marshalValue(t.Root)
}

func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	v, err := FromYAML(node)
	if err != nil {
		return err
	}
	t.Root = v
	return nil
}
