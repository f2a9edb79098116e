// Package template holds request-body templates declared as configuration
// data and renders {{placeholder}} substitutions into them.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the JSON shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

// Value is a node of a template tree. The set of implementations is closed:
// String, Number, Bool, Null, Array and *Object.
type Value interface {
	Kind() Kind
	sealed()
}

// String is a JSON string leaf and the only leaf that receives substitutions.
type String string

// Number keeps the literal text of a JSON number so it round-trips unchanged.
type Number string

// Bool is a JSON boolean leaf.
type Bool bool

// Null is the JSON null leaf.
type Null struct{}

// Array is an ordered list of values.
type Array []Value

// Object is a JSON object that remembers the order its keys were declared in.
type Object struct {
	fields *orderedmap.OrderedMap[string, Value]
}

func (String) Kind() Kind  { return KindString }
func (Number) Kind() Kind  { return KindNumber }
func (Bool) Kind() Kind    { return KindBool }
func (Null) Kind() Kind    { return KindNull }
func (Array) Kind() Kind   { return KindArray }
func (*Object) Kind() Kind { return KindObject }

func (String) sealed()  {}
func (Number) sealed()  {}
func (Bool) sealed()    {}
func (Null) sealed()    {}
func (Array) sealed()   {}
func (*Object) sealed() {}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{fields: orderedmap.New[string, Value]()}
}

// Set adds or replaces a field. New keys are appended after existing ones.
func (o *Object) Set(key string, v Value) *Object {
	o.fields.Set(key, v)
	return o
}

// Get returns the field stored under key.
func (o *Object) Get(key string) (Value, bool) {
	return o.fields.Get(key)
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil || o.fields == nil {
		return 0
	}
	return o.fields.Len()
}

// Keys returns the field names in declaration order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	o.Each(func(k string, _ Value) {
		keys = append(keys, k)
	})
	return keys
}

// Each visits fields in declaration order.
func (o *Object) Each(fn func(key string, v Value)) {
	if o.Len() == 0 {
		return
	}
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// MarshalJSON writes the fields in declaration order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	i := 0
	o.Each(func(k string, v Value) {
		if err != nil {
			return
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, kerr := json.Marshal(k)
		if kerr != nil {
			err = kerr
			return
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, verr := marshalValue(v)
		if verr != nil {
			err = fmt.Errorf("field %q: %w", k, verr)
			return
		}
		buf.Write(val)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes the number literal as-is.
func (n Number) MarshalJSON() ([]byte, error) {
	if !json.Valid([]byte(n)) {
		return nil, fmt.Errorf("invalid number literal %q", string(n))
	}
	return []byte(n), nil
}

// MarshalJSON writes null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON writes the elements in order; nil elements become null.
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Stringify renders a value the way it appears as a query parameter: strings
// verbatim, literals as written, arrays comma-joined and objects as JSON text.
func Stringify(v Value) string {
	switch t := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(t)
	case Number:
		return string(t)
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case Array:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = Stringify(el)
		}
		return strings.Join(parts, ",")
	case *Object:
		b, err := t.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}
