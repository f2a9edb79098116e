package template

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderString replaces every {{key}} whose key is present in values.
// Placeholders naming unknown keys are left exactly as written.
func RenderString(s string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-2]
		if v, ok := values[key]; ok {
			return v
		}
		return match
	})
}

// Render returns a copy of v with placeholders substituted in every string
// leaf. Numbers, booleans and nulls pass through untouched.
func Render(v Value, values map[string]string) Value {
	switch t := v.(type) {
	case String:
		return String(RenderString(string(t), values))
	case Array:
		out := make(Array, len(t))
		for i, el := range t {
			out[i] = Render(el, values)
		}
		return out
	case *Object:
		out := NewObject()
		t.Each(func(k string, el Value) {
			out.Set(k, Render(el, values))
		})
		return out
	}
	return v
}
