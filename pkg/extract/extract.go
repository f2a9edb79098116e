// Package extract reads values out of provider JSON responses using dot and
// bracket paths such as "choices[0].message.content".
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// Segments normalizes "[n]" to ".n", splits on "." and drops empty segments.
func Segments(path string) []string {
	normalized := indexPattern.ReplaceAllString(path, ".$1")
	parts := strings.Split(normalized, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Result is a value located inside a JSON document.
type Result struct {
	Raw  []byte
	Type jsonparser.ValueType
}

// Text returns strings unescaped and every other value as its JSON text.
func (r Result) Text() string {
	if r.Type == jsonparser.String {
		s, err := jsonparser.ParseString(r.Raw)
		if err != nil {
			return string(r.Raw)
		}
		return s
	}
	return string(r.Raw)
}

// IsString reports whether the value is a JSON string.
func (r Result) IsString() bool { return r.Type == jsonparser.String }

// Extract walks data one segment at a time. Objects are indexed by key and
// arrays by numeric segment. It reports false for an empty path, a missing
// or null intermediate, an attempt to index into a scalar, or a null final
// value. Malformed input is treated as missing.
func Extract(data []byte, path string) (Result, bool) {
	segments := Segments(path)
	if len(segments) == 0 {
		return Result{}, false
	}

	cur, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return Result{}, false
	}

	for _, seg := range segments {
		var key string
		switch typ {
		case jsonparser.Object:
			key = seg
		case jsonparser.Array:
			if _, err := strconv.Atoi(seg); err != nil {
				return Result{}, false
			}
			key = "[" + seg + "]"
		default:
			return Result{}, false
		}

		cur, typ, _, err = jsonparser.Get(cur, key)
		if err != nil {
			return Result{}, false
		}
		if typ == jsonparser.Null || typ == jsonparser.NotExist {
			return Result{}, false
		}
	}

	return Result{Raw: cur, Type: typ}, true
}

// Strings returns the elements of the array found under key at the top level
// of data. String elements are unescaped and other elements keep their JSON
// text. It reports false when key is absent or not an array.
func Strings(data []byte, key string) ([]string, bool) {
	_, typ, _, err := jsonparser.Get(data, key)
	if err != nil || typ != jsonparser.Array {
		return nil, false
	}
	out := []string{}
	_, err = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType == jsonparser.Null {
			return
		}
		out = append(out, Result{Raw: value, Type: dataType}.Text())
	}, key)
	if err != nil {
		return nil, false
	}
	return out, true
}
