package repository

import (
	"encoding/json"
	"fmt"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/template"
)

// Column codecs shared by the SQL stores. The request template is stored as
// its JSON text so key order survives a round trip.

func encodeTemplate(t *template.Template) ([]byte, error) {
	if t == nil || t.Root == nil {
		return nil, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode request template: %w", err)
	}
	return b, nil
}

func decodeTemplate(b []byte) (*template.Template, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var t template.Template
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode request template: %w", err)
	}
	return &t, nil
}

func encodeHeaders(h map[string]string) ([]byte, error) {
	if len(h) == 0 {
		return nil, nil
	}
	return json.Marshal(h)
}

func decodeHeaders(b []byte) (map[string]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var h map[string]string
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("decode api headers: %w", err)
	}
	return h, nil
}

func encodeList(s []string) string {
	if s == nil {
		s = []string{}
	}
	b, _ := json.Marshal(s)
	return string(b)
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}
