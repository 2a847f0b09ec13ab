// Package frontmatter splits content files into their YAML metadata block and
// body, and exposes typed lookups over the metadata.
package frontmatter

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const Delimiter = "---"

// Data is the decoded frontmatter block keyed by field name.
type Data map[string]any

// Split separates the frontmatter block from the body. ok is false when the
// content does not open with a delimited block, in which case body is the
// whole content.
func Split(content string) (block, body string, ok bool) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, Delimiter+"\n") {
		return "", content, false
	}

	rest := normalized[len(Delimiter)+1:]
	// Empty block
	if strings.HasPrefix(rest, Delimiter) {
		return "", strings.TrimLeft(strings.TrimPrefix(rest, Delimiter), "\n"), true
	}

	end := strings.Index(rest, "\n"+Delimiter)
	if end < 0 {
		return "", content, false
	}

	block = rest[:end]
	body = strings.TrimLeft(rest[end+len(Delimiter)+1:], "\n")
	return block, body, true
}

// Parse decodes the frontmatter of content. Content without a block yields
// empty Data and the full content as body.
func Parse(content string) (Data, string, error) {
	block, body, ok := Split(content)
	data := Data{}
	if !ok || strings.TrimSpace(block) == "" {
		return data, body, nil
	}

	if err := yaml.Unmarshal([]byte(block), &data); err != nil {
		return Data{}, body, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return data, body, nil
}

func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the value of key rendered as a string, or "" if absent.
func (d Data) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.DateOnly)
	default:
		return fmt.Sprint(t)
	}
}

// Strings returns a list value. A scalar is treated as a one-element list.
func (d Data) Strings(key string) []string {
	v, ok := d[key]
	if !ok || v == nil {
		return []string{}
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return t
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}

func (d Data) Bool(key string) bool {
	switch t := d[key].(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"Jan 2 2006",
	"Jan 02 2006",
	"January 2, 2006",
}

// Date parses the value of key as a date. ok is false when the key is absent
// or not a recognised date.
func (d Data) Date(key string) (time.Time, bool) {
	switch t := d[key].(type) {
	case time.Time:
		return t, true
	case string:
		return ParseDate(t)
	default:
		return time.Time{}, false
	}
}

func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
