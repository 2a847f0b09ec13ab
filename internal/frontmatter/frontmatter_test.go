package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `---
title: "Hello World"
description: "A first post"
pubDate: 2024-03-05
tags: ["go", "web"]
draft: true
---

# Hello World

Start writing your content here...
`

func TestParse(t *testing.T) {
	data, body, err := Parse(sample)
	require.NoError(t, err)

	assert.Equal(t, "Hello World", data.String("title"))
	assert.Equal(t, "A first post", data.String("description"))
	assert.Equal(t, []string{"go", "web"}, data.Strings("tags"))
	assert.True(t, data.Bool("draft"))
	assert.Equal(t, "2024-03-05", data.String("pubDate"))

	date, ok := data.Date("pubDate")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), date)

	assert.Equal(t, "# Hello World\n\nStart writing your content here...\n", body)
}

func TestParseWithoutFrontmatter(t *testing.T) {
	data, body, err := Parse("just text\n")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, "just text\n", body)
	assert.Equal(t, "", data.String("title"))
	assert.Equal(t, []string{}, data.Strings("tags"))
	assert.False(t, data.Bool("draft"))
}

func TestParseInvalidYAML(t *testing.T) {
	_, body, err := Parse("---\ntitle: [unclosed\n---\nbody\n")
	assert.Error(t, err)
	assert.Equal(t, "body\n", body)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantBlock string
		wantBody  string
		wantOK    bool
	}{
		{"crlf", "---\r\ntitle: x\r\n---\r\nbody", "title: x", "body", true},
		{"empty block", "---\n---\nbody", "", "body", true},
		{"unterminated", "---\ntitle: x\n", "", "---\ntitle: x\n", false},
		{"no block", "body", "", "body", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, body, ok := Split(tt.content)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBlock, block)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestDataAccessors(t *testing.T) {
	d := Data{
		"tags":   "solo",
		"nums":   []any{1, "two", nil},
		"draft":  "TRUE",
		"when":   "2023-11-02T10:00:00Z",
		"bad":    "someday",
		"number": 3,
	}

	assert.Equal(t, []string{"solo"}, d.Strings("tags"))
	assert.Equal(t, []string{"1", "two"}, d.Strings("nums"))
	assert.True(t, d.Bool("draft"))
	assert.Equal(t, "3", d.String("number"))
	assert.True(t, d.Has("bad"))

	when, ok := d.Date("when")
	require.True(t, ok)
	assert.Equal(t, 2023, when.Year())

	_, ok = d.Date("bad")
	assert.False(t, ok)
	_, ok = d.Date("missing")
	assert.False(t, ok)
}
