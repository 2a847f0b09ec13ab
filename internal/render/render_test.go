package render

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestRenderMarkdownCached(t *testing.T) {
	testCases := []struct {
		name     string
		markdown string
		hash     string
		theme    string
	}{
		{"paragraph with inline code", "# Draft\n\nSome content with `code`", "hash-1", "github"},
		{"fenced go block", "```go\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n```", "hash-code", "monokai"},
		{"CRLF line endings", "# Title\r\n\r\nContent\r\nMore content\n\nEnd", "hash-crlf", "github"},
		{"unicode", "# 测试 🚀\n\nñáéíóú", "hash-unicode", "github"},
		{"special characters", "Text & <script>alert('x')</script>", "hash-html", "github"},
	}

	previews.Clear()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			html, toc := RenderMarkdownCached([]byte(tc.markdown), tc.hash, tc.theme)
			if len(html) == 0 {
				t.Fatal("Expected rendered HTML")
			}

			cached, ok := previews.Get(previewKey{tc.hash, tc.theme})
			if !ok {
				t.Fatalf("Expected %s/%s to be cached", tc.hash, tc.theme)
			}
			if !bytes.Equal(cached.html, html) || !reflect.DeepEqual(cached.toc, toc) {
				t.Error("Cached render differs from the returned one")
			}

			// A hit must not re-render, so different input under the same key
			// still returns the first render.
			again, _ := RenderMarkdownCached([]byte("# Something else"), tc.hash, tc.theme)
			if !bytes.Equal(again, html) {
				t.Error("Expected the cached render on a hit")
			}
		})
	}
}

func TestRenderMarkdownCachedKeys(t *testing.T) {
	previews.Clear()

	RenderMarkdownCached([]byte("# One"), "h1", "github")
	RenderMarkdownCached([]byte("# One"), "h1", "monokai")
	RenderMarkdownCached([]byte("# Two"), "h2", "github")

	if previews.Len() != 3 {
		t.Errorf("Expected one entry per hash and theme, got %d", previews.Len())
	}

	html, _ := RenderMarkdownCached([]byte("# Uncached"), "", "github")
	if !strings.Contains(string(html), "Uncached") {
		t.Errorf("Expected an empty hash to render directly, got %s", html)
	}
	if previews.Len() != 3 {
		t.Error("Expected an empty hash to skip the cache")
	}
}

func TestRenderMarkdownCachedBounded(t *testing.T) {
	previews.Clear()
	for i := 0; i < previewCacheSize+10; i++ {
		RenderMarkdownCached([]byte("# Edit"), fmt.Sprintf("edit-%d", i), "github")
	}
	if previews.Len() != previewCacheSize {
		t.Errorf("Expected %d cached previews, got %d", previewCacheSize, previews.Len())
	}
	if _, ok := previews.Get(previewKey{"edit-0", "github"}); ok {
		t.Error("Expected the oldest preview to be evicted")
	}
}

func TestRenderMarkdownCachedConcurrency(t *testing.T) {
	previews.Clear()
	md := []byte("# Concurrent\n\n```go\nx := 1\n```\n")

	const workers = 32
	results := make([][]byte, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = RenderMarkdownCached(md, "shared", "github")
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if !bytes.Equal(r, results[0]) {
			t.Errorf("Worker %d got a different render", i)
		}
	}
}

func BenchmarkRenderMarkdown(b *testing.B) {
	md := []byte("# Bench\n\nSome **bold** text.\n\n```go\nfor i := 0; i < 10; i++ {\n\tfmt.Println(i)\n}\n```\n")

	b.Run("cached", func(b *testing.B) {
		previews.Clear()
		for i := 0; i < b.N; i++ {
			RenderMarkdownCached(md, "bench", "github")
		}
	})
	b.Run("uncached", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			RenderMarkdown(md, "github")
		}
	})
}

func TestRenderMarkdownHeadings(t *testing.T) {
	_, toc := RenderMarkdown([]byte("# Title\n\nIntro\n\n## Getting `go` running\n\n### Details\n"), "github")

	want := []Heading{
		{Level: 1, ID: "title", Text: "Title"},
		{Level: 2, ID: "getting-go-running", Text: "Getting go running"},
		{Level: 3, ID: "details", Text: "Details"},
	}
	if !reflect.DeepEqual(toc, want) {
		t.Errorf("Expected headings %+v, got %+v", want, toc)
	}
}

func TestRenderMarkdownHighlightsCode(t *testing.T) {
	html, _ := RenderMarkdown([]byte("```go\nfunc main() {}\n```\n"), "github")
	if !strings.Contains(string(html), `<div class="highlight">`) {
		t.Errorf("Expected highlighted code block, got %s", html)
	}
	if !strings.Contains(string(html), "chroma") {
		t.Errorf("Expected chroma classes in output, got %s", html)
	}
}

func TestPreviewStripsFrontmatter(t *testing.T) {
	previews.Clear()

	raw := "---\ntitle: Hello\ndraft: true\n---\n\n# Hello World\n\nBody text."
	html, toc := Preview(raw, "github")

	if strings.Contains(string(html), "draft: true") {
		t.Errorf("Frontmatter leaked into preview: %s", html)
	}
	if !strings.Contains(string(html), "Body text.") {
		t.Errorf("Expected body in preview, got %s", html)
	}
	if len(toc) != 1 || toc[0].Text != "Hello World" {
		t.Errorf("Expected a single heading, got %+v", toc)
	}
}

func TestSyntaxCSS(t *testing.T) {
	stylesheets.Clear()

	for _, theme := range []string{"gruvbox", "github", "nonexistent-theme-12345", ""} {
		t.Run(theme, func(t *testing.T) {
			css := SyntaxCSS(theme)
			if css == "" {
				t.Fatal("Expected CSS content, got empty")
			}
			cached, ok := stylesheets.Get(theme)
			if !ok || cached != css {
				t.Error("Expected CSS to be cached")
			}
		})
	}
}

func TestHighlightSource(t *testing.T) {
	out, err := HighlightSource("---\ntitle: Hi\n---\n\n# Heading\n", "github")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, `<div class="markdown-editor">`) {
		t.Errorf("Expected editor wrapper, got %s", out)
	}
	if !strings.Contains(out, "title") || !strings.Contains(out, "Heading") {
		t.Errorf("Expected frontmatter and body in output, got %s", out)
	}
}
