package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/vcs/vcstest"
)

func testSite() config.SiteConfig {
	return config.SiteConfig{
		Name:        "Yabood",
		URL:         "https://www.yabood.com/",
		Description: "A personal blog",
		Author:      "Yousif Abood",
	}
}

func newTestHandler() *Handler {
	host := vcstest.New("main")
	host.Seed("main", "src/content/blog/first.mdx", "---\ntitle: First post\npubDate: 2024-01-01\ntags: [go]\n---\n")
	host.Seed("main", "src/content/blog/second.mdx", "---\ntitle: Second post\npubDate: 2024-03-01\nauthor: Guest\n---\n")
	host.Seed("main", "src/content/blog/wip.mdx", "---\ntitle: Unfinished\npubDate: 2024-04-01\ndraft: true\n---\n")
	host.Seed("main", "src/content/projects/compiler.mdx", "---\ntitle: Compiler\nstartDate: 2023-05-01\n---\n")
	host.Seed("main", "src/content/updates/parser.mdx", "---\ntitle: Parser done\nproject: compiler\nphase: build\ndate: 2024-02-01\ntags: [go]\nsummary: The parser works\n---\n")
	host.Seed("main", "src/content/updates/lexer.mdx", "---\ntitle: Lexer done\nproject: compiler\ndate: 2024-01-15\n---\n")
	host.Seed("main", "src/content/updates/other.mdx", "---\ntitle: Elsewhere\nproject: garden\ndate: 2024-02-10\n---\n")
	return NewHandler(content.NewLoader(host, "src/content"), "main", testSite())
}

func TestBlog(t *testing.T) {
	h := newTestHandler()

	f, items, err := h.Blog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Yabood Blog", f.Title)
	assert.Equal(t, "https://www.yabood.com/", f.Link.Href)

	require.Len(t, items, 2)
	assert.Equal(t, "Second post", items[0].Title)
	assert.Equal(t, "Guest", items[0].Author.Name)
	assert.Equal(t, "https://www.yabood.com/blog/second/", items[0].Link.Href)
	assert.Equal(t, "First post", items[1].Title)
	assert.Equal(t, "Yousif Abood", items[1].Author.Name)
	assert.Equal(t, []string{"go"}, items[1].Categories)
}

func TestUpdates(t *testing.T) {
	h := newTestHandler()

	_, items, err := h.Updates(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Elsewhere - garden", items[0].Title)
	assert.Equal(t, "Parser done - Compiler", items[1].Title)
	assert.Equal(t, []string{"build", "go"}, items[1].Categories)
	assert.Equal(t, "https://www.yabood.com/projects/compiler/updates/parser/", items[1].Link.Href)
	assert.Equal(t, "The parser works", items[1].Description)
}

func TestProject(t *testing.T) {
	h := newTestHandler()

	f, items, err := h.Project(context.Background(), "compiler")
	require.NoError(t, err)
	assert.Equal(t, "Compiler Updates - Yousif Abood", f.Title)
	require.Len(t, items, 2)
	assert.Equal(t, "Parser done", items[0].Title)
	assert.Equal(t, "Lexer done", items[1].Title)

	_, _, err = h.Project(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEncode(t *testing.T) {
	h := newTestHandler()
	f, items, err := h.Blog(context.Background())
	require.NoError(t, err)

	body, err := Encode(f, items, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, body, "<language>en-us</language>")
	assert.Contains(t, body, "<title>Second post</title>")
	assert.Contains(t, body, "<category>go</category>")
	assert.NotContains(t, body, "Unfinished")
	assert.Less(t, strings.Index(body, "Second post"), strings.Index(body, "First post"))
}

func TestHandler(t *testing.T) {
	mux := http.NewServeMux()
	RegisterRoutes(mux, newTestHandler())
	ts := httptest.NewServer(mux)
	defer ts.Close()

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/rss.xml", http.StatusOK, "First post"},
		{"/projects/rss.xml", http.StatusOK, "Elsewhere - garden"},
		{"/projects/compiler/rss.xml", http.StatusOK, "Lexer done"},
		{"/projects/missing/rss.xml", http.StatusNotFound, "Project not found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, string(body), tt.want)
			if tt.status == http.StatusOK {
				assert.Equal(t, config.CTypeRSS+"; charset=utf-8", resp.Header.Get(config.HCType))
			}
		})
	}
}

func TestHandlerWithoutLoader(t *testing.T) {
	h := NewHandler(nil, "main", testSite())
	rec := httptest.NewRecorder()
	h.ServeBlog(rec, httptest.NewRequest(http.MethodGet, "/rss.xml", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"GitHub configuration missing"}`, rec.Body.String())
}
