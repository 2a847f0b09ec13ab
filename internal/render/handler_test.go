package render

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/yabood/yabood/internal/config"
)

func TestServeSyntaxCSS(t *testing.T) {
	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHandler("gruvbox"))

	req := httptest.NewRequest(http.MethodGet, "/api/preview/syntax.css", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(config.HCType); ct != config.CTypeCSS {
		t.Errorf("Expected Content-Type %s, got %s", config.CTypeCSS, ct)
	}
	if rec.Body.String() != string(SyntaxCSS("gruvbox")) {
		t.Error("Expected the default theme's stylesheet")
	}

	etag := rec.Header().Get(config.HETag)
	if etag == "" {
		t.Fatal("Expected an ETag")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/preview/syntax.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/preview/syntax.css?theme=github", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Header().Get(config.HETag) == etag {
		t.Error("Expected a different ETag for another theme")
	}
	if !strings.Contains(rec.Body.String(), ".chroma") {
		t.Errorf("Expected chroma CSS, got %s", rec.Body.String())
	}
}

func TestServeSyntaxThemes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/preview/syntax-themes", nil)
	rec := httptest.NewRecorder()
	NewHandler("gruvbox").ServeSyntaxThemes(rec, req)

	var body struct {
		Default string   `json:"default"`
		Themes  []string `json:"themes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Default != "gruvbox" {
		t.Errorf("Expected default gruvbox, got %s", body.Default)
	}
	if !slices.IsSorted(body.Themes) || !slices.Contains(body.Themes, "github") {
		t.Errorf("Expected sorted theme list containing github, got %v", body.Themes)
	}
}
