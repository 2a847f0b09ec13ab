package render

import (
	"net/http"
	"slices"

	"github.com/alecthomas/chroma/v2/styles"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/util"
)

// SyntaxThemes lists the chroma style names, sorted.
func SyntaxThemes() []string {
	names := styles.Names()
	slices.Sort(names)
	return names
}

// Handler serves the stylesheets that go with preview HTML.
type Handler struct {
	defaultTheme string
}

func NewHandler(defaultTheme string) *Handler {
	return &Handler{defaultTheme: defaultTheme}
}

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/preview/syntax.css", h.ServeSyntaxCSS)
	mux.HandleFunc("GET /api/preview/syntax-themes", h.ServeSyntaxThemes)
}

func (h *Handler) ServeSyntaxCSS(w http.ResponseWriter, r *http.Request) {
	theme := r.URL.Query().Get("theme")
	if theme == "" {
		theme = h.defaultTheme
	}

	themeStyle := []byte(SyntaxCSS(theme))
	etag := `"` + util.ContentHash(themeStyle) + `"`
	w.Header().Set(config.HETag, etag)
	w.Header().Set(config.HCacheControl, "public, max-age=3600")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set(config.HCType, config.CTypeCSS)
	w.WriteHeader(http.StatusOK)
	w.Write(themeStyle)
}

func (h *Handler) ServeSyntaxThemes(w http.ResponseWriter, r *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, struct {
		Default string   `json:"default"`
		Themes  []string `json:"themes"`
	}{h.defaultTheme, SyntaxThemes()})
}
