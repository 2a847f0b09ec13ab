package draft

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/render"
	"github.com/yabood/yabood/internal/slug"
	"github.com/yabood/yabood/internal/sse"
)

// Guard wraps handlers that require an authorized caller.
type Guard func(http.HandlerFunc) http.HandlerFunc

// Handler serves the content API. A nil manager means the repository is not
// configured; every endpoint then answers with a configuration error.
type Handler struct {
	manager     *Manager
	clients     *sse.SSEClients
	syntaxTheme string
}

func NewHandler(manager *Manager, clients *sse.SSEClients, syntaxTheme string) *Handler {
	return &Handler{
		manager:     manager,
		clients:     clients,
		syntaxTheme: syntaxTheme,
	}
}

func RegisterRoutes(mux *http.ServeMux, h *Handler, guard Guard) {
	mux.HandleFunc("POST /api/content/create", guard(h.withManager(h.ServeCreate)))
	mux.HandleFunc("GET /api/content/branches", guard(h.withManager(h.ServeBranches)))
	mux.HandleFunc("GET /api/content/list", guard(h.withManager(h.ServeList)))
	mux.HandleFunc("GET /api/content/{collection}/{slug}", guard(h.withManager(h.ServeRead)))
	mux.HandleFunc("PUT /api/content/{collection}/{slug}", guard(h.withManager(h.ServeUpdate)))
	mux.HandleFunc("POST /api/content/{collection}/{slug}/publish", guard(h.withManager(h.ServePublish)))
	mux.HandleFunc("DELETE /api/content/{collection}/{slug}/delete", guard(h.withManager(h.ServeDelete)))
	mux.HandleFunc("GET /api/content/{collection}/{slug}/preview", guard(h.withManager(h.ServePreview)))
	mux.HandleFunc("GET /api/content/{collection}/{slug}/events", guard(h.withManager(h.ServeEvents)))
}

func (h *Handler) withManager(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.manager == nil {
			apperr.Write(w, r, apperr.Configuration(config.ErrGitHubConfigMissing))
			return
		}
		next(w, r)
	}
}

// requestBase is the scheme and host the request was served on.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func pathEntry(r *http.Request) (content.Collection, string, error) {
	c, err := content.ParseCollection(r.PathValue("collection"))
	if err != nil {
		return 0, "", err
	}
	s := r.PathValue("slug")
	if !slug.Valid(s) {
		return 0, "", apperr.Validation(config.ErrInvalidSlug)
	}
	return c, s, nil
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Validation("Invalid JSON body")
}

type createRequest struct {
	Title       string   `json:"title"`
	Collection  string   `json:"collection"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Project     string   `json:"project"`
	Phase       string   `json:"phase"`
}

func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	in := CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Project:     req.Project,
		Phase:       req.Phase,
		BaseURL:     requestBase(r),
	}
	if req.Collection != "" {
		c, err := content.ParseCollection(req.Collection)
		if err != nil {
			apperr.Write(w, r, err)
			return
		}
		in.Collection = c
	}

	result, err := h.manager.Create(r.Context(), in)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ServeBranches(w http.ResponseWriter, r *http.Request) {
	includeTrunk, _ := strconv.ParseBool(r.URL.Query().Get("includeTrunk"))

	drafts, err := h.manager.ListDrafts(r.Context(), ListOptions{
		IncludeTrunk: includeTrunk,
		BaseURL:      requestBase(r),
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"drafts": drafts,
		"total":  len(drafts),
	})
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.ListContent(r.Context(), r.URL.Query().Get("collection"))
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

// readOptions reads draft mode from the query. Naming a branch implies draft mode.
func readOptions(r *http.Request) ReadOptions {
	q := r.URL.Query()
	isDraft, _ := strconv.ParseBool(q.Get("draft"))
	branch := q.Get("branch")
	return ReadOptions{
		Draft:    isDraft || branch != "",
		BranchID: branch,
		BaseURL:  requestBase(r),
	}
}

func (h *Handler) ServeRead(w http.ResponseWriter, r *http.Request) {
	c, s, err := pathEntry(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	result, err := h.manager.Read(r.Context(), c, s, readOptions(r))
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

type updateRequest struct {
	Content json.RawMessage `json:"content"`
	Branch  string          `json:"branch"`
}

func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	c, s, err := pathEntry(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}
	var body string
	if len(req.Content) == 0 || json.Unmarshal(req.Content, &body) != nil {
		apperr.Write(w, r, apperr.Validation(config.ErrContentNotString))
		return
	}

	result, err := h.manager.Update(r.Context(), UpdateInput{
		Collection: c,
		Slug:       s,
		Content:    body,
		Branch:     req.Branch,
		BaseURL:    requestBase(r),
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

type publishRequest struct {
	BranchID string `json:"branchId"`
}

func (h *Handler) ServePublish(w http.ResponseWriter, r *http.Request) {
	c, s, err := pathEntry(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	var req publishRequest
	if err := decodeBody(r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	result, err := h.manager.Publish(r.Context(), PublishInput{
		Collection: c,
		Slug:       s,
		BranchID:   req.BranchID,
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	c, s, err := pathEntry(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	result, err := h.manager.Delete(r.Context(), DeleteInput{
		Collection: c,
		Slug:       s,
		BranchID:   r.URL.Query().Get("branch"),
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

type previewResponse struct {
	Slug        string             `json:"slug"`
	Collection  content.Collection `json:"collection"`
	Branch      string             `json:"branch,omitempty"`
	PreviewURL  string             `json:"previewUrl,omitempty"`
	HTML        string             `json:"html"`
	Headings    []render.Heading   `json:"headings"`
	ReadingTime string             `json:"readingTime"`
	SEO         content.SEOReport  `json:"seo"`
	Source      string             `json:"source,omitempty"`
}

// ServePreview renders an entry the way the site would, along with its
// reading time and SEO report. source=true adds the highlighted raw file.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	c, s, err := pathEntry(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	result, err := h.manager.Read(r.Context(), c, s, readOptions(r))
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	theme := r.URL.Query().Get("theme")
	if theme == "" {
		theme = h.syntaxTheme
	}

	entry := result.Entry()
	html, toc := render.Preview(result.Content, theme)
	resp := previewResponse{
		Slug:        s,
		Collection:  c,
		Branch:      result.Branch,
		PreviewURL:  result.PreviewURL,
		HTML:        string(html),
		Headings:    toc,
		ReadingTime: content.ReadingTime(entry.Body),
		SEO:         content.ValidateSEO(entry, content.SEORequirementsFor(c)),
	}

	if withSource, _ := strconv.ParseBool(r.URL.Query().Get("source")); withSource {
		resp.Source, err = render.HighlightSource(result.Content, theme)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to highlight source")
		}
	}

	apperr.WriteJSON(w, http.StatusOK, resp)
}

// ServeEvents streams reload notifications for one entry while it is edited.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	c, s, err := pathEntry(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	h.clients.Serve(w, r, LiveKey(c, s))
}
