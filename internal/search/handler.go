package search

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/cache"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/util"
)

// snapshot is a corpus together with its encoded form.
type snapshot struct {
	corpus Corpus
	body   []byte
	etag   string
}

// Handler serves the search corpus and server-side queries over a snapshot
// that is rebuilt at most once per TTL.
type Handler struct {
	loader        *content.Loader
	ref           string
	includeDrafts bool
	memo          *cache.Memo[snapshot]
}

func NewHandler(loader *content.Loader, ref string, includeDrafts bool, ttl time.Duration) *Handler {
	return &Handler{
		loader:        loader,
		ref:           ref,
		includeDrafts: includeDrafts,
		memo:          cache.NewMemo[snapshot](ttl),
	}
}

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/search-data.json", h.ServeData)
	mux.HandleFunc("GET /api/search", h.ServeSearch)
}

func (h *Handler) snapshot(ctx context.Context) (snapshot, error) {
	if h.loader == nil {
		return snapshot{}, apperr.Configuration(config.ErrGitHubConfigMissing)
	}
	return h.memo.Get(func() (snapshot, error) {
		corpus, err := Export(ctx, h.loader, h.ref, h.includeDrafts)
		if err != nil {
			return snapshot{}, err
		}
		body, err := json.Marshal(corpus)
		if err != nil {
			return snapshot{}, errors.Wrap(err, "failed to encode search data")
		}
		return snapshot{corpus: corpus, body: body, etag: `"` + util.ContentHash(body) + `"`}, nil
	})
}

type dataError struct {
	Error string `json:"error"`
	Corpus
}

func (h *Handler) ServeData(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Stack().Err(err).Msg("Error generating search data")
		apperr.WriteJSON(w, http.StatusInternalServerError, dataError{
			Error:  "Failed to generate search data",
			Corpus: Corpus{BlogPosts: []BlogPost{}, Projects: []Project{}, NoiseEntries: []Note{}},
		})
		return
	}

	w.Header().Set(config.HCacheControl, "max-age="+strconv.Itoa(config.SearchDataMaxAge))
	w.Header().Set(config.HETag, snap.etag)
	if r.Header.Get("If-None-Match") == snap.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(http.StatusOK)
	w.Write(snap.body)
}

type searchResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context())
	if err != nil {
		if apperr.KindOf(err) == 0 {
			err = apperr.Upstream("Failed to generate search data", err)
		}
		apperr.Write(w, r, err)
		return
	}

	q := r.URL.Query().Get("q")
	results := Search(snap.corpus, q)
	apperr.WriteJSON(w, http.StatusOK, searchResponse{Query: q, Results: results, Total: len(results)})
}
