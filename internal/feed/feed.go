// Package feed serves RSS feeds for the blog and for project updates.
package feed

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/vcs"
)

const language = "en-us"

var feedLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	feedLogger = l
}

type Handler struct {
	loader *content.Loader
	ref    string
	site   config.SiteConfig
}

func NewHandler(loader *content.Loader, ref string, site config.SiteConfig) *Handler {
	return &Handler{loader: loader, ref: ref, site: site}
}

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /rss.xml", h.ServeBlog)
	mux.HandleFunc("GET /projects/rss.xml", h.ServeUpdates)
	mux.HandleFunc("GET /projects/{slug}/rss.xml", h.ServeProject)
}

// Item is a feed entry together with its categories, which feeds.Item has no
// field for.
type Item struct {
	feeds.Item
	Categories []string
}

func (h *Handler) link(p string) *feeds.Link {
	return &feeds.Link{Href: strings.TrimSuffix(h.site.URL, "/") + p}
}

// published lists the non-draft entries of c, newest first.
func (h *Handler) published(ctx context.Context, c content.Collection, keep func(content.Entry) bool) ([]content.Entry, error) {
	if h.loader == nil {
		return nil, apperr.Configuration(config.ErrGitHubConfigMissing)
	}
	entries, err := h.loader.List(ctx, h.ref, c)
	if err != nil {
		if vcs.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to load %s", c)
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Draft() || (keep != nil && !keep(e)) {
			continue
		}
		out = append(out, e)
	}
	feedLogger.Debug().Str("collection", c.String()).Int("entries", len(out)).Msg("Feed entries loaded")
	slices.SortStableFunc(out, func(a, b content.Entry) int {
		ta, _ := a.Date()
		tb, _ := b.Date()
		return tb.Compare(ta)
	})
	return out, nil
}

func (h *Handler) newItem(e content.Entry, title, p, author string, categories []string) Item {
	created, _ := e.Date()
	link := h.link(p)
	return Item{
		Item: feeds.Item{
			Title:       title,
			Link:        link,
			Description: e.Description(),
			Author:      &feeds.Author{Name: author},
			Id:          link.Href,
			Created:     created,
		},
		Categories: categories,
	}
}

// Blog builds the feed of published blog posts.
func (h *Handler) Blog(ctx context.Context) (*feeds.Feed, []Item, error) {
	posts, err := h.published(ctx, content.Blog, nil)
	if err != nil {
		return nil, nil, err
	}

	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		author := p.Data.String("author")
		if author == "" {
			author = h.site.Author
		}
		items = append(items, h.newItem(p, p.Title(), "/blog/"+p.Slug+"/", author, p.Tags()))
	}

	f := &feeds.Feed{
		Title:       h.site.Name + " Blog",
		Link:        h.link("/"),
		Description: h.site.Description,
		Author:      &feeds.Author{Name: h.site.Author},
	}
	return f, items, nil
}

func updateCategories(e content.Entry) []string {
	categories := []string{}
	if phase := e.Data.String("phase"); phase != "" {
		categories = append(categories, phase)
	}
	return append(categories, e.Tags()...)
}

func updatePath(project, slug string) string {
	return "/projects/" + project + "/updates/" + slug + "/"
}

// Updates builds the feed of every published project update, titled with the
// project each one belongs to.
func (h *Handler) Updates(ctx context.Context) (*feeds.Feed, []Item, error) {
	updates, err := h.published(ctx, content.ProjectUpdate, nil)
	if err != nil {
		return nil, nil, err
	}
	projects, err := h.published(ctx, content.Project, nil)
	if err != nil {
		return nil, nil, err
	}
	titles := make(map[string]string, len(projects))
	for _, p := range projects {
		titles[p.Slug] = p.Title()
	}

	items := make([]Item, 0, len(updates))
	for _, u := range updates {
		project := u.Data.String("project")
		projectTitle := titles[project]
		if projectTitle == "" {
			projectTitle = project
		}
		title := u.Title() + " - " + projectTitle
		items = append(items, h.newItem(u, title, updatePath(project, u.Slug), h.site.Author, updateCategories(u)))
	}

	f := &feeds.Feed{
		Title:       "Project Updates - " + h.site.Author,
		Link:        h.link("/projects/"),
		Description: "Latest updates from my project journal",
		Author:      &feeds.Author{Name: h.site.Author},
	}
	return f, items, nil
}

// Project builds the update feed of a single project. An unknown project is
// a NotFound error.
func (h *Handler) Project(ctx context.Context, slug string) (*feeds.Feed, []Item, error) {
	if h.loader == nil {
		return nil, nil, apperr.Configuration(config.ErrGitHubConfigMissing)
	}
	project, err := h.loader.Get(ctx, h.ref, content.Project, slug)
	if err != nil {
		if vcs.IsNotFound(err) {
			return nil, nil, apperr.NotFound("Project not found")
		}
		return nil, nil, errors.Wrapf(err, "failed to load project %s", slug)
	}

	updates, err := h.published(ctx, content.ProjectUpdate, func(e content.Entry) bool {
		return e.Data.String("project") == slug
	})
	if err != nil {
		return nil, nil, err
	}

	items := make([]Item, 0, len(updates))
	for _, u := range updates {
		items = append(items, h.newItem(u, u.Title(), updatePath(slug, u.Slug), h.site.Author, updateCategories(u)))
	}

	f := &feeds.Feed{
		Title:       project.Title() + " Updates - " + h.site.Author,
		Link:        h.link("/projects/" + slug + "/"),
		Description: "Latest updates from " + project.Title(),
		Author:      &feeds.Author{Name: h.site.Author},
	}
	return f, items, nil
}

// Encode renders f and its items as RSS 2.0.
func Encode(f *feeds.Feed, items []Item, now time.Time) (string, error) {
	f.Created = now
	f.Items = make([]*feeds.Item, len(items))
	for i := range items {
		f.Items[i] = &items[i].Item
	}

	rss := (&feeds.Rss{Feed: f}).RssFeed()
	rss.Language = language
	for i, it := range items {
		if len(it.Categories) > 0 {
			rss.Items[i].Category = strings.Join(it.Categories, ", ")
		}
	}
	return feeds.ToXML(rss)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, f *feeds.Feed, items []Item, err error) {
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	body, err := Encode(f, items, time.Now())
	if err != nil {
		apperr.Write(w, r, errors.Wrap(err, "failed to encode feed"))
		return
	}

	zerolog.Ctx(r.Context()).Debug().Str("feed", f.Title).Int("items", len(items)).Msg("Serving feed")
	w.Header().Set(config.HCType, config.CTypeRSS+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (h *Handler) ServeBlog(w http.ResponseWriter, r *http.Request) {
	f, items, err := h.Blog(r.Context())
	h.write(w, r, f, items, err)
}

func (h *Handler) ServeUpdates(w http.ResponseWriter, r *http.Request) {
	f, items, err := h.Updates(r.Context())
	h.write(w, r, f, items, err)
}

func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	f, items, err := h.Project(r.Context(), r.PathValue("slug"))
	h.write(w, r, f, items, err)
}
