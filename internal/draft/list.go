package draft

import (
	"context"

	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/vcs"
)

// Summary describes one draft for listings.
type Summary struct {
	Slug        string             `json:"slug"`
	Branch      string             `json:"branch"`
	BranchID    string             `json:"branchId"`
	Collection  content.Collection `json:"collection"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	PubDate     string             `json:"pubDate,omitempty"`
	Tags        []string           `json:"tags"`
	PreviewURL  string             `json:"previewUrl"`
	Draft       bool               `json:"draft"`
}

type ListOptions struct {
	// IncludeTrunk also lists trunk entries flagged draft: true.
	IncludeTrunk bool
	BaseURL      string
}

func (m *Manager) summarize(e content.Entry, branch, requestBase string) Summary {
	s := Summary{
		Slug:        e.Slug,
		Branch:      branch,
		Collection:  e.Collection,
		Title:       e.Title(),
		Description: e.Description(),
		PubDate:     e.DateString(),
		Tags:        e.Tags(),
		PreviewURL:  m.previewURL(requestBase, branch, entryPath(e)),
		Draft:       true,
	}
	if branch != m.trunk() {
		s.BranchID = branchID(branch)
	} else {
		s.Draft = e.Draft()
	}
	return s
}

// ListDrafts summarizes every entry on every draft branch. Branches that
// cannot be read are logged and skipped; branches without any entry are
// listed with a placeholder.
func (m *Manager) ListDrafts(ctx context.Context, opts ListOptions) ([]Summary, error) {
	if err := m.check(); err != nil {
		return nil, err
	}

	branches, err := m.host.ListBranches(ctx, vcs.BranchPrefix)
	if err != nil {
		return nil, upstream("Failed to list draft branches", err)
	}

	trunk := &trunkIndex{m: m, files: map[content.Collection]map[string]string{}}
	drafts := []Summary{}
	for _, branch := range branches {
		found, err := m.branchSummaries(ctx, trunk, branch, opts.BaseURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, upstream("Failed to list draft branches", ctx.Err())
			}
			draftLogger.Error().Err(err).Str("branch", branch).Msg("Error processing branch")
			continue
		}
		if len(found) == 0 {
			found = append(found, Summary{
				Slug:        branchID(branch),
				Branch:      branch,
				BranchID:    branchID(branch),
				Title:       "Unknown Draft",
				Description: "Draft content",
				Tags:        []string{},
				PreviewURL:  m.previewURL(opts.BaseURL, branch, "/"),
				Draft:       true,
			})
		}
		drafts = append(drafts, found...)
	}

	if opts.IncludeTrunk {
		for _, c := range content.Draftable {
			entries, err := m.loader.List(ctx, m.trunk(), c)
			if err != nil {
				return nil, upstream("Failed to list draft branches", err)
			}
			for _, e := range entries {
				if e.Draft() {
					drafts = append(drafts, m.summarize(e, m.trunk(), opts.BaseURL))
				}
			}
		}
	}

	return drafts, nil
}

// trunkIndex maps each trunk file path of a collection to its raw content.
// It is filled lazily so a listing reads trunk at most once per collection.
type trunkIndex struct {
	m     *Manager
	files map[content.Collection]map[string]string
}

func (t *trunkIndex) get(ctx context.Context, c content.Collection) (map[string]string, error) {
	if files, ok := t.files[c]; ok {
		return files, nil
	}
	entries, err := t.m.loader.List(ctx, t.m.trunk(), c)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string, len(entries))
	for _, e := range entries {
		files[e.Path] = e.Raw
	}
	t.files[c] = files
	return files, nil
}

// branchSummaries lists the entries a draft branch adds or changes relative
// to trunk. Branches fork from trunk, so unchanged files are not drafts.
func (m *Manager) branchSummaries(ctx context.Context, trunk *trunkIndex, branch, requestBase string) ([]Summary, error) {
	var out []Summary
	for _, c := range content.Draftable {
		entries, err := m.loader.List(ctx, branch, c)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			continue
		}

		onTrunk, err := trunk.get(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if raw, ok := onTrunk[e.Path]; ok && raw == e.Raw {
				continue
			}
			out = append(out, m.summarize(e, branch, requestBase))
		}
	}
	return out, nil
}

// ListEntry is one published entry in a content listing.
type ListEntry struct {
	Slug        string             `json:"slug"`
	Collection  content.Collection `json:"collection"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	PubDate     *string            `json:"pubDate"`
	Draft       bool               `json:"draft"`
	Tags        []string           `json:"tags"`
}

// ListContent lists trunk entries of the named collection, or of every
// draftable collection when name is empty or unknown.
func (m *Manager) ListContent(ctx context.Context, name string) (map[string][]ListEntry, error) {
	collections := content.Draftable
	if c, err := content.ParseDraftable(name); err == nil {
		collections = []content.Collection{c}
	}

	result := make(map[string][]ListEntry, len(collections))
	for _, c := range collections {
		entries, err := m.loader.List(ctx, m.trunk(), c)
		if err != nil {
			if ctx.Err() != nil {
				return nil, upstream("Failed to list content", ctx.Err())
			}
			draftLogger.Error().Err(err).Str("collection", c.Dir()).Msg("Error loading collection")
			result[c.Dir()] = []ListEntry{}
			continue
		}

		list := make([]ListEntry, 0, len(entries))
		for _, e := range entries {
			item := ListEntry{
				Slug:        e.Slug,
				Collection:  c,
				Title:       e.Title(),
				Description: e.Data.String("description"),
				Draft:       e.Draft(),
				Tags:        e.Tags(),
			}
			if d := e.DateString(); d != "" {
				item.PubDate = &d
			}
			list = append(list, item)
		}
		result[c.Dir()] = list
	}
	return result, nil
}
