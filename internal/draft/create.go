package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/slug"
	"github.com/yabood/yabood/internal/vcs"
)

const (
	placeholderBody = "Start writing your content here..."
	defaultPhase    = "implementation"
)

type CreateInput struct {
	Title       string
	Collection  content.Collection
	Description string
	Tags        []string
	// Project and Phase only apply to project updates.
	Project string
	Phase   string
	// BaseURL is the scheme and host the request was served on.
	BaseURL string
}

type CreateResult struct {
	Success    bool               `json:"success"`
	Slug       string             `json:"slug"`
	Collection content.Collection `json:"collection"`
	Branch     string             `json:"branch"`
	BranchID   string             `json:"branchId"`
	Title      string             `json:"title"`
	FilePath   string             `json:"filePath"`
	PreviewURL string             `json:"previewUrl"`
	Message    string             `json:"message"`
}

// Create opens a new draft branch from trunk and writes a scaffolded entry to it.
func (m *Manager) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if err := m.check(); err != nil {
		return CreateResult{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return CreateResult{}, apperr.Validation(config.ErrTitleRequired)
	}
	if in.Collection == 0 {
		in.Collection = content.Blog
	}
	if !in.Collection.Draftable() {
		return CreateResult{}, apperr.Validation(fmt.Sprintf("Collection %s is read-only", in.Collection))
	}

	existing, err := m.existingSlugs(ctx, in.Collection)
	if err != nil {
		return CreateResult{}, upstream("Failed to create content", err)
	}
	s := slug.EnsureUnique(slug.Generate(title), existing)

	id := m.newID()
	branch := vcs.BranchPrefix + id
	if err := m.host.CreateBranch(ctx, branch, m.trunk()); err != nil {
		return CreateResult{}, upstream("Failed to create content", err)
	}

	in.Title = title
	filePath := m.loader.Path(in.Collection, s)
	err = m.host.PutFile(ctx, vcs.PutFileInput{
		Path:    filePath,
		Content: m.scaffold(in, s),
		Message: "Create draft: " + title,
		Branch:  branch,
	})
	if err != nil {
		return CreateResult{}, upstream("Failed to create content", err)
	}

	draftLogger.Info().
		Str("slug", s).
		Str("branch", branch).
		Str("collection", in.Collection.Dir()).
		Msg("Draft created")

	return CreateResult{
		Success:    true,
		Slug:       s,
		Collection: in.Collection,
		Branch:     branch,
		BranchID:   id,
		Title:      title,
		FilePath:   filePath,
		PreviewURL: m.previewURL(in.BaseURL, branch, EntryPath(in.Collection, s, in.Project)),
		Message:    "Draft created successfully",
	}, nil
}

// existingSlugs collects every slug a new draft in c could collide with: the
// suffix of each draft branch, the entries of c on each draft branch, and the
// entries of c on trunk.
func (m *Manager) existingSlugs(ctx context.Context, c content.Collection) ([]string, error) {
	branches, err := m.host.ListBranches(ctx, vcs.BranchPrefix)
	if err != nil {
		return nil, err
	}

	var slugs []string
	for _, b := range branches {
		slugs = append(slugs, branchID(b))

		onBranch, err := m.loader.Slugs(ctx, b, c)
		if err != nil {
			draftLogger.Warn().Err(err).Str("branch", b).Msg("Failed to list draft branch entries")
			continue
		}
		slugs = append(slugs, onBranch...)
	}

	onTrunk, err := m.loader.Slugs(ctx, m.trunk(), c)
	if err != nil {
		return nil, err
	}
	return append(slugs, onTrunk...), nil
}

// quote renders s as a YAML double-quoted scalar.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func quoteList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// scaffold renders the initial file for a new draft.
func (m *Manager) scaffold(in CreateInput, s string) string {
	today := m.now().UTC().Format(time.DateOnly)

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", quote(in.Title))

	switch in.Collection {
	case content.Blog:
		fmt.Fprintf(&b, "description: %s\n", quote(in.Description))
		fmt.Fprintf(&b, "pubDate: %s\n", today)
		fmt.Fprintf(&b, "author: %s\n", quote(m.cfg.Site.Author))
	case content.ProjectUpdate:
		phase := in.Phase
		if phase == "" {
			phase = defaultPhase
		}
		fmt.Fprintf(&b, "summary: %s\n", quote(in.Description))
		fmt.Fprintf(&b, "date: %s\n", today)
		fmt.Fprintf(&b, "project: %s\n", quote(in.Project))
		fmt.Fprintf(&b, "phase: %s\n", phase)
	case content.ShortNote:
		fmt.Fprintf(&b, "id: %s\n", quote(s))
		fmt.Fprintf(&b, "summary: %s\n", quote(in.Description))
		fmt.Fprintf(&b, "publishedAt: %s\n", today)
		b.WriteString("visibility: public\n")
	case content.Project:
		// read-only, rejected by Create
	}

	fmt.Fprintf(&b, "tags: %s\n", quoteList(in.Tags))
	b.WriteString("draft: true\n")
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n%s\n", in.Title, placeholderBody)
	return b.String()
}
