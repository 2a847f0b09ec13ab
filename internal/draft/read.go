package draft

import (
	"context"
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/frontmatter"
	"github.com/yabood/yabood/internal/sse"
	"github.com/yabood/yabood/internal/vcs"
)

type ReadOptions struct {
	Draft    bool
	BranchID string
	BaseURL  string
}

type ReadResult struct {
	Slug       string             `json:"slug"`
	Collection content.Collection `json:"collection"`
	Content    string             `json:"content"`
	Data       frontmatter.Data   `json:"data,omitempty"`
	Branch     string             `json:"branch,omitempty"`
	PreviewURL string             `json:"previewUrl,omitempty"`
	IsDraft    bool               `json:"isDraft"`

	entry content.Entry
}

// Entry is the parsed entry behind the result.
func (r ReadResult) Entry() content.Entry {
	return r.entry
}

// Read returns the raw content of an entry. In draft mode it reads the
// draft's branch and falls back to trunk when the draft does not hold the file.
func (m *Manager) Read(ctx context.Context, c content.Collection, s string, opts ReadOptions) (ReadResult, error) {
	if opts.Draft {
		if err := m.check(); err != nil {
			return ReadResult{}, err
		}

		branch, err := m.resolveBranch(ctx, c, s, opts.BranchID)
		switch {
		case err == nil:
			entry, gerr := m.loader.Get(ctx, branch, c, s)
			if gerr == nil {
				return ReadResult{
					Slug:       s,
					Collection: c,
					Content:    entry.Raw,
					Data:       entry.Data,
					Branch:     branch,
					PreviewURL: m.previewURL(opts.BaseURL, branch, entryPath(entry)),
					IsDraft:    true,
					entry:      entry,
				}, nil
			}
			if !vcs.IsNotFound(gerr) {
				return ReadResult{}, upstream("Failed to load content", gerr)
			}
		case apperr.Is(err, apperr.KindNotFound):
		default:
			return ReadResult{}, upstream("Failed to load content", err)
		}
		draftLogger.Debug().Str("slug", s).Msg("Draft not on a branch, reading trunk")
	}

	entry, err := m.loader.Get(ctx, m.trunk(), c, s)
	if err != nil {
		if vcs.IsNotFound(err) {
			return ReadResult{}, apperr.NotFound(config.ErrContentNotFound)
		}
		return ReadResult{}, upstream("Failed to load content", err)
	}

	return ReadResult{
		Slug:       s,
		Collection: c,
		Content:    entry.Raw,
		Data:       entry.Data,
		IsDraft:    false,
		entry:      entry,
	}, nil
}

type UpdateInput struct {
	Collection content.Collection
	Slug       string
	Content    string
	// Branch is a draft branch name or id. Empty writes to trunk.
	Branch  string
	BaseURL string
}

type UpdateResult struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Slug       string             `json:"slug"`
	Collection content.Collection `json:"collection"`
	Branch     string             `json:"branch,omitempty"`
	PreviewURL string             `json:"previewUrl,omitempty"`
	Changed    bool               `json:"changed"`
	Insertions int                `json:"insertions"`
	Deletions  int                `json:"deletions"`
}

// Update overwrites an entry. Writes are last-write-wins: the blob SHA is
// looked up right before the write and nothing is locked. Content identical
// to what is stored is not committed.
func (m *Manager) Update(ctx context.Context, in UpdateInput) (UpdateResult, error) {
	if err := m.check(); err != nil {
		return UpdateResult{}, err
	}

	target := m.trunk()
	isDraft := in.Branch != "" && in.Branch != m.trunk()
	if isDraft {
		target = branchName(in.Branch)
	}

	filePath := m.loader.Path(in.Collection, in.Slug)
	previous := ""
	current, err := m.loader.Get(ctx, target, in.Collection, in.Slug)
	switch {
	case err == nil:
		filePath = current.Path
		previous = current.Raw
	case vcs.IsNotFound(err):
	default:
		return UpdateResult{}, upstream("Failed to update content", err)
	}

	result := UpdateResult{
		Success:    true,
		Message:    "Content updated successfully",
		Slug:       in.Slug,
		Collection: in.Collection,
	}
	if isDraft {
		result.Branch = target
		result.PreviewURL = m.previewURL(in.BaseURL, target, EntryPath(in.Collection, in.Slug, current.Data.String("project")))
	}

	if err == nil && previous == in.Content {
		result.Message = "No changes"
		return result, nil
	}
	result.Insertions, result.Deletions = diffStat(filePath, previous, in.Content)

	err = m.host.PutFile(ctx, vcs.PutFileInput{
		Path:    filePath,
		Content: in.Content,
		Message: fmt.Sprintf("Update %s: %s", in.Collection, in.Slug),
		Branch:  target,
	})
	if err != nil {
		return UpdateResult{}, upstream("Failed to update content", err)
	}
	result.Changed = true

	draftLogger.Info().
		Str("path", filePath).
		Str("branch", target).
		Int("insertions", result.Insertions).
		Int("deletions", result.Deletions).
		Msg("Content updated")

	if m.notifier != nil {
		m.notifier.Broadcast(LiveKey(in.Collection, in.Slug), sse.MsgReload)
	}
	return result, nil
}

// diffStat counts inserted and deleted lines between two versions of a file.
func diffStat(name, before, after string) (insertions, deletions int) {
	edits := myers.ComputeEdits(span.URIFromPath(name), before, after)
	unified := gotextdiff.ToUnified(name, name, before, edits)
	for _, h := range unified.Hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case gotextdiff.Insert:
				insertions++
			case gotextdiff.Delete:
				deletions++
			}
		}
	}
	return insertions, deletions
}

// Diff renders a unified diff between two versions of a file.
func Diff(name, before, after string) string {
	edits := myers.ComputeEdits(span.URIFromPath(name), before, after)
	return strings.TrimSpace(fmt.Sprint(gotextdiff.ToUnified("a/"+name, "b/"+name, before, edits)))
}
