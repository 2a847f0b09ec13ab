package draft

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/vcs"
)

type PublishInput struct {
	Collection content.Collection
	Slug       string
	BranchID   string
}

type PublishResult struct {
	Success             bool               `json:"success"`
	Message             string             `json:"message"`
	Slug                string             `json:"slug"`
	Collection          content.Collection `json:"collection"`
	PullRequest         int                `json:"pullRequest"`
	PullRequestURL      string             `json:"pullRequestUrl"`
	ProductionURL       string             `json:"productionUrl,omitempty"`
	RequiresManualMerge bool               `json:"requiresManualMerge,omitempty"`
	MergeError          string             `json:"mergeError,omitempty"`
}

// Publish opens (or reuses) a pull request from the draft branch into trunk
// and squash-merges it. A failed merge leaves the pull request open and is
// reported as a partial success.
func (m *Manager) Publish(ctx context.Context, in PublishInput) (PublishResult, error) {
	if err := m.check(); err != nil {
		return PublishResult{}, err
	}

	branch, err := m.resolveBranch(ctx, in.Collection, in.Slug, in.BranchID)
	if err != nil {
		return PublishResult{}, upstream("Failed to publish content", err)
	}

	entry, err := m.loader.Get(ctx, branch, in.Collection, in.Slug)
	if err != nil {
		return PublishResult{}, upstream("Failed to publish content", err)
	}

	pr, err := m.host.FindOpenPullRequest(ctx, branch, m.trunk())
	switch {
	case err == nil:
		draftLogger.Info().Int("number", pr.Number).Str("branch", branch).Msg("Reusing open pull request")
	case vcs.IsNotFound(err):
		pr, err = m.host.CreatePullRequest(ctx, vcs.NewPullRequest{
			Title: "Publish: " + entry.Title(),
			Body:  pullRequestBody(entry),
			Head:  branch,
			Base:  m.trunk(),
		})
		if err != nil {
			return PublishResult{}, upstream("Failed to publish content", err)
		}
		draftLogger.Info().Int("number", pr.Number).Str("branch", branch).Msg("Pull request opened")
	default:
		return PublishResult{}, upstream("Failed to publish content", err)
	}

	result := PublishResult{
		Success:        true,
		Slug:           in.Slug,
		Collection:     in.Collection,
		PullRequest:    pr.Number,
		PullRequestURL: pr.URL,
	}

	if err := m.host.MergePullRequest(ctx, pr.Number, "Publish: "+entry.Title()); err != nil {
		draftLogger.Warn().Err(err).Int("number", pr.Number).Msg("Merge failed, pull request left open")
		result.Message = "Pull request created successfully. Manual merge may be required."
		result.RequiresManualMerge = true
		result.MergeError = errors.Cause(err).Error()
		return result, nil
	}

	if err := m.host.DeleteBranch(ctx, branch); err != nil {
		draftLogger.Warn().Err(err).Str("branch", branch).Msg("Failed to delete published branch")
	}

	result.Message = "Content published successfully"
	result.ProductionURL = strings.TrimSuffix(m.cfg.Site.URL, "/") + entryPath(entry)
	return result, nil
}

func pullRequestBody(e content.Entry) string {
	var b strings.Builder
	b.WriteString("## Publishing new content\n\n")
	fmt.Fprintf(&b, "**Title:** %s\n", e.Title())
	fmt.Fprintf(&b, "**Collection:** %s\n", e.Collection)
	fmt.Fprintf(&b, "**Slug:** %s\n", e.Slug)
	if d := e.Description(); d != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", d)
	}
	if d := e.DateString(); d != "" {
		fmt.Fprintf(&b, "**Date:** %s\n", d)
	}
	if tags := e.Tags(); len(tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(tags, ", "))
	}
	b.WriteString("\nThis pull request was opened from the site editor.\n")
	return b.String()
}

type DeleteInput struct {
	Collection content.Collection
	Slug       string
	BranchID   string
}

type DeleteResult struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message"`
	Slug          string             `json:"slug"`
	Collection    content.Collection `json:"collection"`
	DeletedBranch string             `json:"deletedBranch"`
}

// Delete discards a draft by deleting its branch. There is no recovery.
func (m *Manager) Delete(ctx context.Context, in DeleteInput) (DeleteResult, error) {
	if err := m.check(); err != nil {
		return DeleteResult{}, err
	}

	branch, err := m.resolveBranch(ctx, in.Collection, in.Slug, in.BranchID)
	if err != nil {
		return DeleteResult{}, upstream("Failed to delete draft", err)
	}

	if err := m.host.DeleteBranch(ctx, branch); err != nil {
		if vcs.IsNotFound(err) {
			return DeleteResult{}, apperr.NotFound(config.ErrDraftNotFound)
		}
		return DeleteResult{}, upstream("Failed to delete draft", err)
	}

	draftLogger.Info().Str("branch", branch).Str("slug", in.Slug).Msg("Draft deleted")
	return DeleteResult{
		Success:       true,
		Message:       "Draft deleted successfully",
		Slug:          in.Slug,
		Collection:    in.Collection,
		DeletedBranch: branch,
	}, nil
}
