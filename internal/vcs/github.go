package vcs

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/pkg/errors"

	"github.com/yabood/yabood/internal/config"
)

const listPageSize = 100

// GitHub implements Host over the GitHub REST API.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

var _ Host = (*GitHub)(nil)

// NewGitHub builds a client for the configured repository. It fails with a
// configuration error when the token, owner or repository is missing.
func NewGitHub(cfg config.GitHubConfig, httpClient *http.Client) (*GitHub, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := github.NewClient(httpClient).WithAuthToken(cfg.Token)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.Wrap(err, "invalid GitHub API URL")
		}
		client.BaseURL = u
	}

	return &GitHub{client: client, owner: cfg.Owner, repo: cfg.Repo}, nil
}

func statusOf(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

func messageOf(err error) string {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Message
	}
	return ""
}

func (g *GitHub) CreateBranch(ctx context.Context, name, from string) error {
	base, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+from)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return errors.Wrapf(ErrNotFound, "base branch %s", from)
		}
		return errors.Wrapf(err, "get ref %s", from)
	}

	_, _, err = g.client.Git.CreateRef(ctx, g.owner, g.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{SHA: base.Object.SHA},
	})
	if err != nil {
		if statusOf(err) == http.StatusUnprocessableEntity && strings.Contains(messageOf(err), "Reference already exists") {
			vcsLogger.Debug().Str("branch", name).Msg("Branch already exists")
			return nil
		}
		return errors.Wrapf(err, "create branch %s", name)
	}

	vcsLogger.Info().Str("branch", name).Str("from", from).Msg("Branch created")
	return nil
}

func (g *GitHub) BranchExists(ctx context.Context, name string) (bool, error) {
	_, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+name)
	if err == nil {
		return true, nil
	}
	if statusOf(err) == http.StatusNotFound {
		return false, nil
	}
	return false, errors.Wrapf(err, "get ref %s", name)
}

func (g *GitHub) ListBranches(ctx context.Context, prefix string) ([]string, error) {
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: listPageSize}}

	var names []string
	for {
		branches, resp, err := g.client.Repositories.ListBranches(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, errors.Wrap(err, "list branches")
		}
		for _, b := range branches {
			if strings.HasPrefix(b.GetName(), prefix) {
				names = append(names, b.GetName())
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

func (g *GitHub) DeleteBranch(ctx context.Context, name string) error {
	_, err := g.client.Git.DeleteRef(ctx, g.owner, g.repo, "heads/"+name)
	if err != nil {
		switch statusOf(err) {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return errors.Wrapf(ErrNotFound, "branch %s", name)
		}
		return errors.Wrapf(err, "delete branch %s", name)
	}

	vcsLogger.Info().Str("branch", name).Msg("Branch deleted")
	return nil
}

func (g *GitHub) GetFile(ctx context.Context, filePath, ref string) (File, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, filePath,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return File{}, errors.Wrapf(ErrNotFound, "file %s@%s", filePath, ref)
		}
		return File{}, errors.Wrapf(err, "get file %s@%s", filePath, ref)
	}
	if file == nil || file.GetType() != "file" {
		return File{}, errors.Errorf("%s@%s is not a file", filePath, ref)
	}

	content, err := file.GetContent()
	if err != nil {
		return File{}, errors.Wrapf(err, "decode file %s", filePath)
	}
	return File{Path: file.GetPath(), Content: content, SHA: file.GetSHA()}, nil
}

func (g *GitHub) ListDir(ctx context.Context, dirPath, ref string) ([]DirEntry, error) {
	_, dir, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, dirPath,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list %s@%s", dirPath, ref)
	}

	entries := make([]DirEntry, 0, len(dir))
	for _, item := range dir {
		if item.GetType() != "file" {
			continue
		}
		p := item.GetPath()
		if p == "" {
			p = path.Join(dirPath, item.GetName())
		}
		entries = append(entries, DirEntry{Name: item.GetName(), Path: p})
	}
	return entries, nil
}

func (g *GitHub) PutFile(ctx context.Context, in PutFileInput) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(in.Message),
		Content: []byte(in.Content),
		Branch:  github.String(in.Branch),
	}

	existing, err := g.GetFile(ctx, in.Path, in.Branch)
	switch {
	case err == nil:
		opts.SHA = github.String(existing.SHA)
		_, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, in.Path, opts)
	case IsNotFound(err):
		_, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, in.Path, opts)
	default:
		return err
	}
	if err != nil {
		return errors.Wrapf(err, "write file %s@%s", in.Path, in.Branch)
	}

	vcsLogger.Info().Str("path", in.Path).Str("branch", in.Branch).Msg("File written")
	return nil
}

func toPullRequest(pr *github.PullRequest) PullRequest {
	return PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
		Title:  pr.GetTitle(),
		State:  pr.GetState(),
		Merged: pr.GetMerged(),
	}
}

func (g *GitHub) CreatePullRequest(ctx context.Context, in NewPullRequest) (PullRequest, error) {
	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(in.Title),
		Body:  github.String(in.Body),
		Head:  github.String(in.Head),
		Base:  github.String(in.Base),
	})
	if err != nil {
		return PullRequest{}, errors.Wrapf(err, "create pull request %s -> %s", in.Head, in.Base)
	}

	vcsLogger.Info().Int("number", pr.GetNumber()).Str("head", in.Head).Msg("Pull request opened")
	return toPullRequest(pr), nil
}

func (g *GitHub) FindOpenPullRequest(ctx context.Context, head, base string) (PullRequest, error) {
	prs, _, err := g.client.PullRequests.List(ctx, g.owner, g.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  g.owner + ":" + head,
		Base:  base,
	})
	if err != nil {
		return PullRequest{}, errors.Wrap(err, "list pull requests")
	}
	for _, pr := range prs {
		if pr.GetHead().GetRef() == head {
			return toPullRequest(pr), nil
		}
	}
	return PullRequest{}, errors.Wrapf(ErrNotFound, "open pull request from %s", head)
}

func (g *GitHub) MergePullRequest(ctx context.Context, number int, title string) error {
	result, _, err := g.client.PullRequests.Merge(ctx, g.owner, g.repo, number, "", &github.PullRequestOptions{
		CommitTitle: title,
		MergeMethod: "squash",
	})
	if err != nil {
		return errors.Wrapf(err, "merge pull request #%d", number)
	}
	if !result.GetMerged() {
		return errors.Errorf("pull request #%d not merged: %s", number, result.GetMessage())
	}

	vcsLogger.Info().Int("number", number).Msg("Pull request merged")
	return nil
}
