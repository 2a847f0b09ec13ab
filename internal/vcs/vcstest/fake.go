// Package vcstest provides an in-memory vcs.Host for tests.
package vcstest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/yabood/yabood/internal/util"
	"github.com/yabood/yabood/internal/vcs"
)

// Fake keeps branches as flat path -> content maps. Pull request merges copy
// the head branch's files onto the base branch.
type Fake struct {
	mu       sync.Mutex
	branches map[string]map[string]string
	prs      []vcs.PullRequest

	// MergeErr, when set, is returned by every MergePullRequest call.
	MergeErr  error
	// DeleteErr, when set, is returned by every DeleteBranch call.
	DeleteErr error

	Commits int
}

var _ vcs.Host = (*Fake)(nil)

// New returns a fake whose only branch is trunk.
func New(trunk string) *Fake {
	return &Fake{branches: map[string]map[string]string{trunk: {}}}
}

// Seed writes a file directly, creating the branch if needed.
func (f *Fake) Seed(branch, filePath, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.branches[branch] == nil {
		f.branches[branch] = map[string]string{}
	}
	f.branches[branch][filePath] = content
}

func (f *Fake) Branches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.branches))
	for name := range f.branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Fake) PullRequests() []vcs.PullRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vcs.PullRequest(nil), f.prs...)
}

func (f *Fake) CreateBranch(_ context.Context, name, from string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	base, ok := f.branches[from]
	if !ok {
		return errors.Wrapf(vcs.ErrNotFound, "base branch %s", from)
	}
	if _, exists := f.branches[name]; exists {
		return nil
	}
	files := make(map[string]string, len(base))
	for p, c := range base {
		files[p] = c
	}
	f.branches[name] = files
	return nil
}

func (f *Fake) BranchExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.branches[name]
	return ok, nil
}

func (f *Fake) ListBranches(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.branches {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *Fake) DeleteBranch(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.branches[name]; !ok {
		return errors.Wrapf(vcs.ErrNotFound, "branch %s", name)
	}
	delete(f.branches, name)
	return nil
}

func (f *Fake) GetFile(_ context.Context, filePath, ref string) (vcs.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.branches[ref][filePath]
	if !ok {
		return vcs.File{}, errors.Wrapf(vcs.ErrNotFound, "file %s@%s", filePath, ref)
	}
	return vcs.File{Path: filePath, Content: content, SHA: util.ContentHash([]byte(content))}, nil
}

func (f *Fake) ListDir(_ context.Context, dirPath, ref string) ([]vcs.DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dirPath = strings.TrimSuffix(dirPath, "/")
	var entries []vcs.DirEntry
	for p := range f.branches[ref] {
		if path.Dir(p) == dirPath {
			entries = append(entries, vcs.DirEntry{Name: path.Base(p), Path: p})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (f *Fake) PutFile(_ context.Context, in vcs.PutFileInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	files, ok := f.branches[in.Branch]
	if !ok {
		return errors.Wrapf(vcs.ErrNotFound, "branch %s", in.Branch)
	}
	files[in.Path] = in.Content
	f.Commits++
	return nil
}

func (f *Fake) CreatePullRequest(_ context.Context, in vcs.NewPullRequest) (vcs.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.branches[in.Head]; !ok {
		return vcs.PullRequest{}, fmt.Errorf("422 head %s does not exist", in.Head)
	}
	pr := vcs.PullRequest{
		Number: len(f.prs) + 1,
		URL:    fmt.Sprintf("https://example.test/pull/%d", len(f.prs)+1),
		Head:   in.Head,
		Base:   in.Base,
		Title:  in.Title,
		State:  "open",
	}
	f.prs = append(f.prs, pr)
	return pr, nil
}

func (f *Fake) FindOpenPullRequest(_ context.Context, head, base string) (vcs.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pr := range f.prs {
		if pr.Head == head && pr.Base == base && pr.State == "open" {
			return pr, nil
		}
	}
	return vcs.PullRequest{}, errors.Wrapf(vcs.ErrNotFound, "open pull request from %s", head)
}

func (f *Fake) MergePullRequest(_ context.Context, number int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MergeErr != nil {
		return f.MergeErr
	}
	for i := range f.prs {
		pr := &f.prs[i]
		if pr.Number != number {
			continue
		}
		if pr.State != "open" {
			return fmt.Errorf("pull request #%d is %s", number, pr.State)
		}
		base := f.branches[pr.Base]
		for p, c := range f.branches[pr.Head] {
			base[p] = c
		}
		pr.State = "closed"
		pr.Merged = true
		f.Commits++
		return nil
	}
	return errors.Wrapf(vcs.ErrNotFound, "pull request #%d", number)
}
