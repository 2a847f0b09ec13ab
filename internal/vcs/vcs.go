// Package vcs is the seam between the draft workflow and the hosted
// repository that stores the site content.
package vcs

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var vcsLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	vcsLogger = l
}

// ErrNotFound is returned when a branch, file or pull request does not exist.
var ErrNotFound = errors.New("not found")

const BranchPrefix = "draft/"

type File struct {
	Path    string
	Content string
	SHA     string
}

type DirEntry struct {
	Name string
	Path string
}

type PutFileInput struct {
	Path    string
	Content string
	Message string
	Branch  string
}

type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
}

type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Head   string `json:"head"`
	Base   string `json:"base"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Merged bool   `json:"merged"`
}

// Reader is the read side of a Host.
type Reader interface {
	GetFile(ctx context.Context, path, ref string) (File, error)
	// ListDir returns the files directly under path. A missing directory is empty.
	ListDir(ctx context.Context, path, ref string) ([]DirEntry, error)
}

// Host is a hosted git repository with branches, files and pull requests.
type Host interface {
	Reader

	// CreateBranch creates name from the head of from. An existing branch is not an error.
	CreateBranch(ctx context.Context, name, from string) error
	BranchExists(ctx context.Context, name string) (bool, error)
	ListBranches(ctx context.Context, prefix string) ([]string, error)
	DeleteBranch(ctx context.Context, name string) error

	// PutFile creates or overwrites a file, looking up the current blob SHA
	// immediately before the write.
	PutFile(ctx context.Context, in PutFileInput) error

	CreatePullRequest(ctx context.Context, pr NewPullRequest) (PullRequest, error)
	// FindOpenPullRequest returns ErrNotFound when no open pull request goes from head into base.
	FindOpenPullRequest(ctx context.Context, head, base string) (PullRequest, error)
	// MergePullRequest squash-merges the pull request.
	MergePullRequest(ctx context.Context, number int, title string) error
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
