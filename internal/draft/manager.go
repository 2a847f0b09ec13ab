// Package draft runs the branch-per-draft content workflow: drafts are
// created on their own branch, edited in place, and published through a
// squash-merged pull request.
package draft

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/vcs"
)

var draftLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}

// Notifier is told when a draft's content changes.
type Notifier interface {
	Broadcast(key string, msg string)
}

// LiveKey identifies the live-preview channel of an entry.
func LiveKey(c content.Collection, slug string) string {
	return c.Dir() + "/" + slug
}

// Manager holds no draft state of its own; every call reads the repository.
type Manager struct {
	host     vcs.Host
	loader   *content.Loader
	cfg      *config.Config
	now      func() time.Time
	newID    func() string
	notifier Notifier
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the random branch id source.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// NewBranchID returns the first eight hex characters of a random UUID.
func NewBranchID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func NewManager(host vcs.Host, cfg *config.Config, opts ...Option) (*Manager, error) {
	if err := cfg.GitHub.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		host:   host,
		loader: content.NewLoader(host, cfg.GitHub.ContentRoot),
		cfg:    cfg,
		now:    time.Now,
		newID:  NewBranchID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) Loader() *content.Loader {
	return m.loader
}

func (m *Manager) trunk() string {
	return m.cfg.GitHub.Trunk
}

func (m *Manager) check() error {
	return m.cfg.GitHub.Validate()
}

// upstream classifies err as a host failure unless it already carries a kind.
func upstream(msg string, err error) error {
	if apperr.KindOf(err) != 0 {
		return err
	}
	return apperr.Upstream(msg, err)
}

// branchName accepts either a bare branch id or a full draft branch name.
func branchName(id string) string {
	if strings.HasPrefix(id, vcs.BranchPrefix) {
		return id
	}
	return vcs.BranchPrefix + id
}

func branchID(branch string) string {
	return strings.TrimPrefix(branch, vcs.BranchPrefix)
}

// resolveBranch finds the draft branch holding collection/slug: an explicit
// branch id wins, then a legacy branch named after the slug, then the first
// draft branch that adds the file or changes it relative to trunk.
func (m *Manager) resolveBranch(ctx context.Context, c content.Collection, slug, id string) (string, error) {
	if id != "" {
		name := branchName(id)
		ok, err := m.host.BranchExists(ctx, name)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", apperr.NotFound(config.ErrDraftNotFound)
		}
		return name, nil
	}

	legacy := vcs.BranchPrefix + slug
	ok, err := m.host.BranchExists(ctx, legacy)
	if err != nil {
		return "", err
	}
	if ok {
		return legacy, nil
	}

	branches, err := m.host.ListBranches(ctx, vcs.BranchPrefix)
	if err != nil {
		return "", err
	}
	if len(branches) == 0 {
		return "", apperr.NotFound(config.ErrDraftNotFound)
	}

	// Branches fork from trunk, so a file identical to trunk's copy is not
	// a draft of this entry.
	published, err := m.loader.Get(ctx, m.trunk(), c, slug)
	if err != nil && !vcs.IsNotFound(err) {
		return "", err
	}
	onTrunk := err == nil

	for _, b := range branches {
		e, err := m.loader.Get(ctx, b, c, slug)
		if err != nil {
			if !vcs.IsNotFound(err) {
				draftLogger.Warn().Err(err).Str("branch", b).Msg("Failed to read draft branch")
			}
			continue
		}
		if onTrunk && e.Raw == published.Raw {
			continue
		}
		return b, nil
	}
	return "", apperr.NotFound(config.ErrDraftNotFound)
}

// EntryPath is the site path an entry is served at.
func EntryPath(c content.Collection, slug, project string) string {
	switch c {
	case content.ProjectUpdate:
		if project != "" {
			return "/projects/" + project + "/updates/" + slug
		}
		return "/" + c.Dir() + "/" + slug
	case content.Blog, content.ShortNote, content.Project:
		return "/" + c.Dir() + "/" + slug
	}
	return "/" + slug
}

func entryPath(e content.Entry) string {
	return EntryPath(e.Collection, e.Slug, e.Data.String("project"))
}
