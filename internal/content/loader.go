package content

import (
	"context"
	"path"

	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/vcs"
)

var contentLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	contentLogger = l
}

// Loader reads collection entries from any ref of a repository.
type Loader struct {
	host vcs.Reader
	root string
}

func NewLoader(host vcs.Reader, root string) *Loader {
	return &Loader{host: host, root: root}
}

func (l *Loader) Dir(c Collection) string {
	return path.Join(l.root, c.Dir())
}

// Path is where a new entry for slug is written.
func (l *Loader) Path(c Collection, slug string) string {
	return path.Join(l.Dir(c), slug+".mdx")
}

// Get reads the entry for slug, trying .mdx before .md.
func (l *Loader) Get(ctx context.Context, ref string, c Collection, slug string) (Entry, error) {
	var lastErr error
	for _, ext := range fileExtensions {
		p := path.Join(l.Dir(c), slug+ext)
		f, err := l.host.GetFile(ctx, p, ref)
		if err != nil {
			lastErr = err
			if vcs.IsNotFound(err) {
				continue
			}
			return Entry{}, err
		}

		entry, perr := NewEntry(c, p, f.Content)
		if perr != nil {
			contentLogger.Warn().Err(perr).Str("path", p).Str("ref", ref).Msg("Unparsable frontmatter")
		}
		return entry, nil
	}
	return Entry{}, lastErr
}

// Slugs lists the slugs present in the collection directory without reading the files.
func (l *Loader) Slugs(ctx context.Context, ref string, c Collection) ([]string, error) {
	files, err := l.host.ListDir(ctx, l.Dir(c), ref)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(files))
	for _, f := range files {
		if IsContentFile(f.Name) {
			slugs = append(slugs, SlugFromFile(f.Name))
		}
	}
	return slugs, nil
}

// List reads every content file of the collection. Files that fail to load
// are logged and skipped.
func (l *Loader) List(ctx context.Context, ref string, c Collection) ([]Entry, error) {
	files, err := l.host.ListDir(ctx, l.Dir(c), ref)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if !IsContentFile(f.Name) {
			continue
		}
		file, err := l.host.GetFile(ctx, f.Path, ref)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			contentLogger.Warn().Err(err).Str("path", f.Path).Str("ref", ref).Msg("Skipping unreadable entry")
			continue
		}
		entry, err := NewEntry(c, f.Path, file.Content)
		if err != nil {
			contentLogger.Warn().Err(err).Str("path", f.Path).Str("ref", ref).Msg("Unparsable frontmatter")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
