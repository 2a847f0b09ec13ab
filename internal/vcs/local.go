package vcs

import (
	"context"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/pkg/errors"

	"github.com/yabood/yabood/internal/util"
)

// Local reads content from a working copy on disk. It has a single revision,
// so refs are ignored.
type Local struct {
	fsys fs.FS
	root string
}

var _ Reader = (*Local)(nil)

func NewLocal(root string) *Local {
	return &Local{fsys: os.DirFS(root), root: root}
}

// NewLocalFS reads from fsys instead of the operating system.
func NewLocalFS(fsys fs.FS) *Local {
	return &Local{fsys: fsys, root: "."}
}

func (l *Local) GetFile(_ context.Context, filePath, ref string) (File, error) {
	b, err := fs.ReadFile(l.fsys, clean(filePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, errors.Wrapf(ErrNotFound, "file %s", filePath)
		}
		return File{}, errors.Wrapf(err, "read %s", path.Join(l.root, filePath))
	}
	return File{Path: filePath, Content: string(b), SHA: util.ContentHash(b)}, nil
}

func (l *Local) ListDir(_ context.Context, dirPath, ref string) ([]DirEntry, error) {
	entries, err := fs.ReadDir(l.fsys, clean(dirPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list %s", path.Join(l.root, dirPath))
	}

	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, DirEntry{Name: e.Name(), Path: path.Join(dirPath, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	vcsLogger.Debug().Str("dir", dirPath).Int("files", len(out)).Msg("Listed local directory")
	return out, nil
}

// clean maps a repository path onto an fs.FS name.
func clean(p string) string {
	p = path.Clean("/" + p)[1:]
	if p == "" {
		return "."
	}
	return p
}
