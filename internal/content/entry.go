package content

import (
	"path"
	"strings"
	"time"

	"github.com/yabood/yabood/internal/frontmatter"
)

var fileExtensions = []string{".mdx", ".md"}

// IsContentFile reports whether name is a markdown content file.
func IsContentFile(name string) bool {
	for _, ext := range fileExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// SlugFromFile strips the directory and markdown extension from name.
func SlugFromFile(name string) string {
	base := path.Base(name)
	for _, ext := range fileExtensions {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// Entry is a single content file with its decoded frontmatter.
type Entry struct {
	Collection Collection
	Slug       string
	Path       string
	Raw        string
	Data       frontmatter.Data
	Body       string
}

// NewEntry parses raw. On a frontmatter error the entry is still returned
// with empty Data alongside the error.
func NewEntry(c Collection, filePath, raw string) (Entry, error) {
	data, body, err := frontmatter.Parse(raw)
	return Entry{
		Collection: c,
		Slug:       SlugFromFile(filePath),
		Path:       filePath,
		Raw:        raw,
		Data:       data,
		Body:       body,
	}, err
}

// Title falls back to the slug when the entry has no title.
func (e Entry) Title() string {
	if t := e.Data.String("title"); t != "" {
		return t
	}
	return e.Slug
}

func (e Entry) Description() string {
	return e.Data.String(e.Collection.DescriptionField())
}

func (e Entry) Date() (time.Time, bool) {
	return e.Data.Date(e.Collection.DateField())
}

// DateString is the publication date as written in the frontmatter.
func (e Entry) DateString() string {
	return e.Data.String(e.Collection.DateField())
}

func (e Entry) Tags() []string {
	return e.Data.Strings("tags")
}

func (e Entry) Draft() bool {
	return e.Data.Bool("draft")
}
