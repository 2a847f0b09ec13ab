// Package content describes the site's content collections and loads their
// entries from a repository ref.
package content

import (
	"encoding/json"
	"fmt"

	"github.com/yabood/yabood/internal/apperr"
)

// Collection is one of the fixed content collections.
type Collection int

const (
	Blog Collection = iota + 1
	ProjectUpdate
	ShortNote
	Project
)

// Draftable lists the collections the draft workflow may write to, in scan order.
var Draftable = []Collection{Blog, ShortNote, ProjectUpdate}

// All lists every collection.
var All = []Collection{Blog, ShortNote, ProjectUpdate, Project}

// Dir is the collection's directory name under the content root. It is also
// the collection's name in URLs and API payloads.
func (c Collection) Dir() string {
	switch c {
	case Blog:
		return "blog"
	case ProjectUpdate:
		return "updates"
	case ShortNote:
		return "noise"
	case Project:
		return "projects"
	}
	return "unknown"
}

func (c Collection) String() string {
	return c.Dir()
}

// DateField is the frontmatter key holding the publication date.
func (c Collection) DateField() string {
	switch c {
	case Blog:
		return "pubDate"
	case ProjectUpdate:
		return "date"
	case ShortNote:
		return "publishedAt"
	case Project:
		return "startDate"
	}
	return "pubDate"
}

// DescriptionField is the frontmatter key holding the short description.
func (c Collection) DescriptionField() string {
	switch c {
	case ProjectUpdate, ShortNote:
		return "summary"
	}
	return "description"
}

func (c Collection) Draftable() bool {
	switch c {
	case Blog, ProjectUpdate, ShortNote:
		return true
	}
	return false
}

// ParseCollection accepts a directory name or one of the long aliases.
func ParseCollection(s string) (Collection, error) {
	switch s {
	case "blog":
		return Blog, nil
	case "updates", "project-update":
		return ProjectUpdate, nil
	case "noise", "short-note":
		return ShortNote, nil
	case "projects", "project":
		return Project, nil
	}
	return 0, apperr.Validation(fmt.Sprintf("Unknown collection: %s", s))
}

// ParseDraftable is ParseCollection restricted to draftable collections.
func ParseDraftable(s string) (Collection, error) {
	c, err := ParseCollection(s)
	if err != nil {
		return 0, err
	}
	if !c.Draftable() {
		return 0, apperr.Validation(fmt.Sprintf("Collection %s is read-only", c))
	}
	return c, nil
}

func (c Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Dir())
}

func (c *Collection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseCollection(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
