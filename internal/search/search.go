// Package search ranks the site's blog posts, projects and notes against a
// free-text query, and exports the snapshot the ranking runs over.
package search

import (
	"slices"
	"strings"
	"time"

	"github.com/yabood/yabood/internal/frontmatter"
	"github.com/yabood/yabood/internal/util"
)

const (
	TypeBlogPost = "Blog Post"
	TypeProject  = "Project"
	TypeNote     = "Note"

	untitledNote   = "Untitled"
	noteExcerptLen = 150
)

type BlogPost struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	PubDate     string   `json:"pubDate"`
	Tags        []string `json:"tags"`
}

type Project struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	StartDate   string   `json:"startDate"`
	Tags        []string `json:"tags"`
}

type Note struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	PublishedAt string `json:"publishedAt"`
}

// Corpus is the flattened snapshot served at /api/search-data.json.
type Corpus struct {
	BlogPosts    []BlogPost `json:"blogPosts"`
	Projects     []Project  `json:"projects"`
	NoiseEntries []Note     `json:"noiseEntries"`
}

type Result struct {
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	URL           string    `json:"url"`
	PublishedDate time.Time `json:"publishedDate"`
	Tags          []string  `json:"tags"`
	Relevance     int       `json:"relevance"`
}

// Search returns every record matching query, best match first. Titles score
// 3, descriptions 2 and tags 1; note summaries score 2 and note bodies 1.
// Ties are broken by the more recent date, then by corpus order. A blank
// query matches nothing; otherwise the query is matched as typed, spaces
// included.
func Search(corpus Corpus, query string) []Result {
	results := []Result{}
	if strings.TrimSpace(query) == "" {
		return results
	}
	q := strings.ToLower(query)

	for _, p := range corpus.BlogPosts {
		if rel := score(q, p.Title, p.Description, p.Tags); rel > 0 {
			results = append(results, Result{
				Type:          TypeBlogPost,
				Title:         p.Title,
				Description:   p.Description,
				URL:           "/blog/" + p.Slug,
				PublishedDate: parseDate(p.PubDate),
				Tags:          nonNil(p.Tags),
				Relevance:     rel,
			})
		}
	}

	for _, p := range corpus.Projects {
		if rel := score(q, p.Title, p.Description, p.Tags); rel > 0 {
			results = append(results, Result{
				Type:          TypeProject,
				Title:         p.Title,
				Description:   p.Description,
				URL:           "/projects/" + p.Slug,
				PublishedDate: parseDate(p.StartDate),
				Tags:          nonNil(p.Tags),
				Relevance:     rel,
			})
		}
	}

	for _, n := range corpus.NoiseEntries {
		rel := 0
		switch {
		case contains(n.Summary, q):
			rel = 2
		case contains(n.Content, q):
			rel = 1
		default:
			continue
		}

		title := n.Summary
		if title == "" {
			title = untitledNote
		}
		description := ""
		if n.Content != "" {
			excerpt, _ := util.TruncateRunes(n.Content, noteExcerptLen)
			description = excerpt + "..."
		}
		results = append(results, Result{
			Type:          TypeNote,
			Title:         title,
			Description:   description,
			URL:           "/noise#" + n.ID,
			PublishedDate: parseDate(n.PublishedAt),
			Tags:          []string{},
			Relevance:     rel,
		})
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		if a.Relevance != b.Relevance {
			return b.Relevance - a.Relevance
		}
		return b.PublishedDate.Compare(a.PublishedDate)
	})
	return results
}

func score(q, title, description string, tags []string) int {
	switch {
	case contains(title, q):
		return 3
	case contains(description, q):
		return 2
	}
	for _, tag := range tags {
		if contains(tag, q) {
			return 1
		}
	}
	return 0
}

// contains reports whether s holds the already lower-cased query q.
func contains(s, q string) bool {
	return strings.Contains(strings.ToLower(s), q)
}

// parseDate yields the zero time for missing or malformed dates, which
// sorts after every real date.
func parseDate(s string) time.Time {
	t, _ := frontmatter.ParseDate(s)
	return t
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
