package search

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/content"
)

var searchLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	searchLogger = l
}

// Export reads the corpus from ref. Draft blog posts and notes are only
// included when includeDrafts is set; projects are always included.
func Export(ctx context.Context, loader *content.Loader, ref string, includeDrafts bool) (Corpus, error) {
	corpus := Corpus{
		BlogPosts:    []BlogPost{},
		Projects:     []Project{},
		NoiseEntries: []Note{},
	}

	posts, err := loader.List(ctx, ref, content.Blog)
	if err != nil {
		return Corpus{}, errors.Wrap(err, "failed to load blog posts")
	}
	for _, e := range posts {
		if e.Draft() && !includeDrafts {
			continue
		}
		corpus.BlogPosts = append(corpus.BlogPosts, BlogPost{
			Title:       e.Title(),
			Description: e.Description(),
			Slug:        e.Slug,
			PubDate:     e.DateString(),
			Tags:        e.Tags(),
		})
	}

	projects, err := loader.List(ctx, ref, content.Project)
	if err != nil {
		return Corpus{}, errors.Wrap(err, "failed to load projects")
	}
	for _, e := range projects {
		corpus.Projects = append(corpus.Projects, Project{
			Title:       e.Title(),
			Description: e.Description(),
			Slug:        e.Slug,
			StartDate:   e.DateString(),
			Tags:        e.Tags(),
		})
	}

	notes, err := loader.List(ctx, ref, content.ShortNote)
	if err != nil {
		return Corpus{}, errors.Wrap(err, "failed to load notes")
	}
	for _, e := range notes {
		if e.Draft() && !includeDrafts {
			continue
		}
		id := e.Data.String("id")
		if id == "" {
			id = e.Slug
		}
		corpus.NoiseEntries = append(corpus.NoiseEntries, Note{
			ID:          id,
			Summary:     e.Description(),
			Content:     e.Body,
			PublishedAt: e.DateString(),
		})
	}

	searchLogger.Debug().
		Int("blogPosts", len(corpus.BlogPosts)).
		Int("projects", len(corpus.Projects)).
		Int("noiseEntries", len(corpus.NoiseEntries)).
		Str("ref", ref).
		Msg("Search corpus exported")
	return corpus, nil
}
