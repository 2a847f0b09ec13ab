package content

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yabood/yabood/internal/util"
)

type LengthRule struct {
	Required bool
	Min      int
	Max      int
}

// SEORequirements are the frontmatter checks applied to an entry.
type SEORequirements struct {
	Title       LengthRule
	Description LengthRule
	MinTags     int
	RequireDate bool
	RequireHero bool
}

var (
	DefaultSEO = SEORequirements{
		Title:       LengthRule{Required: true, Min: 10, Max: 60},
		Description: LengthRule{Required: true, Min: 50, Max: 160},
		MinTags:     1,
		RequireDate: true,
	}
	BlogSEO = SEORequirements{
		Title:       LengthRule{Required: true, Min: 10, Max: 60},
		Description: LengthRule{Required: true, Min: 50, Max: 160},
		MinTags:     2,
		RequireDate: true,
	}
	ProjectSEO = SEORequirements{
		Title:       LengthRule{Required: true, Min: 5, Max: 60},
		Description: LengthRule{Required: true, Min: 30, Max: 160},
		MinTags:     1,
	}
)

func SEORequirementsFor(c Collection) SEORequirements {
	switch c {
	case Blog:
		return BlogSEO
	case Project:
		return ProjectSEO
	}
	return DefaultSEO
}

type SEOReport struct {
	Valid    bool     `json:"isValid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

const placeholderText = "lorem ipsum"

// ValidateSEO checks e against req. Missing required fields are errors,
// everything else is a warning.
func ValidateSEO(e Entry, req SEORequirements) SEOReport {
	r := SEOReport{Warnings: []string{}, Errors: []string{}}
	prefix := fmt.Sprintf("[%s:%s]", e.Collection, e.Slug)

	title := e.Data.String("title")
	description := e.Data.String("description")
	if description == "" {
		description = e.Data.String("summary")
	}

	if req.Title.Required {
		if title == "" {
			r.Errors = append(r.Errors, prefix+" Missing required field: title")
		} else {
			n := utf8.RuneCountInString(title)
			if req.Title.Min > 0 && n < req.Title.Min {
				r.Warnings = append(r.Warnings, fmt.Sprintf("%s Title too short (%d chars, recommended: %d+): %q", prefix, n, req.Title.Min, title))
			}
			if req.Title.Max > 0 && n > req.Title.Max {
				short, _ := util.TruncateRunes(title, 50)
				r.Warnings = append(r.Warnings, fmt.Sprintf("%s Title too long (%d chars, recommended: <%d): %q", prefix, n, req.Title.Max, short+"..."))
			}
		}
	}

	if req.Description.Required {
		if description == "" {
			r.Errors = append(r.Errors, prefix+" Missing required field: description")
		} else {
			n := utf8.RuneCountInString(description)
			if req.Description.Min > 0 && n < req.Description.Min {
				r.Warnings = append(r.Warnings, fmt.Sprintf("%s Description too short (%d chars, recommended: %d+)", prefix, n, req.Description.Min))
			}
			if req.Description.Max > 0 && n > req.Description.Max {
				r.Warnings = append(r.Warnings, fmt.Sprintf("%s Description too long (%d chars, recommended: <%d)", prefix, n, req.Description.Max))
			}
		}
	}

	if req.RequireHero && !e.Data.Has("heroImage") && !e.Data.Has("image") {
		r.Warnings = append(r.Warnings, prefix+" Missing heroImage - recommended for better social sharing")
	}

	if req.MinTags > 0 {
		tags := e.Tags()
		switch {
		case len(tags) == 0:
			r.Warnings = append(r.Warnings, prefix+" Missing tags - recommended for better SEO and discoverability")
		case len(tags) < req.MinTags:
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s Only %d tag(s) - recommended: %d+", prefix, len(tags), req.MinTags))
		}
	}

	if req.RequireDate && e.DateString() == "" && e.Data.String("pubDate") == "" && e.Data.String("date") == "" {
		r.Errors = append(r.Errors, prefix+" Missing required field: pubDate/date")
	}

	if title != "" && title == description {
		r.Warnings = append(r.Warnings, prefix+" Title and description are identical - this hurts SEO")
	}
	if strings.Contains(strings.ToLower(title), placeholderText) {
		r.Warnings = append(r.Warnings, prefix+" Title contains placeholder text")
	}
	if strings.Contains(strings.ToLower(description), placeholderText) {
		r.Warnings = append(r.Warnings, prefix+" Description contains placeholder text")
	}

	r.Valid = len(r.Errors) == 0
	return r
}
