package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/yabood/yabood/internal/frontmatter"
)

// HighlightSource renders the raw file as highlighted source for the editor:
// the frontmatter block as YAML, the body as markdown.
func HighlightSource(raw string, theme string) (string, error) {
	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}

	formatter := html.New(
		html.WithClasses(true),
		html.WithLineNumbers(false),
		html.PreventSurroundingPre(true),
	)

	var buf bytes.Buffer
	block, body, ok := frontmatter.Split(raw)
	if ok {
		src := frontmatter.Delimiter + "\n" + block + "\n" + frontmatter.Delimiter + "\n\n"
		if err := highlightInto(&buf, formatter, style, "yaml", src); err != nil {
			return raw, err
		}
	}
	if err := highlightInto(&buf, formatter, style, "markdown", body); err != nil {
		return raw, err
	}

	result := `<div class="markdown-editor">` + buf.String() + `</div>`
	result = strings.ReplaceAll(result, "\n", "<br>\n")
	return result, nil
}

func highlightInto(buf *bytes.Buffer, formatter *html.Formatter, style *chroma.Style, language, src string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return err
	}
	return formatter.Format(buf, style, iterator)
}
