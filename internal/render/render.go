// Package render turns entry bodies into preview HTML with chroma syntax
// highlighting and builds the matching stylesheets.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/cache"
	"github.com/yabood/yabood/internal/frontmatter"
	"github.com/yabood/yabood/internal/util"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

var regexCallout = regexp.MustCompile(`//\s*<<(\d+)>>`)

// previewCacheSize bounds the rendered previews kept in memory. Every draft
// edit produces a new content hash.
const previewCacheSize = 256

type previewKey struct {
	hash  string
	theme string
}

type rendered struct {
	html []byte
	toc  []Heading
}

var (
	previews    = cache.New[previewKey, rendered](previewCacheSize)
	stylesheets = cache.New[string, template.CSS](0)
)

// Heading is one entry of a rendered document's table of contents.
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

func Formatter() *chromahtml.Formatter {
	return chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.TabWidth(4),
		chromahtml.WithLineNumbers(true),
		chromahtml.WrapLongLines(true),
	)
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	style := styles.Get(highlightTheme)
	err = Formatter().Format(&buf, style, iterator)
	if err != nil {
		return code
	}

	res := html.UnescapeString(buf.String())
	res = regexCallout.ReplaceAllString(res, "<span class=\"callout\">$1</span>")
	return res
}

// SyntaxCSS returns the stylesheet for a chroma style. Unknown names get
// chroma's fallback style.
func SyntaxCSS(theme string) template.CSS {
	css, _ := stylesheets.GetOrLoad(theme, func() template.CSS {
		return syntaxCSS(theme)
	})
	return css
}

func syntaxCSS(theme string) template.CSS {
	var buf strings.Builder
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Themes without a text colour need one picked against their background
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	if err := Formatter().WriteCSS(&buf, style); err != nil {
		renderLogger.Error().Err(err).Str("theme", theme).Msg("Failed to write syntax CSS")
	}
	return template.CSS(buf.String())
}

// RenderMarkdown renders an entry body and collects its headings.
func RenderMarkdown(md []byte, highlightTheme string) ([]byte, []Heading) {
	md = markdown.NormalizeNewlines(md)

	opts := md_html.RendererOptions{
		Flags:    md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				highlighted := HighlightCode(string(code.Literal), lang, highlightTheme)
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
				return ast.GoToNext, true
			}

			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough | parser.SpaceHeadings |
			parser.HeadingIDs | parser.BackslashLineBreak | parser.SuperSubscript | parser.DefinitionLists |
			parser.AutoHeadingIDs | parser.Footnotes | parser.OrderedListStart | parser.Attributes |
			parser.NonBlockingSpace,
	).Parse(md)

	rendered := markdown.Render(doc, md_html.NewRenderer(opts))
	return rendered, headings(doc)
}

func headings(doc ast.Node) []Heading {
	toc := []Heading{}
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		h, ok := node.(*ast.Heading)
		if !ok || !entering {
			return ast.GoToNext
		}
		toc = append(toc, Heading{Level: h.Level, ID: h.HeadingID, Text: plainText(h)})
		return ast.SkipChildren
	})
	return toc
}

func plainText(node ast.Node) string {
	var buf bytes.Buffer
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch leaf := n.(type) {
		case *ast.Text:
			buf.Write(leaf.Literal)
		case *ast.Code:
			buf.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return buf.String()
}

// RenderMarkdownCached renders md once per content hash and theme. An empty
// hash bypasses the cache.
func RenderMarkdownCached(md []byte, contentHash, highlightTheme string) ([]byte, []Heading) {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderMarkdown(md, highlightTheme)
	}

	r, hit := previews.GetOrLoad(previewKey{contentHash, highlightTheme}, func() rendered {
		html, toc := RenderMarkdown(md, highlightTheme)
		return rendered{html: html, toc: toc}
	})
	renderLogger.Debug().
		Str("contentHash", contentHash).
		Str("highlightTheme", highlightTheme).
		Bool("hit", hit).
		Msg("Rendered markdown lookup")
	return r.html, r.toc
}

// Preview renders a raw entry file, frontmatter and all. Only the body is
// rendered; identical files share a cache entry.
func Preview(raw, highlightTheme string) ([]byte, []Heading) {
	_, body, _ := frontmatter.Split(raw)
	return RenderMarkdownCached([]byte(body), util.ContentHashString(raw), highlightTheme)
}
