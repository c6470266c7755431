// Package render provides markdown rendering, syntax highlighting and read time estimation.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"

	"github.com/whydoesntmycode/blog/internal/theme"
	"github.com/whydoesntmycode/blog/internal/util"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

const (
	EngineClassic = "classic"
	EngineMmark   = "mmark"
)

const classicExtensions = parser.CommonExtensions | parser.AutoHeadingIDs | parser.Footnotes |
	parser.SuperSubscript | parser.OrderedListStart | parser.NonBlockingSpace | parser.Attributes

type Options struct {
	SyntaxTheme string
	Engine      string
	LineNumbers bool
}

// Renderer turns post documents into HTML. It holds no per-call state and is safe
// for concurrent use.
type Renderer struct {
	opts      Options
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func New(opts Options) *Renderer {
	if opts.SyntaxTheme == "" {
		opts.SyntaxTheme = theme.DefaultSyntaxTheme
	}
	if opts.Engine == "" {
		opts.Engine = EngineClassic
	}

	return &Renderer{
		opts:      opts,
		style:     theme.GetStyle(opts.SyntaxTheme),
		formatter: theme.GetFormatter(opts.LineNumbers),
	}
}

func (r *Renderer) SyntaxTheme() string {
	return r.opts.SyntaxTheme
}

// Render converts a full post document to HTML. The front matter block is skipped.
func (r *Renderer) Render(doc []byte) []byte {
	body := util.StripFrontMatter(doc)

	switch r.opts.Engine {
	case EngineMmark:
		return r.renderMmark(body)
	default:
		return r.renderClassic(body)
	}
}

// HighlightCode renders code with the renderer's syntax theme. Unknown languages
// fall back to plain text.
func (r *Renderer) HighlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		renderLogger.Warn().Err(err).Str("language", language).Msg("Failed to tokenise code block")
		return "<pre>" + html.EscapeString(code) + "</pre>"
	}

	var buf strings.Builder
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		renderLogger.Warn().Err(err).Str("language", language).Msg("Failed to format code block")
		return "<pre>" + html.EscapeString(code) + "</pre>"
	}

	return buf.String()
}

func (r *Renderer) codeBlockHook(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	code, ok := node.(*ast.CodeBlock)
	if !ok || !entering {
		return ast.GoToNext, false
	}

	fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", r.HighlightCode(string(code.Literal), codeLanguage(code.Info)))
	return ast.GoToNext, true
}

// codeLanguage takes the language from a fence info string such as "go {linenos=true}".
func codeLanguage(info []byte) string {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "{}.")
}

func (r *Renderer) renderClassic(md []byte) []byte {
	opts := md_html.RendererOptions{
		Flags:          md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		RenderNodeHook: r.codeBlockHook,
	}

	doc := parser.NewWithExtensions(classicExtensions).Parse(markdown.NormalizeNewlines(md))
	return markdown.Render(doc, md_html.NewRenderer(opts))
}

func (r *Renderer) renderMmark(md []byte) []byte {
	md = markdown.NormalizeNewlines(md)

	p := parser.NewWithExtensions(mparser.Extensions | parser.NoIntraEmphasis)

	var info *mast.TitleData
	p.Opts = parser.Options{
		ParserHook: func(data []byte) (ast.Node, []byte, int) {
			node, data, consumed := mparser.Hook(data)
			if t, ok := node.(*mast.Title); ok {
				info = t.TitleData
			}
			return node, data, consumed
		},
		Flags: parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)
	mparser.AddIndex(doc)

	language := "en"
	if info != nil && info.Language != "" {
		language = info.Language
	}

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(language),
	}

	opts := md_html.RendererOptions{
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, handled := r.codeBlockHook(w, node, entering); handled {
				return status, handled
			}
			return mhtmlOpts.RenderHook(w, node, entering)
		},
		Flags: md_html.CommonFlags | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks,
	}

	return markdown.Render(doc, md_html.NewRenderer(opts))
}
