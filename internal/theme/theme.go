// Package theme handles syntax highlighting themes and CSS generation.
package theme

import (
	"html/template"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/whydoesntmycode/blog/internal/cache"
)

const DefaultSyntaxTheme = "gruvbox"

func GetSyntaxThemes() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

func IsSyntaxTheme(name string) bool {
	return slices.Contains(styles.Names(), name)
}

// GetStyle returns the chroma style for name, or the chroma fallback style.
func GetStyle(name string) *chroma.Style {
	style := styles.Get(name)
	if style == nil {
		style = styles.Fallback
	}
	return style
}

func GetFormatter(lineNumbers bool) *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WithLineNumbers(lineNumbers),
		html.WrapLongLines(true),
	)
}

// GenerateSyntaxCSS returns the chroma stylesheet for theme. Stylesheets are built once per theme.
func GenerateSyntaxCSS(theme string) template.CSS {
	return cache.SyntaxCSS(theme, func() template.CSS {
		return buildSyntaxCSS(theme)
	})
}

func buildSyntaxCSS(theme string) template.CSS {
	var buf strings.Builder
	style := GetStyle(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Calculate the color of highlighted text given the background color
		// for when the Chroma theme doesn't supply a default
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	if err := GetFormatter(false).WriteCSS(&buf, style); err != nil {
		return ""
	}

	return template.CSS(buf.String())
}
