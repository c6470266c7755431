package cache

import "html/template"

var syntaxCache = NewCache[string, template.CSS]()

// SyntaxCSS returns the stylesheet for theme, building it with generate on first use.
func SyntaxCSS(theme string, generate func() template.CSS) template.CSS {
	return syntaxCache.GetOrSet(theme, generate)
}
