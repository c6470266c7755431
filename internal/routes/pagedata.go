package routes

import (
	"net/http"
	"strings"

	"github.com/whydoesntmycode/blog/internal/config"
	"github.com/whydoesntmycode/blog/internal/model"
)

type PageData struct {
	SiteName        string
	SiteDescription string
	Author          string

	PageURL string
	Title   string

	SyntaxTheme string
	Debug       bool
}

func NewPageData(r *http.Request, cfg *config.Config, title string) *PageData {
	return &PageData{
		SiteName:        cfg.Site.Name,
		SiteDescription: cfg.Site.Description,
		Author:          cfg.Site.Author,
		PageURL:         r.URL.Path,
		Title:           title,
		SyntaxTheme:     cfg.Theme.Syntax,
		Debug:           cfg.Content.Debug,
	}
}

func (pd *PageData) IsPost() bool {
	return strings.HasPrefix(pd.PageURL, model.PostsURLPath)
}
