package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whydoesntmycode/blog/internal/model"
	"github.com/whydoesntmycode/blog/internal/theme"
)

type listPage struct {
	*PageData
	Heading string
	Posts   []model.PostSummary
	// More is set on the front page when older posts exist.
	More bool
}

type postPage struct {
	*PageData
	Post *model.Post
}

type tagsPage struct {
	*PageData
	Tags []model.TagCount
}

func (s *Server) serveHome(w http.ResponseWriter, r *http.Request) {
	posts := s.posts.ListPostSummaries()
	more := len(posts) > HomePostCount
	if more {
		posts = posts[:HomePostCount]
	}

	s.render(w, r, http.StatusOK, TemplateIndex, listPage{
		PageData: NewPageData(r, s.cfg, ""),
		Heading:  "Latest posts",
		Posts:    posts,
		More:     more,
	})
}

func (s *Server) serveBlog(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, TemplateIndex, listPage{
		PageData: NewPageData(r, s.cfg, "Blog"),
		Heading:  "All posts",
		Posts:    s.posts.ListPostSummaries(),
	})
}

func (s *Server) serveAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, TemplateAbout, NewPageData(r, s.cfg, "About"))
}

func (s *Server) serveFeeds(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, TemplateFeeds, NewPageData(r, s.cfg, "Feeds"))
}

func (s *Server) servePost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, ok := s.posts.ReadPost(slug)
	if !ok {
		s.serveNotFound(w, r)
		return
	}

	s.render(w, r, http.StatusOK, TemplatePost, postPage{
		PageData: NewPageData(r, s.cfg, post.Title),
		Post:     post,
	})
}

func (s *Server) serveTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	posts := s.posts.GetPostsByTag(tag)
	summaries := make([]model.PostSummary, 0, len(posts))
	for i := range posts {
		summaries = append(summaries, posts[i].Summary())
	}

	s.render(w, r, http.StatusOK, TemplateTag, listPage{
		PageData: NewPageData(r, s.cfg, "#"+tag),
		Heading:  "Posts tagged #" + tag,
		Posts:    summaries,
	})
}

func (s *Server) serveTags(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, TemplateTags, tagsPage{
		PageData: NewPageData(r, s.cfg, "Tags"),
		Tags:     s.posts.Tags(),
	})
}

func (s *Server) serveNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, TemplateNotFound, NewPageData(r, s.cfg, "Move Along"))
}

func (s *Server) serveSyntaxCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HCType, CTypeCSS)
	w.Header().Set(HCacheControl, "public, max-age=3600")
	w.Write([]byte(theme.GenerateSyntaxCSS(s.cfg.Theme.Syntax)))
}

func serveRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HCType, CTypeText)
	w.Write([]byte("User-agent: *\nAllow: /\n"))
}
