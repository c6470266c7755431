package routes

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/whydoesntmycode/blog/internal/auth"
	"github.com/whydoesntmycode/blog/internal/config"
	"github.com/whydoesntmycode/blog/internal/model"
	"github.com/whydoesntmycode/blog/internal/repository"
	"github.com/whydoesntmycode/blog/internal/sse"
)

var routesLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	routesLogger = l
}

//go:embed templates/* static/*
var content embed.FS

const (
	TemplatesLocalDir = "templates"
	StaticLocalDir    = "static"

	TemplateLayout   = "layout.html"
	TemplateIndex    = "index.html"
	TemplatePost     = "post.html"
	TemplateTag      = "tag.html"
	TemplateTags     = "tags.html"
	TemplateAbout    = "about.html"
	TemplateFeeds    = "feeds.html"
	TemplateNotFound = "notfound.html"
)

var pages = []string{
	TemplateIndex,
	TemplatePost,
	TemplateTag,
	TemplateTags,
	TemplateAbout,
	TemplateFeeds,
	TemplateNotFound,
}

// HomePostCount is how many posts the front page lists.
const HomePostCount = 5

// StatsSource is implemented by repositories that can describe their last load.
type StatsSource interface {
	LastReport() *repository.LoadReport
	LoadedAt() time.Time
}

type Server struct {
	cfg       *config.Config
	posts     repository.PostRepository
	clients   *sse.SSEClients
	verifier  auth.Verifier
	templates map[string]*template.Template
	static    fs.FS
}

func New(cfg *config.Config, posts repository.PostRepository, clients *sse.SSEClients, verifier auth.Verifier) (*Server, error) {
	static, err := fs.Sub(content, StaticLocalDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open static files: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		posts:     posts,
		clients:   clients,
		verifier:  verifier,
		templates: make(map[string]*template.Template, len(pages)),
		static:    static,
	}

	funcs := template.FuncMap{
		"date": func(d model.Date) string { return d.Format("January 2, 2006") },
		"postURL": func(slug string) string {
			return model.PostsURLPath + slug
		},
	}

	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(
			content,
			TemplatesLocalDir+"/"+TemplateLayout,
			TemplatesLocalDir+"/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		s.templates[page] = tmpl
	}

	return s, nil
}

// Router builds the complete HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(routesLogger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Use(secureHeaders)
	r.Use(auth.WithAdminToken(s.verifier))

	r.Get(RobotsPath, serveRobots)
	r.Get(HealthLivePath, s.serveLive)
	r.Get(HealthReadyPath, s.serveReady)
	r.Get(SyntaxPath, s.serveSyntaxCSS)
	r.Handle(StaticPath, cacheStatic(http.StripPrefix("/static/", http.FileServer(http.FS(s.static)))))

	r.Get(RootPath, s.serveHome)
	r.Get(BlogPath, s.serveBlog)
	r.Get(AboutPath, s.serveAbout)
	r.Get(PostPath, s.servePost)
	r.Get(TagPath, s.serveTag)
	r.Get(TagsPath, s.serveTags)
	r.Get(FeedsPath, s.serveFeeds)
	r.Get(AtomPath, s.serveAtom)
	r.Get(StatsPath, s.serveStats)
	r.Get(EventsPath, s.clients.ServeHTTP)

	r.Get(APIPostsPath, s.serveAPIPosts)
	r.Get(APIPostPath, s.serveAPIPost)
	r.Post(APIReloadPath, s.serveReload)
	r.With(auth.RequireAdmin).Get(APIReportPath, s.serveReport)

	r.NotFound(s.serveNotFound)

	return r
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, TemplateLayout, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", page).Msg("Error rendering template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set(HCType, CTypeHTML)
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Clacks-Overhead", "GNU Terry Pratchett, Akira Complex, Natalie Nguyen, Brianna Ghey")
		w.Header().Set("X-Powered-By", "Coffee, Estradiol, Anger and Go")

		next.ServeHTTP(w, r)
	})
}

func cacheStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HCacheControl, "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
