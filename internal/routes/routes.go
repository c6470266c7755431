// Package routes wires the HTTP surface of the blog.
package routes

const (
	RootPath   = "/"
	BlogPath   = "/blog"
	AboutPath  = "/about"
	PostPath   = "/post/{slug}"
	TagPath    = "/tag/{tag}"
	TagsPath   = "/tags"
	FeedsPath  = "/feeds"
	AtomPath   = "/feeds/atom.xml"
	RobotsPath = "/robots.txt"
	SyntaxPath = "/syntax.css"
	StaticPath = "/static/*"
	StatsPath  = "/stats"

	// SSE
	EventsPath = "/events"

	HealthLivePath  = "/health/live"
	HealthReadyPath = "/health/ready"

	// API
	APIPostsPath  = "/api/posts"
	APIPostPath   = "/api/posts/{slug}"
	APIReloadPath = "/api/admin/reload"
	APIReportPath = "/api/admin/report"
)

const (
	HCType           = "Content-Type"
	HETag            = "ETag"
	HCacheControl    = "Cache-Control"
	HVary            = "Vary"
	HIfNoneMatch     = "If-None-Match"
	HAcceptEncoding  = "Accept-Encoding"
	HContentEncoding = "Content-Encoding"

	CTypeCSS  = "text/css; charset=utf-8"
	CTypeHTML = "text/html; charset=utf-8"
	CTypeText = "text/plain; charset=utf-8"
)
