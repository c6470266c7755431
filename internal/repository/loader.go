package repository

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/whydoesntmycode/blog/internal/model"
	"github.com/whydoesntmycode/blog/internal/render"
	"github.com/whydoesntmycode/blog/internal/util"
)

var DefaultExtensions = []string{".md", ".markdown"}

// SkippedFile is a post file that was left out of a load, and why.
type SkippedFile struct {
	File   string
	Reason error
}

// LoadReport describes the outcome of one load pass.
type LoadReport struct {
	Accepted int
	Skipped  []SkippedFile
	// Slugs of valid posts filtered out by the visibility rule.
	Hidden []string
}

type Loader struct {
	dir        string
	renderer   *render.Renderer
	debug      bool
	now        func() time.Time
	workers    int
	extensions []string
}

type LoaderOption func(*Loader)

// WithDebug makes the loader keep posts regardless of visibility.
func WithDebug(debug bool) LoaderOption {
	return func(l *Loader) { l.debug = debug }
}

// WithClock replaces the clock used to decide whether a post is already published.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithExtensions restricts loading to files with one of exts. An empty list accepts every file.
func WithExtensions(exts []string) LoaderOption {
	return func(l *Loader) {
		l.extensions = make([]string, 0, len(exts))
		for _, ext := range exts {
			l.extensions = append(l.extensions, strings.ToLower(ext))
		}
	}
}

func NewLoader(dir string, r *render.Renderer, opts ...LoaderOption) *Loader {
	l := &Loader{
		dir:        dir,
		renderer:   r,
		now:        time.Now,
		workers:    runtime.GOMAXPROCS(0),
		extensions: DefaultExtensions,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.renderer == nil {
		l.renderer = render.New(render.Options{})
	}
	return l
}

func (l *Loader) Dir() string {
	return l.dir
}

func (l *Loader) Debug() bool {
	return l.debug
}

type loadResult struct {
	post *model.Post
	err  error
}

// Load reads every post file in the directory and returns the visible posts, newest
// first. Only an unreadable directory or a cancelled ctx fails the load; bad files are
// reported and skipped.
func (l *Loader) Load(ctx context.Context) ([]model.Post, *LoadReport, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !l.accepts(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}

	results := make([]loadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.loadFile(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	today := model.DateOf(l.now().UTC())
	report := &LoadReport{}
	seen := make(map[string]string, len(files))
	posts := make([]model.Post, 0, len(files))

	for i, res := range results {
		name := files[i]
		if res.err != nil {
			report.skip(name, res.err)
			continue
		}

		if !l.debug && !res.post.IsVisible(today) {
			repoLogger.Debug().
				Str("file", name).
				Str("slug", res.post.Slug).
				Bool("public", res.post.Public).
				Str("published", res.post.Published.String()).
				Msg("Hiding post")
			report.Hidden = append(report.Hidden, res.post.Slug)
			continue
		}

		// Hidden posts never claim a slug, so a draft cannot shadow a live post.
		if first, ok := seen[res.post.Slug]; ok {
			report.skip(name, fmt.Errorf("%w: %q already used by %s", ErrDuplicateSlug, res.post.Slug, first))
			continue
		}
		seen[res.post.Slug] = name

		posts = append(posts, *res.post)
	}

	slices.SortStableFunc(posts, func(a, b model.Post) int {
		return -a.Published.Compare(b.Published)
	})
	report.Accepted = len(posts)

	repoLogger.Info().
		Str("dir", l.dir).
		Int("accepted", report.Accepted).
		Int("skipped", len(report.Skipped)).
		Int("hidden", len(report.Hidden)).
		Bool("debug", l.debug).
		Msg("Loaded posts")

	return posts, report, nil
}

func (l *Loader) accepts(name string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(l.extensions, ext)
}

func (l *Loader) loadFile(ctx context.Context, name string) loadResult {
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return loadResult{err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}

	if !utf8.Valid(data) {
		return loadResult{err: ErrNotText}
	}

	ctx = repoLogger.With().Str("file", name).Logger().WithContext(ctx)
	fm, err := util.ParseFrontMatterContext(ctx, data)
	if err != nil {
		return loadResult{err: err}
	}

	return loadResult{post: &model.Post{
		FrontMatter:   *fm,
		Content:       template.HTML(l.renderer.Render(data)),
		ReadTime:      render.ReadTime(data),
		SourceFile:    name,
		MDContentHash: util.ContentHash(data),
	}}
}

func (r *LoadReport) skip(file string, reason error) {
	repoLogger.Warn().Err(reason).Str("file", file).Msg("Skipping post")
	r.Skipped = append(r.Skipped, SkippedFile{File: file, Reason: reason})
}
