package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/whydoesntmycode/blog/internal/feed"
	"github.com/whydoesntmycode/blog/internal/model"
)

// Verifier checks the credential presented with a reload request.
type Verifier interface {
	Verify(credential string) bool
}

// snapshot is one immutable load result. Readers only ever see a whole snapshot.
type snapshot struct {
	posts    []model.Post
	bySlug   map[string]int
	byTag    map[string][]int
	tags     []model.TagCount
	feed     *feed.Document
	report   *LoadReport
	loadedAt time.Time
}

func newSnapshot(posts []model.Post, doc *feed.Document, report *LoadReport, loadedAt time.Time) *snapshot {
	s := &snapshot{
		posts:    posts,
		bySlug:   make(map[string]int, len(posts)),
		byTag:    make(map[string][]int),
		feed:     doc,
		report:   report,
		loadedAt: loadedAt,
	}

	for i := range posts {
		s.bySlug[posts[i].Slug] = i

		var seen []string
		for _, tag := range posts[i].Tags {
			if slices.Contains(seen, tag) {
				continue
			}
			seen = append(seen, tag)
			s.byTag[tag] = append(s.byTag[tag], i)
		}
	}

	s.tags = make([]model.TagCount, 0, len(s.byTag))
	for tag, idx := range s.byTag {
		s.tags = append(s.tags, model.TagCount{Tag: tag, Count: len(idx)})
	}
	sort.Slice(s.tags, func(i, j int) bool { return s.tags[i].Tag < s.tags[j].Tag })

	return s
}

// Store is the in-memory post collection. Reads never block; a reload builds a new
// snapshot off to the side and publishes it with a single pointer swap.
type Store struct { // implements PostRepository
	loader   *Loader
	meta     feed.Meta
	verifier Verifier

	current atomic.Pointer[snapshot]

	// Serializes reloads. Readers never take it.
	reloadMu sync.Mutex

	notifierMu     sync.RWMutex
	reloadNotifier func(slug string)
}

func NewStore(loader *Loader, meta feed.Meta, verifier Verifier) *Store {
	s := &Store{
		loader:   loader,
		meta:     meta,
		verifier: verifier,
	}
	s.current.Store(&snapshot{
		bySlug: map[string]int{},
		byTag:  map[string][]int{},
	})
	return s
}

func (s *Store) SetReloadNotifier(notifier func(slug string)) {
	s.notifierMu.Lock()
	defer s.notifierMu.Unlock()
	s.reloadNotifier = notifier
}

func (s *Store) notifyPostReload(slug string) {
	s.notifierMu.RLock()
	notifier := s.reloadNotifier
	s.notifierMu.RUnlock()

	if notifier != nil {
		notifier(slug)
	}
}

func (s *Store) Init(ctx context.Context) error {
	return s.Refresh(ctx)
}

func (s *Store) GetPostList() []model.Post {
	return slices.Clone(s.current.Load().posts)
}

func (s *Store) ListPostSummaries() []model.PostSummary {
	snap := s.current.Load()
	summaries := make([]model.PostSummary, len(snap.posts))
	for i := range snap.posts {
		summaries[i] = snap.posts[i].Summary()
	}
	return summaries
}

func (s *Store) ReadPost(slug string) (*model.Post, bool) {
	snap := s.current.Load()
	i, ok := snap.bySlug[slug]
	if !ok {
		return nil, false
	}
	post := snap.posts[i]
	return &post, true
}

func (s *Store) GetPostsByTag(tag string) []model.Post {
	snap := s.current.Load()
	idx := snap.byTag[tag]
	posts := make([]model.Post, 0, len(idx))
	for _, i := range idx {
		posts = append(posts, snap.posts[i])
	}
	return posts
}

func (s *Store) Tags() []model.TagCount {
	return slices.Clone(s.current.Load().tags)
}

// Feed returns the Atom document of the current collection, or nil before the first load.
func (s *Store) Feed() *feed.Document {
	return s.current.Load().feed
}

func (s *Store) LastReport() *LoadReport {
	return s.current.Load().report
}

func (s *Store) LoadedAt() time.Time {
	return s.current.Load().loadedAt
}

// Reload verifies credential and then rebuilds the collection. A rejected credential
// returns ErrUnauthorized without touching the disk.
func (s *Store) Reload(ctx context.Context, credential string) error {
	if s.verifier == nil || !s.verifier.Verify(credential) {
		repoLogger.Warn().Msg("Rejected reload with invalid credential")
		return ErrUnauthorized
	}
	return s.Refresh(ctx)
}

// Refresh rebuilds the collection from disk for trusted callers. On failure the
// current collection stays in place.
func (s *Store) Refresh(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()

	posts, report, err := s.loader.Load(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Str("dir", s.loader.Dir()).Msg("Error reloading posts")
		return err
	}

	doc, err := feed.Build(s.meta, posts)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error composing feed")
		return err
	}

	next := newSnapshot(posts, doc, report, time.Now())
	prev := s.current.Swap(next)

	s.notifyChanges(prev, next)

	repoLogger.Info().
		Int("posts", len(next.posts)).
		Int("tags", len(next.tags)).
		Dur("took", time.Since(start)).
		Msg("Reloaded posts")

	return nil
}

func (s *Store) notifyChanges(prev, next *snapshot) {
	for _, old := range prev.posts {
		i, ok := next.bySlug[old.Slug]
		if ok && next.posts[i].MDContentHash == old.MDContentHash {
			continue
		}

		repoLogger.Info().
			Str("slug", old.Slug).
			Str("title", old.Title).
			Bool("removed", !ok).
			Msg("Reloading post")
		go s.notifyPostReload(old.Slug)
	}
}

var _ PostRepository = (*Store)(nil)
