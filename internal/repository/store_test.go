package repository

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/whydoesntmycode/blog/internal/feed"
	"github.com/whydoesntmycode/blog/internal/util"
)

const testToken = "s3cret"

type staticVerifier string

func (v staticVerifier) Verify(credential string) bool {
	return credential == string(v)
}

var testMeta = feed.Meta{
	ID:          "https://example.com/",
	Title:       "Example",
	AuthorName:  "Author",
	SelfLink:    "https://example.com/feeds/atom.xml",
	PostBaseURL: "https://example.com/post/",
}

func newTestStore(t *testing.T, dir string, opts ...LoaderOption) *Store {
	t.Helper()
	s := NewStore(newTestLoader(dir, opts...), testMeta, staticVerifier(testToken))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s
}

func seedPosts(t *testing.T, dir string) {
	t.Helper()
	writePost(t, dir, "a.md", postDoc("A", "a", "2024-01-01", true, "go", "web"))
	writePost(t, dir, "b.md", postDoc("B", "b", "2024-03-01", true, "go"))
	writePost(t, dir, "c.md", postDoc("C", "c", "2024-02-01", true, "rust", "rust"))
}

func TestStoreBeforeInit(t *testing.T) {
	s := NewStore(newTestLoader(t.TempDir()), testMeta, nil)

	if len(s.GetPostList()) != 0 {
		t.Error("Expected empty list before first load")
	}
	if _, ok := s.ReadPost("a"); ok {
		t.Error("Expected no post before first load")
	}
	if s.Feed() != nil {
		t.Error("Expected no feed before first load")
	}
	if got := s.GetPostsByTag("go"); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", got)
	}
}

func TestStoreInitFailsOnMissingDirectory(t *testing.T) {
	s := NewStore(newTestLoader(filepath.Join(t.TempDir(), "nope")), testMeta, nil)
	if err := s.Init(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestStoreReadPost(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	testCases := []struct {
		slug  string
		found bool
	}{
		{"a", true},
		{"b", true},
		{"A", false},
		{"a ", false},
		{"", false},
		{"missing", false},
	}

	for _, tc := range testCases {
		t.Run(tc.slug, func(t *testing.T) {
			post, ok := s.ReadPost(tc.slug)
			if ok != tc.found {
				t.Fatalf("Expected found=%t, got %t", tc.found, ok)
			}
			if ok && post.Slug != tc.slug {
				t.Errorf("Expected slug %s, got %s", tc.slug, post.Slug)
			}
		})
	}
}

func TestStoreReadPostReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	post, _ := s.ReadPost("a")
	post.Title = "changed"

	again, _ := s.ReadPost("a")
	if again.Title != "A" {
		t.Errorf("Expected stored post to be unaffected, got %s", again.Title)
	}

	list := s.GetPostList()
	list[0].Title = "changed"
	if s.GetPostList()[0].Title == "changed" {
		t.Error("Expected list to be a copy")
	}
}

func TestStoreListings(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	if got := strings.Join(slugs(s.GetPostList()), ","); got != "b,c,a" {
		t.Errorf("Expected b,c,a, got %s", got)
	}

	summaries := s.ListPostSummaries()
	if len(summaries) != 3 || summaries[0].Slug != "b" || summaries[0].Title != "B" {
		t.Errorf("Unexpected summaries: %+v", summaries)
	}

	tagCases := []struct {
		tag  string
		want string
	}{
		{"go", "b,a"},
		{"rust", "c"},
		{"Go", ""},
		{"missing", ""},
	}
	for _, tc := range tagCases {
		t.Run("tag "+tc.tag, func(t *testing.T) {
			posts := s.GetPostsByTag(tc.tag)
			if posts == nil {
				t.Fatal("Expected non-nil slice")
			}
			if got := strings.Join(slugs(posts), ","); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}

	tags := s.Tags()
	if len(tags) != 3 {
		t.Fatalf("Expected 3 tags, got %+v", tags)
	}
	wantTags := []struct {
		tag   string
		count int
	}{{"go", 2}, {"rust", 1}, {"web", 1}}
	for i, want := range wantTags {
		if tags[i].Tag != want.tag || tags[i].Count != want.count {
			t.Errorf("Tag %d: expected %s=%d, got %s=%d", i, want.tag, want.count, tags[i].Tag, tags[i].Count)
		}
	}
}

func TestStoreFeed(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	doc := s.Feed()
	if doc == nil {
		t.Fatal("Expected a feed after Init")
	}
	if s.Feed() != doc {
		t.Error("Expected the cached document to be returned")
	}

	want, err := feed.Compose(testMeta, s.GetPostList())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(doc.Body, want) {
		t.Error("Expected feed to match the current collection")
	}
}

func TestStoreReloadRejectsBadCredential(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	before := s.Feed()
	writePost(t, dir, "d.md", postDoc("D", "d", "2024-04-01", true))

	for _, credential := range []string{"", "wrong", testToken + " "} {
		if err := s.Reload(context.Background(), credential); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized for %q, got %v", credential, err)
		}
	}

	if _, ok := s.ReadPost("d"); ok {
		t.Error("Expected collection to be unchanged after rejected reload")
	}
	if s.Feed() != before {
		t.Error("Expected feed to be unchanged after rejected reload")
	}
}

func TestStoreReloadWithoutVerifier(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := NewStore(newTestLoader(dir), testMeta, nil)

	if err := s.Reload(context.Background(), testToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestStoreReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)
	before := s.LoadedAt()

	writePost(t, dir, "d.md", postDoc("D", "d", "2024-04-01", true))
	if err := os.Remove(filepath.Join(dir, "c.md")); err != nil {
		t.Fatal(err)
	}

	if err := s.Reload(context.Background(), testToken); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if got := strings.Join(slugs(s.GetPostList()), ","); got != "d,b,a" {
		t.Errorf("Expected d,b,a, got %s", got)
	}
	if len(s.GetPostsByTag("rust")) != 0 {
		t.Error("Expected removed post to leave the tag index")
	}
	if !bytes.Contains(s.Feed().Body, []byte("https://example.com/post/d")) {
		t.Error("Expected new post in feed")
	}
	if s.LoadedAt().Before(before) {
		t.Error("Expected load time to move forward")
	}
	if s.LastReport().Accepted != 3 {
		t.Errorf("Expected report of the latest load, got %+v", s.LastReport())
	}
}

func TestStoreFailedReloadKeepsCollection(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "posts")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	before := s.GetPostList()
	beforeFeed := s.Feed()

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if err := s.Reload(context.Background(), testToken); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}

	if got, want := strings.Join(slugs(s.GetPostList()), ","), strings.Join(slugs(before), ","); got != want {
		t.Errorf("Expected %s after failed reload, got %s", want, got)
	}
	if s.Feed() != beforeFeed {
		t.Error("Expected feed to survive a failed reload")
	}
}

func TestStoreDebugMode(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "draft.md", postDoc("Draft", "draft", "2024-01-01", false))

	normal := newTestStore(t, dir)
	if _, ok := normal.ReadPost("draft"); ok {
		t.Error("Expected private post to be hidden")
	}
	if bytes.Contains(normal.Feed().Body, []byte("post/draft")) {
		t.Error("Expected private post to be left out of the feed")
	}

	debug := newTestStore(t, dir, WithDebug(true))
	if _, ok := debug.ReadPost("draft"); !ok {
		t.Error("Expected private post in debug mode")
	}
}

func TestStoreFutureDatedPost(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "tomorrow.md", postDoc("Tomorrow", "tomorrow", "2024-06-02", true))
	writePost(t, dir, "today.md", postDoc("Today", "today", "2024-06-01", true))

	s := newTestStore(t, dir)
	if _, ok := s.ReadPost("tomorrow"); ok {
		t.Error("Expected tomorrow's post to be hidden")
	}
	if _, ok := s.ReadPost("today"); !ok {
		t.Error("Expected today's post to be visible")
	}
}

func TestStoreReloadNotifier(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	notified := make(chan string, 8)
	s.SetReloadNotifier(func(slug string) { notified <- slug })

	writePost(t, dir, "a.md", postDoc("A edited", "a", "2024-01-01", true))
	if err := os.Remove(filepath.Join(dir, "c.md")); err != nil {
		t.Fatal(err)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case slug := <-notified:
			got[slug] = true
		case <-timeout:
			t.Fatalf("Timed out waiting for notifications, got %v", got)
		}
	}
	if !got["a"] || !got["c"] {
		t.Errorf("Expected notifications for a and c, got %v", got)
	}

	select {
	case slug := <-notified:
		t.Errorf("Unexpected notification for %s", slug)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoreConcurrentReadsDuringReload(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		slug := string(rune('a' + i))
		writePost(t, dir, slug+".md", postDoc(strings.ToUpper(slug), slug, "2024-01-01", true))
	}
	s := newTestStore(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				doc := s.Feed()
				if `"`+util.ContentHash(doc.Body)+`"` != doc.ETag {
					t.Error("Feed body and ETag are from different loads")
					return
				}
				var parsed struct {
					Entries []struct{} `xml:"entry"`
				}
				if err := xml.Unmarshal(doc.Body, &parsed); err != nil {
					t.Errorf("Reader saw a partial feed: %v", err)
					return
				}
				if n := len(parsed.Entries); n != 20 && n != 21 {
					t.Errorf("Reader saw %d entries", n)
					return
				}

				posts := s.GetPostList()
				if n := len(posts); n != 20 && n != 21 {
					t.Errorf("Reader saw %d posts", n)
					return
				}
			}
		}()
	}

	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			writePost(t, dir, "zz.md", postDoc("Extra", "zz", "2024-02-01", true))
		} else if err := os.Remove(filepath.Join(dir, "zz.md")); err != nil {
			t.Fatal(err)
		}
		if err := s.Reload(context.Background(), testToken); err != nil {
			t.Fatalf("Reload %d failed: %v", i, err)
		}
	}

	cancel()
	wg.Wait()
}

func TestStoreConcurrentReloadsSerialize(t *testing.T) {
	dir := t.TempDir()
	seedPosts(t, dir)
	s := newTestStore(t, dir)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Reload(context.Background(), testToken)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent reload failed: %v", err)
		}
	}
	if len(s.GetPostList()) != 3 {
		t.Errorf("Expected 3 posts, got %d", len(s.GetPostList()))
	}
}
