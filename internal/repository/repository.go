// Package repository loads posts from disk and serves them from an in-memory store.
package repository

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/whydoesntmycode/blog/internal/feed"
	"github.com/whydoesntmycode/blog/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

var (
	// ErrUnreadable marks a post file that could not be read.
	ErrUnreadable = errors.New("post file is unreadable")
	// ErrNotText marks a post file that is not valid UTF-8.
	ErrNotText = errors.New("post file is not text")
	// ErrDuplicateSlug marks a post whose slug was already taken by an earlier file.
	ErrDuplicateSlug = errors.New("duplicate post slug")
	// ErrSourceUnavailable is returned when the posts directory cannot be enumerated.
	ErrSourceUnavailable = errors.New("posts directory is unavailable")
	// ErrUnauthorized is returned when a reload is requested with a bad credential.
	ErrUnauthorized = errors.New("unauthorized")
)

type PostRepository interface {
	// Init performs the first load. An error here should abort start-up.
	Init(ctx context.Context) error

	GetPostList() []model.Post
	ListPostSummaries() []model.PostSummary
	ReadPost(slug string) (*model.Post, bool)
	GetPostsByTag(tag string) []model.Post
	Tags() []model.TagCount
	Feed() *feed.Document

	// Reload checks credential and rebuilds the collection from disk.
	Reload(ctx context.Context, credential string) error

	// SetReloadNotifier sets a function that will be called for every post changed by a reload.
	SetReloadNotifier(notifier func(slug string))
}
