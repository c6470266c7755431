// Package model defines core data structures and types for the blog application.
package model

import (
	"html/template"
	"slices"
)

const PostsURLPath = "/post/"

// FrontMatter is the metadata block at the top of every post file.
type FrontMatter struct {
	Title     string   `yaml:"title" toml:"title" json:"title"`
	Slug      string   `yaml:"slug" toml:"slug" json:"slug"`
	Published Date     `yaml:"published" toml:"published" json:"published"`
	Updated   *Date    `yaml:"updated,omitempty" toml:"updated,omitempty" json:"updated,omitempty"`
	Tags      []string `yaml:"tags" toml:"tags" json:"tags"`
	Public    bool     `yaml:"public" toml:"public" json:"public"`
}

// IsVisible reports whether a reader outside debug mode may see the post on day today.
func (fm *FrontMatter) IsVisible(today Date) bool {
	return fm.Public && !fm.Published.After(today)
}

type Post struct {
	FrontMatter

	Content  template.HTML `json:"content"`
	ReadTime int           `json:"read_time"`

	// File name inside the posts directory the post was loaded from.
	SourceFile string `json:"source_file"`

	// Hash of the raw file, used to tell which posts changed across reloads.
	MDContentHash string `json:"hash"`
}

func (p *Post) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

func (p *Post) URLPath() string {
	return PostsURLPath + p.Slug
}

// PostSummary is the list-view projection of a post.
type PostSummary struct {
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Published Date     `json:"published"`
	Updated   *Date    `json:"updated,omitempty"`
	Tags      []string `json:"tags"`
	ReadTime  int      `json:"read_time"`
}

func (p *Post) Summary() PostSummary {
	return PostSummary{
		Title:     p.Title,
		Slug:      p.Slug,
		Published: p.Published,
		Updated:   p.Updated,
		Tags:      slices.Clone(p.Tags),
		ReadTime:  p.ReadTime,
	}
}

// TagCount is one entry of the tag cloud.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
