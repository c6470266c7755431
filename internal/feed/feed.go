// Package feed serializes a post collection into an Atom document.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/whydoesntmycode/blog/internal/model"
	"github.com/whydoesntmycode/blog/internal/util"
	"github.com/whydoesntmycode/blog/internal/util/compression"
)

const ContentType = "application/atom+xml; charset=utf-8"

// Meta is the feed identity written into the header.
type Meta struct {
	ID               string
	Title            string
	AuthorName       string
	AuthorEmail      string
	SelfLink         string
	PostBaseURL      string
	Generator        string
	GeneratorURI     string
	GeneratorVersion string
}

// EntryURL is the canonical URL of a post, used as entry id and alternate link.
func (m Meta) EntryURL(slug string) string {
	return m.PostBaseURL + slug
}

type atomFeed struct {
	XMLName   xml.Name      `xml:"http://www.w3.org/2005/Atom feed"`
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Updated   string        `xml:"updated"`
	Author    atomAuthor    `xml:"author"`
	Link      atomLink      `xml:"link"`
	Generator atomGenerator `xml:"generator"`
	Entries   []atomEntry   `xml:"entry"`
}

type atomAuthor struct {
	Name  string `xml:"name"`
	Email string `xml:"email,omitempty"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomGenerator struct {
	URI     string `xml:"uri,attr,omitempty"`
	Version string `xml:"version,attr,omitempty"`
	Name    string `xml:",chardata"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	Base string `xml:"http://www.w3.org/XML/1998/namespace base,attr"`
	Body string `xml:",cdata"`
}

type atomEntry struct {
	ID        string      `xml:"id"`
	Title     string      `xml:"title"`
	Published string      `xml:"published"`
	Updated   string      `xml:"updated"`
	Content   atomContent `xml:"content"`
	Link      atomLink    `xml:"link"`
}

func atomDate(d model.Date) string {
	return d.Format(time.RFC3339)
}

// Compose builds the Atom document for posts, keeping their order. An entry without
// an updated date reports the Unix epoch as its updated time.
func Compose(meta Meta, posts []model.Post) ([]byte, error) {
	f := atomFeed{
		ID:      meta.ID,
		Title:   meta.Title,
		Updated: atomDate(latestChange(posts)),
		Author: atomAuthor{
			Name:  meta.AuthorName,
			Email: meta.AuthorEmail,
		},
		Link: atomLink{Href: meta.SelfLink, Rel: "self"},
		Generator: atomGenerator{
			URI:     meta.GeneratorURI,
			Version: meta.GeneratorVersion,
			Name:    meta.Generator,
		},
		Entries: make([]atomEntry, 0, len(posts)),
	}

	for i := range posts {
		p := &posts[i]
		url := meta.EntryURL(p.Slug)

		updated := model.Epoch
		if p.Updated != nil {
			updated = *p.Updated
		}

		f.Entries = append(f.Entries, atomEntry{
			ID:        url,
			Title:     p.Title,
			Published: atomDate(p.Published),
			Updated:   atomDate(updated),
			Content: atomContent{
				Type: "html",
				Base: url,
				Body: string(p.Content),
			},
			Link: atomLink{Href: url, Rel: "alternate"},
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode atom feed: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// latestChange is the newest published or updated date in posts, or the epoch for
// an empty collection.
func latestChange(posts []model.Post) model.Date {
	latest := model.Epoch
	for i := range posts {
		if posts[i].Published.After(latest) {
			latest = posts[i].Published
		}
		if u := posts[i].Updated; u != nil && u.After(latest) {
			latest = *u
		}
	}
	return latest
}

// Document is a composed feed together with everything needed to serve it.
type Document struct {
	Body    []byte
	ETag    string
	encoded map[string][]byte
}

// NewDocument wraps body and precompresses it with every supported encoding.
func NewDocument(body []byte) (*Document, error) {
	doc := &Document{
		Body:    body,
		ETag:    `"` + util.ContentHash(body) + `"`,
		encoded: make(map[string][]byte, len(compression.Preferred)),
	}

	for _, c := range compression.Preferred {
		compressed, err := c.Compress(body)
		if err != nil {
			return nil, fmt.Errorf("failed to compress feed with %s: %w", c.Encoding(), err)
		}
		doc.encoded[c.Encoding()] = compressed
	}

	return doc, nil
}

// Encoded returns the body compressed with encoding, if it was precomputed.
func (d *Document) Encoded(encoding string) ([]byte, bool) {
	b, ok := d.encoded[encoding]
	return b, ok
}

// Build composes posts and wraps the result in a Document.
func Build(meta Meta, posts []model.Post) (*Document, error) {
	body, err := Compose(meta, posts)
	if err != nil {
		return nil, err
	}
	return NewDocument(body)
}
