package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gomarkdown/markdown"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/whydoesntmycode/blog/internal/model"
)

var (
	ErrNoFrontmatter           = errors.New("there is no front matter")
	ErrUnterminatedFrontmatter = errors.New("only found one front matter delimiter, front matter is probably unterminated")
	ErrFrontmatter             = errors.New("front matter for a post was invalid")
)

type Format int

const (
	FormatNone Format = iota
	FormatYAML
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "none"
	}
}

func (f Format) delimiter() []byte {
	switch f {
	case FormatYAML:
		return []byte("---")
	case FormatTOML:
		return []byte("+++")
	default:
		return nil
	}
}

var slugRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._~-]*$`)

// FrontMatterBlock is a document split at its front matter delimiters.
type FrontMatterBlock struct {
	Format Format
	// Raw is the text strictly between the two delimiter lines.
	Raw []byte
	// Body is everything after the closing delimiter line.
	Body []byte
}

// SplitFrontMatter finds the front matter block of doc. The first line consisting of
// "---" (YAML) or "+++" (TOML) opens the block and the next line with the same
// delimiter closes it.
func SplitFrontMatter(doc []byte) (*FrontMatterBlock, error) {
	doc = markdown.NormalizeNewlines(doc)

	format := FormatNone
	openEnd := 0

	for pos := 0; pos < len(doc); {
		lineEnd := bytes.IndexByte(doc[pos:], '\n')
		next := len(doc)
		if lineEnd == -1 {
			lineEnd = len(doc)
		} else {
			lineEnd += pos
			next = lineEnd + 1
		}
		line := bytes.TrimSpace(doc[pos:lineEnd])

		if format == FormatNone {
			switch {
			case bytes.Equal(line, FormatYAML.delimiter()):
				format = FormatYAML
				openEnd = next
			case bytes.Equal(line, FormatTOML.delimiter()):
				format = FormatTOML
				openEnd = next
			}
		} else if bytes.Equal(line, format.delimiter()) {
			return &FrontMatterBlock{
				Format: format,
				Raw:    doc[openEnd:pos],
				Body:   doc[next:],
			}, nil
		}

		pos = next
	}

	if format == FormatNone {
		return nil, ErrNoFrontmatter
	}
	return nil, ErrUnterminatedFrontmatter
}

// StripFrontMatter returns the document body without its front matter block.
// Documents without a complete block are returned unchanged.
func StripFrontMatter(doc []byte) []byte {
	block, err := SplitFrontMatter(doc)
	if err != nil {
		return doc
	}
	return block.Body
}

func ParseFrontMatter(doc []byte) (*model.FrontMatter, error) {
	return ParseFrontMatterContext(context.Background(), doc)
}

// ParseFrontMatterContext decodes and validates the front matter of doc. Decode
// failures are logged to the context logger and reported only as ErrFrontmatter.
func ParseFrontMatterContext(ctx context.Context, doc []byte) (*model.FrontMatter, error) {
	l := zerolog.Ctx(ctx)

	block, err := SplitFrontMatter(doc)
	if err != nil {
		return nil, err
	}

	fm := &model.FrontMatter{}
	if err := decodeFrontMatter(block, fm); err != nil {
		l.Error().Err(err).Str("format", block.Format.String()).Msg("Failed to decode front matter")
		return nil, ErrFrontmatter
	}

	if err := ValidateFrontMatter(fm); err != nil {
		l.Error().Err(err).Str("slug", fm.Slug).Msg("Front matter failed validation")
		return nil, ErrFrontmatter
	}

	l.Debug().Str("slug", fm.Slug).Str("format", block.Format.String()).Msg("Parsed front matter")
	return fm, nil
}

func decodeFrontMatter(block *FrontMatterBlock, fm *model.FrontMatter) error {
	switch block.Format {
	case FormatYAML:
		if err := yaml.Unmarshal(block.Raw, fm); err != nil {
			return fmt.Errorf("failed to decode yaml front matter: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(block.Raw), fm); err != nil {
			return fmt.Errorf("failed to decode toml front matter: %w", err)
		}
	default:
		return fmt.Errorf("unknown front matter format %v", block.Format)
	}
	return nil
}

func ValidateFrontMatter(fm *model.FrontMatter) error {
	return validation.ValidateStruct(fm,
		validation.Field(&fm.Title, validation.Required),
		validation.Field(&fm.Slug, validation.Required, validation.Match(slugRegex)),
		validation.Field(&fm.Published, validation.By(requiredDate)),
		validation.Field(&fm.Updated, validation.By(notBefore(fm.Published))),
		validation.Field(&fm.Tags, validation.Each(validation.Required)),
	)
}

func requiredDate(value interface{}) error {
	d, ok := value.(model.Date)
	if !ok {
		return errors.New("must be a date")
	}
	if d.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

func notBefore(published model.Date) validation.RuleFunc {
	return func(value interface{}) error {
		d, _ := value.(*model.Date)
		if d == nil {
			return nil
		}
		if d.Before(published) {
			return fmt.Errorf("must not be before published date %s", published)
		}
		return nil
	}
}
