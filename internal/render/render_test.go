package render

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

const samplePost = `---
title: Sample
slug: sample
published: 2024-01-01
tags: [go]
public: true
---
# Heading

Some *emphasis* and a [link](https://example.com).

` + "```go\nfunc main() {\n    fmt.Println(\"<hello>\")\n}\n```\n"

func TestRenderSkipsFrontMatter(t *testing.T) {
	for _, engine := range []string{EngineClassic, EngineMmark} {
		t.Run(engine, func(t *testing.T) {
			r := New(Options{SyntaxTheme: "monokai", Engine: engine})
			out := string(r.Render([]byte(samplePost)))

			if strings.Contains(out, "slug: sample") || strings.Contains(out, "published:") {
				t.Errorf("Expected front matter to be skipped, got:\n%s", out)
			}
			if !strings.Contains(out, "Heading") {
				t.Errorf("Expected heading in output, got:\n%s", out)
			}
			if !strings.Contains(out, "<em>emphasis</em>") {
				t.Errorf("Expected emphasis in output, got:\n%s", out)
			}
		})
	}
}

func TestRenderHighlightsCode(t *testing.T) {
	r := New(Options{SyntaxTheme: "monokai"})
	out := string(r.Render([]byte(samplePost)))

	if !strings.Contains(out, `<div class="highlight">`) {
		t.Errorf("Expected highlight wrapper, got:\n%s", out)
	}
	if !strings.Contains(out, `class="chroma"`) {
		t.Errorf("Expected chroma classes, got:\n%s", out)
	}
	if strings.Contains(out, "<hello>") {
		t.Errorf("Expected code content to stay escaped, got:\n%s", out)
	}
	if !strings.Contains(out, "&lt;hello&gt;") {
		t.Errorf("Expected escaped string literal, got:\n%s", out)
	}
}

func TestRenderWithoutFrontMatter(t *testing.T) {
	r := New(Options{})
	out := string(r.Render([]byte("Just a paragraph.")))
	if !strings.Contains(out, "<p>Just a paragraph.</p>") {
		t.Errorf("Expected paragraph, got %q", out)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := New(Options{SyntaxTheme: "gruvbox"})
	first := r.Render([]byte(samplePost))
	second := r.Render([]byte(samplePost))
	if !bytes.Equal(first, second) {
		t.Error("Expected identical output for identical input")
	}
}

func TestRenderConcurrentUse(t *testing.T) {
	r := New(Options{SyntaxTheme: "gruvbox"})
	want := r.Render([]byte(samplePost))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := r.Render([]byte(samplePost)); !bytes.Equal(got, want) {
				t.Error("Concurrent render produced different output")
			}
		}()
	}
	wg.Wait()
}

func TestHighlightCode(t *testing.T) {
	r := New(Options{SyntaxTheme: "github"})

	testCases := []struct {
		name     string
		code     string
		language string
	}{
		{"Known language", "package main", "go"},
		{"Unknown language", "whatever", "not-a-language"},
		{"No language", "plain text", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := r.HighlightCode(tc.code, tc.language)
			if out == "" {
				t.Fatal("Expected output")
			}
			if !strings.Contains(out, "chroma") {
				t.Errorf("Expected chroma markup, got %q", out)
			}
		})
	}
}

func TestCodeLanguage(t *testing.T) {
	testCases := map[string]string{
		"go":                "go",
		"go {linenos=true}": "go",
		"{.python}":         "python",
		"":                  "",
		"   rust   ":        "rust",
	}

	for info, want := range testCases {
		if got := codeLanguage([]byte(info)); got != want {
			t.Errorf("codeLanguage(%q) = %q, want %q", info, got, want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(Options{})
	if r.SyntaxTheme() != "gruvbox" {
		t.Errorf("Expected default syntax theme gruvbox, got %s", r.SyntaxTheme())
	}
	if r.opts.Engine != EngineClassic {
		t.Errorf("Expected default engine %s, got %s", EngineClassic, r.opts.Engine)
	}
}

func TestReadTime(t *testing.T) {
	words := func(n int) []byte {
		return []byte(strings.TrimSpace(strings.Repeat("word ", n)))
	}

	testCases := []struct {
		name     string
		text     []byte
		expected int
	}{
		{"Empty", nil, 0},
		{"Very short", words(10), 0},
		{"Just under a minute", words(149), 0},
		{"Exactly one minute", words(150), 1},
		{"Truncates", words(299), 1},
		{"Two minutes", words(300), 2},
		{"Long post", words(1500), 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReadTime(tc.text); got != tc.expected {
				t.Errorf("Expected %d minutes, got %d", tc.expected, got)
			}
		})
	}
}

func TestReadTimeDifficulty(t *testing.T) {
	text := []byte(strings.Repeat("word ", 600))

	easy := ReadTimeWithDifficulty(text, 0)
	hard := ReadTimeWithDifficulty(text, 4)
	if easy != 3 {
		t.Errorf("Expected 3 minutes at difficulty 0, got %d", easy)
	}
	if hard <= easy {
		t.Errorf("Expected harder text to take longer: easy=%d hard=%d", easy, hard)
	}
	if got := ReadTimeWithDifficulty(text, 100); got <= 0 {
		t.Errorf("Expected clamped reading speed to stay positive, got %d", got)
	}
}

func TestCountWords(t *testing.T) {
	testCases := map[string]int{
		"":                    0,
		"one":                 1,
		"  two   words ":      2,
		"tabs\tand\nnewlines": 3,
		"ünïcödé wörds":       2,
	}
	for text, want := range testCases {
		if got := CountWords([]byte(text)); got != want {
			t.Errorf("CountWords(%q) = %d, want %d", text, got, want)
		}
	}
}
