// check-posts loads a posts directory the same way the server does and prints what
// would be published, hidden and skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/whydoesntmycode/blog/internal/model"
	"github.com/whydoesntmycode/blog/internal/render"
	"github.com/whydoesntmycode/blog/internal/repository"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	hiddenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func main() {
	path := flag.String("path", "posts", "Path to the directory containing posts")
	debug := flag.Bool("debug", false, "Treat hidden posts as published")
	strict := flag.Bool("strict", false, "Exit non-zero when any file is skipped")
	flag.Parse()

	loader := repository.NewLoader(*path, render.New(render.Options{}), repository.WithDebug(*debug))

	posts, report, err := loader.Load(context.Background())
	if err != nil {
		log.Fatalf("Error loading posts from %s: %v", *path, err)
	}

	printReport(os.Stdout, *path, posts, report)

	if *strict && len(report.Skipped) > 0 {
		os.Exit(1)
	}
}

func printReport(w io.Writer, dir string, posts []model.Post, report *repository.LoadReport) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Posts in %s", dir)))

	for i := range posts {
		p := &posts[i]
		fmt.Fprintf(w, "  %s %s %s\n",
			okStyle.Render("ok"),
			p.Published,
			p.Slug+dimStyle.Render(" ("+p.SourceFile+")"),
		)
	}

	for _, slug := range report.Hidden {
		fmt.Fprintf(w, "  %s %s\n", hiddenStyle.Render("hidden"), slug)
	}

	for _, s := range report.Skipped {
		fmt.Fprintf(w, "  %s %s: %v\n", skippedStyle.Render("skipped"), s.File, s.Reason)
	}

	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d published, %d hidden, %d skipped",
		len(posts), len(report.Hidden), len(report.Skipped))))
}
