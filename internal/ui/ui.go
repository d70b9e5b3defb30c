// Package ui renders search results and status summaries for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/repowhisper/repowhisper/internal/store"
)

const snippetMaxLines = 8

// Renderer writes human-readable output. Color is used only when the
// destination is an interactive terminal.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer for w. Color is disabled for pipes,
// CI environments, and when NO_COLOR is set.
func NewRenderer(w io.Writer) *Renderer {
	noColor := !IsTTY(w) || DetectNoColor() || DetectCI()
	return &Renderer{out: w, styles: GetStyles(noColor)}
}

// SearchResults renders a ranked result list with file locations,
// scores, and truncated snippets, followed by the query latency.
func (r *Renderer) SearchResults(query string, results []store.SearchResult, latency time.Duration) {
	if len(results) == 0 {
		fmt.Fprintf(r.out, "%s\n", r.styles.Dim.Render("No results for \""+query+"\""))
		return
	}

	fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(fmt.Sprintf("%d results for \"%s\"", len(results), query)))

	for i, res := range results {
		loc := fmt.Sprintf("%s:%d-%d", res.FilePath, res.LineStart, res.LineEnd)
		fmt.Fprintf(r.out, "%s %s %s\n",
			r.styles.Label.Render(fmt.Sprintf("%2d.", i+1)),
			r.styles.Path.Render(loc),
			r.styles.Score.Render(fmt.Sprintf("(%.3f)", res.Score)))

		for _, line := range snippetLines(res.Content) {
			fmt.Fprintf(r.out, "    %s\n", line)
		}
		fmt.Fprintln(r.out)
	}

	fmt.Fprintf(r.out, "%s\n", r.styles.Dim.Render(fmt.Sprintf("took %s", latency.Round(time.Microsecond))))
}

// IndexSummary renders the outcome of an indexing run.
func (r *Renderer) IndexSummary(repoID string, files, chunks int, elapsed time.Duration) {
	fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Success.Render("Indexed"),
		r.styles.Path.Render(repoID))
	fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("files:"), files)
	fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("chunks:"), chunks)
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("took:"), elapsed.Round(time.Millisecond))
}

// Status renders a per-repository chunk count table for a user.
func (r *Renderer) Status(userID string, counts map[string]int) {
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Header.Render("User:"), userID)
	if len(counts) == 0 {
		fmt.Fprintf(r.out, "  %s\n", r.styles.Dim.Render("no indexed repositories"))
		return
	}
	total := 0
	for repo, n := range counts {
		fmt.Fprintf(r.out, "  %s %d chunks\n", r.styles.Path.Render(repo), n)
		total += n
	}
	fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("total:"), total)
}

// Errorf renders an error line.
func (r *Renderer) Errorf(format string, args ...any) {
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Error.Render("error:"), fmt.Sprintf(format, args...))
}

// Warnf renders a warning line.
func (r *Renderer) Warnf(format string, args ...any) {
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Warning.Render("warning:"), fmt.Sprintf(format, args...))
}

// snippetLines trims and caps the snippet body for display.
func snippetLines(content string) []string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) > snippetMaxLines {
		lines = lines[:snippetMaxLines]
		lines = append(lines, "...")
	}
	return lines
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
