// Package diff renders before/after views of a rewritten file.
package diff

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/mattn/go-isatty"
)

// Unified returns a unified diff from before to after, labelled with name.
// Identical inputs produce an empty string.
func Unified(name, before, after string) string {
	if before == after {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(name), before, after)
	return fmt.Sprint(gotextdiff.ToUnified(name+" (original)", name+" (reformatted)", before, edits))
}

// Markdown wraps a unified diff in a diff code fence.
func Markdown(unified string) string {
	return fmt.Sprintf("```diff\n%s```\n", unified)
}

// Render formats a unified diff for w. Terminals get a glamour rendering;
// anything else gets the plain diff so output stays pipeable.
func Render(w io.Writer, unified string) string {
	if unified == "" {
		return ""
	}
	if !IsTerminal(w) {
		return unified
	}

	diffMarkdown := Markdown(unified)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return diffMarkdown
	}

	rendered, err := renderer.Render(diffMarkdown)
	if err != nil {
		return diffMarkdown
	}
	return rendered
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
