// Package reformat normalizes blank-line spacing in markdown posts and
// makes sure each post pulls in the image stylesheet.
package reformat

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gerunddev/postkit/internal/config"
	"github.com/gerunddev/postkit/internal/diff"
	"github.com/gerunddev/postkit/internal/fsutil"
	"github.com/gerunddev/postkit/internal/logger"
)

// Document is a markdown file split into front matter and content lines.
// Every line keeps its own terminator.
type Document struct {
	FrontMatter []string
	Content     []string
}

// SplitLines breaks text into lines that keep their "\n" terminators.
func SplitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Parse splits text into a Document. The front matter is the leading block
// between two "---" lines; an unclosed block means there is none.
func Parse(text string) Document {
	lines := SplitLines(text)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return Document{Content: lines}
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return Document{FrontMatter: lines[:i+1], Content: lines[i+1:]}
		}
	}
	return Document{Content: lines}
}

// String joins the document back into text.
func (d Document) String() string {
	var b strings.Builder
	for _, l := range d.FrontMatter {
		b.WriteString(l)
	}
	for _, l := range d.Content {
		b.WriteString(l)
	}
	return b.String()
}

// FormatContent enforces a blank line around headings and images and
// collapses runs of blank lines. Fenced code is copied through untouched.
func FormatContent(lines []string) []string {
	out := make([]string, 0, len(lines)+8)
	lastBlank := func() bool {
		return len(out) > 0 && isBlank(out[len(out)-1])
	}
	nextIsText := func(i int) bool {
		return i+1 < len(lines) && !isBlank(lines[i+1])
	}

	inCodeFence := false
	for i, line := range lines {
		kind := Classify(line)

		if kind == KindFence {
			inCodeFence = !inCodeFence
			out = append(out, line)
			continue
		}
		if inCodeFence {
			out = append(out, line)
			continue
		}

		switch kind {
		case KindImage, KindHeading:
			if len(out) > 0 && !lastBlank() {
				out = append(out, "\n")
			}
			out = append(out, terminate(line))
			if nextIsText(i) {
				out = append(out, "\n")
			}
		case KindBlank:
			if !lastBlank() {
				out = append(out, terminate(line))
			}
		default:
			out = append(out, terminate(line))
		}
	}
	return out
}

// AppendStylesheet adds line to the end of content, after one blank
// separator, unless marker already occurs anywhere in the document. An empty
// marker falls back to the line itself.
func AppendStylesheet(doc Document, line, marker string) Document {
	if strings.TrimSpace(line) == "" {
		return doc
	}
	if marker == "" {
		marker = strings.TrimSpace(line)
	}
	if strings.Contains(doc.String(), marker) {
		return doc
	}

	content := append([]string(nil), doc.Content...)
	if n := len(content); n > 0 {
		content[n-1] = terminate(content[n-1])
	}
	if n := len(content); n == 0 || !isBlank(content[n-1]) {
		content = append(content, "\n")
	}
	content = append(content, terminate(line))

	return Document{FrontMatter: doc.FrontMatter, Content: content}
}

func terminate(line string) string {
	if strings.HasSuffix(line, "\n") {
		return line
	}
	return line + "\n"
}

// Format runs the whole pass over text and returns the new text.
func (f *Formatter) Format(text string) string {
	doc := Parse(text)
	doc.Content = FormatContent(doc.Content)
	doc = AppendStylesheet(doc, f.StylesheetLine, f.StylesheetMarker)
	return doc.String()
}

// FileResult reports what happened to one file.
type FileResult struct {
	Path    string
	Changed bool
	Backup  string
	Diff    string
}

// BatchResult collects the outcome of Run.
type BatchResult struct {
	Files     []FileResult
	Errors    []error
	DryRun    bool
	StartTime time.Time
	EndTime   time.Time
}

// Changed counts files that were (or in dry-run would be) rewritten.
func (b *BatchResult) Changed() int {
	n := 0
	for _, f := range b.Files {
		if f.Changed {
			n++
		}
	}
	return n
}

// String returns the human summary line.
func (b *BatchResult) String() string {
	n := b.Changed()
	switch {
	case b.DryRun && n == 0:
		return "No changes would be made."
	case b.DryRun:
		return fmt.Sprintf("%d files would be reformatted. Run without --dry-run to apply.", n)
	case n == 0:
		return "No changes (every post already formatted and linked)."
	default:
		return fmt.Sprintf("%d files reformatted (took %v)", n, b.EndTime.Sub(b.StartTime).Round(time.Millisecond))
	}
}

// Formatter rewrites markdown posts in place.
type Formatter struct {
	StylesheetLine   string
	StylesheetMarker string
	BackupSuffix     string
	Extensions       []string
	DryRun           bool
	// Diff, when set, fills FileResult.Diff for changed files.
	Diff bool
	Log  *logger.Logger
}

// New returns a Formatter configured from cfg.
func New(cfg *config.Config, log *logger.Logger) *Formatter {
	return &Formatter{
		StylesheetLine:   cfg.Reformat.StylesheetLine,
		StylesheetMarker: cfg.Reformat.StylesheetMarker,
		BackupSuffix:     cfg.Reformat.BackupSuffix,
		Extensions:       cfg.MarkdownExts,
		Log:              log,
	}
}

// ProcessFile reformats one file. Unchanged files are neither backed up nor
// written. Otherwise the original is copied to path+BackupSuffix first.
func (f *Formatter) ProcessFile(path string) (FileResult, error) {
	res := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}
	original := string(data)
	formatted := f.Format(original)
	if formatted == original {
		return res, nil
	}
	res.Changed = true

	if f.Diff {
		res.Diff = diff.Unified(path, original, formatted)
	}
	if f.DryRun {
		return res, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return res, err
	}

	if f.BackupSuffix != "" {
		res.Backup = path + f.BackupSuffix
		if err := fsutil.CopyFile(path, res.Backup); err != nil {
			return res, fmt.Errorf("backup %s: %w", path, err)
		}
	}

	if err := fsutil.WriteFileAtomic(path, []byte(formatted), info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("write %s: %w", path, err)
	}
	f.logger().FileReformatted(path, res.Backup)
	return res, nil
}

// Run reformats every post under dir, recursively. Backup files are never
// picked up as input. A missing dir is fatal; per-file failures are not.
func (f *Formatter) Run(ctx context.Context, dir string) (*BatchResult, error) {
	if err := fsutil.RequireDir(dir); err != nil {
		return nil, err
	}

	files, err := fsutil.WalkFiles(dir, f.Extensions, f.isBackup)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	log := f.logger()
	batch := &BatchResult{DryRun: f.DryRun, StartTime: time.Now()}
	log.BatchStarted("reformat", dir, len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			batch.EndTime = time.Now()
			return batch, err
		}

		res, err := f.ProcessFile(path)
		if err != nil {
			log.FileError(path, err)
			batch.Errors = append(batch.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if !res.Changed {
			log.FileUnchanged(path)
		}
		batch.Files = append(batch.Files, res)
	}

	batch.EndTime = time.Now()
	log.BatchCompleted("reformat", batch.Changed(), len(batch.Errors), batch.EndTime.Sub(batch.StartTime))
	return batch, nil
}

// WriteDiffs prints the diff of every changed file in batch to w.
func WriteDiffs(w io.Writer, batch *BatchResult) {
	for _, res := range batch.Files {
		if res.Diff == "" {
			continue
		}
		fmt.Fprint(w, diff.Render(w, res.Diff))
	}
}

func (f *Formatter) isBackup(name string) bool {
	return f.BackupSuffix != "" && strings.HasSuffix(name, f.BackupSuffix)
}

func (f *Formatter) logger() *logger.Logger {
	if f.Log == nil {
		return logger.Discard()
	}
	return f.Log
}
