// Package dates rewrites the date field of post front matter.
package dates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/gerunddev/postkit/internal/fsutil"
	"github.com/gerunddev/postkit/internal/logger"
)

// ErrNoTargetDate is returned when no replacement date was supplied.
var ErrNoTargetDate = errors.New("target date is required")

// reDateLine matches a whole "date:" line without its line ending.
var reDateLine = regexp.MustCompile(`(?m)^date:[ \t]+[^\r\n]*`)

// FileResult reports what happened to one file.
type FileResult struct {
	Path    string
	Changed bool
}

// BatchResult collects the outcome of FixDir.
type BatchResult struct {
	Files  []FileResult
	Errors []error
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

// Normalizer sets every post's date field to one literal value.
type Normalizer struct {
	TargetDate string
	Extensions []string
	DryRun     bool
	Log        *logger.Logger
}

// Replace rewrites every date line of text. The second return value reports
// whether anything matched; text without a date line comes back unchanged.
func (n *Normalizer) Replace(text []byte) ([]byte, bool) {
	if !reDateLine.Match(text) {
		return text, false
	}
	repl := []byte("date:   " + n.TargetDate)
	out := reDateLine.ReplaceAllFunc(text, func([]byte) []byte {
		return repl
	})
	return out, true
}

// FixFile rewrites the date lines of path. Files without a date line, or
// whose date already equals the target, are left byte-identical.
func (n *Normalizer) FixFile(path string) (FileResult, error) {
	res := FileResult{Path: path}
	if n.TargetDate == "" {
		return res, ErrNoTargetDate
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}

	out, matched := n.Replace(data)
	if !matched || bytes.Equal(out, data) {
		return res, nil
	}
	res.Changed = true

	if n.DryRun {
		return res, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return res, err
	}
	if err := fsutil.WriteFileAtomic(path, out, info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("write %s: %w", path, err)
	}
	n.logger().DateFixed(path, n.TargetDate)
	return res, nil
}

// FixDir applies FixFile to every post directly inside dir. Subdirectories
// are not visited. A missing dir is fatal; per-file failures are collected.
func (n *Normalizer) FixDir(ctx context.Context, dir string) (*BatchResult, error) {
	if n.TargetDate == "" {
		return nil, ErrNoTargetDate
	}
	if err := fsutil.RequireDir(dir); err != nil {
		return nil, err
	}

	files, err := fsutil.ListFiles(dir, n.Extensions)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	log := n.logger()
	start := time.Now()
	log.BatchStarted("fix-dates", dir, len(files))

	batch := &BatchResult{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		res, err := n.FixFile(f)
		if err != nil {
			log.FileError(f, err)
			batch.Errors = append(batch.Errors, fmt.Errorf("%s: %w", f, err))
			continue
		}
		if !res.Changed {
			log.FileUnchanged(f)
		}
		batch.Files = append(batch.Files, res)
	}

	log.BatchCompleted("fix-dates", batch.Changed(), len(batch.Errors), time.Since(start))
	return batch, nil
}

func (n *Normalizer) logger() *logger.Logger {
	if n.Log == nil {
		return logger.Discard()
	}
	return n.Log
}
