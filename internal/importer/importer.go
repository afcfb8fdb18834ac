// Package importer turns exported content archives into dated blog posts
// with relocated image assets.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gerunddev/postkit/internal/archive"
	"github.com/gerunddev/postkit/internal/config"
	"github.com/gerunddev/postkit/internal/fsutil"
	"github.com/gerunddev/postkit/internal/logger"
	"github.com/gerunddev/postkit/internal/slug"
)

// ErrNoMarkdown marks an archive without any markdown document.
var ErrNoMarkdown = errors.New("no markdown document in archive")

// Options controls where and how posts are produced.
type Options struct {
	PostsDir       string
	AssetDir       string
	AssetURLPrefix string
	Date           string
	Category       string
	PostExt        string
	ImageExts      []string
	MarkdownExts   []string
	Strict         bool
	// RunID, when set, is embedded in scratch directory names so a leftover
	// directory can be matched to the run= field of the log.
	RunID string
}

// OptionsFromConfig copies the importer settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PostsDir:       cfg.PostsDir,
		AssetDir:       cfg.AssetDir,
		AssetURLPrefix: cfg.AssetURLPrefix,
		Date:           cfg.PostDate,
		Category:       cfg.PostCategory,
		PostExt:        cfg.PostExt,
		ImageExts:      cfg.ImageExts,
		MarkdownExts:   cfg.MarkdownExts,
		Strict:         cfg.Strict,
	}
}

// Result describes what one archive produced.
type Result struct {
	Archive    string
	Slug       string
	Title      string
	PostPath   string
	AssetDir   string
	Images     int
	Rewritten  int
	Unresolved []string
	// Flagged is set in strict mode when any reference stayed unresolved.
	Flagged bool
	Skipped bool
	Reason     string
}

// ArchiveError ties a failure to the archive it came from.
type ArchiveError struct {
	Archive string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Archive, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// BatchResult collects the outcome of ImportDir.
type BatchResult struct {
	Results   []*Result
	Errors    []*ArchiveError
	StartTime time.Time
	EndTime   time.Time
}

// Imported counts archives that produced a post.
func (b *BatchResult) Imported() int {
	n := 0
	for _, r := range b.Results {
		if !r.Skipped {
			n++
		}
	}
	return n
}

// Skipped counts archives that produced nothing.
func (b *BatchResult) Skipped() int {
	return len(b.Results) - b.Imported()
}

// Unresolved counts unresolved image references across all posts.
func (b *BatchResult) Unresolved() int {
	n := 0
	for _, r := range b.Results {
		n += len(r.Unresolved)
	}
	return n
}

// String returns a human-readable summary of the batch
func (b *BatchResult) String() string {
	return fmt.Sprintf(
		"Import complete: %d imported, %d skipped, %d errors (took %v)",
		b.Imported(),
		b.Skipped(),
		len(b.Errors),
		b.EndTime.Sub(b.StartTime).Round(time.Millisecond),
	)
}

// Importer converts archives into posts.
type Importer struct {
	opts     Options
	archiver archive.Archiver
	log      *logger.Logger
}

// New creates an importer. A nil archiver selects the zip implementation.
func New(opts Options, archiver archive.Archiver, log *logger.Logger) *Importer {
	if archiver == nil {
		archiver = archive.NewZipArchiver()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Importer{
		opts:     opts,
		archiver: archiver,
		log:      log,
	}
}

// ImportDir imports every zip directly inside dir, oldest modification time
// first. A failing archive is recorded and the batch moves on; only a missing
// input directory or cancellation stops the run.
func (i *Importer) ImportDir(ctx context.Context, dir string) (*BatchResult, error) {
	if err := fsutil.RequireDir(dir); err != nil {
		return nil, err
	}

	archives, err := listArchives(dir)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}

	batch := &BatchResult{StartTime: time.Now()}
	i.log.BatchStarted("import", dir, len(archives))

	for _, a := range archives {
		if err := ctx.Err(); err != nil {
			batch.EndTime = time.Now()
			return batch, err
		}

		res, err := i.ImportArchive(a.Path)
		if err != nil {
			i.log.FileError(a.Path, err)
			batch.Errors = append(batch.Errors, &ArchiveError{Archive: a.Path, Err: err})
			continue
		}
		batch.Results = append(batch.Results, res)
	}

	batch.EndTime = time.Now()
	i.log.BatchCompleted("import", batch.Imported(), len(batch.Errors), batch.EndTime.Sub(batch.StartTime))
	return batch, nil
}

// ImportArchive converts one archive. An archive without markdown is not an
// error: the result comes back Skipped and nothing is written. The scratch
// extraction directory is removed on every path out.
func (i *Importer) ImportArchive(path string) (*Result, error) {
	base := filepath.Base(path)
	postSlug := slug.Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	res := &Result{Archive: path, Slug: postSlug}
	log := i.log.With("slug", postSlug)
	log.ArchiveStarted(path, postSlug)

	entries, err := i.archiver.List(path)
	if err != nil {
		return nil, err
	}
	log.Debug("archive listed", "entries", len(entries))

	scratch, err := os.MkdirTemp("", scratchPattern(i.opts.RunID))
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := i.archiver.Extract(path, scratch); err != nil {
		return nil, err
	}

	mdPath, err := findMarkdown(scratch, i.opts.MarkdownExts)
	if err != nil {
		if errors.Is(err, ErrNoMarkdown) {
			res.Skipped = true
			res.Reason = err.Error()
			log.ArchiveSkipped(path, res.Reason)
			return res, nil
		}
		return nil, err
	}

	images, err := fsutil.WalkFiles(scratch, i.opts.ImageExts, nil)
	if err != nil {
		return nil, fmt.Errorf("collect images: %w", err)
	}

	index := NewAssetIndex(i.opts.ImageExts)
	if len(images) > 0 {
		res.AssetDir = filepath.Join(i.opts.AssetDir, postSlug)
		if err := os.MkdirAll(res.AssetDir, 0755); err != nil {
			return nil, fmt.Errorf("create asset dir: %w", err)
		}
	}
	for _, img := range images {
		stored := slug.BuildStoredName(postSlug, filepath.Base(img), i.opts.ImageExts)
		dest := filepath.Join(res.AssetDir, stored)
		if err := fsutil.CopyFile(img, dest); err != nil {
			return nil, fmt.Errorf("copy image %s: %w", filepath.Base(img), err)
		}
		index.Add(img, stored)
		log.ImageCopied(img, dest)
	}
	res.Images = index.Len()

	text, err := os.ReadFile(mdPath)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	rw := &Rewriter{Index: index, URLPrefix: i.opts.AssetURLPrefix, Slug: postSlug}
	body := rw.Rewrite(string(text))
	res.Rewritten = rw.Rewritten()
	res.Unresolved = rw.Unresolved()
	res.Flagged = i.opts.Strict && len(res.Unresolved) > 0
	for _, ref := range res.Unresolved {
		if i.opts.Strict {
			log.UnresolvedImage(path, ref)
		} else {
			log.Debug("image reference left as is", "ref", ref)
		}
	}

	mdBase := filepath.Base(mdPath)
	res.Title = strings.TrimSuffix(mdBase, filepath.Ext(mdBase))
	if res.Title == "" {
		res.Title = postSlug
	}
	fm := FrontMatter{Title: res.Title, Date: i.opts.Date, Category: i.opts.Category}

	if err := os.MkdirAll(i.opts.PostsDir, 0755); err != nil {
		return nil, fmt.Errorf("create posts dir: %w", err)
	}
	res.PostPath = filepath.Join(i.opts.PostsDir, PostFileName(i.opts.Date, postSlug, i.opts.PostExt))
	if err := fsutil.WriteFileAtomic(res.PostPath, []byte(fm.String()+body), 0644); err != nil {
		return nil, fmt.Errorf("write post: %w", err)
	}

	log.ArchiveImported(path, res.PostPath, res.Images, res.Rewritten)
	return res, nil
}

func scratchPattern(runID string) string {
	if runID == "" {
		return "postkit-"
	}
	return "postkit-" + runID + "-"
}

// PostFileName returns "{date}-{slug}{ext}".
func PostFileName(date, postSlug, ext string) string {
	return date + "-" + postSlug + ext
}

// findMarkdown returns the first markdown file in depth-first order.
func findMarkdown(root string, exts []string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && slug.IsMarkdown(d.Name(), exts) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrNoMarkdown
	}
	return found, nil
}

// listArchives returns the zip files directly inside dir, oldest first.
func listArchives(dir string) ([]fsutil.FileInfo, error) {
	paths, err := fsutil.ListFiles(dir, []string{".zip"})
	if err != nil {
		return nil, err
	}

	files := make([]fsutil.FileInfo, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		files = append(files, fsutil.FileInfo{Path: p, Info: info})
	}
	fsutil.SortByModTime(files)
	return files, nil
}
