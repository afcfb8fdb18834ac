package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/klauspost/compress/zip"

	"github.com/gerunddev/postkit/internal/archive"
	"github.com/gerunddev/postkit/internal/fsutil"
)

// buildZip writes a zip archive at path holding the given files.
func buildZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
}

func setMTime(t *testing.T, path string, mt time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}
}

func testOptions(root string) Options {
	return Options{
		PostsDir:       filepath.Join(root, "_posts"),
		AssetDir:       filepath.Join(root, "assets", "images"),
		AssetURLPrefix: "/assets/images",
		Date:           "2025-09-27",
		Category:       "writeups",
		PostExt:        ".markdown",
		ImageExts:      testImageExts,
		MarkdownExts:   []string{".md", ".markdown"},
	}
}

func TestImportArchiveRewritesAndRelocates(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "My Post.zip")
	buildZip(t, zipPath, map[string]string{
		"notes.md":  "# Intro\n\n![x](photo.PNG)\n",
		"photo.PNG": "png-bytes",
	})

	imp := New(testOptions(root), nil, nil)
	res, err := imp.ImportArchive(zipPath)
	if err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}

	if res.Slug != "my-post" {
		t.Errorf("Slug = %q, want my-post", res.Slug)
	}
	wantPost := filepath.Join(root, "_posts", "2025-09-27-my-post.markdown")
	if res.PostPath != wantPost {
		t.Errorf("PostPath = %q, want %q", res.PostPath, wantPost)
	}

	post, err := os.ReadFile(wantPost)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	wantRef := "![x]({{ '/assets/images/my-post/my-post_photo.png' | relative_url }})"
	if !strings.Contains(string(post), wantRef) {
		t.Errorf("post does not contain rewritten reference %q:\n%s", wantRef, post)
	}

	asset := filepath.Join(root, "assets", "images", "my-post", "my-post_photo.png")
	data, err := os.ReadFile(asset)
	if err != nil {
		t.Fatalf("asset not relocated: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("asset content = %q", data)
	}

	if res.Images != 1 || res.Rewritten != 1 || len(res.Unresolved) != 0 {
		t.Errorf("unexpected counts: %+v", res)
	}
}

func TestImportArchiveFrontMatter(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "Café Notes.zip")
	buildZip(t, zipPath, map[string]string{
		"Café Notes 9f8e/Café Notes.md": "Body text\n",
	})

	res, err := New(testOptions(root), nil, nil).ImportArchive(zipPath)
	if err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}

	post, err := os.ReadFile(res.PostPath)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}

	var meta struct {
		Layout     string `yaml:"layout"`
		Title      string `yaml:"title"`
		Date       string `yaml:"date"`
		Categories string `yaml:"categories"`
	}
	body, err := frontmatter.Parse(bytes.NewReader(post), &meta)
	if err != nil {
		t.Fatalf("front matter does not parse: %v", err)
	}

	if meta.Layout != "post" || meta.Title != "Café Notes" || meta.Date != "2025-09-27" || meta.Categories != "writeups" {
		t.Errorf("unexpected front matter: %+v", meta)
	}
	if strings.TrimSpace(string(body)) != "Body text" {
		t.Errorf("body = %q", body)
	}
	if !strings.HasPrefix(string(post), "---\nlayout: post\ntitle: ") {
		t.Errorf("front matter keys out of order:\n%s", post)
	}
	if filepath.Base(res.PostPath) != "2025-09-27-cafe-notes.markdown" {
		t.Errorf("post name = %q", filepath.Base(res.PostPath))
	}
	if res.AssetDir != "" {
		t.Errorf("no images, but asset dir %q was set", res.AssetDir)
	}
	if _, err := os.Stat(filepath.Join(root, "assets", "images", "cafe-notes")); !os.IsNotExist(err) {
		t.Error("asset directory created for an archive without images")
	}
}

func TestImportArchiveWithoutMarkdownIsSkipped(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "images-only.zip")
	buildZip(t, zipPath, map[string]string{
		"a.png":      "a",
		"readme.txt": "not markdown",
	})

	res, err := New(testOptions(root), nil, nil).ImportArchive(zipPath)
	if err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}
	if !res.Skipped {
		t.Fatal("archive without markdown should be skipped")
	}
	if res.Reason != ErrNoMarkdown.Error() {
		t.Errorf("Reason = %q", res.Reason)
	}
	for _, dir := range []string{"_posts", "assets"} {
		if _, err := os.Stat(filepath.Join(root, dir)); !os.IsNotExist(err) {
			t.Errorf("%s should not exist after a skipped archive", dir)
		}
	}
}

func TestImportArchiveUnresolvedReferences(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "post.zip")
	buildZip(t, zipPath, map[string]string{
		"post.md":  "![a](here.png)\n![b](elsewhere.png)\n![c](https://example.com/c.png)\n",
		"here.png": "x",
	})

	opts := testOptions(root)
	opts.Strict = true
	res, err := New(opts, nil, nil).ImportArchive(zipPath)
	if err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}

	if len(res.Unresolved) != 1 || res.Unresolved[0] != "elsewhere.png" {
		t.Errorf("Unresolved = %v, want [elsewhere.png]", res.Unresolved)
	}
	if !res.Flagged {
		t.Error("strict import with unresolved references should be flagged")
	}

	opts.Strict = false
	lenient, err := New(opts, nil, nil).ImportArchive(zipPath)
	if err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}
	if lenient.Flagged {
		t.Error("non-strict import should never be flagged")
	}
	if len(lenient.Unresolved) != 1 {
		t.Errorf("Unresolved = %v, want one entry in non-strict mode too", lenient.Unresolved)
	}
	post, err := os.ReadFile(res.PostPath)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	if !strings.Contains(string(post), "![b](elsewhere.png)") {
		t.Error("unresolved reference should be left untouched")
	}
	if !strings.Contains(string(post), "![c](https://example.com/c.png)") {
		t.Error("remote reference should be left untouched")
	}
}

// recordingArchiver extracts a fixed file set and remembers where.
type recordingArchiver struct {
	files map[string]string
	fail  error
	dests []string
}

func (a *recordingArchiver) List(path string) ([]archive.Entry, error) {
	return nil, nil
}

func (a *recordingArchiver) Extract(path, destDir string) error {
	a.dests = append(a.dests, destDir)
	for name, content := range a.files {
		target := filepath.Join(destDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			return err
		}
	}
	return a.fail
}

func TestImportArchiveRemovesScratchDir(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		fail    error
		wantErr bool
	}{
		{
			name:  "success",
			files: map[string]string{"p.md": "hi", "i.png": "x"},
		},
		{
			name:  "no markdown",
			files: map[string]string{"i.png": "x"},
		},
		{
			name:    "extraction failure",
			files:   map[string]string{"p.md": "hi"},
			fail:    errors.New("corrupt entry"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			arch := &recordingArchiver{files: tt.files, fail: tt.fail}

			_, err := New(testOptions(root), arch, nil).ImportArchive(filepath.Join(root, "p.zip"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ImportArchive() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(arch.dests) != 1 {
				t.Fatalf("Extract called %d times", len(arch.dests))
			}
			if _, err := os.Stat(arch.dests[0]); !os.IsNotExist(err) {
				t.Errorf("scratch dir %s still exists", arch.dests[0])
			}
		})
	}
}

func TestImportDirContinuesPastBadArchives(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "exports")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatalf("Failed to create input dir: %v", err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := filepath.Join(in, "Zeta.zip")
	buildZip(t, first, map[string]string{"z.md": "zeta"})
	setMTime(t, first, base)

	empty := filepath.Join(in, "Empty.zip")
	buildZip(t, empty, map[string]string{"x.png": "x"})
	setMTime(t, empty, base.Add(time.Hour))

	broken := filepath.Join(in, "Broken.ZIP")
	if err := os.WriteFile(broken, []byte("garbage"), 0644); err != nil {
		t.Fatalf("Failed to write broken archive: %v", err)
	}
	setMTime(t, broken, base.Add(2*time.Hour))

	last := filepath.Join(in, "Alpha.zip")
	buildZip(t, last, map[string]string{"a.md": "alpha"})
	setMTime(t, last, base.Add(3*time.Hour))

	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	batch, err := New(testOptions(root), nil, nil).ImportDir(context.Background(), in)
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}

	if len(batch.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(batch.Results))
	}
	order := []string{"zeta", "empty", "alpha"}
	for i, want := range order {
		if batch.Results[i].Slug != want {
			t.Errorf("result %d slug = %q, want %q (oldest first)", i, batch.Results[i].Slug, want)
		}
	}
	if batch.Imported() != 2 || batch.Skipped() != 1 {
		t.Errorf("Imported() = %d, Skipped() = %d", batch.Imported(), batch.Skipped())
	}
	if len(batch.Errors) != 1 || batch.Errors[0].Archive != broken {
		t.Errorf("Errors = %v, want one error for %s", batch.Errors, broken)
	}

	posts, err := fsutil.ListFiles(filepath.Join(root, "_posts"), []string{".markdown"})
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("got %d posts, want 2", len(posts))
	}
	if !strings.Contains(batch.String(), "2 imported, 1 skipped, 1 errors") {
		t.Errorf("String() = %q", batch.String())
	}
}

func TestImportDirMissingDirectory(t *testing.T) {
	_, err := New(testOptions(t.TempDir()), nil, nil).ImportDir(context.Background(), "/does/not/exist")
	if !errors.Is(err, fsutil.ErrNotDirectory) {
		t.Fatalf("ImportDir() error = %v, want ErrNotDirectory", err)
	}
}

func TestImportDirHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	buildZip(t, filepath.Join(root, "a.zip"), map[string]string{"a.md": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := New(testOptions(root), nil, nil).ImportDir(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ImportDir() error = %v, want context.Canceled", err)
	}
	if len(batch.Results) != 0 {
		t.Errorf("no archive should run after cancellation, got %d", len(batch.Results))
	}
}

func TestImportArchiveScratchDirCarriesRunID(t *testing.T) {
	root := t.TempDir()
	arch := &recordingArchiver{files: map[string]string{"p.md": "hi"}}

	opts := testOptions(root)
	opts.RunID = "1a2b3c4d"
	if _, err := New(opts, arch, nil).ImportArchive(filepath.Join(root, "p.zip")); err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}
	if len(arch.dests) != 1 {
		t.Fatalf("Extract called %d times", len(arch.dests))
	}
	if base := filepath.Base(arch.dests[0]); !strings.HasPrefix(base, "postkit-1a2b3c4d-") {
		t.Errorf("scratch dir %q does not carry the run id", base)
	}
}

func TestScratchPattern(t *testing.T) {
	tests := []struct {
		runID    string
		expected string
	}{
		{"", "postkit-"},
		{"abcd1234", "postkit-abcd1234-"},
	}
	for _, tt := range tests {
		if got := scratchPattern(tt.runID); got != tt.expected {
			t.Errorf("scratchPattern(%q) = %q, want %q", tt.runID, got, tt.expected)
		}
	}
}
