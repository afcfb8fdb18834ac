// Package fsutil holds the small filesystem helpers shared by the pipelines.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotDirectory is returned when a stage's input directory is missing or is a file.
var ErrNotDirectory = errors.New("not a directory")

// RequireDir fails with ErrNotDirectory unless dir exists and is a directory.
func RequireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	return nil
}

// CopyFile copies src to dst, overwriting dst, and carries over the
// permission bits and modification time of src.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// ListFiles returns the regular files directly inside dir whose extension is
// one of exts (case-insensitive), sorted by name. Subdirectories are ignored.
func ListFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if hasExt(e.Name(), exts) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// WalkFiles returns every regular file under dir whose extension is one of
// exts, in depth-first lexical order. skip, if non-nil, filters out names.
func WalkFiles(dir string, exts []string, skip func(name string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if skip != nil && skip(d.Name()) {
			return nil
		}
		if hasExt(d.Name(), exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// FileInfo pairs a path with its stat result.
type FileInfo struct {
	Path string
	Info fs.FileInfo
}

// SortByModTime orders files oldest first; equal times fall back to path order.
func SortByModTime(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		ti, tj := files[i].Info.ModTime(), files[j].Info.ModTime()
		if ti.Equal(tj) {
			return files[i].Path < files[j].Path
		}
		return ti.Before(tj)
	})
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place, so readers never observe a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
