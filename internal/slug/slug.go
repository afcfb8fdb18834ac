// Package slug derives URL-safe post slugs and filesystem-safe image names.
package slug

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// FallbackSlug is used when a name folds down to nothing.
	FallbackSlug = "post"
	// FallbackImageBase is used when an image base name sanitizes to nothing.
	FallbackImageBase = "img"
	// DefaultImageExt replaces missing or unrecognized image extensions.
	DefaultImageExt = ".png"
)

var (
	reSlugRun  = regexp.MustCompile(`[^a-z0-9]+`)
	reImageRun = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// Slugify folds name to ASCII, lower-cases it and joins alphanumeric runs with
// single hyphens. The result is a valid path and URL segment; empty input
// yields FallbackSlug.
func Slugify(name string) string {
	s := strings.ToLower(foldASCII(name))
	s = reSlugRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return FallbackSlug
	}
	return s
}

// foldASCII decomposes name (NFKD) and drops everything outside ASCII, so
// "Café" becomes "Cafe" and "日本" disappears.
func foldASCII(name string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, name)
	if err != nil {
		return ""
	}
	return out
}

// SanitizeImageName turns the base of name into "<alnum_base><ext>". The base
// is URL-decoded and every run outside [A-Za-z0-9] becomes one underscore.
// The extension is lower-cased and replaced with DefaultImageExt when it is
// missing or not one of exts.
func SanitizeImageName(name string, exts []string) string {
	base := Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// dotfile such as ".hidden": the whole name is the stem
		stem, ext = ext, ""
	}

	if decoded, err := url.PathUnescape(stem); err == nil {
		stem = decoded
	}
	stem = reImageRun.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "_")
	if stem == "" {
		stem = FallbackImageBase
	}

	ext = strings.ToLower(ext)
	if !HasExt(ext, exts) {
		ext = DefaultImageExt
	}
	return stem + ext
}

// BuildStoredName returns the final on-disk name of an image asset:
// "{slug}_{SanitizeImageName(originalPath)}".
func BuildStoredName(postSlug, originalPath string, exts []string) string {
	return postSlug + "_" + SanitizeImageName(originalPath, exts)
}

// Base returns the last element of p, accepting both slash styles so archive
// paths and markdown references behave the same on every platform.
func Base(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return path.Base(p)
}

// HasExt reports whether ext (with leading dot) is one of exts, ignoring case.
func HasExt(ext string, exts []string) bool {
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

// IsImage reports whether name carries one of the image extensions.
func IsImage(name string, exts []string) bool {
	return HasExt(filepath.Ext(name), exts)
}

// IsMarkdown reports whether name carries one of the markdown extensions.
func IsMarkdown(name string, exts []string) bool {
	return HasExt(filepath.Ext(name), exts)
}
