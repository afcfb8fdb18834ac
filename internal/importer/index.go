package importer

import (
	"net/url"
	"strings"

	"github.com/gerunddev/postkit/internal/slug"
)

// AssetKey is the single key-normalization function of AssetIndex: the
// URL-decoded base name of ref, lower-cased. Both indexing and lookup go
// through it, so the two sides cannot drift apart.
func AssetKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	return strings.ToLower(slug.Base(ref))
}

// AssetIndex maps image references found in a post to the stored names of
// the relocated assets, and stored names back to their source files. One
// index is built per archive.
type AssetIndex struct {
	exts     []string
	byKey    map[string]string
	bySource map[string]string
}

// NewAssetIndex creates an empty index that sanitizes names with exts.
func NewAssetIndex(exts []string) *AssetIndex {
	return &AssetIndex{
		exts:     exts,
		byKey:    make(map[string]string),
		bySource: make(map[string]string),
	}
}

// Add registers an asset under two keys: its original file name and its
// sanitized file name. References in exports are sometimes already
// sanitized or URL-encoded, and either form must resolve.
func (x *AssetIndex) Add(sourcePath, storedName string) {
	name := slug.Base(sourcePath)
	x.byKey[AssetKey(name)] = storedName
	x.byKey[AssetKey(slug.SanitizeImageName(name, x.exts))] = storedName
	x.bySource[storedName] = sourcePath
}

// Lookup resolves a reference (any path or URL-encoded form) to a stored name.
func (x *AssetIndex) Lookup(ref string) (string, bool) {
	stored, ok := x.byKey[AssetKey(ref)]
	return stored, ok
}

// Source returns the extracted file a stored name was copied from.
func (x *AssetIndex) Source(storedName string) (string, bool) {
	src, ok := x.bySource[storedName]
	return src, ok
}

// Len returns the number of distinct stored assets.
func (x *AssetIndex) Len() int {
	return len(x.bySource)
}
