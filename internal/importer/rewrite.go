package importer

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reMarkdownImage = regexp.MustCompile(`!\[(?P<alt>[^\]]*)\]\((?P<src>[^)]+)\)`)
	reHTMLImage     = regexp.MustCompile(`(?i)<img(?P<pre>\s+(?:[^>]*?\s)?)src=["'](?P<src>[^"']+)["'](?P<rest>[^>]*)>`)
)

// Rewriter points image references at relocated assets.
type Rewriter struct {
	Index     *AssetIndex
	URLPrefix string // e.g. "/assets/images"
	Slug      string

	rewritten  int
	unresolved []string
}

// AssetURL returns the site-relative templated reference for a stored name.
func (r *Rewriter) AssetURL(storedName string) string {
	p := strings.TrimRight(r.URLPrefix, "/") + "/" + r.Slug + "/" + storedName
	return fmt.Sprintf("{{ '%s' | relative_url }}", p)
}

// Rewrite applies the inline-image pass and then the <img> tag pass.
func (r *Rewriter) Rewrite(text string) string {
	text = r.rewriteMarkdown(text)
	return r.rewriteHTML(text)
}

// Rewritten returns how many references were replaced so far.
func (r *Rewriter) Rewritten() int {
	return r.rewritten
}

// Unresolved returns local references that matched no asset, in order.
func (r *Rewriter) Unresolved() []string {
	return append([]string(nil), r.unresolved...)
}

func (r *Rewriter) rewriteMarkdown(text string) string {
	return reMarkdownImage.ReplaceAllStringFunc(text, func(match string) string {
		m := reMarkdownImage.FindStringSubmatch(match)
		alt, src := m[1], m[2]

		stored, ok := r.resolve(src)
		if !ok {
			return match
		}
		return fmt.Sprintf("![%s](%s)", alt, r.AssetURL(stored))
	})
}

func (r *Rewriter) rewriteHTML(text string) string {
	return reHTMLImage.ReplaceAllStringFunc(text, func(match string) string {
		m := reHTMLImage.FindStringSubmatch(match)
		pre, src, rest := m[1], m[2], m[3]

		stored, ok := r.resolve(src)
		if !ok {
			return match
		}
		// keep the tag name exactly as written
		tag := match[:len("<img")]
		return fmt.Sprintf(`%s%ssrc="%s"%s>`, tag, pre, r.AssetURL(stored), rest)
	})
}

func (r *Rewriter) resolve(src string) (string, bool) {
	stored, ok := r.Index.Lookup(src)
	if ok {
		r.rewritten++
		return stored, true
	}
	if !isRemote(src) {
		r.unresolved = append(r.unresolved, strings.TrimSpace(src))
	}
	return "", false
}

// isRemote reports references that can never be embedded assets.
func isRemote(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	for _, prefix := range []string{"http://", "https://", "data:", "//", "{{"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
