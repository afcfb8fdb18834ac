package importer

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the fixed header written at the top of every imported post.
type FrontMatter struct {
	Title    string
	Date     string
	Category string
}

// String renders the header with keys in fixed order (layout, title, date,
// categories) followed by one blank line.
func (fm FrontMatter) String() string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("layout: post\n")
	fmt.Fprintf(&b, "title: %s\n", quoteScalar(fm.Title))
	fmt.Fprintf(&b, "date: %s\n", fm.Date)
	fmt.Fprintf(&b, "categories: %s\n", fm.Category)
	b.WriteString("---\n\n")
	return b.String()
}

// quoteScalar renders s as a YAML double-quoted scalar.
func quoteScalar(s string) string {
	node := &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.DoubleQuotedStyle,
		Value: s,
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return strings.TrimSpace(string(out))
}
