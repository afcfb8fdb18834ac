package reformat

import (
	"regexp"
	"strings"
)

// LineKind is the structural role of a single markdown line.
type LineKind int

const (
	KindText LineKind = iota
	KindBlank
	KindFence
	KindImage
	KindHeading
)

func (k LineKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindFence:
		return "fence"
	case KindImage:
		return "image"
	case KindHeading:
		return "heading"
	default:
		return "text"
	}
}

var (
	reImage   = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	reHeading = regexp.MustCompile(`^#{1,6}\s+\S`)
)

// Classify returns the kind of line, checked in priority order: fence,
// image, heading, blank, text. The line ending is ignored.
func Classify(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "```"), strings.HasPrefix(trimmed, "~~~"):
		return KindFence
	case reImage.MatchString(trimmed):
		return KindImage
	case reHeading.MatchString(trimmed):
		return KindHeading
	case trimmed == "":
		return KindBlank
	default:
		return KindText
	}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
