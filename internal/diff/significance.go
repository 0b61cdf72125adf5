package diff

import "strings"

// Significant reports whether a diff represents a real change. A changed
// segment is ignorable when its text contains any of the ignore patterns as a
// substring; the diff is significant when at least one added or removed
// segment is not ignorable. A diff with no added or removed segments is never
// significant, so calling this on identical content is safe.
func Significant(segs []Segment, ignore []string) bool {
	for _, seg := range segs {
		if seg.Kind == Unchanged {
			continue
		}
		if !ignorable(seg.Text, ignore) {
			return true
		}
	}
	return false
}

func ignorable(text string, ignore []string) bool {
	for _, pattern := range ignore {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}
