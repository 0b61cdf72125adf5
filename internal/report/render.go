// Package report renders a diff into an HTML change report suitable for
// embedding in a notification email.
package report

import (
	"html"
	"strings"

	"github.com/mkessler/sitepulse/internal/diff"
)

// DefaultContextLines is how many leading and trailing lines of a long
// unchanged block survive truncation.
const DefaultContextLines = 6

const ellipsisMarker = "…"

// Renderer turns diff segments into an HTML report. It is pure: no I/O, and
// it never fails on well-formed input.
type Renderer struct {
	// ContextLines bounds unchanged blocks: blocks longer than
	// 2*ContextLines+1 lines are collapsed to ContextLines leading lines,
	// an ellipsis, and ContextLines trailing lines. Zero means the default.
	ContextLines int
}

// Render produces the full HTML document for the given diff. Each segment
// becomes one styled block; unchanged context around a change is kept but
// truncated in the middle so reports on large pages stay readable. A
// non-empty summary is shown above the diff.
func (r Renderer) Render(segs []diff.Segment, url, summary string) string {
	context := r.ContextLines
	if context <= 0 {
		context = DefaultContextLines
	}

	var blocks strings.Builder
	for _, seg := range segs {
		text := seg.Text
		if seg.Kind == diff.Unchanged {
			text = truncateMiddle(text, context)
		}

		blocks.WriteString(`<div class="text-holder"><p class="`)
		blocks.WriteString(styleClass(seg.Kind))
		blocks.WriteString(`">`)
		blocks.WriteString(escape(text))
		blocks.WriteString("</p></div>\n")
	}

	var doc strings.Builder
	doc.WriteString("<html><head><style>\n")
	doc.WriteString(reportCSS)
	doc.WriteString("</style></head><body>\n")
	doc.WriteString(`<p class="report-source">`)
	doc.WriteString(escape(url))
	doc.WriteString("</p>\n")
	if summary != "" {
		doc.WriteString(`<p class="summary">`)
		doc.WriteString(escape(summary))
		doc.WriteString("</p>\n")
	}
	doc.WriteString(`<div class="content">` + "\n")
	doc.WriteString(blocks.String())
	doc.WriteString("</div>\n</body></html>\n")
	return doc.String()
}

func styleClass(k diff.Kind) string {
	switch k {
	case diff.Added:
		return "added"
	case diff.Removed:
		return "removed"
	default:
		return "normal"
	}
}

// escape makes segment text safe for HTML and maps line breaks to <br>.
func escape(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

// truncateMiddle collapses the middle of a block that spans more than
// 2*context+1 lines, keeping context lines on each side of an ellipsis.
func truncateMiddle(text string, context int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= 2*context+1 {
		return text
	}

	kept := make([]string, 0, 2*context+1)
	kept = append(kept, lines[:context]...)
	kept = append(kept, ellipsisMarker)
	kept = append(kept, lines[len(lines)-context:]...)
	return strings.Join(kept, "\n")
}

const reportCSS = `.content {
  width: fit-content;
  height: fit-content;
  display: inline-block;
  background-color: #edece8;
  margin: 20px;
  padding: 5px;
  border: 3px dashed #e0e0e0;
}
.text-holder { width: 100%; }
.report-source { font-family: monospace; color: #5a5954; margin: 10px 20px 0; }
.summary { font-family: sans-serif; color: #3c3b37; margin: 10px 20px 0; max-width: 640px; }
p {
  color: #91908a;
  width: fit-content;
  display: inline-block;
  padding: 0px;
  margin: 0px;
  font-family: monospace;
  font-size: 20px;
}
.added {
  background-color: #b9f5ab;
  font-weight: bold;
}
.removed {
  background-color: #f5b6ab;
  text-decoration: line-through;
  font-weight: bold;
}
`
