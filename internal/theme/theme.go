// Package theme turns a rendered Markdown body into a complete HTML page.
// The default template and stylesheet are embedded so the binary is
// self-contained; the stylesheet is inlined into every page, keeping the
// output tree an exact mirror of the source tree with no extra files.
package theme

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed note.html
var noteTemplateSource string

//go:embed style.css
var styleSource string

var noteTemplate = template.Must(template.New("note").Parse(noteTemplateSource))

// TOCEntry is one heading in the page's table of contents.
type TOCEntry struct {
	Level int
	ID    string
	Title string
}

// CommitInfo feeds the provenance footer. Nil Commit in PageData means no
// footer is rendered at all.
type CommitInfo struct {
	ShortHash string
	Date      string
	Name      string
	URL       string // Optional commit link; without it the hash renders as plain text
}

// PageData is everything the note template needs for one page.
type PageData struct {
	Title  string
	Style  template.CSS // Filled with the embedded stylesheet when empty
	Body   template.HTML
	TOC    []TOCEntry
	Commit *CommitInfo
}

// Theme renders pages through the embedded note template. Safe for
// concurrent use; html/template executions may run in parallel.
type Theme struct {
	tmpl  *template.Template
	style template.CSS
}

func New() *Theme {
	return &Theme{tmpl: noteTemplate, style: template.CSS(styleSource)}
}

// Apply executes the note template and returns the complete page bytes.
// A table of contents with fewer than two entries is suppressed; a single
// link pointing at the page's only heading helps nobody.
func (t *Theme) Apply(data PageData) ([]byte, error) {
	if data.Style == "" {
		data.Style = t.style
	}
	if len(data.TOC) < 2 {
		data.TOC = nil
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to apply note template: %w", err)
	}
	return buf.Bytes(), nil
}
