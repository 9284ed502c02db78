package markdown

import (
	stdhtml "html"
	"strings"
	"unicode"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

// Slugify turns heading text into an anchor ID: letters and digits are kept
// (ASCII letters lowercased, other scripts pass through), any other run of
// characters collapses to a single dash. Input is NFC-normalized first so
// decomposed accents produce the same slug as their precomposed form.
func Slugify(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	lastDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return b.String()
}

// headingIDer assigns a slug ID to every heading that does not carry an
// explicit `{#id}` attribute. IDs are not deduplicated: identical headings
// get identical anchors.
type headingIDer struct{}

func (t *headingIDer) Transform(doc *gmast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		if _, has := h.AttributeString("id"); !has {
			h.SetAttributeString("id", []byte(Slugify(headingText(h, source))))
		}
		return gmast.WalkSkipChildren, nil
	})
}

// headingText concatenates the plain text of a heading. Code spans are
// skipped so backticked fragments stay out of slugs and outline titles;
// typographer substitutions (String nodes holding entities) are decoded back
// to their characters.
func headingText(h gmast.Node, source []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(h, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.CodeSpan:
			return gmast.WalkSkipChildren, nil
		case *gmast.Text:
			sb.Write(node.Segment.Value(source))
		case *gmast.String:
			sb.WriteString(stdhtml.UnescapeString(string(node.Value)))
		}
		return gmast.WalkContinue, nil
	})
	return sb.String()
}
