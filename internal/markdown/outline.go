package markdown

import (
	gmast "github.com/yuin/goldmark/ast"
)

// Heading is one outline entry for the rendered table of contents.
type Heading struct {
	Level int    // 1..6
	ID    string // Anchor ID, explicit or slugified
	Text  string // Plain heading text
}

// collectOutline walks a parsed document and returns every heading in order.
// Runs after the heading-ID transformer, so each entry carries its anchor.
func collectOutline(doc gmast.Node, source []byte) []Heading {
	var outline []Heading
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		outline = append(outline, Heading{
			Level: h.Level,
			ID:    headingID(h),
			Text:  headingText(h, source),
		})
		return gmast.WalkSkipChildren, nil
	})
	return outline
}

func headingID(h *gmast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	default:
		return ""
	}
}

// titleOf returns the document title: the text of the leading heading,
// provided that heading is an H1. A document opening with an H2 has no title
// even if an H1 appears later.
func titleOf(outline []Heading) string {
	if len(outline) > 0 && outline[0].Level == 1 {
		return outline[0].Text
	}
	return ""
}
