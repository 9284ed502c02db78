package markdown

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Fragment is the result of rendering one Markdown body.
type Fragment struct {
	Body    []byte    // Rendered HTML, not yet wrapped in a page template
	Title   string    // Text of the leading heading when it is an H1, else empty
	Outline []Heading // Every heading in document order
}

// Renderer converts Markdown bodies to HTML fragments. It is safe for
// concurrent use; per-render state lives in the parser context.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer builds the production renderer: tables, footnotes, typographic
// punctuation, explicit `{#id}` heading attributes, slug IDs for the rest,
// and raw HTML passed through.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				extension.Footnote,
				extension.Typographer,
			),
			goldmark.WithParserOptions(
				parser.WithAttribute(),
				parser.WithASTTransformers(
					util.Prioritized(&headingIDer{}, 100),
					util.Prioritized(&linkRewriter{}, 200),
				),
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
			),
		),
	}
}

// Render converts one Markdown body into a Fragment. Link destinations found
// in resolved are swapped before rendering; everything else passes through.
func (r *Renderer) Render(ctx context.Context, body []byte, resolved map[string]string) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pc := parser.NewContext()
	pc.Set(resolvedLinksKey, resolved)

	doc := r.md.Parser().Parse(text.NewReader(body), parser.WithContext(pc))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	outline := collectOutline(doc, body)
	return &Fragment{
		Body:    buf.Bytes(),
		Title:   titleOf(outline),
		Outline: outline,
	}, nil
}

// ExtractLinks parses a Markdown body and returns every link and image
// destination. Reference-style links arrive already resolved to their
// definition's destination. This is an analysis API used to build the site
// graph; it does not render anything.
func (r *Renderer) ExtractLinks(body []byte) []Link {
	doc := r.md.Parser().Parse(text.NewReader(body), parser.WithContext(parser.NewContext()))

	links := make([]Link, 0)
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Image:
			links = append(links, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			links = append(links, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})
	return links
}

// linkRewriter swaps link and image destinations using the resolved-link map
// carried in the parser context. Destinations without a mapping are left
// untouched.
type linkRewriter struct{}

var resolvedLinksKey = parser.NewContextKey()

func (t *linkRewriter) Transform(doc *gmast.Document, _ text.Reader, pc parser.Context) {
	resolved, _ := pc.Get(resolvedLinksKey).(map[string]string)
	if len(resolved) == 0 {
		return
	}
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Image:
			if to, ok := resolved[string(node.Destination)]; ok {
				node.Destination = []byte(to)
			}
		case *gmast.Link:
			if to, ok := resolved[string(node.Destination)]; ok {
				node.Destination = []byte(to)
			}
		}
		return gmast.WalkContinue, nil
	})
}
