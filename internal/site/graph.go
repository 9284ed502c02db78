package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/memoize/internal/logfields"
	"git.home.luguber.info/inful/memoize/internal/markdown"
	"git.home.luguber.info/inful/memoize/internal/source"
)

// Page is one Markdown note in the graph. Built single-threaded by Build,
// read-only afterward; render workers never mutate it.
type Page struct {
	Entry     source.Entry
	OutputRel string        // Slash-separated output path (".md" swapped for ".html")
	Meta      markdown.Meta // Frontmatter envelope, zero when absent
	Body      []byte        // Markdown body with the envelope stripped
	Envelope  []byte        // Raw envelope bytes, used for content fingerprints
	Links     []markdown.Link
	Resolved  map[string]string // Original destination → rewritten destination
	ReadErr   error             // Set when the source file could not be read; fails the render job
}

// LinkWarning records a relative link whose target is not in the graph.
type LinkWarning struct {
	Page   string // Page relative path
	Target string // Destination text as written
}

func (w LinkWarning) String() string {
	return fmt.Sprintf("%s: unresolved link %q", w.Page, w.Target)
}

// LinkExtractor yields the outbound destinations of a Markdown body.
type LinkExtractor interface {
	ExtractLinks(body []byte) []markdown.Link
}

// Graph maps every source path to its output path and every page to its
// resolved links. It is constructed in two phases and frozen before the
// parallel render phase attaches; nothing mutates it afterward.
type Graph struct {
	Root string // Absolute source root

	entries   map[string]source.Entry
	outputs   map[string]string
	pages     map[string]*Page
	assets    []source.Entry
	dirs      []source.Entry
	backlinks map[string][]string
	warnings  []LinkWarning
}

// OutputRel returns the output-relative path for a scanned entry. Pure
// function of the relative path: pages swap ".md" for ".html", everything
// else mirrors as-is.
func OutputRel(e source.Entry) string {
	if e.Kind == source.KindPage {
		return strings.TrimSuffix(e.RelPath, ".md") + ".html"
	}
	return e.RelPath
}

// Build assembles the graph from a scan result. Phase 1 records the output
// path of every entry; only then does Phase 2 read page content and resolve
// links, so resolution may reference any entry regardless of walk order.
func Build(ctx context.Context, scan *source.Result, extractor LinkExtractor) (*Graph, error) {
	g := &Graph{
		Root:      scan.Root,
		entries:   make(map[string]source.Entry, len(scan.Entries)),
		outputs:   make(map[string]string, len(scan.Entries)),
		pages:     make(map[string]*Page),
		backlinks: make(map[string][]string),
	}

	// Phase 1: path collection. No content is touched here.
	for _, e := range scan.Entries {
		g.entries[e.RelPath] = e
		g.outputs[e.RelPath] = OutputRel(e)
		switch e.Kind {
		case source.KindPage:
			g.pages[e.RelPath] = &Page{Entry: e, OutputRel: OutputRel(e)}
		case source.KindAsset:
			g.assets = append(g.assets, e)
		case source.KindDir:
			g.dirs = append(g.dirs, e)
		}
	}

	// Phase 2: content and link resolution.
	for _, rel := range g.pageRels() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := g.pages[rel]

		raw, err := os.ReadFile(page.Entry.Path)
		if err != nil {
			page.ReadErr = err
			slog.Debug("Page content unreadable", logfields.Path(rel), logfields.Error(err))
			continue
		}

		meta, body, envelope, fmErr := markdown.SplitFrontmatter(raw)
		if fmErr != nil {
			slog.Debug("Malformed frontmatter, rendering full source", logfields.Path(rel), logfields.Error(fmErr))
		}
		page.Meta = meta
		page.Body = body
		page.Envelope = envelope

		page.Links = extractor.ExtractLinks(body)
		page.Resolved = make(map[string]string)
		for _, link := range page.Links {
			g.resolveLink(page, link.Destination)
		}
	}

	sort.Slice(g.warnings, func(i, j int) bool {
		if g.warnings[i].Page != g.warnings[j].Page {
			return g.warnings[i].Page < g.warnings[j].Page
		}
		return g.warnings[i].Target < g.warnings[j].Target
	})
	for target, sources := range g.backlinks {
		sort.Strings(sources)
		g.backlinks[target] = slices.Compact(sources)
	}

	slog.Debug("Site graph built",
		logfields.Pages(len(g.pages)),
		logfields.Assets(len(g.assets)),
		logfields.Warnings(len(g.warnings)))
	return g, nil
}

func (g *Graph) pageRels() []string {
	rels := make([]string, 0, len(g.pages))
	for rel := range g.pages {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return rels
}

// PageList returns every page sorted by relative path.
func (g *Graph) PageList() []*Page {
	pages := make([]*Page, 0, len(g.pages))
	for _, rel := range g.pageRels() {
		pages = append(pages, g.pages[rel])
	}
	return pages
}

// Page looks up a page by source-relative path.
func (g *Graph) Page(rel string) (*Page, bool) {
	p, ok := g.pages[rel]
	return p, ok
}

// AssetList returns every asset sorted by relative path.
func (g *Graph) AssetList() []source.Entry {
	assets := make([]source.Entry, len(g.assets))
	copy(assets, g.assets)
	sort.Slice(assets, func(i, j int) bool { return assets[i].RelPath < assets[j].RelPath })
	return assets
}

// DirList returns every directory sorted shallowest-first so parents are
// created before children.
func (g *Graph) DirList() []source.Entry {
	dirs := make([]source.Entry, len(g.dirs))
	copy(dirs, g.dirs)
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].RelPath < dirs[j].RelPath })
	return dirs
}

// OutputFor returns the output-relative path recorded for a source path.
func (g *Graph) OutputFor(rel string) (string, bool) {
	out, ok := g.outputs[rel]
	return out, ok
}

// Entry looks up a scanned entry by source-relative path.
func (g *Graph) Entry(rel string) (source.Entry, bool) {
	e, ok := g.entries[rel]
	return e, ok
}

// Backlinks returns the pages containing a resolved link to the given page,
// sorted. Used to compute the affected set for incremental rebuilds.
func (g *Graph) Backlinks(rel string) []string {
	return g.backlinks[rel]
}

// Warnings returns every link-resolution warning sorted by page, then target.
func (g *Graph) Warnings() []LinkWarning {
	return g.warnings
}
