package build

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync/atomic"

	"git.home.luguber.info/inful/memoize/internal/markdown"
	"git.home.luguber.info/inful/memoize/internal/site"
	"git.home.luguber.info/inful/memoize/internal/theme"
)

// executor runs render and copy jobs against the output tree. Shared by all
// workers of one cycle; the only mutable state is the link counter.
type executor struct {
	pipeline  *Pipeline
	outputDir string
	linked    atomic.Int64
}

func (e *executor) Execute(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobCopyAsset:
		return e.copyAsset(job)
	default:
		return e.renderPage(ctx, job.Page)
	}
}

func (e *executor) renderPage(ctx context.Context, page *site.Page) error {
	if page.ReadErr != nil {
		return fmt.Errorf("failed to read source: %w", page.ReadErr)
	}

	frag, err := e.pipeline.renderer.Render(ctx, page.Body, page.Resolved)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	data := theme.PageData{
		Title:  pageTitle(page, frag),
		Body:   template.HTML(frag.Body),
		TOC:    tocEntries(frag.Outline),
		Commit: e.commitFor(ctx, page),
	}
	out, err := e.pipeline.applier.Apply(data)
	if err != nil {
		return fmt.Errorf("failed to apply template: %w", err)
	}

	target := filepath.Join(e.outputDir, filepath.FromSlash(page.OutputRel))
	return writeFileAtomic(target, out)
}

func (e *executor) copyAsset(job Job) error {
	from := job.Asset.Path
	to := filepath.Join(e.outputDir, filepath.FromSlash(job.OutputRel))
	linked, err := hardLinkOrCopy(from, to)
	if err != nil {
		return err
	}
	if linked {
		e.linked.Add(1)
	}
	return nil
}

// commitFor resolves the provenance footer. Any lookup failure means no
// footer; git metadata is strictly best-effort.
func (e *executor) commitFor(ctx context.Context, page *site.Page) *theme.CommitInfo {
	commit, err := e.pipeline.meta.Lookup(ctx, page.Entry.RelPath)
	if err != nil {
		return nil
	}
	return &theme.CommitInfo{
		ShortHash: commit.Short(),
		Date:      commit.Date,
		Name:      commit.Name,
		URL:       commit.WebURL,
	}
}

func tocEntries(outline []markdown.Heading) []theme.TOCEntry {
	entries := make([]theme.TOCEntry, len(outline))
	for i, h := range outline {
		entries[i] = theme.TOCEntry{Level: h.Level, ID: h.ID, Title: h.Text}
	}
	return entries
}

// writeFileAtomic writes through a temp file and renames into place, so a
// concurrent preview reader never sees a half-written page.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
