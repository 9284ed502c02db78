package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/memoize/internal/markdown"
	"git.home.luguber.info/inful/memoize/internal/source"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func buildGraph(t *testing.T, root string) *Graph {
	t.Helper()
	scan, err := source.Scan(root)
	require.NoError(t, err)
	require.Empty(t, scan.Errors)

	g, err := Build(context.Background(), scan, markdown.NewRenderer())
	require.NoError(t, err)
	return g
}

func TestBuildMirrorsOutputPaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.md":          "# Home",
		"notes/deep/a.md":   "# A",
		"notes/diagram.svg": "<svg/>",
	})

	g := buildGraph(t, root)

	out, ok := g.OutputFor("index.md")
	require.True(t, ok)
	assert.Equal(t, "index.html", out)

	out, ok = g.OutputFor("notes/deep/a.md")
	require.True(t, ok)
	assert.Equal(t, "notes/deep/a.html", out)

	out, ok = g.OutputFor("notes/diagram.svg")
	require.True(t, ok)
	assert.Equal(t, "notes/diagram.svg", out)

	assert.Len(t, g.PageList(), 2)
	assert.Len(t, g.AssetList(), 1)
}

func TestBuildReadsContentAndFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"note.md": "---\ntitle: Pinned\n---\n# Body heading\n",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("note.md")
	require.True(t, ok)
	assert.Equal(t, "Pinned", page.Meta.Title)
	assert.Equal(t, "# Body heading\n", string(page.Body))
	assert.NotEmpty(t, page.Envelope)
	assert.NoError(t, page.ReadErr)
}

func TestBuildRecordsReadErrors(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"gone.md": "# Gone",
		"kept.md": "# Kept",
	})

	scan, err := source.Scan(root)
	require.NoError(t, err)
	// Remove one file between scan and graph build to force a read failure.
	require.NoError(t, os.Remove(filepath.Join(root, "gone.md")))

	g, err := Build(context.Background(), scan, markdown.NewRenderer())
	require.NoError(t, err)

	gone, ok := g.Page("gone.md")
	require.True(t, ok)
	assert.Error(t, gone.ReadErr)

	kept, ok := g.Page("kept.md")
	require.True(t, ok)
	assert.NoError(t, kept.ReadErr)
	assert.Equal(t, "# Kept", string(kept.Body))
}

func TestBuildHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": "# A"})

	scan, err := source.Scan(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, scan, markdown.NewRenderer())
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildCollectsBacklinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"hub.md":      "# Hub",
		"a.md":        "[hub](hub.md) and [again](./hub.md)",
		"sub/b.md":    "[up](../hub.md)",
		"sub/solo.md": "# No links",
	})

	g := buildGraph(t, root)

	assert.Equal(t, []string{"a.md", "sub/b.md"}, g.Backlinks("hub.md"))
	assert.Empty(t, g.Backlinks("sub/solo.md"))
}

func TestBuildDirListShallowestFirst(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/b/c/deep.md": "# Deep",
	})

	g := buildGraph(t, root)

	var rels []string
	for _, d := range g.DirList() {
		rels = append(rels, d.RelPath)
	}
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, rels)
}

func TestOutputRel(t *testing.T) {
	tests := []struct {
		name  string
		entry source.Entry
		want  string
	}{
		{"page", source.Entry{RelPath: "a/b.md", Kind: source.KindPage}, "a/b.html"},
		{"asset", source.Entry{RelPath: "a/b.png", Kind: source.KindAsset}, "a/b.png"},
		{"asset with md-like name", source.Entry{RelPath: "a/b.MD", Kind: source.KindAsset}, "a/b.MD"},
		{"dir", source.Entry{RelPath: "a", Kind: source.KindDir}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputRel(tt.entry))
		})
	}
}
