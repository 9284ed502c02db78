package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAbsoluteURL(t *testing.T) {
	tests := []struct {
		dest string
		want bool
	}{
		{"https://example.com/x", true},
		{"http://example.com", true},
		{"mailto:someone@example.com", true},
		{"tel:+4712345678", true},
		{"//cdn.example.com/lib.js", true},
		{"ftp://host/file", true},
		{"x.md", false},
		{"../x.md", false},
		{"./x.md", false},
		{"dir/x.md", false},
		{"#fragment", false},
		{"", false},
		{":broken", false},
		{"1:2", false},
	}
	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			assert.Equal(t, tt.want, isAbsoluteURL(tt.dest))
		})
	}
}

func TestResolveRelativePageLinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"x.md":     "# X",
		"dir/y.md": "[up](../x.md) [side](z.md)",
		"dir/z.md": "# Z",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("dir/y.md")
	require.True(t, ok)
	assert.Equal(t, "../x.html", page.Resolved["../x.md"])
	assert.Equal(t, "z.html", page.Resolved["z.md"])
	assert.Empty(t, g.Warnings())
}

func TestResolvePreservesFragments(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"x.md": "# Here",
		"y.md": "[jump](x.md#here) [self](#local) [dangling](z.md#gone)",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("y.md")
	require.True(t, ok)
	assert.Equal(t, "x.html#here", page.Resolved["x.md#here"])

	// Anchor-only destinations are never touched.
	_, touched := page.Resolved["#local"]
	assert.False(t, touched)

	// The fallback rewrite keeps the fragment too.
	assert.Equal(t, "z.html#gone", page.Resolved["z.md#gone"])
}

func TestResolveMissingTargetWarnsAndFallsBack(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"y.md": "[gone](z.md) [gone asset](missing.png)",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("y.md")
	require.True(t, ok)
	assert.Equal(t, "z.html", page.Resolved["z.md"])

	// A missing non-page target warns but has no rewrite to fall back to.
	_, touched := page.Resolved["missing.png"]
	assert.False(t, touched)

	warnings := g.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, LinkWarning{Page: "y.md", Target: "missing.png"}, warnings[0])
	assert.Equal(t, LinkWarning{Page: "y.md", Target: "z.md"}, warnings[1])
	assert.Equal(t, `y.md: unresolved link "z.md"`, warnings[1].String())
}

func TestResolveLeavesAbsoluteURLs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"y.md": "[a](https://example.com/x.md) [b](mailto:hi@example.com) [c](//cdn.example.com/x.md)",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("y.md")
	require.True(t, ok)
	assert.Empty(t, page.Resolved)
	assert.Empty(t, g.Warnings())
}

func TestResolveOutsideRootPassesThrough(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"dir/y.md": "[esc](../../elsewhere.md) [far](../../../deep.md)",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("dir/y.md")
	require.True(t, ok)
	assert.Empty(t, page.Resolved)
	assert.Empty(t, g.Warnings())
}

func TestResolveRootedPaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"top.md":       "# Top",
		"a/b/deep.md":  "[home](/top.md) [ghost](/nope.md)",
		"a/b/other.md": "# Other",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("a/b/deep.md")
	require.True(t, ok)
	assert.Equal(t, "/top.html", page.Resolved["/top.md"])
	assert.Equal(t, "/nope.html", page.Resolved["/nope.md"])

	warnings := g.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "/nope.md", warnings[0].Target)
}

func TestResolveAssetAndDirLinksUntouched(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"y.md":         "[img](pic.png) [folder](sub) ![inline](pic.png)",
		"pic.png":      "png-bytes",
		"sub/inner.md": "# Inner",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("y.md")
	require.True(t, ok)
	assert.Empty(t, page.Resolved)
	assert.Empty(t, g.Warnings())
}

func TestResolveImageLinksRewriteToo(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"x.md": "# X",
		"y.md": "![embed](x.md)",
	})

	g := buildGraph(t, root)

	page, ok := g.Page("y.md")
	require.True(t, ok)
	assert.Equal(t, "x.html", page.Resolved["x.md"])
}
