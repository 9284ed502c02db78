package preview

import (
	"os"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/memoize/internal/markdown"
	"git.home.luguber.info/inful/memoize/internal/site"
)

// noopBatch reports whether every path in a non-structural batch is a page
// whose content fingerprint matches the previous build. Editors that rewrite
// files on save without changing bytes, and tools that only touch mtimes,
// produce such batches; skipping them avoids pointless rebuild-and-reload
// cycles. Any asset, unknown path or read failure disqualifies the batch.
func noopBatch(graph *site.Graph, rels []string) bool {
	for _, rel := range rels {
		page, ok := graph.Page(rel)
		if !ok {
			return false
		}
		raw, err := os.ReadFile(page.Entry.Path)
		if err != nil {
			return false
		}
		_, body, envelope, _ := markdown.SplitFrontmatter(raw)
		if fingerprint(envelope, body) != fingerprint(page.Envelope, page.Body) {
			return false
		}
	}
	return true
}

func fingerprint(envelope, body []byte) string {
	return mdfp.CalculateFingerprintFromParts(string(envelope), string(body))
}
