package markdown

import (
	"bytes"
	"time"

	"github.com/adrg/frontmatter"
)

// Meta is the optional frontmatter envelope of a page. The title overrides
// the first-H1 title when set; the rest feeds the page header.
type Meta struct {
	Title  string    `yaml:"title"  toml:"title"`
	Author string    `yaml:"author" toml:"author"`
	Date   time.Time `yaml:"date"   toml:"date"`
	Tags   []string  `yaml:"tags"   toml:"tags"`
}

// SplitFrontmatter separates the frontmatter envelope from the Markdown body.
// Documents without an envelope return a zero Meta, the full source as body
// and an empty envelope. A malformed envelope is reported; callers keep the
// full source as the body so the page still renders.
func SplitFrontmatter(src []byte) (Meta, []byte, []byte, error) {
	var meta Meta
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return Meta{}, src, nil, err
	}
	envelope := src[:len(src)-len(body)]
	return meta, body, envelope, nil
}
