package preview

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/net/html"
)

const scriptTag = `<script src="/livereload.js" defer></script>`

// injectLiveReload inserts the livereload script tag just before the closing
// </body> tag. Tokens are copied through as raw bytes, so the page comes out
// byte-identical apart from the insertion. Pages without a </body> get the
// tag appended at the end instead.
func injectLiveReload(page []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(page))
	var out bytes.Buffer
	out.Grow(len(page) + len(scriptTag))
	injected := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return page
		}
		if tt == html.EndTagToken && !injected {
			if name, _ := z.TagName(); string(name) == "body" {
				out.WriteString(scriptTag)
				injected = true
			}
		}
		out.Write(z.Raw())
	}
	if !injected {
		out.WriteString(scriptTag)
	}
	return out.Bytes()
}
